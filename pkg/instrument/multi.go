package instrument

import "github.com/vango-dev/reactive/pkg/reactive"

// multi fans events out to several instrumentations.
type multi []reactive.Instrumentation

// Multi combines instrumentations. Events reach them in argument order; the
// end of an effect run reaches them in reverse order. nil entries are
// skipped.
func Multi(is ...reactive.Instrumentation) reactive.Instrumentation {
	m := make(multi, 0, len(is))
	for _, i := range is {
		if i != nil {
			m = append(m, i)
		}
	}
	if len(m) == 1 {
		return m[0]
	}
	return m
}

func (m multi) EffectRun(info reactive.EffectInfo) func() {
	done := make([]func(), len(m))
	for i, in := range m {
		done[i] = in.EffectRun(info)
	}
	return func() {
		for i := len(done) - 1; i >= 0; i-- {
			done[i]()
		}
	}
}

func (m multi) Tracked(info reactive.EffectInfo, key any) {
	for _, in := range m {
		in.Tracked(info, key)
	}
}

func (m multi) Triggered(key any, subscribers int) {
	for _, in := range m {
		in.Triggered(key, subscribers)
	}
}

func (m multi) Stopped(info reactive.EffectInfo) {
	for _, in := range m {
		in.Stopped(info)
	}
}

func (m multi) WriteRejected(key any) {
	for _, in := range m {
		in.WriteRejected(key)
	}
}
