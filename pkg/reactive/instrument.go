package reactive

import "sync/atomic"

// Instrumentation observes the engine. Implementations must be safe for
// concurrent use and must not read or write reactive state.
//
// See package instrument for Prometheus and OpenTelemetry implementations.
type Instrumentation interface {
	// EffectRun is called when a subscriber starts running. The returned
	// function is called when the run ends.
	EffectRun(info EffectInfo) func()

	// Tracked is called when a subscriber joins a Dep.
	Tracked(info EffectInfo, key any)

	// Triggered is called for every notification pass with the number of
	// subscribers in the snapshot.
	Triggered(key any, subscribers int)

	// Stopped is called once when a subscriber is stopped.
	Stopped(info EffectInfo)

	// WriteRejected is called when a readonly wrapper or a getter-only
	// computed rejects a write.
	WriteRejected(key any)
}

// NopInstrumentation ignores every event.
type NopInstrumentation struct{}

func (NopInstrumentation) EffectRun(EffectInfo) func() { return func() {} }
func (NopInstrumentation) Tracked(EffectInfo, any)     {}
func (NopInstrumentation) Triggered(any, int)          {}
func (NopInstrumentation) Stopped(EffectInfo)          {}
func (NopInstrumentation) WriteRejected(any)           {}

type instrumentationHolder struct {
	Instrumentation
}

var instrumentation atomic.Pointer[instrumentationHolder]

// SetInstrumentation installs i for the whole process and returns the
// previous one. Passing nil installs NopInstrumentation.
func SetInstrumentation(i Instrumentation) Instrumentation {
	if i == nil {
		i = NopInstrumentation{}
	}
	prev := instrumentation.Swap(&instrumentationHolder{i})
	if prev == nil {
		return NopInstrumentation{}
	}
	return prev.Instrumentation
}

func currentInstrumentation() Instrumentation {
	if h := instrumentation.Load(); h != nil {
		return h.Instrumentation
	}
	return NopInstrumentation{}
}
