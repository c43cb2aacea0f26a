package scenario

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	rerrors "github.com/vango-dev/reactive/internal/errors"
	"github.com/vango-dev/reactive/pkg/reactive"
)

// Result is the outcome of one scenario run.
type Result struct {
	// ID is unique per run.
	ID uuid.UUID

	Name string

	// Trace lists what happened, one line per event.
	Trace []string

	// Runs counts effect runs by effect name.
	Runs map[string]int
}

// Text returns the trace as newline-terminated lines.
func (r *Result) Text() []byte {
	var b strings.Builder
	for _, line := range r.Trace {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return []byte(b.String())
}

// Option configures Run.
type Option func(*runConfig)

type runConfig struct {
	logger *slog.Logger
	out    io.Writer
}

// WithLogger sets the logger for step diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTraceWriter streams trace lines to w as they happen.
func WithTraceWriter(w io.Writer) Option {
	return func(c *runConfig) {
		c.out = w
	}
}

// Run builds the scenario's state and subscribers, then applies its steps in
// order. Everything the run created is stopped and released before Run
// returns.
//
// A failing step ends the run. The partial result is returned with the
// error, which is an E302 for steps the state rejected and an E303 for
// failed expectations.
func Run(ctx context.Context, s *Scenario, opts ...Option) (*Result, error) {
	cfg := runConfig{logger: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("scenario: run id: %w", err)
	}
	log := cfg.logger.With("scenario", s.Name, "run", id.String())

	r := newRunner(s, cfg.out)
	defer r.close()

	log.Debug("scenario: start", "effects", len(s.Effects), "steps", len(s.Steps))
	r.setup()

	for i, step := range s.Steps {
		if err := ctx.Err(); err != nil {
			return r.result(id), err
		}
		kind, _ := step.kind()
		log.Debug("scenario: step", "step", i+1, "kind", kind)
		if err := r.apply(kind, step); err != nil {
			err.Detail = fmt.Sprintf("Step %d (%s): %s", i+1, kind, err.Detail)
			log.Warn("scenario: step failed", "step", i+1, "kind", kind, "code", err.Code)
			return r.result(id), err
		}
	}

	log.Debug("scenario: done", "trace", len(r.trace))
	return r.result(id), nil
}

type runner struct {
	s   *Scenario
	out io.Writer

	raw   map[string]any
	state *reactive.Proxy
	view  *reactive.Proxy

	computeds map[string]*reactive.Computed[any]
	effects   map[string]*reactive.Runner
	runs      map[string]int

	// pending holds manually scheduled effects in notification order.
	pending []string
	queued  map[string]bool

	trace []string
}

func newRunner(s *Scenario, out io.Writer) *runner {
	raw := make(map[string]any, len(s.State))
	for k, v := range s.State {
		raw[k] = v
	}
	return &runner{
		s:         s,
		out:       out,
		raw:       raw,
		state:     reactive.Reactive(raw),
		view:      reactive.Readonly(raw),
		computeds: make(map[string]*reactive.Computed[any], len(s.Computed)),
		effects:   make(map[string]*reactive.Runner, len(s.Effects)),
		runs:      make(map[string]int, len(s.Effects)),
		queued:    make(map[string]bool),
	}
}

func (r *runner) emit(msg string, args ...any) {
	line := fmt.Sprintf(msg, args...)
	r.trace = append(r.trace, line)
	if r.out != nil {
		fmt.Fprintln(r.out, line)
	}
}

// read returns a computed's value or a state key's value.
func (r *runner) read(name string) any {
	if c, ok := r.computeds[name]; ok {
		return c.Value()
	}
	return r.state.Get(name)
}

func (r *runner) setup() {
	for _, spec := range r.s.Computed {
		r.computeds[spec.Name] = reactive.NewComputed(func() any {
			vals := make([]any, len(spec.Sum))
			for i, in := range spec.Sum {
				vals[i] = r.read(in)
			}
			v := sum(vals)
			r.emit("compute %s = %s", spec.Name, format(v))
			return v
		})
	}

	for _, spec := range r.s.Effects {
		opts := []reactive.EffectOption{reactive.EffectName(spec.Name)}
		if spec.Scheduler == SchedulerManual {
			opts = append(opts, reactive.WithScheduler(func() { r.schedule(spec.Name) }))
		}
		r.effects[spec.Name] = reactive.Effect(func() {
			r.runs[spec.Name]++
			parts := []string{"run " + spec.Name}
			for _, key := range spec.Reads {
				parts = append(parts, key+"="+format(r.read(key)))
			}
			r.emit("%s", strings.Join(parts, " "))
		}, opts...)
	}
}

func (r *runner) schedule(name string) {
	r.emit("schedule %s", name)
	if !r.queued[name] {
		r.queued[name] = true
		r.pending = append(r.pending, name)
	}
}

func (r *runner) flush() {
	pending := r.pending
	r.pending = nil
	for _, name := range pending {
		delete(r.queued, name)
		runner := r.effects[name]
		if !runner.Effect().Active() {
			continue
		}
		r.emit("flush %s", name)
		runner.Run()
	}
}

func (r *runner) apply(kind string, step Step) *rerrors.Error {
	failed := func(err error) *rerrors.Error {
		return rerrors.New("E302").Wrap(err)
	}

	switch kind {
	case "set":
		r.emit("set %s = %s", step.Set.Key, format(step.Set.Value))
		if err := r.state.Set(step.Set.Key, step.Set.Value); err != nil {
			return failed(err)
		}

	case "readonly":
		err := r.view.Set(step.Readonly.Key, step.Readonly.Value)
		if !errors.Is(err, reactive.ErrReadonly) {
			if err == nil {
				err = errors.New("readonly view accepted the write")
			}
			return failed(err)
		}
		r.emit("rejected %s", step.Readonly.Key)

	case "delete":
		r.emit("delete %s", step.Delete)
		if _, err := r.state.Delete(step.Delete); err != nil {
			return failed(err)
		}

	case "run":
		r.effects[step.Run].Run()

	case "flush":
		r.flush()

	case "stop":
		reactive.Stop(r.effects[step.Stop])
		r.emit("stop %s", step.Stop)

	case "read":
		r.emit("read %s = %s", step.Read, format(r.read(step.Read)))

	case "expect":
		if problems := r.check(step.Expect); len(problems) > 0 {
			return rerrors.New("E303").WithDetail(strings.Join(problems, "; "))
		}
		r.emit("expect ok")
	}
	return nil
}

// check compares observations with e and describes every mismatch.
func (r *runner) check(e *Expect) []string {
	var problems []string

	for _, name := range sortedKeys(e.Runs) {
		if got, want := r.runs[name], e.Runs[name]; got != want {
			problems = append(problems, fmt.Sprintf("effect %s ran %d times, want %d", name, got, want))
		}
	}
	for _, name := range sortedKeys(e.Values) {
		got, want := format(r.read(name)), format(e.Values[name])
		if got != want {
			problems = append(problems, fmt.Sprintf("%s = %s, want %s", name, got, want))
		}
	}
	return problems
}

func (r *runner) result(id uuid.UUID) *Result {
	runs := make(map[string]int, len(r.runs))
	for k, v := range r.runs {
		runs[k] = v
	}
	return &Result{
		ID:    id,
		Name:  r.s.Name,
		Trace: append([]string(nil), r.trace...),
		Runs:  runs,
	}
}

func (r *runner) close() {
	for _, spec := range r.s.Effects {
		reactive.Stop(r.effects[spec.Name])
	}
	for _, c := range r.computeds {
		c.Stop()
	}
	reactive.Release(r.raw)
}

// sum adds ints and floats. Anything else, including a missing key, counts
// as zero. The result is an int unless a float was seen.
func sum(vals []any) any {
	var (
		i       int
		f       float64
		isFloat bool
	)
	for _, v := range vals {
		switch n := v.(type) {
		case int:
			i += n
		case float64:
			f += n
			isFloat = true
		}
	}
	if isFloat {
		return f + float64(i)
	}
	return i
}

func format(v any) string {
	return fmt.Sprint(reactive.ToRaw(v))
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
