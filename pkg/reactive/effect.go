package reactive

import (
	"sync/atomic"
	"time"
)

// ReactiveEffect is a subscriber: a computation that is re-run, or handed to
// its scheduler, when a dependency it read during its last run changes.
//
// Each run starts from an empty dependency set and records what the body
// reads, so dependencies may differ from one run to the next.
type ReactiveEffect struct {
	id   uint64
	name string

	// fn is the body.
	fn func() any

	// deps are the Deps this subscriber joined during its last run, in join
	// order. Guarded by graphMu.
	deps []*Dep

	// active is false once Stop has been called.
	active atomic.Bool

	scheduler    func()
	onStop       func()
	onTrack      func(DebugEvent)
	onTrigger    func(DebugEvent)
	allowRecurse bool
	lazy         bool

	// computed marks the subscriber behind a Computed.
	computed bool
}

// NewReactiveEffect creates an active subscriber without running it.
// If scheduler is non-nil, notifications call it instead of Run.
func NewReactiveEffect(fn func() any, scheduler func()) *ReactiveEffect {
	e := &ReactiveEffect{
		id:        nextID(),
		fn:        fn,
		scheduler: scheduler,
	}
	e.active.Store(true)
	return e
}

// Run executes the body with this subscriber as the running one, and
// returns the body's result. The previous running subscriber and tracking
// state are restored afterwards, also when the body panics.
//
// A stopped subscriber still executes its body but records nothing.
func (e *ReactiveEffect) Run() any {
	if !e.active.Load() {
		return e.fn()
	}

	ctx := getTrackingContext()
	prevEffect, prevTrack := ctx.activeEffect, ctx.shouldTrack
	ctx.activeEffect = e
	ctx.shouldTrack = true
	e.cleanupDeps()

	done := currentInstrumentation().EffectRun(e.Info())
	var start time.Time
	if Debug.LogEffectRuns {
		start = time.Now()
	}

	defer func() {
		ctx.activeEffect = prevEffect
		ctx.shouldTrack = prevTrack
		releaseIfIdle(ctx)
		done()
		if Debug.LogEffectRuns {
			logger().Debug("reactive: effect run",
				"effect", e.id,
				"name", e.name,
				"deps", e.DepCount(),
				"duration", time.Since(start))
		}
	}()

	return e.fn()
}

// Stop permanently deactivates the subscriber: it leaves every Dep it joined,
// its onStop callback fires, and no later notification reaches it. Calling
// Stop again does nothing.
func (e *ReactiveEffect) Stop() {
	if !e.active.CompareAndSwap(true, false) {
		return
	}
	e.cleanupDeps()
	if e.onStop != nil {
		e.onStop()
	}
	currentInstrumentation().Stopped(e.Info())
}

// cleanupDeps removes the subscriber from every Dep it joined.
func (e *ReactiveEffect) cleanupDeps() {
	graphMu.Lock()
	for _, dep := range e.deps {
		dep.remove(e)
	}
	e.deps = nil
	graphMu.Unlock()
}

// Active reports whether Stop has not been called yet.
func (e *ReactiveEffect) Active() bool {
	return e.active.Load()
}

// ID returns the unique identifier for this subscriber.
func (e *ReactiveEffect) ID() uint64 {
	return e.id
}

// Name returns the name given with EffectName, if any.
func (e *ReactiveEffect) Name() string {
	return e.name
}

// DepCount returns the number of Deps the subscriber currently belongs to.
func (e *ReactiveEffect) DepCount() int {
	graphMu.Lock()
	defer graphMu.Unlock()
	return len(e.deps)
}

// Info returns the subscriber's identity for diagnostics.
func (e *ReactiveEffect) Info() EffectInfo {
	return EffectInfo{ID: e.id, Name: e.name}
}

// EffectInfo identifies a subscriber in debug events, instrumentation and
// graph snapshots.
type EffectInfo struct {
	ID   uint64 `json:"id"`
	Name string `json:"name,omitempty"`
}

// OpType names the access that caused a track or trigger.
type OpType string

const (
	OpGet     OpType = "get"
	OpHas     OpType = "has"
	OpIterate OpType = "iterate"
	OpSet     OpType = "set"
	OpAdd     OpType = "add"
	OpDelete  OpType = "delete"
)

// DebugEvent is passed to OnTrack and OnTrigger callbacks.
type DebugEvent struct {
	Effect EffectInfo
	Target string
	Key    any
	Op     OpType
}

// Runner is the handle returned by Effect. Run re-executes the body on
// demand; Effect exposes the subscriber for control operations.
type Runner struct {
	effect *ReactiveEffect
}

// Run executes the body and returns its result.
func (r *Runner) Run() any {
	return r.effect.Run()
}

// Effect returns the subscriber behind the handle.
func (r *Runner) Effect() *ReactiveEffect {
	return r.effect
}

// Stop is shorthand for Stop(r).
func (r *Runner) Stop() {
	r.effect.Stop()
}

// EffectOption is an option for configuring an Effect.
type EffectOption interface {
	isEffectOption()
	applyEffect(e *ReactiveEffect)
}

type effectOptionFunc func(*ReactiveEffect)

func (f effectOptionFunc) isEffectOption()               {}
func (f effectOptionFunc) applyEffect(e *ReactiveEffect) { f(e) }

// WithScheduler makes notifications call fn instead of re-running the body.
// The first run, at creation, still executes the body directly. fn decides
// if and when to call the Runner.
//
//	var pending []*reactive.Runner
//	var runner *reactive.Runner
//	runner = reactive.Effect(render, reactive.WithScheduler(func() {
//	    pending = append(pending, runner)
//	}))
func WithScheduler(fn func()) EffectOption {
	return effectOptionFunc(func(e *ReactiveEffect) {
		e.scheduler = fn
	})
}

// OnStop registers fn to run once when the effect is stopped.
func OnStop(fn func()) EffectOption {
	return effectOptionFunc(func(e *ReactiveEffect) {
		e.onStop = fn
	})
}

// OnTrack registers a debug callback fired each time the effect joins a Dep.
func OnTrack(fn func(DebugEvent)) EffectOption {
	return effectOptionFunc(func(e *ReactiveEffect) {
		e.onTrack = fn
	})
}

// OnTrigger registers a debug callback fired each time a write notifies the
// effect, before its scheduler or body runs.
func OnTrigger(fn func(DebugEvent)) EffectOption {
	return effectOptionFunc(func(e *ReactiveEffect) {
		e.onTrigger = fn
	})
}

// AllowRecurse lets the effect be re-run by writes it performs itself.
// Without it such writes notify every other subscriber but skip the writer.
func AllowRecurse() EffectOption {
	return effectOptionFunc(func(e *ReactiveEffect) {
		e.allowRecurse = true
	})
}

// EffectName names the effect in logs, instrumentation and graph snapshots.
func EffectName(name string) EffectOption {
	return effectOptionFunc(func(e *ReactiveEffect) {
		e.name = name
	})
}

// Lazy skips the initial run. The effect tracks nothing until its Runner is
// called for the first time.
func Lazy() EffectOption {
	return effectOptionFunc(func(e *ReactiveEffect) {
		e.lazy = true
	})
}

// Effect registers fn as a subscriber, runs it once immediately to collect
// its dependencies, and returns a handle that re-runs it on demand.
//
// Example:
//
//	state := reactive.Reactive(map[string]any{"count": 1})
//	var doubled int
//	reactive.Effect(func() {
//	    doubled = state.Get("count").(int) * 2
//	})
//	state.Set("count", 5) // doubled == 10
func Effect(fn func(), opts ...EffectOption) *Runner {
	return EffectValue(func() any {
		fn()
		return nil
	}, opts...)
}

// EffectValue is Effect for bodies that produce a value; Runner.Run returns it.
func EffectValue(fn func() any, opts ...EffectOption) *Runner {
	e := NewReactiveEffect(fn, nil)
	for _, opt := range opts {
		opt.applyEffect(e)
	}
	if !e.lazy {
		e.Run()
	}
	return &Runner{effect: e}
}

// Stop permanently deactivates the effect behind r. Repeated calls are
// no-ops. The Runner keeps working but its runs are no longer tracked.
func Stop(r *Runner) {
	if r != nil {
		r.effect.Stop()
	}
}
