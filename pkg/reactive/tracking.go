package reactive

import (
	"runtime"
	"sync"
)

// trackingContext holds the reactive state for a goroutine.
// Each goroutine has its own context, so subscribers running on different
// goroutines never see each other as the active subscriber.
type trackingContext struct {
	// activeEffect is the subscriber whose body is currently executing.
	// nil means reads record nothing.
	activeEffect *ReactiveEffect

	// shouldTrack enables dependency recording for activeEffect.
	shouldTrack bool

	// trackStack saves shouldTrack across PauseTracking/EnableTracking calls.
	trackStack []bool
}

// idle reports whether the context carries no state worth keeping.
func (c *trackingContext) idle() bool {
	return c.activeEffect == nil && !c.shouldTrack && len(c.trackStack) == 0
}

// tracking reports whether a read right now should record a dependency.
func (c *trackingContext) tracking() bool {
	return c != nil && c.shouldTrack && c.activeEffect != nil
}

// trackingContexts stores per-goroutine tracking contexts.
var trackingContexts sync.Map

// getGoroutineID returns a unique identifier for the current goroutine,
// parsed from the header of runtime.Stack ("goroutine <id> [...]").
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	var id uint64
	for i := 10; i < n; i++ { // Skip "goroutine "
		if buf[i] == ' ' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}

// getTrackingContext returns the tracking context for the current goroutine,
// creating it if needed.
func getTrackingContext() *trackingContext {
	gid := getGoroutineID()

	if ctx, ok := trackingContexts.Load(gid); ok {
		return ctx.(*trackingContext)
	}

	ctx := &trackingContext{}
	trackingContexts.Store(gid, ctx)
	return ctx
}

// lookupTrackingContext returns the current goroutine's context without
// creating one. Reads outside any subscriber take this path.
func lookupTrackingContext() *trackingContext {
	if ctx, ok := trackingContexts.Load(getGoroutineID()); ok {
		return ctx.(*trackingContext)
	}
	return nil
}

// releaseIfIdle drops the goroutine's context once nothing is running on it,
// so short-lived goroutines do not accumulate entries.
func releaseIfIdle(ctx *trackingContext) {
	if ctx.idle() {
		trackingContexts.Delete(getGoroutineID())
	}
}

// activeEffect returns the subscriber running on this goroutine, if any.
func activeEffect() *ReactiveEffect {
	if ctx := lookupTrackingContext(); ctx != nil {
		return ctx.activeEffect
	}
	return nil
}

// IsTracking reports whether a read performed now would be recorded as a
// dependency of the running subscriber.
func IsTracking() bool {
	return lookupTrackingContext().tracking()
}

// PauseTracking disables dependency recording until the matching
// ResetTracking. Calls nest.
func PauseTracking() {
	ctx := getTrackingContext()
	ctx.trackStack = append(ctx.trackStack, ctx.shouldTrack)
	ctx.shouldTrack = false
}

// EnableTracking re-enables dependency recording until the matching
// ResetTracking. Calls nest.
func EnableTracking() {
	ctx := getTrackingContext()
	ctx.trackStack = append(ctx.trackStack, ctx.shouldTrack)
	ctx.shouldTrack = true
}

// ResetTracking restores the tracking state saved by the last PauseTracking
// or EnableTracking.
func ResetTracking() {
	ctx := getTrackingContext()
	if n := len(ctx.trackStack); n > 0 {
		ctx.shouldTrack = ctx.trackStack[n-1]
		ctx.trackStack = ctx.trackStack[:n-1]
	} else {
		ctx.shouldTrack = ctx.activeEffect != nil
	}
	releaseIfIdle(ctx)
}

// Untracked runs fn without recording any reads as dependencies.
//
// Example:
//
//	Effect(func() {
//	    label := state.Get("label")          // tracked
//	    Untracked(func() {
//	        log.Println(state.Get("debug"))  // not tracked
//	    })
//	})
func Untracked(fn func()) {
	PauseTracking()
	defer ResetTracking()
	fn()
}
