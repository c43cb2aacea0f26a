package reactive

import (
	"fmt"
	"sync"
)

// Computed is a derived value that is recomputed lazily.
//
// The getter does not run until Value is first called. When a source it read
// changes, the Computed only marks itself dirty and notifies its own
// subscribers; the getter runs again on the next Value call. Each run
// records a fresh set of sources.
type Computed[T any] struct {
	effect *ReactiveEffect
	setter func(T)
	dep    *Dep

	mu    sync.Mutex
	dirty bool
	value T

	// running is closed when the current recomputation ends. runner is the
	// goroutine doing it.
	running chan struct{}
	runner  uint64
}

// NewComputed creates a read-only Computed from get.
//
// Example:
//
//	count := reactive.NewRef(1)
//	plusOne := reactive.NewComputed(func() int {
//	    return count.Value().(int) + 1
//	})
//	plusOne.Value() // 2
func NewComputed[T any](get func() T) *Computed[T] {
	return newComputed(get, nil)
}

// NewWritableComputed creates a Computed whose SetValue calls set. The setter
// is expected to write the sources get reads.
func NewWritableComputed[T any](get func() T, set func(T)) *Computed[T] {
	return newComputed(get, set)
}

func newComputed[T any](get func() T, set func(T)) *Computed[T] {
	c := &Computed[T]{setter: set, dirty: true}
	c.effect = NewReactiveEffect(func() any { return get() }, c.invalidate)
	c.effect.computed = true
	c.dep = newDep(fmt.Sprintf("computed#%d", c.effect.id), "value")
	return c
}

// invalidate is the scheduler of the underlying effect.
func (c *Computed[T]) invalidate() {
	c.mu.Lock()
	if c.dirty {
		c.mu.Unlock()
		return
	}
	c.dirty = true
	c.mu.Unlock()

	triggerEffects(c.dep, OpSet)
}

// Value returns the cached value, recomputing it first if a source changed
// since the last computation. Inside an effect it subscribes the effect to
// the Computed.
func (c *Computed[T]) Value() T {
	trackEffects(lookupTrackingContext(), c.dep, OpGet)

	gid := getGoroutineID()

	c.mu.Lock()
	for c.running != nil && c.runner != gid {
		wait := c.running
		c.mu.Unlock()
		<-wait
		c.mu.Lock()
	}
	// A read from inside the getter's own run, directly or through an effect
	// the getter triggered, sees the previous value.
	if !c.dirty || c.running != nil {
		v := c.value
		c.mu.Unlock()
		return v
	}
	done := make(chan struct{})
	c.dirty = false
	c.running, c.runner = done, gid
	c.mu.Unlock()

	ok := false
	var v T
	defer func() {
		c.mu.Lock()
		if ok {
			c.value = v
		} else {
			c.dirty = true
		}
		c.running, c.runner = nil, 0
		c.mu.Unlock()
		close(done)
	}()
	v, _ = c.effect.Run().(T)
	ok = true
	return v
}

// Dirty reports whether the next Value call will run the getter.
func (c *Computed[T]) Dirty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dirty
}

// SetValue passes v to the setter. A Computed created without a setter
// rejects the write with ErrComputedReadonly and logs a warning.
func (c *Computed[T]) SetValue(v T) error {
	if c.setter == nil {
		logger().Warn("reactive: write to getter-only computed",
			"code", "E102",
			"computed", c.effect.id,
			"value", v)
		currentInstrumentation().WriteRejected("value")
		return ErrComputedReadonly
	}
	c.setter(v)
	return nil
}

// Effect returns the subscriber that runs the getter.
func (c *Computed[T]) Effect() *ReactiveEffect {
	return c.effect
}

// Stop detaches the Computed from its sources. The cached value is kept and
// never invalidated again.
func (c *Computed[T]) Stop() {
	c.effect.Stop()
}

func (c *Computed[T]) refValue() any { return c.Value() }

func (c *Computed[T]) setRefValue(v any) error {
	t, ok := v.(T)
	if !ok && v != nil {
		var zero T
		return fmt.Errorf("reactive: cannot assign %T to computed of type %T", v, zero)
	}
	return c.SetValue(t)
}
