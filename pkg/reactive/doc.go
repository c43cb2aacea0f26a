// Package reactive provides fine-grained dependency tracking over plain Go
// data.
//
// Wrapping a map, slice or struct pointer returns a *Proxy. Reads made
// through the Proxy while an effect runs subscribe that effect to the key
// that was read; writes notify every subscriber of the written key.
//
// # Core Types
//
// Proxy wraps an object:
//
//	state := Reactive(map[string]any{"count": 1})
//	n := state.Get("count")  // Read (tracked inside an effect)
//	state.Set("count", 2)    // Write (notifies subscribers)
//
// Ref is a reactive cell for a single value:
//
//	name := NewRef("ada")
//	name.SetValue("grace")
//
// Computed is a lazily recomputed derived value:
//
//	doubled := NewComputed(func() int { return state.Get("count").(int) * 2 })
//	v := doubled.Value()  // Runs the getter only if a source changed
//
// Effect runs a function now and again whenever something it read changes:
//
//	runner := Effect(func() {
//	    fmt.Println("count is", state.Get("count"))
//	})
//	runner.Stop()
//
// # Variants
//
// Reactive and Readonly wrap nested objects on read, with the same
// readonly-ness. ShallowReactive and ShallowReadonly only intercept the top
// level. Readonly wrappers never track and reject writes with a
// *ReadonlyError; the target is left unchanged.
//
// # Scheduling
//
// Notification is synchronous. Subscribers of a key are notified in the
// order they last subscribed. An effect created WithScheduler is handed
// to its scheduler instead of being re-run, which is how callers batch or
// defer work.
//
// # Thread Safety
//
// The dependency graph is guarded by a mutex and the tracking state is kept
// per goroutine, so wrappers may be used from several goroutines. The
// underlying targets are plain Go values and are not synchronized: writes to
// one target from several goroutines need external locking.
//
// # Graph lifetime
//
// Graph entries and cached wrappers for a target live until Release is
// called for it. Long-lived processes should release targets they no longer
// use.
package reactive
