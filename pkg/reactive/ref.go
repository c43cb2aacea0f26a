package reactive

import (
	"fmt"
	"sync"

	"github.com/vango-dev/reactive/internal/access"
	rerrors "github.com/vango-dev/reactive/internal/errors"
)

// refLike is implemented by Ref and Computed.
type refLike interface {
	refValue() any
	setRefValue(v any) error
}

// Ref is a reactive cell holding a single value of any type.
//
// Reading Value inside an effect subscribes the effect to the Ref. Setting a
// different value notifies every subscriber. Object values are stored raw and
// handed out deep-reactive, so reads of their fields are tracked too.
//
// Ref is safe for concurrent use.
type Ref struct {
	mu    sync.Mutex
	raw   any
	value any
	dep   *Dep
}

// NewRef creates a Ref holding v. If v is already a Ref it is returned as is.
//
// Example:
//
//	count := reactive.NewRef(1)
//	var double int
//	reactive.Effect(func() {
//	    double = count.Value().(int) * 2
//	})
//	count.SetValue(5) // double == 10
func NewRef(v any) *Ref {
	if r, ok := v.(*Ref); ok {
		return r
	}
	raw := ToRaw(v)
	return &Ref{
		raw:   raw,
		value: toReactive(raw),
		dep:   newDep(fmt.Sprintf("ref#%d", nextID()), "value"),
	}
}

// toReactive deep-wraps objects and passes everything else through.
func toReactive(v any) any {
	if isObject(v) {
		return Reactive(v)
	}
	return v
}

// Value returns the current value and, inside an effect, subscribes the
// effect to the Ref.
func (r *Ref) Value() any {
	trackEffects(lookupTrackingContext(), r.dep, OpGet)
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.value
}

// Peek returns the current value without subscribing.
func (r *Ref) Peek() any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.value
}

// SetValue stores v and notifies subscribers. Setting a value equal to the
// current one does nothing.
func (r *Ref) SetValue(v any) {
	raw := ToRaw(v)

	r.mu.Lock()
	if !hasChanged(raw, r.raw) {
		r.mu.Unlock()
		return
	}
	r.raw = raw
	r.value = toReactive(raw)
	r.mu.Unlock()

	triggerEffects(r.dep, OpSet)
}

// Dep returns the Ref's dependency set.
func (r *Ref) Dep() *Dep {
	return r.dep
}

func (r *Ref) refValue() any { return r.Value() }

func (r *Ref) setRefValue(v any) error {
	r.SetValue(v)
	return nil
}

// TriggerRef notifies the subscribers of r without changing its value.
// Use it after mutating a value stored in a Ref behind its back.
func TriggerRef(r *Ref) {
	triggerEffects(r.dep, OpSet)
}

// IsRef reports whether v is a Ref or a Computed.
func IsRef(v any) bool {
	_, ok := v.(refLike)
	return ok
}

// Unref returns the value held by v if v is a Ref or a Computed, and v
// itself otherwise.
func Unref(v any) any {
	if r, ok := v.(refLike); ok {
		return r.refValue()
	}
	return v
}

// RefProxy gives keyed access to an object whose values may be refs.
// Reads return the value inside a stored ref; writing a plain value into a
// slot holding a ref writes through into the ref. Writing a ref replaces
// the slot.
type RefProxy struct {
	obj Object
}

// ProxyRefs returns a RefProxy over obj. A reactive wrapper is returned
// unchanged. It panics with a coded error if obj is not an object.
//
// Example:
//
//	user := map[string]any{"age": reactive.NewRef(10), "name": "jojo"}
//	p := reactive.ProxyRefs(user)
//	p.Get("age")     // 10
//	p.Set("age", 20) // user["age"].(*reactive.Ref).Value() == 20
func ProxyRefs(obj any) Object {
	if IsReactive(obj) {
		return obj.(Object)
	}
	if o, ok := obj.(Object); ok {
		return &RefProxy{obj: o}
	}
	acc, err := access.For(obj)
	if err != nil {
		panic(rerrors.New("E103").
			WithDetail(fmt.Sprintf("%T cannot be proxied.", obj)).
			Wrap(err))
	}
	return &RefProxy{obj: rawObject{acc: acc}}
}

// Get returns obj[key], unwrapping a stored ref.
func (p *RefProxy) Get(key any) any {
	return Unref(p.obj.Get(key))
}

// Set writes value to obj[key], or into the ref stored there.
func (p *RefProxy) Set(key, value any) error {
	if old, ok := p.obj.Get(key).(refLike); ok && !IsRef(value) {
		return old.setRefValue(value)
	}
	return p.obj.Set(key, value)
}

// rawObject adapts a plain target to Object without any tracking.
type rawObject struct {
	acc access.Accessor
}

func (o rawObject) Get(key any) any {
	if _, ok := key.(Flag); ok {
		return nil
	}
	v, _ := o.acc.Get(key)
	return v
}

func (o rawObject) Set(key, value any) error {
	return o.acc.Set(key, value)
}
