package reactive

import (
	"fmt"
	"sync"

	"github.com/vango-dev/reactive/internal/access"
	rerrors "github.com/vango-dev/reactive/internal/errors"
)

type wrapperKey struct {
	id      access.ID
	variant Variant
}

// wrappers caches one wrapper per (target identity, variant), so wrapping
// the same target twice returns the same *Proxy.
var (
	wrappersMu sync.Mutex
	wrappers   = make(map[wrapperKey]*Proxy)
)

// forgetWrappers drops every cached wrapper whose raw target is id,
// including wrappers nested over those wrappers.
func forgetWrappers(id access.ID) {
	wrappersMu.Lock()
	defer wrappersMu.Unlock()
	for k, p := range wrappers {
		if k.id == id || p.rootID() == id {
			delete(wrappers, k)
		}
	}
}

// rootID returns the identity of the innermost target.
func (p *Proxy) rootID() access.ID {
	for p.inner != nil {
		p = p.inner
	}
	return p.id
}

// isObject reports whether v is something a deep wrapper wraps on read.
// Wrappers count; refs, computeds and other Object implementations do not.
func isObject(v any) bool {
	switch v.(type) {
	case *Proxy:
		return true
	case refLike, Object:
		return false
	}
	return access.IsObject(v)
}

// TryWrap returns the wrapper of the given variant for target. It returns
// ErrNotObject if target cannot be wrapped.
//
// Wrapping a wrapper returns it unchanged, unless a readonly variant is
// requested for a mutable wrapper; the result then wraps the wrapper.
func TryWrap(target any, variant Variant) (*Proxy, error) {
	if p, ok := target.(*Proxy); ok {
		if !(variant.readonly() && IsReactive(p)) {
			return p, nil
		}
		return cachedWrapper(p, variant, func(id access.ID) *Proxy {
			return &Proxy{target: p, inner: p, id: id, variant: variant}
		}), nil
	}
	if !isObject(target) {
		return nil, fmt.Errorf("%w: %T", ErrNotObject, target)
	}

	acc, err := access.For(target)
	if err != nil {
		return nil, err
	}
	return cachedWrapper(target, variant, func(id access.ID) *Proxy {
		return &Proxy{target: target, acc: acc, id: id, variant: variant}
	}), nil
}

func cachedWrapper(target any, variant Variant, create func(access.ID) *Proxy) *Proxy {
	id, _ := access.Identity(target)
	if id.Shared() {
		return create(id)
	}
	k := wrapperKey{id: id, variant: variant}

	wrappersMu.Lock()
	defer wrappersMu.Unlock()
	if p, ok := wrappers[k]; ok {
		return p
	}
	p := create(id)
	wrappers[k] = p
	return p
}

// Wrap is TryWrap for targets known to be objects. It panics with a coded
// error if target cannot be wrapped.
func Wrap(target any, variant Variant) *Proxy {
	p, err := TryWrap(target, variant)
	if err != nil {
		panic(rerrors.New("E103").
			WithDetail(fmt.Sprintf("%T cannot be made %s.", target, variant)).
			Wrap(err))
	}
	return p
}

// Reactive returns a deep mutable wrapper for target. Reads inside an effect
// are tracked, writes notify, and nested objects are wrapped on read.
//
// Example:
//
//	state := reactive.Reactive(map[string]any{"user": map[string]any{"name": "ada"}})
//	user := state.Get("user").(*reactive.Proxy) // wrapped on read
//	user.Set("name", "grace")                   // notifies readers of user.name
func Reactive(target any) *Proxy {
	return Wrap(target, VariantReactive)
}

// Readonly returns a deep readonly wrapper for target. Writes are rejected
// and nested objects are returned readonly.
func Readonly(target any) *Proxy {
	return Wrap(target, VariantReadonly)
}

// ShallowReactive returns a wrapper that tracks and notifies on the top
// level only. Nested objects are returned raw.
func ShallowReactive(target any) *Proxy {
	return Wrap(target, VariantShallowReactive)
}

// ShallowReadonly returns a wrapper that rejects top-level writes. Nested
// objects are returned raw and remain writable.
func ShallowReadonly(target any) *Proxy {
	return Wrap(target, VariantShallowReadonly)
}

func readFlag(v any, f Flag) bool {
	o, ok := v.(Object)
	if !ok {
		return false
	}
	b, _ := o.Get(f).(bool)
	return b
}

// IsReactive reports whether v is a mutable wrapper, or a readonly wrapper
// over one.
func IsReactive(v any) bool {
	return readFlag(v, FlagIsReactive)
}

// IsReadonly reports whether v is a readonly wrapper.
func IsReadonly(v any) bool {
	return readFlag(v, FlagIsReadonly)
}

// IsShallow reports whether v is a shallow wrapper.
func IsShallow(v any) bool {
	return readFlag(v, FlagIsShallow)
}

// IsProxy reports whether v is any kind of wrapper.
func IsProxy(v any) bool {
	return IsReactive(v) || IsReadonly(v)
}

// ToRaw returns the plain target behind v, unwinding nested wrappers.
// Values that are not wrappers are returned unchanged.
func ToRaw(v any) any {
	o, ok := v.(Object)
	if !ok {
		return v
	}
	if raw := o.Get(FlagRaw); raw != nil {
		return ToRaw(raw)
	}
	return v
}
