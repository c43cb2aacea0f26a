package reactive

import (
	"github.com/vango-dev/reactive/internal/access"
)

// Flag is the type of the reserved sentinel keys. Reading a sentinel key
// through Get answers a question about the wrapper itself instead of
// reading the target. Plain values never answer them, which is how
// IsReactive and friends tell wrappers apart from ordinary data.
type Flag int

const (
	// FlagIsReactive reads as true on mutable wrappers.
	FlagIsReactive Flag = iota + 1
	// FlagIsReadonly reads as true on readonly wrappers.
	FlagIsReadonly
	// FlagIsShallow reads as true on shallow wrappers.
	FlagIsShallow
	// FlagRaw reads as the wrapped target.
	FlagRaw
)

// Object is keyed get/set access. Wrappers and the result of ProxyRefs
// implement it.
type Object interface {
	Get(key any) any
	Set(key, value any) error
}

// Variant selects a wrapper's behaviour along two axes: deep or shallow, and
// mutable or readonly.
type Variant uint8

const (
	// VariantReactive tracks reads, triggers on writes, and wraps nested
	// objects on read.
	VariantReactive Variant = iota
	// VariantReadonly rejects writes, does not track, and wraps nested
	// objects readonly on read.
	VariantReadonly
	// VariantShallowReactive tracks and triggers on the top level only;
	// nested objects are returned raw.
	VariantShallowReactive
	// VariantShallowReadonly rejects top-level writes; nested objects are
	// returned raw and stay writable.
	VariantShallowReadonly
)

func (v Variant) readonly() bool {
	return v == VariantReadonly || v == VariantShallowReadonly
}

func (v Variant) shallow() bool {
	return v == VariantShallowReactive || v == VariantShallowReadonly
}

// String returns the variant name.
func (v Variant) String() string {
	switch v {
	case VariantReactive:
		return "reactive"
	case VariantReadonly:
		return "readonly"
	case VariantShallowReactive:
		return "shallowReactive"
	case VariantShallowReadonly:
		return "shallowReadonly"
	}
	return "unknown"
}

// Proxy is a wrapper over a target. It reads and writes the target through
// Get and Set, and hooks those accesses into the dependency graph according
// to its Variant.
//
// A Proxy may wrap another Proxy, as in Readonly(Reactive(x)); it then
// delegates every access to the inner wrapper, which does the tracking.
type Proxy struct {
	target  any
	acc     access.Accessor
	inner   *Proxy
	id      access.ID
	variant Variant
}

// Variant returns the wrapper's variant.
func (p *Proxy) Variant() Variant {
	return p.variant
}

// Raw returns the innermost plain target.
func (p *Proxy) Raw() any {
	return ToRaw(p)
}

// Get reads target[key]. Sentinel keys answer for the wrapper. Other reads
// are tracked unless the wrapper is readonly, and object values are wrapped
// on the way out unless the wrapper is shallow. A missing key reads as nil.
func (p *Proxy) Get(key any) any {
	switch key {
	case FlagIsReactive:
		if p.variant.readonly() {
			return p.inner != nil && IsReactive(p.inner)
		}
		return true
	case FlagIsReadonly:
		return p.variant.readonly()
	case FlagIsShallow:
		return p.variant.shallow()
	case FlagRaw:
		return p.target
	}

	var res any
	if p.inner != nil {
		res = p.inner.Get(key)
	} else {
		if !p.variant.readonly() {
			if k, ok := access.NormalizeKey(key); ok {
				track(lookupTrackingContext(), p.id, k, OpGet)
			}
		}
		res, _ = p.acc.Get(key)
	}

	if p.variant.shallow() {
		return res
	}
	if isObject(res) {
		if p.variant.readonly() {
			return Readonly(res)
		}
		return Reactive(res)
	}
	return res
}

// Set writes value to target[key] and notifies dependents of key. Writing a
// value equal to the current one does nothing. Wrappers in value are stored
// as their raw targets.
//
// On a readonly wrapper the target is left unchanged, a warning is logged,
// and a *ReadonlyError is returned.
func (p *Proxy) Set(key, value any) error {
	if p.variant.readonly() {
		return p.reject(OpSet, key, value)
	}
	if !p.variant.shallow() {
		value = ToRaw(value)
	}
	if p.inner != nil {
		return p.inner.Set(key, value)
	}

	old, had := p.acc.Get(key)
	if had && !hasChanged(old, value) {
		return nil
	}
	if err := p.acc.Set(key, value); err != nil {
		return err
	}

	k, ok := access.NormalizeKey(key)
	if !ok {
		return nil
	}
	if had {
		trigger(p.id, k, OpSet)
	} else {
		trigger(p.id, k, OpAdd)
		trigger(p.id, iterateKey, OpAdd)
	}
	return nil
}

// Delete removes key from the target and notifies dependents of key and of
// the key set. It reports whether a value was removed.
func (p *Proxy) Delete(key any) (bool, error) {
	if p.variant.readonly() {
		return false, p.reject(OpDelete, key, nil)
	}
	if p.inner != nil {
		return p.inner.Delete(key)
	}

	removed, err := p.acc.Delete(key)
	if err != nil || !removed {
		return false, err
	}
	if k, ok := access.NormalizeKey(key); ok {
		trigger(p.id, k, OpDelete)
	}
	trigger(p.id, iterateKey, OpDelete)
	return true, nil
}

// Has reports whether key is present. The check is tracked, so adding the
// key later notifies the reader.
func (p *Proxy) Has(key any) bool {
	if p.inner != nil {
		return p.inner.Has(key)
	}
	if !p.variant.readonly() {
		if k, ok := access.NormalizeKey(key); ok {
			track(lookupTrackingContext(), p.id, k, OpHas)
		}
	}
	return p.acc.Has(key)
}

// Keys returns the target's keys. The read depends on the key set, so
// adding or removing a key notifies the reader.
func (p *Proxy) Keys() []any {
	if p.inner != nil {
		return p.inner.Keys()
	}
	if !p.variant.readonly() {
		track(lookupTrackingContext(), p.id, iterateKey, OpIterate)
	}
	return p.acc.Keys()
}

// Len returns the number of keys, tracked like Keys.
func (p *Proxy) Len() int {
	if p.inner != nil {
		return p.inner.Len()
	}
	if !p.variant.readonly() {
		track(lookupTrackingContext(), p.id, iterateKey, OpIterate)
	}
	return p.acc.Len()
}

func (p *Proxy) reject(op OpType, key, value any) error {
	err := &ReadonlyError{Op: op, Key: key, Value: value}
	logger().Warn("reactive: write on readonly target",
		"code", err.Code(),
		"op", string(op),
		"target", p.id.String(),
		"key", key,
		"value", value)
	currentInstrumentation().WriteRejected(key)
	return err
}
