// Package access provides uniform keyed access to plain Go data.
//
// Reactive wrappers never touch a target's fields directly. They go through
// an Accessor, which knows how to read and write one kind of container:
//
//   - maps with string-kinded keys, keyed by string
//   - slices, keyed by int index (element writes happen in place)
//   - pointers to slices, keyed by int index; writing at len appends
//   - pointers to structs, keyed by exported field name
//
// Identity returns the reference identity of such a value, which is what the
// dependency graph is keyed by. Two distinct maps with equal contents have
// different identities; two copies of the same map header share one. A
// subslice is a different target from the slice it was cut from.
package access

import (
	"errors"
	"fmt"
	"reflect"
	"unsafe"
)

var (
	// ErrNotObject is returned for values that are not maps, slices or
	// pointers to structs or slices.
	ErrNotObject = errors.New("access: value is not an object")

	// ErrInvalidKey is returned when a key has the wrong kind for the container.
	ErrInvalidKey = errors.New("access: invalid key")

	// ErrTypeMismatch is returned when a value cannot be stored in the container.
	ErrTypeMismatch = errors.New("access: value type mismatch")

	// ErrOutOfRange is returned for slice writes past the end.
	ErrOutOfRange = errors.New("access: index out of range")

	// ErrUnsupported is returned for operations a container cannot perform,
	// such as deleting a struct field.
	ErrUnsupported = errors.New("access: unsupported operation")
)

// Accessor reads and writes one container by key.
type Accessor interface {
	// Get returns the value stored at key and whether it was present.
	Get(key any) (any, bool)

	// Set stores value at key.
	Set(key, value any) error

	// Delete removes key. It reports whether a value was removed.
	Delete(key any) (bool, error)

	// Has reports whether key is present.
	Has(key any) bool

	// Keys returns the container's keys. Map keys are sorted.
	Keys() []any

	// Len returns the number of keys.
	Len() int

	// Target returns the container this accessor was created for.
	Target() any
}

// ID is the reference identity of an object. A plain slice is a window
// onto its backing array, so its length and capacity are part of it.
type ID struct {
	ptr unsafe.Pointer
	typ reflect.Type
	len int
	cap int
}

// String formats the identity for diagnostics.
func (id ID) String() string {
	if id.typ == nil {
		return "<nil>"
	}
	if id.typ.Kind() == reflect.Slice {
		return fmt.Sprintf("%s@%p[%d:%d]", id.typ, id.ptr, id.len, id.cap)
	}
	return fmt.Sprintf("%s@%p", id.typ, id.ptr)
}

// IsZero reports whether id is the zero identity.
func (id ID) IsZero() bool {
	return id.typ == nil
}

// Shared reports whether id may belong to several unrelated values. Empty
// plain slices with no capacity all point at the same address.
func (id ID) Shared() bool {
	return id.typ != nil && id.typ.Kind() == reflect.Slice && id.cap == 0
}

// IsObject reports whether v is a container For can handle.
func IsObject(v any) bool {
	if v == nil {
		return false
	}
	return isObjectValue(reflect.ValueOf(v))
}

func isObjectValue(rv reflect.Value) bool {
	switch rv.Kind() {
	case reflect.Map:
		return !rv.IsNil() && rv.Type().Key().Kind() == reflect.String
	case reflect.Slice:
		return !rv.IsNil()
	case reflect.Pointer:
		if rv.IsNil() {
			return false
		}
		switch rv.Elem().Kind() {
		case reflect.Struct, reflect.Slice:
			return true
		}
	}
	return false
}

// Identity returns the reference identity of an object.
func Identity(v any) (ID, bool) {
	if !IsObject(v) {
		return ID{}, false
	}
	rv := reflect.ValueOf(v)
	id := ID{ptr: rv.UnsafePointer(), typ: rv.Type()}
	if rv.Kind() == reflect.Slice {
		id.len, id.cap = rv.Len(), rv.Cap()
	}
	return id, true
}

// For returns an Accessor for v.
func For(v any) (Accessor, error) {
	if !IsObject(v) {
		return nil, fmt.Errorf("%w: %T", ErrNotObject, v)
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		return &mapAccessor{rv: rv}, nil
	case reflect.Slice:
		return &sliceAccessor{target: v, rv: rv}, nil
	default:
		if rv.Elem().Kind() == reflect.Slice {
			return &sliceAccessor{target: v, ptr: rv}, nil
		}
		return &structAccessor{rv: rv}, nil
	}
}

// assignable converts value to typ, mapping nil to the zero value.
func assignable(value any, typ reflect.Type) (reflect.Value, error) {
	if value == nil {
		return reflect.Zero(typ), nil
	}
	vv := reflect.ValueOf(value)
	if vv.Type().AssignableTo(typ) {
		return vv, nil
	}
	return reflect.Value{}, fmt.Errorf("%w: cannot use %T as %s", ErrTypeMismatch, value, typ)
}

// stringKey converts key to a string when it has string kind.
func stringKey(key any) (string, bool) {
	if key == nil {
		return "", false
	}
	if s, ok := key.(string); ok {
		return s, true
	}
	kv := reflect.ValueOf(key)
	if kv.Kind() != reflect.String {
		return "", false
	}
	return kv.String(), true
}

// intKey converts key to an int when it has an integer kind.
func intKey(key any) (int, bool) {
	if key == nil {
		return 0, false
	}
	if i, ok := key.(int); ok {
		return i, true
	}
	kv := reflect.ValueOf(key)
	switch kv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(kv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int(kv.Uint()), true
	}
	return 0, false
}

// NormalizeKey maps string-kinded and integer-kinded keys onto string and
// int, so that keys of named types address the same slot. Keys that cannot
// be map keys are reported as invalid.
func NormalizeKey(key any) (any, bool) {
	if s, ok := stringKey(key); ok {
		return s, true
	}
	if i, ok := intKey(key); ok {
		return i, true
	}
	if key == nil || !reflect.TypeOf(key).Comparable() {
		return nil, false
	}
	return key, true
}
