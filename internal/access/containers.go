package access

import (
	"fmt"
	"reflect"
	"sort"
)

// mapAccessor handles maps with string-kinded keys.
type mapAccessor struct {
	rv reflect.Value
}

func (a *mapAccessor) key(key any) (reflect.Value, bool) {
	s, ok := stringKey(key)
	if !ok {
		return reflect.Value{}, false
	}
	return reflect.ValueOf(s).Convert(a.rv.Type().Key()), true
}

func (a *mapAccessor) Get(key any) (any, bool) {
	k, ok := a.key(key)
	if !ok {
		return nil, false
	}
	v := a.rv.MapIndex(k)
	if !v.IsValid() {
		return nil, false
	}
	return v.Interface(), true
}

func (a *mapAccessor) Set(key, value any) error {
	k, ok := a.key(key)
	if !ok {
		return fmt.Errorf("%w: %v for %s", ErrInvalidKey, key, a.rv.Type())
	}
	v, err := assignable(value, a.rv.Type().Elem())
	if err != nil {
		return err
	}
	a.rv.SetMapIndex(k, v)
	return nil
}

func (a *mapAccessor) Delete(key any) (bool, error) {
	k, ok := a.key(key)
	if !ok {
		return false, fmt.Errorf("%w: %v for %s", ErrInvalidKey, key, a.rv.Type())
	}
	if !a.rv.MapIndex(k).IsValid() {
		return false, nil
	}
	a.rv.SetMapIndex(k, reflect.Value{})
	return true, nil
}

func (a *mapAccessor) Has(key any) bool {
	k, ok := a.key(key)
	return ok && a.rv.MapIndex(k).IsValid()
}

func (a *mapAccessor) Keys() []any {
	names := make([]string, 0, a.rv.Len())
	iter := a.rv.MapRange()
	for iter.Next() {
		names = append(names, iter.Key().String())
	}
	sort.Strings(names)
	keys := make([]any, len(names))
	for i, n := range names {
		keys[i] = n
	}
	return keys
}

func (a *mapAccessor) Len() int    { return a.rv.Len() }
func (a *mapAccessor) Target() any { return a.rv.Interface() }

// sliceAccessor handles slices and pointers to slices. Only the pointer
// form can grow.
type sliceAccessor struct {
	target any
	rv     reflect.Value // set for plain slices
	ptr    reflect.Value // set for pointers to slices
}

func (a *sliceAccessor) slice() reflect.Value {
	if a.ptr.IsValid() {
		return a.ptr.Elem()
	}
	return a.rv
}

func (a *sliceAccessor) Get(key any) (any, bool) {
	i, ok := intKey(key)
	s := a.slice()
	if !ok || i < 0 || i >= s.Len() {
		return nil, false
	}
	return s.Index(i).Interface(), true
}

func (a *sliceAccessor) Set(key, value any) error {
	i, ok := intKey(key)
	if !ok {
		return fmt.Errorf("%w: %v for %s", ErrInvalidKey, key, a.slice().Type())
	}
	s := a.slice()
	v, err := assignable(value, s.Type().Elem())
	if err != nil {
		return err
	}
	switch {
	case i >= 0 && i < s.Len():
		s.Index(i).Set(v)
	case i == s.Len() && a.ptr.IsValid():
		a.ptr.Elem().Set(reflect.Append(s, v))
	default:
		return fmt.Errorf("%w: %d (len %d)", ErrOutOfRange, i, s.Len())
	}
	return nil
}

func (a *sliceAccessor) Delete(key any) (bool, error) {
	return false, fmt.Errorf("%w: delete on %s", ErrUnsupported, a.slice().Type())
}

func (a *sliceAccessor) Has(key any) bool {
	i, ok := intKey(key)
	return ok && i >= 0 && i < a.slice().Len()
}

func (a *sliceAccessor) Keys() []any {
	n := a.slice().Len()
	keys := make([]any, n)
	for i := range keys {
		keys[i] = i
	}
	return keys
}

func (a *sliceAccessor) Len() int    { return a.slice().Len() }
func (a *sliceAccessor) Target() any { return a.target }

// structAccessor handles pointers to structs. Only exported fields are
// visible.
type structAccessor struct {
	rv reflect.Value
}

func (a *structAccessor) field(key any) (reflect.Value, bool) {
	name, ok := stringKey(key)
	if !ok {
		return reflect.Value{}, false
	}
	sf, ok := a.rv.Elem().Type().FieldByName(name)
	if !ok || !sf.IsExported() {
		return reflect.Value{}, false
	}
	f, err := a.rv.Elem().FieldByIndexErr(sf.Index)
	if err != nil || !f.CanInterface() {
		return reflect.Value{}, false
	}
	return f, true
}

func (a *structAccessor) Get(key any) (any, bool) {
	f, ok := a.field(key)
	if !ok {
		return nil, false
	}
	return f.Interface(), true
}

func (a *structAccessor) Set(key, value any) error {
	f, ok := a.field(key)
	if !ok || !f.CanSet() {
		return fmt.Errorf("%w: %v for %s", ErrInvalidKey, key, a.rv.Type())
	}
	v, err := assignable(value, f.Type())
	if err != nil {
		return err
	}
	f.Set(v)
	return nil
}

func (a *structAccessor) Delete(key any) (bool, error) {
	return false, fmt.Errorf("%w: delete on %s", ErrUnsupported, a.rv.Type())
}

func (a *structAccessor) Has(key any) bool {
	_, ok := a.field(key)
	return ok
}

func (a *structAccessor) Keys() []any {
	t := a.rv.Elem().Type()
	keys := make([]any, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		if sf := t.Field(i); sf.IsExported() {
			keys = append(keys, sf.Name)
		}
	}
	return keys
}

func (a *structAccessor) Len() int    { return len(a.Keys()) }
func (a *structAccessor) Target() any { return a.rv.Interface() }
