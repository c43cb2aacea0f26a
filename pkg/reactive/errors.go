package reactive

import (
	"errors"
	"fmt"

	"github.com/vango-dev/reactive/internal/access"
)

// ErrReadonly is matched by every error returned for a write through a
// readonly wrapper.
var ErrReadonly = errors.New("reactive: target is readonly")

// ErrComputedReadonly is returned when writing a Computed created from a
// getter alone.
var ErrComputedReadonly = errors.New("reactive: computed value is readonly")

// ErrNotObject is returned by TryWrap for values that cannot be wrapped:
// anything other than maps with string keys, slices, and pointers to structs
// or slices.
var ErrNotObject = access.ErrNotObject

// ReadonlyError reports a write rejected by a readonly wrapper. The
// underlying target is unchanged.
type ReadonlyError struct {
	// Op is the rejected operation: OpSet or OpDelete.
	Op OpType

	// Key is the key the write addressed.
	Key any

	// Value is the value that was not stored. It is nil for deletes.
	Value any
}

// Error implements the error interface.
func (e *ReadonlyError) Error() string {
	if e.Op == OpDelete {
		return fmt.Sprintf("reactive: cannot delete key %v: target is readonly", e.Key)
	}
	return fmt.Sprintf("reactive: cannot set key %v to %v: target is readonly", e.Key, e.Value)
}

// Unwrap returns ErrReadonly.
func (e *ReadonlyError) Unwrap() error {
	return ErrReadonly
}

// Code returns the diagnostic code logged for this error.
func (e *ReadonlyError) Code() string {
	return "E101"
}
