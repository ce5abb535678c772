package store

import "fmt"

// ErrKeyNotFound is returned when a key is not found in the store.
type ErrKeyNotFound struct {
	Key string
}

func (e *ErrKeyNotFound) Error() string {
	return fmt.Sprintf("key not found: %s", e.Key)
}

// ErrCASFailed is returned when a compare-and-swap finds a different
// current value than the caller observed.
type ErrCASFailed struct {
	Key string
}

func (e *ErrCASFailed) Error() string {
	return fmt.Sprintf("compare-and-swap failed for key: %s", e.Key)
}

// ErrInternal is returned when the underlying store fails.
type ErrInternal struct {
	Err error
}

func (e *ErrInternal) Error() string {
	return fmt.Sprintf("internal store error: %v", e.Err)
}

func (e *ErrInternal) Unwrap() error {
	return e.Err
}
