// Package process provides the address primitives, the Process interface and
// typed, width-aware reads over it.
package process

import "errors"

var (
	// ErrAddressNotMapped is returned when a memory address is not found within any mapped region of a process.
	ErrAddressNotMapped = errors.New("address not mapped")

	// ErrProcessNotOpen is returned when an operation requiring an open process is attempted
	// before the process has been successfully opened or after it has been closed.
	ErrProcessNotOpen = errors.New("process not open")

	ErrInvalidPointer = errors.New("invalid pointer read")

	// ErrNullPointer is returned when a pointer path hits a zero pointer before its last step.
	ErrNullPointer = errors.New("null pointer")

	ErrModuleNotFound = errors.New("module not found")

	ErrShortRead = errors.New("short read")

	ErrProcessNotFound = errors.New("process not found")
)
