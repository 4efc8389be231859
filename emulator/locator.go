// Package emulator holds the locate/keep-alive contract shared by every
// emulator backend, the session state machine that drives it and the helpers
// backends build their discovery from.
package emulator

import (
	"errors"

	"emuram/process"
)

var (
	// ErrNotAttached is returned when RAM is read before discovery succeeded
	ErrNotAttached = errors.New("emulator RAM not located")

	// ErrAddressOutOfRange is returned for console addresses outside every mapped RAM region
	ErrAddressOutOfRange = errors.New("address outside emulated RAM")
)

// Locator is implemented by one backend per emulator build. R is the shape
// of the located RAM: a single address, a pair, or a pair with endianness.
type Locator[R any] interface {
	// FindRAM runs discovery. On failure it returns false and leaves the
	// locator's anchors untouched.
	FindRAM(p process.Process) (R, bool)

	// KeepAlive re-validates the anchors stored by FindRAM and may refresh
	// ram. It returns false when ram must be dropped, and always returns
	// false before the first successful FindRAM.
	KeepAlive(p process.Process, ram *R) bool
}

// Target is the family-independent view of an attached emulator
type Target interface {
	Update() bool
	IsOpen() bool
	State() State
	Describe() string
	Process() process.Process
}
