package process

import (
	"fmt"
)

// Address represents a memory address within a process
type Address uint64

// NULL is the zero address
const NULL Address = 0

func (a Address) ToString() string {
	return fmt.Sprintf("0x%X", uint64(a))
}

func (a Address) String() string {
	return a.ToString()
}

// IsNull reports whether the address is zero
func (a Address) IsNull() bool {
	return a == NULL
}

// Add returns the address advanced by n bytes
func (a Address) Add(n uint64) Address {
	return a + Address(n)
}

// AddSigned returns the address moved by a signed displacement
func (a Address) AddSigned(n int64) Address {
	return Address(int64(a) + n)
}

// ProcessMemorySize represents a size of memory region
type ProcessMemorySize uint

func (pms ProcessMemorySize) ToString() string {
	return fmt.Sprintf("%d bytes", uint(pms))
}

// Address16 is a pointer stored by a 16-bit target
type Address16 uint16

func (a Address16) Address() Address { return Address(a) }

// Address32 is a pointer stored by a 32-bit target
type Address32 uint32

func (a Address32) Address() Address { return Address(a) }

// Address64 is a pointer stored by a 64-bit target
type Address64 uint64

func (a Address64) Address() Address { return Address(a) }

// PointerSize is the width in bytes of a pointer in the target
type PointerSize uint8

const (
	Bit16 PointerSize = 2
	Bit32 PointerSize = 4
	Bit64 PointerSize = 8
)

func (ps PointerSize) String() string {
	return fmt.Sprintf("%d-bit", int(ps)*8)
}

// Valid reports whether ps is one of the supported widths
func (ps PointerSize) Valid() bool {
	return ps == Bit16 || ps == Bit32 || ps == Bit64
}
