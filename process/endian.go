package process

import (
	"encoding/binary"
	"math/bits"

	"golang.org/x/exp/constraints"
)

// Endian is the byte order of the CPU that owns a value
type Endian uint8

const (
	Little Endian = iota
	Big
)

func (e Endian) String() string {
	if e == Big {
		return "big"
	}
	return "little"
}

// Order returns the matching encoding/binary byte order
func (e Endian) Order() binary.ByteOrder {
	if e == Big {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// FromEndian converts a value that was decoded as little-endian into the
// value the target CPU meant, given that CPU's byte order.
func FromEndian[T constraints.Integer](v T, e Endian) T {
	if e == Little {
		return v
	}
	switch sizeOf(v) {
	case 2:
		return T(bits.ReverseBytes16(uint16(v)))
	case 4:
		return T(bits.ReverseBytes32(uint32(v)))
	case 8:
		return T(bits.ReverseBytes64(uint64(v)))
	}
	return v
}

func sizeOf[T any](v T) int {
	return binary.Size(v)
}
