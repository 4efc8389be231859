package process

import (
	"fmt"
)

// PointerPath describes how to walk from an anchor to a value: every offset
// but the last is added to the current address and dereferenced as a pointer
// of width Size; the last offset is added to the final pointer.
type PointerPath struct {
	Base    Address
	Size    PointerSize
	Endian  Endian
	Offsets []int64
}

// NewPointerPath builds a little-endian pointer path
func NewPointerPath(base Address, size PointerSize, offsets ...int64) PointerPath {
	return PointerPath{Base: base, Size: size, Offsets: offsets}
}

// Deref walks the path and returns the address of the final value
func (pp PointerPath) Deref(proc Process) (Address, error) {
	return derefOffsets(proc, pp.Base, pp.Size, pp.Endian, pp.Offsets)
}

// Resolve walks the path and reads a T at its end using the path's byte order
func Resolve[T any](proc Process, pp PointerPath) (T, error) {
	addr, err := pp.Deref(proc)
	if err != nil {
		var zero T
		return zero, err
	}

	val, err := ReadEndian[T](proc, addr, pp.Endian)
	if err != nil {
		return val, fmt.Errorf("failed to read final value at %s: %w", addr, err)
	}
	return val, nil
}

// DerefOffsets walks base through offsets with host byte order and returns
// the final address. With no offsets it returns base.
func DerefOffsets(proc Process, base Address, size PointerSize, offsets ...int64) (Address, error) {
	return derefOffsets(proc, base, size, Little, offsets)
}

// ReadPointerPath reads a value of type T at the end of a pointer path.
// It starts at base, adds the first offset, reads a pointer, adds the next offset, reads a pointer, etc.
// The last offset is added to the final pointer, and then T is read from that address.
func ReadPointerPath[T any](proc Process, base Address, size PointerSize, offsets ...int64) (T, error) {
	return Resolve[T](proc, PointerPath{Base: base, Size: size, Offsets: offsets})
}

func derefOffsets(proc Process, base Address, size PointerSize, endian Endian, offsets []int64) (Address, error) {
	if !size.Valid() {
		return NULL, fmt.Errorf("pointer size %d: %w", size, ErrInvalidPointer)
	}

	currentAddr := base
	if len(offsets) == 0 {
		return currentAddr, nil
	}

	for i := 0; i < len(offsets)-1; i++ {
		ptrAddr := currentAddr.AddSigned(offsets[i])

		ptrVal, err := ReadPointerEndian(proc, ptrAddr, size, endian)
		if err != nil {
			return NULL, fmt.Errorf("failed to read pointer at offset %d (addr %s): %w", i, ptrAddr, err)
		}

		if ptrVal.IsNull() {
			return NULL, fmt.Errorf("pointer at offset %d (addr %s): %w", i, ptrAddr, ErrNullPointer)
		}

		currentAddr = ptrVal
	}

	return currentAddr.AddSigned(offsets[len(offsets)-1]), nil
}
