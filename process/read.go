package process

import (
	"encoding/binary"
	"fmt"
)

// Read reads a single fixed-size value of type T at addr, decoded in host
// (little-endian) byte order. Use it for pointers and values owned by the
// emulator process itself.
func Read[T any](proc Process, addr Address) (T, error) {
	return ReadEndian[T](proc, addr, Little)
}

// ReadEndian reads a fixed-size value of type T at addr, decoded with the
// given byte order. Use it for values inside emulated RAM.
func ReadEndian[T any](proc Process, addr Address, endian Endian) (T, error) {
	var t T
	size := binary.Size(t)
	if size < 0 {
		return t, fmt.Errorf("read %T: type has no fixed size", t)
	}
	if size == 0 {
		return t, nil
	}

	data, err := proc.ReadMemory(addr, ProcessMemorySize(size))
	if err != nil {
		return t, err
	}
	if len(data) < size {
		return t, fmt.Errorf("read %d bytes at %s: %w", size, addr, ErrShortRead)
	}

	if _, err := binary.Decode(data, endian.Order(), &t); err != nil {
		return t, fmt.Errorf("decode %T at %s: %w", t, addr, err)
	}
	return t, nil
}

// ReadPointer reads a host pointer of the given width
func ReadPointer(proc Process, addr Address, size PointerSize) (Address, error) {
	return ReadPointerEndian(proc, addr, size, Little)
}

// ReadPointerEndian reads a pointer of the given width and byte order
func ReadPointerEndian(proc Process, addr Address, size PointerSize, endian Endian) (Address, error) {
	switch size {
	case Bit16:
		v, err := ReadEndian[Address16](proc, addr, endian)
		return v.Address(), err
	case Bit32:
		v, err := ReadEndian[Address32](proc, addr, endian)
		return v.Address(), err
	case Bit64:
		v, err := ReadEndian[Address64](proc, addr, endian)
		return v.Address(), err
	}
	return NULL, fmt.Errorf("pointer size %d: %w", size, ErrInvalidPointer)
}

// ReadCString reads a NUL-terminated string of at most maxLength bytes
func ReadCString(proc Process, addr Address, maxLength ProcessMemorySize) (string, error) {
	data, err := proc.ReadMemory(addr, maxLength)
	if err != nil {
		return "", err
	}
	for i, b := range data {
		if b == 0 {
			return string(data[:i]), nil
		}
	}
	return string(data), nil
}
