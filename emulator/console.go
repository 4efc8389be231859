package emulator

import (
	"fmt"

	"emuram/process"
)

// Console maps a console's bus addresses onto the RAM a Session located.
// Families embed it and add their typed readers.
type Console[R any] struct {
	*Session[R]
	addressMap AddressMap
	base       func(ram R, region int) process.Address
}

// NewConsole wraps s. base returns the host address of the region at the
// given index of m.
func NewConsole[R any](s *Session[R], m AddressMap, base func(ram R, region int) process.Address) *Console[R] {
	return &Console[R]{Session: s, addressMap: m, base: base}
}

func (c *Console[R]) IsOpen() bool {
	return c.Process().IsOpen()
}

// GetAddress converts a bus address to a host address
func (c *Console[R]) GetAddress(offset uint32) (process.Address, error) {
	i, r, err := c.addressMap.Lookup(offset)
	if err != nil {
		return process.NULL, err
	}
	return c.host(i, r, offset)
}

// HostAddress is GetAddress for a read of size bytes, which must not cross
// the end of the region.
func (c *Console[R]) HostAddress(offset uint32, size int) (process.Address, error) {
	i, r, err := c.addressMap.Check(offset, size)
	if err != nil {
		return process.NULL, err
	}
	return c.host(i, r, offset)
}

func (c *Console[R]) host(i int, r Region, offset uint32) (process.Address, error) {
	ram, ok := c.RAM()
	if !ok {
		return process.NULL, ErrNotAttached
	}
	base := c.base(ram, i)
	if base.IsNull() {
		return process.NULL, fmt.Errorf("%s is not mapped yet: %w", r.Name, ErrNotAttached)
	}
	return base.Add(uint64(offset - r.Start)), nil
}

// ReadConsole reads a T at a bus address, decoded with endian
func ReadConsole[T any, R any](c *Console[R], offset uint32, endian process.Endian) (T, error) {
	var zero T
	size := SizeOf[T]()
	if size < 0 {
		return zero, fmt.Errorf("read %T: type has no fixed size", zero)
	}
	addr, err := c.HostAddress(offset, size)
	if err != nil {
		return zero, err
	}
	return process.ReadEndian[T](c.Process(), addr, endian)
}

// DerefConsole follows 32-bit console pointers from base. Every offset but
// the last is dereferenced; the result is the address the last offset
// points at.
func DerefConsole[R any](c *Console[R], base uint32, endian process.Endian, path ...uint32) (uint32, error) {
	if len(path) == 0 {
		return 0, fmt.Errorf("empty pointer path: %w", process.ErrInvalidPointer)
	}
	addr := base
	for _, offset := range path[:len(path)-1] {
		next, err := ReadConsole[uint32](c, addr+offset, endian)
		if err != nil {
			return 0, err
		}
		addr = next
	}
	return addr + path[len(path)-1], nil
}
