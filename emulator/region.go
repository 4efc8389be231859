package emulator

import (
	"encoding/binary"
	"fmt"
)

// Region is one window of a console's address map. End is exclusive.
type Region struct {
	Name  string
	Start uint32
	End   uint32
}

func (r Region) Contains(offset uint32) bool {
	return offset >= r.Start && offset < r.End
}

// Fits reports whether size bytes starting at offset stay inside the region
func (r Region) Fits(offset uint32, size int) bool {
	return r.Contains(offset) && uint64(offset)+uint64(size) <= uint64(r.End)
}

// AddressMap lists the RAM regions a console exposes to games
type AddressMap []Region

// Lookup returns the index of the region holding offset
func (m AddressMap) Lookup(offset uint32) (int, Region, error) {
	for i, r := range m {
		if r.Contains(offset) {
			return i, r, nil
		}
	}
	return -1, Region{}, fmt.Errorf("0x%x: %w", offset, ErrAddressOutOfRange)
}

// Check is Lookup plus the requirement that a size-byte read fits
func (m AddressMap) Check(offset uint32, size int) (int, Region, error) {
	i, r, err := m.Lookup(offset)
	if err != nil {
		return i, r, err
	}
	if !r.Fits(offset, size) {
		return -1, Region{}, fmt.Errorf("0x%x+%d crosses the end of %s: %w", offset, size, r.Name, ErrAddressOutOfRange)
	}
	return i, r, nil
}

// SizeOf returns the encoded size of T, or -1 when T has no fixed size
func SizeOf[T any]() int {
	var t T
	return binary.Size(t)
}
