package emulator_test

import (
	"errors"
	"testing"

	"emuram/emulator"
)

func TestAddressMapCheck(t *testing.T) {
	m := emulator.AddressMap{
		{Name: "low", Start: 0x1000, End: 0x2000},
		{Name: "high", Start: 0x8000, End: 0x8100},
	}

	tests := []struct {
		offset uint32
		size   int
		index  int
		ok     bool
	}{
		{0x1000, 4, 0, true},
		{0x1ffc, 4, 0, true},
		{0x1ffd, 4, 0, false},
		{0x2000, 1, 0, false},
		{0x80ff, 1, 1, true},
		{0x80ff, 2, 1, false},
		{0x0fff, 1, 0, false},
	}
	for _, tt := range tests {
		i, _, err := m.Check(tt.offset, tt.size)
		if tt.ok {
			if err != nil || i != tt.index {
				t.Errorf("Check(0x%x, %d) = %d, %v", tt.offset, tt.size, i, err)
			}
			continue
		}
		if !errors.Is(err, emulator.ErrAddressOutOfRange) {
			t.Errorf("Check(0x%x, %d) err = %v", tt.offset, tt.size, err)
		}
	}
}

func TestSizeOf(t *testing.T) {
	if emulator.SizeOf[uint16]() != 2 || emulator.SizeOf[[3]uint32]() != 12 {
		t.Fatal("SizeOf fixed types")
	}
	if emulator.SizeOf[string]() != -1 {
		t.Fatal("SizeOf string")
	}
}
