package process_test

import (
	"errors"
	"testing"

	"emuram/process"
	"emuram/process/memory_map"
	"emuram/process_blob"
)

const rw = memory_map.FlagRead | memory_map.FlagWrite

// chain stages base -> a -> b -> value for the given pointer width
func chain(t *testing.T, size process.PointerSize) *process_blob.ProcessDump {
	t.Helper()
	p := process_blob.NewProcessDump()
	p.AddZeroRegion(0x10000, 0x1000, rw, "")

	put := func(addr process.Address, v uint64) {
		var err error
		if size == process.Bit32 {
			err = p.PutUint32(addr, uint32(v))
		} else {
			err = p.PutUint64(addr, v)
		}
		if err != nil {
			t.Fatal(err)
		}
	}

	put(0x10010, 0x10200) // base+0x10 -> 0x10200
	put(0x10208, 0x10400) // +0x8 -> 0x10400
	if err := p.PutUint32(0x10420, 0xCAFEBABE); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestReadPointerPathWidths(t *testing.T) {
	for _, size := range []process.PointerSize{process.Bit32, process.Bit64} {
		p := chain(t, size)

		got, err := process.ReadPointerPath[uint32](p, 0x10000, size, 0x10, 0x8, 0x20)
		if err != nil {
			t.Fatalf("%s: %v", size, err)
		}
		if got != 0xCAFEBABE {
			t.Fatalf("%s: got %#x", size, got)
		}

		addr, err := process.DerefOffsets(p, 0x10000, size, 0x10, 0x8, 0x20)
		if err != nil || addr != 0x10420 {
			t.Fatalf("%s: DerefOffsets = %s, %v", size, addr, err)
		}
	}
}

func TestReadPointerPathManualWalk(t *testing.T) {
	p := chain(t, process.Bit64)

	first, err := process.ReadPointer(p, 0x10010, process.Bit64)
	if err != nil {
		t.Fatal(err)
	}
	second, err := process.ReadPointer(p, first.Add(0x8), process.Bit64)
	if err != nil {
		t.Fatal(err)
	}
	manual, err := process.Read[uint32](p, second.Add(0x20))
	if err != nil {
		t.Fatal(err)
	}

	path := process.NewPointerPath(0x10000, process.Bit64, 0x10, 0x8, 0x20)
	resolved, err := process.Resolve[uint32](p, path)
	if err != nil {
		t.Fatal(err)
	}
	if manual != resolved {
		t.Fatalf("manual %#x != resolved %#x", manual, resolved)
	}
}

func TestReadPointerPathFailures(t *testing.T) {
	p := chain(t, process.Bit64)

	// null intermediate pointer
	if _, err := process.ReadPointerPath[uint32](p, 0x10000, process.Bit64, 0x30, 0x0); !errors.Is(err, process.ErrNullPointer) {
		t.Fatalf("expected ErrNullPointer, got %v", err)
	}

	// unmapped step
	if err := p.PutUint64(0x10030, 0xDEAD0000); err != nil {
		t.Fatal(err)
	}
	if _, err := process.ReadPointerPath[uint32](p, 0x10000, process.Bit64, 0x30, 0x0); !errors.Is(err, process.ErrAddressNotMapped) {
		t.Fatalf("expected ErrAddressNotMapped, got %v", err)
	}

	// no offsets reads base itself
	if _, err := process.ReadPointerPath[uint32](p, 0x10420, process.Bit64); err != nil {
		t.Fatalf("empty path: %v", err)
	}
}

func TestNegativeOffsets(t *testing.T) {
	p := chain(t, process.Bit64)
	got, err := process.ReadPointerPath[uint32](p, 0x10020, process.Bit64, -0x10, 0x8, 0x20)
	if err != nil || got != 0xCAFEBABE {
		t.Fatalf("got %#x, %v", got, err)
	}
}

func TestReadEndian(t *testing.T) {
	p := process_blob.NewProcessDump()
	p.AddRegion(0x20000, []byte{0x12, 0x34, 0x56, 0x78, 0, 0, 0, 0}, rw, "")

	le, _ := process.Read[uint32](p, 0x20000)
	be, _ := process.ReadEndian[uint32](p, 0x20000, process.Big)
	if le != 0x78563412 || be != 0x12345678 {
		t.Fatalf("le %#x be %#x", le, be)
	}

	pair, err := process.ReadEndian[[2]uint16](p, 0x20000, process.Big)
	if err != nil || pair != [2]uint16{0x1234, 0x5678} {
		t.Fatalf("pair %#x, %v", pair, err)
	}

	if process.FromEndian(uint32(0x78563412), process.Big) != 0x12345678 {
		t.Fatalf("FromEndian did not swap")
	}
	if process.FromEndian(uint16(0x3412), process.Little) != 0x3412 {
		t.Fatalf("FromEndian swapped a little-endian value")
	}

	// pointers stay host-ordered regardless of the value's byte order
	ptr, _ := process.ReadPointer(p, 0x20000, process.Bit32)
	if ptr != 0x78563412 {
		t.Fatalf("pointer %s", ptr)
	}
}

func TestAddressWidths(t *testing.T) {
	if process.Address32(0xFFFFFFFF).Address() != 0xFFFFFFFF {
		t.Fatal("Address32 widening")
	}
	if process.Address(0x1000).AddSigned(-0x10) != 0xFF0 {
		t.Fatal("AddSigned")
	}
	if process.PointerSize(3).Valid() {
		t.Fatal("3-byte pointers are not valid")
	}
}
