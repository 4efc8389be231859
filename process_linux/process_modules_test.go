//go:build linux

package process_linux

import (
	"errors"
	"os"
	"runtime"
	"testing"
	"time"
	"unsafe"

	"emuram/process"
	"emuram/process/memory_map"
)

type countingMap struct {
	ranges []memory_map.MemoryRange
	reads  int
}

func (m *countingMap) ReadMemoryMap(int) ([]memory_map.MemoryRange, error) {
	m.reads++
	out := make([]memory_map.MemoryRange, len(m.ranges))
	copy(out, m.ranges)
	return out, nil
}

func TestModuleLookupsShareMapRead(t *testing.T) {
	image := []byte("MZ\x90\x00")
	base := uint64(uintptr(unsafe.Pointer(&image[0])))

	maps := &countingMap{ranges: []memory_map.MemoryRange{
		{Address: base, Size: 4, Flags: memory_map.FlagRead | memory_map.FlagPath, Path: "/games/retroarch/cores/gpsp_libretro.dll"},
	}}
	clock := time.Unix(1000, 0)

	p := New()
	p.pid = process.ProcessID(os.Getpid())
	p.mapper = maps
	p.now = func() time.Time { return clock }

	for _, name := range []string{"vbam_libretro.dll", "mednafen_gba_libretro.dll", "vba_next_libretro.dll", "mgba_libretro.dll"} {
		if _, _, err := p.GetModuleRange(name); !errors.Is(err, process.ErrModuleNotFound) {
			t.Fatalf("%s: err = %v", name, err)
		}
	}
	addr, size, err := p.GetModuleRange("gpsp_libretro.dll")
	if err != nil || addr != process.Address(base) || size != 4 {
		t.Fatalf("GetModuleRange = %s, %d, %v", addr, size, err)
	}
	if maps.reads != 1 {
		t.Fatalf("memory map read %d times for one round of lookups", maps.reads)
	}

	clock = clock.Add(time.Second)
	if _, _, err := p.GetModuleRange("GPSP_LIBRETRO.DLL"); err != nil {
		t.Fatalf("cached lookup: %v", err)
	}
	if maps.reads != 1 {
		t.Fatalf("cached hit re-read the memory map")
	}

	if _, _, err := p.GetModuleRange("vbam_libretro.dll"); !errors.Is(err, process.ErrModuleNotFound) {
		t.Fatalf("miss after expiry: %v", err)
	}
	if maps.reads != 2 {
		t.Fatalf("expired snapshot reused, reads = %d", maps.reads)
	}

	// unloading the core invalidates the cached entry even inside the window
	image[0] = 0
	maps.ranges = nil
	if _, _, err := p.GetModuleRange("gpsp_libretro.dll"); !errors.Is(err, process.ErrModuleNotFound) {
		t.Fatalf("unloaded module still found: %v", err)
	}
	if maps.reads != 3 {
		t.Fatalf("stale entry resolved without a fresh map, reads = %d", maps.reads)
	}
	runtime.KeepAlive(image)
}
