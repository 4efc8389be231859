package ps1

import (
	"encoding/binary"
	"errors"
	"testing"

	"emuram/emulator"
	"emuram/emulator/emutest"
	"emuram/process"
)

func le32(v uint32) []byte {
	return binary.LittleEndian.AppendUint32(nil, v)
}

func TestKeepAliveFailsBeforeDiscovery(t *testing.T) {
	p := emutest.New()
	p.Region(0x10000, 0x1000, emutest.RW)
	for _, b := range []Backend{Epsxe, PsxFin, Duckstation, Retroarch, PcsxRedux, Xebra, Mednafen} {
		ram := RAM(0x10000)
		if newLocator(b).KeepAlive(p, &ram) {
			t.Errorf("%s: KeepAlive succeeded on fresh state", b)
		}
	}
}

// checkLocator runs discovery and the immediate keep-alive
func checkLocator(t *testing.T, p process.Process, b Backend, want RAM) emulator.Locator[RAM] {
	t.Helper()
	loc := newLocator(b)
	ram, ok := loc.FindRAM(p)
	if !ok || ram != want {
		t.Fatalf("%s: FindRAM = %s, %v; want %s", b, ram, ok, want)
	}
	if !loc.KeepAlive(p, &ram) {
		t.Fatalf("%s: KeepAlive failed right after FindRAM", b)
	}
	return loc
}

func TestEpsxe(t *testing.T) {
	p := emutest.New()
	p.Module("ePSXe.exe", 0x400000, emutest.Image{Machine: emutest.I386, Size: 0x4000})
	p.Code(0x401000, "C1 E1 10 8D 89 ?? ?? ?? ??", le32(0x00A00000)...)

	checkLocator(t, p, Epsxe, 0x00A00000)
}

func TestPsxFinVersions(t *testing.T) {
	tests := []struct {
		name string
		code string
	}{
		{"v1.13", "8B 15 ?? ?? ?? ?? 8D 34 1A"},
		{"v1.12", "A1 ?? ?? ?? ?? 8D 34 18"},
		{"v1.5", "A1 ?? ?? ?? ?? 8B 7C 24 14"},
		{"v1.0", "A1 ?? ?? ?? ?? 8B 6C 24"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := emutest.New()
			p.Module("psxfin.exe", 0x400000, emutest.Image{Machine: emutest.I386, Size: 0x4000})
			p.Region(0x500000, 0x1000, emutest.RW)
			p.Code(0x401000, tt.code, le32(0x500000)...)
			p.U32(0x500000, 0x00B00000)

			checkLocator(t, p, PsxFin, 0x00B00000)
		})
	}
}

func TestPsxFinRejectsNull(t *testing.T) {
	p := emutest.New()
	p.Module("psxfin.exe", 0x400000, emutest.Image{Machine: emutest.I386, Size: 0x4000})
	p.Region(0x500000, 0x1000, emutest.RW)
	p.Code(0x401000, "A1 ?? ?? ?? ?? 8D 34 18", le32(0x500000)...)

	if _, ok := newLocator(PsxFin).FindRAM(p); ok {
		t.Fatal("FindRAM accepted a null RAM pointer")
	}
}

func TestDuckstationNullIsTransient(t *testing.T) {
	p := emutest.New()
	const base = 0x140000000
	p.Module("duckstation-qt-x64-ReleaseLTCG.exe", base, emutest.Image{Machine: emutest.AMD64, Size: 0x4000})
	p.Region(0x150000000, 0x1000, emutest.RW)
	p.RIP(base+0x1000, "48 89 0D ?? ?? ?? ?? B8", 3, 0, 0x150000000)
	p.U64(0x150000000, 0x200000000)

	loc := checkLocator(t, p, Duckstation, 0x200000000)

	ram := RAM(0x200000000)
	p.U64(0x150000000, 0)
	if !loc.KeepAlive(p, &ram) || !ram.IsNull() {
		t.Fatalf("null refresh: %s", ram)
	}

	e := New(p, Duckstation)
	if !e.Update() || e.State() != emulator.Degraded {
		t.Fatalf("session state = %v", e.State())
	}
	if _, err := Read[uint8](e, 0x80000000); !errors.Is(err, emulator.ErrNotAttached) {
		t.Fatalf("read while degraded: %v", err)
	}
}

func TestXebra(t *testing.T) {
	p := emutest.New()
	p.Module("XEBRA.EXE", 0x400000, emutest.Image{Machine: emutest.I386, Size: 0x4000})
	p.Region(0x500000, 0x1000, emutest.RW)

	p.RIP(0x401000, "E8 ?? ?? ?? ?? E9 ?? ?? ?? ?? 89 C8 C1 F8 10", 1, 0, 0x402000)
	p.U32(0x402000+xebraSlot, 0x500000)
	p.U32(0x500000, 0x00C00000)

	checkLocator(t, p, Xebra, 0x00C00000)
}

func TestMednafen(t *testing.T) {
	for _, machine := range []uint16{emutest.I386, emutest.AMD64} {
		p := emutest.New()
		p.Module("mednafen.exe", 0x400000, emutest.Image{Machine: machine, Size: 0x4000})
		p.Code(0x401000, "89 01 0F B6 82 ?? ?? ?? ?? C3", le32(0x00D00000)...)

		checkLocator(t, p, Mednafen, 0x00D00000)
	}
}

func TestPcsxRedux64(t *testing.T) {
	p := emutest.New()
	const base = 0x140000000
	p.Module("pcsx-redux.main", base, emutest.Image{Machine: emutest.AMD64, Size: 0x4000})
	p.Region(0x150000000, 0x1000, emutest.RW)

	object := binary.LittleEndian.AppendUint64(nil, 0x150000000)
	p.Code(base+0x1000, "48 B9 ?? ?? ?? ?? ?? ?? ?? ?? E8 ?? ?? ?? ?? C7 85 ?? ?? ?? ?? 00 00 00 00", object...)
	p.Code(base+0x1100, "89 D1 C1 E9 10 48 8B ?? 40", 0x8B)
	p.U64(0x150000040, 0x150000800)
	p.U64(0x150000800, 0x300000000)

	loc := checkLocator(t, p, PcsxRedux, 0x300000000)

	// a new emulator object means rediscovery
	ram := RAM(0x300000000)
	p.Bytes(base+0x1002, binary.LittleEndian.AppendUint64(nil, 0x150000100)...)
	if loc.KeepAlive(p, &ram) {
		t.Fatal("KeepAlive accepted a replaced emulator object")
	}
}

func TestPcsxRedux32(t *testing.T) {
	p := emutest.New()
	p.Module("pcsx-redux.main", 0x400000, emutest.Image{Machine: emutest.I386})
	p.Region(0x10000000, 0x10000, emutest.RWX)
	p.Code(0x10002000, "8B 3D 20 ?? ?? ?? 0F B7 D3 8B 04 95 ?? ?? ?? ?? 21 05", 0x00, 0xE0, 0x00)

	checkLocator(t, p, PcsxRedux, 0x00E00020)
}

func TestRetroarchCores(t *testing.T) {
	t.Run("mednafen_psx 64-bit", func(t *testing.T) {
		p := emutest.New()
		const core = 0x180000000
		p.Module("retroarch.exe", 0x140000000, emutest.Image{Machine: emutest.AMD64})
		p.Module("mednafen_psx_libretro.dll", core, emutest.Image{
			Machine: emutest.AMD64,
			Size:    0x2000,
			Exports: map[string]uint32{"retro_get_memory_data": 0x1100, "retro_get_memory_size": 0x1200},
		})
		p.Region(0x190000000, 0x1000, emutest.RW)
		p.RIP(core+0x1110, "48 0F 44 05 ?? ?? ?? ??", 4, 0, 0x190000000)
		p.U64(0x190000000, 0x300000000)

		loc := checkLocator(t, p, Retroarch, 0x300000000)
		p.Unmap(core)
		ram := RAM(0x300000000)
		if loc.KeepAlive(p, &ram) {
			t.Fatal("KeepAlive succeeded after the core was unloaded")
		}
	})

	t.Run("pcsx_rearmed 64-bit", func(t *testing.T) {
		p := emutest.New()
		const core = 0x180000000
		p.Module("retroarch.exe", 0x140000000, emutest.Image{Machine: emutest.AMD64})
		p.Module("pcsx_rearmed_libretro.dll", core, emutest.Image{
			Machine: emutest.AMD64,
			Size:    0x2000,
			Exports: map[string]uint32{"retro_get_memory_data": 0x1100},
		})
		p.Region(0x190000000, 0x1000, emutest.RW)
		p.RIP(core+0x1100, "48 8B 05 ?? ?? ?? ?? 48 8B 00 C3", 3, 0, 0x190000000)
		p.U64(0x190000000, 0x190000100)
		p.U64(0x190000100, 0x300000000)

		checkLocator(t, p, Retroarch, 0x300000000)
	})

	t.Run("swanstation 32-bit", func(t *testing.T) {
		p := emutest.New()
		const core = 0x10000000
		p.Module("retroarch.exe", 0x400000, emutest.Image{Machine: emutest.I386})
		p.Module("swanstation_libretro.dll", core, emutest.Image{
			Machine: emutest.I386,
			Size:    0x2000,
			Exports: map[string]uint32{"retro_get_memory_data": 0x1100},
		})
		p.Region(0x500000, 0x1000, emutest.RW)
		p.Code(core+0x1100, "74 05 A1 ?? ?? ?? ?? C3", le32(0x500000)...)
		p.U32(0x500000, 0x00F00000)

		checkLocator(t, p, Retroarch, 0x00F00000)
	})

	t.Run("null ram degrades", func(t *testing.T) {
		p := emutest.New()
		const core = 0x180000000
		p.Module("retroarch.exe", 0x140000000, emutest.Image{Machine: emutest.AMD64})
		p.Module("mednafen_psx_libretro.dll", core, emutest.Image{
			Machine: emutest.AMD64,
			Size:    0x2000,
			Exports: map[string]uint32{"retro_get_memory_data": 0x1100},
		})
		p.Region(0x190000000, 0x1000, emutest.RW)
		p.RIP(core+0x1100, "48 0F 44 05 ?? ?? ?? ??", 4, 0, 0x190000000)

		checkLocator(t, p, Retroarch, process.NULL)

		e := New(p, Retroarch)
		if !e.Update() || e.State() != emulator.Degraded {
			t.Fatalf("session state = %v", e.State())
		}
		if _, err := Read[uint8](e, 0x80000000); !errors.Is(err, emulator.ErrNotAttached) {
			t.Fatalf("read while degraded: %v", err)
		}
	})

	t.Run("missing export", func(t *testing.T) {
		p := emutest.New()
		p.Module("retroarch.exe", 0x140000000, emutest.Image{Machine: emutest.AMD64})
		p.Module("mednafen_psx_hw_libretro.dll", 0x180000000, emutest.Image{Machine: emutest.AMD64})
		if _, ok := newLocator(Retroarch).FindRAM(p); ok {
			t.Fatal("FindRAM succeeded without retro_get_memory_data")
		}
	})
}

func TestEmulatorReads(t *testing.T) {
	p := emutest.New()
	p.Module("ePSXe.exe", 0x400000, emutest.Image{Machine: emutest.I386, Size: 0x4000})
	p.Code(0x401000, "C1 E1 10 8D 89 ?? ?? ?? ??", le32(0x00A00000)...)
	p.Region(0x00A00000, 0x200000, emutest.RW)

	e := New(p, Epsxe)
	if !e.Update() {
		t.Fatal("Update failed")
	}

	p.U32(0x00A00010, 0x80000100)
	p.U16(0x00A00108, 0x4242)

	if v, err := Read[uint32](e, 0x80000010); err != nil || v != 0x80000100 {
		t.Fatalf("Read = %#x, %v", v, err)
	}
	if v, err := ReadPointerPath[uint16](e, 0x80000010, 0, 8); err != nil || v != 0x4242 {
		t.Fatalf("ReadPointerPath = %#x, %v", v, err)
	}
	if _, err := Read[uint32](e, 0x817FFFFD); !errors.Is(err, emulator.ErrAddressOutOfRange) {
		t.Fatalf("read across the end: %v", err)
	}
	if _, err := Read[uint8](e, 0x1F800000); !errors.Is(err, emulator.ErrAddressOutOfRange) {
		t.Fatalf("scratchpad read: %v", err)
	}
}
