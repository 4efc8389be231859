package pe_test

import (
	"testing"

	"emuram/emulator/emutest"
	"emuram/pe"
	"emuram/process"
)

func TestReadMachineType(t *testing.T) {
	p := emutest.New()
	p.Module("retroarch.exe", 0x400000, emutest.Image{Machine: emutest.I386})
	p.Module("dolphin_libretro.dll", 0x180000000, emutest.Image{Machine: emutest.AMD64})
	p.Region(0x600000, 0x1000, emutest.RW)

	m, ok := pe.ReadMachineType(p, 0x400000)
	if !ok || m != pe.MachineI386 || m.PointerSize() != process.Bit32 {
		t.Fatalf("i386 image: %v %v", m, ok)
	}

	is64, ok := pe.Is64Bit(p, 0x180000000)
	if !ok || !is64 {
		t.Fatalf("amd64 image: is64=%v ok=%v", is64, ok)
	}

	if _, ok := pe.ReadMachineType(p, 0x600000); ok {
		t.Fatalf("region without MZ header should not parse")
	}
	if _, ok := pe.ReadMachineType(p, 0x900000); ok {
		t.Fatalf("unmapped base should not parse")
	}
}

func TestFindExport(t *testing.T) {
	for _, machine := range []uint16{emutest.I386, emutest.AMD64} {
		p := emutest.New()
		p.Module("mednafen_psx_libretro.dll", 0x10000000, emutest.Image{
			Machine: machine,
			Size:    0x4000,
			Exports: map[string]uint32{
				"retro_api_version":     0x1000,
				"retro_get_memory_data": 0x1100,
				"retro_get_memory_size": 0x1200,
			},
		})

		addr, ok := pe.FindExport(p, 0x10000000, "retro_get_memory_data")
		if !ok || addr != 0x10001100 {
			t.Fatalf("machine %#x: FindExport = %s, %v", machine, addr, ok)
		}
		if _, ok := pe.FindExport(p, 0x10000000, "retro_get_memory"); ok {
			t.Fatalf("machine %#x: prefix of an export should not match", machine)
		}
	}
}
