package sms

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
	for _, b := range []Backend{Retroarch, Fusion, BlastEm, Mednafen} {
		ram := RAM(0x10000)
		if newLocator(b).KeepAlive(p, &ram) {
			t.Errorf("%s: KeepAlive succeeded on fresh state", b)
		}
	}
}

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

func stageFusion(p *emutest.Process, mem uint32) {
	p.Module("Fusion.exe", 0x400000, emutest.Image{Machine: emutest.I386, Size: 0x4000})
	p.Region(0x500000, 0x1000, emutest.RW)
	p.Code(0x401000, "74 C8 83 3D ?? ?? ?? ??", le32(0x500000)...)
	p.U32(0x500000, mem)
}

func TestFusion(t *testing.T) {
	p := emutest.New()
	stageFusion(p, 0x00A00000)

	loc := checkLocator(t, p, Fusion, 0x00A0C000)

	ram := RAM(0x00A0C000)
	p.U32(0x500000, 0)
	if !loc.KeepAlive(p, &ram) || !ram.IsNull() {
		t.Fatalf("null slot: %s", ram)
	}
	p.U32(0x500000, 0x00B00000)
	if !loc.KeepAlive(p, &ram) || ram != 0x00B0C000 {
		t.Fatalf("reloaded slot: %s", ram)
	}
}

func TestFusionBetweenGamesIsDegraded(t *testing.T) {
	p := emutest.New()
	stageFusion(p, 0)

	e := New(p, Fusion)
	if !e.Update() || e.State() != emulator.Degraded {
		t.Fatalf("state = %v", e.State())
	}
	if _, err := Read[uint8](e, 0xC000); !errors.Is(err, emulator.ErrNotAttached) {
		t.Fatalf("read while degraded: %v", err)
	}
}

func TestBlastEm(t *testing.T) {
	p := emutest.New()
	p.Region(0x20000000, 0x1000, emutest.RW)
	p.Region(0x30000000, blastEmJITSize, emutest.RWX)
	p.Code(0x30000100, "66 81 E1 FF 1F 0F B7 C9 8A 89 ?? ?? ?? ?? C3", le32(0x00C00000)...)

	checkLocator(t, p, BlastEm, 0x00C00000)

	p.Code(0x30000100, "66 81 E1 FF 1F 0F B7 C9 8A 89 00 00 00 00 C3")
	if _, ok := newLocator(BlastEm).FindRAM(p); ok {
		t.Fatal("FindRAM accepted a null work RAM address")
	}
}

func TestMednafen(t *testing.T) {
	t.Run("x64", func(t *testing.T) {
		p := emutest.New()
		p.Module("mednafen.exe", 0x140000000, emutest.Image{Machine: emutest.AMD64, Size: 0x4000})
		p.Code(0x140001000, "25 FF 1F 00 00 88 90 ?? ?? ?? ??", le32(0x01234000)...)
		checkLocator(t, p, Mednafen, 0x01234000)
	})
	t.Run("x86", func(t *testing.T) {
		p := emutest.New()
		p.Module("mednafen.exe", 0x400000, emutest.Image{Machine: emutest.I386, Size: 0x4000})
		p.Code(0x401000, "25 FF 1F 00 00 0F B6 80 ?? ?? ?? ??", le32(0x00D00000)...)
		checkLocator(t, p, Mednafen, 0x00D00000)
	})
}

func stageRetroarch(p *emutest.Process, machine uint16, core string, base process.Address) {
	main := process.Address(0x400000)
	if machine == emutest.AMD64 {
		main = 0x140000000
	}
	p.Module("retroarch.exe", main, emutest.Image{Machine: machine})
	p.Module(core, base, emutest.Image{Machine: machine, Size: 0x4000})
}

func TestRetroarchCores(t *testing.T) {
	const core64 = 0x180000000
	const core32 = 0x10000000

	tests := []struct {
		name  string
		stage func(p *emutest.Process)
		want  RAM
	}{
		{
			name: "genesis plus gx x64",
			stage: func(p *emutest.Process) {
				stageRetroarch(p, emutest.AMD64, "genesis_plus_gx_libretro.dll", core64)
				p.RIP(core64+0x1000, "48 8D 0D ?? ?? ?? ?? 4C 8B 2D", 3, 0, 0x180100000)
			},
			want: 0x180100000,
		},
		{
			name: "picodrive x86",
			stage: func(p *emutest.Process) {
				stageRetroarch(p, emutest.I386, "picodrive_libretro.dll", core32)
				p.Code(core32+0x1000, "B9 ?? ?? ?? ?? C1 EF 10", le32(0x00E00000)...)
			},
			want: 0x00E20000,
		},
		{
			name: "smsplus x64",
			stage: func(p *emutest.Process) {
				stageRetroarch(p, emutest.AMD64, "smsplus_libretro.dll", core64)
				p.RIP(core64+0x1000, "31 F6 48 C7 05 ?? ?? ?? ?? 01 00 00 00", 5, 4, 0x180200000)
			},
			want: 0x180200000,
		},
		{
			name: "smsplus x86",
			stage: func(p *emutest.Process) {
				stageRetroarch(p, emutest.I386, "smsplus_libretro.dll", core32)
				p.Code(core32+0x1000, "83 FA 02 B8 ?? ?? ?? ??", le32(0x00F00000)...)
			},
			want: 0x00F00000,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := emutest.New()
			tt.stage(p)
			checkLocator(t, p, Retroarch, tt.want)
		})
	}
}

func stageGearsystem64(p *emutest.Process) {
	const core = 0x180000000
	stageRetroarch(p, emutest.AMD64, "gearsystem_libretro.dll", core)

	// cmp eax, 2; jne; mov rcx, [rip+slot]; call; ...; call accessor
	site := process.Address(core + 0x1000)
	p.RIP(site, "83 F8 02 75 05 48 8B 0D ?? ?? ?? ?? E8 00 00 00 00 90 90 90 E8 ?? ?? ?? ??", 8, 0, 0x190000000)
	accessor := process.Address(core + 0x2000)
	p.U32(site.Add(21), uint32(int32(int64(accessor)-int64(site.Add(25)))))
	// mov rax, [rcx+0x40]
	p.Code(accessor, "48 8B 41 40 C3")

	p.Region(0x190000000, 0x1000, emutest.RW)
	p.U64(0x190000000, 0x190000100)
	p.U64(0x190000100, 0x190000200)
	p.U64(0x190000240, 0x7000000000)
}

func TestRetroarchGearsystem(t *testing.T) {
	p := emutest.New()
	stageGearsystem64(p)

	loc := checkLocator(t, p, Retroarch, 0x7000000000+0xC000)

	p.Unmap(0x180000000)
	ram := RAM(0x700000C000)
	if loc.KeepAlive(p, &ram) {
		t.Fatal("KeepAlive succeeded after the core unloaded")
	}
}

func TestRetroarchGearsystemNullMemory(t *testing.T) {
	p := emutest.New()
	stageGearsystem64(p)
	p.U64(0x190000240, 0)

	if _, ok := newLocator(Retroarch).FindRAM(p); ok {
		t.Fatal("FindRAM accepted a null memory pointer")
	}
}

func TestRetroarchGearsystem32(t *testing.T) {
	p := emutest.New()
	const core = 0x10000000
	stageRetroarch(p, emutest.I386, "gearsystem_libretro.dll", core)

	// cmp eax, 2; jne; mov ecx, [slot]; call; ...; call accessor
	site := process.Address(core + 0x1000)
	p.Code(site, "83 F8 02 75 05 8B 0D ?? ?? ?? ?? E8 00 00 00 00 90 90 E8 ?? ?? ?? ??", le32(0x20000000)...)
	accessor := process.Address(core + 0x2000)
	p.U32(site.Add(19), uint32(int32(int64(accessor)-int64(site.Add(23)))))
	// mov eax, [ecx+0x20]
	p.Code(accessor, "8B 41 20 C3")

	p.Region(0x20000000, 0x1000, emutest.RW)
	p.U32(0x20000000, 0x20000100)
	p.U32(0x20000100, 0x20000200)
	p.U32(0x20000220, 0x00800000)

	checkLocator(t, p, Retroarch, 0x0080C000)
}

func TestEmulatorReads(t *testing.T) {
	p := emutest.New()
	stageFusion(p, 0x00A00000)
	p.Region(0x00A00000, 0x10000, emutest.RW)

	e := New(p, Fusion)
	if !e.Update() || e.State() != emulator.Attached {
		t.Fatalf("state = %v", e.State())
	}

	p.U16(0x00A0C010, 0xBEEF)
	if v, err := Read[uint16](e, 0xC010); err != nil || v != 0xBEEF {
		t.Fatalf("Read = %#x, %v", v, err)
	}
	if addr, err := e.GetAddress(0xDFFF); err != nil || addr != 0x00A0DFFF {
		t.Fatalf("GetAddress(0xDFFF) = %s, %v", addr, err)
	}
	if _, err := Read[uint16](e, 0xDFFF); !errors.Is(err, emulator.ErrAddressOutOfRange) {
		t.Fatalf("read across 0xE000: %v", err)
	}
	if _, err := e.GetAddress(0xE000); !errors.Is(err, emulator.ErrAddressOutOfRange) {
		t.Fatalf("GetAddress(0xE000): %v", err)
	}
}
