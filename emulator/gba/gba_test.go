package gba

import (
	"encoding/binary"
	"errors"
	"fmt"
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

	for _, b := range []Backend{VisualBoyAdvance, MGBA, NoCashGBA, Retroarch, EmuHawk, Mednafen} {
		var ram RAM
		if newLocator(b).KeepAlive(p, &ram) {
			t.Errorf("%s: KeepAlive succeeded on fresh state", b)
		}
	}
}

func TestMGBABlock(t *testing.T) {
	p := emutest.New()
	p.Region(0x10000000, 0x1000, emutest.RW)
	p.Region(0x20000000, 0x48000, emutest.RX)
	p.Region(0x30000000, 0x48000, emutest.RW)

	loc := newLocator(MGBA)
	ram, ok := loc.FindRAM(p)
	if !ok {
		t.Fatal("FindRAM failed")
	}
	if ram != (RAM{0x30000000, 0x30040000}) {
		t.Fatalf("ram = %v", ram)
	}
	if !loc.KeepAlive(p, &ram) {
		t.Fatal("KeepAlive failed right after FindRAM")
	}

	p.Unmap(0x30000000)
	if loc.KeepAlive(p, &ram) {
		t.Fatal("KeepAlive succeeded after the block was freed")
	}
}

func stageVBA64(p *emutest.Process) {
	const base = 0x140000000
	p.Module("VisualBoyAdvance.exe", base, emutest.Image{Machine: emutest.AMD64, Size: 0x4000})
	p.Region(0x150000000, 0x1000, emutest.RW)

	p.RIP(base+0x1000, "48 8B 05 ?? ?? ?? ?? 81 E3 FF FF 03 00", 3, 0, 0x150000000)
	p.RIP(base+0x1100, "48 8B 05 ?? ?? ?? ?? 81 E3 FF 7F 00 00", 3, 0, 0x150000008)
	p.RIP(base+0x1200, "83 3D ?? ?? ?? ?? 00 74 ?? 80 3D ?? ?? ?? ?? 00 75 ?? 66", 2, 1, 0x150000010)

	p.U64(0x150000000, 0x200000000)
	p.U64(0x150000008, 0x210000000)
	p.U8(0x150000010, 1)
}

func TestVBA64(t *testing.T) {
	p := emutest.New()
	stageVBA64(p)

	loc := newLocator(VisualBoyAdvance)
	ram, ok := loc.FindRAM(p)
	if !ok || ram != (RAM{0x200000000, 0x210000000}) {
		t.Fatalf("FindRAM = %v, %v", ram, ok)
	}
	if !loc.KeepAlive(p, &ram) {
		t.Fatal("KeepAlive failed right after FindRAM")
	}

	// no game loaded: alive, but RAM is a null pair
	p.U8(0x150000010, 0)
	if !loc.KeepAlive(p, &ram) || ram != (RAM{}) {
		t.Fatalf("not emulating: ram = %v", ram)
	}

	p.U8(0x150000010, 1)
	p.U64(0x150000000, 0x220000000)
	if !loc.KeepAlive(p, &ram) || ram[0] != 0x220000000 {
		t.Fatalf("refresh: ram = %v", ram)
	}

	p.U8(0x150000010, 7)
	if loc.KeepAlive(p, &ram) {
		t.Fatal("KeepAlive accepted a non-boolean running flag")
	}
}

func TestVBANotEmulatingDegradesSession(t *testing.T) {
	p := emutest.New()
	stageVBA64(p)
	p.U8(0x150000010, 0)

	e := New(p, VisualBoyAdvance)
	if !e.Update() {
		t.Fatal("Update failed")
	}
	if e.State() != emulator.Degraded {
		t.Fatalf("state = %v", e.State())
	}
}

func TestVBA32(t *testing.T) {
	p := emutest.New()
	const base = 0x400000
	p.Module("VisualBoyAdvance.exe", base, emutest.Image{Machine: emutest.I386, Size: 0x4000})
	p.Region(0x500000, 0x1000, emutest.RW)

	p.Code(base+0x1000, "A1 ?? ?? ?? ?? 81 E3 FF FF 03 00", le32(0x500000)...)
	p.Code(base+0x1100, "A1 ?? ?? ?? ?? 81 E3 FF 7F 00 00", le32(0x500004)...)
	p.Code(base+0x1200, "8B 15 ?? ?? ?? ?? 31 C0 85 D2 74 ?? 0F", le32(0x500010)...)

	p.U32(0x500000, 0x02a00000)
	p.U32(0x500004, 0x02b00000)
	p.U8(0x500010, 1)

	loc := newLocator(VisualBoyAdvance)
	ram, ok := loc.FindRAM(p)
	if !ok || ram != (RAM{0x02a00000, 0x02b00000}) {
		t.Fatalf("FindRAM = %v, %v", ram, ok)
	}
	if !loc.KeepAlive(p, &ram) {
		t.Fatal("KeepAlive failed right after FindRAM")
	}
}

func TestVBALegacy(t *testing.T) {
	p := emutest.New()
	const base = 0x400000
	p.Module("VisualBoyAdvance.exe", base, emutest.Image{Machine: emutest.I386, Size: 0x4000})
	p.Region(0x500000, 0x1000, emutest.RW)

	p.Code(base+0x1000, "81 E6 FF FF 03 00 8B 15 ?? ?? ?? ??", le32(0x500000)...)
	p.Code(base+0x1100, "8B 0D ?? ?? ?? ?? 85 C9 74 ?? 8A", le32(0x500010)...)

	p.U32(0x500000, 0x02a00000)
	p.U32(0x500004, 0x02b00000)
	p.U8(0x500010, 1)

	ram, ok := newLocator(VisualBoyAdvance).FindRAM(p)
	if !ok || ram != (RAM{0x02a00000, 0x02b00000}) {
		t.Fatalf("FindRAM = %v, %v", ram, ok)
	}
}

func TestNoCashGBA(t *testing.T) {
	p := emutest.New()
	const base = 0x400000
	p.Module("NO$GBA.EXE", base, emutest.Image{Machine: emutest.I386, Size: 0x4000})
	p.Region(0x500000, 0x1000, emutest.RW)
	p.Region(0x600000, 0x10000, emutest.RW)

	p.Code(base+0x2000, "FF 35 ?? ?? ?? ?? 55", le32(0x500000)...)
	p.U32(0x500000, 0x600000)
	p.U32(0x600000+0x938C+8, 0x700000)
	p.U32(0x600000+0x95D4, 0x780000)

	loc := newLocator(NoCashGBA)
	ram, ok := loc.FindRAM(p)
	if !ok || ram != (RAM{0x700000, 0x780000}) {
		t.Fatalf("FindRAM = %v, %v", ram, ok)
	}
	if !loc.KeepAlive(p, &ram) {
		t.Fatal("KeepAlive failed right after FindRAM")
	}

	p.Unmap(0x600000)
	if loc.KeepAlive(p, &ram) {
		t.Fatal("KeepAlive succeeded with the state block gone")
	}
}

func TestMednafenDoubleIndirection(t *testing.T) {
	p := emutest.New()
	const base = 0x140000000
	p.Module("mednafen.exe", base, emutest.Image{Machine: emutest.AMD64, Size: 0x4000})
	p.Region(0x150000000, 0x1000, emutest.RW)

	// a REX.W load after the match means the slot holds a pointer to the real slot
	p.RIP(base+0x1000, "48 8B 05 ?? ?? ?? ?? 81 E1 FF FF 03 00 48", 3, 0, 0x150000100)
	p.RIP(base+0x1100, "48 8B 05 ?? ?? ?? ?? 81 E1 FF 7F 00 00", 3, 0, 0x150000008)
	p.U64(0x150000100, 0x150000000)
	p.U64(0x150000000, 0x200000000)
	p.U64(0x150000008, 0x210000000)

	loc := newLocator(Mednafen)
	ram, ok := loc.FindRAM(p)
	if !ok || ram != (RAM{0x200000000, 0x210000000}) {
		t.Fatalf("FindRAM = %v, %v", ram, ok)
	}

	p.U64(0x150000100, 0)
	if _, ok := newLocator(Mednafen).FindRAM(p); ok {
		t.Fatal("FindRAM followed a null indirection")
	}
}

func TestRetroarchMGBACore(t *testing.T) {
	p := emutest.New()
	p.Module("retroarch.exe", 0x140000000, emutest.Image{Machine: emutest.AMD64})
	p.Module("mgba_libretro.dll", 0x180000000, emutest.Image{Machine: emutest.AMD64})
	p.Region(0x30000000, 0x48000, emutest.RW)

	loc := newLocator(Retroarch)
	ram, ok := loc.FindRAM(p)
	if !ok || ram != (RAM{0x30000000, 0x30040000}) {
		t.Fatalf("FindRAM = %v, %v", ram, ok)
	}
	if !loc.KeepAlive(p, &ram) {
		t.Fatal("KeepAlive failed right after FindRAM")
	}

	p.Unmap(0x180000000)
	if loc.KeepAlive(p, &ram) {
		t.Fatal("KeepAlive succeeded after the core was unloaded")
	}
}

func TestRetroarchGPSP(t *testing.T) {
	p := emutest.New()
	const core = 0x180000000
	p.Module("retroarch.exe", 0x140000000, emutest.Image{Machine: emutest.AMD64})
	p.Module("gpsp_libretro.dll", core, emutest.Image{Machine: emutest.AMD64, Size: 0x4000})
	p.Region(0x190000000, 0x1000, emutest.RW)

	p.RIP(core+0x1000, "48 8B 15 ?? ?? ?? ?? 8B 42 40", 3, 0, 0x190000000)
	p.U64(0x190000000, 0x300000000)

	p.Code(core+0x1100, "25 FF FF 03 00 88 94 03")
	p.U32(core+0x1108, 0x1000)
	p.Code(core+0x1200, "25 FE 7F 00 00 66 89 94 03")
	p.U32(core+0x1209, uint32(0xFFFFFF00)) // -0x100

	ram, ok := newLocator(Retroarch).FindRAM(p)
	if !ok || ram != (RAM{0x300001000, 0x2FFFFFF00}) {
		t.Fatalf("FindRAM = %v, %v", ram, ok)
	}
}

func TestEmuHawkNeedsCore(t *testing.T) {
	p := emutest.New()
	p.Region(0x30000000, 0x48000, emutest.RW)

	loc := newLocator(EmuHawk)
	if _, ok := loc.FindRAM(p); ok {
		t.Fatal("FindRAM succeeded without mgba.dll")
	}

	p.Module("mgba.dll", 0x180000000, emutest.Image{Machine: emutest.AMD64})
	ram, ok := loc.FindRAM(p)
	if !ok || !loc.KeepAlive(p, &ram) {
		t.Fatalf("FindRAM = %v, %v", ram, ok)
	}
}

func TestEmulatorReads(t *testing.T) {
	p := emutest.New()
	p.Region(0x30000000, 0x48000, emutest.RW)
	e := New(p, MGBA)

	if _, err := Read[uint8](e, 0x02000000); !errors.Is(err, emulator.ErrNotAttached) {
		t.Fatalf("read before Update: %v", err)
	}
	if !e.Update() {
		t.Fatal("Update failed")
	}

	p.U32(0x30000000+0x100, 0xCAFEBABE)
	p.U32(0x30040000+0x7FFC, 0x11223344)

	if v, err := Read[uint32](e, 0x02000100); err != nil || v != 0xCAFEBABE {
		t.Fatalf("EWRAM read = %#x, %v", v, err)
	}
	if v, err := Read[uint32](e, 0x03007FFC); err != nil || v != 0x11223344 {
		t.Fatalf("IWRAM read = %#x, %v", v, err)
	}

	bad := []uint32{0x03007FFE, 0x0203FFFD, 0x04000000, 0x01FFFFFF}
	for _, offset := range bad {
		if _, err := Read[uint32](e, offset); !errors.Is(err, emulator.ErrAddressOutOfRange) {
			t.Errorf("Read(0x%x) err = %v", offset, err)
		}
	}

	addr, err := e.GetAddress(0x03000010)
	if err != nil || addr != 0x30040010 {
		t.Fatalf("GetAddress = %s, %v", addr, err)
	}
}

func TestEmulatorPointerPath(t *testing.T) {
	p := emutest.New()
	p.Region(0x30000000, 0x48000, emutest.RW)
	e := New(p, MGBA)
	e.Update()

	p.U32(0x30000010, 0x03000020)
	p.U16(0x30040024, 0xBEEF)

	v, err := ReadPointerPath[uint16](e, 0x02000010, 0, 4)
	if err != nil || v != 0xBEEF {
		t.Fatalf("ReadPointerPath = %#x, %v", v, err)
	}

	if _, err := ReadPointerPath[uint16](e, 0x02000010); err == nil {
		t.Fatal("empty path accepted")
	}
}

type opener map[string]process.Process

func (o opener) OpenProcessByName(name string) (process.Process, error) {
	if p, ok := o[name]; ok {
		return p, nil
	}
	return nil, fmt.Errorf("%s: %w", name, process.ErrProcessNotFound)
}

func (o opener) OpenProcess(pid process.ProcessID) (process.Process, error) {
	return nil, process.ErrProcessNotFound
}

func TestAttach(t *testing.T) {
	p := emutest.New()
	p.Region(0x30000000, 0x48000, emutest.RW)

	if _, ok := Attach(opener{}); ok {
		t.Fatal("attached with nothing running")
	}

	e, ok := Attach(opener{"mGBA.exe": p})
	if !ok || e.Backend() != MGBA {
		t.Fatalf("Attach = %v, %v", e, ok)
	}
	if !e.Update() || !e.IsOpen() {
		t.Fatal("attached emulator not usable")
	}

	if e, ok := AttachProcess(p, "visualboyadvance-m.exe"); !ok || e.Backend() != VisualBoyAdvance {
		t.Fatal("AttachProcess by name")
	}
}
