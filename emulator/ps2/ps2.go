// Package ps2 attaches to PlayStation 2 emulators.
package ps2

import (
	"fmt"

	"emuram/emulator"
	"emuram/process"
	"emuram/signature"
)

type Backend int

const (
	Pcsx2 Backend = iota
	Retroarch
)

func (b Backend) String() string {
	switch b {
	case Pcsx2:
		return "pcsx2"
	case Retroarch:
		return "retroarch"
	}
	return fmt.Sprintf("backend(%d)", int(b))
}

var Processes = emulator.NewRegistry(
	emulator.Entry[Backend]{Name: "pcsx2x64.exe", Tag: Pcsx2},
	emulator.Entry[Backend]{Name: "pcsx2-qt.exe", Tag: Pcsx2},
	emulator.Entry[Backend]{Name: "pcsx2x64-avx2.exe", Tag: Pcsx2},
	emulator.Entry[Backend]{Name: "pcsx2-avx2.exe", Tag: Pcsx2},
	emulator.Entry[Backend]{Name: "pcsx2.exe", Tag: Pcsx2},
	emulator.Entry[Backend]{Name: "retroarch.exe", Tag: Retroarch},
)

var Cores = emulator.NewRegistry(
	emulator.Entry[Backend]{Name: "pcsx2_libretro.dll", Tag: Retroarch},
)

// RAM is the host address of EE RAM as seen from 0x00100000
type RAM = process.Address

var addressMap = emulator.AddressMap{
	{Name: "EE RAM", Start: 0x00100000, End: 0x02000000},
}

var (
	pcsx2Sig64 = signature.MustParse("48 8B ?? ?? ?? ?? ?? 25 F0 3F 00 00")
	pcsx2Sig32 = signature.MustParseAll(
		"8B ?? ?? ?? ?? ?? 25 F0 3F 00 00",
		"8B ?? ?? ?? ?? ?? 81 ?? F0 3F 00 00",
	)
	retroarchSig = signature.MustParse("48 8B ?? ?? ?? ?? ?? 81 ?? F0 3F 00 00")
)

func newLocator(b Backend) emulator.Locator[RAM] {
	switch b {
	case Pcsx2:
		return &pcsx2{}
	case Retroarch:
		return &retroarch{}
	}
	return nil
}

// pcsx2 re-reads the EE memory global on every tick. It is null until the
// VM boots, which keeps the session Degraded rather than lost.
type pcsx2 struct {
	slot process.Address
	is64 bool
}

func (l *pcsx2) FindRAM(p process.Process) (RAM, bool) {
	base, size, ok := Processes.ModuleRange(p, Pcsx2)
	if !ok {
		return process.NULL, false
	}
	is64, _ := emulator.Is64Bit(p, base)

	var slot process.Address
	if is64 {
		at, ok := pcsx2Sig64.Scan(p, base, size)
		if !ok {
			return process.NULL, false
		}
		if slot, ok = emulator.RelativeAddress(p, at.Add(3), 0); !ok {
			return process.NULL, false
		}
	} else {
		at, _, ok := emulator.ScanFirst(p, pcsx2Sig32, base, size)
		if !ok {
			return process.NULL, false
		}
		if slot, ok = emulator.ReadAddress32(p, at.Add(2)); !ok {
			return process.NULL, false
		}
	}

	ram, ok := emulator.ReadAddress(p, slot, is64)
	if !ok {
		return process.NULL, false
	}
	l.slot, l.is64 = slot, is64
	return ram, true
}

func (l *pcsx2) KeepAlive(p process.Process, ram *RAM) bool {
	if l.slot.IsNull() {
		return false
	}
	next, ok := emulator.ReadAddress(p, l.slot, l.is64)
	if !ok {
		return false
	}
	*ram = next
	return true
}

// retroarch needs the 64-bit LRPS2 core
type retroarch struct {
	core process.Address
}

func (l *retroarch) FindRAM(p process.Process) (RAM, bool) {
	main, ok := Processes.ModuleAddress(p, Retroarch)
	if !ok {
		return process.NULL, false
	}
	if is64, _ := emulator.Is64Bit(p, main); !is64 {
		return process.NULL, false
	}
	core, size, ok := Cores.ModuleRange(p, Retroarch)
	if !ok {
		return process.NULL, false
	}
	at, ok := retroarchSig.Scan(p, core, size)
	if !ok {
		return process.NULL, false
	}
	slot, ok := emulator.RelativeAddress(p, at.Add(3), 0)
	if !ok {
		return process.NULL, false
	}
	ram, ok := emulator.ReadAddress64(p, slot)
	if !ok || ram.IsNull() {
		return process.NULL, false
	}
	l.core = core
	return ram, true
}

func (l *retroarch) KeepAlive(p process.Process, _ *RAM) bool {
	if l.core.IsNull() {
		return false
	}
	_, err := process.Read[uint8](p, l.core)
	return err == nil
}

// Emulator is an attached PlayStation 2 emulator
type Emulator struct {
	*emulator.Console[RAM]
	backend Backend
}

var _ emulator.Target = (*Emulator)(nil)

func Attach(opener process.Opener) (*Emulator, bool) {
	p, entry, ok := Processes.Attach(opener)
	if !ok {
		return nil, false
	}
	return New(p, entry.Tag), true
}

func AttachProcess(p process.Process, name string) (*Emulator, bool) {
	entry, ok := Processes.Lookup(name)
	if !ok {
		return nil, false
	}
	return New(p, entry.Tag), true
}

func New(p process.Process, backend Backend) *Emulator {
	session := emulator.NewSession("ps2-"+backend.String(), p, newLocator(backend), process.Address.IsNull)
	return &Emulator{
		Console: emulator.NewConsole(session, addressMap, func(ram RAM, _ int) process.Address {
			return ram
		}),
		backend: backend,
	}
}

func (e *Emulator) Backend() Backend {
	return e.backend
}

func (e *Emulator) Describe() string {
	ram, ok := e.RAM()
	if !ok {
		return fmt.Sprintf("ps2/%s %s", e.backend, e.State())
	}
	return fmt.Sprintf("ps2/%s %s ram=%s", e.backend, e.State(), ram)
}

// Read reads a little-endian value at 0x00100000-0x01FFFFFF
func Read[T any](e *Emulator, offset uint32) (T, error) {
	return emulator.ReadConsole[T](e.Console, offset, process.Little)
}

func ReadPointerPath[T any](e *Emulator, base uint32, path ...uint32) (T, error) {
	addr, err := emulator.DerefConsole(e.Console, base, process.Little, path...)
	if err != nil {
		var zero T
		return zero, err
	}
	return Read[T](e, addr)
}
