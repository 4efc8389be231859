// Package gba attaches to Game Boy Advance emulators and maps EWRAM and
// IWRAM addresses into the emulator's memory.
package gba

import (
	"fmt"

	"emuram/emulator"
	"emuram/process"
)

// Backend identifies a supported emulator build
type Backend int

const (
	VisualBoyAdvance Backend = iota
	MGBA
	NoCashGBA
	Retroarch
	EmuHawk
	Mednafen
)

func (b Backend) String() string {
	switch b {
	case VisualBoyAdvance:
		return "vba"
	case MGBA:
		return "mgba"
	case NoCashGBA:
		return "nocashgba"
	case Retroarch:
		return "retroarch"
	case EmuHawk:
		return "emuhawk"
	case Mednafen:
		return "mednafen"
	}
	return fmt.Sprintf("backend(%d)", int(b))
}

// Processes is the attach table, in priority order
var Processes = emulator.NewRegistry(
	emulator.Entry[Backend]{Name: "visualboyadvance-m.exe", Tag: VisualBoyAdvance},
	emulator.Entry[Backend]{Name: "VisualBoyAdvance.exe", Tag: VisualBoyAdvance},
	emulator.Entry[Backend]{Name: "mGBA.exe", Tag: MGBA},
	emulator.Entry[Backend]{Name: "NO$GBA.EXE", Tag: NoCashGBA},
	emulator.Entry[Backend]{Name: "retroarch.exe", Tag: Retroarch},
	emulator.Entry[Backend]{Name: "EmuHawk.exe", Tag: EmuHawk},
	emulator.Entry[Backend]{Name: "mednafen.exe", Tag: Mednafen},
)

// RAM holds the host addresses of EWRAM and IWRAM, in that order
type RAM = [2]process.Address

func isNull(r RAM) bool {
	return r[0].IsNull() && r[1].IsNull()
}

// Memory map, indexed like RAM
var addressMap = emulator.AddressMap{
	{Name: "EWRAM", Start: 0x02000000, End: 0x02040000},
	{Name: "IWRAM", Start: 0x03000000, End: 0x03008000},
}

func newLocator(b Backend) emulator.Locator[RAM] {
	switch b {
	case VisualBoyAdvance:
		return &vba{}
	case MGBA:
		return &mgba{}
	case NoCashGBA:
		return &noCashGBA{}
	case Retroarch:
		return &retroarch{}
	case EmuHawk:
		return &emuHawk{}
	case Mednafen:
		return &mednafen{}
	}
	return nil
}

// Emulator is an attached GBA emulator
type Emulator struct {
	*emulator.Console[RAM]
	backend Backend
}

var _ emulator.Target = (*Emulator)(nil)

// Attach opens the first running emulator from Processes
func Attach(opener process.Opener) (*Emulator, bool) {
	p, entry, ok := Processes.Attach(opener)
	if !ok {
		return nil, false
	}
	return New(p, entry.Tag), true
}

// AttachProcess binds an already opened process, picking the backend by
// executable name
func AttachProcess(p process.Process, name string) (*Emulator, bool) {
	entry, ok := Processes.Lookup(name)
	if !ok {
		return nil, false
	}
	return New(p, entry.Tag), true
}

// New binds p to a fresh locator for backend
func New(p process.Process, backend Backend) *Emulator {
	session := emulator.NewSession("gba-"+backend.String(), p, newLocator(backend), isNull)
	return &Emulator{
		Console: emulator.NewConsole(session, addressMap, func(ram RAM, region int) process.Address {
			return ram[region]
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
		return fmt.Sprintf("gba/%s %s", e.backend, e.State())
	}
	return fmt.Sprintf("gba/%s %s ewram=%s iwram=%s", e.backend, e.State(), ram[0], ram[1])
}

// Read reads a value at a GBA bus address: 0x02000000-0x0203FFFF for EWRAM
// or 0x03000000-0x03007FFF for IWRAM. The whole value must fit inside one
// region.
func Read[T any](e *Emulator, offset uint32) (T, error) {
	return emulator.ReadConsole[T](e.Console, offset, process.Little)
}

// ReadPointerPath follows 32-bit GBA pointers from base and reads a T where
// the path ends
func ReadPointerPath[T any](e *Emulator, base uint32, path ...uint32) (T, error) {
	addr, err := emulator.DerefConsole(e.Console, base, process.Little, path...)
	if err != nil {
		var zero T
		return zero, err
	}
	return Read[T](e, addr)
}
