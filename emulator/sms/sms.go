// Package sms attaches to SEGA Master System and Game Gear emulators.
//
// Work RAM is 8KB at 0xC000-0xDFFF. Every backend reports the host address
// of Z80 0xC000, so reads index it with offset-0xC000.
package sms

import (
	"fmt"

	"emuram/emulator"
	"emuram/process"
)

type Backend int

const (
	Retroarch Backend = iota
	Fusion
	BlastEm
	Mednafen
)

func (b Backend) String() string {
	switch b {
	case Retroarch:
		return "retroarch"
	case Fusion:
		return "fusion"
	case BlastEm:
		return "blastem"
	case Mednafen:
		return "mednafen"
	}
	return fmt.Sprintf("backend(%d)", int(b))
}

var Processes = emulator.NewRegistry(
	emulator.Entry[Backend]{Name: "retroarch.exe", Tag: Retroarch},
	emulator.Entry[Backend]{Name: "Fusion.exe", Tag: Fusion},
	emulator.Entry[Backend]{Name: "blastem.exe", Tag: BlastEm},
	emulator.Entry[Backend]{Name: "mednafen.exe", Tag: Mednafen},
)

type RAM = process.Address

var addressMap = emulator.AddressMap{
	{Name: "WRAM", Start: 0xC000, End: 0xE000},
}

func newLocator(b Backend) emulator.Locator[RAM] {
	switch b {
	case Retroarch:
		return &retroarch{}
	case Fusion:
		return &fusion{}
	case BlastEm:
		return &blastEm{}
	case Mednafen:
		return &mednafen{}
	}
	return nil
}

// Emulator is an attached Master System emulator
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
	session := emulator.NewSession("sms-"+backend.String(), p, newLocator(backend), process.Address.IsNull)
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
		return fmt.Sprintf("sms/%s %s", e.backend, e.State())
	}
	return fmt.Sprintf("sms/%s %s wram=%s", e.backend, e.State(), ram)
}

// Read reads a value from work RAM. Multi-byte values are little endian
// like the Z80.
func Read[T any](e *Emulator, offset uint32) (T, error) {
	return emulator.ReadConsole[T](e.Console, offset, process.Little)
}
