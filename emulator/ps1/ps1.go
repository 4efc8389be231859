// Package ps1 attaches to PlayStation emulators.
package ps1

import (
	"fmt"

	"emuram/emulator"
	"emuram/process"
)

type Backend int

const (
	Epsxe Backend = iota
	PsxFin
	Duckstation
	Retroarch
	PcsxRedux
	Xebra
	Mednafen
)

func (b Backend) String() string {
	switch b {
	case Epsxe:
		return "epsxe"
	case PsxFin:
		return "psxfin"
	case Duckstation:
		return "duckstation"
	case Retroarch:
		return "retroarch"
	case PcsxRedux:
		return "pcsx_redux"
	case Xebra:
		return "xebra"
	case Mednafen:
		return "mednafen"
	}
	return fmt.Sprintf("backend(%d)", int(b))
}

var Processes = emulator.NewRegistry(
	emulator.Entry[Backend]{Name: "ePSXe.exe", Tag: Epsxe},
	emulator.Entry[Backend]{Name: "psxfin.exe", Tag: PsxFin},
	emulator.Entry[Backend]{Name: "duckstation-qt-x64-ReleaseLTCG.exe", Tag: Duckstation},
	emulator.Entry[Backend]{Name: "duckstation-nogui-x64-ReleaseLTCG.exe", Tag: Duckstation},
	emulator.Entry[Backend]{Name: "retroarch.exe", Tag: Retroarch},
	emulator.Entry[Backend]{Name: "pcsx-redux.main", Tag: PcsxRedux},
	emulator.Entry[Backend]{Name: "XEBRA.EXE", Tag: Xebra},
	emulator.Entry[Backend]{Name: "mednafen.exe", Tag: Mednafen},
)

// RAM is the host address of main RAM
type RAM = process.Address

var addressMap = emulator.AddressMap{
	{Name: "RAM", Start: 0x80000000, End: 0x81800000},
}

func newLocator(b Backend) emulator.Locator[RAM] {
	switch b {
	case Epsxe:
		return &epsxe{}
	case PsxFin:
		return &psxFin{}
	case Duckstation:
		return &duckstation{}
	case Retroarch:
		return &retroarch{}
	case PcsxRedux:
		return &pcsxRedux{}
	case Xebra:
		return &xebra{}
	case Mednafen:
		return &mednafen{}
	}
	return nil
}

// Emulator is an attached PlayStation emulator
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
	session := emulator.NewSession("ps1-"+backend.String(), p, newLocator(backend), process.Address.IsNull)
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
		return fmt.Sprintf("ps1/%s %s", e.backend, e.State())
	}
	return fmt.Sprintf("ps1/%s %s ram=%s", e.backend, e.State(), ram)
}

// Read reads a little-endian value at 0x80000000-0x817FFFFF
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
