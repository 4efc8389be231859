// Package genesis attaches to Sega Genesis / Mega Drive emulators. Work RAM
// is 64 KiB; its byte order depends on the emulator build and is decided
// during discovery.
package genesis

import (
	"fmt"

	"emuram/emulator"
	"emuram/process"
)

type Backend int

const (
	Retroarch Backend = iota
	SegaClassics
	Fusion
	Gens
	BlastEm
)

func (b Backend) String() string {
	switch b {
	case Retroarch:
		return "retroarch"
	case SegaClassics:
		return "segaclassics"
	case Fusion:
		return "fusion"
	case Gens:
		return "gens"
	case BlastEm:
		return "blastem"
	}
	return fmt.Sprintf("backend(%d)", int(b))
}

var Processes = emulator.NewRegistry(
	emulator.Entry[Backend]{Name: "retroarch.exe", Tag: Retroarch},
	emulator.Entry[Backend]{Name: "SEGAGameRoom.exe", Tag: SegaClassics},
	emulator.Entry[Backend]{Name: "SEGAGenesisClassics.exe", Tag: SegaClassics},
	emulator.Entry[Backend]{Name: "Fusion.exe", Tag: Fusion},
	emulator.Entry[Backend]{Name: "gens.exe", Tag: Gens},
	emulator.Entry[Backend]{Name: "blastem.exe", Tag: BlastEm},
)

// RAM is the host address of work RAM and the byte order it is stored in.
// Little-endian builds swap each 16-bit word, so single bytes sit at the
// neighbouring address.
type RAM struct {
	WRAM   process.Address
	Endian process.Endian
}

func (r RAM) String() string {
	return fmt.Sprintf("%s (%s)", r.WRAM, r.Endian)
}

func isNull(r RAM) bool {
	return r.WRAM.IsNull()
}

const wramSize = 0x10000

// Work RAM is visible at 0x0000-0xFFFF and mirrored at 0xFF0000-0xFFFFFF
var addressMap = emulator.AddressMap{
	{Name: "WRAM", Start: 0x0000, End: wramSize},
	{Name: "WRAM", Start: 0xFF0000, End: 0x1000000},
}

func newLocator(b Backend) emulator.Locator[RAM] {
	switch b {
	case Retroarch:
		return &retroarch{}
	case SegaClassics:
		return &segaClassics{}
	case Fusion:
		return &fusion{}
	case Gens:
		return &gens{}
	case BlastEm:
		return &blastEm{}
	}
	return nil
}

// Emulator is an attached Genesis emulator
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
	session := emulator.NewSession("genesis-"+backend.String(), p, newLocator(backend), isNull)
	return &Emulator{
		Console: emulator.NewConsole(session, addressMap, func(ram RAM, _ int) process.Address {
			return ram.WRAM
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
		return fmt.Sprintf("genesis/%s %s", e.backend, e.State())
	}
	return fmt.Sprintf("genesis/%s %s wram=%s", e.backend, e.State(), ram)
}

// Read reads a value at a work RAM address (0x0000-0xFFFF or
// 0xFF0000-0xFFFFFF), fixing up the emulator's byte order.
func Read[T any](e *Emulator, offset uint32) (T, error) {
	var zero T
	ram, ok := e.RAM()
	if !ok {
		return zero, emulator.ErrNotAttached
	}
	size := emulator.SizeOf[T]()
	if size < 0 {
		return zero, fmt.Errorf("read %T: type has no fixed size", zero)
	}
	if ram.Endian == process.Little && size == 1 {
		offset ^= 1
	}
	addr, err := e.HostAddress(offset, size)
	if err != nil {
		return zero, err
	}
	return process.ReadEndian[T](e.Process(), addr, ram.Endian)
}

// ReadIgnoringEndianness reads raw host-order bytes at 0x0000-0xFFFF
func ReadIgnoringEndianness[T any](e *Emulator, offset uint32) (T, error) {
	if offset >= wramSize {
		var zero T
		return zero, fmt.Errorf("0x%x: %w", offset, emulator.ErrAddressOutOfRange)
	}
	return emulator.ReadConsole[T](e.Console, offset, process.Little)
}
