// Package gcn attaches to GameCube emulators. Emulated RAM is big-endian.
package gcn

import (
	"fmt"

	"emuram/emulator"
	"emuram/process"
	"emuram/process/memory_map"
)

type Backend int

const (
	Dolphin Backend = iota
	Retroarch
)

func (b Backend) String() string {
	switch b {
	case Dolphin:
		return "dolphin"
	case Retroarch:
		return "retroarch"
	}
	return fmt.Sprintf("backend(%d)", int(b))
}

var Processes = emulator.NewRegistry(
	emulator.Entry[Backend]{Name: "Dolphin.exe", Tag: Dolphin},
	emulator.Entry[Backend]{Name: "retroarch.exe", Tag: Retroarch},
)

// Cores lists the libretro cores that emulate a GameCube
var Cores = emulator.NewRegistry(
	emulator.Entry[Backend]{Name: "dolphin_libretro.dll", Tag: Retroarch},
)

// RAM is the host address of MEM1
type RAM = process.Address

const (
	mem1Size = 0x2000000

	// Every GameCube disc header carries this magic at offset 0x1C
	discMagic = 0xC2339F3D
)

var addressMap = emulator.AddressMap{
	{Name: "MEM1", Start: 0x80000000, End: 0x81800000},
}

// FindMEM1 returns the first 32 MiB RW mapping that holds the disc magic
func FindMEM1(p process.Process) (process.Address, bool) {
	r, ok := emulator.FindRange(p, func(r memory_map.MemoryRange) bool {
		if r.Size != mem1Size || !r.IsReadable() || !r.IsWritable() {
			return false
		}
		magic, err := process.ReadEndian[uint32](p, process.Address(r.Address).Add(0x1C), process.Big)
		return err == nil && magic == discMagic
	})
	if !ok {
		return process.NULL, false
	}
	return process.Address(r.Address), true
}

func newLocator(b Backend) emulator.Locator[RAM] {
	switch b {
	case Dolphin:
		return &dolphin{}
	case Retroarch:
		return &retroarch{}
	}
	return nil
}

// dolphin anchors liveness on MEM1 itself
type dolphin struct {
	found bool
}

func (l *dolphin) FindRAM(p process.Process) (RAM, bool) {
	ram, ok := FindMEM1(p)
	if ok {
		l.found = true
	}
	return ram, ok
}

func (l *dolphin) KeepAlive(p process.Process, ram *RAM) bool {
	if !l.found {
		return false
	}
	_, err := process.Read[uint8](p, *ram)
	return err == nil
}

// retroarch requires the 64-bit dolphin core; both the core image and MEM1
// must stay mapped
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
	core, ok := Cores.ModuleAddress(p, Retroarch)
	if !ok {
		return process.NULL, false
	}
	ram, ok := FindMEM1(p)
	if !ok {
		return process.NULL, false
	}
	l.core = core
	return ram, true
}

func (l *retroarch) KeepAlive(p process.Process, ram *RAM) bool {
	if l.core.IsNull() {
		return false
	}
	if _, err := process.Read[uint8](p, l.core); err != nil {
		return false
	}
	_, err := process.Read[uint8](p, *ram)
	return err == nil
}

// Emulator is an attached GameCube emulator
type Emulator struct {
	*emulator.Console[RAM]
	backend Backend
	endian  process.Endian
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
	session := emulator.NewSession("gcn-"+backend.String(), p, newLocator(backend), process.Address.IsNull)
	return &Emulator{
		Console: emulator.NewConsole(session, addressMap, func(ram RAM, _ int) process.Address {
			return ram
		}),
		backend: backend,
		endian:  process.Big,
	}
}

func (e *Emulator) Backend() Backend {
	return e.backend
}

func (e *Emulator) Describe() string {
	ram, ok := e.RAM()
	if !ok {
		return fmt.Sprintf("gcn/%s %s", e.backend, e.State())
	}
	return fmt.Sprintf("gcn/%s %s mem1=%s", e.backend, e.State(), ram)
}

// Read reads a big-endian value at a MEM1 address (0x80000000-0x817FFFFF)
func Read[T any](e *Emulator, offset uint32) (T, error) {
	return emulator.ReadConsole[T](e.Console, offset, e.endian)
}

// ReadIgnoringEndianness reads the raw bytes at offset in host order
func ReadIgnoringEndianness[T any](e *Emulator, offset uint32) (T, error) {
	return emulator.ReadConsole[T](e.Console, offset, process.Little)
}

func ReadPointerPath[T any](e *Emulator, base uint32, path ...uint32) (T, error) {
	addr, err := emulator.DerefConsole(e.Console, base, e.endian, path...)
	if err != nil {
		var zero T
		return zero, err
	}
	return Read[T](e, addr)
}
