// Package wii attaches to Wii emulators. MEM1 and MEM2 are located
// separately; emulated RAM is big-endian.
package wii

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

var Cores = emulator.NewRegistry(
	emulator.Entry[Backend]{Name: "dolphin_libretro.dll", Tag: Retroarch},
)

// RAM holds the host addresses of MEM1 and MEM2, in that order
type RAM = [2]process.Address

const (
	mem1Size = 0x2000000
	mem2Size = 0x4000000

	// The IOS writes the MEM2 size twice at MEM1+0x3118
	mem2SizeSlot = 0x3118

	// MEM2 is mapped within this distance after MEM1
	mem2Window = 0x10000000
)

var addressMap = emulator.AddressMap{
	{Name: "MEM1", Start: 0x80000000, End: 0x81800000},
	{Name: "MEM2", Start: 0x90000000, End: 0x94000000},
}

// FindMEM locates both Wii memory banks
func FindMEM(p process.Process) (RAM, bool) {
	ranges, err := p.MemoryRanges()
	if err != nil {
		return RAM{}, false
	}

	var mem1 process.Address
	for _, r := range ranges {
		if r.Size != mem1Size || !isRW(r) {
			continue
		}
		sizes, err := process.ReadEndian[[2]uint32](p, process.Address(r.Address).Add(mem2SizeSlot), process.Big)
		if err == nil && sizes == [2]uint32{mem2Size, mem2Size} {
			mem1 = process.Address(r.Address)
			break
		}
	}
	if mem1.IsNull() {
		return RAM{}, false
	}

	for _, r := range ranges {
		addr := process.Address(r.Address)
		if r.Size == mem2Size && isRW(r) && addr > mem1 && addr < mem1.Add(mem2Window) {
			return RAM{mem1, addr}, true
		}
	}
	return RAM{}, false
}

func isRW(r memory_map.MemoryRange) bool {
	return r.IsReadable() && r.IsWritable()
}

func banksMapped(p process.Process, ram RAM) bool {
	for _, bank := range ram {
		if _, err := process.Read[uint8](p, bank); err != nil {
			return false
		}
	}
	return true
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

type dolphin struct {
	found bool
}

func (l *dolphin) FindRAM(p process.Process) (RAM, bool) {
	ram, ok := FindMEM(p)
	if ok {
		l.found = true
	}
	return ram, ok
}

func (l *dolphin) KeepAlive(p process.Process, ram *RAM) bool {
	return l.found && banksMapped(p, *ram)
}

type retroarch struct {
	core process.Address
}

func (l *retroarch) FindRAM(p process.Process) (RAM, bool) {
	main, ok := Processes.ModuleAddress(p, Retroarch)
	if !ok {
		return RAM{}, false
	}
	// the dolphin core only ships as 64-bit
	if is64, _ := emulator.Is64Bit(p, main); !is64 {
		return RAM{}, false
	}
	core, ok := Cores.ModuleAddress(p, Retroarch)
	if !ok {
		return RAM{}, false
	}
	ram, ok := FindMEM(p)
	if !ok {
		return RAM{}, false
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
	return banksMapped(p, *ram)
}

// Emulator is an attached Wii emulator
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
	isNull := func(r RAM) bool { return r[0].IsNull() && r[1].IsNull() }
	session := emulator.NewSession("wii-"+backend.String(), p, newLocator(backend), isNull)
	return &Emulator{
		Console: emulator.NewConsole(session, addressMap, func(ram RAM, region int) process.Address {
			return ram[region]
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
		return fmt.Sprintf("wii/%s %s", e.backend, e.State())
	}
	return fmt.Sprintf("wii/%s %s mem1=%s mem2=%s", e.backend, e.State(), ram[0], ram[1])
}

// Read reads a big-endian value at 0x80000000-0x817FFFFF (MEM1) or
// 0x90000000-0x93FFFFFF (MEM2)
func Read[T any](e *Emulator, offset uint32) (T, error) {
	return emulator.ReadConsole[T](e.Console, offset, e.endian)
}

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
