package gba

import (
	"emuram/emulator"
	"emuram/pe"
	"emuram/process"
	"emuram/signature"
)

var (
	vbaEWRAM64 = signature.MustParse("48 8B 05 ?? ?? ?? ?? 81 E3 FF FF 03 00")
	vbaIWRAM64 = signature.MustParse("48 8B 05 ?? ?? ?? ?? 81 E3 FF 7F 00 00")

	vbaRunning64    = signature.MustParse("83 3D ?? ?? ?? ?? 00 74 ?? 80 3D ?? ?? ?? ?? 00 75 ?? 66")
	vbaRunning64Alt = signature.MustParse("48 8B 15 ?? ?? ?? ?? 31 C0 8B 12 85 D2 74 ?? 48")

	vbaEWRAM32   = signature.MustParse("A1 ?? ?? ?? ?? 81 ?? FF FF 03 00")
	vbaIWRAM32   = signature.MustParse("A1 ?? ?? ?? ?? 81 ?? FF 7F 00 00")
	vbaRunning32 = signature.MustParseAll(
		"83 3D ?? ?? ?? ?? 00 74 ?? 80 3D ?? ?? ?? ?? 00 75 ?? 66",
		"8B 15 ?? ?? ?? ?? 31 C0 85 D2 74 ?? 0F",
	)

	// VisualBoyAdvance 1.8.0-beta 3
	vbaLegacy        = signature.MustParse("81 E6 FF FF 03 00 8B 15 ?? ?? ?? ??")
	vbaLegacyRunning = signature.MustParse("8B 0D ?? ?? ?? ?? 85 C9 74 ?? 8A")
)

// vba covers VisualBoyAdvance and VisualBoyAdvance-M. The emulator stops
// publishing RAM when no game runs, which KeepAlive reports as a null pair.
type vba struct {
	ewramPointer process.Address
	iwramPointer process.Address
	isEmulating  process.Address
	is64         bool
}

func (l *vba) FindRAM(p process.Process) (RAM, bool) {
	base, size, ok := Processes.ModuleRange(p, VisualBoyAdvance)
	if !ok {
		return RAM{}, false
	}
	machine, _ := pe.ReadMachineType(p, base)
	next := *l
	next.is64 = machine == pe.MachineAMD64

	if next.is64 {
		if !next.find64(p, base, size) {
			return RAM{}, false
		}
	} else if !next.find32(p, base, size) {
		return RAM{}, false
	}

	ewram, ok := emulator.ReadAddress(p, next.ewramPointer, next.is64)
	if !ok {
		return RAM{}, false
	}
	iwram, ok := emulator.ReadAddress(p, next.iwramPointer, next.is64)
	if !ok {
		return RAM{}, false
	}
	*l = next
	return RAM{ewram, iwram}, true
}

func (l *vba) find64(p process.Process, base process.Address, size uint64) bool {
	var ok bool
	if l.ewramPointer, ok = ramPointer64(p, vbaEWRAM64, base, size); !ok {
		return false
	}
	if l.iwramPointer, ok = ramPointer64(p, vbaIWRAM64, base, size); !ok {
		return false
	}

	if at, ok := vbaRunning64.Scan(p, base, size); ok {
		l.isEmulating, ok = emulator.RelativeAddress(p, at.Add(2), 1)
		return ok
	}
	at, ok := vbaRunning64Alt.Scan(p, base, size)
	if !ok {
		return false
	}
	slot, ok := emulator.RelativeAddress(p, at.Add(3), 0)
	if !ok {
		return false
	}
	l.isEmulating, ok = emulator.ReadAddress64(p, slot)
	return ok
}

func (l *vba) find32(p process.Process, base process.Address, size uint64) bool {
	var ok bool
	if at, found := vbaEWRAM32.Scan(p, base, size); found {
		if l.ewramPointer, ok = emulator.ReadAddress32(p, at.Add(1)); !ok {
			return false
		}
		at, found = vbaIWRAM32.Scan(p, base, size)
		if !found {
			return false
		}
		if l.iwramPointer, ok = emulator.ReadAddress32(p, at.Add(1)); !ok {
			return false
		}
		at, _, found = emulator.ScanFirst(p, vbaRunning32, base, size)
		if !found {
			return false
		}
		l.isEmulating, ok = emulator.ReadAddress32(p, at.Add(2))
		return ok
	}

	at, found := vbaLegacy.Scan(p, base, size)
	if !found {
		return false
	}
	if l.ewramPointer, ok = emulator.ReadAddress32(p, at.Add(8)); !ok {
		return false
	}
	l.iwramPointer = l.ewramPointer.Add(4)
	at, found = vbaLegacyRunning.Scan(p, base, size)
	if !found {
		return false
	}
	l.isEmulating, ok = emulator.ReadAddress32(p, at.Add(2))
	return ok
}

func (l *vba) KeepAlive(p process.Process, ram *RAM) bool {
	if l.isEmulating.IsNull() {
		return false
	}
	running, err := process.Read[uint8](p, l.isEmulating)
	if err != nil {
		return false
	}
	switch running {
	case 0:
		*ram = RAM{}
		return true
	case 1:
	default:
		return false
	}

	ewram, ok := emulator.ReadAddress(p, l.ewramPointer, l.is64)
	if !ok {
		return false
	}
	iwram, ok := emulator.ReadAddress(p, l.iwramPointer, l.is64)
	if !ok {
		return false
	}
	*ram = RAM{ewram, iwram}
	return true
}

// ramPointer64 resolves the "mov rax, [rip+disp]" at the start of s. When
// the following instruction is another REX.W load, the slot holds a pointer
// to the real slot and is followed once more.
func ramPointer64(p process.Process, s signature.Signature, base process.Address, size uint64) (process.Address, bool) {
	at, ok := s.Scan(p, base, size)
	if !ok {
		return process.NULL, false
	}
	disp := at.Add(3)
	slot, ok := emulator.RelativeAddress(p, disp, 0)
	if !ok {
		return process.NULL, false
	}
	rex, err := process.Read[uint8](p, disp.Add(10))
	if err != nil {
		return process.NULL, false
	}
	if rex == 0x48 {
		slot, ok = emulator.ReadAddress64(p, slot)
		if !ok || slot.IsNull() {
			return process.NULL, false
		}
	}
	return slot, true
}
