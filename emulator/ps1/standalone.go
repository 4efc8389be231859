package ps1

import (
	"emuram/emulator"
	"emuram/pe"
	"emuram/process"
	"emuram/signature"
)

var epsxeSig = signature.MustParse("C1 E1 10 8D 89")

// epsxe embeds the RAM address as an immediate; it never moves
type epsxe struct {
	found bool
}

func (l *epsxe) FindRAM(p process.Process) (RAM, bool) {
	base, size, ok := Processes.ModuleRange(p, Epsxe)
	if !ok {
		return process.NULL, false
	}
	at, ok := epsxeSig.Scan(p, base, size)
	if !ok {
		return process.NULL, false
	}
	ram, ok := emulator.ReadAddress32(p, at.Add(5))
	if !ok {
		return process.NULL, false
	}
	l.found = true
	return ram, true
}

func (l *epsxe) KeepAlive(process.Process, *RAM) bool {
	return l.found
}

// psxfin signatures, newest build first, with the offset of the slot address
var psxFinSigs = []struct {
	sig    signature.Signature
	offset uint64
}{
	{signature.MustParse("8B 15 ?? ?? ?? ?? 8D 34 1A"), 2}, // v1.13
	{signature.MustParse("A1 ?? ?? ?? ?? 8D 34 18"), 1},    // v1.12
	{signature.MustParse("A1 ?? ?? ?? ?? 8B 7C 24 14"), 1}, // v1.5 - v1.11
	{signature.MustParse("A1 ?? ?? ?? ?? 8B 6C 24"), 1},    // v1.0 - v1.4
}

type psxFin struct {
	found bool
}

func (l *psxFin) FindRAM(p process.Process) (RAM, bool) {
	base, size, ok := Processes.ModuleRange(p, PsxFin)
	if !ok {
		return process.NULL, false
	}
	for _, s := range psxFinSigs {
		at, ok := s.sig.Scan(p, base, size)
		if !ok {
			continue
		}
		slot, ok := emulator.ReadAddress32(p, at.Add(s.offset))
		if !ok {
			return process.NULL, false
		}
		ram, ok := emulator.ReadAddress32(p, slot)
		if !ok || ram.IsNull() {
			return process.NULL, false
		}
		l.found = true
		return ram, true
	}
	return process.NULL, false
}

func (l *psxFin) KeepAlive(process.Process, *RAM) bool {
	return l.found
}

var duckstationSig = signature.MustParse("48 89 0D ?? ?? ?? ?? B8")

// duckstation publishes RAM through a global that is null while no game
// is booted; a null refresh keeps the session alive
type duckstation struct {
	slot process.Address
}

func (l *duckstation) FindRAM(p process.Process) (RAM, bool) {
	base, size, ok := Processes.ModuleRange(p, Duckstation)
	if !ok {
		return process.NULL, false
	}
	at, ok := duckstationSig.Scan(p, base, size)
	if !ok {
		return process.NULL, false
	}
	slot, ok := emulator.RelativeAddress(p, at.Add(3), 0)
	if !ok {
		return process.NULL, false
	}
	ram, ok := emulator.ReadAddress64(p, slot)
	if !ok {
		return process.NULL, false
	}
	l.slot = slot
	return ram, true
}

func (l *duckstation) KeepAlive(p process.Process, ram *RAM) bool {
	if l.slot.IsNull() {
		return false
	}
	next, ok := emulator.ReadAddress64(p, l.slot)
	if !ok {
		return false
	}
	*ram = next
	return true
}

var xebraSig = signature.MustParse("E8 ?? ?? ?? ?? E9 ?? ?? ?? ?? 89 C8 C1 F8 10")

// Offset from the start of xebra's memory routine to its RAM slot operand
const xebraSlot = 0x16A

type xebra struct {
	found bool
}

func (l *xebra) FindRAM(p process.Process) (RAM, bool) {
	base, size, ok := Processes.ModuleRange(p, Xebra)
	if !ok {
		return process.NULL, false
	}
	at, ok := xebraSig.Scan(p, base, size)
	if !ok {
		return process.NULL, false
	}
	fn, ok := emulator.RelativeAddress(p, at.Add(1), 0)
	if !ok {
		return process.NULL, false
	}
	slot, ok := emulator.ReadAddress32(p, fn.Add(xebraSlot))
	if !ok {
		return process.NULL, false
	}
	ram, ok := emulator.ReadAddress32(p, slot)
	if !ok {
		return process.NULL, false
	}
	l.found = true
	return ram, true
}

func (l *xebra) KeepAlive(process.Process, *RAM) bool {
	return l.found
}

var (
	mednafen32 = signature.MustParse("89 01 0F B6 82 ?? ?? ?? ?? C3")
	mednafen64 = signature.MustParse("89 01 0F B6 82")
)

type mednafen struct {
	found bool
}

func (l *mednafen) FindRAM(p process.Process) (RAM, bool) {
	base, size, ok := Processes.ModuleRange(p, Mednafen)
	if !ok {
		return process.NULL, false
	}
	machine, _ := pe.ReadMachineType(p, base)
	sig := mednafen32
	if machine == pe.MachineAMD64 {
		sig = mednafen64
	}
	at, ok := sig.Scan(p, base, size)
	if !ok {
		return process.NULL, false
	}
	// movzx eax, byte ptr [edx+disp32]: the displacement is the RAM address
	ram, ok := emulator.ReadAddress32(p, at.Add(5))
	if !ok {
		return process.NULL, false
	}
	l.found = true
	return ram, true
}

func (l *mednafen) KeepAlive(process.Process, *RAM) bool {
	return l.found
}
