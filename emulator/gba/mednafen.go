package gba

import (
	"emuram/emulator"
	"emuram/pe"
	"emuram/process"
	"emuram/signature"
)

var (
	mednafenEWRAM64 = signature.MustParse("48 8B 05 ?? ?? ?? ?? 81 E1 FF FF 03 00")
	mednafenIWRAM64 = signature.MustParse("48 8B 05 ?? ?? ?? ?? 81 E1 FF 7F 00 00")
)

type mednafen struct {
	ewramPointer process.Address
	iwramPointer process.Address
	is64         bool
}

func (l *mednafen) FindRAM(p process.Process) (RAM, bool) {
	base, size, ok := Processes.ModuleRange(p, Mednafen)
	if !ok {
		return RAM{}, false
	}
	machine, _ := pe.ReadMachineType(p, base)
	next := mednafen{is64: machine == pe.MachineAMD64}

	if next.is64 {
		if next.ewramPointer, ok = ramPointer64(p, mednafenEWRAM64, base, size); !ok {
			return RAM{}, false
		}
		if next.iwramPointer, ok = ramPointer64(p, mednafenIWRAM64, base, size); !ok {
			return RAM{}, false
		}
	} else {
		if next.ewramPointer, ok = ramPointer32(p, vbaEWRAM32, base, size); !ok {
			return RAM{}, false
		}
		if next.iwramPointer, ok = ramPointer32(p, vbaIWRAM32, base, size); !ok {
			return RAM{}, false
		}
	}

	var ram RAM
	if !next.KeepAlive(p, &ram) {
		return RAM{}, false
	}
	*l = next
	return ram, true
}

func (l *mednafen) KeepAlive(p process.Process, ram *RAM) bool {
	if l.ewramPointer.IsNull() {
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

// ramPointer32 reads the absolute slot address from a "mov eax, [imm32]"
func ramPointer32(p process.Process, s signature.Signature, base process.Address, size uint64) (process.Address, bool) {
	at, ok := s.Scan(p, base, size)
	if !ok {
		return process.NULL, false
	}
	return emulator.ReadAddress32(p, at.Add(1))
}
