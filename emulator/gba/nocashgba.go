package gba

import (
	"emuram/emulator"
	"emuram/process"
	"emuram/signature"
)

var noCashGBASig = signature.MustParse("FF 35 ?? ?? ?? ?? 55")

// Offsets from the emulator's state block to the RAM pointers
const (
	noCashEWRAM = 0x938C + 0x8
	noCashIWRAM = 0x95D4
)

type noCashGBA struct {
	basePointer process.Address
}

func (l *noCashGBA) FindRAM(p process.Process) (RAM, bool) {
	base, size, ok := Processes.ModuleRange(p, NoCashGBA)
	if !ok {
		return RAM{}, false
	}
	at, ok := noCashGBASig.ScanOnce(p, base, size)
	if !ok {
		return RAM{}, false
	}
	basePointer, ok := emulator.ReadAddress32(p, at.Add(2))
	if !ok {
		return RAM{}, false
	}
	ram, ok := readNoCash(p, basePointer)
	if !ok {
		return RAM{}, false
	}
	l.basePointer = basePointer
	return ram, true
}

func (l *noCashGBA) KeepAlive(p process.Process, ram *RAM) bool {
	if l.basePointer.IsNull() {
		return false
	}
	next, ok := readNoCash(p, l.basePointer)
	if !ok {
		return false
	}
	*ram = next
	return true
}

func readNoCash(p process.Process, basePointer process.Address) (RAM, bool) {
	state, ok := emulator.ReadAddress32(p, basePointer)
	if !ok {
		return RAM{}, false
	}
	ewram, ok := emulator.ReadAddress32(p, state.Add(noCashEWRAM))
	if !ok {
		return RAM{}, false
	}
	iwram, ok := emulator.ReadAddress32(p, state.Add(noCashIWRAM))
	if !ok {
		return RAM{}, false
	}
	return RAM{ewram, iwram}, true
}
