package gba

import (
	"emuram/emulator"
	"emuram/process"
	"emuram/process/memory_map"
)

// mGBA allocates EWRAM and IWRAM in one 0x48000-byte block
const mgbaBlockSize = 0x48000

func findMGBABlock(p process.Process) (RAM, bool) {
	r, ok := emulator.FindRange(p, func(r memory_map.MemoryRange) bool {
		return r.Size == mgbaBlockSize && r.IsReadable() && r.IsWritable()
	})
	if !ok {
		return RAM{}, false
	}
	base := process.Address(r.Address)
	return RAM{base, base.Add(0x40000)}, true
}

type mgba struct {
	found bool
}

func (l *mgba) FindRAM(p process.Process) (RAM, bool) {
	ram, ok := findMGBABlock(p)
	if ok {
		l.found = true
	}
	return ram, ok
}

func (l *mgba) KeepAlive(p process.Process, ram *RAM) bool {
	if !l.found {
		return false
	}
	_, err := process.Read[uint8](p, ram[0])
	return err == nil
}
