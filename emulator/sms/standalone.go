package sms

import (
	"emuram/emulator"
	"emuram/process"
	"emuram/process/memory_map"
	"emuram/signature"
)

// fullMapOffset converts a pointer to a 64KB Z80 address space into the
// host address of 0xC000
const fullMapOffset = 0xC000

var fusionSig = signature.MustParse("74 C8 83 3D")

// fusion keeps the Z80 memory pointer in a global that is null between games
type fusion struct {
	slot process.Address
}

func (l *fusion) FindRAM(p process.Process) (RAM, bool) {
	base, size, ok := Processes.ModuleRange(p, Fusion)
	if !ok {
		return process.NULL, false
	}
	at, ok := fusionSig.ScanOnce(p, base, size)
	if !ok {
		return process.NULL, false
	}
	slot, ok := emulator.ReadAddress32(p, at.Add(4))
	if !ok {
		return process.NULL, false
	}
	var ram RAM
	if !refreshFusion(p, slot, &ram) {
		return process.NULL, false
	}
	l.slot = slot
	return ram, true
}

func (l *fusion) KeepAlive(p process.Process, ram *RAM) bool {
	if l.slot.IsNull() {
		return false
	}
	return refreshFusion(p, l.slot, ram)
}

func refreshFusion(p process.Process, slot process.Address, ram *RAM) bool {
	mem, ok := emulator.ReadAddress32(p, slot)
	if !ok {
		return false
	}
	if mem.IsNull() {
		*ram = process.NULL
	} else {
		*ram = mem.Add(fullMapOffset)
	}
	return true
}

var blastEmSig = signature.MustParse("66 81 E1 FF 1F 0F B7 C9 8A 89 ?? ?? ?? ?? C3")

const blastEmJITSize = 0x101000

// blastEm finds the byte-read helper BlastEm emits into its JIT buffer. The
// address never moves once found.
type blastEm struct {
	found bool
}

func (l *blastEm) FindRAM(p process.Process) (RAM, bool) {
	ranges := emulator.FindRanges(p, func(r memory_map.MemoryRange) bool {
		return r.IsWritable() && r.Size == blastEmJITSize
	})
	at, _, ok := emulator.ScanRanges(p, blastEmSig, ranges)
	if !ok {
		return process.NULL, false
	}
	wram, ok := emulator.ReadAddress32(p, at.Add(10))
	if !ok || wram.IsNull() {
		return process.NULL, false
	}
	l.found = true
	return wram, true
}

func (l *blastEm) KeepAlive(process.Process, *RAM) bool {
	return l.found
}

var (
	mednafenSig32 = signature.MustParse("25 FF 1F 00 00 0F B6 80")
	mednafenSig64 = signature.MustParse("25 FF 1F 00 00 88 90")
)

type mednafen struct {
	found bool
}

func (l *mednafen) FindRAM(p process.Process) (RAM, bool) {
	base, size, ok := Processes.ModuleRange(p, Mednafen)
	if !ok {
		return process.NULL, false
	}
	is64, _ := emulator.Is64Bit(p, base)

	// and eax, 0x1FFF followed by a [rax+disp32] access to the work RAM array
	var disp process.Address
	if is64 {
		at, ok := mednafenSig64.Scan(p, base, size)
		if !ok {
			return process.NULL, false
		}
		disp = at.Add(7)
	} else {
		at, ok := mednafenSig32.Scan(p, base, size)
		if !ok {
			return process.NULL, false
		}
		disp = at.Add(8)
	}
	wram, ok := emulator.ReadAddress32(p, disp)
	if !ok {
		return process.NULL, false
	}
	l.found = true
	return wram, true
}

func (l *mednafen) KeepAlive(process.Process, *RAM) bool {
	return l.found
}
