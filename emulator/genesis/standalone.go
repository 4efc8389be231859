package genesis

import (
	"emuram/emulator"
	"emuram/process"
	"emuram/signature"
)

var (
	gameRoomSig     = signature.MustParse("C7 05 ???????? ???????? A3 ???????? A3")
	segaClassicsSig = signature.MustParse("89 2D ???????? 89 0D")
)

const genesisWrapper = "GenesisEmuWrapper.dll"

// segaClassics reads work RAM through a pointer slot that the emulator
// rewrites when a game loads
type segaClassics struct {
	slot process.Address
}

func (l *segaClassics) FindRAM(p process.Process) (RAM, bool) {
	var at process.Address
	if base, size, err := p.GetModuleRange(genesisWrapper); err == nil {
		hit, ok := gameRoomSig.ScanOnce(p, base, size)
		if !ok {
			return RAM{}, false
		}
		at = hit.Add(2)
	} else {
		base, size, ok := Processes.ModuleRange(p, SegaClassics)
		if !ok {
			return RAM{}, false
		}
		hit, ok := segaClassicsSig.ScanOnce(p, base, size)
		if !ok {
			return RAM{}, false
		}
		at = hit.Add(8)
	}

	slot, ok := emulator.ReadAddress32(p, at)
	if !ok {
		return RAM{}, false
	}
	wram, ok := emulator.ReadAddress32(p, slot)
	if !ok {
		return RAM{}, false
	}
	l.slot = slot
	return RAM{WRAM: wram, Endian: process.Little}, true
}

func (l *segaClassics) KeepAlive(p process.Process, ram *RAM) bool {
	return refreshSlot(p, l.slot, ram)
}

var fusionSig = signature.MustParse("75 2F 6A 01")

// fusion stores work RAM big-endian
type fusion struct {
	slot process.Address
}

func (l *fusion) FindRAM(p process.Process) (RAM, bool) {
	base, size, ok := Processes.ModuleRange(p, Fusion)
	if !ok {
		return RAM{}, false
	}
	hit, ok := fusionSig.Scan(p, base, size)
	if !ok {
		return RAM{}, false
	}
	// the jnz skips to a push of the slot address
	jump := hit.Add(1)
	rel, err := process.Read[uint8](p, jump)
	if err != nil {
		return RAM{}, false
	}
	slot, ok := emulator.ReadAddress32(p, jump.Add(uint64(rel)+3))
	if !ok {
		return RAM{}, false
	}
	wram, ok := emulator.ReadAddress32(p, slot)
	if !ok {
		return RAM{}, false
	}
	l.slot = slot
	return RAM{WRAM: wram, Endian: process.Big}, true
}

func (l *fusion) KeepAlive(p process.Process, ram *RAM) bool {
	return refreshSlot(p, l.slot, ram)
}

func refreshSlot(p process.Process, slot process.Address, ram *RAM) bool {
	if slot.IsNull() {
		return false
	}
	wram, ok := emulator.ReadAddress32(p, slot)
	if !ok {
		return false
	}
	ram.WRAM = wram
	return true
}

var gensSig = signature.MustParse("72 ?? 81 ?? FF FF 00 00 66 8B")

// gens embeds the work RAM address in its read helper, which never moves
type gens struct {
	found bool
}

func (l *gens) FindRAM(p process.Process) (RAM, bool) {
	base, size, ok := Processes.ModuleRange(p, Gens)
	if !ok {
		return RAM{}, false
	}
	hit, ok := gensSig.Scan(p, base, size)
	if !ok {
		return RAM{}, false
	}
	at := hit.Add(11)

	// a following xchg (86) means the build swaps bytes on access
	op, err := process.Read[uint8](p, at.Add(4))
	if err != nil {
		return RAM{}, false
	}
	endian := process.Little
	if op == 0x86 {
		endian = process.Big
	}

	wram, ok := emulator.ReadAddress32(p, at)
	if !ok {
		return RAM{}, false
	}
	l.found = true
	return RAM{WRAM: wram, Endian: endian}, true
}

func (l *gens) KeepAlive(process.Process, *RAM) bool {
	return l.found
}

// blastEm finds work RAM in its JIT mapping; the address is fixed for the
// life of the process
type blastEm struct {
	found bool
}

func (l *blastEm) FindRAM(p process.Process) (RAM, bool) {
	wram, ok := findBlastEmWRAM(p, false)
	if !ok {
		return RAM{}, false
	}
	l.found = true
	return RAM{WRAM: wram, Endian: process.Little}, true
}

func (l *blastEm) KeepAlive(process.Process, *RAM) bool {
	return l.found
}
