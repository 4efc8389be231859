package genesis

import (
	"emuram/emulator"
	"emuram/process"
	"emuram/process/memory_map"
	"emuram/signature"
)

type core int

const (
	coreBlastEm core = iota
	coreGenesisPlusGX
	corePicoDrive
)

var Cores = emulator.NewRegistry(
	emulator.Entry[core]{Name: "blastem_libretro.dll", Tag: coreBlastEm},
	emulator.Entry[core]{Name: "genesis_plus_gx_libretro.dll", Tag: coreGenesisPlusGX},
	emulator.Entry[core]{Name: "genesis_plus_gx_wide_libretro.dll", Tag: coreGenesisPlusGX},
	emulator.Entry[core]{Name: "picodrive_libretro.dll", Tag: corePicoDrive},
)

var (
	gpgx64 = signature.MustParse("48 8D 0D ?? ?? ?? ?? 4C 8B 2D")
	gpgx32 = signature.MustParse("A3 ?? ?? ?? ?? 29 F9")

	picoDrive64 = signature.MustParse("48 8D 0D ?? ?? ?? ?? 41 B8")
	picoDrive32 = signature.MustParse("B9 ?? ?? ?? ?? C1 EF 10")
)

type retroarch struct {
	core process.Address
}

func (l *retroarch) FindRAM(p process.Process) (RAM, bool) {
	main, ok := Processes.ModuleAddress(p, Retroarch)
	if !ok {
		return RAM{}, false
	}
	is64, _ := emulator.Is64Bit(p, main)

	entry, base, size, ok := Cores.FindModule(p)
	if !ok {
		return RAM{}, false
	}

	var wram process.Address
	switch entry.Tag {
	case coreBlastEm:
		wram, ok = findBlastEmWRAM(p, true)
	case coreGenesisPlusGX:
		wram, ok = emulator.LeaOrImm32(p, base, size, is64, gpgx64, gpgx32)
	case corePicoDrive:
		wram, ok = emulator.LeaOrImm32(p, base, size, is64, picoDrive64, picoDrive32)
	}
	if !ok {
		return RAM{}, false
	}
	l.core = base
	return RAM{WRAM: wram, Endian: process.Little}, true
}

func (l *retroarch) KeepAlive(p process.Process, _ *RAM) bool {
	if l.core.IsNull() {
		return false
	}
	_, err := process.Read[uint8](p, l.core)
	return err == nil
}

var blastEmSig = signature.MustParse("72 0E 81 E1 FF FF 00 00 66 8B 89 ?? ?? ?? ?? C3")

// BlastEm's JIT lives in a 0x101000-byte writable mapping; its word-read
// helper embeds the work RAM address
const blastEmJITSize = 0x101000

func findBlastEmWRAM(p process.Process, chunked bool) (process.Address, bool) {
	ranges := emulator.FindRanges(p, func(r memory_map.MemoryRange) bool {
		return r.IsWritable() && r.Size == blastEmJITSize
	})
	for _, r := range ranges {
		var at process.Address
		var ok bool
		if chunked {
			at, ok = blastEmSig.Scan(p, process.Address(r.Address), r.Size)
		} else {
			at, ok = blastEmSig.ScanOnce(p, process.Address(r.Address), r.Size)
		}
		if ok {
			return emulator.ReadAddress32(p, at.Add(11))
		}
	}
	return process.NULL, false
}
