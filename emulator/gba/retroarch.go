package gba

import (
	"emuram/emulator"
	"emuram/process"
	"emuram/signature"
)

type core int

const (
	coreVBA core = iota
	coreMGBA
	coreGPSP
)

// Cores lists the libretro cores the retroarch backend understands
var Cores = emulator.NewRegistry(
	emulator.Entry[core]{Name: "vbam_libretro.dll", Tag: coreVBA},
	emulator.Entry[core]{Name: "mednafen_gba_libretro.dll", Tag: coreVBA},
	emulator.Entry[core]{Name: "vba_next_libretro.dll", Tag: coreVBA},
	emulator.Entry[core]{Name: "mgba_libretro.dll", Tag: coreMGBA},
	emulator.Entry[core]{Name: "gpsp_libretro.dll", Tag: coreGPSP},
)

var (
	retroVBAEWRAM64 = mednafenEWRAM64
	retroVBAIWRAM64 = mednafenIWRAM64

	gpspEWRAM  = signature.MustParse("25 FF FF 03 00 88 94 03")
	gpspIWRAM  = signature.MustParse("25 FE 7F 00 00 66 89 94 03")
	gpspBase64 = signature.MustParse("48 8B 15 ?? ?? ?? ?? 8B 42 40")
	gpspBase32 = signature.MustParse("A3 ?? ?? ?? ?? F7 C5 02 00 00 00")
)

// retroarch resolves RAM once per loaded core. The core image staying
// mapped is the only liveness check; a core swap unmaps it.
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

	var ram RAM
	switch entry.Tag {
	case coreVBA:
		ram, ok = retroarchVBA(p, base, size, is64)
	case coreMGBA:
		ram, ok = findMGBABlock(p)
	case coreGPSP:
		ram, ok = retroarchGPSP(p, base, size, is64)
	}
	if !ok {
		return RAM{}, false
	}
	l.core = base
	return ram, true
}

func (l *retroarch) KeepAlive(p process.Process, _ *RAM) bool {
	if l.core.IsNull() {
		return false
	}
	_, err := process.Read[uint8](p, l.core)
	return err == nil
}

func retroarchVBA(p process.Process, base process.Address, size uint64, is64 bool) (RAM, bool) {
	var ewramPointer, iwramPointer process.Address
	var ok bool
	if is64 {
		if ewramPointer, ok = ramPointer64(p, retroVBAEWRAM64, base, size); !ok {
			return RAM{}, false
		}
		if iwramPointer, ok = ramPointer64(p, retroVBAIWRAM64, base, size); !ok {
			return RAM{}, false
		}
	} else {
		if ewramPointer, ok = ramPointer32(p, vbaEWRAM32, base, size); !ok {
			return RAM{}, false
		}
		if iwramPointer, ok = ramPointer32(p, vbaIWRAM32, base, size); !ok {
			return RAM{}, false
		}
	}

	ewram, ok := emulator.ReadAddress(p, ewramPointer, is64)
	if !ok || ewram.IsNull() {
		return RAM{}, false
	}
	iwram, ok := emulator.ReadAddress(p, iwramPointer, is64)
	if !ok || iwram.IsNull() {
		return RAM{}, false
	}
	return RAM{ewram, iwram}, true
}

// retroarchGPSP finds gpSP's memory block and the signed displacements the
// core's store instructions use for EWRAM and IWRAM.
func retroarchGPSP(p process.Process, base process.Address, size uint64, is64 bool) (RAM, bool) {
	var block process.Address
	if is64 {
		at, ok := gpspBase64.Scan(p, base, size)
		if !ok {
			return RAM{}, false
		}
		slot, ok := emulator.RelativeAddress(p, at.Add(3), 0)
		if !ok {
			return RAM{}, false
		}
		if block, ok = emulator.ReadAddress64(p, slot); !ok {
			return RAM{}, false
		}
	} else {
		at, ok := gpspBase32.Scan(p, base, size)
		if !ok {
			return RAM{}, false
		}
		if block, ok = emulator.ReadAddress32(p, at.Add(1)); !ok {
			return RAM{}, false
		}
	}

	displacement := func(s signature.Signature) (process.Address, bool) {
		at, ok := s.Scan(p, base, size)
		if !ok {
			return process.NULL, false
		}
		disp, err := process.Read[int32](p, at.Add(uint64(s.Len())))
		if err != nil {
			return process.NULL, false
		}
		return block.AddSigned(int64(disp)), true
	}

	ewram, ok := displacement(gpspEWRAM)
	if !ok {
		return RAM{}, false
	}
	iwram, ok := displacement(gpspIWRAM)
	if !ok {
		return RAM{}, false
	}
	return RAM{ewram, iwram}, true
}
