package sms

import (
	"emuram/emulator"
	"emuram/process"
	"emuram/signature"
)

type core int

const (
	coreGenesisPlusGX core = iota
	corePicoDrive
	coreSMSPlus
	coreGearsystem
)

var Cores = emulator.NewRegistry(
	emulator.Entry[core]{Name: "genesis_plus_gx_libretro.dll", Tag: coreGenesisPlusGX},
	emulator.Entry[core]{Name: "genesis_plus_gx_wide_libretro.dll", Tag: coreGenesisPlusGX},
	emulator.Entry[core]{Name: "picodrive_libretro.dll", Tag: corePicoDrive},
	emulator.Entry[core]{Name: "smsplus_libretro.dll", Tag: coreSMSPlus},
	emulator.Entry[core]{Name: "gearsystem_libretro.dll", Tag: coreGearsystem},
)

var (
	gpgx64 = signature.MustParse("48 8D 0D ?? ?? ?? ?? 4C 8B 2D")
	gpgx32 = signature.MustParse("A3 ?? ?? ?? ?? 29 F9")

	picoDrive64 = signature.MustParse("48 8D 0D ?? ?? ?? ?? 41 B8")
	picoDrive32 = signature.MustParse("B9 ?? ?? ?? ?? C1 EF 10")

	smsPlus64 = signature.MustParse("31 F6 48 C7 05")
	smsPlus32 = signature.MustParse("83 FA 02 B8")

	gearsystem64 = signature.MustParse("83 ?? 02 75 ?? 48 8B 0D ?? ?? ?? ?? E8")
	gearsystem32 = signature.MustParse("83 ?? 02 75 ?? 8B ?? ?? ?? ?? ?? E8")
)

// PicoDrive shares its work RAM array with the Mega Drive side; the Master
// System bank starts 0x20000 in.
const picoDriveSMSOffset = 0x20000

type retroarch struct {
	core process.Address
}

func (l *retroarch) FindRAM(p process.Process) (RAM, bool) {
	main, ok := Processes.ModuleAddress(p, Retroarch)
	if !ok {
		return process.NULL, false
	}
	is64, _ := emulator.Is64Bit(p, main)

	entry, base, size, ok := Cores.FindModule(p)
	if !ok {
		return process.NULL, false
	}

	var wram process.Address
	switch entry.Tag {
	case coreGenesisPlusGX:
		wram, ok = emulator.LeaOrImm32(p, base, size, is64, gpgx64, gpgx32)
	case corePicoDrive:
		wram, ok = emulator.LeaOrImm32(p, base, size, is64, picoDrive64, picoDrive32)
		wram = wram.Add(picoDriveSMSOffset)
	case coreSMSPlus:
		wram, ok = smsPlusRAM(p, base, size, is64)
	case coreGearsystem:
		wram, ok = gearsystemRAM(p, base, size, is64)
	}
	if !ok {
		return process.NULL, false
	}
	l.core = base
	return wram, true
}

func (l *retroarch) KeepAlive(p process.Process, _ *RAM) bool {
	if l.core.IsNull() {
		return false
	}
	_, err := process.Read[uint8](p, l.core)
	return err == nil
}

// smsPlusRAM reads the store target of "mov qword [rip+disp], imm32" or the
// "mov eax, imm32" that follows a compare on 32-bit builds
func smsPlusRAM(p process.Process, base process.Address, size uint64, is64 bool) (process.Address, bool) {
	if is64 {
		at, ok := smsPlus64.Scan(p, base, size)
		if !ok {
			return process.NULL, false
		}
		return emulator.RelativeAddress(p, at.Add(5), 4)
	}
	at, ok := smsPlus32.Scan(p, base, size)
	if !ok {
		return process.NULL, false
	}
	return emulator.ReadAddress32(p, at.Add(4))
}

// gearsystemRAM follows the core's GearsystemCore global down to the Memory
// object. The field offset of the work RAM pointer is taken from the
// accessor called a few instructions later.
func gearsystemRAM(p process.Process, base process.Address, size uint64, is64 bool) (process.Address, bool) {
	var field process.Address
	if is64 {
		at, ok := gearsystem64.Scan(p, base, size)
		if !ok {
			return process.NULL, false
		}
		ptr := at.Add(8)
		accessor, ok := emulator.RelativeAddress(p, ptr.Add(13), 0)
		if !ok {
			return process.NULL, false
		}
		offset, err := process.Read[uint8](p, accessor.Add(3))
		if err != nil {
			return process.NULL, false
		}
		slot, ok := emulator.RelativeAddress(p, ptr, 0)
		if !ok {
			return process.NULL, false
		}
		if field, err = process.DerefOffsets(p, slot, process.Bit64, 0, 0, int64(offset)); err != nil {
			return process.NULL, false
		}
	} else {
		at, ok := gearsystem32.Scan(p, base, size)
		if !ok {
			return process.NULL, false
		}
		ptr := at.Add(7)
		accessor, ok := emulator.RelativeAddress(p, ptr.Add(12), 0)
		if !ok {
			return process.NULL, false
		}
		offset, err := process.Read[uint8](p, accessor.Add(2))
		if err != nil {
			return process.NULL, false
		}
		if field, err = process.DerefOffsets(p, ptr, process.Bit32, 0, 0, 0, int64(offset)); err != nil {
			return process.NULL, false
		}
	}

	mem, ok := emulator.ReadAddress(p, field, is64)
	if !ok || mem.IsNull() {
		return process.NULL, false
	}
	return mem.Add(fullMapOffset), true
}
