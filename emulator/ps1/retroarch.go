package ps1

import (
	"emuram/emulator"
	"emuram/pe"
	"emuram/process"
	"emuram/signature"
)

type core int

const (
	coreMednafen core = iota
	coreSwanStation
	corePcsxReARMed
)

var Cores = emulator.NewRegistry(
	emulator.Entry[core]{Name: "mednafen_psx_hw_libretro.dll", Tag: coreMednafen},
	emulator.Entry[core]{Name: "mednafen_psx_libretro.dll", Tag: coreMednafen},
	emulator.Entry[core]{Name: "swanstation_libretro.dll", Tag: coreSwanStation},
	emulator.Entry[core]{Name: "pcsx_rearmed_libretro.dll", Tag: corePcsxReARMed},
)

// Every core's retro_get_memory_data loads the RAM pointer within its first
// bytes
const (
	memoryDataExport = "retro_get_memory_data"
	memoryDataWindow = 0x100
)

// coreAccess describes how one core's retro_get_memory_data reaches RAM
type coreAccess struct {
	sig64, sig32 signature.Signature
	at64, at32   uint64
	// extra 64-bit dereference after the slot
	deref64 bool
}

var coreAccesses = map[core]coreAccess{
	coreMednafen: {
		sig64: signature.MustParse("48 0F 44 05"), at64: 4,
		sig32: signature.MustParse("0F 44 05"), at32: 3,
	},
	coreSwanStation: {
		sig64: signature.MustParse("48 8B 05 ?? ?? ?? ?? C3"), at64: 3,
		sig32: signature.MustParse("74 ?? A1"), at32: 3,
	},
	corePcsxReARMed: {
		sig64: signature.MustParse("48 8B 05 ?? ?? ?? ?? 48 8B 00"), at64: 3,
		sig32: signature.MustParse("0F 44 05 ?? ?? ?? ?? C3"), at32: 3,
		deref64: true,
	},
}

// retroarch accepts a null RAM pointer from the core, leaving the session
// degraded until the core is unloaded
type retroarch struct {
	core process.Address
}

func (l *retroarch) FindRAM(p process.Process) (RAM, bool) {
	main, ok := Processes.ModuleAddress(p, Retroarch)
	if !ok {
		return process.NULL, false
	}
	machine, ok := pe.ReadMachineType(p, main)
	if !ok {
		return process.NULL, false
	}
	is64 := machine.PointerSize() == process.Bit64

	entry, base, _, ok := Cores.FindModule(p)
	if !ok {
		return process.NULL, false
	}
	fn, ok := pe.FindExport(p, base, memoryDataExport)
	if !ok {
		return process.NULL, false
	}

	ram, ok := coreAccesses[entry.Tag].resolve(p, fn, is64)
	if !ok {
		return process.NULL, false
	}
	l.core = base
	return ram, true
}

func (a coreAccess) resolve(p process.Process, fn process.Address, is64 bool) (process.Address, bool) {
	if is64 {
		at, ok := a.sig64.Scan(p, fn, memoryDataWindow)
		if !ok {
			return process.NULL, false
		}
		slot, ok := emulator.RelativeAddress(p, at.Add(a.at64), 0)
		if !ok {
			return process.NULL, false
		}
		ram, ok := emulator.ReadAddress64(p, slot)
		if ok && a.deref64 {
			ram, ok = emulator.ReadAddress64(p, ram)
		}
		return ram, ok
	}

	at, ok := a.sig32.Scan(p, fn, memoryDataWindow)
	if !ok {
		return process.NULL, false
	}
	slot, ok := emulator.ReadAddress32(p, at.Add(a.at32))
	if !ok {
		return process.NULL, false
	}
	return emulator.ReadAddress32(p, slot)
}

func (l *retroarch) KeepAlive(p process.Process, _ *RAM) bool {
	if l.core.IsNull() {
		return false
	}
	_, err := process.Read[uint8](p, l.core)
	return err == nil
}
