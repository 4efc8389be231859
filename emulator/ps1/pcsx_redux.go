package ps1

import (
	"emuram/emulator"
	"emuram/pe"
	"emuram/process"
	"emuram/process/memory_map"
	"emuram/signature"
)

var (
	reduxBase64   = signature.MustParse("48 B9 ?? ?? ?? ?? ?? ?? ?? ?? E8 ?? ?? ?? ?? C7 85 ?? ?? ?? ?? 00 00 00 00")
	reduxOffset64 = signature.MustParse("89 D1 C1 E9 10 48 8B ?? ??")
	reduxBase32   = signature.MustParse("8B 3D 20 ?? ?? ?? 0F B7 D3 8B 04 95 ?? ?? ?? ?? 21 05")
)

// pcsxRedux stays attached while the emulator object it found is still the
// one the anchor points at; a new object means rediscovery.
type pcsxRedux struct {
	is64   bool
	anchor process.Address
	object process.Address
}

func (l *pcsxRedux) FindRAM(p process.Process) (RAM, bool) {
	base, size, ok := Processes.ModuleRange(p, PcsxRedux)
	if !ok {
		return process.NULL, false
	}
	machine, _ := pe.ReadMachineType(p, base)
	if machine == pe.MachineAMD64 {
		return l.find64(p, base, size)
	}
	return l.find32(p)
}

func (l *pcsxRedux) find64(p process.Process, base process.Address, size uint64) (RAM, bool) {
	at, ok := reduxBase64.Scan(p, base, size)
	if !ok {
		return process.NULL, false
	}
	anchor := at.Add(2)
	object, ok := emulator.ReadAddress64(p, anchor)
	if !ok {
		return process.NULL, false
	}

	at, ok = reduxOffset64.Scan(p, base, size)
	if !ok {
		return process.NULL, false
	}
	field, err := process.Read[uint8](p, at.Add(8))
	if err != nil {
		return process.NULL, false
	}

	ram, err := process.DerefOffsets(p, object, process.Bit64, int64(field), 0)
	if err != nil {
		return process.NULL, false
	}
	ram, ok = emulator.ReadAddress64(p, ram)
	if !ok {
		return process.NULL, false
	}

	*l = pcsxRedux{is64: true, anchor: anchor, object: object}
	return ram, true
}

func (l *pcsxRedux) find32(p process.Process) (RAM, bool) {
	ranges := emulator.FindRanges(p, memory_map.MemoryRange.IsWritable)
	at, _, ok := emulator.ScanRanges(p, reduxBase32, ranges)
	if !ok {
		return process.NULL, false
	}
	anchor := at.Add(2)
	ram, ok := emulator.ReadAddress32(p, anchor)
	if !ok {
		return process.NULL, false
	}
	*l = pcsxRedux{is64: false, anchor: anchor, object: ram}
	return ram, true
}

func (l *pcsxRedux) KeepAlive(p process.Process, _ *RAM) bool {
	if l.anchor.IsNull() {
		return false
	}
	object, ok := emulator.ReadAddress(p, l.anchor, l.is64)
	return ok && object == l.object
}
