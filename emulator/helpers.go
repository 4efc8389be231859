package emulator

import (
	"emuram/pe"
	"emuram/process"
	"emuram/process/memory_map"
	"emuram/signature"
)

// RelativeAddress decodes the rip-relative displacement stored at at. extra
// counts the instruction bytes that follow the displacement, such as an
// immediate operand.
func RelativeAddress(p process.Process, at process.Address, extra uint64) (process.Address, bool) {
	disp, err := process.Read[int32](p, at)
	if err != nil {
		return process.NULL, false
	}
	return at.Add(4 + extra).AddSigned(int64(disp)), true
}

// ReadAddress32 reads a 32-bit host pointer
func ReadAddress32(p process.Process, at process.Address) (process.Address, bool) {
	a, err := process.ReadPointer(p, at, process.Bit32)
	return a, err == nil
}

// ReadAddress64 reads a 64-bit host pointer
func ReadAddress64(p process.Process, at process.Address) (process.Address, bool) {
	a, err := process.ReadPointer(p, at, process.Bit64)
	return a, err == nil
}

// ReadAddress reads a host pointer sized for the emulator build
func ReadAddress(p process.Process, at process.Address, is64 bool) (process.Address, bool) {
	if is64 {
		return ReadAddress64(p, at)
	}
	return ReadAddress32(p, at)
}

// PointerWidth maps a build's bitness to a pointer size
func PointerWidth(is64 bool) process.PointerSize {
	if is64 {
		return process.Bit64
	}
	return process.Bit32
}

// Is64Bit reports whether the module image at base was built for a 64-bit machine
func Is64Bit(p process.Process, base process.Address) (is64, ok bool) {
	return pe.Is64Bit(p, base)
}

// FindRange returns the first mapped range accepted by pred
func FindRange(p process.Process, pred func(memory_map.MemoryRange) bool) (memory_map.MemoryRange, bool) {
	ranges, err := p.MemoryRanges()
	if err != nil {
		return memory_map.MemoryRange{}, false
	}
	for _, r := range ranges {
		if pred(r) {
			return r, true
		}
	}
	return memory_map.MemoryRange{}, false
}

// FindRanges returns every mapped range accepted by pred
func FindRanges(p process.Process, pred func(memory_map.MemoryRange) bool) []memory_map.MemoryRange {
	ranges, err := p.MemoryRanges()
	if err != nil {
		return nil
	}
	var out []memory_map.MemoryRange
	for _, r := range ranges {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}

// IsMapped reports whether addr lies inside any currently mapped range
func IsMapped(p process.Process, addr process.Address) bool {
	_, ok := FindRange(p, func(r memory_map.MemoryRange) bool {
		return r.Contains(uint64(addr))
	})
	return ok
}

// ScanFirst tries each signature in order over [addr, addr+size) and
// reports the index of the one that matched.
func ScanFirst(p process.Process, sigs []signature.Signature, addr process.Address, size uint64) (process.Address, int, bool) {
	for i, s := range sigs {
		if at, ok := s.Scan(p, addr, size); ok {
			return at, i, true
		}
	}
	return process.NULL, -1, false
}

// ScanRanges scans each range in turn and returns the first match
func ScanRanges(p process.Process, s signature.Signature, ranges []memory_map.MemoryRange) (process.Address, memory_map.MemoryRange, bool) {
	for _, r := range ranges {
		if at, ok := s.Scan(p, process.Address(r.Address), r.Size); ok {
			return at, r, true
		}
	}
	return process.NULL, memory_map.MemoryRange{}, false
}

// LeaOrImm32 resolves the "lea rcx, [rip+disp]" matched by sig64 on 64-bit
// builds, or the absolute imm32 following the opcode matched by sig32.
func LeaOrImm32(p process.Process, base process.Address, size uint64, is64 bool, sig64, sig32 signature.Signature) (process.Address, bool) {
	if is64 {
		at, ok := sig64.Scan(p, base, size)
		if !ok {
			return process.NULL, false
		}
		return RelativeAddress(p, at.Add(3), 0)
	}
	at, ok := sig32.Scan(p, base, size)
	if !ok {
		return process.NULL, false
	}
	return ReadAddress32(p, at.Add(1))
}
