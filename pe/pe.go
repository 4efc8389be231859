// Package pe reads the headers of Windows images that are already mapped
// into a target process.
package pe

import (
	debugpe "debug/pe"
	"fmt"

	"emuram/process"
)

type dosHeader struct {
	Magic  [2]byte
	_      [58]byte
	Lfanew uint32
}

type coffHeader struct {
	Magic                [4]byte
	Machine              uint16
	NumberOfSections     uint16
	TimeDateStamp        uint32
	PointerToSymbolTable uint32
	NumberOfSymbols      uint32
	SizeOfOptionalHeader uint16
	Characteristics      uint16
}

const coffHeaderSize = 24

// MachineType is the COFF machine field of an image
type MachineType uint16

const (
	MachineI386  = MachineType(debugpe.IMAGE_FILE_MACHINE_I386)
	MachineAMD64 = MachineType(debugpe.IMAGE_FILE_MACHINE_AMD64)
	MachineARM64 = MachineType(debugpe.IMAGE_FILE_MACHINE_ARM64)
)

func (m MachineType) String() string {
	switch m {
	case MachineI386:
		return "i386"
	case MachineAMD64:
		return "x64"
	case MachineARM64:
		return "arm64"
	}
	return fmt.Sprintf("machine(%#04x)", uint16(m))
}

// PointerSize returns the pointer width native to the machine
func (m MachineType) PointerSize() process.PointerSize {
	if m == MachineAMD64 || m == MachineARM64 {
		return process.Bit64
	}
	return process.Bit32
}

func readCOFF(p process.Process, moduleBase process.Address) (process.Address, coffHeader, bool) {
	dos, err := process.Read[dosHeader](p, moduleBase)
	if err != nil || dos.Magic != [2]byte{'M', 'Z'} {
		return process.NULL, coffHeader{}, false
	}

	at := moduleBase.Add(uint64(dos.Lfanew))
	coff, err := process.Read[coffHeader](p, at)
	if err != nil || coff.Magic != [4]byte{'P', 'E', 0, 0} {
		return process.NULL, coffHeader{}, false
	}
	return at, coff, true
}

// ReadMachineType reads the machine type of a module mapped at moduleBase
func ReadMachineType(p process.Process, moduleBase process.Address) (MachineType, bool) {
	_, coff, ok := readCOFF(p, moduleBase)
	if !ok {
		return 0, false
	}
	return MachineType(coff.Machine), true
}

// Is64Bit reports whether the module is an x64 image. ok is false when the
// headers cannot be read.
func Is64Bit(p process.Process, moduleBase process.Address) (is64, ok bool) {
	m, ok := ReadMachineType(p, moduleBase)
	if !ok {
		return false, false
	}
	return m == MachineAMD64, true
}
