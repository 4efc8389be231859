package pe

import (
	"emuram/process"
)

const (
	optionalMagicPE32     = 0x10b
	optionalMagicPE32Plus = 0x20b

	// offset of the data directories inside the optional header
	dataDirOffsetPE32     = 96
	dataDirOffsetPE32Plus = 112
)

type dataDirectory struct {
	VirtualAddress uint32
	Size           uint32
}

type exportDirectory struct {
	Characteristics       uint32
	TimeDateStamp         uint32
	MajorVersion          uint16
	MinorVersion          uint16
	Name                  uint32
	Base                  uint32
	NumberOfFunctions     uint32
	NumberOfNames         uint32
	AddressOfFunctions    uint32
	AddressOfNames        uint32
	AddressOfNameOrdinals uint32
}

// FindExport resolves an exported symbol of a mapped module by name.
// Forwarded exports are not followed.
func FindExport(p process.Process, moduleBase process.Address, name string) (process.Address, bool) {
	coffAt, _, ok := readCOFF(p, moduleBase)
	if !ok {
		return process.NULL, false
	}

	optional := coffAt.Add(coffHeaderSize)
	magic, err := process.Read[uint16](p, optional)
	if err != nil {
		return process.NULL, false
	}

	var dirAt process.Address
	switch magic {
	case optionalMagicPE32:
		dirAt = optional.Add(dataDirOffsetPE32)
	case optionalMagicPE32Plus:
		dirAt = optional.Add(dataDirOffsetPE32Plus)
	default:
		return process.NULL, false
	}

	dir, err := process.Read[dataDirectory](p, dirAt)
	if err != nil || dir.VirtualAddress == 0 {
		return process.NULL, false
	}

	exports, err := process.Read[exportDirectory](p, moduleBase.Add(uint64(dir.VirtualAddress)))
	if err != nil {
		return process.NULL, false
	}

	names := moduleBase.Add(uint64(exports.AddressOfNames))
	ordinals := moduleBase.Add(uint64(exports.AddressOfNameOrdinals))
	functions := moduleBase.Add(uint64(exports.AddressOfFunctions))

	for i := uint64(0); i < uint64(exports.NumberOfNames); i++ {
		nameRVA, err := process.Read[uint32](p, names.Add(4*i))
		if err != nil {
			return process.NULL, false
		}
		symbol, err := process.ReadCString(p, moduleBase.Add(uint64(nameRVA)), process.ProcessMemorySize(len(name)+1))
		if err != nil || symbol != name {
			continue
		}

		ordinal, err := process.Read[uint16](p, ordinals.Add(2*i))
		if err != nil || uint32(ordinal) >= exports.NumberOfFunctions {
			return process.NULL, false
		}
		funcRVA, err := process.Read[uint32](p, functions.Add(4*uint64(ordinal)))
		if err != nil || funcRVA == 0 {
			return process.NULL, false
		}
		return moduleBase.Add(uint64(funcRVA)), true
	}

	return process.NULL, false
}
