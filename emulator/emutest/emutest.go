// Package emutest builds scripted emulator processes for locator tests.
package emutest

import (
	"encoding/binary"
	"sort"

	"emuram/process"
	"emuram/process/memory_map"
	"emuram/process_blob"
)

const (
	RW  = memory_map.FlagRead | memory_map.FlagWrite
	RX  = memory_map.FlagRead | memory_map.FlagExecute
	RWX = RW | memory_map.FlagExecute
)

// Machine types written into synthetic images
const (
	I386  = 0x14c
	AMD64 = 0x8664
)

// Image lays out a minimal PE image: DOS and COFF headers, an optional
// header of the right flavour and, when Exports is set, an export table.
type Image struct {
	Machine uint16
	Size    uint64
	Exports map[string]uint32 // name -> RVA
}

const (
	lfanew    = 0x80
	exportRVA = 0x200
	tableRVA  = 0x300
	namesRVA  = 0x400
)

// Bytes renders the image
func (img Image) Bytes() []byte {
	size := img.Size
	if size < 0x1000 {
		size = 0x1000
	}
	data := make([]byte, size)
	le := binary.LittleEndian

	copy(data, "MZ")
	le.PutUint32(data[0x3C:], lfanew)
	copy(data[lfanew:], "PE\x00\x00")
	le.PutUint16(data[lfanew+4:], img.Machine)

	optional := lfanew + 24
	dataDir := optional + 96
	if img.Machine == AMD64 {
		le.PutUint16(data[optional:], 0x20b)
		dataDir = optional + 112
	} else {
		le.PutUint16(data[optional:], 0x10b)
	}

	if len(img.Exports) == 0 {
		return data
	}

	le.PutUint32(data[dataDir:], exportRVA)
	le.PutUint32(data[dataDir+4:], 0x100)

	n := uint32(len(img.Exports))
	functions := uint32(tableRVA)
	names := functions + 4*n
	ordinals := names + 4*n

	le.PutUint32(data[exportRVA+20:], n) // NumberOfFunctions
	le.PutUint32(data[exportRVA+24:], n) // NumberOfNames
	le.PutUint32(data[exportRVA+28:], functions)
	le.PutUint32(data[exportRVA+32:], names)
	le.PutUint32(data[exportRVA+36:], ordinals)

	nameAt := uint32(namesRVA)
	i := uint32(0)
	for _, name := range sortedKeys(img.Exports) {
		le.PutUint32(data[functions+4*i:], img.Exports[name])
		le.PutUint32(data[names+4*i:], nameAt)
		le.PutUint16(data[ordinals+2*i:], uint16(i))
		copy(data[nameAt:], name)
		nameAt += uint32(len(name)) + 1
		i++
	}
	return data
}

func sortedKeys(m map[string]uint32) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Process wraps a ProcessDump with helpers for staging emulator state
type Process struct {
	*process_blob.ProcessDump
}

func New() *Process {
	return &Process{ProcessDump: process_blob.NewProcessDump()}
}

// Module maps img at base under name and records it as a loaded module
func (p *Process) Module(name string, base process.Address, img Image) *process_blob.ProcessBlob {
	blob := p.AddModule(name, base, uint64(len(img.Bytes())))
	_ = blob.Put(base, img.Bytes())
	return blob
}

// Region maps size zero bytes
func (p *Process) Region(addr process.Address, size uint64, flags memory_map.Flags) *process_blob.ProcessBlob {
	return p.AddZeroRegion(addr, size, flags, "")
}

// Bytes stages raw bytes and panics on an unmapped address
func (p *Process) Bytes(addr process.Address, data ...byte) {
	if err := p.Put(addr, data); err != nil {
		panic(err)
	}
}

func (p *Process) U8(addr process.Address, v uint8) { p.Bytes(addr, v) }

func (p *Process) U16(addr process.Address, v uint16) {
	p.Bytes(addr, binary.LittleEndian.AppendUint16(nil, v)...)
}

func (p *Process) U32(addr process.Address, v uint32) {
	p.Bytes(addr, binary.LittleEndian.AppendUint32(nil, v)...)
}

func (p *Process) U64(addr process.Address, v uint64) {
	p.Bytes(addr, binary.LittleEndian.AppendUint64(nil, v)...)
}

// U32BE stages a big-endian 32-bit value
func (p *Process) U32BE(addr process.Address, v uint32) {
	p.Bytes(addr, binary.BigEndian.AppendUint32(nil, v)...)
}

// Code stages an instruction fragment given as signature-style hex, with
// every "??" byte replaced by the matching entry of fill.
func (p *Process) Code(addr process.Address, hex string, fill ...byte) {
	p.Bytes(addr, Assemble(hex, fill...)...)
}

// RIP stages a fragment at addr whose 4-byte displacement at dispAt makes
// dispAt + 4 + extra + disp == target.
func (p *Process) RIP(addr process.Address, hex string, dispAt uint64, extra uint64, target process.Address) {
	p.Code(addr, hex)
	site := addr.Add(dispAt)
	disp := int64(target) - int64(site) - 4 - int64(extra)
	p.U32(site, uint32(int32(disp)))
}
