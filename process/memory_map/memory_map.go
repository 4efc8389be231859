package memory_map

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// Flags describes the protection of a memory region
type Flags uint8

const (
	FlagRead Flags = 1 << iota
	FlagWrite
	FlagExecute
	// FlagPath is set when the region is backed by a file (module image, mapped file)
	FlagPath
)

// Has reports whether every bit of want is set
func (f Flags) Has(want Flags) bool {
	return f&want == want
}

func (f Flags) String() string {
	b := []byte("----")
	if f.Has(FlagRead) {
		b[0] = 'r'
	}
	if f.Has(FlagWrite) {
		b[1] = 'w'
	}
	if f.Has(FlagExecute) {
		b[2] = 'x'
	}
	if f.Has(FlagPath) {
		b[3] = 'p'
	}
	return string(b)
}

// MemoryRange represents one contiguous mapping in a process's address space.
// It is a snapshot taken when the map was enumerated.
type MemoryRange struct {
	Address uint64 // The starting address of the memory region
	Size    uint64 // The size of the memory region in bytes
	Flags   Flags  // Protection flags
	Path    string // Backing file, empty for anonymous memory
}

// String returns a string representation of the memory range
func (r MemoryRange) String() string {
	return fmt.Sprintf("Address: %x, Size: %x, Flags: %s, Path: %s", r.Address, r.Size, r.Flags, r.Path)
}

// End returns the first address past the region
func (r MemoryRange) End() uint64 {
	return r.Address + r.Size
}

func (r MemoryRange) Contains(addr uint64) bool {
	return addr >= r.Address && addr < r.End()
}

func (r MemoryRange) IsReadable() bool {
	return r.Flags.Has(FlagRead)
}

func (r MemoryRange) IsWritable() bool {
	return r.Flags.Has(FlagWrite)
}

// ModuleName returns the base name of the backing file, with Windows separators handled
func (r MemoryRange) ModuleName() string {
	if r.Path == "" {
		return ""
	}
	return filepath.Base(strings.ReplaceAll(r.Path, `\`, "/"))
}

// MemoryMap defines the interface for reading a process's memory map
type MemoryMap interface {
	// ReadMemoryMap reads and parses the memory map for a process
	ReadMemoryMap(pid int) ([]MemoryRange, error)
}

// Sort orders ranges by start address so Find can binary search them
func Sort(ranges []MemoryRange) {
	sort.Slice(ranges, func(i, j int) bool {
		return ranges[i].Address < ranges[j].Address
	})
}

// Find returns the region containing addr in a sorted map, or nil
func Find(addr uint64, ranges []MemoryRange) *MemoryRange {
	i := sort.Search(len(ranges), func(i int) bool {
		return ranges[i].End() > addr
	})
	if i < len(ranges) && ranges[i].Address <= addr {
		return &ranges[i]
	}

	return nil
}

// IsValidRange reports whether [addr, addr+size) lies inside a single readable region
func IsValidRange(addr, size uint64, ranges []MemoryRange) bool {
	r := Find(addr, ranges)
	if r == nil || !r.IsReadable() {
		return false
	}
	return addr+size <= r.End()
}

// ModuleRange returns the lowest start and highest end of every region whose
// backing file has the given base name. Names compare case-insensitively.
func ModuleRange(name string, ranges []MemoryRange) (uint64, uint64, bool) {
	var start, end uint64
	found := false
	for _, r := range ranges {
		if !r.Flags.Has(FlagPath) || !strings.EqualFold(r.ModuleName(), name) {
			continue
		}
		if !found || r.Address < start {
			start = r.Address
		}
		if !found || r.End() > end {
			end = r.End()
		}
		found = true
	}
	if !found {
		return 0, 0, false
	}
	return start, end - start, true
}
