//go:build linux

package process_linux

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"emuram/process"
	"emuram/process/memory_map"
)

type moduleEntry struct {
	base process.Address
	size uint64
}

var dosMagic = []byte("MZ")

// GetModuleAddress returns the load address of a module by base name
func (p *LinuxProcess) GetModuleAddress(name string) (process.Address, error) {
	addr, _, err := p.GetModuleRange(name)
	return addr, err
}

// GetModuleRange returns the lowest address and total span of the file-backed
// mappings for a module. Lookups are cached until the next MemoryRanges call;
// a cached entry whose image header no longer reads back is dropped. Misses
// within mapReuse of each other share one read of the memory map.
func (p *LinuxProcess) GetModuleRange(name string) (process.Address, uint64, error) {
	key := strings.ToLower(name)
	fresh := false

	if v, ok := p.modules.Get(key); ok {
		entry := v.(moduleEntry)
		if p.imageStillMapped(entry.base) {
			return entry.base, entry.size, nil
		}
		p.log.Debugln("module", name, "moved or unloaded, re-reading memory map")
		p.modules.Remove(key)
		fresh = true
	}

	ranges, err := p.recentMap(fresh)
	if err != nil {
		return process.NULL, 0, err
	}

	start, size, ok := memory_map.ModuleRange(name, ranges)
	if !ok {
		return process.NULL, 0, fmt.Errorf("%s: %w", name, process.ErrModuleNotFound)
	}

	entry := moduleEntry{base: process.Address(start), size: size}
	p.modules.Add(key, entry)
	return entry.base, entry.size, nil
}

// recentMap returns the last memory map while it is younger than mapReuse,
// unless fresh is set. Unlike MemoryRanges it keeps the module cache.
func (p *LinuxProcess) recentMap(fresh bool) ([]memory_map.MemoryRange, error) {
	pid := p.GetPID()
	if pid == 0 {
		return nil, process.ErrProcessNotOpen
	}

	p.mu.Lock()
	mm, at := p.mm, p.mmAt
	p.mu.Unlock()

	if !fresh && mm != nil && p.now().Sub(at) < mapReuse {
		return mm, nil
	}
	return p.readMap(pid)
}

// imageStillMapped checks the cached base still reads back a PE or ELF header
func (p *LinuxProcess) imageStillMapped(base process.Address) bool {
	data, err := p.ReadMemory(base, 4)
	if err != nil {
		return false
	}
	return bytes.HasPrefix(data, dosMagic) || bytes.HasPrefix(data, []byte("\x7fELF"))
}

// Modules lists every file-backed image in the current memory map
func (p *LinuxProcess) Modules() ([]process.Module, error) {
	ranges, err := p.MemoryRanges()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var modules []process.Module
	for _, r := range ranges {
		name := r.ModuleName()
		if name == "" || seen[strings.ToLower(name)] {
			continue
		}
		seen[strings.ToLower(name)] = true

		start, size, _ := memory_map.ModuleRange(name, ranges)
		modules = append(modules, process.Module{Name: name, Address: process.Address(start), Size: size})
	}

	sort.Slice(modules, func(i, j int) bool { return modules[i].Address < modules[j].Address })
	return modules, nil
}
