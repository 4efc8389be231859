//go:build windows

package process_windows

import (
	"bytes"
	"fmt"
	"strings"
	"unsafe"

	"emuram/process"

	"golang.org/x/sys/windows"
)

const (
	listModulesAll = 0x03
	maxModules     = 1024
)

type moduleEntry struct {
	base process.Address
	size uint64
}

// Modules enumerates 32- and 64-bit modules of the target
func (p *WindowsProcess) Modules() ([]process.Module, error) {
	handle := p.getHandle()
	if handle == 0 {
		return nil, process.ErrProcessNotOpen
	}

	var handles [maxModules]windows.Handle
	var needed uint32
	if err := windows.EnumProcessModulesEx(handle, &handles[0], uint32(unsafe.Sizeof(handles[0]))*maxModules, &needed, listModulesAll); err != nil {
		return nil, fmt.Errorf("EnumProcessModulesEx failed: %w", err)
	}
	count := needed / uint32(unsafe.Sizeof(handles[0]))
	if count > maxModules {
		count = maxModules
	}

	modules := make([]process.Module, 0, count)
	for i := uint32(0); i < count; i++ {
		var mi windows.ModuleInfo
		if err := windows.GetModuleInformation(handle, handles[i], &mi, uint32(unsafe.Sizeof(mi))); err != nil {
			continue
		}

		var name [windows.MAX_PATH]uint16
		if err := windows.GetModuleBaseName(handle, handles[i], &name[0], windows.MAX_PATH); err != nil {
			continue
		}

		modules = append(modules, process.Module{
			Name:    windows.UTF16ToString(name[:]),
			Address: process.Address(mi.BaseOfDll),
			Size:    uint64(mi.SizeOfImage),
		})
	}

	return modules, nil
}

// GetModuleAddress returns the load address of a module by base name
func (p *WindowsProcess) GetModuleAddress(name string) (process.Address, error) {
	addr, _, err := p.GetModuleRange(name)
	return addr, err
}

// GetModuleRange returns base and SizeOfImage for a module by base name.
// Cached lookups are re-checked against the image header before use.
func (p *WindowsProcess) GetModuleRange(name string) (process.Address, uint64, error) {
	key := strings.ToLower(name)

	if v, ok := p.modules.Get(key); ok {
		entry := v.(moduleEntry)
		if data, err := p.ReadMemory(entry.base, 2); err == nil && bytes.Equal(data, []byte("MZ")) {
			return entry.base, entry.size, nil
		}
		p.log.Debugln("module", name, "moved or unloaded")
		p.modules.Remove(key)
	}

	modules, err := p.Modules()
	if err != nil {
		return process.NULL, 0, err
	}

	for _, m := range modules {
		if strings.EqualFold(m.Name, name) {
			p.modules.Add(key, moduleEntry{base: m.Address, size: m.Size})
			return m.Address, m.Size, nil
		}
	}

	return process.NULL, 0, fmt.Errorf("%s: %w", name, process.ErrModuleNotFound)
}
