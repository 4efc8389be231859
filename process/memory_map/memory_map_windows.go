//go:build windows

package memory_map

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	memImage  = 0x1000000
	memMapped = 0x40000
)

// WindowsMemoryMap implements MemoryMap for Windows
type WindowsMemoryMap struct{}

// NewWindowsMemoryMap creates a new WindowsMemoryMap instance
func NewWindowsMemoryMap() *WindowsMemoryMap {
	return &WindowsMemoryMap{}
}

// ReadMemoryMap walks the address space of a process with VirtualQueryEx
func (w *WindowsMemoryMap) ReadMemoryMap(pid int) ([]MemoryRange, error) {
	handle, err := windows.OpenProcess(windows.PROCESS_QUERY_INFORMATION, false, uint32(pid))
	if err != nil {
		return nil, err
	}
	defer windows.CloseHandle(handle)

	return QueryMemoryMap(handle)
}

// QueryMemoryMap walks the address space behind an already open handle.
// Only committed, accessible regions are returned.
func QueryMemoryMap(handle windows.Handle) ([]MemoryRange, error) {
	var memoryMap []MemoryRange
	var info windows.MemoryBasicInformation
	var addr uintptr

	for {
		if err := windows.VirtualQueryEx(handle, addr, &info, unsafe.Sizeof(info)); err != nil {
			break
		}
		if info.RegionSize == 0 {
			break
		}

		if info.State == windows.MEM_COMMIT && info.Protect&(windows.PAGE_GUARD|windows.PAGE_NOACCESS) == 0 {
			memoryMap = append(memoryMap, MemoryRange{
				Address: uint64(info.BaseAddress),
				Size:    uint64(info.RegionSize),
				Flags:   protectFlags(info.Protect, info.Type),
			})
		}

		next := info.BaseAddress + info.RegionSize
		if next <= addr {
			break
		}
		addr = next
	}

	return memoryMap, nil
}

func protectFlags(protect, typ uint32) Flags {
	var f Flags
	switch protect & 0xFF {
	case windows.PAGE_READONLY:
		f = FlagRead
	case windows.PAGE_READWRITE, windows.PAGE_WRITECOPY:
		f = FlagRead | FlagWrite
	case windows.PAGE_EXECUTE:
		f = FlagExecute
	case windows.PAGE_EXECUTE_READ:
		f = FlagRead | FlagExecute
	case windows.PAGE_EXECUTE_READWRITE, windows.PAGE_EXECUTE_WRITECOPY:
		f = FlagRead | FlagWrite | FlagExecute
	}
	if typ == memImage || typ == memMapped {
		f |= FlagPath
	}
	return f
}
