package process

import (
	"emuram/process/memory_map"
)

// Process is the read-only view of a running (or recorded) process that the
// locators work against. Implementations must never write to the target.
type Process interface {
	// Close closes the process and releases resources
	Close() error

	// GetPID returns the process ID
	GetPID() ProcessID

	// IsOpen reports whether the target is still alive and readable
	IsOpen() bool

	// ReadMemory reads memory from the process at the specified address
	ReadMemory(addr Address, size ProcessMemorySize) ([]byte, error)

	// MemoryRanges enumerates the current memory map. Every call re-reads it.
	MemoryRanges() ([]memory_map.MemoryRange, error)

	// GetModuleAddress returns the load address of a module by base name
	GetModuleAddress(name string) (Address, error)

	// GetModuleRange returns the load address and image size of a module by base name
	GetModuleRange(name string) (Address, uint64, error)
}

// Finder discovers running processes by executable name
type Finder interface {
	// FindProcessByName finds processes by their name (case-insensitive exact match)
	FindProcessByName(name string) ([]ProcessInfo, error)
}

// Opener opens processes for reading
type Opener interface {
	// OpenProcessByName opens a process by its name (returns the first match)
	OpenProcessByName(name string) (Process, error)

	// OpenProcess opens a process by PID
	OpenProcess(pid ProcessID) (Process, error)
}
