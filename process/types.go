package process

// ProcessID represents a unique identifier for a process
type ProcessID int

// ProcessInfo contains basic information about a process
type ProcessInfo struct {
	PID     ProcessID    // Process ID
	PPID    ProcessID    // Parent Process ID
	Name    string       // Process name from /proc/[pid]/comm or the image name
	Exe     string       // Path to the executable
	Cmdline []string     // Command line arguments
	State   ProcessState // Process state (R, S, D, Z, etc.)
}

// Module is a loaded executable image
type Module struct {
	Name    string  `json:"name"`
	Address Address `json:"address"`
	Size    uint64  `json:"size"`
}

// ModuleLister is implemented by processes that can enumerate their loaded modules
type ModuleLister interface {
	Modules() ([]Module, error)
}
