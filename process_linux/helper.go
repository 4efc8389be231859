//go:build linux

package process_linux

import (
	"fmt"

	"emuram/process"
)

// LinuxProcessHelper implements process.Opener
type LinuxProcessHelper struct {
	Finder process.Finder
}

var _ process.Opener = (*LinuxProcessHelper)(nil)

// NewHelper creates a new LinuxProcessHelper
func NewHelper() *LinuxProcessHelper {
	return &LinuxProcessHelper{
		Finder: NewProcessFinder(),
	}
}

// OpenProcess opens the process with the given PID
func (h *LinuxProcessHelper) OpenProcess(pid process.ProcessID) (process.Process, error) {
	return NewWithPID(pid)
}

// OpenProcessByName opens a process by its name (returns the first live match)
func (h *LinuxProcessHelper) OpenProcessByName(name string) (process.Process, error) {
	processes, err := h.Finder.FindProcessByName(name)
	if err != nil {
		return nil, err
	}

	for _, info := range processes {
		if !info.State.Alive() {
			continue
		}
		return NewWithPID(info.PID)
	}

	return nil, fmt.Errorf("no process found with name '%s': %w", name, process.ErrProcessNotFound)
}
