//go:build windows

package process_windows

import (
	"fmt"
	"sort"
	"strings"

	"emuram/process"

	gopsprocess "github.com/shirou/gopsutil/v3/process"
)

// WindowsProcessFinder implements process.Finder with gopsutil
type WindowsProcessFinder struct{}

var _ process.Finder = (*WindowsProcessFinder)(nil)

func NewProcessFinder() *WindowsProcessFinder {
	return &WindowsProcessFinder{}
}

// FindProcessByName finds processes by image name, ignoring case
func (f *WindowsProcessFinder) FindProcessByName(name string) ([]process.ProcessInfo, error) {
	procs, err := gopsprocess.Processes()
	if err != nil {
		return nil, fmt.Errorf("list processes: %w", err)
	}

	var out []process.ProcessInfo
	for _, p := range procs {
		procName, err := p.Name()
		if err != nil || !strings.EqualFold(procName, name) {
			continue
		}

		info := process.ProcessInfo{PID: process.ProcessID(p.Pid), Name: procName}
		if ppid, err := p.Ppid(); err == nil {
			info.PPID = process.ProcessID(ppid)
		}
		info.Exe, _ = p.Exe()
		out = append(out, info)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
	return out, nil
}

// WindowsProcessHelper implements process.Opener
type WindowsProcessHelper struct {
	Finder process.Finder
}

var _ process.Opener = (*WindowsProcessHelper)(nil)

func NewHelper() *WindowsProcessHelper {
	return &WindowsProcessHelper{Finder: NewProcessFinder()}
}

func (h *WindowsProcessHelper) OpenProcess(pid process.ProcessID) (process.Process, error) {
	return NewWithPID(pid)
}

// OpenProcessByName opens the first process with the given image name
func (h *WindowsProcessHelper) OpenProcessByName(name string) (process.Process, error) {
	processes, err := h.Finder.FindProcessByName(name)
	if err != nil {
		return nil, err
	}
	for _, info := range processes {
		if p, err := NewWithPID(info.PID); err == nil {
			return p, nil
		}
	}
	return nil, fmt.Errorf("no process found with name '%s': %w", name, process.ErrProcessNotFound)
}
