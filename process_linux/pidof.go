//go:build linux

package process_linux

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"emuram/process"
)

// LinuxProcessFinder implements process.Finder over /proc
type LinuxProcessFinder struct{}

var _ process.Finder = (*LinuxProcessFinder)(nil)

// NewProcessFinder creates a new LinuxProcessFinder
func NewProcessFinder() *LinuxProcessFinder {
	return &LinuxProcessFinder{}
}

// FindProcessByName returns all processes whose comm, exe basename or argv[0]
// basename equals name, lowest PID first. The comparison ignores case because
// emulator executables are Windows images, and argv[0] is checked because
// Wine reports the Windows path there while exe points at the loader.
func (f *LinuxProcessFinder) FindProcessByName(name string) ([]process.ProcessInfo, error) {
	if name == "" {
		return nil, errors.New("empty name")
	}

	entries, err := os.ReadDir("/proc")
	if err != nil {
		return nil, fmt.Errorf("read /proc: %w", err)
	}

	selfPID := os.Getpid()
	var out []process.ProcessInfo

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(e.Name())
		if err != nil || pid <= 0 {
			continue // not a PID dir
		}
		if pid == selfPID {
			continue
		}

		info := readProcessInfo(process.ProcessID(pid))
		if matchesName(info, name) {
			out = append(out, info)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].PID < out[j].PID })
	return out, nil
}

func matchesName(info process.ProcessInfo, name string) bool {
	if strings.EqualFold(info.Name, name) {
		return true
	}
	if info.Exe != "" && strings.EqualFold(filepath.Base(info.Exe), name) {
		return true
	}
	if len(info.Cmdline) > 0 && strings.EqualFold(windowsBase(info.Cmdline[0]), name) {
		return true
	}
	return false
}

func windowsBase(path string) string {
	return filepath.Base(strings.ReplaceAll(path, `\`, "/"))
}

// readProcessInfo collects what /proc exposes without elevated rights; any
// field it cannot read is left empty.
func readProcessInfo(pid process.ProcessID) process.ProcessInfo {
	dir := filepath.Join("/proc", strconv.Itoa(int(pid)))
	info := process.ProcessInfo{PID: pid}

	comm, _ := os.ReadFile(filepath.Join(dir, "comm"))
	info.Name = string(bytesTrimNL(comm))

	// may fail if zombie or permission
	info.Exe, _ = os.Readlink(filepath.Join(dir, "exe"))

	if cmdline, err := os.ReadFile(filepath.Join(dir, "cmdline")); err == nil {
		for _, arg := range bytes.Split(bytes.TrimRight(cmdline, "\x00"), []byte{0}) {
			if len(arg) > 0 {
				info.Cmdline = append(info.Cmdline, string(arg))
			}
		}
	}

	info.State, _ = readState(pid)
	return info
}

func bytesTrimNL(b []byte) []byte {
	// Trim trailing '\n' if present (comm has a newline).
	for len(b) > 0 {
		switch b[len(b)-1] {
		case '\n', '\r', ' ', '\t':
			b = b[:len(b)-1]
		default:
			return b
		}
	}
	return b
}
