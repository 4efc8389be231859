//go:build linux

package process_linux

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"emuram/process"
	"emuram/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	lru "github.com/hashicorp/golang-lru"
)

// moduleCacheSize bounds the per-process module lookup cache
const moduleCacheSize = 64

// mapReuse is how long module lookups may share one read of the memory map
const mapReuse = 250 * time.Millisecond

// LinuxProcess implements the process.Process interface for Linux systems.
// Emulators running under Wine are read the same way; their PE images show up
// as file-backed mappings in /proc/[pid]/maps.
type LinuxProcess struct {
	pid     process.ProcessID
	log     *logger.Logger
	mm      []memory_map.MemoryRange
	mmAt    time.Time
	mapper  memory_map.MemoryMap
	now     func() time.Time
	modules *lru.Cache
	mu      sync.Mutex
}

var _ process.Process = (*LinuxProcess)(nil)
var _ process.ModuleLister = (*LinuxProcess)(nil)

// New creates a LinuxProcess that is not yet attached to a PID
func New() *LinuxProcess {
	modules, _ := lru.New(moduleCacheSize)
	return &LinuxProcess{
		log:     logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open")),
		mapper:  memory_map.NewLinuxMemoryMap(),
		now:     time.Now,
		modules: modules,
	}
}

// NewWithPID creates a new LinuxProcess instance and opens it with the given PID
func NewWithPID(pid process.ProcessID) (*LinuxProcess, error) {
	p := New()
	if err := p.Open(pid); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *LinuxProcess) Open(pid process.ProcessID) error {
	procPath := fmt.Sprintf("/proc/%d", pid)
	if _, err := os.Stat(procPath); os.IsNotExist(err) {
		return fmt.Errorf("process with PID %d does not exist: %w", pid, process.ErrProcessNotFound)
	}

	p.mu.Lock()
	p.pid = pid
	p.log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid)))
	p.mu.Unlock()

	if _, err := p.MemoryRanges(); err != nil {
		return fmt.Errorf("failed to initialize memory map: %w", err)
	}

	p.log.Infoln("Process opened")

	return nil
}

func (p *LinuxProcess) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.log.Infoln("Closing process")

	p.pid = 0
	p.mm = nil
	p.mmAt = time.Time{}
	p.modules.Purge()

	p.log = logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open"))

	return nil
}

// GetPID returns the process ID
func (p *LinuxProcess) GetPID() process.ProcessID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pid
}

// IsOpen reports whether the process still exists and is not a zombie
func (p *LinuxProcess) IsOpen() bool {
	pid := p.GetPID()
	if pid == 0 {
		return false
	}
	state, err := readState(pid)
	if err != nil {
		return false
	}
	return state.Alive()
}

// MemoryRanges re-reads /proc/[pid]/maps. A fresh map also drops every cached
// module lookup, since modules may have been unloaded or moved.
func (p *LinuxProcess) MemoryRanges() ([]memory_map.MemoryRange, error) {
	pid := p.GetPID()
	if pid == 0 {
		return nil, process.ErrProcessNotOpen
	}

	mm, err := p.readMap(pid)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.modules.Purge()
	p.mu.Unlock()

	result := make([]memory_map.MemoryRange, len(mm))
	copy(result, mm)
	return result, nil
}

// readMap reads /proc/[pid]/maps and records it as the current snapshot
func (p *LinuxProcess) readMap(pid process.ProcessID) ([]memory_map.MemoryRange, error) {
	mm, err := p.mapper.ReadMemoryMap(int(pid))
	if err != nil {
		return nil, fmt.Errorf("failed to read memory map: %w", err)
	}

	p.mu.Lock()
	p.mm = mm
	p.mmAt = p.now()
	p.mu.Unlock()
	return mm, nil
}

// readState reads the one-letter state field of /proc/[pid]/stat
func readState(pid process.ProcessID) (process.ProcessState, error) {
	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/stat", pid))
	if err != nil {
		return process.ProcessUnknown, err
	}
	// the comm field is parenthesised and may itself contain ") "
	i := strings.LastIndexByte(string(data), ')')
	if i < 0 || i+2 >= len(data) {
		return process.ProcessUnknown, fmt.Errorf("malformed /proc/%d/stat", pid)
	}
	return process.ProcessState(data[i+2 : i+3]), nil
}
