//go:build windows

package process_windows

import (
	"errors"
	"fmt"
	"sync"

	"emuram/process"
	"emuram/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/sys/windows"
)

const (
	stillActive     = 259
	moduleCacheSize = 64
)

// WindowsProcess implements the process.Process interface for Windows systems
type WindowsProcess struct {
	pid     process.ProcessID
	handle  windows.Handle
	log     *logger.Logger
	mm      []memory_map.MemoryRange
	modules *lru.Cache
	mu      sync.Mutex
}

var _ process.Process = (*WindowsProcess)(nil)
var _ process.ModuleLister = (*WindowsProcess)(nil)

// New creates a new WindowsProcess instance
func New() *WindowsProcess {
	modules, _ := lru.New(moduleCacheSize)
	return &WindowsProcess{
		log:     logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open")),
		modules: modules,
	}
}

// NewWithPID creates a new WindowsProcess instance and opens it with the given PID
func NewWithPID(pid process.ProcessID) (*WindowsProcess, error) {
	p := New()
	if err := p.Open(pid); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *WindowsProcess) Open(pid process.ProcessID) error {
	handle, err := windows.OpenProcess(windows.PROCESS_VM_READ|windows.PROCESS_QUERY_INFORMATION, false, uint32(pid))
	if err != nil {
		return fmt.Errorf("OpenProcess failed: %w", err)
	}

	p.mu.Lock()
	p.pid = pid
	p.handle = handle
	p.log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid)))
	p.mu.Unlock()

	if _, err := p.MemoryRanges(); err != nil {
		p.log.Warn("Failed to initialize memory map: ", err)
	}

	p.log.Infoln("Process opened")
	return nil
}

func (p *WindowsProcess) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.handle != 0 {
		if err := windows.CloseHandle(p.handle); err != nil {
			return fmt.Errorf("CloseHandle failed: %w", err)
		}
		p.handle = 0
	}

	p.pid = 0
	p.mm = nil
	p.modules.Purge()
	p.log = logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open"))
	p.log.Infoln("Process closed")

	return nil
}

func (p *WindowsProcess) GetPID() process.ProcessID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pid
}

func (p *WindowsProcess) getHandle() windows.Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handle
}

// IsOpen reports whether the process has not exited
func (p *WindowsProcess) IsOpen() bool {
	handle := p.getHandle()
	if handle == 0 {
		return false
	}
	var code uint32
	if err := windows.GetExitCodeProcess(handle, &code); err != nil {
		return false
	}
	return code == stillActive
}

// MemoryRanges walks the address space with VirtualQueryEx
func (p *WindowsProcess) MemoryRanges() ([]memory_map.MemoryRange, error) {
	handle := p.getHandle()
	if handle == 0 {
		return nil, process.ErrProcessNotOpen
	}

	mm, err := memory_map.QueryMemoryMap(handle)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	p.mm = mm
	p.modules.Purge()
	p.mu.Unlock()

	result := make([]memory_map.MemoryRange, len(mm))
	copy(result, mm)
	return result, nil
}

func (p *WindowsProcess) ReadMemory(addr process.Address, size process.ProcessMemorySize) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}

	handle := p.getHandle()
	if handle == 0 {
		return nil, process.ErrProcessNotOpen
	}

	buf := make([]byte, size)
	var bytesRead uintptr
	err := windows.ReadProcessMemory(handle, uintptr(addr), &buf[0], uintptr(size), &bytesRead)
	if err != nil {
		if errors.Is(err, windows.ERROR_PARTIAL_COPY) || errors.Is(err, windows.ERROR_NOACCESS) {
			return nil, fmt.Errorf("read at %s: %w", addr, process.ErrAddressNotMapped)
		}
		return nil, fmt.Errorf("ReadProcessMemory failed: %w", err)
	}

	if bytesRead != uintptr(size) {
		return nil, fmt.Errorf("read incomplete: expected %d, got %d: %w", size, bytesRead, process.ErrShortRead)
	}

	return buf, nil
}
