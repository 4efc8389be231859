package process_blob

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"emuram/process"
	"emuram/process/memory_map"
)

const (
	metadataFile  = "metadata.json"
	memoryMapFile = "process_memory_map.json"
)

func blobFileName(r memory_map.MemoryRange) string {
	return fmt.Sprintf("blob_0x%x_%d.bin", r.Address, r.Size)
}

// Metadata is the process description stored alongside a dump
type Metadata struct {
	PID     process.ProcessID `json:"pid"`
	Name    string            `json:"name"`
	Modules []process.Module  `json:"modules,omitempty"`
}

// ProcessDump implements process.Process over recorded memory. It backs
// offline discovery of a saved dump and serves as the scripted process in tests.
type ProcessDump struct {
	mu          sync.RWMutex
	PID         process.ProcessID
	Name        string
	MemoryMap   []memory_map.MemoryRange
	ModuleTable []process.Module
	Blobs       map[uint64]*ProcessBlob // Address -> Data
	closed      bool
}

var _ process.Process = (*ProcessDump)(nil)
var _ process.ModuleLister = (*ProcessDump)(nil)

// NewProcessDump creates a new ProcessDump instance
func NewProcessDump() *ProcessDump {
	return &ProcessDump{
		Blobs: make(map[uint64]*ProcessBlob),
	}
}

// AddRegion maps data at addr and returns the blob so callers can stage bytes into it
func (p *ProcessDump) AddRegion(addr process.Address, data []byte, flags memory_map.Flags, path string) *ProcessBlob {
	p.mu.Lock()
	defer p.mu.Unlock()

	if path != "" {
		flags |= memory_map.FlagPath
	}
	blob := NewProcessBlob(addr, data)
	p.Blobs[uint64(addr)] = blob
	p.MemoryMap = append(p.MemoryMap, memory_map.MemoryRange{
		Address: uint64(addr),
		Size:    uint64(len(data)),
		Flags:   flags,
		Path:    path,
	})
	memory_map.Sort(p.MemoryMap)
	return blob
}

// AddZeroRegion maps size zero bytes at addr
func (p *ProcessDump) AddZeroRegion(addr process.Address, size uint64, flags memory_map.Flags, path string) *ProcessBlob {
	return p.AddRegion(addr, make([]byte, size), flags, path)
}

// AddModule maps a zeroed image of size bytes and records it as a loaded module
func (p *ProcessDump) AddModule(name string, addr process.Address, size uint64) *ProcessBlob {
	blob := p.AddZeroRegion(addr, size, memory_map.FlagRead|memory_map.FlagExecute, name)
	p.mu.Lock()
	p.ModuleTable = append(p.ModuleTable, process.Module{Name: name, Address: addr, Size: size})
	p.mu.Unlock()
	return blob
}

// Unmap drops the region starting at addr, and any module loaded there, as
// if the target freed it
func (p *ProcessDump) Unmap(addr process.Address) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.Blobs, uint64(addr))
	kept := p.MemoryMap[:0]
	for _, r := range p.MemoryMap {
		if r.Address != uint64(addr) {
			kept = append(kept, r)
		}
	}
	p.MemoryMap = kept

	modules := p.ModuleTable[:0]
	for _, m := range p.ModuleTable {
		if m.Address != addr {
			modules = append(modules, m)
		}
	}
	p.ModuleTable = modules
}

// Put writes staged bytes into whichever region holds addr
func (p *ProcessDump) Put(addr process.Address, data []byte) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	blob, err := p.blobFor(addr)
	if err != nil {
		return err
	}
	return blob.Put(addr, data)
}

// PutUint32 stages a little-endian 32-bit value
func (p *ProcessDump) PutUint32(addr process.Address, v uint32) error {
	return p.Put(addr, binary.LittleEndian.AppendUint32(nil, v))
}

// PutUint64 stages a little-endian 64-bit value
func (p *ProcessDump) PutUint64(addr process.Address, v uint64) error {
	return p.Put(addr, binary.LittleEndian.AppendUint64(nil, v))
}

func (p *ProcessDump) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	p.Blobs = nil
	p.MemoryMap = nil
	return nil
}

func (p *ProcessDump) GetPID() process.ProcessID {
	return p.PID
}

func (p *ProcessDump) IsOpen() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return !p.closed
}

func (p *ProcessDump) MemoryRanges() ([]memory_map.MemoryRange, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, process.ErrProcessNotOpen
	}
	result := make([]memory_map.MemoryRange, len(p.MemoryMap))
	copy(result, p.MemoryMap)
	return result, nil
}

func (p *ProcessDump) ReadMemory(addr process.Address, size process.ProcessMemorySize) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return nil, process.ErrProcessNotOpen
	}
	blob, err := p.blobFor(addr)
	if err != nil {
		return nil, err
	}
	return blob.ReadMemory(addr, size)
}

func (p *ProcessDump) blobFor(addr process.Address) (*ProcessBlob, error) {
	region := memory_map.Find(uint64(addr), p.MemoryMap)
	if region == nil {
		return nil, fmt.Errorf("read at %s: %w", addr, process.ErrAddressNotMapped)
	}

	blob, ok := p.Blobs[region.Address]
	if !ok {
		return nil, fmt.Errorf("no data for region 0x%x", region.Address)
	}
	return blob, nil
}

func (p *ProcessDump) Modules() ([]process.Module, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]process.Module, len(p.ModuleTable))
	copy(result, p.ModuleTable)
	return result, nil
}

func (p *ProcessDump) GetModuleAddress(name string) (process.Address, error) {
	addr, _, err := p.GetModuleRange(name)
	return addr, err
}

// GetModuleRange prefers the recorded module table and falls back to the
// file-backed regions of the memory map.
func (p *ProcessDump) GetModuleRange(name string) (process.Address, uint64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, m := range p.ModuleTable {
		if strings.EqualFold(m.Name, name) {
			return m.Address, m.Size, nil
		}
	}
	if start, size, ok := memory_map.ModuleRange(name, p.MemoryMap); ok {
		return process.Address(start), size, nil
	}
	return process.NULL, 0, fmt.Errorf("%s: %w", name, process.ErrModuleNotFound)
}

// Load loads the process memory and metadata from a directory written by Save
func (p *ProcessDump) Load(dirname string) error {
	metadataBytes, err := os.ReadFile(filepath.Join(dirname, metadataFile))
	if err != nil {
		return fmt.Errorf("failed to read metadata: %w", err)
	}

	var metadata Metadata
	if err := json.Unmarshal(metadataBytes, &metadata); err != nil {
		return fmt.Errorf("failed to unmarshal metadata: %w", err)
	}

	mmBytes, err := os.ReadFile(filepath.Join(dirname, memoryMapFile))
	if err != nil {
		return fmt.Errorf("failed to read memory map: %w", err)
	}

	var memoryMap []memory_map.MemoryRange
	if err := json.Unmarshal(mmBytes, &memoryMap); err != nil {
		return fmt.Errorf("failed to unmarshal memory map: %w", err)
	}
	memory_map.Sort(memoryMap)

	blobs := make(map[uint64]*ProcessBlob)
	for _, region := range memoryMap {
		filename := filepath.Join(dirname, blobFileName(region))
		if _, err := os.Stat(filename); os.IsNotExist(err) {
			continue // Blob not saved (e.g. too large or not readable)
		}

		data, err := os.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("failed to read blob %s: %w", filename, err)
		}
		blobs[region.Address] = NewProcessBlob(process.Address(region.Address), data)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.PID = metadata.PID
	p.Name = metadata.Name
	p.ModuleTable = metadata.Modules
	p.MemoryMap = memoryMap
	p.Blobs = blobs
	p.closed = false
	return nil
}

// LoadProcessDump reads a dump directory into a new ProcessDump
func LoadProcessDump(dirname string) (*ProcessDump, error) {
	p := NewProcessDump()
	if err := p.Load(dirname); err != nil {
		return nil, err
	}
	return p, nil
}
