package process_blob

import (
	"fmt"

	"emuram/process"
)

// ProcessBlob is one contiguous chunk of recorded memory
type ProcessBlob struct {
	baseaddress process.Address
	data        []byte
}

func NewProcessBlob(baseAddress process.Address, data []byte) *ProcessBlob {
	return &ProcessBlob{
		baseaddress: baseAddress,
		data:        data,
	}
}

func (p *ProcessBlob) Data() []byte {
	return p.data
}

func (p *ProcessBlob) Address() process.Address {
	return p.baseaddress
}

// Contains reports whether [addr, addr+size) lies inside the blob
func (p *ProcessBlob) Contains(addr process.Address, size process.ProcessMemorySize) bool {
	if addr < p.baseaddress {
		return false
	}
	offset := uint64(addr - p.baseaddress)
	return offset+uint64(size) <= uint64(len(p.data))
}

// ReadMemory returns a copy of size bytes at addr
func (p *ProcessBlob) ReadMemory(addr process.Address, size process.ProcessMemorySize) ([]byte, error) {
	if !p.Contains(addr, size) {
		return nil, fmt.Errorf("read %d bytes at %s: address out of bounds", size, addr)
	}
	offset := uint64(addr - p.baseaddress)
	result := make([]byte, size)
	copy(result, p.data[offset:offset+uint64(size)])
	return result, nil
}

// Put overwrites bytes inside the blob. It is how tests and replay tools
// stage memory; it never touches a live process.
func (p *ProcessBlob) Put(addr process.Address, data []byte) error {
	if !p.Contains(addr, process.ProcessMemorySize(len(data))) {
		return fmt.Errorf("put %d bytes at %s: address out of bounds", len(data), addr)
	}
	copy(p.data[addr-p.baseaddress:], data)
	return nil
}
