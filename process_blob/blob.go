package process_blob

import (
	"fmt"

	"deepptr/process"
)

// ProcessBlob serves reads from one contiguous chunk of memory captured at baseaddress.
// It is immutable after construction and safe for concurrent reads.
type ProcessBlob struct {
	baseaddress process.ProcessMemoryAddress
	data        []byte
}

var _ process.MemoryReader = (*ProcessBlob)(nil)

func NewProcessBlob(baseAddress process.ProcessMemoryAddress, data []byte) *ProcessBlob {
	return &ProcessBlob{
		baseaddress: baseAddress,
		data:        data,
	}
}

func (p *ProcessBlob) Data() []byte {
	return p.data
}

func (p *ProcessBlob) BaseAddress() process.ProcessMemoryAddress {
	return p.baseaddress
}

// Contains reports whether [addr, addr+size) lies inside the blob
func (p *ProcessBlob) Contains(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) bool {
	if addr < p.baseaddress {
		return false
	}
	offset := uint64(addr - p.baseaddress)
	end := offset + uint64(size)
	return end >= offset && end <= uint64(len(p.data))
}

// ReadMemory returns a copy of size bytes at addr
func (p *ProcessBlob) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	if !p.Contains(addr, size) {
		return nil, fmt.Errorf("read %d bytes at %s outside blob [%s, +%d): %w",
			size, addr, p.baseaddress, len(p.data), process.ErrAddressNotMapped)
	}
	offset := uint64(addr - p.baseaddress)
	result := make([]byte, size)
	copy(result, p.data[offset:offset+uint64(size)])
	return result, nil
}

// OffsetBlob returns a sub-blob starting offset bytes into this one
func (p *ProcessBlob) OffsetBlob(offset process.ProcessMemoryAddress, size process.ProcessMemorySize) (*ProcessBlob, error) {
	addr := p.baseaddress + offset
	data, err := p.ReadMemory(addr, size)
	if err != nil {
		return nil, err
	}
	return NewProcessBlob(addr, data), nil
}
