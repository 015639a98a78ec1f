package process_blob

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"deepptr/process"
	"deepptr/process/memory_map"
)

const (
	metadataFile  = "metadata.json"
	memoryMapFile = "process_memory_map.json"
)

// BlobFilename is the name a region's bytes are stored under inside a dump directory
func BlobFilename(region memory_map.MemoryMapItem) string {
	return fmt.Sprintf("blob_0x%x_%d.bin", region.Address, region.Size)
}

// ProcessDump serves reads from a saved snapshot of a process address space.
// Reads are safe for concurrent use; AddRegion and Load take the write lock.
type ProcessDump struct {
	PID       process.ProcessID
	Name      string
	MemoryMap []memory_map.MemoryMapItem
	Blobs     map[uint64][]byte // Address -> Data

	mu sync.RWMutex
}

var _ process.MemoryReader = (*ProcessDump)(nil)

// NewProcessDump creates a new ProcessDump instance
func NewProcessDump() *ProcessDump {
	return &ProcessDump{
		Blobs: make(map[uint64][]byte),
	}
}

// LoadProcessDump is NewProcessDump followed by Load
func LoadProcessDump(dirname string) (*ProcessDump, error) {
	p := NewProcessDump()
	if err := p.Load(dirname); err != nil {
		return nil, err
	}
	return p, nil
}

// AddRegion registers data as the contents of a region starting at addr
func (p *ProcessDump) AddRegion(addr process.ProcessMemoryAddress, data []byte, perms string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	region := memory_map.MemoryMapItem{Address: uint64(addr), Size: uint(len(data)), Perms: perms}
	p.MemoryMap = append(p.MemoryMap, region)
	memory_map.Sort(p.MemoryMap)
	if p.Blobs == nil {
		p.Blobs = make(map[uint64][]byte)
	}
	p.Blobs[region.Address] = data
}

// Close drops all regions; the dump stays usable and can be refilled
func (p *ProcessDump) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.Blobs = make(map[uint64][]byte)
	p.MemoryMap = nil
	return nil
}

func (p *ProcessDump) GetPID() process.ProcessID {
	return p.PID
}

func (p *ProcessDump) IsValidAddress(addr process.ProcessMemoryAddress) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return memory_map.Find(uint64(addr), p.MemoryMap) != nil
}

func (p *ProcessDump) GetMemoryMap() ([]memory_map.MemoryMapItem, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	result := make([]memory_map.MemoryMapItem, len(p.MemoryMap))
	copy(result, p.MemoryMap)
	return result, nil
}

func (p *ProcessDump) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	region := memory_map.Find(uint64(addr), p.MemoryMap)
	if region == nil {
		return nil, fmt.Errorf("read at %s: %w", addr, process.ErrAddressNotMapped)
	}

	data, ok := p.Blobs[region.Address]
	if !ok {
		return nil, fmt.Errorf("no data for region 0x%x: %w", region.Address, process.ErrAddressNotMapped)
	}

	offset := uint64(addr) - region.Address
	end := offset + uint64(size)
	if end < offset || end > uint64(len(data)) {
		return nil, fmt.Errorf("read %d bytes at %s exceeds region 0x%x data bounds: %w",
			size, addr, region.Address, process.ErrAddressNotMapped)
	}

	result := make([]byte, size)
	copy(result, data[offset:end])
	return result, nil
}

// Save writes the dump in the directory layout Load understands
func (p *ProcessDump) Save(dirname string) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if err := os.MkdirAll(dirname, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := WriteDumpHeader(dirname, process.ProcessInfo{PID: p.PID, Name: p.Name}, p.MemoryMap); err != nil {
		return err
	}

	for _, region := range p.MemoryMap {
		data, ok := p.Blobs[region.Address]
		if !ok {
			continue
		}
		if err := os.WriteFile(filepath.Join(dirname, BlobFilename(region)), data, 0644); err != nil {
			return fmt.Errorf("failed to write blob for region 0x%x: %w", region.Address, err)
		}
	}

	return nil
}

// WriteDumpHeader writes metadata.json and process_memory_map.json
func WriteDumpHeader(dirname string, info process.ProcessInfo, memoryMap []memory_map.MemoryMapItem) error {
	metadataJSON, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dirname, metadataFile), metadataJSON, 0644); err != nil {
		return fmt.Errorf("failed to write metadata file: %w", err)
	}

	memoryMapJSON, err := json.MarshalIndent(memoryMap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal memory map: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dirname, memoryMapFile), memoryMapJSON, 0644); err != nil {
		return fmt.Errorf("failed to write memory map file: %w", err)
	}

	return nil
}

func (p *ProcessDump) Load(dirname string) error {
	metadataBytes, err := os.ReadFile(filepath.Join(dirname, metadataFile))
	if err != nil {
		return fmt.Errorf("failed to read metadata: %w", err)
	}

	var metadata process.ProcessInfo
	if err := json.Unmarshal(metadataBytes, &metadata); err != nil {
		return fmt.Errorf("failed to unmarshal metadata: %w", err)
	}

	mmBytes, err := os.ReadFile(filepath.Join(dirname, memoryMapFile))
	if err != nil {
		return fmt.Errorf("failed to read memory map: %w", err)
	}

	var memoryMap []memory_map.MemoryMapItem
	if err := json.Unmarshal(mmBytes, &memoryMap); err != nil {
		return fmt.Errorf("failed to unmarshal memory map: %w", err)
	}
	memory_map.Sort(memoryMap)

	blobs := make(map[uint64][]byte)
	for _, region := range memoryMap {
		filename := filepath.Join(dirname, BlobFilename(region))
		data, err := os.ReadFile(filename)
		if errors.Is(err, os.ErrNotExist) {
			continue // Blob not saved (e.g. too large or not readable)
		}
		if err != nil {
			return fmt.Errorf("failed to read blob %s: %w", filename, err)
		}

		blobs[region.Address] = data
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.PID = metadata.PID
	p.Name = metadata.Name
	p.MemoryMap = memoryMap
	p.Blobs = blobs

	return nil
}
