//go:build linux

package process_linux

import (
	"fmt"
	"os"
	"sync"

	"deepptr/process"
	"deepptr/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
)

// Addresses at or below this value are never handed to the kernel
const minValidAddress = 0x10000

// LinuxProcess reads the memory of another Linux process with process_vm_readv.
// Reads are safe for concurrent use; the memory map is refreshed on demand.
type LinuxProcess struct {
	pid process.ProcessID
	log *logger.Logger
	mm  []memory_map.MemoryMapItem
	mu  sync.Mutex
}

var _ process.MemoryReader = (*LinuxProcess)(nil)

func notOpenLogger() *logger.Logger {
	return logger.NewLogger(coloransi.Color(coloransi.Red, coloransi.ColorOrange, "process-not-open"))
}

// New creates a new LinuxProcess instance
func New() *LinuxProcess {
	return &LinuxProcess{
		log: notOpenLogger(),
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
	if pid <= 0 {
		return fmt.Errorf("invalid PID %d", pid)
	}

	procPath := fmt.Sprintf("/proc/%d", pid)
	if _, err := os.Stat(procPath); os.IsNotExist(err) {
		return fmt.Errorf("process with PID %d does not exist", pid)
	}

	p.mu.Lock()
	p.pid = pid
	p.log = logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid)))
	p.mu.Unlock()

	if err := p.UpdateMemoryMap(); err != nil {
		p.Close()
		return fmt.Errorf("failed to initialize memory map: %w", err)
	}

	p.log.Infoln("Process opened")

	return nil
}

func (p *LinuxProcess) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pid != 0 {
		p.log.Infoln("Process closed")
	}

	p.pid = 0
	p.mm = nil
	p.log = notOpenLogger()

	return nil
}

// GetPID returns the process ID, 0 when closed
func (p *LinuxProcess) GetPID() process.ProcessID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pid
}

// UpdateMemoryMap re-reads /proc/[pid]/maps. Call it when the target may
// have mapped new memory since the last refresh.
func (p *LinuxProcess) UpdateMemoryMap() error {
	p.mu.Lock()
	pid := p.pid
	p.mu.Unlock()

	if pid == 0 {
		return process.ErrProcessNotOpen
	}

	mm, err := memory_map.ReadMemoryMap(int(pid))
	if err != nil {
		return fmt.Errorf("failed to read memory map: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.pid != pid {
		return process.ErrProcessNotOpen
	}
	p.mm = mm
	p.log.Debugln("Memory map updated:", len(mm), "regions")
	return nil
}

func (p *LinuxProcess) IsValidAddress(addr process.ProcessMemoryAddress) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.isValidAddressInternal(addr)
}

// Internal helper function that assumes the mutex is already locked
func (p *LinuxProcess) isValidAddressInternal(addr process.ProcessMemoryAddress) bool {
	return p.isValidRangeInternal(addr, 1)
}

// isValidRangeInternal checks the whole span; the mutex must be held
func (p *LinuxProcess) isValidRangeInternal(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) bool {
	if addr <= minValidAddress {
		return false
	}

	return memory_map.IsReadableRange(uint64(addr), uint(size), p.mm)
}

// GetMemoryMap returns a copy of the current memory map
func (p *LinuxProcess) GetMemoryMap() ([]memory_map.MemoryMapItem, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.pid == 0 {
		return nil, process.ErrProcessNotOpen
	}

	result := make([]memory_map.MemoryMapItem, len(p.mm))
	copy(result, p.mm)

	return result, nil
}

// Name returns the target's command name from /proc/[pid]/comm
func (p *LinuxProcess) Name() (string, error) {
	pid := p.GetPID()
	if pid == 0 {
		return "", process.ErrProcessNotOpen
	}

	data, err := os.ReadFile(fmt.Sprintf("/proc/%d/comm", pid))
	if err != nil {
		return "", fmt.Errorf("failed to read process name: %w", err)
	}

	name := string(data)
	if len(name) > 0 && name[len(name)-1] == '\n' {
		name = name[:len(name)-1]
	}
	return name, nil
}
