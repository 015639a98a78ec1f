package pointer_path

import (
	"fmt"
	"sync"

	"deepptr/process"

	"github.com/Moonlight-Companies/gologger/logger"
)

// TracedRead is one read observed by a TraceReader
type TracedRead struct {
	Address process.ProcessMemoryAddress
	Size    process.ProcessMemorySize
	Data    []byte
	Err     error
}

// TraceReader wraps a MemoryReader, records every read and logs it at debug level.
// It is safe for concurrent use if the wrapped reader is.
type TraceReader struct {
	reader process.MemoryReader
	log    *logger.Logger

	mu    sync.Mutex
	reads []TracedRead
}

var _ process.MemoryReader = (*TraceReader)(nil)

// NewTraceReader wraps r. log may be nil to only record.
func NewTraceReader(r process.MemoryReader, log *logger.Logger) *TraceReader {
	return &TraceReader{reader: r, log: log}
}

func (t *TraceReader) ReadMemory(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
	data, err := t.reader.ReadMemory(addr, size)

	t.mu.Lock()
	t.reads = append(t.reads, TracedRead{Address: addr, Size: size, Data: append([]byte(nil), data...), Err: err})
	n := len(t.reads)
	t.mu.Unlock()

	if t.log != nil {
		if err != nil {
			t.log.Debugln(fmt.Sprintf("[read %d] %d bytes at %s failed: %v", n, size, addr, err))
		} else {
			t.log.Debugln(fmt.Sprintf("[read %d] %d bytes at %s => % x", n, size, addr, data))
		}
	}

	return data, err
}

// Reads returns the reads recorded so far, oldest first
func (t *TraceReader) Reads() []TracedRead {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]TracedRead, len(t.reads))
	copy(out, t.reads)
	return out
}

// Addresses returns just the addresses of the recorded reads
func (t *TraceReader) Addresses() []process.ProcessMemoryAddress {
	reads := t.Reads()
	out := make([]process.ProcessMemoryAddress, len(reads))
	for i, r := range reads {
		out[i] = r.Address
	}
	return out
}

// Reset forgets all recorded reads
func (t *TraceReader) Reset() {
	t.mu.Lock()
	t.reads = nil
	t.mu.Unlock()
}
