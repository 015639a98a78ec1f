//go:build linux

package process_linux

import (
	"context"
	"errors"
	"os"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"deepptr/pointer_path"
	"deepptr/process"
	"deepptr/process/memory_map"
)

type target struct {
	pad   [2]uint64
	value int32
}

type node struct {
	tag  uint64
	next *target
}

// package level so the objects live in the heap or data segment, never on a movable stack
var (
	probe      = uint64(0x1122334455667788)
	heapValue  = new(uint64)
	chainValue = &target{value: 1337}
	chainHead  = &node{tag: 1, next: chainValue}
)

// openSelf opens the test binary itself; sandboxes that forbid
// process_vm_readv skip instead of failing.
func openSelf(t *testing.T) *LinuxProcess {
	t.Helper()

	p, err := NewWithPID(process.ProcessID(os.Getpid()))
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })

	_, err = p.ReadMemory(process.ProcessMemoryAddress(uintptr(unsafe.Pointer(&probe))), 8)
	if errors.Is(err, unix.EPERM) || errors.Is(err, unix.ENOSYS) || errors.Is(err, unix.EACCES) {
		t.Skipf("process_vm_readv unavailable: %v", err)
	}
	require.NoError(t, err)

	return p
}

func TestReadMemorySelf(t *testing.T) {
	p := openSelf(t)

	*heapValue = 0xCAFEBABEDEADBEEF
	addr := process.ProcessMemoryAddress(uintptr(unsafe.Pointer(heapValue)))

	data, err := p.ReadMemory(addr, 8)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xEF, 0xBE, 0xAD, 0xDE, 0xBE, 0xBA, 0xFE, 0xCA}, data)
}

func TestResolvePointerPathSelf(t *testing.T) {
	p := openSelf(t)

	n, tgt := chainHead, chainValue

	base := process.ProcessMemoryAddress(uintptr(unsafe.Pointer(n)))
	path := pointer_path.New64(4, base, uint64(unsafe.Offsetof(n.next)), uint64(unsafe.Offsetof(tgt.value)))

	addr, err := path.ResolveAddress(p)
	require.NoError(t, err)
	assert.Equal(t, process.ProcessMemoryAddress(uintptr(unsafe.Pointer(&tgt.value))), addr)

	v, err := pointer_path.ResolveValue[int32](path, p)
	require.NoError(t, err)
	assert.Equal(t, int32(1337), v)
}

func TestReadMemoryUnmapped(t *testing.T) {
	p := openSelf(t)

	_, err := p.ReadMemory(0x8, 8)
	assert.ErrorIs(t, err, process.ErrAddressNotMapped)
	assert.False(t, p.IsValidAddress(0x8))
}

func TestReadMemoryPastRegionEnd(t *testing.T) {
	p := openSelf(t)

	mm, err := p.GetMemoryMap()
	require.NoError(t, err)

	// a readable region with no mapping directly after it
	var tail *memory_map.MemoryMapItem
	for i := range mm {
		if !mm[i].IsReadable() || mm[i].Size < 8 || mm[i].Address <= minValidAddress {
			continue
		}
		if i+1 < len(mm) && mm[i+1].Address == mm[i].End() {
			continue
		}
		tail = &mm[i]
		break
	}
	if tail == nil {
		t.Skip("no isolated readable region")
	}

	last := process.ProcessMemoryAddress(tail.End() - 8)
	assert.True(t, p.IsValidAddress(last))

	_, err = p.ReadMemory(last, 16)
	assert.ErrorIs(t, err, process.ErrAddressNotMapped)
}

func TestClosedProcess(t *testing.T) {
	p := New()

	_, err := p.ReadMemory(0x400000, 4)
	assert.ErrorIs(t, err, process.ErrProcessNotOpen)

	_, err = p.GetMemoryMap()
	assert.ErrorIs(t, err, process.ErrProcessNotOpen)

	assert.ErrorIs(t, p.UpdateMemoryMap(), process.ErrProcessNotOpen)
	assert.Equal(t, process.ProcessID(0), p.GetPID())
}

func TestOpenInvalidPID(t *testing.T) {
	_, err := NewWithPID(0)
	assert.Error(t, err)

	_, err = NewWithPID(process.ProcessID(1 << 30))
	assert.Error(t, err)
}

func TestSaveHonorsContext(t *testing.T) {
	p := openSelf(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Save(ctx, t.TempDir(), SaveOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}
