package pointer_path

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deepptr/pod"
	"deepptr/process"
	"deepptr/process_blob"
)

// memoryWith builds a dump whose regions hold the given little-endian values
func memoryWith(values map[process.ProcessMemoryAddress][]byte) *process_blob.ProcessDump {
	dump := process_blob.NewProcessDump()
	for addr, data := range values {
		dump.AddRegion(addr, data, "rw-p")
	}
	return dump
}

func ptr64(v uint64) []byte { return pod.WriteT(v) }
func ptr32(v uint32) []byte { return pod.WriteT(v) }

func TestResolveAddressDereferencesAllButLast(t *testing.T) {
	mem := memoryWith(map[process.ProcessMemoryAddress][]byte{
		0x1010: ptr64(0x2000),
	})
	trace := NewTraceReader(mem, nil)

	p := New(4, 0x1000, Wide, 0x10, 0x20)
	addr, err := p.ResolveAddress(trace)
	require.NoError(t, err)
	assert.Equal(t, process.ProcessMemoryAddress(0x2020), addr)

	reads := trace.Reads()
	require.Len(t, reads, 1)
	assert.Equal(t, process.ProcessMemoryAddress(0x1010), reads[0].Address)
	assert.Equal(t, process.ProcessMemorySize(8), reads[0].Size)
}

func TestResolveAddressReadFailureStopsTraversal(t *testing.T) {
	trace := NewTraceReader(memoryWith(nil), nil)

	p := New(4, 0x1000, Wide, 0x10, 0x20, 0x30)
	addr, err := p.ResolveAddress(trace)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrReadFailed))
	assert.True(t, errors.Is(err, process.ErrAddressNotMapped))
	assert.True(t, addr.IsNull())
	assert.Len(t, trace.Reads(), 1)
}

func TestResolveAddressSingleOffsetIsPureAddition(t *testing.T) {
	for _, base := range []process.ProcessMemoryAddress{1, 0x1000, 0x140000000, 0xFFFFFFFFFFFFFFF0} {
		trace := NewTraceReader(memoryWith(nil), nil)
		p := New64(1, base, 0x8)

		addr, err := p.ResolveAddress(trace)
		require.NoError(t, err)
		assert.Equal(t, base.Add(0x8), addr)
		assert.Empty(t, trace.Reads())
	}
}

func TestResolveAddressEmptyPath(t *testing.T) {
	trace := NewTraceReader(memoryWith(nil), nil)

	_, err := New(4, 0x1000, Wide).ResolveAddress(trace)
	assert.ErrorIs(t, err, ErrEmptyPath)

	_, err = PointerPath{}.ResolveAddressFrom(trace, 0xdead)
	assert.ErrorIs(t, err, ErrEmptyPath)

	assert.Empty(t, trace.Reads())
}

func TestResolveAddressNullBase(t *testing.T) {
	trace := NewTraceReader(memoryWith(map[process.ProcessMemoryAddress][]byte{
		0x10: ptr64(0x2000),
	}), nil)

	_, err := New(4, process.NullAddress, Wide, 0x10, 0x20).ResolveAddress(trace)
	assert.ErrorIs(t, err, ErrNullBase)

	_, err = New(4, 0x1000, Wide).ResolveAddressFrom(trace, process.NullAddress)
	assert.ErrorIs(t, err, ErrNullBase)

	_, err = PointerPath{}.ResolveAddress(trace)
	assert.ErrorIs(t, err, ErrNullBase)

	assert.Empty(t, trace.Reads())
}

func TestResolveAddressReadsChainInOrder(t *testing.T) {
	mem := memoryWith(map[process.ProcessMemoryAddress][]byte{
		0x1000 + 0x8:  ptr64(0x5000),
		0x5000 + 0x18: ptr64(0x9000),
		0x9000 + 0x90: ptr64(0xC000),
	})
	trace := NewTraceReader(mem, nil)

	p := New64(8, 0x1000, 0x8, 0x18, 0x90, 0x1F8)
	addr, err := p.ResolveAddress(trace)
	require.NoError(t, err)
	assert.Equal(t, process.ProcessMemoryAddress(0xC1F8), addr)

	want := []process.ProcessMemoryAddress{0x1008, 0x5018, 0x9090}
	if diff := cmp.Diff(want, trace.Addresses()); diff != "" {
		t.Fatalf("read addresses mismatch (-want +got):\n%s", diff)
	}
}

func TestResolveAddressNarrowWidth(t *testing.T) {
	// the high half must never be read for a 32-bit target
	mem := memoryWith(map[process.ProcessMemoryAddress][]byte{
		0x400010: append(ptr32(0x80001000), 0xFF, 0xFF, 0xFF, 0xFF),
	})
	trace := NewTraceReader(mem, nil)

	p := New32(2, 0x400000, 0x10, 0x4)
	addr, err := p.ResolveAddress(trace)
	require.NoError(t, err)
	assert.Equal(t, process.ProcessMemoryAddress(0x80001004), addr)

	reads := trace.Reads()
	require.Len(t, reads, 1)
	assert.Equal(t, process.ProcessMemorySize(4), reads[0].Size)
}

func TestResolveAddressShortRead(t *testing.T) {
	short := process.ReadMemoryFunc(func(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
		return []byte{1, 2}, nil
	})

	_, err := New64(2, 0x1000, 0, 0).ResolveAddress(short)
	assert.ErrorIs(t, err, ErrReadFailed)
	assert.ErrorIs(t, err, process.ErrShortRead)
}

func TestNewCapacity(t *testing.T) {
	assert.NotPanics(t, func() { New(3, 0x1000, Wide, 1, 2, 3) })
	assert.Panics(t, func() { New(3, 0x1000, Wide, 1, 2, 3, 4) })
	assert.Panics(t, func() { New(0, 0x1000, Wide) })
	assert.Panics(t, func() { New(-1, 0x1000, Narrow) })

	p := New(3, 0x1000, Narrow, 1, 2)
	assert.Equal(t, 3, p.Capacity())
	assert.Equal(t, 2, p.Len())
	assert.Equal(t, Narrow, p.Width())
}

func TestNewCopiesOffsets(t *testing.T) {
	offsets := []uint64{0x10, 0x20}
	p := New64(2, 0x1000, offsets...)
	offsets[0] = 0xFFFF

	got := p.Offsets()
	assert.Equal(t, []uint64{0x10, 0x20}, got)

	got[1] = 0xFFFF
	assert.Equal(t, []uint64{0x10, 0x20}, p.Offsets())
}

func TestWithBaseAddress(t *testing.T) {
	mem := memoryWith(map[process.ProcessMemoryAddress][]byte{
		0x1010: ptr64(0x2000),
		0x3010: ptr64(0x4000),
	})

	orig := New64(4, 0x1000, 0x10, 0x20)
	moved := orig.WithBaseAddress(0x3000)

	assert.Equal(t, process.ProcessMemoryAddress(0x1000), orig.BaseAddress())
	assert.Equal(t, process.ProcessMemoryAddress(0x3000), moved.BaseAddress())
	assert.Equal(t, orig.Offsets(), moved.Offsets())
	assert.Equal(t, orig.Width(), moved.Width())
	assert.Equal(t, orig.Capacity(), moved.Capacity())

	addr, err := moved.ResolveAddress(mem)
	require.NoError(t, err)
	assert.Equal(t, process.ProcessMemoryAddress(0x4020), addr)

	viaOverride, err := orig.ResolveAddressFrom(mem, 0x3000)
	require.NoError(t, err)
	assert.Equal(t, addr, viaOverride)

	addr, err = orig.ResolveAddress(mem)
	require.NoError(t, err)
	assert.Equal(t, process.ProcessMemoryAddress(0x2020), addr)

	_, err = orig.WithBaseAddress(process.NullAddress).ResolveAddress(mem)
	assert.ErrorIs(t, err, ErrNullBase)
}

func TestFailedResolveDoesNotPoisonPath(t *testing.T) {
	mem := memoryWith(nil)
	p := New64(4, 0x1000, 0x10, 0x20)

	_, err := p.ResolveAddress(mem)
	require.ErrorIs(t, err, ErrReadFailed)

	mem.AddRegion(0x1010, ptr64(0x2000), "rw-p")

	addr, err := p.ResolveAddress(mem)
	require.NoError(t, err)
	assert.Equal(t, process.ProcessMemoryAddress(0x2020), addr)
}

type gameState uint8

func (s gameState) ValidBitPattern() bool { return s <= 3 }

type playerStats struct {
	Health int32
	Alive  bool
	_      [3]byte
	Speed  float32
}

func TestResolveValue(t *testing.T) {
	stats := pod.WriteT(playerStats{Health: 87, Alive: true, Speed: 1.5})
	badStats := pod.WriteT(playerStats{Health: 10})
	badStats[4] = 2

	mem := memoryWith(map[process.ProcessMemoryAddress][]byte{
		0x1010: ptr64(0x2000),
		0x2020: stats,
		0x3010: ptr64(0x5000),
		0x5020: badStats,
		0x6000: {2, 7},
	})
	p := New64(4, 0x1000, 0x10, 0x20)

	got, err := ResolveValue[playerStats](p, mem)
	require.NoError(t, err)
	assert.Equal(t, int32(87), got.Health)
	assert.True(t, got.Alive)
	assert.Equal(t, float32(1.5), got.Speed)

	hp, err := ResolveValue[int32](p, mem)
	require.NoError(t, err)
	assert.Equal(t, int32(87), hp)

	_, err = ResolveValueFrom[playerStats](p, mem, 0x3000)
	assert.ErrorIs(t, err, ErrInvalidBitPattern)
	assert.NotErrorIs(t, err, ErrReadFailed)

	state, err := ResolveValue[gameState](New64(1, 0x6000, 0), mem)
	require.NoError(t, err)
	assert.Equal(t, gameState(2), state)

	_, err = ResolveValue[gameState](New64(1, 0x6000, 1), mem)
	assert.ErrorIs(t, err, ErrInvalidBitPattern)
}

func TestResolveValueErrors(t *testing.T) {
	mem := memoryWith(map[process.ProcessMemoryAddress][]byte{
		0x1010: ptr64(0x2000),
	})
	p := New64(4, 0x1000, 0x10, 0x20)

	_, err := ResolveValue[uint64](p, mem)
	assert.ErrorIs(t, err, ErrReadFailed)
	assert.ErrorIs(t, err, process.ErrAddressNotMapped)

	_, err = ResolveValue[uint64](p.WithBaseAddress(process.NullAddress), mem)
	assert.ErrorIs(t, err, ErrNullBase)

	_, err = ResolveValue[uint64](New64(4, 0x1000), mem)
	assert.ErrorIs(t, err, ErrEmptyPath)

	_, err = ResolveValue[*int](New64(1, 0x1010, 0), mem)
	assert.ErrorIs(t, err, pod.ErrNotPOD)

	_, err = ResolveValue[struct{}](p, mem)
	assert.ErrorIs(t, err, pod.ErrZeroSize)
}

func TestReadValueAt(t *testing.T) {
	mem := memoryWith(map[process.ProcessMemoryAddress][]byte{
		0x1010: ptr64(0x2000),
		0x2020: pod.WriteT(uint32(7)),
		0x2030: {5},
	})
	trace := NewTraceReader(mem, nil)
	p := New64(4, 0x1000, 0x10, 0x20)

	addr, err := p.ResolveAddress(trace)
	require.NoError(t, err)

	v, err := ReadValueAt[uint32](trace, addr)
	require.NoError(t, err)
	assert.Equal(t, uint32(7), v)
	assert.Len(t, trace.Reads(), 2)

	_, err = ReadValueAt[uint32](trace, 0x9000)
	assert.ErrorIs(t, err, ErrReadFailed)
	assert.ErrorIs(t, err, process.ErrAddressNotMapped)

	_, err = ReadValueAt[bool](trace, 0x2030)
	assert.ErrorIs(t, err, ErrInvalidBitPattern)
	assert.NotErrorIs(t, err, ErrReadFailed)

	short := process.ReadMemoryFunc(func(addr process.ProcessMemoryAddress, size process.ProcessMemorySize) ([]byte, error) {
		return []byte{1}, nil
	})
	_, err = ReadValueAt[uint32](short, 0x2020)
	assert.ErrorIs(t, err, ErrReadFailed)
	assert.ErrorIs(t, err, process.ErrShortRead)
}

func TestConcurrentResolve(t *testing.T) {
	mem := memoryWith(map[process.ProcessMemoryAddress][]byte{
		0x1010: ptr64(0x2000),
		0x2020: pod.WriteT(uint32(42)),
	})
	p := New64(4, 0x1000, 0x10, 0x20)

	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := ResolveValue[uint32](p, mem)
			if err == nil && v != 42 {
				err = errors.New("unexpected value")
			}
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
}

func TestString(t *testing.T) {
	assert.Equal(t, "0x140000000 -> [+0x10] -> [+0x20] -> +0x8 (64-bit)",
		New64(4, 0x140000000, 0x10, 0x20, 0x8).String())
	assert.Equal(t, "0x400000 -> +0x8 (32-bit)", New32(1, 0x400000, 0x8).String())
	assert.Equal(t, "0x0 (64-bit, empty)", PointerPath{}.String())
}
