package pointer_path

import (
	"errors"
	"fmt"

	"deepptr/pod"
	"deepptr/process"
)

var (
	// ErrNullBase is returned when traversal starts from the null address
	ErrNullBase = errors.New("pointer path: null base address")

	// ErrEmptyPath is returned when a path without offsets is resolved
	ErrEmptyPath = errors.New("pointer path: no offsets")

	// ErrReadFailed wraps every failed memory read; the reader's error is wrapped alongside it
	ErrReadFailed = errors.New("pointer path: read failed")

	// ErrInvalidBitPattern is returned when the final value's bytes are not a legal T
	ErrInvalidBitPattern = pod.ErrInvalidBitPattern
)

// ResolveAddress follows the path from its own base address and returns the
// address of the value of interest
func (p PointerPath) ResolveAddress(r process.MemoryReader) (process.ProcessMemoryAddress, error) {
	return p.ResolveAddressFrom(r, p.baseAddress)
}

// ResolveAddressFrom follows the path starting at baseAddress instead of the
// path's own base.
//
// len(offsets)-1 pointer reads are issued, strictly in order. The first failed
// read aborts the walk.
func (p PointerPath) ResolveAddressFrom(r process.MemoryReader, baseAddress process.ProcessMemoryAddress) (process.ProcessMemoryAddress, error) {
	if baseAddress.IsNull() {
		return process.NullAddress, ErrNullBase
	}
	if len(p.offsets) == 0 {
		return process.NullAddress, ErrEmptyPath
	}

	last := len(p.offsets) - 1
	address := baseAddress

	for i, offset := range p.offsets[:last] {
		ptrAddr := address.Add(offset)

		ptr, err := p.width.readPointer(r, ptrAddr)
		if err != nil {
			return process.NullAddress, fmt.Errorf("%w: step %d: %s pointer at %s (%s + 0x%X): %w",
				ErrReadFailed, i, p.width, ptrAddr, address, offset, err)
		}

		address = ptr
	}

	return address.Add(p.offsets[last]), nil
}

// ResolveValue resolves p from its own base and reads a T at the resulting address.
// Go methods cannot take type parameters, hence the function form.
func ResolveValue[T any](p PointerPath, r process.MemoryReader) (T, error) {
	return ResolveValueFrom[T](p, r, p.baseAddress)
}

// ResolveValueFrom resolves p from baseAddress and reads a T at the resulting
// address. The bytes must form a valid T, see pod.DecodeT.
func ResolveValueFrom[T any](p PointerPath, r process.MemoryReader, baseAddress process.ProcessMemoryAddress) (T, error) {
	var zero T

	size := pod.SizeOf[T]()
	if size == 0 {
		return zero, fmt.Errorf("pointer path: %w", pod.ErrZeroSize)
	}

	addr, err := p.ResolveAddressFrom(r, baseAddress)
	if err != nil {
		return zero, err
	}

	return ReadValueAt[T](r, addr)
}

// ReadValueAt reads a T at an already resolved address, e.g. one returned by
// ResolveAddress. Read failures wrap ErrReadFailed.
func ReadValueAt[T any](r process.MemoryReader, addr process.ProcessMemoryAddress) (T, error) {
	value, err := pod.ReadT[T](r, addr)
	if err != nil {
		if errors.Is(err, pod.ErrRead) {
			return value, fmt.Errorf("%w: value at %s: %w", ErrReadFailed, addr, err)
		}
		return value, fmt.Errorf("pointer path: value at %s: %w", addr, err)
	}

	return value, nil
}
