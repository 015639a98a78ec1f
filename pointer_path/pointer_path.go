// Package pointer_path locates values inside another process by following a
// fixed chain of pointer dereferences.
//
// A path is a base address plus an ordered list of offsets. Every offset but
// the last is added to the current address and the pointer stored there is
// followed. The last offset is only added: it locates the field of interest
// inside the final object, it is never dereferenced.
//
//	base -> [ +0x10 ]ptrA -> [ +0x20 ]ptrB -> +0x8 = address of the value
//
// A PointerPath is immutable and safe for concurrent use. Reads go through a
// process.MemoryReader supplied on every call.
package pointer_path

import (
	"fmt"
	"strings"

	"deepptr/process"
)

// PointerPath is a base address, a bounded chain of offsets and a pointer width
type PointerPath struct {
	baseAddress process.ProcessMemoryAddress
	offsets     []uint64
	capacity    int
	width       PointerWidth
}

// New creates a path of at most capacity offsets.
//
// It panics when capacity is not positive or when more offsets than capacity
// are given: a chain that silently lost offsets would read the wrong memory.
func New(capacity int, baseAddress process.ProcessMemoryAddress, width PointerWidth, offsets ...uint64) PointerPath {
	if capacity <= 0 {
		panic(fmt.Sprintf("pointer_path: capacity must be positive, got %d", capacity))
	}
	if len(offsets) > capacity {
		panic(fmt.Sprintf("pointer_path: %d offsets exceed capacity %d", len(offsets), capacity))
	}

	owned := make([]uint64, len(offsets), capacity)
	copy(owned, offsets)

	return PointerPath{
		baseAddress: baseAddress,
		offsets:     owned,
		capacity:    capacity,
		width:       width,
	}
}

// New32 creates a path dereferencing 4-byte pointers
func New32(capacity int, baseAddress process.ProcessMemoryAddress, offsets ...uint64) PointerPath {
	return New(capacity, baseAddress, Narrow, offsets...)
}

// New64 creates a path dereferencing 8-byte pointers
func New64(capacity int, baseAddress process.ProcessMemoryAddress, offsets ...uint64) PointerPath {
	return New(capacity, baseAddress, Wide, offsets...)
}

// WithBaseAddress returns a path with the same offsets and width starting at
// baseAddress. The receiver is not modified.
func (p PointerPath) WithBaseAddress(baseAddress process.ProcessMemoryAddress) PointerPath {
	p.baseAddress = baseAddress
	return p
}

func (p PointerPath) BaseAddress() process.ProcessMemoryAddress {
	return p.baseAddress
}

// Offsets returns a copy of the offset chain
func (p PointerPath) Offsets() []uint64 {
	out := make([]uint64, len(p.offsets))
	copy(out, p.offsets)
	return out
}

func (p PointerPath) Width() PointerWidth {
	return p.width
}

// Capacity is the maximum chain depth the path was built with
func (p PointerPath) Capacity() int {
	return p.capacity
}

// Len is the number of offsets
func (p PointerPath) Len() int {
	return len(p.offsets)
}

// String renders the path as "0x1000 -> [+0x10] -> +0x20 (64-bit)"
func (p PointerPath) String() string {
	var sb strings.Builder
	sb.WriteString(p.baseAddress.String())

	if len(p.offsets) == 0 {
		fmt.Fprintf(&sb, " (%s, empty)", p.width)
		return sb.String()
	}

	last := len(p.offsets) - 1
	for _, off := range p.offsets[:last] {
		fmt.Fprintf(&sb, " -> [+0x%X]", off)
	}
	fmt.Fprintf(&sb, " -> +0x%X (%s)", p.offsets[last], p.width)
	return sb.String()
}
