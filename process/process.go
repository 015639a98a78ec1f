// Package process provides the address types and the memory read contract
// shared by every reader in this module.
package process

import "errors"

var (
	// ErrAddressNotMapped is returned when a memory address is not found within any mapped region of a process.
	ErrAddressNotMapped = errors.New("address not mapped")

	// ErrProcessNotOpen is returned when an operation requiring an open process is attempted
	// before the process has been successfully opened or after it has been closed.
	ErrProcessNotOpen = errors.New("process not open")

	// ErrShortRead is returned when a reader produced fewer bytes than requested.
	ErrShortRead = errors.New("short read")
)

// MemoryReader reads raw bytes out of a target address space.
//
// Implementations may cross a process boundary on every call; callers must
// treat each read as fallible and possibly slow. Readers that are safe for
// concurrent use say so in their own documentation.
type MemoryReader interface {
	// ReadMemory reads exactly size bytes starting at addr
	ReadMemory(addr ProcessMemoryAddress, size ProcessMemorySize) ([]byte, error)
}

// ReadMemoryFunc adapts a plain function to MemoryReader
type ReadMemoryFunc func(addr ProcessMemoryAddress, size ProcessMemorySize) ([]byte, error)

func (f ReadMemoryFunc) ReadMemory(addr ProcessMemoryAddress, size ProcessMemorySize) ([]byte, error) {
	return f(addr, size)
}
