package process

import (
	"fmt"
)

// ProcessMemoryAddress represents a memory address within a process
type ProcessMemoryAddress uint64

// NullAddress is the distinguished null address
const NullAddress ProcessMemoryAddress = 0

func (pma ProcessMemoryAddress) ToString() string {
	return fmt.Sprintf("0x%X", uint64(pma))
}

func (pma ProcessMemoryAddress) String() string {
	return pma.ToString()
}

// IsNull reports whether the address is the null address
func (pma ProcessMemoryAddress) IsNull() bool {
	return pma == NullAddress
}

// Add returns the address moved forward by offset bytes. Overflow wraps,
// matching pointer arithmetic in the target process.
func (pma ProcessMemoryAddress) Add(offset uint64) ProcessMemoryAddress {
	return pma + ProcessMemoryAddress(offset)
}

// Address32 is a pointer as stored by a 32-bit target process
type Address32 uint32

// ToAddress zero-extends the narrow pointer
func (a Address32) ToAddress() ProcessMemoryAddress {
	return ProcessMemoryAddress(a)
}

// Address64 is a pointer as stored by a 64-bit target process
type Address64 uint64

func (a Address64) ToAddress() ProcessMemoryAddress {
	return ProcessMemoryAddress(a)
}

// ProcessMemorySize represents a size of memory region
type ProcessMemorySize uint

func (pms ProcessMemorySize) ToString() string {
	return fmt.Sprintf("%d bytes", uint(pms))
}
