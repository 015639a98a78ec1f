package pointer_path

import (
	"fmt"
	"strings"

	"deepptr/pod"
	"deepptr/process"
)

// PointerWidth selects how intermediate pointers are read from the target process
type PointerWidth uint8

const (
	// Wide reads 8-byte pointers, used in 64-bit processes. It is the zero value.
	Wide PointerWidth = iota
	// Narrow reads 4-byte pointers, used in 32-bit processes
	Narrow
)

// Size is the number of bytes read per dereference
func (w PointerWidth) Size() process.ProcessMemorySize {
	if w == Narrow {
		return 4
	}
	return 8
}

func (w PointerWidth) String() string {
	switch w {
	case Narrow:
		return "32-bit"
	case Wide:
		return "64-bit"
	default:
		return fmt.Sprintf("PointerWidth(%d)", uint8(w))
	}
}

// ParseWidth accepts "32", "64", "narrow", "wide" and the String forms.
// The empty string yields the default, Wide.
func ParseWidth(s string) (PointerWidth, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "64", "64-bit", "64bit", "wide":
		return Wide, nil
	case "32", "32-bit", "32bit", "narrow":
		return Narrow, nil
	}
	return Wide, fmt.Errorf("unknown pointer width %q", s)
}

// readPointer reads one pointer-sized value at addr and widens it to an address
func (w PointerWidth) readPointer(r process.MemoryReader, addr process.ProcessMemoryAddress) (process.ProcessMemoryAddress, error) {
	switch w {
	case Narrow:
		ptr, err := pod.ReadT[process.Address32](r, addr)
		return ptr.ToAddress(), err
	default:
		ptr, err := pod.ReadT[process.Address64](r, addr)
		return ptr.ToAddress(), err
	}
}
