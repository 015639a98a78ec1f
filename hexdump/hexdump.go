// Package hexdump formats raw target memory for humans.
package hexdump

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"deepptr/process/memory_map"
)

// HexDumpOptions defines options for customizing the hexdump output
type HexDumpOptions struct {
	// BytesPerLine defines the number of bytes to display per line
	BytesPerLine int

	// ShowASCII determines whether to show the ASCII representation
	ShowASCII bool

	// PointerSize is 4 or 8; values of this size are checked against MemoryMap
	PointerSize int

	// MemoryMap enables the pointer preview column when non-empty. Must be sorted.
	MemoryMap []memory_map.MemoryMapItem
}

// DefaultOptions returns 16 bytes per line with ASCII and 8-byte pointer preview
func DefaultOptions() HexDumpOptions {
	return HexDumpOptions{
		BytesPerLine: 16,
		ShowASCII:    true,
		PointerSize:  8,
	}
}

// Hexdump writes data as lines of "address  hex bytes  | ascii | pointers",
// where address starts at base
func Hexdump(writer io.Writer, data []byte, base uint64, options HexDumpOptions) {
	if options.BytesPerLine <= 0 {
		options.BytesPerLine = 16
	}
	if options.PointerSize != 4 {
		options.PointerSize = 8
	}

	for offset := 0; offset < len(data); offset += options.BytesPerLine {
		end := min(offset+options.BytesPerLine, len(data))
		formatLine(writer, data[offset:end], base+uint64(offset), options)
	}
}

// HexdumpBasic returns the dump as a string using DefaultOptions and the given memory map
func HexdumpBasic(data []byte, base uint64, memoryMap []memory_map.MemoryMapItem) string {
	var buf bytes.Buffer
	options := DefaultOptions()
	options.MemoryMap = memoryMap
	Hexdump(&buf, data, base, options)
	return buf.String()
}

func formatLine(writer io.Writer, line []byte, addr uint64, options HexDumpOptions) {
	fmt.Fprintf(writer, "%016x  ", addr)

	for i := 0; i < options.BytesPerLine; i++ {
		if i > 0 && i%8 == 0 {
			fmt.Fprint(writer, " ")
		}
		if i < len(line) {
			fmt.Fprintf(writer, "%02x ", line[i])
		} else {
			fmt.Fprint(writer, "   ")
		}
	}

	if options.ShowASCII {
		fmt.Fprint(writer, " |")
		for _, b := range line {
			if b >= 0x20 && b < 0x7f {
				fmt.Fprintf(writer, "%c", b)
			} else {
				fmt.Fprint(writer, ".")
			}
		}
		fmt.Fprint(writer, strings.Repeat(" ", options.BytesPerLine-len(line)))
		fmt.Fprint(writer, "|")
	}

	if len(options.MemoryMap) > 0 {
		var ptrs []string
		for i := 0; i+options.PointerSize <= len(line); i += options.PointerSize {
			ptr := readPointer(line[i:], options.PointerSize)
			if isValidPointer(ptr, options.MemoryMap) {
				ptrs = append(ptrs, fmt.Sprintf("+%x->0x%x", i, ptr))
			}
		}
		if len(ptrs) > 0 {
			fmt.Fprint(writer, " ", strings.Join(ptrs, " "))
		}
	}

	fmt.Fprintln(writer)
}

func readPointer(data []byte, size int) uint64 {
	if size == 4 {
		return uint64(binary.LittleEndian.Uint32(data))
	}
	return binary.LittleEndian.Uint64(data)
}

func isValidPointer(ptr uint64, memoryMap []memory_map.MemoryMapItem) bool {
	if ptr == 0 {
		return false
	}
	return memory_map.IsReadableAddress(ptr, memoryMap)
}
