package main

import (
	"fmt"
	"strconv"

	"deepptr/pointer_path"
	"deepptr/process"
)

// resolved is the outcome of resolving one named path
type resolved struct {
	address process.ProcessMemoryAddress
	value   string
	err     error
}

func resolveNamed(np namedPath, r process.MemoryReader) resolved {
	addr, err := np.path.ResolveAddress(r)
	if err != nil {
		return resolved{err: err}
	}

	value, err := readValue(r, addr, np.path.Width(), np.valueType)
	return resolved{address: addr, value: value, err: err}
}

// readValue reads the value at an already resolved address and formats it as
// valueType. width only matters for "ptr".
func readValue(r process.MemoryReader, addr process.ProcessMemoryAddress, width pointer_path.PointerWidth, valueType string) (string, error) {
	switch valueType {
	case "u8":
		return readFormatted(r, addr, formatUint[uint8])
	case "u16":
		return readFormatted(r, addr, formatUint[uint16])
	case "u32":
		return readFormatted(r, addr, formatUint[uint32])
	case "u64", "":
		return readFormatted(r, addr, formatUint[uint64])
	case "i8":
		return readFormatted(r, addr, formatInt[int8])
	case "i16":
		return readFormatted(r, addr, formatInt[int16])
	case "i32":
		return readFormatted(r, addr, formatInt[int32])
	case "i64":
		return readFormatted(r, addr, formatInt[int64])
	case "f32":
		return readFormatted(r, addr, func(v float32) string { return strconv.FormatFloat(float64(v), 'g', -1, 32) })
	case "f64":
		return readFormatted(r, addr, func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) })
	case "bool":
		return readFormatted(r, addr, strconv.FormatBool)
	case "ptr":
		if width == pointer_path.Narrow {
			return readFormatted(r, addr, func(v process.Address32) string { return v.ToAddress().String() })
		}
		return readFormatted(r, addr, func(v process.Address64) string { return v.ToAddress().String() })
	default:
		return "", fmt.Errorf("unknown value type %q", valueType)
	}
}

func readFormatted[T any](r process.MemoryReader, addr process.ProcessMemoryAddress, format func(T) string) (string, error) {
	v, err := pointer_path.ReadValueAt[T](r, addr)
	if err != nil {
		return "", err
	}
	return format(v), nil
}

type unsigned interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

type signed interface {
	~int8 | ~int16 | ~int32 | ~int64
}

func formatUint[T unsigned](v T) string {
	return fmt.Sprintf("%d (0x%X)", uint64(v), uint64(v))
}

func formatInt[T signed](v T) string {
	return strconv.FormatInt(int64(v), 10)
}
