// Package pod decodes fixed-size plain-old-data values out of raw target memory.
//
// A value is only handed back once its bytes form a legal representation of
// the requested type: the type itself must be pointer free, every bool inside
// it must hold 0 or 1, and every type implementing Validator, at any depth,
// must accept its bytes.
package pod

import (
	"errors"
	"fmt"
	"reflect"
	"unsafe"

	"deepptr/process"
)

var (
	// ErrNotPOD is returned when T contains pointers, strings, slices, maps,
	// interfaces, funcs or channels and so has no meaning outside this process.
	ErrNotPOD = errors.New("type is not POD-safe")

	// ErrZeroSize is returned for types occupying no memory.
	ErrZeroSize = errors.New("type has zero size")

	// ErrShortBuffer is returned when fewer than sizeof(T) bytes are available.
	ErrShortBuffer = errors.New("buffer too small")

	// ErrRead wraps failures of the underlying memory read, including short reads.
	ErrRead = errors.New("memory read failed")

	// ErrInvalidBitPattern is returned when the bytes were read but do not form a valid T.
	ErrInvalidBitPattern = errors.New("invalid bit pattern")
)

// Validator is implemented by types with constraints beyond their Go layout,
// e.g. an enum that only allows a few values.
type Validator interface {
	ValidBitPattern() bool
}

func SizeOf[T any]() process.ProcessMemorySize {
	var t T
	return process.ProcessMemorySize(unsafe.Sizeof(t))
}

// DecodeT copies the first sizeof(T) bytes of data into a new T and checks
// that the result is a legal T.
func DecodeT[T any](data []byte) (T, error) {
	var tmp T

	rt := typeOf[T]()
	if typeHasPointers(rt) {
		return tmp, fmt.Errorf("DecodeT %s: %w", rt, ErrNotPOD)
	}

	size := int(unsafe.Sizeof(tmp))
	if size == 0 {
		return tmp, fmt.Errorf("DecodeT %s: %w", rt, ErrZeroSize)
	}
	if len(data) < size {
		return tmp, fmt.Errorf("DecodeT %s: need %d bytes, have %d: %w", rt, size, len(data), ErrShortBuffer)
	}

	if err := checkBitPattern(rt, data[:size]); err != nil {
		return tmp, fmt.Errorf("DecodeT %s: %w", rt, err)
	}

	dst := unsafe.Slice((*byte)(unsafe.Pointer(&tmp)), size)
	copy(dst, data[:size])

	return tmp, nil
}

// ReadT reads sizeof(T) bytes at addr and decodes them as T
func ReadT[T any](r process.MemoryReader, addr process.ProcessMemoryAddress) (T, error) {
	size := SizeOf[T]()
	if size == 0 {
		return *new(T), fmt.Errorf("ReadT: %w", ErrZeroSize)
	}

	data, err := r.ReadMemory(addr, size)
	if err != nil {
		return *new(T), fmt.Errorf("ReadT: %w: %d bytes at %s: %w", ErrRead, size, addr, err)
	}
	if len(data) < int(size) {
		return *new(T), fmt.Errorf("ReadT: %w: got %d of %d bytes at %s: %w", ErrRead, len(data), size, addr, process.ErrShortRead)
	}

	return DecodeT[T](data)
}

// ReadSliceT reads count consecutive T values starting at addr in a single read
func ReadSliceT[T any](r process.MemoryReader, addr process.ProcessMemoryAddress, count int) ([]T, error) {
	if count < 0 {
		return nil, errors.New("ReadSliceT: count must be positive")
	}

	size := SizeOf[T]()
	if size == 0 {
		return nil, fmt.Errorf("ReadSliceT: %w", ErrZeroSize)
	}
	if count == 0 {
		return []T{}, nil
	}

	data, err := r.ReadMemory(addr, size*process.ProcessMemorySize(count))
	if err != nil {
		return nil, fmt.Errorf("ReadSliceT: read %d elements at %s: %w", count, addr, err)
	}

	result := make([]T, count)
	elementSize := int(size)
	for i := range count {
		offset := i * elementSize
		if offset+elementSize > len(data) {
			return nil, fmt.Errorf("ReadSliceT: element %d: %w", i, ErrShortBuffer)
		}

		element, err := DecodeT[T](data[offset : offset+elementSize])
		if err != nil {
			return nil, fmt.Errorf("ReadSliceT: failed to parse element %d: %w", i, err)
		}
		result[i] = element
	}

	return result, nil
}

// WriteT serializes a POD value T into a raw byte slice using the in-memory layout.
// T must be POD (no pointers or Go-managed references) for the bytes to be meaningful
// outside the process.
func WriteT[T any](v T) []byte {
	size := int(unsafe.Sizeof(v))
	if size == 0 {
		return []byte{}
	}
	src := unsafe.Slice((*byte)(unsafe.Pointer(&v)), size)
	out := make([]byte, size)
	copy(out, src)
	return out
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func typeHasPointers(rt reflect.Type) bool {
	switch rt.Kind() {
	case reflect.Ptr, reflect.UnsafePointer, reflect.Interface, reflect.Func, reflect.Map,
		reflect.Slice, reflect.String, reflect.Chan:
		return true
	case reflect.Array:
		return typeHasPointers(rt.Elem())
	case reflect.Struct:
		for i := 0; i < rt.NumField(); i++ {
			if typeHasPointers(rt.Field(i).Type) {
				return true
			}
		}
		return false
	default:
		// bool, ints, uints, floats, complex
		return false
	}
}

var validatorType = reflect.TypeOf((*Validator)(nil)).Elem()

func isValidator(rt reflect.Type) bool {
	return rt.Implements(validatorType) || reflect.PointerTo(rt).Implements(validatorType)
}

// checkBitPattern walks rt over data. Every bool must be 0 or 1 and every
// Validator, nested ones included, must accept its bytes.
func checkBitPattern(rt reflect.Type, data []byte) error {
	switch rt.Kind() {
	case reflect.Bool:
		if data[0] > 1 {
			return fmt.Errorf("bool holds %d: %w", data[0], ErrInvalidBitPattern)
		}
	case reflect.Array:
		elem := rt.Elem()
		if needsCheck(elem) {
			es := elem.Size()
			for i := 0; i < rt.Len(); i++ {
				if err := checkBitPattern(elem, data[uintptr(i)*es:]); err != nil {
					return fmt.Errorf("[%d]: %w", i, err)
				}
			}
		}
	case reflect.Struct:
		for i := 0; i < rt.NumField(); i++ {
			f := rt.Field(i)
			if err := checkBitPattern(f.Type, data[f.Offset:]); err != nil {
				return fmt.Errorf("%s: %w", f.Name, err)
			}
		}
	}

	if isValidator(rt) {
		v := reflect.New(rt)
		copy(unsafe.Slice((*byte)(v.UnsafePointer()), rt.Size()), data)
		if !v.Interface().(Validator).ValidBitPattern() {
			return fmt.Errorf("%s rejected by validator: %w", rt, ErrInvalidBitPattern)
		}
	}

	return nil
}

// needsCheck reports whether rt holds any bool or Validator
func needsCheck(rt reflect.Type) bool {
	if isValidator(rt) {
		return true
	}
	switch rt.Kind() {
	case reflect.Bool:
		return true
	case reflect.Array:
		return needsCheck(rt.Elem())
	case reflect.Struct:
		for i := 0; i < rt.NumField(); i++ {
			if needsCheck(rt.Field(i).Type) {
				return true
			}
		}
	}
	return false
}
