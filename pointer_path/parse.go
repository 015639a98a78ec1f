package pointer_path

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"deepptr/process"
)

// ParseNumber parses a decimal or 0x-prefixed hexadecimal number. A leading
// "+" and surrounding brackets are ignored.
func ParseNumber(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	s = strings.TrimPrefix(s, "+")
	s = strings.ReplaceAll(s, "_", "")
	if s == "" {
		return 0, errors.New("empty number")
	}
	if strings.HasPrefix(s, "0X") {
		s = "0x" + s[2:]
	}
	return strconv.ParseUint(s, 0, 64)
}

// Parse reads a path written as "base, off0, off1, ..." (commas, spaces and
// "->" separate fields). String output parses back: a trailing "(64-bit)" or
// "(32-bit)" annotation overrides width. Unlike New, exceeding capacity is
// reported as an error since the text comes from user input.
func Parse(capacity int, width PointerWidth, text string) (PointerPath, error) {
	text, width, err := cutWidthAnnotation(text, width)
	if err != nil {
		return PointerPath{}, fmt.Errorf("parse pointer path: %w", err)
	}

	fields := strings.FieldsFunc(strings.ReplaceAll(text, "->", " "), func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})
	if len(fields) == 0 {
		return PointerPath{}, errors.New("parse pointer path: no base address")
	}

	base, err := ParseNumber(fields[0])
	if err != nil {
		return PointerPath{}, fmt.Errorf("parse pointer path: base %q: %w", fields[0], err)
	}

	offsets := make([]uint64, 0, len(fields)-1)
	for i, f := range fields[1:] {
		off, err := ParseNumber(f)
		if err != nil {
			return PointerPath{}, fmt.Errorf("parse pointer path: offset %d %q: %w", i, f, err)
		}
		offsets = append(offsets, off)
	}

	if capacity <= 0 {
		return PointerPath{}, fmt.Errorf("parse pointer path: capacity must be positive, got %d", capacity)
	}
	if len(offsets) > capacity {
		return PointerPath{}, fmt.Errorf("parse pointer path: %d offsets exceed capacity %d", len(offsets), capacity)
	}

	return New(capacity, process.ProcessMemoryAddress(base), width, offsets...), nil
}

// cutWidthAnnotation strips a trailing "(64-bit)" or "(32-bit, empty)" as
// written by String and returns the width it names
func cutWidthAnnotation(text string, width PointerWidth) (string, PointerWidth, error) {
	text = strings.TrimSpace(text)
	if !strings.HasSuffix(text, ")") {
		return text, width, nil
	}

	open := strings.LastIndex(text, "(")
	if open < 0 {
		return text, width, errors.New("unbalanced \")\"")
	}

	annotation, _, _ := strings.Cut(text[open+1:len(text)-1], ",")
	w, err := ParseWidth(annotation)
	if err != nil {
		return text, width, err
	}

	return text[:open], w, nil
}
