// Package config loads named pointer paths from a YAML file.
//
//	capacity: 8
//	width: 64
//	paths:
//	  - name: player_hp
//	    base: 0x140000000
//	    offsets: [0x10, 0x20, 0x8]
//	    type: i32
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"deepptr/pointer_path"
	"deepptr/process"
)

// DefaultCapacity is used when neither the file nor the entry set one
const DefaultCapacity = 8

// ValueTypes are the names accepted in an entry's type field
var ValueTypes = []string{"u8", "u16", "u32", "u64", "i8", "i16", "i32", "i64", "f32", "f64", "bool", "ptr"}

// Number is an unsigned integer written in decimal or as 0x-prefixed hex,
// quoted or not
type Number uint64

func (n *Number) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a number", node.Line)
	}
	v, err := pointer_path.ParseNumber(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*n = Number(v)
	return nil
}

// Width is a pointer width written as 32, 64, narrow or wide
type Width struct {
	pointer_path.PointerWidth
}

func (w *Width) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: expected a pointer width", node.Line)
	}
	pw, err := pointer_path.ParseWidth(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	w.PointerWidth = pw
	return nil
}

// Entry is one named pointer path
type Entry struct {
	Name     string   `yaml:"name"`
	Base     Number   `yaml:"base"`
	Offsets  []Number `yaml:"offsets"`
	Type     string   `yaml:"type"`
	Width    *Width   `yaml:"width"`
	Capacity int      `yaml:"capacity"`
}

// File is the top level of a config file
type File struct {
	Capacity int     `yaml:"capacity"`
	Width    Width   `yaml:"width"`
	Paths    []Entry `yaml:"paths"`
}

// Load reads and validates a config file
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Parse decodes and validates config bytes
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if f.Capacity == 0 {
		f.Capacity = DefaultCapacity
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// Validate checks every entry can be turned into a pointer path
func (f *File) Validate() error {
	if f.Capacity < 0 {
		return fmt.Errorf("capacity must be positive, got %d", f.Capacity)
	}

	var errs []error
	seen := make(map[string]bool, len(f.Paths))
	for i, e := range f.Paths {
		if e.Name == "" {
			errs = append(errs, fmt.Errorf("path %d: name is required", i))
			continue
		}
		if seen[e.Name] {
			errs = append(errs, fmt.Errorf("path %q: duplicate name", e.Name))
		}
		seen[e.Name] = true

		if e.Type != "" && !isValueType(e.Type) {
			errs = append(errs, fmt.Errorf("path %q: unknown type %q", e.Name, e.Type))
		}
		if e.Capacity < 0 {
			errs = append(errs, fmt.Errorf("path %q: capacity must be positive, got %d", e.Name, e.Capacity))
		}
		if c := f.capacityFor(e); len(e.Offsets) > c {
			errs = append(errs, fmt.Errorf("path %q: %d offsets exceed capacity %d", e.Name, len(e.Offsets), c))
		}
	}
	return errors.Join(errs...)
}

// Lookup returns the named entries in the given order, or all entries when
// no names are given
func (f *File) Lookup(names ...string) ([]Entry, error) {
	if len(names) == 0 {
		return f.Paths, nil
	}

	byName := make(map[string]Entry, len(f.Paths))
	for _, e := range f.Paths {
		byName[e.Name] = e
	}

	out := make([]Entry, 0, len(names))
	for _, name := range names {
		e, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("no pointer path named %q", name)
		}
		out = append(out, e)
	}
	return out, nil
}

// PointerPath builds the entry's path, falling back to the file defaults for
// capacity and width
func (f *File) PointerPath(e Entry) pointer_path.PointerPath {
	width := f.Width.PointerWidth
	if e.Width != nil {
		width = e.Width.PointerWidth
	}

	offsets := make([]uint64, len(e.Offsets))
	for i, off := range e.Offsets {
		offsets[i] = uint64(off)
	}

	return pointer_path.New(f.capacityFor(e), process.ProcessMemoryAddress(e.Base), width, offsets...)
}

// ValueType is the entry's type, "u64" when unset
func (e Entry) ValueType() string {
	if e.Type == "" {
		return "u64"
	}
	return e.Type
}

func (f *File) capacityFor(e Entry) int {
	if e.Capacity > 0 {
		return e.Capacity
	}
	if f.Capacity > 0 {
		return f.Capacity
	}
	return DefaultCapacity
}

func isValueType(name string) bool {
	for _, t := range ValueTypes {
		if t == name {
			return true
		}
	}
	return false
}
