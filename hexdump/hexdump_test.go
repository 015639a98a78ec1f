package hexdump

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deepptr/process/memory_map"
)

func TestHexdumpLayout(t *testing.T) {
	data := []byte("HELLO\x00world\x01\x02\x03\x04\x05xyz")

	out := HexdumpBasic(data, 0x1000, nil)
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2)

	assert.True(t, strings.HasPrefix(lines[0], "0000000000001000  48 45 4c 4c 4f 00 77 6f  72 6c 64 01"))
	assert.True(t, strings.HasSuffix(lines[0], "|HELLO.world.....|"))
	assert.True(t, strings.HasPrefix(lines[1], "0000000000001010  78 79 7a "))
	assert.True(t, strings.HasSuffix(lines[1], "|xyz             |"))
}

func TestHexdumpPointerPreview(t *testing.T) {
	mm := []memory_map.MemoryMapItem{{Address: 0x400000, Size: 0x1000, Perms: "r--p"}}
	data := []byte{
		0x10, 0x00, 0x40, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x10, 0x00, 0x50, 0x00, 0x00, 0x00, 0x00, 0x00,
	}

	out := HexdumpBasic(data, 0x2000, mm)
	assert.Contains(t, out, "+0->0x400010")
	assert.NotContains(t, out, "0x500010")

	var sb strings.Builder
	Hexdump(&sb, data, 0x2000, HexDumpOptions{BytesPerLine: 16, PointerSize: 4, MemoryMap: mm})
	assert.Contains(t, sb.String(), "+0->0x400010")
	assert.NotContains(t, sb.String(), "|")
}
