//go:build linux

package process_linux

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"deepptr/process"
	"deepptr/process/memory_map"
	"deepptr/process_blob"
)

// DefaultMaxRegionSize bounds the size of a single region written by Save
const DefaultMaxRegionSize = 100 * 1024 * 1024

// SaveOptions controls which regions Save writes
type SaveOptions struct {
	// MaxRegionSize skips larger regions; 0 means DefaultMaxRegionSize
	MaxRegionSize uint

	// IncludeFileBacked also saves regions mapped from files
	IncludeFileBacked bool
}

// SaveStats summarizes a Save run
type SaveStats struct {
	Saved              int
	SkippedNonReadable int
	SkippedTooLarge    int
	SkippedFileBacked  int
	ReadErrors         int
}

// Save snapshots the readable memory of the process into dirname in the
// layout process_blob.ProcessDump loads. Regions that fail to read are
// counted and skipped; ctx cancels between regions.
func (p *LinuxProcess) Save(ctx context.Context, dirname string, opts SaveOptions) (SaveStats, error) {
	var stats SaveStats

	if opts.MaxRegionSize == 0 {
		opts.MaxRegionSize = DefaultMaxRegionSize
	}

	if err := p.UpdateMemoryMap(); err != nil {
		return stats, fmt.Errorf("failed to update memory map: %w", err)
	}

	mm, err := p.GetMemoryMap()
	if err != nil {
		return stats, err
	}

	name, err := p.Name()
	if err != nil {
		name = "unknown"
	}

	if err := os.MkdirAll(dirname, 0755); err != nil {
		return stats, fmt.Errorf("failed to create directory: %w", err)
	}

	p.log.Infoln("Saving process to directory:", dirname)

	if err := process_blob.WriteDumpHeader(dirname, process.ProcessInfo{PID: p.GetPID(), Name: name}, mm); err != nil {
		return stats, err
	}

	for _, region := range mm {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		if !region.IsReadable() {
			stats.SkippedNonReadable++
			continue
		}

		if !opts.IncludeFileBacked && isFileBacked(region) {
			stats.SkippedFileBacked++
			continue
		}

		if region.Size > opts.MaxRegionSize {
			p.log.Infoln("Skipping large region at", fmt.Sprintf("%x", region.Address),
				"(size:", region.Size/1024/1024, "MB)")
			stats.SkippedTooLarge++
			continue
		}

		data, err := p.ReadMemory(process.ProcessMemoryAddress(region.Address), process.ProcessMemorySize(region.Size))
		if err != nil {
			p.log.Debugln("Failed to read memory region at", fmt.Sprintf("%x", region.Address), ":", err)
			stats.ReadErrors++
			continue
		}

		filename := filepath.Join(dirname, process_blob.BlobFilename(region))
		if err := os.WriteFile(filename, data, 0644); err != nil {
			return stats, fmt.Errorf("failed to write memory file for region at %x: %w", region.Address, err)
		}

		stats.Saved++
	}

	p.log.Infoln("Process dump saved:", stats.Saved, "regions saved,", stats.ReadErrors, "read errors")

	return stats, nil
}

// isFileBacked reports regions mapped from a file on disk. Pseudo paths such
// as [heap] and [stack] are anonymous memory.
func isFileBacked(region memory_map.MemoryMapItem) bool {
	return len(region.Path) > 0 && region.Path[0] == '/'
}
