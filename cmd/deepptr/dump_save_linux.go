package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"deepptr/process"
	"deepptr/process_linux"
)

func saveDump(cmd *cobra.Command, opts *dumpSaveOptions) error {
	proc, err := process_linux.NewWithPID(process.ProcessID(opts.pid))
	if err != nil {
		return fmt.Errorf("attach to process %d: %w", opts.pid, err)
	}
	defer proc.Close()

	stats, err := proc.Save(cmd.Context(), opts.output, process_linux.SaveOptions{
		MaxRegionSize:     opts.maxRegionSize,
		IncludeFileBacked: opts.includeFiles,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "saved %d regions to %s (%d unreadable, %d too large, %d file-backed, %d read errors skipped)\n",
		stats.Saved, opts.output, stats.SkippedNonReadable, stats.SkippedTooLarge, stats.SkippedFileBacked, stats.ReadErrors)
	return nil
}
