package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"deepptr/process_blob"
)

func newDumpCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Save and inspect process memory dumps",
	}

	cmd.AddCommand(newDumpSaveCommand())
	cmd.AddCommand(newDumpInfoCommand())

	return cmd
}

type dumpSaveOptions struct {
	pid           int
	output        string
	maxRegionSize uint
	includeFiles  bool
}

func newDumpSaveCommand() *cobra.Command {
	opts := &dumpSaveOptions{}

	cmd := &cobra.Command{
		Use:   "save",
		Short: "Snapshot the readable memory of a process into a directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.pid == 0 {
				return errors.New("--pid is required")
			}
			if opts.output == "" {
				return errors.New("--output is required")
			}
			return saveDump(cmd, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.pid, "pid", "p", 0, "process ID to snapshot")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "output directory")
	cmd.Flags().UintVar(&opts.maxRegionSize, "max-region-size", 0, "skip regions larger than this many bytes (0 = 100MB)")
	cmd.Flags().BoolVar(&opts.includeFiles, "include-files", false, "also save file-backed mappings")

	return cmd
}

func newDumpInfoCommand() *cobra.Command {
	var from string

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Print the metadata and memory map of a dump",
		RunE: func(cmd *cobra.Command, args []string) error {
			if from == "" {
				return errors.New("--from is required")
			}

			dump, err := process_blob.LoadProcessDump(from)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Process Name: %s\n", dump.Name)
			fmt.Fprintf(out, "PID: %d\n", dump.PID)
			fmt.Fprintf(out, "Memory Regions: %d\n", len(dump.MemoryMap))
			for _, region := range dump.MemoryMap {
				saved := " "
				if _, ok := dump.Blobs[region.Address]; ok {
					saved = "*"
				}
				fmt.Fprintf(out, "%s %016x - %016x %s %10d %s\n",
					saved, region.Address, region.End(), region.Perms, region.Size, region.Path)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "dump directory")

	return cmd
}
