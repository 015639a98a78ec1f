package main

import (
	"errors"
	"fmt"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"deepptr/config"
	"deepptr/pointer_path"
	"deepptr/process"
	"deepptr/process/memory_map"
	"deepptr/process_blob"
)

// target is what every subcommand reads from: a live process or a dump
type target interface {
	process.MemoryReader
	GetMemoryMap() ([]memory_map.MemoryMapItem, error)
	Close() error
}

type rootOptions struct {
	configPath string
	verbose    bool
}

type targetOptions struct {
	pid  int
	from string
}

// pathOptions selects pointer paths either from the config file or from --path
type pathOptions struct {
	path      string
	valueType string
	width     string
	capacity  int
}

func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "deepptr",
		Short:         "Resolve pointer paths in another process's memory",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "YAML file of named pointer paths")
	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log every memory read")

	cmd.AddCommand(newResolveCommand(opts))
	cmd.AddCommand(newWatchCommand(opts))
	cmd.AddCommand(newDumpCommand())

	return cmd
}

func newLogger() *logger.Logger {
	return logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "deepptr"))
}

func addTargetFlags(fs *pflag.FlagSet, opts *targetOptions) {
	fs.IntVarP(&opts.pid, "pid", "p", 0, "process ID to read from")
	fs.StringVar(&opts.from, "from", "", "dump directory to read from")
}

func addPathFlags(fs *pflag.FlagSet, opts *pathOptions) {
	fs.StringVar(&opts.path, "path", "", `ad-hoc pointer path "base, off0, off1, ..." instead of --config`)
	fs.StringVarP(&opts.valueType, "type", "t", "u64", "value type for --path")
	fs.StringVarP(&opts.width, "width", "w", "64", "pointer width for --path (32 or 64)")
	fs.IntVar(&opts.capacity, "capacity", config.DefaultCapacity, "maximum depth for --path")
}

func openTarget(opts targetOptions) (target, error) {
	switch {
	case opts.pid != 0 && opts.from != "":
		return nil, errors.New("--pid and --from are mutually exclusive")
	case opts.from != "":
		dump, err := process_blob.LoadProcessDump(opts.from)
		if err != nil {
			return nil, err
		}
		return dump, nil
	case opts.pid != 0:
		return openProcess(process.ProcessID(opts.pid))
	default:
		return nil, errors.New("one of --pid or --from is required")
	}
}

// namedPath is a pointer path with the name and value type it is reported under
type namedPath struct {
	name      string
	path      pointer_path.PointerPath
	valueType string
}

func selectPaths(root *rootOptions, opts pathOptions, names []string) ([]namedPath, error) {
	if opts.path != "" {
		if len(names) > 0 {
			return nil, errors.New("names cannot be combined with --path")
		}
		width, err := pointer_path.ParseWidth(opts.width)
		if err != nil {
			return nil, err
		}
		p, err := pointer_path.Parse(opts.capacity, width, opts.path)
		if err != nil {
			return nil, err
		}
		return []namedPath{{name: "path", path: p, valueType: opts.valueType}}, nil
	}

	if root.configPath == "" {
		return nil, errors.New("one of --config or --path is required")
	}

	f, err := config.Load(root.configPath)
	if err != nil {
		return nil, err
	}

	entries, err := f.Lookup(names...)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s defines no pointer paths", root.configPath)
	}

	out := make([]namedPath, len(entries))
	for i, e := range entries {
		out[i] = namedPath{name: e.Name, path: f.PointerPath(e), valueType: e.ValueType()}
	}
	return out, nil
}

// reader wraps t in a TraceReader when verbose logging is on
func reader(root *rootOptions, t target) process.MemoryReader {
	if !root.verbose {
		return t
	}
	return pointer_path.NewTraceReader(t, newLogger())
}
