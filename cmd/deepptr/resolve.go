package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"deepptr/hexdump"
	"deepptr/process"
)

type resolveOptions struct {
	target  targetOptions
	paths   pathOptions
	hexdump int
}

func newResolveCommand(root *rootOptions) *cobra.Command {
	opts := &resolveOptions{}

	cmd := &cobra.Command{
		Use:   "resolve [name...]",
		Short: "Resolve pointer paths once and print their addresses and values",
		Example: `  deepptr resolve -c paths.yaml --pid 4242 player_hp
  deepptr resolve --from ./dump --path "0x140000000, 0x10, 0x20" --type i32`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResolve(cmd, root, opts, args)
		},
	}

	addTargetFlags(cmd.Flags(), &opts.target)
	addPathFlags(cmd.Flags(), &opts.paths)
	cmd.Flags().IntVar(&opts.hexdump, "hexdump", 0, "also hexdump this many bytes at each resolved address")

	return cmd
}

func runResolve(cmd *cobra.Command, root *rootOptions, opts *resolveOptions, names []string) error {
	paths, err := selectPaths(root, opts.paths, names)
	if err != nil {
		return err
	}

	t, err := openTarget(opts.target)
	if err != nil {
		return err
	}
	defer t.Close()

	r := reader(root, t)
	out := cmd.OutOrStdout()

	type dumpRequest struct {
		name string
		addr process.ProcessMemoryAddress
	}
	var dumps []dumpRequest

	failed := 0
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, np := range paths {
		res := resolveNamed(np, r)
		switch {
		case res.err != nil && res.address.IsNull():
			failed++
			fmt.Fprintf(tw, "%s\t%s\t-\terror: %v\n", np.name, np.path, res.err)
		case res.err != nil:
			failed++
			fmt.Fprintf(tw, "%s\t%s\t%s\terror: %v\n", np.name, np.path, res.address, res.err)
		default:
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s = %s\n", np.name, np.path, res.address, np.valueType, res.value)
		}
		if opts.hexdump > 0 && !res.address.IsNull() {
			dumps = append(dumps, dumpRequest{name: np.name, addr: res.address})
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if len(dumps) > 0 {
		mm, _ := t.GetMemoryMap()
		for _, d := range dumps {
			data, err := r.ReadMemory(d.addr, process.ProcessMemorySize(opts.hexdump))
			if err != nil {
				fmt.Fprintf(out, "\n%s: hexdump at %s: %v\n", d.name, d.addr, err)
				continue
			}
			fmt.Fprintf(out, "\n%s @ %s:\n%s", d.name, d.addr, hexdump.HexdumpBasic(data, uint64(d.addr), mm))
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d pointer paths failed to resolve", failed, len(paths))
	}
	return nil
}
