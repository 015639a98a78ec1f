package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

type watchOptions struct {
	target   targetOptions
	paths    pathOptions
	interval time.Duration
	count    int
}

func newWatchCommand(root *rootOptions) *cobra.Command {
	opts := &watchOptions{}

	cmd := &cobra.Command{
		Use:   "watch [name...]",
		Short: "Poll pointer paths and print every change until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, root, opts, args)
		},
	}

	addTargetFlags(cmd.Flags(), &opts.target)
	addPathFlags(cmd.Flags(), &opts.paths)
	cmd.Flags().DurationVarP(&opts.interval, "interval", "i", 250*time.Millisecond, "poll interval")
	cmd.Flags().IntVarP(&opts.count, "count", "n", 0, "stop after this many polls (0 polls forever)")

	return cmd
}

// runWatch re-resolves every path on each tick. A failed resolve is reported
// like a value: the next poll simply tries again.
func runWatch(cmd *cobra.Command, root *rootOptions, opts *watchOptions, names []string) error {
	if opts.interval <= 0 {
		return errors.New("--interval must be positive")
	}

	paths, err := selectPaths(root, opts.paths, names)
	if err != nil {
		return err
	}

	t, err := openTarget(opts.target)
	if err != nil {
		return err
	}
	defer t.Close()

	log := newLogger()
	r := reader(root, t)
	out := cmd.OutOrStdout()
	ctx := cmd.Context()

	last := make([]string, len(paths))
	poll := func() {
		for i, np := range paths {
			res := resolveNamed(np, r)
			state := res.value
			if res.err != nil {
				state = "error: " + res.err.Error()
			}
			if state != last[i] {
				last[i] = state
				fmt.Fprintf(out, "%s %s = %s\n", time.Now().Format("15:04:05.000"), np.name, state)
			}
		}
	}

	log.Infoln("Watching", len(paths), "pointer paths every", opts.interval)

	ticker := time.NewTicker(opts.interval)
	defer ticker.Stop()

	for polls := 1; ; polls++ {
		poll()
		if opts.count > 0 && polls >= opts.count {
			return nil
		}

		select {
		case <-ctx.Done():
			log.Infoln("Watch stopped")
			return nil
		case <-ticker.C:
		}
	}
}
