//go:build !linux && !windows

package main

import (
	"fmt"

	"deepptr/process"
)

func openProcess(pid process.ProcessID) (target, error) {
	return nil, fmt.Errorf("reading live process %d is only supported on linux and windows, use --from", pid)
}
