package main

import (
	"deepptr/process"
	"deepptr/process_linux"
)

func openProcess(pid process.ProcessID) (target, error) {
	proc, err := process_linux.NewWithPID(pid)
	if err != nil {
		return nil, err
	}
	return proc, nil
}
