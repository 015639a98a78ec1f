package main

import (
	"deepptr/process"
	"deepptr/process_windows"
)

func openProcess(pid process.ProcessID) (target, error) {
	proc, err := process_windows.NewWithPID(pid)
	if err != nil {
		return nil, err
	}
	return proc, nil
}
