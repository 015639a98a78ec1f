//go:build !linux

package main

import (
	"errors"

	"github.com/spf13/cobra"
)

func saveDump(cmd *cobra.Command, opts *dumpSaveOptions) error {
	return errors.New("dump save is only supported on linux")
}
