package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

const (
	// VersionMajor is the major number in cartree's version
	VersionMajor = 0
	// VersionMinor is the minor number in cartree's version
	VersionMinor = 1
	// VersionPatch is the patch number in cartree's version
	VersionPatch = 0
)

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of cartree",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "cartree v%d.%d.%d (%s)\n", VersionMajor, VersionMinor, VersionPatch, runtime.Version())
		},
	}
}
