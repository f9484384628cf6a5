package cmd

import (
	"github.com/spf13/cobra"

	drmworker "github.com/ikbir-singh-unisys/DRM-Worker"
)

func init() {
	command := &cobra.Command{
		Use:   "run [descriptor.json|-]",
		Short: "process a single job in the foreground",
		Long:  `process a single job descriptor, read from a file or stdin, and exit when it is done`,
		Args:  cobra.MaximumNArgs(1),
		RunE:  drmworker.Service.RunCommand,
	}

	rootCmd.AddCommand(command)
}
