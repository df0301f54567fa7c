// Copyright © 2018 One Concern

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// set at build time with -ldflags "-X github.com/oneconcern/releaser/cmd/releaser/cmd.Version=..."
var (
	Version   = "dev"
	GitCommit = ""
	BuildDate = ""
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of releaser",
	Args:  cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		_, _ = fmt.Fprintf(out, "Version: %s\n", Version)
		if GitCommit != "" {
			_, _ = fmt.Fprintf(out, "Git Commit: %s\n", GitCommit)
		}
		if BuildDate != "" {
			_, _ = fmt.Fprintf(out, "Build Date: %s\n", BuildDate)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
