// Package cmd wires the git-ai command-line interface.
package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// Execute runs the root command.
func Execute(version string) {
	root := &cobra.Command{
		Use:           "git-ai",
		Short:         "Track AI vs human authorship of every committed line",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newHookCmd(),
		newCheckpointCmd(),
		newShowCmd(),
		newStatsCmd(),
		newLogCmd(),
		newSyncCmd(),
		newDebugCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Stderr.WriteString("git-ai: " + err.Error() + "\n")
		os.Exit(1)
	}
}
