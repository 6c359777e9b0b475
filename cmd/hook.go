package cmd

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/git-ai-project/git-ai-sub000/internal/hook"
)

// newHookCmd handles git hook invocations: `git-ai hook <name> [args...]`
// with the hook payload, if any, on stdin. Hooks always exit zero; a failure
// here must never block the user's git command.
func newHookCmd() *cobra.Command {
	return &cobra.Command{
		Use:                "hook <name> [args...]",
		Short:              "Internal entry point invoked by installed git hooks",
		Hidden:             true,
		Args:               cobra.MinimumNArgs(1),
		DisableFlagParsing: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := hook.NewRunner(".")
			if err != nil {
				return nil // outside a repository, nothing to do
			}
			var stdin string
			if data, err := io.ReadAll(os.Stdin); err == nil {
				stdin = string(data)
			}
			runner.Run(args[0], args[1:], stdin)
			return nil
		},
	}
}
