package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/git-ai-project/git-ai-sub000/internal/attribution"
	"github.com/git-ai-project/git-ai-sub000/internal/checkpointer"
	"github.com/git-ai-project/git-ai-sub000/internal/git"
	"github.com/git-ai-project/git-ai-sub000/internal/transcript"
	"github.com/git-ai-project/git-ai-sub000/internal/worklog"
)

// newCheckpointCmd records the current working-tree delta as a checkpoint.
// Agent integrations call `git-ai checkpoint agent --tool ... --session ...`
// after every edit batch, optionally piping the transcript JSON on stdin;
// editors call `git-ai checkpoint human` (also swept automatically by the
// pre-commit hook).
func newCheckpointCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkpoint <human|agent|tab>",
		Short: "Record the current working-tree delta as a checkpoint",
		Args:  cobra.ExactArgs(1),
	}

	tool := cmd.Flags().String("tool", "", "agent tool name")
	session := cmd.Flags().String("session", "", "agent session id")
	model := cmd.Flags().String("model", "", "agent model name")
	withTranscript := cmd.Flags().Bool("transcript", false, "read transcript from stdin")
	transcriptFile := cmd.Flags().String("transcript-file", "", "read transcript from a tool's session file")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		repo, err := git.Open(".")
		if err != nil {
			return err
		}
		cp := checkpointer.New(repo, worklog.NewStore(repo.GitDir))
		author, _ := repo.DefaultAuthor()

		switch args[0] {
		case "human":
			_, err = cp.CaptureHuman(author)
			return err
		case "agent", "tab":
			if *session == "" {
				return fmt.Errorf("checkpoint %s requires --session", args[0])
			}
			agent := attribution.AgentID{Tool: *tool, ID: *session, Model: *model}
			if args[0] == "tab" {
				_, err = cp.CaptureTab(author, agent)
				return err
			}
			var tr *attribution.Transcript
			if *transcriptFile != "" {
				tr, _ = transcript.ParseFile(*transcriptFile)
			} else if *withTranscript {
				if data, err := io.ReadAll(os.Stdin); err == nil {
					tr, _ = transcript.Parse(data)
				}
			}
			_, err = cp.CaptureAgent(author, agent, tr)
			return err
		default:
			return fmt.Errorf("unknown checkpoint kind %q", args[0])
		}
	}
	return cmd
}
