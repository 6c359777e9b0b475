package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/git-ai-project/git-ai-sub000/internal/format"
	"github.com/git-ai-project/git-ai-sub000/internal/git"
	"github.com/git-ai-project/git-ai-sub000/internal/rewritelog"
)

// newLogCmd prints the recorded history-rewrite events, newest last.
func newLogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show recorded commit and history-rewrite events",
		Args:  cobra.NoArgs,
	}
	tail := cmd.Flags().Int("tail", 50, "show only the last N events")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		repo, err := git.Open(".")
		if err != nil {
			return err
		}
		events, err := rewritelog.Open(repo.GitDir).ReadAll()
		if err != nil {
			return err
		}
		if len(events) == 0 {
			fmt.Println("no rewrite events recorded")
			return nil
		}
		if *tail > 0 && len(events) > *tail {
			events = events[len(events)-*tail:]
		}
		for _, e := range events {
			ts := time.UnixMilli(e.TimestampMS).Format("2006-01-02 15:04:05")
			fmt.Printf("%s%s%s  %-22s %s\n", format.Dim, ts, format.Reset, e.Type, eventDetail(e))
		}
		return nil
	}
	return cmd
}

func eventDetail(e rewritelog.Event) string {
	switch {
	case e.Commit != nil:
		return fmt.Sprintf("%.8s -> %.8s", e.Commit.BaseSHA, e.Commit.NewSHA)
	case e.CommitAmend != nil:
		return fmt.Sprintf("%.8s -> %.8s", e.CommitAmend.OriginalSHA, e.CommitAmend.AmendedSHA)
	case e.RebaseStart != nil:
		detail := fmt.Sprintf("from %.8s onto %.8s", e.RebaseStart.OriginalHead, e.RebaseStart.Onto)
		if e.RebaseStart.IsInteractive {
			detail += " (interactive)"
		}
		return detail
	case e.RebaseComplete != nil:
		return fmt.Sprintf("%d commit(s) rewritten, head %.8s", len(e.RebaseComplete.NewCommits), e.RebaseComplete.NewHead)
	case e.RebaseAbort != nil:
		return fmt.Sprintf("back to %.8s", e.RebaseAbort.OriginalHead)
	case e.MergeSquash != nil:
		return fmt.Sprintf("%s (%.8s) into %.8s", e.MergeSquash.SourceRef, e.MergeSquash.SourceHead, e.MergeSquash.BaseHead)
	case e.Reset != nil:
		return fmt.Sprintf("--%s %.8s -> %.8s", e.Reset.Mode, e.Reset.OldHead, e.Reset.NewHead)
	case e.CherryPickComplete != nil:
		return fmt.Sprintf("%d commit(s), head %.8s", len(e.CherryPickComplete.Sources), e.CherryPickComplete.NewHead)
	}
	return ""
}
