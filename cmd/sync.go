package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/git-ai-project/git-ai-sub000/internal/config"
	"github.com/git-ai-project/git-ai-sub000/internal/git"
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Fetch and push authorship notes to the sync remote",
		Args:  cobra.NoArgs,
	}
	remote := cmd.Flags().String("remote", "", "remote to sync with (default from config)")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		repo, err := git.Open(".")
		if err != nil {
			return err
		}
		cfg := config.Load()
		target := *remote
		if target == "" {
			target = cfg.SyncRemote
		}

		if err := repo.FetchNotes(target); err != nil {
			return fmt.Errorf("fetch notes from %s: %w", target, err)
		}
		if err := repo.PushNotes(target); err != nil {
			return fmt.Errorf("push notes to %s: %w", target, err)
		}
		fmt.Printf("synced authorship notes with %s\n", target)
		return nil
	}
	return cmd
}
