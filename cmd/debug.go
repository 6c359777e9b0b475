package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/git-ai-project/git-ai-sub000/internal/format"
	"github.com/git-ai-project/git-ai-sub000/internal/git"
	"github.com/git-ai-project/git-ai-sub000/internal/hookstate"
	"github.com/git-ai-project/git-ai-sub000/internal/worklog"
)

// newDebugCmd dumps internal engine state for troubleshooting hook behavior.
func newDebugCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:    "debug <state|hooks>",
		Short:  "Dump internal engine state",
		Hidden: true,
		Args:   cobra.ExactArgs(1),
	}
	tail := cmd.Flags().Int("tail", 100, "lines of hook log to show")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		repo, err := git.Open(".")
		if err != nil {
			return err
		}
		switch args[0] {
		case "state":
			return debugState(repo)
		case "hooks":
			return debugHookLog(repo, *tail)
		default:
			return fmt.Errorf("unknown debug target %q", args[0])
		}
	}
	return cmd
}

func debugState(repo *git.Repo) error {
	state := hookstate.NewStore(repo.GitDir).Load()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	fmt.Printf("%score hook state%s\n%s\n", format.Bold, format.Reset, data)

	store := worklog.NewStore(repo.GitDir)
	bases := store.Bases()
	fmt.Printf("\n%sworking logs%s\n", format.Bold, format.Reset)
	if len(bases) == 0 {
		fmt.Println("  none")
		return nil
	}
	for _, base := range bases {
		wl := store.ForBase(base)
		checkpoints, _ := wl.ReadAllCheckpoints()
		initial := wl.ReadInitial()
		fmt.Printf("  %s: %d checkpoint(s), %d initial file(s)\n",
			base, len(checkpoints), len(initial.Files))
	}
	return nil
}

func debugHookLog(repo *git.Repo, tail int) error {
	path := filepath.Join(repo.GitDir, "ai", "logs", "hooks.log")
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Printf("no hook log at %s\n", path)
		return nil
	}
	lines := strings.Split(string(data), "\n")
	if tail > 0 && len(lines) > tail {
		lines = lines[len(lines)-tail:]
	}
	fmt.Printf("%s--- %s (last %d lines) ---%s\n", format.Dim, path, len(lines), format.Reset)
	fmt.Println(strings.Join(lines, "\n"))
	return nil
}
