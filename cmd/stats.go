package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/git-ai-project/git-ai-sub000/internal/git"
	"github.com/git-ai-project/git-ai-sub000/internal/promptdb"
)

// newStatsCmd summarizes recorded AI contribution from the local session
// mirror.
func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats [revision]",
		Short: "Summarize AI-attributed lines, per tool or per commit",
		Args:  cobra.MaximumNArgs(1),
	}
	asJSON := cmd.Flags().Bool("json", false, "machine-readable output")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		repo, err := git.Open(".")
		if err != nil {
			return err
		}
		db, err := promptdb.Open(repo.GitDir)
		if err != nil {
			return err
		}
		defer db.Close()

		if len(args) == 1 {
			sha, err := repo.RevParse(args[0])
			if err != nil {
				return fmt.Errorf("unknown revision %q", args[0])
			}
			totals, err := db.CommitTotals(sha)
			if err != nil {
				return err
			}
			return printTotals(map[string]promptdb.Totals{sha[:8]: totals}, *asJSON)
		}

		totals, err := db.ToolTotals()
		if err != nil {
			return err
		}
		return printTotals(totals, *asJSON)
	}
	return cmd
}

func printTotals(totals map[string]promptdb.Totals, asJSON bool) error {
	if asJSON {
		return json.NewEncoder(os.Stdout).Encode(totals)
	}

	keys := make([]string, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	wide := term.IsTerminal(int(os.Stdout.Fd()))
	for _, k := range keys {
		t := totals[k]
		if wide {
			fmt.Printf("%-20s %4d session(s)  %6d accepted  %4d overridden  +%d/-%d\n",
				k, t.Sessions, t.AcceptedLines, t.OverriddenLines, t.TotalAdditions, t.TotalDeletions)
		} else {
			fmt.Printf("%s\t%d\t%d\t%d\t%d\t%d\n",
				k, t.Sessions, t.AcceptedLines, t.OverriddenLines, t.TotalAdditions, t.TotalDeletions)
		}
	}
	if len(keys) == 0 {
		fmt.Println("no AI-attributed commits recorded")
	}
	return nil
}
