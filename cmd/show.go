package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/git-ai-project/git-ai-sub000/internal/attribution"
	"github.com/git-ai-project/git-ai-sub000/internal/format"
	"github.com/git-ai-project/git-ai-sub000/internal/git"
)

// newShowCmd prints the authorship record attached to a commit, either the
// raw JSON or a per-file range listing. This is one of the few user-facing
// read paths, so unlike hooks it may legitimately report errors.
func newShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [revision]",
		Short: "Print the authorship record attached to a commit",
		Args:  cobra.MaximumNArgs(1),
	}
	raw := cmd.Flags().Bool("json", false, "print the raw record JSON")
	prompts := cmd.Flags().Bool("prompts", false, "also print retained session prompts")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		repo, err := git.Open(".")
		if err != nil {
			return err
		}
		rev := "HEAD"
		if len(args) == 1 {
			rev = args[0]
		}
		sha, err := repo.RevParse(rev)
		if err != nil {
			return fmt.Errorf("unknown revision %q", rev)
		}
		content, err := repo.NoteShow(sha)
		if err != nil {
			return fmt.Errorf("no authorship record for %.8s", sha)
		}
		if *raw {
			fmt.Fprintln(os.Stdout, content)
			return nil
		}

		log, err := attribution.Deserialize(content)
		if err != nil {
			return err
		}
		author := ""
		if name, email, err := repo.CommitAuthor(sha); err == nil {
			author = fmt.Sprintf("%s <%s>", name, email)
		}
		fmt.Println(format.Record(sha, author, log))
		if *prompts {
			if rendered := format.Prompts(log); rendered != "" {
				fmt.Println(rendered)
			}
		}
		return nil
	}
	return cmd
}
