// Package hook implements the git-hook entry points. Every handler is best
// effort: errors are logged to the debug log and swallowed, and the process
// always exits zero so the underlying git command is never blocked by
// attribution bookkeeping.
package hook

import (
	"os"
	"strings"

	"github.com/git-ai-project/git-ai-sub000/internal/classify"
	"github.com/git-ai-project/git-ai-sub000/internal/config"
	"github.com/git-ai-project/git-ai-sub000/internal/debug"
	"github.com/git-ai-project/git-ai-sub000/internal/git"
	"github.com/git-ai-project/git-ai-sub000/internal/hookstate"
	"github.com/git-ai-project/git-ai-sub000/internal/reconstruct"
	"github.com/git-ai-project/git-ai-sub000/internal/rewritelog"
	"github.com/git-ai-project/git-ai-sub000/internal/worklog"
)

const logName = "hooks.log"

// Runner holds the per-repository collaborators a hook invocation needs.
type Runner struct {
	Repo     *git.Repo
	Cfg      config.Config
	Store    *worklog.Store
	State    *hookstate.Store
	Rewrites *rewritelog.Log
	Rec      *reconstruct.Reconstructor
}

// NewRunner wires a runner for the repository containing dir.
func NewRunner(dir string) (*Runner, error) {
	repo, err := git.Open(dir)
	if err != nil {
		return nil, err
	}
	return &Runner{
		Repo:     repo,
		Cfg:      config.Load(),
		Store:    worklog.NewStore(repo.GitDir),
		State:    hookstate.NewStore(repo.GitDir),
		Rewrites: rewritelog.Open(repo.GitDir),
		Rec:      reconstruct.New(repo),
	}, nil
}

// Run dispatches one hook invocation. The returned code is always zero;
// failures degrade attribution tracking, never the git command.
func (r *Runner) Run(hookName string, args []string, stdin string) int {
	if r.Cfg.SkipHooks {
		return 0
	}
	debug.Logf(r.Repo.GitDir, logName, "hook %s %s", hookName, strings.Join(args, " "))

	var err error
	switch hookName {
	case "pre-commit":
		err = r.preCommit()
	case "post-commit":
		err = r.postCommit()
	case "post-rewrite":
		err = r.postRewrite(args, stdin)
	case "pre-rebase":
		err = r.preRebase(args)
	case "post-checkout":
		err = r.postCheckout(args)
	case "post-merge":
		err = r.postMerge(args)
	case "reference-transaction":
		err = r.referenceTransaction(args, stdin)
	case "post-index-change":
		err = r.postIndexChange(args)
	case "pre-push":
		err = r.prePush(args)
	default:
		// Pass-through hooks need no handling.
	}

	if err != nil {
		debug.Log(r.Repo.GitDir, logName, "hook "+hookName+" failed", map[string]string{
			"error": err.Error(),
		})
	}
	return 0
}

// reflogAction returns the semantic hint for the current git operation:
// GIT_REFLOG_ACTION when git exports it, else the newest HEAD reflog subject.
func (r *Runner) reflogAction() string {
	if action := os.Getenv("GIT_REFLOG_ACTION"); action != "" {
		return action
	}
	if entry, ok := classify.ParseReflogLine(r.Repo.LastHEADReflogLine()); ok {
		return entry.Subject
	}
	return r.Repo.ReflogSubject()
}
