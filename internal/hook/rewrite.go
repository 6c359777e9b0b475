package hook

import (
	"strings"

	"github.com/git-ai-project/git-ai-sub000/internal/attribution"
	"github.com/git-ai-project/git-ai-sub000/internal/checkpointer"
	"github.com/git-ai-project/git-ai-sub000/internal/classify"
	"github.com/git-ai-project/git-ai-sub000/internal/hookstate"
	"github.com/git-ai-project/git-ai-sub000/internal/rewritelog"
	"github.com/git-ai-project/git-ai-sub000/internal/virtual"
)

// postRewrite handles the hook git fires after amends and rebases, with an
// "old new" sha pair per rewritten commit on stdin.
func (r *Runner) postRewrite(args []string, stdin string) error {
	if len(args) == 0 {
		return nil
	}
	var pairs [][2]string
	for _, line := range strings.Split(stdin, "\n") {
		fields := strings.Fields(line)
		if len(fields) >= 2 {
			pairs = append(pairs, [2]string{fields[0], fields[1]})
		}
	}
	if len(pairs) == 0 {
		return nil
	}

	switch args[0] {
	case "amend":
		return r.rewriteAmend(pairs)
	case "rebase":
		return r.rewriteRebase(pairs)
	}
	return nil
}

func (r *Runner) rewriteAmend(pairs [][2]string) error {
	// Amends inside an in-progress rebase are covered by the rebase's own
	// final post-rewrite; replaying them here would double-count.
	if r.Repo.RebaseInProgress() {
		return nil
	}
	for _, pair := range pairs {
		if err := r.Rec.Amend(r.Store, pair[0], pair[1]); err != nil {
			return err
		}
		if err := r.Rewrites.Append(rewritelog.NewCommitAmend(pair[0], pair[1])); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) rewriteRebase(pairs [][2]string) error {
	originals := make([]string, len(pairs))
	rewritten := make([]string, len(pairs))
	for i, pair := range pairs {
		originals[i] = pair[0]
		rewritten[i] = pair[1]
	}

	if err := r.Rec.ReattachAfterRebase(originals, rewritten); err != nil {
		return err
	}

	newHead, err := r.Repo.Head()
	if err != nil {
		return err
	}
	start, err := r.Rewrites.ActiveRebaseStart()
	if err != nil {
		return err
	}
	complete := rewritelog.RebaseCompleteEvent{
		NewHead:         newHead,
		OriginalCommits: originals,
		NewCommits:      rewritten,
	}
	if start != nil {
		complete.OriginalHead = start.OriginalHead
		complete.IsInteractive = start.IsInteractive
	} else {
		// No recorded start, e.g. a rebase begun before install. The rebase
		// state files are still present while this hook runs.
		complete.OriginalHead = r.Repo.RebaseOrigHead()
		complete.IsInteractive = r.Repo.RebaseIsInteractive()
		if complete.OriginalHead == "" {
			complete.OriginalHead = originals[len(originals)-1]
		}
	}
	if err := r.Rewrites.Append(rewritelog.NewRebaseComplete(complete)); err != nil {
		return err
	}

	return r.restoreRebaseAutostash(newHead)
}

// restoreRebaseAutostash folds a captured autostash record back into the new
// head's working log once the rebase that stashed it resolves.
func (r *Runner) restoreRebaseAutostash(newHead string) error {
	state := r.State.Load()
	before := state
	pending := state.PendingAutostash
	state.PendingAutostash = nil
	if err := r.State.SaveIfChanged(before, state); err != nil {
		return err
	}
	if pending == nil {
		return nil
	}
	return r.mergeAuthorshipIntoInitial(newHead, pending.AuthorshipLogJSON)
}

// mergeAuthorshipIntoInitial projects a serialized record into the INITIAL
// snapshot of the working log anchored at base.
func (r *Runner) mergeAuthorshipIntoInitial(base, serialized string) error {
	log, err := attribution.Deserialize(serialized)
	if err != nil {
		return err
	}
	wl := r.Store.ForBase(base)
	initial := wl.ReadInitial()
	for file, attrs := range log.InitialFiles() {
		initial.Files[file] = attrs
	}
	for id, p := range log.Metadata.Prompts {
		initial.Prompts[id] = p
	}
	return wl.WriteInitial(initial.Files, initial.Prompts)
}

// preRebase records the pre-rebase head and target, and captures the
// authorship of any dirty work an autostash is about to whisk away.
func (r *Runner) preRebase(args []string) error {
	head, err := r.Repo.Head()
	if err != nil {
		return nil
	}

	onto := ""
	if len(args) > 0 {
		if sha, err := r.Repo.RevParse(args[0]); err == nil {
			onto = sha
		}
	}
	if onto == "" {
		onto = r.Repo.RebaseOntoSHA()
	}
	// The rebase state directory may not exist yet this early; the reflog
	// hint covers that window.
	interactive := r.Repo.RebaseIsInteractive() || strings.Contains(r.reflogAction(), "rebase -i")
	if err := r.Rewrites.Append(rewritelog.NewRebaseStart(head, onto, interactive)); err != nil {
		return err
	}

	if r.Repo.HasStagedChanges() || r.Repo.HasUnstagedChanges() {
		serialized, err := r.foldWorkingAuthorship(head)
		if err != nil || serialized == "" {
			return err
		}
		state := r.State.Load()
		before := state
		state.PendingAutostash = &hookstate.PendingAutostash{AuthorshipLogJSON: serialized}
		return r.State.SaveIfChanged(before, state)
	}
	return nil
}

// foldWorkingAuthorship sweeps a human checkpoint and folds head's working
// log into a serialized record, so it can be parked in hook state while an
// autostash whisks the worktree away. Empty string when nothing AI-relevant
// is outstanding.
func (r *Runner) foldWorkingAuthorship(head string) (string, error) {
	author, _ := r.Repo.DefaultAuthor()
	if _, err := checkpointer.New(r.Repo, r.Store).CaptureHuman(author); err != nil {
		return "", err
	}
	va, err := virtual.FromWorkingLog(r.Store.ForBase(head))
	if err != nil {
		return "", err
	}
	if va.IsEmpty() {
		return "", nil
	}
	split := va.ToAuthorshipLog(head, nil)
	return split.Log.Serialize()
}

// postMerge stages squash reconstruction, and restores a pull autostash
// after a merge-bearing pull completes.
func (r *Runner) postMerge(args []string) error {
	isSquash := len(args) > 0 && args[0] == "1"
	head, err := r.Repo.Head()
	if err != nil {
		return err
	}

	if isSquash {
		return r.prepareSquashFromMerge(head)
	}

	// The merge moved HEAD; uncommitted work follows the new anchor. This
	// covers fast-forward pulls, which fire no commit hooks at all.
	if origHead, err := r.Repo.RevParse("ORIG_HEAD"); err == nil && origHead != head {
		if err := r.Store.Rename(origHead, head); err != nil {
			return err
		}
	}

	state := r.State.Load()
	before := state
	pending := state.TakePullAutostash()
	if err := r.State.SaveIfChanged(before, state); err != nil {
		return err
	}
	if pending != nil {
		return r.mergeAuthorshipIntoInitial(head, pending.AuthorshipLogJSON)
	}
	return nil
}

func (r *Runner) prepareSquashFromMerge(baseHead string) error {
	action := r.reflogAction()
	sourceRef := classify.MergeSourceRef(action)
	if sourceRef == "" {
		return nil
	}
	sourceHead, err := r.Repo.RevParse(sourceRef)
	if err != nil {
		return err
	}

	if err := r.Rec.PrepareSquash(r.Store, sourceHead, baseHead); err != nil {
		return err
	}
	return r.Rewrites.Append(rewritelog.NewMergeSquash(rewritelog.MergeSquashEvent{
		SourceRef:  sourceRef,
		SourceHead: sourceHead,
		BaseBranch: "HEAD",
		BaseHead:   baseHead,
	}))
}
