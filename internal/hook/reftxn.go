package hook

import (
	"strings"

	"github.com/git-ai-project/git-ai-sub000/internal/attribution"
	"github.com/git-ai-project/git-ai-sub000/internal/checkpointer"
	"github.com/git-ai-project/git-ai-sub000/internal/classify"
	"github.com/git-ai-project/git-ai-sub000/internal/git"
	"github.com/git-ai-project/git-ai-sub000/internal/hookstate"
	"github.com/git-ai-project/git-ai-sub000/internal/rewritelog"
	"github.com/git-ai-project/git-ai-sub000/internal/virtual"
)

// referenceTransaction is the catch-all low-level hook. It fires twice per
// transaction, "prepared" then "committed", with no semantic label, so the
// prepared phase captures depth counters and timestamps that the committed
// phase needs to classify what actually happened.
func (r *Runner) referenceTransaction(args []string, stdin string) error {
	if len(args) == 0 {
		return nil
	}
	updates := classify.ParseRefLines(stdin)
	if len(updates) == 0 {
		return nil
	}

	switch args[0] {
	case "prepared":
		return r.refTxnPrepared(updates)
	case "committed":
		return r.refTxnCommitted(updates)
	}
	return nil
}

func (r *Runner) refTxnPrepared(updates []classify.RefUpdate) error {
	class := classify.Action(r.reflogAction())

	state := r.State.Load()
	before := state

	for _, u := range updates {
		switch u.Ref {
		case "ORIG_HEAD":
			// A history-moving operation is about to land.
			if classify.NonZeroOID(u.NewOID) == "" {
				continue
			}
			now := hookstate.NowMS()
			state.PendingPreparedOrigHeadMS = &now

			// A pull --rebase autostash takes the dirty worktree with it
			// before any later hook can see it; capture the fold now.
			if class == classify.PullRebaseLike {
				if head, err := r.Repo.Head(); err == nil {
					serialized, err := r.foldWorkingAuthorship(head)
					if err != nil {
						return err
					}
					if serialized != "" {
						state.PendingPullAutostash = &hookstate.PendingPullAutostash{
							AuthorshipLogJSON: serialized,
							CreatedAtMS:       hookstate.NowMS(),
						}
					}
				}
			}
		case "refs/stash":
			state.PendingStashRefUpdate = &hookstate.PendingStashRefUpdate{
				CreatedAtMS:      hookstate.NowMS(),
				StashCountBefore: len(r.Repo.StashSHAs()),
			}
		}
	}
	return r.State.SaveIfChanged(before, state)
}

func (r *Runner) refTxnCommitted(updates []classify.RefUpdate) error {
	action := r.reflogAction()
	class := classify.Action(action)

	state := r.State.Load()
	before := state
	defer func() { _ = r.State.SaveIfChanged(before, state) }()

	// A conflicted stash apply materializes AUTO_MERGE in the same
	// transaction; remember it so the restore can follow without a pop.
	autoMergeCreated := r.Repo.AutoMergeExists()
	for _, u := range updates {
		if u.Ref == "AUTO_MERGE" && classify.NonZeroOID(u.NewOID) != "" {
			autoMergeCreated = true
		}
	}
	if autoMergeCreated {
		state.PendingStashApply = &hookstate.PendingStashApply{CreatedAtMS: hookstate.NowMS()}
	}

	for _, remote := range remoteTrackingRemotes(updates) {
		_ = r.Repo.FetchNotes(remote)
	}

	// CHERRY_PICK_HEAD transitions identify the source commit directly,
	// regardless of how the surrounding reflog action is worded.
	for _, u := range updates {
		if u.Ref != "CHERRY_PICK_HEAD" {
			continue
		}
		if source := classify.NonZeroOID(u.NewOID); source != "" {
			originalHead, _ := r.Repo.Head()
			state.PendingCherryPick = &hookstate.PendingCherryPick{
				OriginalHead: originalHead,
				SourceCommit: source,
				CreatedAtMS:  hookstate.NowMS(),
			}
		} else if strings.Contains(action, "cherry-pick") && strings.Contains(action, "abort") {
			state.PendingCherryPick = nil
		}
	}

	for _, u := range updates {
		if u.Ref == "refs/stash" {
			if err := r.handleStashUpdate(&state, u, action, autoMergeCreated); err != nil {
				return err
			}
			continue
		}
		if u.Ref != "HEAD" {
			continue
		}

		switch class {
		case classify.CommitLike:
			// Dedicated commit hooks carry higher-fidelity information.
		case classify.ResetLike:
			// Only a real reset writes ORIG_HEAD in the same transaction;
			// rebase machinery also moves HEAD with reset-looking reflogs.
			if state.TakePreparedOrigHead() && !r.Repo.RebaseInProgress() {
				if err := r.handleReset(u); err != nil {
					return err
				}
			}
		case classify.RebaseLike:
			// An aborted rebase snaps HEAD back to where it started. Close
			// the open rebase-start so later scans do not resume it.
			if strings.Contains(action, "(abort)") {
				if origHead := classify.NonZeroOID(u.NewOID); origHead != "" {
					if err := r.Rewrites.Append(rewritelog.NewRebaseAbort(origHead)); err != nil {
						return err
					}
				}
			}
		case classify.PullRebaseLike:
			if strings.HasPrefix(action, "pull --rebase (finish)") {
				if err := r.finishPullRebase(&state, u); err != nil {
					return err
				}
			}
		case classify.CherryPickLike:
			// Some git versions update CHERRY_PICK_HEAD outside this
			// transaction; fall back to reading the ref directly.
			if state.PendingCherryPick == nil {
				if source := r.Repo.CherryPickHead(); source != "" {
					state.PendingCherryPick = &hookstate.PendingCherryPick{
						OriginalHead: classify.NonZeroOID(u.OldOID),
						SourceCommit: source,
						CreatedAtMS:  hookstate.NowMS(),
					}
				}
			}
		}
	}
	return nil
}

// finishPullRebase reconciles the commit rewrite a finished pull --rebase
// produced and folds the captured autostash back onto the new head. Unlike a
// plain rebase there is no post-rewrite invocation to lean on, so the
// old-to-new mapping is rebuilt from the recorded rebase start.
func (r *Runner) finishPullRebase(state *hookstate.State, u classify.RefUpdate) error {
	newHead := classify.NonZeroOID(u.NewOID)
	if newHead == "" {
		return nil
	}

	start, err := r.Rewrites.ActiveRebaseStart()
	if err != nil {
		return err
	}
	if start != nil {
		onto := start.Onto
		if onto == "" {
			onto, _ = r.Repo.MergeBase(start.OriginalHead, newHead)
		}
		if onto != "" {
			originals, _ := r.Repo.RevList(onto, start.OriginalHead)
			rewritten, _ := r.Repo.RevList(onto, newHead)
			if len(originals) > 0 && len(rewritten) > 0 {
				if err := r.Rec.ReattachAfterRebase(originals, rewritten); err != nil {
					return err
				}
			}
			if err := r.Rewrites.Append(rewritelog.NewRebaseComplete(rewritelog.RebaseCompleteEvent{
				OriginalHead:    start.OriginalHead,
				NewHead:         newHead,
				IsInteractive:   start.IsInteractive,
				OriginalCommits: originals,
				NewCommits:      rewritten,
			})); err != nil {
				return err
			}
		}
	}

	if pending := state.TakePullAutostash(); pending != nil {
		return r.mergeAuthorshipIntoInitial(newHead, pending.AuthorshipLogJSON)
	}
	return nil
}

// handleReset classifies the reset mode from the worktree left behind and
// reconciles the abandoned head's working log. The mode cannot be read from
// arguments: after a soft reset the undone commits sit staged, after a mixed
// reset unstaged, after a hard reset the tree is clean.
func (r *Runner) handleReset(u classify.RefUpdate) error {
	oldHead := classify.NonZeroOID(u.OldOID)
	newHead := classify.NonZeroOID(u.NewOID)
	if oldHead == "" || newHead == "" || oldHead == newHead {
		return nil
	}

	mode := rewritelog.ResetHard
	if r.Repo.HasStagedChanges() {
		mode = rewritelog.ResetSoft
	} else if r.Repo.HasUnstagedChanges() {
		mode = rewritelog.ResetMixed
	}

	switch mode {
	case rewritelog.ResetHard:
		if err := r.Store.Delete(oldHead); err != nil {
			return err
		}
	default:
		// Backward reconstruction: the unwound commits' authorship becomes
		// uncommitted attribution on the new base.
		if err := r.Rec.WorkingLogAfterReset(r.Store, oldHead, newHead); err != nil {
			return err
		}
		if err := r.Store.Rename(oldHead, newHead); err != nil {
			return err
		}
	}
	return r.Rewrites.Append(rewritelog.NewReset(mode, oldHead, newHead))
}

// remoteTrackingRemotes extracts the distinct remotes whose tracking refs
// moved in this transaction, so their notes can be fetched alongside.
func remoteTrackingRemotes(updates []classify.RefUpdate) []string {
	seen := map[string]bool{}
	var remotes []string
	for _, u := range updates {
		rest, ok := strings.CutPrefix(u.Ref, "refs/remotes/")
		if !ok {
			continue
		}
		remote, _, ok := strings.Cut(rest, "/")
		if !ok || remote == "" || seen[remote] {
			continue
		}
		seen[remote] = true
		remotes = append(remotes, remote)
	}
	return remotes
}

// handleStashUpdate resolves what a refs/stash transition did and moves
// authorship with the stash: a created stash gets the current fold recorded
// against it, a popped stash folds its record back into the working log.
func (r *Runner) handleStashUpdate(state *hookstate.State, u classify.RefUpdate, action string, autoMergeCreated bool) error {
	countBefore := -1
	if pending := state.TakeStashRefUpdate(); pending != nil {
		countBefore = pending.StashCountBefore
	}
	countAfter := len(r.Repo.StashSHAs())

	res := classify.ResolveStashTransition(u.OldOID, u.NewOID, countBefore, countAfter, action)
	if res.CreatedSHA != "" {
		if err := r.recordStashAuthorship(res.CreatedSHA); err != nil {
			return err
		}
	}
	if res.DeletedSHA != "" {
		if classify.ShouldRestoreDeletedStash(autoMergeCreated, action) {
			state.PendingStashApply = nil
			return r.restoreStashAuthorship(res.DeletedSHA)
		}
	}
	return nil
}

// recordStashAuthorship attaches the attribution of the stashed files to the
// stash commit itself, so the record survives however long the stash lives.
func (r *Runner) recordStashAuthorship(stashSHA string) error {
	head, err := r.Repo.Head()
	if err != nil {
		return nil
	}
	files, err := r.Repo.StashChangedFiles(stashSHA)
	if err != nil || len(files) == 0 {
		return nil
	}

	va, err := virtual.FromWorkingLog(r.Store.ForBase(head))
	if err != nil {
		return err
	}
	stashed := map[string]bool{}
	for _, f := range files {
		stashed[f] = true
	}
	// Restrict the record to what the stash actually carries.
	for file := range va.Files {
		if !stashed[file] {
			delete(va.Files, file)
		}
	}
	if va.IsEmpty() {
		return nil
	}
	split := va.ToAuthorshipLog(stashSHA, nil)
	serialized, err := split.Log.Serialize()
	if err != nil {
		return err
	}
	if err := r.Repo.NoteAdd(stashSHA, serialized); err != nil {
		return err
	}

	// The stashed files are gone from the tree; trim them from the log.
	dirty, err := r.Repo.DirtyFiles()
	if err != nil {
		return nil
	}
	return r.Store.ForBase(head).TrimToFiles(dirty)
}

// restoreStashAuthorship folds a popped stash's record back into the current
// head's INITIAL snapshot.
func (r *Runner) restoreStashAuthorship(stashSHA string) error {
	content, err := r.Repo.NoteShow(stashSHA)
	if err != nil {
		return nil // human-only stash
	}
	head, err := r.Repo.Head()
	if err != nil {
		return nil
	}
	return r.mergeAuthorshipIntoInitial(head, content)
}

// postIndexChange completes a stash apply that kept the stash alive: no
// refs/stash deletion ever fires, so the only signal is the worktree change
// that follows a pending-apply marker. It also sweeps a human checkpoint when
// the working directory changed, keeping the log close to the tree.
func (r *Runner) postIndexChange(args []string) error {
	state := r.State.Load()
	before := state
	if pending := state.PendingStashApply; pending != nil {
		switch {
		case !hookstate.Fresh(pending.CreatedAtMS, hookstate.TransactionMaxAgeMS):
			state.PendingStashApply = nil
		default:
			// Keep the marker until a candidate appears or the window closes.
			if sha := r.bestMatchingStashNote(); sha != "" {
				state.PendingStashApply = nil
				if err := r.restoreStashAuthorship(sha); err != nil {
					return err
				}
			}
		}
	}
	if err := r.State.SaveIfChanged(before, state); err != nil {
		return err
	}

	workdirUpdated := len(args) > 0 && args[0] == "1"
	if !workdirUpdated || !r.Store.HasAnyActivity() {
		return nil
	}
	author, _ := r.Repo.DefaultAuthor()
	_, err := checkpointer.New(r.Repo, r.Store).CaptureHuman(author)
	return err
}

// bestMatchingStashNote picks the stash whose authorship note overlaps the
// currently dirty files the most, preferring the narrower note on ties.
func (r *Runner) bestMatchingStashNote() string {
	dirty, err := r.Repo.DirtyFiles()
	if err != nil || len(dirty) == 0 {
		return ""
	}

	bestSHA := ""
	bestMatch, bestTotal := 0, 0
	for _, sha := range r.Repo.StashSHAs() {
		content, err := r.Repo.NoteShow(sha)
		if err != nil {
			continue
		}
		log, err := attribution.Deserialize(content)
		if err != nil {
			continue
		}
		files := log.Files()
		match := 0
		for _, f := range files {
			if dirty[f] {
				match++
			}
		}
		if match == 0 {
			continue
		}
		if match > bestMatch || (match == bestMatch && len(files) < bestTotal) {
			bestSHA, bestMatch, bestTotal = sha, match, len(files)
		}
	}
	return bestSHA
}

// postCheckout moves the working log with the branch head: uncommitted work
// carries to the new anchor, trimmed to the files still dirty there.
func (r *Runner) postCheckout(args []string) error {
	if len(args) < 3 || args[2] != "1" {
		return nil // file checkout, not a branch switch
	}
	oldHead := classify.NonZeroOID(args[0])
	newHead := classify.NonZeroOID(args[1])
	if oldHead == "" || newHead == "" || oldHead == newHead {
		return nil
	}

	if err := r.Store.Rename(oldHead, newHead); err != nil {
		return err
	}
	wl := r.Store.ForBase(newHead)
	checkpoints, err := wl.ReadAllCheckpoints()
	if err != nil {
		return err
	}
	if len(checkpoints) == 0 && wl.ReadInitial().IsEmpty() {
		return nil
	}
	dirty, err := r.Repo.DirtyFiles()
	if err != nil {
		return err
	}
	return wl.TrimToFiles(dirty)
}

// prePush publishes the notes ref alongside the branches being pushed.
func (r *Runner) prePush(args []string) error {
	remote := r.Cfg.SyncRemote
	if len(args) > 0 && args[0] != "" {
		remote = args[0]
	}
	if _, err := r.Repo.RevParse(git.NotesRef); err != nil {
		return nil // nothing recorded yet
	}
	return r.Repo.PushNotes(remote)
}
