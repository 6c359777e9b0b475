package reconstruct

import (
	"fmt"

	"github.com/git-ai-project/git-ai-sub000/internal/attribution"
	"github.com/git-ai-project/git-ai-sub000/internal/git"
	"github.com/git-ai-project/git-ai-sub000/internal/virtual"
	"github.com/git-ai-project/git-ai-sub000/internal/worklog"
)

// PrepareSquash runs when a squash merge has staged its result but the
// squash commit does not exist yet. The staged index is wrapped in a
// temporary commit so reconstruction has a concrete revision to diff, the
// recovered record is staged on the base head's working log, and a
// pass-through checkpoint carries the line deltas so later folds shift
// correctly without attributing the squash to anyone. The next commit on
// this base adopts the staged record verbatim.
func (rec *Reconstructor) PrepareSquash(store *worklog.Store, sourceHead, baseHead string) error {
	tree, err := rec.Repo.WriteIndexTree()
	if err != nil {
		return fmt.Errorf("write staged tree: %w", err)
	}
	tempCommit, err := rec.Repo.CommitTree(tree, "staged squash state", baseHead)
	if err != nil {
		return err
	}
	if err := rec.Repo.AnchorHangingCommit(tempCommit); err != nil {
		return err
	}
	defer rec.Repo.DeleteHangingCommit(tempCommit)

	log, err := rec.Reconstruct(tempCommit, baseHead, sourceHead)
	if err != nil {
		return err
	}
	log.Metadata.BaseCommitSHA = ""

	serialized, err := log.Serialize()
	if err != nil {
		return err
	}
	wl := store.ForBase(baseHead)
	if err := wl.WriteStartingAuthorship(serialized); err != nil {
		return err
	}

	entries, err := rec.squashDeltaEntries(wl, baseHead, tempCommit)
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		authorName, _ := rec.Repo.DefaultAuthor()
		if err := wl.AppendCheckpoint(worklog.NewPassThroughCheckpoint(authorName, entries)); err != nil {
			return err
		}
	}
	return wl.MarkSquashPrecommitSkipped()
}

func (rec *Reconstructor) squashDeltaEntries(wl *worklog.WorkingLog, baseHead, tempCommit string) ([]worklog.WorkingLogEntry, error) {
	paths, err := rec.Repo.ChangedFiles(baseHead, tempCommit)
	if err != nil {
		return nil, err
	}
	var entries []worklog.WorkingLogEntry
	for _, path := range paths {
		oldContent, err := rec.Repo.FileAtCommit(baseHead, path)
		if err != nil && err != git.ErrNotFound {
			return nil, err
		}
		newContent, err := rec.Repo.FileAtCommit(tempCommit, path)
		if err != nil && err != git.ErrNotFound {
			return nil, err
		}
		diff := worklog.ComputeLineDiff(oldContent, newContent)
		if len(diff.Added) == 0 && len(diff.Deleted) == 0 {
			continue
		}
		hash, err := wl.PersistFileVersion(newContent)
		if err != nil {
			return nil, err
		}
		entries = append(entries, worklog.Entry(path, hash, diff))
	}
	return entries, nil
}

// Amend rebuilds the authorship of an amended commit: the original's record
// (or empty when it had none) seeds the fold, the working log recorded
// against the original replays on top, and the result re-attaches under the
// amended sha. The original's working log is deleted; attribution for files
// still dirty moves to the amended commit's working log.
func (rec *Reconstructor) Amend(store *worklog.Store, original, amended string) error {
	va := virtual.New()
	if content, err := rec.Repo.NoteShow(original); err == nil {
		if log, err := attribution.Deserialize(content); err == nil {
			va = virtual.FromAuthorshipLog(log)
		}
	}

	wl := store.ForBase(original)
	va.ApplyInitial(wl.ReadInitial())
	checkpoints, err := wl.ReadAllCheckpoints()
	if err != nil {
		return err
	}
	for _, cp := range checkpoints {
		va.ApplyCheckpoint(cp, true)
	}

	dirty, err := rec.Repo.DirtyFiles()
	if err != nil {
		dirty = nil
	}
	split := va.ToAuthorshipLog(amended, dirty)

	serialized, err := split.Log.Serialize()
	if err != nil {
		return err
	}
	if err := rec.Repo.NoteAdd(amended, serialized); err != nil {
		return err
	}
	rec.Repo.NoteRemove(original)

	if len(split.InitialFiles) > 0 {
		if err := store.ForBase(amended).WriteInitial(split.InitialFiles, split.InitialPrompts); err != nil {
			return err
		}
	}
	return store.Delete(original)
}

// WorkingLogAfterReset preserves attribution for commits a soft or mixed
// reset un-does. When the new head is an ancestor of the old one, the
// unwound commits' content is back in the working tree; blaming each line
// the old head added over the new head recovers its session, and the result
// lands in the new head's INITIAL snapshot so the next commit re-attests it.
func (rec *Reconstructor) WorkingLogAfterReset(store *worklog.Store, oldHead, newHead string) error {
	isAncestor, err := rec.Repo.IsAncestor(newHead, oldHead)
	if err != nil || !isAncestor {
		return err
	}

	files, err := rec.collectDiffFiles(oldHead, newHead, oldHead)
	if err != nil {
		return err
	}
	log := reconstructFromDiff(files, rec.blameResolver(oldHead))
	if log.IsEmpty() {
		return nil
	}

	wl := store.ForBase(newHead)
	initial := wl.ReadInitial()
	for file, attrs := range log.InitialFiles() {
		if _, exists := initial.Files[file]; !exists {
			initial.Files[file] = attrs
		}
	}
	for id, p := range log.Metadata.Prompts {
		if _, exists := initial.Prompts[id]; !exists {
			initial.Prompts[id] = p
		}
	}
	return wl.WriteInitial(initial.Files, initial.Prompts)
}

// ReattachAfterRebase maps each original commit to its rewritten counterpart
// by position and recovers authorship per pair. Commits the rebase left
// untouched keep their notes as-is.
func (rec *Reconstructor) ReattachAfterRebase(originalCommits, newCommits []string) error {
	// Pair oldest-to-oldest; a rebase that drops or fuses commits leaves the
	// unmatched tail of the longer side alone.
	n := len(originalCommits)
	if len(newCommits) < n {
		n = len(newCommits)
	}
	for i := 0; i < n; i++ {
		orig, rewritten := originalCommits[i], newCommits[i]
		if orig == rewritten {
			continue
		}
		if err := rec.reattachOne(orig, rewritten); err != nil {
			return err
		}
	}
	return nil
}

func (rec *Reconstructor) reattachOne(orig, rewritten string) error {
	if _, err := rec.Repo.NoteShow(orig); err != nil {
		return nil // nothing recorded for the original
	}
	parent, err := rec.Repo.FirstParent(rewritten)
	if err != nil {
		parent = ""
	}
	log, err := rec.Reconstruct(rewritten, parent, orig)
	if err != nil {
		return err
	}
	if log.IsEmpty() {
		return nil
	}
	serialized, err := log.Serialize()
	if err != nil {
		return err
	}
	return rec.Repo.NoteAdd(rewritten, serialized)
}

// BlendCherryPick recovers the authorship a cherry-picked source commit
// carried and attaches it to the commit the pick produced.
func (rec *Reconstructor) BlendCherryPick(source, result string) error {
	return rec.reattachOne(source, result)
}
