package hook

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/git-ai-project/git-ai-sub000/internal/attribution"
	"github.com/git-ai-project/git-ai-sub000/internal/checkpointer"
	"github.com/git-ai-project/git-ai-sub000/internal/config"
	"github.com/git-ai-project/git-ai-sub000/internal/debug"
	"github.com/git-ai-project/git-ai-sub000/internal/format"
	"github.com/git-ai-project/git-ai-sub000/internal/promptdb"
	"github.com/git-ai-project/git-ai-sub000/internal/rewritelog"
	"github.com/git-ai-project/git-ai-sub000/internal/virtual"
	"github.com/git-ai-project/git-ai-sub000/internal/worklog"
)

// preCommit sweeps any uncheckpointed edits into a human checkpoint so the
// fold at post-commit sees everything the commit will contain. Skipped when a
// staged squash marked itself: only the staged record matters then.
func (r *Runner) preCommit() error {
	head, err := r.Repo.Head()
	if err != nil {
		head = worklog.InitialBase
	}
	if r.Store.ForBase(head).WasSquashPrecommitSkipped() {
		return nil
	}
	if !r.Store.HasAnyActivity() {
		return nil
	}
	author, _ := r.Repo.DefaultAuthor()
	_, err = checkpointer.New(r.Repo, r.Store).CaptureHuman(author)
	return err
}

// postCommit converts the working log accumulated against the commit's base
// into an authorship note on the new commit.
func (r *Runner) postCommit() error {
	head, err := r.Repo.Head()
	if err != nil {
		return err
	}

	// Amends re-fire post-commit; the post-rewrite hook owns them with full
	// old/new information.
	if strings.HasPrefix(r.reflogAction(), "commit (amend)") {
		return nil
	}

	// A commit concluding a cherry-pick blends the source's authorship in.
	state := r.State.Load()
	before := state
	if pending := state.TakeCherryPick(); pending != nil {
		if err := r.State.SaveIfChanged(before, state); err != nil {
			return err
		}
		if err := r.Rec.BlendCherryPick(pending.SourceCommit, head); err != nil {
			return err
		}
		return r.Rewrites.Append(rewritelog.NewCherryPickComplete(rewritelog.CherryPickCompleteEvent{
			OriginalHead: pending.OriginalHead,
			NewHead:      head,
			Sources:      []string{pending.SourceCommit},
			Results:      []string{head},
		}))
	}
	if err := r.State.SaveIfChanged(before, state); err != nil {
		return err
	}

	parent, err := r.Repo.FirstParent(head)
	if err != nil {
		parent = ""
	}
	base := parent
	if base == "" {
		base = worklog.InitialBase
	}
	wl := r.Store.ForBase(base)

	// A squash merge staged its reconstructed record before this commit
	// existed; adopt it verbatim.
	if staged, ok := wl.ReadStartingAuthorship(); ok {
		return r.adoptStagedAuthorship(wl, base, head, staged)
	}

	if !r.Store.HasAnyActivity() {
		return nil
	}

	va, err := virtual.FromWorkingLog(wl)
	if err != nil {
		return err
	}
	if va.IsEmpty() {
		if err := r.Store.Delete(base); err != nil {
			return err
		}
		return r.Rewrites.Append(rewritelog.NewCommit(base, head))
	}

	dirty, err := r.Repo.DirtyFiles()
	if err != nil {
		dirty = nil
	}
	split := va.ToAuthorshipLog(head, dirty)
	applyPromptStorage(r.Cfg, split.Log)

	if err := r.attachAndRecord(head, split.Log); err != nil {
		return err
	}
	if len(split.InitialFiles) > 0 {
		if err := r.Store.ForBase(head).WriteInitial(split.InitialFiles, split.InitialPrompts); err != nil {
			return err
		}
	}
	if err := r.Store.Delete(base); err != nil {
		return err
	}
	if err := r.Rewrites.Append(rewritelog.NewCommit(base, head)); err != nil {
		return err
	}
	r.printCommitStats(head, split.Log)
	return nil
}

func (r *Runner) adoptStagedAuthorship(wl *worklog.WorkingLog, base, head, staged string) error {
	log, err := attribution.Deserialize(staged)
	if err != nil {
		return err
	}
	log.Metadata.BaseCommitSHA = head
	applyPromptStorage(r.Cfg, log)

	if err := r.attachAndRecord(head, log); err != nil {
		return err
	}
	if err := wl.ClearStartingAuthorship(); err != nil {
		return err
	}

	// Attribution inherited against the old base that still sits uncommitted
	// follows the new head instead of vanishing with the base's log.
	if va := virtual.FromInitialOnly(wl); !va.IsEmpty() {
		if dirty, err := r.Repo.DirtyFiles(); err == nil {
			carried := map[string][]attribution.LineAttribution{}
			for file := range va.Files {
				if dirty[file] {
					carried[file] = va.FileRanges(file)
				}
			}
			if len(carried) > 0 {
				if err := r.Store.ForBase(head).WriteInitial(carried, va.Prompts); err != nil {
					return err
				}
			}
		}
	}

	if err := r.Store.Delete(base); err != nil {
		return err
	}
	if err := r.Rewrites.Append(rewritelog.NewCommit(base, head)); err != nil {
		return err
	}
	r.printCommitStats(head, log)
	return nil
}

// attachAndRecord writes the note and mirrors the prompt sessions into the
// local stats database. Serialization is deterministic, so re-running for
// the same commit attaches byte-identical content.
func (r *Runner) attachAndRecord(head string, log *attribution.AuthorshipLog) error {
	serialized, err := log.Serialize()
	if err != nil {
		return err
	}
	if err := r.Repo.NoteAdd(head, serialized); err != nil {
		return err
	}
	db, err := promptdb.Open(r.Repo.GitDir)
	if err != nil {
		debug.Log(r.Repo.GitDir, logName, "prompt db unavailable", map[string]string{"error": err.Error()})
		return nil
	}
	defer db.Close()
	if err := db.RecordCommit(head, log.Metadata.Prompts); err != nil {
		debug.Log(r.Repo.GitDir, logName, "prompt db record failed", map[string]string{"error": err.Error()})
	}
	return nil
}

// applyPromptStorage enforces the configured transcript policy on a record
// about to be attached.
func applyPromptStorage(cfg config.Config, log *attribution.AuthorshipLog) {
	switch cfg.PromptStorage {
	case config.PromptStorageNotes:
		// Transcripts ride along in the note.
	default:
		attribution.StripPromptMessages(log.Metadata.Prompts)
	}
}

// printCommitStats emits a one-line summary on interactive terminals only.
func (r *Runner) printCommitStats(head string, log *attribution.AuthorshipLog) {
	if r.Cfg.Quiet || !term.IsTerminal(int(os.Stderr.Fd())) {
		return
	}
	accepted := 0
	for _, p := range log.Metadata.Prompts {
		accepted += p.AcceptedLines
	}
	if accepted == 0 {
		return
	}
	fmt.Fprintln(os.Stderr, format.CommitSummary(head, len(log.Metadata.Prompts), accepted))
}
