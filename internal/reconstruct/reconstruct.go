// Package reconstruct recovers line provenance across history rewrites. A
// squash or rebase erases the commits that carried authorship notes, so the
// recovery builds a synthetic "hanging" commit whose single parent is the
// abandoned head, matches the rewritten lines back into it by text, and runs
// blame inside it to reach the erased commits' records.
package reconstruct

import (
	"fmt"
	"strings"

	"github.com/git-ai-project/git-ai-sub000/internal/attribution"
	"github.com/git-ai-project/git-ai-sub000/internal/git"
	"github.com/git-ai-project/git-ai-sub000/internal/worklog"
)

// insertion is one line the rewrite added, at its 1-based position in the new
// file content.
type insertion struct {
	Line int
	Text string
}

// matchInsertions maps each inserted line to a line number in the hanging
// file: the first line with identical text not yet claimed by an earlier
// insertion, falling back to the insertion's own position. First-unclaimed is
// a heuristic for duplicate-heavy files, kept deliberately simple.
func matchInsertions(hangingLines []string, insertions []insertion) []int {
	byText := map[string][]int{}
	for i, text := range hangingLines {
		byText[text] = append(byText[text], i+1)
	}
	claimed := map[int]bool{}

	matched := make([]int, len(insertions))
	for i, ins := range insertions {
		matched[i] = ins.Line
		for _, candidate := range byText[ins.Text] {
			if !claimed[candidate] {
				claimed[candidate] = true
				matched[i] = candidate
				break
			}
		}
	}
	return matched
}

// resolver resolves one hanging-file line to the agent session that wrote it.
// ok is false for human lines or lines with no recoverable provenance.
type resolver func(path string, hangingLine int) (session string, prompt *attribution.PromptRecord, ok bool)

// reconstructFromDiff walks the parent-to-new diff, matches every inserted
// line into the hanging content, resolves provenance, and aggregates the
// results into attestation ranges keyed by (file, session). Lines at their
// positions in the NEW file are what gets attested.
func reconstructFromDiff(files []diffFile, resolve resolver) *attribution.AuthorshipLog {
	log := attribution.NewLog()
	for _, file := range files {
		if len(file.Insertions) == 0 {
			continue
		}
		matched := matchInsertions(file.HangingLines, file.Insertions)

		bySession := map[string][]int{}
		for i, ins := range file.Insertions {
			session, prompt, ok := resolve(file.Path, matched[i])
			if !ok {
				continue
			}
			bySession[session] = append(bySession[session], ins.Line)
			if prompt != nil {
				log.Metadata.Prompts[session] = *prompt
			}
		}
		if len(bySession) == 0 {
			continue
		}
		att := log.File(file.Path)
		for session, lines := range bySession {
			att.AddEntry(session, attribution.RangesFromLines(lines))
		}
	}
	log.RecountAcceptedLines()
	return log
}

// diffFile is the per-file input to reconstruction: the inserted lines of the
// parent-to-new diff and the full hanging-commit content to match against.
type diffFile struct {
	Path         string
	Insertions   []insertion
	HangingLines []string
}

// Reconstructor runs reconstructions against one repository.
type Reconstructor struct {
	Repo *git.Repo

	// noteCache avoids re-parsing the same commit's record while resolving
	// many lines blamed to it.
	noteCache map[string]*attribution.AuthorshipLog
}

// New returns a reconstructor for the repository.
func New(repo *git.Repo) *Reconstructor {
	return &Reconstructor{Repo: repo, noteCache: map[string]*attribution.AuthorshipLog{}}
}

// Reconstruct recovers authorship for every line newCommit adds relative to
// newParent, where that provenance lived in the abandoned linear history
// ending at oldHead. Returns the recovered record; the caller decides where
// to attach or stage it.
func (rec *Reconstructor) Reconstruct(newCommit, newParent, oldHead string) (*attribution.AuthorshipLog, error) {
	originBase, err := rec.Repo.MergeBase(oldHead, newCommit)
	if err != nil {
		return nil, fmt.Errorf("reconstruction lineage: %w", err)
	}

	hanging, err := rec.buildHangingCommit(originBase, oldHead, newParent)
	if err != nil {
		return nil, err
	}
	defer rec.Repo.DeleteHangingCommit(hanging)

	files, err := rec.collectDiffFiles(newCommit, newParent, hanging)
	if err != nil {
		return nil, err
	}

	log := reconstructFromDiff(files, rec.blameResolver(hanging))
	log.Metadata.BaseCommitSHA = newCommit
	return log, nil
}

// buildHangingCommit three-way-merges base/ours/theirs favoring ours and
// wraps the tree in a commit parented solely on oldHead, so blame inside it
// walks only the abandoned history.
func (rec *Reconstructor) buildHangingCommit(originBase, oldHead, newParent string) (string, error) {
	var tree string
	var err error
	if newParent == "" {
		// Root rewrite: nothing to merge against, the abandoned head's tree
		// is the whole context.
		tree, err = rec.Repo.RevParse(oldHead + "^{tree}")
	} else {
		tree, err = rec.Repo.MergeTreesFavorOurs(originBase, oldHead, newParent)
	}
	if err != nil {
		return "", fmt.Errorf("merge for reconstruction: %w", err)
	}
	hanging, err := rec.Repo.CommitTree(tree, "authorship reconstruction context", oldHead)
	if err != nil {
		return "", err
	}
	if err := rec.Repo.AnchorHangingCommit(hanging); err != nil {
		return "", err
	}
	return hanging, nil
}

func (rec *Reconstructor) collectDiffFiles(newCommit, newParent, hanging string) ([]diffFile, error) {
	paths, err := rec.Repo.ChangedFiles(newParent, newCommit)
	if err != nil {
		return nil, err
	}

	var files []diffFile
	for _, path := range paths {
		newContent, err := rec.Repo.FileAtCommit(newCommit, path)
		if err == git.ErrNotFound {
			continue // deleted by the rewrite
		}
		if err != nil {
			return nil, err
		}
		oldContent, err := rec.Repo.FileAtCommit(newParent, path)
		if err != nil && err != git.ErrNotFound {
			return nil, err
		}

		newLines := splitFileLines(newContent)
		diff := worklog.ComputeLineDiff(oldContent, newContent)
		var insertions []insertion
		for _, line := range diff.Added {
			if line-1 < len(newLines) {
				insertions = append(insertions, insertion{Line: line, Text: newLines[line-1]})
			}
		}
		if len(insertions) == 0 {
			continue
		}

		hangingContent, err := rec.Repo.FileAtCommit(hanging, path)
		if err != nil && err != git.ErrNotFound {
			return nil, err
		}
		files = append(files, diffFile{
			Path:         path,
			Insertions:   insertions,
			HangingLines: splitFileLines(hangingContent),
		})
	}
	return files, nil
}

// blameResolver resolves a hanging-file line by blaming it inside the hanging
// commit and looking the blamed line up in the blamed commit's attached
// record. A commit with no record means plain human authorship.
func (rec *Reconstructor) blameResolver(hanging string) resolver {
	return func(path string, hangingLine int) (string, *attribution.PromptRecord, bool) {
		blamed, err := rec.Repo.BlameLine(hanging, path, hangingLine)
		if err != nil {
			return "", nil, false
		}
		log := rec.noteFor(blamed.SHA)
		if log == nil {
			return "", nil, false
		}
		session, prompt, ok := log.LineAuthor(path, blamed.OrigLine)
		if !ok {
			return "", nil, false
		}
		return session, prompt, true
	}
}

func (rec *Reconstructor) noteFor(sha string) *attribution.AuthorshipLog {
	if log, ok := rec.noteCache[sha]; ok {
		return log
	}
	var log *attribution.AuthorshipLog
	if content, err := rec.Repo.NoteShow(sha); err == nil {
		if parsed, err := attribution.Deserialize(content); err == nil {
			log = parsed
		}
	}
	rec.noteCache[sha] = log
	return log
}

func splitFileLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
