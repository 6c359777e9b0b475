package git

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// NotesRef is where authorship records are attached.
const NotesRef = "refs/notes/ai"

// MergeTreesFavorOurs three-way-merges base/ours/theirs and returns the
// resulting tree sha, resolving every conflict in favor of ours. Runs in a
// temporary index so the real index and working tree are untouched.
func (r *Repo) MergeTreesFavorOurs(base, ours, theirs string) (string, error) {
	indexFile := filepath.Join(r.GitDir, fmt.Sprintf("ai-merge-index-%d", os.Getpid()))
	defer os.Remove(indexFile)
	env := []string{"GIT_INDEX_FILE=" + indexFile}

	// 1. Three-way read into the temporary index.
	if _, err := r.GitEnv(env, "read-tree", "-m", "--aggressive", base, ours, theirs); err != nil {
		return "", fmt.Errorf("read-tree: %w", err)
	}

	// 2. Resolve every unmerged path to its "ours" stage.
	unmerged, err := r.GitEnv(env, "ls-files", "-u")
	if err != nil {
		return "", fmt.Errorf("ls-files -u: %w", err)
	}
	resolved := map[string]bool{}
	for _, line := range splitLines(unmerged) {
		// "<mode> <sha> <stage>\t<path>"
		meta, path, ok := strings.Cut(line, "\t")
		if !ok {
			continue
		}
		fields := strings.Fields(meta)
		if len(fields) != 3 || resolved[path] {
			continue
		}
		mode, sha, stage := fields[0], fields[1], fields[2]
		if stage == "2" {
			if _, err := r.GitEnv(env, "update-index", "--cacheinfo",
				fmt.Sprintf("%s,%s,%s", mode, sha, path)); err != nil {
				return "", fmt.Errorf("update-index: %w", err)
			}
			resolved[path] = true
		}
	}
	// Paths with no "ours" stage were deleted on our side; drop them.
	for _, line := range splitLines(unmerged) {
		meta, path, ok := strings.Cut(line, "\t")
		if !ok || resolved[path] {
			continue
		}
		if fields := strings.Fields(meta); len(fields) == 3 {
			if _, err := r.GitEnv(env, "update-index", "--force-remove", path); err != nil {
				return "", fmt.Errorf("update-index remove: %w", err)
			}
			resolved[path] = true
		}
	}

	// 3. Write the merged tree.
	tree, err := r.GitEnv(env, "write-tree")
	if err != nil {
		return "", fmt.Errorf("write-tree: %w", err)
	}
	return tree, nil
}

// WriteIndexTree writes the current real index as a tree object.
func (r *Repo) WriteIndexTree() (string, error) {
	return r.Git("write-tree")
}

// CommitTree creates a commit object for a tree without moving any ref.
func (r *Repo) CommitTree(tree, message string, parents ...string) (string, error) {
	args := []string{"commit-tree", tree, "-m", message}
	for _, p := range parents {
		args = append(args, "-p", p)
	}
	sha, err := r.Git(args...)
	if err != nil {
		return "", fmt.Errorf("commit-tree: %w", err)
	}
	return sha, nil
}

// DeleteHangingCommit drops the temporary ref-free anchors a reconstruction
// created. Unreferenced commits are collected by gc; the explicit prune keeps
// them out of reachability checks meanwhile.
func (r *Repo) DeleteHangingCommit(sha string) {
	_, _ = r.Git("update-ref", "-d", "refs/ai/hanging/"+sha)
}

// AnchorHangingCommit parks a commit under a temporary ref so blame inside it
// cannot be pruned mid-reconstruction.
func (r *Repo) AnchorHangingCommit(sha string) error {
	_, err := r.Git("update-ref", "refs/ai/hanging/"+sha, sha)
	return err
}

// NoteShow returns the authorship note attached to a commit.
func (r *Repo) NoteShow(sha string) (string, error) {
	out, err := r.Git("notes", "--ref", NotesRef, "show", sha)
	if err != nil {
		return "", ErrNotFound
	}
	return out, nil
}

// NoteAdd attaches (or replaces) the authorship note of a commit.
func (r *Repo) NoteAdd(sha, content string) error {
	_, err := r.Git("notes", "--ref", NotesRef, "add", "-f", "-m", content, sha)
	return err
}

// NoteRemove detaches the authorship note of a commit if present.
func (r *Repo) NoteRemove(sha string) {
	_, _ = r.Git("notes", "--ref", NotesRef, "remove", "--ignore-missing", sha)
}

// PushNotes publishes the notes ref to a remote.
func (r *Repo) PushNotes(remote string) error {
	_, err := r.Git("push", remote, NotesRef)
	return err
}

// FetchNotes pulls the notes ref from a remote, best effort.
func (r *Repo) FetchNotes(remote string) error {
	_, err := r.Git("fetch", remote, NotesRef+":"+NotesRef)
	return err
}

// BlameLine locates the commit that introduced one line of a file as seen
// from a given commit. The context commit pins blame to the history reachable
// from it, which is what makes hanging-commit blame walk only the abandoned
// branch.
func (r *Repo) BlameLine(contextCommit, path string, line int) (BlamedLine, error) {
	out, err := r.Git("blame", "--porcelain",
		"-L", fmt.Sprintf("%d,%d", line, line), contextCommit, "--", path)
	if err != nil {
		return BlamedLine{}, fmt.Errorf("blame %s:%d: %w", path, line, err)
	}
	return parseBlamePorcelain(out)
}

// BlamedLine is one resolved blame result.
type BlamedLine struct {
	SHA         string
	Author      string
	AuthorEmail string
	OrigLine    int
}

func parseBlamePorcelain(out string) (BlamedLine, error) {
	var blamed BlamedLine
	for _, line := range strings.Split(out, "\n") {
		switch {
		case blamed.SHA == "":
			fields := strings.Fields(line)
			if len(fields) >= 3 && len(fields[0]) == 40 {
				blamed.SHA = fields[0]
				blamed.OrigLine, _ = strconv.Atoi(fields[1])
			}
		case strings.HasPrefix(line, "author "):
			blamed.Author = strings.TrimPrefix(line, "author ")
		case strings.HasPrefix(line, "author-mail "):
			mail := strings.TrimPrefix(line, "author-mail ")
			blamed.AuthorEmail = strings.Trim(mail, "<>")
		}
	}
	if blamed.SHA == "" {
		return blamed, fmt.Errorf("unparseable blame output")
	}
	return blamed, nil
}

// StatusEntry is one porcelain status line.
type StatusEntry struct {
	Staged   byte
	Unstaged byte
	Path     string
}

// Status returns the porcelain working-tree status.
func (r *Repo) Status() ([]StatusEntry, error) {
	cmdOut, err := r.Git("status", "--porcelain", "--untracked-files=all")
	if err != nil {
		return nil, err
	}
	var entries []StatusEntry
	for _, line := range strings.Split(cmdOut, "\n") {
		if len(line) < 4 {
			continue
		}
		path := strings.TrimSpace(line[3:])
		// Renames list "old -> new"; the new path is what matters.
		if _, newPath, ok := strings.Cut(path, " -> "); ok {
			path = newPath
		}
		path = strings.Trim(path, `"`)
		entries = append(entries, StatusEntry{Staged: line[0], Unstaged: line[1], Path: path})
	}
	return entries, nil
}

// DirtyFiles returns the set of paths with staged or unstaged changes,
// including untracked files.
func (r *Repo) DirtyFiles() (map[string]bool, error) {
	entries, err := r.Status()
	if err != nil {
		return nil, err
	}
	dirty := map[string]bool{}
	for _, e := range entries {
		dirty[e.Path] = true
	}
	return dirty, nil
}

// HasStagedChanges reports whether the index differs from HEAD.
func (r *Repo) HasStagedChanges() bool {
	entries, err := r.Status()
	if err != nil {
		return false
	}
	for _, e := range entries {
		if e.Staged != ' ' && e.Staged != '?' && e.Staged != '!' {
			return true
		}
	}
	return false
}

// HasUnstagedChanges reports whether tracked files differ from the index.
func (r *Repo) HasUnstagedChanges() bool {
	entries, err := r.Status()
	if err != nil {
		return false
	}
	for _, e := range entries {
		if e.Unstaged != ' ' && e.Unstaged != '?' && e.Unstaged != '!' {
			return true
		}
	}
	return false
}

// StashChangedFiles lists the files a stash commit touches relative to its
// first parent.
func (r *Repo) StashChangedFiles(stashSHA string) ([]string, error) {
	parent, err := r.FirstParent(stashSHA)
	if err != nil {
		return nil, err
	}
	return r.ChangedFiles(parent, stashSHA)
}
