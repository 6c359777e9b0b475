// Package git is the revision-control facade. Reads that only inspect
// history go through go-git; anything that writes objects or needs plumbing
// behavior (merges, notes, blame) shells out to the git binary.
package git

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/git-ai-project/git-ai-sub000/internal/config"
)

var (
	// ErrNotFound marks an absent object, note, or file. Expected during
	// normal operation, never logged as an error.
	ErrNotFound = errors.New("not found")

	// ErrNoMergeBase means two revisions share no common ancestor, which
	// makes any reconstruction between them impossible.
	ErrNoMergeBase = errors.New("no common ancestor")
)

// Repo is one repository handle. All state is scoped to the handle so tests
// can run many isolated repositories in one process.
type Repo struct {
	Root   string
	GitDir string

	gitCmd string
	gg     *gogit.Repository
}

// Open discovers the repository containing dir. Every shelled-out command
// runs the configured git binary, which config.GitCommand can override.
func Open(dir string) (*Repo, error) {
	gitCmd := config.Load().GitCommand
	root, err := execOut(gitCmd, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return nil, fmt.Errorf("not inside a git repository")
	}
	gitDir, err := execOut(gitCmd, dir, "rev-parse", "--absolute-git-dir")
	if err != nil {
		return nil, fmt.Errorf("not inside a git repository")
	}
	return &Repo{Root: root, GitDir: gitDir, gitCmd: gitCmd}, nil
}

func execOut(gitCmd, dir string, args ...string) (string, error) {
	cmd := exec.Command(gitCmd, args...)
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// Git runs a git command in the repository and returns trimmed stdout.
func (r *Repo) Git(args ...string) (string, error) {
	return r.GitEnv(nil, args...)
}

// GitEnv runs a git command with extra environment variables.
func (r *Repo) GitEnv(env []string, args ...string) (string, error) {
	gitCmd := r.gitCmd
	if gitCmd == "" {
		gitCmd = "git"
	}
	cmd := exec.Command(gitCmd, args...)
	cmd.Dir = r.Root
	if len(env) > 0 {
		cmd.Env = append(os.Environ(), env...)
	}
	var stderr strings.Builder
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return strings.TrimSpace(string(out)), nil
}

func (r *Repo) gogit() (*gogit.Repository, error) {
	if r.gg == nil {
		repo, err := gogit.PlainOpenWithOptions(r.Root, &gogit.PlainOpenOptions{DetectDotGit: true})
		if err != nil {
			return nil, err
		}
		r.gg = repo
	}
	return r.gg, nil
}

// Head returns the current HEAD commit sha, or ErrNotFound on an unborn
// branch.
func (r *Repo) Head() (string, error) {
	sha, err := r.Git("rev-parse", "HEAD")
	if err != nil {
		return "", ErrNotFound
	}
	return sha, nil
}

// RevParse resolves a revision expression to a sha.
func (r *Repo) RevParse(rev string) (string, error) {
	sha, err := r.Git("rev-parse", "--verify", "--quiet", rev)
	if err != nil || sha == "" {
		return "", ErrNotFound
	}
	return sha, nil
}

// FindCommit loads a commit object.
func (r *Repo) FindCommit(sha string) (*object.Commit, error) {
	repo, err := r.gogit()
	if err != nil {
		return nil, err
	}
	commit, err := repo.CommitObject(plumbing.NewHash(sha))
	if err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return commit, nil
}

// CommitAuthor returns the author name and email of a commit.
func (r *Repo) CommitAuthor(sha string) (name, email string, err error) {
	commit, err := r.FindCommit(sha)
	if err != nil {
		return "", "", err
	}
	return commit.Author.Name, commit.Author.Email, nil
}

// FirstParent returns the first parent sha, or ErrNotFound for a root commit.
func (r *Repo) FirstParent(sha string) (string, error) {
	commit, err := r.FindCommit(sha)
	if err != nil {
		return "", err
	}
	if commit.NumParents() == 0 {
		return "", ErrNotFound
	}
	return commit.ParentHashes[0].String(), nil
}

// MergeBase returns the best common ancestor of two commits, or
// ErrNoMergeBase when the histories are unrelated.
func (r *Repo) MergeBase(a, b string) (string, error) {
	ca, err := r.FindCommit(a)
	if err != nil {
		return "", err
	}
	cb, err := r.FindCommit(b)
	if err != nil {
		return "", err
	}
	bases, err := ca.MergeBase(cb)
	if err != nil || len(bases) == 0 {
		return "", ErrNoMergeBase
	}
	return bases[0].Hash.String(), nil
}

// IsAncestor reports whether ancestor is reachable from descendant.
func (r *Repo) IsAncestor(ancestor, descendant string) (bool, error) {
	ca, err := r.FindCommit(ancestor)
	if err != nil {
		return false, err
	}
	cd, err := r.FindCommit(descendant)
	if err != nil {
		return false, err
	}
	return ca.IsAncestor(cd)
}

// FileAtCommit returns a file's content at a commit, or ErrNotFound when the
// commit does not carry the file.
func (r *Repo) FileAtCommit(sha, path string) (string, error) {
	commit, err := r.FindCommit(sha)
	if err != nil {
		return "", err
	}
	file, err := commit.File(path)
	if err != nil {
		if errors.Is(err, object.ErrFileNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	return file.Contents()
}

// ChangedFiles lists the paths a commit changes relative to a parent. An
// empty parent lists everything the commit carries.
func (r *Repo) ChangedFiles(parent, sha string) ([]string, error) {
	var out string
	var err error
	if parent == "" {
		out, err = r.Git("ls-tree", "-r", "--name-only", sha)
	} else {
		out, err = r.Git("diff-tree", "--no-commit-id", "--name-only", "-r", parent, sha)
	}
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// WorktreeFile reads a file from the working tree. Missing files return
// ErrNotFound.
func (r *Repo) WorktreeFile(path string) (string, error) {
	data, err := os.ReadFile(filepath.Join(r.Root, path))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", err
	}
	return string(data), nil
}

// DefaultAuthor returns the configured committer identity.
func (r *Repo) DefaultAuthor() (name, email string) {
	name, _ = r.Git("config", "user.name")
	email, _ = r.Git("config", "user.email")
	if name == "" {
		name = "unknown"
	}
	return name, email
}

// ReflogSubject returns the most recent HEAD reflog subject.
func (r *Repo) ReflogSubject() string {
	subject, err := r.Git("reflog", "-1", "--format=%gs")
	if err != nil {
		return ""
	}
	return subject
}

// LastHEADReflogLine reads the newest raw line of the HEAD reflog directly,
// which also works mid-transaction when the reflog command would race.
func (r *Repo) LastHEADReflogLine() string {
	data, err := os.ReadFile(filepath.Join(r.GitDir, "logs", "HEAD"))
	if err != nil {
		return ""
	}
	lines := splitLines(strings.TrimRight(string(data), "\n"))
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}

// StashSHAs lists the current stash commits, newest first.
func (r *Repo) StashSHAs() []string {
	out, err := r.Git("stash", "list", "--format=%H")
	if err != nil {
		return nil
	}
	return splitLines(out)
}

// RebaseInProgress reports whether a rebase state directory exists.
func (r *Repo) RebaseInProgress() bool {
	for _, dir := range []string{"rebase-merge", "rebase-apply"} {
		if _, err := os.Stat(filepath.Join(r.GitDir, dir)); err == nil {
			return true
		}
	}
	return false
}

// RebaseIsInteractive reports whether the in-progress rebase is interactive.
func (r *Repo) RebaseIsInteractive() bool {
	_, err := os.Stat(filepath.Join(r.GitDir, "rebase-merge", "interactive"))
	return err == nil
}

// RebaseOntoSHA returns the onto target of an in-progress rebase.
func (r *Repo) RebaseOntoSHA() string {
	for _, dir := range []string{"rebase-merge", "rebase-apply"} {
		data, err := os.ReadFile(filepath.Join(r.GitDir, dir, "onto"))
		if err == nil {
			return strings.TrimSpace(string(data))
		}
	}
	return ""
}

// RebaseOrigHead returns the pre-rebase head of an in-progress rebase.
func (r *Repo) RebaseOrigHead() string {
	for _, dir := range []string{"rebase-merge", "rebase-apply"} {
		data, err := os.ReadFile(filepath.Join(r.GitDir, dir, "orig-head"))
		if err == nil {
			return strings.TrimSpace(string(data))
		}
	}
	return ""
}

// CherryPickHead returns the source commit of an in-progress cherry-pick, or
// empty when none is recorded.
func (r *Repo) CherryPickHead() string {
	data, err := os.ReadFile(filepath.Join(r.GitDir, "CHERRY_PICK_HEAD"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// AutoMergeExists reports whether git's AUTO_MERGE ref is present, written
// while a merge-ish apply (e.g. stash pop) is in flight.
func (r *Repo) AutoMergeExists() bool {
	_, err := r.RevParse("AUTO_MERGE")
	return err == nil
}

// RevList returns first-parent history from tip down to (excluding) base,
// newest first.
func (r *Repo) RevList(base, tip string) ([]string, error) {
	out, err := r.Git("rev-list", "--first-parent", tip, "^"+base)
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
