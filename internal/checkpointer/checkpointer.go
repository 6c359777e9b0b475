// Package checkpointer captures working-tree change deltas into the working
// log. A capture diffs every changed file against the last content the log
// saw for it (or the base commit's version for the first touch) and appends
// one checkpoint attributing the delta to a human or an agent session.
package checkpointer

import (
	"sort"

	"github.com/git-ai-project/git-ai-sub000/internal/attribution"
	"github.com/git-ai-project/git-ai-sub000/internal/git"
	"github.com/git-ai-project/git-ai-sub000/internal/ignore"
	"github.com/git-ai-project/git-ai-sub000/internal/worklog"
)

// Checkpointer captures checkpoints for one repository.
type Checkpointer struct {
	Repo    *git.Repo
	Store   *worklog.Store
	Matcher *ignore.Matcher
}

// New returns a checkpointer over the repository's working log store.
func New(repo *git.Repo, store *worklog.Store) *Checkpointer {
	return &Checkpointer{Repo: repo, Store: store, Matcher: ignore.Load(repo.Root)}
}

// base anchors the capture to the current HEAD, or the initial sentinel on an
// unborn branch.
func (c *Checkpointer) base() string {
	head, err := c.Repo.Head()
	if err != nil {
		return worklog.InitialBase
	}
	return head
}

// CaptureHuman records the current uncheckpointed delta as human work.
// Returns the appended checkpoint, or nil when nothing changed.
func (c *Checkpointer) CaptureHuman(author string) (*worklog.Checkpoint, error) {
	return c.capture(worklog.KindHuman, author, nil, nil)
}

// CaptureAgent records the current uncheckpointed delta as the given agent
// session's work.
func (c *Checkpointer) CaptureAgent(author string, agent attribution.AgentID, transcript *attribution.Transcript) (*worklog.Checkpoint, error) {
	return c.capture(worklog.KindAIAgent, author, &agent, transcript)
}

// CaptureTab records a tab-completion delta.
func (c *Checkpointer) CaptureTab(author string, agent attribution.AgentID) (*worklog.Checkpoint, error) {
	return c.capture(worklog.KindAITab, author, &agent, nil)
}

func (c *Checkpointer) capture(kind, author string, agent *attribution.AgentID, transcript *attribution.Transcript) (*worklog.Checkpoint, error) {
	base := c.base()
	wl := c.Store.ForBase(base)

	dirty, err := c.Repo.DirtyFiles()
	if err != nil {
		return nil, err
	}
	checkpoints, err := wl.ReadAllCheckpoints()
	if err != nil {
		return nil, err
	}

	var entries []worklog.WorkingLogEntry
	for _, path := range sortedKeys(dirty) {
		if c.Matcher.Ignored(path) {
			continue
		}
		entry, changed, err := c.fileEntry(wl, checkpoints, base, path)
		if err != nil {
			return nil, err
		}
		if changed {
			entries = append(entries, entry)
		}
	}
	// Files the log knows about that are no longer dirty reverted to base
	// content; record the reversal so attribution shifts back.
	for _, path := range knownFiles(checkpoints) {
		if dirty[path] || c.Matcher.Ignored(path) {
			continue
		}
		entry, changed, err := c.fileEntry(wl, checkpoints, base, path)
		if err != nil {
			return nil, err
		}
		if changed {
			entries = append(entries, entry)
		}
	}

	if len(entries) == 0 {
		return nil, nil
	}

	cp := worklog.NewCheckpoint(kind, author, entries)
	cp.AgentID = agent
	cp.Transcript = transcript
	if err := wl.AppendCheckpoint(cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

// fileEntry diffs a file's current content against the last version the log
// recorded, falling back to the base commit's version for first touches.
func (c *Checkpointer) fileEntry(wl *worklog.WorkingLog, checkpoints []worklog.Checkpoint, base, path string) (worklog.WorkingLogEntry, bool, error) {
	current, err := c.Repo.WorktreeFile(path)
	if err != nil && err != git.ErrNotFound {
		return worklog.WorkingLogEntry{}, false, err
	}

	var previous string
	if hash := worklog.LastContentHash(checkpoints, path); hash != "" {
		previous, err = wl.ReadFileVersion(hash)
		if err != nil {
			previous = ""
		}
	} else if base != worklog.InitialBase {
		previous, err = c.Repo.FileAtCommit(base, path)
		if err != nil && err != git.ErrNotFound {
			return worklog.WorkingLogEntry{}, false, err
		}
	}

	diff := worklog.ComputeLineDiff(previous, current)
	if len(diff.Added) == 0 && len(diff.Deleted) == 0 {
		return worklog.WorkingLogEntry{}, false, nil
	}
	hash, err := wl.PersistFileVersion(current)
	if err != nil {
		return worklog.WorkingLogEntry{}, false, err
	}
	return worklog.Entry(path, hash, diff), true, nil
}

func knownFiles(checkpoints []worklog.Checkpoint) []string {
	seen := map[string]bool{}
	var files []string
	for _, cp := range checkpoints {
		for _, e := range cp.Entries {
			if !seen[e.File] {
				seen[e.File] = true
				files = append(files, e.File)
			}
		}
	}
	return files
}

func sortedKeys(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
