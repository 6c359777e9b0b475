package worklog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"lukechampine.com/blake3"

	"github.com/git-ai-project/git-ai-sub000/internal/attribution"
)

const (
	checkpointsFile       = "checkpoints.jsonl"
	initialFile           = "INITIAL"
	blobsDir              = "blobs"
	startingAuthorshipLog = "starting_authorship_log.json"
	squashSkipMarker      = "squash_skip"

	// InitialBase anchors pre-first-commit work in an empty repository.
	InitialBase = "initial"
)

// Store manages the working logs of one repository, rooted at
// <git-dir>/ai/working_logs. It is repository-scoped, never process-global,
// so tests can run many isolated repositories in one process.
type Store struct {
	root string
}

// NewStore returns the store for a repository's git directory.
func NewStore(gitDir string) *Store {
	return &Store{root: filepath.Join(gitDir, "ai", "working_logs")}
}

// ForBase returns the working log anchored to a base revision. The log need
// not exist yet: a missing store reads as an empty log.
func (s *Store) ForBase(base string) *WorkingLog {
	if base == "" {
		base = InitialBase
	}
	return &WorkingLog{dir: filepath.Join(s.root, base), base: base}
}

// Rename moves a working log to a new anchor, e.g. after checkout moves the
// branch head. Renaming a missing log is a no-op; an existing destination is
// replaced.
func (s *Store) Rename(oldBase, newBase string) error {
	oldDir := filepath.Join(s.root, oldBase)
	if _, err := os.Stat(oldDir); os.IsNotExist(err) {
		return nil
	}
	newDir := filepath.Join(s.root, newBase)
	if err := os.RemoveAll(newDir); err != nil {
		return fmt.Errorf("rename working log: %w", err)
	}
	return os.Rename(oldDir, newDir)
}

// Delete removes the working log for a base revision.
func (s *Store) Delete(base string) error {
	return os.RemoveAll(filepath.Join(s.root, base))
}

// Bases lists the base revisions that currently have a working log on disk.
func (s *Store) Bases() []string {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil
	}
	var bases []string
	for _, entry := range entries {
		if entry.IsDir() {
			bases = append(bases, entry.Name())
		}
	}
	return bases
}

// HasAnyActivity reports whether any working log in the repository holds
// recorded checkpoints, an INITIAL snapshot, or stored blobs. Commit handling
// is skipped entirely when nothing AI-relevant ever happened.
func (s *Store) HasAnyActivity() bool {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return false
	}
	for _, entry := range entries {
		dir := filepath.Join(s.root, entry.Name())
		if fileNonEmpty(filepath.Join(dir, checkpointsFile)) ||
			fileNonEmpty(filepath.Join(dir, initialFile)) {
			return true
		}
		if blobs, err := os.ReadDir(filepath.Join(dir, blobsDir)); err == nil && len(blobs) > 0 {
			return true
		}
	}
	return false
}

func fileNonEmpty(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Size() > 0
}

// WorkingLog is the journal for one base revision.
type WorkingLog struct {
	dir  string
	base string
}

// Base returns the anchor revision.
func (w *WorkingLog) Base() string { return w.base }

// Dir returns the on-disk directory of the log.
func (w *WorkingLog) Dir() string { return w.dir }

// ReadAllCheckpoints returns the recorded checkpoints in journal order. A
// missing journal is an empty log, not an error; unparseable lines are
// skipped so one corrupt record cannot poison the whole journal.
func (w *WorkingLog) ReadAllCheckpoints() ([]Checkpoint, error) {
	f, err := os.Open(filepath.Join(w.dir, checkpointsFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open checkpoint journal: %w", err)
	}
	defer f.Close()

	var checkpoints []Checkpoint
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 32*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var cp Checkpoint
		if err := json.Unmarshal([]byte(line), &cp); err != nil {
			continue
		}
		checkpoints = append(checkpoints, cp)
	}
	if err := scanner.Err(); err != nil {
		return checkpoints, fmt.Errorf("read checkpoint journal: %w", err)
	}
	return checkpoints, nil
}

// AppendCheckpoint adds one checkpoint to the end of the journal.
func (w *WorkingLog) AppendCheckpoint(cp Checkpoint) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(w.dir, checkpointsFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(append(data, '\n'))
	return err
}

// WriteAllCheckpoints atomically replaces the journal. Readers never observe
// a partially written file: content lands in a temp file first and is moved
// into place with a rename.
func (w *WorkingLog) WriteAllCheckpoints(checkpoints []Checkpoint) error {
	var buf strings.Builder
	for _, cp := range checkpoints {
		data, err := json.Marshal(cp)
		if err != nil {
			return fmt.Errorf("marshal checkpoint: %w", err)
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}
	return w.atomicWrite(checkpointsFile, []byte(buf.String()))
}

// ReadInitial returns the INITIAL snapshot. Missing or corrupt snapshots read
// as empty; a corrupt file self-heals on the next write.
func (w *WorkingLog) ReadInitial() InitialAttributions {
	data, err := os.ReadFile(filepath.Join(w.dir, initialFile))
	if err != nil {
		return NewInitialAttributions()
	}
	var initial InitialAttributions
	if err := json.Unmarshal(data, &initial); err != nil {
		return NewInitialAttributions()
	}
	if initial.Files == nil {
		initial.Files = map[string][]attribution.LineAttribution{}
	}
	if initial.Prompts == nil {
		initial.Prompts = map[string]attribution.PromptRecord{}
	}
	return initial
}

// WriteInitial atomically replaces the INITIAL snapshot.
func (w *WorkingLog) WriteInitial(files map[string][]attribution.LineAttribution, prompts map[string]attribution.PromptRecord) error {
	initial := InitialAttributions{Files: files, Prompts: prompts}
	if initial.Files == nil {
		initial.Files = map[string][]attribution.LineAttribution{}
	}
	if initial.Prompts == nil {
		initial.Prompts = map[string]attribution.PromptRecord{}
	}
	data, err := json.Marshal(initial)
	if err != nil {
		return fmt.Errorf("marshal initial attributions: %w", err)
	}
	return w.atomicWrite(initialFile, data)
}

// PersistFileVersion stores exact file content in the blob store and returns
// its content hash. Deduplicated: identical content maps to one blob.
func (w *WorkingLog) PersistFileVersion(content string) (string, error) {
	sum := blake3.Sum256([]byte(content))
	hash := fmt.Sprintf("%x", sum)

	dir := filepath.Join(w.dir, blobsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, hash)
	if _, err := os.Stat(path); err == nil {
		return hash, nil
	}
	return hash, os.WriteFile(path, []byte(content), 0o644)
}

// ReadFileVersion retrieves blob content by its hash.
func (w *WorkingLog) ReadFileVersion(hash string) (string, error) {
	data, err := os.ReadFile(filepath.Join(w.dir, blobsDir, hash))
	if err != nil {
		return "", fmt.Errorf("read blob %s: %w", hash, err)
	}
	return string(data), nil
}

// LastContentHash returns the most recent recorded content hash for a file,
// or empty if no checkpoint touched it.
func LastContentHash(checkpoints []Checkpoint, file string) string {
	for i := len(checkpoints) - 1; i >= 0; i-- {
		for _, entry := range checkpoints[i].Entries {
			if entry.File == file {
				return entry.ContentHash
			}
		}
	}
	return ""
}

// ReadStartingAuthorship reads the staged authorship record a squash merge
// prepared for the commit that will follow. ok is false when none is staged.
func (w *WorkingLog) ReadStartingAuthorship() (string, bool) {
	data, err := os.ReadFile(filepath.Join(w.dir, startingAuthorshipLog))
	if err != nil {
		return "", false
	}
	return string(data), true
}

// WriteStartingAuthorship stages an authorship record for the next commit on
// this base.
func (w *WorkingLog) WriteStartingAuthorship(content string) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	return w.atomicWrite(startingAuthorshipLog, []byte(content))
}

// ClearStartingAuthorship removes a staged authorship record once applied.
func (w *WorkingLog) ClearStartingAuthorship() error {
	err := os.Remove(filepath.Join(w.dir, startingAuthorshipLog))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// MarkSquashPrecommitSkipped records that pre-commit checkpointing was
// intentionally skipped for a staged squash, so post-commit knows only the
// INITIAL data and staged record are relevant.
func (w *WorkingLog) MarkSquashPrecommitSkipped() error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(w.dir, squashSkipMarker), nil, 0o644)
}

// WasSquashPrecommitSkipped reports whether the skip marker is present.
func (w *WorkingLog) WasSquashPrecommitSkipped() bool {
	_, err := os.Stat(filepath.Join(w.dir, squashSkipMarker))
	return err == nil
}

// TrimToFiles drops initial attributions and checkpoint entries for files
// outside the keep set, removing checkpoints left empty. Used after checkout
// so the log only describes files that are still dirty.
func (w *WorkingLog) TrimToFiles(keep map[string]bool) error {
	initial := w.ReadInitial()
	for file := range initial.Files {
		if !keep[file] {
			delete(initial.Files, file)
		}
	}
	if err := w.WriteInitial(initial.Files, initial.Prompts); err != nil {
		return err
	}

	checkpoints, err := w.ReadAllCheckpoints()
	if err != nil {
		return err
	}
	var kept []Checkpoint
	for _, cp := range checkpoints {
		var entries []WorkingLogEntry
		for _, entry := range cp.Entries {
			if keep[entry.File] {
				entries = append(entries, entry)
			}
		}
		if len(entries) > 0 {
			cp.Entries = entries
			kept = append(kept, cp)
		}
	}
	return w.WriteAllCheckpoints(kept)
}

func (w *WorkingLog) atomicWrite(name string, data []byte) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(w.dir, name+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, filepath.Join(w.dir, name))
}
