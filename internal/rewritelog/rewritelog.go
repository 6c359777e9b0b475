// Package rewritelog records the semantic history-rewrite operations the hook
// handlers inferred, as an append-only JSON-lines file under the git
// directory. Handlers append the event they resolved and scan backwards for
// unresolved prior events, e.g. a RebaseStart with no later Complete or Abort
// marks a rebase still in progress.
package rewritelog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Event type tags.
const (
	TypeCommit             = "commit"
	TypeCommitAmend        = "commit_amend"
	TypeRebaseStart        = "rebase_start"
	TypeRebaseComplete     = "rebase_complete"
	TypeRebaseAbort        = "rebase_abort"
	TypeMergeSquash        = "merge_squash"
	TypeReset              = "reset"
	TypeCherryPickComplete = "cherry_pick_complete"
)

// Reset modes.
const (
	ResetSoft  = "soft"
	ResetMixed = "mixed"
	ResetHard  = "hard"
)

// Event is one tagged record in the rewrite log. Exactly one payload pointer
// matching Type is set.
type Event struct {
	Type        string `json:"type"`
	TimestampMS int64  `json:"timestamp_ms"`

	Commit             *CommitEvent             `json:"commit,omitempty"`
	CommitAmend        *CommitAmendEvent        `json:"commit_amend,omitempty"`
	RebaseStart        *RebaseStartEvent        `json:"rebase_start,omitempty"`
	RebaseComplete     *RebaseCompleteEvent     `json:"rebase_complete,omitempty"`
	RebaseAbort        *RebaseAbortEvent        `json:"rebase_abort,omitempty"`
	MergeSquash        *MergeSquashEvent        `json:"merge_squash,omitempty"`
	Reset              *ResetEvent              `json:"reset,omitempty"`
	CherryPickComplete *CherryPickCompleteEvent `json:"cherry_pick_complete,omitempty"`
}

// CommitEvent records an ordinary commit moving base to new.
type CommitEvent struct {
	BaseSHA string `json:"base_sha"`
	NewSHA  string `json:"new_sha"`
}

// CommitAmendEvent records an amend replacing original with amended.
type CommitAmendEvent struct {
	OriginalSHA string `json:"original_sha"`
	AmendedSHA  string `json:"amended_sha"`
}

// RebaseStartEvent records the pre-rebase head and target so completion can
// compute the old-to-new commit correspondence.
type RebaseStartEvent struct {
	OriginalHead  string `json:"original_head"`
	Onto          string `json:"onto"`
	IsInteractive bool   `json:"is_interactive"`
}

// RebaseCompleteEvent records the commit mapping a finished rebase produced.
type RebaseCompleteEvent struct {
	OriginalHead    string   `json:"original_head"`
	NewHead         string   `json:"new_head"`
	IsInteractive   bool     `json:"is_interactive"`
	OriginalCommits []string `json:"original_commits"`
	NewCommits      []string `json:"new_commits"`
}

// RebaseAbortEvent records a rebase abandoned at original_head.
type RebaseAbortEvent struct {
	OriginalHead string `json:"original_head"`
}

// MergeSquashEvent records a squash merge staged onto a base branch.
type MergeSquashEvent struct {
	SourceRef  string `json:"source_ref"`
	SourceHead string `json:"source_head"`
	BaseBranch string `json:"base_branch"`
	BaseHead   string `json:"base_head"`
}

// ResetEvent records a reset moving HEAD between two commits.
type ResetEvent struct {
	Mode    string `json:"mode"`
	OldHead string `json:"old_head"`
	NewHead string `json:"new_head"`
}

// CherryPickCompleteEvent records cherry-picked sources and the commits they
// produced, paired by position.
type CherryPickCompleteEvent struct {
	OriginalHead string   `json:"original_head"`
	NewHead      string   `json:"new_head"`
	Sources      []string `json:"sources"`
	Results      []string `json:"results"`
}

func newEvent(typ string) Event {
	return Event{Type: typ, TimestampMS: time.Now().UnixMilli()}
}

// NewCommit builds a commit event.
func NewCommit(baseSHA, newSHA string) Event {
	e := newEvent(TypeCommit)
	e.Commit = &CommitEvent{BaseSHA: baseSHA, NewSHA: newSHA}
	return e
}

// NewCommitAmend builds an amend event.
func NewCommitAmend(originalSHA, amendedSHA string) Event {
	e := newEvent(TypeCommitAmend)
	e.CommitAmend = &CommitAmendEvent{OriginalSHA: originalSHA, AmendedSHA: amendedSHA}
	return e
}

// NewRebaseStart builds a rebase-start event.
func NewRebaseStart(originalHead, onto string, interactive bool) Event {
	e := newEvent(TypeRebaseStart)
	e.RebaseStart = &RebaseStartEvent{OriginalHead: originalHead, Onto: onto, IsInteractive: interactive}
	return e
}

// NewRebaseComplete builds a rebase-complete event.
func NewRebaseComplete(payload RebaseCompleteEvent) Event {
	e := newEvent(TypeRebaseComplete)
	e.RebaseComplete = &payload
	return e
}

// NewRebaseAbort builds a rebase-abort event.
func NewRebaseAbort(originalHead string) Event {
	e := newEvent(TypeRebaseAbort)
	e.RebaseAbort = &RebaseAbortEvent{OriginalHead: originalHead}
	return e
}

// NewMergeSquash builds a squash-merge event.
func NewMergeSquash(payload MergeSquashEvent) Event {
	e := newEvent(TypeMergeSquash)
	e.MergeSquash = &payload
	return e
}

// NewReset builds a reset event.
func NewReset(mode, oldHead, newHead string) Event {
	e := newEvent(TypeReset)
	e.Reset = &ResetEvent{Mode: mode, OldHead: oldHead, NewHead: newHead}
	return e
}

// NewCherryPickComplete builds a cherry-pick-complete event.
func NewCherryPickComplete(payload CherryPickCompleteEvent) Event {
	e := newEvent(TypeCherryPickComplete)
	e.CherryPickComplete = &payload
	return e
}

// Log is the rewrite log of one repository.
type Log struct {
	path string
}

// Open returns the rewrite log stored in a repository's git directory.
func Open(gitDir string) *Log {
	return &Log{path: filepath.Join(gitDir, "ai", "rewrite_log.jsonl")}
}

// Append adds one event to the end of the log.
func (l *Log) Append(e Event) error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return err
	}
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal rewrite event: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.Write(append(data, '\n'))
	return err
}

// ReadAll returns every recorded event in append order. A missing log reads
// as empty; unparseable lines are skipped.
func (l *Log) ReadAll() ([]Event, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open rewrite log: %w", err)
	}
	defer f.Close()

	var events []Event
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var e Event
		if err := json.Unmarshal([]byte(line), &e); err != nil {
			continue
		}
		events = append(events, e)
	}
	return events, scanner.Err()
}

// ActiveRebaseStart returns the most recent RebaseStart not yet matched by a
// RebaseComplete or RebaseAbort, or nil when no rebase is in progress.
func (l *Log) ActiveRebaseStart() (*RebaseStartEvent, error) {
	events, err := l.ReadAll()
	if err != nil {
		return nil, err
	}
	for i := len(events) - 1; i >= 0; i-- {
		switch events[i].Type {
		case TypeRebaseComplete, TypeRebaseAbort:
			return nil, nil
		case TypeRebaseStart:
			return events[i].RebaseStart, nil
		}
	}
	return nil, nil
}
