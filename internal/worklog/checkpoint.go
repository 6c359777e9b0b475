// Package worklog implements the per-base-revision journal of checkpoints
// that accumulates between commits: an append-only checkpoints.jsonl, an
// INITIAL snapshot of attribution inherited from before the base revision,
// and a blob store holding exact file versions so later checkpoints can diff
// against known prior content.
package worklog

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/git-ai-project/git-ai-sub000/internal/attribution"
)

// Checkpoint kinds. Agent checkpoints attribute their added lines to the
// session; human checkpoints attribute to attribution.HumanAuthor.
const (
	KindHuman   = "human"
	KindAIAgent = "ai_agent"
	KindAITab   = "ai_tab"
)

// WorkingLogEntry records what one checkpoint did to one file. ContentHash
// addresses the blob store so the next checkpoint can diff against this exact
// version regardless of further working-tree mutation.
type WorkingLogEntry struct {
	File             string                        `json:"file"`
	ContentHash      string                        `json:"content_hash"`
	AddedLines       []attribution.LineRange       `json:"added_lines,omitempty"`
	DeletedLines     []attribution.LineRange       `json:"deleted_lines,omitempty"`
	LineAttributions []attribution.LineAttribution `json:"line_attributions,omitempty"`
}

// Checkpoint is one recorded unit of authorship activity. PassThrough marks a
// synthetic checkpoint produced by squash reconstruction: it carries line
// deltas for offset bookkeeping but deliberately attributes nothing new.
type Checkpoint struct {
	ID          string                  `json:"id"`
	Kind        string                  `json:"kind"`
	DiffHash    string                  `json:"diff_hash"`
	Author      string                  `json:"author"`
	TimestampMS int64                   `json:"timestamp_ms"`
	AgentID     *attribution.AgentID    `json:"agent_id,omitempty"`
	Transcript  *attribution.Transcript `json:"transcript,omitempty"`
	Entries     []WorkingLogEntry       `json:"entries"`
	PassThrough bool                    `json:"pass_through_attribution_checkpoint,omitempty"`
}

// NewCheckpoint builds a checkpoint for the given entries, hashing the entry
// set into DiffHash so identical re-captures can be detected.
func NewCheckpoint(kind, author string, entries []WorkingLogEntry) Checkpoint {
	return Checkpoint{
		ID:          uuid.New().String(),
		Kind:        kind,
		DiffHash:    combinedDiffHash(entries),
		Author:      author,
		TimestampMS: time.Now().UnixMilli(),
		Entries:     entries,
	}
}

// NewPassThroughCheckpoint builds the synthetic checkpoint emitted after a
// squash reconstruction.
func NewPassThroughCheckpoint(author string, entries []WorkingLogEntry) Checkpoint {
	cp := NewCheckpoint(KindHuman, author, entries)
	cp.PassThrough = true
	return cp
}

// SessionID returns the agent session identifier, or empty for human
// checkpoints.
func (c *Checkpoint) SessionID() string {
	if c.AgentID == nil {
		return ""
	}
	return c.AgentID.ID
}

func combinedDiffHash(entries []WorkingLogEntry) string {
	ordered := make([]WorkingLogEntry, len(entries))
	copy(ordered, entries)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].File < ordered[j].File })

	h := sha256.New()
	for _, e := range ordered {
		h.Write([]byte(e.File))
		h.Write([]byte(e.ContentHash))
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// InitialAttributions is the snapshot of attribution inherited from before
// the base revision, e.g. uncommitted AI-attributed work carried across a
// commit, a restored stash, or an unwound reset.
type InitialAttributions struct {
	Files   map[string][]attribution.LineAttribution `json:"files"`
	Prompts map[string]attribution.PromptRecord      `json:"prompts"`
}

// NewInitialAttributions returns an empty snapshot.
func NewInitialAttributions() InitialAttributions {
	return InitialAttributions{
		Files:   map[string][]attribution.LineAttribution{},
		Prompts: map[string]attribution.PromptRecord{},
	}
}

// IsEmpty reports whether the snapshot carries nothing.
func (i InitialAttributions) IsEmpty() bool {
	return len(i.Files) == 0 && len(i.Prompts) == 0
}
