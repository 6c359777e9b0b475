// Package hookstate persists the short-lived pending sub-states the hook
// handlers use to correlate the two phases of a reference transaction and to
// bridge multi-hook operations like pull autostash or cherry-pick. Every
// sub-state carries a creation timestamp and is discarded once older than its
// staleness window rather than acted upon.
package hookstate

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

const (
	stateFile = "core_hook_state.json"

	// TransactionMaxAgeMS bounds state captured at the prepared phase of a
	// reference transaction; the committed phase follows within the same git
	// command or not at all.
	TransactionMaxAgeMS = 3_000

	// OperationMaxAgeMS bounds state spanning a whole user-visible operation,
	// e.g. a pull autostash restored after the rebase finishes or a
	// cherry-pick sequence with conflicts.
	OperationMaxAgeMS = 5 * 60_000
)

// PendingAutostash holds the authorship recorded for a rebase autostash,
// restored onto the new head once the rebase resolves.
type PendingAutostash struct {
	AuthorshipLogJSON string `json:"authorship_log_json"`
}

// PendingPullAutostash is the pull --rebase variant; pulls can stall on
// conflicts so it lives under the longer operation window.
type PendingPullAutostash struct {
	AuthorshipLogJSON string `json:"authorship_log_json"`
	CreatedAtMS       int64  `json:"created_at_ms"`
}

// PendingCherryPick remembers the source commit a cherry-pick is replaying so
// post-commit can blend its authorship in.
type PendingCherryPick struct {
	OriginalHead string `json:"original_head"`
	SourceCommit string `json:"source_commit"`
	CreatedAtMS  int64  `json:"created_at_ms"`
}

// PendingStashApply marks that a stash apply or pop is in flight.
type PendingStashApply struct {
	CreatedAtMS int64 `json:"created_at_ms"`
}

// PendingStashRefUpdate captures the stash depth at the prepared phase of a
// refs/stash transaction, so the committed phase can tell creation from
// deletion from in-place replacement.
type PendingStashRefUpdate struct {
	CreatedAtMS      int64 `json:"created_at_ms"`
	StashCountBefore int   `json:"stash_count_before"`
}

// State is the single mutable hook-state record of one repository.
type State struct {
	PendingAutostash          *PendingAutostash      `json:"pending_autostash,omitempty"`
	PendingPullAutostash      *PendingPullAutostash  `json:"pending_pull_autostash,omitempty"`
	PendingCherryPick         *PendingCherryPick     `json:"pending_cherry_pick,omitempty"`
	PendingStashApply         *PendingStashApply     `json:"pending_stash_apply,omitempty"`
	PendingStashRefUpdate     *PendingStashRefUpdate `json:"pending_stash_ref_update,omitempty"`
	PendingPreparedOrigHeadMS *int64                 `json:"pending_prepared_orig_head_ms,omitempty"`
	PendingCommitBaseHead     *string                `json:"pending_commit_base_head,omitempty"`
}

// Store reads and writes the state file of one repository.
type Store struct {
	path string
}

// NewStore returns the store rooted in a repository's git directory.
func NewStore(gitDir string) *Store {
	return &Store{path: filepath.Join(gitDir, "ai", stateFile)}
}

// Load reads the current state. Missing or corrupt files load as the zero
// state and self-heal on the next save.
func (s *Store) Load() State {
	var state State
	data, err := os.ReadFile(s.path)
	if err != nil {
		return state
	}
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}
	}
	return state
}

// Save atomically replaces the state file.
func (s *Store) Save(state State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), stateFile+".tmp-*")
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
	return os.Rename(tmpName, s.path)
}

// SaveIfChanged writes only when the state differs from what was loaded, so
// the frequent read-inspect-no-op hook path never touches disk.
func (s *Store) SaveIfChanged(before, after State) error {
	a, err := json.Marshal(before)
	if err != nil {
		return err
	}
	b, err := json.Marshal(after)
	if err != nil {
		return err
	}
	if bytes.Equal(a, b) {
		return nil
	}
	return s.Save(after)
}

// NowMS is the clock used for staleness checks; replaceable in tests.
var NowMS = func() int64 { return time.Now().UnixMilli() }

// Fresh reports whether a timestamp is within the given window.
func Fresh(createdAtMS, maxAgeMS int64) bool {
	age := NowMS() - createdAtMS
	return age >= 0 && age <= maxAgeMS
}

// TakePullAutostash removes and returns the pending pull autostash when it is
// still fresh. A stale one is dropped without being returned.
func (st *State) TakePullAutostash() *PendingPullAutostash {
	pending := st.PendingPullAutostash
	st.PendingPullAutostash = nil
	if pending == nil || !Fresh(pending.CreatedAtMS, OperationMaxAgeMS) {
		return nil
	}
	return pending
}

// TakeCherryPick removes and returns the pending cherry-pick when fresh.
func (st *State) TakeCherryPick() *PendingCherryPick {
	pending := st.PendingCherryPick
	st.PendingCherryPick = nil
	if pending == nil || !Fresh(pending.CreatedAtMS, OperationMaxAgeMS) {
		return nil
	}
	return pending
}

// TakeStashRefUpdate removes and returns the prepared-phase stash snapshot
// when fresh.
func (st *State) TakeStashRefUpdate() *PendingStashRefUpdate {
	pending := st.PendingStashRefUpdate
	st.PendingStashRefUpdate = nil
	if pending == nil || !Fresh(pending.CreatedAtMS, TransactionMaxAgeMS) {
		return nil
	}
	return pending
}

// TakePreparedOrigHead removes and returns whether a fresh prepared-phase
// ORIG_HEAD transition was recorded.
func (st *State) TakePreparedOrigHead() bool {
	pending := st.PendingPreparedOrigHeadMS
	st.PendingPreparedOrigHeadMS = nil
	return pending != nil && Fresh(*pending, TransactionMaxAgeMS)
}
