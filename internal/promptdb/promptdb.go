// Package promptdb maintains a local SQLite mirror of the prompt sessions
// recorded in authorship notes, so stats queries do not have to walk and
// parse every note in history. The mirror is a cache: it can be deleted at
// any time and repopulates as commits are finalized.
package promptdb

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/git-ai-project/git-ai-sub000/internal/attribution"
)

// DB wraps the sessions mirror of one repository.
type DB struct {
	db *sql.DB
}

// Open opens (and if needed creates) the mirror under the git directory.
func Open(gitDir string) (*DB, error) {
	dir := filepath.Join(gitDir, "ai")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", filepath.Join(dir, "prompts.db"))
	if err != nil {
		return nil, fmt.Errorf("open prompt db: %w", err)
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS sessions (
			hash TEXT NOT NULL,
			commit_sha TEXT NOT NULL,
			tool TEXT NOT NULL,
			model TEXT NOT NULL,
			accepted_lines INTEGER NOT NULL,
			overridden_lines INTEGER NOT NULL DEFAULT 0,
			total_additions INTEGER NOT NULL,
			total_deletions INTEGER NOT NULL,
			recorded_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (hash, commit_sha)
		);
		CREATE INDEX IF NOT EXISTS idx_sessions_commit ON sessions(commit_sha);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	// Mirrors created before the column existed gain it in place; the
	// duplicate-column error on current mirrors is expected.
	_, _ = db.Exec(`ALTER TABLE sessions ADD COLUMN overridden_lines INTEGER NOT NULL DEFAULT 0`)
	return &DB{db: db}, nil
}

// Close releases the database handle.
func (d *DB) Close() error { return d.db.Close() }

// RecordCommit upserts the prompt sessions finalized for a commit. Re-running
// for the same commit replaces its rows, keeping reconciliation idempotent.
func (d *DB) RecordCommit(commitSHA string, prompts map[string]attribution.PromptRecord) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM sessions WHERE commit_sha = ?`, commitSHA); err != nil {
		return err
	}
	for hash, p := range prompts {
		_, err := tx.Exec(`
			INSERT INTO sessions (hash, commit_sha, tool, model, accepted_lines, overridden_lines, total_additions, total_deletions)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			hash, commitSHA, p.AgentID.Tool, p.AgentID.Model,
			p.AcceptedLines, p.OverriddenLines, p.TotalAdditions, p.TotalDeletions)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Totals is an aggregate over recorded sessions.
type Totals struct {
	Sessions        int
	AcceptedLines   int
	OverriddenLines int
	TotalAdditions  int
	TotalDeletions  int
}

// CommitTotals aggregates the sessions of one commit.
func (d *DB) CommitTotals(commitSHA string) (Totals, error) {
	row := d.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(accepted_lines), 0), COALESCE(SUM(overridden_lines), 0),
		       COALESCE(SUM(total_additions), 0), COALESCE(SUM(total_deletions), 0)
		FROM sessions WHERE commit_sha = ?`, commitSHA)
	var t Totals
	err := row.Scan(&t.Sessions, &t.AcceptedLines, &t.OverriddenLines, &t.TotalAdditions, &t.TotalDeletions)
	return t, err
}

// ToolTotals aggregates accepted lines per tool across all recorded commits.
func (d *DB) ToolTotals() (map[string]Totals, error) {
	rows, err := d.db.Query(`
		SELECT tool, COUNT(*), COALESCE(SUM(accepted_lines), 0), COALESCE(SUM(overridden_lines), 0),
		       COALESCE(SUM(total_additions), 0), COALESCE(SUM(total_deletions), 0)
		FROM sessions GROUP BY tool`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := map[string]Totals{}
	for rows.Next() {
		var tool string
		var t Totals
		if err := rows.Scan(&tool, &t.Sessions, &t.AcceptedLines, &t.OverriddenLines, &t.TotalAdditions, &t.TotalDeletions); err != nil {
			return nil, err
		}
		totals[tool] = t
	}
	return totals, rows.Err()
}
