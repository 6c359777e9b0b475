package promptdb

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/git-ai-project/git-ai-sub000/internal/attribution"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordCommitAndTotals(t *testing.T) {
	db := openTestDB(t)

	prompts := map[string]attribution.PromptRecord{
		"sess-1": {
			AgentID:         attribution.AgentID{Tool: "claude", ID: "sess-1", Model: "m1"},
			AcceptedLines:   10,
			OverriddenLines: 2,
			TotalAdditions:  12,
			TotalDeletions:  3,
		},
		"sess-2": {
			AgentID:       attribution.AgentID{Tool: "cursor", ID: "sess-2", Model: "m2"},
			AcceptedLines: 4,
		},
	}
	require.NoError(t, db.RecordCommit("commit1", prompts))

	totals, err := db.CommitTotals("commit1")
	require.NoError(t, err)
	require.Equal(t, 2, totals.Sessions)
	require.Equal(t, 14, totals.AcceptedLines)
	require.Equal(t, 2, totals.OverriddenLines)
	require.Equal(t, 12, totals.TotalAdditions)
}

func TestRecordCommitIsIdempotent(t *testing.T) {
	db := openTestDB(t)

	prompts := map[string]attribution.PromptRecord{
		"sess-1": {AgentID: attribution.AgentID{Tool: "claude", ID: "sess-1"}, AcceptedLines: 5},
	}
	require.NoError(t, db.RecordCommit("commit1", prompts))
	require.NoError(t, db.RecordCommit("commit1", prompts))

	totals, err := db.CommitTotals("commit1")
	require.NoError(t, err)
	require.Equal(t, 1, totals.Sessions)
	require.Equal(t, 5, totals.AcceptedLines)
}

func TestToolTotals(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.RecordCommit("c1", map[string]attribution.PromptRecord{
		"s1": {AgentID: attribution.AgentID{Tool: "claude", ID: "s1"}, AcceptedLines: 3},
	}))
	require.NoError(t, db.RecordCommit("c2", map[string]attribution.PromptRecord{
		"s2": {AgentID: attribution.AgentID{Tool: "claude", ID: "s2"}, AcceptedLines: 2},
		"s3": {AgentID: attribution.AgentID{Tool: "cursor", ID: "s3"}, AcceptedLines: 7},
	}))

	totals, err := db.ToolTotals()
	require.NoError(t, err)
	require.Equal(t, 5, totals["claude"].AcceptedLines)
	require.Equal(t, 2, totals["claude"].Sessions)
	require.Equal(t, 7, totals["cursor"].AcceptedLines)
}
