package worklog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/git-ai-project/git-ai-sub000/internal/attribution"
)

func testLog(t *testing.T) (*Store, *WorkingLog) {
	t.Helper()
	store := NewStore(t.TempDir())
	return store, store.ForBase("abc123")
}

func TestMissingJournalReadsEmpty(t *testing.T) {
	_, log := testLog(t)

	checkpoints, err := log.ReadAllCheckpoints()
	require.NoError(t, err)
	require.Empty(t, checkpoints)
	require.True(t, log.ReadInitial().IsEmpty())
}

func TestAppendAndReadCheckpoints(t *testing.T) {
	_, log := testLog(t)

	first := NewCheckpoint(KindHuman, "alice", []WorkingLogEntry{{File: "a.go", ContentHash: "h1"}})
	second := NewCheckpoint(KindAIAgent, "alice", []WorkingLogEntry{{File: "b.go", ContentHash: "h2"}})
	second.AgentID = &attribution.AgentID{Tool: "claude", ID: "sess-1"}

	require.NoError(t, log.AppendCheckpoint(first))
	require.NoError(t, log.AppendCheckpoint(second))

	got, err := log.ReadAllCheckpoints()
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, first.ID, got[0].ID)
	require.Equal(t, KindAIAgent, got[1].Kind)
	require.Equal(t, "sess-1", got[1].SessionID())
}

func TestCorruptJournalLineIsSkipped(t *testing.T) {
	_, log := testLog(t)

	cp := NewCheckpoint(KindHuman, "alice", []WorkingLogEntry{{File: "a.go", ContentHash: "h1"}})
	require.NoError(t, log.AppendCheckpoint(cp))

	f, err := os.OpenFile(filepath.Join(log.Dir(), checkpointsFile), os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("{not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, log.AppendCheckpoint(cp))

	got, err := log.ReadAllCheckpoints()
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestWriteAllCheckpointsReplaces(t *testing.T) {
	_, log := testLog(t)

	require.NoError(t, log.AppendCheckpoint(NewCheckpoint(KindHuman, "alice", nil)))
	keep := NewCheckpoint(KindAITab, "alice", nil)
	require.NoError(t, log.WriteAllCheckpoints([]Checkpoint{keep}))

	got, err := log.ReadAllCheckpoints()
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, keep.ID, got[0].ID)
}

func TestInitialCorruptReadsEmpty(t *testing.T) {
	_, log := testLog(t)

	require.NoError(t, os.MkdirAll(log.Dir(), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(log.Dir(), initialFile), []byte("garbage"), 0o644))
	require.True(t, log.ReadInitial().IsEmpty())

	files := map[string][]attribution.LineAttribution{
		"a.go": {{StartLine: 1, EndLine: 3, AuthorID: "sess-1"}},
	}
	require.NoError(t, log.WriteInitial(files, nil))

	initial := log.ReadInitial()
	require.False(t, initial.IsEmpty())
	require.Equal(t, files, initial.Files)
	require.NotNil(t, initial.Prompts)
}

func TestBlobStoreDeduplicates(t *testing.T) {
	_, log := testLog(t)

	h1, err := log.PersistFileVersion("hello\nworld\n")
	require.NoError(t, err)
	h2, err := log.PersistFileVersion("hello\nworld\n")
	require.NoError(t, err)
	require.Equal(t, h1, h2)

	blobs, err := os.ReadDir(filepath.Join(log.Dir(), blobsDir))
	require.NoError(t, err)
	require.Len(t, blobs, 1)

	content, err := log.ReadFileVersion(h1)
	require.NoError(t, err)
	require.Equal(t, "hello\nworld\n", content)
}

func TestLastContentHash(t *testing.T) {
	checkpoints := []Checkpoint{
		{Entries: []WorkingLogEntry{{File: "a.go", ContentHash: "old"}}},
		{Entries: []WorkingLogEntry{{File: "b.go", ContentHash: "other"}}},
		{Entries: []WorkingLogEntry{{File: "a.go", ContentHash: "new"}}},
	}
	require.Equal(t, "new", LastContentHash(checkpoints, "a.go"))
	require.Equal(t, "other", LastContentHash(checkpoints, "b.go"))
	require.Equal(t, "", LastContentHash(checkpoints, "c.go"))
}

func TestRenameAndDelete(t *testing.T) {
	store, log := testLog(t)

	require.NoError(t, log.AppendCheckpoint(NewCheckpoint(KindHuman, "alice", nil)))
	require.NoError(t, store.Rename("abc123", "def456"))

	moved := store.ForBase("def456")
	got, err := moved.ReadAllCheckpoints()
	require.NoError(t, err)
	require.Len(t, got, 1)

	old, err := store.ForBase("abc123").ReadAllCheckpoints()
	require.NoError(t, err)
	require.Empty(t, old)

	require.NoError(t, store.Rename("missing", "elsewhere"))

	require.NoError(t, store.Delete("def456"))
	got, err = moved.ReadAllCheckpoints()
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestHasAnyActivity(t *testing.T) {
	store, log := testLog(t)
	require.False(t, store.HasAnyActivity())

	require.NoError(t, log.AppendCheckpoint(NewCheckpoint(KindHuman, "alice", nil)))
	require.True(t, store.HasAnyActivity())
}

func TestStartingAuthorshipLifecycle(t *testing.T) {
	_, log := testLog(t)

	_, ok := log.ReadStartingAuthorship()
	require.False(t, ok)

	require.NoError(t, log.WriteStartingAuthorship(`{"metadata":{}}`))
	content, ok := log.ReadStartingAuthorship()
	require.True(t, ok)
	require.Equal(t, `{"metadata":{}}`, content)

	require.NoError(t, log.ClearStartingAuthorship())
	_, ok = log.ReadStartingAuthorship()
	require.False(t, ok)
	require.NoError(t, log.ClearStartingAuthorship())
}

func TestSquashSkipMarker(t *testing.T) {
	_, log := testLog(t)
	require.False(t, log.WasSquashPrecommitSkipped())
	require.NoError(t, log.MarkSquashPrecommitSkipped())
	require.True(t, log.WasSquashPrecommitSkipped())
}

func TestTrimToFiles(t *testing.T) {
	_, log := testLog(t)

	require.NoError(t, log.WriteInitial(map[string][]attribution.LineAttribution{
		"keep.go": {{StartLine: 1, EndLine: 2, AuthorID: "sess-1"}},
		"drop.go": {{StartLine: 1, EndLine: 5, AuthorID: "sess-1"}},
	}, nil))
	require.NoError(t, log.AppendCheckpoint(NewCheckpoint(KindAIAgent, "alice", []WorkingLogEntry{
		{File: "keep.go", ContentHash: "h1"},
		{File: "drop.go", ContentHash: "h2"},
	})))
	require.NoError(t, log.AppendCheckpoint(NewCheckpoint(KindHuman, "alice", []WorkingLogEntry{
		{File: "drop.go", ContentHash: "h3"},
	})))

	require.NoError(t, log.TrimToFiles(map[string]bool{"keep.go": true}))

	initial := log.ReadInitial()
	require.Contains(t, initial.Files, "keep.go")
	require.NotContains(t, initial.Files, "drop.go")

	checkpoints, err := log.ReadAllCheckpoints()
	require.NoError(t, err)
	require.Len(t, checkpoints, 1)
	require.Len(t, checkpoints[0].Entries, 1)
	require.Equal(t, "keep.go", checkpoints[0].Entries[0].File)
}
