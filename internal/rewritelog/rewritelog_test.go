package rewritelog

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMissingLogReadsEmpty(t *testing.T) {
	log := Open(t.TempDir())
	events, err := log.ReadAll()
	require.NoError(t, err)
	require.Empty(t, events)

	start, err := log.ActiveRebaseStart()
	require.NoError(t, err)
	require.Nil(t, start)
}

func TestAppendAndReadBack(t *testing.T) {
	log := Open(t.TempDir())

	require.NoError(t, log.Append(NewCommit("base1", "new1")))
	require.NoError(t, log.Append(NewReset(ResetHard, "new1", "base1")))

	events, err := log.ReadAll()
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, TypeCommit, events[0].Type)
	require.Equal(t, "new1", events[0].Commit.NewSHA)
	require.Equal(t, TypeReset, events[1].Type)
	require.Equal(t, ResetHard, events[1].Reset.Mode)
	require.Nil(t, events[1].Commit)
}

func TestCorruptLineSkipped(t *testing.T) {
	log := Open(t.TempDir())
	require.NoError(t, log.Append(NewRebaseAbort("head1")))

	f, err := os.OpenFile(log.path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString("not json\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	events, err := log.ReadAll()
	require.NoError(t, err)
	require.Len(t, events, 1)
}

func TestActiveRebaseStart(t *testing.T) {
	log := Open(t.TempDir())

	require.NoError(t, log.Append(NewRebaseStart("origHead", "onto1", true)))
	start, err := log.ActiveRebaseStart()
	require.NoError(t, err)
	require.NotNil(t, start)
	require.Equal(t, "origHead", start.OriginalHead)
	require.Equal(t, "onto1", start.Onto)
	require.True(t, start.IsInteractive)

	require.NoError(t, log.Append(NewRebaseComplete(RebaseCompleteEvent{
		OriginalHead: "origHead",
		NewHead:      "newHead",
	})))
	start, err = log.ActiveRebaseStart()
	require.NoError(t, err)
	require.Nil(t, start)
}

func TestActiveRebaseStartAfterAbort(t *testing.T) {
	log := Open(t.TempDir())
	require.NoError(t, log.Append(NewRebaseStart("origHead", "onto1", false)))
	require.NoError(t, log.Append(NewRebaseAbort("origHead")))

	start, err := log.ActiveRebaseStart()
	require.NoError(t, err)
	require.Nil(t, start)
}
