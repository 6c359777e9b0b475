package virtual

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/git-ai-project/git-ai-sub000/internal/attribution"
	"github.com/git-ai-project/git-ai-sub000/internal/worklog"
)

func agentCheckpoint(session, file string, added []int, deleted []int) worklog.Checkpoint {
	cp := worklog.NewCheckpoint(worklog.KindAIAgent, "alice", []worklog.WorkingLogEntry{
		{
			File:         file,
			ContentHash:  "h",
			AddedLines:   attribution.RangesFromLines(added),
			DeletedLines: attribution.RangesFromLines(deleted),
		},
	})
	cp.AgentID = &attribution.AgentID{Tool: "claude", ID: session, Model: "m"}
	return cp
}

func humanCheckpoint(file string, added []int, deleted []int) worklog.Checkpoint {
	return worklog.NewCheckpoint(worklog.KindHuman, "alice", []worklog.WorkingLogEntry{
		{
			File:         file,
			ContentHash:  "h",
			AddedLines:   attribution.RangesFromLines(added),
			DeletedLines: attribution.RangesFromLines(deleted),
		},
	})
}

func TestAgentInsertionAttributesLines(t *testing.T) {
	va := New()
	va.ApplyCheckpoint(agentCheckpoint("sess-1", "a.go", []int{1, 2, 3}, nil), true)

	require.Equal(t, []string{"a.go"}, va.RelevantFiles())
	for line := 1; line <= 3; line++ {
		require.Equal(t, "sess-1", va.Files["a.go"][line].AuthorID)
	}
	require.Contains(t, va.Prompts, "sess-1")
	require.Equal(t, 3, va.Prompts["sess-1"].TotalAdditions)
}

func TestHumanInsertionShiftsEarlierAttribution(t *testing.T) {
	va := New()
	va.ApplyCheckpoint(agentCheckpoint("sess-1", "a.go", []int{3, 4}, nil), true)
	// Two human lines inserted above push the AI range down.
	va.ApplyCheckpoint(humanCheckpoint("a.go", []int{1, 2}, nil), true)

	require.NotContains(t, va.Files["a.go"], 3)
	require.Equal(t, "sess-1", va.Files["a.go"][5].AuthorID)
	require.Equal(t, "sess-1", va.Files["a.go"][6].AuthorID)
}

func TestHumanDeletionShiftsDown(t *testing.T) {
	va := New()
	va.ApplyCheckpoint(agentCheckpoint("sess-1", "a.go", []int{5, 6}, nil), true)
	va.ApplyCheckpoint(humanCheckpoint("a.go", nil, []int{1, 2}), true)

	require.Equal(t, "sess-1", va.Files["a.go"][3].AuthorID)
	require.Equal(t, "sess-1", va.Files["a.go"][4].AuthorID)
	require.NotContains(t, va.Files["a.go"], 5)
}

func TestHumanRewriteRecordsOverride(t *testing.T) {
	va := New()
	va.ApplyCheckpoint(agentCheckpoint("sess-1", "a.go", []int{1, 2}, nil), true)
	// Replace line 2 in place.
	va.ApplyCheckpoint(humanCheckpoint("a.go", []int{2}, []int{2}), true)

	owner := va.Files["a.go"][2]
	require.Equal(t, attribution.HumanAuthor, owner.AuthorID)
	require.NotNil(t, owner.Overrode)
	require.Equal(t, "sess-1", *owner.Overrode)

	// Once overridden, the line never reverts to the session.
	va.ApplyCheckpoint(humanCheckpoint("a.go", []int{2}, []int{2}), true)
	owner = va.Files["a.go"][2]
	require.Equal(t, attribution.HumanAuthor, owner.AuthorID)
}

func TestPassThroughShiftsWithoutAttributing(t *testing.T) {
	va := New()
	va.ApplyCheckpoint(agentCheckpoint("sess-1", "a.go", []int{2}, nil), true)

	cp := worklog.NewPassThroughCheckpoint("alice", []worklog.WorkingLogEntry{
		{File: "a.go", ContentHash: "h", AddedLines: []attribution.LineRange{attribution.Single(1)}},
	})
	va.ApplyCheckpoint(cp, true)

	require.NotContains(t, va.Files["a.go"], 1)
	require.Equal(t, "sess-1", va.Files["a.go"][3].AuthorID)
}

func TestExplicitLineAttributions(t *testing.T) {
	va := New()
	cp := worklog.NewPassThroughCheckpoint("alice", []worklog.WorkingLogEntry{
		{
			File:        "a.go",
			ContentHash: "h",
			LineAttributions: []attribution.LineAttribution{
				{StartLine: 4, EndLine: 6, AuthorID: "sess-9"},
			},
		},
	})
	va.ApplyCheckpoint(cp, true)

	require.Equal(t, "sess-9", va.Files["a.go"][5].AuthorID)
	require.Len(t, va.FileRanges("a.go"), 1)
	require.Equal(t, 4, va.FileRanges("a.go")[0].StartLine)
	require.Equal(t, 6, va.FileRanges("a.go")[0].EndLine)
}

func TestFoldFromWorkingLog(t *testing.T) {
	store := worklog.NewStore(t.TempDir())
	log := store.ForBase("base1")

	require.NoError(t, log.WriteInitial(map[string][]attribution.LineAttribution{
		"carried.go": {{StartLine: 1, EndLine: 2, AuthorID: "sess-0"}},
	}, map[string]attribution.PromptRecord{
		"sess-0": {AgentID: attribution.AgentID{ID: "sess-0"}},
	}))
	require.NoError(t, log.AppendCheckpoint(agentCheckpoint("sess-1", "new.go", []int{1}, nil)))

	va, err := FromWorkingLog(log)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"carried.go", "new.go"}, va.RelevantFiles())
	require.Contains(t, va.Prompts, "sess-0")
	require.Contains(t, va.Prompts, "sess-1")

	lineOnly, err := FromWorkingLogLineOnly(log)
	require.NoError(t, err)
	require.Empty(t, lineOnly.Prompts)
	require.ElementsMatch(t, []string{"carried.go", "new.go"}, lineOnly.RelevantFiles())
}

func TestFromInitialOnlyIgnoresCheckpoints(t *testing.T) {
	store := worklog.NewStore(t.TempDir())
	log := store.ForBase("base1")

	require.NoError(t, log.WriteInitial(map[string][]attribution.LineAttribution{
		"carried.go": {{StartLine: 1, EndLine: 2, AuthorID: "sess-0"}},
	}, nil))
	require.NoError(t, log.AppendCheckpoint(agentCheckpoint("sess-1", "new.go", []int{1}, nil)))

	va := FromInitialOnly(log)
	require.Equal(t, []string{"carried.go"}, va.RelevantFiles())
	require.NotContains(t, va.Files, "new.go")
}

func TestToAuthorshipLogSplitsDirtyFiles(t *testing.T) {
	va := New()
	va.ApplyCheckpoint(agentCheckpoint("sess-1", "committed.go", []int{1, 2}, nil), true)
	va.ApplyCheckpoint(agentCheckpoint("sess-2", "dirty.go", []int{1}, nil), true)

	split := va.ToAuthorshipLog("deadbeef", map[string]bool{"dirty.go": true})

	require.Equal(t, "deadbeef", split.Log.Metadata.BaseCommitSHA)
	require.Equal(t, []string{"committed.go"}, split.Log.Files())
	require.Contains(t, split.Log.Metadata.Prompts, "sess-1")
	require.NotContains(t, split.Log.Metadata.Prompts, "sess-2")

	require.Contains(t, split.InitialFiles, "dirty.go")
	require.Contains(t, split.InitialPrompts, "sess-2")
	require.NotContains(t, split.InitialPrompts, "sess-1")

	// Accepted lines come from the final attested ranges.
	require.Equal(t, 2, split.Log.Metadata.Prompts["sess-1"].AcceptedLines)
}

func TestToAuthorshipLogNilDirtyCommitsEverything(t *testing.T) {
	va := New()
	va.ApplyCheckpoint(agentCheckpoint("sess-1", "a.go", []int{1}, nil), true)

	split := va.ToAuthorshipLog("cafe", nil)
	require.Equal(t, []string{"a.go"}, split.Log.Files())
	require.Empty(t, split.InitialFiles)
}

func TestOverriddenLinesAreNotAttested(t *testing.T) {
	va := New()
	va.ApplyCheckpoint(agentCheckpoint("sess-1", "a.go", []int{1, 2, 3}, nil), true)
	va.ApplyCheckpoint(humanCheckpoint("a.go", []int{2}, []int{2}), true)

	split := va.ToAuthorshipLog("cafe", nil)
	hash, _, ok := split.Log.LineAuthor("a.go", 1)
	require.True(t, ok)
	require.Equal(t, "sess-1", hash)
	_, _, ok = split.Log.LineAuthor("a.go", 2)
	require.False(t, ok)
	require.Equal(t, 2, split.Log.Metadata.Prompts["sess-1"].AcceptedLines)
	require.Equal(t, 1, split.Log.Metadata.Prompts["sess-1"].OverriddenLines)
}

func TestFullyOverriddenFileGetsNoAttestation(t *testing.T) {
	va := New()
	va.ApplyCheckpoint(humanCheckpoint("app.txt", []int{1}, nil), true)
	va.ApplyCheckpoint(agentCheckpoint("sess-1", "app.txt", []int{2}, nil), true)
	// The human rewrite displaces the only AI line.
	va.ApplyCheckpoint(humanCheckpoint("app.txt", []int{2}, []int{2}), true)

	split := va.ToAuthorshipLog("sha-s", nil)
	require.Empty(t, split.Log.Attestations)
	require.True(t, split.Log.IsEmpty())
	require.Empty(t, split.Log.Files())

	// The displaced session still reaches the record as a statistic.
	require.Equal(t, 1, split.Log.Metadata.Prompts["sess-1"].OverriddenLines)
	require.Equal(t, 0, split.Log.Metadata.Prompts["sess-1"].AcceptedLines)
}

func TestFromAuthorshipLogRoundTrip(t *testing.T) {
	log := attribution.NewLog()
	log.File("a.go").AddEntry("sess-1", []attribution.LineRange{attribution.Span(2, 4)})
	log.Metadata.Prompts["sess-1"] = attribution.PromptRecord{AgentID: attribution.AgentID{ID: "sess-1"}}

	va := FromAuthorshipLog(log)
	require.Equal(t, "sess-1", va.Files["a.go"][3].AuthorID)
	require.Contains(t, va.Prompts, "sess-1")
	require.False(t, va.IsEmpty())
}
