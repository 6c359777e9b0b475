package reconstruct

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/git-ai-project/git-ai-sub000/internal/attribution"
)

func TestMatchInsertionsPrefersFirstUnclaimed(t *testing.T) {
	hanging := []string{"a", "dup", "b", "dup"}
	insertions := []insertion{
		{Line: 1, Text: "dup"},
		{Line: 2, Text: "dup"},
		{Line: 3, Text: "missing"},
	}
	matched := matchInsertions(hanging, insertions)
	require.Equal(t, []int{2, 4, 3}, matched)
}

func TestMatchInsertionsFallsBackToPosition(t *testing.T) {
	matched := matchInsertions(nil, []insertion{{Line: 7, Text: "x"}})
	require.Equal(t, []int{7}, matched)
}

func fakeResolver(sessions map[string]map[int]string, prompts map[string]attribution.PromptRecord) resolver {
	return func(path string, hangingLine int) (string, *attribution.PromptRecord, bool) {
		session, ok := sessions[path][hangingLine]
		if !ok {
			return "", nil, false
		}
		if p, ok := prompts[session]; ok {
			return session, &p, true
		}
		return session, nil, true
	}
}

func TestHumanOnlyHistoryYieldsEmptyLog(t *testing.T) {
	files := []diffFile{
		{
			Path:         "main.go",
			Insertions:   []insertion{{Line: 1, Text: "x=1"}, {Line: 2, Text: "y=2"}},
			HangingLines: []string{"x=1", "y=2"},
		},
	}
	log := reconstructFromDiff(files, fakeResolver(nil, nil))
	require.True(t, log.IsEmpty())
	require.Empty(t, log.Metadata.Prompts)
}

func TestEmptyDiffYieldsEmptyLog(t *testing.T) {
	log := reconstructFromDiff(nil, fakeResolver(nil, nil))
	require.True(t, log.IsEmpty())
}

func TestDuplicateLinesDoNotCrossMatchFiles(t *testing.T) {
	sessions := map[string]map[int]string{
		"a.go": {1: "sess-1"},
	}
	files := []diffFile{
		{Path: "a.go", Insertions: []insertion{{Line: 1, Text: "same"}}, HangingLines: []string{"same"}},
		{Path: "b.go", Insertions: []insertion{{Line: 1, Text: "same"}}, HangingLines: []string{"same"}},
	}
	log := reconstructFromDiff(files, fakeResolver(sessions, nil))
	require.Equal(t, []string{"a.go"}, log.Files())
}

func TestAggregationMergesConsecutiveRanges(t *testing.T) {
	sessions := map[string]map[int]string{
		"a.go": {1: "sess-1", 2: "sess-1", 3: "sess-1", 5: "sess-1"},
	}
	files := []diffFile{
		{
			Path: "a.go",
			Insertions: []insertion{
				{Line: 1, Text: "l1"}, {Line: 2, Text: "l2"},
				{Line: 3, Text: "l3"}, {Line: 5, Text: "l5"},
			},
			HangingLines: []string{"l1", "l2", "l3", "x", "l5"},
		},
	}
	log := reconstructFromDiff(files, fakeResolver(sessions, nil))
	require.Len(t, log.Attestations, 1)
	entries := log.Attestations[0].Entries
	require.Len(t, entries, 1)
	require.Equal(t, []attribution.LineRange{attribution.Span(1, 3), attribution.Single(5)}, entries[0].LineRanges)
}

// Linear history A(human "x=1") -> B(AI "y=2") -> C(human edits line 2 to
// "y=20"), squashed onto an unrelated base. Line 1 stays human, line 2 was
// overridden so no session claims it, and the accepted count reflects the
// override.
func TestSquashedOverrideScenario(t *testing.T) {
	// The hanging commit holds the abandoned branch's final content.
	hanging := []string{"x=1", "y=20"}
	// Blame in the hanging context: line 1 reaches A (no record), line 2
	// reaches C whose record shows the human override, so the lookup misses.
	sessions := map[string]map[int]string{"app.txt": {}}
	prompts := map[string]attribution.PromptRecord{}

	files := []diffFile{
		{
			Path:         "app.txt",
			Insertions:   []insertion{{Line: 1, Text: "x=1"}, {Line: 2, Text: "y=20"}},
			HangingLines: hanging,
		},
	}
	log := reconstructFromDiff(files, fakeResolver(sessions, prompts))
	require.True(t, log.IsEmpty())

	// Same squash, but the human never edited line 2: the AI session's line
	// survives and is re-attested with a recounted accepted total.
	sessions = map[string]map[int]string{"app.txt": {2: "sess-b"}}
	prompts = map[string]attribution.PromptRecord{
		"sess-b": {
			AgentID:       attribution.AgentID{ID: "sess-b"},
			AcceptedLines: 99, // self-reported, must be recomputed
		},
	}
	files[0].HangingLines = []string{"x=1", "y=2"}
	files[0].Insertions = []insertion{{Line: 1, Text: "x=1"}, {Line: 2, Text: "y=2"}}

	log = reconstructFromDiff(files, fakeResolver(sessions, prompts))
	hash, prompt, ok := log.LineAuthor("app.txt", 2)
	require.True(t, ok)
	require.Equal(t, "sess-b", hash)
	require.NotNil(t, prompt)
	require.Equal(t, 1, prompt.AcceptedLines)

	_, _, ok = log.LineAuthor("app.txt", 1)
	require.False(t, ok)
}

func TestReconstructionIsDeterministic(t *testing.T) {
	sessions := map[string]map[int]string{
		"b.go": {1: "sess-2"},
		"a.go": {1: "sess-1"},
	}
	files := []diffFile{
		{Path: "b.go", Insertions: []insertion{{Line: 1, Text: "x"}}, HangingLines: []string{"x"}},
		{Path: "a.go", Insertions: []insertion{{Line: 1, Text: "y"}}, HangingLines: []string{"y"}},
	}
	first, err := reconstructFromDiff(files, fakeResolver(sessions, nil)).Serialize()
	require.NoError(t, err)
	second, err := reconstructFromDiff(files, fakeResolver(sessions, nil)).Serialize()
	require.NoError(t, err)
	require.Equal(t, first, second)
}
