package format

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/git-ai-project/git-ai-sub000/internal/attribution"
)

func sampleLog(t *testing.T) *attribution.AuthorshipLog {
	t.Helper()
	log := attribution.NewLog()
	log.Metadata.BaseCommitSHA = "abc123"
	log.Metadata.Prompts["sess-1"] = attribution.PromptRecord{
		AgentID:       attribution.AgentID{Tool: "claude", Model: "opus"},
		AcceptedLines: 3,
		Messages: []attribution.Message{
			{Role: "user", Content: "add retry logic to the fetcher"},
			{Role: "assistant", Content: "done"},
		},
	}
	log.File("main.go").AddEntry("sess-1", []attribution.LineRange{attribution.Span(4, 6)})
	return log
}

func TestRecordListsRangesWithToolLabels(t *testing.T) {
	out := Record("abc123def456", "Ada Doe <ada@example.com>", sampleLog(t))

	assert.Contains(t, out, "commit abc123de")
	assert.Contains(t, out, "Ada Doe <ada@example.com>")
	assert.Contains(t, out, "main.go")
	assert.Contains(t, out, "L4-6")
	assert.Contains(t, out, "claude/opus (sess-1)")
}

func TestRecordEmptyLog(t *testing.T) {
	out := Record("abc123def456", "", attribution.NewLog())
	assert.Contains(t, out, "no AI-attributed lines")
}

func TestRecordUnknownSessionFallsBackToHash(t *testing.T) {
	log := attribution.NewLog()
	log.File("main.go").AddEntry("0123456789abcdef", []attribution.LineRange{attribution.Single(1)})
	out := Record("abc123def456", "", log)
	assert.Contains(t, out, "0123456789ab")
}

func TestToolColorStable(t *testing.T) {
	assert.Equal(t, ToolColor("claude"), ToolColor("claude"))
}

func TestPromptsRendersUserMessagesOnly(t *testing.T) {
	out := Prompts(sampleLog(t))

	require.NotEmpty(t, out)
	assert.Contains(t, out, "add retry logic to the fetcher")
	assert.NotContains(t, out, "done")
	assert.Contains(t, out, "┌")
	assert.Contains(t, out, "└")
}

func TestPromptsSkipsStrippedSessions(t *testing.T) {
	log := sampleLog(t)
	attribution.StripPromptMessages(log.Metadata.Prompts)
	assert.Empty(t, Prompts(log))
}

func TestCommitSummary(t *testing.T) {
	out := CommitSummary("abc123def456", 2, 7)
	assert.Contains(t, out, "7")
	assert.Contains(t, out, "2 session(s)")
	assert.Contains(t, out, "abc123de")
}

func TestWordWrapBreaksAtBoundaries(t *testing.T) {
	lines := wordWrap("one two three four five", 9)
	for _, l := range lines {
		assert.LessOrEqual(t, len(l), 9)
	}
	assert.Equal(t, "one two three four five", strings.Join(lines, " "))
}
