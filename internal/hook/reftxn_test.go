package hook

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/git-ai-project/git-ai-sub000/internal/attribution"
	"github.com/git-ai-project/git-ai-sub000/internal/classify"
	"github.com/git-ai-project/git-ai-sub000/internal/rewritelog"
)

func TestRemoteTrackingRemotes(t *testing.T) {
	updates := []classify.RefUpdate{
		{Ref: "refs/remotes/origin/main"},
		{Ref: "refs/remotes/origin/feature"},
		{Ref: "refs/remotes/upstream/main"},
		{Ref: "refs/heads/main"},
		{Ref: "HEAD"},
		{Ref: "refs/remotes/"},
	}
	assert.Equal(t, []string{"origin", "upstream"}, remoteTrackingRemotes(updates))
}

func TestRemoteTrackingRemotesNone(t *testing.T) {
	assert.Empty(t, remoteTrackingRemotes([]classify.RefUpdate{{Ref: "refs/stash"}}))
}

// resetFixture builds two commits with a working log anchored at the newer
// one, resets HEAD with the given flag, and runs the reset handler the way
// the reference-transaction hook would.
func resetFixture(t *testing.T, flag string) (*Runner, string, string) {
	t.Helper()
	dir, run := initHookRepo(t)
	writeFile(t, dir, "a.txt", "one\n")
	run("add", "a.txt")
	run("commit", "-q", "-m", "first")

	r := newTestRunner(t, dir)
	oldBase, err := r.Repo.Head()
	require.NoError(t, err)

	writeFile(t, dir, "a.txt", "one\ntwo\n")
	run("add", "a.txt")
	run("commit", "-q", "-m", "second")
	newBase, err := r.Repo.Head()
	require.NoError(t, err)

	require.NoError(t, r.Store.ForBase(newBase).WriteInitial(
		map[string][]attribution.LineAttribution{
			"a.txt": {{StartLine: 2, EndLine: 2, AuthorID: "sess-1"}},
		},
		map[string]attribution.PromptRecord{
			"sess-1": {AgentID: attribution.AgentID{Tool: "claude", ID: "sess-1"}},
		}))

	run("reset", "-q", flag, oldBase)
	require.NoError(t, r.handleReset(classify.RefUpdate{
		Ref: "HEAD", OldOID: newBase, NewOID: oldBase,
	}))
	return r, newBase, oldBase
}

func lastResetEvent(t *testing.T, r *Runner) *rewritelog.ResetEvent {
	t.Helper()
	events, err := r.Rewrites.ReadAll()
	require.NoError(t, err)
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	require.Equal(t, rewritelog.TypeReset, last.Type)
	return last.Reset
}

func TestHandleResetSoftKeepsAttribution(t *testing.T) {
	r, newBase, oldBase := resetFixture(t, "--soft")

	ev := lastResetEvent(t, r)
	assert.Equal(t, rewritelog.ResetSoft, ev.Mode)
	assert.Equal(t, newBase, ev.OldHead)
	assert.Equal(t, oldBase, ev.NewHead)

	// The working log followed HEAD back to the surviving base.
	assert.False(t, r.Store.ForBase(oldBase).ReadInitial().IsEmpty())
	assert.NotContains(t, r.Store.Bases(), newBase)
}

func TestHandleResetMixedKeepsAttribution(t *testing.T) {
	r, newBase, oldBase := resetFixture(t, "--mixed")

	ev := lastResetEvent(t, r)
	assert.Equal(t, rewritelog.ResetMixed, ev.Mode)
	assert.False(t, r.Store.ForBase(oldBase).ReadInitial().IsEmpty())
	assert.NotContains(t, r.Store.Bases(), newBase)
}

func TestHandleResetHardDropsWorkingLog(t *testing.T) {
	r, newBase, oldBase := resetFixture(t, "--hard")

	ev := lastResetEvent(t, r)
	assert.Equal(t, rewritelog.ResetHard, ev.Mode)
	assert.True(t, r.Store.ForBase(oldBase).ReadInitial().IsEmpty())
	assert.NotContains(t, r.Store.Bases(), newBase)
}
