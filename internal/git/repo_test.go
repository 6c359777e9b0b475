package git

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/git-ai-project/git-ai-sub000/internal/config"
)

func TestGitEnvRunsConfiguredCommand(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell stub")
	}
	dir := t.TempDir()
	stub := filepath.Join(dir, "fakegit")
	require.NoError(t, os.WriteFile(stub, []byte("#!/bin/sh\necho \"stub $1\"\n"), 0o755))

	r := &Repo{Root: dir, gitCmd: stub}
	out, err := r.Git("status")
	require.NoError(t, err)
	require.Equal(t, "stub status", out)
}

func TestGitCommandEnvOverride(t *testing.T) {
	t.Setenv("GIT_AI_GIT_CMD", "/opt/alt/git")
	require.Equal(t, "/opt/alt/git", config.Load().GitCommand)
}
