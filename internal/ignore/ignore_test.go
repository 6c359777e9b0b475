package ignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuiltinPatterns(t *testing.T) {
	m := Load(t.TempDir())
	require.True(t, m.Ignored(".git/config"))
	require.True(t, m.Ignored("go.lock"))
	require.True(t, m.Ignored("sub/node_modules/pkg/index.js"))
	require.False(t, m.Ignored("main.go"))
}

func TestUserPatterns(t *testing.T) {
	root := t.TempDir()
	content := "# generated output\ndist/**\n*.min.js\nsecrets\n\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, ignoreFileName), []byte(content), 0o644))

	m := Load(root)
	require.True(t, m.Ignored("dist/bundle.js"))
	require.True(t, m.Ignored("app.min.js"))
	require.True(t, m.Ignored("secrets"))
	require.True(t, m.Ignored("secrets/key.pem"))
	require.False(t, m.Ignored("src/app.js"))
}

func TestFilter(t *testing.T) {
	m := Load(t.TempDir())
	kept := m.Filter([]string{"a.go", ".git/HEAD", "b.go"})
	require.Equal(t, []string{"a.go", "b.go"}, kept)
}
