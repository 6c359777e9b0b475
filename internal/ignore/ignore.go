// Package ignore filters which files checkpointing records, combining
// built-in exclusions with user patterns from a .git-ai-ignore file at the
// repository root. Patterns use gitignore-style globs, one per line.
package ignore

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const ignoreFileName = ".git-ai-ignore"

// Always excluded regardless of user patterns.
var builtinPatterns = []string{
	".git/**",
	"**/*.lock",
	"**/node_modules/**",
	"**/vendor/**",
}

// Matcher decides whether a repository-relative path is tracked.
type Matcher struct {
	patterns []string
}

// Load reads the repository's ignore file. A missing file yields a matcher
// with only the built-in exclusions.
func Load(root string) *Matcher {
	m := &Matcher{patterns: append([]string(nil), builtinPatterns...)}

	f, err := os.Open(filepath.Join(root, ignoreFileName))
	if err != nil {
		return m
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, err := doublestar.Match(line, "probe"); err != nil {
			continue // unparseable pattern
		}
		m.patterns = append(m.patterns, line)
	}
	return m
}

// Ignored reports whether the path matches any pattern. Paths are matched
// slash-separated, relative to the repository root.
func (m *Matcher) Ignored(path string) bool {
	path = filepath.ToSlash(path)
	for _, pattern := range m.patterns {
		if ok, _ := doublestar.Match(pattern, path); ok {
			return true
		}
		// A bare directory pattern ignores everything under it.
		if !strings.ContainsAny(pattern, "*?[") {
			if path == pattern || strings.HasPrefix(path, pattern+"/") {
				return true
			}
		}
	}
	return false
}

// Filter returns the paths not ignored, preserving order.
func (m *Matcher) Filter(paths []string) []string {
	var kept []string
	for _, p := range paths {
		if !m.Ignored(p) {
			kept = append(kept, p)
		}
	}
	return kept
}
