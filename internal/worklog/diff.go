package worklog

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/git-ai-project/git-ai-sub000/internal/attribution"
)

// LineDiff computes a line-level diff between two file versions. Added holds
// 1-based positions in the new content, Deleted 1-based positions in the old
// content.
type LineDiff struct {
	Added   []int
	Deleted []int
}

// ComputeLineDiff diffs old against new content line by line.
func ComputeLineDiff(oldContent, newContent string) LineDiff {
	if oldContent == newContent {
		return LineDiff{}
	}

	dmp := diffmatchpatch.New()
	oldChars, newChars, lines := dmp.DiffLinesToChars(oldContent, newContent)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(oldChars, newChars, false), lines)

	var out LineDiff
	oldLine, newLine := 1, 1
	for _, d := range diffs {
		n := countLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			oldLine += n
			newLine += n
		case diffmatchpatch.DiffDelete:
			for i := 0; i < n; i++ {
				out.Deleted = append(out.Deleted, oldLine+i)
			}
			oldLine += n
		case diffmatchpatch.DiffInsert:
			for i := 0; i < n; i++ {
				out.Added = append(out.Added, newLine+i)
			}
			newLine += n
		}
	}
	return out
}

// Entry builds a WorkingLogEntry for a file transition, with added/deleted
// positions compacted into ranges. contentHash must address the new content
// in the blob store.
func Entry(file, contentHash string, diff LineDiff) WorkingLogEntry {
	return WorkingLogEntry{
		File:         file,
		ContentHash:  contentHash,
		AddedLines:   attribution.RangesFromLines(diff.Added),
		DeletedLines: attribution.RangesFromLines(diff.Deleted),
	}
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := strings.Count(s, "\n")
	if !strings.HasSuffix(s, "\n") {
		n++
	}
	return n
}
