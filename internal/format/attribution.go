// Package format renders authorship records for interactive terminals.
// Colors degrade to plain text when stdout is not a TTY or NO_COLOR is set.
package format

import (
	"fmt"
	"sort"
	"strings"

	"github.com/git-ai-project/git-ai-sub000/internal/attribution"
)

// Record renders the per-file line ranges of an authorship record. The
// author, when known, appears next to the commit header.
func Record(sha, author string, log *attribution.AuthorshipLog) string {
	var out []string
	header := Bold + fmt.Sprintf("commit %.8s", sha) + Reset
	if author != "" {
		header += "  " + Dim + author + Reset
	}
	out = append(out, header)

	for _, att := range log.Attestations {
		out = append(out, "  "+Bold+att.FilePath+Reset)
		for _, entry := range att.Entries {
			label, color := sessionLabel(log, entry.Hash)
			for _, r := range entry.LineRanges {
				out = append(out, fmt.Sprintf("    %s%s%s  %s%s%s",
					Dim, rangeLabel(r), Reset, color, label, Reset))
			}
		}
	}
	if len(log.Attestations) == 0 {
		out = append(out, "  "+Dim+"no AI-attributed lines"+Reset)
	}
	return strings.Join(out, "\n")
}

func rangeLabel(r attribution.LineRange) string {
	if r.Start == r.End {
		return fmt.Sprintf("L%d", r.Start)
	}
	return fmt.Sprintf("L%d-%d", r.Start, r.End)
}

func sessionLabel(log *attribution.AuthorshipLog, hash string) (string, string) {
	p, ok := log.Metadata.Prompts[hash]
	if !ok || p.AgentID.Tool == "" {
		return shortHash(hash), Dim
	}
	label := p.AgentID.Tool
	if p.AgentID.Model != "" {
		label += "/" + p.AgentID.Model
	}
	return fmt.Sprintf("%s (%s)", label, shortHash(hash)), ToolColor(p.AgentID.Tool)
}

func shortHash(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}

// Prompts renders each session's recorded prompt inside a bordered box,
// in stable hash order. Sessions without retained messages are skipped.
func Prompts(log *attribution.AuthorshipLog) string {
	hashes := make([]string, 0, len(log.Metadata.Prompts))
	for h := range log.Metadata.Prompts {
		hashes = append(hashes, h)
	}
	sort.Strings(hashes)

	var out []string
	for _, h := range hashes {
		p := log.Metadata.Prompts[h]
		text := promptText(p)
		if text == "" {
			continue
		}
		title, _ := sessionLabel(log, h)
		out = append(out, boxed(text, title))
	}
	return strings.Join(out, "\n")
}

func promptText(p attribution.PromptRecord) string {
	var parts []string
	for _, m := range p.Messages {
		if m.Role == "user" && strings.TrimSpace(m.Content) != "" {
			parts = append(parts, strings.TrimSpace(m.Content))
		}
	}
	return strings.Join(parts, "\n\n")
}

// CommitSummary is the one-liner printed after a commit is reconciled.
func CommitSummary(sha string, sessions, accepted int) string {
	return fmt.Sprintf("%sgit-ai:%s %s%d%s AI line(s) across %d session(s) recorded for %.8s",
		Dim, Reset, Bold, accepted, Reset, sessions, sha)
}

// boxed renders text inside a bordered box with word wrapping.
func boxed(text, title string) string {
	innerW := TermWidth() - 4
	if innerW < 30 {
		innerW = 30
	}

	var wrapped []string
	for _, paragraph := range strings.Split(text, "\n") {
		if strings.TrimSpace(paragraph) == "" {
			wrapped = append(wrapped, "")
			continue
		}
		wrapped = append(wrapped, wordWrap(paragraph, innerW)...)
	}

	var out []string
	if title != "" {
		lbl := fmt.Sprintf("─ %s ", title)
		out = append(out, fmt.Sprintf("┌%s%s┐",
			lbl, strings.Repeat("─", innerW+2-runeLen(lbl))))
	} else {
		out = append(out, fmt.Sprintf("┌%s┐", strings.Repeat("─", innerW+2)))
	}
	for _, line := range wrapped {
		out = append(out, fmt.Sprintf("│ %s │", padOrTrunc(line, innerW)))
	}
	out = append(out, fmt.Sprintf("└%s┘", strings.Repeat("─", innerW+2)))
	return strings.Join(out, "\n")
}

// wordWrap wraps text to the given width, breaking at word boundaries.
func wordWrap(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return []string{""}
	}
	var lines []string
	current := words[0]
	for _, word := range words[1:] {
		if len(current)+1+len(word) <= width {
			current += " " + word
		} else {
			lines = append(lines, current)
			current = word
		}
	}
	lines = append(lines, current)
	return lines
}

func padOrTrunc(s string, w int) string {
	r := []rune(s)
	if len(r) > w {
		return string(r[:w])
	}
	return s + strings.Repeat(" ", w-len(r))
}

func runeLen(s string) int {
	return len([]rune(s))
}
