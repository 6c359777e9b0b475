package attribution

import (
	"encoding/json"
	"fmt"
	"sort"
)

// AuthorshipLog is the durable record attached to a commit as a note. It
// attests which line ranges of which files came from which agent session.
// Human-authored lines are not attested; they are whatever the commit touches
// that no entry claims.
type AuthorshipLog struct {
	Metadata     Metadata          `json:"metadata"`
	Attestations []FileAttestation `json:"attestations"`
}

// Metadata carries the anchor commit and the prompt records referenced by
// attestation entry hashes.
type Metadata struct {
	BaseCommitSHA string                  `json:"base_commit_sha"`
	Prompts       map[string]PromptRecord `json:"prompts,omitempty"`
}

// FileAttestation groups the attested ranges of one file.
type FileAttestation struct {
	FilePath string             `json:"file_path"`
	Entries  []AttestationEntry `json:"entries"`
}

// AttestationEntry claims a set of line ranges for one session hash.
type AttestationEntry struct {
	Hash       string      `json:"hash"`
	LineRanges []LineRange `json:"line_ranges"`
}

// NewLog returns an empty authorship log.
func NewLog() *AuthorshipLog {
	return &AuthorshipLog{Metadata: Metadata{Prompts: map[string]PromptRecord{}}}
}

// Serialize produces deterministic JSON: attestations sorted by path, entries
// by hash. Determinism matters because idempotent reconciliation is checked
// by byte comparison of successive runs.
func (l *AuthorshipLog) Serialize() (string, error) {
	l.sortForDeterminism()
	data, err := json.Marshal(l)
	if err != nil {
		return "", fmt.Errorf("serialize authorship log: %w", err)
	}
	return string(data), nil
}

// Deserialize parses a serialized authorship log.
func Deserialize(content string) (*AuthorshipLog, error) {
	var log AuthorshipLog
	if err := json.Unmarshal([]byte(content), &log); err != nil {
		return nil, fmt.Errorf("parse authorship log: %w", err)
	}
	if log.Metadata.Prompts == nil {
		log.Metadata.Prompts = map[string]PromptRecord{}
	}
	return &log, nil
}

func (l *AuthorshipLog) sortForDeterminism() {
	sort.Slice(l.Attestations, func(i, j int) bool {
		return l.Attestations[i].FilePath < l.Attestations[j].FilePath
	})
	for i := range l.Attestations {
		entries := l.Attestations[i].Entries
		sort.Slice(entries, func(a, b int) bool {
			return entries[a].Hash < entries[b].Hash
		})
	}
}

// File returns the attestation for path, creating it if absent.
func (l *AuthorshipLog) File(path string) *FileAttestation {
	for i := range l.Attestations {
		if l.Attestations[i].FilePath == path {
			return &l.Attestations[i]
		}
	}
	l.Attestations = append(l.Attestations, FileAttestation{FilePath: path})
	return &l.Attestations[len(l.Attestations)-1]
}

// AddEntry merges ranges into the entry with the given hash.
func (f *FileAttestation) AddEntry(hash string, ranges []LineRange) {
	for i := range f.Entries {
		if f.Entries[i].Hash == hash {
			lines := LinesFromRanges(append(f.Entries[i].LineRanges, ranges...))
			f.Entries[i].LineRanges = RangesFromLines(lines)
			return
		}
	}
	f.Entries = append(f.Entries, AttestationEntry{Hash: hash, LineRanges: ranges})
}

// LineAuthor looks up the attested session for a specific file line. The
// second return is the prompt record when the session has one; ok is false
// for unattested (human) lines.
func (l *AuthorshipLog) LineAuthor(path string, line int) (hash string, prompt *PromptRecord, ok bool) {
	for i := range l.Attestations {
		if l.Attestations[i].FilePath != path {
			continue
		}
		for _, entry := range l.Attestations[i].Entries {
			for _, r := range entry.LineRanges {
				if r.Contains(line) {
					if p, found := l.Metadata.Prompts[entry.Hash]; found {
						record := p
						return entry.Hash, &record, true
					}
					return entry.Hash, nil, true
				}
			}
		}
	}
	return "", nil, false
}

// Files returns the attested file paths.
func (l *AuthorshipLog) Files() []string {
	paths := make([]string, 0, len(l.Attestations))
	for _, a := range l.Attestations {
		paths = append(paths, a.FilePath)
	}
	return paths
}

// IsEmpty reports whether the log attests nothing.
func (l *AuthorshipLog) IsEmpty() bool {
	return len(l.Attestations) == 0
}

// RecountAcceptedLines recomputes every prompt's accepted-line count from the
// final attested ranges. The self-reported count is never trusted: overrides
// applied after the session may have shrunk it.
func (l *AuthorshipLog) RecountAcceptedLines() {
	accepted := map[string]int{}
	for _, file := range l.Attestations {
		for _, entry := range file.Entries {
			accepted[entry.Hash] += CountLines(entry.LineRanges)
		}
	}
	for id, p := range l.Metadata.Prompts {
		p.AcceptedLines = accepted[id]
		l.Metadata.Prompts[id] = p
	}
}

// InitialFiles projects the attestations into per-file line attributions,
// the shape the working log INITIAL snapshot stores. Used when a stash or
// autostash is restored and its recorded authorship must become pre-existing
// attribution for the new base.
func (l *AuthorshipLog) InitialFiles() map[string][]LineAttribution {
	files := map[string][]LineAttribution{}
	for _, att := range l.Attestations {
		var attrs []LineAttribution
		for _, entry := range att.Entries {
			for _, r := range entry.LineRanges {
				attrs = append(attrs, LineAttribution{
					StartLine: r.Start,
					EndLine:   r.End,
					AuthorID:  entry.Hash,
				})
			}
		}
		if len(attrs) > 0 {
			files[att.FilePath] = attrs
		}
	}
	return files
}
