// Package virtual folds a working log into the current line-level ownership
// of the working tree. The fold replays the INITIAL snapshot and every
// checkpoint in journal order, shifting earlier attributions through later
// insertions and deletions, so the result always describes lines at their
// present positions.
package virtual

import (
	"sort"

	"github.com/git-ai-project/git-ai-sub000/internal/attribution"
	"github.com/git-ai-project/git-ai-sub000/internal/worklog"
)

// Owner is the resolved author of one line. Overrode preserves the displaced
// session id when a human edit replaced an AI-attributed line.
type Owner struct {
	AuthorID string
	Overrode *string
}

// IsAI reports whether the line is attributed to an agent session.
func (o Owner) IsAI() bool {
	return o.AuthorID != "" && o.AuthorID != attribution.HumanAuthor
}

// Attribution is the folded ownership state: per file, the owner of each
// 1-based line, plus the prompt records of every session that contributed.
// Lines with no entry are human-authored.
type Attribution struct {
	Files   map[string]map[int]Owner
	Prompts map[string]attribution.PromptRecord
}

// New returns an empty attribution state.
func New() *Attribution {
	return &Attribution{
		Files:   map[string]map[int]Owner{},
		Prompts: map[string]attribution.PromptRecord{},
	}
}

// FromWorkingLog folds the full working log: INITIAL snapshot, then every
// checkpoint, accumulating prompt records from agent checkpoints.
func FromWorkingLog(log *worklog.WorkingLog) (*Attribution, error) {
	return fold(log, true)
}

// FromWorkingLogLineOnly folds line ownership without accumulating prompt
// transcripts. Used by read paths that only need per-line authors.
func FromWorkingLogLineOnly(log *worklog.WorkingLog) (*Attribution, error) {
	return fold(log, false)
}

// FromInitialOnly folds just the INITIAL snapshot, ignoring checkpoints.
func FromInitialOnly(log *worklog.WorkingLog) *Attribution {
	va := New()
	va.applyInitial(log.ReadInitial())
	return va
}

// FromAuthorshipLog projects a committed authorship log back into folded
// form, e.g. when a reset unwinds a commit and its recorded ownership must
// become working-tree state again.
func FromAuthorshipLog(log *attribution.AuthorshipLog) *Attribution {
	va := New()
	for _, att := range log.Attestations {
		lines := map[int]Owner{}
		for _, entry := range att.Entries {
			for _, r := range entry.LineRanges {
				for line := r.Start; line <= r.End; line++ {
					lines[line] = Owner{AuthorID: entry.Hash}
				}
			}
		}
		if len(lines) > 0 {
			va.Files[att.FilePath] = lines
		}
	}
	for id, p := range log.Metadata.Prompts {
		va.Prompts[id] = p
	}
	return va
}

func fold(log *worklog.WorkingLog, withPrompts bool) (*Attribution, error) {
	va := New()
	initial := log.ReadInitial()
	va.applyInitial(initial)
	if withPrompts {
		for id, p := range initial.Prompts {
			va.Prompts[id] = p
		}
	}

	checkpoints, err := log.ReadAllCheckpoints()
	if err != nil {
		return nil, err
	}
	for _, cp := range checkpoints {
		va.ApplyCheckpoint(cp, withPrompts)
	}
	return va, nil
}

// ApplyInitial overlays an INITIAL snapshot onto the state, replacing the
// ownership of every file the snapshot names.
func (va *Attribution) ApplyInitial(initial worklog.InitialAttributions) {
	va.applyInitial(initial)
	for id, p := range initial.Prompts {
		va.Prompts[id] = p
	}
}

func (va *Attribution) applyInitial(initial worklog.InitialAttributions) {
	for file, attrs := range initial.Files {
		lines := map[int]Owner{}
		for _, a := range attrs {
			for line := a.StartLine; line <= a.EndLine; line++ {
				lines[line] = Owner{AuthorID: a.AuthorID, Overrode: a.Overrode}
			}
		}
		va.Files[file] = lines
	}
}

// ApplyCheckpoint folds one checkpoint into the state.
func (va *Attribution) ApplyCheckpoint(cp worklog.Checkpoint, withPrompts bool) {
	author := attribution.HumanAuthor
	if cp.Kind != worklog.KindHuman && cp.SessionID() != "" {
		author = cp.SessionID()
	}

	for _, entry := range cp.Entries {
		va.Files[entry.File] = applyEntry(va.Files[entry.File], entry, author, cp.PassThrough)
		if len(va.Files[entry.File]) == 0 {
			delete(va.Files, entry.File)
		}
	}

	if withPrompts && cp.Kind != worklog.KindHuman && cp.AgentID != nil {
		va.accumulatePrompt(cp)
	}
}

func (va *Attribution) accumulatePrompt(cp worklog.Checkpoint) {
	id := cp.AgentID.ID
	record, ok := va.Prompts[id]
	if !ok {
		record = attribution.PromptRecord{AgentID: *cp.AgentID}
	}
	if cp.Transcript != nil && len(cp.Transcript.Messages) > len(record.Messages) {
		record.Messages = cp.Transcript.Messages
	}
	for _, entry := range cp.Entries {
		record.TotalAdditions += attribution.CountLines(entry.AddedLines)
		record.TotalDeletions += attribution.CountLines(entry.DeletedLines)
	}
	va.Prompts[id] = record
}

// applyEntry shifts existing ownership through the entry's deletions and
// insertions, attributes the inserted lines, then applies any explicit line
// attributions the entry carries. Pass-through entries shift but attribute
// nothing.
func applyEntry(lines map[int]Owner, entry worklog.WorkingLogEntry, author string, passThrough bool) map[int]Owner {
	deletedList := attribution.LinesFromRanges(entry.DeletedLines)
	addedList := attribution.LinesFromRanges(entry.AddedLines)
	sort.Ints(deletedList)
	sort.Ints(addedList)
	deleted := map[int]bool{}
	for _, line := range deletedList {
		deleted[line] = true
	}

	// Sessions displaced by the deletions, in order, paired with inserted
	// lines so a human rewrite of an AI range records what it replaced. A
	// human line that itself overrode a session passes that session on.
	var displaced []string
	for _, line := range deletedList {
		if o, ok := lines[line]; ok {
			if o.IsAI() {
				displaced = append(displaced, o.AuthorID)
			} else if o.Overrode != nil {
				displaced = append(displaced, *o.Overrode)
			}
		}
	}

	// Shift every surviving attributed line: down past the deletions at or
	// below it, then up past each insertion at or below its landing spot.
	next := map[int]Owner{}
	oldLines := make([]int, 0, len(lines))
	for line := range lines {
		if !deleted[line] {
			oldLines = append(oldLines, line)
		}
	}
	sort.Ints(oldLines)
	for _, line := range oldLines {
		pos := line - sort.SearchInts(deletedList, line+1)
		for _, a := range addedList {
			if a <= pos {
				pos++
			}
		}
		next[pos] = lines[line]
	}

	for i, line := range addedList {
		if passThrough {
			break
		}
		owner := Owner{AuthorID: author}
		if author == attribution.HumanAuthor {
			if i >= len(displaced) {
				// Plain human insertions carry no entry; absence means human.
				continue
			}
			id := displaced[i]
			owner.Overrode = &id
		}
		next[line] = owner
	}

	for _, a := range entry.LineAttributions {
		for line := a.StartLine; line <= a.EndLine; line++ {
			owner := Owner{AuthorID: a.AuthorID, Overrode: a.Overrode}
			if a.IsHuman() && owner.Overrode == nil {
				if prev, ok := next[line]; ok && prev.IsAI() {
					id := prev.AuthorID
					owner.Overrode = &id
				}
			}
			if a.IsHuman() && owner.Overrode == nil {
				delete(next, line)
				continue
			}
			next[line] = owner
		}
	}
	return next
}

// IsEmpty reports whether the fold holds nothing AI-relevant. Plain human
// lines never enter the map, so an all-human tree folds to empty.
func (va *Attribution) IsEmpty() bool {
	for _, lines := range va.Files {
		if len(lines) > 0 {
			return false
		}
	}
	return true
}

// RelevantFiles returns the files holding at least one AI-attributed or
// AI-overriding line, sorted.
func (va *Attribution) RelevantFiles() []string {
	var files []string
	for file, lines := range va.Files {
		if len(lines) > 0 {
			files = append(files, file)
		}
	}
	sort.Strings(files)
	return files
}

// FileRanges compacts a file's AI ownership back into line attributions,
// sorted by start line.
func (va *Attribution) FileRanges(file string) []attribution.LineAttribution {
	lines := va.Files[file]
	if len(lines) == 0 {
		return nil
	}
	positions := make([]int, 0, len(lines))
	for line := range lines {
		positions = append(positions, line)
	}
	sort.Ints(positions)

	var out []attribution.LineAttribution
	for _, line := range positions {
		o := lines[line]
		n := len(out)
		if n > 0 && out[n-1].EndLine == line-1 && out[n-1].AuthorID == o.AuthorID && equalOverride(out[n-1].Overrode, o.Overrode) {
			out[n-1].EndLine = line
			continue
		}
		out = append(out, attribution.LineAttribution{
			StartLine: line,
			EndLine:   line,
			AuthorID:  o.AuthorID,
			Overrode:  o.Overrode,
		})
	}
	return out
}

func equalOverride(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Split divides the folded state between a commit and the work that stays
// uncommitted. Files in the dirty set carry their ownership into the next
// INITIAL snapshot; everything else is attested in the authorship log for
// commitSHA. Prompt records follow their sessions to whichever side
// references them.
type Split struct {
	Log            *attribution.AuthorshipLog
	InitialFiles   map[string][]attribution.LineAttribution
	InitialPrompts map[string]attribution.PromptRecord
}

// ToAuthorshipLog performs the split. A nil dirty set means everything folds
// into the commit, e.g. an index-only conversion where no worktree changes
// remain.
func (va *Attribution) ToAuthorshipLog(commitSHA string, dirty map[string]bool) Split {
	log := attribution.NewLog()
	log.Metadata.BaseCommitSHA = commitSHA

	split := Split{
		Log:            log,
		InitialFiles:   map[string][]attribution.LineAttribution{},
		InitialPrompts: map[string]attribution.PromptRecord{},
	}
	committedSessions := map[string]bool{}
	carriedSessions := map[string]bool{}
	overridden := map[string]int{}

	for file, lines := range va.Files {
		if len(lines) == 0 {
			continue
		}
		if dirty[file] {
			attrs := va.FileRanges(file)
			split.InitialFiles[file] = attrs
			for _, a := range attrs {
				if !a.IsHuman() {
					carriedSessions[a.AuthorID] = true
				}
			}
			continue
		}
		for session, n := range sessionOverrides(lines) {
			overridden[session] += n
			committedSessions[session] = true
		}
		ranges := sessionRanges(lines)
		if len(ranges) == 0 {
			// Every AI line in this file was rewritten; the overrides are
			// accounted above, a rangeless attestation would say nothing.
			continue
		}
		att := log.File(file)
		for session, rs := range ranges {
			att.AddEntry(session, rs)
			committedSessions[session] = true
		}
	}

	for id, p := range va.Prompts {
		if carriedSessions[id] {
			split.InitialPrompts[id] = p
		}
		if committedSessions[id] {
			p.OverriddenLines = overridden[id]
			log.Metadata.Prompts[id] = p
		}
	}
	log.RecountAcceptedLines()
	return split
}

// sessionOverrides counts, per displaced session, the lines a human edit
// rewrote out from under it before the fold was finalized.
func sessionOverrides(lines map[int]Owner) map[string]int {
	counts := map[string]int{}
	for _, o := range lines {
		if !o.IsAI() && o.Overrode != nil {
			counts[*o.Overrode]++
		}
	}
	return counts
}

func sessionRanges(lines map[int]Owner) map[string][]attribution.LineRange {
	bySession := map[string][]int{}
	for line, o := range lines {
		if o.IsAI() {
			bySession[o.AuthorID] = append(bySession[o.AuthorID], line)
		}
	}
	out := map[string][]attribution.LineRange{}
	for session, ls := range bySession {
		out[session] = attribution.RangesFromLines(ls)
	}
	return out
}
