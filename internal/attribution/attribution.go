// Package attribution holds the line-level ownership primitives shared by the
// working log, the virtual attribution builder, and the authorship log that
// gets attached to commits.
package attribution

// HumanAuthor is the author id recorded for lines typed by the user rather
// than produced by an agent session.
const HumanAuthor = "human"

// LineAttribution assigns a contiguous 1-based line range to an author.
// AuthorID is either HumanAuthor or a prompt session id. Overrode is set only
// when a human edit replaced a previously AI-attributed range; it preserves
// the displaced session id for statistics.
type LineAttribution struct {
	StartLine int     `json:"start_line"`
	EndLine   int     `json:"end_line"`
	AuthorID  string  `json:"author_id"`
	Overrode  *string `json:"overrode,omitempty"`
}

// IsHuman reports whether the range is attributed to the human author.
func (a LineAttribution) IsHuman() bool {
	return a.AuthorID == HumanAuthor
}

// Lines returns the individual line numbers covered by the range.
func (a LineAttribution) Lines() []int {
	if a.EndLine < a.StartLine {
		return nil
	}
	lines := make([]int, 0, a.EndLine-a.StartLine+1)
	for i := a.StartLine; i <= a.EndLine; i++ {
		lines = append(lines, i)
	}
	return lines
}

// Author identifies a plain VCS author when no agent session is known.
type Author struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// AgentID identifies one agent session: the tool that drove it, the session
// id, and the model it ran.
type AgentID struct {
	Tool  string `json:"tool"`
	ID    string `json:"id"`
	Model string `json:"model"`
}

// Message is a single prompt/response exchange inside a transcript.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Transcript is the recorded conversation behind an agent checkpoint.
type Transcript struct {
	Messages []Message `json:"messages"`
}

// PromptRecord is the per-session metadata stored in authorship log metadata.
// AcceptedLines is always recomputed from the final attestation ranges rather
// than trusted from the session itself, since later human overrides shrink it.
type PromptRecord struct {
	AgentID        AgentID   `json:"agent_id"`
	Messages       []Message `json:"messages,omitempty"`
	TotalAdditions int       `json:"total_additions"`
	TotalDeletions int       `json:"total_deletions"`
	AcceptedLines  int       `json:"accepted_lines"`
	// OverriddenLines counts lines the session wrote that a human rewrote
	// before the record was finalized. The tag spelling is the wire format.
	OverriddenLines int `json:"overriden_lines"`
}

// StripPromptMessages drops conversation bodies from every prompt record,
// keeping only the session metadata. Used when prompt storage is local-only.
func StripPromptMessages(prompts map[string]PromptRecord) {
	for id, p := range prompts {
		if len(p.Messages) > 0 {
			p.Messages = nil
			prompts[id] = p
		}
	}
}
