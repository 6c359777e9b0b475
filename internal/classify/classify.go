// Package classify turns the low-level signals available inside a reference
// transaction into the semantic operation being performed. Everything here is
// a pure function of its inputs so the inference rules are testable without a
// live repository.
package classify

import "strings"

// ActionClass is the inferred operation gating which reconciliation handler
// may run.
type ActionClass int

const (
	Unknown ActionClass = iota
	CommitLike
	ResetLike
	RebaseLike
	PullRebaseLike
	StashLike
	CherryPickLike
)

func (c ActionClass) String() string {
	switch c {
	case CommitLike:
		return "commit"
	case ResetLike:
		return "reset"
	case RebaseLike:
		return "rebase"
	case PullRebaseLike:
		return "pull-rebase"
	case StashLike:
		return "stash"
	case CherryPickLike:
		return "cherry-pick"
	default:
		return "unknown"
	}
}

// Action classifies a reflog action hint, usually GIT_REFLOG_ACTION or the
// last reflog subject. Prefix order matters: "pull --rebase" must win over
// "rebase", and a plain "commit" suppresses everything but ordinary commit
// handling since amends and commits have dedicated hooks.
func Action(hint string) ActionClass {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return Unknown
	}
	switch {
	case strings.HasPrefix(hint, "pull --rebase"):
		return PullRebaseLike
	case strings.HasPrefix(hint, "reset"):
		return ResetLike
	case strings.HasPrefix(hint, "rebase"):
		return RebaseLike
	case strings.HasPrefix(hint, "stash"):
		return StashLike
	case strings.HasPrefix(hint, "cherry-pick"):
		return CherryPickLike
	case strings.HasPrefix(hint, "commit"):
		return CommitLike
	default:
		return Unknown
	}
}

// RefUpdate is one old/new/ref triple from a reference-transaction payload.
type RefUpdate struct {
	OldOID string
	NewOID string
	Ref    string
}

// ParseRefLine parses one "old new ref" line from the transaction payload.
func ParseRefLine(line string) (RefUpdate, bool) {
	fields := strings.Fields(line)
	if len(fields) < 3 {
		return RefUpdate{}, false
	}
	return RefUpdate{OldOID: fields[0], NewOID: fields[1], Ref: fields[2]}, true
}

// ParseRefLines parses a whole transaction payload, skipping malformed lines.
func ParseRefLines(payload string) []RefUpdate {
	var updates []RefUpdate
	for _, line := range strings.Split(payload, "\n") {
		if u, ok := ParseRefLine(line); ok {
			updates = append(updates, u)
		}
	}
	return updates
}

// IsZeroOID reports whether an object id is the all-zero placeholder.
func IsZeroOID(oid string) bool {
	if len(oid) == 0 {
		return false
	}
	for _, c := range oid {
		if c != '0' {
			return false
		}
	}
	return true
}

// NonZeroOID returns the trimmed oid, or empty for blank or all-zero ids.
func NonZeroOID(oid string) string {
	oid = strings.TrimSpace(oid)
	if oid == "" || IsZeroOID(oid) {
		return ""
	}
	return oid
}

// StashTransitionKind describes what a refs/stash update did to the stash.
type StashTransitionKind int

const (
	StashUnchanged StashTransitionKind = iota
	StashCreated
	StashDeleted
	// StashAmbiguousReplace is a non-zero to non-zero move: a push onto an
	// existing stash and a pop leaving one behind look identical in a single
	// callback, so depth counts captured at the prepared phase decide.
	StashAmbiguousReplace
)

// StashTransitionKindOf classifies one refs/stash old/new pair.
func StashTransitionKindOf(oldOID, newOID string) StashTransitionKind {
	switch {
	case oldOID == newOID:
		return StashUnchanged
	case IsZeroOID(oldOID) && !IsZeroOID(newOID):
		return StashCreated
	case !IsZeroOID(oldOID) && IsZeroOID(newOID):
		return StashDeleted
	case !IsZeroOID(oldOID) && !IsZeroOID(newOID):
		return StashAmbiguousReplace
	default:
		return StashUnchanged
	}
}

// StashResolution names the stash commit created and/or deleted by a
// transition. Either field may be empty.
type StashResolution struct {
	CreatedSHA string
	DeletedSHA string
}

// ResolveStashTransition resolves a refs/stash update into created/deleted
// stash commits. Ambiguous replacements fall back to the depth counts, then
// to the reflog action. countBefore/countAfter of -1 mean unavailable.
func ResolveStashTransition(oldOID, newOID string, countBefore, countAfter int, reflogAction string) StashResolution {
	switch StashTransitionKindOf(oldOID, newOID) {
	case StashCreated:
		return StashResolution{CreatedSHA: newOID}
	case StashDeleted:
		return StashResolution{DeletedSHA: oldOID}
	case StashAmbiguousReplace:
		switch {
		case countBefore >= 0 && countAfter > countBefore:
			return StashResolution{CreatedSHA: newOID}
		case countBefore >= 0 && countAfter >= 0 && countAfter < countBefore:
			return StashResolution{DeletedSHA: oldOID}
		case strings.HasPrefix(reflogAction, "stash push") || reflogAction == "stash":
			return StashResolution{CreatedSHA: newOID}
		case strings.HasPrefix(reflogAction, "stash pop") || strings.HasPrefix(reflogAction, "stash drop"):
			return StashResolution{DeletedSHA: oldOID}
		}
	}
	return StashResolution{}
}

// ShouldRestoreDeletedStash reports whether a deleted stash's recorded
// authorship should flow back into the working log: a pop puts the changes
// back in the tree, a drop discards them. autoMergeCreated marks the
// AUTO_MERGE ref git writes while applying, the strongest signal a pop is
// under way.
func ShouldRestoreDeletedStash(autoMergeCreated bool, reflogAction string) bool {
	if autoMergeCreated {
		return true
	}
	return strings.HasPrefix(reflogAction, "stash pop")
}

// MergeSourceRef extracts the branch being merged from a reflog action like
// "merge feature: Fast-forward" or "merge --squash topic". The source is the
// last non-flag token after "merge".
func MergeSourceRef(action string) string {
	// Reflog subjects append ": <result>" after the action proper.
	action, _, _ = strings.Cut(action, ":")
	tokens := strings.Fields(action)
	if len(tokens) == 0 || tokens[0] != "merge" {
		return ""
	}
	for i := len(tokens) - 1; i >= 1; i-- {
		token := tokens[i]
		if !strings.HasPrefix(token, "-") && token != "merge" {
			return token
		}
	}
	return ""
}

// ReflogEntry is one parsed line of .git/logs/HEAD.
type ReflogEntry struct {
	OldSHA  string
	NewSHA  string
	Subject string
}

// ParseReflogLine parses one HEAD reflog line of the form
// "old new author <email> ts tz\tsubject".
func ParseReflogLine(line string) (ReflogEntry, bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return ReflogEntry{}, false
	}
	meta, subject, ok := strings.Cut(line, "\t")
	if !ok {
		return ReflogEntry{}, false
	}
	fields := strings.Fields(meta)
	if len(fields) < 2 {
		return ReflogEntry{}, false
	}
	return ReflogEntry{
		OldSHA:  fields[0],
		NewSHA:  fields[1],
		Subject: strings.TrimSpace(subject),
	}, true
}
