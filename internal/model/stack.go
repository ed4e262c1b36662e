package model

import "go.gitbutler.dev/core/internal/git"

// StackID and SegmentID are opaque identifiers (spec §3 "Opaque UUIDs").
// Represented as strings so callers may use any UUID implementation,
// or deterministic fixtures in tests.
type StackID string
type SegmentID string

// CommitFlags is a bitset of a commit's classification within the
// projection (spec §4.5).
type CommitFlags uint8

// Recognized commit flags.
const (
	FlagIntegrated CommitFlags = 1 << iota
	FlagInWorkspace
	FlagRemote
)

func (f CommitFlags) Has(bit CommitFlags) bool { return f&bit != 0 }

// Commit is a single commit within a Segment.
type Commit struct {
	Hash     git.Hash
	ChangeID git.ChangeID
	Subject  string
	Flags    CommitFlags

	// Conflicted carries conflict metadata for commits produced by the
	// tolerant cherry-pick path (spec §4.7.2, §9).
	Conflicted *ConflictedCommit
}

// ConflictedCommit is the tagged "conflicted" variant of a commit's tree
// content (spec §9): a clean auto-resolution tree for normal display,
// plus the three-way inputs and conflict entries needed to re-resolve.
type ConflictedCommit struct {
	AutoResolution git.Hash
	Base           git.Hash
	Ours           git.Hash
	Theirs         git.Hash
	Entries        []ConflictEntry
}

// ConflictEntry names one conflicted path and its three stage blobs.
type ConflictEntry struct {
	Path                   string
	BaseHash, OursHash, TheirsHash git.Hash
}

// Segment is a named (or anonymous) run of commits within a Stack.
type Segment struct {
	ID SegmentID

	// RefName is empty for an anonymous segment; identity is always
	// ID, never RefName (spec §9).
	RefName string

	RemoteTrackingRefName string

	// Commits is tip-first: Commits[0] is the segment's tip commit.
	Commits []Commit

	CommitsUniqueFromTip               []git.Hash
	CommitsUniqueInRemoteTrackingBranch []git.Hash
}

// Tip returns the hash of the segment's topmost commit, or the zero hash
// if the segment has no commits (possible for an archived segment, spec
// §3 "Lifecycle").
func (s Segment) Tip() git.Hash {
	if len(s.Commits) == 0 {
		return git.ZeroHash
	}
	return s.Commits[0].Hash
}

// OldestFirst returns a copy of commits in base→tip order. Segment.Commits
// (and any Stack built from it) is tip-first; hunkdep.BuildPathRanges and
// ops.MoveRequest's commit-list fields instead require oldest-first,
// base-adjacent-commit-first order. Callers wiring a Segment's Commits
// into either must convert with this first — nothing does so implicitly.
func OldestFirst(commits []Commit) []Commit {
	out := make([]Commit, len(commits))
	for i, c := range commits {
		out[len(commits)-1-i] = c
	}
	return out
}

// Stack is an ordered, non-empty sequence of Segments, tip-first.
type Stack struct {
	ID       StackID
	Segments []Segment // Segments[0] is the stack's tip segment

	// Base is the merge base with the target branch.
	Base git.Hash
}

// Tip returns the hash of the stack's topmost commit.
func (s Stack) Tip() git.Hash {
	for _, seg := range s.Segments {
		if t := seg.Tip(); !t.IsZero() {
			return t
		}
	}
	return git.ZeroHash
}

// Workspace is the full set of applied stacks plus the integration
// target (spec §3).
type Workspace struct {
	Stacks       []Stack
	TargetRef    string
	TargetCommit git.Hash
}

// HunkRange is one interval of a file's post-image line space owned by a
// specific commit on a specific stack (spec §3, §4.6).
type HunkRange struct {
	Path       string
	StackID    StackID
	CommitHash git.Hash
	ChangeKind ChangeKind

	Start, Lines uint32

	// LineShift is +added-removed within the owning commit for this
	// path; used to translate subsequent ranges' coordinates.
	LineShift int32

	// Shadowed marks a range whose lines were later overwritten by a
	// more recent commit on the same stack (spec §4.6).
	Shadowed bool
}

// End returns the first line past the end of the range.
func (r HunkRange) End() uint32 { return r.Start + r.Lines }
