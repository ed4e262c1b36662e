// Package model defines the core data types shared across the engine:
// change identity, tree changes, hunk headers, diff specs, and the
// stack/segment/workspace shape (spec §3).
package model

import "go.gitbutler.dev/core/internal/git"

// ChangeState identifies the content and kind of a path at one point in
// a comparison (spec §3).
type ChangeState struct {
	ObjectID git.Hash
	Kind     git.EntryKind
}

// ModeFlags describes a mode/type transition between two ChangeStates
// (spec §3).
type ModeFlags int

// Recognized mode flags. Zero value means "no mode change".
const (
	ModeNone ModeFlags = iota
	ModeExecutableBitAdded
	ModeExecutableBitRemoved
	ModeFileToLink
	ModeLinkToFile
	ModeTypeChange
)

// DeriveModeFlags computes the ModeFlags implied by a (previous, next)
// kind transition.
func DeriveModeFlags(prev, next git.EntryKind) ModeFlags {
	if prev == next {
		return ModeNone
	}
	switch {
	case prev == git.EntryBlob && next == git.EntryExecutableBlob:
		return ModeExecutableBitAdded
	case prev == git.EntryExecutableBlob && next == git.EntryBlob:
		return ModeExecutableBitRemoved
	case prev == git.EntryBlob && next == git.EntryLink:
		return ModeFileToLink
	case prev == git.EntryLink && next == git.EntryBlob:
		return ModeLinkToFile
	default:
		return ModeTypeChange
	}
}

// ChangeKind discriminates the variants of TreeChange.
type ChangeKind int

// Recognized change kinds.
const (
	ChangeAddition ChangeKind = iota
	ChangeDeletion
	ChangeModification
	ChangeRename
)

// TreeChange is a single path's change between two trees (or a tree and
// the worktree), in any of the four shapes spec §3 describes.
type TreeChange struct {
	Kind ChangeKind
	Path string

	// PreviousPath is set only for Kind == ChangeRename.
	PreviousPath string

	// PreviousState is set for Deletion, Modification, and Rename.
	PreviousState ChangeState
	// State is set for Addition, Modification, and Rename.
	State ChangeState

	// IsUntracked is set for Kind == ChangeAddition when the file was
	// not previously tracked by Git at all (as opposed to added to the
	// index from a tracked deletion).
	IsUntracked bool

	// ModeFlags is populated for Modification and Rename.
	ModeFlags ModeFlags
}

// IgnoredChangeKind classifies a worktree observation that does not
// produce a TreeChange (spec §4.3).
type IgnoredChangeKind int

// Recognized ignored-change kinds.
const (
	IgnoredTreeIndex IgnoredChangeKind = iota
	IgnoredConflict
)

// IgnoredChange is a worktree observation shadowed by another change, or
// excluded because the path is conflicted.
type IgnoredChange struct {
	Path string
	Kind IgnoredChangeKind
}

// HunkHeader is the (old_start, old_lines, new_start, new_lines) tuple
// describing one unified-diff hunk (spec §3).
type HunkHeader struct {
	OldStart, OldLines uint32
	NewStart, NewLines uint32
}

// OldEnd returns the first line number past the end of the hunk's
// old-side range (1-indexed, exclusive).
func (h HunkHeader) OldEnd() uint32 { return h.OldStart + h.OldLines }

// NewEnd returns the first line number past the end of the hunk's
// new-side range (1-indexed, exclusive).
func (h HunkHeader) NewEnd() uint32 { return h.NewStart + h.NewLines }

// Intersects reports whether a and b's new-side ranges overlap
// (spec §4.4 "Hunk intersection").
func (a HunkHeader) Intersects(b HunkHeader) bool {
	return a.NewStart < b.NewStart+b.NewLines && b.NewStart < a.NewStart+a.NewLines
}

// DiffSpec declaratively describes a change to apply: a path, optional
// previous path (for renames), and optional hunk headers. An empty
// HunkHeaders slice means "whole file" (spec §3).
type DiffSpec struct {
	PreviousPath string // optional
	Path         string
	HunkHeaders  []HunkHeader
}

// WholeFile reports whether the spec targets the entire file rather than
// specific hunks.
func (d DiffSpec) WholeFile() bool { return len(d.HunkHeaders) == 0 }
