// Package status implements the Worktree Status component (C3):
// merging index-vs-tree and worktree-vs-index changes into the
// TreeChange/IgnoredChange shape the rest of the engine consumes.
package status

import (
	"context"
	"fmt"

	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/model"
)

// ChangesInWorktree computes the set of tree changes and shadowed/
// ignored observations for the current worktree, merging index-vs-HEAD
// and worktree-vs-index changes per path (spec §4.3).
//
// Worktree modifications override an index modification on the same
// path; the shadowed index-side change is reported as an IgnoredChange
// of kind TreeIndex rather than silently dropped. Conflicted paths never
// produce a TreeChange. Renames are never synthesized here: they only
// ever come from a tree-to-tree diff (git.DiffTrees), since status
// doesn't have enough information to detect them reliably against an
// uncommitted worktree.
func ChangesInWorktree(ctx context.Context, repo *git.Repository) ([]model.TreeChange, []model.IgnoredChange, error) {
	entries, err := repo.Status(ctx, false)
	if err != nil {
		return nil, nil, fmt.Errorf("status: %w", err)
	}

	var changes []model.TreeChange
	var ignored []model.IgnoredChange

	for _, e := range entries {
		switch e.Kind {
		case git.StatusUntracked:
			changes = append(changes, model.TreeChange{
				Kind:        model.ChangeAddition,
				Path:        e.Path,
				IsUntracked: true,
				State:       model.ChangeState{Kind: git.EntryBlob},
			})

		case git.StatusIgnored:
			// Excluded from changes entirely; callers that want
			// ignored paths pass includeIgnored to Status directly.

		case git.StatusUnmerged:
			ignored = append(ignored, model.IgnoredChange{Path: e.Path, Kind: model.IgnoredConflict})

		case git.StatusRenameOrCopy:
			// Rewrites are disabled for status (spec.md: "renames come
			// only from tree-to-tree diffs"): never synthesize a
			// ChangeRename here. git still reports the pairing via
			// OrigPath, so it is split back into the plain
			// deletion+addition pair a rename-blind comparison would
			// have produced.
			changes = append(changes, deletionChange(e), additionChange(e))
			if worktreeDiffersFromIndex(e.XY) {
				ignored = append(ignored, model.IgnoredChange{Path: e.Path, Kind: model.IgnoredTreeIndex})
			}

		case git.StatusOrdinary:
			indexChanged := e.XY[0] != '.'
			worktreeChanged := e.XY[1] != '.'

			switch {
			case worktreeChanged && indexChanged:
				// Worktree change wins; the index-side change on
				// the same path is shadowed.
				changes = append(changes, ordinaryChange(e, true))
				ignored = append(ignored, model.IgnoredChange{Path: e.Path, Kind: model.IgnoredTreeIndex})
			case worktreeChanged:
				changes = append(changes, ordinaryChange(e, true))
			case indexChanged:
				changes = append(changes, ordinaryChange(e, false))
			}
		}
	}

	return changes, ignored, nil
}

func worktreeDiffersFromIndex(xy string) bool {
	return len(xy) == 2 && xy[1] != '.'
}

func ordinaryChange(e git.StatusEntry, worktreeSide bool) model.TreeChange {
	prevKind := git.EntryKindForMode(e.HeadMode)
	nextKind := git.EntryKindForMode(e.WorktreeMode)
	nextHash := e.IndexHash
	if worktreeSide {
		// The worktree content hash isn't known without hashing the
		// file; the tree synthesis path (WorktreeTreeID) is what
		// actually materializes it. Status alone reports identity via
		// the index stage, which is already up to date for changes
		// git has staged, and is refined by worktree_tree_id for
		// changes it hasn't.
		nextKind = git.EntryKindForMode(e.IndexMode)
	}

	if e.Submodule {
		return model.TreeChange{
			Kind:          model.ChangeModification,
			Path:          e.Path,
			PreviousState: model.ChangeState{ObjectID: e.HeadHash, Kind: git.EntryCommit},
			State:         model.ChangeState{ObjectID: nextHash, Kind: git.EntryCommit},
		}
	}

	if e.HeadHash.IsZero() || e.HeadHash == git.ZeroHash {
		return model.TreeChange{
			Kind:  model.ChangeAddition,
			Path:  e.Path,
			State: model.ChangeState{ObjectID: nextHash, Kind: nextKind},
		}
	}

	return model.TreeChange{
		Kind:          model.ChangeModification,
		Path:          e.Path,
		PreviousState: model.ChangeState{ObjectID: e.HeadHash, Kind: prevKind},
		State:         model.ChangeState{ObjectID: nextHash, Kind: nextKind},
		ModeFlags:     model.DeriveModeFlags(prevKind, nextKind),
	}
}

// deletionChange reports the source side of a rename/copy status entry
// as a plain deletion of its original path, the half a rename-blind
// comparison would see at OrigPath.
func deletionChange(e git.StatusEntry) model.TreeChange {
	prevKind := git.EntryKindForMode(e.HeadMode)
	return model.TreeChange{
		Kind:          model.ChangeDeletion,
		Path:          e.OrigPath,
		PreviousState: model.ChangeState{ObjectID: e.HeadHash, Kind: prevKind},
	}
}

// additionChange reports the destination side of a rename/copy status
// entry as a plain addition at its new path.
func additionChange(e git.StatusEntry) model.TreeChange {
	nextKind := git.EntryKindForMode(e.IndexMode)
	return model.TreeChange{
		Kind:  model.ChangeAddition,
		Path:  e.Path,
		State: model.ChangeState{ObjectID: e.IndexHash, Kind: nextKind},
	}
}
