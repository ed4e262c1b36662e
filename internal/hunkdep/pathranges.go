// Package hunkdep implements the Hunk Dependency Engine (C6): per-path,
// per-stack ownership of line ranges built by replaying commits, a
// k-way merge of those ranges across stacks into one workspace view, and
// the intersection query a worktree hunk is resolved against.
package hunkdep

import (
	"context"
	"fmt"

	"go.gitbutler.dev/core/internal/diffmodel"
	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/model"
)

// PathRanges is one stack's ordered history of HunkRanges for a single
// path, oldest commit first. A range's Shadowed flag means a later
// commit in the same stack re-touched (a subset of) its lines; the
// later commit, not this one, owns them now.
type PathRanges struct {
	Path   string
	Ranges []model.HunkRange
}

// BuildPathRanges replays commits base→tip (commits[0] is the stack's
// base-adjacent commit, commits[len-1] its tip) and records the hunks
// each one produces on path, shadowing any earlier range a later commit
// overlaps (spec §4.6).
//
// commits must already be oldest-first. model.Segment.Commits (and any
// Stack built from it) is tip-first; convert with model.OldestFirst
// before calling this. Feeding a tip-first slice in directly produces no
// error — it silently replays against the wrong parent/tree pairs and
// inverts shadowing.
//
// Positions are recorded as of the commit that produced them. If commit
// N shifts lines that sit before a range recorded by an earlier,
// untouched commit, that earlier range's Start is not retroactively
// re-based, and shifts do not cascade across a whole stack's history.
func BuildPathRanges(ctx context.Context, repo *git.Repository, stackID model.StackID, path string, commits []model.Commit, contextLines int) (PathRanges, error) {
	pr := PathRanges{Path: path}

	var prevTree git.Hash
	for i, c := range commits {
		info, err := repo.ReadCommit(ctx, c.Hash.String())
		if err != nil {
			return PathRanges{}, fmt.Errorf("read commit %s: %w", c.Hash, err)
		}

		if i == 0 {
			if len(info.Parents) > 0 {
				parentInfo, err := repo.ReadCommit(ctx, info.Parents[0].String())
				if err != nil {
					return PathRanges{}, fmt.Errorf("read parent of %s: %w", c.Hash, err)
				}
				prevTree = parentInfo.Tree
			} else {
				prevTree = git.EmptyTreeHash
			}
		}

		oldContent, _, err := readAt(ctx, repo, prevTree, path)
		if err != nil {
			return PathRanges{}, err
		}
		newContent, _, err := readAt(ctx, repo, info.Tree, path)
		if err != nil {
			return PathRanges{}, err
		}

		hunks := diffmodel.HunksFromBlobs(oldContent, newContent, contextLines)
		for _, h := range hunks {
			newRange := model.HunkRange{
				Path:       path,
				StackID:    stackID,
				CommitHash: c.Hash,
				ChangeKind: classifyChange(h),
				Start:      h.NewStart,
				Lines:      h.NewLines,
				LineShift:  int32(h.NewLines) - int32(h.OldLines),
			}

			for j := range pr.Ranges {
				if !pr.Ranges[j].Shadowed && rangesOverlap(pr.Ranges[j], newRange) {
					pr.Ranges[j].Shadowed = true
				}
			}
			pr.Ranges = append(pr.Ranges, newRange)
		}

		prevTree = info.Tree
	}

	return pr, nil
}

func classifyChange(h model.HunkHeader) model.ChangeKind {
	switch {
	case h.OldLines == 0:
		return model.ChangeAddition
	case h.NewLines == 0:
		return model.ChangeDeletion
	default:
		return model.ChangeModification
	}
}

func rangesOverlap(a, b model.HunkRange) bool {
	return a.Start < b.End() && b.Start < a.End()
}

func readAt(ctx context.Context, repo *git.Repository, tree git.Hash, path string) ([]byte, bool, error) {
	if tree.IsZero() {
		return nil, false, nil
	}
	hash, err := repo.HashAt(ctx, tree.String(), path)
	if err != nil {
		if err == git.ErrNotExist {
			return nil, false, nil
		}
		return nil, false, err
	}
	content, err := repo.ReadObjectBytes(ctx, git.BlobType, hash)
	if err != nil {
		return nil, false, err
	}
	return content, true, nil
}
