// Package rebase implements the Commit & Rebase Engine (C7): cherry-pick
// of individual commits via 3-way tree merges, a RebaseStep program
// executed against a running tip, and the high-level commit_create /
// uncommit_changes operations built on top of it.
package rebase

import (
	"context"
	"fmt"

	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/model"
)

// CherryPickMode selects how CherryPick handles a conflicting merge
// (spec §4.7.2).
type CherryPickMode int

const (
	// FailFast aborts with git.ErrMergeConflict on any conflict, for
	// callers that never accept a partial/conflicted result.
	FailFast CherryPickMode = iota
	// Tolerant produces a conflict-carrying commit instead of failing,
	// used by the rebase step executor.
	Tolerant
)

// CherryPickResult is the outcome of cherry-picking one commit.
type CherryPickResult struct {
	Tree       git.Hash
	Conflicted *model.ConflictedCommit // set only when the merge conflicted under Tolerant mode
}

// CherryPick applies commit's change onto the tree onto (a tree hash,
// not a commit), via a 3-way merge with base = commit's own parent tree,
// ours = onto, theirs = commit's tree (spec §4.7.2).
func CherryPick(ctx context.Context, repo *git.Repository, commit git.Hash, onto git.Hash, mode CherryPickMode) (CherryPickResult, error) {
	info, err := repo.ReadCommit(ctx, commit.String())
	if err != nil {
		return CherryPickResult{}, fmt.Errorf("read commit %s: %w", commit, err)
	}

	var base git.Hash
	if len(info.Parents) > 0 {
		parentInfo, err := repo.ReadCommit(ctx, info.Parents[0].String())
		if err != nil {
			return CherryPickResult{}, fmt.Errorf("read parent of %s: %w", commit, err)
		}
		base = parentInfo.Tree
	} else {
		base = git.EmptyTreeHash
	}

	tree, hasConflicts, err := repo.MergeTrees(ctx, git.MergeTreesRequest{
		Base:   base,
		Ours:   onto,
		Theirs: info.Tree,
	})
	if err != nil {
		return CherryPickResult{}, fmt.Errorf("cherry-pick %s onto %s: %w", commit, onto, err)
	}

	if !hasConflicts {
		return CherryPickResult{Tree: tree}, nil
	}

	if mode == FailFast {
		return CherryPickResult{}, fmt.Errorf("cherry-pick %s onto %s: %w", commit, onto, git.ErrMergeConflict)
	}

	return CherryPickResult{
		Tree: tree,
		Conflicted: &model.ConflictedCommit{
			AutoResolution: tree,
			Base:           base,
			Ours:           onto,
			Theirs:         info.Tree,
		},
	}, nil
}
