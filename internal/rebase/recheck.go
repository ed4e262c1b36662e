package rebase

import (
	"context"
	"fmt"

	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/model"
)

// RecheckConflict re-runs the 3-way merge recorded by a conflicted
// commit's ConflictedCommit against a new onto tree, the way CherryPick
// produced it in the first place, but keeping the commit's own Theirs
// tree fixed. This is what a caller uses once the commit's upstream
// dependency (the stack content the conflicted commit was originally
// applied onto) has changed underneath it: the conflict may now resolve
// cleanly, resolve differently, or persist, and RecheckConflict reports
// whichever of those actually happened rather than assuming anything.
func RecheckConflict(ctx context.Context, repo *git.Repository, conflict *model.ConflictedCommit, onto git.Hash, mode CherryPickMode) (CherryPickResult, error) {
	tree, hasConflicts, err := repo.MergeTrees(ctx, git.MergeTreesRequest{
		Base:   conflict.Base,
		Ours:   onto,
		Theirs: conflict.Theirs,
	})
	if err != nil {
		return CherryPickResult{}, fmt.Errorf("recheck conflict onto %s: %w", onto, err)
	}

	if !hasConflicts {
		return CherryPickResult{Tree: tree}, nil
	}

	if mode == FailFast {
		return CherryPickResult{}, fmt.Errorf("recheck conflict onto %s: %w", onto, git.ErrMergeConflict)
	}

	return CherryPickResult{
		Tree: tree,
		Conflicted: &model.ConflictedCommit{
			AutoResolution: tree,
			Base:           conflict.Base,
			Ours:           onto,
			Theirs:         conflict.Theirs,
			Entries:        conflict.Entries,
		},
	}, nil
}
