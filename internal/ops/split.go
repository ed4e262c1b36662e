package ops

import (
	"context"
	"fmt"

	"go.gitbutler.dev/core/internal/diffmodel"
	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/model"
	"go.gitbutler.dev/core/internal/rebase"
)

// SplitRequest is the input to SplitBranch (spec §4.10).
type SplitRequest struct {
	// SourceCommits is the branch's own commits, oldest-first.
	SourceCommits []model.Commit
	// FilePaths are the paths that move into the new branch.
	FilePaths []string
	Sign      bool
}

// SplitResult is the outcome of SplitBranch: the rebased tip and commit
// mapping of each of the two resulting branches.
type SplitResult struct {
	Source rebase.Result
	New    rebase.Result
}

// SplitBranch partitions source_stack's branch into two by file path
// (spec §4.10): the new branch keeps only commits' changes to
// file_paths, the source branch keeps everything else, each rebased
// independently from the branch's original base, dropping commits that
// become empty on their side.
func SplitBranch(ctx context.Context, repo *git.Repository, req SplitRequest) (SplitResult, error) {
	if len(req.SourceCommits) == 0 {
		return SplitResult{}, fmt.Errorf("split_branch: source branch has no commits")
	}

	first, err := repo.ReadCommit(ctx, req.SourceCommits[0].Hash.String())
	if err != nil {
		return SplitResult{}, fmt.Errorf("read %s: %w", req.SourceCommits[0].Hash, err)
	}
	if len(first.Parents) == 0 {
		return SplitResult{}, fmt.Errorf("split_branch: %s has no parent to rebase onto", first.Hash)
	}
	base := first.Parents[0]

	wanted := make(map[string]bool, len(req.FilePaths))
	for _, p := range req.FilePaths {
		wanted[p] = true
	}

	sourceTip, sourceMapping, err := splitReplay(ctx, repo, base, req.SourceCommits, wanted, false, req.Sign)
	if err != nil {
		return SplitResult{}, fmt.Errorf("rebase source branch: %w", err)
	}
	newTip, newMapping, err := splitReplay(ctx, repo, base, req.SourceCommits, wanted, true, req.Sign)
	if err != nil {
		return SplitResult{}, fmt.Errorf("rebase new branch: %w", err)
	}

	return SplitResult{
		Source: rebase.Result{Tip: sourceTip, CommitMapping: sourceMapping},
		New:    rebase.Result{Tip: newTip, CommitMapping: newMapping},
	}, nil
}

// splitReplay replays commits (oldest-first) onto base, first relocating
// each commit's own change normally (cherry-pick), then stripping from
// its resulting tree whichever paths don't belong on this side: for
// keepOnly branches, everything not in wanted; for the complementary
// branch, everything that is. A commit whose tree is unchanged by this
// side's filtering contributes nothing and is dropped.
func splitReplay(ctx context.Context, repo *git.Repository, base git.Hash, commits []model.Commit, wanted map[string]bool, keepOnly bool, sign bool) (git.Hash, []rebase.CommitMapping, error) {
	tip := base
	var tipTree git.Hash
	if !base.IsZero() {
		info, err := repo.ReadCommit(ctx, base.String())
		if err != nil {
			return git.ZeroHash, nil, fmt.Errorf("read base %s: %w", base, err)
		}
		tipTree = info.Tree
	} else {
		tipTree = git.EmptyTreeHash
	}

	var mapping []rebase.CommitMapping
	for _, c := range commits {
		info, err := repo.ReadCommit(ctx, c.Hash.String())
		if err != nil {
			return git.ZeroHash, nil, fmt.Errorf("read commit %s: %w", c.Hash, err)
		}

		var parentTree git.Hash
		if len(info.Parents) > 0 {
			parentInfo, err := repo.ReadCommit(ctx, info.Parents[0].String())
			if err != nil {
				return git.ZeroHash, nil, fmt.Errorf("read parent of %s: %w", c.Hash, err)
			}
			parentTree = parentInfo.Tree
		} else {
			parentTree = git.EmptyTreeHash
		}

		res, err := rebase.CherryPick(ctx, repo, c.Hash, tipTree, rebase.Tolerant)
		if err != nil {
			return git.ZeroHash, nil, err
		}

		entries, err := repo.DiffTrees(ctx, parentTree, info.Tree, git.RenameOptions{})
		if err != nil {
			return git.ZeroHash, nil, fmt.Errorf("diff %s against its parent: %w", c.Hash, err)
		}

		var strip []model.DiffSpec
		for _, e := range entries {
			if wanted[e.Path] == keepOnly {
				continue // this path belongs on this side already
			}
			strip = append(strip, model.DiffSpec{Path: e.Path})
		}

		newTree := res.Tree
		if len(strip) > 0 {
			newTree, _, err = diffmodel.ApplySpecs(ctx, repo, res.Tree, parentTree, strip)
			if err != nil {
				return git.ZeroHash, nil, fmt.Errorf("strip files from %s: %w", c.Hash, err)
			}
		}

		if newTree == tipTree {
			continue
		}

		var parents []git.Hash
		if !tip.IsZero() {
			parents = []git.Hash{tip}
		}
		newID, err := repo.CommitTree(ctx, git.CommitTreeRequest{
			Tree:      newTree,
			Message:   info.Subject + bodySuffix(info.Body),
			Parents:   parents,
			Author:    &info.Author,
			Committer: &info.Committer,
			Sign:      sign,
		})
		if err != nil {
			return git.ZeroHash, nil, fmt.Errorf("commit-tree for %s: %w", c.Hash, err)
		}

		mapping = append(mapping, rebase.CommitMapping{Old: c.Hash, New: newID})
		tip, tipTree = newID, newTree
	}

	return tip, mapping, nil
}
