package ops

import (
	"context"
	"fmt"

	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/rebase"
)

// replayWithOverrides replays commits (oldest-first) onto base, the same
// way rebase.Execute's Pick step does (3-way cherry-pick merge, dropping
// a pick whose result tree matches the running tip), except that any
// commit present in overrides gets its tree replaced outright rather than
// cherry-picked — the `replace_commit_tree` primitive spec §4.10 calls
// for at the source and destination commits of a move.
func replayWithOverrides(ctx context.Context, repo *git.Repository, base git.Hash, commits []git.Hash, overrides map[git.Hash]git.Hash, sign bool) (git.Hash, []rebase.CommitMapping, error) {
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
	for _, hash := range commits {
		info, err := repo.ReadCommit(ctx, hash.String())
		if err != nil {
			return git.ZeroHash, nil, fmt.Errorf("read commit %s: %w", hash, err)
		}

		var newTree git.Hash
		if override, ok := overrides[hash]; ok {
			newTree = override
		} else {
			res, err := rebase.CherryPick(ctx, repo, hash, tipTree, rebase.Tolerant)
			if err != nil {
				return git.ZeroHash, nil, err
			}
			if res.Tree == tipTree {
				continue
			}
			newTree = res.Tree
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
			return git.ZeroHash, nil, fmt.Errorf("commit-tree for %s: %w", hash, err)
		}

		mapping = append(mapping, rebase.CommitMapping{Old: hash, New: newID})
		tip, tipTree = newID, newTree
	}

	return tip, mapping, nil
}
