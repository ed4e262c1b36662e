package status

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.gitbutler.dev/core/internal/git"
)

// WorktreeTreeID synthesizes a tree equal to HEAD^{tree} with every
// worktree change applied, as if the whole worktree had been staged and
// committed (spec §4.3 worktree_tree_id).
//
// Untracked files larger than untrackedLimitBytes are left out of the
// tree entirely, matching the size guard GitButler's own diffing uses to
// avoid hashing and diffing large generated artifacts. Conflicted paths
// are included using their current worktree content when the file still
// exists on disk (the closest available stand-in for "stage 0"); a
// conflicted path deleted in the worktree is removed from the tree.
func WorktreeTreeID(ctx context.Context, repo *git.Repository, untrackedLimitBytes int64) (git.Hash, error) {
	headTree, err := repo.PeelToTree(ctx, "HEAD")
	if err != nil {
		return git.ZeroHash, fmt.Errorf("peel HEAD: %w", err)
	}

	entries, err := repo.Status(ctx, false)
	if err != nil {
		return git.ZeroHash, fmt.Errorf("status: %w", err)
	}

	var writes []git.BlobInfo
	var deletes []string

	addWorktreeFile := func(path string, fallbackMode git.Mode) error {
		full := filepath.Join(repo.Root(), path)
		info, err := os.Lstat(full)
		if os.IsNotExist(err) {
			deletes = append(deletes, path)
			return nil
		}
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}

		hash, _, _, err := repo.WriteBlobFromWorktreeFile(ctx, path)
		if err != nil {
			return fmt.Errorf("hash %s: %w", path, err)
		}

		mode := fallbackMode
		if mode == git.ZeroMode {
			mode = git.RegularMode
		}
		if info.Mode()&0o111 != 0 {
			mode = git.ExecMode
		}
		if info.Mode()&os.ModeSymlink != 0 {
			mode = git.LinkMode
		}

		writes = append(writes, git.BlobInfo{Mode: mode, Path: path, Hash: hash})
		return nil
	}

	for _, e := range entries {
		switch e.Kind {
		case git.StatusUntracked:
			full := filepath.Join(repo.Root(), e.Path)
			info, err := os.Lstat(full)
			if err != nil {
				continue
			}
			if info.Size() > untrackedLimitBytes {
				continue
			}
			if err := addWorktreeFile(e.Path, git.RegularMode); err != nil {
				return git.ZeroHash, err
			}

		case git.StatusUnmerged:
			if err := addWorktreeFile(e.Path, e.WorktreeMode); err != nil {
				return git.ZeroHash, err
			}

		case git.StatusOrdinary, git.StatusRenameOrCopy:
			if e.WorktreeMode == git.ZeroMode {
				deletes = append(deletes, e.Path)
				continue
			}
			if e.XY[1] == '.' {
				// No worktree-side change; the index/HEAD tree
				// entry (or its absence) already reflects this path.
				continue
			}
			if err := addWorktreeFile(e.Path, e.WorktreeMode); err != nil {
				return git.ZeroHash, err
			}
		}
	}

	tree, err := repo.UpdateTree(ctx, git.UpdateTreeRequest{
		Tree:    headTree,
		Writes:  writes,
		Deletes: sliceSeq(deletes),
	})
	if err != nil {
		return git.ZeroHash, fmt.Errorf("update tree: %w", err)
	}
	return tree, nil
}

func sliceSeq(s []string) func(func(string) bool) {
	return func(yield func(string) bool) {
		for _, v := range s {
			if !yield(v) {
				return
			}
		}
	}
}
