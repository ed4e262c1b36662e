package rebase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.gitbutler.dev/core/internal/corekit"
	"go.gitbutler.dev/core/internal/diffmodel"
	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/model"
)

// UncommitRequest is the input to UncommitChanges (spec §4.7.5).
type UncommitRequest struct {
	SourceCommit git.Hash
	Specs        []model.DiffSpec
	StackTip     git.Hash
}

// UncommitResult is the outcome of UncommitChanges.
type UncommitResult struct {
	Rebase        Result
	RejectedSpecs []corekit.RejectedSpec
}

// UncommitChanges removes specs' content from source_commit, producing a
// modified commit whose tree no longer has those hunks, then rebases
// every commit between source_commit and req.StackTip onto it. The
// removed content itself is not written back to the commit chain; the
// caller lands it in the worktree with ApplyExtractedToWorktree (spec
// §4.7.5 "extracted content ends up in the worktree").
func UncommitChanges(ctx context.Context, repo *git.Repository, req UncommitRequest) (UncommitResult, error) {
	info, err := repo.ReadCommit(ctx, req.SourceCommit.String())
	if err != nil {
		return UncommitResult{}, fmt.Errorf("read source commit %s: %w", req.SourceCommit, err)
	}
	if len(info.Parents) == 0 {
		return UncommitResult{}, fmt.Errorf("commit %s has no parent to subtract onto", req.SourceCommit)
	}
	parentInfo, err := repo.ReadCommit(ctx, info.Parents[0].String())
	if err != nil {
		return UncommitResult{}, fmt.Errorf("read parent of %s: %w", req.SourceCommit, err)
	}

	// Starting from the commit's own resulting tree, re-apply each spec
	// from the parent's content instead of the commit's: this is
	// exactly the inverse patch, replacing only the subtracted hunks.
	newTree, rejected, err := diffmodel.ApplySpecs(ctx, repo, info.Tree, parentInfo.Tree, req.Specs)
	if err != nil {
		return UncommitResult{}, fmt.Errorf("subtract specs from %s: %w", req.SourceCommit, err)
	}

	newCommit, err := repo.CommitTree(ctx, git.CommitTreeRequest{
		Tree:      newTree,
		Message:   info.Subject + boolBody(info.Body),
		Parents:   info.Parents,
		Author:    &info.Author,
		Committer: &info.Committer,
	})
	if err != nil {
		return UncommitResult{}, fmt.Errorf("commit-tree for subtracted commit: %w", err)
	}

	toRepick, err := repo.RevList(ctx, req.StackTip.String(), req.SourceCommit.String())
	if err != nil {
		return UncommitResult{}, fmt.Errorf("collect commits above %s: %w", req.SourceCommit, err)
	}

	var steps []RebaseStep
	for i := len(toRepick) - 1; i >= 0; i-- {
		steps = append(steps, Pick(toRepick[i]))
	}

	result, err := Execute(ctx, repo, newCommit, steps, Options{})
	if err != nil {
		return UncommitResult{}, fmt.Errorf("rebase above subtracted commit: %w", err)
	}
	if len(steps) == 0 {
		result.Tip = newCommit
	}

	return UncommitResult{Rebase: result, RejectedSpecs: rejected}, nil
}

func boolBody(body string) string {
	if body == "" {
		return ""
	}
	return "\n\n" + body
}

// ApplyExtractedToWorktree writes the source content each spec names
// (read from sourceTree) directly onto disk under repo's root, the
// worktree-side half of an uncommit: the content removed from the
// commit reappears as an unstaged edit.
func ApplyExtractedToWorktree(ctx context.Context, repo *git.Repository, sourceTree git.Hash, specs []model.DiffSpec) error {
	for _, spec := range specs {
		hash, err := repo.HashAt(ctx, sourceTree.String(), spec.Path)
		if err != nil {
			if err == git.ErrNotExist {
				continue
			}
			return fmt.Errorf("hash %s: %w", spec.Path, err)
		}
		content, err := repo.ReadObjectBytes(ctx, git.BlobType, hash)
		if err != nil {
			return fmt.Errorf("read %s: %w", spec.Path, err)
		}

		full := filepath.Join(repo.Root(), spec.Path)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			return fmt.Errorf("mkdir for %s: %w", spec.Path, err)
		}
		if err := os.WriteFile(full, content, 0o644); err != nil {
			return fmt.Errorf("write %s: %w", spec.Path, err)
		}
	}
	return nil
}
