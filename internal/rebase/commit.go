package rebase

import (
	"context"
	"fmt"

	"go.gitbutler.dev/core/internal/corekit"
	"go.gitbutler.dev/core/internal/diffmodel"
	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/model"
)

// Side selects which side of a RelativeTo commit a new commit is
// inserted on (spec §4.7.4).
type Side int

const (
	Above Side = iota
	Below
)

// RelativeTo names the commit a new commit is created next to, either
// directly by id or via the commit a reference currently points at.
type RelativeTo struct {
	Commit    git.Hash
	Reference string // resolved against the repo when non-empty
}

// CreateRequest is the input to CommitCreate (spec §4.7.4).
type CreateRequest struct {
	WorktreeChanges []model.DiffSpec
	Target          RelativeTo
	Side            Side
	Message         string
	Sign            bool

	// SigningCommand, if set alongside Sign, is run as a subprocess over
	// the commit message to produce a detached signature recorded as a
	// trailer, independent of Git's own `-S`/gpg.program signing (which
	// Sign still requests via CommitTree below).
	SigningCommand string

	// WorktreeTree is the tree the WorktreeChanges' source content is
	// read from (normally the worktree_tree_id computed by C3).
	WorktreeTree git.Hash

	// StackTip is the current tip of the stack the target commit
	// belongs to; everything between the insertion parent and this tip
	// gets re-picked onto the new commit.
	StackTip git.Hash
}

// CreateResult is the outcome of CommitCreate.
type CreateResult struct {
	Rebase         *Result
	NewCommit      git.Hash
	RejectedSpecs  []corekit.RejectedSpec
}

// CommitCreate builds a new commit from worktree_changes on top of the
// parent implied by (target, side), then rebases every commit between
// that parent and req.StackTip onto it (spec §4.7.4).
func CommitCreate(ctx context.Context, repo *git.Repository, req CreateRequest) (CreateResult, error) {
	parent, err := insertionParent(ctx, repo, req.Target, req.Side)
	if err != nil {
		return CreateResult{}, err
	}

	parentInfo, err := repo.ReadCommit(ctx, parent.String())
	if err != nil {
		return CreateResult{}, fmt.Errorf("read insertion parent %s: %w", parent, err)
	}

	newTree, rejected, err := diffmodel.ApplySpecs(ctx, repo, parentInfo.Tree, req.WorktreeTree, req.WorktreeChanges)
	if err != nil {
		return CreateResult{}, fmt.Errorf("apply worktree changes: %w", err)
	}
	if len(rejected) == len(req.WorktreeChanges) {
		// Every spec was rejected: nothing to commit, no rebase to run.
		return CreateResult{RejectedSpecs: rejected}, nil
	}

	message := req.Message
	if req.Sign && req.SigningCommand != "" {
		sig, err := ExternalSign(ctx, nil, req.SigningCommand, []byte(req.Message))
		if err != nil {
			return CreateResult{}, fmt.Errorf("sign commit: %w", err)
		}
		message += "\n\nSigned-by-helper: " + string(sig)
	}

	newCommit, err := repo.CommitTree(ctx, git.CommitTreeRequest{
		Tree:    newTree,
		Message: message,
		Parents: []git.Hash{parent},
		Sign:    req.Sign,
	})
	if err != nil {
		return CreateResult{}, fmt.Errorf("commit-tree: %w", err)
	}

	toRepick, err := repo.RevList(ctx, req.StackTip.String(), parent.String())
	if err != nil {
		return CreateResult{}, fmt.Errorf("collect commits above insertion point: %w", err)
	}

	var steps []RebaseStep
	for i := len(toRepick) - 1; i >= 0; i-- {
		steps = append(steps, Pick(toRepick[i]))
	}

	result, err := Execute(ctx, repo, newCommit, steps, Options{})
	if err != nil {
		return CreateResult{}, fmt.Errorf("rebase onto new commit: %w", err)
	}
	if len(steps) == 0 {
		result.Tip = newCommit
	}

	return CreateResult{Rebase: &result, NewCommit: newCommit, RejectedSpecs: rejected}, nil
}

func insertionParent(ctx context.Context, repo *git.Repository, target RelativeTo, side Side) (git.Hash, error) {
	var commit git.Hash
	var err error
	if target.Reference != "" {
		commit, err = repo.PeelToCommit(ctx, target.Reference)
		if err != nil {
			return git.ZeroHash, fmt.Errorf("resolve reference %s: %w", target.Reference, err)
		}
	} else {
		commit = target.Commit
	}

	if side == Above {
		return commit, nil
	}

	info, err := repo.ReadCommit(ctx, commit.String())
	if err != nil {
		return git.ZeroHash, fmt.Errorf("read %s: %w", commit, err)
	}
	if len(info.Parents) == 0 {
		return git.ZeroHash, fmt.Errorf("commit %s has no parent to insert below", commit)
	}
	return info.Parents[0], nil
}
