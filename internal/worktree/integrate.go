package worktree

import (
	"context"
	"errors"
	"fmt"

	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/rebase"
)

// StatusKind discriminates the outcomes IntegrationStatus reports
// (spec §4.11).
type StatusKind int

const (
	// NoMergeBaseFound means target_ref shares no history with the
	// worktree's tip.
	NoMergeBaseFound StatusKind = iota
	// WorktreeIsBare means the worktree has no branch checked out (a
	// detached HEAD with no commits to integrate).
	WorktreeIsBare
	// CausesWorkspaceConflicts means integrating the worktree's commits
	// would conflict with the repository's current HEAD, independent of
	// whether the commits apply cleanly onto target_ref itself.
	CausesWorkspaceConflicts
	// Integratable means the worktree's commits can be rebased onto
	// target_ref, possibly with some individually conflicting.
	Integratable
)

func (k StatusKind) String() string {
	switch k {
	case NoMergeBaseFound:
		return "no_merge_base_found"
	case WorktreeIsBare:
		return "worktree_is_bare"
	case CausesWorkspaceConflicts:
		return "causes_workspace_conflicts"
	case Integratable:
		return "integratable"
	default:
		return "unknown"
	}
}

// IntegrationStatus is the outcome of StatusOf.
type IntegrationStatus struct {
	Kind StatusKind

	// CherryPickConflicts are the worktree commits (oldest-first within
	// the slice, by original hash) that individually conflict when
	// cherry-picked onto target_ref. Populated only when Kind ==
	// Integratable.
	CherryPickConflicts []git.Hash
	// CommitsAboveConflict are the commits sitting above the first
	// conflict in cherry-pick order; these cannot be cleanly placed
	// until the conflict below them is resolved.
	CommitsAboveConflict []git.Hash
	// WorkingDirConflicts reports whether repo.Status lists any entry
	// for the repository's main working directory. The worktree's own
	// path is not inspected, and the entries are not checked for
	// overlap with the commits being integrated.
	WorkingDirConflicts bool
}

// StatusOf computes wt's IntegrationStatus against targetRef (spec
// §4.11 `worktree_integration_status`).
func StatusOf(ctx context.Context, repo *git.Repository, wt Worktree, targetRef string) (IntegrationStatus, error) {
	if wt.Reference == "" {
		return IntegrationStatus{Kind: WorktreeIsBare}, nil
	}

	tip, err := repo.PeelToCommit(ctx, wt.Reference)
	if err != nil {
		return IntegrationStatus{}, fmt.Errorf("resolve %s: %w", wt.Reference, err)
	}
	targetTip, err := repo.PeelToCommit(ctx, targetRef)
	if err != nil {
		return IntegrationStatus{}, fmt.Errorf("resolve %s: %w", targetRef, err)
	}

	mergeBase, err := repo.FindMergeBase(ctx, tip.String(), targetTip.String())
	if err != nil {
		if errors.Is(err, git.ErrNotExist) {
			return IntegrationStatus{Kind: NoMergeBaseFound}, nil
		}
		return IntegrationStatus{}, fmt.Errorf("find merge base: %w", err)
	}

	commits, err := repo.RevList(ctx, tip.String(), mergeBase.String())
	if err != nil {
		return IntegrationStatus{}, fmt.Errorf("collect worktree commits: %w", err)
	}

	targetCommitInfo, err := repo.ReadCommit(ctx, targetTip.String())
	if err != nil {
		return IntegrationStatus{}, fmt.Errorf("read %s: %w", targetRef, err)
	}

	headTip, err := repo.PeelToCommit(ctx, "HEAD")
	if err == nil && headTip != targetTip {
		headInfo, err := repo.ReadCommit(ctx, headTip.String())
		if err != nil {
			return IntegrationStatus{}, fmt.Errorf("read HEAD: %w", err)
		}
		tipInfo, err := repo.ReadCommit(ctx, tip.String())
		if err != nil {
			return IntegrationStatus{}, fmt.Errorf("read %s: %w", wt.Reference, err)
		}
		_, workspaceConflicts, err := repo.MergeTrees(ctx, git.MergeTreesRequest{
			Base:   targetCommitInfo.Tree,
			Ours:   headInfo.Tree,
			Theirs: tipInfo.Tree,
		})
		if err != nil {
			return IntegrationStatus{}, fmt.Errorf("check workspace conflicts: %w", err)
		}
		if workspaceConflicts {
			return IntegrationStatus{Kind: CausesWorkspaceConflicts}, nil
		}
	}

	var conflicts, aboveConflict []git.Hash
	runningTree := targetCommitInfo.Tree
	sawConflict := false
	for i := len(commits) - 1; i >= 0; i-- { // oldest-first
		c := commits[i]
		res, err := rebase.CherryPick(ctx, repo, c, runningTree, rebase.Tolerant)
		if err != nil {
			return IntegrationStatus{}, fmt.Errorf("cherry-pick %s onto %s: %w", c, targetRef, err)
		}
		if res.Conflicted != nil {
			sawConflict = true
			conflicts = append(conflicts, c)
		} else if sawConflict {
			aboveConflict = append(aboveConflict, c)
		}
		runningTree = res.Tree
	}

	status, err := repo.Status(ctx, false)
	if err != nil {
		return IntegrationStatus{}, fmt.Errorf("worktree status: %w", err)
	}
	workingDirConflicts := len(status) > 0

	return IntegrationStatus{
		Kind:                 Integratable,
		CherryPickConflicts:  conflicts,
		CommitsAboveConflict: aboveConflict,
		WorkingDirConflicts:  workingDirConflicts,
	}, nil
}

// IntegrateRequest is the input to Integrate.
type IntegrateRequest struct {
	TargetRef string
	Sign      bool
}

// Integrate rebases wt's tip onto targetRef, via the rebase engine
// (spec §4.11: "Integration itself runs §4.7.3 with the worktree's tip
// rebased onto the target").
func Integrate(ctx context.Context, repo *git.Repository, wt Worktree, req IntegrateRequest) (rebase.Result, error) {
	status, err := StatusOf(ctx, repo, wt, req.TargetRef)
	if err != nil {
		return rebase.Result{}, err
	}
	if status.Kind != Integratable {
		return rebase.Result{}, fmt.Errorf("worktree_integrate: not integratable (%s)", status.Kind)
	}

	tip, err := repo.PeelToCommit(ctx, wt.Reference)
	if err != nil {
		return rebase.Result{}, fmt.Errorf("resolve %s: %w", wt.Reference, err)
	}
	targetTip, err := repo.PeelToCommit(ctx, req.TargetRef)
	if err != nil {
		return rebase.Result{}, fmt.Errorf("resolve %s: %w", req.TargetRef, err)
	}
	mergeBase, err := repo.FindMergeBase(ctx, tip.String(), targetTip.String())
	if err != nil {
		return rebase.Result{}, fmt.Errorf("find merge base: %w", err)
	}

	commits, err := repo.RevList(ctx, tip.String(), mergeBase.String())
	if err != nil {
		return rebase.Result{}, fmt.Errorf("collect worktree commits: %w", err)
	}

	var steps []rebase.RebaseStep
	for i := len(commits) - 1; i >= 0; i-- {
		steps = append(steps, rebase.Pick(commits[i]))
	}

	result, err := rebase.Execute(ctx, repo, targetTip, steps, rebase.Options{SignAll: req.Sign})
	if err != nil {
		return rebase.Result{}, fmt.Errorf("worktree_integrate: %w", err)
	}
	return result, nil
}
