package workspace

import (
	"context"
	"fmt"

	"go.gitbutler.dev/core/internal/diffmodel"
	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/hunkdep"
	"go.gitbutler.dev/core/internal/model"
	"go.gitbutler.dev/core/internal/rebase"
)

// LockOutcome classifies how a set of extra commits' changes relate to
// the applied stacks (spec §4.8 "Reconcile extra commits").
type LockOutcome int

const (
	LockedToOne LockOutcome = iota
	LockedToMany
	LockedToNone
)

// ReconcileRequest is the input to ResolveCommitsAbove.
type ReconcileRequest struct {
	WorkspaceCommit git.Hash
	NewHead         git.Hash
	Stacks          []model.Stack

	// RangesByPath is the current workspace-wide hunk-dependency view
	// per path, as produced by hunkdep.CombinePathRanges for each
	// touched path (computed by the caller via C6, since building it
	// requires each stack's full commit history, not just its tip).
	RangesByPath map[string][]model.HunkRange

	// SelectedForChanges names the stack new, unowned changes default
	// to when nothing claims them. Empty means "create a new stack".
	SelectedForChanges model.StackID

	ContextLines int

	Author, Committer *git.Signature
}

// ReconcileResult is the outcome of ResolveCommitsAbove.
type ReconcileResult struct {
	Outcome LockOutcome

	// UpdatedStackID and NewStackTip are set only for LockedToOne, or
	// LockedToNone when SelectedForChanges was non-empty.
	UpdatedStackID model.StackID
	NewStackTip    git.Hash

	// NewWorkspaceCommit is set whenever a stack was actually updated.
	NewWorkspaceCommit git.Hash

	// SuggestedStackName is set for LockedToNone when no
	// SelectedForChanges stack was given: the caller should create a new
	// stack under this name (the first extra commit's subject) and call
	// again with it as SelectedForChanges.
	SuggestedStackName string
}

// ResolveCommitsAbove implements spec §4.8's reconciliation: commits a
// user made directly on top of the workspace commit (rather than via a
// stack operation) are classified by which stack's lines they touch,
// using C6's hunk-dependency view, and either folded into that stack,
// assigned to the selected-for-changes stack, or reported as an
// unresolvable multi-stack lock so the caller can reset HEAD.
func ResolveCommitsAbove(ctx context.Context, repo *git.Repository, req ReconcileRequest) (ReconcileResult, error) {
	extras, err := repo.RevList(ctx, req.NewHead.String(), req.WorkspaceCommit.String())
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("collect extra commits: %w", err)
	}
	if len(extras) == 0 {
		return ReconcileResult{}, fmt.Errorf("workspace: HEAD %s has not advanced past the workspace commit", req.NewHead)
	}
	// RevList returns newest-first; process oldest-first below.
	for i, j := 0, len(extras)-1; i < j; i, j = i+1, j-1 {
		extras[i], extras[j] = extras[j], extras[i]
	}

	wsTree, err := repo.PeelToTree(ctx, req.WorkspaceCommit.String())
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("peel workspace commit: %w", err)
	}
	headTree, err := repo.PeelToTree(ctx, req.NewHead.String())
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("peel new HEAD: %w", err)
	}

	changedPaths, err := diffPaths(ctx, repo, wsTree, headTree)
	if err != nil {
		return ReconcileResult{}, err
	}

	locked := make(map[model.StackID]bool)
	for _, path := range changedPaths {
		oldContent, _, err := readBlob(ctx, repo, wsTree, path)
		if err != nil {
			return ReconcileResult{}, err
		}
		newContent, _, err := readBlob(ctx, repo, headTree, path)
		if err != nil {
			return ReconcileResult{}, err
		}
		hunks := diffmodel.HunksFromBlobs(oldContent, newContent, req.ContextLines)
		for _, h := range hunks {
			for _, hit := range hunkdep.Intersection(req.RangesByPath[path], h.NewStart, h.NewLines) {
				locked[hit.StackID] = true
			}
		}
	}

	result := ReconcileResult{}
	switch {
	case len(locked) >= 2:
		result.Outcome = LockedToMany
		return result, nil

	case len(locked) == 1:
		result.Outcome = LockedToOne
		for id := range locked {
			result.UpdatedStackID = id
		}

	default:
		// Either every hunk was free, or there were no hunks at all
		// (shouldn't happen given len(extras) > 0) — both are unowned.
		result.Outcome = LockedToNone
	}

	if result.Outcome == LockedToNone {
		target := req.SelectedForChanges
		if target == "" {
			subj, err := repo.ReadCommit(ctx, extras[0].String())
			if err != nil {
				return ReconcileResult{}, err
			}
			result.SuggestedStackName = subj.Subject
			return result, nil
		}
		result.UpdatedStackID = target
	}

	stacks, tip, err := foldIntoStack(ctx, repo, req.Stacks, result.UpdatedStackID, extras)
	if err != nil {
		return ReconcileResult{}, err
	}
	result.NewStackTip = tip

	newWs, err := Build(ctx, repo, BuildRequest{Stacks: stacks, Author: req.Author, Committer: req.Committer})
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("rebuild workspace commit: %w", err)
	}
	result.NewWorkspaceCommit = newWs

	return result, nil
}

func foldIntoStack(ctx context.Context, repo *git.Repository, stacks []model.Stack, target model.StackID, extras []git.Hash) ([]model.Stack, git.Hash, error) {
	out := make([]model.Stack, len(stacks))
	copy(out, stacks)

	for i := range out {
		if out[i].ID != target {
			continue
		}
		tip := out[i].Tip()
		var steps []rebase.RebaseStep
		for _, c := range extras {
			steps = append(steps, rebase.Pick(c))
		}
		res, err := rebase.Execute(ctx, repo, tip, steps, rebase.Options{})
		if err != nil {
			return nil, git.ZeroHash, fmt.Errorf("fold extras into stack %s: %w", target, err)
		}
		if len(out[i].Segments) > 0 {
			out[i].Segments[0].Commits = append(newCommitHeads(res), out[i].Segments[0].Commits...)
		}
		return out, res.Tip, nil
	}

	return nil, git.ZeroHash, fmt.Errorf("stack %s not found among applied stacks", target)
}

func newCommitHeads(res rebase.Result) []model.Commit {
	var out []model.Commit
	for i := len(res.CommitMapping) - 1; i >= 0; i-- {
		out = append(out, model.Commit{Hash: res.CommitMapping[i].New})
	}
	return out
}

func diffPaths(ctx context.Context, repo *git.Repository, oldTree, newTree git.Hash) ([]string, error) {
	changes, err := repo.DiffTrees(ctx, oldTree, newTree, git.RenameOptions{})
	if err != nil {
		return nil, fmt.Errorf("diff trees: %w", err)
	}
	var paths []string
	for _, c := range changes {
		paths = append(paths, c.Path)
	}
	return paths, nil
}

func readBlob(ctx context.Context, repo *git.Repository, tree git.Hash, path string) ([]byte, bool, error) {
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
