package ops

import (
	"context"
	"fmt"

	"go.gitbutler.dev/core/internal/corekit"
	"go.gitbutler.dev/core/internal/diffmodel"
	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/model"
	"go.gitbutler.dev/core/internal/rebase"
)

// MoveRequest is the input to MoveChangesBetweenCommits (spec §4.10).
type MoveRequest struct {
	SourceCommit git.Hash
	DestCommit   git.Hash

	// SourceStackID names source's stack, for hunkdep's per-stack
	// bookkeeping; it need not resolve to anything beyond that.
	SourceStackID model.StackID

	// StackCommits is source's stack, oldest-first (base-adjacent
	// commit first). When SameStack is true this is also dest's
	// stack. When false, DestStackCommits names dest's.
	//
	// model.Segment.Commits is tip-first; convert with
	// model.OldestFirst before populating either field from a
	// projected Segment.
	StackCommits     []model.Commit
	DestStackCommits []model.Commit
	SameStack        bool

	Changes      []model.DiffSpec
	ContextLines int

	// WorktreeChanges are the worktree's current uncommitted edits, for
	// the HasDependentUncommittedChanges check.
	WorktreeChanges []model.DiffSpec

	Sign bool
}

// MoveResult is the outcome of MoveChangesBetweenCommits: the rebased
// tips and commit mappings of the affected stack(s). When req.SameStack,
// Source and Dest are equal (the single combined replay).
type MoveResult struct {
	Source rebase.Result
	Dest   rebase.Result
}

// MoveChangesBetweenCommits extracts changes from source_commit and
// merges them onto dest_commit, rebasing whatever stack(s) the two
// commits belong to (spec §4.10).
func MoveChangesBetweenCommits(ctx context.Context, repo *git.Repository, req MoveRequest) (MoveResult, error) {
	sourceInfo, err := repo.ReadCommit(ctx, req.SourceCommit.String())
	if err != nil {
		return MoveResult{}, fmt.Errorf("read source commit %s: %w", req.SourceCommit, err)
	}
	if len(sourceInfo.Parents) == 0 {
		return MoveResult{}, fmt.Errorf("commit %s has no parent to extract onto", req.SourceCommit)
	}
	sourceParent, err := repo.ReadCommit(ctx, sourceInfo.Parents[0].String())
	if err != nil {
		return MoveResult{}, fmt.Errorf("read parent of %s: %w", req.SourceCommit, err)
	}

	// Step 1: remove changes from source_commit (spec §4.7.1).
	newSourceTree, rejected, err := diffmodel.ApplySpecs(ctx, repo, sourceInfo.Tree, sourceParent.Tree, req.Changes)
	if err != nil {
		return MoveResult{}, fmt.Errorf("extract changes from %s: %w", req.SourceCommit, err)
	}
	if len(rejected) > 0 {
		return MoveResult{}, corekit.New(corekit.KindExtractionFailed, "move_extraction_failed",
			fmt.Sprintf("%d change(s) could not be extracted from %s", len(rejected), req.SourceCommit)).
			WithPayload(corekit.RejectedSpecsPayload{Rejected: rejected})
	}

	// Step 2: dependency blockers.
	if err := checkDependencies(ctx, repo, req.SourceStackID, req.StackCommits, req.SourceCommit, req.Changes, req.WorktreeChanges, req.ContextLines); err != nil {
		return MoveResult{}, err
	}

	destInfo, err := repo.ReadCommit(ctx, req.DestCommit.String())
	if err != nil {
		return MoveResult{}, fmt.Errorf("read dest commit %s: %w", req.DestCommit, err)
	}

	// Step 5: three-way merge the extracted diff (source_tree' -> the
	// original source tree) onto dest_commit's own tree.
	mergedDestTree, hasConflicts, err := repo.MergeTrees(ctx, git.MergeTreesRequest{
		Base:   newSourceTree,
		Ours:   destInfo.Tree,
		Theirs: sourceInfo.Tree,
	})
	if err != nil {
		return MoveResult{}, fmt.Errorf("merge extracted changes onto %s: %w", req.DestCommit, err)
	}
	if hasConflicts {
		return MoveResult{}, corekit.Wrap(corekit.KindConflict, "move_merge_conflict",
			fmt.Errorf("moving changes onto %s: %w", req.DestCommit, git.ErrMergeConflict))
	}

	if req.SameStack {
		hashes := hashesOf(req.StackCommits)
		srcIdx := commitIndex(hashes, req.SourceCommit)
		if err := requireFound("source commit", req.SourceCommit, srcIdx); err != nil {
			return MoveResult{}, err
		}
		destIdx := commitIndex(hashes, req.DestCommit)
		if err := requireFound("dest commit", req.DestCommit, destIdx); err != nil {
			return MoveResult{}, err
		}

		replay := hashes[srcIdx:]
		overrides := map[git.Hash]git.Hash{req.SourceCommit: newSourceTree, req.DestCommit: mergedDestTree}
		tip, mapping, err := replayWithOverrides(ctx, repo, sourceParent.Hash, replay, overrides, req.Sign)
		if err != nil {
			return MoveResult{}, fmt.Errorf("rebase stack above %s: %w", req.SourceCommit, err)
		}

		result := rebase.Result{Tip: tip, CommitMapping: mapping}
		return MoveResult{Source: result, Dest: result}, nil
	}

	// Step 3: rebase source stack with the modified source commit.
	sourceHashes := hashesOf(req.StackCommits)
	srcIdx := commitIndex(sourceHashes, req.SourceCommit)
	if err := requireFound("source commit", req.SourceCommit, srcIdx); err != nil {
		return MoveResult{}, err
	}
	sourceTip, sourceMapping, err := replayWithOverrides(ctx, repo, sourceParent.Hash, sourceHashes[srcIdx:],
		map[git.Hash]git.Hash{req.SourceCommit: newSourceTree}, req.Sign)
	if err != nil {
		return MoveResult{}, fmt.Errorf("rebase source stack above %s: %w", req.SourceCommit, err)
	}

	// Step 6: rebase destination stack with the new destination tree.
	if len(destInfo.Parents) == 0 {
		return MoveResult{}, fmt.Errorf("dest commit %s has no parent", req.DestCommit)
	}
	destHashes := hashesOf(req.DestStackCommits)
	destIdx := commitIndex(destHashes, req.DestCommit)
	if err := requireFound("dest commit", req.DestCommit, destIdx); err != nil {
		return MoveResult{}, err
	}
	destTip, destMapping, err := replayWithOverrides(ctx, repo, destInfo.Parents[0], destHashes[destIdx:],
		map[git.Hash]git.Hash{req.DestCommit: mergedDestTree}, req.Sign)
	if err != nil {
		return MoveResult{}, fmt.Errorf("rebase dest stack above %s: %w", req.DestCommit, err)
	}

	return MoveResult{
		Source: rebase.Result{Tip: sourceTip, CommitMapping: sourceMapping},
		Dest:   rebase.Result{Tip: destTip, CommitMapping: destMapping},
	}, nil
}
