// Package graph implements the Graph & Projection component (C5):
// turning a set of stack-tip refs plus ref metadata into the
// Stack/Segment/Workspace projection the rest of the engine reasons
// about, the way git-spice's BranchGraph turns raw branch refs into a
// traversable graph (internal/spice/branch_graph.go) — except here the
// traversal walks first-parent commit history within one stack rather
// than a base-branch graph across stacks.
package graph

import (
	"context"
	"fmt"

	"go.abhg.dev/container/ring"
	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/model"
)

// Options configures Project.
type Options struct {
	// TargetRef is the integration branch stacks are based on.
	TargetRef string

	// StackTips names the tip ref of each stack, highest priority
	// first. When two stacks would otherwise claim the same commit,
	// the one listed earlier wins (spec §4.5 "first-writer-wins in
	// stack_order order").
	StackTips []string

	// SegmentRefs names every ref tracked in metadata that can mark a
	// segment boundary, across all stacks (a superset of StackTips: a
	// multi-segment stack has one ref per segment, not just its tip).
	// Nil means StackTips is also the full set.
	SegmentRefs []string

	// RemoteTrackingRefs maps a stack tip ref to the remote-tracking
	// ref it should be compared against for the Remote commit flag, if
	// any.
	RemoteTrackingRefs map[string]string

	// StackCommitLimit bounds how many commits are walked into a
	// single stack before traversal stops early. Zero means unbounded.
	StackCommitLimit int
}

// Project computes the workspace projection by walking each stack tip's
// first-parent history down to the target branch (spec §4.5). Every
// Segment.Commits in the result is tip-first; a caller feeding a stack's
// commits into hunkdep.BuildPathRanges or ops.MoveRequest must convert
// with model.OldestFirst first, since both require base-adjacent-commit
// first.
func Project(ctx context.Context, repo *git.Repository, opts Options) (model.Workspace, error) {
	targetCommit, err := repo.PeelToCommit(ctx, opts.TargetRef)
	if err != nil {
		return model.Workspace{}, fmt.Errorf("resolve target %s: %w", opts.TargetRef, err)
	}

	// Computed once up front via a single BFS over the target's full
	// ancestry (all parents, not just first-parent, since merges into
	// the target branch are common) rather than an IsAncestor spawn per
	// commit walked below.
	integrated, err := ancestorsOf(ctx, repo, targetCommit)
	if err != nil {
		return model.Workspace{}, fmt.Errorf("collect integrated ancestry: %w", err)
	}

	segmentRefs := opts.SegmentRefs
	if segmentRefs == nil {
		segmentRefs = opts.StackTips
	}
	allRefs, err := refHashes(ctx, repo, segmentRefs)
	if err != nil {
		return model.Workspace{}, err
	}
	byHash := make(map[git.Hash][]string, len(allRefs))
	for ref, hash := range allRefs {
		byHash[hash] = append(byHash[hash], ref)
	}

	refAt, err := refHashes(ctx, repo, opts.StackTips)
	if err != nil {
		return model.Workspace{}, err
	}

	claimed := make(map[git.Hash]bool)
	ws := model.Workspace{TargetRef: opts.TargetRef, TargetCommit: targetCommit}

	for _, tip := range opts.StackTips {
		tipHash, ok := refAt[tip]
		if !ok {
			return model.Workspace{}, fmt.Errorf("stack tip %s: %w", tip, git.ErrNotExist)
		}

		stack, err := walkStack(ctx, repo, stackWalk{
			id:          model.StackID(tip),
			tipRef:      tip,
			tipHash:     tipHash,
			target:      targetCommit,
			claimed:     claimed,
			refsAtHash:  byHash,
			integrated:  integrated,
			remoteRef:   opts.RemoteTrackingRefs[tip],
			commitLimit: opts.StackCommitLimit,
		})
		if err != nil {
			return model.Workspace{}, fmt.Errorf("walk stack %s: %w", tip, err)
		}
		ws.Stacks = append(ws.Stacks, stack)
	}

	return ws, nil
}

// ancestorsOf returns the set of commits reachable from start by
// following every parent edge (so it also crosses merge commits,
// unlike the per-stack traversal below which only follows first
// parents), using a ring.Q-driven breadth-first frontier the same way
// BranchGraph.Upstack/Tops walk the branch-above graph.
func ancestorsOf(ctx context.Context, repo *git.Repository, start git.Hash) (map[git.Hash]bool, error) {
	seen := make(map[git.Hash]bool)
	var q ring.Q[git.Hash]
	q.Push(start)

	for !q.Empty() {
		h := q.Pop()
		if h.IsZero() || seen[h] {
			continue
		}
		seen[h] = true

		info, err := repo.ReadCommit(ctx, h.String())
		if err != nil {
			return nil, err
		}
		for _, p := range info.Parents {
			if !seen[p] {
				q.Push(p)
			}
		}
	}
	return seen, nil
}

func refHashes(ctx context.Context, repo *git.Repository, refs []string) (map[string]git.Hash, error) {
	out := make(map[string]git.Hash, len(refs))
	for _, ref := range refs {
		hash, err := repo.PeelToCommit(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", ref, err)
		}
		out[ref] = hash
	}
	return out, nil
}

type stackWalk struct {
	id          model.StackID
	tipRef      string
	tipHash     git.Hash
	target      git.Hash
	claimed     map[git.Hash]bool
	refsAtHash  map[git.Hash][]string
	integrated  map[git.Hash]bool
	remoteRef   string
	commitLimit int
}

func walkStack(ctx context.Context, repo *git.Repository, w stackWalk) (model.Stack, error) {
	var remoteTip git.Hash
	if w.remoteRef != "" {
		if h, err := repo.PeelToCommit(ctx, w.remoteRef); err == nil {
			remoteTip = h
		}
	}

	var segments []model.Segment
	curSegRef := w.tipRef
	var curCommits []model.Commit

	closeSegment := func(nextRef string) {
		segID := model.SegmentID(curSegRef)
		if curSegRef == "" {
			segID = model.SegmentID(fmt.Sprintf("anon-%s", curCommits[len(curCommits)-1].Hash))
		}
		segments = append(segments, model.Segment{
			ID:                    segID,
			RefName:               curSegRef,
			RemoteTrackingRefName: w.remoteRef,
			Commits:               curCommits,
		})
		curSegRef = nextRef
		curCommits = nil
	}

	cur := w.tipHash
	n := 0
	base := w.target

	for !cur.IsZero() {
		if cur == w.target {
			base = cur
			break
		}
		if w.claimed[cur] {
			base = cur
			break
		}
		if w.commitLimit > 0 && n >= w.commitLimit {
			base = cur
			break
		}

		info, err := repo.ReadCommit(ctx, cur.String())
		if err != nil {
			return model.Stack{}, err
		}

		if refs, ok := w.refsAtHash[cur]; ok && cur != w.tipHash {
			// A commit directly named by a tracked segment ref
			// starts a new segment here (spec §4.5 "segment
			// boundary"); refs[0] is an arbitrary choice when
			// several segment refs point at the same commit.
			closeSegment(refs[0])
		}

		var flags model.CommitFlags
		if w.integrated[cur] {
			flags |= model.FlagIntegrated
		} else {
			flags |= model.FlagInWorkspace
		}
		if !remoteTip.IsZero() {
			if onRemote, err := repo.IsAncestor(ctx, cur.String(), remoteTip.String()); err == nil && onRemote {
				flags |= model.FlagRemote
			}
		}

		curCommits = append(curCommits, model.Commit{
			Hash:     info.Hash,
			ChangeID: info.ChangeID,
			Subject:  info.Subject,
			Flags:    flags,
		})
		w.claimed[cur] = true
		n++

		if len(info.Parents) == 0 {
			cur = git.ZeroHash
			base = git.ZeroHash
			break
		}
		cur = info.Parents[0]
		base = cur
	}
	closeSegment("")

	stack := model.Stack{ID: w.id, Segments: segments, Base: base}
	if err := annotateRemoteUniques(ctx, repo, &stack); err != nil {
		return model.Stack{}, err
	}
	return stack, nil
}

// annotateRemoteUniques fills each segment's CommitsUniqueFromTip (its
// own walked commits, tip-first) and CommitsUniqueInRemoteTrackingBranch
// (commits reachable from the segment's remote-tracking ref but not
// from its local ref, i.e. the segment is behind remote).
func annotateRemoteUniques(ctx context.Context, repo *git.Repository, stack *model.Stack) error {
	for i := range stack.Segments {
		seg := &stack.Segments[i]

		for _, c := range seg.Commits {
			seg.CommitsUniqueFromTip = append(seg.CommitsUniqueFromTip, c.Hash)
		}

		if seg.RefName == "" || seg.RemoteTrackingRefName == "" {
			continue
		}
		behind, err := repo.RevList(ctx, seg.RemoteTrackingRefName, seg.RefName)
		if err != nil {
			continue // remote ref may not exist; not fatal to the projection
		}
		seg.CommitsUniqueInRemoteTrackingBranch = behind
	}
	return nil
}
