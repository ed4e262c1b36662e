package oplog

import (
	"context"
	"fmt"
	"strings"

	"go.gitbutler.dev/core/internal/git"
)

// RestoreMode selects how worktree_cherry_pick handles a conflicting
// merge during Resolve (spec §4.9 "Restore" step 1).
type RestoreMode int

const (
	// AllowMarkers lets conflicted files carry Git-style conflict
	// markers in their body rather than failing (opts.worktree_cherry_pick = None).
	AllowMarkers RestoreMode = iota
	// FailFast aborts with git.ErrMergeConflict on any conflict.
	FailFast
)

// ResolveRequest is the input to Resolve.
type ResolveRequest struct {
	Snapshot           git.Hash
	TargetWorktreeTree git.Hash
	Mode               RestoreMode
}

// Resolved is the purely-functional output of resolving a snapshot: four
// independent pieces of state a caller decides whether (and how) to
// materialize (spec §4.9 "Restoring is purely functional...").
type Resolved struct {
	// Worktree is the merged worktree tree (step 1).
	Worktree git.Hash
	// HasConflicts reports whether Worktree carries conflict markers.
	HasConflicts bool

	// Index is the reconstructed index tree, not yet loaded into the
	// repository's actual index file (step 2).
	Index git.Hash
	// IndexConflicts are the conflicted entries to reinsert into the
	// index at their stage, once the caller loads Index (step 2).
	IndexConflicts []ConflictEntry

	// Refs are the parsed workspace reference edits (step 3).
	Refs []RefEdit

	// Metadata is the parsed ref-metadata snapshot bytes (step 4).
	Metadata []byte
}

// Resolve implements spec §4.9's `resolve_tree(snapshot_tree,
// target_worktree_tree, opts)`: it reads back a snapshot commit and
// produces the four pieces of restored state, without writing anything
// to the repository's actual worktree, index, or refs.
func (l *Log) Resolve(ctx context.Context, req ResolveRequest) (Resolved, error) {
	info, err := l.repo.ReadCommit(ctx, req.Snapshot.String())
	if err != nil {
		return Resolved{}, fmt.Errorf("read snapshot %s: %w", req.Snapshot, err)
	}

	headTree, err := l.repo.HashAt(ctx, info.Tree.String(), entryHEAD)
	if err != nil {
		return Resolved{}, fmt.Errorf("snapshot %s: read %s: %w", req.Snapshot, entryHEAD, err)
	}
	worktreeTree, err := l.repo.HashAt(ctx, info.Tree.String(), entryWorktree)
	if err != nil {
		return Resolved{}, fmt.Errorf("snapshot %s: read %s: %w", req.Snapshot, entryWorktree, err)
	}
	indexTree, err := l.repo.HashAt(ctx, info.Tree.String(), entryIndex)
	if err != nil {
		return Resolved{}, fmt.Errorf("snapshot %s: read %s: %w", req.Snapshot, entryIndex, err)
	}

	mergedWorktree, hasConflicts, err := l.repo.MergeTrees(ctx, git.MergeTreesRequest{
		Base:   headTree,
		Ours:   req.TargetWorktreeTree,
		Theirs: worktreeTree,
	})
	if err != nil {
		return Resolved{}, fmt.Errorf("worktree cherry-pick: %w", err)
	}
	if hasConflicts && req.Mode == FailFast {
		return Resolved{}, fmt.Errorf("restore snapshot %s: %w", req.Snapshot, git.ErrMergeConflict)
	}

	conflicts, err := l.readConflictsTree(ctx, info.Tree)
	if err != nil {
		return Resolved{}, err
	}

	refsBlobHash, err := l.repo.HashAt(ctx, info.Tree.String(), entryRefs)
	if err != nil {
		return Resolved{}, fmt.Errorf("snapshot %s: read %s: %w", req.Snapshot, entryRefs, err)
	}
	refsBlob, err := l.repo.ReadObjectBytes(ctx, git.BlobType, refsBlobHash)
	if err != nil {
		return Resolved{}, fmt.Errorf("read refs blob: %w", err)
	}
	refs, err := decodeRefs(refsBlob)
	if err != nil {
		return Resolved{}, fmt.Errorf("decode refs blob: %w", err)
	}

	metadataBlobHash, err := l.repo.HashAt(ctx, info.Tree.String(), entryMetadata)
	if err != nil {
		return Resolved{}, fmt.Errorf("snapshot %s: read %s: %w", req.Snapshot, entryMetadata, err)
	}
	metadataBlob, err := l.repo.ReadObjectBytes(ctx, git.BlobType, metadataBlobHash)
	if err != nil {
		return Resolved{}, fmt.Errorf("read metadata blob: %w", err)
	}

	return Resolved{
		Worktree:       mergedWorktree,
		HasConflicts:   hasConflicts,
		Index:          indexTree,
		IndexConflicts: conflicts,
		Refs:           refs,
		Metadata:       metadataBlob,
	}, nil
}

// MaterializeIndex loads r.Index into the repository's actual index
// file, then reinserts each conflicted entry at its recorded stage
// (spec §4.9 step 2: "unconflicted entries carrying the same path are
// removed"). Worktree and refs materialization are the caller's
// responsibility, since they involve decisions (overwrite vs. merge
// worktree files, which ref-update transaction to run) this package
// does not make on the caller's behalf.
func (l *Log) MaterializeIndex(ctx context.Context, r Resolved) error {
	if err := l.repo.IndexFromTree(ctx, r.Index); err != nil {
		return fmt.Errorf("load index tree: %w", err)
	}
	if len(r.IndexConflicts) == 0 {
		return nil
	}

	paths := make([]string, len(r.IndexConflicts))
	for i, c := range r.IndexConflicts {
		paths[i] = c.Path
	}
	if err := l.repo.RemoveFromIndex(ctx, paths); err != nil {
		return fmt.Errorf("remove stage-0 entries for conflicted paths: %w", err)
	}

	var entries []git.IndexEntry
	for _, c := range r.IndexConflicts {
		if !c.BaseHash.IsZero() {
			entries = append(entries, git.IndexEntry{Mode: orMode(c.BaseMode), Hash: c.BaseHash, Stage: 1, Path: c.Path})
		}
		if !c.OursHash.IsZero() {
			entries = append(entries, git.IndexEntry{Mode: orMode(c.OursMode), Hash: c.OursHash, Stage: 2, Path: c.Path})
		}
		if !c.TheirsHash.IsZero() {
			entries = append(entries, git.IndexEntry{Mode: orMode(c.TheirsMode), Hash: c.TheirsHash, Stage: 3, Path: c.Path})
		}
	}
	if err := l.repo.UpdateIndexEntries(ctx, entries); err != nil {
		return fmt.Errorf("reinsert conflict stages: %w", err)
	}
	return nil
}

// readConflictsTree walks snapshotTree's index-conflicts/ subtree (if
// present) back into ConflictEntry values.
func (l *Log) readConflictsTree(ctx context.Context, snapshotTree git.Hash) ([]ConflictEntry, error) {
	conflictsTreeHash, err := l.repo.HashAt(ctx, snapshotTree.String(), entryIndexConflicts)
	if err != nil {
		if err == git.ErrNotExist {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", entryIndexConflicts, err)
	}

	var conflicts []ConflictEntry
	for ent, err := range l.repo.ListTree(ctx, conflictsTreeHash, git.ListTreeOptions{Recurse: true}) {
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", entryIndexConflicts, err)
		}
		if ent.Type != git.BlobType {
			continue
		}

		path, stage, ok := splitStageSuffix(ent.Name)
		if !ok {
			continue
		}

		idx := findConflict(conflicts, path)
		if idx == -1 {
			conflicts = append(conflicts, ConflictEntry{Path: path})
			idx = len(conflicts) - 1
		}
		switch stage {
		case "1":
			conflicts[idx].BaseMode, conflicts[idx].BaseHash = ent.Mode, ent.Hash
		case "2":
			conflicts[idx].OursMode, conflicts[idx].OursHash = ent.Mode, ent.Hash
		case "3":
			conflicts[idx].TheirsMode, conflicts[idx].TheirsHash = ent.Mode, ent.Hash
		}
	}
	return conflicts, nil
}

// splitStageSuffix splits a recursive ls-tree name such as
// "a/b.txt/2" into ("a/b.txt", "2").
func splitStageSuffix(name string) (path, stage string, ok bool) {
	idx := strings.LastIndexByte(name, '/')
	if idx == -1 {
		return "", "", false
	}
	return name[:idx], name[idx+1:], true
}

func findConflict(conflicts []ConflictEntry, path string) int {
	for i, c := range conflicts {
		if c.Path == path {
			return i
		}
	}
	return -1
}
