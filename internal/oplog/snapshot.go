package oplog

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
	"go.gitbutler.dev/core/internal/git"
)

// ConflictEntry is one conflicted path's three-stage content, captured
// into a snapshot's index-conflicts/ subtree.
type ConflictEntry struct {
	Path                           string
	BaseMode, OursMode, TheirsMode git.Mode
	BaseHash, OursHash, TheirsHash git.Hash
}

// RefEdit is one entry of the "refs" blob: a workspace reference that
// changed as part of the operation being snapshotted.
type RefEdit struct {
	Name     string
	PrevHash git.Hash // ZeroHash if the ref did not previously exist
	NewHash  git.Hash
}

// CreateRequest is the input to Create.
type CreateRequest struct {
	// Operation names the kind of operation this snapshot brackets
	// (e.g. "CreateCommit", "AmendCommit", "MoveCommit", "UndoCommit"),
	// used as the commit message title and the Operation trailer.
	Operation string

	// Worktree is §4.3's synthesized worktree tree (status.WorktreeTreeID).
	Worktree git.Hash

	// Head is HEAD^{tree} at snapshot time.
	Head git.Hash

	// Index is the unconflicted stage-0 index-as-tree (repo.IndexToTree,
	// after the conflicted paths below have been removed by the
	// caller).
	Index git.Hash

	Conflicts []ConflictEntry
	Refs      []RefEdit

	// Metadata is the serialized ref-metadata snapshot (spec §4.9); the
	// caller owns its encoding (the metadata package's document format).
	Metadata []byte

	// Extra carries operation-specific trailer key/value pairs appended
	// after Version and Operation.
	Extra []Trailer

	Author, Committer *git.Signature
}

// Create assembles a snapshot tree per spec §3 "Snapshot Tree" and
// commits it onto the oplog ref under a compare-and-swap guard,
// retrying on a racing concurrent writer the way the teacher's
// GitBackend.Update retries `update-ref`'s CAS failure.
func (l *Log) Create(ctx context.Context, req CreateRequest) (git.Hash, error) {
	tree, err := l.buildSnapshotTree(ctx, req)
	if err != nil {
		return git.ZeroHash, fmt.Errorf("build snapshot tree: %w", err)
	}

	message := encodeMessage(req.Operation, req.Extra)

	var lastErr error
	for range 5 {
		prevCommit, err := l.Head(ctx)
		if err != nil {
			return git.ZeroHash, err
		}

		var parents []git.Hash
		if !prevCommit.IsZero() {
			parents = []git.Hash{prevCommit}
		}

		newCommit, err := l.repo.CommitTree(ctx, git.CommitTreeRequest{
			Tree:      tree,
			Message:   message,
			Parents:   parents,
			Author:    req.Author,
			Committer: req.Committer,
		})
		if err != nil {
			return git.ZeroHash, fmt.Errorf("commit snapshot: %w", err)
		}

		if err := l.repo.SetRef(ctx, git.SetRefRequest{
			Ref:             l.ref,
			Hash:            newCommit,
			OldHash:         prevCommit,
			CreateIfMissing: prevCommit.IsZero(),
		}); err != nil {
			lastErr = err
			l.log.Warn("could not update oplog ref: retrying", "error", err)
			continue
		}

		return newCommit, nil
	}

	return git.ZeroHash, fmt.Errorf("update oplog ref after 5 attempts: %w", lastErr)
}

// buildSnapshotTree writes the two leaf blobs and the (optional)
// conflicts subtree concurrently via errgroup before assembling the
// final tree: each is independent object-writing I/O with nothing to
// share, the same shape as the teacher's own fan-out-then-join uses of
// errgroup.Group elsewhere in the pack.
func (l *Log) buildSnapshotTree(ctx context.Context, req CreateRequest) (git.Hash, error) {
	var refsBlob, metadataBlob, conflictsTree git.Hash

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h, err := l.repo.WriteObject(gctx, git.BlobType, bytes.NewReader(encodeRefs(req.Refs)))
		if err != nil {
			return fmt.Errorf("write refs blob: %w", err)
		}
		refsBlob = h
		return nil
	})
	g.Go(func() error {
		h, err := l.repo.WriteObject(gctx, git.BlobType, bytes.NewReader(req.Metadata))
		if err != nil {
			return fmt.Errorf("write metadata blob: %w", err)
		}
		metadataBlob = h
		return nil
	})
	if len(req.Conflicts) > 0 {
		g.Go(func() error {
			h, err := l.buildConflictsTree(gctx, req.Conflicts)
			if err != nil {
				return err
			}
			conflictsTree = h
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return git.ZeroHash, err
	}

	top := []git.TreeEntry{
		{Mode: git.DirMode, Type: git.TreeType, Hash: req.Head, Name: entryHEAD},
		{Mode: git.DirMode, Type: git.TreeType, Hash: req.Worktree, Name: entryWorktree},
		{Mode: git.DirMode, Type: git.TreeType, Hash: req.Index, Name: entryIndex},
		{Mode: git.RegularMode, Type: git.BlobType, Hash: refsBlob, Name: entryRefs},
		{Mode: git.RegularMode, Type: git.BlobType, Hash: metadataBlob, Name: entryMetadata},
	}
	if !conflictsTree.IsZero() {
		top = append(top, git.TreeEntry{Mode: git.DirMode, Type: git.TreeType, Hash: conflictsTree, Name: entryIndexConflicts})
	}

	tree, _, err := l.repo.MakeTree(ctx, sliceSeq2(top))
	if err != nil {
		return git.ZeroHash, fmt.Errorf("assemble snapshot tree: %w", err)
	}
	return tree, nil
}

// buildConflictsTree builds index-conflicts/<path>/{1,2,3} as a tree of
// per-path subtrees, each holding whichever of the three stages are
// present (a conflict need not have all three, e.g. add/add has no
// base). Conflicted paths may themselves contain slashes, so the result
// is assembled bottom-up via buildNestedTree rather than MakeTree's flat
// entry list.
func (l *Log) buildConflictsTree(ctx context.Context, conflicts []ConflictEntry) (git.Hash, error) {
	var nested []pathEntry
	for _, c := range conflicts {
		var stages []git.TreeEntry
		if !c.BaseHash.IsZero() {
			stages = append(stages, git.TreeEntry{Mode: orMode(c.BaseMode), Type: git.BlobType, Hash: c.BaseHash, Name: "1"})
		}
		if !c.OursHash.IsZero() {
			stages = append(stages, git.TreeEntry{Mode: orMode(c.OursMode), Type: git.BlobType, Hash: c.OursHash, Name: "2"})
		}
		if !c.TheirsHash.IsZero() {
			stages = append(stages, git.TreeEntry{Mode: orMode(c.TheirsMode), Type: git.BlobType, Hash: c.TheirsHash, Name: "3"})
		}

		pathTree, _, err := l.repo.MakeTree(ctx, sliceSeq2(stages))
		if err != nil {
			return git.ZeroHash, fmt.Errorf("assemble conflict stages for %s: %w", c.Path, err)
		}

		nested = append(nested, pathEntry{Path: c.Path, Mode: git.DirMode, Type: git.TreeType, Hash: pathTree})
	}

	return l.buildNestedTree(ctx, nested)
}

// pathEntry is a tree entry addressed by a possibly slash-containing
// relative path, the unit buildNestedTree assembles a tree from.
type pathEntry struct {
	Path string
	Mode git.Mode
	Type git.Type
	Hash git.Hash
}

// buildNestedTree assembles entries (addressed by relative path, which
// may contain slashes) into a tree, recursing one directory level at a
// time and calling MakeTree (flat, no slashes) at each level.
func (l *Log) buildNestedTree(ctx context.Context, entries []pathEntry) (git.Hash, error) {
	if len(entries) == 0 {
		return git.EmptyTreeHash, nil
	}

	var direct []git.TreeEntry
	subGroups := make(map[string][]pathEntry)
	var subOrder []string

	for _, e := range entries {
		head, rest, isNested := strings.Cut(e.Path, "/")
		if !isNested {
			direct = append(direct, git.TreeEntry{Mode: e.Mode, Type: e.Type, Hash: e.Hash, Name: e.Path})
			continue
		}
		if _, ok := subGroups[head]; !ok {
			subOrder = append(subOrder, head)
		}
		subGroups[head] = append(subGroups[head], pathEntry{Path: rest, Mode: e.Mode, Type: e.Type, Hash: e.Hash})
	}

	for _, name := range subOrder {
		subTree, err := l.buildNestedTree(ctx, subGroups[name])
		if err != nil {
			return git.ZeroHash, err
		}
		direct = append(direct, git.TreeEntry{Mode: git.DirMode, Type: git.TreeType, Hash: subTree, Name: name})
	}

	tree, _, err := l.repo.MakeTree(ctx, sliceSeq2(direct))
	if err != nil {
		return git.ZeroHash, fmt.Errorf("assemble nested tree: %w", err)
	}
	return tree, nil
}

func orMode(m git.Mode) git.Mode {
	if m == git.ZeroMode {
		return git.RegularMode
	}
	return m
}

func sliceSeq2(ents []git.TreeEntry) func(func(git.TreeEntry, error) bool) {
	return func(yield func(git.TreeEntry, error) bool) {
		for _, e := range ents {
			if !yield(e, nil) {
				return
			}
		}
	}
}
