package oplog

import (
	"context"
	"fmt"

	"go.gitbutler.dev/core/internal/git"
)

// List walks the oplog newest-first, decoding each commit's message
// into a SnapshotDetails (spec §4.9 "List"). limit caps the number of
// entries returned; zero means "no limit".
func (l *Log) List(ctx context.Context, limit int) ([]SnapshotDetails, error) {
	head, err := l.Head(ctx)
	if err != nil {
		return nil, err
	}
	if head.IsZero() {
		return nil, nil
	}

	hashes, err := l.repo.RevList(ctx, head.String(), "")
	if err != nil {
		return nil, fmt.Errorf("walk oplog: %w", err)
	}

	if limit > 0 && len(hashes) > limit {
		hashes = hashes[:limit]
	}

	details := make([]SnapshotDetails, 0, len(hashes))
	for _, h := range hashes {
		info, err := l.repo.ReadCommit(ctx, h.String())
		if err != nil {
			return nil, fmt.Errorf("read snapshot %s: %w", h, err)
		}
		details = append(details, decodeDetails(info))
	}
	return details, nil
}

// Get reads a single snapshot's details by its commit hash.
func (l *Log) Get(ctx context.Context, commit git.Hash) (SnapshotDetails, error) {
	info, err := l.repo.ReadCommit(ctx, commit.String())
	if err != nil {
		return SnapshotDetails{}, fmt.Errorf("read snapshot %s: %w", commit, err)
	}
	return decodeDetails(info), nil
}

// Prune keeps only the keepLast most-recent snapshots, discarding the
// rest by rewriting the kept snapshots (same trees and messages) as a
// new chain whose oldest commit has no parent (the snapshots dropped
// are never individually deleted from the object database — Git's own
// gc reclaims them once unreferenced — matching the spec's "never
// deleted by normal operation" for the snapshots kept, while bounding
// the ref's own history length).
func (l *Log) Prune(ctx context.Context, keepLast int) error {
	if keepLast <= 0 {
		return fmt.Errorf("oplog: keepLast must be positive")
	}

	head, err := l.Head(ctx)
	if err != nil {
		return err
	}
	if head.IsZero() {
		return nil
	}

	hashes, err := l.repo.RevList(ctx, head.String(), "")
	if err != nil {
		return fmt.Errorf("walk oplog: %w", err)
	}
	if len(hashes) <= keepLast {
		return nil
	}

	var newTip git.Hash
	for i := keepLast - 1; i >= 0; i-- {
		info, err := l.repo.ReadCommit(ctx, hashes[i].String())
		if err != nil {
			return fmt.Errorf("read kept snapshot %s: %w", hashes[i], err)
		}
		req := git.CommitTreeRequest{Tree: info.Tree, Message: info.Subject + "\n\n" + info.Body}
		if !newTip.IsZero() {
			req.Parents = []git.Hash{newTip}
		}
		if newTip, err = l.repo.CommitTree(ctx, req); err != nil {
			return fmt.Errorf("rewrite kept snapshot %s: %w", hashes[i], err)
		}
	}

	if err := l.repo.SetRef(ctx, git.SetRefRequest{Ref: l.ref, Hash: newTip, OldHash: head}); err != nil {
		return fmt.Errorf("update oplog ref: %w", err)
	}
	return nil
}
