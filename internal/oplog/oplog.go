// Package oplog implements the Oplog / Snapshot Engine (C9): a
// content-addressed snapshot of worktree, index (including conflicted
// stages), workspace refs, and ref-metadata, stored as Git trees on a
// dedicated ref, with a restore operation that reconstructs all four.
package oplog

import (
	"context"
	"fmt"

	"go.abhg.dev/log/silog"
	"go.gitbutler.dev/core/internal/git"
)

// DefaultRef is the ref the oplog is kept on, absent an override (spec
// §6 "oplog/HEAD"). Mirrors the teacher's convention of a dedicated
// namespace under refs/ for engine-private state.
const DefaultRef = "refs/gitbutler/oplog/HEAD"

// Version is the current snapshot commit trailer schema version (spec
// §6 "Snapshot commit contract").
const Version = 1

// Tree entry names within a snapshot commit's tree (spec §3 "Snapshot
// Tree").
const (
	entryHEAD           = "HEAD"
	entryWorktree       = "worktree"
	entryIndex          = "index"
	entryIndexConflicts = "index-conflicts"
	entryRefs           = "refs"
	entryMetadata       = "metadata"
)

// Log is a handle to the oplog ref of one repository.
type Log struct {
	repo *git.Repository
	ref  string
	log  *silog.Logger
}

// Options configures Open.
type Options struct {
	// Ref overrides DefaultRef.
	Ref string
	Log *silog.Logger
}

// Open returns a handle to repo's oplog, on Ref (or DefaultRef).
func Open(repo *git.Repository, opts Options) *Log {
	if opts.Ref == "" {
		opts.Ref = DefaultRef
	}
	if opts.Log == nil {
		opts.Log = silog.Nop()
	}
	return &Log{repo: repo, ref: opts.Ref, log: opts.Log}
}

// Head returns the current tip of the oplog, or git.ZeroHash if no
// snapshot has ever been recorded.
func (l *Log) Head(ctx context.Context) (git.Hash, error) {
	h, err := l.repo.ReadRef(ctx, l.ref)
	if err != nil {
		if err == git.ErrNotExist {
			return git.ZeroHash, nil
		}
		return git.ZeroHash, fmt.Errorf("read oplog ref: %w", err)
	}
	return h, nil
}
