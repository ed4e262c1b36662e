package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.gitbutler.dev/core/internal/config"
	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/oplog"
	"go.gitbutler.dev/core/internal/status"
	"go.gitbutler.dev/core/internal/worktree"
)

type snapshotCmd struct {
	Create  snapshotCreateCmd  `cmd:"" help:"Record a snapshot of the current worktree, index, refs, and metadata"`
	List    snapshotListCmd    `cmd:"" help:"List recorded snapshots, newest first"`
	Resolve snapshotResolveCmd `cmd:"" help:"Resolve a snapshot against the current worktree without materializing it"`
}

type snapshotCreateCmd struct {
	Operation string `arg:"" help:"name of the operation this snapshot brackets"`
}

func (cmd *snapshotCreateCmd) Run(ctx context.Context, repo *git.Repository, cfg *config.Config, lock *worktree.Lock, stdout io.Writer) error {
	if err := lock.Acquire(); err != nil {
		return err
	}
	defer lock.Release() //nolint:errcheck

	dataDir := privateDataDir(repo)
	// The ref-metadata store persists itself to this path on every
	// Set/Remove; the snapshot just captures its current bytes, tolerant
	// of the store never having been written yet.
	metaBytes, err := os.ReadFile(dataDir + "/refs-metadata.toml")
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("read ref metadata: %w", err)
	}

	head, err := repo.PeelToTree(ctx, "HEAD")
	if err != nil {
		return fmt.Errorf("resolve HEAD: %w", err)
	}
	wtTree, err := status.WorktreeTreeID(ctx, repo, cfg.UntrackedLimitBytes)
	if err != nil {
		return fmt.Errorf("worktree_tree_id: %w", err)
	}
	indexTree, err := repo.IndexToTree(ctx)
	if err != nil {
		return fmt.Errorf("index_to_tree: %w", err)
	}

	log := oplog.Open(repo, oplog.Options{})
	hash, err := log.Create(ctx, oplog.CreateRequest{
		Operation: cmd.Operation,
		Worktree:  wtTree,
		Head:      head,
		Index:     indexTree,
		Metadata:  metaBytes,
	})
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}

	fmt.Fprintln(stdout, hash)
	return nil
}

type snapshotListCmd struct {
	Limit int `help:"maximum number of snapshots to list (0 = no limit)"`
}

func (cmd *snapshotListCmd) Run(ctx context.Context, repo *git.Repository, stdout io.Writer) error {
	log := oplog.Open(repo, oplog.Options{})
	details, err := log.List(ctx, cmd.Limit)
	if err != nil {
		return fmt.Errorf("list snapshots: %w", err)
	}
	for _, d := range details {
		fmt.Fprintf(stdout, "%s %s %s\n", d.Commit, d.Operation, d.Age())
	}
	return nil
}

type snapshotResolveCmd struct {
	Snapshot string `arg:"" help:"snapshot commit to resolve"`
}

func (cmd *snapshotResolveCmd) Run(ctx context.Context, repo *git.Repository, cfg *config.Config, stdout io.Writer) error {
	wtTree, err := status.WorktreeTreeID(ctx, repo, cfg.UntrackedLimitBytes)
	if err != nil {
		return fmt.Errorf("worktree_tree_id: %w", err)
	}

	log := oplog.Open(repo, oplog.Options{})
	snapshotHash, err := repo.PeelToCommit(ctx, cmd.Snapshot)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", cmd.Snapshot, err)
	}

	resolved, err := log.Resolve(ctx, oplog.ResolveRequest{
		Snapshot:           snapshotHash,
		TargetWorktreeTree: wtTree,
		Mode:               oplog.AllowMarkers,
	})
	if err != nil {
		return fmt.Errorf("resolve snapshot: %w", err)
	}

	fmt.Fprintf(stdout, "worktree: %s (conflicts: %t)\n", resolved.Worktree, resolved.HasConflicts)
	fmt.Fprintf(stdout, "index: %s (%d conflicted path(s))\n", resolved.Index, len(resolved.IndexConflicts))
	fmt.Fprintf(stdout, "refs: %d edit(s)\n", len(resolved.Refs))
	fmt.Fprintln(stdout, "run `git read-tree` / `git checkout` against the printed trees to materialize this snapshot")
	return nil
}
