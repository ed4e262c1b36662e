package main

import (
	"context"
	"fmt"
	"io"

	"go.gitbutler.dev/core/internal/config"
	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/status"
)

type statusCmd struct{}

func (*statusCmd) Run(ctx context.Context, repo *git.Repository, cfg *config.Config, stdout io.Writer) error {
	changes, ignored, err := status.ChangesInWorktree(ctx, repo)
	if err != nil {
		return fmt.Errorf("status: %w", err)
	}

	for _, c := range changes {
		fmt.Fprintf(stdout, "%d %s\n", c.Kind, c.Path)
	}
	if len(ignored) > 0 {
		fmt.Fprintf(stdout, "%d ignored path(s)\n", len(ignored))
	}

	tree, err := status.WorktreeTreeID(ctx, repo, cfg.UntrackedLimitBytes)
	if err != nil {
		return fmt.Errorf("worktree_tree_id: %w", err)
	}
	fmt.Fprintf(stdout, "worktree tree: %s\n", tree)
	return nil
}
