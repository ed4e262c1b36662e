package main

import (
	"context"
	"fmt"
	"io"

	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/worktree"
)

type worktreeCmd struct {
	New       worktreeNewCmd       `cmd:"" help:"Create a new worktree bound to a reference"`
	List      worktreeListCmd      `cmd:"" help:"List worktrees"`
	Status    worktreeStatusCmd    `cmd:"" help:"Show a worktree's integration status against a target ref"`
	Integrate worktreeIntegrateCmd `cmd:"" help:"Rebase a worktree's commits onto a target ref"`
}

type worktreeNewCmd struct {
	Path      string `arg:"" help:"filesystem path for the new worktree"`
	Reference string `arg:"" help:"existing local branch to check out there"`
}

func (cmd *worktreeNewCmd) Run(ctx context.Context, repo *git.Repository, lock *worktree.Lock, stdout io.Writer) error {
	if err := lock.Acquire(); err != nil {
		return err
	}
	defer lock.Release() //nolint:errcheck

	wt, err := worktree.New(ctx, repo, worktree.NewRequest{Path: cmd.Path, Reference: cmd.Reference})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "created %s (%s)\n", wt.Path, wt.Reference)
	return nil
}

type worktreeListCmd struct{}

func (*worktreeListCmd) Run(ctx context.Context, repo *git.Repository, stdout io.Writer) error {
	list, err := worktree.List(ctx, repo)
	if err != nil {
		return err
	}
	for _, wt := range list {
		fmt.Fprintf(stdout, "%s\t%s\t(from %s)\n", wt.Path, wt.Reference, wt.CreatedFromRef)
	}
	return nil
}

type worktreeStatusCmd struct {
	Reference string `arg:"" help:"the worktree's bound reference"`
	TargetRef string `arg:"" help:"target reference to check integration against"`
}

func (cmd *worktreeStatusCmd) Run(ctx context.Context, repo *git.Repository, stdout io.Writer) error {
	status, err := worktree.StatusOf(ctx, repo, worktree.Worktree{Reference: cmd.Reference}, cmd.TargetRef)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "status: %s\n", status.Kind)
	if status.Kind == worktree.Integratable {
		fmt.Fprintf(stdout, "cherry-pick conflicts: %v\n", status.CherryPickConflicts)
		fmt.Fprintf(stdout, "commits above conflict: %v\n", status.CommitsAboveConflict)
		fmt.Fprintf(stdout, "working dir conflicts: %t\n", status.WorkingDirConflicts)
	}
	return nil
}

type worktreeIntegrateCmd struct {
	Reference string `arg:"" help:"the worktree's bound reference"`
	TargetRef string `arg:"" help:"target reference to rebase onto"`
	Sign      bool   `help:"re-sign every picked commit"`
}

func (cmd *worktreeIntegrateCmd) Run(ctx context.Context, repo *git.Repository, lock *worktree.Lock, stdout io.Writer) error {
	if err := lock.Acquire(); err != nil {
		return err
	}
	defer lock.Release() //nolint:errcheck

	result, err := worktree.Integrate(ctx, repo, worktree.Worktree{Reference: cmd.Reference}, worktree.IntegrateRequest{
		TargetRef: cmd.TargetRef,
		Sign:      cmd.Sign,
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "new tip: %s (%d commit(s) replayed)\n", result.Tip, len(result.CommitMapping))
	return nil
}
