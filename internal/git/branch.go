package git

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrDetachedHead is returned when the repository is expected to be on a
// branch but HEAD is detached.
var ErrDetachedHead = errors.New("in detached HEAD state")

// CurrentBranch returns the name of the currently checked out branch.
func (r *Repository) CurrentBranch(ctx context.Context) (string, error) {
	out, err := r.gitCmd(ctx, "symbolic-ref", "--short", "-q", "HEAD").OutputString(r.exec)
	if err != nil {
		if isExitError(err) {
			return "", ErrDetachedHead
		}
		return "", fmt.Errorf("symbolic-ref: %w", err)
	}
	return out, nil
}

// LocalBranches lists the names of local branches.
func (r *Repository) LocalBranches(ctx context.Context) ([]string, error) {
	out, err := r.gitCmd(ctx, "for-each-ref", "--format=%(refname:short)", "refs/heads/").OutputString(r.exec)
	if err != nil {
		return nil, fmt.Errorf("for-each-ref: %w", err)
	}

	var branches []string
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			branches = append(branches, line)
		}
	}
	return branches, scanner.Err()
}

// WorktreeInfo is one entry of `git worktree list`.
type WorktreeInfo struct {
	Path   string
	Branch string // short branch name, or "" if detached/bare
	Head   Hash
}

// ListWorktrees lists all worktrees attached to the repository,
// including the primary one, backing C11's worktree manager.
func (r *Repository) ListWorktrees(ctx context.Context) ([]WorktreeInfo, error) {
	out, err := r.gitCmd(ctx, "worktree", "list", "--porcelain").OutputString(r.exec)
	if err != nil {
		return nil, fmt.Errorf("worktree list: %w", err)
	}

	var worktrees []WorktreeInfo
	var cur WorktreeInfo
	flush := func() {
		if cur.Path != "" {
			worktrees = append(worktrees, cur)
		}
		cur = WorktreeInfo{}
	}

	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "worktree "):
			cur.Path = strings.TrimPrefix(line, "worktree ")
		case strings.HasPrefix(line, "HEAD "):
			cur.Head = Hash(strings.TrimPrefix(line, "HEAD "))
		case strings.HasPrefix(line, "branch "):
			cur.Branch = strings.TrimPrefix(strings.TrimPrefix(line, "branch "), "refs/heads/")
		}
	}
	flush()

	return worktrees, scanner.Err()
}

// AddWorktreeRequest adds a new worktree.
type AddWorktreeRequest struct {
	Path   string
	Branch string // existing branch to check out; required
}

// AddWorktree creates a new worktree at req.Path checked out to
// req.Branch.
func (r *Repository) AddWorktree(ctx context.Context, req AddWorktreeRequest) error {
	if err := r.gitCmd(ctx, "worktree", "add", req.Path, req.Branch).Run(r.exec); err != nil {
		return fmt.Errorf("worktree add: %w", err)
	}
	return nil
}

// RemoveWorktree removes the worktree at path.
func (r *Repository) RemoveWorktree(ctx context.Context, path string, force bool) error {
	args := []string{"worktree", "remove"}
	if force {
		args = append(args, "--force")
	}
	args = append(args, path)
	if err := r.gitCmd(ctx, args...).Run(r.exec); err != nil {
		return fmt.Errorf("worktree remove: %w", err)
	}
	return nil
}
