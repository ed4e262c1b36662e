package git

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"strings"
)

// MergeTreesRequest is a 3-way merge of trees.
type MergeTreesRequest struct {
	Base, Ours, Theirs Hash

	// Labels are used in conflict markers / rename detection messages.
	// All optional.
	BaseLabel, OursLabel, TheirsLabel string
}

// ErrMergeConflict is the error fail-fast callers of MergeTrees wrap
// when a merge conflicts. MergeTrees itself never returns it: it reports
// conflicts through its hasConflicts result, matching §4.1's
// `merge_trees(...) -> (tree, has_conflicts)` signature.
var ErrMergeConflict = errors.New("merge conflict")

// MergeTrees performs a 3-way merge of three trees and returns the
// resulting tree along with whether it contains unresolved conflicts.
// Conflicted paths are represented in the resulting tree via a marker
// tree written by git's merge-tree machinery; conflicted blob bodies
// carry standard conflict markers.
func (r *Repository) MergeTrees(ctx context.Context, req MergeTreesRequest) (tree Hash, hasConflicts bool, err error) {
	args := []string{"merge-tree", "--write-tree", "--messages"}
	if req.BaseLabel != "" || req.OursLabel != "" || req.TheirsLabel != "" {
		args = append(args, "-L", or(req.OursLabel, "ours"), "-L", or(req.TheirsLabel, "theirs"))
	}
	args = append(args, "--merge-base", req.Base.String(), req.Ours.String(), req.Theirs.String())

	out, runErr := r.gitCmd(ctx, args...).OutputString(r.exec)
	if runErr != nil && !isExitError(runErr) {
		return ZeroHash, false, fmt.Errorf("merge-tree: %w", runErr)
	}

	lines := strings.SplitN(out, "\n", 2)
	if len(lines) == 0 || lines[0] == "" {
		return ZeroHash, false, fmt.Errorf("merge-tree: unexpected empty output")
	}
	tree = Hash(strings.TrimSpace(lines[0]))

	// A non-zero exit from `merge-tree --write-tree` means conflicts
	// were recorded (and resolved with markers) in the returned tree.
	hasConflicts = runErr != nil
	return tree, hasConflicts, nil
}

func or(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// FindMergeBase finds the best common ancestor of a and b.
func (r *Repository) FindMergeBase(ctx context.Context, a, b string) (Hash, error) {
	out, err := r.gitCmd(ctx, "merge-base", a, b).OutputString(r.exec)
	if err != nil {
		if isExitError(err) {
			return ZeroHash, fmt.Errorf("no merge base between %s and %s: %w", a, b, ErrNotExist)
		}
		return ZeroHash, fmt.Errorf("merge-base: %w", err)
	}
	return Hash(out), nil
}

// IsAncestor reports whether ancestor is an ancestor of (or equal to)
// descendant.
func (r *Repository) IsAncestor(ctx context.Context, ancestor, descendant string) (bool, error) {
	err := r.gitCmd(ctx, "merge-base", "--is-ancestor", ancestor, descendant).Run(r.exec)
	if err == nil {
		return true, nil
	}
	if isExitError(err) {
		return false, nil
	}
	return false, fmt.Errorf("is-ancestor: %w", err)
}

// RevList lists commit hashes reachable from start but not from stop (if
// stop is non-empty), oldest-last (Git's default order), mirroring C1's
// `revwalk(head, stop_at?)`.
func (r *Repository) RevList(ctx context.Context, start string, stop string) ([]Hash, error) {
	args := []string{"rev-list", start}
	if stop != "" {
		args = append(args, "^"+stop)
	}

	stdout, err := r.gitCmd(ctx, args...).OutputString(r.exec)
	if err != nil {
		return nil, fmt.Errorf("rev-list: %w", err)
	}

	var hashes []Hash
	scanner := bufio.NewScanner(strings.NewReader(stdout))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		hashes = append(hashes, Hash(line))
	}
	return hashes, scanner.Err()
}
