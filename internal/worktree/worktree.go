// Package worktree implements the Worktree Manager (C11): creating and
// listing auxiliary worktrees bound to a reference, and integrating a
// worktree's commits onto a target ref via the rebase engine (spec
// §4.11).
package worktree

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"go.gitbutler.dev/core/internal/git"
	"gopkg.in/yaml.v3"
)

// sidecarName is a small per-worktree document recording the reference
// it is bound to and the ref it was created from; `git worktree list`
// alone only reports the branch currently checked out; it does not
// distinguish "bound to" from "created from" once that branch moves.
const sidecarName = ".gitbutler-worktree.yaml"

type sidecarDoc struct {
	Reference      string `yaml:"reference"`
	CreatedFromRef string `yaml:"created_from_ref"`
}

// Worktree is one auxiliary worktree bound to a reference.
type Worktree struct {
	Path           string
	Reference      string
	CreatedFromRef string
}

// NewRequest is the input to New.
type NewRequest struct {
	// Path is the filesystem location of the new worktree.
	Path string
	// Reference is an existing local branch to check out there.
	Reference string
}

// New creates a worktree at req.Path checked out to req.Reference
// (spec §4.11 `worktree_new`).
func New(ctx context.Context, repo *git.Repository, req NewRequest) (Worktree, error) {
	if err := repo.AddWorktree(ctx, git.AddWorktreeRequest{Path: req.Path, Branch: req.Reference}); err != nil {
		return Worktree{}, fmt.Errorf("worktree_new: %w", err)
	}

	wt := Worktree{Path: req.Path, Reference: req.Reference, CreatedFromRef: req.Reference}
	if err := writeSidecar(req.Path, wt); err != nil {
		return Worktree{}, fmt.Errorf("worktree_new: %w", err)
	}
	return wt, nil
}

// List returns every worktree attached to the repository, the primary
// one included (spec §4.11 `worktree_list`).
func List(ctx context.Context, repo *git.Repository) ([]Worktree, error) {
	infos, err := repo.ListWorktrees(ctx)
	if err != nil {
		return nil, fmt.Errorf("worktree_list: %w", err)
	}

	out := make([]Worktree, len(infos))
	for i, info := range infos {
		wt := Worktree{Path: info.Path, Reference: info.Branch}
		if doc, err := readSidecar(info.Path); err == nil {
			wt.Reference = doc.Reference
			wt.CreatedFromRef = doc.CreatedFromRef
		}
		out[i] = wt
	}
	return out, nil
}

func writeSidecar(path string, wt Worktree) error {
	out, err := yaml.Marshal(sidecarDoc{Reference: wt.Reference, CreatedFromRef: wt.CreatedFromRef})
	if err != nil {
		return fmt.Errorf("marshal worktree metadata: %w", err)
	}
	if err := os.WriteFile(filepath.Join(path, sidecarName), out, 0o644); err != nil {
		return fmt.Errorf("write worktree metadata: %w", err)
	}
	return nil
}

func readSidecar(path string) (sidecarDoc, error) {
	data, err := os.ReadFile(filepath.Join(path, sidecarName))
	if err != nil {
		return sidecarDoc{}, err
	}
	var doc sidecarDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return sidecarDoc{}, fmt.Errorf("unmarshal worktree metadata: %w", err)
	}
	return doc, nil
}
