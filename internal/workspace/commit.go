// Package workspace implements the Workspace Commit Manager (C8): the
// synthetic merge commit whose parents are every applied stack's tip,
// and reconciliation of commits a user makes directly on top of it.
package workspace

import (
	"context"
	"fmt"
	"strings"

	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/model"
)

// Title is the fixed first line every workspace commit's message starts
// with; readers MUST recognize workspace commits by this prefix, never
// by tree shape (spec §6).
const Title = "GitButler Workspace Commit"

// BuildRequest is the input to Build.
type BuildRequest struct {
	Stacks []model.Stack

	Author, Committer *git.Signature
	Sign              bool
}

// Build constructs the workspace commit for the given stacks, in
// metadata-declared order (spec §4.8, §6). With fewer than two stacks
// the tree is simply the sole stack's tip tree (a "placeholder" merge);
// two or more are combined by iteratively 3-way-merging each next tip's
// tree against the accumulated tree, using the merge-base of the two
// underlying tip commits as the 3-way base.
func Build(ctx context.Context, repo *git.Repository, req BuildRequest) (git.Hash, error) {
	if len(req.Stacks) == 0 {
		return git.ZeroHash, fmt.Errorf("workspace: no stacks to build a workspace commit from")
	}

	tips := make([]git.Hash, len(req.Stacks))
	for i, s := range req.Stacks {
		tips[i] = s.Tip()
		if tips[i].IsZero() {
			return git.ZeroHash, fmt.Errorf("workspace: stack %s has no tip commit", s.ID)
		}
	}

	accTree, err := repo.PeelToTree(ctx, tips[0].String())
	if err != nil {
		return git.ZeroHash, fmt.Errorf("peel tip %s to tree: %w", tips[0], err)
	}
	accCommit := tips[0]

	for _, tip := range tips[1:] {
		theirsTree, err := repo.PeelToTree(ctx, tip.String())
		if err != nil {
			return git.ZeroHash, fmt.Errorf("peel tip %s to tree: %w", tip, err)
		}

		base, err := repo.FindMergeBase(ctx, accCommit.String(), tip.String())
		if err != nil {
			base = git.EmptyTreeHash
		} else {
			baseTree, err := repo.PeelToTree(ctx, base.String())
			if err != nil {
				return git.ZeroHash, fmt.Errorf("peel merge-base %s to tree: %w", base, err)
			}
			base = baseTree
		}

		merged, _, err := repo.MergeTrees(ctx, git.MergeTreesRequest{
			Base:   base,
			Ours:   accTree,
			Theirs: theirsTree,
		})
		if err != nil {
			return git.ZeroHash, fmt.Errorf("octopus-merge stack tips: %w", err)
		}
		accTree = merged
		accCommit = tip
	}

	commit, err := repo.CommitTree(ctx, git.CommitTreeRequest{
		Tree:      accTree,
		Message:   message(req.Stacks),
		Parents:   tips,
		Author:    req.Author,
		Committer: req.Committer,
		Sign:      req.Sign,
	})
	if err != nil {
		return git.ZeroHash, fmt.Errorf("commit workspace tree: %w", err)
	}
	return commit, nil
}

func message(stacks []model.Stack) string {
	var b strings.Builder
	b.WriteString(Title)
	b.WriteString("\n\n")
	for _, s := range stacks {
		ref := "(anonymous)"
		if len(s.Segments) > 0 && s.Segments[0].RefName != "" {
			ref = s.Segments[0].RefName
		}
		fmt.Fprintf(&b, "%s: %s\n", ref, s.Tip())
	}
	return b.String()
}

// IsWorkspaceCommit reports whether message names a workspace commit, by
// its fixed title prefix (spec §6 "Recognition").
func IsWorkspaceCommit(message string) bool {
	return strings.HasPrefix(message, Title)
}
