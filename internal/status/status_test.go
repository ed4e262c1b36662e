package status_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/gittest"
	"go.gitbutler.dev/core/internal/model"
	"go.gitbutler.dev/core/internal/status"
)

func TestChangesInWorktree_untrackedAddition(t *testing.T) {
	ctx := context.Background()
	repo := gittest.NewRepo(t)
	dir := repo.Root()

	gittest.WriteFile(t, dir, "base.txt", "x\n")
	gittest.Run(t, dir, "add", "base.txt")
	gittest.Run(t, dir, "commit", "-q", "-m", "base")

	gittest.WriteFile(t, dir, "new.txt", "hello\n")

	changes, ignored, err := status.ChangesInWorktree(ctx, repo)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Empty(t, ignored)
	assert.Equal(t, model.ChangeAddition, changes[0].Kind)
	assert.Equal(t, "new.txt", changes[0].Path)
	assert.True(t, changes[0].IsUntracked)
}

func TestChangesInWorktree_worktreeOverridesIndex(t *testing.T) {
	ctx := context.Background()
	repo := gittest.NewRepo(t)
	dir := repo.Root()

	gittest.WriteFile(t, dir, "a.txt", "1\n")
	gittest.Run(t, dir, "add", "a.txt")
	gittest.Run(t, dir, "commit", "-q", "-m", "base")

	// Staged change, then a further unstaged edit on top.
	gittest.WriteFile(t, dir, "a.txt", "2\n")
	gittest.Run(t, dir, "add", "a.txt")
	gittest.WriteFile(t, dir, "a.txt", "3\n")

	changes, ignored, err := status.ChangesInWorktree(ctx, repo)
	require.NoError(t, err)
	require.Len(t, changes, 1)
	assert.Equal(t, model.ChangeModification, changes[0].Kind)
	require.Len(t, ignored, 1)
	assert.Equal(t, model.IgnoredTreeIndex, ignored[0].Kind)
	assert.Equal(t, "a.txt", ignored[0].Path)
}

// TestChangesInWorktree_renameSplitsIntoDeletionAndAddition verifies
// spec.md's "renames come only from tree-to-tree diffs" rule: a staged
// rename git status itself recognizes and scores must still surface as
// a plain deletion of the old path plus an addition of the new one,
// never as a single ChangeRename.
func TestChangesInWorktree_renameSplitsIntoDeletionAndAddition(t *testing.T) {
	ctx := context.Background()
	repo := gittest.NewRepo(t)
	dir := repo.Root()

	gittest.WriteFile(t, dir, "old.txt", "identical content that is long enough to score as a rename\n")
	gittest.Run(t, dir, "add", "old.txt")
	gittest.Run(t, dir, "commit", "-q", "-m", "base")

	gittest.Run(t, dir, "mv", "old.txt", "new.txt")

	changes, _, err := status.ChangesInWorktree(ctx, repo)
	require.NoError(t, err)

	for _, c := range changes {
		assert.NotEqual(t, model.ChangeRename, c.Kind, "status must never synthesize a rename")
	}

	var sawDeletion, sawAddition bool
	for _, c := range changes {
		switch {
		case c.Kind == model.ChangeDeletion && c.Path == "old.txt":
			sawDeletion = true
		case c.Kind == model.ChangeAddition && c.Path == "new.txt":
			sawAddition = true
		}
	}
	assert.True(t, sawDeletion, "expected a deletion of old.txt, got %+v", changes)
	assert.True(t, sawAddition, "expected an addition of new.txt, got %+v", changes)
}

func TestWorktreeTreeID_includesUntrackedUnderLimit(t *testing.T) {
	ctx := context.Background()
	repo := gittest.NewRepo(t)
	dir := repo.Root()

	gittest.WriteFile(t, dir, "base.txt", "x\n")
	gittest.Run(t, dir, "add", "base.txt")
	gittest.Run(t, dir, "commit", "-q", "-m", "base")

	gittest.WriteFile(t, dir, "new.txt", "hello\n")

	tree, err := status.WorktreeTreeID(ctx, repo, 1<<20)
	require.NoError(t, err)

	hash, err := repo.HashAt(ctx, tree.String(), "new.txt")
	require.NoError(t, err)
	content, err := repo.ReadObjectBytes(ctx, git.BlobType, hash)
	require.NoError(t, err)
	assert.Equal(t, "hello\n", string(content))
}

func TestWorktreeTreeID_excludesOversizedUntracked(t *testing.T) {
	ctx := context.Background()
	repo := gittest.NewRepo(t)
	dir := repo.Root()

	gittest.WriteFile(t, dir, "base.txt", "x\n")
	gittest.Run(t, dir, "add", "base.txt")
	gittest.Run(t, dir, "commit", "-q", "-m", "base")

	gittest.WriteFile(t, dir, "big.txt", "0123456789")

	tree, err := status.WorktreeTreeID(ctx, repo, 4)
	require.NoError(t, err)

	_, err = repo.HashAt(ctx, tree.String(), "big.txt")
	assert.ErrorIs(t, err, git.ErrNotExist)
}
