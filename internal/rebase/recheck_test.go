package rebase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/gittest"
	"go.gitbutler.dev/core/internal/rebase"
)

// TestRecheckConflict_resolvesOnceUpstreamMatches builds a cherry-pick
// that conflicts, then rechecks it against an onto tree that already
// carries the same change the pick wanted to make — the conflict
// should disappear, the way it would once the stack below a conflicted
// commit picks up the fix it was waiting on.
func TestRecheckConflict_resolvesOnceUpstreamMatches(t *testing.T) {
	ctx := context.Background()
	repo := gittest.NewRepo(t)
	dir := repo.Root()

	gittest.WriteFile(t, dir, "f", "base\n")
	gittest.Run(t, dir, "add", "f")
	gittest.Run(t, dir, "commit", "-q", "-m", "base")
	baseC := commit(t, ctx, repo, "HEAD")

	gittest.WriteFile(t, dir, "f", "base\ntheirs\n")
	gittest.Run(t, dir, "add", "f")
	gittest.Run(t, dir, "commit", "-q", "-m", "theirs")
	theirsC := commit(t, ctx, repo, "HEAD")

	gittest.WriteFile(t, dir, "f", "base\nours\n")
	gittest.Run(t, dir, "add", "f")
	gittest.Run(t, dir, "commit", "-q", "-m", "ours")
	oursC := commit(t, ctx, repo, "HEAD")

	result, err := rebase.CherryPick(ctx, repo, theirsC, mustTree(t, ctx, repo, oursC), rebase.Tolerant)
	require.NoError(t, err)
	require.NotNil(t, result.Conflicted, "diverging edits to the same line must conflict")

	rechecked, err := rebase.RecheckConflict(ctx, repo, result.Conflicted, result.Conflicted.Theirs, rebase.Tolerant)
	require.NoError(t, err)
	assert.Nil(t, rechecked.Conflicted, "onto == theirs must resolve cleanly")
	assert.Equal(t, result.Conflicted.Theirs, rechecked.Tree)
}

func TestRecheckConflict_stillConflictedFailsFast(t *testing.T) {
	ctx := context.Background()
	repo := gittest.NewRepo(t)
	dir := repo.Root()

	gittest.WriteFile(t, dir, "f", "base\n")
	gittest.Run(t, dir, "add", "f")
	gittest.Run(t, dir, "commit", "-q", "-m", "base")

	gittest.WriteFile(t, dir, "f", "base\ntheirs\n")
	gittest.Run(t, dir, "add", "f")
	gittest.Run(t, dir, "commit", "-q", "-m", "theirs")
	theirsC := commit(t, ctx, repo, "HEAD")

	gittest.WriteFile(t, dir, "f", "base\nours\n")
	gittest.Run(t, dir, "add", "f")
	gittest.Run(t, dir, "commit", "-q", "-m", "ours")
	oursC := commit(t, ctx, repo, "HEAD")

	result, err := rebase.CherryPick(ctx, repo, theirsC, mustTree(t, ctx, repo, oursC), rebase.Tolerant)
	require.NoError(t, err)
	require.NotNil(t, result.Conflicted)

	_, err = rebase.RecheckConflict(ctx, repo, result.Conflicted, result.Conflicted.Ours, rebase.FailFast)
	assert.ErrorIs(t, err, git.ErrMergeConflict, "recheck against the same unresolved onto must still conflict")
}

func mustTree(t testing.TB, ctx context.Context, repo *git.Repository, commit git.Hash) git.Hash {
	t.Helper()
	info, err := repo.ReadCommit(ctx, commit.String())
	require.NoError(t, err)
	return info.Tree
}
