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

func commit(t testing.TB, ctx context.Context, repo *git.Repository, name string) git.Hash {
	t.Helper()
	h, err := repo.PeelToCommit(ctx, name)
	require.NoError(t, err)
	return h
}

// Scenario D (spec §8): base→a→b→c; dropping b via [Pick(a), Skip(b),
// Pick(c)] leaves a unchanged, c re-signed (new hash, message
// preserved), and b absent from the result.
func TestExecute_scenarioD_dropMiddleCommit(t *testing.T) {
	ctx := context.Background()
	repo := gittest.NewRepo(t)
	dir := repo.Root()

	gittest.WriteFile(t, dir, "f", "base\n")
	gittest.Run(t, dir, "add", "f")
	gittest.Run(t, dir, "commit", "-q", "-m", "base")
	baseC := commit(t, ctx, repo, "HEAD")

	gittest.WriteFile(t, dir, "f", "base\na\n")
	gittest.Run(t, dir, "add", "f")
	gittest.Run(t, dir, "commit", "-q", "-m", "a")
	aC := commit(t, ctx, repo, "HEAD")

	gittest.WriteFile(t, dir, "g", "b\n")
	gittest.Run(t, dir, "add", "g")
	gittest.Run(t, dir, "commit", "-q", "-m", "b")
	bC := commit(t, ctx, repo, "HEAD")

	gittest.WriteFile(t, dir, "f", "base\na\nc\n")
	gittest.Run(t, dir, "add", "f")
	gittest.Run(t, dir, "commit", "-q", "-m", "c")
	cC := commit(t, ctx, repo, "HEAD")

	result, err := rebase.Execute(ctx, repo, baseC, []rebase.RebaseStep{
		rebase.Pick(aC),
		rebase.Skip(bC),
		rebase.Pick(cC),
	}, rebase.Options{})
	require.NoError(t, err)

	require.Len(t, result.CommitMapping, 2)
	assert.Equal(t, aC, result.CommitMapping[0].Old)
	assert.Equal(t, aC, result.CommitMapping[0].New, "a's cherry-pick onto its own unchanged parent must reproduce an identical commit")
	assert.Equal(t, cC, result.CommitMapping[1].Old)
	assert.NotEqual(t, cC, result.CommitMapping[1].New, "c must be re-committed with a new parent, hence a new hash")

	newCInfo, err := repo.ReadCommit(ctx, result.CommitMapping[1].New.String())
	require.NoError(t, err)
	assert.Equal(t, "c", newCInfo.Subject)

	hash, err := repo.HashAt(ctx, result.Tip.String(), "f")
	require.NoError(t, err)
	content, err := repo.ReadObjectBytes(ctx, git.BlobType, hash)
	require.NoError(t, err)
	assert.Equal(t, "base\na\nc\n", string(content))
}

func TestExecute_rebaseNoopsDropped(t *testing.T) {
	ctx := context.Background()
	repo := gittest.NewRepo(t)
	dir := repo.Root()

	gittest.WriteFile(t, dir, "f", "base\n")
	gittest.Run(t, dir, "add", "f")
	gittest.Run(t, dir, "commit", "-q", "-m", "base")
	baseC := commit(t, ctx, repo, "HEAD")

	gittest.WriteFile(t, dir, "f", "base\na\n")
	gittest.Run(t, dir, "add", "f")
	gittest.Run(t, dir, "commit", "-q", "-m", "a")
	aC := commit(t, ctx, repo, "HEAD")

	result, err := rebase.Execute(ctx, repo, aC, []rebase.RebaseStep{rebase.Pick(aC)}, rebase.Options{RebaseNoops: false})
	require.NoError(t, err)
	assert.Empty(t, result.CommitMapping, "re-picking a commit already applied at the tip produces no change and must be dropped")
	assert.Equal(t, aC, result.Tip)

	resultKept, err := rebase.Execute(ctx, repo, aC, []rebase.RebaseStep{rebase.Pick(aC)}, rebase.Options{RebaseNoops: true})
	require.NoError(t, err)
	require.Len(t, resultKept.CommitMapping, 1)

	_ = baseC
}
