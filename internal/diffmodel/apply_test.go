package diffmodel_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.gitbutler.dev/core/internal/diffmodel"
	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/gittest"
	"go.gitbutler.dev/core/internal/model"
)

func TestApplySpecs_wholeFile(t *testing.T) {
	ctx := context.Background()
	repo := gittest.NewRepo(t)
	dir := repo.Root()

	gittest.WriteFile(t, dir, "a.txt", "one\ntwo\nthree\n")
	gittest.Run(t, dir, "add", "a.txt")
	gittest.Run(t, dir, "commit", "-q", "-m", "base")
	baseTree, err := repo.PeelToTree(ctx, "HEAD")
	require.NoError(t, err)

	gittest.WriteFile(t, dir, "a.txt", "one\ntwo\nthree\nfour\n")
	gittest.Run(t, dir, "add", "a.txt")
	gittest.Run(t, dir, "commit", "-q", "-m", "source")
	sourceTree, err := repo.PeelToTree(ctx, "HEAD")
	require.NoError(t, err)

	newTree, rejected, err := diffmodel.ApplySpecs(ctx, repo, baseTree, sourceTree, []model.DiffSpec{
		{Path: "a.txt"},
	})
	require.NoError(t, err)
	assert.Empty(t, rejected)

	hash, err := repo.HashAt(ctx, newTree.String(), "a.txt")
	require.NoError(t, err)
	content, err := repo.ReadObjectBytes(ctx, git.BlobType, hash)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\nthree\nfour\n", string(content))
}

func TestApplySpecs_singleHunk(t *testing.T) {
	ctx := context.Background()
	repo := gittest.NewRepo(t)
	dir := repo.Root()

	gittest.WriteFile(t, dir, "a.txt", "1\n2\n3\n4\n5\n")
	gittest.Run(t, dir, "add", "a.txt")
	gittest.Run(t, dir, "commit", "-q", "-m", "base")
	baseTree, err := repo.PeelToTree(ctx, "HEAD")
	require.NoError(t, err)

	gittest.WriteFile(t, dir, "a.txt", "1\n2\nX\n4\nY\n")
	gittest.Run(t, dir, "add", "a.txt")
	gittest.Run(t, dir, "commit", "-q", "-m", "source")
	sourceTree, err := repo.PeelToTree(ctx, "HEAD")
	require.NoError(t, err)

	base, err := repo.ReadObjectBytes(ctx, git.BlobType, mustHashAt(t, repo, baseTree, "a.txt"))
	require.NoError(t, err)
	source, err := repo.ReadObjectBytes(ctx, git.BlobType, mustHashAt(t, repo, sourceTree, "a.txt"))
	require.NoError(t, err)

	hunks := diffmodel.HunksFromBlobs(base, source, 0)
	require.Len(t, hunks, 2)

	// Apply only the first hunk (line 3: "3" -> "X"); the second
	// change (line 5: "5" -> "Y") must not take effect.
	newTree, rejected, err := diffmodel.ApplySpecs(ctx, repo, baseTree, sourceTree, []model.DiffSpec{
		{Path: "a.txt", HunkHeaders: hunks[:1]},
	})
	require.NoError(t, err)
	assert.Empty(t, rejected)

	content, err := repo.ReadObjectBytes(ctx, git.BlobType, mustHashAt(t, repo, newTree, "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "1\n2\nX\n4\n5\n", string(content))
}

func TestApplySpecs_driftedHunkRejected(t *testing.T) {
	ctx := context.Background()
	repo := gittest.NewRepo(t)
	dir := repo.Root()

	gittest.WriteFile(t, dir, "a.txt", "1\n2\n3\n")
	gittest.Run(t, dir, "add", "a.txt")
	gittest.Run(t, dir, "commit", "-q", "-m", "base")
	baseTree, err := repo.PeelToTree(ctx, "HEAD")
	require.NoError(t, err)

	gittest.WriteFile(t, dir, "a.txt", "1\n2\nX\n")
	gittest.Run(t, dir, "add", "a.txt")
	gittest.Run(t, dir, "commit", "-q", "-m", "source")
	sourceTree, err := repo.PeelToTree(ctx, "HEAD")
	require.NoError(t, err)

	_, rejected, err := diffmodel.ApplySpecs(ctx, repo, baseTree, sourceTree, []model.DiffSpec{
		{Path: "a.txt", HunkHeaders: []model.HunkHeader{
			{OldStart: 99, OldLines: 1, NewStart: 99, NewLines: 1},
		}},
	})
	require.NoError(t, err)
	require.Len(t, rejected, 1)
	assert.Equal(t, "a.txt", rejected[0].Path)
}

func mustHashAt(t *testing.T, repo *git.Repository, tree git.Hash, path string) git.Hash {
	t.Helper()
	hash, err := repo.HashAt(context.Background(), tree.String(), path)
	require.NoError(t, err)
	return hash
}
