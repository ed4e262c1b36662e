package ops_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/gittest"
	"go.gitbutler.dev/core/internal/model"
	"go.gitbutler.dev/core/internal/ops"
)

func commitsOf(t testing.TB, ctx context.Context, repo *git.Repository, refs ...string) []model.Commit {
	t.Helper()
	var out []model.Commit
	for _, ref := range refs {
		info, err := repo.ReadCommit(ctx, ref)
		require.NoError(t, err)
		out = append(out, model.Commit{Hash: info.Hash, Subject: info.Subject})
	}
	return out
}

// Move a whole-file addition from an older commit to the stack's tip,
// within a single two-commit stack; neither commit is depended on by the
// other on an overlapping path, so no dependency blocker fires.
func TestMoveChangesBetweenCommits_sameStack(t *testing.T) {
	ctx := context.Background()
	repo := gittest.NewRepo(t)
	dir := repo.Root()

	gittest.WriteFile(t, dir, "base.txt", "base\n")
	gittest.Run(t, dir, "add", "base.txt")
	gittest.Run(t, dir, "commit", "-q", "-m", "base")

	gittest.WriteFile(t, dir, "moved.txt", "moved content\n")
	gittest.Run(t, dir, "add", "moved.txt")
	gittest.Run(t, dir, "commit", "-q", "-m", "source")

	gittest.WriteFile(t, dir, "other.txt", "other\n")
	gittest.Run(t, dir, "add", "other.txt")
	gittest.Run(t, dir, "commit", "-q", "-m", "dest")

	commits := commitsOf(t, ctx, repo, "HEAD~1", "HEAD")
	source, dest := commits[0], commits[1]

	result, err := ops.MoveChangesBetweenCommits(ctx, repo, ops.MoveRequest{
		SourceCommit:  source.Hash,
		DestCommit:    dest.Hash,
		SourceStackID: "S",
		StackCommits:  commits,
		SameStack:     true,
		Changes:       []model.DiffSpec{{Path: "moved.txt"}},
	})
	require.NoError(t, err)

	destNewHash := result.Dest.CommitMapping[len(result.Dest.CommitMapping)-1].New
	destInfo, err := repo.ReadCommit(ctx, destNewHash.String())
	require.NoError(t, err)

	_, err = repo.HashAt(ctx, destInfo.Tree.String(), "moved.txt")
	assert.NoError(t, err, "moved.txt should now be present on the destination commit")

	sourceNewHash := result.Source.CommitMapping[0].New
	sourceInfo, err := repo.ReadCommit(ctx, sourceNewHash.String())
	require.NoError(t, err)
	_, err = repo.HashAt(ctx, sourceInfo.Tree.String(), "moved.txt")
	assert.ErrorIs(t, err, git.ErrNotExist, "moved.txt should no longer be on the source commit")
}

// Split a two-commit branch by file path: commits touching only
// shared.txt end up solely on the source side (dropped from the new
// branch), commits touching only split.txt end up solely on the new
// branch.
func TestSplitBranch(t *testing.T) {
	ctx := context.Background()
	repo := gittest.NewRepo(t)
	dir := repo.Root()

	gittest.WriteFile(t, dir, "base.txt", "base\n")
	gittest.Run(t, dir, "add", "base.txt")
	gittest.Run(t, dir, "commit", "-q", "-m", "root")
	gittest.Run(t, dir, "checkout", "-q", "-b", "feature")

	gittest.WriteFile(t, dir, "shared.txt", "shared v1\n")
	gittest.Run(t, dir, "add", "shared.txt")
	gittest.Run(t, dir, "commit", "-q", "-m", "shared change")

	gittest.WriteFile(t, dir, "split.txt", "split content\n")
	gittest.Run(t, dir, "add", "split.txt")
	gittest.Run(t, dir, "commit", "-q", "-m", "split change")

	commits := commitsOf(t, ctx, repo, "HEAD~1", "HEAD")

	result, err := ops.SplitBranch(ctx, repo, ops.SplitRequest{
		SourceCommits: commits,
		FilePaths:     []string{"split.txt"},
	})
	require.NoError(t, err)

	require.Len(t, result.Source.CommitMapping, 1, "only the shared.txt commit survives on the source side")
	require.Len(t, result.New.CommitMapping, 1, "only the split.txt commit survives on the new branch")

	sourceInfo, err := repo.ReadCommit(ctx, result.Source.Tip.String())
	require.NoError(t, err)
	_, err = repo.HashAt(ctx, sourceInfo.Tree.String(), "shared.txt")
	assert.NoError(t, err)
	_, err = repo.HashAt(ctx, sourceInfo.Tree.String(), "split.txt")
	assert.ErrorIs(t, err, git.ErrNotExist)

	newInfo, err := repo.ReadCommit(ctx, result.New.Tip.String())
	require.NoError(t, err)
	_, err = repo.HashAt(ctx, newInfo.Tree.String(), "split.txt")
	assert.NoError(t, err)
	_, err = repo.HashAt(ctx, newInfo.Tree.String(), "shared.txt")
	assert.ErrorIs(t, err, git.ErrNotExist)
}
