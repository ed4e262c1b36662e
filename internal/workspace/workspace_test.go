package workspace_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/gittest"
	"go.gitbutler.dev/core/internal/hunkdep"
	"go.gitbutler.dev/core/internal/model"
	"go.gitbutler.dev/core/internal/workspace"
)

func peel(t testing.TB, ctx context.Context, repo *git.Repository, ref string) git.Hash {
	t.Helper()
	h, err := repo.PeelToCommit(ctx, ref)
	require.NoError(t, err)
	return h
}

// Testable property #5: the workspace commit's parents are exactly the
// stack tips, in metadata order.
func TestBuild_parentsMatchStackTips(t *testing.T) {
	ctx := context.Background()
	repo := gittest.NewRepo(t)
	dir := repo.Root()

	gittest.WriteFile(t, dir, "f", "base\n")
	gittest.Run(t, dir, "add", "f")
	gittest.Run(t, dir, "commit", "-q", "-m", "base")

	gittest.Run(t, dir, "checkout", "-q", "-b", "s1")
	gittest.WriteFile(t, dir, "f", "base\ns1\n")
	gittest.Run(t, dir, "add", "f")
	gittest.Run(t, dir, "commit", "-q", "-m", "s1 commit")
	s1Tip := peel(t, ctx, repo, "s1")

	gittest.Run(t, dir, "checkout", "-q", "main")
	gittest.Run(t, dir, "checkout", "-q", "-b", "s2")
	gittest.WriteFile(t, dir, "g", "s2\n")
	gittest.Run(t, dir, "add", "g")
	gittest.Run(t, dir, "commit", "-q", "-m", "s2 commit")
	s2Tip := peel(t, ctx, repo, "s2")

	stacks := []model.Stack{
		{ID: "S1", Segments: []model.Segment{{RefName: "s1", Commits: []model.Commit{{Hash: s1Tip}}}}},
		{ID: "S2", Segments: []model.Segment{{RefName: "s2", Commits: []model.Commit{{Hash: s2Tip}}}}},
	}

	wsCommit, err := workspace.Build(ctx, repo, workspace.BuildRequest{Stacks: stacks})
	require.NoError(t, err)

	info, err := repo.ReadCommit(ctx, wsCommit.String())
	require.NoError(t, err)
	assert.True(t, workspace.IsWorkspaceCommit(info.Subject))
	require.Equal(t, []git.Hash{s1Tip, s2Tip}, info.Parents)
}

// Scenario E (spec §8): a commit made directly on the workspace commit
// that locks to the single applied stack advances that stack's head and
// rebuilds the workspace commit.
func TestResolveCommitsAbove_locksToSingleStack(t *testing.T) {
	ctx := context.Background()
	repo := gittest.NewRepo(t)
	dir := repo.Root()

	gittest.WriteFile(t, dir, "f", "1\n2\n3\n")
	gittest.Run(t, dir, "add", "f")
	gittest.Run(t, dir, "commit", "-q", "-m", "base")

	gittest.WriteFile(t, dir, "f", "1\nTWO\n3\n")
	gittest.Run(t, dir, "add", "f")
	gittest.Run(t, dir, "commit", "-q", "-m", "A")
	aCommit := peel(t, ctx, repo, "HEAD")

	stack := model.Stack{ID: "S1", Segments: []model.Segment{{RefName: "HEAD", Commits: []model.Commit{{Hash: aCommit}}}}}

	wsCommit, err := workspace.Build(ctx, repo, workspace.BuildRequest{Stacks: []model.Stack{stack}})
	require.NoError(t, err)

	gittest.Run(t, dir, "checkout", "-q", wsCommit.String())
	gittest.WriteFile(t, dir, "f", "1\nTHREE\n3\n")
	gittest.Run(t, dir, "add", "f")
	gittest.Run(t, dir, "commit", "-q", "-m", "X")
	xCommit := peel(t, ctx, repo, "HEAD")

	pr, err := hunkdep.BuildPathRanges(ctx, repo, "S1", "f", []model.Commit{{Hash: aCommit}}, 0)
	require.NoError(t, err)
	combined, errs := hunkdep.CombinePathRanges("f", []hunkdep.StackPathRanges{{StackID: "S1", Ranges: pr.Ranges}})
	require.Empty(t, errs)

	result, err := workspace.ResolveCommitsAbove(ctx, repo, workspace.ReconcileRequest{
		WorkspaceCommit: wsCommit,
		NewHead:         xCommit,
		Stacks:          []model.Stack{stack},
		RangesByPath:    map[string][]model.HunkRange{"f": combined},
		ContextLines:    0,
	})
	require.NoError(t, err)

	assert.Equal(t, workspace.LockedToOne, result.Outcome)
	assert.Equal(t, model.StackID("S1"), result.UpdatedStackID)
	assert.NotEqual(t, git.ZeroHash, result.NewStackTip)
	assert.NotEqual(t, git.ZeroHash, result.NewWorkspaceCommit)
}
