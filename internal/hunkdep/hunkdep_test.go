package hunkdep_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/gittest"
	"go.gitbutler.dev/core/internal/hunkdep"
	"go.gitbutler.dev/core/internal/model"
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

// Scenario A (spec §8): linear commits "1"→"2"→"3"; replacing line 2 in
// the worktree intersects exactly commit "2", at start=2 lines=1.
func TestBuildPathRanges_scenarioA(t *testing.T) {
	ctx := context.Background()
	repo := gittest.NewRepo(t)
	dir := repo.Root()

	gittest.WriteFile(t, dir, "file", "a\n")
	gittest.Run(t, dir, "add", "file")
	gittest.Run(t, dir, "commit", "-q", "-m", "1")

	gittest.WriteFile(t, dir, "file", "a\nb\n")
	gittest.Run(t, dir, "add", "file")
	gittest.Run(t, dir, "commit", "-q", "-m", "2")

	gittest.WriteFile(t, dir, "file", "a\nb\nc\n")
	gittest.Run(t, dir, "add", "file")
	gittest.Run(t, dir, "commit", "-q", "-m", "3")

	commits := commitsOf(t, ctx, repo, "HEAD~2", "HEAD~1", "HEAD")

	pr, err := hunkdep.BuildPathRanges(ctx, repo, "S", "file", commits, 0)
	require.NoError(t, err)

	combined, errs := hunkdep.CombinePathRanges("file", []hunkdep.StackPathRanges{{StackID: "S", Ranges: pr.Ranges}})
	assert.Empty(t, errs)

	hits := hunkdep.Intersection(combined, 2, 1)
	require.Len(t, hits, 1)
	assert.Equal(t, commits[1].Hash, hits[0].CommitHash)
	assert.EqualValues(t, 2, hits[0].Start)
	assert.EqualValues(t, 1, hits[0].Lines)
}

// Scenario B (spec §8): same as A, but two extra leading lines shift the
// target edit to start=4.
func TestBuildPathRanges_scenarioB(t *testing.T) {
	ctx := context.Background()
	repo := gittest.NewRepo(t)
	dir := repo.Root()

	gittest.WriteFile(t, dir, "file", "pre1\npre2\na\n")
	gittest.Run(t, dir, "add", "file")
	gittest.Run(t, dir, "commit", "-q", "-m", "1")

	gittest.WriteFile(t, dir, "file", "pre1\npre2\na\nb\n")
	gittest.Run(t, dir, "add", "file")
	gittest.Run(t, dir, "commit", "-q", "-m", "2")

	gittest.WriteFile(t, dir, "file", "pre1\npre2\na\nb\nc\n")
	gittest.Run(t, dir, "add", "file")
	gittest.Run(t, dir, "commit", "-q", "-m", "3")

	commits := commitsOf(t, ctx, repo, "HEAD~2", "HEAD~1", "HEAD")

	pr, err := hunkdep.BuildPathRanges(ctx, repo, "S", "file", commits, 0)
	require.NoError(t, err)

	combined, errs := hunkdep.CombinePathRanges("file", []hunkdep.StackPathRanges{{StackID: "S", Ranges: pr.Ranges}})
	assert.Empty(t, errs)

	hits := hunkdep.Intersection(combined, 4, 1)
	require.Len(t, hits, 1)
	assert.Equal(t, commits[1].Hash, hits[0].CommitHash)
	assert.EqualValues(t, 4, hits[0].Start)
}

// Scenario C (spec §8): two stacks touching the same file on disjoint
// line ranges both appear in the combined view, ordered by shifted
// start, with no CalcErrors.
func TestCombinePathRanges_scenarioC(t *testing.T) {
	ctx := context.Background()
	repo := gittest.NewRepo(t)
	dir := repo.Root()

	gittest.WriteFile(t, dir, "file", "1\n2\n3\n4\n5\n6\n")
	gittest.Run(t, dir, "add", "file")
	gittest.Run(t, dir, "commit", "-q", "-m", "base")
	gittest.Run(t, dir, "branch", "base")

	gittest.Run(t, dir, "checkout", "-q", "-b", "stackA")
	gittest.WriteFile(t, dir, "file", "1\ntwo\n3\n4\n5\n6\n")
	gittest.Run(t, dir, "add", "file")
	gittest.Run(t, dir, "commit", "-q", "-m", "A")

	gittest.Run(t, dir, "checkout", "-q", "base")
	gittest.Run(t, dir, "checkout", "-q", "-b", "stackB")
	gittest.WriteFile(t, dir, "file", "1\n2\n3\n4\nfive\n6\n")
	gittest.Run(t, dir, "add", "file")
	gittest.Run(t, dir, "commit", "-q", "-m", "B")

	commitsA := commitsOf(t, ctx, repo, "stackA")
	commitsB := commitsOf(t, ctx, repo, "stackB")

	prA, err := hunkdep.BuildPathRanges(ctx, repo, "S1", "file", commitsA, 0)
	require.NoError(t, err)
	prB, err := hunkdep.BuildPathRanges(ctx, repo, "S2", "file", commitsB, 0)
	require.NoError(t, err)

	combined, errs := hunkdep.CombinePathRanges("file", []hunkdep.StackPathRanges{
		{StackID: "S1", Ranges: prA.Ranges},
		{StackID: "S2", Ranges: prB.Ranges},
	})
	assert.Empty(t, errs)
	require.Len(t, combined, 2)

	assert.Equal(t, model.StackID("S1"), combined[0].StackID)
	assert.EqualValues(t, 2, combined[0].Start)
	assert.Equal(t, model.StackID("S2"), combined[1].StackID)
	assert.EqualValues(t, 5, combined[1].Start)
}
