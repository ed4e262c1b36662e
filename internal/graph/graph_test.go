package graph_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.gitbutler.dev/core/internal/graph"
	"go.gitbutler.dev/core/internal/gittest"
	"go.gitbutler.dev/core/internal/model"
)

func TestProject_singleStackAboveTarget(t *testing.T) {
	ctx := context.Background()
	repo := gittest.NewRepo(t)
	dir := repo.Root()

	gittest.WriteFile(t, dir, "base.txt", "base\n")
	gittest.Run(t, dir, "add", "base.txt")
	gittest.Run(t, dir, "commit", "-q", "-m", "base commit")
	gittest.Run(t, dir, "branch", "main")

	gittest.Run(t, dir, "checkout", "-q", "-b", "feature")
	gittest.WriteFile(t, dir, "feature.txt", "feature\n")
	gittest.Run(t, dir, "add", "feature.txt")
	gittest.Run(t, dir, "commit", "-q", "-m", "feature commit")

	ws, err := graph.Project(ctx, repo, graph.Options{
		TargetRef: "main",
		StackTips: []string{"feature"},
	})
	require.NoError(t, err)
	require.Len(t, ws.Stacks, 1)

	stack := ws.Stacks[0]
	require.Len(t, stack.Segments, 1)
	seg := stack.Segments[0]
	assert.Equal(t, "feature", seg.RefName)
	require.Len(t, seg.Commits, 1)
	assert.Equal(t, "feature commit", seg.Commits[0].Subject)
	assert.True(t, seg.Commits[0].Flags.Has(model.FlagInWorkspace))
	assert.False(t, seg.Commits[0].Flags.Has(model.FlagIntegrated))
}

func TestProject_stackedSegmentBoundary(t *testing.T) {
	ctx := context.Background()
	repo := gittest.NewRepo(t)
	dir := repo.Root()

	gittest.WriteFile(t, dir, "base.txt", "base\n")
	gittest.Run(t, dir, "add", "base.txt")
	gittest.Run(t, dir, "commit", "-q", "-m", "base commit")
	gittest.Run(t, dir, "branch", "main")

	gittest.Run(t, dir, "checkout", "-q", "-b", "bottom")
	gittest.WriteFile(t, dir, "bottom.txt", "bottom\n")
	gittest.Run(t, dir, "add", "bottom.txt")
	gittest.Run(t, dir, "commit", "-q", "-m", "bottom commit")

	gittest.Run(t, dir, "checkout", "-q", "-b", "top")
	gittest.WriteFile(t, dir, "top.txt", "top\n")
	gittest.Run(t, dir, "add", "top.txt")
	gittest.Run(t, dir, "commit", "-q", "-m", "top commit")

	ws, err := graph.Project(ctx, repo, graph.Options{
		TargetRef:   "main",
		StackTips:   []string{"top"},
		SegmentRefs: []string{"top", "bottom"},
	})
	require.NoError(t, err)
	require.Len(t, ws.Stacks, 1)
	require.Len(t, ws.Stacks[0].Segments, 2)

	assert.Equal(t, "top", ws.Stacks[0].Segments[0].RefName)
	assert.Equal(t, "bottom", ws.Stacks[0].Segments[1].RefName)
}
