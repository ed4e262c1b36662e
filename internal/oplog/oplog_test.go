package oplog_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/gittest"
	"go.gitbutler.dev/core/internal/oplog"
)

func TestCreateList_roundTrip(t *testing.T) {
	ctx := context.Background()
	repo := gittest.NewRepo(t)
	dir := repo.Root()

	gittest.WriteFile(t, dir, "f", "base\n")
	gittest.Run(t, dir, "add", "f")
	gittest.Run(t, dir, "commit", "-q", "-m", "base")

	headTree, err := repo.PeelToTree(ctx, "HEAD")
	require.NoError(t, err)

	log := oplog.Open(repo, oplog.Options{})

	snapshot1, err := log.Create(ctx, oplog.CreateRequest{
		Operation: "CreateCommit",
		Worktree:  headTree,
		Head:      headTree,
		Index:     headTree,
		Metadata:  []byte("v1"),
		Extra:     []oplog.Trailer{{Key: "CommitId", Value: "abc123"}},
	})
	require.NoError(t, err)
	assert.False(t, snapshot1.IsZero())

	snapshot2, err := log.Create(ctx, oplog.CreateRequest{
		Operation: "AmendCommit",
		Worktree:  headTree,
		Head:      headTree,
		Index:     headTree,
		Metadata:  []byte("v2"),
	})
	require.NoError(t, err)

	head, err := log.Head(ctx)
	require.NoError(t, err)
	assert.Equal(t, snapshot2, head)

	entries, err := log.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// newest-first
	assert.Equal(t, "AmendCommit", entries[0].Operation)
	assert.Equal(t, "CreateCommit", entries[1].Operation)
	assert.Equal(t, oplog.Version, entries[1].Version)
	require.Len(t, entries[1].Trailers, 1)
	assert.Equal(t, oplog.Trailer{Key: "CommitId", Value: "abc123"}, entries[1].Trailers[0])
}

// Scenario F (spec §8): create a snapshot with a conflicted index (one
// path with stages 1/2/3); restoring it reconstructs an index with
// stage entries 1/2/3 for that path and no stage-0 entry, while an
// unrelated path remains present at stage 0.
func TestResolve_scenarioF_conflictedIndex(t *testing.T) {
	ctx := context.Background()
	repo := gittest.NewRepo(t)
	dir := repo.Root()

	gittest.WriteFile(t, dir, "clean.txt", "clean\n")
	gittest.Run(t, dir, "add", "clean.txt")
	gittest.Run(t, dir, "commit", "-q", "-m", "base")

	headTree, err := repo.PeelToTree(ctx, "HEAD")
	require.NoError(t, err)

	baseHash, err := repo.WriteObject(ctx, git.BlobType, strings.NewReader("base content\n"))
	require.NoError(t, err)
	oursHash, err := repo.WriteObject(ctx, git.BlobType, strings.NewReader("ours content\n"))
	require.NoError(t, err)
	theirsHash, err := repo.WriteObject(ctx, git.BlobType, strings.NewReader("theirs content\n"))
	require.NoError(t, err)

	log := oplog.Open(repo, oplog.Options{})

	snapshot, err := log.Create(ctx, oplog.CreateRequest{
		Operation: "UndoCommit",
		Worktree:  headTree,
		Head:      headTree,
		Index:     headTree, // "unconflicted stage-0 index-as-tree": conflict.txt isn't in it
		Conflicts: []oplog.ConflictEntry{
			{
				Path:       "conflict.txt",
				BaseMode:   git.RegularMode,
				OursMode:   git.RegularMode,
				TheirsMode: git.RegularMode,
				BaseHash:   baseHash,
				OursHash:   oursHash,
				TheirsHash: theirsHash,
			},
		},
		Metadata: []byte("{}"),
	})
	require.NoError(t, err)

	resolved, err := log.Resolve(ctx, oplog.ResolveRequest{
		Snapshot:           snapshot,
		TargetWorktreeTree: headTree,
		Mode:               oplog.AllowMarkers,
	})
	require.NoError(t, err)
	require.Len(t, resolved.IndexConflicts, 1)

	conflict := resolved.IndexConflicts[0]
	assert.Equal(t, "conflict.txt", conflict.Path)
	assert.Equal(t, baseHash, conflict.BaseHash)
	assert.Equal(t, oursHash, conflict.OursHash)
	assert.Equal(t, theirsHash, conflict.TheirsHash)

	require.NoError(t, log.MaterializeIndex(ctx, resolved))

	out := gittest.Run(t, dir, "ls-files", "--stage")
	lines := strings.Split(strings.TrimSpace(out), "\n")

	var sawCleanStage0, sawConflictStage1, sawConflictStage2, sawConflictStage3 bool
	var sawConflictStage0 bool
	for _, line := range lines {
		fields := strings.Fields(line)
		require.Len(t, fields, 4)
		stage, path := fields[2], fields[3]
		switch {
		case path == "clean.txt" && stage == "0":
			sawCleanStage0 = true
		case path == "conflict.txt" && stage == "0":
			sawConflictStage0 = true
		case path == "conflict.txt" && stage == "1":
			sawConflictStage1 = true
		case path == "conflict.txt" && stage == "2":
			sawConflictStage2 = true
		case path == "conflict.txt" && stage == "3":
			sawConflictStage3 = true
		}
	}

	assert.True(t, sawCleanStage0, "unrelated path should remain at stage 0")
	assert.False(t, sawConflictStage0, "conflicted path must not have a stage-0 entry")
	assert.True(t, sawConflictStage1)
	assert.True(t, sawConflictStage2)
	assert.True(t, sawConflictStage3)
}

// Testable property #1: a snapshot's worktree cherry-picked onto
// HEAD^{tree} using the snapshot's HEAD tree as merge base reproduces
// the worktree at snapshot time bit-exactly, when the target tree
// hasn't diverged from the snapshot's own baseline.
func TestResolve_property1_worktreeRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := gittest.NewRepo(t)
	dir := repo.Root()

	gittest.WriteFile(t, dir, "f", "base\n")
	gittest.Run(t, dir, "add", "f")
	gittest.Run(t, dir, "commit", "-q", "-m", "base")
	headTree, err := repo.PeelToTree(ctx, "HEAD")
	require.NoError(t, err)

	gittest.WriteFile(t, dir, "f", "base\nworktree edit\n")
	worktreeHash, _, _, err := repo.WriteBlobFromWorktreeFile(ctx, "f")
	require.NoError(t, err)
	worktreeTree, err := repo.UpdateTree(ctx, git.UpdateTreeRequest{
		Tree:   headTree,
		Writes: []git.BlobInfo{{Mode: git.RegularMode, Path: "f", Hash: worktreeHash}},
	})
	require.NoError(t, err)

	log := oplog.Open(repo, oplog.Options{})
	snapshot, err := log.Create(ctx, oplog.CreateRequest{
		Operation: "CreateCommit",
		Worktree:  worktreeTree,
		Head:      headTree,
		Index:     headTree,
		Metadata:  []byte("{}"),
	})
	require.NoError(t, err)

	resolved, err := log.Resolve(ctx, oplog.ResolveRequest{
		Snapshot:           snapshot,
		TargetWorktreeTree: headTree, // target hasn't diverged from the snapshot's own HEAD
		Mode:               oplog.FailFast,
	})
	require.NoError(t, err)
	assert.False(t, resolved.HasConflicts)
	assert.Equal(t, worktreeTree, resolved.Worktree)
}
