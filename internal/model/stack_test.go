package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/model"
)

// TestOldestFirst_reversesTipFirstSegmentCommits guards the C5→C6/C10
// boundary: Segment.Commits is tip-first, but hunkdep.BuildPathRanges and
// ops.MoveRequest's commit-list fields require oldest-first.
func TestOldestFirst_reversesTipFirstSegmentCommits(t *testing.T) {
	seg := model.Segment{
		Commits: []model.Commit{
			{Hash: git.Hash("tip")},
			{Hash: git.Hash("mid")},
			{Hash: git.Hash("base")},
		},
	}

	got := model.OldestFirst(seg.Commits)
	want := []git.Hash{"base", "mid", "tip"}

	gotHashes := make([]git.Hash, len(got))
	for i, c := range got {
		gotHashes[i] = c.Hash
	}
	assert.Equal(t, want, gotHashes)

	// Segment.Commits itself must be untouched.
	assert.Equal(t, git.Hash("tip"), seg.Commits[0].Hash)
}

func TestOldestFirst_empty(t *testing.T) {
	assert.Empty(t, model.OldestFirst(nil))
}
