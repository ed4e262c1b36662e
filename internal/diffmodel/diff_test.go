package diffmodel_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.gitbutler.dev/core/internal/diffmodel"
	"go.gitbutler.dev/core/internal/model"
)

func lines(s ...string) []byte {
	return []byte(strings.Join(s, "\n") + "\n")
}

func TestHunksFromBlobs_singleChangeWithContext(t *testing.T) {
	old := lines("a", "b", "c", "d", "e")
	updated := lines("a", "b", "X", "d", "e")

	got := diffmodel.HunksFromBlobs(old, updated, 1)
	assert.Equal(t, []model.HunkHeader{{OldStart: 2, OldLines: 3, NewStart: 2, NewLines: 3}}, got)
}

func TestHunksFromBlobs_noChanges(t *testing.T) {
	old := lines("a", "b", "c")
	got := diffmodel.HunksFromBlobs(old, old, 3)
	assert.Empty(t, got)
}

func TestHunksFromBlobs_twoDistantChangesSplit(t *testing.T) {
	old := lines("1", "2", "3", "4", "5", "6", "7", "8", "9", "10")
	updated := lines("X", "2", "3", "4", "5", "6", "7", "8", "9", "Y")

	got := diffmodel.HunksFromBlobs(old, updated, 1)
	assert.Len(t, got, 2)
}

func TestHunksFromBlobs_appendOnly(t *testing.T) {
	old := lines("a", "b")
	updated := lines("a", "b", "c")

	got := diffmodel.HunksFromBlobs(old, updated, 1)
	assert.Len(t, got, 1)
	assert.Equal(t, uint32(3), got[0].NewLines)
}
