package diffmodel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.gitbutler.dev/core/internal/diffmodel"
	"go.gitbutler.dev/core/internal/model"
	"pgregory.net/rapid"
)

func hunk(oldStart, oldLines, newStart, newLines uint32) model.HunkHeader {
	return model.HunkHeader{OldStart: oldStart, OldLines: oldLines, NewStart: newStart, NewLines: newLines}
}

func TestSubtract_oldSideSplitsIntoTwo(t *testing.T) {
	h := hunk(10, 10, 10, 10) // 10 lines, 1:1

	got, err := diffmodel.Subtract(h, []diffmodel.Subtraction{
		{Side: diffmodel.OldSide, Start: 13, End: 16}, // remove old lines 13,14,15
	})
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, hunk(10, 3, 10, 3), got[0])
	assert.Equal(t, hunk(16, 4, 16, 4), got[1])
}

func TestSubtract_allOfOldSide_reemitsAdd(t *testing.T) {
	h := hunk(10, 2, 10, 5) // 2 old lines replaced by 5 new lines

	got, err := diffmodel.Subtract(h, []diffmodel.Subtraction{
		{Side: diffmodel.OldSide, Start: 10, End: 12},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)

	// Remaining piece is a pure add anchored at old end (12),
	// covering the new lines beyond the consumed old range.
	assert.Equal(t, uint32(0), got[0].OldLines)
	assert.Equal(t, uint32(12), got[0].OldStart)
	assert.Equal(t, uint32(3), got[0].NewLines)
	assert.Equal(t, uint32(12), got[0].NewStart)
}

func TestSubtract_outOfOrder(t *testing.T) {
	h := hunk(10, 10, 10, 10)

	_, err := diffmodel.Subtract(h, []diffmodel.Subtraction{
		{Side: diffmodel.OldSide, Start: 15, End: 18},
		{Side: diffmodel.OldSide, Start: 12, End: 14},
	})
	assert.ErrorIs(t, err, diffmodel.ErrInvalidSubtraction)
}

func TestSubtract_entireHunk(t *testing.T) {
	h := hunk(10, 5, 10, 5)
	got, err := diffmodel.Subtract(h, []diffmodel.Subtraction{
		{Side: diffmodel.OldSide, Start: 10, End: 15},
	})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestIntersects(t *testing.T) {
	a := hunk(1, 5, 1, 5)
	b := hunk(1, 5, 4, 5)
	assert.True(t, diffmodel.Intersects(a, b))

	c := hunk(1, 5, 10, 5)
	assert.False(t, diffmodel.Intersects(a, c))
}

// offsetRange is a subtraction range expressed directly in
// unified-offset space, used by the property test below to construct
// genuinely disjoint subtraction sets irrespective of which side they
// report themselves against.
type offsetRange struct{ start, end uint32 }

// TestSubtract_disjointRemovesExactlyTheirLines applies a random sorted,
// disjoint set of subtractions in one Subtract call and checks that the
// pieces left over add up, on each side independently, to exactly the
// lines of the hunk that fall outside every removed range.
func TestSubtract_disjointRemovesExactlyTheirLines(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		oldLen := rapid.Uint32Range(0, 40).Draw(t, "oldLen")
		newLen := rapid.Uint32Range(0, 40).Draw(t, "newLen")
		h := hunk(100, oldLen, 200, newLen)

		maxLen := oldLen
		if newLen > maxLen {
			maxLen = newLen
		}
		if maxLen == 0 {
			return
		}

		n := rapid.IntRange(0, 3).Draw(t, "n")
		var ranges []offsetRange
		cursor := uint32(0)
		for i := 0; i < n && cursor < maxLen; i++ {
			start := rapid.Uint32Range(cursor, maxLen).Draw(t, "start")
			end := rapid.Uint32Range(start, maxLen).Draw(t, "end")
			ranges = append(ranges, offsetRange{start, end})
			cursor = end
		}

		var subs []diffmodel.Subtraction
		for _, rg := range ranges {
			subs = append(subs, diffmodel.Subtraction{
				Side:  diffmodel.OldSide,
				Start: h.OldStart + rg.start,
				End:   h.OldStart + rg.end,
			})
		}

		full, err := diffmodel.Subtract(h, subs)
		require.NoError(t, err)

		// Total remaining lines must equal the lines outside all
		// removed ranges, on each side independently.
		var gotOld, gotNew uint32
		for _, p := range full {
			gotOld += p.OldLines
			gotNew += p.NewLines
		}

		wantOld := remaining(oldLen, ranges)
		wantNew := remaining(newLen, ranges)
		assert.Equal(t, wantOld, gotOld)
		assert.Equal(t, wantNew, gotNew)
	})
}

func remaining(length uint32, ranges []offsetRange) uint32 {
	removed := uint32(0)
	for _, rg := range ranges {
		s, e := rg.start, rg.end
		if s > length {
			s = length
		}
		if e > length {
			e = length
		}
		if e > s {
			removed += e - s
		}
	}
	return length - removed
}
