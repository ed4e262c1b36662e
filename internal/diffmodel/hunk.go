// Package diffmodel implements the Diff Model (C4): unified-diff
// production, hunk header arithmetic (subtraction/intersection), and
// DiffSpec application.
//
// Hunk arithmetic is kept a side-effect-free module operating purely on
// model.HunkHeader and integer ranges, per spec §9's design note: every
// edge case is observable from the function signature (a "no-op" hunk
// always has Lines == 0 on the exhausted side).
package diffmodel

import (
	"errors"
	"fmt"

	"go.gitbutler.dev/core/internal/model"
)

// Side names which coordinate space a Subtraction's Start/End are
// expressed in.
type Side int

// Recognized sides.
const (
	OldSide Side = iota
	NewSide
)

// Subtraction removes the half-open range [Start, End) from one side of
// a hunk (spec §4.4 "hunk subtraction").
type Subtraction struct {
	Side       Side
	Start, End uint32
}

// ErrInvalidSubtraction is returned by Subtract when the given
// subtractions are not sorted and non-overlapping.
var ErrInvalidSubtraction = errors.New("diffmodel: subtractions must be sorted and non-overlapping")

// offsets converts a Subtraction to the hunk's unified offset space: the
// coordinate k such that old line h.OldStart+k and new line
// h.NewStart+k are the "same" row of the hunk for as long as k stays
// within each side's length. This is what lets old-side and new-side
// subtractions compose under one algorithm, and is what makes
// Subtract(Subtract(h, d1), d2) == Subtract(h, d1⊕d2) hold for disjoint
// d1, d2 (spec §8's round-trip law).
func (s Subtraction) offsets(h model.HunkHeader) (uint32, uint32) {
	switch s.Side {
	case OldSide:
		return s.Start - h.OldStart, s.End - h.OldStart
	default:
		return s.Start - h.NewStart, s.End - h.NewStart
	}
}

// Subtract removes the given subtractions (which must be sorted by
// position and non-overlapping) from h, returning the remaining pieces
// in order. A piece that is zero-width on one side but not the other is
// still emitted ("a zero-width hunk on that side", spec §4.4) except
// when a piece is zero-width on BOTH sides, in which case it carries no
// information and is dropped.
func Subtract(h model.HunkHeader, subs []Subtraction) ([]model.HunkHeader, error) {
	maxLen := h.OldLines
	if h.NewLines > maxLen {
		maxLen = h.NewLines
	}

	var pieces []model.HunkHeader
	var cursor uint32
	for _, sub := range subs {
		a, b := sub.offsets(h)
		if b < a {
			return nil, fmt.Errorf("%w: end before start (%d, %d)", ErrInvalidSubtraction, a, b)
		}
		if a < cursor {
			return nil, fmt.Errorf("%w: subtraction at %d precedes cursor %d", ErrInvalidSubtraction, a, cursor)
		}

		if piece, ok := pieceFromOffsets(h, cursor, a); ok {
			pieces = append(pieces, piece)
		}
		if b > cursor {
			cursor = b
		}
	}

	if piece, ok := pieceFromOffsets(h, cursor, maxLen); ok {
		pieces = append(pieces, piece)
	}

	return pieces, nil
}

// pieceFromOffsets builds the HunkHeader covering unified offsets
// [start, end), or reports ok=false if the piece would be zero-width on
// both sides (i.e. carries no change at all).
func pieceFromOffsets(h model.HunkHeader, start, end uint32) (model.HunkHeader, bool) {
	if end <= start {
		return model.HunkHeader{}, false
	}

	oldLen := clampLen(start, end, h.OldLines)
	newLen := clampLen(start, end, h.NewLines)
	if oldLen == 0 && newLen == 0 {
		return model.HunkHeader{}, false
	}

	return model.HunkHeader{
		OldStart: h.OldStart + minU32(start, h.OldLines),
		OldLines: oldLen,
		NewStart: h.NewStart + minU32(start, h.NewLines),
		NewLines: newLen,
	}, true
}

// clampLen returns the number of lines of a side-length Len that fall
// within the half-open unified-offset range [start, end).
func clampLen(start, end, length uint32) uint32 {
	s := minU32(start, length)
	e := minU32(end, length)
	if e < s {
		return 0
	}
	return e - s
}

func minU32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

// Intersects reports whether a and b's new-side ranges overlap (spec
// §4.4). Delegates to model.HunkHeader, kept here too since callers of
// this package reach for it alongside Subtract.
func Intersects(a, b model.HunkHeader) bool {
	return a.Intersects(b)
}
