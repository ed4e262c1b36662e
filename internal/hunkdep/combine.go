package hunkdep

import (
	"fmt"
	"sort"

	"go.gitbutler.dev/core/internal/model"
)

// CalcError reports a non-fatal conflict detected while combining one
// path's ranges across stacks (spec §4.6 "CalculationError").
type CalcError struct {
	StackID    model.StackID
	CommitHash string
	Path       string
	Reason     string
}

func (e CalcError) Error() string {
	return fmt.Sprintf("hunkdep: stack %s commit %s path %s: %s", e.StackID, e.CommitHash, e.Path, e.Reason)
}

// StackPathRanges pairs a stack's ordering priority (its index in
// stack_order) with its PathRanges for one path. Only non-shadowed
// ranges participate in the merge; callers should filter before calling
// CombinePathRanges, or rely on it doing so internally — it does.
type StackPathRanges struct {
	StackID model.StackID
	Ranges  []model.HunkRange // ordered by Start within the stack, oldest-producing-commit coordinates
}

// CombinePathRanges merges each stack's per-path ranges into one ordered,
// workspace-wide view, implementing spec §4.6's k-way merge: at each
// step the range with the smallest shifted start is emitted, and that
// stack's own line_shift is then added to every other stack's
// accumulator so later comparisons account for lines it inserted or
// removed ahead of them. Ties (equal shifted start) favor the
// lower-indexed stack, matching first-writer-wins stack priority.
//
// Overlapping emitted ranges are reported as CalcErrors rather than
// aborting the merge, so a conflict on one path never hides ranges on
// others.
func CombinePathRanges(path string, stacks []StackPathRanges) ([]model.HunkRange, []CalcError) {
	type cursor struct {
		stackIdx int
		ranges   []model.HunkRange
		pos      int
	}

	cursors := make([]*cursor, len(stacks))
	shifts := make([]int64, len(stacks))
	for i, s := range stacks {
		var live []model.HunkRange
		for _, r := range s.Ranges {
			if !r.Shadowed {
				live = append(live, r)
			}
		}
		sort.SliceStable(live, func(a, b int) bool { return live[a].Start < live[b].Start })
		cursors[i] = &cursor{stackIdx: i, ranges: live}
	}

	var out []model.HunkRange
	var errs []CalcError

	for {
		best := -1
		var bestShifted int64

		for i, c := range cursors {
			if c.pos >= len(c.ranges) {
				continue
			}
			shifted := int64(c.ranges[c.pos].Start) + shifts[i]
			if best == -1 || shifted < bestShifted {
				best, bestShifted = i, shifted
			}
		}
		if best == -1 {
			break
		}

		c := cursors[best]
		r := c.ranges[c.pos]
		shifted := r
		shifted.Start = uint32(bestShifted)

		if len(out) > 0 {
			prev := out[len(out)-1]
			if shifted.Start < prev.End() {
				errs = append(errs, CalcError{
					StackID:    shifted.StackID,
					CommitHash: shifted.CommitHash.String(),
					Path:       path,
					Reason:     "overlaps a range already placed by another stack",
				})
			}
		}
		out = append(out, shifted)

		c.pos++
		for i := range shifts {
			if i != best {
				shifts[i] += int64(r.LineShift)
			}
		}
	}

	return out, errs
}

// Intersection returns every combined HunkRange overlapping
// [start, start+lines). Zero results means the worktree hunk is free to
// commit to any stack; one means it is locked to that range's stack;
// more than one means committing it would straddle a merge hazard
// (spec §4.6 "intersection").
func Intersection(ranges []model.HunkRange, start, lines uint32) []model.HunkRange {
	end := start + lines
	var out []model.HunkRange
	for _, r := range ranges {
		if start < r.End() && r.Start < end {
			out = append(out, r)
		}
	}
	return out
}
