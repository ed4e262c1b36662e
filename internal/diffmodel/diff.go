package diffmodel

import (
	"github.com/sergi/go-diff/diffmatchpatch"
	"go.gitbutler.dev/core/internal/model"
)

// lineOp is one run of equal, deleted, or inserted lines produced by the
// line-mode diff, with its lines count on each side it touches.
type lineOp struct {
	equal    bool
	oldLines uint32 // lines consumed on the old side (0 for a pure insert)
	newLines uint32 // lines consumed on the new side (0 for a pure delete)
}

// HunksFromBlobs computes the unified-diff hunk headers between two blob
// contents using a line-mode Myers diff (spec §4.4 "unified diff
// production"). contextLines controls how many unchanged lines are kept
// on either side of a run of changes, matching git diff -U<n>.
//
// Lines are compared byte-for-byte; no normalization (whitespace,
// newline-at-eof) is applied, since that is the tree layer's job, not
// this one's.
func HunksFromBlobs(oldContent, newContent []byte, contextLines int) []model.HunkHeader {
	dmp := diffmatchpatch.New()

	oldAsChars, newAsChars, lineArray := dmp.DiffLinesToChars(string(oldContent), string(newContent))
	diffs := dmp.DiffMain(oldAsChars, newAsChars, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	ops := make([]lineOp, 0, len(diffs))
	for _, d := range diffs {
		n := uint32(countLines(d.Text))
		if n == 0 {
			continue
		}
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			ops = append(ops, lineOp{equal: true, oldLines: n, newLines: n})
		case diffmatchpatch.DiffDelete:
			ops = append(ops, lineOp{oldLines: n})
		case diffmatchpatch.DiffInsert:
			ops = append(ops, lineOp{newLines: n})
		}
	}

	return groupIntoHunks(ops, contextLines)
}

// groupIntoHunks folds a sequence of equal/changed line runs into hunk
// headers, merging changed runs separated by an equal run no longer than
// 2*contextLines and padding contextLines of unchanged lines on either
// side of each hunk, the same grouping rule git diff -U<n> uses.
func groupIntoHunks(ops []lineOp, contextLines int) []model.HunkHeader {
	ctx := uint32(contextLines)

	// starts[i] holds the (oldStart, newStart) of ops[i], 1-indexed.
	oldPos, newPos := uint32(1), uint32(1)
	oldStarts := make([]uint32, len(ops)+1)
	newStarts := make([]uint32, len(ops)+1)
	for i, o := range ops {
		oldStarts[i], newStarts[i] = oldPos, newPos
		oldPos += o.oldLines
		newPos += o.newLines
	}
	oldStarts[len(ops)], newStarts[len(ops)] = oldPos, newPos

	var hunks []model.HunkHeader
	i := 0
	for i < len(ops) {
		if ops[i].equal {
			i++
			continue
		}

		// Extend the run rightward through any changed ops and any
		// equal runs short enough to be bridged rather than split.
		runStart := i
		runEnd := i + 1
		for runEnd < len(ops) {
			if ops[runEnd].equal {
				if ops[runEnd].oldLines > 2*ctx {
					break
				}
				if runEnd+1 >= len(ops) {
					break
				}
			}
			runEnd++
		}

		leadEqual := uint32(0)
		if runStart > 0 && ops[runStart-1].equal {
			leadEqual = ops[runStart-1].oldLines
		}
		lead := min32(ctx, leadEqual)

		trailEqual := uint32(0)
		if runEnd < len(ops) && ops[runEnd].equal {
			trailEqual = ops[runEnd].oldLines
		}
		trail := min32(ctx, trailEqual)

		hunks = append(hunks, model.HunkHeader{
			OldStart: oldStarts[runStart] - lead,
			OldLines: oldStarts[runEnd] - oldStarts[runStart] + lead + trail,
			NewStart: newStarts[runStart] - lead,
			NewLines: newStarts[runEnd] - newStarts[runStart] + lead + trail,
		})

		i = runEnd
	}

	return hunks
}

func min32(a, b uint32) uint32 {
	if a < b {
		return a
	}
	return b
}

func countLines(s string) int {
	if s == "" {
		return 0
	}
	n := 0
	for _, r := range s {
		if r == '\n' {
			n++
		}
	}
	// DiffLinesToChars always terminates its synthetic lines with '\n',
	// except possibly the very last one if the source had no trailing
	// newline; that partial line still counts as one line.
	if s[len(s)-1] != '\n' {
		n++
	}
	return n
}
