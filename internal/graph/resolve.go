package graph

import (
	"fmt"

	"github.com/sahilm/fuzzy"
	"go.gitbutler.dev/core/internal/corekit"
	"go.gitbutler.dev/core/internal/model"
)

// ResolveSegment finds the segment across ws whose ref name matches
// query, a shorthand a caller typed for a branch. An exact ref name is
// always unambiguous; otherwise candidates are fuzzy-ranked the way the
// teacher's branch-select widget filters its branch list, and more than
// one candidate within a point of the best score is reported as a
// corekit.KindAmbiguous error (spec §7) instead of guessing.
func ResolveSegment(ws model.Workspace, query string) (model.StackID, model.SegmentID, error) {
	type candidate struct {
		stack   model.StackID
		segment model.SegmentID
	}

	var candidates []candidate
	var names []string
	for _, stack := range ws.Stacks {
		for _, seg := range stack.Segments {
			if seg.RefName == "" {
				continue
			}
			if seg.RefName == query {
				return stack.ID, seg.ID, nil
			}
			candidates = append(candidates, candidate{stack: stack.ID, segment: seg.ID})
			names = append(names, seg.RefName)
		}
	}

	matches := fuzzy.Find(query, names)
	if len(matches) == 0 {
		return "", "", corekit.New(corekit.KindNotFound, "segment_not_found",
			fmt.Sprintf("no segment matches %q", query))
	}

	best := matches[0].Score
	var ranked []string
	for _, m := range matches {
		if best-m.Score > 1 {
			break // fuzzy.Find sorts best-first
		}
		ranked = append(ranked, names[m.Index])
	}
	if len(ranked) == 1 {
		c := candidates[matches[0].Index]
		return c.stack, c.segment, nil
	}

	return "", "", corekit.New(corekit.KindAmbiguous, "segment_ambiguous",
		fmt.Sprintf("%q matches more than one segment", query)).
		WithPayload(corekit.AmbiguousPayload{Query: query, Candidates: ranked})
}
