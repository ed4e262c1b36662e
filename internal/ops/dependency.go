package ops

import (
	"context"
	"fmt"

	"go.gitbutler.dev/core/internal/corekit"
	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/hunkdep"
	"go.gitbutler.dev/core/internal/model"
)

// checkDependencies implements move_changes_between_commits step 2: reject
// with a structured Conflict error if extracting changes from source would
// break a later commit in the same stack (DependsOnCommits), or if the
// worktree carries uncommitted edits overlapping the same lines
// (HasDependentUncommittedChanges).
//
// HasDependentChanges (a later commit on a *different* stack depending on
// these lines) requires the combined, workspace-wide view from C6's
// CombinePathRanges across every applied stack; this orchestration only
// has the source stack's own commits to work from, so it checks
// intra-stack dependents only. A caller wiring this into the full
// workspace would run hunkdep.CombinePathRanges across all stacks first
// and pass the combined ranges in; see DESIGN.md.
func checkDependencies(ctx context.Context, repo *git.Repository, stackID model.StackID, stackCommits []model.Commit, source git.Hash, changes []model.DiffSpec, worktreeChanges []model.DiffSpec, contextLines int) error {
	srcIdx := -1
	for i, c := range stackCommits {
		if c.Hash == source {
			srcIdx = i
			break
		}
	}
	if srcIdx == -1 {
		return fmt.Errorf("source commit %s not found in its stack's commit list", source)
	}

	byPath := make(map[string][]model.HunkHeader)
	var pathOrder []string
	for _, c := range changes {
		if _, ok := byPath[c.Path]; !ok {
			pathOrder = append(pathOrder, c.Path)
		}
		byPath[c.Path] = append(byPath[c.Path], c.HunkHeaders...)
	}

	var dependentCommits []string
	var dependentPaths []string
	seenCommit := make(map[string]bool)
	seenPath := make(map[string]bool)

	for _, path := range pathOrder {
		pr, err := hunkdep.BuildPathRanges(ctx, repo, stackID, path, stackCommits, contextLines)
		if err != nil {
			return fmt.Errorf("build path ranges for %s: %w", path, err)
		}

		var laterRanges []model.HunkRange
		for _, r := range pr.Ranges {
			if r.Shadowed {
				continue
			}
			idx := commitIndex(hashesOf(stackCommits), r.CommitHash)
			if idx > srcIdx {
				laterRanges = append(laterRanges, r)
			}
		}

		hunks := byPath[path]
		if len(hunks) == 0 {
			// Whole-file spec: any later range on this path is a
			// dependent, since the whole file is being relocated.
			for _, r := range laterRanges {
				recordDependent(&dependentCommits, &dependentPaths, seenCommit, seenPath, r.CommitHash.String(), path)
			}
			continue
		}
		for _, h := range hunks {
			for _, hit := range hunkdep.Intersection(laterRanges, h.NewStart, h.NewLines) {
				recordDependent(&dependentCommits, &dependentPaths, seenCommit, seenPath, hit.CommitHash.String(), path)
			}
		}
	}

	if len(dependentCommits) > 0 {
		return corekit.New(corekit.KindConflict, "depends_on_commits",
			fmt.Sprintf("changes on %s are depended on by %d later commit(s) in the stack", source, len(dependentCommits))).
			WithPayload(corekit.DependencyPayload{Commits: dependentCommits, Paths: dependentPaths})
	}

	for _, wc := range worktreeChanges {
		hunks, ok := byPath[wc.Path]
		if !ok {
			continue
		}
		if len(hunks) == 0 || wc.WholeFile() {
			return corekit.New(corekit.KindConflict, "has_dependent_uncommitted_changes",
				fmt.Sprintf("the worktree has uncommitted changes to %s that depend on the moved changes", wc.Path)).
				WithPayload(corekit.DependencyPayload{Paths: []string{wc.Path}})
		}
		for _, wh := range wc.HunkHeaders {
			for _, h := range hunks {
				if wh.Intersects(h) {
					return corekit.New(corekit.KindConflict, "has_dependent_uncommitted_changes",
						fmt.Sprintf("the worktree has uncommitted changes to %s that depend on the moved changes", wc.Path)).
						WithPayload(corekit.DependencyPayload{Paths: []string{wc.Path}})
				}
			}
		}
	}

	return nil
}

func recordDependent(commits, paths *[]string, seenCommit, seenPath map[string]bool, commit, path string) {
	if !seenCommit[commit] {
		seenCommit[commit] = true
		*commits = append(*commits, commit)
	}
	if !seenPath[path] {
		seenPath[path] = true
		*paths = append(*paths, path)
	}
}

func hashesOf(commits []model.Commit) []git.Hash {
	out := make([]git.Hash, len(commits))
	for i, c := range commits {
		out[i] = c.Hash
	}
	return out
}
