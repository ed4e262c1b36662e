// Package ops implements the Move/Split/Uncommit Operations (C10):
// high-level orchestration on top of C6 (hunk dependency), C7 (cherry-pick
// and rebase), and C8 (diff spec application) that moves a set of changes
// from one commit to another, splits a branch's commits by file path, and
// exposes uncommit_changes directly from the rebase engine.
package ops

import (
	"fmt"

	"go.gitbutler.dev/core/internal/git"
)

func bodySuffix(body string) string {
	if body == "" {
		return ""
	}
	return "\n\n" + body
}

func commitIndex(commits []git.Hash, hash git.Hash) int {
	for i, h := range commits {
		if h == hash {
			return i
		}
	}
	return -1
}

func requireFound(what string, hash git.Hash, idx int) error {
	if idx == -1 {
		return fmt.Errorf("%s %s not found in the given stack", what, hash)
	}
	return nil
}
