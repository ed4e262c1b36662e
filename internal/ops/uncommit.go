package ops

import (
	"context"

	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/rebase"
)

// UncommitChanges is C10's entry point for uncommitting changes; it uses
// §4.7.5 directly (spec §4.10), with no additional orchestration of its
// own.
func UncommitChanges(ctx context.Context, repo *git.Repository, req rebase.UncommitRequest) (rebase.UncommitResult, error) {
	return rebase.UncommitChanges(ctx, repo, req)
}
