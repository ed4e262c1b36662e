// Package gittest sets up throwaway repositories backed by a real git
// binary for integration tests, the same way the engine talks to git in
// production: by shelling out, never by faking the plumbing.
package gittest

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"go.gitbutler.dev/core/internal/git"
)

// NewRepo initializes a fresh repository in a temp directory and opens
// it, failing the test on any error.
func NewRepo(t testing.TB) *git.Repository {
	t.Helper()

	dir := t.TempDir()
	run(t, dir, "init", "--initial-branch=main", "-q")
	run(t, dir, "config", "user.name", "Test")
	run(t, dir, "config", "user.email", "test@example.com")
	run(t, dir, "config", "commit.gpgsign", "false")

	repo, err := git.Open(context.Background(), dir, git.OpenOptions{})
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	return repo
}

// Run executes an arbitrary git subcommand against dir, failing the
// test on error. Useful for seeding fixtures (writing files, staging,
// committing) that have no direct engine equivalent.
func Run(t testing.TB, dir string, args ...string) string {
	t.Helper()
	return run(t, dir, args...)
}

func run(t testing.TB, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
	return string(out)
}

// WriteFile writes a worktree file relative to dir, creating parent
// directories as needed.
func WriteFile(t testing.TB, dir, path, content string) {
	t.Helper()
	full := filepath.Join(dir, path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", filepath.Dir(full), err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", full, err)
	}
}
