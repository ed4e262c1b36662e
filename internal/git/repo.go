package git

import (
	"context"
	"fmt"
	"strings"

	"go.abhg.dev/log/silog"
)

// OpenOptions configures Open.
type OpenOptions struct {
	// Log is the logger used for diagnostic output.
	Log *silog.Logger

	exec execer
}

// Repository is a handle to a Git repository, implementing the Repository
// Facade (C1): object read/write, reference read/write, tree edit, tree
// merge, tree diff, index <-> tree conversion, and revision walking.
//
// All methods shell out to the git(1) CLI; nothing here reads .git
// internals directly.
type Repository struct {
	root   string
	gitDir string

	log  *silog.Logger
	exec execer
}

// Open opens the repository at dir. If dir is empty, the current working
// directory is used.
func Open(ctx context.Context, dir string, opts OpenOptions) (*Repository, error) {
	if opts.exec == nil {
		opts.exec = _realExec
	}
	if opts.Log == nil {
		opts.Log = silog.Nop()
	}

	out, err := newGitCmd(ctx, opts.Log, "rev-parse", "--show-toplevel", "--absolute-git-dir").
		Dir(dir).OutputString(opts.exec)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	root, gitDir, ok := strings.Cut(out, "\n")
	if !ok {
		return nil, fmt.Errorf("unexpected output from git rev-parse: %q", out)
	}

	return &Repository{root: root, gitDir: gitDir, log: opts.Log, exec: opts.exec}, nil
}

// Root returns the repository's working tree root.
func (r *Repository) Root() string { return r.root }

// GitDir returns the repository's private data directory (".git").
func (r *Repository) GitDir() string { return r.gitDir }

func (r *Repository) gitCmd(ctx context.Context, args ...string) *gitCmd {
	return newGitCmd(ctx, r.log, args...).Dir(r.root)
}
