package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	"go.abhg.dev/log/silog"
	"go.gitbutler.dev/core/internal/config"
	"go.gitbutler.dev/core/internal/git"
	"go.gitbutler.dev/core/internal/worktree"
)

// globalOptions are flags shared by every subcommand.
type globalOptions struct {
	Repo    string `name:"repo" short:"C" help:"path to the repository (defaults to the current directory)"`
	Verbose bool   `short:"v" help:"enable verbose logging"`
}

type rootCmd struct {
	globalOptions

	Status   statusCmd   `cmd:"" help:"Show worktree status and the synthesized worktree tree id"`
	Snapshot snapshotCmd `cmd:"" help:"Create, list, and resolve oplog snapshots"`
	Worktree worktreeCmd `cmd:"" help:"Create, list, and integrate auxiliary worktrees"`

	Version    versionFlag `help:"Print version information and quit"`
	VersionCmd versionCmd  `cmd:"version" name:"version" help:"Print version information"`
}

// privateDataDir is where the engine keeps everything that isn't a Git
// object or ref: the config document, the worktree lock file, and the
// ref-metadata store.
func privateDataDir(repo *git.Repository) string {
	return filepath.Join(repo.GitDir(), "gitbutler")
}

func (cmd *rootCmd) AfterApply(kctx *kong.Context, ctx context.Context) error {
	lvl := silog.LevelInfo
	if cmd.Verbose {
		lvl = silog.LevelDebug
	}
	log := silog.New(os.Stderr, &silog.Options{Level: lvl})

	repo, err := git.Open(ctx, cmd.Repo, git.OpenOptions{Log: log})
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}

	dataDir := privateDataDir(repo)
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create private data directory: %w", err)
	}

	cfg, err := config.Load(dataDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	lock, err := worktree.NewLock(dataDir)
	if err != nil {
		return fmt.Errorf("init worktree lock: %w", err)
	}

	kctx.Bind(log, repo, cfg, lock)
	kctx.BindTo(io.Writer(os.Stdout), (*io.Writer)(nil))
	return nil
}
