// Package config loads the engine's tunable knobs (spec §4.7, §4.9) from
// a YAML document in the repository's private data directory, the same
// document shape and merge-with-defaults approach as the teacher's
// per-feature config loaders: file values override the built-in
// defaults only when non-zero, and a handful of knobs can additionally
// be overridden by environment variables, the way the teacher's root
// command reads GITHUB_TOKEN.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// fileName is the config document's name within the repository's
// private data directory (e.g. "<repo>/.git/gitbutler/config.yaml").
const fileName = "config.yaml"

// Config holds the engine tunables named in spec.md: the stack-walk
// commit limit (§4.3), the rebase no-op policy (§4.7), the untracked
// file size cutoff for worktree_tree_id (§4.1), the hunk-diff context
// line count shared by C6 and C7, and the external signing command
// invoked by the commit/rebase engine.
type Config struct {
	// StackCommitLimit bounds how many commits a stack traversal (§4.3)
	// walks back from a branch tip before giving up.
	StackCommitLimit int `yaml:"stack_commit_limit"`

	// RebaseNoops, when true, keeps cherry-picks whose resulting tree
	// equals the parent's tree; when false (the default), they are
	// dropped (spec §4.7 step 5).
	RebaseNoops bool `yaml:"rebase_noops"`

	// UntrackedLimitBytes is the size cutoff above which an untracked
	// file is left out of worktree_tree_id (spec §4.1).
	UntrackedLimitBytes int64 `yaml:"untracked_limit_bytes"`

	// ContextLines is the number of unchanged lines of context kept on
	// either side of a hunk, shared by the hunk-dependency engine (C6)
	// and the DiffSpec extraction/application routines (C7).
	ContextLines int `yaml:"context_lines"`

	// SigningCommand, if set, is the external helper (e.g. "gpg" or
	// "ssh-keygen -Y sign") the rebase engine shells out to when
	// sign_if_configured applies (spec §4.7 step 4).
	SigningCommand string `yaml:"signing_command"`
}

// Default returns the engine's built-in tunables.
func Default() *Config {
	return &Config{
		StackCommitLimit:    500,
		RebaseNoops:         false,
		UntrackedLimitBytes: 10 << 20, // 10 MiB
		ContextLines:        3,
		SigningCommand:      "",
	}
}

// Environment variable names honored as overrides, mirroring the
// teacher's `env:"GITHUB_TOKEN"` convention for its own CLI flags.
const (
	envStackCommitLimit    = "GITBUTLER_STACK_COMMIT_LIMIT"
	envRebaseNoops         = "GITBUTLER_REBASE_NOOPS"
	envUntrackedLimitBytes = "GITBUTLER_UNTRACKED_LIMIT_BYTES"
	envContextLines        = "GITBUTLER_CONTEXT_LINES"
	envSigningCommand      = "GITBUTLER_SIGNING_COMMAND"
)

// Load reads the config document from privateDataDir, merging it over
// Default() and then applying any environment variable overrides. A
// missing file is not an error; Default() is used in its place.
//
// Merge rule: a present, non-zero file value overrides the default;
// a field the file omits (its YAML zero value) keeps the default, so
// config.yaml only needs to name the knobs a caller wants to change.
func Load(privateDataDir string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filepath.Join(privateDataDir, fileName))
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		var fileCfg Config
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
		mergeNonZero(cfg, &fileCfg)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func mergeNonZero(cfg, file *Config) {
	if file.StackCommitLimit != 0 {
		cfg.StackCommitLimit = file.StackCommitLimit
	}
	// RebaseNoops has no unset state distinct from false, so only an
	// explicit true in the file turns it on; a false or omitted value
	// leaves the default (false) in place.
	if file.RebaseNoops {
		cfg.RebaseNoops = true
	}
	if file.UntrackedLimitBytes != 0 {
		cfg.UntrackedLimitBytes = file.UntrackedLimitBytes
	}
	if file.ContextLines != 0 {
		cfg.ContextLines = file.ContextLines
	}
	if file.SigningCommand != "" {
		cfg.SigningCommand = file.SigningCommand
	}
}

func applyEnv(cfg *Config) error {
	if v := os.Getenv(envStackCommitLimit); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", envStackCommitLimit, err)
		}
		cfg.StackCommitLimit = n
	}
	if v := os.Getenv(envRebaseNoops); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", envRebaseNoops, err)
		}
		cfg.RebaseNoops = b
	}
	if v := os.Getenv(envUntrackedLimitBytes); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", envUntrackedLimitBytes, err)
		}
		cfg.UntrackedLimitBytes = n
	}
	if v := os.Getenv(envContextLines); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", envContextLines, err)
		}
		cfg.ContextLines = n
	}
	if v := os.Getenv(envSigningCommand); v != "" {
		cfg.SigningCommand = v
	}
	return nil
}
