package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.gitbutler.dev/core/internal/config"
)

func TestLoad_missingFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, config.Default(), cfg)
}

func TestLoad_fileOverridesOnlySetFields(t *testing.T) {
	dir := t.TempDir()
	doc := "stack_commit_limit: 50\nsigning_command: gpg\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(doc), 0o644))

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.StackCommitLimit)
	assert.Equal(t, "gpg", cfg.SigningCommand)
	assert.Equal(t, config.Default().UntrackedLimitBytes, cfg.UntrackedLimitBytes)
	assert.Equal(t, config.Default().ContextLines, cfg.ContextLines)
}

func TestLoad_envOverridesFile(t *testing.T) {
	dir := t.TempDir()
	doc := "stack_commit_limit: 50\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(doc), 0o644))

	t.Setenv("GITBUTLER_STACK_COMMIT_LIMIT", "75")
	t.Setenv("GITBUTLER_REBASE_NOOPS", "true")

	cfg, err := config.Load(dir)
	require.NoError(t, err)
	assert.Equal(t, 75, cfg.StackCommitLimit)
	assert.True(t, cfg.RebaseNoops)
}
