package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/aishell-go/assets"
	"github.com/doeshing/aishell-go/internal/domain"
)

func TestLoadWritesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	loader := NewFileLoader(path)

	cfg, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "local", cfg.Preferences.DefaultModel)
	assert.True(t, cfg.Rollback.Enabled)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, assets.DefaultConfigYAML, raw)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(domain.SecureFilePermissions), info.Mode().Perm())
}

func TestLoadUsesEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("policy:\n  compliance_profile: hipaa\n"), 0o600))
	t.Setenv(EnvConfigPath, path)

	cfg, err := NewFileLoader("").Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "HIPAA", cfg.GetComplianceProfile())
	assert.Equal(t, "local", cfg.Preferences.DefaultModel, "models default when absent")
	assert.True(t, cfg.Rollback.Enabled, "absent rollback section takes defaults")
	assert.True(t, cfg.Cache.Enabled, "absent cache section takes defaults")
	assert.NotEmpty(t, cfg.Cache.Dir)
	assert.True(t, cfg.Context.IncludeGit)
}

func TestParseKeepsExplicitValues(t *testing.T) {
	cfg, err := Parse([]byte(`
models:
  - name: cloud
    provider: gemini
rollback:
  enabled: false
  backup_dir: /var/backups/aishell
execution:
  timeout: 10s
`))
	require.NoError(t, err)
	assert.Equal(t, "cloud", cfg.Preferences.DefaultModel)
	assert.False(t, cfg.Rollback.Enabled)
	assert.Equal(t, "/var/backups/aishell", cfg.Rollback.BackupDir)
	assert.Equal(t, "10s", cfg.Execution.Timeout)
	assert.Empty(t, cfg.Preferences.FallbackModels)
}

func TestParseRejectsUnknownFields(t *testing.T) {
	_, err := Parse([]byte("preferences:\n  auto_execute: true\n"))
	require.Error(t, err)

	_, err = NewFileLoader(writeTemp(t, "models: [")).Load(context.Background())
	require.Error(t, err)
}

func TestSaveResetBackup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	loader := NewFileLoader(path)

	cfg := Default()
	cfg.Preferences.DefaultModel = "offline"
	require.NoError(t, loader.Save(cfg))

	loaded, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "offline", loaded.Preferences.DefaultModel)

	backup, err := loader.Backup()
	require.NoError(t, err)
	assert.FileExists(t, backup)

	reset, err := loader.Reset()
	require.NoError(t, err)
	assert.Equal(t, "local", reset.Preferences.DefaultModel)
}

func TestDefaultIsConsistent(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.ValidateConsistency())
	assert.NotEmpty(t, cfg.Policy.RulesFile)
}

func writeTemp(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
