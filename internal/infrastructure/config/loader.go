// Package config loads ~/.aishell/config.yaml.
package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/doeshing/aishell-go/assets"
	"github.com/doeshing/aishell-go/internal/domain"
	"github.com/doeshing/aishell-go/internal/pkg/filesystem"
	"github.com/doeshing/aishell-go/internal/ports"
)

// EnvConfigPath overrides the config file location.
const EnvConfigPath = "AISHELL_CONFIG"

// FileLoader loads YAML configuration from ~/.aishell/config.yaml (overridable via AISHELL_CONFIG).
type FileLoader struct {
	overridePath string
}

// NewFileLoader builds a new loader.
func NewFileLoader(path string) *FileLoader {
	return &FileLoader{overridePath: path}
}

// Load implements ports.ConfigProvider.
// A missing file is created from the embedded defaults.
func (l *FileLoader) Load(context.Context) (domain.Config, error) {
	path := l.resolvePath()
	if err := ensureConfigDir(path); err != nil {
		return domain.Config{}, fmt.Errorf("ensure config dir: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return domain.Config{}, err
		}
		if err := os.WriteFile(path, assets.DefaultConfigYAML, domain.SecureFilePermissions); err != nil {
			return domain.Config{}, fmt.Errorf("write default config: %w", err)
		}
		data = assets.DefaultConfigYAML
	}

	cfg, err := Parse(data)
	if err != nil {
		return domain.Config{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a config document strictly and fills unset fields from the defaults.
func Parse(data []byte) (domain.Config, error) {
	cfg := Default()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}
	var user domain.Config
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&user); err != nil {
		return domain.Config{}, err
	}
	return hydrateDefaults(user, cfg), nil
}

// Path returns the resolved config file path.
func (l *FileLoader) Path() string {
	return l.resolvePath()
}

// Save writes the given config back to disk.
func (l *FileLoader) Save(cfg domain.Config) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	path := l.resolvePath()
	if err := ensureConfigDir(path); err != nil {
		return err
	}
	return os.WriteFile(path, raw, domain.SecureFilePermissions)
}

// Reset overwrites the config with the embedded defaults.
func (l *FileLoader) Reset() (domain.Config, error) {
	path := l.resolvePath()
	if err := ensureConfigDir(path); err != nil {
		return domain.Config{}, err
	}
	if err := os.WriteFile(path, assets.DefaultConfigYAML, domain.SecureFilePermissions); err != nil {
		return domain.Config{}, err
	}
	return Default(), nil
}

// Backup copies the current config file to a timestamped backup.
func (l *FileLoader) Backup() (string, error) {
	path := l.resolvePath()
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	backup := fmt.Sprintf("%s.%s.bak", path, time.Now().Format("20060102T150405"))
	if err := os.WriteFile(backup, data, domain.SecureFilePermissions); err != nil {
		return "", err
	}
	return backup, nil
}

func (l *FileLoader) resolvePath() string {
	if l.overridePath != "" {
		return filesystem.ExpandPath(l.overridePath, "config.yaml")
	}
	if custom := os.Getenv(EnvConfigPath); custom != "" {
		return filesystem.ExpandPath(custom, "config.yaml")
	}
	return filepath.Join(filesystem.AppDir(), "config.yaml")
}

func ensureConfigDir(path string) error {
	return os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions)
}

// Default returns the embedded default configuration.
func Default() domain.Config {
	var cfg domain.Config
	if err := yaml.Unmarshal(assets.DefaultConfigYAML, &cfg); err != nil {
		// embedded asset is covered by tests
		panic(fmt.Sprintf("embedded default config: %v", err))
	}
	return cfg
}

// hydrateDefaults fills sections the user left out. Booleans cannot be told
// apart from false, so only sections that are entirely absent get defaults.
func hydrateDefaults(cfg, def domain.Config) domain.Config {
	if cfg.ConfigFormatVersion == "" {
		cfg.ConfigFormatVersion = def.ConfigFormatVersion
	}
	if len(cfg.Models) == 0 {
		cfg.Models = def.Models
		if cfg.Preferences.DefaultModel == "" {
			cfg.Preferences.DefaultModel = def.Preferences.DefaultModel
		}
		if cfg.Preferences.FallbackModels == nil {
			cfg.Preferences.FallbackModels = def.Preferences.FallbackModels
		}
	}
	if cfg.Preferences.DefaultModel == "" && len(cfg.Models) > 0 {
		cfg.Preferences.DefaultModel = cfg.Models[0].Name
	}
	if cfg.Policy.RulesFile == "" {
		cfg.Policy.RulesFile = def.Policy.RulesFile
	}
	if cfg.Rollback == (domain.RollbackSettings{}) {
		cfg.Rollback = def.Rollback
	}
	if cfg.Rollback.BackupDir == "" {
		cfg.Rollback.BackupDir = def.Rollback.BackupDir
	}
	if isZeroContext(cfg.Context) {
		cfg.Context = def.Context
	}
	if cfg.Cache == (domain.CacheSettings{}) {
		cfg.Cache = def.Cache
	}
	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = def.Cache.Dir
	}
	if cfg.Logging.Sink == "" {
		cfg.Logging.Sink = def.Logging.Sink
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	return cfg
}

func isZeroContext(c domain.ContextSettings) bool {
	return !c.IncludeGit && !c.IncludeTools && len(c.Tools) == 0
}

var _ ports.ConfigProvider = (*FileLoader)(nil)
