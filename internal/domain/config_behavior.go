package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// GetDefaultModel retrieves the default model definition from configuration
// Returns an error if the default model is not found
func (c *Config) GetDefaultModel() (ModelDefinition, error) {
	if c.Preferences.DefaultModel == "" {
		return ModelDefinition{}, fmt.Errorf("no default model configured")
	}

	for _, model := range c.Models {
		if model.Name == c.Preferences.DefaultModel {
			return model, nil
		}
	}

	return ModelDefinition{}, fmt.Errorf("default model %s not found in configuration", c.Preferences.DefaultModel)
}

// FindModelByName searches for a model by its name
func (c *Config) FindModelByName(name string) (ModelDefinition, bool) {
	for _, model := range c.Models {
		if model.Name == name {
			return model, true
		}
	}
	return ModelDefinition{}, false
}

// HasModel checks if a model with the given name exists in the configuration
func (c *Config) HasModel(name string) bool {
	_, exists := c.FindModelByName(name)
	return exists
}

// GetFallbackModels returns the configured fallback models that actually exist
func (c *Config) GetFallbackModels() []ModelDefinition {
	var fallbackModels []ModelDefinition
	for _, fallbackName := range c.Preferences.FallbackModels {
		if fallbackName == c.Preferences.DefaultModel {
			continue
		}
		if model, exists := c.FindModelByName(fallbackName); exists {
			fallbackModels = append(fallbackModels, model)
		}
	}
	return fallbackModels
}

// GetComplianceProfile returns the upper-cased active profile, or "" when none is set.
func (c *Config) GetComplianceProfile() string {
	return strings.ToUpper(strings.TrimSpace(c.Policy.ComplianceProfile))
}

// GetResourceThresholds returns thresholds with defaults applied to zero values
func (c *Config) GetResourceThresholds() ResourceThresholds {
	t := c.Resources.ResourceThresholds
	if t.CPUMaxPercent <= 0 {
		t.CPUMaxPercent = DefaultCPUMaxPercent
	}
	if t.MemoryMaxPercent <= 0 {
		t.MemoryMaxPercent = DefaultMemoryMaxPercent
	}
	if t.DiskMinFreePercent <= 0 {
		t.DiskMinFreePercent = DefaultDiskMinFreePercent
	}
	if t.DiskWarnFreePercent < t.DiskMinFreePercent {
		t.DiskWarnFreePercent = DefaultDiskWarnFreePercent
		if t.DiskWarnFreePercent < t.DiskMinFreePercent {
			t.DiskWarnFreePercent = t.DiskMinFreePercent
		}
	}
	if t.ZombieMax <= 0 {
		t.ZombieMax = DefaultZombieMax
	}
	return t
}

// GetDiskPath returns the filesystem sampled for free space
func (c *Config) GetDiskPath() string {
	if c.Resources.DiskPath == "" {
		return DefaultDiskPath
	}
	return c.Resources.DiskPath
}

// GetCPUSampleInterval returns how long CPU usage is measured
func (c *Config) GetCPUSampleInterval() time.Duration {
	return durationOr(c.Resources.CPUSampleInterval, DefaultCPUSampleInterval)
}

// GetSampleTimeout bounds a full resource sample
func (c *Config) GetSampleTimeout() time.Duration {
	return durationOr(c.Resources.SampleTimeout, DefaultSampleTimeout)
}

// GetRollbackRetention returns how long unconsumed records are kept
func (c *Config) GetRollbackRetention() time.Duration {
	return durationOr(c.Rollback.Retention, DefaultRollbackRetention)
}

// GetAuditRetention returns how long consumed records are kept
func (c *Config) GetAuditRetention() time.Duration {
	return durationOr(c.Rollback.AuditRetention, DefaultAuditRetention)
}

// GetRollbackMaxFiles returns the snapshot file bound
func (c *Config) GetRollbackMaxFiles() int {
	if c.Rollback.MaxFiles <= 0 {
		return DefaultRollbackMaxFiles
	}
	return c.Rollback.MaxFiles
}

// GetRollbackMaxBytes returns the snapshot size bound
func (c *Config) GetRollbackMaxBytes() int64 {
	return bytesOr(c.Rollback.MaxBytes, DefaultRollbackMaxBytes)
}

// GetExecutionShell returns the configured shell for command execution
func (c *Config) GetExecutionShell() string {
	if c.Execution.Shell == "" {
		return DefaultShell
	}
	return c.Execution.Shell
}

// GetCommandTimeout returns the supervised command timeout
func (c *Config) GetCommandTimeout() time.Duration {
	return durationOr(c.Execution.Timeout, DefaultCommandTimeout)
}

// GetMaxOutputBytes returns the per-stream capture bound
func (c *Config) GetMaxOutputBytes() int64 {
	return bytesOr(c.Execution.MaxOutputBytes, DefaultMaxOutputBytes)
}

// GetSinkKind returns the outcome sink kind
func (c *Config) GetSinkKind() string {
	if c.Logging.Sink == "" {
		return SinkSQLite
	}
	return strings.ToLower(c.Logging.Sink)
}

// GetCacheTTL returns how long generator replies stay valid
func (c *Config) GetCacheTTL() time.Duration {
	return durationOr(c.Cache.TTL, DefaultCacheTTL)
}

// GetCacheMaxEntries returns the reply cache bound
func (c *Config) GetCacheMaxEntries() int {
	if c.Cache.MaxEntries <= 0 {
		return DefaultCacheMaxEntries
	}
	return c.Cache.MaxEntries
}

// ValidateConsistency checks the internal consistency of the configuration
func (c *Config) ValidateConsistency() error {
	if c.Preferences.DefaultModel != "" && !c.HasModel(c.Preferences.DefaultModel) {
		return fmt.Errorf("default model %s does not exist in models list", c.Preferences.DefaultModel)
	}

	for _, fallbackName := range c.Preferences.FallbackModels {
		if !c.HasModel(fallbackName) {
			return fmt.Errorf("fallback model %s does not exist in models list", fallbackName)
		}
	}

	t := c.GetResourceThresholds()
	if t.DiskWarnFreePercent < t.DiskMinFreePercent {
		return fmt.Errorf("disk_warn_free_percent %.1f is below disk_min_free_percent %.1f", t.DiskWarnFreePercent, t.DiskMinFreePercent)
	}

	return nil
}

func durationOr(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func bytesOr(raw string, fallback int64) int64 {
	if raw == "" {
		return fallback
	}
	n, err := humanize.ParseBytes(raw)
	if err != nil || n == 0 {
		return fallback
	}
	return int64(n)
}
