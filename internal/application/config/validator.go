// Package config validates configuration beyond what YAML decoding checks.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/doeshing/aishell-go/internal/domain"
)

// Validate ensures config structure is consistent. All problems are reported together.
func Validate(cfg domain.Config) error {
	var errs []error
	if len(cfg.Models) == 0 {
		errs = append(errs, errors.New("at least one model must be configured"))
	}
	errs = append(errs, validateModels(cfg)...)
	if err := cfg.ValidateConsistency(); err != nil {
		errs = append(errs, err)
	}
	errs = append(errs, validatePolicy(cfg.Policy)...)
	errs = append(errs, validateResources(cfg.Resources)...)
	errs = append(errs, validateRollback(cfg.Rollback)...)
	errs = append(errs, validateExecution(cfg.Execution)...)
	errs = append(errs, validateLogging(cfg.Logging)...)
	errs = append(errs, validateDuration("cache.ttl", cfg.Cache.TTL)...)
	if cfg.Cache.MaxEntries < 0 {
		errs = append(errs, errors.New("cache.max_entries must be >= 0"))
	}
	return errors.Join(errs...)
}

func validateModels(cfg domain.Config) []error {
	var errs []error
	seen := make(map[string]bool, len(cfg.Models))
	for i, model := range cfg.Models {
		if model.Name == "" {
			errs = append(errs, fmt.Errorf("models[%d].name must be set", i))
			continue
		}
		if seen[model.Name] {
			errs = append(errs, fmt.Errorf("model %s is defined twice", model.Name))
		}
		seen[model.Name] = true
		switch strings.ToLower(model.Provider) {
		case "", domain.ProviderOllama, domain.ProviderGemini, domain.ProviderHeuristic:
		default:
			errs = append(errs, fmt.Errorf("model %s: provider must be ollama|gemini|heuristic, got %s", model.Name, model.Provider))
		}
		if model.MaxTokens < 0 {
			errs = append(errs, fmt.Errorf("model %s: max_tokens must be >= 0", model.Name))
		}
	}
	return errs
}

func validatePolicy(p domain.PolicySettings) []error {
	switch strings.ToUpper(strings.TrimSpace(p.ComplianceProfile)) {
	case "", "GENERAL", "HIPAA", "SOX":
		return nil
	}
	// custom profiles are checked against the rule set at load time
	if strings.ContainsAny(p.ComplianceProfile, " \t") {
		return []error{fmt.Errorf("policy.compliance_profile %q must be a single word", p.ComplianceProfile)}
	}
	return nil
}

func validateResources(r domain.ResourceSettings) []error {
	var errs []error
	for name, v := range map[string]float64{
		"cpu_max_percent":        r.CPUMaxPercent,
		"memory_max_percent":     r.MemoryMaxPercent,
		"disk_min_free_percent":  r.DiskMinFreePercent,
		"disk_warn_free_percent": r.DiskWarnFreePercent,
	} {
		if v < 0 || v > 100 {
			errs = append(errs, fmt.Errorf("resources.%s must be within 0-100, got %.1f", name, v))
		}
	}
	if r.ZombieMax < 0 {
		errs = append(errs, errors.New("resources.zombie_max must be >= 0"))
	}
	errs = append(errs, validateDuration("resources.cpu_sample_interval", r.CPUSampleInterval)...)
	errs = append(errs, validateDuration("resources.sample_timeout", r.SampleTimeout)...)
	return errs
}

func validateRollback(r domain.RollbackSettings) []error {
	var errs []error
	errs = append(errs, validateDuration("rollback.retention", r.Retention)...)
	errs = append(errs, validateDuration("rollback.audit_retention", r.AuditRetention)...)
	errs = append(errs, validateSize("rollback.max_bytes", r.MaxBytes)...)
	if r.MaxFiles < 0 {
		errs = append(errs, errors.New("rollback.max_files must be >= 0"))
	}
	return errs
}

func validateExecution(e domain.ExecutionSettings) []error {
	var errs []error
	errs = append(errs, validateDuration("execution.timeout", e.Timeout)...)
	errs = append(errs, validateSize("execution.max_output_bytes", e.MaxOutputBytes)...)
	return errs
}

func validateLogging(l domain.LoggingSettings) []error {
	var errs []error
	switch strings.ToLower(l.Sink) {
	case "", domain.SinkSQLite, domain.SinkJSONL:
	default:
		errs = append(errs, fmt.Errorf("logging.sink must be sqlite|jsonl, got %s", l.Sink))
	}
	switch strings.ToLower(l.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level must be debug|info|warn|error, got %s", l.Level))
	}
	return errs
}

func validateDuration(field, raw string) []error {
	if raw == "" {
		return nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return []error{fmt.Errorf("%s invalid: %w", field, err)}
	}
	if d <= 0 {
		return []error{fmt.Errorf("%s must be positive", field)}
	}
	return nil
}

func validateSize(field, raw string) []error {
	if raw == "" {
		return nil
	}
	n, err := humanize.ParseBytes(raw)
	if err != nil {
		return []error{fmt.Errorf("%s invalid: %w", field, err)}
	}
	if n == 0 {
		return []error{fmt.Errorf("%s must be positive", field)}
	}
	return nil
}
