// Package doctor runs environment diagnostics.
package doctor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	appconfig "github.com/doeshing/aishell-go/internal/application/config"
	"github.com/doeshing/aishell-go/internal/domain"
	"github.com/doeshing/aishell-go/internal/ports"
)

const probeTimeout = 10 * time.Second

// Service runs environment diagnostics.
type Service struct {
	ConfigProvider ports.ConfigProvider
	// LoadPolicy compiles the configured rule set from disk.
	LoadPolicy func() (ports.PolicySnapshot, error)
	Gate       ports.ResourceGate
	Generator  ports.Generator
	History    ports.HistoryRepository
	BackupDir  string
	Shell      string
}

// Run executes checks and returns a report.
func (s *Service) Run(ctx context.Context) (domain.HealthReport, error) {
	var checks []domain.HealthCheck

	cfg, err := s.ConfigProvider.Load(ctx)
	if err != nil {
		checks = append(checks, fail("Config file", fmt.Sprintf("load failed: %v", err)))
		return domain.HealthReport{Checks: checks}, err
	}
	if err := appconfig.Validate(cfg); err != nil {
		checks = append(checks, fail("Config file", strings.ReplaceAll(err.Error(), "\n", "; ")))
	} else {
		checks = append(checks, ok("Config file", fmt.Sprintf("format %s", cfg.ConfigFormatVersion)))
	}

	checks = append(checks, s.policyCheck(cfg))
	checks = append(checks, s.generatorCheck(ctx, cfg))
	checks = append(checks, s.telemetryCheck(ctx))
	checks = append(checks, backupCheck(s.BackupDir))
	checks = append(checks, s.historyCheck(ctx))
	checks = append(checks, shellCheck(s.Shell))

	return domain.HealthReport{Checks: checks}, nil
}

func (s *Service) policyCheck(cfg domain.Config) domain.HealthCheck {
	if s.LoadPolicy == nil {
		return warn("Policy", "policy loader not initialized")
	}
	snapshot, err := s.LoadPolicy()
	if err != nil {
		return fail("Policy", err.Error())
	}
	profile := cfg.GetComplianceProfile()
	profiles := snapshot.Profiles()
	if profile != "" && !contains(profiles, profile) {
		return fail("Policy", fmt.Sprintf("compliance profile %s not defined (have %s)", profile, strings.Join(profiles, ", ")))
	}
	return ok("Policy", fmt.Sprintf("profiles: %s", strings.Join(profiles, ", ")))
}

func (s *Service) generatorCheck(ctx context.Context, cfg domain.Config) domain.HealthCheck {
	for _, model := range cfg.Models {
		if strings.EqualFold(model.Provider, domain.ProviderGemini) && envMissing(model.AuthEnvVar, "GEMINI_API_KEY") {
			return warn("Generator", fmt.Sprintf("model %s: API key missing", model.Name))
		}
	}
	if s.Generator == nil {
		return warn("Generator", "no generator configured")
	}
	probeCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if _, err := s.Generator.Generate(probeCtx, ports.GenerateRequest{Prompt: "list files in the current directory"}); err != nil {
		return warn("Generator", fmt.Sprintf("%s unreachable: %v", s.Generator.Name(), err))
	}
	return ok("Generator", s.Generator.Name()+" responded")
}

func (s *Service) telemetryCheck(ctx context.Context) domain.HealthCheck {
	if s.Gate == nil {
		return warn("Telemetry", "resource gate not initialized")
	}
	snap, err := s.Gate.Check(ctx)
	if err != nil {
		return fail("Telemetry", err.Error())
	}
	details := fmt.Sprintf("cpu %.1f%%, memory %.1f%%, disk free %.1f%% (%s), zombies %d",
		snap.CPUPercent, snap.MemoryPercent, snap.DiskFreePercent, humanize.IBytes(snap.DiskFreeBytes), snap.Zombies)
	if !snap.Sampled {
		return warn("Telemetry", strings.Join(snap.Reasons, "; "))
	}
	switch snap.Decision {
	case domain.GateBlock:
		return fail("Telemetry", details+": "+strings.Join(snap.Reasons, "; "))
	case domain.GateWarn:
		return warn("Telemetry", details+": "+strings.Join(snap.Reasons, "; "))
	}
	return ok("Telemetry", details)
}

func (s *Service) historyCheck(ctx context.Context) domain.HealthCheck {
	if s.History == nil {
		return warn("History", "outcome sink not initialized")
	}
	stats, err := s.History.Stats(ctx)
	if err != nil {
		return fail("History", err.Error())
	}
	return ok("History", fmt.Sprintf("%d records", stats.Total))
}

func backupCheck(dir string) domain.HealthCheck {
	if dir == "" {
		return warn("Backups", "rollback disabled")
	}
	if err := os.MkdirAll(dir, domain.SecureDirectoryPermissions); err != nil {
		return fail("Backups", err.Error())
	}
	f, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return fail("Backups", fmt.Sprintf("%s not writable: %v", dir, err))
	}
	name := f.Name()
	_ = f.Close()
	_ = os.Remove(name)
	return ok("Backups", dir)
}

func shellCheck(shell string) domain.HealthCheck {
	if shell == "" {
		return fail("Shell", "no shell configured")
	}
	path, err := exec.LookPath(shell)
	if err != nil {
		return fail("Shell", err.Error())
	}
	return ok("Shell", path)
}

func contains(items []string, needle string) bool {
	for _, item := range items {
		if item == needle {
			return true
		}
	}
	return false
}

func envMissing(primary, fallback string) bool {
	if primary != "" && os.Getenv(primary) != "" {
		return false
	}
	if fallback != "" && os.Getenv(fallback) != "" {
		return false
	}
	return true
}

func ok(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthOK, Details: details}
}

func warn(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthWarn, Details: details}
}

func fail(name, details string) domain.HealthCheck {
	return domain.HealthCheck{Name: name, Status: domain.HealthError, Details: details}
}
