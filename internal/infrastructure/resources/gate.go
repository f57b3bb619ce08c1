// Package resources samples live system state and turns it into a
// PROCEED/WARN/BLOCK decision before a command runs.
package resources

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/doeshing/aishell-go/internal/domain"
	"github.com/doeshing/aishell-go/internal/ports"
)

// Gate implements ports.ResourceGate.
//
// Only a critically full disk blocks. Every other breach, including missing
// telemetry, produces WARN.
type Gate struct {
	sampler    ports.ResourceSampler
	thresholds domain.ResourceThresholds
	timeout    time.Duration
	logger     ports.Logger
	now        func() time.Time
}

// NewGate builds a gate. A zero timeout uses domain.DefaultSampleTimeout.
func NewGate(sampler ports.ResourceSampler, thresholds domain.ResourceThresholds, timeout time.Duration, logger ports.Logger) *Gate {
	if timeout <= 0 {
		timeout = domain.DefaultSampleTimeout
	}
	return &Gate{
		sampler:    sampler,
		thresholds: thresholds,
		timeout:    timeout,
		logger:     logger,
		now:        time.Now,
	}
}

// Thresholds returns the configured limits.
func (g *Gate) Thresholds() domain.ResourceThresholds { return g.thresholds }

// Check samples and evaluates. The error is non-nil only when the sampler panicked.
func (g *Gate) Check(ctx context.Context) (snap domain.ResourceSnapshot, err error) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("resource sampler panicked", fmt.Errorf("%v", r), nil)
			snap = domain.ResourceSnapshot{}
			err = fmt.Errorf("%w: resource sampler panic: %v", domain.ErrEngineFailure, r)
		}
	}()

	sctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	sample, sampleErr := g.sampler.Sample(sctx)
	if sampleErr != nil {
		g.logger.Warn("resource telemetry incomplete", map[string]interface{}{
			"error":   sampleErr.Error(),
			"missing": sample.Missing,
		})
	}
	snap = Evaluate(sample, sampleErr, g.thresholds)
	snap.TakenAt = g.now()

	g.logger.Debug("resource gate evaluated", map[string]interface{}{
		"decision":  snap.Decision.String(),
		"cpu":       snap.CPUPercent,
		"memory":    snap.MemoryPercent,
		"disk_free": snap.DiskFreePercent,
		"zombies":   snap.Zombies,
	})
	return snap, nil
}

// Evaluate applies thresholds to a sample. sampleErr marks the whole sample as
// unreliable when the sampler did not say which metrics failed.
func Evaluate(sample domain.ResourceSample, sampleErr error, t domain.ResourceThresholds) domain.ResourceSnapshot {
	snap := domain.ResourceSnapshot{
		CPUPercent:      sample.CPUPercent,
		MemoryPercent:   sample.MemoryPercent,
		DiskFreePercent: sample.DiskFreePercent,
		DiskFreeBytes:   sample.DiskFreeBytes,
		DiskPath:        sample.DiskPath,
		Zombies:         sample.Zombies,
		Thresholds:      t,
		Sampled:         sampleErr == nil,
		Decision:        domain.GateProceed,
	}
	warn := func(format string, args ...interface{}) {
		if snap.Decision < domain.GateWarn {
			snap.Decision = domain.GateWarn
		}
		snap.Reasons = append(snap.Reasons, fmt.Sprintf(format, args...))
	}

	if sampleErr != nil && len(sample.Missing) == 0 {
		warn("system telemetry unavailable: %v", sampleErr)
		return snap
	}
	for _, metric := range sample.Missing {
		warn("%s telemetry unavailable", metric)
	}

	if sample.Has(domain.MetricDisk) {
		switch {
		case sample.DiskFreePercent < t.DiskMinFreePercent:
			snap.Decision = domain.GateBlock
			snap.Reasons = append(snap.Reasons, fmt.Sprintf("disk %s critically full: %.1f%% free (%s), minimum %.1f%%",
				sample.DiskPath, sample.DiskFreePercent, humanize.IBytes(sample.DiskFreeBytes), t.DiskMinFreePercent))
		case sample.DiskFreePercent < t.DiskWarnFreePercent:
			warn("disk %s low: %.1f%% free (%s)", sample.DiskPath, sample.DiskFreePercent, humanize.IBytes(sample.DiskFreeBytes))
		}
	}
	if sample.Has(domain.MetricCPU) && sample.CPUPercent > t.CPUMaxPercent {
		warn("high CPU usage: %.1f%% (limit %.1f%%)", sample.CPUPercent, t.CPUMaxPercent)
	}
	if sample.Has(domain.MetricMemory) && sample.MemoryPercent > t.MemoryMaxPercent {
		warn("high memory usage: %.1f%% (limit %.1f%%)", sample.MemoryPercent, t.MemoryMaxPercent)
	}
	if sample.Has(domain.MetricZombies) && sample.Zombies > t.ZombieMax {
		warn("%d zombie processes (limit %d)", sample.Zombies, t.ZombieMax)
	}
	return snap
}

var _ ports.ResourceGate = (*Gate)(nil)
