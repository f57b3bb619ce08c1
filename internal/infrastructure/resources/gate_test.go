package resources

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/aishell-go/internal/domain"
	"github.com/doeshing/aishell-go/internal/pkg/logger"
)

type stubSampler struct {
	sample domain.ResourceSample
	err    error
	panics bool
	calls  int
}

func (s *stubSampler) Sample(ctx context.Context) (domain.ResourceSample, error) {
	s.calls++
	if s.panics {
		panic("telemetry driver exploded")
	}
	return s.sample, s.err
}

func defaultThresholds() domain.ResourceThresholds {
	var cfg domain.Config
	return cfg.GetResourceThresholds()
}

func healthy() domain.ResourceSample {
	return domain.ResourceSample{
		CPUPercent:      12,
		MemoryPercent:   40,
		DiskFreePercent: 55,
		DiskFreeBytes:   100 << 30,
		DiskPath:        "/",
		Zombies:         0,
	}
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*domain.ResourceSample)
		want    domain.GateDecision
		reasons int
	}{
		{name: "healthy", mutate: func(*domain.ResourceSample) {}, want: domain.GateProceed},
		{name: "high cpu", mutate: func(s *domain.ResourceSample) { s.CPUPercent = 97 }, want: domain.GateWarn, reasons: 1},
		{name: "high memory", mutate: func(s *domain.ResourceSample) { s.MemoryPercent = 95 }, want: domain.GateWarn, reasons: 1},
		{name: "zombies", mutate: func(s *domain.ResourceSample) { s.Zombies = 9 }, want: domain.GateWarn, reasons: 1},
		{name: "low disk", mutate: func(s *domain.ResourceSample) { s.DiskFreePercent = 8 }, want: domain.GateWarn, reasons: 1},
		{name: "critical disk", mutate: func(s *domain.ResourceSample) { s.DiskFreePercent = 2 }, want: domain.GateBlock, reasons: 1},
		{name: "block wins over warnings", mutate: func(s *domain.ResourceSample) {
			s.DiskFreePercent = 1
			s.CPUPercent = 99
		}, want: domain.GateBlock, reasons: 2},
		{name: "at threshold proceeds", mutate: func(s *domain.ResourceSample) { s.CPUPercent = 90 }, want: domain.GateProceed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := healthy()
			tt.mutate(&s)
			snap := Evaluate(s, nil, defaultThresholds())
			assert.Equal(t, tt.want, snap.Decision)
			assert.Len(t, snap.Reasons, tt.reasons)
			assert.True(t, snap.Sampled)
			assert.Equal(t, tt.want == domain.GateProceed, snap.Safe())
		})
	}
}

func TestEvaluate_SamplingFailureDegradesToWarn(t *testing.T) {
	snap := Evaluate(domain.ResourceSample{}, errors.New("permission denied"), defaultThresholds())
	assert.Equal(t, domain.GateWarn, snap.Decision)
	assert.False(t, snap.Sampled)
	require.Len(t, snap.Reasons, 1)
	assert.Contains(t, snap.Reasons[0], "unavailable")
}

func TestEvaluate_MissingDiskNeverBlocks(t *testing.T) {
	s := healthy()
	s.DiskFreePercent = 0
	s.Missing = []string{domain.MetricDisk}
	err := &domain.ResourceSampleError{Metric: domain.MetricDisk, Err: errors.New("statfs failed")}

	snap := Evaluate(s, err, defaultThresholds())
	assert.Equal(t, domain.GateWarn, snap.Decision)
	assert.Equal(t, []string{"disk telemetry unavailable"}, snap.Reasons)
}

func TestGate_Check(t *testing.T) {
	sampler := &stubSampler{sample: healthy()}
	gate := NewGate(sampler, defaultThresholds(), 0, logger.NewNop())

	snap, err := gate.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.GateProceed, snap.Decision)
	assert.False(t, snap.TakenAt.IsZero())
	assert.Equal(t, 1, sampler.calls)
}

func TestGate_CheckSamplerError(t *testing.T) {
	sampler := &stubSampler{err: context.DeadlineExceeded}
	gate := NewGate(sampler, defaultThresholds(), 0, logger.NewNop())

	snap, err := gate.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.GateWarn, snap.Decision)
}

func TestGate_CheckRecoversPanic(t *testing.T) {
	gate := NewGate(&stubSampler{panics: true}, defaultThresholds(), 0, logger.NewNop())

	_, err := gate.Check(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEngineFailure)
}

func TestSystemSampler_Smoke(t *testing.T) {
	if testing.Short() {
		t.Skip("reads live system telemetry")
	}
	sample, err := NewSystemSampler(t.TempDir(), 0).Sample(context.Background())
	if err != nil {
		var sampleErr *domain.ResourceSampleError
		require.ErrorAs(t, err, &sampleErr)
		assert.NotEmpty(t, sample.Missing)
		return
	}
	assert.Empty(t, sample.Missing)
	assert.Greater(t, sample.DiskFreePercent, 0.0)
}
