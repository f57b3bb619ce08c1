package cli

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/doeshing/aishell-go/internal/domain"
)

func TestRenderer_Report(t *testing.T) {
	tests := []struct {
		name   string
		report domain.RunReport
		want   []string
	}{
		{
			name: "denied",
			report: domain.RunReport{
				State:          domain.StateDenied,
				Classification: domain.Classification{Command: "rm -rf /", Risk: domain.RiskCritical},
				Verdict:        domain.PolicyVerdict{Verdict: domain.VerdictDeny, RuleIDs: []string{"root-deletion"}, Reasons: []string{"deletes the root filesystem"}},
			},
			want: []string{"CRITICAL", "DENY", "root-deletion", "nothing was executed"},
		},
		{
			name:   "cancelled",
			report: domain.RunReport{State: domain.StateCancelled, Reason: "resource gate blocked: disk"},
			want:   []string{"Cancelled: resource gate blocked: disk"},
		},
		{
			name: "failed with snapshot",
			report: domain.RunReport{
				State:          domain.StateCompleted,
				Outcome:        &domain.ExecutionOutcome{Status: domain.ExecFailed, ExitCode: 3, Stderr: "boom", DurationMS: 1500},
				RollbackRecord: &domain.RollbackRecord{ID: "rb-9"},
			},
			want: []string{"boom\n", "Exited with status 3 after 1.5s", "aishell rollback restore rb-9"},
		},
		{
			name: "timeout",
			report: domain.RunReport{
				State:   domain.StateCompleted,
				Outcome: &domain.ExecutionOutcome{Status: domain.ExecTimeout, DurationMS: 2000, Truncated: true},
			},
			want: []string{"output truncated", "Timed out after 2s"},
		},
		{
			name: "restored",
			report: domain.RunReport{
				State:          domain.StateCompleted,
				Outcome:        &domain.ExecutionOutcome{Status: domain.ExecFailed, ExitCode: 1},
				RollbackRecord: &domain.RollbackRecord{ID: "rb-2"},
				Restored:       true,
			},
			want: []string{"Restored snapshot rb-2"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewRenderer(&buf).Report(tt.report)
			for _, want := range tt.want {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}

func TestRenderer_Candidate(t *testing.T) {
	source := domain.CommandSource{Origin: domain.OriginGenerator}
	tests := []struct {
		name      string
		candidate domain.CandidateCommand
		total     int
		want      []string
		absent    []string
	}{
		{
			name:      "single command",
			candidate: domain.NewCandidate("ls -la", source),
			total:     1,
			want:      []string{"Generated command", "ls -la"},
			absent:    []string{"Steps:", "[1/1]"},
		},
		{
			name:      "chained command lists steps",
			candidate: domain.NewCandidate("mkdir out && cd out", source, "mkdir out", "cd out"),
			total:     2,
			want:      []string{"Generated command [1/2]", "Steps:", "1. mkdir out", "2. cd out"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			NewRenderer(&buf).Candidate(1, tt.total, tt.candidate)
			for _, want := range tt.want {
				assert.Contains(t, buf.String(), want)
			}
			for _, absent := range tt.absent {
				assert.NotContains(t, buf.String(), absent)
			}
		})
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 3, ExitCode(fmt.Errorf("wrapped: %w", &ExitError{Code: 3})))
	assert.Equal(t, domain.ExitEngineFailure, ExitCode(domain.ErrEngineFailure))
	assert.Equal(t, domain.ExitSpawnFailure, ExitCode(&domain.ExecutionSpawnError{Shell: "/bin/sh", Err: errors.New("missing")}))
	assert.Equal(t, domain.ExitUsage, ExitCode(errors.New("bad flag")))

	assert.True(t, Silent(&ExitError{Code: 77}))
	assert.False(t, Silent(errors.New("x")))
}

func TestExitFor(t *testing.T) {
	assert.NoError(t, exitFor(domain.RunReport{State: domain.StateDryRun}))
	assert.NoError(t, exitFor(domain.RunReport{State: domain.StateCancelled}))
	assert.NoError(t, exitFor(domain.RunReport{State: domain.StateCompleted, Outcome: &domain.ExecutionOutcome{Status: domain.ExecSucceeded}}))

	err := exitFor(domain.RunReport{State: domain.StateDenied})
	assert.Equal(t, domain.ExitDenied, ExitCode(err))

	err = exitFor(domain.RunReport{State: domain.StateCompleted, Outcome: &domain.ExecutionOutcome{Status: domain.ExecTimeout, ExitCode: -1}})
	assert.Equal(t, domain.ExitTimeout, ExitCode(err))
}
