package cli

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doeshing/aishell-go/internal/domain"
)

func newTestPrompter(input string) (*Prompter, *bytes.Buffer) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader(input), &out)
	p.interactive = true
	return p, &out
}

func sampleRequest() domain.ConfirmationRequest {
	return domain.ConfirmationRequest{
		Command: "rm -rf ./build",
		Classification: domain.Classification{
			Command:    "rm -rf ./build",
			Risk:       domain.RiskHigh,
			Categories: []domain.Category{domain.CategoryFilesystemDelete},
			Rationale:  "rm: filesystem-delete",
			Segments: []domain.SegmentClassification{{
				Text:       "rm -rf ./build",
				Verb:       "rm",
				Targets:    []string{"./build"},
				Categories: []domain.Category{domain.CategoryFilesystemDelete},
				Risk:       domain.RiskHigh,
				Signals:    []string{"recursive delete"},
			}},
		},
		Verdict:  domain.PolicyVerdict{Verdict: domain.VerdictAllowWithWarning, Reasons: []string{"high risk command"}},
		Resource: &domain.ResourceSnapshot{Decision: domain.GateProceed, Sampled: true, CPUPercent: 12, MemoryPercent: 40, DiskFreePercent: 55, DiskFreeBytes: 10 << 30},
		Rollback: domain.RollbackPlan{Strategy: domain.StrategyFileCopy, Targets: []domain.RollbackTarget{{Path: "/tmp/build", Existed: true}}, TotalFiles: 3, TotalBytes: 2048},
	}
}

func TestPrompter_NotInteractiveForReaders(t *testing.T) {
	p := NewPrompter(strings.NewReader("y\n"), &bytes.Buffer{})
	assert.False(t, p.Enabled())
}

func TestPrompter_Choices(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		req    func(*domain.ConfirmationRequest)
		want   domain.DecisionKind
		edited string
	}{
		{name: "approve", input: "y\n", want: domain.DecisionApprove},
		{name: "approve word", input: "YES\n", want: domain.DecisionApprove},
		{name: "cancel", input: "n\n", want: domain.DecisionCancel},
		{name: "empty cancels", input: "\n", want: domain.DecisionCancel},
		{name: "eof cancels", input: "", want: domain.DecisionCancel},
		{name: "dry run", input: "d\n", want: domain.DecisionDryRun},
		{name: "edit", input: "e\nls ./build\n", want: domain.DecisionEdit, edited: "ls ./build"},
		{name: "info then approve", input: "i\ny\n", want: domain.DecisionApprove},
		{name: "unknown then cancel", input: "x\nn\n", want: domain.DecisionCancel},
		{
			name:  "explicit requires yes",
			input: "y\nyes\n",
			req:   func(r *domain.ConfirmationRequest) { r.Explicit = true },
			want:  domain.DecisionApprove,
		},
		{
			name:  "explicit rejects y",
			input: "y\ny\n",
			req:   func(r *domain.ConfirmationRequest) { r.Explicit = true },
			want:  domain.DecisionCancel,
		},
		{
			name:  "block override requires yes",
			input: "y\nno\n",
			req:   func(r *domain.ConfirmationRequest) { r.BlockOverride = true },
			want:  domain.DecisionCancel,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newTestPrompter(tt.input)
			req := sampleRequest()
			if tt.req != nil {
				tt.req(&req)
			}
			decision, err := p.Present(context.Background(), req)
			require.NoError(t, err)
			assert.Equal(t, tt.want, decision.Kind)
			assert.Equal(t, tt.edited, decision.EditedText)
		})
	}
}

func TestPrompter_PresentShowsAssessment(t *testing.T) {
	p, out := newTestPrompter("i\nn\n")
	_, err := p.Present(context.Background(), sampleRequest())
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "rm -rf ./build")
	assert.Contains(t, text, "HIGH")
	assert.Contains(t, text, "ALLOW_WITH_WARNING")
	assert.Contains(t, text, "snapshot of 1 path(s), 3 file(s), 2.0 KiB")
	assert.Contains(t, text, "Command information")
	assert.Contains(t, text, "recursive delete")
}

func TestPrompter_CancelledContext(t *testing.T) {
	p, _ := newTestPrompter("y\n")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Present(ctx, sampleRequest())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPrompter_OfferRollback(t *testing.T) {
	record := domain.RollbackRecord{ID: "rb-1", Entries: []domain.RollbackEntry{{Path: "/tmp/x", Existed: true}}}
	failed := domain.ExecutionOutcome{Status: domain.ExecFailed, ExitCode: 2}

	for input, want := range map[string]bool{"y\n": true, "yes\n": true, "\n": false, "n\n": false, "": false} {
		p, out := newTestPrompter(input)
		ok, err := p.OfferRollback(context.Background(), record, failed)
		require.NoError(t, err)
		assert.Equal(t, want, ok, "input %q", input)
		assert.Contains(t, out.String(), "exited with status 2")
	}

	p, out := newTestPrompter("n\n")
	_, err := p.OfferRollback(context.Background(), record, domain.ExecutionOutcome{Status: domain.ExecTimeout})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "timed out")
}
