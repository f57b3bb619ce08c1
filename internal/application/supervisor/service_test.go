package supervisor

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/doeshing/aishell-go/internal/domain"
	"github.com/doeshing/aishell-go/internal/infrastructure/classifier"
	"github.com/doeshing/aishell-go/internal/infrastructure/policy"
	"github.com/doeshing/aishell-go/internal/pkg/logger"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fixture struct {
	svc      *Service
	gate     *stubGate
	exec     *stubExecutor
	prompter *stubPrompter
	sink     *recordingSink
	rollback *stubRollback
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	doc, err := policy.DefaultDocument()
	require.NoError(t, err)
	rs, err := policy.Compile(doc, "test")
	require.NoError(t, err)

	f := &fixture{
		gate:     &stubGate{},
		exec:     &stubExecutor{},
		prompter: &stubPrompter{},
		sink:     &recordingSink{},
		rollback: &stubRollback{},
	}
	f.svc = &Service{
		Classifier: classifier.New(rs.Severities()),
		Policy:     policy.NewEngine(rs),
		Gate:       f.gate,
		Rollback:   f.rollback,
		Executor:   f.exec,
		Prompter:   f.prompter,
		Sink:       f.sink,
		Logger:     logger.NewNop(),
		newID:      func() string { return "run-1" },
	}
	return f
}

func userCommand(text string) domain.CandidateCommand {
	return domain.NewCandidate(text, domain.CommandSource{Origin: domain.OriginUser})
}

func approve() domain.Decision { return domain.Decision{Kind: domain.DecisionApprove} }

func TestRun_DeniedNeverExecutes(t *testing.T) {
	f := newFixture(t)

	report, err := f.svc.Run(context.Background(), userCommand("rm -rf /"), Options{})
	require.NoError(t, err)

	assert.Equal(t, domain.StateDenied, report.State)
	assert.Equal(t, []domain.RunState{domain.StateClassified, domain.StatePolicyChecked, domain.StateDenied}, report.History)
	assert.Equal(t, domain.RiskCritical, report.Classification.Risk)
	assert.True(t, report.Classification.Has(domain.CategoryFilesystemDelete))
	assert.Empty(t, f.exec.calls())
	assert.Empty(t, f.prompter.requests)
	assert.Zero(t, f.rollback.captures)
	assert.Equal(t, domain.ExitDenied, domain.ExitCodeForReport(report))

	records := f.sink.all()
	require.Len(t, records, 1)
	assert.Equal(t, domain.StateDenied, records[0].State)
	assert.Nil(t, records[0].Outcome)
}

func TestRun_ApprovedLowRiskCompletes(t *testing.T) {
	f := newFixture(t)
	f.prompter.decisions = []domain.Decision{approve()}
	f.exec.result = domain.ExecutionResult{Stdout: "total 0\n", Duration: 5 * time.Millisecond}

	report, err := f.svc.Run(context.Background(), userCommand("ls -la"), Options{})
	require.NoError(t, err)

	assert.Equal(t, []domain.RunState{
		domain.StateClassified,
		domain.StatePolicyChecked,
		domain.StateResourceChecked,
		domain.StateAwaitingConfirmation,
		domain.StateApproved,
		domain.StateExecuting,
		domain.StateCompleted,
	}, report.History)
	assert.Equal(t, domain.RiskLow, report.Classification.Risk)
	assert.Equal(t, domain.VerdictAllow, report.Verdict.Verdict)
	require.NotNil(t, report.Outcome)
	assert.Equal(t, 0, report.Outcome.ExitCode)
	assert.Equal(t, int64(5), report.Outcome.DurationMS)
	assert.Equal(t, []string{"ls -la"}, f.exec.calls())
	assert.Equal(t, domain.ExitOK, domain.ExitCodeForReport(report))

	records := f.sink.all()
	require.Len(t, records, 1)
	assert.Equal(t, "run-1", records[0].RunID)
	assert.Equal(t, domain.StateCompleted, records[0].State)
	require.NotNil(t, records[0].Resource)
	assert.Equal(t, domain.GateProceed, records[0].Resource.Decision)
}

func TestRun_NonZeroExitIsRecorded(t *testing.T) {
	f := newFixture(t)
	f.prompter.decisions = []domain.Decision{approve()}
	f.exec.result = domain.ExecutionResult{Status: domain.ExecFailed, ExitCode: 2, Stderr: "no such file"}

	report, err := f.svc.Run(context.Background(), userCommand("ls missing"), Options{})
	require.NoError(t, err)
	assert.Equal(t, domain.StateCompleted, report.State)
	assert.Equal(t, 2, domain.ExitCodeForReport(report))
}

func TestRun_DryRunStopsBeforeExecution(t *testing.T) {
	f := newFixture(t)

	report, err := f.svc.Run(context.Background(), userCommand("rm important.log"), Options{DryRun: true})
	require.NoError(t, err)

	assert.Equal(t, domain.StateDryRun, report.State)
	assert.Contains(t, report.History, domain.StateResourceChecked)
	assert.Equal(t, domain.RiskHigh, report.Classification.Risk)
	assert.Equal(t, domain.VerdictAllowWithWarning, report.Verdict.Verdict)
	assert.Nil(t, report.Outcome)
	assert.Empty(t, f.exec.calls())
	assert.Zero(t, f.rollback.captures)
	assert.True(t, report.Rollback.Available(), "plan is reported even in dry run")
	assert.Equal(t, domain.ExitOK, domain.ExitCodeForReport(report))

	records := f.sink.all()
	require.Len(t, records, 1)
	assert.Equal(t, domain.StateDryRun, records[0].State)
}

func TestRun_DryRunDecision(t *testing.T) {
	f := newFixture(t)
	f.prompter.decisions = []domain.Decision{{Kind: domain.DecisionDryRun}}

	report, err := f.svc.Run(context.Background(), userCommand("ls"), Options{})
	require.NoError(t, err)
	assert.Equal(t, domain.StateDryRun, report.State)
	assert.Empty(t, f.exec.calls())
}

func TestRun_EditReclassifies(t *testing.T) {
	f := newFixture(t)
	f.prompter.decisions = []domain.Decision{
		{Kind: domain.DecisionEdit, EditedText: "rm -rf /"},
	}

	report, err := f.svc.Run(context.Background(), userCommand("ls build"), Options{})
	require.NoError(t, err)

	assert.Equal(t, "rm -rf /", report.Command)
	assert.Equal(t, domain.StateDenied, report.State, "edited text is judged on its own")
	assert.Equal(t, []domain.RunState{
		domain.StateClassified,
		domain.StatePolicyChecked,
		domain.StateResourceChecked,
		domain.StateAwaitingConfirmation,
		domain.StateEdited,
		domain.StateClassified,
		domain.StatePolicyChecked,
		domain.StateDenied,
	}, report.History)
	assert.Empty(t, f.exec.calls())

	records := f.sink.all()
	require.Len(t, records, 1)
	assert.Equal(t, domain.OriginEdit, records[0].Source.Origin)
}

func TestRun_EditThenApprove(t *testing.T) {
	f := newFixture(t)
	f.prompter.decisions = []domain.Decision{
		{Kind: domain.DecisionEdit, EditedText: "ls -l build"},
		approve(),
	}

	report, err := f.svc.Run(context.Background(), userCommand("rm -rf build"), Options{})
	require.NoError(t, err)
	assert.Equal(t, domain.StateCompleted, report.State)
	assert.Equal(t, []string{"ls -l build"}, f.exec.calls())
	assert.Equal(t, domain.RiskLow, report.Classification.Risk)
	require.Len(t, f.prompter.requests, 2)
	assert.Equal(t, domain.RiskHigh, f.prompter.requests[0].Classification.Risk)
	assert.Zero(t, f.rollback.captures, "edited command is not destructive")
}

func TestRun_Cancel(t *testing.T) {
	f := newFixture(t)
	f.prompter.decisions = []domain.Decision{{Kind: domain.DecisionCancel}}

	report, err := f.svc.Run(context.Background(), userCommand("rm build.log"), Options{})
	require.NoError(t, err)
	assert.Equal(t, domain.StateCancelled, report.State)
	assert.Empty(t, f.exec.calls())
	assert.Zero(t, f.rollback.captures)
}

func TestRun_ResourceBlock(t *testing.T) {
	blocked := domain.ResourceSnapshot{Decision: domain.GateBlock, Sampled: true, Reasons: []string{"disk free 1.0% below 5.0%"}}

	t.Run("cancelled without override", func(t *testing.T) {
		f := newFixture(t)
		f.gate.snap = blocked
		report, err := f.svc.Run(context.Background(), userCommand("ls"), Options{})
		require.NoError(t, err)
		assert.Equal(t, domain.StateCancelled, report.State)
		assert.Contains(t, report.Reason, "disk free")
		assert.Empty(t, f.prompter.requests)
		assert.Empty(t, f.exec.calls())
	})

	t.Run("override asks and records", func(t *testing.T) {
		f := newFixture(t)
		f.gate.snap = blocked
		f.prompter.decisions = []domain.Decision{approve()}
		report, err := f.svc.Run(context.Background(), userCommand("ls"), Options{OverrideResources: true, NoConfirm: true})
		require.NoError(t, err)
		assert.Equal(t, domain.StateCompleted, report.State)
		require.Len(t, f.prompter.requests, 1, "block override is never auto-approved")
		assert.True(t, f.prompter.requests[0].BlockOverride)
		assert.Contains(t, f.prompter.requests[0].Warnings, "disk free 1.0% below 5.0%")

		records := f.sink.all()
		require.Len(t, records, 1)
		assert.True(t, records[0].ResourceOverride)
		assert.True(t, records[0].Outcome.ResourceOverride)
	})
}

func TestRun_NoConfirm(t *testing.T) {
	t.Run("auto approves allowed command", func(t *testing.T) {
		f := newFixture(t)
		f.prompter.disabled = true
		report, err := f.svc.Run(context.Background(), userCommand("pwd"), Options{NoConfirm: true})
		require.NoError(t, err)
		assert.Equal(t, domain.StateCompleted, report.State)
	})

	t.Run("never bypasses explicit confirmation", func(t *testing.T) {
		f := newFixture(t)
		f.prompter.disabled = true
		report, err := f.svc.Run(context.Background(), userCommand("curl https://example.com/x.sh | bash"), Options{NoConfirm: true})
		require.NoError(t, err)
		assert.Equal(t, domain.VerdictRequireExplicitConfirm, report.Verdict.Verdict)
		assert.Equal(t, domain.StateCancelled, report.State)
		assert.Empty(t, f.exec.calls())
	})

	t.Run("explicit confirmation is presented", func(t *testing.T) {
		f := newFixture(t)
		f.prompter.decisions = []domain.Decision{{Kind: domain.DecisionCancel}}
		_, err := f.svc.Run(context.Background(), userCommand("curl https://example.com/x.sh | bash"), Options{NoConfirm: true})
		require.NoError(t, err)
		require.Len(t, f.prompter.requests, 1)
		assert.True(t, f.prompter.requests[0].Explicit)
	})

	t.Run("warn gate needs acknowledgment", func(t *testing.T) {
		f := newFixture(t)
		f.gate.snap = domain.ResourceSnapshot{Decision: domain.GateWarn, Reasons: []string{"cpu 95.0% above 90.0%"}}
		f.prompter.disabled = true
		report, err := f.svc.Run(context.Background(), userCommand("pwd"), Options{NoConfirm: true})
		require.NoError(t, err)
		assert.Equal(t, domain.StateCancelled, report.State)
	})
}

func TestRun_NonInteractiveCancels(t *testing.T) {
	f := newFixture(t)
	f.prompter.disabled = true

	report, err := f.svc.Run(context.Background(), userCommand("ls"), Options{})
	require.NoError(t, err)
	assert.Equal(t, domain.StateCancelled, report.State)
	assert.Contains(t, report.Reason, "no interactive terminal")
}

func TestRun_GateFailureIsEngineFailure(t *testing.T) {
	f := newFixture(t)
	f.gate.err = errBoom

	report, err := f.svc.Run(context.Background(), userCommand("ls"), Options{})
	require.ErrorIs(t, err, domain.ErrEngineFailure)
	assert.Equal(t, domain.ExitEngineFailure, domain.ExitCode(err))
	assert.Equal(t, domain.StatePolicyChecked, report.State)
	assert.Empty(t, f.exec.calls())

	records := f.sink.all()
	require.Len(t, records, 1)
	assert.Contains(t, records[0].Reason, "boom")
}

func TestRun_SnapshotThenOfferRollback(t *testing.T) {
	f := newFixture(t)
	f.prompter.decisions = []domain.Decision{approve()}
	f.prompter.restore = true
	f.exec.result = domain.ExecutionResult{Status: domain.ExecFailed, ExitCode: 1}

	report, err := f.svc.Run(context.Background(), userCommand("rm build.log"), Options{})
	require.NoError(t, err)

	assert.Contains(t, report.History, domain.StateSnapshotted)
	assert.Equal(t, 1, f.rollback.captures)
	assert.Equal(t, 1, f.prompter.offered)
	assert.Equal(t, []string{"rb-1"}, f.rollback.restores)
	assert.True(t, report.Restored)
	require.NotNil(t, report.Outcome)
	assert.Equal(t, "rb-1", report.Outcome.RollbackID)

	records := f.sink.all()
	require.Len(t, records, 1)
	assert.Equal(t, "rb-1", records[0].RollbackID)
}

func TestRun_NoAutoRestoreOnTimeout(t *testing.T) {
	f := newFixture(t)
	f.prompter.decisions = []domain.Decision{approve()}
	f.exec.result = domain.ExecutionResult{Status: domain.ExecTimeout, ExitCode: -1}

	report, err := f.svc.Run(context.Background(), userCommand("rm build.log"), Options{})
	require.NoError(t, err)
	assert.Equal(t, domain.ExitTimeout, domain.ExitCodeForReport(report))
	assert.Equal(t, 1, f.prompter.offered)
	assert.Empty(t, f.rollback.restores, "declined offer restores nothing")
	assert.False(t, report.Restored)
}

func TestRun_SuccessDoesNotOfferRollback(t *testing.T) {
	f := newFixture(t)
	f.prompter.decisions = []domain.Decision{approve()}

	report, err := f.svc.Run(context.Background(), userCommand("rm build.log"), Options{})
	require.NoError(t, err)
	assert.Equal(t, domain.StateCompleted, report.State)
	assert.Zero(t, f.prompter.offered)
	require.NotNil(t, report.RollbackRecord)
}

func TestRun_CaptureFailureCancels(t *testing.T) {
	f := newFixture(t)
	f.prompter.decisions = []domain.Decision{approve()}
	f.rollback.captureErr = errBoom

	report, err := f.svc.Run(context.Background(), userCommand("rm build.log"), Options{})
	require.NoError(t, err)
	assert.Equal(t, domain.StateCancelled, report.State)
	assert.Contains(t, report.Reason, "snapshot failed")
	assert.Empty(t, f.exec.calls())
}

func TestRun_SpawnFailure(t *testing.T) {
	f := newFixture(t)
	f.prompter.decisions = []domain.Decision{approve()}
	f.exec.err = &domain.ExecutionSpawnError{Shell: "/bin/nosuch", Err: errBoom}

	report, err := f.svc.Run(context.Background(), userCommand("ls"), Options{})
	require.Error(t, err)
	assert.Equal(t, domain.ExitSpawnFailure, domain.ExitCode(err))
	assert.Equal(t, domain.StateCompleted, report.State)
	require.NotNil(t, report.Outcome)
	assert.Equal(t, domain.ExitSpawnFailure, report.Outcome.ExitCode)
	assert.Len(t, f.sink.all(), 1)
}

func TestRun_PrecheckRunsInParallel(t *testing.T) {
	f := newFixture(t)
	planned := make(chan struct{})
	f.rollback.planned = planned
	f.gate.block = planned
	f.prompter.decisions = []domain.Decision{{Kind: domain.DecisionCancel}}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	report, err := f.svc.Run(ctx, userCommand("rm build.log"), Options{})
	require.NoError(t, err, "gate waits on planning, so serial execution would time out")
	assert.Equal(t, domain.StateCancelled, report.State)
	assert.True(t, report.Rollback.Available())
}

func TestRun_ComplianceProfile(t *testing.T) {
	f := newFixture(t)
	f.prompter.disabled = true

	report, err := f.svc.Run(context.Background(), userCommand("ftp files.example.com"), Options{Compliance: "hipaa"})
	require.NoError(t, err)
	assert.Equal(t, domain.StateDenied, report.State)
	assert.Equal(t, "HIPAA", report.Verdict.Compliance)
}

func TestRun_MissingDependencies(t *testing.T) {
	svc := &Service{}
	_, err := svc.Run(context.Background(), userCommand("ls"), Options{})
	assert.Error(t, err)
}

func TestAssess(t *testing.T) {
	f := newFixture(t)
	cls, verdict := f.svc.Assess("useradd bob", "SOX")
	assert.Equal(t, domain.VerdictRequireExplicitConfirm, verdict.Verdict)
	assert.Contains(t, verdict.RuleIDs, "sox-account-management")
	assert.True(t, cls.Has(domain.CategoryPrivilegeEscalation))
	assert.Empty(t, f.sink.all(), "assessment is not a run cycle")
}

func TestRunPrompt_SplitsAndStopsOnFailure(t *testing.T) {
	f := newFixture(t)
	f.svc.Generator = stubGenerator{text: "```bash\nmkdir out && ls missing && pwd\n```"}
	f.svc.Splitter = func(reply string, advanced, splitMulti bool) ([]string, error) {
		reply = strings.TrimPrefix(strings.TrimSuffix(strings.TrimSpace(reply), "```"), "```bash")
		if !splitMulti {
			return []string{strings.TrimSpace(reply)}, nil
		}
		return classifier.SplitSequence(reply), nil
	}
	f.prompter.disabled = true

	reports, err := f.svc.RunPrompt(context.Background(), "make a dir", GenerateOptions{SplitMulti: true}, Options{DryRun: true})
	require.NoError(t, err)
	require.Len(t, reports, 3)
	assert.Equal(t, "mkdir out", reports[0].Command)
	assert.Equal(t, "pwd", reports[2].Command)

	records := f.sink.all()
	require.Len(t, records, 3)
	assert.Equal(t, domain.OriginGenerator, records[0].Source.Origin)
	assert.Equal(t, "make a dir", records[0].Source.Prompt)
	assert.Equal(t, "stub-model", records[0].Source.Model)

	f.exec.result = domain.ExecutionResult{Status: domain.ExecFailed, ExitCode: 2}
	reports, err = f.svc.RunPrompt(context.Background(), "make a dir", GenerateOptions{SplitMulti: true}, Options{NoConfirm: true})
	require.NoError(t, err)
	require.Len(t, reports, 1, "later steps are skipped after a failure")
}

func sequenceSplitter(reply string, _, splitMulti bool) ([]string, error) {
	reply = strings.TrimSpace(reply)
	if !splitMulti {
		return []string{reply}, nil
	}
	return classifier.SplitSequence(reply), nil
}

func TestGenerate_RecordsSteps(t *testing.T) {
	tests := []struct {
		name       string
		splitMulti bool
		want       [][]string
	}{
		{name: "chained candidate lists its steps", want: [][]string{{"mkdir out", "cd out"}}},
		{name: "split candidates are single steps", splitMulti: true, want: [][]string{nil, nil}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.svc.Generator = stubGenerator{text: "mkdir out && cd out"}
			f.svc.Splitter = sequenceSplitter

			candidates, err := f.svc.Generate(context.Background(), "make a dir", GenerateOptions{SplitMulti: tt.splitMulti})
			require.NoError(t, err)
			require.Len(t, candidates, len(tt.want))
			for i, want := range tt.want {
				assert.Equal(t, want, candidates[i].SubCommands())
			}
		})
	}
}

type recordingObserver struct {
	events []string
}

func (o *recordingObserver) BeforeStep(index, total int, candidate domain.CandidateCommand) {
	o.events = append(o.events, fmt.Sprintf("before %d/%d %s", index, total, candidate.Text()))
}

func (o *recordingObserver) AfterStep(report domain.RunReport) {
	o.events = append(o.events, fmt.Sprintf("after %s %s", report.Command, report.State))
}

func TestRunPrompt_NotifiesObserver(t *testing.T) {
	f := newFixture(t)
	f.svc.Generator = stubGenerator{text: "mkdir out && ls missing && pwd"}
	f.svc.Splitter = sequenceSplitter
	f.exec.result = domain.ExecutionResult{Status: domain.ExecFailed, ExitCode: 2}
	observer := &recordingObserver{}

	reports, err := f.svc.RunPrompt(context.Background(), "make a dir", GenerateOptions{SplitMulti: true}, Options{NoConfirm: true, Observer: observer})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	assert.Equal(t, []string{
		"before 1/3 mkdir out",
		"after mkdir out " + string(domain.StateCompleted),
	}, observer.events)
}

func TestGenerate_Errors(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Generate(context.Background(), "x", GenerateOptions{})
	assert.Error(t, err)

	f.svc.Generator = stubGenerator{err: errBoom}
	f.svc.Splitter = func(string, bool, bool) ([]string, error) { return nil, nil }
	_, err = f.svc.Generate(context.Background(), "x", GenerateOptions{})
	assert.ErrorIs(t, err, errBoom)
}

func TestRunAll_SkippedStepsDoNotStopTheRest(t *testing.T) {
	f := newFixture(t)
	f.prompter.decisions = []domain.Decision{{Kind: domain.DecisionCancel}, approve()}

	reports, err := f.svc.RunAll(context.Background(), []domain.CandidateCommand{
		userCommand("rm -rf /"),
		userCommand("rm build.log"),
		userCommand("ls"),
	}, Options{})
	require.NoError(t, err)
	require.Len(t, reports, 3)
	assert.Equal(t, domain.StateDenied, reports[0].State)
	assert.Equal(t, domain.StateCancelled, reports[1].State)
	assert.Equal(t, domain.StateCompleted, reports[2].State)
	assert.Equal(t, []string{"ls"}, f.exec.calls())
	assert.Len(t, f.sink.all(), 3)
}
