// Package supervisor drives a candidate command through classification,
// policy, the resource gate, confirmation, snapshot and execution.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/doeshing/aishell-go/internal/domain"
	"github.com/doeshing/aishell-go/internal/ports"
)

// maxEdits bounds how often one cycle may loop through EDITED.
const maxEdits = 10

// Options are the per-invocation flags that affect the state machine.
type Options struct {
	DryRun            bool
	NoConfirm         bool
	OverrideResources bool
	Compliance        string
	Timeout           time.Duration
	// Observer follows RunAll and RunPrompt step by step. Optional.
	Observer StepObserver
}

// Service orchestrates the supervised execution lifecycle end-to-end.
type Service struct {
	Classifier ports.Classifier
	Policy     ports.PolicyEngine
	Gate       ports.ResourceGate
	Rollback   ports.RollbackManager
	Executor   ports.CommandExecutor
	Prompter   ports.ConfirmationPrompter
	Sink       ports.OutcomeSink
	Generator  ports.Generator
	// Environment describes the working directory to the generator. Optional.
	Environment ports.EnvironmentCollector
	// Splitter turns a generator reply into candidate commands.
	Splitter       func(reply string, advanced, splitMulti bool) ([]string, error)
	Logger         ports.Logger
	DefaultTimeout time.Duration

	now   func() time.Time
	newID func() string
}

func (s *Service) validate() error {
	if s.Classifier == nil || s.Policy == nil || s.Gate == nil || s.Executor == nil || s.Logger == nil {
		return errors.New("supervisor.Service dependencies not satisfied")
	}
	return nil
}

func (s *Service) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

func (s *Service) runID() string {
	if s.newID != nil {
		return s.newID()
	}
	return uuid.NewString()
}

// Assess classifies a command and evaluates it against the current rules
// without consulting the gate or running anything.
func (s *Service) Assess(command, profile string) (domain.Classification, domain.PolicyVerdict) {
	cls := s.Classifier.Classify(command)
	return cls, s.Policy.Snapshot().Evaluate(cls, profile)
}

// Run processes a single candidate command. The returned report always
// carries the terminal state; a non-nil error is either an engine failure or
// a spawn failure.
func (s *Service) Run(ctx context.Context, candidate domain.CandidateCommand, opts Options) (report domain.RunReport, err error) {
	if err := s.validate(); err != nil {
		return domain.RunReport{}, err
	}

	c := newCycle(s.runID(), candidate.Text())
	rec := &domain.OutcomeRecord{RunID: c.report.RunID, Source: candidate.Source()}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", domain.ErrEngineFailure, r)
			c.report.Reason = err.Error()
			s.Logger.Error("supervisor panic", err, map[string]interface{}{"run_id": c.report.RunID, "state": string(c.report.State)})
		}
		s.emit(ctx, c, rec)
		report = c.report
	}()

	snapshot := s.Policy.Snapshot()
	err = s.cycle(ctx, c, rec, snapshot, candidate, opts)
	return c.report, err
}

func (s *Service) cycle(ctx context.Context, c *cycle, rec *domain.OutcomeRecord, snapshot ports.PolicySnapshot, candidate domain.CandidateCommand, opts Options) error {
	for edits := 0; ; edits++ {
		text := candidate.Text()
		c.report.Command = text

		cls := s.Classifier.Classify(text)
		c.report.Classification = cls

		verdict := snapshot.Evaluate(cls, opts.Compliance)
		c.report.Verdict = verdict
		c.to(domain.StatePolicyChecked)
		s.Logger.Debug("policy checked", map[string]interface{}{
			"run_id":  c.report.RunID,
			"risk":    cls.Risk.String(),
			"verdict": verdict.Verdict.String(),
		})

		if verdict.Denied() {
			c.finish(domain.StateDenied, strings.Join(verdict.Reasons, "; "))
			return nil
		}

		resource, plan, err := s.precheck(ctx, text, cls)
		if err != nil {
			c.report.Reason = err.Error()
			return err
		}
		c.report.Resource = &resource
		c.report.Rollback = plan
		c.to(domain.StateResourceChecked)

		blocked := resource.Decision == domain.GateBlock
		if blocked && !opts.OverrideResources {
			c.finish(domain.StateCancelled, "resource gate blocked: "+strings.Join(resource.Reasons, "; "))
			return nil
		}
		c.to(domain.StateAwaitingConfirmation)

		decision, reason := s.decide(ctx, c, opts, domain.ConfirmationRequest{
			Command:        text,
			Classification: cls,
			Verdict:        verdict,
			Resource:       &resource,
			Rollback:       plan,
			Warnings:       warnings(verdict, resource),
			Explicit:       verdict.NeedsExplicitConfirm(),
			BlockOverride:  blocked,
		})

		switch decision.Kind {
		case domain.DecisionApprove:
			c.to(domain.StateApproved)
			rec.ResourceOverride = blocked
			return s.execute(ctx, c, cls, plan, opts)
		case domain.DecisionEdit:
			edited := strings.TrimSpace(decision.EditedText)
			if edited == "" || edits >= maxEdits {
				c.finish(domain.StateCancelled, "edit discarded")
				return nil
			}
			c.to(domain.StateEdited)
			c.to(domain.StateClassified)
			candidate = candidate.Edited(edited)
			rec.Source = candidate.Source()
		case domain.DecisionDryRun:
			c.finish(domain.StateDryRun, "dry run")
			return nil
		default:
			c.finish(domain.StateCancelled, valueOr(reason, "cancelled by user"))
			return nil
		}
	}
}

// precheck samples resources and plans the rollback snapshot in parallel.
// Both are read-only with respect to the command.
func (s *Service) precheck(ctx context.Context, text string, cls domain.Classification) (domain.ResourceSnapshot, domain.RollbackPlan, error) {
	var (
		resource domain.ResourceSnapshot
		plan     domain.RollbackPlan
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		snap, err := s.Gate.Check(gctx)
		if err != nil {
			return err
		}
		resource = snap
		return nil
	})
	g.Go(func() error {
		plan = s.plan(gctx, text, cls)
		return nil
	})
	if err := g.Wait(); err != nil {
		if !errors.Is(err, domain.ErrEngineFailure) {
			err = fmt.Errorf("%w: resource gate: %v", domain.ErrEngineFailure, err)
		}
		return resource, plan, err
	}
	return resource, plan, nil
}

func (s *Service) plan(ctx context.Context, text string, cls domain.Classification) domain.RollbackPlan {
	if !cls.Destructive() {
		return domain.RollbackPlan{Command: text, Strategy: domain.StrategyUnavailable, Unavailable: "command is not destructive"}
	}
	if s.Rollback == nil {
		return domain.RollbackPlan{Command: text, Strategy: domain.StrategyUnavailable, Unavailable: "rollback disabled"}
	}
	plan, err := s.Rollback.Plan(ctx, text, cls)
	if err != nil {
		s.Logger.Warn("rollback planning failed", map[string]interface{}{"error": err.Error()})
		return domain.RollbackPlan{Command: text, Strategy: domain.StrategyUnavailable, Unavailable: "planning failed: " + err.Error()}
	}
	return plan
}

// decide resolves the confirmation step. The reason is set when the cycle is
// cancelled without asking the user.
func (s *Service) decide(ctx context.Context, c *cycle, opts Options, req domain.ConfirmationRequest) (domain.Decision, string) {
	if opts.DryRun {
		return domain.Decision{Kind: domain.DecisionDryRun}, ""
	}
	if opts.NoConfirm && !req.Explicit && req.Resource.Decision == domain.GateProceed {
		s.Logger.Info("auto-approved", map[string]interface{}{"run_id": c.report.RunID})
		return domain.Decision{Kind: domain.DecisionApprove}, ""
	}
	if s.Prompter == nil || !s.Prompter.Enabled() {
		return domain.Decision{Kind: domain.DecisionCancel}, "confirmation required but no interactive terminal"
	}
	decision, err := s.Prompter.Present(ctx, req)
	if err != nil {
		return domain.Decision{Kind: domain.DecisionCancel}, "confirmation failed: " + err.Error()
	}
	return decision, ""
}

func (s *Service) execute(ctx context.Context, c *cycle, cls domain.Classification, plan domain.RollbackPlan, opts Options) error {
	text := c.report.Command

	if cls.Destructive() && plan.Available() && s.Rollback != nil {
		res, err := s.Rollback.Capture(ctx, plan)
		if err != nil {
			s.Logger.Error("snapshot failed", err, map[string]interface{}{"run_id": c.report.RunID})
			c.finish(domain.StateCancelled, "snapshot failed: "+err.Error())
			return nil
		}
		if res.Available() {
			c.report.RollbackRecord = res.Record
			c.to(domain.StateSnapshotted)
		} else {
			c.report.Rollback.Unavailable = res.Unavailable
		}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = s.DefaultTimeout
	}
	if timeout <= 0 {
		timeout = domain.DefaultCommandTimeout
	}

	c.to(domain.StateExecuting)
	result, execErr := s.Executor.Execute(ctx, text, timeout)
	if execErr != nil {
		result = domain.ExecutionResult{
			Status:   domain.ExecFailed,
			ExitCode: domain.ExitSpawnFailure,
			Stderr:   execErr.Error(),
		}
	}

	outcome := &domain.ExecutionOutcome{
		Command:          text,
		Status:           result.Status,
		ExitCode:         result.ExitCode,
		Stdout:           result.Stdout,
		Stderr:           result.Stderr,
		Truncated:        result.Truncated,
		DurationMS:       result.Duration.Milliseconds(),
		Verdict:          c.report.Verdict,
		Classification:   cls,
		ResourceOverride: c.report.Resource != nil && c.report.Resource.Decision == domain.GateBlock,
	}
	if c.report.RollbackRecord != nil {
		outcome.RollbackID = c.report.RollbackRecord.ID
	}
	c.report.Outcome = outcome
	c.to(domain.StateCompleted)

	if outcome.Status != domain.ExecSucceeded {
		s.offerRollback(ctx, c, *outcome)
	}
	return execErr
}

// offerRollback asks the user whether to restore after a failure or timeout.
// Nothing is restored without an explicit yes.
func (s *Service) offerRollback(ctx context.Context, c *cycle, outcome domain.ExecutionOutcome) {
	record := c.report.RollbackRecord
	if record == nil || s.Rollback == nil || s.Prompter == nil || !s.Prompter.Enabled() {
		return
	}
	ok, err := s.Prompter.OfferRollback(ctx, *record, outcome)
	if err != nil || !ok {
		return
	}
	restored, err := s.Rollback.Restore(ctx, record.ID)
	if err != nil {
		s.Logger.Error("rollback restore failed", err, map[string]interface{}{"rollback_id": record.ID})
		c.report.Reason = err.Error()
		return
	}
	c.report.RollbackRecord = &restored
	c.report.Restored = true
}

func (s *Service) emit(ctx context.Context, c *cycle, rec *domain.OutcomeRecord) {
	rec.Timestamp = s.clock().UTC()
	rec.Command = c.report.Command
	rec.State = c.report.State
	rec.Classification = c.report.Classification
	rec.Verdict = c.report.Verdict
	rec.Resource = c.report.Resource
	rec.Outcome = c.report.Outcome
	rec.Reason = c.report.Reason
	if c.report.RollbackRecord != nil {
		rec.RollbackID = c.report.RollbackRecord.ID
	}
	if s.Sink == nil {
		return
	}
	if err := s.Sink.Record(context.WithoutCancel(ctx), *rec); err != nil {
		s.Logger.Warn("outcome sink write failed", map[string]interface{}{"run_id": rec.RunID, "error": err.Error()})
	}
}

func warnings(verdict domain.PolicyVerdict, resource domain.ResourceSnapshot) []string {
	var out []string
	if verdict.Verdict != domain.VerdictAllow {
		out = append(out, verdict.Reasons...)
	}
	if resource.Decision != domain.GateProceed {
		out = append(out, resource.Reasons...)
	}
	return out
}

func valueOr(value, def string) string {
	if value == "" {
		return def
	}
	return value
}
