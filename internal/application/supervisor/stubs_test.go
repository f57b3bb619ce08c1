package supervisor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/doeshing/aishell-go/internal/domain"
	"github.com/doeshing/aishell-go/internal/ports"
)

type stubGate struct {
	snap  domain.ResourceSnapshot
	err   error
	block <-chan struct{}
}

func (g *stubGate) Check(ctx context.Context) (domain.ResourceSnapshot, error) {
	if g.block != nil {
		select {
		case <-g.block:
		case <-ctx.Done():
			return domain.ResourceSnapshot{}, ctx.Err()
		}
	}
	if g.err != nil {
		return domain.ResourceSnapshot{}, g.err
	}
	snap := g.snap
	if snap.Decision == 0 {
		snap.Decision = domain.GateProceed
		snap.Sampled = true
	}
	return snap, nil
}

type stubExecutor struct {
	mu       sync.Mutex
	result   domain.ExecutionResult
	err      error
	commands []string
}

func (e *stubExecutor) Execute(_ context.Context, command string, _ time.Duration) (domain.ExecutionResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.commands = append(e.commands, command)
	if e.err != nil {
		return domain.ExecutionResult{}, e.err
	}
	res := e.result
	if res.Status == "" {
		res.Status = domain.ExecSucceeded
	}
	return res, nil
}

func (e *stubExecutor) calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.commands...)
}

type stubPrompter struct {
	disabled  bool
	decisions []domain.Decision
	err       error
	requests  []domain.ConfirmationRequest
	restore   bool
	offered   int
}

func (p *stubPrompter) Enabled() bool { return !p.disabled }

func (p *stubPrompter) Present(_ context.Context, req domain.ConfirmationRequest) (domain.Decision, error) {
	p.requests = append(p.requests, req)
	if p.err != nil {
		return domain.Decision{}, p.err
	}
	if len(p.decisions) == 0 {
		return domain.Decision{Kind: domain.DecisionCancel}, nil
	}
	d := p.decisions[0]
	p.decisions = p.decisions[1:]
	return d, nil
}

func (p *stubPrompter) OfferRollback(context.Context, domain.RollbackRecord, domain.ExecutionOutcome) (bool, error) {
	p.offered++
	return p.restore, nil
}

type recordingSink struct {
	mu      sync.Mutex
	records []domain.OutcomeRecord
}

func (s *recordingSink) Record(_ context.Context, rec domain.OutcomeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
	return nil
}

func (s *recordingSink) all() []domain.OutcomeRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.OutcomeRecord(nil), s.records...)
}

type stubRollback struct {
	mu         sync.Mutex
	planned    chan struct{}
	captureErr error
	captures   int
	restores   []string
}

func (r *stubRollback) Plan(_ context.Context, command string, cls domain.Classification) (domain.RollbackPlan, error) {
	if r.planned != nil {
		close(r.planned)
	}
	return domain.RollbackPlan{
		Command:  command,
		Strategy: domain.StrategyFileCopy,
		Targets:  []domain.RollbackTarget{{Path: "/tmp/target", Existed: true}},
	}, nil
}

func (r *stubRollback) Capture(_ context.Context, plan domain.RollbackPlan) (domain.PrepareResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.captures++
	if r.captureErr != nil {
		return domain.PrepareResult{}, r.captureErr
	}
	return domain.PrepareResult{Record: &domain.RollbackRecord{ID: "rb-1", Command: plan.Command, Strategy: domain.StrategyFileCopy}}, nil
}

func (r *stubRollback) Prepare(ctx context.Context, command string, cls domain.Classification) (domain.PrepareResult, error) {
	plan, _ := r.Plan(ctx, command, cls)
	return r.Capture(ctx, plan)
}

func (r *stubRollback) Restore(_ context.Context, id string) (domain.RollbackRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.restores = append(r.restores, id)
	now := time.Now()
	return domain.RollbackRecord{ID: id, Consumed: true, ConsumedAt: &now}, nil
}

func (r *stubRollback) Get(context.Context, string) (domain.RollbackRecord, error) {
	return domain.RollbackRecord{}, domain.ErrRollbackNotFound
}

func (r *stubRollback) List(context.Context) ([]domain.RollbackRecord, error) { return nil, nil }

func (r *stubRollback) Prune(context.Context, time.Time) (int, error) { return 0, nil }

type stubGenerator struct {
	text string
	err  error
}

func (g stubGenerator) Name() string { return "stub" }

func (g stubGenerator) Generate(context.Context, ports.GenerateRequest) (ports.GenerateResponse, error) {
	if g.err != nil {
		return ports.GenerateResponse{}, g.err
	}
	return ports.GenerateResponse{Text: g.text, Model: "stub-model"}, nil
}

var errBoom = errors.New("boom")

var (
	_ ports.ResourceGate         = (*stubGate)(nil)
	_ ports.CommandExecutor      = (*stubExecutor)(nil)
	_ ports.ConfirmationPrompter = (*stubPrompter)(nil)
	_ ports.OutcomeSink          = (*recordingSink)(nil)
	_ ports.RollbackManager      = (*stubRollback)(nil)
)
