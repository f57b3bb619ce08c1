package supervisor

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/doeshing/aishell-go/internal/domain"
	"github.com/doeshing/aishell-go/internal/ports"
)

// GenerateOptions shape command generation upstream of the state machine.
type GenerateOptions struct {
	Advanced   bool
	SplitMulti bool
}

// Generate asks the generator for candidate commands. The text is untrusted;
// every candidate still goes through Run.
func (s *Service) Generate(ctx context.Context, prompt string, opts GenerateOptions) ([]domain.CandidateCommand, error) {
	if s.Generator == nil || s.Splitter == nil {
		return nil, errors.New("no command generator configured")
	}

	s.Logger.Info("calling generator", map[string]interface{}{"generator": s.Generator.Name()})
	req := ports.GenerateRequest{Prompt: prompt, Advanced: opts.Advanced}
	if s.Environment != nil {
		req.Environment = s.Environment.Collect(ctx)
	}
	resp, err := s.Generator.Generate(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	texts, err := s.Splitter(resp.Text, opts.Advanced, opts.SplitMulti)
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}

	source := domain.CommandSource{
		Origin:    domain.OriginGenerator,
		Prompt:    prompt,
		Model:     resp.Model,
		RequestID: uuid.NewString(),
	}
	candidates := make([]domain.CandidateCommand, 0, len(texts))
	for _, text := range texts {
		candidates = append(candidates, domain.NewCandidate(text, source, s.steps(text)...))
	}
	return candidates, nil
}

// steps returns the commands a chained candidate runs in sequence, or nil
// when it is a single command.
func (s *Service) steps(text string) []string {
	parts, err := s.Splitter(text, false, true)
	if err != nil || len(parts) < 2 {
		return nil
	}
	return parts
}

// StepObserver is told about each candidate RunAll supervises. index is
// 1-based.
type StepObserver interface {
	BeforeStep(index, total int, candidate domain.CandidateCommand)
	AfterStep(report domain.RunReport)
}

// RunAll supervises candidates one at a time. A denied, cancelled or dry-run
// candidate does not stop the rest; a command that ran and failed does, since
// later steps usually depend on earlier ones.
func (s *Service) RunAll(ctx context.Context, candidates []domain.CandidateCommand, opts Options) ([]domain.RunReport, error) {
	reports := make([]domain.RunReport, 0, len(candidates))
	for i, candidate := range candidates {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		if opts.Observer != nil {
			opts.Observer.BeforeStep(i+1, len(candidates), candidate)
		}
		report, err := s.Run(ctx, candidate, opts)
		reports = append(reports, report)
		if opts.Observer != nil {
			opts.Observer.AfterStep(report)
		}
		if err != nil {
			return reports, err
		}
		if !ContinueAfter(report) {
			break
		}
	}
	return reports, nil
}

// RunPrompt generates candidates for a prompt and supervises them.
func (s *Service) RunPrompt(ctx context.Context, prompt string, gen GenerateOptions, opts Options) ([]domain.RunReport, error) {
	candidates, err := s.Generate(ctx, prompt, gen)
	if err != nil {
		return nil, err
	}
	return s.RunAll(ctx, candidates, opts)
}

// ContinueAfter reports whether a sequence should move on to the next
// candidate once report has finished.
func ContinueAfter(report domain.RunReport) bool {
	if report.State != domain.StateCompleted {
		return true
	}
	return report.Outcome != nil && report.Outcome.Status == domain.ExecSucceeded
}
