package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/doeshing/aishell-go/internal/ports"
)

// FallbackGenerator tries each generator in order until one returns a
// non-empty reply.
type FallbackGenerator struct {
	chain  []ports.Generator
	logger ports.Logger
}

func NewFallbackGenerator(logger ports.Logger, chain ...ports.Generator) *FallbackGenerator {
	return &FallbackGenerator{chain: chain, logger: logger}
}

func (g *FallbackGenerator) Name() string {
	names := make([]string, 0, len(g.chain))
	for _, gen := range g.chain {
		names = append(names, gen.Name())
	}
	return strings.Join(names, ">")
}

func (g *FallbackGenerator) Generate(ctx context.Context, req ports.GenerateRequest) (ports.GenerateResponse, error) {
	var errs []error
	for _, gen := range g.chain {
		if err := ctx.Err(); err != nil {
			return ports.GenerateResponse{}, err
		}
		resp, err := gen.Generate(ctx, req)
		if err == nil && strings.TrimSpace(resp.Text) == "" {
			err = ErrEmptyCommand
		}
		if err == nil {
			return resp, nil
		}
		g.logger.Warn("generator failed, trying next", map[string]interface{}{
			"generator": gen.Name(),
			"error":     err.Error(),
		})
		errs = append(errs, fmt.Errorf("%s: %w", gen.Name(), err))
	}
	return ports.GenerateResponse{}, errors.Join(errs...)
}

var _ ports.Generator = (*FallbackGenerator)(nil)
