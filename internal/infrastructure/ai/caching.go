package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/doeshing/aishell-go/internal/domain"
	"github.com/doeshing/aishell-go/internal/ports"
)

// CachingGenerator serves repeated requests from a reply cache. Cache
// failures are logged and never fail generation.
type CachingGenerator struct {
	next   ports.Generator
	cache  ports.ReplyCache
	logger ports.Logger
}

func NewCachingGenerator(next ports.Generator, cache ports.ReplyCache, logger ports.Logger) *CachingGenerator {
	return &CachingGenerator{next: next, cache: cache, logger: logger}
}

func (g *CachingGenerator) Name() string {
	return g.next.Name()
}

func (g *CachingGenerator) Generate(ctx context.Context, req ports.GenerateRequest) (ports.GenerateResponse, error) {
	key := cacheKey(g.next.Name(), req)
	entry, ok, err := g.cache.Get(key)
	if err != nil {
		g.logger.Warn("reply cache read failed", map[string]interface{}{"error": err.Error()})
	}
	if ok {
		g.logger.Debug("reply cache hit", map[string]interface{}{"model": entry.Model})
		return ports.GenerateResponse{Text: entry.Reply, Model: entry.Model}, nil
	}

	resp, err := g.next.Generate(ctx, req)
	if err != nil {
		return resp, err
	}
	if strings.TrimSpace(resp.Text) == "" {
		return resp, nil
	}
	if err := g.cache.Set(domain.CacheEntry{Key: key, Model: resp.Model, Prompt: req.Prompt, Reply: resp.Text}); err != nil {
		g.logger.Warn("reply cache write failed", map[string]interface{}{"error": err.Error()})
	}
	return resp, nil
}

// cacheKey covers every input that changes the rendered prompt.
func cacheKey(generator string, req ports.GenerateRequest) string {
	env := req.Environment
	h := sha256.New()
	for _, part := range []string{
		generator,
		strings.TrimSpace(req.Prompt),
		strconv.FormatBool(req.Advanced),
		env.WorkingDir,
		env.Shell,
		env.OS,
		strings.Join(env.Project, ","),
		strings.Join(env.Tools, ","),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

var _ ports.Generator = (*CachingGenerator)(nil)
