// Package ai adapts command generation backends to ports.Generator.
//
// Generated text is untrusted. Adapters only fetch and tidy it; every candidate
// is classified and policy-checked by the supervisor afterwards.
package ai

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/doeshing/aishell-go/internal/domain"
	"github.com/doeshing/aishell-go/internal/ports"
)

// Factory builds generators from model definitions.
// It keeps a single HTTP client shared across generators.
type Factory struct {
	httpClient *http.Client
	logger     ports.Logger
	cache      ports.ReplyCache
}

func NewFactory(logger ports.Logger) *Factory {
	return &Factory{
		httpClient: &http.Client{Timeout: domain.DefaultHTTPClientTimeout},
		logger:     logger,
	}
}

// WithCache makes ForConfig serve repeated requests from cache.
func (f *Factory) WithCache(cache ports.ReplyCache) *Factory {
	f.cache = cache
	return f
}

// ForModel returns the generator for one model definition.
func (f *Factory) ForModel(model domain.ModelDefinition) (ports.Generator, error) {
	switch providerKind(model) {
	case domain.ProviderOllama:
		return newOllamaGenerator(model, f.httpClient), nil
	case domain.ProviderGemini:
		return newGeminiGenerator(model, f.httpClient), nil
	case domain.ProviderHeuristic:
		return newHeuristicGenerator(model), nil
	default:
		return nil, fmt.Errorf("unsupported provider %q for model %s", model.Provider, model.Name)
	}
}

// ForConfig returns the generator for the named model (or the default model)
// chained with the configured fallbacks.
func (f *Factory) ForConfig(cfg domain.Config, name string) (ports.Generator, error) {
	var primary domain.ModelDefinition
	if name != "" {
		model, ok := cfg.FindModelByName(name)
		if !ok {
			return nil, fmt.Errorf("model %s not found in configuration", name)
		}
		primary = model
	} else {
		model, err := cfg.GetDefaultModel()
		if err != nil {
			return nil, err
		}
		primary = model
	}

	first, err := f.ForModel(primary)
	if err != nil {
		return nil, err
	}
	chain := []ports.Generator{first}
	for _, model := range cfg.GetFallbackModels() {
		if model.Name == primary.Name {
			continue
		}
		gen, err := f.ForModel(model)
		if err != nil {
			f.logger.Warn("skipping fallback model", map[string]interface{}{"model": model.Name, "error": err.Error()})
			continue
		}
		chain = append(chain, gen)
	}
	gen := first
	if len(chain) > 1 {
		gen = NewFallbackGenerator(f.logger, chain...)
	}
	if f.cache != nil {
		gen = NewCachingGenerator(gen, f.cache, f.logger)
	}
	return gen, nil
}

// providerKind uses the explicit provider, then infers one from the endpoint.
func providerKind(model domain.ModelDefinition) string {
	if model.Provider != "" {
		return strings.ToLower(model.Provider)
	}
	endpoint := strings.ToLower(model.Endpoint)
	switch {
	case strings.Contains(endpoint, "googleapis.com"), strings.HasPrefix(strings.ToLower(model.ModelID), "gemini"):
		return domain.ProviderGemini
	case strings.Contains(endpoint, "11434"), strings.Contains(strings.ToLower(model.Name), "ollama"):
		return domain.ProviderOllama
	case endpoint == "":
		return domain.ProviderHeuristic
	}
	return ""
}
