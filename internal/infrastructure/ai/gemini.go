package ai

import (
	"context"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/doeshing/aishell-go/internal/domain"
	"github.com/doeshing/aishell-go/internal/ports"
)

const (
	defaultGeminiModel  = "gemini-2.0-flash"
	defaultGeminiKeyEnv = "GEMINI_API_KEY"
)

type geminiGenerator struct {
	model      domain.ModelDefinition
	httpClient *http.Client
}

func newGeminiGenerator(model domain.ModelDefinition, client *http.Client) *geminiGenerator {
	return &geminiGenerator{model: model, httpClient: client}
}

func (g *geminiGenerator) Name() string {
	return "gemini:" + g.model.Name
}

func (g *geminiGenerator) Generate(ctx context.Context, req ports.GenerateRequest) (ports.GenerateResponse, error) {
	apiKey := resolveAuth(g.model.AuthEnvVar, defaultGeminiKeyEnv)
	if apiKey == "" {
		return ports.GenerateResponse{}, fmt.Errorf("missing API key: set %s environment variable", valueOrDefault(g.model.AuthEnvVar, defaultGeminiKeyEnv))
	}

	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: g.httpClient,
	}
	if g.model.Endpoint != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: g.model.Endpoint}
	}
	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return ports.GenerateResponse{}, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	system, user, err := renderPrompt(req)
	if err != nil {
		return ports.GenerateResponse{}, fmt.Errorf("render prompt: %w", err)
	}

	modelID := valueOrDefault(g.model.ModelID, defaultGeminiModel)
	resp, err := client.Models.GenerateContent(ctx, modelID, genai.Text(user), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.1),
		MaxOutputTokens:   int32(valueOrDefaultInt(g.model.MaxTokens, domain.DefaultMaxTokens)),
	})
	if err != nil {
		return ports.GenerateResponse{}, fmt.Errorf("gemini: %w", err)
	}
	return ports.GenerateResponse{Text: resp.Text(), Model: modelID}, nil
}

var _ ports.Generator = (*geminiGenerator)(nil)
