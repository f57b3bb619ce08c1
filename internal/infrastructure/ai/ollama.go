package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/doeshing/aishell-go/internal/domain"
	"github.com/doeshing/aishell-go/internal/ports"
)

const defaultOllamaEndpoint = "http://localhost:11434"

type ollamaGenerator struct {
	model      domain.ModelDefinition
	httpClient *http.Client
}

func newOllamaGenerator(model domain.ModelDefinition, client *http.Client) *ollamaGenerator {
	return &ollamaGenerator{
		model:      model,
		httpClient: client,
	}
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaChatResponse struct {
	Model   string        `json:"model"`
	Message ollamaMessage `json:"message"`
	Error   string        `json:"error,omitempty"`
}

func (o *ollamaGenerator) Name() string {
	return "ollama:" + o.model.Name
}

func (o *ollamaGenerator) Generate(ctx context.Context, req ports.GenerateRequest) (ports.GenerateResponse, error) {
	system, user, err := renderPrompt(req)
	if err != nil {
		return ports.GenerateResponse{}, fmt.Errorf("render prompt: %w", err)
	}

	modelID := valueOrDefault(o.model.ModelID, domain.DefaultModelName)
	payload := ollamaChatRequest{
		Model: modelID,
		Messages: []ollamaMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Options: ollamaOptions{
			Temperature: 0.1,
			TopP:        0.9,
			NumPredict:  valueOrDefaultInt(o.model.MaxTokens, domain.DefaultMaxTokens),
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return ports.GenerateResponse{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, chatEndpoint(o.model.Endpoint), bytes.NewReader(body))
	if err != nil {
		return ports.GenerateResponse{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return ports.GenerateResponse{}, fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return ports.GenerateResponse{}, fmt.Errorf("ollama: %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	var decoded ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return ports.GenerateResponse{}, fmt.Errorf("decode ollama response: %w", err)
	}
	if decoded.Error != "" {
		return ports.GenerateResponse{}, fmt.Errorf("ollama: %s", decoded.Error)
	}
	return ports.GenerateResponse{Text: decoded.Message.Content, Model: valueOrDefault(decoded.Model, modelID)}, nil
}

func chatEndpoint(endpoint string) string {
	endpoint = strings.TrimRight(valueOrDefault(endpoint, defaultOllamaEndpoint), "/")
	if strings.HasSuffix(endpoint, "/api/chat") {
		return endpoint
	}
	return endpoint + "/api/chat"
}

var _ ports.Generator = (*ollamaGenerator)(nil)
