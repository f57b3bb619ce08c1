package ai

import (
	"context"
	"errors"
	"strings"

	"github.com/doeshing/aishell-go/internal/domain"
	"github.com/doeshing/aishell-go/internal/ports"
)

// ErrNoSuggestion is returned when the offline generator has no mapping.
var ErrNoSuggestion = errors.New("no offline suggestion for this request")

type heuristicGenerator struct {
	model domain.ModelDefinition
}

func newHeuristicGenerator(model domain.ModelDefinition) *heuristicGenerator {
	return &heuristicGenerator{model: model}
}

func (p *heuristicGenerator) Name() string {
	return "heuristic"
}

func (p *heuristicGenerator) Generate(_ context.Context, req ports.GenerateRequest) (ports.GenerateResponse, error) {
	command := guessCommand(req.Prompt)
	if command == "" {
		return ports.GenerateResponse{}, ErrNoSuggestion
	}
	return ports.GenerateResponse{Text: command, Model: "heuristic"}, nil
}

type keywordRule struct {
	all     []string
	command string
}

// first match wins, so specific rules come before general ones
var keywordRules = []keywordRule{
	{all: []string{"docker", "container"}, command: "docker ps"},
	{all: []string{"git", "status"}, command: "git status"},
	{all: []string{"git", "log"}, command: "git log --oneline -n 20"},
	{all: []string{"pod"}, command: "kubectl get pods"},
	{all: []string{"disk", "usage"}, command: "du -sh ./*"},
	{all: []string{"disk", "space"}, command: "df -h"},
	{all: []string{"memory"}, command: "free -h"},
	{all: []string{"process"}, command: "ps aux"},
	{all: []string{"large", "file"}, command: `find . -type f -size +100M -exec ls -lh {} \;`},
	{all: []string{"log", "file"}, command: `find . -name "*.log" -type f`},
	{all: []string{"current", "directory"}, command: "pwd"},
	{all: []string{"list", "file"}, command: "ls -la"},
	{all: []string{"port"}, command: "ss -tulpn"},
	{all: []string{"ip", "address"}, command: "ip addr show"},
}

func guessCommand(prompt string) string {
	prompt = strings.ToLower(prompt)
	for _, rule := range keywordRules {
		matched := true
		for _, word := range rule.all {
			if !strings.Contains(prompt, word) {
				matched = false
				break
			}
		}
		if matched {
			return rule.command
		}
	}
	return ""
}

var _ ports.Generator = (*heuristicGenerator)(nil)
