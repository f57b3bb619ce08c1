package commands

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/doeshing/aishell-go/internal/domain"
	"github.com/doeshing/aishell-go/internal/ports"
)

func TestDisplaySuggestions(t *testing.T) {
	var buf bytes.Buffer
	displaySuggestions(&buf, []ports.CommandCount{
		{Command: "git status", Count: 7, Safe: true},
		{Command: "make test", Count: 4},
		{Command: "ls -la", Count: 2, Safe: true},
	}, 2)

	out := buf.String()
	assert.Contains(t, out, "1. git status (7)")
	assert.Contains(t, out, "2. make test (4)")
	assert.NotContains(t, out, "ls -la (2)")
	assert.Contains(t, out, "Safe to automate")
	assert.Contains(t, out, "2. ls -la\n")
}

func TestDisplaySuggestions_Empty(t *testing.T) {
	var buf bytes.Buffer
	displaySuggestions(&buf, nil, 5)
	assert.Equal(t, MsgNoSuggestions+"\n", buf.String())

	buf.Reset()
	displaySuggestions(&buf, []ports.CommandCount{{Command: "make", Count: 1}}, 5)
	assert.Contains(t, buf.String(), "No read-only commands")
}

func TestDisplayHistoryStatistics(t *testing.T) {
	now := time.Now()
	var buf bytes.Buffer
	displayHistoryStatistics(&buf, ports.HistoryStats{
		Total:     4,
		ByState:   map[domain.RunState]int{domain.StateCompleted: 2, domain.StateDenied: 2},
		ByRisk:    map[domain.RiskLevel]int{domain.RiskLow: 2, domain.RiskCritical: 2},
		Failures:  1,
		TopVerbs:  []ports.VerbCount{{Verb: "rm", Count: 2}},
		FirstSeen: now.Add(-time.Hour),
		LastSeen:  now,
	})

	out := buf.String()
	assert.Contains(t, out, "Entries: 4")
	assert.Contains(t, out, "Success rate: 50.0%")
	assert.Contains(t, out, "  DENIED: 2")
	assert.Contains(t, out, "  CRITICAL: 2")
	assert.Contains(t, out, "  rm (2)")
}
