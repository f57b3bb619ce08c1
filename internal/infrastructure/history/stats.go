package history

import (
	"sort"
	"strings"

	"github.com/doeshing/aishell-go/internal/domain"
	"github.com/doeshing/aishell-go/internal/ports"
)

const (
	topVerbCount    = 5
	topCommandCount = 10
)

func verbOf(rec domain.OutcomeRecord) string {
	for _, seg := range rec.Classification.Segments {
		if seg.Verb != "" {
			return seg.Verb
		}
	}
	if fields := strings.Fields(rec.Command); len(fields) > 0 {
		return fields[0]
	}
	return ""
}

func failed(rec domain.OutcomeRecord) bool {
	return rec.Outcome != nil && rec.Outcome.Status != domain.ExecSucceeded
}

func matches(rec domain.OutcomeRecord, filter ports.HistoryFilter) bool {
	if filter.State != "" && rec.State != filter.State {
		return false
	}
	if filter.Search == "" {
		return true
	}
	needle := strings.ToLower(filter.Search)
	return strings.Contains(strings.ToLower(rec.Command), needle) ||
		strings.Contains(strings.ToLower(rec.Source.Prompt), needle)
}

func computeStats(records []domain.OutcomeRecord) ports.HistoryStats {
	stats := ports.HistoryStats{
		ByState: make(map[domain.RunState]int),
		ByRisk:  make(map[domain.RiskLevel]int),
	}
	verbs := make(map[string]int)
	commands := make(map[string]*ports.CommandCount)
	for _, rec := range records {
		stats.Total++
		stats.ByState[rec.State]++
		if rec.Classification.Risk.Valid() {
			stats.ByRisk[rec.Classification.Risk]++
		}
		if failed(rec) {
			stats.Failures++
		}
		if v := verbOf(rec); v != "" {
			verbs[v]++
		}
		if rec.State == domain.StateCompleted && rec.Command != "" {
			c, ok := commands[rec.Command]
			if !ok {
				c = &ports.CommandCount{Command: rec.Command, Safe: true}
				commands[rec.Command] = c
			}
			c.Count++
			c.Safe = c.Safe && rec.Classification.Risk == domain.RiskLow
		}
		if stats.FirstSeen.IsZero() || rec.Timestamp.Before(stats.FirstSeen) {
			stats.FirstSeen = rec.Timestamp
		}
		if rec.Timestamp.After(stats.LastSeen) {
			stats.LastSeen = rec.Timestamp
		}
	}
	stats.TopVerbs = topVerbs(verbs)
	counts := make([]ports.CommandCount, 0, len(commands))
	for _, c := range commands {
		counts = append(counts, *c)
	}
	stats.TopCommands = topCommands(counts)
	return stats
}

func topCommands(counts []ports.CommandCount) []ports.CommandCount {
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Command < counts[j].Command
	})
	if len(counts) > topCommandCount {
		counts = counts[:topCommandCount]
	}
	return counts
}

func topVerbs(counts map[string]int) []ports.VerbCount {
	out := make([]ports.VerbCount, 0, len(counts))
	for verb, n := range counts {
		out = append(out, ports.VerbCount{Verb: verb, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Verb < out[j].Verb
	})
	if len(out) > topVerbCount {
		out = out[:topVerbCount]
	}
	return out
}
