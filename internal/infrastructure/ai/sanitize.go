package ai

import (
	"errors"
	"regexp"
	"strings"

	"github.com/doeshing/aishell-go/internal/infrastructure/classifier"
)

// ErrEmptyCommand is returned when a generator reply holds no command.
var ErrEmptyCommand = errors.New("generator returned an empty command")

var fencePattern = regexp.MustCompile("```[a-zA-Z]*")

var replyPrefixes = []string{"command:", "$ ", "bash:", "shell:", "sh:"}

// Candidates extracts candidate commands from a generator reply. Advanced
// replies may hold one command per line; splitMulti further splits each
// command at top-level && and ;.
func Candidates(reply string, advanced, splitMulti bool) ([]string, error) {
	lines := commandLines(reply)
	if len(lines) == 0 {
		return nil, ErrEmptyCommand
	}
	if !advanced {
		lines = lines[:1]
	}
	if !splitMulti {
		return lines, nil
	}
	var out []string
	for _, line := range lines {
		out = append(out, classifier.SplitSequence(line)...)
	}
	if len(out) == 0 {
		return nil, ErrEmptyCommand
	}
	return out, nil
}

// commandLines strips code fences, prompt prefixes and commentary lines.
func commandLines(reply string) []string {
	text := fencePattern.ReplaceAllString(reply, "")
	var out []string
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = stripPrefix(line)
		line = stripSentenceDot(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

func stripPrefix(line string) string {
	for {
		lower := strings.ToLower(line)
		trimmed := false
		for _, p := range replyPrefixes {
			if strings.HasPrefix(lower, p) {
				line = strings.TrimSpace(line[len(p):])
				trimmed = true
				break
			}
		}
		if !trimmed {
			return line
		}
	}
}

// stripSentenceDot drops a trailing period left by chatty models, but keeps
// path operands such as "." and "../".
func stripSentenceDot(line string) string {
	if !strings.HasSuffix(line, ".") || strings.HasSuffix(line, "..") {
		return line
	}
	fields := strings.Fields(line)
	last := fields[len(fields)-1]
	if last == "." || strings.HasSuffix(last, "/.") || len(fields) == 1 {
		return line
	}
	return strings.TrimSuffix(line, ".")
}
