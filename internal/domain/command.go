package domain

import "strings"

// CommandSource records where a candidate command came from.
type CommandSource struct {
	Origin    string `json:"origin" yaml:"origin"`
	Prompt    string `json:"prompt,omitempty" yaml:"prompt,omitempty"`
	Model     string `json:"model,omitempty" yaml:"model,omitempty"`
	RequestID string `json:"request_id,omitempty" yaml:"request_id,omitempty"`
}

// Known command origins.
const (
	OriginGenerator = "generator"
	OriginUser      = "user"
	OriginEdit      = "edit"
)

// CandidateCommand is a shell command proposed for execution.
// Values are not mutated after construction; edits produce a new candidate.
type CandidateCommand struct {
	text        string
	subCommands []string
	source      CommandSource
}

// NewCandidate builds a candidate with trimmed text.
func NewCandidate(text string, source CommandSource, subCommands ...string) CandidateCommand {
	subs := make([]string, 0, len(subCommands))
	for _, s := range subCommands {
		if s = strings.TrimSpace(s); s != "" {
			subs = append(subs, s)
		}
	}
	return CandidateCommand{
		text:        strings.TrimSpace(text),
		subCommands: subs,
		source:      source,
	}
}

func (c CandidateCommand) Text() string          { return c.text }
func (c CandidateCommand) Source() CommandSource { return c.source }

// SubCommands returns a copy of the steps of a chained candidate, or nil for
// a single command.
func (c CandidateCommand) SubCommands() []string {
	if len(c.subCommands) == 0 {
		return nil
	}
	out := make([]string, len(c.subCommands))
	copy(out, c.subCommands)
	return out
}

// Edited derives a new candidate from user-modified text.
func (c CandidateCommand) Edited(text string) CandidateCommand {
	src := c.source
	src.Origin = OriginEdit
	return NewCandidate(text, src)
}
