package supervisor

import (
	"github.com/doeshing/aishell-go/internal/domain"
)

// cycle tracks one pass through the state machine.
type cycle struct {
	report domain.RunReport
}

func newCycle(runID, command string) *cycle {
	return &cycle{report: domain.RunReport{
		RunID:   runID,
		State:   domain.StateClassified,
		Command: command,
		History: []domain.RunState{domain.StateClassified},
	}}
}

// to moves the cycle forward. Illegal transitions are programming errors and
// surface as engine failures through Run's recover.
func (c *cycle) to(next domain.RunState) {
	if !c.report.State.CanTransitionTo(next) {
		panic(&domain.StateError{From: c.report.State, To: next})
	}
	c.report.State = next
	c.report.History = append(c.report.History, next)
}

func (c *cycle) finish(next domain.RunState, reason string) {
	c.to(next)
	if reason != "" {
		c.report.Reason = reason
	}
}
