package domain

import (
	"fmt"
	"time"
)

// ExecStatus classifies how a child process ended.
type ExecStatus string

const (
	ExecSucceeded ExecStatus = "SUCCEEDED"
	ExecFailed    ExecStatus = "FAILED"
	ExecTimeout   ExecStatus = "TIMEOUT"
)

// ExecutionResult is what an executor reports for one process.
type ExecutionResult struct {
	Status    ExecStatus
	ExitCode  int
	Stdout    string
	Stderr    string
	Truncated bool
	Duration  time.Duration
}

// ExecutionOutcome is the append-only record of a command that actually ran.
type ExecutionOutcome struct {
	Command          string         `json:"command"`
	Status           ExecStatus     `json:"status"`
	ExitCode         int            `json:"exit_code"`
	Stdout           string         `json:"stdout"`
	Stderr           string         `json:"stderr"`
	Truncated        bool           `json:"truncated,omitempty"`
	DurationMS       int64          `json:"duration_ms"`
	Verdict          PolicyVerdict  `json:"verdict"`
	Classification   Classification `json:"classification"`
	ResourceOverride bool           `json:"resource_override,omitempty"`
	RollbackID       string         `json:"rollback_id,omitempty"`
}

// RunState is a node in the supervisor's state machine.
type RunState string

const (
	StateClassified           RunState = "CLASSIFIED"
	StatePolicyChecked        RunState = "POLICY_CHECKED"
	StateResourceChecked      RunState = "RESOURCE_CHECKED"
	StateAwaitingConfirmation RunState = "AWAITING_CONFIRMATION"
	StateApproved             RunState = "APPROVED"
	StateEdited               RunState = "EDITED"
	StateSnapshotted          RunState = "SNAPSHOTTED"
	StateExecuting            RunState = "EXECUTING"
	StateCompleted            RunState = "COMPLETED"
	StateDenied               RunState = "DENIED"
	StateCancelled            RunState = "CANCELLED"
	StateDryRun               RunState = "DRY_RUN"
)

var runTransitions = map[RunState][]RunState{
	StateClassified:           {StatePolicyChecked},
	StatePolicyChecked:        {StateResourceChecked, StateDenied},
	StateResourceChecked:      {StateAwaitingConfirmation, StateCancelled},
	StateAwaitingConfirmation: {StateApproved, StateEdited, StateCancelled, StateDryRun},
	StateEdited:               {StateClassified},
	StateApproved:             {StateSnapshotted, StateExecuting, StateCancelled},
	StateSnapshotted:          {StateExecuting},
	StateExecuting:            {StateCompleted},
}

// CanTransitionTo reports whether the state machine permits s -> target.
func (s RunState) CanTransitionTo(target RunState) bool {
	for _, next := range runTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions exist.
func (s RunState) Terminal() bool {
	_, ok := runTransitions[s]
	return !ok
}

// StateError reports an illegal transition attempt.
type StateError struct {
	From RunState
	To   RunState
}

func (e *StateError) Error() string {
	return fmt.Sprintf("illegal transition %s -> %s", e.From, e.To)
}

// OutcomeRecord is the structured record emitted to the sink once per run cycle.
type OutcomeRecord struct {
	RunID            string            `json:"run_id"`
	Timestamp        time.Time         `json:"timestamp"`
	Command          string            `json:"command"`
	Source           CommandSource     `json:"source"`
	State            RunState          `json:"state"`
	Classification   Classification    `json:"classification"`
	Verdict          PolicyVerdict     `json:"verdict"`
	Resource         *ResourceSnapshot `json:"resource,omitempty"`
	ResourceOverride bool              `json:"resource_override,omitempty"`
	Outcome          *ExecutionOutcome `json:"outcome,omitempty"`
	RollbackID       string            `json:"rollback_id,omitempty"`
	Reason           string            `json:"reason,omitempty"`
}

// RunReport summarises a finished run cycle for the caller.
type RunReport struct {
	RunID          string
	State          RunState
	Command        string
	History        []RunState
	Classification Classification
	Verdict        PolicyVerdict
	Resource       *ResourceSnapshot
	Rollback       RollbackPlan
	RollbackRecord *RollbackRecord
	Outcome        *ExecutionOutcome
	Reason         string
	Restored       bool
}

// DecisionKind is the typed user response at the confirmation step.
type DecisionKind int

const (
	DecisionApprove DecisionKind = iota + 1
	DecisionEdit
	DecisionCancel
	DecisionDryRun
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionApprove:
		return "approve"
	case DecisionEdit:
		return "edit"
	case DecisionCancel:
		return "cancel"
	case DecisionDryRun:
		return "dry_run"
	}
	return fmt.Sprintf("DecisionKind(%d)", int(k))
}

// Decision is the answer returned by a confirmation interface.
type Decision struct {
	Kind       DecisionKind
	EditedText string
}

// ConfirmationRequest is what the supervisor presents for a decision.
type ConfirmationRequest struct {
	Command        string
	Classification Classification
	Verdict        PolicyVerdict
	Resource       *ResourceSnapshot
	Rollback       RollbackPlan
	Warnings       []string
	Explicit       bool
	BlockOverride  bool
}
