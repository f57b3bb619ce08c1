package domain

import (
	"errors"
	"fmt"
)

// Reserved process exit codes.
const (
	ExitOK             = 0
	ExitUsage          = 1
	ExitEngineFailure  = 70
	ExitDenied         = 77
	ExitTimeout        = 124
	ExitSpawnFailure   = 127
	ExitCodeNotStarted = -1
)

var (
	// ErrEngineFailure marks an internal failure that must not be degraded.
	ErrEngineFailure = errors.New("internal engine failure")
	// ErrRollbackConsumed is returned when restoring a record twice.
	ErrRollbackConsumed = errors.New("rollback record already consumed")
	// ErrBackupMissing is returned when a backup artifact is gone.
	ErrBackupMissing = errors.New("backup artifact missing")
	// ErrRollbackNotFound is returned for unknown record identifiers.
	ErrRollbackNotFound = errors.New("rollback record not found")
	// ErrDenied is returned to the CLI when a run ended in DENIED.
	ErrDenied = errors.New("command denied by policy")
)

// ClassificationError reports command text that could not be tokenised.
// The classifier degrades it to a MEDIUM unknown segment.
type ClassificationError struct {
	Command string
	Err     error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classify %q: %v", e.Command, e.Err)
}

func (e *ClassificationError) Unwrap() error { return e.Err }

// PolicyConfigError reports a malformed rule set. It is fatal at load time.
type PolicyConfigError struct {
	Source string
	Err    error
}

func (e *PolicyConfigError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("policy config: %v", e.Err)
	}
	return fmt.Sprintf("policy config %s: %v", e.Source, e.Err)
}

func (e *PolicyConfigError) Unwrap() error { return e.Err }

// ResourceSampleError reports unavailable telemetry.
type ResourceSampleError struct {
	Metric string
	Err    error
}

func (e *ResourceSampleError) Error() string {
	return fmt.Sprintf("sample %s: %v", e.Metric, e.Err)
}

func (e *ResourceSampleError) Unwrap() error { return e.Err }

// RollbackRestoreError wraps a failed restore.
type RollbackRestoreError struct {
	ID  string
	Err error
}

func (e *RollbackRestoreError) Error() string {
	return fmt.Sprintf("restore %s: %v", e.ID, e.Err)
}

func (e *RollbackRestoreError) Unwrap() error { return e.Err }

// ExecutionSpawnError reports a child process that never started.
type ExecutionSpawnError struct {
	Shell string
	Err   error
}

func (e *ExecutionSpawnError) Error() string {
	return fmt.Sprintf("spawn %s: %v", e.Shell, e.Err)
}

func (e *ExecutionSpawnError) Unwrap() error { return e.Err }

// ExitCode maps an error returned from a run cycle to a process exit code.
func ExitCode(err error) int {
	var spawn *ExecutionSpawnError
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, ErrDenied):
		return ExitDenied
	case errors.Is(err, ErrEngineFailure):
		return ExitEngineFailure
	case errors.As(err, &spawn):
		return ExitSpawnFailure
	}
	return ExitUsage
}

// ExitCodeForReport maps a finished run to the process exit code.
func ExitCodeForReport(report RunReport) int {
	switch report.State {
	case StateDenied:
		return ExitDenied
	case StateCompleted:
		if report.Outcome == nil {
			return ExitEngineFailure
		}
		if report.Outcome.Status == ExecTimeout {
			return ExitTimeout
		}
		return report.Outcome.ExitCode
	}
	return ExitOK
}
