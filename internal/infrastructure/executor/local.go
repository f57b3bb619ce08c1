// Package executor runs approved commands as supervised child processes.
package executor

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/doeshing/aishell-go/internal/domain"
	"github.com/doeshing/aishell-go/internal/ports"
)

// Options configures a LocalExecutor.
type Options struct {
	Shell          string
	WorkDir        string
	MaxOutputBytes int64
	WaitDelay      time.Duration
}

// OptionsFromConfig maps the execution config section.
func OptionsFromConfig(cfg domain.Config) Options {
	return Options{
		Shell:          cfg.GetExecutionShell(),
		WorkDir:        cfg.Execution.WorkingDir,
		MaxOutputBytes: cfg.GetMaxOutputBytes(),
	}
}

// LocalExecutor runs commands on the host shell.
type LocalExecutor struct {
	opts   Options
	logger ports.Logger
}

// NewLocalExecutor builds a new executor, shell defaults to $SHELL then /bin/sh.
func NewLocalExecutor(opts Options, logger ports.Logger) *LocalExecutor {
	if opts.Shell == "" {
		opts.Shell = os.Getenv("SHELL")
	}
	if opts.Shell == "" {
		opts.Shell = domain.DefaultShell
	}
	if opts.MaxOutputBytes <= 0 {
		opts.MaxOutputBytes = domain.DefaultMaxOutputBytes
	}
	if opts.WaitDelay <= 0 {
		opts.WaitDelay = domain.DefaultWaitDelay
	}
	return &LocalExecutor{opts: opts, logger: logger}
}

// Shell returns the shell commands run under.
func (e *LocalExecutor) Shell() string { return e.opts.Shell }

// Execute implements ports.CommandExecutor.
//
// Once started the child is bound only by timeout; cancelling ctx does not stop it.
// On timeout the whole process group is killed and the result has status TIMEOUT.
func (e *LocalExecutor) Execute(ctx context.Context, command string, timeout time.Duration) (domain.ExecutionResult, error) {
	if timeout <= 0 {
		timeout = domain.DefaultCommandTimeout
	}
	runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	defer cancel()

	c := exec.CommandContext(runCtx, e.opts.Shell, "-c", command)
	c.Dir = e.opts.WorkDir
	c.Stdin = nil
	stdout := &limitedWriter{limit: e.opts.MaxOutputBytes}
	stderr := &limitedWriter{limit: e.opts.MaxOutputBytes}
	c.Stdout = stdout
	c.Stderr = stderr
	c.WaitDelay = e.opts.WaitDelay
	configureProcessGroup(c)

	start := time.Now()
	if err := c.Start(); err != nil {
		e.logger.Error("command failed to start", err, map[string]interface{}{"shell": e.opts.Shell})
		return domain.ExecutionResult{ExitCode: domain.ExitCodeNotStarted}, &domain.ExecutionSpawnError{Shell: e.opts.Shell, Err: err}
	}
	waitErr := c.Wait()
	duration := time.Since(start)

	result := domain.ExecutionResult{
		Stdout:    stdout.String(),
		Stderr:    stderr.String(),
		Truncated: stdout.Truncated() || stderr.Truncated(),
		Duration:  duration,
	}

	switch {
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		result.Status = domain.ExecTimeout
		result.ExitCode = domain.ExitCodeNotStarted
		e.logger.Warn("command timed out", map[string]interface{}{
			"timeout":     timeout.String(),
			"duration_ms": duration.Milliseconds(),
		})
		return result, nil
	case c.ProcessState != nil:
		result.ExitCode = exitStatus(c.ProcessState)
	default:
		result.ExitCode = domain.ExitCodeNotStarted
	}

	if result.ExitCode == 0 {
		result.Status = domain.ExecSucceeded
	} else {
		result.Status = domain.ExecFailed
	}
	if waitErr != nil && !isExitError(waitErr) {
		// pipes held open by a background grandchild past WaitDelay
		e.logger.Warn("command output incomplete", map[string]interface{}{"error": waitErr.Error()})
	}
	e.logger.Debug("command finished", map[string]interface{}{
		"exit_code":   result.ExitCode,
		"duration_ms": duration.Milliseconds(),
		"truncated":   result.Truncated,
	})
	return result, nil
}

func isExitError(err error) bool {
	var exitErr *exec.ExitError
	return errors.As(err, &exitErr)
}

// limitedWriter keeps the first limit bytes and discards the rest while still
// reporting full writes, so the child never sees a short write.
type limitedWriter struct {
	mu        sync.Mutex
	buf       bytes.Buffer
	limit     int64
	truncated bool
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	room := w.limit - int64(w.buf.Len())
	if room <= 0 {
		if len(p) > 0 {
			w.truncated = true
		}
		return len(p), nil
	}
	if int64(len(p)) > room {
		w.buf.Write(p[:room])
		w.truncated = true
		return len(p), nil
	}
	w.buf.Write(p)
	return len(p), nil
}

func (w *limitedWriter) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.buf.String()
}

func (w *limitedWriter) Truncated() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.truncated
}

var _ ports.CommandExecutor = (*LocalExecutor)(nil)
