package cli

import (
	"errors"
	"fmt"

	"github.com/doeshing/aishell-go/internal/domain"
)

// ExitError carries a process exit code out of a command without printing
// an error message.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// ExitCode maps an error returned by the root command to a process status.
func ExitCode(err error) int {
	var exit *ExitError
	if errors.As(err, &exit) {
		return exit.Code
	}
	return domain.ExitCode(err)
}

// Silent reports whether err only carries an exit code.
func Silent(err error) bool {
	var exit *ExitError
	return errors.As(err, &exit)
}

func exitFor(report domain.RunReport) error {
	if code := domain.ExitCodeForReport(report); code != domain.ExitOK {
		return &ExitError{Code: code}
	}
	return nil
}
