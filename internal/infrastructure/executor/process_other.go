//go:build !unix

package executor

import (
	"os"
	"os/exec"
)

func configureProcessGroup(c *exec.Cmd) {}

func exitStatus(state *os.ProcessState) int { return state.ExitCode() }
