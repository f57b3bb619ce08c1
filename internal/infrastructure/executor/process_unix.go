//go:build unix

package executor

import (
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// configureProcessGroup starts the shell in its own group so a timeout kills
// every descendant, not only the shell.
func configureProcessGroup(c *exec.Cmd) {
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	c.Cancel = func() error {
		if c.Process == nil {
			return nil
		}
		if err := unix.Kill(-c.Process.Pid, unix.SIGKILL); err != nil {
			return c.Process.Kill()
		}
		return nil
	}
}

// exitStatus follows the shell convention of 128+signal for a child killed
// by a signal.
func exitStatus(state *os.ProcessState) int {
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return state.ExitCode()
}
