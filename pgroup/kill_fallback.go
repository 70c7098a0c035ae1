//go:build !windows && !linux && !darwin && !netbsd && !freebsd && !openbsd

package pgroup

import (
	"os"
	"os/exec"
)

// Setup is a no-op where process groups are not supported.
func Setup(c *exec.Cmd) {}

// Kill interrupts and then kills the process itself.
func Kill(cmd *exec.Cmd) {
	proc := cmd.Process
	if proc == nil {
		return
	}
	proc.Signal(os.Interrupt)
	proc.Signal(os.Kill)
}
