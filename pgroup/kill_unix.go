//go:build linux || darwin || netbsd || freebsd || openbsd

// Package pgroup starts commands in their own process group so that the
// whole tree can be killed.
package pgroup

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// Setup makes cmd the leader of a new process group.
func Setup(c *exec.Cmd) {
	if c.SysProcAttr == nil {
		c.SysProcAttr = &syscall.SysProcAttr{}
	}
	c.SysProcAttr.Setpgid = true
}

// Kill kills the process group of cmd.
func Kill(cmd *exec.Cmd) {
	proc := cmd.Process
	if proc == nil {
		return
	}

	pgid, err := unix.Getpgid(proc.Pid)
	if err == nil && pgid == proc.Pid {
		_ = unix.Kill(-pgid, unix.SIGTERM)
		_ = unix.Kill(-pgid, unix.SIGKILL)
		return
	}
	_ = proc.Kill()
}
