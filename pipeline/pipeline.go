// Package pipeline runs a sequence of commands after a file change.
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/loov/hrtime"

	"github.com/loov/hotserver/pgroup"
)

// ErrKilled is returned by Run when the pipeline was killed before it
// finished.
var ErrKilled = errors.New("pipeline killed")

type Process struct {
	Cmd  string
	Args []string
}

func (proc *Process) String() string {
	return proc.Cmd + " " + strings.Join(proc.Args, " ")
}

// Pipeline runs Processes one after another, stopping at the first failure.
type Pipeline struct {
	Dir       string
	Output    io.Writer
	Log       *slog.Logger
	Processes []Process

	mu     sync.Mutex
	proc   Process
	reader io.ReadCloser
	writer io.WriteCloser
	active *exec.Cmd
	killed bool
}

func (pipe *Pipeline) closeio() {
	pipe.reader.Close()
	pipe.writer.Close()
}

// Run executes the processes. It returns ErrKilled when Kill was called.
func (pipe *Pipeline) Run() error {
	log := pipe.Log
	if log == nil {
		log = slog.Default()
	}

	output := pipe.Output
	if output == nil {
		output = os.Stdout
	}

	pipe.mu.Lock()
	if pipe.killed {
		pipe.mu.Unlock()
		return ErrKilled
	}
	pipe.reader, pipe.writer = io.Pipe()
	pipe.mu.Unlock()

	copied := make(chan struct{})
	go func() {
		defer close(copied)
		_, _ = io.Copy(output, pipe.reader)
	}()
	defer func() {
		pipe.writer.Close()
		<-copied
	}()

	for _, proc := range pipe.Processes {
		pipe.mu.Lock()
		if pipe.killed {
			pipe.mu.Unlock()
			return ErrKilled
		}

		pipe.proc = proc
		pipe.active = exec.Command(proc.Cmd, proc.Args...)
		pipe.active.Dir = pipe.Dir
		pgroup.Setup(pipe.active)

		pipe.active.Stdout, pipe.active.Stderr = pipe.writer, pipe.writer

		log.Info("run", "cmd", proc.String())

		start := hrtime.Now()
		err := pipe.active.Start()
		if err != nil {
			pipe.active = nil
			pipe.killed = true
			pipe.closeio()
			pipe.mu.Unlock()
			log.Error("run failed", "cmd", proc.String(), "err", err)
			return fmt.Errorf("start %s: %w", proc.Cmd, err)
		}
		cmd := pipe.active
		pipe.mu.Unlock()

		if err := cmd.Wait(); err != nil {
			pipe.mu.Lock()
			killed := pipe.killed
			pipe.active = nil
			pipe.mu.Unlock()

			if killed {
				return ErrKilled
			}
			log.Error("run failed", "cmd", proc.String(), "took", hrtime.Since(start), "err", err)
			return fmt.Errorf("%s: %w", proc.String(), err)
		}

		pipe.mu.Lock()
		pipe.active = nil
		pipe.mu.Unlock()
		log.Info("done", "cmd", proc.String(), "took", hrtime.Since(start))
	}
	return nil
}

// Kill stops the running process and prevents the remaining ones from
// starting.
func (pipe *Pipeline) Kill() {
	pipe.mu.Lock()
	defer pipe.mu.Unlock()

	if pipe.active != nil {
		log := pipe.Log
		if log == nil {
			log = slog.Default()
		}
		log.Info("kill", "cmd", pipe.proc.String())
		pipe.closeio()
		pgroup.Kill(pipe.active)
		pipe.active = nil
	}
	pipe.killed = true
}

// ParseArgs splits args into processes separated by ";;" or "==".
func ParseArgs(args []string) (procs []Process) {
	start := 0
	for i, arg := range args {
		if arg == ";;" || arg == "==" {
			if i > start {
				procs = append(procs, Process{
					Cmd:  args[start],
					Args: args[start+1 : i],
				})
			}
			start = i + 1
		}
	}
	if start < len(args) {
		procs = append(procs, Process{
			Cmd:  args[start],
			Args: args[start+1:],
		})
	}

	return procs
}
