package pipeline_test

import (
	"bytes"
	"io"
	"log/slog"
	"os/exec"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loov/hotserver/pipeline"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func requireShell(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not found")
	}
}

func TestParseArgs(t *testing.T) {
	type test struct {
		args     []string
		expected []pipeline.Process
	}

	tests := []test{
		{nil, nil},
		{[]string{"make"}, []pipeline.Process{{Cmd: "make", Args: []string{}}}},
		{[]string{"go", "build", ";;", "echo", "ok"}, []pipeline.Process{
			{Cmd: "go", Args: []string{"build"}},
			{Cmd: "echo", Args: []string{"ok"}},
		}},
		{[]string{"a", "==", "b", "x", "y"}, []pipeline.Process{
			{Cmd: "a", Args: []string{}},
			{Cmd: "b", Args: []string{"x", "y"}},
		}},
		{[]string{";;", "a", ";;"}, []pipeline.Process{
			{Cmd: "a", Args: []string{}},
		}},
	}

	for _, test := range tests {
		assert.Equal(t, test.expected, pipeline.ParseArgs(test.args), test.args)
	}
}

func TestRun(t *testing.T) {
	requireShell(t)

	var output bytes.Buffer
	pipe := &pipeline.Pipeline{
		Dir:    t.TempDir(),
		Output: &output,
		Log:    discard,
		Processes: pipeline.ParseArgs([]string{
			"sh", "-c", "echo first", ";;",
			"sh", "-c", "echo second",
		}),
	}

	require.NoError(t, pipe.Run())
	assert.Equal(t, "first\nsecond\n", output.String())
}

func TestRunStopsAtFailure(t *testing.T) {
	requireShell(t)

	var output bytes.Buffer
	pipe := &pipeline.Pipeline{
		Output: &output,
		Log:    discard,
		Processes: pipeline.ParseArgs([]string{
			"sh", "-c", "exit 3", ";;",
			"sh", "-c", "echo unreachable",
		}),
	}

	err := pipe.Run()
	require.Error(t, err)
	assert.NotErrorIs(t, err, pipeline.ErrKilled)
	assert.Empty(t, output.String())
}

func TestRunMissingCommand(t *testing.T) {
	pipe := &pipeline.Pipeline{
		Output:    io.Discard,
		Log:       discard,
		Processes: []pipeline.Process{{Cmd: "hotserver-command-that-does-not-exist"}},
	}
	assert.Error(t, pipe.Run())
}

func TestKill(t *testing.T) {
	requireShell(t)

	pipe := &pipeline.Pipeline{
		Output:    io.Discard,
		Log:       discard,
		Processes: pipeline.ParseArgs([]string{"sh", "-c", "sleep 30", ";;", "sh", "-c", "echo never"}),
	}

	done := make(chan error, 1)
	go func() { done <- pipe.Run() }()

	time.Sleep(100 * time.Millisecond)
	pipe.Kill()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, pipeline.ErrKilled)
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not stop")
	}
}

func TestKillBeforeRun(t *testing.T) {
	pipe := &pipeline.Pipeline{
		Output:    io.Discard,
		Log:       discard,
		Processes: []pipeline.Process{{Cmd: "sh", Args: []string{"-c", "echo"}}},
	}
	pipe.Kill()
	assert.ErrorIs(t, pipe.Run(), pipeline.ErrKilled)
}
