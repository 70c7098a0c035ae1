package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

// LogLevel is the verbosity of the command output.
// The values match slog.Level, LogLevelSilent disables logging.
type LogLevel int

const (
	LogLevelDebug  LogLevel = -4
	LogLevelInfo   LogLevel = 0
	LogLevelWarn   LogLevel = 4
	LogLevelError  LogLevel = 8
	LogLevelSilent LogLevel = 12
)

var logLevelName = map[LogLevel]string{
	LogLevelDebug:  "debug",
	LogLevelInfo:   "info",
	LogLevelWarn:   "warn",
	LogLevelError:  "error",
	LogLevelSilent: "silent",
}

func (level *LogLevel) Set(name string) error {
	name = strings.ToLower(strings.TrimSpace(name))
	for l, n := range logLevelName {
		if n == name {
			*level = l
			return nil
		}
	}
	return fmt.Errorf("unknown log level %q", name)
}

func (level LogLevel) String() string {
	name, ok := logLevelName[level]
	if !ok {
		return fmt.Sprintf("LogLevel(%d)", level)
	}
	return name
}

// Type implements pflag.Value.
func (level *LogLevel) Type() string { return "level" }

// NewLogger creates a text logger writing to w.
func (level LogLevel) NewLogger(w io.Writer) *slog.Logger {
	if level >= LogLevelSilent {
		w = io.Discard
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: slog.Level(level),
	}))
}
