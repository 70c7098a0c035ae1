// Package config validates the startup configuration of the server.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// FileName is the configuration file looked up in the working directory.
	FileName = "hotserver.toml"
	// DefaultPort is the first port tried when none is given.
	DefaultPort = 9999
	// DefaultCertDir holds the generated TLS material.
	DefaultCertDir = ".one-server-4-all-certs"
	// DefaultDebounce is the settle window of the watcher.
	DefaultDebounce = 100 * time.Millisecond
)

var (
	ErrNotBool      = errors.New(`expected "true" or "false"`)
	ErrPortRange    = errors.New("port out of range 0-65535")
	ErrNotDirectory = errors.New("not a directory")
	ErrEmpty        = errors.New("must not be empty")
	ErrNotPositive  = errors.New("must be positive")
	ErrUnknownKey   = errors.New("unknown key")
)

// Raw is the unvalidated configuration as given on the command line or
// in the configuration file. Booleans are the strings "true" and "false".
type Raw struct {
	Host            Value    `toml:"host"`
	Port            Value    `toml:"port"`
	Root            Value    `toml:"root"`
	Open            Value    `toml:"open"`
	SPA             Value    `toml:"spa"`
	HTTPS           Value    `toml:"https"`
	CertDir         Value    `toml:"cert-dir"`
	Ignore          []string `toml:"ignore"`
	Debounce        Value    `toml:"debounce"`
	PerFileDebounce Value    `toml:"per-file-debounce"`
	Run             []string `toml:"run"`
	LogLevel        Value    `toml:"log-level"`
	Clear           Value    `toml:"clear"`
}

// Default returns the configuration used when nothing is specified.
func Default() Raw {
	return Raw{
		Host:            "",
		Port:            Value(strconv.Itoa(DefaultPort)),
		Root:            ".",
		Open:            "true",
		SPA:             "false",
		HTTPS:           "false",
		CertDir:         DefaultCertDir,
		Debounce:        Value(DefaultDebounce.String()),
		PerFileDebounce: "false",
		LogLevel:        "info",
		Clear:           "false",
	}
}

// Set assigns the scalar value named by its configuration key.
func (raw *Raw) Set(key, value string) error {
	field := raw.field(key)
	if field == nil {
		return &Error{Field: key, Value: value, Err: ErrUnknownKey}
	}
	*field = Value(value)
	return nil
}

func (raw *Raw) field(key string) *Value {
	switch key {
	case "host":
		return &raw.Host
	case "port":
		return &raw.Port
	case "root":
		return &raw.Root
	case "open":
		return &raw.Open
	case "spa":
		return &raw.SPA
	case "https":
		return &raw.HTTPS
	case "cert-dir":
		return &raw.CertDir
	case "debounce":
		return &raw.Debounce
	case "per-file-debounce":
		return &raw.PerFileDebounce
	case "log-level":
		return &raw.LogLevel
	case "clear":
		return &raw.Clear
	}
	return nil
}

// Config is the validated configuration.
//
// It is not modified after startup, except Port which is updated once
// the listener has bound.
type Config struct {
	Host string
	Port int
	// Root is the absolute directory being served and watched.
	Root  string
	Open  bool
	SPA   bool
	HTTPS bool
	// CertDir is the absolute directory of the TLS key pair.
	CertDir         string
	Ignore          []string
	Debounce        time.Duration
	PerFileDebounce bool
	// Run is the command executed on every change, if any.
	Run      []string
	LogLevel string
	Clear    bool
}

// Addr returns the address to listen on.
func (cfg *Config) Addr() string {
	return net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))
}

// Scheme returns "https" or "http".
func (cfg *Config) Scheme() string {
	if cfg.HTTPS {
		return "https"
	}
	return "http"
}

// LocalURL returns the address operators should open in a browser.
func (cfg *Config) LocalURL() string {
	host := cfg.Host
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return cfg.Scheme() + "://" + net.JoinHostPort(host, strconv.Itoa(cfg.Port)) + "/"
}

// Error is a configuration value that failed validation.
type Error struct {
	Field string
	Value string
	Err   error
}

func (err *Error) Error() string {
	return fmt.Sprintf("invalid %s %q: %v", err.Field, err.Value, err.Err)
}

func (err *Error) Unwrap() error { return err.Err }

// Parse validates raw and resolves the paths relative to the working directory.
func Parse(raw Raw) (*Config, error) {
	var errs []error
	check := func(field string, value Value, err error) {
		if err != nil {
			errs = append(errs, &Error{Field: field, Value: string(value), Err: err})
		}
	}

	cfg := &Config{
		Host:     strings.TrimSpace(string(raw.Host)),
		Ignore:   append([]string{}, raw.Ignore...),
		Run:      append([]string{}, raw.Run...),
		LogLevel: strings.ToLower(strings.TrimSpace(string(raw.LogLevel))),
	}

	var err error

	cfg.Port, err = parsePort(raw.Port)
	check("port", raw.Port, err)

	cfg.Root, err = parseRoot(raw.Root)
	check("root", raw.Root, err)

	cfg.Open, err = parseBool(raw.Open)
	check("open", raw.Open, err)
	cfg.SPA, err = parseBool(raw.SPA)
	check("spa", raw.SPA, err)
	cfg.HTTPS, err = parseBool(raw.HTTPS)
	check("https", raw.HTTPS, err)
	cfg.PerFileDebounce, err = parseBool(raw.PerFileDebounce)
	check("per-file-debounce", raw.PerFileDebounce, err)
	cfg.Clear, err = parseBool(raw.Clear)
	check("clear", raw.Clear, err)

	cfg.CertDir, err = parsePath(raw.CertDir)
	check("cert-dir", raw.CertDir, err)

	cfg.Debounce, err = parseDuration(raw.Debounce)
	check("debounce", raw.Debounce, err)

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func parsePort(value Value) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(string(value)))
	if err != nil {
		return 0, err
	}
	if port < 0 || port > 65535 {
		return 0, ErrPortRange
	}
	return port, nil
}

func parseBool(value Value) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(string(value))) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, ErrNotBool
}

func parsePath(value Value) (string, error) {
	p := strings.TrimSpace(string(value))
	if p == "" {
		return "", ErrEmpty
	}
	return filepath.Abs(p)
}

// parseRoot allows a missing root; the watcher reports it at start.
func parseRoot(value Value) (string, error) {
	root, err := parsePath(value)
	if err != nil {
		return "", err
	}
	info, err := os.Stat(root)
	if err == nil && !info.IsDir() {
		return "", ErrNotDirectory
	}
	return root, nil
}

func parseDuration(value Value) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(string(value)))
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, ErrNotPositive
	}
	return d, nil
}
