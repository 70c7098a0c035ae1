// Command hotserver serves a directory over HTTP and reloads the
// connected browsers when a file in it changes.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/loov/hotserver/config"
	"github.com/loov/hotserver/watch"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := newCommand(os.Stdout, os.Stderr, run)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "hotserver:", err)
		stop()
		os.Exit(1)
	}
}

// runFunc serves a validated configuration until ctx is canceled.
type runFunc func(ctx context.Context, cfg *config.Config, log *slog.Logger, stdout io.Writer) error

// settings are the command line flags that are not part of config.Raw.
type settings struct {
	configPath string
	run        string
	ignore     watch.Globs
	level      LogLevel
}

// scalarFlags are the flags copied into config.Raw when given.
var scalarFlags = []string{
	"host", "port", "open", "spa", "https", "cert-dir",
	"debounce", "per-file-debounce", "clear",
}

func newCommand(stdout, stderr io.Writer, serve runFunc) *cobra.Command {
	defaults := config.Default()
	opts := &settings{level: LogLevelInfo}

	cmd := &cobra.Command{
		Use:   "hotserver [root] [-- command args...]",
		Short: "Serve a directory with live reload",
		Long: `hotserver serves the files of a directory and reloads the browsers
viewing them when a file changes. Stylesheet changes are applied
without reloading the page.

Settings are read from hotserver.toml in the working directory, or the
file given with --config, and overridden by flags. A command given after
"--" (or with --run) is executed on every change and the browsers are
reloaded once it succeeds.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := loadRaw(cmd.Flags(), opts, args, cmd.ArgsLenAtDash())
			if err != nil {
				return err
			}

			cfg, err := config.Parse(raw)
			if err != nil {
				return err
			}

			var level LogLevel
			if err := level.Set(cfg.LogLevel); err != nil {
				return &config.Error{Field: "log-level", Value: cfg.LogLevel, Err: err}
			}
			log := level.NewLogger(stderr)

			if cfg.Clear {
				ClearScreen(stdout)
			}
			return serve(cmd.Context(), cfg, log, stdout)
		},
	}

	flags := cmd.Flags()
	flags.SortFlags = false

	flags.String("host", string(defaults.Host), "interface to listen on, all when empty")
	flags.StringP("port", "p", string(defaults.Port), "first port to try, following ports are used when it is taken")
	flags.String("open", string(defaults.Open), "open the browser after start")
	flags.String("spa", string(defaults.SPA), "serve the root index.html for unknown paths")
	flags.String("https", string(defaults.HTTPS), "serve over TLS with a self-signed certificate")
	flags.String("cert-dir", string(defaults.CertDir), "directory of the TLS key pair")
	flags.String("debounce", string(defaults.Debounce), "time to wait for changes to settle")
	flags.String("per-file-debounce", string(defaults.PerFileDebounce), "debounce every changed file separately")
	flags.String("clear", string(defaults.Clear), "clear the terminal before start")
	for _, name := range []string{"open", "spa", "https", "per-file-debounce", "clear"} {
		flags.Lookup(name).NoOptDefVal = "true"
	}

	flags.VarP(&opts.ignore, "ignore", "i", "ignore changes to paths matching these globs, separated by ';'")
	flags.StringVar(&opts.run, "run", "", "command to run on every change, processes separated by ';;'")
	flags.Var(&opts.level, "log-level", "log level: debug, info, warn, error or silent")
	flags.StringVarP(&opts.configPath, "config", "c", "", "configuration file, defaults to ./"+config.FileName)

	return cmd
}

// loadRaw merges the defaults, the configuration file and the flags.
func loadRaw(flags *pflag.FlagSet, opts *settings, args []string, dash int) (config.Raw, error) {
	raw := config.Default()

	if opts.configPath != "" {
		if err := config.LoadFile(opts.configPath, &raw); err != nil {
			return raw, err
		}
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return raw, err
		}
		if _, _, err := config.LoadDefaultFile(wd, &raw); err != nil {
			return raw, err
		}
	}

	for _, name := range scalarFlags {
		if flag := flags.Lookup(name); flag != nil && flag.Changed {
			if err := raw.Set(name, flag.Value.String()); err != nil {
				return raw, err
			}
		}
	}
	if flags.Changed("log-level") {
		raw.LogLevel = config.Value(opts.level.String())
	}
	raw.Ignore = append(raw.Ignore, opts.ignore.Additional...)

	positional, command := args, []string(nil)
	if dash >= 0 {
		positional, command = args[:dash], args[dash:]
	}
	if len(positional) > 1 {
		return raw, &config.Error{Field: "root", Value: strings.Join(positional, " "), Err: errors.New("only one root directory can be served")}
	}
	if len(positional) == 1 {
		raw.Root = config.Value(positional[0])
	}

	switch {
	case len(command) > 0:
		raw.Run = command
	case opts.run != "":
		raw.Run = strings.Fields(opts.run)
	}

	return raw, nil
}
