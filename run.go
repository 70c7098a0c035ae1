package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/loov/hrtime"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/loov/hotserver/certs"
	"github.com/loov/hotserver/config"
	"github.com/loov/hotserver/listen"
	"github.com/loov/hotserver/pipeline"
	"github.com/loov/hotserver/reload"
	"github.com/loov/hotserver/serve"
	"github.com/loov/hotserver/watch"
)

// ShutdownTimeout bounds how long in-flight requests may take after a
// termination signal.
const ShutdownTimeout = 5 * time.Second

// run serves cfg.Root until ctx is canceled.
func run(ctx context.Context, cfg *config.Config, log *slog.Logger, stdout io.Writer) error {
	start := hrtime.Now()

	var tlsConfig *tls.Config
	if cfg.HTTPS {
		material, generated, err := certs.Ensure(cfg.CertDir)
		if err != nil {
			return fmt.Errorf("tls material in %s: %w", cfg.CertDir, err)
		}
		if generated {
			log.Warn("generated a self-signed certificate for local development", "dir", cfg.CertDir)
		}
		tlsConfig, err = material.TLSConfig()
		if err != nil {
			return err
		}
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	hub := reload.NewHub(log.With("component", "reload"), reload.NewMetrics(registry))

	watcher := watch.New(watch.Config{
		Root:     cfg.Root,
		Debounce: cfg.Debounce,
		PerFile:  cfg.PerFileDebounce,
		Ignore:   (&watch.Globs{Additional: cfg.Ignore}).Filter(),
		Log:      log.With("component", "watch"),
	})

	ln, err := listen.Listen(ctx, cfg, tlsConfig, log)
	if err != nil {
		return err
	}

	server := &http.Server{
		Handler:           newHandler(cfg, hub, registry, log),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          slog.NewLogLogger(log.Handler(), slog.LevelDebug),
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	if err := watcher.Start(); err != nil {
		log.Error("live reload disabled", "root", cfg.Root, "err", err)
	}
	defer watcher.Stop()

	forward := &relay{
		hub:    hub,
		events: watcher.Events(),
		log:    log.With("component", "run"),
		dir:    cfg.Root,
		procs:  pipeline.ParseArgs(cfg.Run),
		output: stdout,
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := server.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdown)
	})
	group.Go(func() error {
		return forward.Run(ctx)
	})

	_, noColor := os.LookupEnv("NO_COLOR")
	printBanner(stdout, !noColor, hrtime.Since(start), cfg.LocalURL(), listen.NetworkURLs(cfg.Scheme(), cfg.Port))
	log.Info("serving", "root", cfg.Root, "addr", ln.Addr().String(), "recursive", watcher.Recursive(), "spa", cfg.SPA)

	if cfg.Open {
		if err := listen.OpenBrowser(cfg.LocalURL()); err != nil {
			log.Warn("could not open browser", "url", cfg.LocalURL(), "err", err)
		}
	}

	err = group.Wait()
	log.Info("stopped")
	return err
}

// newHandler routes the metrics endpoint and everything else to the
// static file handler, with CORS preflight answered in front of both.
func newHandler(cfg *config.Config, hub *reload.Hub, registry *prometheus.Registry, log *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	mux.Handle(reload.MetricsEndpoint, reload.MetricsHandler(registry))
	mux.Handle("/", &serve.Handler{
		Root:   cfg.Root,
		SPA:    cfg.SPA,
		Notify: hub,
		Script: reload.Script(reload.Endpoint),
		Log:    log.With("component", "serve"),
	})

	return cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodHead, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(mux)
}
