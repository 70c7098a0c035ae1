// Package listen binds the server socket and helps operators reach it.
package listen

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"strconv"

	"github.com/loov/hotserver/config"
)

// MaxPort is the last port tried when the configured one is in use.
const MaxPort = 65535

// BindError is a failure to bind that is not recovered by trying the
// next port.
type BindError struct {
	Addr string
	Port int
	Err  error
}

func (err *BindError) Error() string {
	return fmt.Sprintf("listen on %s: %v", err.Addr, err.Err)
}

func (err *BindError) Unwrap() error { return err.Err }

// Listen binds cfg.Host:cfg.Port. When the port is already in use the
// following ports are tried in order. The port that was bound is written
// back into cfg.Port. With a non-nil tlsConfig the listener serves TLS.
func Listen(ctx context.Context, cfg *config.Config, tlsConfig *tls.Config, log *slog.Logger) (net.Listener, error) {
	if log == nil {
		log = slog.Default()
	}

	var lc net.ListenConfig
	port := cfg.Port
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		addr := net.JoinHostPort(cfg.Host, strconv.Itoa(port))
		ln, err := lc.Listen(ctx, "tcp", addr)
		if err == nil {
			if tcp, ok := ln.Addr().(*net.TCPAddr); ok {
				port = tcp.Port
			}
			cfg.Port = port
			if tlsConfig != nil {
				ln = tls.NewListener(ln, tlsConfig)
			}
			return ln, nil
		}

		if !addrInUse(err) || port >= MaxPort {
			return nil, &BindError{Addr: addr, Port: port, Err: err}
		}

		log.Warn("port is in use, trying another one", "port", port, "next", port+1)
		port++
	}
}
