// Package serve answers static file requests below a root directory.
package serve

import (
	"bytes"
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/loov/hrtime"

	"github.com/loov/hotserver/reload"
	"github.com/loov/hotserver/resolve"
)

// Handler serves files below Root and hands the reload endpoint to Notify.
type Handler struct {
	// Root is the absolute directory being served.
	Root string
	// SPA answers unknown paths with the root index.html.
	SPA bool
	// Notify handles subscriptions on reload.Endpoint.
	Notify http.Handler
	// Script is injected into every HTML document.
	Script string
	Log    *slog.Logger
}

// SetCORS sets the permissive cross-origin headers of every static response.
func SetCORS(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type")
}

func (handler *Handler) log() *slog.Logger {
	if handler.Log == nil {
		return slog.Default()
	}
	return handler.Log
}

func (handler *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == reload.Endpoint && handler.Notify != nil {
		handler.Notify.ServeHTTP(w, r)
		return
	}

	SetCORS(w.Header())

	switch r.Method {
	case http.MethodGet, http.MethodHead:
	case http.MethodOptions:
		w.WriteHeader(http.StatusNoContent)
		return
	default:
		w.Header().Set("Allow", "GET, HEAD, OPTIONS")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}

	start := hrtime.Now()
	outcome := resolve.Resolve(handler.Root, r.URL.EscapedPath(), handler.SPA)

	switch outcome.Kind {
	case resolve.ServeFile, resolve.SPAFallback:
		if outcome.ContentType.IsHTML() {
			handler.serveDocument(w, r, outcome, start)
		} else {
			handler.serveFile(w, r, outcome, start)
		}
	case resolve.ServeDirectoryListing:
		handler.serveListing(w, r, outcome)
	default:
		handler.notFound(w, r, outcome.Err)
	}
}

func (handler *Handler) notFound(w http.ResponseWriter, r *http.Request, cause error) {
	if cause != nil {
		handler.log().Warn("resolve failed", "path", r.URL.Path, "err", cause)
	} else {
		handler.log().Debug("not found", "path", r.URL.Path)
	}
	writeText(w, r, http.StatusNotFound, "File not found: "+r.URL.RequestURI())
}

func (handler *Handler) internalError(w http.ResponseWriter, r *http.Request, rel string, err error) {
	handler.log().Error("serve failed", "path", rel, "err", err)
	writeText(w, r, http.StatusInternalServerError, "Internal Server Error")
}

// serveDocument reads an HTML file and injects the reload script.
func (handler *Handler) serveDocument(w http.ResponseWriter, r *http.Request, outcome resolve.Outcome, start time.Duration) {
	rel := handler.relative(outcome.Path)

	content, err := os.ReadFile(outcome.Path)
	if err != nil {
		handler.internalError(w, r, rel, err)
		return
	}

	handler.logResources(rel, content)
	document := Inject(content, handler.Script)

	w.Header().Set("Content-Type", outcome.ContentType.MIME())
	w.Header().Set("Content-Length", strconv.Itoa(len(document)))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		if _, err := w.Write(document); err != nil {
			handler.log().Debug("write failed", "path", rel, "err", err)
			return
		}
	}

	handler.log().Info("served", "path", rel, "size", FormatBytes(int64(len(content))), "type", outcome.ContentType.MIME(), "kind", outcome.Kind, "injected", true, "took", hrtime.Since(start))
}

// serveFile streams a file as-is.
func (handler *Handler) serveFile(w http.ResponseWriter, r *http.Request, outcome resolve.Outcome, start time.Duration) {
	rel := handler.relative(outcome.Path)

	file, err := os.Open(outcome.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			handler.notFound(w, r, nil)
			return
		}
		handler.internalError(w, r, rel, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		handler.internalError(w, r, rel, err)
		return
	}

	w.Header().Set("Content-Type", outcome.ContentType.MIME())
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size(), 10))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		if _, err := io.Copy(w, file); err != nil {
			handler.log().Debug("stream interrupted", "path", rel, "err", err)
			return
		}
	}

	handler.log().Info("served", "path", rel, "size", FormatBytes(info.Size()), "type", outcome.ContentType.MIME(), "took", hrtime.Since(start))
}

func (handler *Handler) serveListing(w http.ResponseWriter, r *http.Request, outcome resolve.Outcome) {
	rel := handler.relative(outcome.Path)

	listing, err := NewListing(outcome.Path, r.URL.Path)
	if err != nil {
		handler.internalError(w, r, rel, err)
		return
	}

	var buf bytes.Buffer
	if err := listing.Render(&buf); err != nil {
		handler.internalError(w, r, rel, err)
		return
	}

	w.Header().Set("Content-Type", resolve.HTML.MIME())
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		_, _ = buf.WriteTo(w)
	}

	handler.log().Info("directory listing", "path", rel, "entries", len(listing.Entries))
}

func (handler *Handler) logResources(rel string, document []byte) {
	log := handler.log()
	if !log.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	for _, resource := range Resources(document) {
		log.Debug("html resource", "document", rel, "kind", resource.Kind, "ref", resource.Path)
	}
}

func (handler *Handler) relative(p string) string {
	rel, err := filepath.Rel(handler.Root, p)
	if err != nil {
		return p
	}
	return filepath.ToSlash(rel)
}

func writeText(w http.ResponseWriter, r *http.Request, status int, body string) {
	w.Header().Set("Content-Type", resolve.PlainText.MIME())
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		_, _ = io.WriteString(w, body)
	}
}
