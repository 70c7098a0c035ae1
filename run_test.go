package main

import (
	"bufio"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loov/hotserver/config"
	"github.com/loov/hotserver/reload"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf strings.Builder
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

var localURL = regexp.MustCompile(`Local:\s+(http://\S+/)`)

func TestRunServesAndReloads(t *testing.T) {
	t.Setenv("NO_COLOR", "1")

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "index.html"), []byte("<html><body>home</body></html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "site.css"), []byte("body{}"), 0o644))

	cfg := &config.Config{
		Host:     "127.0.0.1",
		Root:     root,
		Debounce: 50 * time.Millisecond,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stdout syncBuffer
	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, LogLevelSilent.NewLogger(io.Discard), &stdout) }()

	var base string
	require.Eventually(t, func() bool {
		match := localURL.FindStringSubmatch(stdout.String())
		if match == nil {
			return false
		}
		base = strings.TrimSuffix(match[1], "/")
		return true
	}, 5*time.Second, 10*time.Millisecond)

	resp, err := http.Get(base + "/")
	require.NoError(t, err)
	page, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(page), "home")
	assert.Contains(t, string(page), reload.Endpoint)

	resp, err = http.Get(base + reload.MetricsEndpoint)
	require.NoError(t, err)
	metrics, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "hotserver_reload_connected_clients")

	preflight, err := http.NewRequest(http.MethodOptions, base+"/site.css", nil)
	require.NoError(t, err)
	preflight.Header.Set("Origin", "http://example.test")
	preflight.Header.Set("Access-Control-Request-Method", http.MethodGet)
	resp, err = http.DefaultClient.Do(preflight)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))

	stream, err := http.Get(base + reload.Endpoint)
	require.NoError(t, err)
	defer stream.Body.Close()

	events := bufio.NewReader(stream.Body)
	line, err := events.ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, "data: connected\n", line)

	// give the watcher a moment before touching the file
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(root, "site.css"), []byte("body{color:red}"), 0o644))

	received := make(chan string, 1)
	go func() {
		for {
			line, err := events.ReadString('\n')
			if err != nil {
				return
			}
			if payload, ok := strings.CutPrefix(strings.TrimSpace(line), "data: "); ok {
				received <- payload
				return
			}
		}
	}()

	select {
	case payload := <-received:
		assert.Equal(t, `{"type":"style","file":"site.css"}`, payload)
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification")
	}

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("server did not stop")
	}
}
