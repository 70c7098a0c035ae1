package reload_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loov/hotserver/reload"
	"github.com/loov/hotserver/watch"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeListener struct {
	id string

	mu       sync.Mutex
	fail     bool
	closed   bool
	messages []reload.Message
}

func (fake *fakeListener) ID() string { return fake.id }

func (fake *fakeListener) Dispatch(message reload.Message) error {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	if fake.closed {
		return reload.ErrClosed
	}
	if fake.fail {
		return errors.New("connection reset")
	}
	fake.messages = append(fake.messages, message)
	return nil
}

func (fake *fakeListener) received() []reload.Message {
	fake.mu.Lock()
	defer fake.mu.Unlock()
	return append([]reload.Message{}, fake.messages...)
}

func TestHubStyleChange(t *testing.T) {
	hub := reload.NewHub(discard, nil)
	a, b := &fakeListener{id: "a"}, &fakeListener{id: "b"}
	hub.Register(a)
	hub.Register(b)

	hub.OnChange("style.css")

	expected := []reload.Message{{Type: reload.Style, File: "style.css"}}
	assert.Equal(t, expected, a.received())
	assert.Equal(t, expected, b.received())
}

func TestHubReloadChange(t *testing.T) {
	hub := reload.NewHub(discard, nil)
	a, b := &fakeListener{id: "a"}, &fakeListener{id: "b"}
	hub.Register(a)
	hub.Register(b)

	hub.OnChange("app.js")
	hub.OnChange("index.html")
	hub.OnChange("Makefile")

	expected := []reload.Message{{Type: reload.Reload}, {Type: reload.Reload}, {Type: reload.Reload}}
	assert.Equal(t, expected, a.received())
	assert.Equal(t, expected, b.received())
}

func TestHubDropsFailingListener(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := reload.NewMetrics(reg)
	hub := reload.NewHub(discard, metrics)

	a, broken, c := &fakeListener{id: "a"}, &fakeListener{id: "broken", fail: true}, &fakeListener{id: "c"}
	hub.Register(a)
	hub.Register(broken)
	hub.Register(c)
	require.Equal(t, 3, hub.Count())
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.Clients))

	delivered := hub.Broadcast(reload.Message{Type: reload.Reload})
	assert.Equal(t, 2, delivered)
	assert.Equal(t, 2, hub.Count())
	assert.Len(t, a.received(), 1)
	assert.Len(t, c.received(), 1)

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Clients))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Dropped))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Broadcasts.WithLabelValues("reload")))

	// the dropped listener is not retried
	hub.OnChange("a.css")
	assert.Len(t, a.received(), 2)
	assert.Empty(t, broken.received())
}

func TestHubClosedListenerIsNotDropped(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := reload.NewMetrics(reg)
	hub := reload.NewHub(discard, metrics)

	a, gone := &fakeListener{id: "a"}, &fakeListener{id: "gone", closed: true}
	hub.Register(a)
	hub.Register(gone)

	delivered := hub.Broadcast(reload.Message{Type: reload.Reload})
	assert.Equal(t, 1, delivered)
	assert.Equal(t, 1, hub.Count())
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.Clients))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.Dropped))
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := reload.NewHub(discard, nil)
	a := &fakeListener{id: "a"}

	hub.Register(a)
	hub.Register(a)
	assert.Equal(t, 1, hub.Count())

	hub.Unregister(a)
	hub.Unregister(a)
	hub.Unregister(&fakeListener{id: "unknown"})
	assert.Equal(t, 0, hub.Count())

	hub.OnChange("app.js")
	assert.Empty(t, a.received())
}

func TestHubRun(t *testing.T) {
	hub := reload.NewHub(discard, nil)
	a := &fakeListener{id: "a"}
	hub.Register(a)

	events := make(chan watch.Event)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.Run(ctx, events) }()

	events <- watch.Event{Path: "css/site.css"}
	events <- watch.Event{Path: "app.js"}

	require.Eventually(t, func() bool { return len(a.received()) == 2 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, []reload.Message{
		{Type: reload.Style, File: "css/site.css"},
		{Type: reload.Reload},
	}, a.received())

	cancel()
	assert.NoError(t, <-done)
}
