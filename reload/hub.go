package reload

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/loov/hotserver/watch"
)

// ErrClosed is returned by Dispatch after the listener has disconnected.
var ErrClosed = errors.New("listener closed")

var errSlow = errors.New("listener buffer full")

// Listener is a connection that cares about the changes.
type Listener interface {
	// ID identifies the listener in logs.
	ID() string
	// Dispatch queues a message. It must not block.
	// A non-nil error removes the listener from the hub.
	Dispatch(Message) error
}

// Hub dispatches Message to multiple listeners.
type Hub struct {
	log     *slog.Logger
	metrics *Metrics

	mu    sync.RWMutex
	conns map[Listener]struct{}
}

// NewHub creates a new Hub. Nil metrics are replaced by unregistered ones.
func NewHub(log *slog.Logger, metrics *Metrics) *Hub {
	if log == nil {
		log = slog.Default()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Hub{
		log:     log,
		metrics: metrics,
		conns:   map[Listener]struct{}{},
	}
}

// Register adds connections to hub.
func (hub *Hub) Register(conn Listener) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	if _, ok := hub.conns[conn]; ok {
		return
	}
	hub.conns[conn] = struct{}{}
	hub.metrics.Clients.Set(float64(len(hub.conns)))
}

// Unregister removes connection from hub.
func (hub *Hub) Unregister(conn Listener) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	if _, ok := hub.conns[conn]; !ok {
		return
	}
	delete(hub.conns, conn)
	hub.metrics.Clients.Set(float64(len(hub.conns)))
}

// Count returns the number of registered listeners.
func (hub *Hub) Count() int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.conns)
}

// Broadcast dispatches message to all registered connections and returns
// how many accepted it. Listeners that fail are unregistered.
func (hub *Hub) Broadcast(message Message) int {
	hub.mu.RLock()
	conns := make([]Listener, 0, len(hub.conns))
	for conn := range hub.conns {
		conns = append(conns, conn)
	}
	hub.mu.RUnlock()

	delivered := 0
	for _, conn := range conns {
		if err := conn.Dispatch(message); err != nil {
			if errors.Is(err, ErrClosed) {
				hub.log.Debug("client gone", "client", conn.ID())
			} else {
				hub.log.Debug("dropping client", "client", conn.ID(), "err", err)
				hub.metrics.Dropped.Inc()
			}
			hub.Unregister(conn)
			continue
		}
		delivered++
	}

	hub.metrics.Broadcasts.WithLabelValues(string(message.Type)).Inc()
	return delivered
}

// OnChange notifies listeners about a changed file. Stylesheets are sent
// as a style message, everything else requests a full reload.
func (hub *Hub) OnChange(path string) {
	message := MessageFor(path)
	clients := hub.Count()
	if clients == 0 {
		hub.log.Debug("no clients to notify", "path", path)
		return
	}

	delivered := hub.Broadcast(message)
	hub.log.Info("notified clients", "type", message.Type, "path", path, "clients", delivered)
}

// Run forwards changes from events to OnChange until ctx is done.
func (hub *Hub) Run(ctx context.Context, events <-chan watch.Event) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case event := <-events:
			hub.OnChange(event.Path)
		}
	}
}
