package reload

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Endpoint is the reserved path browsers subscribe to.
const Endpoint = "/_hot_server_sse"

// KeepAlive is how often an idle event stream receives a comment line.
const KeepAlive = 30 * time.Second

// ServeHTTP subscribes the request to change notifications.
//
// A WebSocket upgrade request is answered with JSON messages over the
// socket, every other request with a text/event-stream response. The
// connection stays registered until the client goes away.
func (hub *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if websocket.IsWebSocketUpgrade(r) {
		hub.serveWebsocket(w, r)
		return
	}
	hub.serveEventStream(w, r)
}

func (hub *Hub) serveEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	DisableCache(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)

	listener := newStreamListener()
	hub.Register(listener)
	hub.log.Info("client connected", "client", listener.id, "transport", "sse", "remote", r.RemoteAddr, "clients", hub.Count())

	defer func() {
		listener.close()
		hub.Unregister(listener)
		hub.log.Info("client disconnected", "client", listener.id, "clients", hub.Count())
	}()

	if _, err := w.Write(Message{Type: Connected}.EventStream()); err != nil {
		hub.log.Debug("handshake failed", "client", listener.id, "err", err)
		return
	}
	flusher.Flush()

	keepAlive := time.NewTicker(KeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-listener.done:
			return
		case message := <-listener.in:
			if _, err := w.Write(message.EventStream()); err != nil {
				hub.log.Debug("write failed", "client", listener.id, "err", err)
				return
			}
			flusher.Flush()
		case <-keepAlive.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// streamListener queues messages for a single event-stream response.
type streamListener struct {
	id   string
	in   chan Message
	done chan struct{}

	mu     sync.Mutex
	closed bool
}

func newStreamListener() *streamListener {
	return &streamListener{
		id:   uuid.NewString(),
		in:   make(chan Message, 4),
		done: make(chan struct{}),
	}
}

func (listen *streamListener) ID() string { return listen.id }

func (listen *streamListener) Dispatch(message Message) error {
	listen.mu.Lock()
	defer listen.mu.Unlock()

	if listen.closed {
		return ErrClosed
	}

	select {
	case listen.in <- message:
		return nil
	default:
		listen.internalClose()
		return errSlow
	}
}

func (listen *streamListener) close() {
	listen.mu.Lock()
	defer listen.mu.Unlock()
	listen.internalClose()
}

func (listen *streamListener) internalClose() {
	if listen.closed {
		return
	}
	listen.closed = true
	close(listen.done)
}

// DisableCache ensures that client always re-requests the stream.
func DisableCache(w http.ResponseWriter) {
	w.Header().Set("Expires", time.Unix(0, 0).Format(time.RFC1123))
	w.Header().Set("Cache-Control", "no-cache, private, max-age=0")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("X-Accel-Expires", "0")
}
