package reload

import (
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  0,
	WriteBufferSize: 0,
	// development server on a trusted network, same as the CORS policy
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (hub *Hub) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "err", err)
		return
	}

	listener := newWebsocketListener(hub, conn)
	hub.log.Info("client connected", "client", listener.id, "transport", "websocket", "remote", r.RemoteAddr)

	_ = listener.Dispatch(Message{Type: Connected})
	hub.Register(listener)
	go listener.writer()

	// the reader detects the close, browsers never send anything
	go func() {
		for {
			if _, _, err := conn.NextReader(); err != nil {
				listener.close()
				return
			}
		}
	}()
}

type websocketListener struct {
	id   string
	hub  *Hub
	conn *websocket.Conn
	in   chan Message
	done chan struct{}

	mu     sync.Mutex
	closed bool
}

func newWebsocketListener(hub *Hub, conn *websocket.Conn) *websocketListener {
	return &websocketListener{
		id:   uuid.NewString(),
		hub:  hub,
		conn: conn,
		in:   make(chan Message, 4),
		done: make(chan struct{}),
	}
}

func (listen *websocketListener) ID() string { return listen.id }

func (listen *websocketListener) writer() {
	defer listen.close()

	for {
		select {
		case <-listen.done:
			return
		case m := <-listen.in:
			if err := listen.conn.WriteJSON(m); err != nil {
				listen.hub.log.Debug("write failed", "client", listen.id, "err", err)
				return
			}
		}
	}
}

func (listen *websocketListener) Dispatch(message Message) error {
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

func (listen *websocketListener) close() {
	listen.mu.Lock()
	wasClosed := listen.closed
	listen.internalClose()
	listen.mu.Unlock()

	// Unregister takes the hub lock, never call it while holding listen.mu.
	listen.hub.Unregister(listen)
	if !wasClosed {
		listen.hub.log.Info("client disconnected", "client", listen.id, "clients", listen.hub.Count())
	}
}

func (listen *websocketListener) internalClose() {
	if listen.closed {
		return
	}

	listen.closed = true
	close(listen.done)
	listen.conn.Close()
}
