package gateway

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/freightline/comms/internal/session"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeTimeout = 10 * time.Second
	pingInterval = 25 * time.Second
	sendBuffer   = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Origin checks belong to the fronting proxy; the gateway itself
	// trusts whatever the proxy lets through.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Envelope is the frame written to client sockets: a destination tag plus
// the event payload.
type Envelope struct {
	Destination string          `json:"destination"`
	Data        json.RawMessage `json:"data"`
}

// client is one live socket. Writes go through the send channel so a slow
// reader never blocks a push; when the buffer is full the frame is dropped.
type client struct {
	userID string
	connID string
	conn   *websocket.Conn
	send   chan []byte
	once   sync.Once
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.send)
		c.conn.Close()
	})
}

// Hub owns the live sockets and doubles as the notify.Pusher: a push
// marshals to an Envelope and fans out to every live socket of the user. It
// also feeds connect/disconnect events into the session registry.
type Hub struct {
	sessions *session.Registry

	mu      sync.RWMutex
	clients map[string]map[*client]struct{} // userID -> live sockets
}

// NewHub creates a Hub feeding the given session registry.
func NewHub(sessions *session.Registry) *Hub {
	return &Hub{
		sessions: sessions,
		clients:  make(map[string]map[*client]struct{}),
	}
}

// HandleWS upgrades the request to a WebSocket and keeps it registered until
// the client disconnects. The user and device class come from query
// parameters set by the fronting proxy (auth is not this service's job).
func (h *Hub) HandleWS(c *gin.Context) {
	userID := c.Query("user")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "user is required"})
		return
	}
	device := c.Query("device")
	if device == "" {
		device = session.DeviceClassAll
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		return
	}

	cl := &client{
		userID: userID,
		connID: uuid.NewString(),
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
	}

	h.mu.Lock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*client]struct{})
	}
	h.clients[userID][cl] = struct{}{}
	h.mu.Unlock()

	h.sessions.Register(userID, cl.connID, device)
	log.Printf("gateway: %s connected [conn=%s device=%s]", userID, cl.connID, device)

	go cl.writeLoop()
	cl.readLoop() // blocks until the socket closes

	h.remove(cl)
}

// remove drops a client from the hub and unregisters its connection. The
// user ID is deliberately not passed to Unregister: resolving it from the
// reverse index is the normal path for transport-level disconnects.
func (h *Hub) remove(cl *client) {
	h.mu.Lock()
	if set, ok := h.clients[cl.userID]; ok {
		delete(set, cl)
		if len(set) == 0 {
			delete(h.clients, cl.userID)
		}
	}
	h.mu.Unlock()

	h.sessions.Unregister("", cl.connID)
	cl.close()
	log.Printf("gateway: %s disconnected [conn=%s]", cl.userID, cl.connID)
}

// Push implements notify.Pusher. Frames for users with no live sockets are
// dropped here as a last resort; the dispatcher normally filters those out
// via the session registry first.
func (h *Hub) Push(userID, destination string, payload []byte) error {
	frame, err := json.Marshal(Envelope{Destination: destination, Data: payload})
	if err != nil {
		return fmt.Errorf("gateway: marshal frame: %w", err)
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for cl := range h.clients[userID] {
		select {
		case cl.send <- frame:
		default:
			log.Printf("gateway: drop frame for %s, send buffer full [conn=%s]", userID, cl.connID)
		}
	}
	return nil
}

func (c *client) writeLoop() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case frame, ok := <-c.send:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop drains the socket so control frames are processed. Clients are
// push-only; inbound data frames are discarded.
func (c *client) readLoop() {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
