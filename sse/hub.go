package sse

import (
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/AmareGatie/phase4/logger"
)

// clientBuffer is the per-client backlog before frames are dropped.
const clientBuffer = 64

// Client is one open event stream.
type Client struct {
	id       string
	metadata map[string]string
	frames   chan Frame
	snapshot func() (Frame, error)
	onPing   func()
	once     sync.Once
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithMetadata adds a metadata key-value pair to the client.
func WithMetadata(key, value string) ClientOption {
	return func(c *Client) {
		c.metadata[key] = value
	}
}

// WithUserID sets the user id metadata.
func WithUserID(userID string) ClientOption {
	return WithMetadata("user_id", userID)
}

// WithSnapshot sets a function ServeSSE calls once the client is registered.
// Its frame is written right after the connected frame, so no commit can fall
// between the snapshot and the first change the client receives. Changes
// queued before the snapshot was taken may repeat it; clients drop them by
// version.
func WithSnapshot(fn func() (Frame, error)) ClientOption {
	return func(c *Client) {
		c.snapshot = fn
	}
}

// WithKeepAlive sets a function ServeSSE calls after every keep-alive comment
// it writes.
func WithKeepAlive(fn func()) ClientOption {
	return func(c *Client) {
		c.onPing = fn
	}
}

// NewClient creates a client with optional metadata.
func NewClient(id string, opts ...ClientOption) *Client {
	c := &Client{
		id:       id,
		metadata: make(map[string]string),
		frames:   make(chan Frame, clientBuffer),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ID returns the client's identifier.
func (c *Client) ID() string { return c.id }

// Metadata returns all client metadata.
func (c *Client) Metadata() map[string]string { return c.metadata }

// UserID returns the user id metadata.
func (c *Client) UserID() string { return c.metadata["user_id"] }

// Frames returns the channel the stream handler drains.
func (c *Client) Frames() <-chan Frame { return c.frames }

// Send queues f without blocking. It reports false when the client is too
// slow and the frame was dropped.
func (c *Client) Send(f Frame) bool {
	select {
	case c.frames <- f:
		return true
	default:
		return false
	}
}

// Close ends the stream. Safe to call more than once.
func (c *Client) Close() {
	c.once.Do(func() { close(c.frames) })
}

// ClientID returns a fresh stream id for a user: "<userID>:<uuid>".
func ClientID(userID string) string {
	return userID + ":" + uuid.NewString()
}

// UserPattern matches every stream ClientID created for userID. Glob
// metacharacters in the id are escaped.
func UserPattern(userID string) string {
	var b strings.Builder
	for _, r := range userID {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteString(":*")
	return b.String()
}

type message struct {
	pattern string
	frame   Frame
}

// Hub routes frames to clients. All client bookkeeping happens on the Run
// goroutine; the mutex only guards reads from other goroutines.
type Hub struct {
	clients    map[string]*Client
	register   chan *Client
	unregister chan *Client
	broadcast  chan message
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
	log        *logger.Logger
}

var _ Broadcaster = (*Hub)(nil)

// NewHub creates a hub. Call Run to start routing.
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan message, 256),
		done:       make(chan struct{}),
		log:        logger.Get("sse"),
	}
}

// Run is the hub's event loop. It returns after Stop.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.closeAllClients()
			return

		case c := <-h.register:
			h.mu.Lock()
			if old, ok := h.clients[c.id]; ok {
				old.Close()
			}
			h.clients[c.id] = c
			n := len(h.clients)
			h.mu.Unlock()
			h.log.Debug("Client registered", map[string]interface{}{"client_id": c.id, "total_clients": n})

		case c := <-h.unregister:
			h.mu.Lock()
			if cur, ok := h.clients[c.id]; ok && cur == c {
				delete(h.clients, c.id)
			}
			n := len(h.clients)
			h.mu.Unlock()
			c.Close()
			h.log.Debug("Client unregistered", map[string]interface{}{"client_id": c.id, "total_clients": n})

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// Stop shuts the hub down and closes every client. Safe to call twice.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Register adds a client. After Stop the client is closed immediately.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.Close()
	}
}

// Unregister removes and closes a client.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Broadcast queues f for every client whose id matches pattern
// (filepath.Match syntax, e.g. "42:*").
func (h *Hub) Broadcast(pattern string, f Frame) {
	select {
	case h.broadcast <- message{pattern: pattern, frame: f}:
	case <-h.done:
	}
}

func (h *Hub) deliver(msg message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	matched, dropped := 0, 0
	for id, c := range h.clients {
		ok, err := filepath.Match(msg.pattern, id)
		if err != nil {
			h.log.Error("Bad broadcast pattern", map[string]interface{}{"pattern": msg.pattern, "error": err.Error()})
			return
		}
		if !ok {
			continue
		}
		matched++
		if !c.Send(msg.frame) {
			dropped++
		}
	}
	if dropped > 0 {
		h.log.Warn("Slow clients dropped a frame", map[string]interface{}{"pattern": msg.pattern, "dropped": dropped})
	}
	if matched == 0 {
		h.log.Debug("No clients matched pattern", map[string]interface{}{"pattern": msg.pattern})
	}
}

func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		c.Close()
		delete(h.clients, id)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
