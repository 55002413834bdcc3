package sse

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/AmareGatie/phase4/logger"
)

// KeepAliveInterval is the gap between keep-alive comments; it must stay
// below proxy idle timeouts.
var KeepAliveInterval = 25 * time.Second

// ConnectedEvent is the payload of the first frame.
type ConnectedEvent struct {
	ClientID string `json:"client_id"`
	UserID   string `json:"user_id,omitempty"`
}

// ServeSSE streams frames to one client until the request context ends or
// the hub closes the client.
func ServeSSE(hub *Hub, w http.ResponseWriter, r *http.Request, clientID string, opts ...ClientOption) {
	log := logger.Get("sse").WithContext(r.Context()).WithFields(map[string]interface{}{"client_id": clientID})

	flusher, ok := w.(http.Flusher)
	if !ok {
		log.Error("Streaming not supported")
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	// Streams outlive the server's WriteTimeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		log.Debug("Could not clear write deadline", map[string]interface{}{"error": err.Error()})
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	client := NewClient(clientID, opts...)
	hub.Register(client)
	defer hub.Unregister(client)

	connected, _ := json.Marshal(ConnectedEvent{ClientID: clientID, UserID: client.UserID()})
	_, _ = Frame{Event: EventConnected, Data: connected}.WriteTo(w)
	if client.snapshot != nil {
		f, err := client.snapshot()
		if err != nil {
			log.Warn("Snapshot failed", map[string]interface{}{"error": err.Error()})
			return
		}
		_, _ = f.WriteTo(w)
	}
	flusher.Flush()
	log.Debug("Client connected", map[string]interface{}{"remote_addr": r.RemoteAddr})

	keepAlive := time.NewTicker(KeepAliveInterval)
	defer keepAlive.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			log.Debug("Client disconnected", map[string]interface{}{"reason": ctx.Err().Error()})
			return

		case f, ok := <-client.Frames():
			if !ok {
				return
			}
			if _, err := f.WriteTo(w); err != nil {
				log.Debug("Write failed", map[string]interface{}{"error": err.Error()})
				return
			}
			flusher.Flush()

		case <-keepAlive.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()
			if client.onPing != nil {
				client.onPing()
			}
		}
	}
}
