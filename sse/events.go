package sse

import (
	"bytes"
	"fmt"
	"io"
)

// Event names written on the "event:" line.
const (
	// EventConnected is the first frame of every stream.
	EventConnected = "connected"
	// EventSnapshot carries the full scope state when a stream opens.
	EventSnapshot = "snapshot"
	// EventChange carries one committed capability change.
	EventChange = "change"
	// EventReset tells clients their scope was released.
	EventReset = "reset"
)

// Frame is one SSE message.
type Frame struct {
	ID    string
	Event string
	Data  []byte
}

// WriteTo writes the frame in wire format. Multi-line data is split across
// several "data:" lines.
func (f Frame) WriteTo(w io.Writer) (int64, error) {
	var buf bytes.Buffer
	if f.ID != "" {
		fmt.Fprintf(&buf, "id: %s\n", f.ID)
	}
	if f.Event != "" {
		fmt.Fprintf(&buf, "event: %s\n", f.Event)
	}
	for line := range bytes.SplitSeq(f.Data, []byte("\n")) {
		fmt.Fprintf(&buf, "data: %s\n", line)
	}
	buf.WriteByte('\n')
	return buf.WriteTo(w)
}

// Broadcaster sends frames to the clients matching a glob pattern. Producers
// depend on it rather than on Hub.
type Broadcaster interface {
	Broadcast(pattern string, f Frame)
}
