package sse

import (
	"bufio"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func recv(t *testing.T, c *Client) Frame {
	t.Helper()
	select {
	case f, ok := <-c.Frames():
		if !ok {
			t.Fatalf("client %s closed", c.ID())
		}
		return f
	case <-time.After(time.Second):
		t.Fatalf("client %s received nothing", c.ID())
		return Frame{}
	}
}

func noFrame(t *testing.T, c *Client) {
	t.Helper()
	select {
	case f := <-c.Frames():
		t.Fatalf("client %s got unexpected frame %+v", c.ID(), f)
	case <-time.After(30 * time.Millisecond):
	}
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for h.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("want %d clients, have %d", n, h.ClientCount())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestClientSendAndClose(t *testing.T) {
	c := NewClient("42:a", WithUserID("42"))
	if c.ID() != "42:a" || c.UserID() != "42" {
		t.Fatalf("client = %s/%s", c.ID(), c.UserID())
	}
	if !c.Send(Frame{Event: EventChange}) {
		t.Fatal("send failed on empty buffer")
	}
	if f := recv(t, c); f.Event != EventChange {
		t.Errorf("event = %q", f.Event)
	}

	c.Close()
	c.Close()
	if _, open := <-c.Frames(); open {
		t.Error("frames channel still open")
	}
}

func TestClientDropsWhenFull(t *testing.T) {
	c := NewClient("42:a")
	for range clientBuffer {
		c.Send(Frame{})
	}
	if c.Send(Frame{}) {
		t.Error("send succeeded on a full buffer")
	}
}

func TestClientIDAndUserPattern(t *testing.T) {
	id := ClientID("42")
	if !strings.HasPrefix(id, "42:") || len(id) != len("42:")+36 {
		t.Errorf("ClientID = %q", id)
	}
	if ClientID("42") == id {
		t.Error("ClientID repeated")
	}

	tests := []struct {
		user, client string
		match        bool
	}{
		{"42", id, true},
		{"42", "420:x", false},
		{"4", "42:x", false},
		{"a*", "a*:x", true},
		{"a*", "abc:x", false},
		{"a?", "ab:x", false},
		{"[a]", "[a]:x", true},
		{"[a]", "a:x", false},
	}
	for _, tt := range tests {
		ok, err := filepath.Match(UserPattern(tt.user), tt.client)
		if err != nil || ok != tt.match {
			t.Errorf("UserPattern(%q) vs %q = %v, %v", tt.user, tt.client, ok, err)
		}
	}
}

func TestFrameWireFormat(t *testing.T) {
	tests := []struct {
		name  string
		frame Frame
		want  string
	}{
		{"full", Frame{ID: "3", Event: "change", Data: []byte(`{"a":1}`)}, "id: 3\nevent: change\ndata: {\"a\":1}\n\n"},
		{"data only", Frame{Data: []byte("x")}, "data: x\n\n"},
		{"multiline", Frame{Event: "e", Data: []byte("a\nb")}, "event: e\ndata: a\ndata: b\n\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if _, err := tt.frame.WriteTo(&buf); err != nil {
				t.Fatal(err)
			}
			if buf.String() != tt.want {
				t.Errorf("got %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestHubRegisterUnregister(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	c := NewClient("42:a")
	hub.Register(c)
	waitClients(t, hub, 1)

	hub.Unregister(c)
	waitClients(t, hub, 0)
	if _, open := <-c.Frames(); open {
		t.Error("unregistered client not closed")
	}
}

func TestHubReplacesClientWithSameID(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	old := NewClient("42:a")
	hub.Register(old)
	hub.Register(NewClient("42:a"))
	waitClients(t, hub, 1)

	if _, open := <-old.Frames(); open {
		t.Error("replaced client not closed")
	}
}

func TestHubDeliversOnlyToMatchingClients(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	tab1 := NewClient("42:tab1")
	tab2 := NewClient("42:tab2")
	other := NewClient("7:tab1")
	for _, c := range []*Client{tab1, tab2, other} {
		hub.Register(c)
	}
	waitClients(t, hub, 3)

	hub.Broadcast("42:*", Frame{ID: "1", Event: EventChange, Data: []byte("cart")})

	for _, c := range []*Client{tab1, tab2} {
		if f := recv(t, c); string(f.Data) != "cart" || f.ID != "1" {
			t.Errorf("%s got %+v", c.ID(), f)
		}
	}
	noFrame(t, other)
}

func TestHubExactPattern(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	a := NewClient("42:a")
	b := NewClient("42:b")
	hub.Register(a)
	hub.Register(b)
	waitClients(t, hub, 2)

	hub.Broadcast("42:a", Frame{Event: EventReset})
	recv(t, a)
	noFrame(t, b)
}

func TestHubBadPatternDeliversNothing(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	c := NewClient("42:a")
	hub.Register(c)
	waitClients(t, hub, 1)

	hub.Broadcast("[", Frame{})
	noFrame(t, c)
}

func TestHubStopClosesClientsAndNeverBlocks(t *testing.T) {
	hub := NewHub()
	done := make(chan struct{})
	go func() {
		hub.Run()
		close(done)
	}()

	c := NewClient("42:a")
	hub.Register(c)
	waitClients(t, hub, 1)

	hub.Stop()
	hub.Stop()
	<-done

	if _, open := <-c.Frames(); open {
		t.Error("client not closed on stop")
	}

	late := NewClient("42:b")
	hub.Register(late)
	hub.Unregister(late)
	hub.Broadcast("*", Frame{})
	if _, open := <-late.Frames(); open {
		t.Error("client registered after stop not closed")
	}
}

func TestHubConcurrentBroadcast(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	c := NewClient("42:a")
	hub.Register(c)
	waitClients(t, hub, 1)

	const n = 32
	var wg sync.WaitGroup
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.Broadcast("42:*", Frame{Event: EventChange})
		}()
	}
	wg.Wait()
	for range n {
		recv(t, c)
	}
}

func TestServeSSEStreamsFrames(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeSSE(hub, w, r, "42:tab", WithUserID("42"),
			WithSnapshot(func() (Frame, error) {
				return Frame{Event: EventSnapshot, Data: []byte(`{"theme":"light"}`)}, nil
			}))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("content type = %q", ct)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "" {
		t.Error("stream must leave CORS to the middleware")
	}

	r := bufio.NewReader(resp.Body)
	events := func() string {
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if ev, ok := strings.CutPrefix(line, "event: "); ok {
				return strings.TrimSpace(ev)
			}
		}
	}

	if got := events(); got != EventConnected {
		t.Fatalf("first event = %q", got)
	}
	if got := events(); got != EventSnapshot {
		t.Fatalf("second event = %q", got)
	}

	waitClients(t, hub, 1)
	hub.Broadcast("42:*", Frame{ID: "1", Event: EventChange, Data: []byte(`{}`)})
	if got := events(); got != EventChange {
		t.Fatalf("third event = %q", got)
	}

	cancel()
	waitClients(t, hub, 0)
}

func TestServeSSEKeepAliveHook(t *testing.T) {
	prev := KeepAliveInterval
	KeepAliveInterval = 10 * time.Millisecond
	t.Cleanup(func() { KeepAliveInterval = prev })

	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	pings := make(chan struct{}, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ServeSSE(hub, w, r, "42:tab", WithKeepAlive(func() {
			select {
			case pings <- struct{}{}:
			default:
			}
		}))
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	r := bufio.NewReader(resp.Body)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		if strings.HasPrefix(line, ": keepalive") {
			break
		}
	}
	select {
	case <-pings:
	case <-time.After(time.Second):
		t.Fatal("keep-alive hook never ran")
	}
}

func TestComponentLifecycle(t *testing.T) {
	c := NewComponent("/api/v1/state/events")
	ctx := context.Background()

	if err := c.Start(ctx); err != nil {
		t.Fatal(err)
	}
	client := NewClient("42:a")
	c.Hub().Register(client)
	waitClients(t, c.Hub(), 1)

	if h := c.Health(ctx); h.Message != "1 clients connected" {
		t.Errorf("health = %+v", h)
	}
	if d := c.Describe(); d.Type != "sse" || !strings.Contains(d.Details, "/state/events") {
		t.Errorf("describe = %+v", d)
	}

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := c.Stop(stopCtx); err != nil {
		t.Fatal(err)
	}
	if _, open := <-client.Frames(); open {
		t.Error("client still open after stop")
	}
}
