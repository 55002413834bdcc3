package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/AmareGatie/phase4/auth"
	"github.com/AmareGatie/phase4/capability"
	"github.com/AmareGatie/phase4/server/middleware"
	"github.com/AmareGatie/phase4/session"
	"github.com/AmareGatie/phase4/sse"
	"github.com/AmareGatie/phase4/state"
)

// staleContext builds the context withScope would hand a route whose scope
// was released before the route ran.
func staleContext(t *testing.T, sessions *session.Registry, id auth.Identity, params gin.Params) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	scope, err := sessions.Acquire(context.Background(), id)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	sessions.Release(id.UserID)
	if !scope.Closed() {
		t.Fatal("released scope still open")
	}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request = req.WithContext(state.WithScope(req.Context(), scope))
	c.Set(middleware.IdentityKey, id)
	c.Params = params
	return c, w
}

func TestReleasedScopeIsRecomposed(t *testing.T) {
	gin.SetMode(gin.TestMode)
	hub := sse.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	alice := auth.Identity{Username: "alice", UserID: "1"}

	tests := []struct {
		name   string
		params gin.Params
		route  func(*Handler) gin.HandlerFunc
		want   string
	}{
		{
			name:  "apply",
			route: func(h *Handler) gin.HandlerFunc { return h.toggleTheme },
			want:  `"dark"`,
		},
		{
			name:   "value",
			params: gin.Params{{Key: "capability", Value: "theme"}},
			route:  func(h *Handler) gin.HandlerFunc { return h.value },
			want:   `"light"`,
		},
		{
			name:  "snapshot",
			route: func(h *Handler) gin.HandlerFunc { return h.snapshot },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sessions := session.NewRegistry(session.Config{})
			t.Cleanup(sessions.Close)
			h := NewHandler(sessions, hub)

			c, w := staleContext(t, sessions, alice, tt.params)
			tt.route(h)(c)

			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
			}
			var body struct {
				Data json.RawMessage `json:"data"`
			}
			if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode %s: %v", w.Body.String(), err)
			}
			if tt.want != "" && string(body.Data) != tt.want {
				t.Errorf("data = %s, want %s", body.Data, tt.want)
			}

			used, err := state.FromContext(c.Request.Context())
			if err != nil {
				t.Fatalf("FromContext: %v", err)
			}
			if used.Closed() {
				t.Error("request still carries the released scope")
			}
			live, _ := sessions.Acquire(context.Background(), alice)
			if live != used {
				t.Error("retry ran on a scope the registry does not hold")
			}
		})
	}
}

func TestApplyLeavesOtherErrorsAlone(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sessions := session.NewRegistry(session.Config{}, session.WithProviders(capability.CounterProvider()))
	t.Cleanup(sessions.Close)
	h := NewHandler(sessions, sse.NewHub())
	alice := auth.Identity{Username: "alice", UserID: "1"}

	scope, err := sessions.Acquire(context.Background(), alice)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	c.Request = req.WithContext(state.WithScope(req.Context(), scope))
	c.Set(middleware.IdentityKey, alice)

	// The scope is live but has no theme; that is a composition fault, not a
	// stale scope.
	h.toggleTheme(c)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if live, _ := sessions.Acquire(context.Background(), alice); live != scope {
		t.Error("live scope was replaced")
	}
}

func TestRoutesNeedVerifiedIdentity(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sessions := session.NewRegistry(session.Config{})
	t.Cleanup(sessions.Close)
	h := NewHandler(sessions, sse.NewHub())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	h.withScope()(c)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
	if !c.IsAborted() {
		t.Error("chain not aborted")
	}
	if sessions.Len() != 0 {
		t.Errorf("Len() = %d, want 0", sessions.Len())
	}
}
