package api

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"

	"github.com/AmareGatie/phase4/auth"
	"github.com/AmareGatie/phase4/capability"
	apperrors "github.com/AmareGatie/phase4/errors"
	"github.com/AmareGatie/phase4/observability"
	"github.com/AmareGatie/phase4/resilience"
	"github.com/AmareGatie/phase4/server"
	"github.com/AmareGatie/phase4/server/middleware"
	"github.com/AmareGatie/phase4/session"
	"github.com/AmareGatie/phase4/sse"
	"github.com/AmareGatie/phase4/state"
	"github.com/AmareGatie/phase4/validation"
)

// Handler serves the state routes.
type Handler struct {
	sessions *session.Registry
	hub      *sse.Hub
	streams  *resilience.Bulkhead
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithStreamLimit caps the event streams one user may hold open.
func WithStreamLimit(b *resilience.Bulkhead) HandlerOption {
	return func(h *Handler) { h.streams = b }
}

// NewHandler creates a handler over the session registry and stream hub.
func NewHandler(sessions *session.Registry, hub *sse.Hub, opts ...HandlerOption) *Handler {
	h := &Handler{sessions: sessions, hub: hub}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the routes on rg. rg must already run the auth gate.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.Use(h.withScope())

	rg.GET("/state", h.snapshot)
	rg.GET("/state/events", h.events)
	rg.GET("/state/:capability", h.value)
	rg.DELETE("/state", h.reset)

	rg.POST("/cart/items", h.addItem)
	rg.DELETE("/cart/items/:id", h.removeItem)
	rg.POST("/counter", h.dispatch)
	rg.PUT("/language", h.changeLanguage)
	rg.PUT("/theme", h.setTheme)
	rg.POST("/theme/toggle", h.toggleTheme)
	rg.POST("/account/login", h.login)
	rg.POST("/account/logout", h.logout)
}

// withScope acquires the caller's scope and stores it in the request context.
func (h *Handler) withScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := identity(c)
		if err != nil {
			server.RespondWithError(c, err)
			c.Abort()
			return
		}

		ctx, span := observability.StartSpan(c.Request.Context(), observability.SpanScopeAcquire)
		span.SetAttributes(attribute.String(observability.AttrUserID, id.UserID))
		scope, err := h.sessions.Acquire(ctx, id)
		observability.EndSpan(span, err)
		if err != nil {
			server.RespondWithError(c, err)
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(state.WithScope(c.Request.Context(), scope))
		c.Next()
	}
}

func (h *Handler) snapshot(c *gin.Context) {
	var snap map[state.Capability]any
	err := h.onScope(c, func(s *state.Scope) error {
		var err error
		snap, err = s.Snapshot()
		return err
	})
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOK(c, snap)
}

func (h *Handler) value(c *gin.Context) {
	name := c.Param("capability")
	if !capability.Known(name) {
		server.RespondWithError(c, apperrors.NotFound("capability", name))
		return
	}

	_, span := observability.StartSpan(c.Request.Context(), observability.SpanStateRead)
	span.SetAttributes(attribute.String(observability.AttrCapability, name))
	var (
		v       any
		version uint64
	)
	err := h.onScope(c, func(s *state.Scope) error {
		var err error
		v, version, err = s.Value(state.Capability(name))
		return err
	})
	observability.EndSpan(span, err)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOKWithMeta(c, v, &server.Meta{Capability: name, Version: version})
}

// reset releases the caller's scope; the next request starts from initial
// values. Open streams receive a reset event.
func (h *Handler) reset(c *gin.Context) {
	id, err := identity(c)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	h.sessions.Release(id.UserID)
	server.RespondNoContent(c)
}

func (h *Handler) events(c *gin.Context) {
	id, err := identity(c)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	var scope *state.Scope
	err = h.onScope(c, func(s *state.Scope) error {
		scope = s
		_, err := s.Snapshot()
		return err
	})
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	if h.streams != nil {
		release, err := h.streams.Acquire(id.UserID)
		if err != nil {
			server.RespondWithError(c, apperrors.RateLimited())
			return
		}
		defer release()
	}
	sse.ServeSSE(h.hub, c.Writer, c.Request, sse.ClientID(id.UserID),
		sse.WithUserID(id.UserID),
		sse.WithMetadata("username", id.Username),
		sse.WithSnapshot(func() (sse.Frame, error) { return snapshotFrame(scope) }),
		sse.WithKeepAlive(func() { h.sessions.Touch(id.UserID) }),
	)
}

func (h *Handler) addItem(c *gin.Context) {
	var item capability.Item
	if !bind(c, &item) {
		return
	}
	apply(h, c, capability.Cart, capability.OpAddItem, func(ctx context.Context, s *state.Scope) ([]capability.Item, error) {
		cart, err := capability.UseCart(s)
		if err != nil {
			return nil, err
		}
		return cart.Add(ctx, item)
	})
}

func (h *Handler) removeItem(c *gin.Context) {
	id, err := validation.PositiveInt("id", c.Param("id"))
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	apply(h, c, capability.Cart, capability.OpRemoveItem, func(ctx context.Context, s *state.Scope) ([]capability.Item, error) {
		cart, err := capability.UseCart(s)
		if err != nil {
			return nil, err
		}
		return cart.Remove(ctx, id)
	})
}

func (h *Handler) dispatch(c *gin.Context) {
	var req counterRequest
	if !bind(c, &req) {
		return
	}
	action, err := capability.ParseAction(req.Type)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	apply(h, c, capability.Counter, capability.OpDispatch, func(ctx context.Context, s *state.Scope) (capability.CounterState, error) {
		counter, err := capability.UseCounter(s)
		if err != nil {
			return capability.CounterState{}, err
		}
		return counter.Dispatch(ctx, action)
	})
}

func (h *Handler) changeLanguage(c *gin.Context) {
	var req languageRequest
	if !bind(c, &req) {
		return
	}
	apply(h, c, capability.Language, capability.OpChangeLanguage, func(ctx context.Context, s *state.Scope) (string, error) {
		lang, err := capability.UseLanguage(s)
		if err != nil {
			return "", err
		}
		return lang.Change(ctx, req.Language)
	})
}

func (h *Handler) setTheme(c *gin.Context) {
	var req themeRequest
	if !bind(c, &req) {
		return
	}
	apply(h, c, capability.Theme, capability.OpSetTheme, func(ctx context.Context, s *state.Scope) (string, error) {
		theme, err := capability.UseTheme(s)
		if err != nil {
			return "", err
		}
		return theme.Set(ctx, req.Theme)
	})
}

func (h *Handler) toggleTheme(c *gin.Context) {
	apply(h, c, capability.Theme, capability.OpToggleTheme, func(ctx context.Context, s *state.Scope) (string, error) {
		theme, err := capability.UseTheme(s)
		if err != nil {
			return "", err
		}
		return theme.Toggle(ctx)
	})
}

// login marks the client flag authenticated under the verified username;
// clients cannot pick another name.
func (h *Handler) login(c *gin.Context) {
	id, err := identity(c)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	apply(h, c, capability.Auth, capability.OpLogin, func(ctx context.Context, s *state.Scope) (capability.AuthState, error) {
		a, err := capability.UseAuth(s)
		if err != nil {
			return capability.AuthState{}, err
		}
		return a.Login(ctx, id.Username)
	})
}

func (h *Handler) logout(c *gin.Context) {
	apply(h, c, capability.Auth, capability.OpLogout, func(ctx context.Context, s *state.Scope) (capability.AuthState, error) {
		a, err := capability.UseAuth(s)
		if err != nil {
			return capability.AuthState{}, err
		}
		return a.Logout(ctx)
	})
}

// identity returns the caller verified by the auth middleware.
func identity(c *gin.Context) (auth.Identity, error) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		return auth.Identity{}, apperrors.Internal(errors.New("request carries no verified identity"))
	}
	return id, nil
}

// onScope runs fn on the request's scope. When the scope was closed after
// withScope acquired it (reset, idle sweep or eviction), a fresh one is
// acquired and fn runs once more.
func (h *Handler) onScope(c *gin.Context, fn func(*state.Scope) error) error {
	ctx := c.Request.Context()
	scope, err := state.FromContext(ctx)
	if err != nil {
		return err
	}
	err = fn(scope)
	if err == nil || !errors.Is(err, state.ErrScopeNotComposed) || !scope.Closed() {
		return err
	}

	id, err := identity(c)
	if err != nil {
		return err
	}
	fresh, err := h.sessions.Acquire(ctx, id)
	if err != nil {
		return err
	}
	c.Request = c.Request.WithContext(state.WithScope(ctx, fresh))
	return fn(fresh)
}

// apply runs one state operation inside a span and writes the committed
// value, or the error.
func apply[T any](h *Handler, c *gin.Context, capName state.Capability, op string, fn func(context.Context, *state.Scope) (T, error)) {
	ctx, span := observability.StartSpan(c.Request.Context(), observability.SpanStateApply)
	span.SetAttributes(
		attribute.String(observability.AttrCapability, string(capName)),
		attribute.String(observability.AttrOperation, op),
	)
	var v T
	err := h.onScope(c, func(s *state.Scope) error {
		var err error
		v, err = fn(ctx, s)
		return err
	})
	observability.EndSpan(span, err)
	if err != nil {
		server.RespondWithError(c, err)
		return
	}
	server.RespondOKWithMeta(c, v, &server.Meta{Capability: string(capName)})
}
