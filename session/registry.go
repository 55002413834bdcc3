package session

import (
	"context"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/AmareGatie/phase4/auth"
	"github.com/AmareGatie/phase4/capability"
	apperrors "github.com/AmareGatie/phase4/errors"
	"github.com/AmareGatie/phase4/logger"
	"github.com/AmareGatie/phase4/state"
)

// ComposeHook runs once for every newly composed scope. The returned function,
// if any, runs when the scope is released or evicted.
type ComposeHook func(identity auth.Identity, scope *state.Scope) (release func())

// Option configures a Registry.
type Option func(*Registry)

// WithProviders replaces the default capability set.
func WithProviders(providers ...state.Provider) Option {
	return func(r *Registry) {
		r.providers = providers
	}
}

// WithScopeOptions passes options to every Compose call.
func WithScopeOptions(opts ...state.Option) Option {
	return func(r *Registry) {
		r.scopeOpts = append(r.scopeOpts, opts...)
	}
}

// WithComposeHook adds a hook run for every new scope.
func WithComposeHook(hook ComposeHook) Option {
	return func(r *Registry) {
		r.hooks = append(r.hooks, hook)
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

type entry struct {
	identity auth.Identity
	scope    *state.Scope
	lastSeen time.Time
	release  []func()
	once     sync.Once
}

// Registry maps user ids to their scopes. It holds at most MaxScopes; adding
// one more evicts the least recently used scope.
type Registry struct {
	providers []state.Provider
	scopeOpts []state.Option
	hooks     []ComposeHook
	idleTTL   time.Duration
	now       func() time.Time
	log       *logger.Logger

	mu      sync.Mutex
	cache   *lru.Cache[string, *entry]
	evicted []*entry
}

// NewRegistry creates a registry composing capability.Providers() unless
// WithProviders says otherwise.
func NewRegistry(cfg Config, opts ...Option) *Registry {
	cfg.ApplyDefaults()
	r := &Registry{
		providers: capability.Providers(),
		idleTTL:   cfg.IdleTTL,
		now:       time.Now,
		log:       logger.Get("session"),
	}
	cache, err := lru.NewWithEvict(cfg.MaxScopes, r.onEvict)
	if err != nil {
		panic(err)
	}
	r.cache = cache
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// onEvict runs inside cache calls, which all happen under r.mu. Entries are
// closed by drain once the lock is released.
func (r *Registry) onEvict(_ string, e *entry) {
	r.evicted = append(r.evicted, e)
}

// drain must be called with r.mu held; the caller closes the result after
// unlocking.
func (r *Registry) drain() []*entry {
	out := r.evicted
	r.evicted = nil
	return out
}

func closeAll(entries []*entry) {
	for _, e := range entries {
		e.close()
	}
}

// Acquire returns the identity's scope, composing it on first use.
func (r *Registry) Acquire(ctx context.Context, identity auth.Identity) (*state.Scope, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if identity.UserID == "" {
		return nil, apperrors.InvalidInput("identity", "user id is required")
	}

	r.mu.Lock()
	scope, err := r.acquireLocked(identity)
	evicted := r.drain()
	size := r.cache.Len()
	r.mu.Unlock()

	closeAll(evicted)
	if len(evicted) > 0 {
		r.log.Info("Scopes evicted at capacity", map[string]interface{}{"evicted": len(evicted), "scopes": size})
	}
	return scope, err
}

func (r *Registry) acquireLocked(identity auth.Identity) (*state.Scope, error) {
	now := r.now()
	if e, ok := r.cache.Get(identity.UserID); ok {
		if !e.scope.Closed() {
			e.lastSeen = now
			return e.scope, nil
		}
		r.cache.Remove(identity.UserID)
	}

	scope, err := state.Compose(r.providers, r.scopeOpts...)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	e := &entry{identity: identity, scope: scope, lastSeen: now}
	for _, hook := range r.hooks {
		if release := hook(identity, scope); release != nil {
			e.release = append(e.release, release)
		}
	}
	r.cache.Add(identity.UserID, e)

	r.log.Debug("Scope composed", map[string]interface{}{
		logger.FieldUserID: identity.UserID,
		"scopes":           r.cache.Len(),
	})
	return scope, nil
}

// Release closes and forgets the user's scope. The next Acquire starts from
// initial values. It reports whether a scope existed.
func (r *Registry) Release(userID string) bool {
	r.mu.Lock()
	ok := r.cache.Remove(userID)
	evicted := r.drain()
	r.mu.Unlock()

	closeAll(evicted)
	if ok {
		r.log.Debug("Scope released", map[string]interface{}{logger.FieldUserID: userID})
	}
	return ok
}

// Touch marks the user's scope as used now without composing one. Open event
// streams call it so a listening client is not swept as idle. It reports
// whether a live scope existed.
func (r *Registry) Touch(userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.cache.Get(userID)
	if !ok || e.scope.Closed() {
		return false
	}
	e.lastSeen = r.now()
	return true
}

// Sweep evicts scopes idle longer than the TTL and returns how many it
// removed. Keys come oldest first, so the walk stops at the first live one.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	for _, id := range r.cache.Keys() {
		e, ok := r.cache.Peek(id)
		if !ok {
			continue
		}
		if now.Sub(e.lastSeen) <= r.idleTTL {
			break
		}
		r.cache.Remove(id)
	}
	expired := r.drain()
	r.mu.Unlock()

	closeAll(expired)
	if len(expired) > 0 {
		r.log.Info("Idle scopes evicted", map[string]interface{}{"evicted": len(expired)})
	}
	return len(expired)
}

// Len returns the number of live scopes.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cache.Len()
}

// Close releases every scope.
func (r *Registry) Close() {
	r.mu.Lock()
	r.cache.Purge()
	entries := r.drain()
	r.mu.Unlock()

	closeAll(entries)
}

func (e *entry) close() {
	e.once.Do(func() {
		for _, release := range e.release {
			release()
		}
		e.scope.Close()
	})
}
