package state

import (
	"fmt"
	"sync"

	apperrors "github.com/AmareGatie/phase4/errors"
)

// Event is the type-erased form of Change used by Scope.Watch.
type Event struct {
	Capability Capability `json:"capability"`
	Operation  string     `json:"operation"`
	Version    uint64     `json:"version"`
	Value      any        `json:"value"`
}

type binding interface {
	Capability() Capability
	snapshotAny() (any, uint64)
	watch(fn func(Event)) func()
	setHooks(hooks []func(ApplyResult))
	close()
}

// Provider describes one container. Compose builds a fresh container from it
// every time, so a Provider can be shared between scopes.
type Provider interface {
	Capability() Capability
	build() binding
}

type provider[T any] struct {
	capability Capability
	initial    T
	reducers   map[string]Reducer[T]
	opts       []ContainerOption[T]
}

// Provide declares a capability with its initial value and operations.
func Provide[T any](capability Capability, initial T, reducers map[string]Reducer[T], opts ...ContainerOption[T]) Provider {
	return &provider[T]{
		capability: capability,
		initial:    initial,
		reducers:   reducers,
		opts:       opts,
	}
}

func (p *provider[T]) Capability() Capability { return p.capability }

func (p *provider[T]) build() binding {
	return NewContainer(p.capability, p.initial, p.reducers, p.opts...)
}

// Option configures a Scope.
type Option func(*scopeOptions)

type scopeOptions struct {
	hooks []func(ApplyResult)
}

// WithApplyHook registers fn to observe every Apply in the scope.
func WithApplyHook(fn func(ApplyResult)) Option {
	return func(o *scopeOptions) {
		o.hooks = append(o.hooks, fn)
	}
}

// Scope is a set of independent containers keyed by capability. It is
// flat: nesting order of the providers has no runtime meaning.
type Scope struct {
	mu       sync.RWMutex
	bindings map[Capability]binding
	order    []Capability
	closed   bool
}

// Compose builds a new Scope with fresh containers for every provider.
func Compose(providers []Provider, opts ...Option) (*Scope, error) {
	var o scopeOptions
	for _, opt := range opts {
		opt(&o)
	}

	s := &Scope{
		bindings: make(map[Capability]binding, len(providers)),
		order:    make([]Capability, 0, len(providers)),
	}
	for _, p := range providers {
		name := p.Capability()
		if _, exists := s.bindings[name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateCapability, name)
		}
		b := p.build()
		if len(o.hooks) > 0 {
			b.setHooks(o.hooks)
		}
		s.bindings[name] = b
		s.order = append(s.order, name)
	}
	return s, nil
}

// MustCompose is like Compose but panics on error.
func MustCompose(providers []Provider, opts ...Option) *Scope {
	s, err := Compose(providers, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

// Capabilities returns the composed capability names in composition order.
func (s *Scope) Capabilities() []Capability {
	if s == nil {
		return nil
	}
	out := make([]Capability, len(s.order))
	copy(out, s.order)
	return out
}

// Value returns a copy of one capability's value and its version.
func (s *Scope) Value(capability Capability) (any, uint64, error) {
	b, err := s.lookup(capability)
	if err != nil {
		return nil, 0, err
	}
	v, version := b.snapshotAny()
	return v, version, nil
}

// Snapshot returns a copy of every capability's current value.
func (s *Scope) Snapshot() (map[Capability]any, error) {
	if err := s.check(""); err != nil {
		return nil, err
	}
	out := make(map[Capability]any, len(s.order))
	for _, name := range s.order {
		v, _ := s.bindings[name].snapshotAny()
		out[name] = v
	}
	return out, nil
}

// Watch subscribes fn to commits of every container in the scope.
func (s *Scope) Watch(fn func(Event)) (func(), error) {
	if err := s.check(""); err != nil {
		return nil, err
	}
	cancels := make([]func(), 0, len(s.order))
	for _, name := range s.order {
		cancels = append(cancels, s.bindings[name].watch(fn))
	}
	return func() {
		for _, c := range cancels {
			c()
		}
	}, nil
}

// Close ends the scope. Containers drop their subscribers and refuse further
// operations; Use on a closed scope fails with ErrScopeNotComposed.
func (s *Scope) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	for _, b := range s.bindings {
		b.close()
	}
}

// Closed reports whether Close has been called.
func (s *Scope) Closed() bool {
	if s == nil {
		return true
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

func (s *Scope) check(capability Capability) error {
	if s.Closed() {
		return apperrors.ScopeNotComposed(string(capability))
	}
	return nil
}

func (s *Scope) lookup(capability Capability) (binding, error) {
	if err := s.check(capability); err != nil {
		return nil, err
	}
	b, ok := s.bindings[capability]
	if !ok {
		return nil, apperrors.ScopeNotComposed(string(capability))
	}
	return b, nil
}

// Use returns a handle on one capability of the scope. A nil or closed scope
// and a capability the scope was not composed with both fail with
// ErrScopeNotComposed; a capability holding another value type fails with
// ErrCapabilityMismatch.
func Use[T any](s *Scope, capability Capability) (*Handle[T], error) {
	b, err := s.lookup(capability)
	if err != nil {
		return nil, err
	}
	c, ok := b.(*Container[T])
	if !ok {
		var want T
		got, _ := b.snapshotAny()
		return nil, apperrors.CapabilityMismatch(string(capability), want, got)
	}
	return &Handle[T]{c: c}, nil
}

// MustUse is like Use but panics on error.
func MustUse[T any](s *Scope, capability Capability) *Handle[T] {
	h, err := Use[T](s, capability)
	if err != nil {
		panic(err)
	}
	return h
}
