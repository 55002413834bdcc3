package state

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/AmareGatie/phase4/errors"
)

// Capability names one container inside a Scope.
type Capability string

// Reducer computes the next value from the current one. It receives a private
// copy of the current value, so mutating it in place never leaks into the
// committed state when the reducer fails.
type Reducer[T any] func(current T, args any) (T, error)

// Change is delivered to subscribers after every commit.
type Change[T any] struct {
	Capability Capability
	Operation  string
	Version    uint64
	Value      T
}

// ApplyResult describes one finished Apply call, successful or not.
type ApplyResult struct {
	Capability Capability
	Operation  string
	Version    uint64
	Duration   time.Duration
	Err        error
}

// ContainerOption configures a Container.
type ContainerOption[T any] func(*Container[T])

// WithClone sets the copy function used whenever a value crosses the
// container boundary. Reference-typed values (slices, maps, pointers) need
// one; the default is plain assignment.
func WithClone[T any](clone func(T) T) ContainerOption[T] {
	return func(c *Container[T]) {
		c.clone = clone
	}
}

type subscription[T any] struct {
	id uint64
	fn func(Change[T])
}

// Container holds one value and the operations allowed to replace it.
// Apply commits synchronously: a reader sees either the previous or the next
// committed value, never anything in between.
type Container[T any] struct {
	capability Capability
	reducers   map[string]Reducer[T]
	clone      func(T) T

	mu      sync.RWMutex
	value   T
	version uint64
	closed  bool
	subs    []subscription[T]
	nextSub uint64
	hooks   []func(ApplyResult)
}

// NewContainer creates a container holding a copy of initial.
func NewContainer[T any](capability Capability, initial T, reducers map[string]Reducer[T], opts ...ContainerOption[T]) *Container[T] {
	c := &Container[T]{
		capability: capability,
		reducers:   make(map[string]Reducer[T], len(reducers)),
		clone:      func(v T) T { return v },
	}
	for _, opt := range opts {
		opt(c)
	}
	for name, r := range reducers {
		c.reducers[name] = r
	}
	c.value = c.clone(initial)
	return c
}

// Capability returns the name the container is registered under.
func (c *Container[T]) Capability() Capability {
	return c.capability
}

// Get returns a copy of the current committed value.
func (c *Container[T]) Get() T {
	v, _ := c.Snapshot()
	return v
}

// Snapshot returns a copy of the current value together with its version.
func (c *Container[T]) Snapshot() (T, uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.clone(c.value), c.version
}

// Apply runs the named operation and commits its result, then notifies every
// subscriber of this container. An undeclared operation, a reducer error or a
// reducer panic leaves the committed value untouched.
func (c *Container[T]) Apply(ctx context.Context, operation string, args any) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	start := time.Now()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		err := apperrors.ScopeNotComposed(string(c.capability))
		c.report(operation, 0, start, err)
		return zero, err
	}
	reducer, ok := c.reducers[operation]
	if !ok {
		c.mu.Unlock()
		err := apperrors.UnknownOperation(string(c.capability), operation)
		c.report(operation, 0, start, err)
		return zero, err
	}

	next, err := c.reduce(reducer, c.clone(c.value), args)
	if err != nil {
		c.mu.Unlock()
		c.report(operation, 0, start, err)
		return zero, err
	}

	c.value = next
	c.version++
	version := c.version
	subs := make([]subscription[T], len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()

	c.report(operation, version, start, nil)
	for _, s := range subs {
		s.fn(Change[T]{
			Capability: c.capability,
			Operation:  operation,
			Version:    version,
			Value:      c.clone(next),
		})
	}
	return c.clone(next), nil
}

// Subscribe registers fn to run after every commit of this container. fn runs
// on the goroutine that called Apply, after the container lock is released.
// The returned function cancels the subscription and is safe to call twice.
func (c *Container[T]) Subscribe(fn func(Change[T])) (cancel func()) {
	c.mu.Lock()
	c.nextSub++
	id := c.nextSub
	if !c.closed {
		c.subs = append(c.subs, subscription[T]{id: id, fn: fn})
	}
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			for i, s := range c.subs {
				if s.id == id {
					c.subs = append(c.subs[:i], c.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Subscribers returns the number of active subscriptions.
func (c *Container[T]) Subscribers() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.subs)
}

func (c *Container[T]) reduce(r Reducer[T], current T, args any) (next T, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("state: %s reducer panicked: %v", c.capability, p)
		}
	}()
	return r(current, args)
}

func (c *Container[T]) report(operation string, version uint64, start time.Time, err error) {
	c.mu.RLock()
	hooks := c.hooks
	c.mu.RUnlock()
	if len(hooks) == 0 {
		return
	}
	res := ApplyResult{
		Capability: c.capability,
		Operation:  operation,
		Version:    version,
		Duration:   time.Since(start),
		Err:        err,
	}
	for _, h := range hooks {
		h(res)
	}
}

// --- binding: the type-erased view a Scope keeps of each container ---

func (c *Container[T]) snapshotAny() (any, uint64) {
	return c.Snapshot()
}

func (c *Container[T]) watch(fn func(Event)) func() {
	return c.Subscribe(func(ch Change[T]) {
		fn(Event{
			Capability: ch.Capability,
			Operation:  ch.Operation,
			Version:    ch.Version,
			Value:      ch.Value,
		})
	})
}

func (c *Container[T]) setHooks(hooks []func(ApplyResult)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = hooks
}

func (c *Container[T]) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.subs = nil
}
