package state

import "context"

// Handle is a consumer's narrow view of one container: read, apply declared
// operations, subscribe. It never exposes the container itself.
type Handle[T any] struct {
	c *Container[T]
}

// Capability returns the capability this handle is bound to.
func (h *Handle[T]) Capability() Capability { return h.c.Capability() }

// Get returns a copy of the current value.
func (h *Handle[T]) Get() T { return h.c.Get() }

// Snapshot returns a copy of the current value together with its version.
func (h *Handle[T]) Snapshot() (T, uint64) { return h.c.Snapshot() }

// Apply runs a declared operation. See Container.Apply.
func (h *Handle[T]) Apply(ctx context.Context, operation string, args any) (T, error) {
	return h.c.Apply(ctx, operation, args)
}

// Subscribe registers fn for commits of this capability only.
func (h *Handle[T]) Subscribe(fn func(Change[T])) (cancel func()) {
	return h.c.Subscribe(fn)
}
