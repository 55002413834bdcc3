package state

import (
	"context"

	apperrors "github.com/AmareGatie/phase4/errors"
)

type scopeKey struct{}

// WithScope returns a copy of ctx carrying s.
func WithScope(ctx context.Context, s *Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// FromContext returns the scope stored by WithScope. A missing or closed
// scope is a wiring bug and fails with ErrScopeNotComposed instead of
// falling back to a default.
func FromContext(ctx context.Context) (*Scope, error) {
	s, _ := ctx.Value(scopeKey{}).(*Scope)
	if s.Closed() {
		return nil, apperrors.ScopeNotComposed("")
	}
	return s, nil
}

// UseFromContext combines FromContext and Use.
func UseFromContext[T any](ctx context.Context, capability Capability) (*Handle[T], error) {
	s, err := FromContext(ctx)
	if err != nil {
		return nil, err
	}
	return Use[T](s, capability)
}
