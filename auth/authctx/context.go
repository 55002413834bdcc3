// Package authctx carries the gate's verified identity through
// context.Context so handlers never read it from a global.
//
//	ctx = authctx.Set(ctx, id)        // in middleware
//	id, ok := authctx.Get(ctx)        // in handlers
//	id := authctx.MustGet(ctx)        // where the gate guarantees it
package authctx

import (
	"context"
	"errors"

	"github.com/AmareGatie/phase4/auth"
)

type contextKey struct{}

// ErrNoIdentity is returned when no identity is stored in the context.
var ErrNoIdentity = errors.New("authctx: no identity in context")

// Set stores the verified identity in the context.
func Set(ctx context.Context, id auth.Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// Get retrieves the identity stored by Set.
func Get(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(auth.Identity)
	return id, ok
}

// MustGet is like Get but panics when the identity is missing.
func MustGet(ctx context.Context) auth.Identity {
	id, ok := Get(ctx)
	if !ok {
		panic("authctx: identity not found in context")
	}
	return id
}

// GetOrError is like Get but returns ErrNoIdentity when the identity is
// missing.
func GetOrError(ctx context.Context) (auth.Identity, error) {
	id, ok := Get(ctx)
	if !ok {
		return auth.Identity{}, ErrNoIdentity
	}
	return id, nil
}
