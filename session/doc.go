// Package session keeps one state.Scope per authenticated user.
//
// The first Acquire for a user composes a fresh Scope from the configured
// providers; later calls return the same Scope until it is released or sits
// idle past the configured TTL. A Reaper component sweeps idle scopes on an
// interval.
//
//	reg := session.NewRegistry(cfg, session.WithComposeHook(streamChanges))
//	scope, err := reg.Acquire(ctx, identity)
package session
