// Package capability defines the storefront's state containers: theme, auth,
// language, counter and cart. Each file declares one Provider plus a small
// typed wrapper around its Handle.
//
// Compose the default set once per consumer scope:
//
//	scope, err := state.Compose(capability.Providers())
//	cart, err := capability.UseCart(scope)
//	cart.Add(ctx, capability.Item{ID: 1, Name: "Keyboard"})
package capability
