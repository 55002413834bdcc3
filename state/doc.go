// Package state distributes independent pieces of mutable state to any number
// of consumers without threading values through every intermediate layer.
//
// A Container holds one value and the only operations allowed to replace it.
// Providers describe containers; Compose turns an ordered list of providers
// into a Scope, a flat capability-keyed registry with fresh containers.
// Consumers never see a Container: they ask the Scope for a Handle, which can
// read the value, apply declared operations and subscribe to commits of that
// one container.
//
//	scope, err := state.Compose(
//	    state.Provide("counter", 0, map[string]state.Reducer[int]{
//	        "add": func(n int, args any) (int, error) { return n + args.(int), nil },
//	    }),
//	)
//	counter, err := state.Use[int](scope, "counter")
//	cancel := counter.Subscribe(func(c state.Change[int]) { render(c.Value) })
//	defer cancel()
//	counter.Apply(ctx, "add", 2)
//
// Containers are independent: none reads another's value, so the order of
// providers passed to Compose never changes behavior. Every Compose call
// builds new containers, so composing again resets all state.
package state
