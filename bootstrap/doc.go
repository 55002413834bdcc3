// Package bootstrap runs a service through its lifecycle: start every
// registered component, run hooks, wait for a shutdown signal and stop
// components in reverse order within a grace period.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.RegisterComponent(server.NewComponent(srv))
//	app.OnReady(func(ctx context.Context) error { ... })
//	err = app.Run(ctx)
package bootstrap
