// Package api serves the per-user state over HTTP.
//
// Every route sits behind the authentication gate. A middleware acquires the
// caller's session scope and passes it down through the request context;
// handlers reach capabilities only through their typed handles.
//
//	h := api.NewHandler(sessions, hub)
//	h.Register(engine.Group("/api/v1", middleware.Auth(authCfg)))
package api
