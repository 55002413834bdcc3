// Package sse streams state changes to connected clients as Server-Sent
// Events.
//
// A Hub owns every connected Client and routes frames to the clients whose
// id matches a glob pattern. The storefront names clients "<userid>:<uuid>"
// so one user's scope broadcasts to "<userid>:*" and reaches every tab that
// user has open, and nobody else.
//
//	hub := sse.NewHub()
//	go hub.Run()
//	hub.Broadcast("42:*", sse.Frame{Event: sse.EventChange, Data: payload})
package sse
