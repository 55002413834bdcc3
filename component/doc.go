// Package component defines lifecycle-managed parts of the service: the HTTP
// server, the session reaper, the SSE hub and the telemetry exporters.
//
// Components are registered with a Registry, started in registration order
// and stopped in reverse order. Health results feed the /health endpoint.
package component
