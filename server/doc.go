// Package server runs the storefront HTTP API on Gin, served through h2c so
// HTTP/2 cleartext clients can hold many SSE streams on one connection.
//
// The server-wide middleware stack (server/middleware) wraps the root mux:
//
//   - Recovery: panic recovery with structured logging
//   - RequestID: X-Request-Id generation and propagation
//   - Logging: request logging with duration tracking
//   - CORS: cross-origin headers and preflight
//   - BodySize: request body limit
//
// The authentication gate and rate limiting are Gin middleware mounted on the
// API group, so probes under /health, /ready, /alive and /info stay public.
package server
