// Package observability wires OpenTelemetry tracing and metrics into the
// service.
//
// Telemetry is a lifecycle component that installs OTLP/HTTP tracer and
// meter providers when enabled. Metrics holds the domain instruments: gate
// decisions, state applies and gauges for live scopes and stream clients.
//
//	m, _ := observability.NewMetrics(observability.Meter(observability.InstrumentationName))
//	gate := auth.NewGate(v, auth.WithDecisionObserver(m.ObserveDecision))
//	scope, _ := state.Compose(providers, state.WithApplyHook(m.ObserveApply))
package observability
