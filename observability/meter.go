package observability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/AmareGatie/phase4/auth"
	apperrors "github.com/AmareGatie/phase4/errors"
	"github.com/AmareGatie/phase4/logger"
	"github.com/AmareGatie/phase4/state"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	// Endpoint is the OTLP HTTP endpoint host:port.
	Endpoint string
	Insecure bool
	// Interval is the metric export interval.
	Interval time.Duration
}

// InitMeter installs an OTLP/HTTP meter provider as the global provider.
// The caller shuts it down on exit.
func InitMeter(ctx context.Context, config *MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	res, err := newResource(config.ServiceName, config.ServiceVersion, config.Environment)
	if err != nil {
		return nil, fmt.Errorf("creating resource: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logger.Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))
	return mp, nil
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Metric names.
const (
	MetricGateDecisions = "auth.gate.decisions"
	MetricGateDuration  = "auth.gate.duration"
	MetricApplyTotal    = "state.apply.total"
	MetricApplyDuration = "state.apply.duration"
	MetricActiveScopes  = "session.scopes.active"
	MetricStreamClients = "sse.clients"
)

// Metrics holds the service's domain instruments.
type Metrics struct {
	meter         metric.Meter
	gateDecisions metric.Int64Counter
	gateDuration  metric.Float64Histogram
	applyTotal    metric.Int64Counter
	applyDuration metric.Float64Histogram
}

// NewMetrics creates the instruments on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	gateDecisions, err := meter.Int64Counter(MetricGateDecisions,
		metric.WithDescription("Authentication gate decisions by outcome and reason"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricGateDecisions, err)
	}

	gateDuration, err := meter.Float64Histogram(MetricGateDuration,
		metric.WithDescription("Time spent deciding a request's credential"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", MetricGateDuration, err)
	}

	applyTotal, err := meter.Int64Counter(MetricApplyTotal,
		metric.WithDescription("State container operations by capability and status"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s counter: %w", MetricApplyTotal, err)
	}

	applyDuration, err := meter.Float64Histogram(MetricApplyDuration,
		metric.WithDescription("Duration of state container operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s histogram: %w", MetricApplyDuration, err)
	}

	return &Metrics{
		meter:         meter,
		gateDecisions: gateDecisions,
		gateDuration:  gateDuration,
		applyTotal:    applyTotal,
		applyDuration: applyDuration,
	}, nil
}

// ObserveDecision records one gate decision. It matches the signature of
// auth.WithDecisionObserver.
func (m *Metrics) ObserveDecision(ctx context.Context, d auth.Decision) {
	outcome := metric.WithAttributes(
		attribute.String(AttrOutcome, string(d.Stage)),
		attribute.String(AttrStage, string(d.Reached)),
		attribute.String(AttrReason, RejectionReason(d.Err)),
	)
	m.gateDecisions.Add(ctx, 1, outcome)
	m.gateDuration.Record(ctx, d.Duration.Seconds(), metric.WithAttributes(
		attribute.String(AttrOutcome, string(d.Stage)),
	))
}

// ObserveApply records one container operation. It matches the signature of
// state.WithApplyHook.
func (m *Metrics) ObserveApply(r state.ApplyResult) {
	ctx := context.Background()
	m.applyTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(AttrCapability, string(r.Capability)),
		attribute.String(AttrOperation, r.Operation),
		attribute.String(AttrStatus, ApplyStatus(r.Err)),
	))
	m.applyDuration.Record(ctx, r.Duration.Seconds(), metric.WithAttributes(
		attribute.String(AttrCapability, string(r.Capability)),
	))
}

// ObserveGauges registers asynchronous gauges for live scopes and stream
// clients. Either func may be nil.
func (m *Metrics) ObserveGauges(scopes, clients func() int) (metric.Registration, error) {
	scopeGauge, err := m.meter.Int64ObservableGauge(MetricActiveScopes,
		metric.WithDescription("Composed session scopes"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s gauge: %w", MetricActiveScopes, err)
	}
	clientGauge, err := m.meter.Int64ObservableGauge(MetricStreamClients,
		metric.WithDescription("Connected event stream clients"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating %s gauge: %w", MetricStreamClients, err)
	}

	return m.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		if scopes != nil {
			o.ObserveInt64(scopeGauge, int64(scopes()))
		}
		if clients != nil {
			o.ObserveInt64(clientGauge, int64(clients()))
		}
		return nil
	}, scopeGauge, clientGauge)
}

// RejectionReason maps a gate error to a low-cardinality label.
func RejectionReason(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, auth.ErrMissingOrMalformedCredential):
		return "missing_or_malformed"
	case errors.Is(err, auth.ErrInvalidCredential):
		return "invalid"
	default:
		return "other"
	}
}

// ApplyStatus maps an Apply error to a low-cardinality label.
func ApplyStatus(err error) string {
	if err == nil {
		return "ok"
	}
	if appErr, ok := apperrors.AsAppError(err); ok {
		return string(appErr.Code)
	}
	return "error"
}
