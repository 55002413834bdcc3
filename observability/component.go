package observability

import (
	"context"
	"errors"
	"fmt"
	"sync"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/AmareGatie/phase4/component"
)

// Telemetry installs and flushes the OTLP providers.
type Telemetry struct {
	cfg     Config
	version string

	mu sync.Mutex
	tp *sdktrace.TracerProvider
	mp *sdkmetric.MeterProvider
}

var (
	_ component.Component   = (*Telemetry)(nil)
	_ component.Describable = (*Telemetry)(nil)
)

// NewTelemetry creates the component. Nothing is installed until Start.
func NewTelemetry(cfg Config, version string) *Telemetry {
	cfg.ApplyDefaults()
	return &Telemetry{cfg: cfg, version: version}
}

// Name returns the component name.
func (t *Telemetry) Name() string { return "telemetry" }

// Start installs the tracer and meter providers when enabled.
func (t *Telemetry) Start(ctx context.Context) error {
	if !t.cfg.Enabled {
		return nil
	}
	tp, err := InitTracer(ctx, t.cfg.TracerConfig(t.version))
	if err != nil {
		return err
	}
	mc := t.cfg.MeterConfig(t.version)
	mp, err := InitMeter(ctx, &mc)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return err
	}

	t.mu.Lock()
	t.tp, t.mp = tp, mp
	t.mu.Unlock()
	return nil
}

// Stop flushes and shuts down the providers.
func (t *Telemetry) Stop(ctx context.Context) error {
	t.mu.Lock()
	tp, mp := t.tp, t.mp
	t.tp, t.mp = nil, nil
	t.mu.Unlock()

	var errs []error
	if tp != nil {
		errs = append(errs, tp.Shutdown(ctx))
	}
	if mp != nil {
		errs = append(errs, mp.Shutdown(ctx))
	}
	return errors.Join(errs...)
}

// Health reports whether export is running.
func (t *Telemetry) Health(_ context.Context) component.Health {
	t.mu.Lock()
	running := t.tp != nil
	t.mu.Unlock()

	h := component.Health{Name: t.Name(), Status: component.StatusHealthy, Message: "export disabled"}
	if t.cfg.Enabled {
		h.Message = "exporting to " + t.cfg.Endpoint
		if !running {
			h.Status = component.StatusDegraded
			h.Message = "exporter not running"
		}
	}
	return h
}

// Describe summarizes the export settings.
func (t *Telemetry) Describe() component.Description {
	details := "disabled"
	if t.cfg.Enabled {
		details = fmt.Sprintf("endpoint=%s sample=%.2f", t.cfg.Endpoint, t.cfg.SampleRate)
	}
	return component.Description{Name: "OpenTelemetry", Type: "telemetry", Details: details}
}
