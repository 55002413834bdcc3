package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AmareGatie/phase4/component"
)

// Reaper runs Registry.Sweep on an interval.
type Reaper struct {
	registry *Registry
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

var (
	_ component.Component   = (*Reaper)(nil)
	_ component.Describable = (*Reaper)(nil)
)

// NewReaper creates a reaper for registry.
func NewReaper(registry *Registry, cfg Config) *Reaper {
	cfg.ApplyDefaults()
	return &Reaper{registry: registry, interval: cfg.SweepInterval}
}

// Name returns the component name.
func (r *Reaper) Name() string { return "session-reaper" }

// Start launches the sweep loop.
func (r *Reaper) Start(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		return fmt.Errorf("session: reaper already started")
	}

	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.loop(ctx, r.done)
	return nil
}

func (r *Reaper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			r.registry.Sweep(now)
		}
	}
}

// Stop ends the sweep loop and releases every scope.
func (r *Reaper) Stop(ctx context.Context) error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	r.registry.Close()
	return nil
}

// Health reports the number of live scopes.
func (r *Reaper) Health(_ context.Context) component.Health {
	r.mu.Lock()
	running := r.cancel != nil
	r.mu.Unlock()

	status := component.StatusHealthy
	if !running {
		status = component.StatusUnhealthy
	}
	return component.Health{
		Name:    r.Name(),
		Status:  status,
		Message: fmt.Sprintf("%d active scopes", r.registry.Len()),
	}
}

// Describe reports the sweep settings.
func (r *Reaper) Describe() component.Description {
	return component.Description{
		Name:    "Session Reaper",
		Type:    "session",
		Details: fmt.Sprintf("idle_ttl=%s sweep=%s", r.registry.idleTTL, r.interval),
	}
}
