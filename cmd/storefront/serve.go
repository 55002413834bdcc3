package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/metric"

	"github.com/AmareGatie/phase4/api"
	"github.com/AmareGatie/phase4/auth"
	"github.com/AmareGatie/phase4/auth/jwt"
	"github.com/AmareGatie/phase4/bootstrap"
	"github.com/AmareGatie/phase4/component"
	"github.com/AmareGatie/phase4/logger"
	"github.com/AmareGatie/phase4/observability"
	"github.com/AmareGatie/phase4/resilience"
	"github.com/AmareGatie/phase4/server"
	"github.com/AmareGatie/phase4/server/middleware"
	"github.com/AmareGatie/phase4/session"
	"github.com/AmareGatie/phase4/sse"
	"github.com/AmareGatie/phase4/state"
)

const (
	apiPrefix  = "/api/v1"
	eventsPath = apiPrefix + "/state/events"
)

func newServeCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(*configFile)
			if err != nil {
				return err
			}
			app, _, err := newApp(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			return app.Run(cmd.Context())
		},
	}
}

// newApp wires every component. The returned server is not started; Run
// starts it with the rest.
func newApp(ctx context.Context, cfg *Config, opts ...bootstrap.Option) (*bootstrap.App[*Config], *server.Server, error) {
	app, err := bootstrap.NewApp(cfg, opts...)
	if err != nil {
		return nil, nil, err
	}

	metrics, err := observability.NewMetrics(observability.Meter(observability.InstrumentationName))
	if err != nil {
		return nil, nil, fmt.Errorf("create metrics: %w", err)
	}

	svc, err := jwt.NewService(&cfg.Auth.JWT, auth.NewClaims)
	if err != nil {
		return nil, nil, fmt.Errorf("jwt service: %w", err)
	}
	gate := auth.NewGate(auth.NewJWTValidator(svc),
		auth.WithVerifyTimeout(cfg.Auth.VerifyTimeout),
		auth.WithDecisionObserver(metrics.ObserveDecision),
	)

	stream := sse.NewComponent(eventsPath)
	sessions := session.NewRegistry(cfg.Session,
		session.WithScopeOptions(
			state.WithApplyHook(metrics.ObserveApply),
			state.WithApplyHook(api.LogApplies(logger.Get("state"))),
		),
		session.WithComposeHook(api.StreamChanges(stream.Hub())),
	)

	srv := server.New(cfg.Server, app.Logger)
	engine := srv.GinEngine()
	srv.RegisterDefaultEndpoints(cfg.Name, app.Health)

	group := engine.Group(apiPrefix, middleware.Auth(middleware.AuthConfig{
		Gate:      gate,
		SkipPaths: cfg.Auth.SkipPaths,
	}))
	if cfg.Server.RateLimit.Enabled {
		group.Use(middleware.RateLimit(ctx, cfg.Server.RateLimit))
	}
	streamLimit := cfg.Streams
	streamLimit.OnReject = func(name, key string) {
		app.Logger.Warn("Stream limit reached", map[string]interface{}{"bulkhead": name, "user_id": key})
	}
	api.NewHandler(sessions, stream.Hub(),
		api.WithStreamLimit(resilience.NewBulkhead(streamLimit)),
	).Register(group)

	components := []component.Component{
		observability.NewTelemetry(cfg.Observability, cfg.Version),
		stream,
		session.NewReaper(sessions, cfg.Session),
		server.NewComponent(srv),
	}
	for _, c := range components {
		if err := app.RegisterComponent(c); err != nil {
			return nil, nil, err
		}
	}

	var gauges metric.Registration
	app.OnStart(func(context.Context) error {
		reg, err := metrics.ObserveGauges(sessions.Len, stream.Hub().ClientCount)
		gauges = reg
		return err
	})
	app.OnStop(func(context.Context) error {
		if gauges == nil {
			return nil
		}
		return gauges.Unregister()
	})

	app.Logger.Info("Service wired", map[string]interface{}{
		"auth":       cfg.Auth.Describe(),
		"idle_ttl":   cfg.Session.IdleTTL.String(),
		"rate_limit": cfg.Server.RateLimit.Enabled,
		"telemetry":  cfg.Observability.Enabled,
	})
	return app, srv, nil
}
