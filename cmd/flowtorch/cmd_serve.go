package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kbukum/flowtorch/bootstrap"
	"github.com/kbukum/flowtorch/server"
	"github.com/kbukum/flowtorch/server/middleware"
	"github.com/kbukum/flowtorch/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the transpiler over HTTP",
	Long: "Serve POST /v1/transpile, GET /v1/plugins, /health and /info.\n\n" +
		"Settings come from the config file and FLOWTORCH_* variables,\n" +
		"e.g. FLOWTORCH_SERVER_PORT=9090.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := commandConfig(cmd, false)
		if err != nil {
			return err
		}
		app, err := newServeApp(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		return app.Run(cmd.Context())
	},
}

// newServeApp wires the HTTP server into a bootstrap app. The server is
// bound by the start hook.
func newServeApp(ctx context.Context, cfg *AppConfig) (*bootstrap.App[*AppConfig], error) {
	app, err := bootstrap.NewApp(cfg, bootstrap.WithOutput(rootCmd.ErrOrStderr()))
	if err != nil {
		return nil, err
	}
	log := app.Logger

	metrics, shutdown, err := setupTelemetry(ctx, cfg)
	app.OnStop(shutdown)
	if err != nil {
		_ = app.Shutdown()
		return nil, err
	}
	if cfg.Observability.Enabled {
		app.Summary.TrackInfrastructure("telemetry", "otlp", cfg.Observability.Endpoint)
	}

	d, err := wire(ctx, cfg, metrics, needsStorage(cfg, true), log)
	if err != nil {
		_ = app.Shutdown()
		return nil, err
	}
	app.AddHealthCheck(d.checkers...)
	app.Summary.TrackInfrastructure("registry", "local", fmt.Sprintf("%d built-in plugins", d.local.Len()))
	if cfg.Registry.Remote.Enabled {
		app.Summary.TrackInfrastructure("catalog", "remote", cfg.Registry.Remote.Prefix)
	}
	app.Summary.TrackInfrastructure("storage", cfg.Storage.Provider, storageDetails(cfg))
	if cfg.Formatter.Enabled {
		app.Summary.TrackInfrastructure("formatter", "process", cfg.Formatter.Binary)
	}

	limiter := middleware.NewRateLimiter(cfg.Server.RateLimit)
	limiterCtx, stopLimiter := context.WithCancel(context.WithoutCancel(ctx))

	srv := server.New(cfg.Server, log)
	srv.ApplyMiddleware()
	srv.RegisterAPI(server.API{
		Service:    cfg.Name,
		Version:    cfg.Version,
		Transpiler: d.service,
		Store:      d.store,
		Limiter:    limiter,
		Checkers:   d.checkers,
	})
	for _, r := range srv.Routes() {
		app.Summary.TrackRoute(r.Method, r.Path, r.Handler)
	}

	app.OnStart(func(ctx context.Context) error {
		go limiter.Run(limiterCtx)
		return srv.Start(ctx)
	})
	app.OnStop(func(ctx context.Context) error {
		stopLimiter()
		return srv.Stop(ctx)
	})
	return app, nil
}

func storageDetails(cfg *AppConfig) string {
	switch cfg.Storage.Provider {
	case storage.ProviderS3:
		return cfg.Storage.Bucket
	case storage.ProviderLocal:
		return cfg.Storage.BasePath
	}
	return ""
}
