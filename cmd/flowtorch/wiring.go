package main

import (
	"context"
	"fmt"

	"github.com/kbukum/flowtorch/formatter"
	"github.com/kbukum/flowtorch/logger"
	"github.com/kbukum/flowtorch/observability"
	"github.com/kbukum/flowtorch/plugins/torch"
	"github.com/kbukum/flowtorch/process"
	"github.com/kbukum/flowtorch/registry"
	"github.com/kbukum/flowtorch/storage"
	"github.com/kbukum/flowtorch/transpiler"

	_ "github.com/kbukum/flowtorch/storage/local"
	_ "github.com/kbukum/flowtorch/storage/memory"
	_ "github.com/kbukum/flowtorch/storage/s3"
)

// healthProbeKey is looked up to check that storage answers.
const healthProbeKey = ".flowtorch-health"

// deps are the components shared by every command.
type deps struct {
	local     *registry.Local
	resolver  registry.Resolver
	store     storage.Storage
	formatter formatter.Formatter
	service   *transpiler.Service
	checkers  []observability.HealthChecker
}

// needsStorage reports whether cfg uses the configured storage backend.
func needsStorage(cfg *AppConfig, export bool) bool {
	return cfg.Registry.Remote.Enabled || export
}

// wire builds the plugin registry, storage, formatter and transpiler from
// cfg. Storage is only opened when withStorage is set.
func wire(ctx context.Context, cfg *AppConfig, metrics *observability.Metrics, withStorage bool, log *logger.Logger) (*deps, error) {
	d := &deps{local: registry.NewLocal()}
	if err := torch.Register(d.local); err != nil {
		return nil, fmt.Errorf("registering built-in plugins: %w", err)
	}
	d.resolver = d.local
	d.checkers = append(d.checkers, registryHealth(d.local))

	if withStorage {
		store, err := storage.New(ctx, cfg.Storage, log)
		if err != nil {
			return nil, err
		}
		d.store = store
		d.checkers = append(d.checkers, storageHealth(store, cfg.Storage.Provider))
	}
	if cfg.Registry.Remote.Enabled {
		if d.store == nil {
			return nil, fmt.Errorf("registry.remote requires storage")
		}
		d.resolver = registry.Chain{d.local, registry.NewRemote(d.store, cfg.Registry.Remote, log)}
	}

	d.formatter = formatter.New(cfg.Formatter, log)
	d.checkers = append(d.checkers, formatterHealth(cfg.Formatter))

	d.service = transpiler.NewService(d.resolver, cfg.Transpiler,
		transpiler.WithLogger(log),
		transpiler.WithMetrics(metrics),
		transpiler.WithFormatter(d.formatter),
		transpiler.WithFetchParallel(cfg.Registry.MaxParallel),
	)
	return d, nil
}

// setupTelemetry installs OpenTelemetry providers and the transpile
// metrics. Disabled telemetry yields nil metrics.
func setupTelemetry(ctx context.Context, cfg *AppConfig) (*observability.Metrics, func(context.Context) error, error) {
	shutdown, err := observability.Setup(ctx, cfg.Observability, cfg.Name, cfg.Version)
	if err != nil {
		return nil, shutdown, fmt.Errorf("observability: %w", err)
	}
	if !cfg.Observability.Enabled {
		return nil, shutdown, nil
	}
	metrics, err := observability.NewMetrics(observability.Meter())
	if err != nil {
		return nil, shutdown, fmt.Errorf("observability: %w", err)
	}
	return metrics, shutdown, nil
}

func registryHealth(local *registry.Local) observability.HealthChecker {
	return observability.HealthFunc(func(context.Context) observability.Health {
		h := observability.Health{Name: "registry", Status: observability.HealthStatusUp}
		if local.Len() == 0 {
			h.Status = observability.HealthStatusDegraded
			h.Message = "no built-in plugins registered"
		}
		h.Details = map[string]string{"plugins": fmt.Sprint(local.Len())}
		return h
	})
}

func storageHealth(store storage.Storage, provider string) observability.HealthChecker {
	return observability.HealthFunc(func(ctx context.Context) observability.Health {
		h := observability.Health{Name: "storage", Status: observability.HealthStatusUp, Details: map[string]string{"provider": provider}}
		if _, err := store.Exists(ctx, healthProbeKey); err != nil {
			h.Status = observability.HealthStatusDown
			h.Message = err.Error()
		}
		return h
	})
}

// formatterHealth is degraded, never down: artifacts are still served
// unformatted when the formatter is missing.
func formatterHealth(cfg formatter.Config) observability.HealthChecker {
	return observability.HealthFunc(func(context.Context) observability.Health {
		h := observability.Health{Name: "formatter", Status: observability.HealthStatusUp}
		if !cfg.Enabled {
			h.Message = "disabled"
			return h
		}
		h.Details = map[string]string{"binary": cfg.Binary}
		if _, err := process.LookPath(cfg.Binary); err != nil {
			h.Status = observability.HealthStatusDegraded
			h.Message = err.Error()
		}
		return h
	})
}
