package bootstrap

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/kbukum/flowtorch/logger"
	"github.com/kbukum/flowtorch/observability"
)

// App runs a flowtorch process with a uniform lifecycle. C is the
// application config type.
//
//	app, err := bootstrap.NewApp(&cfg)
//	app.OnStart(srv.Start)
//	app.OnStop(srv.Stop)
//	err = app.Run(ctx)
type App[C Config] struct {
	Name    string
	Version string
	Cfg     C
	Logger  *logger.Logger
	Summary *Summary

	gracefulTimeout time.Duration
	output          io.Writer
	checkers        []observability.HealthChecker

	onStart []Hook
	onReady []Hook
	onStop  []Hook
}

// NewApp applies defaults to cfg, validates it and creates the app.
func NewApp[C Config](cfg C, opts ...Option) (*App[C], error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	base := cfg.GetServiceConfig()

	app := &App[C]{
		Name:            base.Name,
		Version:         base.Version,
		Cfg:             cfg,
		gracefulTimeout: 15 * time.Second,
		output:          os.Stderr,
	}

	o := resolveOptions(opts)
	if o.gracefulTimeout != nil {
		app.gracefulTimeout = *o.gracefulTimeout
	}
	if o.output != nil {
		app.output = o.output
	}
	if o.logger != nil {
		app.Logger = o.logger
	} else {
		logger.Init(base.Logging)
		app.Logger = logger.GetGlobalLogger()
	}

	app.Summary = NewSummary(base.Name, base.Version)
	return app, nil
}

// AddHealthCheck registers checkers used by ReadyCheck and the summary.
func (a *App[C]) AddHealthCheck(checkers ...observability.HealthChecker) {
	a.checkers = append(a.checkers, checkers...)
}

// HealthCheckers returns the registered checkers.
func (a *App[C]) HealthCheckers() []observability.HealthChecker {
	return a.checkers
}

// ReadyCheck runs the health checkers and fails when any component is down.
func (a *App[C]) ReadyCheck(ctx context.Context) (*observability.ServiceHealth, error) {
	sh := observability.Check(ctx, a.Name, a.Version, a.checkers...)
	if sh.Status != observability.HealthStatusDown {
		return sh, nil
	}
	var down []string
	for _, h := range sh.Components {
		if h.Status == observability.HealthStatusDown {
			down = append(down, h.Name)
		}
	}
	return sh, fmt.Errorf("unhealthy components: %s", strings.Join(down, ", "))
}

// Run starts the app, blocks until a signal or ctx is done, then shuts
// down gracefully.
func (a *App[C]) Run(ctx context.Context) error {
	if err := a.startup(ctx); err != nil {
		return a.abort(err)
	}
	a.Logger.Info("Application ready, waiting for shutdown signal")
	a.WaitForSignal(ctx)
	return a.stop()
}

// RunTask starts the app, runs a finite task and shuts down. SIGINT and
// SIGTERM cancel the task's context.
func (a *App[C]) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	if err := a.startup(ctx); err != nil {
		return a.abort(err)
	}

	taskCtx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	taskErr := task(taskCtx)

	if stopErr := a.stop(); stopErr != nil && taskErr == nil {
		return stopErr
	}
	return taskErr
}

func (a *App[C]) startup(ctx context.Context) error {
	start := time.Now()
	a.Logger.Debug("Starting application", logger.Fields("name", a.Name, "version", a.Version))

	if err := runHooks(ctx, a.onStart); err != nil {
		return fmt.Errorf("onStart hook failed: %w", err)
	}

	sh, err := a.ReadyCheck(ctx)
	if err != nil {
		a.Logger.Warn("Ready check reported issues", logger.Fields(logger.FieldError, err.Error()))
	}
	a.Summary.SetHealth(sh)

	if err := runHooks(ctx, a.onReady); err != nil {
		return fmt.Errorf("onReady hook failed: %w", err)
	}

	a.Summary.SetStartupDuration(time.Since(start))
	a.DisplaySummary()
	return nil
}

// abort runs the stop hooks after a failed startup and returns err.
func (a *App[C]) abort(err error) error {
	if stopErr := a.stop(); stopErr != nil {
		a.Logger.Warn("Cleanup after failed startup reported errors", logger.Fields(logger.FieldError, stopErr.Error()))
	}
	return err
}

// DisplaySummary writes the startup summary to the configured output.
func (a *App[C]) DisplaySummary() {
	_, _ = io.WriteString(a.output, a.Summary.Render())
}

// WaitForSignal blocks until SIGINT, SIGTERM or ctx cancellation.
func (a *App[C]) WaitForSignal(ctx context.Context) os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.Logger.Info("Received shutdown signal", logger.Fields("signal", sig.String()))
		return sig
	case <-ctx.Done():
		a.Logger.Info("Context canceled, shutting down")
		return nil
	}
}

// Shutdown runs the stop hooks. Use it when managing the lifecycle by hand.
func (a *App[C]) Shutdown() error {
	return a.stop()
}

func (a *App[C]) stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.gracefulTimeout)
	defer cancel()

	hooks := a.onStop
	a.onStop = nil
	if err := runStopHooks(ctx, hooks); err != nil {
		a.Logger.Error("Shutdown completed with errors", logger.Fields(logger.FieldError, err.Error()))
		return err
	}
	a.Logger.Debug("Application stopped")
	return nil
}
