package observability

import (
	"context"
	stderrors "errors"
)

// Setup installs the tracer and meter providers when cfg is enabled. The
// returned function flushes and shuts both down; it is never nil.
func Setup(ctx context.Context, cfg Config, service, version string) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if !cfg.Enabled {
		return noop, nil
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return noop, err
	}

	tp, err := InitTracer(ctx, cfg, service, version)
	if err != nil {
		return noop, err
	}
	mp, err := InitMeter(ctx, cfg, service, version)
	if err != nil {
		return tp.Shutdown, err
	}
	return func(ctx context.Context) error {
		return stderrors.Join(tp.Shutdown(ctx), mp.Shutdown(ctx))
	}, nil
}
