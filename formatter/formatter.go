package formatter

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/kbukum/flowtorch/errors"
	"github.com/kbukum/flowtorch/logger"
	"github.com/kbukum/flowtorch/process"
	"github.com/kbukum/flowtorch/resilience"
)

// Formatter rewrites generated source into its canonical layout.
type Formatter interface {
	Format(ctx context.Context, src string) (string, error)
}

// Func adapts a function to Formatter.
type Func func(ctx context.Context, src string) (string, error)

// Format calls f.
func (f Func) Format(ctx context.Context, src string) (string, error) { return f(ctx, src) }

// Nop returns source unchanged.
type Nop struct{}

// Format returns src.
func (Nop) Format(_ context.Context, src string) (string, error) { return src, nil }

// Enabled reports whether f rewrites source at all.
func Enabled(f Formatter) bool {
	if f == nil {
		return false
	}
	_, nop := f.(Nop)
	return !nop
}

// Command pipes source through an external binary. Concurrent runs are
// capped by a bulkhead.
type Command struct {
	cfg      Config
	bulkhead *resilience.Bulkhead
	log      *logger.Logger
}

// NewCommand creates a Command formatter from cfg.
func NewCommand(cfg Config, log *logger.Logger) *Command {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.Nop()
	}
	log = log.WithComponent("formatter")
	return &Command{
		cfg: cfg,
		bulkhead: resilience.NewBulkhead(resilience.BulkheadConfig{
			Name:          "formatter",
			MaxConcurrent: cfg.MaxConcurrent,
			MaxWait:       -1,
			OnReject: func(name string, err error) {
				log.Debug("formatter slot not acquired", logger.Fields("bulkhead", name, logger.FieldError, err.Error()))
			},
		}),
		log: log,
	}
}

// New returns a Command formatter when cfg is enabled and Nop otherwise.
func New(cfg Config, log *logger.Logger) Formatter {
	if !cfg.Enabled {
		return Nop{}
	}
	return NewCommand(cfg, log)
}

// Format runs the binary with src on stdin and returns its stdout. A
// missing binary, a non-zero exit or empty output for non-empty source
// is FORMATTER_UNAVAILABLE. Context errors are returned as is.
func (c *Command) Format(ctx context.Context, src string) (string, error) {
	return resilience.Do(ctx, c.bulkhead, func() (string, error) {
		start := time.Now()
		res, err := process.Run(ctx, process.Command{
			Binary:  c.cfg.Binary,
			Args:    c.cfg.Args,
			Stdin:   strings.NewReader(src),
			Timeout: c.cfg.Timeout,
		})
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", errors.FormatterUnavailable(c.cfg.Binary, err)
		}
		out := res.Stdout
		if len(bytes.TrimSpace(out)) == 0 && strings.TrimSpace(src) != "" {
			return "", errors.FormatterUnavailable(c.cfg.Binary, fmt.Errorf("formatter: empty output"))
		}
		c.log.Debug("source formatted", logger.DurationFields("format", time.Since(start)))
		return string(out), nil
	})
}

// Apply formats src on a best-effort basis. When formatting fails the
// unformatted source is returned together with the failure as a warning.
// Only context errors are returned as err.
func Apply(ctx context.Context, f Formatter, src string) (out string, warning *errors.AppError, err error) {
	if f == nil {
		return src, nil, nil
	}
	formatted, ferr := f.Format(ctx, src)
	if ferr == nil {
		return formatted, nil, nil
	}
	if stderrors.Is(ferr, context.Canceled) || stderrors.Is(ferr, context.DeadlineExceeded) {
		if ctx.Err() != nil {
			return "", nil, ferr
		}
	}
	appErr, ok := errors.AsAppError(ferr)
	if !ok {
		appErr = errors.FormatterUnavailable("formatter", ferr)
	}
	return src, appErr, nil
}
