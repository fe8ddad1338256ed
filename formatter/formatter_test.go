package formatter

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/flowtorch/errors"
)

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if cfg.Binary != DefaultBinary || len(cfg.Args) != 2 || cfg.Args[0] != "format" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.Timeout != DefaultTimeout || cfg.MaxConcurrent != DefaultMaxConcurrent {
		t.Errorf("unexpected defaults %+v", cfg)
	}

	custom := Config{Binary: "black"}
	custom.ApplyDefaults()
	if len(custom.Args) != 0 {
		t.Errorf("custom binary must not inherit default args, got %v", custom.Args)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"disabled", Config{}, false},
		{"enabled", Config{Enabled: true, Binary: "ruff", Timeout: time.Second}, false},
		{"no binary", Config{Enabled: true, Timeout: time.Second}, true},
		{"no timeout", Config{Enabled: true, Binary: "ruff"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNew_DisabledIsNop(t *testing.T) {
	if _, ok := New(Config{}, nil).(Nop); !ok {
		t.Error("expected Nop formatter when disabled")
	}
	if _, ok := New(Config{Enabled: true}, nil).(*Command); !ok {
		t.Error("expected Command formatter when enabled")
	}
}

func TestEnabled(t *testing.T) {
	tests := []struct {
		name string
		f    Formatter
		want bool
	}{
		{"nil", nil, false},
		{"nop", Nop{}, false},
		{"disabled config", New(Config{}, nil), false},
		{"command", NewCommand(Config{Binary: "ruff"}, nil), true},
		{"func", Func(func(_ context.Context, src string) (string, error) { return src, nil }), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Enabled(tt.f); got != tt.want {
				t.Errorf("Enabled() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCommand_Format(t *testing.T) {
	f := NewCommand(Config{Binary: "tr", Args: []string{"a-z", "A-Z"}}, nil)
	out, err := f.Format(context.Background(), "x = 1\n")
	if err != nil {
		t.Fatalf("Format: %v", err)
	}
	if out != "X = 1\n" {
		t.Errorf("got %q", out)
	}
}

func TestCommand_Unavailable(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing binary", Config{Binary: "flowtorch-no-such-formatter"}},
		{"non-zero exit", Config{Binary: "sh", Args: []string{"-c", "echo 'error: cannot parse' >&2; exit 2"}}},
		{"empty output", Config{Binary: "true"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCommand(tt.cfg, nil).Format(context.Background(), "x = (\n")
			if !errors.Is(err, errors.ErrCodeFormatterUnavailable) {
				t.Errorf("expected FORMATTER_UNAVAILABLE, got %v", err)
			}
		})
	}
}

func TestCommand_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewCommand(Config{Binary: "cat"}, nil).Format(ctx, "x = 1\n")
	if err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestCommand_CapsConcurrency(t *testing.T) {
	f := NewCommand(Config{Binary: "sh", Args: []string{"-c", "sleep 0.1; cat"}, MaxConcurrent: 1}, nil)
	var wg sync.WaitGroup
	var failed atomic.Int32
	start := time.Now()
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.Format(context.Background(), "x\n"); err != nil {
				failed.Add(1)
			}
		}()
	}
	wg.Wait()
	if failed.Load() != 0 {
		t.Fatalf("%d runs failed", failed.Load())
	}
	if elapsed := time.Since(start); elapsed < 250*time.Millisecond {
		t.Errorf("expected serialized runs, took %v", elapsed)
	}
}

func TestApply(t *testing.T) {
	broken := Func(func(context.Context, string) (string, error) { return "", fmt.Errorf("crashed") })
	upper := Func(func(_ context.Context, src string) (string, error) { return "formatted:" + src, nil })

	out, warn, err := Apply(context.Background(), upper, "x")
	if err != nil || warn != nil || out != "formatted:x" {
		t.Errorf("unexpected result %q %v %v", out, warn, err)
	}

	out, warn, err = Apply(context.Background(), broken, "x")
	if err != nil {
		t.Fatalf("Apply must not fail on formatter errors: %v", err)
	}
	if out != "x" {
		t.Errorf("expected unformatted source, got %q", out)
	}
	if warn == nil || warn.Code != errors.ErrCodeFormatterUnavailable {
		t.Errorf("expected FORMATTER_UNAVAILABLE warning, got %v", warn)
	}

	out, warn, err = Apply(context.Background(), nil, "x")
	if out != "x" || warn != nil || err != nil {
		t.Errorf("nil formatter must pass through, got %q %v %v", out, warn, err)
	}
}

func TestApply_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := Func(func(ctx context.Context, _ string) (string, error) { return "", ctx.Err() })
	if _, _, err := Apply(ctx, f, "x"); err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
