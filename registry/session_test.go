package registry

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/flowtorch/errors"
	"github.com/kbukum/flowtorch/plugin"
)

// countingResolver records how often each type is fetched and can hold
// fetches until released.
type countingResolver struct {
	inner Resolver
	gate  chan struct{}
	calls atomic.Int32
}

func (c *countingResolver) Resolve(ctx context.Context, typ string) (plugin.Plugin, error) {
	c.calls.Add(1)
	if c.gate != nil {
		select {
		case <-c.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return c.inner.Resolve(ctx, typ)
}

func TestSession_SharesConcurrentLookups(t *testing.T) {
	local := NewLocal()
	local.MustRegister(testPlugin("core", "linear", "1.0.0", t0))
	cr := &countingResolver{inner: local, gate: make(chan struct{})}
	s := NewSession(cr, 4)

	var wg sync.WaitGroup
	results := make([]plugin.Plugin, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := s.Resolve(context.Background(), "linear")
			if err != nil {
				t.Errorf("Resolve: %v", err)
			}
			results[i] = p
		}(i)
	}
	time.Sleep(10 * time.Millisecond)
	close(cr.gate)
	wg.Wait()

	if n := cr.calls.Load(); n != 1 {
		t.Errorf("expected a single fetch, got %d", n)
	}
	for _, p := range results {
		if p != results[0] {
			t.Fatal("expected every caller to get the same plugin")
		}
	}
}

func TestSession_PinsLatest(t *testing.T) {
	local := NewLocal()
	local.MustRegister(testPlugin("core", "conv2d", "1.0.0", t0))
	s := NewSession(local, 1)

	first, err := s.Resolve(context.Background(), "conv2d")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	local.MustRegister(testPlugin("core", "conv2d", "2.0.0", t0.Add(time.Hour)))

	for _, typ := range []string{"conv2d", "CONV2D", "conv2d:latest"} {
		p, _ := s.Resolve(context.Background(), typ)
		if versionOf(p) != versionOf(first) {
			t.Errorf("Resolve(%q) = %s, expected pinned %s", typ, versionOf(p), versionOf(first))
		}
	}
	if s.Resolved() != 1 {
		t.Errorf("expected 1 cached entry, got %d", s.Resolved())
	}
}

func TestSession_CachesFailures(t *testing.T) {
	cr := &countingResolver{inner: NewLocal()}
	s := NewSession(cr, 1)
	for i := 0; i < 3; i++ {
		_, err := s.Resolve(context.Background(), "ghost")
		if !errors.Is(err, errors.ErrCodePluginNotFound) {
			t.Fatalf("expected PLUGIN_NOT_FOUND, got %v", err)
		}
	}
	if n := cr.calls.Load(); n != 1 {
		t.Errorf("expected failure to be cached, got %d fetches", n)
	}
}

func TestSession_DoesNotCacheCancellation(t *testing.T) {
	local := NewLocal()
	local.MustRegister(testPlugin("core", "linear", "1.0.0", t0))
	cr := &countingResolver{inner: local, gate: make(chan struct{})}
	s := NewSession(cr, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.Resolve(ctx, "linear"); err == nil {
		t.Fatal("expected cancellation error")
	}

	close(cr.gate)
	if _, err := s.Resolve(context.Background(), "linear"); err != nil {
		t.Errorf("expected retry after cancellation to succeed, got %v", err)
	}
}

func TestSession_Prefetch(t *testing.T) {
	local := NewLocal()
	local.MustRegister(
		testPlugin("core", "linear", "1.0.0", t0),
		testPlugin("core", "relu", "1.0.0", t0),
	)
	cr := &countingResolver{inner: local}
	s := NewSession(cr, 2)

	failures, err := s.Prefetch(context.Background(), []string{"linear", "relu", "LINEAR", "ghost", "relu"})
	if err != nil {
		t.Fatalf("Prefetch: %v", err)
	}
	if len(failures) != 1 || !errors.Is(failures["ghost"], errors.ErrCodePluginNotFound) {
		t.Errorf("expected only ghost to fail, got %v", failures)
	}
	if n := cr.calls.Load(); n != 3 {
		t.Errorf("expected 3 distinct fetches, got %d", n)
	}
	if _, err := s.Resolve(context.Background(), "relu"); err != nil || cr.calls.Load() != 3 {
		t.Errorf("expected prefetched type to be served from cache")
	}
}

func TestSession_PrefetchCanceled(t *testing.T) {
	cr := &countingResolver{inner: NewLocal(), gate: make(chan struct{})}
	s := NewSession(cr, 2)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := s.Prefetch(ctx, []string{"a", "b", "c"}); err == nil {
		t.Error("expected context error")
	}
}
