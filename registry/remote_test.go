package registry

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kbukum/flowtorch/errors"
	"github.com/kbukum/flowtorch/plugin"
	"github.com/kbukum/flowtorch/storage"
	"github.com/kbukum/flowtorch/storage/memory"
)

func manifestDoc(slug, version string) []byte {
	return []byte(fmt.Sprintf("slug: %s\nname: %s\nversion: %q\ntemplate: '%s@%s'\n", slug, slug, version, slug, version))
}

func testRemote(store storage.Storage) *Remote {
	return NewRemote(store, RemoteConfig{
		Enabled:         true,
		MaxAttempts:     3,
		InitialBackoff:  time.Millisecond,
		BreakerFailures: 2,
	}, nil)
}

func generate(t *testing.T, p plugin.Plugin) string {
	t.Helper()
	res := p.Validate(nil)
	if !res.Valid {
		t.Fatalf("Validate: %v", res.Errors)
	}
	out, err := p.Generate(res.Settings, nil, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	return out
}

func TestRemote_ResolveLatestByModTime(t *testing.T) {
	store := memory.New()
	store.Put("plugins/@community/dense/2.0.0/plugin.yaml", manifestDoc("dense", "2.0.0"), t0)
	store.Put("plugins/@community/dense/1.5.0/plugin.yaml", manifestDoc("dense", "1.5.0"), t0.Add(time.Hour))
	store.Put("plugins/@community/dense-extra/9.0.0/plugin.yaml", manifestDoc("dense-extra", "9.0.0"), t0.Add(2*time.Hour))

	p, err := testRemote(store).Resolve(context.Background(), "dense")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := generate(t, p); got != "dense@1.5.0" {
		t.Errorf("expected most recently published version, got %q", got)
	}
	def := p.Definition()
	if def.Namespace != "community" || !def.CreatedAt.Equal(t0.Add(time.Hour)) {
		t.Errorf("expected namespace and creation time filled in, got %+v", def)
	}
}

func TestRemote_ResolveExactVersion(t *testing.T) {
	store := memory.New()
	store.Put("plugins/@acme/dense/1.0.0/plugin.yaml", []byte("slug: dense\ntemplate: v1\n"), t0)

	p, err := testRemote(store).Resolve(context.Background(), "@acme/dense:1.0.0")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if v := p.Definition().Version; v != "1.0.0" {
		t.Errorf("expected version from key, got %q", v)
	}

	_, err = testRemote(store).Resolve(context.Background(), "@acme/dense:2.0.0")
	if !errors.Is(err, errors.ErrCodePluginNotFound) {
		t.Errorf("expected PLUGIN_NOT_FOUND, got %v", err)
	}
}

func TestRemote_NotFound(t *testing.T) {
	_, err := testRemote(memory.New()).Resolve(context.Background(), "ghost")
	if !errors.Is(err, errors.ErrCodePluginNotFound) {
		t.Errorf("expected PLUGIN_NOT_FOUND, got %v", err)
	}
}

func TestRemote_SlugMismatch(t *testing.T) {
	store := memory.New()
	store.Put("plugins/@community/dense/1.0.0/plugin.yaml", manifestDoc("other", "1.0.0"), t0)
	_, err := testRemote(store).Resolve(context.Background(), "dense")
	if !errors.Is(err, errors.ErrCodeExternalService) {
		t.Errorf("expected EXTERNAL_SERVICE_ERROR, got %v", err)
	}
}

func TestRemote_List(t *testing.T) {
	store := memory.New()
	store.Put("plugins/@community/dense/1.0.0/plugin.yaml", manifestDoc("dense", "1.0.0"), t0)
	store.Put("plugins/@community/dense/1.1.0/plugin.yaml", manifestDoc("dense", "1.1.0"), t0.Add(time.Minute))
	store.Put("plugins/@acme/gelu/0.1.0/plugin.yaml", manifestDoc("gelu", "0.1.0"), t0)
	store.Put("plugins/@acme/broken/0.1.0/plugin.yaml", []byte("name: no slug"), t0)
	store.Put("plugins/README.md", []byte("ignored"), t0)

	defs, err := testRemote(store).List(context.Background())
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(defs) != 2 {
		t.Fatalf("expected 2 definitions, got %d", len(defs))
	}
	if defs[0].Slug != "dense" || defs[0].Version != "1.1.0" || defs[1].Slug != "gelu" {
		t.Errorf("unexpected listing %s %s %s", defs[0].Slug, defs[0].Version, defs[1].Slug)
	}
}

// flakyStore fails the first n List calls.
type flakyStore struct {
	*memory.Storage
	failures int32
	calls    int32
}

func (f *flakyStore) List(ctx context.Context, prefix string) ([]storage.FileInfo, error) {
	if atomic.AddInt32(&f.calls, 1) <= f.failures {
		return nil, stderrors.New("connection reset")
	}
	return f.Storage.List(ctx, prefix)
}

func TestRemote_RetriesTransientErrors(t *testing.T) {
	store := &flakyStore{Storage: memory.New(), failures: 1}
	store.Put("plugins/@community/dense/1.0.0/plugin.yaml", manifestDoc("dense", "1.0.0"), t0)

	if _, err := testRemote(store).Resolve(context.Background(), "dense"); err != nil {
		t.Fatalf("expected retry to recover, got %v", err)
	}
	if store.calls != 2 {
		t.Errorf("expected 2 list calls, got %d", store.calls)
	}
}

func TestRemote_BreakerOpens(t *testing.T) {
	store := &flakyStore{Storage: memory.New(), failures: 1000}
	r := NewRemote(store, RemoteConfig{MaxAttempts: 1, BreakerFailures: 2}, nil)

	for i := 0; i < 2; i++ {
		_, err := r.Resolve(context.Background(), "dense")
		if !errors.Is(err, errors.ErrCodeExternalService) {
			t.Fatalf("call %d: expected EXTERNAL_SERVICE_ERROR, got %v", i, err)
		}
	}
	_, err := r.Resolve(context.Background(), "dense")
	if !errors.Is(err, errors.ErrCodeServiceUnavailable) {
		t.Errorf("expected SERVICE_UNAVAILABLE once open, got %v", err)
	}
	if store.calls != 2 {
		t.Errorf("expected open breaker to skip storage, got %d calls", store.calls)
	}
}

func TestRemote_NotFoundDoesNotTripBreaker(t *testing.T) {
	r := NewRemote(memory.New(), RemoteConfig{MaxAttempts: 1, BreakerFailures: 1}, nil)
	for i := 0; i < 3; i++ {
		_, err := r.Resolve(context.Background(), "@acme/x:1.0.0")
		if !errors.Is(err, errors.ErrCodePluginNotFound) {
			t.Fatalf("expected PLUGIN_NOT_FOUND, got %v", err)
		}
	}
}

// blockingStore never returns from Download until ctx is done.
type blockingStore struct{ *memory.Storage }

func (b blockingStore) Download(ctx context.Context, _ string) (io.ReadCloser, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestRemote_ContextCanceled(t *testing.T) {
	store := blockingStore{memory.New()}
	store.Put("plugins/@community/dense/1.0.0/plugin.yaml", manifestDoc("dense", "1.0.0"), t0)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := testRemote(store).Resolve(ctx, "dense")
	if !stderrors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
}
