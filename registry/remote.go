package registry

import (
	"context"
	stderrors "errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/kbukum/flowtorch/errors"
	"github.com/kbukum/flowtorch/logger"
	"github.com/kbukum/flowtorch/plugin"
	"github.com/kbukum/flowtorch/resilience"
	"github.com/kbukum/flowtorch/storage"
)

// Remote resolves plugins from manifests in object storage laid out as
// <prefix>/@<namespace>/<name>/<version>/plugin.yaml.
type Remote struct {
	store   storage.Storage
	cfg     RemoteConfig
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
	log     *logger.Logger
}

// NewRemote creates a storage-backed resolver.
func NewRemote(store storage.Storage, cfg RemoteConfig, log *logger.Logger) *Remote {
	cfg.ApplyDefaults()
	if log == nil {
		log = logger.Nop()
	}
	l := log.WithComponent("registry.remote")

	retry := resilience.DefaultRetryConfig()
	retry.MaxAttempts = cfg.MaxAttempts
	retry.InitialBackoff = cfg.InitialBackoff
	retry.RetryIf = func(err error) bool {
		return resilience.DefaultRetryIf(err) &&
			!stderrors.Is(err, storage.ErrNotFound) &&
			!stderrors.Is(err, resilience.ErrCircuitOpen)
	}
	retry.OnRetry = func(attempt int, err error, backoff time.Duration) {
		l.Warn("retrying plugin storage call", logger.Fields("attempt", attempt, "error", err.Error(), "backoff_ms", backoff.Milliseconds()))
	}

	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:        "plugin-storage",
		MaxFailures: cfg.BreakerFailures,
		Timeout:     cfg.BreakerOpenDelay,
		IsFailure: func(err error) bool {
			return err != nil && !stderrors.Is(err, storage.ErrNotFound) && !isContextErr(err)
		},
		OnStateChange: func(name string, from, to resilience.State) {
			l.Warn("circuit breaker state changed", logger.Fields("breaker", name, "from", from.String(), "to", to.String()))
		},
	})

	return &Remote{store: store, cfg: cfg, retry: retry, breaker: breaker, log: l}
}

// Resolve fetches and compiles the manifest for typ. Without a version the
// most recently modified manifest of the plugin wins, ties broken by path.
func (r *Remote) Resolve(ctx context.Context, typ string) (plugin.Plugin, error) {
	ref, err := plugin.ParseRef(typ)
	if err != nil {
		return nil, errors.PluginNotFound(typ).WithCause(err)
	}
	if ref.Namespace == "" {
		ref.Namespace = r.cfg.Namespace
	}

	var (
		key      string
		modified time.Time
	)
	if ref.Latest() {
		info, err := r.latest(ctx, ref)
		if err != nil {
			return nil, r.classify(typ, err)
		}
		key, modified = info.Path, info.LastModified
	} else {
		key = r.manifestKey(ref)
		exists, err := r.exists(ctx, key)
		if err != nil {
			return nil, r.classify(typ, err)
		}
		if !exists {
			return nil, errors.PluginNotFound(typ)
		}
	}

	data, err := r.download(ctx, key)
	if err != nil {
		return nil, r.classify(typ, err)
	}
	m, err := ParseManifest(data)
	if err != nil {
		return nil, errors.ExternalServiceError("plugin registry", err).WithDetail("plugin", typ)
	}
	if m.Slug != ref.Name || (m.Namespace != "" && m.Namespace != ref.Namespace) {
		return nil, errors.ExternalServiceError("plugin registry",
			fmt.Errorf("manifest %s declares %s", key, m.Ref())).WithDetail("plugin", typ)
	}
	if m.Namespace == "" {
		m.Namespace = ref.Namespace
	}
	if m.Version == "" {
		m.Version = versionFromKey(key)
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = modified
	}

	p, err := m.Compile()
	if err != nil {
		return nil, errors.ExternalServiceError("plugin registry", err).WithDetail("plugin", typ)
	}
	r.log.Debug("resolved remote plugin", logger.Fields(logger.FieldPlugin, p.Def.Ref().String(), "key", key))
	return p, nil
}

// List returns the newest manifest definition of every remote plugin.
func (r *Remote) List(ctx context.Context) ([]*plugin.Definition, error) {
	infos, err := r.list(ctx, r.cfg.Prefix+"/")
	if err != nil {
		return nil, r.classify("", err)
	}
	newest := make(map[string]storage.FileInfo)
	for _, info := range manifests(infos) {
		dir := path.Dir(path.Dir(info.Path))
		if cur, ok := newest[dir]; !ok || newerObject(info, cur) {
			newest[dir] = info
		}
	}

	defs := make([]*plugin.Definition, 0, len(newest))
	for _, info := range newest {
		data, err := r.download(ctx, info.Path)
		if err != nil {
			return nil, r.classify("", err)
		}
		m, err := ParseManifest(data)
		if err != nil {
			r.log.Warn("skipping invalid manifest", logger.Fields("key", info.Path, "error", err.Error()))
			continue
		}
		def := m.Definition
		if def.Version == "" {
			def.Version = versionFromKey(info.Path)
		}
		defs = append(defs, &def)
	}
	sortDefinitions(defs)
	return defs, nil
}

func (r *Remote) manifestKey(ref plugin.Ref) string {
	return path.Join(r.cfg.Prefix, "@"+ref.Namespace, ref.Name, ref.Version, ManifestFile)
}

func (r *Remote) latest(ctx context.Context, ref plugin.Ref) (storage.FileInfo, error) {
	dir := path.Join(r.cfg.Prefix, "@"+ref.Namespace, ref.Name) + "/"
	infos, err := r.list(ctx, dir)
	if err != nil {
		return storage.FileInfo{}, err
	}
	var best *storage.FileInfo
	for _, info := range manifests(infos) {
		if path.Dir(path.Dir(info.Path))+"/" != dir {
			continue
		}
		if best == nil || newerObject(info, *best) {
			best = &info
		}
	}
	if best == nil {
		return storage.FileInfo{}, storage.ErrNotFound
	}
	return *best, nil
}

func newerObject(a, b storage.FileInfo) bool {
	if !a.LastModified.Equal(b.LastModified) {
		return a.LastModified.After(b.LastModified)
	}
	return a.Path > b.Path
}

func manifests(infos []storage.FileInfo) []storage.FileInfo {
	out := infos[:0:0]
	for _, info := range infos {
		info.Path = strings.ReplaceAll(info.Path, "\\", "/")
		if path.Base(info.Path) == ManifestFile {
			out = append(out, info)
		}
	}
	return out
}

func versionFromKey(key string) string {
	return path.Base(path.Dir(key))
}

// --- storage calls guarded by retry and the circuit breaker ---

func (r *Remote) list(ctx context.Context, prefix string) ([]storage.FileInfo, error) {
	return resilience.Retry(ctx, r.retry, func() ([]storage.FileInfo, error) {
		var out []storage.FileInfo
		err := r.breaker.Execute(func() error {
			var err error
			out, err = r.store.List(ctx, prefix)
			return err
		})
		return out, err
	})
}

func (r *Remote) exists(ctx context.Context, key string) (bool, error) {
	return resilience.Retry(ctx, r.retry, func() (bool, error) {
		var ok bool
		err := r.breaker.Execute(func() error {
			var err error
			ok, err = r.store.Exists(ctx, key)
			return err
		})
		return ok, err
	})
}

func (r *Remote) download(ctx context.Context, key string) ([]byte, error) {
	return resilience.Retry(ctx, r.retry, func() ([]byte, error) {
		var data []byte
		err := r.breaker.Execute(func() error {
			var err error
			data, err = storage.ReadAll(ctx, r.store, key)
			return err
		})
		return data, err
	})
}

// classify maps storage failures onto registry errors.
func (r *Remote) classify(typ string, err error) error {
	switch {
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		return err
	case stderrors.Is(err, storage.ErrNotFound):
		return errors.PluginNotFound(typ)
	case stderrors.Is(err, resilience.ErrCircuitOpen):
		return errors.ServiceUnavailable("plugin registry").WithCause(err)
	default:
		return errors.ExternalServiceError("plugin registry", err).WithDetail("plugin", typ)
	}
}
