package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kbukum/flowtorch/errors"
	"github.com/kbukum/flowtorch/plugin"
)

type localEntry struct {
	plugin plugin.Plugin
	seq    int
}

// Local is an in-memory plugin table populated at load time. It holds any
// number of versions per plugin name.
type Local struct {
	mu     sync.RWMutex
	byName map[string][]localEntry
	seq    int
}

// NewLocal creates an empty Local registry. Types without a namespace are
// matched against every namespace.
func NewLocal() *Local {
	return &Local{byName: make(map[string][]localEntry)}
}

// Register adds p. Registering the same namespace, name and version twice
// is an error.
func (l *Local) Register(p plugin.Plugin) error {
	def := p.Definition()
	if def == nil {
		return fmt.Errorf("registry: plugin has no definition")
	}
	ref, err := plugin.ParseRef(def.Ref().String())
	if err != nil {
		return fmt.Errorf("registry: invalid definition: %w", err)
	}
	if ref.Name != def.Slug || ref.Namespace != def.Namespace {
		return fmt.Errorf("registry: plugin %s: slug and namespace must be lowercase", def.Ref())
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range l.byName[ref.Name] {
		d := e.plugin.Definition()
		if d.Namespace == def.Namespace && d.Version == def.Version {
			return fmt.Errorf("registry: plugin %s already registered", def.Ref())
		}
	}
	l.seq++
	l.byName[ref.Name] = append(l.byName[ref.Name], localEntry{plugin: p, seq: l.seq})
	return nil
}

// MustRegister is like Register but panics on error. It is meant for
// built-in tables assembled at startup.
func (l *Local) MustRegister(plugins ...plugin.Plugin) {
	for _, p := range plugins {
		if err := l.Register(p); err != nil {
			panic(err)
		}
	}
}

// Resolve returns the plugin matching typ. Without a version the newest
// candidate wins: latest CreatedAt, then highest version, then earliest
// registration.
func (l *Local) Resolve(ctx context.Context, typ string) (plugin.Plugin, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ref, err := plugin.ParseRef(typ)
	if err != nil {
		return nil, errors.PluginNotFound(typ).WithCause(err)
	}

	l.mu.RLock()
	defer l.mu.RUnlock()

	var candidates []localEntry
	for _, e := range l.byName[ref.Name] {
		d := e.plugin.Definition()
		if ref.Namespace != "" && d.Namespace != ref.Namespace {
			continue
		}
		if !ref.Latest() && d.Version != ref.Version {
			continue
		}
		candidates = append(candidates, e)
	}
	if len(candidates) == 0 {
		return nil, errors.PluginNotFound(typ)
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return newer(candidates[i], candidates[j])
	})
	return candidates[0].plugin, nil
}

func newer(a, b localEntry) bool {
	da, db := a.plugin.Definition(), b.plugin.Definition()
	if !da.CreatedAt.Equal(db.CreatedAt) {
		return da.CreatedAt.After(db.CreatedAt)
	}
	if c := compareVersions(da.Version, db.Version); c != 0 {
		return c > 0
	}
	return a.seq < b.seq
}

// List returns the newest definition of every namespace and name, sorted
// by slug then namespace.
func (l *Local) List(ctx context.Context) ([]*plugin.Definition, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	newest := make(map[string]localEntry)
	for _, entries := range l.byName {
		for _, e := range entries {
			d := e.plugin.Definition()
			key := d.Namespace + "/" + d.Slug
			if cur, ok := newest[key]; !ok || newer(e, cur) {
				newest[key] = e
			}
		}
	}

	defs := make([]*plugin.Definition, 0, len(newest))
	for _, e := range newest {
		defs = append(defs, e.plugin.Definition())
	}
	sortDefinitions(defs)
	return defs, nil
}

// Len returns the number of registered plugin versions.
func (l *Local) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	n := 0
	for _, entries := range l.byName {
		n += len(entries)
	}
	return n
}
