package registry

import (
	"context"

	"github.com/kbukum/flowtorch/errors"
	"github.com/kbukum/flowtorch/plugin"
)

// Chain tries resolvers in order. A PLUGIN_NOT_FOUND from one source falls
// through to the next; any other error stops the search.
type Chain []Resolver

// Resolve returns the first plugin found for typ.
func (c Chain) Resolve(ctx context.Context, typ string) (plugin.Plugin, error) {
	for _, r := range c {
		p, err := r.Resolve(ctx, typ)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, errors.ErrCodePluginNotFound) {
			return nil, err
		}
	}
	return nil, errors.PluginNotFound(typ)
}

// List merges the listings of every source that supports it. Earlier
// sources shadow later ones for the same namespace and slug.
func (c Chain) List(ctx context.Context) ([]*plugin.Definition, error) {
	seen := make(map[string]struct{})
	var out []*plugin.Definition
	for _, r := range c {
		l, ok := r.(Lister)
		if !ok {
			continue
		}
		defs, err := l.List(ctx)
		if err != nil {
			return nil, err
		}
		for _, d := range defs {
			key := d.Namespace + "/" + d.Slug
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, d)
		}
	}
	sortDefinitions(out)
	return out, nil
}
