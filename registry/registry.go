package registry

import (
	"context"
	"sort"

	"github.com/kbukum/flowtorch/plugin"
)

// Resolver maps a node type to a plugin implementation. Unknown types
// fail with a PLUGIN_NOT_FOUND AppError naming the type.
type Resolver interface {
	Resolve(ctx context.Context, typ string) (plugin.Plugin, error)
}

// Lister enumerates the definitions a source can resolve.
type Lister interface {
	List(ctx context.Context) ([]*plugin.Definition, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(ctx context.Context, typ string) (plugin.Plugin, error)

// Resolve calls f.
func (f ResolverFunc) Resolve(ctx context.Context, typ string) (plugin.Plugin, error) {
	return f(ctx, typ)
}

// sortDefinitions orders definitions by slug then namespace.
func sortDefinitions(defs []*plugin.Definition) {
	sort.Slice(defs, func(i, j int) bool {
		if defs[i].Slug != defs[j].Slug {
			return defs[i].Slug < defs[j].Slug
		}
		return defs[i].Namespace < defs[j].Namespace
	})
}
