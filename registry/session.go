package registry

import (
	"context"
	stderrors "errors"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/kbukum/flowtorch/errors"
	"github.com/kbukum/flowtorch/plugin"
)

type sessionEntry struct {
	plugin plugin.Plugin
	err    error
}

// Session is a per-request cache in front of a Resolver. Every type is
// resolved at most once per session: concurrent callers share a single
// fetch and later callers get the cached outcome, so a "latest" type is
// pinned for the rest of the request.
type Session struct {
	resolver    Resolver
	maxParallel int

	mu      sync.RWMutex
	entries map[string]sessionEntry
	group   singleflight.Group
}

// NewSession creates a session over r. maxParallel bounds Prefetch.
func NewSession(r Resolver, maxParallel int) *Session {
	if maxParallel <= 0 {
		maxParallel = DefaultMaxParallel
	}
	return &Session{
		resolver:    r,
		maxParallel: maxParallel,
		entries:     make(map[string]sessionEntry),
	}
}

// cacheKey canonicalizes typ so "linear", "LINEAR" and "linear:latest"
// share one entry.
func cacheKey(typ string) string {
	ref, err := plugin.ParseRef(typ)
	if err != nil {
		return typ
	}
	return ref.String()
}

// Resolve returns the cached plugin for typ, resolving it on first use.
// Context errors are not cached.
func (s *Session) Resolve(ctx context.Context, typ string) (plugin.Plugin, error) {
	key := cacheKey(typ)

	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if ok {
		return e.plugin, e.err
	}

	// A shared fetch led by a caller whose context ended reports that
	// caller's cancellation; live callers retry once with their own context.
	for attempt := 0; ; attempt++ {
		ch := s.group.DoChan(key, func() (any, error) {
			p, err := s.resolver.Resolve(ctx, typ)
			if err != nil && isContextErr(err) {
				return nil, err
			}
			s.mu.Lock()
			s.entries[key] = sessionEntry{plugin: p, err: err}
			s.mu.Unlock()
			return p, err
		})

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case res := <-ch:
			if res.Err != nil {
				if attempt == 0 && res.Shared && isContextErr(res.Err) && ctx.Err() == nil {
					continue
				}
				return nil, res.Err
			}
			p, _ := res.Val.(plugin.Plugin)
			return p, nil
		}
	}
}

// Prefetch resolves the distinct types in parallel and returns the
// failures keyed by type. One failing type does not stop the others; only
// cancellation of ctx does.
func (s *Session) Prefetch(ctx context.Context, types []string) (map[string]error, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxParallel)

	var mu sync.Mutex
	failures := make(map[string]error)
	seen := make(map[string]struct{}, len(types))

	for _, typ := range types {
		key := cacheKey(typ)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		g.Go(func() error {
			_, err := s.Resolve(gctx, typ)
			if err == nil {
				return nil
			}
			if isContextErr(err) {
				return err
			}
			mu.Lock()
			failures[typ] = err
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return failures, nil
}

// Resolved returns the number of cached entries.
func (s *Session) Resolved() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func isContextErr(err error) bool {
	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return errors.Is(err, errors.ErrCodeTimeout)
}
