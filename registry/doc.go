// Package registry maps node types to plugin implementations.
//
// A type is written [@namespace/]name[:version]. Sources:
//
//   - Local holds built-in plugins registered at startup
//   - Remote loads declarative manifests from object storage
//   - Chain consults several sources in order
//
// A Session sits in front of any source for the lifetime of one request.
// It resolves each distinct type once, shares concurrent lookups and pins
// "latest" so every node of a request sees the same version:
//
//	sess := registry.NewSession(registry.Chain{local, remote}, cfg.MaxParallel)
//	failures, err := sess.Prefetch(ctx, resolution.Types())
package registry
