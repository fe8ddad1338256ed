// Package transpiler orchestrates a transpilation request: it validates
// the submitted workflow, resolves artifact paths, prefetches plugins
// into a per-request registry session, composes every artifact
// concurrently and formats the results on a best-effort basis.
//
//	svc := transpiler.NewService(reg, cfg,
//		transpiler.WithFormatter(formatter.New(fmtCfg, log)),
//		transpiler.WithLogger(log),
//	)
//	res, err := svc.Transpile(ctx, transpiler.NewRequest(g))
package transpiler
