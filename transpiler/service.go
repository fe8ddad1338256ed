package transpiler

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/kbukum/flowtorch/composer"
	"github.com/kbukum/flowtorch/errors"
	"github.com/kbukum/flowtorch/formatter"
	"github.com/kbukum/flowtorch/graph"
	"github.com/kbukum/flowtorch/logger"
	"github.com/kbukum/flowtorch/observability"
	"github.com/kbukum/flowtorch/plugin"
	"github.com/kbukum/flowtorch/registry"
	"github.com/kbukum/flowtorch/validation"
)

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *logger.Logger) Option {
	return func(s *Service) { s.log = l }
}

// WithMetrics records operation metrics on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithFormatter sets the artifact formatter. The default is formatter.Nop.
func WithFormatter(f formatter.Formatter) Option {
	return func(s *Service) { s.formatter = f }
}

// WithFetchParallel bounds concurrent plugin fetches per request. The
// default is Config.MaxParallel.
func WithFetchParallel(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.fetchParallel = n
		}
	}
}

// Service runs the transpilation pipeline. It is safe for concurrent use;
// each request gets its own registry session.
type Service struct {
	resolver  registry.Resolver
	formatter formatter.Formatter
	cfg       Config
	metrics   *observability.Metrics
	log       *logger.Logger

	fetchParallel int
}

// NewService creates a Service resolving plugins through r.
func NewService(r registry.Resolver, cfg Config, opts ...Option) *Service {
	cfg.ApplyDefaults()
	s := &Service{
		resolver:  r,
		formatter: formatter.Nop{},
		cfg:       cfg,
		log:       logger.Nop(),

		fetchParallel: cfg.MaxParallel,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithComponent("transpiler")
	return s
}

// Transpile turns a workflow into one artifact per terminal node. Graph
// level problems (invalid input, cycles) fail the whole request; node
// level problems fail only the artifacts whose path contains the node.
func (s *Service) Transpile(ctx context.Context, req *Request) (result *Result, err error) {
	if req == nil {
		return nil, errors.MissingField("nodes")
	}
	if err := validation.Validate(req); err != nil {
		return nil, err
	}
	if s.cfg.MaxNodes > 0 && len(req.Nodes) > s.cfg.MaxNodes {
		return nil, errors.InvalidInput("nodes", fmt.Sprintf("at most %d nodes are allowed, got %d", s.cfg.MaxNodes, len(req.Nodes)))
	}

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	log := s.log.WithContext(ctx).WithFields(logger.Fields("run_id", runID))

	ctx, op := observability.StartOperation(ctx, s.metrics, observability.SpanTranspile,
		attribute.Int(observability.AttrNodes, len(req.Nodes)),
	)
	defer func() {
		d := op.End(ctx, err)
		if err != nil {
			log.WithError(err).Warn("transpile failed", logger.DurationFields("transpile", d))
		}
	}()

	res, err := graph.Resolve(req.Graph(), graph.Options{StrictRoots: s.cfg.StrictRoots})
	if err != nil {
		return nil, err
	}
	op.SetAttributes(attribute.Int(observability.AttrTerminals, len(res.Terminals)))
	for _, term := range res.Terminals {
		for _, w := range res.Warnings[term] {
			log.Warn(w, logger.Fields(logger.FieldTerminal, term))
		}
	}

	session := registry.NewSession(s.resolver, s.fetchParallel)
	if err := s.prefetch(ctx, session, res, log); err != nil {
		return nil, contextError(err)
	}

	artifacts, failures, err := s.compose(ctx, session, res)
	if err != nil {
		return nil, contextError(err)
	}

	result = &Result{
		RunID:     runID,
		Terminals: append([]string(nil), res.Terminals...),
		Artifacts: make(map[string]*ArtifactResult, len(artifacts)),
		Paths:     res.Paths,
		Failures:  failures,
		Warnings:  make(map[string][]string),
	}
	for term, art := range artifacts {
		result.Artifacts[term] = &ArtifactResult{Artifact: *art}
	}
	if !req.SkipFormat {
		if err := s.format(ctx, result, log); err != nil {
			return nil, contextError(err)
		}
	}

	for _, term := range res.Terminals {
		warnings := append([]string(nil), res.Warnings[term]...)
		if art, ok := result.Artifacts[term]; ok {
			warnings = append(warnings, art.Warnings...)
		}
		if len(warnings) > 0 {
			result.Warnings[term] = warnings
		}
	}
	for term, f := range failures {
		s.metrics.RecordError(ctx, string(f.Code), "composer")
		log.Warn("artifact failed", logger.Fields(
			logger.FieldTerminal, term,
			"code", f.Code,
			logger.FieldNodeID, f.Details["node_id"],
			logger.FieldError, f.Message,
		))
	}
	s.metrics.RecordArtifacts(ctx, len(result.Artifacts), len(failures))
	op.SetAttributes(
		attribute.Int(observability.AttrArtifacts, len(result.Artifacts)),
		attribute.Int(observability.AttrFailures, len(failures)),
	)
	log.Info("transpile completed", logger.Fields(
		"terminals", len(res.Terminals),
		"artifacts", len(result.Artifacts),
		"failures", len(failures),
	))
	return result, nil
}

// prefetch warms the session with every plugin type in use. Failures are
// logged here and attributed to nodes during composition.
func (s *Service) prefetch(ctx context.Context, session *registry.Session, res *graph.Resolution, log *logger.Logger) (err error) {
	types := res.Types()
	ctx, op := observability.StartOperation(ctx, s.metrics, observability.SpanPrefetch,
		attribute.Int("flowtorch.types", len(types)),
	)
	defer func() { op.End(ctx, err) }()

	failed, err := session.Prefetch(ctx, types)
	if err != nil {
		return err
	}
	for typ, ferr := range failed {
		log.Warn("plugin unavailable", logger.Fields(logger.FieldPlugin, typ, logger.FieldError, ferr.Error()))
	}
	return nil
}

func (s *Service) compose(ctx context.Context, session *registry.Session, res *graph.Resolution) (artifacts map[string]*composer.Artifact, failures map[string]*errors.AppError, err error) {
	ctx, op := observability.StartOperation(ctx, s.metrics, observability.SpanCompose)
	defer func() { op.End(ctx, err) }()

	c := composer.New(session, composer.Options{MaxParallel: s.cfg.MaxParallel}, s.log)
	return c.ComposeAll(ctx, res)
}

// format runs the formatter over every artifact concurrently. Formatter
// failures become warnings on the artifact.
func (s *Service) format(ctx context.Context, result *Result, log *logger.Logger) (err error) {
	if len(result.Artifacts) == 0 || !formatter.Enabled(s.formatter) {
		return nil
	}
	ctx, op := observability.StartOperation(ctx, s.metrics, observability.SpanFormat)
	defer func() { op.End(ctx, err) }()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.MaxParallel)
	for _, term := range result.Terminals {
		art, ok := result.Artifacts[term]
		if !ok {
			continue
		}
		g.Go(func() error {
			out, warning, err := formatter.Apply(gctx, s.formatter, art.Code)
			if err != nil {
				return err
			}
			art.Code = out
			if warning != nil {
				art.Warnings = append(art.Warnings, warning.Message)
				s.metrics.RecordError(ctx, string(warning.Code), "formatter")
				log.Warn("formatting skipped", logger.Fields(logger.FieldTerminal, term, logger.FieldError, warning.Error()))
				return nil
			}
			art.Formatted = true
			return nil
		})
	}
	return g.Wait()
}

// Plugins lists the definitions available to the service. Resolvers that
// cannot enumerate their plugins yield an empty list.
func (s *Service) Plugins(ctx context.Context) ([]*plugin.Definition, error) {
	lister, ok := s.resolver.(registry.Lister)
	if !ok {
		return nil, nil
	}
	return lister.List(ctx)
}

func contextError(err error) error {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.Timeout("transpile").WithCause(err)
	}
	return err
}
