package composer

import (
	"context"
	stderrors "errors"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/kbukum/flowtorch/errors"
	"github.com/kbukum/flowtorch/graph"
	"github.com/kbukum/flowtorch/logger"
	"github.com/kbukum/flowtorch/plugin"
	"github.com/kbukum/flowtorch/registry"
	"github.com/kbukum/flowtorch/validation"
)

// DefaultMaxParallel bounds concurrent artifact composition.
const DefaultMaxParallel = 4

// Options configures a Composer.
type Options struct {
	// MaxParallel bounds how many artifacts ComposeAll builds at once.
	MaxParallel int
}

// Artifact is the generated source of one terminal node.
type Artifact struct {
	TerminalNodeID string   `json:"terminalNodeId"`
	Code           string   `json:"code"`
	Path           []string `json:"path"`
	Imports        []string `json:"imports,omitempty"`
	Warnings       []string `json:"warnings,omitempty"`
}

// Composer turns resolved paths into source artifacts.
type Composer struct {
	resolver registry.Resolver
	opts     Options
	log      *logger.Logger
}

// New creates a Composer. r is typically a per-request registry.Session so
// that all artifacts share one plugin version per type.
func New(r registry.Resolver, opts Options, log *logger.Logger) *Composer {
	if opts.MaxParallel <= 0 {
		opts.MaxParallel = DefaultMaxParallel
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Composer{resolver: r, opts: opts, log: log.WithComponent("composer")}
}

// Compose builds the artifact of terminal. It stops at the first node
// that fails; the returned error is an AppError naming that node and its
// plugin.
func (c *Composer) Compose(ctx context.Context, res *graph.Resolution, terminal string) (*Artifact, error) {
	if appErr, ok := res.PathErrors[terminal]; ok {
		return nil, appErr
	}
	path, ok := res.Paths[terminal]
	if !ok {
		return nil, errors.NotFound("terminal", terminal)
	}

	start := time.Now()
	w := &walk{
		fragments:  make(map[string]string, len(path)),
		vars:       make(map[string]string, len(path)),
		consumed:   make(map[string]bool),
		referenced: make(map[string]bool),
		imports:    NewImportSet(),
	}
	for _, id := range path {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := c.generate(ctx, res, id, w); err != nil {
			return nil, err
		}
	}

	art := &Artifact{
		TerminalNodeID: terminal,
		Code:           render(path, w),
		Path:           append([]string(nil), path...),
		Imports:        w.imports.Lines(),
		Warnings:       w.warnings,
	}
	c.log.Debug("artifact composed", logger.Fields(
		logger.FieldTerminal, terminal,
		"nodes", len(path),
		logger.FieldDuration, time.Since(start).Milliseconds(),
	))
	return art, nil
}

// walk is the state of composing one path.
type walk struct {
	fragments map[string]string
	// vars holds the variable each generated node leaves its output in.
	vars     map[string]string
	consumed map[string]bool
	// referenced holds variables a top-level statement already reads.
	// A structural node leaves their definitions in place.
	referenced map[string]bool
	imports    *ImportSet
	warnings   []string
}

func (c *Composer) generate(ctx context.Context, res *graph.Resolution, id string, w *walk) error {
	node, _ := res.Node(id)
	p, err := c.resolver.Resolve(ctx, node.Type)
	if err != nil {
		if isContextErr(err) {
			return err
		}
		return attribute(err, id, node.Type)
	}

	vr := p.Validate(node.Settings)
	if !vr.Valid {
		return errors.SettingsInvalid(id, node.Type, validation.Messages(vr.Errors), vr.Errors)
	}

	def := p.Definition()
	preds := res.Predecessors(id)
	var children, inputs []string
	for _, pred := range preds {
		if frag := w.fragments[pred]; strings.TrimSpace(frag) != "" {
			children = append(children, frag)
		}
		if v := w.vars[pred]; v != "" {
			inputs = append(inputs, v)
		}
	}
	if def.Structural && len(children) < def.MinChildren {
		return errors.MissingChildren(id, node.Type, def.MinChildren, len(children))
	}

	pctx := &plugin.Context{
		NodeID:   id,
		Variable: plugin.VariableFor(vr.Settings, id),
		Inputs:   inputs,
	}
	frag, err := p.Generate(vr.Settings, children, pctx)
	if err != nil {
		if errors.IsAppError(err) {
			return attribute(err, id, node.Type)
		}
		return errors.GenerationFailed(id, node.Type, err)
	}

	for _, msg := range pctx.Warnings() {
		w.warnings = append(w.warnings, id+": "+msg)
		c.log.Warn(msg, logger.NodeFields(id, node.Type))
	}

	w.fragments[id] = frag
	switch name, ok := plugin.AssignedVariable(frag); {
	case ok:
		w.vars[id] = name
	case len(inputs) > 0 && !def.Structural:
		w.vars[id] = inputs[0]
	}
	w.imports.Add(def.Imports...)
	if def.Structural {
		for _, pred := range preds {
			if w.referenced[w.vars[pred]] {
				continue
			}
			w.consumed[pred] = true
			delete(w.vars, pred)
		}
	} else {
		for _, v := range inputs {
			w.referenced[v] = true
		}
	}

	if c.log.Enabled(zerolog.DebugLevel) {
		c.log.Debug("node generated", logger.NodeFields(id, node.Type))
	}
	return nil
}

// render lays out the import header and one statement per unconsumed
// fragment. A fragment ending in a newline is followed by a blank line.
func render(path []string, w *walk) string {
	var b strings.Builder
	if header := w.imports.Render(); header != "" {
		b.WriteString(header)
		b.WriteString("\n\n")
	}
	spaced := false
	for _, id := range path {
		frag := strings.TrimRight(w.fragments[id], "\n")
		if w.consumed[id] || strings.TrimSpace(frag) == "" {
			continue
		}
		if spaced {
			b.WriteByte('\n')
		}
		b.WriteString(frag)
		b.WriteByte('\n')
		spaced = strings.HasSuffix(w.fragments[id], "\n")
	}
	return b.String()
}

// ComposeAll composes every terminal of res concurrently. Node-level
// failures are returned per terminal and do not affect other artifacts.
// If ctx ends, every artifact is discarded and ctx's error is returned.
func (c *Composer) ComposeAll(ctx context.Context, res *graph.Resolution) (map[string]*Artifact, map[string]*errors.AppError, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.MaxParallel)

	var mu sync.Mutex
	artifacts := make(map[string]*Artifact, len(res.Terminals))
	failures := make(map[string]*errors.AppError)

	for _, term := range res.Terminals {
		g.Go(func() error {
			art, err := c.Compose(gctx, res, term)
			if err != nil && isContextErr(err) {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures[term] = errors.Wrap(err)
				return nil
			}
			artifacts[term] = art
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	return artifacts, failures, nil
}

// attribute copies the AppError in err and adds node and plugin details.
// Errors cached by a registry session are shared between artifacts, so
// they are never modified in place.
func attribute(err error, nodeID, typ string) *errors.AppError {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		return errors.GenerationFailed(nodeID, typ, err)
	}
	cp := *appErr
	cp.Details = maps.Clone(appErr.Details)
	if cp.Details == nil {
		cp.Details = make(map[string]any, 2)
	}
	cp.Details["node_id"] = nodeID
	if _, ok := cp.Details["plugin"]; !ok {
		cp.Details["plugin"] = typ
	}
	return &cp
}

func isContextErr(err error) bool {
	return stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded)
}
