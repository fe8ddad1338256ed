package transpiler

import (
	"github.com/kbukum/flowtorch/composer"
	"github.com/kbukum/flowtorch/errors"
	"github.com/kbukum/flowtorch/graph"
)

// Request is a workflow submitted for transpilation.
type Request struct {
	// RunID identifies the run in logs. Generated when empty.
	RunID string       `json:"runId,omitempty" yaml:"runId,omitempty"`
	Nodes []graph.Node `json:"nodes" yaml:"nodes" validate:"required,min=1,dive"`
	Edges []graph.Edge `json:"edges" yaml:"edges" validate:"dive"`
	// SkipFormat returns artifacts as composed.
	SkipFormat bool `json:"skipFormat,omitempty" yaml:"skipFormat,omitempty"`
}

// NewRequest wraps a loaded graph.
func NewRequest(g *graph.Graph) *Request {
	return &Request{Nodes: g.Nodes, Edges: g.Edges}
}

// Graph returns the workflow graph of the request.
func (r *Request) Graph() *graph.Graph {
	return &graph.Graph{Nodes: r.Nodes, Edges: r.Edges}
}

// ArtifactResult is a composed and, when possible, formatted artifact.
type ArtifactResult struct {
	composer.Artifact
	Formatted bool `json:"formatted"`
}

// Result is the outcome of one transpilation. Every terminal appears in
// Paths and in exactly one of Artifacts and Failures.
type Result struct {
	RunID     string                      `json:"runId"`
	Terminals []string                    `json:"terminals"`
	Artifacts map[string]*ArtifactResult  `json:"artifacts"`
	Paths     map[string][]string         `json:"paths"`
	Failures  map[string]*errors.AppError `json:"failures,omitempty"`
	Warnings  map[string][]string         `json:"warnings,omitempty"`
}

// OK reports whether every artifact was produced.
func (r *Result) OK() bool {
	return len(r.Failures) == 0
}
