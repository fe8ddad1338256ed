package graph

import (
	"fmt"
	"strings"

	"github.com/kbukum/flowtorch/errors"
)

// Reserved node type names.
const (
	TypeStart = "start"
	TypeEnd   = "end"
)

// Node is one configured plugin instance in a workflow.
type Node struct {
	ID       string    `json:"id" yaml:"id" validate:"required"`
	Type     string    `json:"type" yaml:"type" validate:"required"`
	Settings any       `json:"settings,omitempty" yaml:"settings,omitempty"`
	Position *Position `json:"position,omitempty" yaml:"position,omitempty"`
}

// Position is the canvas location of a node. It is carried through but
// never interpreted.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Edge declares that Target depends on the output of Source.
type Edge struct {
	ID           string `json:"id" yaml:"id"`
	Source       string `json:"source" yaml:"source" validate:"required"`
	Target       string `json:"target" yaml:"target" validate:"required"`
	SourceHandle string `json:"sourceHandle,omitempty" yaml:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty" yaml:"targetHandle,omitempty"`
}

// Graph is a submitted workflow. Slice order is submission order and is
// used for every tie-break.
type Graph struct {
	Nodes []Node `json:"nodes" yaml:"nodes" validate:"required,min=1,dive"`
	Edges []Edge `json:"edges" yaml:"edges" validate:"dive"`
}

// Validate checks ids and edge endpoints. Cycles are detected by Resolve.
func (g *Graph) Validate() error {
	if len(g.Nodes) == 0 {
		return errors.InvalidGraph("graph has no nodes")
	}
	seen := make(map[string]struct{}, len(g.Nodes))
	for i, n := range g.Nodes {
		if strings.TrimSpace(n.ID) == "" {
			return errors.InvalidGraph(fmt.Sprintf("node at index %d has no id", i))
		}
		if strings.TrimSpace(n.Type) == "" {
			return errors.InvalidGraph(fmt.Sprintf("node %q has no type", n.ID)).WithDetail("node_id", n.ID)
		}
		if _, dup := seen[n.ID]; dup {
			return errors.InvalidGraph(fmt.Sprintf("duplicate node id %q", n.ID)).WithDetail("node_id", n.ID)
		}
		seen[n.ID] = struct{}{}
	}
	for i, e := range g.Edges {
		for _, end := range []string{e.Source, e.Target} {
			if _, ok := seen[end]; !ok {
				return errors.InvalidGraph(fmt.Sprintf("edge %s references unknown node %q", edgeLabel(e, i), end)).
					WithDetail("edge_id", e.ID)
			}
		}
	}
	return nil
}

func edgeLabel(e Edge, i int) string {
	if e.ID != "" {
		return fmt.Sprintf("%q", e.ID)
	}
	return fmt.Sprintf("at index %d", i)
}

// TypeName returns the bare plugin name of a node type reference:
// "@torch/linear:1.2.0" becomes "linear".
func TypeName(typ string) string {
	name := typ
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, ":"); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(strings.TrimSpace(name))
}
