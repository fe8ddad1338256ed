package graph

import (
	"container/heap"
	"fmt"
	"sort"
	"strings"

	"github.com/kbukum/flowtorch/errors"
)

// Options tunes path resolution.
type Options struct {
	// StrictRoots turns a path with more than one root into an
	// INVALID_GRAPH error for that terminal instead of a warning.
	StrictRoots bool
}

// Resolution is the outcome of resolving a graph: one ordered path per
// terminal node.
type Resolution struct {
	// Terminals in submission order.
	Terminals []string
	// Paths maps a terminal id to its ancestors and itself in dependency order.
	Paths map[string][]string
	// Roots maps a terminal id to the roots of its path.
	Roots map[string][]string
	// Warnings are non-fatal findings per terminal.
	Warnings map[string][]string
	// PathErrors hold terminals that cannot be composed.
	PathErrors map[string]*errors.AppError

	nodes map[string]*Node
	preds map[string][]string
}

// Node returns the node with id.
func (r *Resolution) Node(id string) (*Node, bool) {
	n, ok := r.nodes[id]
	return n, ok
}

// Predecessors returns the direct sources of id in edge submission order.
func (r *Resolution) Predecessors(id string) []string {
	return r.preds[id]
}

// Types returns the distinct node types used by composable paths, sorted.
func (r *Resolution) Types() []string {
	seen := make(map[string]struct{})
	for _, t := range r.Terminals {
		if _, failed := r.PathErrors[t]; failed {
			continue
		}
		for _, id := range r.Paths[t] {
			seen[r.nodes[id].Type] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// adjacency holds deduplicated forward and reverse edges in submission order.
type adjacency struct {
	index map[string]int
	fwd   map[string][]string
	rev   map[string][]string
}

func buildAdjacency(g *Graph) *adjacency {
	a := &adjacency{
		index: make(map[string]int, len(g.Nodes)),
		fwd:   make(map[string][]string),
		rev:   make(map[string][]string),
	}
	for i, n := range g.Nodes {
		a.index[n.ID] = i
	}
	seen := make(map[[2]string]struct{}, len(g.Edges))
	for _, e := range g.Edges {
		key := [2]string{e.Source, e.Target}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		a.fwd[e.Source] = append(a.fwd[e.Source], e.Target)
		a.rev[e.Target] = append(a.rev[e.Target], e.Source)
	}
	return a
}

// Resolve validates g, rejects cycles and computes the ordered path of
// every terminal node.
func Resolve(g *Graph, opts Options) (*Resolution, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	adj := buildAdjacency(g)

	if cyclic := cycleNodes(g, adj); len(cyclic) > 0 {
		return nil, errors.GraphCycle(cyclic)
	}

	res := &Resolution{
		Paths:      make(map[string][]string),
		Roots:      make(map[string][]string),
		Warnings:   make(map[string][]string),
		PathErrors: make(map[string]*errors.AppError),
		nodes:      make(map[string]*Node, len(g.Nodes)),
		preds:      adj.rev,
	}
	for i := range g.Nodes {
		res.nodes[g.Nodes[i].ID] = &g.Nodes[i]
	}

	for _, n := range g.Nodes {
		if len(adj.fwd[n.ID]) == 0 || TypeName(n.Type) == TypeEnd {
			res.Terminals = append(res.Terminals, n.ID)
		}
	}
	if len(res.Terminals) == 0 {
		return nil, errors.InvalidGraph("graph has no terminal node")
	}

	for _, term := range res.Terminals {
		path, err := orderPath(term, adj)
		if err != nil {
			return nil, err
		}
		res.Paths[term] = path

		roots := pathRoots(path, adj, res.nodes)
		res.Roots[term] = roots
		if len(roots) > 1 {
			msg := fmt.Sprintf("path to %q has %d roots: %s", term, len(roots), strings.Join(roots, ", "))
			if opts.StrictRoots {
				res.PathErrors[term] = errors.InvalidGraph(msg).WithDetails(map[string]any{"terminal": term, "roots": roots})
			} else {
				res.Warnings[term] = append(res.Warnings[term], msg)
			}
		}
	}
	return res, nil
}

// cycleNodes returns the nodes left after repeatedly removing nodes with
// no incoming or no outgoing edges, in submission order. Only nodes on or
// between cycles survive.
func cycleNodes(g *Graph, adj *adjacency) []string {
	in := make(map[string]int, len(g.Nodes))
	out := make(map[string]int, len(g.Nodes))
	for _, n := range g.Nodes {
		in[n.ID] = len(adj.rev[n.ID])
		out[n.ID] = len(adj.fwd[n.ID])
	}
	removed := make(map[string]bool, len(g.Nodes))

	var queue []string
	for _, n := range g.Nodes {
		if in[n.ID] == 0 || out[n.ID] == 0 {
			queue = append(queue, n.ID)
			removed[n.ID] = true
		}
	}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, next := range adj.fwd[id] {
			in[next]--
			if !removed[next] && in[next] == 0 {
				removed[next] = true
				queue = append(queue, next)
			}
		}
		for _, prev := range adj.rev[id] {
			out[prev]--
			if !removed[prev] && out[prev] == 0 {
				removed[prev] = true
				queue = append(queue, prev)
			}
		}
	}

	var cyclic []string
	for _, n := range g.Nodes {
		if !removed[n.ID] {
			cyclic = append(cyclic, n.ID)
		}
	}
	return cyclic
}

// orderPath collects the ancestors of term and sorts them with Kahn's
// algorithm, releasing ready nodes in submission order.
func orderPath(term string, adj *adjacency) ([]string, error) {
	members := map[string]bool{term: true}
	queue := []string{term}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, p := range adj.rev[id] {
			if !members[p] {
				members[p] = true
				queue = append(queue, p)
			}
		}
	}

	inDegree := make(map[string]int, len(members))
	ready := &readyQueue{index: adj.index}
	for id := range members {
		for _, p := range adj.rev[id] {
			if members[p] {
				inDegree[id]++
			}
		}
		if inDegree[id] == 0 {
			heap.Push(ready, id)
		}
	}

	path := make([]string, 0, len(members))
	for ready.Len() > 0 {
		id := heap.Pop(ready).(string)
		path = append(path, id)
		for _, next := range adj.fwd[id] {
			if !members[next] {
				continue
			}
			inDegree[next]--
			if inDegree[next] == 0 {
				heap.Push(ready, next)
			}
		}
	}

	if len(path) != len(members) {
		var stuck []string
		for id := range members {
			if inDegree[id] > 0 {
				stuck = append(stuck, id)
			}
		}
		sort.Slice(stuck, func(i, j int) bool { return adj.index[stuck[i]] < adj.index[stuck[j]] })
		return nil, errors.GraphCycle(stuck)
	}
	return path, nil
}

func pathRoots(path []string, adj *adjacency, nodes map[string]*Node) []string {
	var roots []string
	for _, id := range path {
		if len(adj.rev[id]) == 0 || TypeName(nodes[id].Type) == TypeStart {
			roots = append(roots, id)
		}
	}
	return roots
}

// readyQueue is a min-heap of node ids keyed by submission index.
type readyQueue struct {
	ids   []string
	index map[string]int
}

func (q *readyQueue) Len() int           { return len(q.ids) }
func (q *readyQueue) Less(i, j int) bool { return q.index[q.ids[i]] < q.index[q.ids[j]] }
func (q *readyQueue) Swap(i, j int)      { q.ids[i], q.ids[j] = q.ids[j], q.ids[i] }
func (q *readyQueue) Push(x any)         { q.ids = append(q.ids, x.(string)) }
func (q *readyQueue) Pop() any {
	old := q.ids
	n := len(old)
	id := old[n-1]
	q.ids = old[:n-1]
	return id
}
