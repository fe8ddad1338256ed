// Package graph models submitted workflows and resolves them into one
// ordered node path per terminal node.
//
// Terminal nodes are nodes without outgoing edges or of the reserved "end"
// type. Each path is a topological order of the terminal's ancestors in
// which ties are broken by submission order, so identical input always
// yields identical paths. Any cycle fails the whole graph with GRAPH_CYCLE.
//
//	g, err := graph.Load("workflow.yaml")
//	res, err := graph.Resolve(g, graph.Options{})
//	for _, t := range res.Terminals {
//	    fmt.Println(t, res.Paths[t])
//	}
package graph
