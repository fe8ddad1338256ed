// Package composer assembles the generated fragments of a resolved path
// into one source artifact per terminal node.
//
// Nodes are generated in path order. Each node receives the fragments of
// its direct predecessors as children. Fragments of non-structural nodes
// become one top-level statement each; structural nodes consume their
// children's fragments, which are then dropped from the top level. The
// imports declared by every node on the path are merged into a sorted
// header.
package composer
