package pgraph

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownNode is returned (or panicked with) for a node id that was never created.
	ErrUnknownNode = errors.New("unknown node")
	// ErrUnknownEdge is returned (or panicked with) for an edge id that was never created.
	ErrUnknownEdge = errors.New("unknown edge")
)

// Store is an append-only arena of nodes and edges. IDs are dense and
// zero-based per collection. Nodes can be replaced in place; nothing is ever
// removed. A Store is not safe for concurrent use.
type Store[N any, E any] struct {
	nodes []N
	edges []E
}

// NewStore returns an empty store.
func NewStore[N any, E any]() *Store[N, E] {
	return &Store[N, E]{}
}

// AddNode appends n and returns its id.
func (s *Store[N, E]) AddNode(n N) NodeID {
	s.nodes = append(s.nodes, n)
	return NodeID(len(s.nodes) - 1)
}

// AddEdge appends e and returns its id.
func (s *Store[N, E]) AddEdge(e E) EdgeID {
	s.edges = append(s.edges, e)
	return EdgeID(len(s.edges) - 1)
}

// Node returns the node with the given id. It panics on an unknown id.
func (s *Store[N, E]) Node(id NodeID) N {
	n, err := s.LookupNode(id)
	if err != nil {
		panic(err)
	}
	return n
}

// LookupNode returns the node with the given id.
func (s *Store[N, E]) LookupNode(id NodeID) (N, error) {
	if id < 0 || int(id) >= len(s.nodes) {
		var zero N
		return zero, fmt.Errorf("%w: %d", ErrUnknownNode, id)
	}
	return s.nodes[id], nil
}

// ReplaceNode overwrites the node stored under id. Edges referencing id stay
// valid. It panics on an unknown id.
func (s *Store[N, E]) ReplaceNode(id NodeID, n N) {
	if id < 0 || int(id) >= len(s.nodes) {
		panic(fmt.Errorf("%w: %d", ErrUnknownNode, id))
	}
	s.nodes[id] = n
}

// Edge returns the edge with the given id. It panics on an unknown id.
func (s *Store[N, E]) Edge(id EdgeID) E {
	e, err := s.LookupEdge(id)
	if err != nil {
		panic(err)
	}
	return e
}

// LookupEdge returns the edge with the given id.
func (s *Store[N, E]) LookupEdge(id EdgeID) (E, error) {
	if id < 0 || int(id) >= len(s.edges) {
		var zero E
		return zero, fmt.Errorf("%w: %d", ErrUnknownEdge, id)
	}
	return s.edges[id], nil
}

// NodeCount returns the number of nodes.
func (s *Store[N, E]) NodeCount() int { return len(s.nodes) }

// EdgeCount returns the number of edges.
func (s *Store[N, E]) EdgeCount() int { return len(s.edges) }
