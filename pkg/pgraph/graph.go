package pgraph

// Graph is a program graph for one compilation unit.
type Graph struct {
	store *Store[Node, Edge]

	// parents maps a node to the source of the first child-of edge into it.
	parents map[NodeID]NodeID

	// Cached adjacency for queries, rebuilt when edges were added since.
	incomingCache map[NodeID][]EdgeID
	outgoingCache map[NodeID][]EdgeID
	cacheValid    bool
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		store:   NewStore[Node, Edge](),
		parents: make(map[NodeID]NodeID),
	}
}

// AddNode adds n and returns its id.
func (g *Graph) AddNode(n Node) NodeID {
	return g.store.AddNode(n)
}

// AddEdge adds an edge between two existing nodes. It panics if either
// endpoint is unknown.
func (g *Graph) AddEdge(src, dst NodeID, kind EdgeKind) EdgeID {
	g.store.Node(src)
	g.store.Node(dst)
	id := g.store.AddEdge(Edge{Src: src, Dst: dst, Kind: kind})
	if kind == EdgeChild {
		if _, ok := g.parents[dst]; !ok {
			g.parents[dst] = src
		}
	}
	g.cacheValid = false
	return id
}

// Node returns the node with the given id. It panics on an unknown id.
func (g *Graph) Node(id NodeID) Node { return g.store.Node(id) }

// LookupNode returns the node with the given id or ErrUnknownNode.
func (g *Graph) LookupNode(id NodeID) (Node, error) { return g.store.LookupNode(id) }

// ReplaceNode overwrites a node in place.
func (g *Graph) ReplaceNode(id NodeID, n Node) { g.store.ReplaceNode(id, n) }

// Edge returns the edge with the given id. It panics on an unknown id.
func (g *Graph) Edge(id EdgeID) Edge { return g.store.Edge(id) }

// LookupEdge returns the edge with the given id or ErrUnknownEdge.
func (g *Graph) LookupEdge(id EdgeID) (Edge, error) { return g.store.LookupEdge(id) }

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return g.store.NodeCount() }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return g.store.EdgeCount() }

// Parent returns the structural parent of id: the source of the first
// child-of edge pointing at it.
func (g *Graph) Parent(id NodeID) (NodeID, bool) {
	p, ok := g.parents[id]
	return p, ok
}

// Outgoing returns the ids of edges leaving id, in creation order.
func (g *Graph) Outgoing(id NodeID) []EdgeID {
	g.buildEdgeCache()
	return g.outgoingCache[id]
}

// Incoming returns the ids of edges entering id, in creation order.
func (g *Graph) Incoming(id NodeID) []EdgeID {
	g.buildEdgeCache()
	return g.incomingCache[id]
}

// Successors returns the destinations of outgoing edges of the given kind.
func (g *Graph) Successors(id NodeID, kind EdgeKind) []NodeID {
	var out []NodeID
	for _, eid := range g.Outgoing(id) {
		if e := g.Edge(eid); e.Kind == kind {
			out = append(out, e.Dst)
		}
	}
	return out
}

// Predecessors returns the sources of incoming edges of the given kind.
func (g *Graph) Predecessors(id NodeID, kind EdgeKind) []NodeID {
	var out []NodeID
	for _, eid := range g.Incoming(id) {
		if e := g.Edge(eid); e.Kind == kind {
			out = append(out, e.Src)
		}
	}
	return out
}

// NodesOfKind returns the ids of all nodes of the given kind in id order.
func (g *Graph) NodesOfKind(kind NodeKind) []NodeID {
	var out []NodeID
	for i := 0; i < g.NodeCount(); i++ {
		if g.Node(NodeID(i)).Kind() == kind {
			out = append(out, NodeID(i))
		}
	}
	return out
}

func (g *Graph) buildEdgeCache() {
	if g.cacheValid {
		return
	}
	g.incomingCache = make(map[NodeID][]EdgeID)
	g.outgoingCache = make(map[NodeID][]EdgeID)
	for i := 0; i < g.EdgeCount(); i++ {
		e := g.Edge(EdgeID(i))
		g.outgoingCache[e.Src] = append(g.outgoingCache[e.Src], EdgeID(i))
		g.incomingCache[e.Dst] = append(g.incomingCache[e.Dst], EdgeID(i))
	}
	g.cacheValid = true
}
