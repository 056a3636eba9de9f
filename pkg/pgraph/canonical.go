package pgraph

// Canonical is a stable numbering of a graph: nodes grouped by export kind,
// then edges grouped by kind, numbered from 1 in bucket order and by
// construction order within a bucket.
type Canonical struct {
	graph     *Graph
	nodeOrder []NodeID
	edgeOrder []EdgeID
	nodeIDs   []int // indexed by NodeID
	edgeIDs   []int // indexed by EdgeID
}

// Canonicalize numbers every node and edge of g.
func Canonicalize(g *Graph) *Canonical {
	c := &Canonical{
		graph:     g,
		nodeOrder: make([]NodeID, 0, g.NodeCount()),
		edgeOrder: make([]EdgeID, 0, g.EdgeCount()),
		nodeIDs:   make([]int, g.NodeCount()),
		edgeIDs:   make([]int, g.EdgeCount()),
	}

	nodeBuckets := make([][]NodeID, len(NodeKindNames))
	for i := 0; i < g.NodeCount(); i++ {
		k := g.Node(NodeID(i)).Kind().bucket()
		nodeBuckets[k] = append(nodeBuckets[k], NodeID(i))
	}
	for _, bucket := range nodeBuckets {
		for _, id := range bucket {
			c.nodeOrder = append(c.nodeOrder, id)
			c.nodeIDs[id] = len(c.nodeOrder)
		}
	}

	edgeBuckets := make([][]EdgeID, numEdgeKinds)
	for i := 0; i < g.EdgeCount(); i++ {
		k := g.Edge(EdgeID(i)).Kind
		edgeBuckets[k] = append(edgeBuckets[k], EdgeID(i))
	}
	for _, bucket := range edgeBuckets {
		for _, id := range bucket {
			c.edgeOrder = append(c.edgeOrder, id)
			c.edgeIDs[id] = len(c.edgeOrder)
		}
	}
	return c
}

// NodeID returns the canonical number of a node.
func (c *Canonical) NodeID(id NodeID) int {
	c.graph.Node(id)
	return c.nodeIDs[id]
}

// EdgeID returns the canonical number of an edge.
func (c *Canonical) EdgeID(id EdgeID) int {
	c.graph.Edge(id)
	return c.edgeIDs[id]
}

// Nodes returns node ids in canonical order.
func (c *Canonical) Nodes() []NodeID {
	return c.nodeOrder
}

// Edges returns edge ids in canonical order.
func (c *Canonical) Edges() []EdgeID {
	return c.edgeOrder
}

// Lookup returns the node numbered n.
func (c *Canonical) Lookup(n int) (NodeID, bool) {
	if n < 1 || n > len(c.nodeOrder) {
		return 0, false
	}
	return c.nodeOrder[n-1], true
}
