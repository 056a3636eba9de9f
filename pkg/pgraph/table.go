package pgraph

import "strconv"

// NodeRow is one row of the node table. Zero references and ordinals mean
// absent.
type NodeRow struct {
	ID             int    `json:"id" msgpack:"id"`
	Kind           string `json:"kind" msgpack:"kind"`
	Name           string `json:"name,omitempty" msgpack:"name"`
	Annotation     string `json:"annotation,omitempty" msgpack:"annotation"`
	ParentDecl     int    `json:"parent_decl,omitempty" msgpack:"parent_decl"`
	ParentClass    int    `json:"parent_class,omitempty" msgpack:"parent_class"`
	ParentFunction int    `json:"parent_function,omitempty" msgpack:"parent_function"`
	Ordinal        int    `json:"ordinal,omitempty" msgpack:"ordinal"`
	File           string `json:"file" msgpack:"file"`
	Start          uint32 `json:"start" msgpack:"start"`
	End            uint32 `json:"end" msgpack:"end"`
}

// Fields renders the row as table columns.
func (r NodeRow) Fields() []string {
	return []string{
		strconv.Itoa(r.ID),
		r.Kind,
		r.Name,
		r.Annotation,
		optional(r.ParentDecl),
		optional(r.ParentClass),
		optional(r.ParentFunction),
		optional(r.Ordinal),
		r.File,
		strconv.FormatUint(uint64(r.Start), 10),
		strconv.FormatUint(uint64(r.End), 10),
	}
}

// NodeColumns names the node table columns.
var NodeColumns = []string{
	"id", "kind", "name", "annotation", "parent_decl", "parent_class",
	"parent_function", "ordinal", "file", "start", "end",
}

// EdgeRow is one row of the edge table.
type EdgeRow struct {
	ID   int    `json:"id" msgpack:"id"`
	Kind string `json:"kind" msgpack:"kind"`
	Src  int    `json:"src" msgpack:"src"`
	Dst  int    `json:"dst" msgpack:"dst"`
}

// Fields renders the row as table columns.
func (r EdgeRow) Fields() []string {
	return []string{strconv.Itoa(r.ID), r.Kind, strconv.Itoa(r.Src), strconv.Itoa(r.Dst)}
}

// EdgeColumns names the edge table columns.
var EdgeColumns = []string{"id", "kind", "src", "dst"}

// Tables holds both exported tables in canonical order.
type Tables struct {
	Nodes []NodeRow `json:"nodes" msgpack:"nodes"`
	Edges []EdgeRow `json:"edges" msgpack:"edges"`
}

// Tables renders the canonical numbering into rows.
func (c *Canonical) Tables() Tables {
	t := Tables{
		Nodes: make([]NodeRow, 0, len(c.nodeOrder)),
		Edges: make([]EdgeRow, 0, len(c.edgeOrder)),
	}
	for _, id := range c.nodeOrder {
		n := c.graph.Node(id)
		r := n.Range()
		t.Nodes = append(t.Nodes, NodeRow{
			ID:             c.nodeIDs[id],
			Kind:           n.Kind().String(),
			Name:           n.Name(),
			Annotation:     n.Annotation(),
			ParentDecl:     c.contextRef(n.Context.Decl()),
			ParentClass:    c.contextRef(n.Context.Class()),
			ParentFunction: c.contextRef(n.Context.Function()),
			Ordinal:        n.Ordinal,
			File:           r.File,
			Start:          r.Start,
			End:            r.End,
		})
	}
	for _, id := range c.edgeOrder {
		e := c.graph.Edge(id)
		t.Edges = append(t.Edges, EdgeRow{
			ID:   c.edgeIDs[id],
			Kind: e.Kind.String(),
			Src:  c.nodeIDs[e.Src],
			Dst:  c.nodeIDs[e.Dst],
		})
	}
	return t
}

func (c *Canonical) contextRef(id NodeID, ok bool) int {
	if !ok {
		return 0
	}
	return c.NodeID(id)
}

// Export canonicalizes g and renders its tables.
func Export(g *Graph) Tables {
	return Canonicalize(g).Tables()
}

func optional(v int) string {
	if v == 0 {
		return ""
	}
	return strconv.Itoa(v)
}
