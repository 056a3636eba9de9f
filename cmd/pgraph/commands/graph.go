package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/l3aro/pgraph/pkg/pgraph"
	"github.com/l3aro/pgraph/pkg/pipeline"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph <file>",
	Short: "Summarize the program graph of a file",
	Long: `Builds the program graph of one translation unit and prints node and edge
counts per kind. With --node, prints the incoming and outgoing edges of the node
with that table id instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conf, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		g, _, err := pipeline.BuildUnit(cmd.Context(), args[0], newLogger(conf))
		if err != nil {
			return err
		}
		c := pgraph.Canonicalize(g)
		jsonOutput, _ := cmd.Flags().GetBool("json")

		if cmd.Flags().Changed("node") {
			id, _ := cmd.Flags().GetInt("node")
			view, err := describeNode(g, c, id)
			if err != nil {
				return err
			}
			return emit(view, jsonOutput, printNodeView)
		}
		return emit(summarize(g), jsonOutput, printGraphSummary)
	},
}

type graphSummary struct {
	Nodes      int            `json:"nodes"`
	Edges      int            `json:"edges"`
	NodeKinds  map[string]int `json:"node_kinds"`
	EdgeKinds  map[string]int `json:"edge_kinds"`
	Functions  int            `json:"functions_with_body"`
	Destructed int            `json:"implicit_destructor_calls"`
}

func summarize(g *pgraph.Graph) graphSummary {
	s := graphSummary{
		Nodes:     g.NodeCount(),
		Edges:     g.EdgeCount(),
		NodeKinds: make(map[string]int),
		EdgeKinds: make(map[string]int),
	}
	for i := 0; i < g.NodeCount(); i++ {
		n := g.Node(pgraph.NodeID(i))
		s.NodeKinds[n.Kind().String()]++
		if d := n.Decl(); d != nil && d.Kind.IsFunctionLike() && n.HasBody() {
			s.Functions++
		}
	}
	for i := 0; i < g.EdgeCount(); i++ {
		s.EdgeKinds[g.Edge(pgraph.EdgeID(i)).Kind.String()]++
	}
	s.Destructed = len(g.NodesOfKind(pgraph.NodeStmtImplicitDestructor))
	return s
}

type edgeView struct {
	ID    int    `json:"id"`
	Kind  string `json:"kind"`
	Other int    `json:"other"`
	Name  string `json:"other_kind"`
}

type nodeView struct {
	ID       int        `json:"id"`
	Kind     string     `json:"kind"`
	Name     string     `json:"name,omitempty"`
	Parent   int        `json:"parent,omitempty"`
	Incoming []edgeView `json:"incoming"`
	Outgoing []edgeView `json:"outgoing"`
}

func describeNode(g *pgraph.Graph, c *pgraph.Canonical, id int) (nodeView, error) {
	nid, ok := c.Lookup(id)
	if !ok {
		return nodeView{}, fmt.Errorf("%w: %d", pgraph.ErrUnknownNode, id)
	}
	n := g.Node(nid)
	v := nodeView{ID: id, Kind: n.Kind().String(), Name: n.Name()}
	if p, ok := g.Parent(nid); ok {
		v.Parent = c.NodeID(p)
	}
	for _, eid := range g.Incoming(nid) {
		e := g.Edge(eid)
		v.Incoming = append(v.Incoming, edgeView{
			ID: c.EdgeID(eid), Kind: e.Kind.String(), Other: c.NodeID(e.Src), Name: g.Node(e.Src).Kind().String(),
		})
	}
	for _, eid := range g.Outgoing(nid) {
		e := g.Edge(eid)
		v.Outgoing = append(v.Outgoing, edgeView{
			ID: c.EdgeID(eid), Kind: e.Kind.String(), Other: c.NodeID(e.Dst), Name: g.Node(e.Dst).Kind().String(),
		})
	}
	sort.Slice(v.Incoming, func(i, j int) bool { return v.Incoming[i].ID < v.Incoming[j].ID })
	sort.Slice(v.Outgoing, func(i, j int) bool { return v.Outgoing[i].ID < v.Outgoing[j].ID })
	return v, nil
}

func emit[T any](v T, jsonOutput bool, render func(T)) error {
	if !jsonOutput {
		render(v)
		return nil
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func printGraphSummary(s graphSummary) {
	fmt.Printf("Nodes: %d  Edges: %d  Functions with body: %d  Implicit destructor calls: %d\n\n",
		s.Nodes, s.Edges, s.Functions, s.Destructed)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NODE KIND\tCOUNT")
	for _, name := range pgraph.NodeKindNames {
		if n := s.NodeKinds[name]; n > 0 {
			fmt.Fprintf(w, "%s\t%d\n", name, n)
		}
	}
	fmt.Fprintln(w, "\t")
	fmt.Fprintln(w, "EDGE KIND\tCOUNT")
	for _, name := range pgraph.EdgeKindNames {
		if n := s.EdgeKinds[name]; n > 0 {
			fmt.Fprintf(w, "%s\t%d\n", name, n)
		}
	}
	w.Flush()
}

func printNodeView(v nodeView) {
	fmt.Printf("Node %d: %s %s\n", v.ID, v.Kind, v.Name)
	if v.Parent != 0 {
		fmt.Printf("Parent: %d\n", v.Parent)
	}
	fmt.Printf("\nIncoming (%d):\n", len(v.Incoming))
	for _, e := range v.Incoming {
		fmt.Printf("  #%d %s <- %d (%s)\n", e.ID, e.Kind, e.Other, e.Name)
	}
	fmt.Printf("\nOutgoing (%d):\n", len(v.Outgoing))
	for _, e := range v.Outgoing {
		fmt.Printf("  #%d %s -> %d (%s)\n", e.ID, e.Kind, e.Other, e.Name)
	}
}

func init() {
	graphCmd.Flags().Int("node", 0, "Show the edges of the node with this table id")
	graphCmd.Flags().BoolP("json", "j", false, "Output as JSON")
	RootCmd.AddCommand(graphCmd)
}
