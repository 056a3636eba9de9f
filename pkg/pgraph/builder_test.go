package pgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/pgraph/pkg/ast"
)

func single(t *testing.T, ids []NodeID) NodeID {
	t.Helper()
	require.Len(t, ids, 1)
	return ids[0]
}

func TestBuilder_ClassWithFieldCtorAndMethod(t *testing.T) {
	sc := buildScenarioA()
	b := NewBuilder()
	g := b.AddUnit(sc.unit)

	foo := single(t, g.NodesOfKind(NodeDeclRecord))
	assert.Equal(t, "Foo", g.Node(foo).Name())

	bar := single(t, g.Successors(foo, EdgeFieldOf))
	assert.Equal(t, NodeDeclField, g.Node(bar).Kind())
	class, ok := g.Node(bar).Context.Class()
	require.True(t, ok)
	assert.Equal(t, foo, class)

	ctor := single(t, g.Successors(foo, EdgeConstructorOf))
	assert.Equal(t, NodeDeclConstructor, g.Node(ctor).Kind())
	body := single(t, g.Successors(ctor, EdgeEntry))
	assert.Equal(t, NodeStmtCompound, g.Node(body).Kind())

	// one field access in the constructor, one in the getter
	accesses := g.Predecessors(bar, EdgeFieldAccess)
	require.Len(t, accesses, 2)
	fn, ok := g.Node(accesses[0]).Context.Function()
	require.True(t, ok)
	assert.Equal(t, ctor, fn)

	getBar := single(t, g.Successors(foo, EdgeMethodOf))
	assert.Equal(t, "Foo::get_bar", g.Node(getBar).Name())

	call := single(t, g.Predecessors(getBar, EdgeInvokesMethod))
	callID, ok := b.LookupStmt(sc.call)
	require.True(t, ok)
	assert.Equal(t, callID, call)
	assert.Equal(t, NodeStmtMemberCall, g.Node(call).Kind())

	mainID, ok := b.Lookup(sc.main)
	require.True(t, ok)
	fn, ok = g.Node(call).Context.Function()
	require.True(t, ok)
	assert.Equal(t, mainID, fn)

	recv := single(t, g.Successors(call, EdgeObject))
	assert.Equal(t, NodeStmtRef, g.Node(recv).Kind())
	local := single(t, g.Successors(recv, EdgeDefUse))
	assert.Equal(t, NodeDeclVar, g.Node(local).Kind())
	assert.Equal(t, "f", g.Node(local).Name())

	construct := single(t, g.Successors(local, EdgeDefines))
	assert.Equal(t, []NodeID{ctor}, g.Successors(construct, EdgeInvokesConstructor))
}

func TestBuilder_PrototypeUpgradedByDefinition(t *testing.T) {
	sc := buildScenarioB()
	b := NewBuilder()
	g := b.AddUnit(sc.unit)

	assert.Len(t, g.NodesOfKind(NodeDeclFunction), 2)

	f, ok := b.Lookup(sc.proto)
	require.True(t, ok)
	node := g.Node(f)
	assert.Same(t, sc.def, node.Decl())
	assert.Equal(t, sc.def.Range, node.Range())

	root := single(t, g.Successors(f, EdgeEntry))
	assert.Equal(t, NodeStmtCompound, g.Node(root).Kind())

	callID, ok := b.LookupStmt(sc.call)
	require.True(t, ok)
	assert.Equal(t, []NodeID{f}, g.Successors(callID, EdgeInvokesFunction))

	// parameters come from the definition and are built once
	param := single(t, g.Successors(f, EdgeParamOf))
	assert.Same(t, sc.def.Params[0], g.Node(param).Decl())
	assert.Equal(t, 1, g.Node(param).Ordinal)
	assert.Len(t, g.NodesOfKind(NodeDeclParam), 1)

	ret := single(t, g.Successors(root, EdgeChild))
	use := single(t, g.Successors(ret, EdgeChild))
	assert.Equal(t, []NodeID{param}, g.Successors(use, EdgeDefUse))

	// the argument carries its position
	arg := single(t, g.Successors(callID, EdgeArgPass))
	assert.Equal(t, 1, g.Node(arg).Ordinal)
}

func TestBuilder_IdempotentIdentity(t *testing.T) {
	sc := buildScenarioB()
	b := NewBuilder()
	g := b.AddUnit(sc.unit)
	nodes, edges := g.NodeCount(), g.EdgeCount()

	b.AddTopLevel(sc.def)
	b.AddTopLevel(sc.proto)

	assert.Equal(t, nodes, g.NodeCount())
	assert.Equal(t, edges, g.EdgeCount())

	tables := Export(g)
	var rows []NodeRow
	for _, r := range tables.Nodes {
		if r.Kind == "Decl.Function" && r.Name == "f" {
			rows = append(rows, r)
		}
	}
	require.Len(t, rows, 1)
	assert.Equal(t, sc.def.Range.Start, rows[0].Start)
	assert.Equal(t, sc.def.Range.End, rows[0].End)
}

func TestBuilder_ExternalPrototypeKeepsParams(t *testing.T) {
	s := newSource()
	ext := s.open(ast.DeclFunction, "puts")
	s.param(ext, "s")
	s.close(ext)

	b := NewBuilder()
	id, ok := b.AddTopLevel(ext)
	require.True(t, ok)

	g := b.Graph()
	assert.False(t, g.Node(id).HasBody())
	assert.Len(t, g.Successors(id, EdgeParamOf), 1)
	assert.Empty(t, g.Successors(id, EdgeEntry))
}

func TestBuilder_BaseDeclaredLaterIsNotLinked(t *testing.T) {
	tests := []struct {
		name      string
		baseFirst bool
		inherits  int
	}{
		{name: "base after derived", baseFirst: false, inherits: 0},
		{name: "base before derived", baseFirst: true, inherits: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSource()
			var a, derived *ast.Decl
			if tt.baseFirst {
				a = s.close(s.record("A"))
				derived = s.record("B")
			} else {
				derived = s.record("B")
			}
			s.close(derived)
			if !tt.baseFirst {
				a = s.close(s.record("A"))
			}
			derived.Bases = []*ast.Decl{a}

			decls := []*ast.Decl{derived, a}
			if tt.baseFirst {
				decls = []*ast.Decl{a, derived}
			}
			b := NewBuilder()
			g := b.AddUnit(&ast.Unit{Decls: decls})

			var inherits []Edge
			for i := 0; i < g.EdgeCount(); i++ {
				if e := g.Edge(EdgeID(i)); e.Kind == EdgeInherits {
					inherits = append(inherits, e)
				}
			}
			require.Len(t, inherits, tt.inherits)
			if tt.inherits == 1 {
				bid, _ := b.Lookup(derived)
				aid, _ := b.Lookup(a)
				assert.Equal(t, Edge{Src: bid, Dst: aid, Kind: EdgeInherits}, inherits[0])
			}
		})
	}
}

func TestBuilder_ImplicitDestructors(t *testing.T) {
	sc := buildScenarioD()
	b := NewBuilder()
	g := b.AddUnit(sc.unit)

	foo, ok := b.Lookup(sc.foo)
	require.True(t, ok)
	dtor := single(t, g.Successors(foo, EdgeDestructorOf))
	assert.Equal(t, NodeDeclDestructor, g.Node(dtor).Kind())

	calls := g.NodesOfKind(NodeStmtImplicitDestructor)
	require.Len(t, calls, 2)

	ifID, ok := b.LookupStmt(sc.ifs)
	require.True(t, ok)
	outerID, ok := b.LookupStmt(sc.outer)
	require.True(t, ok)
	fnID, ok := b.Lookup(sc.fn)
	require.True(t, ok)

	var parents []NodeID
	for _, c := range calls {
		assert.Equal(t, []NodeID{dtor}, g.Successors(c, EdgeInvokesDestructor))
		parent, ok := g.Parent(c)
		require.True(t, ok)
		parents = append(parents, parent)
		fn, ok := g.Node(c).Context.Function()
		require.True(t, ok)
		assert.Equal(t, fnID, fn)
	}
	// early return inside the if, then the end of the inner block
	assert.Equal(t, []NodeID{ifID, outerID}, parents)

	payload, ok := g.Node(calls[0]).Payload.(StmtImplicitDestructor)
	require.True(t, ok)
	assert.Same(t, sc.ret, payload.Trigger)
	assert.Equal(t, "a", payload.Var.Name)
	assert.Equal(t, "Stmt.Call", g.Node(calls[0]).Kind().String())
}

func TestBuilder_Totality(t *testing.T) {
	tests := []struct {
		name string
		unit func() (*ast.Unit, int)
	}{
		{name: "class and caller", unit: func() (*ast.Unit, int) { return buildScenarioA().unit, 0 }},
		{name: "prototype and definition", unit: func() (*ast.Unit, int) { return buildScenarioB().unit, 0 }},
		{name: "destructors", unit: func() (*ast.Unit, int) { return buildScenarioD().unit, 2 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unit, synthetic := tt.unit()
			b := NewBuilder()
			g := b.AddUnit(unit)

			seen := make(map[ast.ID]bool)
			for _, d := range unit.Decls {
				ast.Inspect(d, func(n ast.Node) bool {
					switch n := n.(type) {
					case *ast.Decl:
						// non-defining redeclarations share the definition's node
						if def := n.Definition(); def != nil && def != n {
							return false
						}
						_, ok := b.Lookup(n)
						assert.True(t, ok, "no node for declaration %s", n.Name)
						seen[n.Canonical().ID] = true
					case *ast.Stmt:
						_, ok := b.LookupStmt(n)
						assert.True(t, ok, "no node for %s statement", n.Class)
						seen[n.ID] = true
					}
					return true
				})
			}
			assert.Equal(t, len(seen)+synthetic, g.NodeCount())
		})
	}
}

func TestBuilder_EdgeEndpointsExist(t *testing.T) {
	for _, unit := range []*ast.Unit{buildScenarioA().unit, buildScenarioB().unit, buildScenarioD().unit} {
		tables := Export(NewBuilder().AddUnit(unit))

		ids := make(map[int]bool, len(tables.Nodes))
		for _, r := range tables.Nodes {
			ids[r.ID] = true
		}
		for _, e := range tables.Edges {
			assert.True(t, ids[e.Src], "edge %d source %d", e.ID, e.Src)
			assert.True(t, ids[e.Dst], "edge %d destination %d", e.ID, e.Dst)
		}
	}
}

func TestBuilder_Deterministic(t *testing.T) {
	first := Export(NewBuilder().AddUnit(buildScenarioA().unit))
	second := Export(NewBuilder().AddUnit(buildScenarioA().unit))
	assert.Equal(t, first, second)
}

func TestBuilder_UnknownDeclKind(t *testing.T) {
	b := NewBuilder()
	_, ok := b.AddDecl(&ast.Decl{ID: 1, Kind: ast.DeclKind(99)}, Context{})
	assert.False(t, ok)
	assert.Zero(t, b.Graph().NodeCount())
}

func TestBuilder_UnresolvedReferencesAreOmitted(t *testing.T) {
	s := newSource()
	extern := &ast.Decl{ID: s.f.NextID(), Kind: ast.DeclVar, Name: "elsewhere"}
	fn := s.open(ast.DeclFunction, "f")
	missing := &ast.Decl{ID: s.f.NextID(), Kind: ast.DeclField, Name: "S::gone"}
	fn.Body = s.stmt(ast.StmtCompound, s.ref(extern), s.fieldAccess(s.this(), missing))
	s.close(fn)

	b := NewBuilder()
	g := b.AddUnit(&ast.Unit{Decls: []*ast.Decl{fn}})

	for i := 0; i < g.EdgeCount(); i++ {
		e := g.Edge(EdgeID(i))
		assert.NotEqual(t, EdgeDefUse, e.Kind)
		assert.NotEqual(t, EdgeFieldAccess, e.Kind)
	}
}
