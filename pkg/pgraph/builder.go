package pgraph

import (
	"math"

	"github.com/l3aro/pgraph/internal/log"
	"github.com/l3aro/pgraph/pkg/ast"
)

// Builder turns declarations and statements into a Graph in one
// top-to-bottom pass. A Builder owns its graph and is not safe for
// concurrent use; build independent units with independent Builders.
type Builder struct {
	graph *Graph

	// identity maps source identities to the node created for them.
	identity map[ast.ID]NodeID
	// recordDefs maps a record's canonical declaration to its defining node.
	recordDefs map[ast.ID]NodeID

	// The pass has reached offset horizon of file. Redeclarations past it
	// are not yet available.
	file    string
	horizon uint32

	logger log.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger used for resolution diagnostics.
func WithLogger(l log.Logger) Option {
	return func(b *Builder) {
		b.logger = l
	}
}

// NewBuilder returns a Builder with an empty graph.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		graph:      NewGraph(),
		identity:   make(map[ast.ID]NodeID),
		recordDefs: make(map[ast.ID]NodeID),
		horizon:    math.MaxUint32,
		logger:     log.Discard(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Graph returns the graph under construction.
func (b *Builder) Graph() *Graph {
	return b.graph
}

// AddUnit adds every top-level declaration of u in source order and returns
// the graph.
func (b *Builder) AddUnit(u *ast.Unit) *Graph {
	for _, d := range u.Decls {
		b.AddTopLevel(d)
	}
	return b.graph
}

// AddTopLevel adds a declaration at file scope and advances the pass to its
// end.
func (b *Builder) AddTopLevel(d *ast.Decl) (NodeID, bool) {
	b.file = d.Range.File
	b.horizon = d.Range.End
	return b.AddDecl(d, Context{})
}

// AddDecl adds a declaration under ctx. It reports false for declarations
// that produce no node.
func (b *Builder) AddDecl(d *ast.Decl, ctx Context) (NodeID, bool) {
	switch d.Kind {
	case ast.DeclFunction, ast.DeclMethod, ast.DeclConstructor, ast.DeclDestructor:
		return b.addFunctionLike(d, ctx), true
	case ast.DeclRecord:
		return b.addRecord(d, ctx), true
	case ast.DeclVar:
		return b.addVar(d, ctx), true
	case ast.DeclField, ast.DeclParam:
		return b.addLeafDecl(d, ctx), true
	}
	b.logger.Debug("skipping declaration", "kind", d.Kind, "name", d.Name)
	return 0, false
}

// Lookup returns the node of any redeclaration of d.
func (b *Builder) Lookup(d *ast.Decl) (NodeID, bool) {
	for _, r := range d.Redecls() {
		if id, ok := b.identity[r.ID]; ok {
			return id, true
		}
	}
	return 0, false
}

// LookupStmt returns the node created for s.
func (b *Builder) LookupStmt(s *ast.Stmt) (NodeID, bool) {
	id, ok := b.identity[s.ID]
	return id, ok
}

func (b *Builder) visible(r *ast.Decl) bool {
	return r.Range.File != b.file || r.Range.Start <= b.horizon
}

// visibleDefinition returns the first redeclaration of d the pass has reached
// that carries a body (functions) or braces (records).
func (b *Builder) visibleDefinition(d *ast.Decl) *ast.Decl {
	for _, r := range d.Redecls() {
		if !b.visible(r) {
			continue
		}
		if r.Kind == ast.DeclRecord && r.IsDefinition {
			return r
		}
		if r.Kind.IsFunctionLike() && r.Body != nil {
			return r
		}
	}
	return nil
}

func (b *Builder) addDeclNode(d *ast.Decl, ctx Context, ordinal int) NodeID {
	id := b.graph.AddNode(Node{Payload: declPayload(d), Context: ctx, Ordinal: ordinal})
	b.identity[d.ID] = id
	return id
}

func (b *Builder) addStmtNode(s *ast.Stmt, p Payload, ctx Context) NodeID {
	id := b.graph.AddNode(Node{Payload: p, Context: ctx})
	b.identity[s.ID] = id
	return id
}

func (b *Builder) addFunctionLike(d *ast.Decl, ctx Context) NodeID {
	def := b.visibleDefinition(d)

	if id, ok := b.Lookup(d); ok {
		if def != nil && !b.graph.Node(id).HasBody() {
			b.upgrade(id, def)
		}
		return id
	}

	decl := d
	if def != nil {
		decl = def
	}
	id := b.addDeclNode(decl, ctx, 0)
	switch {
	case def != nil:
		b.buildBody(id, def)
	case d.Definition() == nil:
		// defined outside this unit, nothing will upgrade it
		b.addParams(id, d, b.graph.Node(id).Context.WithFunction(id))
	}
	return id
}

// upgrade replaces a body-less node with its definition and builds what
// the definition brings.
func (b *Builder) upgrade(id NodeID, def *ast.Decl) {
	n := b.graph.Node(id)
	n.Payload = declPayload(def)
	b.graph.ReplaceNode(id, n)
	b.identity[def.ID] = id
	b.logger.Debug("upgraded declaration", "name", def.Name, "node", id)
	b.buildBody(id, def)
}

func (b *Builder) buildBody(id NodeID, def *ast.Decl) {
	fnCtx := b.graph.Node(id).Context.WithFunction(id)
	b.addParams(id, def, fnCtx)
	root := b.AddStmt(def.Body, fnCtx)
	b.addImplicitDestructors(def, fnCtx)
	b.graph.AddEdge(id, root, EdgeEntry)
}

func (b *Builder) addParams(id NodeID, fn *ast.Decl, ctx Context) {
	for i, p := range fn.Params {
		pid, ok := b.identity[p.ID]
		if !ok {
			pid = b.addDeclNode(p, ctx, i+1)
		}
		b.graph.AddEdge(id, pid, EdgeParamOf)
	}
}

func (b *Builder) addRecord(d *ast.Decl, ctx Context) NodeID {
	def := b.visibleDefinition(d)

	id, ok := b.Lookup(d)
	switch {
	case !ok:
		decl := d
		if def != nil {
			decl = def
		}
		id = b.addDeclNode(decl, ctx, 0)
	case def != nil && !b.graph.Node(id).Decl().IsDefinition:
		n := b.graph.Node(id)
		n.Payload = DeclRecord{Decl: def}
		b.graph.ReplaceNode(id, n)
		b.identity[def.ID] = id
	}

	if def == nil {
		return id
	}
	key := def.Canonical().ID
	if _, done := b.recordDefs[key]; done {
		return id
	}

	for _, base := range def.Bases {
		if base == nil {
			b.logger.Debug("unresolved base", "record", def.Name)
			continue
		}
		bid, ok := b.recordDefs[base.Canonical().ID]
		if !ok {
			b.logger.Debug("base not yet defined", "record", def.Name, "base", base.Name)
			continue
		}
		b.graph.AddEdge(id, bid, EdgeInherits)
	}
	b.recordDefs[key] = id

	classCtx := b.graph.Node(id).Context.WithClass(id)
	for _, f := range def.Fields {
		b.graph.AddEdge(id, b.addLeafDecl(f, classCtx), EdgeFieldOf)
	}
	for _, m := range def.Methods {
		b.graph.AddEdge(id, b.addFunctionLike(m, classCtx), EdgeMethodOf)
	}
	for _, c := range def.Ctors {
		b.graph.AddEdge(id, b.addFunctionLike(c, classCtx), EdgeConstructorOf)
	}
	if def.Dtor != nil {
		b.graph.AddEdge(id, b.addFunctionLike(def.Dtor, classCtx), EdgeDestructorOf)
	}
	return id
}

func (b *Builder) addVar(d *ast.Decl, ctx Context) NodeID {
	if id, ok := b.identity[d.ID]; ok {
		return id
	}
	id := b.addDeclNode(d, ctx, 0)
	if d.Init == nil {
		return id
	}

	initCtx := ctx
	if _, inFunction := ctx.Function(); !inFunction {
		// global initializers hang off the variable
		initCtx = ctx.WithDecl(id)
	}
	b.graph.AddEdge(id, b.AddStmt(d.Init, initCtx), EdgeDefines)
	return id
}

func (b *Builder) addLeafDecl(d *ast.Decl, ctx Context) NodeID {
	if id, ok := b.identity[d.ID]; ok {
		return id
	}
	return b.addDeclNode(d, ctx, 0)
}

// resolveCallee returns the node of a called function-like declaration,
// creating it on demand in the scope it was declared in.
func (b *Builder) resolveCallee(d *ast.Decl) NodeID {
	if id, ok := b.Lookup(d); ok {
		return id
	}
	ctx := Context{}
	if d.Parent != nil {
		if pid, ok := b.Lookup(d.Parent); ok {
			ctx = ctx.WithClass(pid)
		}
	}
	return b.addFunctionLike(d, ctx)
}
