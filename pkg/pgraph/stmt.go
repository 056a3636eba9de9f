package pgraph

import "github.com/l3aro/pgraph/pkg/ast"

// AddStmt adds s and its subtree under ctx and returns the node of s. A
// statement already in the graph is returned as is.
func (b *Builder) AddStmt(s *ast.Stmt, ctx Context) NodeID {
	if id, ok := b.identity[s.ID]; ok {
		return id
	}

	switch s.Class {
	case ast.StmtCompound:
		id := b.addStmtNode(s, StmtCompound{Stmt: s}, ctx)
		b.addChildren(id, s.Children, ctx)
		return id
	case ast.StmtDeclStmt:
		return b.addDeclStmt(s, ctx)
	case ast.StmtReturn:
		id := b.addStmtNode(s, StmtReturn{Stmt: s}, ctx)
		b.addChildren(id, s.Children, ctx)
		return id
	case ast.StmtDeclRef:
		return b.addRef(s, ctx)
	case ast.StmtCall:
		return b.addCall(s, ctx)
	case ast.StmtMemberCall:
		return b.addMemberCall(s, ctx)
	case ast.StmtConstruct:
		return b.addConstruct(s, ctx)
	case ast.StmtMember:
		return b.addMember(s, ctx)
	case ast.StmtThis:
		return b.addStmtNode(s, StmtThis{Stmt: s}, ctx)
	default:
		id := b.addStmtNode(s, StmtOther{Stmt: s}, ctx)
		b.addChildren(id, ast.SubStmts(s), ctx)
		return id
	}
}

func (b *Builder) addChildren(id NodeID, children []*ast.Stmt, ctx Context) {
	for _, c := range children {
		b.graph.AddEdge(id, b.AddStmt(c, ctx), EdgeChild)
	}
}

func (b *Builder) addDeclStmt(s *ast.Stmt, ctx Context) NodeID {
	id := b.addStmtNode(s, StmtDecl{Stmt: s}, ctx)
	for _, d := range s.Decls {
		if did, ok := b.AddDecl(d, ctx); ok {
			b.graph.AddEdge(id, did, EdgeDeclares)
		}
	}
	return id
}

func (b *Builder) addRef(s *ast.Stmt, ctx Context) NodeID {
	id := b.addStmtNode(s, StmtRef{Stmt: s}, ctx)
	if s.Ref == nil {
		return id
	}
	if did, ok := b.Lookup(s.Ref); ok {
		b.graph.AddEdge(id, did, EdgeDefUse)
	} else {
		b.logger.Debug("unresolved reference", "name", s.Ref.Name)
	}
	return id
}

func (b *Builder) addCall(s *ast.Stmt, ctx Context) NodeID {
	id := b.addStmtNode(s, StmtCall{Stmt: s}, ctx)
	if s.Callee != nil {
		b.graph.AddEdge(id, b.resolveCallee(s.Callee), EdgeInvokesFunction)
	}
	if s.Func != nil {
		b.graph.AddEdge(id, b.AddStmt(s.Func, ctx), EdgeChild)
	}
	b.addArgs(id, s.Args, ctx)
	return id
}

func (b *Builder) addMemberCall(s *ast.Stmt, ctx Context) NodeID {
	id := b.addStmtNode(s, StmtMemberCall{Stmt: s}, ctx)
	if s.Callee != nil {
		target := b.resolveCallee(s.Callee)
		kind := EdgeInvokesMethod
		if b.graph.Node(target).Kind() == NodeDeclDestructor {
			kind = EdgeInvokesDestructor
		}
		b.graph.AddEdge(id, target, kind)
	}
	b.addArgs(id, s.Args, ctx)
	if s.Object != nil {
		b.graph.AddEdge(id, b.AddStmt(s.Object, ctx), EdgeObject)
	}
	return id
}

func (b *Builder) addConstruct(s *ast.Stmt, ctx Context) NodeID {
	id := b.addStmtNode(s, StmtConstructorCall{Stmt: s}, ctx)
	if s.Callee != nil {
		b.graph.AddEdge(id, b.resolveCallee(s.Callee), EdgeInvokesConstructor)
	}
	b.addArgs(id, s.Args, ctx)
	return id
}

func (b *Builder) addMember(s *ast.Stmt, ctx Context) NodeID {
	id := b.addStmtNode(s, StmtField{Stmt: s}, ctx)
	if s.Object != nil {
		b.graph.AddEdge(id, b.AddStmt(s.Object, ctx), EdgeObject)
	}
	if s.Ref == nil {
		b.logger.Debug("unresolved field access", "at", s.Range.Start)
		return id
	}
	if fid, ok := b.Lookup(s.Ref); ok {
		b.graph.AddEdge(id, fid, EdgeFieldAccess)
	} else {
		b.logger.Debug("unresolved field access", "field", s.Ref.Name)
	}
	return id
}

func (b *Builder) addArgs(id NodeID, args []*ast.Stmt, ctx Context) {
	for i, a := range args {
		aid := b.AddStmt(a, ctx)
		if n := b.graph.Node(aid); n.Ordinal == 0 {
			n.Ordinal = i + 1
			b.graph.ReplaceNode(aid, n)
		}
		b.graph.AddEdge(id, aid, EdgeArgPass)
	}
}
