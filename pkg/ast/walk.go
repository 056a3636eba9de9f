package ast

// Node is a Decl or a Stmt.
type Node interface {
	Identity() ID
}

// Identity returns the declaration's ID.
func (d *Decl) Identity() ID { return d.ID }

// Identity returns the statement's ID.
func (s *Stmt) Identity() ID { return s.ID }

// Inspect walks n depth-first in the order the graph builder visits it,
// calling f for every declaration and statement. If f returns false the
// children of that node are skipped.
func Inspect(n Node, f func(Node) bool) {
	switch n := n.(type) {
	case *Decl:
		if n == nil || !f(n) {
			return
		}
		switch {
		case n.Kind == DeclVar:
			if n.Init != nil {
				Inspect(n.Init, f)
			}
		case n.Kind.IsFunctionLike():
			for _, p := range n.Params {
				Inspect(p, f)
			}
			if n.Body != nil {
				Inspect(n.Body, f)
			}
		case n.Kind == DeclRecord:
			for _, fd := range n.Fields {
				Inspect(fd, f)
			}
			for _, m := range n.Methods {
				Inspect(m, f)
			}
			for _, c := range n.Ctors {
				Inspect(c, f)
			}
			if n.Dtor != nil {
				Inspect(n.Dtor, f)
			}
		}
	case *Stmt:
		if n == nil || !f(n) {
			return
		}
		if n.Class == StmtDeclStmt {
			for _, d := range n.Decls {
				Inspect(d, f)
			}
			return
		}
		for _, c := range SubStmts(n) {
			Inspect(c, f)
		}
	}
}

// SubStmts returns the statement children of s in traversal order.
func SubStmts(s *Stmt) []*Stmt {
	switch s.Class {
	case StmtCall:
		out := make([]*Stmt, 0, len(s.Args)+1)
		if s.Func != nil {
			out = append(out, s.Func)
		}
		return append(out, s.Args...)
	case StmtMemberCall:
		out := make([]*Stmt, 0, len(s.Args)+1)
		out = append(out, s.Args...)
		if s.Object != nil {
			out = append(out, s.Object)
		}
		return out
	case StmtConstruct:
		return s.Args
	case StmtMember:
		if s.Object != nil {
			return []*Stmt{s.Object}
		}
		return nil
	case StmtThis, StmtDeclStmt:
		return nil
	default:
		return s.Children
	}
}
