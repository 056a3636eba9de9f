package frontend

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/l3aro/pgraph/pkg/ast"
)

// leaves never carry interesting children.
var leaves = map[string]bool{
	"number_literal":       true,
	"string_literal":       true,
	"raw_string_literal":   true,
	"char_literal":         true,
	"concatenated_string":  true,
	"user_defined_literal": true,
	"true":                 true,
	"false":                true,
	"null":                 true,
	"nullptr":              true,
	"lambda_expression":    true,
	"sizeof_expression":    true,
	"alignof_expression":   true,
	"template_function":    true,
}

// typeNodes are skipped when converting expression children.
var typeNodes = map[string]bool{
	"type_descriptor":        true,
	"primitive_type":         true,
	"type_identifier":        true,
	"sized_type_specifier":   true,
	"template_argument_list": true,
	"abstract_declarator":    true,
	"field_identifier":       true,
}

// expr converts an expression node.
func (c *bodyConverter) expr(n *sitter.Node) *ast.Stmt {
	if n == nil || n.Type() == "comment" {
		return nil
	}
	switch n.Type() {
	case "identifier":
		return c.identifier(n)
	case "qualified_identifier":
		s := c.newStmt(ast.StmtDeclRef, n)
		s.Ref = c.u.lookupGlobal(c.u.text(n), c.ns)
		if s.Ref == nil {
			s.Ref = c.u.lookupFunction(c.u.text(n), c.ns, -1)
		}
		return s
	case "this":
		return c.newStmt(ast.StmtThis, n)
	case "field_expression":
		s := c.newStmt(ast.StmtMember, n)
		arg := n.ChildByFieldName("argument")
		s.Object = c.expr(arg)
		s.Ref = lookupField(c.typeOf(arg), c.u.text(n.ChildByFieldName("field")))
		if s.Ref == nil {
			c.u.logger.Debug("unresolved member", "expr", c.u.text(n), "offset", n.StartByte())
		}
		return s
	case "call_expression":
		return c.call(n)
	case "new_expression":
		return c.newExpr(n)
	case "parenthesized_expression":
		if inner := namedChildren(n); len(inner) == 1 {
			s := c.newStmt(ast.StmtOther, n)
			s.Children = compact(c.expr(inner[0]))
			return s
		}
	}
	if leaves[n.Type()] {
		return c.newStmt(ast.StmtOther, n)
	}
	s := c.newStmt(ast.StmtOther, n)
	for _, child := range namedChildren(n) {
		if typeNodes[child.Type()] {
			continue
		}
		if st := c.stmt(child); st != nil {
			s.Children = append(s.Children, st)
		}
	}
	return s
}

// identifier resolves an unqualified name: locals and parameters, then
// members of the implicit this, then globals and functions.
func (c *bodyConverter) identifier(n *sitter.Node) *ast.Stmt {
	name := c.u.text(n)
	if d := c.locals.lookup(name); d != nil {
		s := c.newStmt(ast.StmtDeclRef, n)
		s.Ref = d
		return s
	}
	if f := lookupField(c.class, name); f != nil {
		s := c.newStmt(ast.StmtMember, n)
		s.Object = c.implicitThis(n)
		s.Ref = f
		return s
	}
	s := c.newStmt(ast.StmtDeclRef, n)
	s.Ref = c.u.lookupGlobal(name, c.ns)
	if s.Ref == nil {
		s.Ref = c.u.lookupFunction(name, c.ns, -1)
	}
	if s.Ref == nil {
		c.u.logger.Debug("unresolved name", "name", name, "offset", n.StartByte())
	}
	return s
}

func (c *bodyConverter) implicitThis(n *sitter.Node) *ast.Stmt {
	s := c.u.fac.Stmt(ast.StmtThis, n.StartByte(), n.StartByte())
	s.Syntax = "this"
	s.Implicit = true
	return s
}

func (c *bodyConverter) call(n *sitter.Node) *ast.Stmt {
	fn := n.ChildByFieldName("function")
	args := c.args(n.ChildByFieldName("arguments"))

	switch fn.Type() {
	case "field_expression":
		recv := fn.ChildByFieldName("argument")
		field := fn.ChildByFieldName("field")
		s := c.newStmt(ast.StmtMemberCall, n)
		rec := c.typeOf(recv)
		if field != nil && field.Type() == "destructor_name" {
			s.Callee = rec.Destructor()
		} else {
			s.Callee = lookupMethod(rec, c.u.text(field), len(args))
		}
		s.Object = c.expr(recv)
		s.Args = args
		return s

	case "identifier":
		name := c.u.text(fn)
		if c.locals.lookup(name) == nil {
			if m := lookupMethod(c.class, name, len(args)); m != nil {
				s := c.newStmt(ast.StmtMemberCall, n)
				s.Callee = m
				s.Object = c.implicitThis(fn)
				s.Args = args
				return s
			}
			if f := c.u.lookupFunction(name, c.ns, len(args)); f != nil {
				return c.direct(n, f, args)
			}
			if rec := c.u.lookupRecord(name, c.ns); rec != nil {
				return c.construct(n, rec, args)
			}
		}

	case "qualified_identifier":
		name := c.u.text(fn)
		if f := c.u.lookupFunction(name, c.ns, len(args)); f != nil {
			return c.direct(n, f, args)
		}
		if rec := c.u.lookupRecord(name, c.ns); rec != nil {
			return c.construct(n, rec, args)
		}
	}

	s := c.newStmt(ast.StmtCall, n)
	s.Func = c.expr(fn)
	s.Args = args
	return s
}

func (c *bodyConverter) direct(n *sitter.Node, callee *ast.Decl, args []*ast.Stmt) *ast.Stmt {
	s := c.newStmt(ast.StmtCall, n)
	s.Callee = callee
	s.Args = args
	return s
}

// construct converts a functional cast T(args). Records without
// user-declared constructors stay plain expressions.
func (c *bodyConverter) construct(n *sitter.Node, rec *ast.Decl, args []*ast.Stmt) *ast.Stmt {
	ctor := lookupConstructor(rec, len(args))
	if ctor == nil {
		s := c.newStmt(ast.StmtOther, n)
		s.Children = args
		return s
	}
	s := c.newStmt(ast.StmtConstruct, n)
	s.Callee = ctor
	s.Args = args
	return s
}

func (c *bodyConverter) newExpr(n *sitter.Node) *ast.Stmt {
	s := c.newStmt(ast.StmtOther, n)
	var args []*ast.Stmt
	if list := n.ChildByFieldName("arguments"); list != nil {
		args = c.args(list)
	}
	rec := c.u.lookupRecord(c.u.typeName(n.ChildByFieldName("type")), c.ns)
	if ctor := lookupConstructor(rec, len(args)); ctor != nil {
		inner := c.newStmt(ast.StmtConstruct, n)
		inner.Callee = ctor
		inner.Args = args
		s.Children = []*ast.Stmt{inner}
		return s
	}
	s.Children = args
	return s
}

// typeOf returns the record an expression evaluates to, following pointers.
func (c *bodyConverter) typeOf(n *sitter.Node) *ast.Decl {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "identifier":
		name := c.u.text(n)
		if d := c.locals.lookup(name); d != nil {
			return d.TypeDecl
		}
		if f := lookupField(c.class, name); f != nil {
			return f.TypeDecl
		}
		if g := c.u.lookupGlobal(name, c.ns); g != nil {
			return g.TypeDecl
		}
	case "qualified_identifier":
		if g := c.u.lookupGlobal(c.u.text(n), c.ns); g != nil {
			return g.TypeDecl
		}
	case "this":
		return c.class
	case "field_expression":
		rec := c.typeOf(n.ChildByFieldName("argument"))
		if f := lookupField(rec, c.u.text(n.ChildByFieldName("field"))); f != nil {
			return f.TypeDecl
		}
	case "call_expression":
		return c.returnType(n)
	case "parenthesized_expression", "pointer_expression", "subscript_expression":
		if inner := n.ChildByFieldName("argument"); inner != nil {
			return c.typeOf(inner)
		}
		if inner := namedChildren(n); len(inner) > 0 {
			return c.typeOf(inner[0])
		}
	case "new_expression":
		return c.u.lookupRecord(c.u.typeName(n.ChildByFieldName("type")), c.ns)
	}
	return nil
}

// returnType resolves the record a call returns by value, or the record
// a functional cast constructs.
func (c *bodyConverter) returnType(n *sitter.Node) *ast.Decl {
	fn := n.ChildByFieldName("function")
	nargs := len(namedChildren(n.ChildByFieldName("arguments")))
	if fn == nil {
		return nil
	}
	var callee *ast.Decl
	switch fn.Type() {
	case "field_expression":
		rec := c.typeOf(fn.ChildByFieldName("argument"))
		callee = lookupMethod(rec, c.u.text(fn.ChildByFieldName("field")), nargs)
	case "identifier", "qualified_identifier":
		name := c.u.text(fn)
		if fn.Type() == "identifier" {
			callee = lookupMethod(c.class, name, nargs)
		}
		if callee == nil {
			callee = c.u.lookupFunction(name, c.ns, nargs)
		}
		if callee == nil {
			return c.u.lookupRecord(name, c.ns)
		}
	}
	if callee == nil {
		return nil
	}
	return callee.TypeDecl
}
