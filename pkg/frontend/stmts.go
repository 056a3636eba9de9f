package frontend

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/l3aro/pgraph/pkg/ast"
)

// scope is a lexical block of local names.
type scope struct {
	names  map[string]*ast.Decl
	parent *scope
}

func (s *scope) lookup(name string) *ast.Decl {
	for ; s != nil; s = s.parent {
		if d, ok := s.names[name]; ok {
			return d
		}
	}
	return nil
}

// bodyConverter converts one function body or initializer.
type bodyConverter struct {
	u      *unitBuilder
	class  *ast.Decl // record of the implicit this, if any
	ns     string
	locals *scope
}

// convertBodies runs the second pass over every collected body and global
// initializer.
func (u *unitBuilder) convertBodies() {
	for _, p := range u.pending {
		c := &bodyConverter{u: u, ns: p.scope}
		switch p.decl.Kind {
		case ast.DeclVar:
			c.global(p.decl, p.node)
		default:
			c.class = p.decl.Parent
			c.push()
			for _, param := range p.decl.Params {
				c.declare(param)
			}
			p.decl.Body = c.stmt(p.node)
			c.pop()
		}
	}
}

func (c *bodyConverter) push() {
	c.locals = &scope{names: make(map[string]*ast.Decl), parent: c.locals}
}

func (c *bodyConverter) pop() {
	c.locals = c.locals.parent
}

func (c *bodyConverter) declare(d *ast.Decl) {
	if d.Name != "" {
		c.locals.names[d.Name] = d
	}
}

func (c *bodyConverter) global(v *ast.Decl, dn *sitter.Node) {
	c.push()
	v.Init = c.initializer(v, unwrapDeclarator(dn), dn)
	c.pop()
}

func (c *bodyConverter) newStmt(class ast.StmtClass, n *sitter.Node) *ast.Stmt {
	s := c.u.fac.Stmt(class, n.StartByte(), n.EndByte())
	s.Syntax = n.Type()
	return s
}

func (c *bodyConverter) stmts(nodes []*sitter.Node) []*ast.Stmt {
	out := make([]*ast.Stmt, 0, len(nodes))
	for _, n := range nodes {
		if s := c.stmt(n); s != nil {
			out = append(out, s)
		}
	}
	return out
}

// stmt converts a statement node. Comments convert to nil.
func (c *bodyConverter) stmt(n *sitter.Node) *ast.Stmt {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "comment":
		return nil
	case "compound_statement":
		s := c.newStmt(ast.StmtCompound, n)
		c.push()
		s.Children = c.stmts(namedChildren(n))
		c.pop()
		return s
	case "expression_statement":
		children := namedChildren(n)
		if len(children) == 0 {
			return c.newStmt(ast.StmtOther, n)
		}
		return c.expr(children[0])
	case "declaration":
		return c.declStmt(n)
	case "return_statement":
		s := c.newStmt(ast.StmtReturn, n)
		for _, e := range namedChildren(n) {
			if v := c.expr(e); v != nil {
				s.Children = append(s.Children, v)
			}
		}
		return s
	case "if_statement":
		return c.ifStmt(n)
	case "while_statement":
		s := c.newStmt(ast.StmtWhile, n)
		c.push()
		_, s.Cond = c.condition(n.ChildByFieldName("condition"))
		s.Body = c.stmt(n.ChildByFieldName("body"))
		c.pop()
		s.Children = compact(s.Cond, s.Body)
		return s
	case "do_statement":
		s := c.newStmt(ast.StmtDo, n)
		s.Body = c.stmt(n.ChildByFieldName("body"))
		_, s.Cond = c.condition(n.ChildByFieldName("condition"))
		s.Children = compact(s.Body, s.Cond)
		return s
	case "for_statement":
		return c.forStmt(n)
	case "for_range_loop":
		return c.rangeFor(n)
	case "switch_statement":
		s := c.newStmt(ast.StmtSwitch, n)
		c.push()
		s.Init, s.Cond = c.condition(n.ChildByFieldName("condition"))
		s.Body = c.stmt(n.ChildByFieldName("body"))
		c.pop()
		s.Children = compact(s.Init, s.Cond, s.Body)
		return s
	case "case_statement":
		s := c.newStmt(ast.StmtCase, n)
		value := n.ChildByFieldName("value")
		if value != nil {
			s.Cond = c.expr(value)
			s.Children = append(s.Children, s.Cond)
		}
		for _, child := range namedChildren(n) {
			if value != nil && child.StartByte() == value.StartByte() && child.Type() == value.Type() {
				continue
			}
			if st := c.stmt(child); st != nil {
				s.Children = append(s.Children, st)
			}
		}
		return s
	case "break_statement":
		return c.newStmt(ast.StmtBreak, n)
	case "continue_statement":
		return c.newStmt(ast.StmtContinue, n)
	case "goto_statement":
		s := c.newStmt(ast.StmtGoto, n)
		s.Label = c.u.text(n.ChildByFieldName("label"))
		return s
	case "labeled_statement":
		s := c.newStmt(ast.StmtLabel, n)
		label := n.ChildByFieldName("label")
		s.Label = c.u.text(label)
		for _, child := range namedChildren(n) {
			if child.Type() == "statement_identifier" {
				continue
			}
			if st := c.stmt(child); st != nil {
				s.Children = append(s.Children, st)
			}
		}
		return s
	case "try_statement":
		s := c.newStmt(ast.StmtTry, n)
		s.Body = c.stmt(n.ChildByFieldName("body"))
		s.Children = compact(s.Body)
		for _, child := range namedChildren(n) {
			if child.Type() == "catch_clause" {
				s.Children = append(s.Children, c.catchClause(child))
			}
		}
		return s
	case "throw_statement":
		s := c.newStmt(ast.StmtThrow, n)
		for _, e := range namedChildren(n) {
			if v := c.expr(e); v != nil {
				s.Children = append(s.Children, v)
			}
		}
		return s
	case "type_definition", "alias_declaration", "using_declaration", "static_assert_declaration":
		return nil
	default:
		return c.expr(n)
	}
}

func compact(stmts ...*ast.Stmt) []*ast.Stmt {
	out := make([]*ast.Stmt, 0, len(stmts))
	for _, s := range stmts {
		if s != nil {
			out = append(out, s)
		}
	}
	return out
}

func (c *bodyConverter) ifStmt(n *sitter.Node) *ast.Stmt {
	s := c.newStmt(ast.StmtIf, n)
	c.push()
	s.Init, s.Cond = c.condition(n.ChildByFieldName("condition"))
	s.Then = c.stmt(n.ChildByFieldName("consequence"))
	if alt := n.ChildByFieldName("alternative"); alt != nil {
		if alt.Type() == "else_clause" {
			if body := namedChildren(alt); len(body) > 0 {
				s.Else = c.stmt(body[0])
			}
		} else {
			s.Else = c.stmt(alt)
		}
	}
	c.pop()
	s.Children = compact(s.Init, s.Cond, s.Then, s.Else)
	return s
}

// condition converts a condition clause into its optional init statement
// and its value. Declarations in the clause land in the current scope.
func (c *bodyConverter) condition(n *sitter.Node) (init, cond *ast.Stmt) {
	if n == nil {
		return nil, nil
	}
	switch n.Type() {
	case "condition_clause":
		if i := n.ChildByFieldName("initializer"); i != nil {
			init = c.stmt(i)
		}
		value := n.ChildByFieldName("value")
		if value == nil {
			return init, nil
		}
		if value.Type() == "condition_declaration" || value.Type() == "declaration" {
			return init, c.declStmt(value)
		}
		return init, c.expr(value)
	case "parenthesized_expression":
		if inner := namedChildren(n); len(inner) == 1 {
			return nil, c.expr(inner[0])
		}
	}
	return nil, c.expr(n)
}

func (c *bodyConverter) forStmt(n *sitter.Node) *ast.Stmt {
	s := c.newStmt(ast.StmtFor, n)
	c.push()
	init := n.ChildByFieldName("initializer")
	if init == nil {
		init = n.ChildByFieldName("init")
	}
	if init != nil {
		if init.Type() == "declaration" {
			s.Init = c.declStmt(init)
		} else {
			s.Init = c.stmt(init)
		}
	}
	if cond := n.ChildByFieldName("condition"); cond != nil {
		s.Cond = c.expr(cond)
	}
	if update := n.ChildByFieldName("update"); update != nil {
		s.Inc = c.expr(update)
	}
	s.Body = c.stmt(n.ChildByFieldName("body"))
	c.pop()
	s.Children = compact(s.Init, s.Cond, s.Inc, s.Body)
	return s
}

func (c *bodyConverter) rangeFor(n *sitter.Node) *ast.Stmt {
	s := c.newStmt(ast.StmtRangeFor, n)
	c.push()
	s.Cond = c.expr(n.ChildByFieldName("right"))

	typ := n.ChildByFieldName("type")
	if dn := n.ChildByFieldName("declarator"); dn != nil {
		d := unwrapDeclarator(dn)
		v := c.u.fac.Decl(ast.DeclVar, c.u.text(d.name), typ.StartByte(), dn.EndByte())
		c.u.setType(v, typ, d, c.ns)
		decl := c.u.fac.Stmt(ast.StmtDeclStmt, typ.StartByte(), dn.EndByte())
		decl.Syntax = "for_range_declaration"
		decl.Decls = []*ast.Decl{v}
		s.Init = decl
		c.declare(v)
	}
	s.Body = c.stmt(n.ChildByFieldName("body"))
	c.pop()
	s.Children = compact(s.Init, s.Cond, s.Body)
	return s
}

func (c *bodyConverter) catchClause(n *sitter.Node) *ast.Stmt {
	s := c.newStmt(ast.StmtOther, n)
	c.push()
	if params := n.ChildByFieldName("parameters"); params != nil {
		for _, p := range c.u.params(params, c.ns) {
			c.declare(p)
		}
	}
	if body := c.stmt(n.ChildByFieldName("body")); body != nil {
		s.Children = append(s.Children, body)
	}
	c.pop()
	return s
}

// declStmt converts a local declaration. Function prototypes and local
// record definitions declare nothing. A declarator that only parses as a
// prototype but names values as its parameters declares an object.
func (c *bodyConverter) declStmt(n *sitter.Node) *ast.Stmt {
	s := c.newStmt(ast.StmtDeclStmt, n)
	typ := n.ChildByFieldName("type")
	annotation := c.u.annotation(n)

	dns := fieldChildren(n, "declarator")
	if n.Type() == "condition_declaration" && len(dns) == 0 {
		if dn := n.ChildByFieldName("declarator"); dn != nil {
			dns = append(dns, dn)
		}
	}
	for _, dn := range dns {
		d := unwrapDeclarator(dn)
		if d.name == nil {
			continue
		}
		var ctorArgs []*sitter.Node
		if d.isFunction() {
			var ok bool
			if ctorArgs, ok = c.objectArguments(d); !ok {
				continue
			}
		}
		v := c.u.fac.Decl(ast.DeclVar, c.u.text(d.name), n.StartByte(), dn.EndByte())
		v.Annotation = annotation
		c.u.setType(v, typ, d, c.ns)
		if d.value == nil && n.Type() == "condition_declaration" {
			d.value = n.ChildByFieldName("value")
		}
		if ctorArgs != nil {
			v.Init = c.construction(v, dn, "argument_list", d.function.ChildByFieldName("parameters"), c.valueRefs(ctorArgs))
		} else {
			v.Init = c.initializer(v, d, dn)
		}
		s.Decls = append(s.Decls, v)
		c.declare(v)
	}
	return s
}

// initializer converts the initializer of v, synthesizing constructor
// calls for record-typed objects.
func (c *bodyConverter) initializer(v *ast.Decl, d declarator, dn *sitter.Node) *ast.Stmt {
	constructs := v.TypeDecl != nil && !v.Indirect
	if d.value == nil {
		if !constructs {
			return nil
		}
		ctor := lookupConstructor(v.TypeDecl, 0)
		if ctor == nil {
			return nil
		}
		s := c.newStmt(ast.StmtConstruct, dn)
		s.Syntax = "implicit_construction"
		s.Implicit = true
		s.Callee = ctor
		return s
	}

	switch d.value.Type() {
	case "argument_list", "initializer_list":
		return c.construction(v, dn, d.value.Type(), d.value, c.args(d.value))
	}
	return c.expr(d.value)
}

// construction initializes v from a parenthesized or braced argument list.
func (c *bodyConverter) construction(v *ast.Decl, dn *sitter.Node, syntax string, list *sitter.Node, args []*ast.Stmt) *ast.Stmt {
	if v.TypeDecl == nil || v.Indirect {
		s := c.newStmt(ast.StmtOther, list)
		s.Children = args
		return s
	}
	s := c.newStmt(ast.StmtConstruct, dn)
	s.Syntax = syntax
	s.Callee = lookupConstructor(v.TypeDecl, len(args))
	s.Args = args
	return s
}

// objectArguments recognizes `T x(a, b);` parsed as a function declarator
// whose parameter types are bare names. When every name resolves to a
// value in scope the declarator declares an object and the names are its
// constructor arguments.
func (c *bodyConverter) objectArguments(d declarator) ([]*sitter.Node, bool) {
	if d.fnPtr || d.name.Type() != "identifier" {
		return nil, false
	}
	if inner := d.function.ChildByFieldName("declarator"); inner == nil || inner.StartByte() != d.name.StartByte() {
		return nil, false
	}
	params := d.function.ChildByFieldName("parameters")
	if params == nil {
		return nil, false
	}
	var names []*sitter.Node
	for _, p := range namedChildren(params) {
		if p.Type() == "comment" {
			continue
		}
		if p.Type() != "parameter_declaration" || p.NamedChildCount() != 1 {
			return nil, false
		}
		t := p.ChildByFieldName("type")
		if t == nil || t.Type() != "type_identifier" || !c.isValue(c.u.text(t)) {
			return nil, false
		}
		names = append(names, t)
	}
	return names, len(names) > 0
}

// isValue reports whether name resolves to a variable or parameter rather
// than a type.
func (c *bodyConverter) isValue(name string) bool {
	if c.locals.lookup(name) != nil {
		return true
	}
	if lookupField(c.class, name) != nil {
		return true
	}
	return c.u.lookupGlobal(name, c.ns) != nil
}

func (c *bodyConverter) valueRefs(names []*sitter.Node) []*ast.Stmt {
	out := make([]*ast.Stmt, 0, len(names))
	for _, n := range names {
		s := c.identifier(n)
		s.Syntax = "identifier"
		out = append(out, s)
	}
	return out
}

func (c *bodyConverter) args(list *sitter.Node) []*ast.Stmt {
	var out []*ast.Stmt
	for _, a := range namedChildren(list) {
		if e := c.expr(a); e != nil {
			out = append(out, e)
		}
	}
	return out
}
