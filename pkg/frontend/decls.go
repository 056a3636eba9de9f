package frontend

import (
	"strconv"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/l3aro/pgraph/internal/log"
	"github.com/l3aro/pgraph/pkg/ast"
)

// unitBuilder holds the per-unit symbol tables shared by both passes.
type unitBuilder struct {
	content []byte
	fac     *ast.Factory
	logger  log.Logger
	unit    *ast.Unit

	records   map[string]*ast.Decl   // qualified name -> first declaration
	functions map[string]*ast.Decl   // qualified name/arity -> first declaration
	overloads map[string][]*ast.Decl // qualified name -> first declaration of each overload
	globals   map[string]*ast.Decl

	bases   []pendingBases
	pending []pendingBody
}

type pendingBases struct {
	record *ast.Decl
	scope  string
	names  []*sitter.Node
}

// pendingBody is a body or initializer converted in the second pass.
type pendingBody struct {
	decl  *ast.Decl
	node  *sitter.Node
	scope string
}

func newUnitBuilder(path string, content []byte, logger log.Logger) *unitBuilder {
	return &unitBuilder{
		content:   content,
		fac:       ast.NewFactory(path),
		logger:    logger,
		unit:      &ast.Unit{File: path},
		records:   make(map[string]*ast.Decl),
		functions: make(map[string]*ast.Decl),
		overloads: make(map[string][]*ast.Decl),
		globals:   make(map[string]*ast.Decl),
	}
}

func (u *unitBuilder) decl(kind ast.DeclKind, name string, n *sitter.Node) *ast.Decl {
	return u.fac.Decl(kind, name, n.StartByte(), n.EndByte())
}

func (u *unitBuilder) top(d *ast.Decl) {
	d.TopLevel = true
	u.unit.Decls = append(u.unit.Decls, d)
}

// collect walks namespace-level declarations.
func (u *unitBuilder) collect(n *sitter.Node, scope string) {
	for _, c := range namedChildren(n) {
		switch c.Type() {
		case "namespace_definition":
			inner := scope
			if name := c.ChildByFieldName("name"); name != nil {
				inner = qualify(scope, u.text(name))
			}
			if body := c.ChildByFieldName("body"); body != nil {
				u.collect(body, inner)
			}
		case "linkage_specification":
			body := c.ChildByFieldName("body")
			if body == nil {
				continue
			}
			if body.Type() == "declaration_list" {
				u.collect(body, scope)
			} else {
				u.collectOne(body, scope)
			}
		case "preproc_if", "preproc_ifdef", "preproc_else", "preproc_elif":
			u.collect(c, scope)
		default:
			u.collectOne(c, scope)
		}
	}
}

func (u *unitBuilder) collectOne(n *sitter.Node, scope string) {
	switch n.Type() {
	case "class_specifier", "struct_specifier", "union_specifier":
		u.record(n, scope, nil, u.annotation(n))
	case "function_definition":
		u.namespaceFunction(n, scope)
	case "declaration":
		u.namespaceDeclaration(n, scope)
	case "template_declaration", "type_definition", "alias_declaration", "using_declaration",
		"namespace_alias_definition", "static_assert_declaration":
		u.logger.Debug("skipping declaration", "kind", n.Type(), "offset", n.StartByte())
	}
}

// record collects a class, struct or union. Nested records are appended to
// the unit before their enclosing record.
func (u *unitBuilder) record(n *sitter.Node, scope string, outer *ast.Decl, annotation string) *ast.Decl {
	nameNode := n.ChildByFieldName("name")
	body := n.ChildByFieldName("body")
	if nameNode == nil && body == nil {
		return nil
	}
	if nameNode != nil && nameNode.Type() == "template_type" {
		u.logger.Debug("skipping template specialization", "offset", n.StartByte())
		return nil
	}

	var name string
	switch {
	case nameNode == nil:
		name = ""
	case outer != nil:
		name = qualify(outer.Name, u.text(nameNode))
	default:
		name = qualify(scope, u.text(nameNode))
	}

	d := u.decl(ast.DeclRecord, name, n)
	d.Annotation = annotation
	d.IsDefinition = body != nil
	if name != "" {
		if prev, ok := u.records[name]; ok {
			ast.Redeclare(prev, d)
		} else {
			u.records[name] = d
		}
	}

	if body != nil {
		memberScope := name
		if name == "" {
			memberScope = scope
		}
		u.members(body, d, memberScope)
		if clause := baseClause(n); clause != nil {
			u.bases = append(u.bases, pendingBases{record: d, scope: scope, names: namedChildren(clause)})
		}
	}
	u.top(d)
	return d
}

func baseClause(n *sitter.Node) *sitter.Node {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if c := n.NamedChild(i); c.Type() == "base_class_clause" {
			return c
		}
	}
	return nil
}

// resolveBases links base clauses once every record is known. Unknown and
// template bases stay nil.
func (u *unitBuilder) resolveBases() {
	for _, p := range u.bases {
		for _, b := range p.names {
			switch b.Type() {
			case "type_identifier", "qualified_identifier":
				base := u.lookupRecord(u.text(b), p.scope)
				if base == nil {
					u.logger.Debug("unresolved base class", "record", p.record.Name, "base", u.text(b))
				}
				p.record.Bases = append(p.record.Bases, base)
			case "template_type":
				p.record.Bases = append(p.record.Bases, nil)
			}
		}
	}
}

func (u *unitBuilder) members(body *sitter.Node, rec *ast.Decl, scope string) {
	for _, c := range namedChildren(body) {
		switch c.Type() {
		case "field_declaration":
			u.fieldDeclaration(c, rec, scope)
		case "function_definition":
			u.memberFunction(c, rec, scope)
		case "declaration":
			// constructor and destructor prototypes
			for _, dn := range fieldChildren(c, "declarator") {
				if d := unwrapDeclarator(dn); d.isFunction() {
					u.memberPrototype(c, d, rec, scope)
				}
			}
		default:
			if c.Type() != "access_specifier" {
				u.logger.Debug("skipping member", "record", rec.Name, "kind", c.Type())
			}
		}
	}
}

func (u *unitBuilder) fieldDeclaration(n *sitter.Node, rec *ast.Decl, scope string) {
	typ := n.ChildByFieldName("type")
	if isRecordSpecifier(typ) && typ.ChildByFieldName("body") != nil {
		u.record(typ, scope, rec, u.annotation(typ))
	}
	annotation := u.annotation(n)
	for _, dn := range fieldChildren(n, "declarator") {
		d := unwrapDeclarator(dn)
		if d.isFunction() {
			u.memberPrototype(n, d, rec, scope)
			continue
		}
		if d.name == nil {
			continue
		}
		f := u.decl(ast.DeclField, qualify(rec.Name, u.text(d.name)), dn)
		f.Parent = rec
		f.Annotation = annotation
		u.setType(f, typ, d, scope)
		rec.Fields = append(rec.Fields, f)
	}
}

// memberKind classifies a member function by its declarator name.
func (u *unitBuilder) memberKind(name *sitter.Node, rec *ast.Decl) (ast.DeclKind, string) {
	text := u.text(name)
	switch {
	case name.Type() == "destructor_name":
		return ast.DeclDestructor, qualify(rec.Name, text)
	case text == simpleName(rec.Name):
		return ast.DeclConstructor, qualify(rec.Name, text)
	default:
		return ast.DeclMethod, qualify(rec.Name, text)
	}
}

func (u *unitBuilder) memberFunction(n *sitter.Node, rec *ast.Decl, scope string) {
	d := unwrapDeclarator(n.ChildByFieldName("declarator"))
	if !d.isFunction() || d.name == nil {
		return
	}
	kind, name := u.memberKind(d.name, rec)
	fn := u.function(kind, name, n, d, scope)
	fn.Parent = rec
	fn.Annotation = u.annotation(n)
	u.setReturnType(fn, n.ChildByFieldName("type"), d, scope)
	if body := n.ChildByFieldName("body"); body != nil {
		u.pending = append(u.pending, pendingBody{decl: fn, node: body, scope: rec.Name})
	}
	u.attach(rec, fn)
}

func (u *unitBuilder) memberPrototype(n *sitter.Node, d declarator, rec *ast.Decl, scope string) {
	if d.name == nil {
		return
	}
	kind, name := u.memberKind(d.name, rec)
	fn := u.function(kind, name, n, d, scope)
	fn.Parent = rec
	fn.Annotation = u.annotation(n)
	u.setReturnType(fn, n.ChildByFieldName("type"), d, scope)
	u.attach(rec, fn)
}

func (u *unitBuilder) attach(rec *ast.Decl, fn *ast.Decl) {
	switch fn.Kind {
	case ast.DeclConstructor:
		rec.Ctors = append(rec.Ctors, fn)
	case ast.DeclDestructor:
		rec.Dtor = fn
	default:
		rec.Methods = append(rec.Methods, fn)
	}
}

// function creates a function-like declaration with its parameters and
// chains it to an earlier declaration of the same name and arity.
func (u *unitBuilder) function(kind ast.DeclKind, name string, n *sitter.Node, d declarator, scope string) *ast.Decl {
	fn := u.decl(kind, name, n)
	fn.Params = u.params(d.function.ChildByFieldName("parameters"), scope)

	key := name + "/" + strconv.Itoa(len(fn.Params))
	if prev, ok := u.functions[key]; ok {
		ast.Redeclare(prev, fn)
	} else {
		u.functions[key] = fn
		u.overloads[name] = append(u.overloads[name], fn)
	}
	return fn
}

func (u *unitBuilder) params(list *sitter.Node, scope string) []*ast.Decl {
	var out []*ast.Decl
	for _, p := range namedChildren(list) {
		switch p.Type() {
		case "parameter_declaration", "optional_parameter_declaration":
		default:
			continue
		}
		typ := p.ChildByFieldName("type")
		dn := p.ChildByFieldName("declarator")
		if dn == nil && typ != nil && u.text(typ) == "void" {
			continue
		}
		d := unwrapDeclarator(dn)
		param := u.decl(ast.DeclParam, u.text(d.name), p)
		param.Annotation = u.annotation(p)
		u.setType(param, typ, d, scope)
		out = append(out, param)
	}
	return out
}

func (u *unitBuilder) setType(v *ast.Decl, typ *sitter.Node, d declarator, scope string) {
	v.TypeName = u.text(typ)
	v.Indirect = d.indirect
	if name := u.typeName(typ); name != "" {
		v.TypeDecl = u.lookupRecord(name, scope)
	}
}

// setReturnType records the record a function returns by value.
func (u *unitBuilder) setReturnType(fn *ast.Decl, typ *sitter.Node, d declarator, scope string) {
	if typ == nil {
		return
	}
	fn.TypeName = u.text(typ)
	if name := u.typeName(typ); name != "" && !d.indirect {
		fn.TypeDecl = u.lookupRecord(name, scope)
	}
}

// namespaceFunction handles free function definitions and out-of-line
// member definitions.
func (u *unitBuilder) namespaceFunction(n *sitter.Node, scope string) {
	d := unwrapDeclarator(n.ChildByFieldName("declarator"))
	if !d.isFunction() || d.name == nil {
		return
	}
	fn, bodyScope := u.namespaceFunctionDecl(n, d, scope)
	if fn == nil {
		return
	}
	fn.Annotation = u.annotation(n)
	if body := n.ChildByFieldName("body"); body != nil {
		u.pending = append(u.pending, pendingBody{decl: fn, node: body, scope: bodyScope})
	}
	u.top(fn)
}

func (u *unitBuilder) namespaceFunctionDecl(n *sitter.Node, d declarator, scope string) (*ast.Decl, string) {
	typ := n.ChildByFieldName("type")
	if d.name.Type() != "qualified_identifier" {
		if d.name.Type() == "template_function" {
			return nil, ""
		}
		fn := u.function(ast.DeclFunction, qualify(scope, u.text(d.name)), n, d, scope)
		u.setReturnType(fn, typ, d, scope)
		return fn, scope
	}

	scopeNode := d.name.ChildByFieldName("scope")
	nameNode := d.name.ChildByFieldName("name")
	if rec := u.lookupRecord(u.text(scopeNode), scope); rec != nil && nameNode != nil {
		kind, name := u.memberKind(nameNode, rec)
		fn := u.function(kind, name, n, d, scope)
		fn.Parent = rec
		u.setReturnType(fn, typ, d, scope)
		if len(fn.Redecls()) == 1 {
			// defined without an in-class declaration
			if def := rec.Definition(); def != nil {
				u.attach(def, fn)
			}
		}
		return fn, rec.Name
	}
	fn := u.function(ast.DeclFunction, qualify(scope, u.text(d.name)), n, d, scope)
	u.setReturnType(fn, typ, d, scope)
	return fn, parentScope(fn.Name)
}

// namespaceDeclaration handles prototypes, globals and record definitions
// with declarators.
func (u *unitBuilder) namespaceDeclaration(n *sitter.Node, scope string) {
	typ := n.ChildByFieldName("type")
	if isRecordSpecifier(typ) && typ.ChildByFieldName("body") != nil {
		u.record(typ, scope, nil, u.annotation(typ))
	} else if isRecordSpecifier(typ) && len(fieldChildren(n, "declarator")) == 0 {
		// forward declaration
		u.record(typ, scope, nil, u.annotation(typ))
		return
	}

	annotation := u.annotation(n)
	for _, dn := range fieldChildren(n, "declarator") {
		d := unwrapDeclarator(dn)
		if d.name == nil {
			continue
		}
		if d.isFunction() {
			fn, _ := u.namespaceFunctionDecl(n, d, scope)
			if fn == nil {
				continue
			}
			fn.Annotation = annotation
			fn.Range.End = dn.EndByte()
			u.top(fn)
			continue
		}
		u.global(n, dn, d, typ, scope, annotation)
	}
}

func (u *unitBuilder) global(n, dn *sitter.Node, d declarator, typ *sitter.Node, scope, annotation string) {
	name := qualify(scope, u.text(d.name))
	v := u.fac.Decl(ast.DeclVar, name, n.StartByte(), dn.EndByte())
	v.Annotation = annotation
	u.setType(v, typ, d, scope)
	if _, ok := u.globals[name]; !ok {
		u.globals[name] = v
	}
	u.pending = append(u.pending, pendingBody{decl: v, node: dn, scope: scope})
	u.top(v)
}

func (u *unitBuilder) lookupRecord(name, scope string) *ast.Decl {
	for _, c := range candidates(scope, name) {
		if r, ok := u.records[c]; ok {
			return r
		}
	}
	return nil
}

// lookupFunction resolves a call by name and argument count, falling back
// to the first overload of that name.
func (u *unitBuilder) lookupFunction(name, scope string, nargs int) *ast.Decl {
	for _, c := range candidates(scope, name) {
		if fn, ok := u.functions[c+"/"+strconv.Itoa(nargs)]; ok {
			return fn
		}
		if fns := u.overloads[c]; len(fns) > 0 {
			return fns[0]
		}
	}
	return nil
}

func (u *unitBuilder) lookupGlobal(name, scope string) *ast.Decl {
	for _, c := range candidates(scope, name) {
		if v, ok := u.globals[c]; ok {
			return v
		}
	}
	return nil
}

// lookupField finds a field of rec or of one of its bases.
func lookupField(rec *ast.Decl, name string) *ast.Decl {
	def := definitionOf(rec)
	if def == nil {
		return nil
	}
	for _, f := range def.Fields {
		if simpleName(f.Name) == name {
			return f
		}
	}
	for _, b := range def.Bases {
		if f := lookupField(b, name); f != nil {
			return f
		}
	}
	return nil
}

// lookupMethod finds a method of rec or of one of its bases, preferring a
// matching arity.
func lookupMethod(rec *ast.Decl, name string, nargs int) *ast.Decl {
	def := definitionOf(rec)
	if def == nil {
		return nil
	}
	var fallback *ast.Decl
	for _, m := range def.Methods {
		if simpleName(m.Name) != name {
			continue
		}
		if len(m.Params) == nargs {
			return m
		}
		if fallback == nil {
			fallback = m
		}
	}
	if fallback != nil {
		return fallback
	}
	for _, b := range def.Bases {
		if m := lookupMethod(b, name, nargs); m != nil {
			return m
		}
	}
	return nil
}

// lookupConstructor picks the constructor taking nargs arguments, or the
// first one taking more when defaults may fill the rest.
func lookupConstructor(rec *ast.Decl, nargs int) *ast.Decl {
	def := definitionOf(rec)
	if def == nil {
		return nil
	}
	var fallback *ast.Decl
	for _, c := range def.Ctors {
		if len(c.Params) == nargs {
			return c
		}
		if len(c.Params) > nargs && fallback == nil {
			fallback = c
		}
	}
	return fallback
}

func definitionOf(rec *ast.Decl) *ast.Decl {
	if rec == nil {
		return nil
	}
	return rec.Definition()
}
