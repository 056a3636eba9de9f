package pgraph

import "github.com/l3aro/pgraph/pkg/ast"

// source builds ast trees by hand. Offsets grow with every call so
// declarations created later sit later in the file.
type source struct {
	f   *ast.Factory
	pos uint32
}

func newSource() *source {
	return &source{f: ast.NewFactory("scenario.cpp")}
}

func (s *source) at() uint32 {
	s.pos += 2
	return s.pos
}

// open starts a declaration; close ends it after its contents were built.
func (s *source) open(kind ast.DeclKind, name string) *ast.Decl {
	return s.f.Decl(kind, name, s.at(), 0)
}

func (s *source) close(d *ast.Decl) *ast.Decl {
	d.Range.End = s.at()
	return d
}

func (s *source) record(name string) *ast.Decl {
	r := s.open(ast.DeclRecord, name)
	r.IsDefinition = true
	r.TopLevel = true
	return r
}

func (s *source) member(parent *ast.Decl, kind ast.DeclKind, name string) *ast.Decl {
	d := s.open(kind, parent.Name+"::"+name)
	d.Parent = parent
	switch kind {
	case ast.DeclField:
		parent.Fields = append(parent.Fields, d)
	case ast.DeclMethod:
		parent.Methods = append(parent.Methods, d)
	case ast.DeclConstructor:
		parent.Ctors = append(parent.Ctors, d)
	case ast.DeclDestructor:
		parent.Dtor = d
	}
	return d
}

func (s *source) param(fn *ast.Decl, name string) *ast.Decl {
	p := s.close(s.open(ast.DeclParam, name))
	fn.Params = append(fn.Params, p)
	return p
}

func (s *source) stmt(class ast.StmtClass, children ...*ast.Stmt) *ast.Stmt {
	st := s.f.Stmt(class, s.at(), 0)
	st.Children = children
	st.Range.End = s.at()
	return st
}

func (s *source) ref(d *ast.Decl) *ast.Stmt {
	st := s.stmt(ast.StmtDeclRef)
	st.Ref = d
	return st
}

func (s *source) this() *ast.Stmt {
	st := s.stmt(ast.StmtThis)
	st.Implicit = true
	return st
}

func (s *source) fieldAccess(object *ast.Stmt, field *ast.Decl) *ast.Stmt {
	st := s.stmt(ast.StmtMember)
	st.Object = object
	st.Ref = field
	return st
}

func (s *source) call(callee *ast.Decl, args ...*ast.Stmt) *ast.Stmt {
	st := s.stmt(ast.StmtCall)
	st.Callee = callee
	st.Args = args
	return st
}

func (s *source) memberCall(object *ast.Stmt, callee *ast.Decl, args ...*ast.Stmt) *ast.Stmt {
	st := s.stmt(ast.StmtMemberCall)
	st.Object = object
	st.Callee = callee
	st.Args = args
	return st
}

func (s *source) local(name string, typ *ast.Decl, init *ast.Stmt) (*ast.Stmt, *ast.Decl) {
	v := s.close(s.open(ast.DeclVar, name))
	v.TypeDecl = typ
	if typ != nil {
		v.TypeName = typ.Name
	}
	v.Init = init
	st := s.stmt(ast.StmtDeclStmt)
	st.Decls = []*ast.Decl{v}
	return st, v
}

// scenarioA: a class with a field, a constructor assigning it, a getter,
// and main calling the getter on a local instance.
//
//	class Foo {
//	  int bar;
//	  Foo() { bar = 0; }
//	  int get_bar() { return bar; }
//	};
//	int main() { Foo f; return f.get_bar(); }
type scenarioA struct {
	unit   *ast.Unit
	foo    *ast.Decl
	bar    *ast.Decl
	ctor   *ast.Decl
	getBar *ast.Decl
	main   *ast.Decl
	f      *ast.Decl
	call   *ast.Stmt
	recv   *ast.Stmt
}

func buildScenarioA() *scenarioA {
	s := newSource()
	sc := &scenarioA{}

	sc.foo = s.record("Foo")
	sc.bar = s.close(s.member(sc.foo, ast.DeclField, "bar"))
	sc.bar.TypeName = "int"

	sc.ctor = s.member(sc.foo, ast.DeclConstructor, "Foo")
	assign := s.stmt(ast.StmtOther, s.fieldAccess(s.this(), sc.bar), s.stmt(ast.StmtOther))
	assign.Syntax = "assignment_expression"
	sc.ctor.Body = s.stmt(ast.StmtCompound, assign)
	s.close(sc.ctor)

	sc.getBar = s.member(sc.foo, ast.DeclMethod, "get_bar")
	sc.getBar.Body = s.stmt(ast.StmtCompound, s.stmt(ast.StmtReturn, s.fieldAccess(s.this(), sc.bar)))
	s.close(sc.getBar)
	s.close(sc.foo)

	sc.main = s.open(ast.DeclFunction, "main")
	sc.main.TopLevel = true
	construct := s.stmt(ast.StmtConstruct)
	construct.Callee = sc.ctor
	construct.Implicit = true
	declF, f := s.local("f", sc.foo, construct)
	sc.f = f
	sc.recv = s.ref(f)
	sc.call = s.memberCall(sc.recv, sc.getBar)
	sc.main.Body = s.stmt(ast.StmtCompound, declF, s.stmt(ast.StmtReturn, sc.call))
	s.close(sc.main)

	sc.unit = &ast.Unit{File: "scenario.cpp", Decls: []*ast.Decl{sc.foo, sc.main}}
	return sc
}

// scenarioB: a prototype, a caller, then the definition.
//
//	int f(int x);
//	int main() { return f(1); }
//	int f(int x) { return x; }
type scenarioB struct {
	unit  *ast.Unit
	proto *ast.Decl
	def   *ast.Decl
	main  *ast.Decl
	call  *ast.Stmt
}

func buildScenarioB() *scenarioB {
	s := newSource()
	sc := &scenarioB{}

	sc.proto = s.open(ast.DeclFunction, "f")
	sc.proto.TopLevel = true
	s.param(sc.proto, "x")
	s.close(sc.proto)

	sc.main = s.open(ast.DeclFunction, "main")
	sc.main.TopLevel = true
	sc.call = s.call(sc.proto, s.stmt(ast.StmtOther))
	sc.main.Body = s.stmt(ast.StmtCompound, s.stmt(ast.StmtReturn, sc.call))
	s.close(sc.main)

	sc.def = s.open(ast.DeclFunction, "f")
	sc.def.TopLevel = true
	x := s.param(sc.def, "x")
	sc.def.Body = s.stmt(ast.StmtCompound, s.stmt(ast.StmtReturn, s.ref(x)))
	s.close(sc.def)
	ast.Redeclare(sc.proto, sc.def)

	sc.unit = &ast.Unit{File: "scenario.cpp", Decls: []*ast.Decl{sc.proto, sc.main, sc.def}}
	return sc
}

// scenarioD: a local with a destructor in a block left normally and by an
// early return.
//
//	struct Foo { ~Foo() {} };
//	void f(bool c) {
//	  {
//	    Foo a;
//	    if (c) return;
//	    work();
//	  }
//	}
type scenarioD struct {
	unit  *ast.Unit
	foo   *ast.Decl
	dtor  *ast.Decl
	fn    *ast.Decl
	outer *ast.Stmt
	inner *ast.Stmt
	ifs   *ast.Stmt
	ret   *ast.Stmt
}

func buildScenarioD() *scenarioD {
	s := newSource()
	sc := &scenarioD{}

	sc.foo = s.record("Foo")
	sc.dtor = s.member(sc.foo, ast.DeclDestructor, "~Foo")
	sc.dtor.Body = s.stmt(ast.StmtCompound)
	s.close(sc.dtor)
	s.close(sc.foo)

	sc.fn = s.open(ast.DeclFunction, "f")
	sc.fn.TopLevel = true
	c := s.param(sc.fn, "c")
	declA, _ := s.local("a", sc.foo, nil)
	sc.ret = s.stmt(ast.StmtReturn)
	cond := s.ref(c)
	sc.ifs = s.stmt(ast.StmtIf, cond, sc.ret)
	sc.ifs.Cond = cond
	sc.ifs.Then = sc.ret
	work := s.stmt(ast.StmtOther)
	sc.inner = s.stmt(ast.StmtCompound, declA, sc.ifs, work)
	sc.outer = s.stmt(ast.StmtCompound, sc.inner)
	sc.fn.Body = sc.outer
	s.close(sc.fn)

	sc.unit = &ast.Unit{File: "scenario.cpp", Decls: []*ast.Decl{sc.foo, sc.fn}}
	return sc
}
