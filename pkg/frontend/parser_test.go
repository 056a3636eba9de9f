package frontend

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/pgraph/pkg/ast"
)

func parse(t *testing.T, src string) *ast.Unit {
	t.Helper()
	p := NewParser()
	defer p.Close()
	unit, err := p.Parse(context.Background(), "test.cpp", []byte(src))
	require.NoError(t, err)
	return unit
}

func findDecl(t *testing.T, unit *ast.Unit, kind ast.DeclKind, name string) *ast.Decl {
	t.Helper()
	for _, d := range unit.Decls {
		if d.Kind == kind && d.Name == name {
			return d
		}
	}
	t.Fatalf("no %s declaration named %q", kind, name)
	return nil
}

func collectStmts(root *ast.Stmt, class ast.StmtClass) []*ast.Stmt {
	var out []*ast.Stmt
	ast.Inspect(root, func(n ast.Node) bool {
		if s, ok := n.(*ast.Stmt); ok && s.Class == class {
			out = append(out, s)
		}
		return true
	})
	return out
}

const classSource = `
class Foo {
public:
  __attribute__((cle_annotate("PURPLE"))) int bar;
  Foo() { bar = 0; }
  int get_bar();
};

int Foo::get_bar() { return bar; }

int main() {
  Foo f;
  return f.get_bar();
}
`

func TestParse_ClassMembers(t *testing.T) {
	unit := parse(t, classSource)

	foo := findDecl(t, unit, ast.DeclRecord, "Foo")
	assert.True(t, foo.IsDefinition)
	assert.True(t, foo.TopLevel)
	require.Len(t, foo.Fields, 1)
	assert.Equal(t, "Foo::bar", foo.Fields[0].Name)
	assert.Equal(t, "PURPLE", foo.Fields[0].Annotation)
	assert.Equal(t, "int", foo.Fields[0].TypeName)

	require.Len(t, foo.Ctors, 1)
	ctor := foo.Ctors[0]
	assert.Equal(t, ast.DeclConstructor, ctor.Kind)
	require.NotNil(t, ctor.Body)
	members := collectStmts(ctor.Body, ast.StmtMember)
	require.Len(t, members, 1)
	assert.Same(t, foo.Fields[0], members[0].Ref)
	assert.Equal(t, ast.StmtThis, members[0].Object.Class)
	assert.True(t, members[0].Object.Implicit)

	require.Len(t, foo.Methods, 1)
	proto := foo.Methods[0]
	assert.Nil(t, proto.Body)
}

func TestParse_OutOfLineDefinition(t *testing.T) {
	unit := parse(t, classSource)
	foo := findDecl(t, unit, ast.DeclRecord, "Foo")
	proto := foo.Methods[0]

	def := findDecl(t, unit, ast.DeclMethod, "Foo::get_bar")
	assert.True(t, def.TopLevel)
	assert.Same(t, foo, def.Parent)
	assert.Equal(t, []*ast.Decl{proto, def}, proto.Redecls())
	assert.Same(t, def, proto.Definition())

	ret := collectStmts(def.Body, ast.StmtReturn)
	require.Len(t, ret, 1)
	require.Len(t, ret[0].Children, 1)
	assert.Equal(t, ast.StmtMember, ret[0].Children[0].Class)
	assert.Same(t, foo.Fields[0], ret[0].Children[0].Ref)
}

func TestParse_LocalObjectAndMemberCall(t *testing.T) {
	unit := parse(t, classSource)
	foo := findDecl(t, unit, ast.DeclRecord, "Foo")
	main := findDecl(t, unit, ast.DeclFunction, "main")

	decls := collectStmts(main.Body, ast.StmtDeclStmt)
	require.Len(t, decls, 1)
	f := decls[0].Decls[0]
	assert.Equal(t, "f", f.Name)
	assert.Same(t, foo, f.TypeDecl)
	require.NotNil(t, f.Init)
	assert.Equal(t, ast.StmtConstruct, f.Init.Class)
	assert.True(t, f.Init.Implicit)
	assert.Same(t, foo.Ctors[0], f.Init.Callee)

	calls := collectStmts(main.Body, ast.StmtMemberCall)
	require.Len(t, calls, 1)
	assert.Same(t, foo.Methods[0], calls[0].Callee)
	require.NotNil(t, calls[0].Object)
	assert.Equal(t, ast.StmtDeclRef, calls[0].Object.Class)
	assert.Same(t, f, calls[0].Object.Ref)
}

func TestParse_ParenthesizedObjectArguments(t *testing.T) {
	unit := parse(t, `
struct Foo { Foo(int); ~Foo() {} };
int g;
void h(int i) {
  Foo y(i);
  int k(g);
  Foo make(Foo);
}
`)
	foo := findDecl(t, unit, ast.DeclRecord, "Foo")
	h := findDecl(t, unit, ast.DeclFunction, "h")
	require.Len(t, h.Params, 1)

	decls := collectStmts(h.Body, ast.StmtDeclStmt)
	require.Len(t, decls, 3)

	require.Len(t, decls[0].Decls, 1)
	y := decls[0].Decls[0]
	assert.Equal(t, "y", y.Name)
	assert.Same(t, foo, y.TypeDecl)
	require.NotNil(t, y.Init)
	assert.Equal(t, ast.StmtConstruct, y.Init.Class)
	assert.False(t, y.Init.Implicit)
	assert.Same(t, foo.Ctors[0], y.Init.Callee)
	require.Len(t, y.Init.Args, 1)
	assert.Equal(t, ast.StmtDeclRef, y.Init.Args[0].Class)
	assert.Same(t, h.Params[0], y.Init.Args[0].Ref)

	require.Len(t, decls[1].Decls, 1)
	k := decls[1].Decls[0]
	assert.Equal(t, "k", k.Name)
	require.NotNil(t, k.Init)
	assert.Equal(t, ast.StmtOther, k.Init.Class)
	require.Len(t, k.Init.Children, 1)
	assert.Equal(t, "g", k.Init.Children[0].Ref.Name)

	// a parameter naming a type keeps the declaration a prototype
	assert.Empty(t, decls[2].Decls)
}

func TestParse_PrototypeChain(t *testing.T) {
	unit := parse(t, `
int f(int x);
int main() { return f(1); }
int f(int x) { return x; }
`)
	require.Len(t, unit.Decls, 3)
	proto, main, def := unit.Decls[0], unit.Decls[1], unit.Decls[2]

	assert.Equal(t, "f", proto.Name)
	assert.Nil(t, proto.Body)
	assert.Equal(t, []*ast.Decl{proto, def}, def.Redecls())
	require.Len(t, def.Params, 1)
	assert.Equal(t, "x", def.Params[0].Name)

	calls := collectStmts(main.Body, ast.StmtCall)
	require.Len(t, calls, 1)
	assert.Same(t, proto, calls[0].Callee)
	require.Len(t, calls[0].Args, 1)

	refs := collectStmts(def.Body, ast.StmtDeclRef)
	require.Len(t, refs, 1)
	assert.Same(t, def.Params[0], refs[0].Ref)
}

func TestParse_OverloadsAreDistinct(t *testing.T) {
	unit := parse(t, `
void g(int a);
void g(int a, int b);
void h() { g(1, 2); }
`)
	require.Len(t, unit.Decls, 3)
	one, two := unit.Decls[0], unit.Decls[1]
	assert.Len(t, one.Redecls(), 1)
	assert.Len(t, two.Redecls(), 1)

	calls := collectStmts(unit.Decls[2].Body, ast.StmtCall)
	require.Len(t, calls, 1)
	assert.Same(t, two, calls[0].Callee)
}

func TestParse_Namespaces(t *testing.T) {
	unit := parse(t, `
namespace net {
struct Conn { void close(); };
void Conn::close() {}
int open(Conn c);
}
extern "C" { int puts(const char *s); }
`)
	conn := findDecl(t, unit, ast.DeclRecord, "net::Conn")
	assert.Len(t, conn.Methods, 1)
	findDecl(t, unit, ast.DeclMethod, "net::Conn::close")
	open := findDecl(t, unit, ast.DeclFunction, "net::open")
	require.Len(t, open.Params, 1)
	assert.Same(t, conn, open.Params[0].TypeDecl)
	findDecl(t, unit, ast.DeclFunction, "puts")
}

func TestParse_BasesAndDestructors(t *testing.T) {
	unit := parse(t, `
struct A { ~A() {} };
struct B : public A { int n; };
void f() { B *p; A a; }
`)
	a := findDecl(t, unit, ast.DeclRecord, "A")
	b := findDecl(t, unit, ast.DeclRecord, "B")
	require.NotNil(t, a.Dtor)
	assert.Equal(t, "A::~A", a.Dtor.Name)
	assert.Equal(t, []*ast.Decl{a}, b.Bases)

	f := findDecl(t, unit, ast.DeclFunction, "f")
	decls := collectStmts(f.Body, ast.StmtDeclStmt)
	require.Len(t, decls, 2)
	p := decls[0].Decls[0]
	assert.True(t, p.Indirect)
	assert.Same(t, b, p.TypeDecl)
	local := decls[1].Decls[0]
	assert.False(t, local.Indirect)
	// no user-declared constructor, nothing to call
	assert.Nil(t, local.Init)
}

func TestParse_ControlFlow(t *testing.T) {
	unit := parse(t, `
int f(int n) {
  for (int i = 0; i < n; i++) { if (i) break; else continue; }
  while (n) { n--; }
  switch (n) { case 1: return 1; default: break; }
  return 0;
}
`)
	f := findDecl(t, unit, ast.DeclFunction, "f")

	tests := []struct {
		class ast.StmtClass
		count int
	}{
		{ast.StmtFor, 1},
		{ast.StmtIf, 1},
		{ast.StmtBreak, 2},
		{ast.StmtContinue, 1},
		{ast.StmtWhile, 1},
		{ast.StmtSwitch, 1},
		{ast.StmtCase, 2},
		{ast.StmtReturn, 2},
	}
	for _, tt := range tests {
		t.Run(tt.class.String(), func(t *testing.T) {
			assert.Len(t, collectStmts(f.Body, tt.class), tt.count)
		})
	}

	loop := collectStmts(f.Body, ast.StmtFor)[0]
	require.NotNil(t, loop.Init)
	assert.Equal(t, ast.StmtDeclStmt, loop.Init.Class)
	assert.NotNil(t, loop.Cond)
	assert.NotNil(t, loop.Inc)
	assert.Equal(t, ast.StmtCompound, loop.Body.Class)

	ifs := collectStmts(f.Body, ast.StmtIf)[0]
	assert.Equal(t, ast.StmtDeclRef, ifs.Cond.Class)
	assert.Same(t, loop.Init.Decls[0], ifs.Cond.Ref)

	cases := collectStmts(f.Body, ast.StmtCase)
	assert.NotNil(t, cases[0].Cond)
	assert.Nil(t, cases[1].Cond)
}

func TestParse_AnnotationsAndLabels(t *testing.T) {
	unit := parse(t, `
#pragma cle def ORANGE {"level":"orange",\
  "cdf": [ {"remotelevel": "purple", "direction": "egress"} ]}
#pragma cle def BROKEN {"level":
#pragma once

[[cle::annotate("ORANGE")]] int secret = 1;
__attribute__((cle_annotate("PURPLE"))) void send(int v);
`)
	require.Len(t, unit.Labels, 1)
	assert.Equal(t, "ORANGE", unit.Labels[0].Name)
	assert.Equal(t, `{"level":"orange","cdf":[{"remotelevel":"purple","direction":"egress"}]}`, unit.Labels[0].JSON)

	secret := findDecl(t, unit, ast.DeclVar, "secret")
	assert.Equal(t, "ORANGE", secret.Annotation)
	require.NotNil(t, secret.Init)

	send := findDecl(t, unit, ast.DeclFunction, "send")
	assert.Equal(t, "PURPLE", send.Annotation)
}

func TestParse_SkipsTemplates(t *testing.T) {
	unit := parse(t, `
template <typename T> T id(T v) { return v; }
typedef int handle;
using size = unsigned long;
int g;
`)
	require.Len(t, unit.Decls, 1)
	assert.Equal(t, "g", unit.Decls[0].Name)
}

func TestParse_SyntaxErrorsKeepUnit(t *testing.T) {
	unit := parse(t, `
int ok() { return 1; }
int broken( {
`)
	findDecl(t, unit, ast.DeclFunction, "ok")
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "unit.cpp")
	require.NoError(t, os.WriteFile(path, []byte("int main() { return 0; }\n"), 0o644))

	p := NewParser()
	defer p.Close()

	unit, err := p.ParseFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, unit.File)
	main := findDecl(t, unit, ast.DeclFunction, "main")
	assert.Equal(t, path, main.Range.File)
	assert.Equal(t, uint32(0), main.Range.Start)

	_, err = p.ParseFile(context.Background(), filepath.Join(dir, "missing.cpp"))
	assert.Error(t, err)
}
