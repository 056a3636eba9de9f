// Package pgraph builds program graphs: nodes for declarations and statements
// joined by structural, control and data edges.
package pgraph

import (
	"fmt"

	"github.com/l3aro/pgraph/pkg/ast"
)

// NodeID identifies a node within one graph.
type NodeID int

// EdgeID identifies an edge within one graph.
type EdgeID int

// NodeKind classifies nodes.
type NodeKind int

const (
	NodeDeclVar NodeKind = iota
	NodeDeclFunction
	NodeDeclRecord
	NodeDeclField
	NodeDeclMethod
	NodeDeclParam
	NodeDeclConstructor
	NodeDeclDestructor
	NodeStmtDecl
	NodeStmtCall
	NodeStmtConstructorCall
	NodeStmtMemberCall
	NodeStmtImplicitDestructor
	NodeStmtCompound
	NodeStmtRef
	NodeStmtField
	NodeStmtThis
	NodeStmtReturn
	NodeStmtOther
)

// NodeKindNames lists the exported node kind names in table order.
var NodeKindNames = []string{
	"Decl.Var", "Decl.Function", "Decl.Record", "Decl.Field", "Decl.Method",
	"Decl.Param", "Decl.Constructor", "Decl.Destructor", "Stmt.Decl", "Stmt.Call",
	"Stmt.Compound", "Stmt.Ref", "Stmt.Field", "Stmt.This", "Stmt.Return", "Stmt.Other",
}

// bucket is the index of the kind's export name in NodeKindNames.
func (k NodeKind) bucket() int {
	switch k {
	case NodeDeclVar:
		return 0
	case NodeDeclFunction:
		return 1
	case NodeDeclRecord:
		return 2
	case NodeDeclField:
		return 3
	case NodeDeclMethod:
		return 4
	case NodeDeclParam:
		return 5
	case NodeDeclConstructor:
		return 6
	case NodeDeclDestructor:
		return 7
	case NodeStmtDecl:
		return 8
	case NodeStmtCall, NodeStmtConstructorCall, NodeStmtMemberCall, NodeStmtImplicitDestructor:
		return 9
	case NodeStmtCompound:
		return 10
	case NodeStmtRef:
		return 11
	case NodeStmtField:
		return 12
	case NodeStmtThis:
		return 13
	case NodeStmtReturn:
		return 14
	case NodeStmtOther:
		return 15
	}
	panic(fmt.Sprintf("pgraph: unknown node kind %d", int(k)))
}

// String returns the export name of the kind.
func (k NodeKind) String() string {
	return NodeKindNames[k.bucket()]
}

// IsDecl reports whether the kind wraps a declaration.
func (k NodeKind) IsDecl() bool {
	return k <= NodeDeclDestructor
}

// EdgeKind classifies edges. Declaration order is table order.
type EdgeKind int

const (
	EdgeFieldOf EdgeKind = iota
	EdgeMethodOf
	EdgeConstructorOf
	EdgeDestructorOf
	EdgeInherits
	EdgeEntry
	EdgeInvokesFunction
	EdgeInvokesMethod
	EdgeInvokesConstructor
	EdgeInvokesDestructor
	EdgeDefUse
	EdgeArgPass
	EdgeParamOf
	EdgeObject
	EdgeFieldAccess
	EdgeDefines
	EdgeDeclares
	EdgeChild
	numEdgeKinds
)

// EdgeKindNames lists the exported edge kind names in table order.
var EdgeKindNames = []string{
	"Record.Field", "Record.Method", "Record.Constructor", "Record.Destructor", "Record.Inherit",
	"Control.Entry", "Control.FunctionInvocation", "Control.MethodInvocation",
	"Control.ConstructorInvocation", "Control.DestructorInvocation",
	"Data.DefUse", "Data.ArgPass", "Data.Param", "Data.Object", "Data.FieldAccess",
	"Data.Define", "Data.Decl", "Data.Child",
}

func (k EdgeKind) String() string {
	if k < 0 || k >= numEdgeKinds {
		panic(fmt.Sprintf("pgraph: unknown edge kind %d", int(k)))
	}
	return EdgeKindNames[k]
}

// Payload is the sealed set of node variants. Each variant wraps the source
// construct it was created from.
type Payload interface {
	payload()
}

type (
	DeclVar         struct{ Decl *ast.Decl }
	DeclFunction    struct{ Decl *ast.Decl }
	DeclRecord      struct{ Decl *ast.Decl }
	DeclField       struct{ Decl *ast.Decl }
	DeclMethod      struct{ Decl *ast.Decl }
	DeclParam       struct{ Decl *ast.Decl }
	DeclConstructor struct{ Decl *ast.Decl }
	DeclDestructor  struct{ Decl *ast.Decl }

	StmtDecl            struct{ Stmt *ast.Stmt }
	StmtCall            struct{ Stmt *ast.Stmt }
	StmtConstructorCall struct{ Stmt *ast.Stmt }
	StmtMemberCall      struct{ Stmt *ast.Stmt }
	StmtCompound        struct{ Stmt *ast.Stmt }
	StmtRef             struct{ Stmt *ast.Stmt }
	StmtField           struct{ Stmt *ast.Stmt }
	StmtThis            struct{ Stmt *ast.Stmt }
	StmtReturn          struct{ Stmt *ast.Stmt }
	StmtOther           struct{ Stmt *ast.Stmt }
)

// StmtImplicitDestructor is a destructor call inserted at scope exit.
type StmtImplicitDestructor struct {
	Trigger    *ast.Stmt
	Var        *ast.Decl
	Destructor *ast.Decl
}

func (DeclVar) payload()                {}
func (DeclFunction) payload()           {}
func (DeclRecord) payload()             {}
func (DeclField) payload()              {}
func (DeclMethod) payload()             {}
func (DeclParam) payload()              {}
func (DeclConstructor) payload()        {}
func (DeclDestructor) payload()         {}
func (StmtDecl) payload()               {}
func (StmtCall) payload()               {}
func (StmtConstructorCall) payload()    {}
func (StmtMemberCall) payload()         {}
func (StmtCompound) payload()           {}
func (StmtRef) payload()                {}
func (StmtField) payload()              {}
func (StmtThis) payload()               {}
func (StmtReturn) payload()             {}
func (StmtOther) payload()              {}
func (StmtImplicitDestructor) payload() {}

// Node is a graph vertex.
type Node struct {
	Payload Payload
	Context Context
	Ordinal int // 1-based argument or parameter position, 0 when not applicable
}

// Kind derives the node kind from its payload.
func (n Node) Kind() NodeKind {
	switch n.Payload.(type) {
	case DeclVar:
		return NodeDeclVar
	case DeclFunction:
		return NodeDeclFunction
	case DeclRecord:
		return NodeDeclRecord
	case DeclField:
		return NodeDeclField
	case DeclMethod:
		return NodeDeclMethod
	case DeclParam:
		return NodeDeclParam
	case DeclConstructor:
		return NodeDeclConstructor
	case DeclDestructor:
		return NodeDeclDestructor
	case StmtDecl:
		return NodeStmtDecl
	case StmtCall:
		return NodeStmtCall
	case StmtConstructorCall:
		return NodeStmtConstructorCall
	case StmtMemberCall:
		return NodeStmtMemberCall
	case StmtImplicitDestructor:
		return NodeStmtImplicitDestructor
	case StmtCompound:
		return NodeStmtCompound
	case StmtRef:
		return NodeStmtRef
	case StmtField:
		return NodeStmtField
	case StmtThis:
		return NodeStmtThis
	case StmtReturn:
		return NodeStmtReturn
	case StmtOther:
		return NodeStmtOther
	}
	panic(fmt.Sprintf("pgraph: unknown payload %T", n.Payload))
}

// Decl returns the wrapped declaration, or nil for statement nodes.
func (n Node) Decl() *ast.Decl {
	switch p := n.Payload.(type) {
	case DeclVar:
		return p.Decl
	case DeclFunction:
		return p.Decl
	case DeclRecord:
		return p.Decl
	case DeclField:
		return p.Decl
	case DeclMethod:
		return p.Decl
	case DeclParam:
		return p.Decl
	case DeclConstructor:
		return p.Decl
	case DeclDestructor:
		return p.Decl
	case StmtDecl, StmtCall, StmtConstructorCall, StmtMemberCall, StmtImplicitDestructor,
		StmtCompound, StmtRef, StmtField, StmtThis, StmtReturn, StmtOther:
		return nil
	}
	panic(fmt.Sprintf("pgraph: unknown payload %T", n.Payload))
}

// Stmt returns the wrapped statement. Implicit destructor calls return their
// trigger. Declaration nodes return nil.
func (n Node) Stmt() *ast.Stmt {
	switch p := n.Payload.(type) {
	case StmtDecl:
		return p.Stmt
	case StmtCall:
		return p.Stmt
	case StmtConstructorCall:
		return p.Stmt
	case StmtMemberCall:
		return p.Stmt
	case StmtCompound:
		return p.Stmt
	case StmtRef:
		return p.Stmt
	case StmtField:
		return p.Stmt
	case StmtThis:
		return p.Stmt
	case StmtReturn:
		return p.Stmt
	case StmtOther:
		return p.Stmt
	case StmtImplicitDestructor:
		return p.Trigger
	case DeclVar, DeclFunction, DeclRecord, DeclField, DeclMethod, DeclParam,
		DeclConstructor, DeclDestructor:
		return nil
	}
	panic(fmt.Sprintf("pgraph: unknown payload %T", n.Payload))
}

// Name is the qualified name of a declaration node; statements have none.
func (n Node) Name() string {
	if d := n.Decl(); d != nil {
		return d.Name
	}
	return ""
}

// Annotation is the annotation attached to a declaration node.
func (n Node) Annotation() string {
	if d := n.Decl(); d != nil {
		return d.Annotation
	}
	return ""
}

// Range is the source range of the wrapped construct.
func (n Node) Range() ast.Range {
	if d := n.Decl(); d != nil {
		return d.Range
	}
	if s := n.Stmt(); s != nil {
		return s.Range
	}
	return ast.Range{}
}

// HasBody reports whether a function-like node carries its body.
func (n Node) HasBody() bool {
	d := n.Decl()
	return d != nil && d.Body != nil
}

// Edge is a directed, kind-tagged arc.
type Edge struct {
	Src  NodeID
	Dst  NodeID
	Kind EdgeKind
}

// declPayload wraps d in the variant matching its kind.
func declPayload(d *ast.Decl) Payload {
	switch d.Kind {
	case ast.DeclVar:
		return DeclVar{Decl: d}
	case ast.DeclFunction:
		return DeclFunction{Decl: d}
	case ast.DeclRecord:
		return DeclRecord{Decl: d}
	case ast.DeclField:
		return DeclField{Decl: d}
	case ast.DeclMethod:
		return DeclMethod{Decl: d}
	case ast.DeclParam:
		return DeclParam{Decl: d}
	case ast.DeclConstructor:
		return DeclConstructor{Decl: d}
	case ast.DeclDestructor:
		return DeclDestructor{Decl: d}
	}
	panic(fmt.Sprintf("pgraph: unknown declaration kind %d", int(d.Kind)))
}
