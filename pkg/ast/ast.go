// Package ast defines the declaration and statement model consumed by the
// program graph builder. It is produced by the C++ front end and can be built
// by hand through a Factory.
package ast

import "sync/atomic"

// ID is a stable per-process identity of a declaration or statement.
type ID int64

// Range is a half-open byte range in a source file.
type Range struct {
	File  string `json:"file"`
	Start uint32 `json:"start"`
	End   uint32 `json:"end"`
}

// DeclKind discriminates declarations.
type DeclKind int

const (
	DeclVar DeclKind = iota
	DeclFunction
	DeclRecord
	DeclField
	DeclMethod
	DeclParam
	DeclConstructor
	DeclDestructor
)

func (k DeclKind) String() string {
	switch k {
	case DeclVar:
		return "var"
	case DeclFunction:
		return "function"
	case DeclRecord:
		return "record"
	case DeclField:
		return "field"
	case DeclMethod:
		return "method"
	case DeclParam:
		return "param"
	case DeclConstructor:
		return "constructor"
	case DeclDestructor:
		return "destructor"
	default:
		return "unknown"
	}
}

// IsFunctionLike reports whether declarations of this kind can carry a body.
func (k DeclKind) IsFunctionLike() bool {
	switch k {
	case DeclFunction, DeclMethod, DeclConstructor, DeclDestructor:
		return true
	}
	return false
}

// Decl is one textual declaration. Redeclarations of the same entity are
// distinct Decls sharing a chain (see Redeclare).
type Decl struct {
	ID         ID
	Kind       DeclKind
	Name       string // qualified, empty when anonymous
	Range      Range
	Annotation string
	TopLevel   bool

	// Parent is the record a member belongs to.
	Parent *Decl

	// Function-like declarations.
	Params []*Decl
	Body   *Stmt

	// Records. IsDefinition is set when the braces are present.
	IsDefinition bool
	Bases        []*Decl // nil entries are bases that could not be resolved
	Fields       []*Decl
	Methods      []*Decl // excludes constructors and the destructor
	Ctors        []*Decl
	Dtor         *Decl

	// Variables, fields and parameters. TypeName is the spelled type; TypeDecl
	// is the record it names, if any. For functions TypeDecl is the record
	// returned by value.
	TypeName string
	TypeDecl *Decl
	Indirect bool // pointer or reference to TypeDecl
	Init     *Stmt

	chain *redeclChain
}

type redeclChain struct {
	decls []*Decl
}

// Redeclare links d into the redeclaration chain of prev. Chains keep
// declaration order.
func Redeclare(prev, d *Decl) {
	if prev.chain == nil {
		prev.chain = &redeclChain{decls: []*Decl{prev}}
	}
	if d.chain == prev.chain {
		return
	}
	d.chain = prev.chain
	prev.chain.decls = append(prev.chain.decls, d)
}

// Redecls returns every declaration of the entity, starting with the first.
func (d *Decl) Redecls() []*Decl {
	if d.chain == nil {
		return []*Decl{d}
	}
	return d.chain.decls
}

// Canonical returns the first declaration of the entity.
func (d *Decl) Canonical() *Decl {
	return d.Redecls()[0]
}

// HasBody reports whether this particular declaration carries a body.
func (d *Decl) HasBody() bool {
	return d.Body != nil
}

// Definition returns the defining declaration of a record or function, or nil.
func (d *Decl) Definition() *Decl {
	for _, r := range d.Redecls() {
		if r.Kind == DeclRecord && r.IsDefinition {
			return r
		}
		if r.Kind.IsFunctionLike() && r.Body != nil {
			return r
		}
	}
	return nil
}

// Destructor returns the user-declared destructor of a record, if any.
func (d *Decl) Destructor() *Decl {
	if d == nil {
		return nil
	}
	def := d.Definition()
	if def == nil {
		return nil
	}
	return def.Dtor
}

// StmtClass discriminates statements and expressions.
type StmtClass int

const (
	StmtOther StmtClass = iota
	StmtCompound
	StmtDeclStmt
	StmtReturn
	StmtDeclRef
	StmtCall
	StmtMemberCall
	StmtConstruct
	StmtThis
	StmtMember
	StmtIf
	StmtWhile
	StmtDo
	StmtFor
	StmtRangeFor
	StmtSwitch
	StmtCase
	StmtBreak
	StmtContinue
	StmtGoto
	StmtLabel
	StmtTry
	StmtThrow
)

var stmtClassNames = [...]string{
	StmtOther:      "other",
	StmtCompound:   "compound",
	StmtDeclStmt:   "decl",
	StmtReturn:     "return",
	StmtDeclRef:    "ref",
	StmtCall:       "call",
	StmtMemberCall: "member_call",
	StmtConstruct:  "construct",
	StmtThis:       "this",
	StmtMember:     "member",
	StmtIf:         "if",
	StmtWhile:      "while",
	StmtDo:         "do",
	StmtFor:        "for",
	StmtRangeFor:   "range_for",
	StmtSwitch:     "switch",
	StmtCase:       "case",
	StmtBreak:      "break",
	StmtContinue:   "continue",
	StmtGoto:       "goto",
	StmtLabel:      "label",
	StmtTry:        "try",
	StmtThrow:      "throw",
}

func (c StmtClass) String() string {
	if int(c) < len(stmtClassNames) {
		return stmtClassNames[c]
	}
	return "unknown"
}

// Stmt is a statement or expression.
//
// Control statements keep their parts in Children in source order and also
// point at them through the role fields (Cond, Then, ...). Calls, member
// accesses and constructions use Func, Args and Object instead of Children.
type Stmt struct {
	ID       ID
	Class    StmtClass
	Syntax   string // front-end node type, for display
	Range    Range
	Implicit bool

	Children []*Stmt

	Init *Stmt
	Cond *Stmt
	Then *Stmt
	Else *Stmt
	Inc  *Stmt
	Body *Stmt

	// Decls holds the entities of a declaration statement.
	Decls []*Decl

	// Ref is the referenced declaration of a DeclRef or the field of a Member.
	Ref *Decl

	// Callee is the directly called function, method or constructor.
	Callee *Decl
	// Func is the callee expression when there is no direct callee.
	Func   *Stmt
	Args   []*Stmt
	Object *Stmt

	Label string
}

// Unit is one parsed compilation unit.
type Unit struct {
	File   string
	Decls  []*Decl // top-level declarations in source order
	Labels []Label
}

// Label is a named annotation definition carrying a JSON payload.
type Label struct {
	Name string `json:"cle-label" msgpack:"name"`
	JSON string `json:"cle-json" msgpack:"json"`
}

var nextID atomic.Int64

// Factory allocates identities for a unit. IDs are unique per process so
// units built concurrently never collide.
type Factory struct {
	File string
}

// NewFactory returns a factory stamping ranges with file.
func NewFactory(file string) *Factory {
	return &Factory{File: file}
}

// NextID returns a fresh identity.
func (f *Factory) NextID() ID {
	return ID(nextID.Add(1))
}

// Decl returns a declaration with a fresh identity.
func (f *Factory) Decl(kind DeclKind, name string, start, end uint32) *Decl {
	return &Decl{
		ID:    f.NextID(),
		Kind:  kind,
		Name:  name,
		Range: Range{File: f.File, Start: start, End: end},
	}
}

// Stmt returns a statement with a fresh identity.
func (f *Factory) Stmt(class StmtClass, start, end uint32) *Stmt {
	return &Stmt{
		ID:    f.NextID(),
		Class: class,
		Range: Range{File: f.File, Start: start, End: end},
	}
}
