// Package cfg builds control flow graphs over function bodies and reports
// the implicit destructor calls that run when automatic objects leave scope.
package cfg

import "github.com/l3aro/pgraph/pkg/ast"

// BlockType represents the type of a CFG block.
type BlockType string

const (
	BlockTypeEntry    BlockType = "entry"     // Function entry point
	BlockTypeBranch   BlockType = "branch"    // Conditional branch (if/switch/loop header)
	BlockTypeLoopBody BlockType = "loop_body" // Loop body
	BlockTypeReturn   BlockType = "return"    // Return statement
	BlockTypeExit     BlockType = "exit"      // Function exit point
	BlockTypePlain    BlockType = "plain"     // Regular statements
)

// EdgeType represents the type of a CFG edge.
type EdgeType string

const (
	EdgeTypeUnconditional EdgeType = "unconditional"
	EdgeTypeTrue          EdgeType = "true"
	EdgeTypeFalse         EdgeType = "false"
	EdgeTypeBackEdge      EdgeType = "back_edge"
	EdgeTypeBreak         EdgeType = "break"
	EdgeTypeContinue      EdgeType = "continue"
	EdgeTypeGoto          EdgeType = "goto"
)

// ElementKind classifies the entries of a block.
type ElementKind string

const (
	ElementStatement           ElementKind = "statement"
	ElementScopeBegin          ElementKind = "scope_begin"
	ElementScopeEnd            ElementKind = "scope_end"
	ElementAutomaticObjectDtor ElementKind = "automatic_object_dtor"
	ElementTemporaryDtor       ElementKind = "temporary_dtor"
)

// Element is one entry of a block. For destructor elements Stmt is the
// trigger: the statement whose execution ends the object's lifetime.
type Element struct {
	Kind       ElementKind `json:"kind"`
	Text       string      `json:"text"`
	Stmt       *ast.Stmt   `json:"-"`
	Var        *ast.Decl   `json:"-"`
	Destructor *ast.Decl   `json:"-"`
}

// CFGBlock represents a basic block in the Control Flow Graph.
type CFGBlock struct {
	ID           string    `json:"id"`
	Type         BlockType `json:"type"`
	Start        uint32    `json:"start"` // byte offset of the first element
	End          uint32    `json:"end"`
	Elements     []Element `json:"elements"`
	Predecessors []string  `json:"predecessors"`
}

// CFGEdge represents a directed edge between two CFG blocks.
type CFGEdge struct {
	SourceID string   `json:"source_id"`
	TargetID string   `json:"target_id"`
	EdgeType EdgeType `json:"edge_type"`
}

// CFGInfo represents the complete Control Flow Graph for a function.
type CFGInfo struct {
	FunctionName         string     `json:"function_name"`
	Blocks               []CFGBlock `json:"blocks"` // in creation order
	Edges                []CFGEdge  `json:"edges"`
	EntryBlockID         string     `json:"entry_block_id"`
	ExitBlockIDs         []string   `json:"exit_block_ids"`
	CyclomaticComplexity int        `json:"cyclomatic_complexity"`
}

// BuildOptions selects the implicit elements added to blocks.
type BuildOptions struct {
	AddImplicitDtors  bool
	AddScopes         bool
	AddTemporaryDtors bool
}

// AllOptions enables every implicit element.
func AllOptions() BuildOptions {
	return BuildOptions{AddImplicitDtors: true, AddScopes: true, AddTemporaryDtors: true}
}

// AutomaticObjectDtors returns the automatic object destructor elements of
// all blocks in block order.
func (c *CFGInfo) AutomaticObjectDtors() []Element {
	var out []Element
	for _, b := range c.Blocks {
		for _, el := range b.Elements {
			if el.Kind == ElementAutomaticObjectDtor {
				out = append(out, el)
			}
		}
	}
	return out
}
