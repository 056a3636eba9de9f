package pgraph

import (
	"github.com/l3aro/pgraph/pkg/ast"
	"github.com/l3aro/pgraph/pkg/cfg"
)

// addImplicitDestructors splices a call node for every automatic object
// destruction the CFG of fn reports. Each call becomes a child of the
// structural parent of the statement that triggers it.
func (b *Builder) addImplicitDestructors(fn *ast.Decl, ctx Context) {
	info := cfg.Build(fn, cfg.AllOptions())

	for _, el := range info.AutomaticObjectDtors() {
		trigger, ok := b.identity[el.Stmt.ID]
		if !ok {
			b.logger.Debug("destructor trigger not in graph", "function", fn.Name, "at", el.Stmt.Range.Start)
			continue
		}
		parent, ok := b.graph.Parent(trigger)
		if !ok {
			b.logger.Debug("destructor trigger has no parent", "function", fn.Name, "var", el.Var.Name)
			continue
		}

		dtor := b.resolveCallee(el.Destructor)
		id := b.graph.AddNode(Node{
			Payload: StmtImplicitDestructor{Trigger: el.Stmt, Var: el.Var, Destructor: el.Destructor},
			Context: ctx,
		})
		b.graph.AddEdge(parent, id, EdgeChild)
		b.graph.AddEdge(id, dtor, EdgeInvokesDestructor)
	}
}
