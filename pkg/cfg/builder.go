package cfg

import (
	"fmt"

	"github.com/l3aro/pgraph/pkg/ast"
)

// scope is a region whose automatic objects are destroyed together.
type scope struct {
	owner   *ast.Stmt
	objects []*ast.Decl // declaration order
}

// jumpTarget is an enclosing loop or switch.
type jumpTarget struct {
	breakTo    *CFGBlock
	continueTo *CFGBlock // nil for switch
	depth      int       // number of scopes that survive the jump
}

type switchContext struct {
	head       *CFGBlock
	hasDefault bool
}

type pendingGoto struct {
	from  *CFGBlock
	label string
}

type cfgBuilder struct {
	opts     BuildOptions
	blocks   []*CFGBlock
	edges    []CFGEdge
	blockID  int
	exit     *CFGBlock
	scopes   []*scope
	targets  []jumpTarget
	switches []*switchContext
	labels   map[string]*CFGBlock
	gotos    []pendingGoto
}

// Build constructs the CFG of a function-like declaration. A declaration
// without a body yields entry and exit blocks only.
func Build(fn *ast.Decl, opts BuildOptions) *CFGInfo {
	b := &cfgBuilder{
		opts:   opts,
		labels: make(map[string]*CFGBlock),
	}

	entry := b.newBlock(BlockTypeEntry, fn.Range.Start)
	entry.Elements = []Element{{Kind: ElementStatement, Text: "entry"}}
	b.addBlock(entry)
	b.exit = b.newBlock(BlockTypeExit, fn.Range.End)
	b.exit.Elements = []Element{{Kind: ElementStatement, Text: "exit"}}

	current := entry
	if fn.Body != nil {
		b.processStmt(fn.Body, &current)
	}
	if current != nil {
		b.addEdge(current, b.exit, EdgeTypeUnconditional)
	}
	b.addBlock(b.exit)

	for _, g := range b.gotos {
		if target, ok := b.labels[g.label]; ok {
			b.addEdge(g.from, target, EdgeTypeGoto)
		}
	}

	return &CFGInfo{
		FunctionName:         fn.Name,
		Blocks:               b.blockList(),
		Edges:                b.edges,
		EntryBlockID:         entry.ID,
		ExitBlockIDs:         []string{b.exit.ID},
		CyclomaticComplexity: calculateCyclomaticComplexity(fn.Body),
	}
}

func (b *cfgBuilder) newBlock(t BlockType, at uint32) *CFGBlock {
	block := &CFGBlock{
		ID:    fmt.Sprintf("block_%d", b.blockID),
		Type:  t,
		Start: at,
		End:   at,
	}
	b.blockID++
	return block
}

func (b *cfgBuilder) addBlock(block *CFGBlock) {
	b.blocks = append(b.blocks, block)
}

func (b *cfgBuilder) addEdge(from, to *CFGBlock, t EdgeType) {
	b.edges = append(b.edges, CFGEdge{SourceID: from.ID, TargetID: to.ID, EdgeType: t})
	to.Predecessors = append(to.Predecessors, from.ID)
}

// ensure gives statements following a jump somewhere to live.
func (b *cfgBuilder) ensure(current **CFGBlock, at uint32) {
	if *current != nil {
		return
	}
	block := b.newBlock(BlockTypePlain, at)
	b.addBlock(block)
	*current = block
}

func (b *cfgBuilder) appendElement(current **CFGBlock, el Element, at uint32) {
	b.ensure(current, at)
	block := *current
	if len(block.Elements) == 0 {
		block.Start = at
	}
	block.Elements = append(block.Elements, el)
	if at > block.End {
		block.End = at
	}
}

func (b *cfgBuilder) appendStmt(current **CFGBlock, s *ast.Stmt) {
	b.appendElement(current, Element{Kind: ElementStatement, Text: stmtText(s), Stmt: s}, s.Range.Start)
}

func (b *cfgBuilder) blockList() []CFGBlock {
	out := make([]CFGBlock, len(b.blocks))
	for i, block := range b.blocks {
		out[i] = *block
	}
	return out
}

func (b *cfgBuilder) pushScope(owner *ast.Stmt) {
	b.scopes = append(b.scopes, &scope{owner: owner})
}

func (b *cfgBuilder) popScope() {
	b.scopes = b.scopes[:len(b.scopes)-1]
}

func (b *cfgBuilder) innermost() []*scope {
	if len(b.scopes) == 0 {
		return nil
	}
	return b.scopes[len(b.scopes)-1:]
}

func (b *cfgBuilder) processStmt(s *ast.Stmt, current **CFGBlock) {
	if s == nil {
		return
	}

	switch s.Class {
	case ast.StmtCompound:
		b.processCompound(s, current)
	case ast.StmtDeclStmt:
		b.processDeclStmt(s, current)
	case ast.StmtReturn:
		b.processReturn(s, current)
	case ast.StmtIf:
		b.processIf(s, current)
	case ast.StmtWhile:
		b.processWhile(s, current)
	case ast.StmtDo:
		b.processDoWhile(s, current)
	case ast.StmtFor:
		b.processFor(s, current)
	case ast.StmtRangeFor:
		b.processRangeFor(s, current)
	case ast.StmtSwitch:
		b.processSwitch(s, current)
	case ast.StmtCase:
		b.processCase(s, current)
	case ast.StmtBreak:
		b.processBreak(s, current)
	case ast.StmtContinue:
		b.processContinue(s, current)
	case ast.StmtGoto:
		b.appendStmt(current, s)
		b.gotos = append(b.gotos, pendingGoto{from: *current, label: s.Label})
		*current = nil
	case ast.StmtLabel:
		label := b.newBlock(BlockTypePlain, s.Range.Start)
		b.addBlock(label)
		if *current != nil {
			b.addEdge(*current, label, EdgeTypeUnconditional)
		}
		b.labels[s.Label] = label
		*current = label
		b.appendElement(current, Element{Kind: ElementStatement, Text: s.Label + ":", Stmt: s}, s.Range.Start)
		for _, c := range s.Children {
			b.processStmt(c, current)
		}
	case ast.StmtTry:
		b.processTry(s, current)
	case ast.StmtThrow:
		b.appendStmt(current, s)
		b.addTemporaries(current, s, false)
		b.addEdge(*current, b.exit, EdgeTypeUnconditional)
		*current = nil
	default:
		b.appendStmt(current, s)
		b.addTemporaries(current, s, false)
	}
}

func (b *cfgBuilder) processCompound(s *ast.Stmt, current **CFGBlock) {
	b.pushScope(s)
	scoped := b.opts.AddScopes && declaresObjects(s)
	if scoped {
		b.appendElement(current, Element{Kind: ElementScopeBegin, Text: "scope begin", Stmt: s}, s.Range.Start)
	}

	for _, c := range s.Children {
		b.processStmt(c, current)
	}

	// a trailing return already destroyed everything
	n := len(s.Children)
	if n == 0 || s.Children[n-1].Class != ast.StmtReturn {
		b.addAutomaticObjDtors(current, b.innermost(), s)
	}
	if scoped && *current != nil {
		b.appendElement(current, Element{Kind: ElementScopeEnd, Text: "scope end", Stmt: s}, s.Range.End)
	}
	b.popScope()
}

func (b *cfgBuilder) processDeclStmt(s *ast.Stmt, current **CFGBlock) {
	b.appendStmt(current, s)
	for _, d := range s.Decls {
		if d.Init != nil {
			b.addTemporaries(current, d.Init, true)
		}
		if destructorOf(d) != nil && len(b.scopes) > 0 {
			top := b.scopes[len(b.scopes)-1]
			top.objects = append(top.objects, d)
		}
	}
}

func (b *cfgBuilder) processReturn(s *ast.Stmt, current **CFGBlock) {
	b.ensure(current, s.Range.Start)
	ret := b.newBlock(BlockTypeReturn, s.Range.Start)
	b.addBlock(ret)
	b.addEdge(*current, ret, EdgeTypeUnconditional)
	*current = ret

	b.appendStmt(current, s)
	b.addTemporaries(current, s, false)
	b.addAutomaticObjDtors(current, b.scopes, s)
	b.addEdge(*current, b.exit, EdgeTypeUnconditional)
	*current = nil
}

func (b *cfgBuilder) processIf(s *ast.Stmt, current **CFGBlock) {
	// condition and init variables live until the end of the if
	b.pushScope(s)
	defer b.popScope()

	if s.Init != nil {
		b.processStmt(s.Init, current)
	}
	b.ensure(current, s.Range.Start)

	branch := b.newBlock(BlockTypeBranch, s.Range.Start)
	b.addBlock(branch)
	b.addEdge(*current, branch, EdgeTypeUnconditional)
	b.processCondition(s.Cond, &branch)

	thenBlock := b.newBlock(BlockTypePlain, s.Range.Start)
	b.addBlock(thenBlock)
	b.addEdge(branch, thenBlock, EdgeTypeTrue)
	b.processStmt(s.Then, &thenBlock)

	var elseBlock *CFGBlock
	if s.Else != nil {
		elseBlock = b.newBlock(BlockTypePlain, s.Else.Range.Start)
		b.addBlock(elseBlock)
		b.addEdge(branch, elseBlock, EdgeTypeFalse)
		b.processStmt(s.Else, &elseBlock)
	}

	after := b.newBlock(BlockTypePlain, s.Range.End)
	b.addBlock(after)
	if thenBlock != nil {
		b.addEdge(thenBlock, after, EdgeTypeUnconditional)
	}
	if s.Else == nil {
		b.addEdge(branch, after, EdgeTypeFalse)
	} else if elseBlock != nil {
		b.addEdge(elseBlock, after, EdgeTypeUnconditional)
	}

	*current = after
	b.addAutomaticObjDtors(current, b.innermost(), s)
}

func (b *cfgBuilder) processCondition(cond *ast.Stmt, block **CFGBlock) {
	if cond == nil {
		return
	}
	if cond.Class == ast.StmtDeclStmt {
		b.processDeclStmt(cond, block)
		return
	}
	b.appendStmt(block, cond)
	b.addTemporaries(block, cond, false)
}

func (b *cfgBuilder) processWhile(s *ast.Stmt, current **CFGBlock) {
	b.ensure(current, s.Range.Start)
	b.pushScope(s)
	defer b.popScope()

	header := b.newBlock(BlockTypeBranch, s.Range.Start)
	b.addBlock(header)
	b.addEdge(*current, header, EdgeTypeUnconditional)
	b.processCondition(s.Cond, &header)

	body := b.newBlock(BlockTypeLoopBody, s.Range.Start)
	b.addBlock(body)
	b.addEdge(header, body, EdgeTypeTrue)

	after := b.newBlock(BlockTypePlain, s.Range.End)
	b.targets = append(b.targets, jumpTarget{breakTo: after, continueTo: header, depth: len(b.scopes)})
	b.processStmt(s.Body, &body)
	b.targets = b.targets[:len(b.targets)-1]

	if body != nil {
		b.addEdge(body, header, EdgeTypeBackEdge)
	}
	b.addEdge(header, after, EdgeTypeFalse)
	b.addBlock(after)

	*current = after
	b.addAutomaticObjDtors(current, b.innermost(), s)
}

func (b *cfgBuilder) processDoWhile(s *ast.Stmt, current **CFGBlock) {
	b.ensure(current, s.Range.Start)

	body := b.newBlock(BlockTypeLoopBody, s.Range.Start)
	b.addBlock(body)
	b.addEdge(*current, body, EdgeTypeUnconditional)
	top := body

	cond := b.newBlock(BlockTypeBranch, s.Range.End)
	after := b.newBlock(BlockTypePlain, s.Range.End)
	b.targets = append(b.targets, jumpTarget{breakTo: after, continueTo: cond, depth: len(b.scopes)})
	b.processStmt(s.Body, &body)
	b.targets = b.targets[:len(b.targets)-1]

	b.addBlock(cond)
	if body != nil {
		b.addEdge(body, cond, EdgeTypeUnconditional)
	}
	b.processCondition(s.Cond, &cond)
	b.addEdge(cond, top, EdgeTypeBackEdge)
	b.addEdge(cond, after, EdgeTypeFalse)
	b.addBlock(after)

	*current = after
}

func (b *cfgBuilder) processFor(s *ast.Stmt, current **CFGBlock) {
	// objects declared in the initializer live until the loop exits
	b.pushScope(s)
	defer b.popScope()

	if s.Init != nil {
		b.processStmt(s.Init, current)
	}
	b.ensure(current, s.Range.Start)

	header := b.newBlock(BlockTypeBranch, s.Range.Start)
	b.addBlock(header)
	b.addEdge(*current, header, EdgeTypeUnconditional)
	b.processCondition(s.Cond, &header)

	body := b.newBlock(BlockTypeLoopBody, s.Range.Start)
	b.addBlock(body)
	b.addEdge(header, body, EdgeTypeTrue)

	latch := b.newBlock(BlockTypePlain, s.Range.End)
	after := b.newBlock(BlockTypePlain, s.Range.End)
	b.targets = append(b.targets, jumpTarget{breakTo: after, continueTo: latch, depth: len(b.scopes)})
	b.processStmt(s.Body, &body)
	b.targets = b.targets[:len(b.targets)-1]

	b.addBlock(latch)
	if body != nil {
		b.addEdge(body, latch, EdgeTypeUnconditional)
	}
	if s.Inc != nil {
		b.appendStmt(&latch, s.Inc)
	}
	b.addEdge(latch, header, EdgeTypeBackEdge)
	b.addEdge(header, after, EdgeTypeFalse)
	b.addBlock(after)

	*current = after
	b.addAutomaticObjDtors(current, b.innermost(), s)
}

func (b *cfgBuilder) processRangeFor(s *ast.Stmt, current **CFGBlock) {
	if s.Cond != nil {
		b.appendStmt(current, s.Cond)
	}
	b.ensure(current, s.Range.Start)

	header := b.newBlock(BlockTypeBranch, s.Range.Start)
	b.addBlock(header)
	b.addEdge(*current, header, EdgeTypeUnconditional)

	body := b.newBlock(BlockTypeLoopBody, s.Range.Start)
	b.addBlock(body)
	b.addEdge(header, body, EdgeTypeTrue)

	latch := b.newBlock(BlockTypePlain, s.Range.End)
	after := b.newBlock(BlockTypePlain, s.Range.End)

	// the loop variable is rebound every iteration, so jumps out of the
	// body destroy it
	b.targets = append(b.targets, jumpTarget{breakTo: after, continueTo: latch, depth: len(b.scopes)})
	b.pushScope(s)
	if s.Init != nil {
		b.processDeclStmt(s.Init, &body)
	}
	b.processStmt(s.Body, &body)
	if body != nil {
		b.addAutomaticObjDtors(&body, b.innermost(), s)
	}
	b.popScope()
	b.targets = b.targets[:len(b.targets)-1]

	b.addBlock(latch)
	if body != nil {
		b.addEdge(body, latch, EdgeTypeUnconditional)
	}
	b.addEdge(latch, header, EdgeTypeBackEdge)
	b.addEdge(header, after, EdgeTypeFalse)
	b.addBlock(after)

	*current = after
}

func (b *cfgBuilder) processSwitch(s *ast.Stmt, current **CFGBlock) {
	b.pushScope(s)
	defer b.popScope()

	if s.Init != nil {
		b.processStmt(s.Init, current)
	}
	b.ensure(current, s.Range.Start)

	head := b.newBlock(BlockTypeBranch, s.Range.Start)
	b.addBlock(head)
	b.addEdge(*current, head, EdgeTypeUnconditional)
	b.processCondition(s.Cond, &head)

	after := b.newBlock(BlockTypePlain, s.Range.End)
	b.targets = append(b.targets, jumpTarget{breakTo: after, depth: len(b.scopes)})
	sw := &switchContext{head: head}
	b.switches = append(b.switches, sw)

	// nothing in the body is reachable before the first case label
	var body *CFGBlock
	b.processStmt(s.Body, &body)

	b.switches = b.switches[:len(b.switches)-1]
	b.targets = b.targets[:len(b.targets)-1]

	if body != nil {
		b.addEdge(body, after, EdgeTypeUnconditional)
	}
	if !sw.hasDefault {
		b.addEdge(head, after, EdgeTypeFalse)
	}
	b.addBlock(after)

	*current = after
	b.addAutomaticObjDtors(current, b.innermost(), s)
}

func (b *cfgBuilder) processCase(s *ast.Stmt, current **CFGBlock) {
	block := b.newBlock(BlockTypeBranch, s.Range.Start)
	b.addBlock(block)
	if len(b.switches) > 0 {
		sw := b.switches[len(b.switches)-1]
		b.addEdge(sw.head, block, EdgeTypeUnconditional)
		if s.Cond == nil {
			sw.hasDefault = true
		}
	}
	if *current != nil {
		// fallthrough
		b.addEdge(*current, block, EdgeTypeUnconditional)
	}
	*current = block

	text := "default:"
	if s.Cond != nil {
		text = "case " + stmtText(s.Cond) + ":"
	}
	b.appendElement(current, Element{Kind: ElementStatement, Text: text, Stmt: s}, s.Range.Start)
	for _, c := range s.Children {
		if c == s.Cond {
			continue
		}
		b.processStmt(c, current)
	}
}

func (b *cfgBuilder) processBreak(s *ast.Stmt, current **CFGBlock) {
	b.appendStmt(current, s)
	if len(b.targets) == 0 {
		*current = nil
		return
	}
	t := b.targets[len(b.targets)-1]
	b.addAutomaticObjDtors(current, b.scopes[t.depth:], s)
	b.addEdge(*current, t.breakTo, EdgeTypeBreak)
	*current = nil
}

func (b *cfgBuilder) processContinue(s *ast.Stmt, current **CFGBlock) {
	b.appendStmt(current, s)
	for i := len(b.targets) - 1; i >= 0; i-- {
		t := b.targets[i]
		if t.continueTo == nil {
			continue
		}
		b.addAutomaticObjDtors(current, b.scopes[t.depth:], s)
		b.addEdge(*current, t.continueTo, EdgeTypeContinue)
		break
	}
	*current = nil
}

func (b *cfgBuilder) processTry(s *ast.Stmt, current **CFGBlock) {
	b.ensure(current, s.Range.Start)
	entry := *current

	b.processStmt(s.Body, current)
	ends := []*CFGBlock{*current}

	for _, handler := range s.Children {
		if handler == s.Body {
			continue
		}
		block := b.newBlock(BlockTypePlain, handler.Range.Start)
		b.addBlock(block)
		b.addEdge(entry, block, EdgeTypeUnconditional)
		b.processStmt(handler, &block)
		ends = append(ends, block)
	}

	after := b.newBlock(BlockTypePlain, s.Range.End)
	b.addBlock(after)
	for _, end := range ends {
		if end != nil {
			b.addEdge(end, after, EdgeTypeUnconditional)
		}
	}
	*current = after
}

// addAutomaticObjDtors emits destructor elements for the objects of scopes,
// innermost scope first and in reverse declaration order.
func (b *cfgBuilder) addAutomaticObjDtors(current **CFGBlock, scopes []*scope, trigger *ast.Stmt) {
	// nothing runs in unreachable code
	if !b.opts.AddImplicitDtors || *current == nil {
		return
	}
	for i := len(scopes) - 1; i >= 0; i-- {
		objects := scopes[i].objects
		for j := len(objects) - 1; j >= 0; j-- {
			v := objects[j]
			dtor := destructorOf(v)
			b.appendElement(current, Element{
				Kind:       ElementAutomaticObjectDtor,
				Text:       fmt.Sprintf("%s() [%s]", dtor.Name, v.Name),
				Stmt:       trigger,
				Var:        v,
				Destructor: dtor,
			}, trigger.Range.End)
		}
	}
}

// addTemporaries emits destructor elements for temporaries of record types
// constructed within s. The root itself is skipped when it initializes a
// variable.
func (b *cfgBuilder) addTemporaries(current **CFGBlock, s *ast.Stmt, skipRoot bool) {
	if !b.opts.AddTemporaryDtors {
		return
	}
	ast.Inspect(s, func(n ast.Node) bool {
		st, ok := n.(*ast.Stmt)
		if !ok {
			return false
		}
		if st.Class != ast.StmtConstruct || st.Implicit || (skipRoot && st == s) {
			return true
		}
		if st.Callee == nil || st.Callee.Parent == nil {
			return true
		}
		if dtor := st.Callee.Parent.Destructor(); dtor != nil {
			b.appendElement(current, Element{
				Kind:       ElementTemporaryDtor,
				Text:       fmt.Sprintf("%s() [temporary]", dtor.Name),
				Stmt:       st,
				Destructor: dtor,
			}, st.Range.End)
		}
		return true
	})
}

// destructorOf returns the destructor run when v leaves scope, or nil.
func destructorOf(v *ast.Decl) *ast.Decl {
	if v.Kind != ast.DeclVar || v.Indirect || v.TypeDecl == nil {
		return nil
	}
	return v.TypeDecl.Destructor()
}

func declaresObjects(s *ast.Stmt) bool {
	for _, c := range s.Children {
		if c.Class != ast.StmtDeclStmt {
			continue
		}
		for _, d := range c.Decls {
			if destructorOf(d) != nil {
				return true
			}
		}
	}
	return false
}

func stmtText(s *ast.Stmt) string {
	name := s.Syntax
	if name == "" {
		name = s.Class.String()
	}
	return fmt.Sprintf("%s@%d", name, s.Range.Start)
}

// calculateCyclomaticComplexity counts decision points plus one.
func calculateCyclomaticComplexity(body *ast.Stmt) int {
	if body == nil {
		return 1
	}
	complexity := 1
	ast.Inspect(body, func(n ast.Node) bool {
		s, ok := n.(*ast.Stmt)
		if !ok {
			return true
		}
		switch s.Class {
		case ast.StmtIf, ast.StmtWhile, ast.StmtDo, ast.StmtFor, ast.StmtRangeFor:
			complexity++
		case ast.StmtCase:
			if s.Cond != nil {
				complexity++
			}
		case ast.StmtOther:
			switch s.Syntax {
			case "conditional_expression", "catch_clause":
				complexity++
			}
		}
		return true
	})
	return complexity
}
