package pgraph

// Context records the lexical scope a node was created in. It is a value:
// the With* methods return modified copies.
type Context struct {
	// ids are stored +1 so the zero value means absent
	decl     int
	class    int
	function int
}

func ref(id NodeID) int { return int(id) + 1 }

func deref(r int) (NodeID, bool) {
	if r == 0 {
		return 0, false
	}
	return NodeID(r - 1), true
}

// Decl returns the nearest enclosing named declaration.
func (c Context) Decl() (NodeID, bool) { return deref(c.decl) }

// Class returns the enclosing class.
func (c Context) Class() (NodeID, bool) { return deref(c.class) }

// Function returns the enclosing function, method, constructor or destructor.
func (c Context) Function() (NodeID, bool) { return deref(c.function) }

// WithDecl sets the enclosing declaration.
func (c Context) WithDecl(id NodeID) Context {
	c.decl = ref(id)
	return c
}

// WithClass enters a class.
func (c Context) WithClass(id NodeID) Context {
	c.decl = ref(id)
	c.class = ref(id)
	return c
}

// WithFunction enters a function-like declaration.
func (c Context) WithFunction(id NodeID) Context {
	c.decl = ref(id)
	c.function = ref(id)
	return c
}
