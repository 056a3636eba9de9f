package frontend

import (
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

var annotationPattern = regexp.MustCompile(`cle(?:_|::)annotate\s*\(\s*"((?:[^"\\]|\\.)*)"\s*\)`)

// declarator is a flattened declarator chain.
type declarator struct {
	name     *sitter.Node // identifier, field_identifier, qualified_identifier, destructor_name, operator_name
	function *sitter.Node // outermost function_declarator
	value    *sitter.Node // initializer of an init_declarator
	indirect bool         // pointer or reference to the declared type
	fnPtr    bool         // pointer or reference inside the function declarator
}

func (d declarator) isFunction() bool {
	return d.function != nil && !d.fnPtr
}

func unwrapDeclarator(n *sitter.Node) declarator {
	var d declarator
	for n != nil {
		switch n.Type() {
		case "init_declarator":
			d.value = n.ChildByFieldName("value")
			n = n.ChildByFieldName("declarator")
		case "pointer_declarator", "reference_declarator", "rvalue_reference_declarator":
			if d.function != nil {
				d.fnPtr = true
			}
			d.indirect = true
			n = innerDeclarator(n)
		case "function_declarator":
			if d.function == nil {
				d.function = n
			}
			n = n.ChildByFieldName("declarator")
		case "array_declarator", "parenthesized_declarator", "attributed_declarator":
			n = innerDeclarator(n)
		default:
			d.name = n
			return d
		}
	}
	return d
}

// innerDeclarator follows the declarator field, falling back to the last
// named child for nodes that do not label it.
func innerDeclarator(n *sitter.Node) *sitter.Node {
	if inner := n.ChildByFieldName("declarator"); inner != nil {
		return inner
	}
	for i := int(n.NamedChildCount()) - 1; i >= 0; i-- {
		c := n.NamedChild(i)
		switch c.Type() {
		case "attribute_specifier", "attribute_declaration", "type_qualifier", "ms_pointer_modifier", "comment":
			continue
		}
		return c
	}
	return nil
}

// fieldChildren returns every child of n stored under field.
func fieldChildren(n *sitter.Node, field string) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(n.ChildCount()); i++ {
		if n.FieldNameForChild(i) == field {
			out = append(out, n.Child(i))
		}
	}
	return out
}

// namedChildren returns the named children of n without comments.
func namedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "comment" {
			continue
		}
		out = append(out, c)
	}
	return out
}

func isRecordSpecifier(n *sitter.Node) bool {
	if n == nil {
		return false
	}
	switch n.Type() {
	case "class_specifier", "struct_specifier", "union_specifier":
		return true
	}
	return false
}

// annotation finds a cle annotation in the attributes attached to n or to
// the declarators below it.
func (u *unitBuilder) annotation(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		c := n.Child(i)
		switch c.Type() {
		case "attribute_specifier", "attribute_declaration":
			if m := annotationPattern.FindStringSubmatch(u.text(c)); m != nil {
				return m[1]
			}
		case "init_declarator", "function_declarator", "pointer_declarator", "reference_declarator",
			"attributed_declarator", "identifier", "field_identifier":
			if a := u.annotation(c); a != "" {
				return a
			}
		}
	}
	return ""
}

func (u *unitBuilder) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(u.content)
}

// typeName returns the spelled record name of a type node, or "" for
// primitive and template types.
func (u *unitBuilder) typeName(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	switch n.Type() {
	case "type_identifier", "qualified_identifier":
		return u.text(n)
	case "class_specifier", "struct_specifier", "union_specifier":
		return u.text(n.ChildByFieldName("name"))
	}
	return ""
}

func qualify(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "::" + name
}

func parentScope(prefix string) string {
	if i := strings.LastIndex(prefix, "::"); i >= 0 {
		return prefix[:i]
	}
	return ""
}

func simpleName(qualified string) string {
	if i := strings.LastIndex(qualified, "::"); i >= 0 {
		return qualified[i+2:]
	}
	return qualified
}

// candidates lists the qualified names name may refer to from scope, the
// innermost first.
func candidates(scope, name string) []string {
	name = strings.TrimPrefix(name, "::")
	out := []string{}
	for s := scope; s != ""; s = parentScope(s) {
		out = append(out, qualify(s, name))
	}
	return append(out, name)
}
