package frontend

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/l3aro/pgraph/pkg/ast"
)

var labelPragma = regexp.MustCompile(`(?s)^cle\s+def\s+([A-Za-z_][A-Za-z0-9_]*)\s*(.*)$`)

// labels collects `#pragma cle def NAME {json}` directives in source order.
func (u *unitBuilder) labels(root *sitter.Node) []ast.Label {
	var out []ast.Label
	var walk func(n *sitter.Node)
	walk = func(n *sitter.Node) {
		if n.Type() == "preproc_call" {
			if l, ok := u.label(n); ok {
				out = append(out, l)
			}
			return
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			walk(n.NamedChild(i))
		}
	}
	walk(root)
	return out
}

func (u *unitBuilder) label(n *sitter.Node) (ast.Label, bool) {
	if strings.TrimSpace(u.text(n.ChildByFieldName("directive"))) != "#pragma" {
		return ast.Label{}, false
	}
	arg := u.text(n.ChildByFieldName("argument"))
	arg = strings.NewReplacer("\\\r\n", " ", "\\\n", " ").Replace(arg)
	m := labelPragma.FindStringSubmatch(strings.TrimSpace(arg))
	if m == nil {
		return ast.Label{}, false
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(m[2])); err != nil {
		u.logger.Warn("invalid label definition", "label", m[1], "offset", n.StartByte(), "error", err)
		return ast.Label{}, false
	}
	return ast.Label{Name: m[1], JSON: buf.String()}, true
}
