package cfg

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/l3aro/pgraph/pkg/ast"
	"github.com/l3aro/pgraph/pkg/frontend"
)

// ErrFunctionNotFound is returned when no definition of the requested
// function exists in the file.
var ErrFunctionNotFound = errors.New("function not found")

// ExtractCFG parses a C++ file and builds the CFG of the named function with
// every implicit element enabled. The name may be qualified ("A::run") or
// unqualified ("run").
func ExtractCFG(ctx context.Context, filePath string, functionName string) (*CFGInfo, error) {
	parser := frontend.NewParser()
	defer parser.Close()

	unit, err := parser.ParseFile(ctx, filePath)
	if err != nil {
		return nil, err
	}

	fn := FindFunction(unit, functionName)
	if fn == nil {
		return nil, fmt.Errorf("%w: %q in %s", ErrFunctionNotFound, functionName, filePath)
	}
	return Build(fn, AllOptions()), nil
}

// FindFunction returns the first function-like definition in unit whose
// name matches.
func FindFunction(unit *ast.Unit, name string) *ast.Decl {
	var found *ast.Decl
	for _, d := range unit.Decls {
		ast.Inspect(d, func(n ast.Node) bool {
			if found != nil {
				return false
			}
			decl, ok := n.(*ast.Decl)
			if !ok {
				return false
			}
			if decl.Kind.IsFunctionLike() && decl.Body != nil && matchesName(decl.Name, name) {
				found = decl
				return false
			}
			return decl.Kind == ast.DeclRecord
		})
		if found != nil {
			return found
		}
	}
	return nil
}

func matchesName(qualified, name string) bool {
	if qualified == name {
		return true
	}
	if strings.Contains(name, "::") {
		return strings.HasSuffix(qualified, "::"+name)
	}
	if i := strings.LastIndex(qualified, "::"); i >= 0 {
		return qualified[i+2:] == name
	}
	return false
}

// FunctionNames lists the qualified names of the function-like definitions
// in unit, in source order.
func FunctionNames(unit *ast.Unit) []string {
	var names []string
	for _, d := range unit.Decls {
		ast.Inspect(d, func(n ast.Node) bool {
			decl, ok := n.(*ast.Decl)
			if !ok {
				return false
			}
			if decl.Kind.IsFunctionLike() && decl.Body != nil {
				names = append(names, decl.Name)
				return false
			}
			return decl.Kind == ast.DeclRecord
		})
	}
	return names
}
