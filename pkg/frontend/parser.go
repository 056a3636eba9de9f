// Package frontend turns C++ sources into the ast model with tree-sitter.
//
// Parsing happens in two passes over the syntax tree. The first collects
// every record, member, function and global so that redeclarations can be
// chained and names resolved regardless of order. The second converts
// function bodies and global initializers into statement trees.
package frontend

import (
	"context"
	"errors"
	"fmt"
	"os"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/cpp"

	"github.com/l3aro/pgraph/internal/log"
	"github.com/l3aro/pgraph/pkg/ast"
)

// ErrParse is returned when tree-sitter produces no tree for a unit.
var ErrParse = errors.New("parse failed")

// Parser converts C++ compilation units. A Parser is not safe for
// concurrent use; create one per goroutine.
type Parser struct {
	parser *sitter.Parser
	logger log.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the logger used for parse diagnostics.
func WithLogger(l log.Logger) Option {
	return func(p *Parser) {
		p.logger = l
	}
}

// NewParser creates a parser for C++.
func NewParser(opts ...Option) *Parser {
	p := &Parser{
		parser: sitter.NewParser(),
		logger: log.Discard(),
	}
	p.parser.SetLanguage(cpp.GetLanguage())
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Close releases the tree-sitter parser.
func (p *Parser) Close() {
	p.parser.Close()
}

// ParseFile reads and parses the file at path.
func (p *Parser) ParseFile(ctx context.Context, path string) (*ast.Unit, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return p.Parse(ctx, path, content)
}

// Parse converts content into a unit whose ranges are stamped with path.
func (p *Parser) Parse(ctx context.Context, path string, content []byte) (*ast.Unit, error) {
	tree, err := p.parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if tree == nil {
		return nil, fmt.Errorf("%w: %s", ErrParse, path)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		p.logger.Warn("syntax errors in unit, keeping what parsed", "file", path)
	}

	u := newUnitBuilder(path, content, p.logger)
	u.collect(root, "")
	u.resolveBases()
	u.convertBodies()
	u.unit.Labels = u.labels(root)

	p.logger.Debug("parsed unit", "file", path, "decls", len(u.unit.Decls), "labels", len(u.unit.Labels))
	return u.unit, nil
}
