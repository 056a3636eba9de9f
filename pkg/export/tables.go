// Package export writes exported graph tables: delimiter-separated node and
// edge files, the label definition JSON and a SQLite database.
package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"unicode/utf8"

	"github.com/l3aro/pgraph/pkg/pgraph"
)

// ErrDelimiter is returned for delimiters the table format cannot carry.
var ErrDelimiter = errors.New("invalid delimiter")

// TableOptions controls the delimiter-separated table format.
type TableOptions struct {
	Delimiter rune
	Header    bool
}

// DefaultTableOptions are comma-separated tables without a header row.
func DefaultTableOptions() TableOptions {
	return TableOptions{Delimiter: ','}
}

// ParseDelimiter accepts a single character or one of the names comma, tab,
// semicolon and pipe.
func ParseDelimiter(s string) (rune, error) {
	switch s {
	case "comma", "":
		return ',', nil
	case "tab", `\t`:
		return '\t', nil
	case "semicolon":
		return ';', nil
	case "pipe":
		return '|', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if size != len(s) || !validDelim(r) {
		return 0, fmt.Errorf("%w: %q", ErrDelimiter, s)
	}
	return r, nil
}

func validDelim(r rune) bool {
	return r != 0 && r != '"' && r != '\r' && r != '\n' && r != utf8.RuneError
}

type fieldRow interface {
	Fields() []string
}

func writeRows[R fieldRow](w io.Writer, columns []string, rows []R, opts TableOptions) error {
	if !validDelim(opts.Delimiter) {
		return fmt.Errorf("%w: %q", ErrDelimiter, opts.Delimiter)
	}
	cw := csv.NewWriter(w)
	cw.Comma = opts.Delimiter
	if opts.Header {
		if err := cw.Write(columns); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}
	for _, r := range rows {
		if err := cw.Write(r.Fields()); err != nil {
			return fmt.Errorf("writing row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteNodes writes the node table.
func WriteNodes(w io.Writer, rows []pgraph.NodeRow, opts TableOptions) error {
	return writeRows(w, pgraph.NodeColumns, rows, opts)
}

// WriteEdges writes the edge table.
func WriteEdges(w io.Writer, rows []pgraph.EdgeRow, opts TableOptions) error {
	return writeRows(w, pgraph.EdgeColumns, rows, opts)
}

// WriteTableFiles writes both tables to the given paths, creating parent
// directories.
func WriteTableFiles(nodesPath, edgesPath string, t pgraph.Tables, opts TableOptions) error {
	if err := writeFile(nodesPath, func(w io.Writer) error { return WriteNodes(w, t.Nodes, opts) }); err != nil {
		return err
	}
	return writeFile(edgesPath, func(w io.Writer) error { return WriteEdges(w, t.Edges, opts) })
}

func writeFile(path string, write func(io.Writer) error) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("failed to close %s: %w", path, cerr)
		}
	}()
	if err := write(f); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
