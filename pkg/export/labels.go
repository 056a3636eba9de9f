package export

import (
	"encoding/json"
	"io"

	"github.com/l3aro/pgraph/pkg/ast"
)

type labelDoc struct {
	Label string          `json:"cle-label"`
	JSON  json.RawMessage `json:"cle-json"`
}

// WriteLabels writes label definitions as a JSON array of
// {"cle-label": name, "cle-json": definition} objects.
func WriteLabels(w io.Writer, labels []ast.Label) error {
	docs := make([]labelDoc, 0, len(labels))
	for _, l := range labels {
		docs = append(docs, labelDoc{Label: l.Name, JSON: json.RawMessage(l.JSON)})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(docs)
}

// WriteLabelsFile writes label definitions to path.
func WriteLabelsFile(path string, labels []ast.Label) error {
	return writeFile(path, func(w io.Writer) error { return WriteLabels(w, labels) })
}
