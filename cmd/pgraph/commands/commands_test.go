package commands

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/pgraph/internal/config"
	"github.com/l3aro/pgraph/internal/log"
	"github.com/l3aro/pgraph/pkg/pgraph"
	"github.com/l3aro/pgraph/pkg/pipeline"
)

func TestInitAnswers_Apply(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*initAnswers)
		wantErr bool
	}{
		{name: "defaults", mutate: func(*initAnswers) {}},
		{name: "tab with header", mutate: func(a *initAnswers) { a.delimiter = "tab"; a.header = true }},
		{name: "bad workers", mutate: func(a *initAnswers) { a.workers = "many" }, wantErr: true},
		{name: "negative workers", mutate: func(a *initAnswers) { a.workers = "-2" }, wantErr: true},
		{name: "no extensions", mutate: func(a *initAnswers) { a.extensions = " , " }, wantErr: true},
		{name: "empty output", mutate: func(a *initAnswers) { a.outputDir = "  " }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			a := defaultAnswers(cfg)
			tt.mutate(a)
			err := a.apply(cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestInitAnswers_ExtensionsAndPath(t *testing.T) {
	cfg := config.DefaultConfig()
	a := defaultAnswers(cfg)
	a.extensions = ".cpp, .cc"
	require.NoError(t, a.apply(cfg))
	assert.Equal(t, []string{".cpp", ".cc"}, cfg.Extensions)

	path, err := a.configPath()
	require.NoError(t, err)
	assert.Equal(t, config.ProjectConfigFilePath(), path)
}

func buildSample(t *testing.T) *pgraph.Graph {
	t.Helper()
	src := filepath.Join(t.TempDir(), "sample.cpp")
	require.NoError(t, os.WriteFile(src, []byte(`struct Foo { ~Foo() {} };
void f() {
  { Foo a; }
}
`), 0644))
	g, _, err := pipeline.BuildUnit(context.Background(), src, log.Discard())
	require.NoError(t, err)
	return g
}

func TestSummarize(t *testing.T) {
	g := buildSample(t)
	s := summarize(g)

	assert.Equal(t, g.NodeCount(), s.Nodes)
	assert.Equal(t, g.EdgeCount(), s.Edges)
	assert.Equal(t, 1, s.NodeKinds["Decl.Record"])
	assert.Equal(t, 2, s.Functions)
	assert.Equal(t, 1, s.Destructed)
	assert.Equal(t, 1, s.EdgeKinds["Record.Destructor"])
}

func TestDescribeNode(t *testing.T) {
	g := buildSample(t)
	c := pgraph.Canonicalize(g)

	records := g.NodesOfKind(pgraph.NodeDeclRecord)
	require.Len(t, records, 1)
	v, err := describeNode(g, c, c.NodeID(records[0]))
	require.NoError(t, err)
	assert.Equal(t, "Decl.Record", v.Kind)
	assert.Equal(t, "Foo", v.Name)
	require.NotEmpty(t, v.Outgoing)
	assert.Equal(t, "Record.Destructor", v.Outgoing[0].Kind)

	_, err = describeNode(g, c, g.NodeCount()+1)
	assert.True(t, errors.Is(err, pgraph.ErrUnknownNode))
}
