package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/l3aro/pgraph/internal/log"
	"github.com/l3aro/pgraph/internal/scanner"
	"github.com/l3aro/pgraph/pkg/ast"
	"github.com/l3aro/pgraph/pkg/cache"
	"github.com/l3aro/pgraph/pkg/export"
)

const labelledSource = `#pragma cle def ORANGE {"level":"orange"}
struct Foo {
  int bar __attribute__((cle_annotate("ORANGE")));
  ~Foo() {}
};
int main() {
  Foo f;
  return f.bar;
}
`

const plainSource = `int add(int a, int b) { return a + b; }
int main() { return add(1, 2); }
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func testOptions(t *testing.T) Options {
	return Options{
		OutputDir:  filepath.Join(t.TempDir(), "out"),
		NodesFile:  "nodes.csv",
		EdgesFile:  "edges.csv",
		LabelsFile: "collated.json",
		Table:      export.DefaultTableOptions(),
		Workers:    2,
		Scanner:    scanner.DefaultOptions(),
		Logger:     log.Discard(),
	}
}

func TestRun_SingleUnitUsesConfiguredNames(t *testing.T) {
	src := filepath.Join(t.TempDir(), "main.cpp")
	writeFile(t, src, labelledSource)
	opts := testOptions(t)

	summary, err := Run(context.Background(), []string{src}, opts)
	require.NoError(t, err)
	require.Len(t, summary.Units, 1)

	res := summary.Units[0]
	assert.Equal(t, filepath.Join(opts.OutputDir, "nodes.csv"), res.NodesPath)
	assert.Equal(t, filepath.Join(opts.OutputDir, "edges.csv"), res.EdgesPath)
	assert.False(t, res.Cached)
	assert.Equal(t, 1, res.Labels)
	assert.NotZero(t, res.Nodes)
	assert.NotZero(t, res.Edges)

	nodes, err := os.ReadFile(res.NodesPath)
	require.NoError(t, err)
	assert.Equal(t, res.Nodes, strings.Count(string(nodes), "\n"))
	assert.Contains(t, string(nodes), "ORANGE")

	assert.Equal(t, filepath.Join(opts.OutputDir, "collated.json"), summary.LabelsPath)
	labels, err := os.ReadFile(summary.LabelsPath)
	require.NoError(t, err)
	assert.Contains(t, string(labels), `"cle-label": "ORANGE"`)
}

func TestRun_DirectoryMirrorsUnitPaths(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.cpp"), plainSource)
	writeFile(t, filepath.Join(root, "lib", "b.cc"), labelledSource)
	writeFile(t, filepath.Join(root, "lib", "b.h"), "struct Foo;")
	opts := testOptions(t)

	summary, err := Run(context.Background(), []string{root}, opts)
	require.NoError(t, err)
	require.Len(t, summary.Units, 2)

	assert.True(t, strings.HasSuffix(summary.Units[0].File, "/a.cpp"))
	assert.True(t, strings.HasSuffix(summary.Units[1].File, "/lib/b.cc"))
	for _, res := range summary.Units {
		assert.True(t, strings.HasPrefix(res.NodesPath, opts.OutputDir))
		assert.True(t, strings.HasSuffix(res.NodesPath, ".nodes.csv"))
		assert.FileExists(t, res.NodesPath)
		assert.FileExists(t, res.EdgesPath)
	}
	assert.NotEmpty(t, summary.LabelsPath)
}

func TestRun_NoLabelsNoLabelsFile(t *testing.T) {
	src := filepath.Join(t.TempDir(), "plain.cpp")
	writeFile(t, src, plainSource)
	opts := testOptions(t)

	summary, err := Run(context.Background(), []string{src}, opts)
	require.NoError(t, err)
	assert.Empty(t, summary.LabelsPath)
	assert.NoFileExists(t, filepath.Join(opts.OutputDir, "collated.json"))
}

func TestRun_ServesUnchangedUnitsFromCache(t *testing.T) {
	src := filepath.Join(t.TempDir(), "main.cpp")
	writeFile(t, src, labelledSource)

	store, err := cache.Open(filepath.Join(t.TempDir(), "cache"), cache.Options{})
	require.NoError(t, err)
	opts := testOptions(t)
	opts.Cache = store

	first, err := Run(context.Background(), []string{src}, opts)
	require.NoError(t, err)
	firstNodes, err := os.ReadFile(first.Units[0].NodesPath)
	require.NoError(t, err)

	second, err := Run(context.Background(), []string{src}, opts)
	require.NoError(t, err)
	assert.Equal(t, 1, second.CacheHits)
	assert.True(t, second.Units[0].Cached)
	assert.Equal(t, first.Units[0].Key, second.Units[0].Key)
	assert.Equal(t, 1, second.Units[0].Labels)

	secondNodes, err := os.ReadFile(second.Units[0].NodesPath)
	require.NoError(t, err)
	assert.Equal(t, string(firstNodes), string(secondNodes))

	writeFile(t, src, plainSource)
	third, err := Run(context.Background(), []string{src}, opts)
	require.NoError(t, err)
	assert.False(t, third.Units[0].Cached)
}

func TestRun_SQLite(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "a.cpp"), plainSource)
	writeFile(t, filepath.Join(root, "b.cpp"), labelledSource)
	opts := testOptions(t)
	opts.SQLitePath = filepath.Join(t.TempDir(), "db", "graph.db")

	summary, err := Run(context.Background(), []string{root}, opts)
	require.NoError(t, err)
	assert.Equal(t, opts.SQLitePath, summary.SQLitePath)

	db, err := export.OpenSQLite(opts.SQLitePath)
	require.NoError(t, err)
	defer db.Close()
	for _, res := range summary.Units {
		counts, err := db.Counts(context.Background(), res.File)
		require.NoError(t, err)
		assert.Equal(t, export.UnitCounts{Nodes: res.Nodes, Edges: res.Edges, Labels: res.Labels}, counts)
	}
}

func TestRun_NoUnits(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "notes.txt"), "nothing to see")

	_, err := Run(context.Background(), []string{root}, testOptions(t))
	assert.True(t, errors.Is(err, ErrNoUnits))

	_, err = Run(context.Background(), []string{filepath.Join(root, "missing")}, testOptions(t))
	assert.Error(t, err)
}

func TestBuildUnit(t *testing.T) {
	src := filepath.Join(t.TempDir(), "main.cpp")
	writeFile(t, src, plainSource)

	g, u, err := BuildUnit(context.Background(), src, nil)
	require.NoError(t, err)
	assert.Len(t, u.Decls, 2)
	assert.NotZero(t, g.NodeCount())
}

func TestOutputName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"src/a.cpp", "src/a.cpp"},
		{"./src/a.cpp", "src/a.cpp"},
		{"../up/a.cpp", "up/a.cpp"},
		{"/abs/dir/a.cpp", "abs/dir/a.cpp"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, outputName(tt.in))
		})
	}
}

func TestCollateLabels_FirstDefinitionWins(t *testing.T) {
	outputs := []built{
		{labels: []ast.Label{{Name: "A", JSON: `{"v":1}`}}},
		{labels: []ast.Label{{Name: "A", JSON: `{"v":2}`}, {Name: "B", JSON: `{}`}}},
	}
	got := collateLabels(outputs, log.Discard())
	assert.Equal(t, []ast.Label{{Name: "A", JSON: `{"v":1}`}, {Name: "B", JSON: `{}`}}, got)
}
