// Package pipeline builds the program graphs of many translation units and
// writes their tables. Units are independent: each worker owns its parser
// and graph builder.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/l3aro/pgraph/internal/log"
	"github.com/l3aro/pgraph/internal/scanner"
	"github.com/l3aro/pgraph/pkg/ast"
	"github.com/l3aro/pgraph/pkg/cache"
	"github.com/l3aro/pgraph/pkg/export"
	"github.com/l3aro/pgraph/pkg/frontend"
	"github.com/l3aro/pgraph/pkg/pgraph"
)

// ErrNoUnits is returned when the inputs contain no translation unit.
var ErrNoUnits = errors.New("no translation units found")

// Options configures a Run.
type Options struct {
	OutputDir string
	// NodesFile and EdgesFile name the tables when exactly one unit is built.
	NodesFile  string
	EdgesFile  string
	LabelsFile string
	Table      export.TableOptions

	// SQLitePath additionally stores every unit in one database when set.
	SQLitePath string

	// Cache serves tables of unchanged units. Nil disables caching.
	Cache *cache.Store

	Workers int
	Scanner scanner.Options
	Logger  log.Logger

	// Progress, when set, is called after each unit from the worker that
	// finished it.
	Progress func(done, total int)
}

// UnitResult describes one built unit.
type UnitResult struct {
	File      string        `json:"file"`
	Key       string        `json:"key"`
	Cached    bool          `json:"cached"`
	Nodes     int           `json:"nodes"`
	Edges     int           `json:"edges"`
	Labels    int           `json:"labels"`
	NodesPath string        `json:"nodes_path"`
	EdgesPath string        `json:"edges_path"`
	Duration  time.Duration `json:"duration_ns"`
}

// Summary is the outcome of a Run.
type Summary struct {
	Units      []UnitResult  `json:"units"`
	LabelsPath string        `json:"labels_path,omitempty"`
	SQLitePath string        `json:"sqlite_path,omitempty"`
	CacheHits  int           `json:"cache_hits"`
	Duration   time.Duration `json:"duration_ns"`
}

type unit struct {
	file     string // path as shown in tables and output names
	fullPath string
}

type built struct {
	tables pgraph.Tables
	labels []ast.Label
}

// Run scans inputs, builds every unit found and writes the outputs.
func Run(ctx context.Context, inputs []string, opts Options) (*Summary, error) {
	start := time.Now()
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}

	units, err := discover(ctx, inputs, opts.Scanner)
	if err != nil {
		return nil, err
	}
	if len(units) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoUnits, strings.Join(inputs, ", "))
	}
	logger.Info("building units", "count", len(units), "workers", opts.Workers)

	single := len(units) == 1
	results := make([]UnitResult, len(units))
	outputs := make([]built, len(units))
	var hits, done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	if opts.Workers > 0 {
		g.SetLimit(opts.Workers)
	}
	for i, u := range units {
		g.Go(func() error {
			unitStart := time.Now()
			res, out, err := buildUnit(gctx, u, opts, logger)
			if err != nil {
				return fmt.Errorf("building %s: %w", u.file, err)
			}
			if res.Cached {
				hits.Add(1)
			}

			res.NodesPath, res.EdgesPath = outputPaths(opts, u.file, single)
			if err := export.WriteTableFiles(res.NodesPath, res.EdgesPath, out.tables, opts.Table); err != nil {
				return fmt.Errorf("writing tables of %s: %w", u.file, err)
			}
			res.Duration = time.Since(unitStart)
			logger.Debug("unit done", "file", u.file, "nodes", res.Nodes, "edges", res.Edges,
				"cached", res.Cached, "duration", res.Duration)

			results[i] = res
			outputs[i] = out
			if opts.Progress != nil {
				opts.Progress(int(done.Add(1)), len(units))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary := &Summary{Units: results, CacheHits: int(hits.Load())}

	if labels := collateLabels(outputs, logger); len(labels) > 0 {
		summary.LabelsPath = filepath.Join(opts.OutputDir, opts.LabelsFile)
		if err := export.WriteLabelsFile(summary.LabelsPath, labels); err != nil {
			return nil, fmt.Errorf("writing labels: %w", err)
		}
	}

	if opts.SQLitePath != "" {
		if err := writeSQLite(ctx, opts.SQLitePath, results, outputs); err != nil {
			return nil, err
		}
		summary.SQLitePath = opts.SQLitePath
	}

	summary.Duration = time.Since(start)
	logger.Info("build complete", "units", len(results), "cache_hits", summary.CacheHits,
		"duration", summary.Duration)
	return summary, nil
}

// BuildUnit parses and builds a single file without touching the cache or
// the output directory.
func BuildUnit(ctx context.Context, path string, logger log.Logger) (*pgraph.Graph, *ast.Unit, error) {
	if logger == nil {
		logger = log.Discard()
	}
	parser := frontend.NewParser(frontend.WithLogger(logger))
	defer parser.Close()

	u, err := parser.ParseFile(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	g := pgraph.NewBuilder(pgraph.WithLogger(logger)).AddUnit(u)
	return g, u, nil
}

func buildUnit(ctx context.Context, u unit, opts Options, logger log.Logger) (UnitResult, built, error) {
	content, err := os.ReadFile(u.fullPath)
	if err != nil {
		return UnitResult{}, built{}, fmt.Errorf("reading %s: %w", u.fullPath, err)
	}
	key := cache.Key(u.file, content)
	res := UnitResult{File: u.file, Key: key}

	if opts.Cache != nil {
		entry, err := opts.Cache.Get(key)
		switch {
		case err == nil:
			res.Cached = true
			res.Nodes, res.Edges, res.Labels = len(entry.Tables.Nodes), len(entry.Tables.Edges), len(entry.Labels)
			return res, built{tables: entry.Tables, labels: entry.Labels}, nil
		case !errors.Is(err, cache.ErrKeyNotFound):
			logger.Warn("ignoring unreadable cache entry", "file", u.file, "error", err)
		}
	}

	parser := frontend.NewParser(frontend.WithLogger(logger))
	defer parser.Close()

	parsed, err := parser.Parse(ctx, u.file, content)
	if err != nil {
		return UnitResult{}, built{}, err
	}
	g := pgraph.NewBuilder(pgraph.WithLogger(logger)).AddUnit(parsed)
	tables := pgraph.Export(g)

	if opts.Cache != nil {
		if err := opts.Cache.Put(&cache.Entry{Key: key, File: u.file, Tables: tables, Labels: parsed.Labels}); err != nil {
			logger.Warn("failed to cache tables", "file", u.file, "error", err)
		}
	}

	res.Nodes, res.Edges, res.Labels = len(tables.Nodes), len(tables.Edges), len(parsed.Labels)
	return res, built{tables: tables, labels: parsed.Labels}, nil
}

// discover expands inputs into units, dropping duplicates.
func discover(ctx context.Context, inputs []string, opts scanner.Options) ([]unit, error) {
	s := scanner.New(opts)
	seen := make(map[string]bool)
	var units []unit
	for _, in := range inputs {
		info, err := os.Stat(in)
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", in, err)
		}
		files, err := s.Scan(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("scanning %s: %w", in, err)
		}
		for _, f := range files {
			if seen[f.FullPath] {
				continue
			}
			seen[f.FullPath] = true
			name := in
			if info.IsDir() {
				name = filepath.Join(in, filepath.FromSlash(f.Path))
			}
			units = append(units, unit{file: filepath.ToSlash(filepath.Clean(name)), fullPath: f.FullPath})
		}
	}
	return units, nil
}

// outputPaths names the table files of a unit. A single unit uses the
// configured names; otherwise tables mirror the unit's path below the
// output directory.
func outputPaths(opts Options, file string, single bool) (string, string) {
	if single {
		return filepath.Join(opts.OutputDir, opts.NodesFile), filepath.Join(opts.OutputDir, opts.EdgesFile)
	}
	base := filepath.Join(opts.OutputDir, filepath.FromSlash(outputName(file)))
	return base + ".nodes.csv", base + ".edges.csv"
}

// outputName strips the parts of a unit path that would escape the output
// directory.
func outputName(file string) string {
	file = filepath.ToSlash(filepath.Clean(file))
	if vol := filepath.VolumeName(file); vol != "" {
		file = strings.TrimPrefix(file, vol)
	}
	var parts []string
	for _, p := range strings.Split(file, "/") {
		if p == "" || p == "." || p == ".." {
			continue
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, "/")
}

// collateLabels merges the label definitions of every unit. The first
// definition of a name wins.
func collateLabels(outputs []built, logger log.Logger) []ast.Label {
	seen := make(map[string]string)
	var labels []ast.Label
	for _, out := range outputs {
		for _, l := range out.labels {
			if prev, ok := seen[l.Name]; ok {
				if prev != l.JSON {
					logger.Warn("conflicting label definition ignored", "label", l.Name)
				}
				continue
			}
			seen[l.Name] = l.JSON
			labels = append(labels, l)
		}
	}
	return labels
}

func writeSQLite(ctx context.Context, path string, results []UnitResult, outputs []built) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	db, err := export.OpenSQLite(path)
	if err != nil {
		return err
	}
	defer db.Close()

	for i, res := range results {
		if err := db.WriteUnit(ctx, res.File, res.Key, outputs[i].tables, outputs[i].labels); err != nil {
			return fmt.Errorf("storing %s: %w", res.File, err)
		}
	}
	return nil
}
