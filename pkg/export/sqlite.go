package export

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/l3aro/pgraph/pkg/ast"
	"github.com/l3aro/pgraph/pkg/pgraph"
)

// DB is a SQLite database holding the tables of many units.
type DB struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS units (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	file TEXT NOT NULL UNIQUE,
	content_key TEXT NOT NULL,
	built_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS nodes (
	unit_id INTEGER NOT NULL REFERENCES units(id) ON DELETE CASCADE,
	id INTEGER NOT NULL,
	kind TEXT NOT NULL,
	name TEXT NOT NULL,
	annotation TEXT,
	parent_decl INTEGER,
	parent_class INTEGER,
	parent_function INTEGER,
	ordinal INTEGER,
	file TEXT NOT NULL,
	start_offset INTEGER NOT NULL,
	end_offset INTEGER NOT NULL,
	PRIMARY KEY (unit_id, id)
);

CREATE TABLE IF NOT EXISTS edges (
	unit_id INTEGER NOT NULL REFERENCES units(id) ON DELETE CASCADE,
	id INTEGER NOT NULL,
	kind TEXT NOT NULL,
	src INTEGER NOT NULL,
	dst INTEGER NOT NULL,
	PRIMARY KEY (unit_id, id)
);

CREATE TABLE IF NOT EXISTS labels (
	unit_id INTEGER NOT NULL REFERENCES units(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	definition TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_nodes_kind ON nodes(unit_id, kind);
CREATE INDEX IF NOT EXISTS idx_edges_src ON edges(unit_id, src);
CREATE INDEX IF NOT EXISTS idx_edges_dst ON edges(unit_id, dst);
`

// OpenSQLite opens or creates the database at path.
func OpenSQLite(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &DB{db: db, path: path}, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// WriteUnit replaces the rows of file with the given tables and labels in
// one transaction.
func (d *DB) WriteUnit(ctx context.Context, file, key string, t pgraph.Tables, labels []ast.Label) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := writeUnit(ctx, tx, file, key, t, labels); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func writeUnit(ctx context.Context, tx *sql.Tx, file, key string, t pgraph.Tables, labels []ast.Label) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM units WHERE file=?`, file); err != nil {
		return fmt.Errorf("delete unit: %w", err)
	}
	res, err := tx.ExecContext(ctx, `INSERT INTO units (file, content_key, built_at) VALUES (?, ?, ?)`,
		file, key, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("insert unit: %w", err)
	}
	unitID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("unit id: %w", err)
	}

	nodeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO nodes (unit_id, id, kind, name, annotation, parent_decl, parent_class,
			parent_function, ordinal, file, start_offset, end_offset)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare nodes: %w", err)
	}
	defer nodeStmt.Close()
	for _, n := range t.Nodes {
		if _, err := nodeStmt.ExecContext(ctx, unitID, n.ID, n.Kind, n.Name, nullString(n.Annotation),
			nullInt(n.ParentDecl), nullInt(n.ParentClass), nullInt(n.ParentFunction), nullInt(n.Ordinal),
			n.File, n.Start, n.End); err != nil {
			return fmt.Errorf("insert node %d: %w", n.ID, err)
		}
	}

	edgeStmt, err := tx.PrepareContext(ctx, `INSERT INTO edges (unit_id, id, kind, src, dst) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare edges: %w", err)
	}
	defer edgeStmt.Close()
	for _, e := range t.Edges {
		if _, err := edgeStmt.ExecContext(ctx, unitID, e.ID, e.Kind, e.Src, e.Dst); err != nil {
			return fmt.Errorf("insert edge %d: %w", e.ID, err)
		}
	}

	for _, l := range labels {
		if _, err := tx.ExecContext(ctx, `INSERT INTO labels (unit_id, name, definition) VALUES (?, ?, ?)`,
			unitID, l.Name, l.JSON); err != nil {
			return fmt.Errorf("insert label %s: %w", l.Name, err)
		}
	}
	return nil
}

// UnitCounts reports the stored rows of one unit.
type UnitCounts struct {
	Nodes  int
	Edges  int
	Labels int
}

// Counts returns the row counts stored for file.
func (d *DB) Counts(ctx context.Context, file string) (UnitCounts, error) {
	var c UnitCounts
	err := d.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM nodes WHERE unit_id=u.id),
			(SELECT COUNT(*) FROM edges WHERE unit_id=u.id),
			(SELECT COUNT(*) FROM labels WHERE unit_id=u.id)
		FROM units u WHERE u.file=?`, file).Scan(&c.Nodes, &c.Edges, &c.Labels)
	if err != nil {
		return c, fmt.Errorf("count unit %s: %w", file, err)
	}
	return c, nil
}

func nullInt(v int) sql.NullInt64 {
	return sql.NullInt64{Int64: int64(v), Valid: v != 0}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
