package storage

import (
	"context"
	"database/sql"
	"strconv"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"jresolve/internal/diag"
	"jresolve/internal/graph"
)

type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore creates or opens a SQLite database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on")
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "open %s", path)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "failed to init schema")
	}

	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started INTEGER,
			root TEXT,
			units INTEGER,
			digest TEXT,
			types INTEGER,
			diagnostics INTEGER
		);`,
		`CREATE TABLE IF NOT EXISTS types (
			run_id TEXT REFERENCES runs(id) ON DELETE CASCADE,
			id TEXT,
			name TEXT,
			package TEXT,
			kind TEXT,
			modifiers TEXT,
			stage TEXT,
			filepath TEXT,
			line INTEGER,
			external INTEGER,
			PRIMARY KEY (run_id, id)
		);`,
		`CREATE TABLE IF NOT EXISTS edges (
			run_id TEXT REFERENCES runs(id) ON DELETE CASCADE,
			from_id TEXT,
			to_id TEXT,
			kind TEXT,
			PRIMARY KEY (run_id, from_id, to_id, kind)
		);`,
		`CREATE TABLE IF NOT EXISTS diagnostics (
			run_id TEXT REFERENCES runs(id) ON DELETE CASCADE,
			seq INTEGER,
			file TEXT,
			line INTEGER,
			col INTEGER,
			category TEXT,
			message TEXT,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE TABLE IF NOT EXISTS unresolved (
			run_id TEXT REFERENCES runs(id) ON DELETE CASCADE,
			seq INTEGER,
			symbol TEXT,
			reason TEXT,
			detail TEXT,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_types_file ON types(run_id, filepath);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteStore) SaveRun(ctx context.Context, run *Run, g *graph.Graph, diags []diag.Diagnostic) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Started.IsZero() {
		run.Started = time.Now()
	}
	if g == nil {
		g = graph.NewGraph()
	}
	run.Types = 0
	for _, n := range g.Nodes {
		if !n.Symbol.External {
			run.Types++
		}
	}
	run.Diagnostics = len(diags)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, started, root, units, digest, types, diagnostics)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Started.UnixNano(), run.Root, run.Units, formatDigest(run.Digest), run.Types, run.Diagnostics); err != nil {
		return errors.Wrapf(err, "insert run %s", run.ID)
	}

	// 1. Save Types
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO types (run_id, id, name, package, kind, modifiers, stage, filepath, line, external)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, node := range g.Nodes {
		sym := node.Symbol
		if _, err := stmt.ExecContext(ctx, run.ID, sym.ID, sym.Name, sym.Package, sym.Kind, sym.Modifiers, sym.Stage, sym.Filepath, sym.Line, sym.External); err != nil {
			return errors.Wrapf(err, "insert type %s", sym.ID)
		}
	}

	// 2. Save Edges
	edgeStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO edges (run_id, from_id, to_id, kind) VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id, from_id, to_id, kind) DO NOTHING
	`)
	if err != nil {
		return err
	}
	defer edgeStmt.Close()

	for _, edge := range g.Edges {
		if _, err := edgeStmt.ExecContext(ctx, run.ID, edge.From, edge.To, string(edge.Kind)); err != nil {
			return errors.Wrapf(err, "insert edge %s -> %s", edge.From, edge.To)
		}
	}

	// 3. Save Diagnostics
	diagStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO diagnostics (run_id, seq, file, line, col, category, message) VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer diagStmt.Close()

	for i, d := range diags {
		if _, err := diagStmt.ExecContext(ctx, run.ID, i, d.Pos.File, d.Pos.Line, d.Pos.Column, string(d.Category), d.Message); err != nil {
			return errors.Wrap(err, "insert diagnostic")
		}
	}

	unresolvedStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO unresolved (run_id, seq, symbol, reason, detail) VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer unresolvedStmt.Close()

	for i, u := range g.Unresolved {
		if _, err := unresolvedStmt.ExecContext(ctx, run.ID, i, u.Symbol, string(u.Reason), u.Detail); err != nil {
			return errors.Wrap(err, "insert unresolved")
		}
	}

	return errors.Wrap(tx.Commit(), "commit")
}

func (s *SQLiteStore) LatestRun(ctx context.Context) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, started, root, units, digest, types, diagnostics
		FROM runs ORDER BY started DESC, rowid DESC LIMIT 1
	`)
	return scanRun(row)
}

// GetRun retrieves a run by its ID.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, started, root, units, digest, types, diagnostics FROM runs WHERE id = ?
	`, id)
	return scanRun(row)
}

func scanRun(row *sql.Row) (*Run, error) {
	var r Run
	var started int64
	var digest string
	if err := row.Scan(&r.ID, &started, &r.Root, &r.Units, &digest, &r.Types, &r.Diagnostics); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "failed to scan run")
	}
	r.Started = time.Unix(0, started)
	d, err := strconv.ParseUint(digest, 16, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "run %s digest", r.ID)
	}
	r.Digest = d
	return &r, nil
}

const typeColumns = "id, name, package, kind, modifiers, stage, filepath, line, external"

func (s *SQLiteStore) LoadTypes(ctx context.Context, runID string) ([]*graph.Symbol, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+typeColumns+" FROM types WHERE run_id = ? ORDER BY name", runID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query types")
	}
	return scanTypes(rows)
}

func (s *SQLiteStore) FindTypesByFile(ctx context.Context, runID, filepath string) ([]*graph.Symbol, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+typeColumns+" FROM types WHERE run_id = ? AND filepath = ? ORDER BY line, name", runID, filepath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query types")
	}
	return scanTypes(rows)
}

func scanTypes(rows *sql.Rows) ([]*graph.Symbol, error) {
	defer rows.Close()
	var out []*graph.Symbol
	for rows.Next() {
		var sym graph.Symbol
		if err := rows.Scan(&sym.ID, &sym.Name, &sym.Package, &sym.Kind, &sym.Modifiers, &sym.Stage, &sym.Filepath, &sym.Line, &sym.External); err != nil {
			return nil, errors.Wrap(err, "failed to scan type")
		}
		out = append(out, &sym)
	}
	return out, errors.WithStack(rows.Err())
}

func (s *SQLiteStore) LoadEdges(ctx context.Context, runID string) ([]graph.Edge, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT from_id, to_id, kind FROM edges WHERE run_id = ? ORDER BY rowid", runID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query edges")
	}
	defer rows.Close()

	var edges []graph.Edge
	for rows.Next() {
		var edge graph.Edge
		var kind string
		if err := rows.Scan(&edge.From, &edge.To, &kind); err != nil {
			return nil, errors.Wrap(err, "failed to scan edge")
		}
		edge.Kind = graph.RelationKind(kind)
		edges = append(edges, edge)
	}
	return edges, errors.WithStack(rows.Err())
}

func (s *SQLiteStore) LoadDiagnostics(ctx context.Context, runID string) ([]diag.Diagnostic, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT file, line, col, category, message FROM diagnostics WHERE run_id = ? ORDER BY seq", runID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query diagnostics")
	}
	defer rows.Close()

	var out []diag.Diagnostic
	for rows.Next() {
		var d diag.Diagnostic
		var cat string
		if err := rows.Scan(&d.Pos.File, &d.Pos.Line, &d.Pos.Column, &cat, &d.Message); err != nil {
			return nil, errors.Wrap(err, "failed to scan diagnostic")
		}
		d.Category = diag.Category(cat)
		out = append(out, d)
	}
	return out, errors.WithStack(rows.Err())
}

func (s *SQLiteStore) LoadGraph(ctx context.Context, runID string) (*graph.Graph, error) {
	g := graph.NewGraph()

	// 1. Load Nodes
	types, err := s.LoadTypes(ctx, runID)
	if err != nil {
		return nil, err
	}
	for _, sym := range types {
		g.Nodes[sym.ID] = &graph.Node{Symbol: sym}
	}

	// 2. Load Edges
	if g.Edges, err = s.LoadEdges(ctx, runID); err != nil {
		return nil, err
	}
	if g.Edges == nil {
		g.Edges = []graph.Edge{}
	}

	// Rebuild name index for lookups
	g.RebuildIndices()

	rows, err := s.db.QueryContext(ctx, "SELECT symbol, reason, detail FROM unresolved WHERE run_id = ? ORDER BY seq", runID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query unresolved")
	}
	defer rows.Close()
	for rows.Next() {
		var u graph.Unresolved
		var reason string
		if err := rows.Scan(&u.Symbol, &reason, &u.Detail); err != nil {
			return nil, errors.Wrap(err, "failed to scan unresolved")
		}
		u.Reason = graph.UnresolvedReason(reason)
		g.Unresolved = append(g.Unresolved, u)
	}
	return g, errors.WithStack(rows.Err())
}

// PruneRuns deletes all but the newest keep runs.
func (s *SQLiteStore) PruneRuns(ctx context.Context, keep int) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM runs WHERE id NOT IN (
			SELECT id FROM runs ORDER BY started DESC, rowid DESC LIMIT ?
		)
	`, keep)
	if err != nil {
		return 0, errors.Wrap(err, "prune runs")
	}
	return res.RowsAffected()
}

func formatDigest(d uint64) string {
	return strconv.FormatUint(d, 16)
}
