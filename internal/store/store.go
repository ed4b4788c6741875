// Package store indexes extracted claims in a SQLite database so runs can be
// queried by document, metric or specification key.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure-Go driver registered as "sqlite"

	"github.com/ppiankov/tabclaim/internal/claimtext"
	"github.com/ppiankov/tabclaim/internal/model"
)

// timeLayout is fixed-width so timestamps sort as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrNoRuns is returned by queries against an empty index
var ErrNoRuns = errors.New("no runs recorded")

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	started_at  TEXT NOT NULL,
	finished_at TEXT,
	output_dir  TEXT NOT NULL,
	documents   INTEGER NOT NULL DEFAULT 0,
	processed   INTEGER NOT NULL DEFAULT 0,
	skipped     INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	claims      INTEGER NOT NULL DEFAULT 0
);
CREATE TABLE IF NOT EXISTS artifacts (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	document_id TEXT NOT NULL,
	position    INTEGER NOT NULL,
	table_key   TEXT NOT NULL,
	layout      INTEGER NOT NULL,
	name        TEXT NOT NULL,
	digest      TEXT NOT NULL,
	claims      INTEGER NOT NULL,
	PRIMARY KEY (run_id, document_id, position)
);
CREATE TABLE IF NOT EXISTS claims (
	run_id      TEXT NOT NULL,
	document_id TEXT NOT NULL,
	position    INTEGER NOT NULL,
	ordinal     INTEGER NOT NULL,
	text        TEXT NOT NULL,
	metric      TEXT NOT NULL,
	outcome     TEXT NOT NULL,
	PRIMARY KEY (run_id, document_id, position, ordinal)
);
CREATE TABLE IF NOT EXISTS claim_pairs (
	run_id      TEXT NOT NULL,
	document_id TEXT NOT NULL,
	position    INTEGER NOT NULL,
	ordinal     INTEGER NOT NULL,
	pair_index  INTEGER NOT NULL,
	key         TEXT NOT NULL,
	value       TEXT NOT NULL,
	PRIMARY KEY (run_id, document_id, position, ordinal, pair_index)
);
CREATE INDEX IF NOT EXISTS idx_claims_metric ON claims(metric);
CREATE INDEX IF NOT EXISTS idx_claim_pairs_key ON claim_pairs(key);
`

// Store is a claim index backed by SQLite. Writes are serialized through a
// single connection, so one Store can be shared by all workers of a run.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the index at path
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000", "PRAGMA foreign_keys=ON"} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate store: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginRun records the start of a run
func (s *Store) BeginRun(ctx context.Context, runID string, startedAt time.Time, outputDir string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, output_dir) VALUES (?, ?, ?)`,
		runID, startedAt.UTC().Format(timeLayout), outputDir)
	if err != nil {
		return fmt.Errorf("begin run %s: %w", runID, err)
	}
	return nil
}

// RecordTable stores one processed table and its claims atomically
func (s *Store) RecordTable(ctx context.Context, runID, documentID string, table model.TableResult, claims []model.Claim) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT INTO artifacts (run_id, document_id, position, table_key, layout, name, digest, claims)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, documentID, table.Position, table.Key, int(table.Layout), table.Artifact, table.Digest, len(claims)); err != nil {
		return fmt.Errorf("insert artifact: %w", err)
	}

	for i, c := range claims {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO claims (run_id, document_id, position, ordinal, text, metric, outcome)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			runID, documentID, table.Position, i, claimtext.Render(c), c.Metric(), c.Outcome()); err != nil {
			return fmt.Errorf("insert claim %d: %w", i, err)
		}

		for j, pair := range c.Specification().Pairs() {
			if _, err = tx.ExecContext(ctx,
				`INSERT INTO claim_pairs (run_id, document_id, position, ordinal, pair_index, key, value)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				runID, documentID, table.Position, i, j, pair.Key, pair.Value); err != nil {
				return fmt.Errorf("insert pair %d of claim %d: %w", j, i, err)
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// FinishRun stores the final totals of a run
func (s *Store) FinishRun(ctx context.Context, report *model.RunReport) error {
	t := report.Totals
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, documents = ?, processed = ?, skipped = ?, failed = ?, claims = ?
		 WHERE id = ?`,
		report.FinishedAt.UTC().Format(timeLayout), t.Documents, t.Processed, t.Skipped, t.Failed, t.Claims,
		report.RunID)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", report.RunID, err)
	}
	return nil
}

// LatestRun returns the ID of the most recently started run
func (s *Store) LatestRun(ctx context.Context) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM runs ORDER BY started_at DESC, rowid DESC LIMIT 1`).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNoRuns
	}
	if err != nil {
		return "", fmt.Errorf("latest run: %w", err)
	}
	return id, nil
}

// Query selects claims. Empty fields do not filter.
type Query struct {
	RunID      string // Defaults to the latest run
	DocumentID string
	Metric     string // Exact, case-insensitive
	SpecKey    string // Claims whose specification has this key
	SpecValue  string // With SpecKey: the key must have this value
	Limit      int
}

// ClaimRow is one indexed claim
type ClaimRow struct {
	RunID      string
	DocumentID string
	Position   int
	TableKey   string
	Layout     model.LayoutType
	Ordinal    int
	Text       string
	Metric     string
	Outcome    string
}

// Query returns matching claims in document, position and emission order
func (s *Store) Query(ctx context.Context, q Query) ([]ClaimRow, error) {
	runID := q.RunID
	if runID == "" {
		latest, err := s.LatestRun(ctx)
		if err != nil {
			return nil, err
		}
		runID = latest
	}

	var (
		where = []string{"c.run_id = ?"}
		args  = []interface{}{runID}
	)
	if q.DocumentID != "" {
		where = append(where, "c.document_id = ?")
		args = append(args, q.DocumentID)
	}
	if q.Metric != "" {
		where = append(where, "c.metric = ? COLLATE NOCASE")
		args = append(args, q.Metric)
	}
	if q.SpecKey != "" {
		cond := `EXISTS (SELECT 1 FROM claim_pairs p
			WHERE p.run_id = c.run_id AND p.document_id = c.document_id
			AND p.position = c.position AND p.ordinal = c.ordinal AND p.key = ?`
		args = append(args, q.SpecKey)
		if q.SpecValue != "" {
			cond += " AND p.value = ?"
			args = append(args, q.SpecValue)
		}
		where = append(where, cond+")")
	}

	query := `SELECT c.run_id, c.document_id, c.position, a.table_key, a.layout, c.ordinal, c.text, c.metric, c.outcome
		FROM claims c
		JOIN artifacts a ON a.run_id = c.run_id AND a.document_id = c.document_id AND a.position = c.position
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY c.document_id, c.position, c.ordinal`
	if q.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query claims: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []ClaimRow
	for rows.Next() {
		var (
			row    ClaimRow
			layout int
		)
		if err := rows.Scan(&row.RunID, &row.DocumentID, &row.Position, &row.TableKey, &layout,
			&row.Ordinal, &row.Text, &row.Metric, &row.Outcome); err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		row.Layout = model.LayoutType(layout)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate claims: %w", err)
	}
	return out, nil
}

// Claim reconstructs the structured claim from its canonical text
func (r ClaimRow) Claim() (model.Claim, error) {
	return claimtext.Parse(r.Text, r.Layout)
}
