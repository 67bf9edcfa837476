package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/san-kum/pinnlab/internal/train"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	preset TEXT NOT NULL,
	seed INTEGER NOT NULL,
	iterations INTEGER NOT NULL,
	physics_weight REAL NOT NULL,
	plain_mae REAL,
	pinn_mae REAL,
	ratio REAL,
	created_at INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS loss_history (
	run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
	model TEXT NOT NULL,
	iteration INTEGER NOT NULL,
	total REAL,
	data REAL,
	physics REAL,
	PRIMARY KEY (run_id, model, iteration)
);
`

// Catalog indexes runs and their loss curves in SQLite.
type Catalog struct {
	sqlDB *sql.DB
}

// CatalogEntry is one row of the runs table.
type CatalogEntry struct {
	ID            string
	Preset        string
	Seed          int64
	Iterations    int
	PhysicsWeight float64
	PlainMAE      float64
	PINNMAE       float64
	Ratio         float64
	CreatedAt     time.Time
}

func OpenCatalog(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("catalog path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Catalog{sqlDB: sqlDB}, nil
}

func (c *Catalog) Close() error {
	if c == nil || c.sqlDB == nil {
		return nil
	}
	return c.sqlDB.Close()
}

// Record writes the catalog row of a run and the loss curves of both models
// in one transaction. Non-finite losses are stored as NULL.
func (c *Catalog) Record(ctx context.Context, meta RunMetadata, history map[train.Kind][]train.Loss) error {
	tx, err := c.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := recordRun(ctx, tx, meta); err != nil {
		return err
	}
	for _, kind := range []train.Kind{train.Plain, train.Physics} {
		if err := recordHistory(ctx, tx, meta.ID, kind, history[kind]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func recordRun(ctx context.Context, tx *sql.Tx, meta RunMetadata) error {
	_, err := tx.ExecContext(ctx, `
INSERT OR REPLACE INTO runs (
	id, preset, seed, iterations, physics_weight, plain_mae, pinn_mae, ratio, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		meta.ID,
		meta.Preset,
		meta.Seed,
		meta.Train.Iterations,
		meta.Train.PhysicsWeight,
		nullable(meta.Metrics, "plain_mae_held_out"),
		nullable(meta.Metrics, "pinn_mae_held_out"),
		nullable(meta.Metrics, "held_out_ratio"),
		meta.Timestamp.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

func nullable(m map[string]float64, key string) sql.NullFloat64 {
	v, ok := m[key]
	if !ok {
		return sql.NullFloat64{}
	}
	return nullFloat(v)
}

// nullFloat maps NaN and infinities to NULL; SQLite has no representation
// for them.
func nullFloat(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: !math.IsNaN(v) && !math.IsInf(v, 0)}
}

func recordHistory(ctx context.Context, tx *sql.Tx, runID string, kind train.Kind, losses []train.Loss) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM loss_history WHERE run_id = ? AND model = ?`, runID, string(kind)); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO loss_history (run_id, model, iteration, total, data, physics) VALUES (?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return fmt.Errorf("prepare history: %w", err)
	}
	defer stmt.Close()

	for _, l := range losses {
		if _, err := stmt.ExecContext(ctx, runID, string(kind), l.Iter, nullFloat(l.Total), nullFloat(l.Data), nullFloat(l.Physics)); err != nil {
			return fmt.Errorf("record history: %w", err)
		}
	}
	return nil
}

// History returns the loss curve of one model in iteration order.
func (c *Catalog) History(ctx context.Context, runID string, kind train.Kind) ([]train.Loss, error) {
	rows, err := c.sqlDB.QueryContext(ctx, `
SELECT iteration, total, data, physics FROM loss_history
WHERE run_id = ? AND model = ?
ORDER BY iteration
`, runID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	losses := make([]train.Loss, 0)
	for rows.Next() {
		var (
			l                    train.Loss
			total, data, physics sql.NullFloat64
		)
		if err := rows.Scan(&l.Iter, &total, &data, &physics); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		l.Total, l.Data, l.Physics = orNaN(total), orNaN(data), orNaN(physics)
		losses = append(losses, l)
	}
	return losses, rows.Err()
}

func orNaN(v sql.NullFloat64) float64 {
	if !v.Valid {
		return math.NaN()
	}
	return v.Float64
}

// Runs lists catalog rows newest first. limit <= 0 returns every row.
func (c *Catalog) Runs(ctx context.Context, limit int) ([]CatalogEntry, error) {
	query := `
SELECT id, preset, seed, iterations, physics_weight, plain_mae, pinn_mae, ratio, created_at
FROM runs ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := c.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	entries := make([]CatalogEntry, 0)
	for rows.Next() {
		var (
			e                  CatalogEntry
			plain, pinn, ratio sql.NullFloat64
			createdAt          int64
		)
		if err := rows.Scan(&e.ID, &e.Preset, &e.Seed, &e.Iterations, &e.PhysicsWeight, &plain, &pinn, &ratio, &createdAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		e.PlainMAE, e.PINNMAE, e.Ratio = plain.Float64, pinn.Float64, ratio.Float64
		e.CreatedAt = time.UnixMilli(createdAt)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
