// Package storage provides SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/hyoka/internal/metrics"
	"github.com/hyperjump/hyoka/internal/models"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist. ":memory:" opens a private
// in-memory database.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	memory := dbPath == ":memory:"
	if dir := filepath.Dir(dbPath); !memory && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if memory {
		// Every new connection to :memory: would see an empty database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		mode TEXT NOT NULL,
		k INTEGER NOT NULL,
		mean_ndcg REAL NOT NULL,
		search_took_ns INTEGER NOT NULL,
		queries INTEGER NOT NULL,
		documents INTEGER NOT NULL,
		failed INTEGER NOT NULL DEFAULT 0,
		params TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);

	CREATE TABLE IF NOT EXISTS query_outcomes (
		run_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		query_id TEXT NOT NULL,
		took_ns INTEGER NOT NULL,
		latency_ns INTEGER NOT NULL,
		hits INTEGER NOT NULL,
		error TEXT,
		PRIMARY KEY (run_id, position),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS query_scores (
		run_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		query_id TEXT NOT NULL,
		candidates INTEGER NOT NULL,
		ndcg REAL NOT NULL,
		PRIMARY KEY (run_id, position),
		FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
	);
	`
	_, err := db.Exec(schema)
	return err
}

// CreateRun inserts a run. An empty ID is replaced by a new UUID; CreatedAt is set to now.
func (s *SQLiteStorage) CreateRun(ctx context.Context, run *models.Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	paramsJSON, err := json.Marshal(run.Params)
	if err != nil {
		return fmt.Errorf("failed to marshal params: %w", err)
	}
	run.CreatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, name, mode, k, mean_ndcg, search_took_ns, queries, documents, failed, params, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Name, run.Mode, run.K, run.MeanNDCG, int64(run.SearchTook),
		run.Queries, run.Documents, run.Failed, string(paramsJSON), run.CreatedAt,
	)
	return err
}

const runColumns = `id, name, mode, k, mean_ndcg, search_took_ns, queries, documents, failed, params, created_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*models.Run, error) {
	var run models.Run
	var took int64
	var paramsJSON sql.NullString
	if err := row.Scan(&run.ID, &run.Name, &run.Mode, &run.K, &run.MeanNDCG, &took,
		&run.Queries, &run.Documents, &run.Failed, &paramsJSON, &run.CreatedAt); err != nil {
		return nil, err
	}
	run.SearchTook = time.Duration(took)
	if paramsJSON.Valid && paramsJSON.String != "" && paramsJSON.String != "null" {
		if err := json.Unmarshal([]byte(paramsJSON.String), &run.Params); err != nil {
			return nil, fmt.Errorf("failed to unmarshal params: %w", err)
		}
	}
	return &run, nil
}

// GetRun returns a run by ID.
func (s *SQLiteStorage) GetRun(ctx context.Context, id string) (*models.Run, error) {
	run, err := scanRun(s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns runs newest first with offset and limit.
func (s *SQLiteStorage) ListRuns(ctx context.Context, offset, limit int) ([]*models.Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// DeleteRun removes a run and its per-query rows.
func (s *SQLiteStorage) DeleteRun(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM query_outcomes WHERE run_id = ?`,
		`DELETE FROM query_scores WHERE run_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return err
		}
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return tx.Commit()
}

// BatchCreateOutcomes inserts the outcomes of a run in a transaction.
func (s *SQLiteStorage) BatchCreateOutcomes(ctx context.Context, runID string, outcomes []models.QueryOutcome) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO query_outcomes (run_id, position, query_id, took_ns, latency_ns, hits, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, o := range outcomes {
		var errText sql.NullString
		if o.Err != nil {
			errText = sql.NullString{String: o.Err.Error(), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, runID, i, o.QueryID, int64(o.Took), int64(o.Latency), o.Hits, errText); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetOutcomes returns a run's outcomes in insertion order. Stored errors come back as plain errors.
func (s *SQLiteStorage) GetOutcomes(ctx context.Context, runID string) ([]models.QueryOutcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT query_id, took_ns, latency_ns, hits, error
		 FROM query_outcomes WHERE run_id = ? ORDER BY position`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var outcomes []models.QueryOutcome
	for rows.Next() {
		var o models.QueryOutcome
		var took, latency int64
		var errText sql.NullString
		if err := rows.Scan(&o.QueryID, &took, &latency, &o.Hits, &errText); err != nil {
			return nil, err
		}
		o.Took = time.Duration(took)
		o.Latency = time.Duration(latency)
		if errText.Valid {
			o.Err = errors.New(errText.String)
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

// BatchCreateQueryScores inserts per-query nDCG values of a run in a transaction.
func (s *SQLiteStorage) BatchCreateQueryScores(ctx context.Context, runID string, scores []metrics.QueryScore) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO query_scores (run_id, position, query_id, candidates, ndcg)
		 VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, sc := range scores {
		if _, err := stmt.ExecContext(ctx, runID, i, sc.QueryID, sc.Candidates, sc.Value); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetQueryScores returns a run's per-query scores in insertion order.
func (s *SQLiteStorage) GetQueryScores(ctx context.Context, runID string) ([]metrics.QueryScore, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT query_id, candidates, ndcg FROM query_scores WHERE run_id = ? ORDER BY position`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var scores []metrics.QueryScore
	for rows.Next() {
		var sc metrics.QueryScore
		if err := rows.Scan(&sc.QueryID, &sc.Candidates, &sc.Value); err != nil {
			return nil, err
		}
		scores = append(scores, sc)
	}
	return scores, rows.Err()
}

// CountRuns returns the total number of runs.
func (s *SQLiteStorage) CountRuns(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

var _ Storage = (*SQLiteStorage)(nil)
