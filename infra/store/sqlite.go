package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/kilianp07/conformance/core/model"
)

// SQLiteStore persists results to a SQLite database. A result replaces the
// earlier one of the same run, case and group.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS group_results (
        run_id TEXT NOT NULL,
        case_name TEXT NOT NULL,
        year INTEGER NOT NULL,
        week INTEGER NOT NULL,
        department TEXT NOT NULL,
        status TEXT NOT NULL,
        fitness REAL,
        record TEXT NOT NULL,
        PRIMARY KEY (run_id, case_name, year, week, department)
    );`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Put writes the result to the database.
func (s *SQLiteStore) Put(ctx context.Context, res model.FitnessResult) error {
	b, err := json.Marshal(res)
	if err != nil {
		return err
	}
	var fit sql.NullFloat64
	if res.HasFitness() {
		fit = sql.NullFloat64{Float64: res.Fitness.Value, Valid: true}
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO group_results (run_id, case_name, year, week, department, status, fitness, record)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		res.RunID, res.Case, res.Key.Year, res.Key.Week, res.Key.Department, string(res.Status), fit, string(b))
	return err
}

// Query returns results matching q ordered by key.
func (s *SQLiteStore) Query(ctx context.Context, q Query) ([]model.FitnessResult, error) {
	var args []any
	query := `SELECT record FROM group_results WHERE 1=1`
	if q.Case != "" {
		query += ` AND case_name = ?`
		args = append(args, q.Case)
	}
	if q.Year != 0 {
		query += ` AND year = ?`
		args = append(args, q.Year)
	}
	if q.Week != 0 {
		query += ` AND week = ?`
		args = append(args, q.Week)
	}
	if q.Department != "" {
		query += ` AND department = ?`
		args = append(args, q.Department)
	}
	if q.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(q.Status))
	}
	query += ` ORDER BY year, week, department, case_name`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var out []model.FitnessResult
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var r model.FitnessResult
		if err := json.Unmarshal([]byte(raw), &r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
