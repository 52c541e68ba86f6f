package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cleverdata/tickcopy/internal/copier"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Entry is one row of the copy log.
type Entry struct {
	ID          int64
	RunID       string
	Seq         int
	Source      string
	Destination string
	Bytes       int64
	SHA256      string
	CopiedAt    time.Time
}

// Store is an audit log of copies. It never feeds the copy counter.
type Store struct {
	db    *sql.DB
	runID string
}

func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", dbPath, err)
	}
	// A single connection keeps sqlite writes serialized.
	db.SetMaxOpenConns(1)

	schema := `
	CREATE TABLE IF NOT EXISTS copy_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		source TEXT NOT NULL,
		destination TEXT NOT NULL,
		bytes INTEGER,
		sha256 TEXT,
		copied_at DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_copy_log_run ON copy_log(run_id);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db, runID: uuid.NewString()}, nil
}

// RunID identifies the current process run in the log.
func (s *Store) RunID() string { return s.runID }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Record(ctx context.Context, r copier.Result) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO copy_log (run_id, seq, source, destination, bytes, sha256, copied_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, s.runID, r.Seq, r.Source, r.Destination, r.Bytes, r.SHA256, r.CopiedAt.UTC())
	if err != nil {
		return fmt.Errorf("record copy %d: %w", r.Seq, err)
	}
	return nil
}

// OnCopy lets the store be registered as a copier hook.
func (s *Store) OnCopy(ctx context.Context, r copier.Result) error { return s.Record(ctx, r) }

// List returns the newest entries first. limit <= 0 returns everything.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	query := "SELECT id, run_id, seq, source, destination, bytes, sha256, copied_at FROM copy_log ORDER BY id DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list copies: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.RunID, &e.Seq, &e.Source, &e.Destination, &e.Bytes, &e.SHA256, &e.CopiedAt); err != nil {
			return nil, fmt.Errorf("scan copy row: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Reset deletes the entries of one run, or the whole log when runID is empty.
func (s *Store) Reset(ctx context.Context, runID string) (int64, error) {
	var (
		res sql.Result
		err error
	)
	if runID != "" {
		res, err = s.db.ExecContext(ctx, "DELETE FROM copy_log WHERE run_id = ?", runID)
	} else {
		res, err = s.db.ExecContext(ctx, "DELETE FROM copy_log")
	}
	if err != nil {
		return 0, fmt.Errorf("reset history: %w", err)
	}
	return res.RowsAffected()
}
