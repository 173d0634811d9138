package task

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps the collection as one row of a SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	name string
}

// NewSQLiteStore opens (creating if needed) the database at dbPath.
func NewSQLiteStore(dbPath, name string) (*SQLiteStore, error) {
	if name == "" {
		name = DefaultDocument
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	s := &SQLiteStore{db: db, name: name}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS task_documents (
			name       TEXT PRIMARY KEY,
			revision   INTEGER NOT NULL,
			body       TEXT NOT NULL DEFAULT '[]',
			updated_at TEXT NOT NULL
		)`)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Load reads the document row. No row means an empty collection at revision 0.
func (s *SQLiteStore) Load(ctx context.Context) (*Snapshot, error) {
	var rev int64
	var body string
	err := s.db.QueryRowContext(ctx, `SELECT revision, body FROM task_documents WHERE name = ?`, s.name).
		Scan(&rev, &body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &Snapshot{Tasks: []Task{}}, nil
		}
		return nil, fmt.Errorf("load tasks %s: %w", s.name, err)
	}
	var tasks []Task
	if err := json.Unmarshal([]byte(body), &tasks); err != nil {
		return nil, fmt.Errorf("decode tasks %s: %w", s.name, err)
	}
	return &Snapshot{Tasks: Clone(tasks), Revision: rev}, nil
}

// Save replaces the document if its revision is still rev.
func (s *SQLiteStore) Save(ctx context.Context, tasks []Task, rev int64) (int64, error) {
	if tasks == nil {
		tasks = []Task{}
	}
	body, err := json.Marshal(tasks)
	if err != nil {
		return 0, fmt.Errorf("marshal tasks: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	var res sql.Result
	if rev == 0 {
		res, err = s.db.ExecContext(ctx, `
			INSERT INTO task_documents (name, revision, body, updated_at)
			VALUES (?, 1, ?, ?)
			ON CONFLICT (name) DO NOTHING`, s.name, string(body), now)
	} else {
		res, err = s.db.ExecContext(ctx, `
			UPDATE task_documents SET revision = revision + 1, body = ?, updated_at = ?
			WHERE name = ? AND revision = ?`, string(body), now, s.name, rev)
	}
	if err != nil {
		return 0, fmt.Errorf("save tasks %s: %w", s.name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("save tasks %s: %w", s.name, err)
	}
	if n == 0 {
		return 0, ErrConflict
	}
	return rev + 1, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
