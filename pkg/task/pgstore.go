package task

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultDocument is the row name used when none is given.
const DefaultDocument = "default"

// PgStore is a PostgreSQL-backed Store. The collection is one JSONB row in
// task_documents; saves are a compare-and-swap on its revision column.
type PgStore struct {
	pool *pgxpool.Pool
	name string
}

// NewPgStore creates a PgStore for the named document.
func NewPgStore(pool *pgxpool.Pool, name string) *PgStore {
	if name == "" {
		name = DefaultDocument
	}
	return &PgStore{pool: pool, name: name}
}

// EnsureTable creates the task_documents table if it doesn't exist.
func (s *PgStore) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS task_documents (
			name       TEXT PRIMARY KEY,
			revision   BIGINT NOT NULL,
			body       JSONB NOT NULL DEFAULT '[]',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	return err
}

// Load reads the document row. No row means an empty collection at revision 0.
func (s *PgStore) Load(ctx context.Context) (*Snapshot, error) {
	var rev int64
	var body []byte
	err := s.pool.QueryRow(ctx, `SELECT revision, body FROM task_documents WHERE name = $1`, s.name).
		Scan(&rev, &body)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &Snapshot{Tasks: []Task{}}, nil
		}
		return nil, fmt.Errorf("load tasks %s: %w", s.name, err)
	}
	var tasks []Task
	if err := json.Unmarshal(body, &tasks); err != nil {
		return nil, fmt.Errorf("decode tasks %s: %w", s.name, err)
	}
	return &Snapshot{Tasks: Clone(tasks), Revision: rev}, nil
}

// Save replaces the document if its revision is still rev.
func (s *PgStore) Save(ctx context.Context, tasks []Task, rev int64) (int64, error) {
	if tasks == nil {
		tasks = []Task{}
	}
	body, err := json.Marshal(tasks)
	if err != nil {
		return 0, fmt.Errorf("marshal tasks: %w", err)
	}
	now := time.Now().Truncate(time.Microsecond)

	var tag pgconn.CommandTag
	if rev == 0 {
		tag, err = s.pool.Exec(ctx, `
			INSERT INTO task_documents (name, revision, body, updated_at)
			VALUES ($1, 1, $2::jsonb, $3)
			ON CONFLICT (name) DO NOTHING`,
			s.name, string(body), now)
	} else {
		tag, err = s.pool.Exec(ctx, `
			UPDATE task_documents SET revision = revision + 1, body = $2::jsonb, updated_at = $3
			WHERE name = $1 AND revision = $4`,
			s.name, string(body), now, rev)
	}
	if err != nil {
		return 0, fmt.Errorf("save tasks %s: %w", s.name, err)
	}
	if tag.RowsAffected() == 0 {
		return 0, ErrConflict
	}
	return rev + 1, nil
}

// Close is a no-op; the pool belongs to the caller.
func (s *PgStore) Close() error { return nil }
