package task

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TestPgStore runs the Store contract against a real database when
// TASKBOARD_TEST_DATABASE_URL is set.
func TestPgStore(t *testing.T) {
	dsn := os.Getenv("TASKBOARD_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TASKBOARD_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer pool.Close()

	s := NewPgStore(pool, "test-"+t.Name())
	if err := s.EnsureTable(ctx); err != nil {
		t.Fatalf("ensure table: %v", err)
	}
	if _, err := pool.Exec(ctx, `DELETE FROM task_documents WHERE name = $1`, s.name); err != nil {
		t.Fatalf("reset: %v", err)
	}
	testStore(t, s)
}
