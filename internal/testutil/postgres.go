// Package testutil provides shared test infrastructure: a disposable
// pgvector-enabled Postgres container, deterministic Genkit model and
// embedder fakes, and a quiet logger.
//
// The helpers here follow the shape of net/http/httptest: small setup
// functions that keep package tests focused on behavior instead of
// plumbing.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/alexdjulin/librarian/db"
)

// TestDB is a disposable Postgres instance with the librarian schema
// already migrated.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
}

// SetupTestDB starts a pgvector-enabled Postgres container, applies the
// embedded migrations, and returns a ready connection pool. The cleanup
// function terminates the container.
//
// Callers should skip in short mode; starting a container takes seconds
// and requires Docker:
//
//	if testing.Short() {
//	    t.Skip("skipping container test in short mode")
//	}
//	tdb, cleanup := testutil.SetupTestDB(t)
//	defer cleanup()
func SetupTestDB(t *testing.T) (*TestDB, func()) {
	t.Helper()

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"pgvector/pgvector:pg16",
		postgres.WithDatabase("librarian_test"),
		postgres.WithUsername("librarian_test"),
		postgres.WithPassword("test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("starting postgres container: %v", err)
	}
	terminate := func() {
		_ = pgContainer.Terminate(context.Background())
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		terminate()
		t.Fatalf("reading container connection string: %v", err)
	}

	if err := db.Migrate(connStr); err != nil {
		terminate()
		t.Fatalf("migrating test database: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		terminate()
		t.Fatalf("creating connection pool: %v", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		terminate()
		t.Fatalf("pinging test database: %v", err)
	}

	tdb := &TestDB{
		Container: pgContainer,
		Pool:      pool,
		ConnStr:   connStr,
	}
	cleanup := func() {
		pool.Close()
		terminate()
	}
	return tdb, cleanup
}
