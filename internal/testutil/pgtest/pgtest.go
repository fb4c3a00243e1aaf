// Package pgtest opens a migrated Postgres pool for integration tests.
// Tests are skipped unless DATABASE_URL is set.
package pgtest

import (
	"context"
	"os"
	"testing"
	"time"

	"library-backend/internal/infrastructure/database"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

// Pool returns a pool on a freshly truncated schema.
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set, skipping Postgres integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	require.NoError(t, database.Migrate(ctx, pool))
	_, err = pool.Exec(ctx, "TRUNCATE users, books")
	require.NoError(t, err)
	return pool
}
