package repository_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/elebur/VoteAPI/internal/domain"
	"github.com/elebur/VoteAPI/internal/repository"
	"github.com/elebur/VoteAPI/internal/repository/storetest"
	"github.com/elebur/VoteAPI/pkg/database"
)

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestSQLiteStore(t *testing.T) {
	storetest.Run(t, func(t *testing.T) domain.Store {
		ctx := context.Background()
		pool, err := database.NewConnectionPool(ctx, &database.Config{
			Driver: database.DriverSQLite,
			URL:    "file::memory:",
		}, quietLogger)
		require.NoError(t, err)
		t.Cleanup(func() { pool.Close() })
		require.NoError(t, pool.Migrate(ctx))
		return repository.NewSQLStore(pool.GetDB(), repository.DialectSQLite, quietLogger)
	})
}

// TestPostgresStore runs against a disposable database named by TEST_DATABASE_URL.
func TestPostgresStore(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	storetest.Run(t, func(t *testing.T) domain.Store {
		ctx := context.Background()
		pool, err := database.NewConnectionPool(ctx, &database.Config{
			Driver: database.DriverPostgres,
			URL:    url,
		}, quietLogger)
		require.NoError(t, err)
		t.Cleanup(func() { pool.Close() })
		require.NoError(t, pool.Migrate(ctx))
		_, err = pool.GetDB().ExecContext(ctx,
			`TRUNCATE votes, menu_menu_items, menu_items, menus, employees, restaurants, users RESTART IDENTITY CASCADE`)
		require.NoError(t, err)
		return repository.NewSQLStore(pool.GetDB(), repository.DialectPostgres, quietLogger)
	})
}
