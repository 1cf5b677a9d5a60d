package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"PriceWatcher/internal/ports"
)

// setupTestPostgres starts a disposable Postgres and returns its DSN.
func setupTestPostgres(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("postgres container tests are skipped in -short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")
	return dsn
}

func TestPostgresRepositoryContract(t *testing.T) {
	dsn := setupTestPostgres(t)

	runRepositoryContract(t, func(t *testing.T) ports.PriceRepository {
		repo, err := OpenPostgres(context.Background(), dsn)
		require.NoError(t, err)

		_, err = repo.pool.Exec(context.Background(), `TRUNCATE price_history RESTART IDENTITY`)
		require.NoError(t, err)

		t.Cleanup(func() { _ = repo.Close() })
		return repo
	})
}
