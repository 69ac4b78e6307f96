package target

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"dmsreplay/internal/artifact"
	"dmsreplay/internal/codec"
	"dmsreplay/internal/source"
)

type testPostgresContainer struct {
	container *postgres.PostgresContainer
	dsn       string
	pool      *pgxpool.Pool
}

func TestOperatorLifecycleIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	tc := setupPostgres(t)
	ctx := context.Background()
	op := New(tc.pool, nil)

	t.Run("ping succeeds", func(t *testing.T) {
		require.NoError(t, op.Ping(ctx))
	})

	t.Run("create schema and table", func(t *testing.T) {
		require.NoError(t, op.CreateSchema(ctx, "replayed"))
		cols := []source.Column{{Name: "id", DataType: "int"}, {Name: "name", DataType: "varchar"}}
		require.NoError(t, op.CreateTable(ctx, "replayed", "widgets", cols, []string{"id"}))
	})

	t.Run("bulk insert then upsert delete", func(t *testing.T) {
		batch := &artifact.Batch{
			Columns: []string{"id", "name"},
			Rows: []artifact.Row{
				{"id": codec.Int64(1), "name": codec.String("widget-a")},
				{"id": codec.Int64(2), "name": codec.String("widget-b")},
			},
		}
		require.NoError(t, op.BulkInsert(ctx, "replayed", "widgets", batch, 1000, 0))

		deleteBatch := &artifact.Batch{
			Columns: []string{OpColumn, "id", "name"},
			Rows: []artifact.Row{
				{OpColumn: codec.String("D"), "id": codec.Int64(1), "name": codec.String("widget-a")},
			},
		}
		require.NoError(t, op.Upsert(ctx, "replayed", "widgets", deleteBatch, []string{"id"}))

		assert.Equal(t, 4, op.ExecutedStatementCount())
	})
}

func setupPostgres(t *testing.T) *testPostgresContainer {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("testpass"),
	)
	require.NoError(t, err, "failed to start postgres container")

	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(pgContainer); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err, "failed to open pool")
	t.Cleanup(pool.Close)

	return &testPostgresContainer{container: pgContainer, dsn: dsn, pool: pool}
}
