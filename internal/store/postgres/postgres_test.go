package postgres_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/JonMunkholm/records/internal/domain"
	"github.com/JonMunkholm/records/internal/store"
	"github.com/JonMunkholm/records/internal/store/postgres"
	"github.com/JonMunkholm/records/internal/store/storetest"
)

const (
	testUser     = "postgres"
	testPassword = "postgres"
	testDB       = "records"
)

// startPostgres runs a throwaway server and returns its connection URL.
// The test is skipped when Docker is not reachable.
func startPostgres(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:17",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     testUser,
			"POSTGRES_PASSWORD": testPassword,
			"POSTGRES_DB":       testDB,
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		testUser, testPassword, host, port.Int(), testDB)
}

func setupGateway(t *testing.T) *postgres.Gateway {
	t.Helper()
	ctx := context.Background()

	g, err := postgres.Open(ctx, postgres.Options{URL: startPostgres(t), MaxConns: 4})
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })

	require.NoError(t, g.Migrate(ctx))
	return g
}

func TestGateway(t *testing.T) {
	g := setupGateway(t)

	storetest.Run(t, func(t *testing.T) store.Gateway {
		all, err := g.FindAll(context.Background(), store.Filter{})
		require.NoError(t, err)
		ids := make([]string, len(all))
		for i, r := range all {
			ids[i] = r.ID
		}
		_, err = g.DeleteMany(context.Background(), ids)
		require.NoError(t, err)
		return g
	}, storetest.RunOptions{})
}

func TestInsertManyIsAllOrNothing(t *testing.T) {
	g := setupGateway(t)
	ctx := context.Background()

	_, err := g.InsertMany(ctx, []domain.Record{
		{Name: "Ok", Position: "Dev", Level: domain.LevelJunior},
		{Name: "Bad", Position: "Dev", Level: domain.Level("Principal")},
	})
	require.Error(t, err)

	all, err := g.FindAll(ctx, store.Filter{})
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestOpenInvalidURL(t *testing.T) {
	_, err := postgres.Open(context.Background(), postgres.Options{URL: "://nope"})
	require.Error(t, err)
}
