//go:build integration

package db

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupPostgresContainer starts a PostgreSQL container for testing
func setupPostgresContainer(t *testing.T) (string, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "testuser",
			"POSTGRES_PASSWORD": "testpass",
			"POSTGRES_DB":       "testdb",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err, "Failed to start PostgreSQL container")

	host, err := container.Host(ctx)
	require.NoError(t, err)

	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=testuser password=testpass dbname=testdb sslmode=disable", host, port.Port())

	cleanup := func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}

	return dsn, cleanup
}

func TestAuditLog_Integration_OpenMigrates(t *testing.T) {
	dsn, cleanup := setupPostgresContainer(t)
	defer cleanup()

	audit, err := OpenAuditLog(dsn)
	require.NoError(t, err)
	defer audit.Close()

	err = audit.Record("org-1", "key-1", "key.create", `{"name":"ci"}`)
	require.NoError(t, err)
}

func TestAuditLog_Integration_ForOrganization(t *testing.T) {
	dsn, cleanup := setupPostgresContainer(t)
	defer cleanup()

	audit, err := OpenAuditLog(dsn)
	require.NoError(t, err)
	defer audit.Close()

	require.NoError(t, audit.Record("org-2", "user-1", "build.publish", "paper 1.20.4 #450"))
	require.NoError(t, audit.Record("org-2", "user-1", "organization.icon_update", ""))
	require.NoError(t, audit.Record("org-3", "user-2", "key.create", ""))

	entries, err := audit.ForOrganization("org-2", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "organization.icon_update", entries[0].Action, "newest entry first")
	assert.Equal(t, "build.publish", entries[1].Action)
}

func TestAuditLog_Integration_ForOrganizationLimit(t *testing.T) {
	dsn, cleanup := setupPostgresContainer(t)
	defer cleanup()

	audit, err := OpenAuditLog(dsn)
	require.NoError(t, err)
	defer audit.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, audit.Record("org-4", "user-1", "key.create", ""))
	}

	entries, err := audit.ForOrganization("org-4", 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}
