// Package tcpostgres provides a migrated results database in a container for
// package tests.
package tcpostgres

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/mpapenbr/racelink/pkg/db/migrate"
	database "github.com/mpapenbr/racelink/pkg/db/postgres"
)

const (
	containerName = "racelink-test"
	image         = "postgres:16"
	password      = "password"
)

var (
	once     sync.Once
	dbURL    string
	setupErr error
)

// startContainer starts the shared container. It is reused across test
// packages and runs with fsync disabled.
func startContainer(ctx context.Context) (string, error) {
	port, err := nat.NewPort("tcp", "5432")
	if err != nil {
		return "", err
	}
	container, err := testcontainers.GenericContainer(ctx,
		testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Name:         containerName,
				Image:        image,
				Cmd:          []string{"postgres", "-c", "fsync=off"},
				ExposedPorts: []string{port.Port()},
				Env: map[string]string{
					"POSTGRES_USER":     "postgres",
					"POSTGRES_PASSWORD": password,
					"POSTGRES_DB":       "postgres",
				},
				WaitingFor: wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30 * time.Second),
			},
			Started: true,
			Reuse:   true,
		})
	if err != nil {
		return "", err
	}
	mapped, err := container.MappedPort(ctx, port)
	if err != nil {
		return "", err
	}
	host, err := container.Host(ctx)
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("postgresql://postgres:%s@%s:%s/postgres?sslmode=disable",
		password, host, mapped.Port())
	if err := migrate.MigrateDb(url); err != nil {
		return "", err
	}
	return url, nil
}

// SetupTestDb returns a pool on the migrated test database. The container is
// started once per test binary.
func SetupTestDb() (*pgxpool.Pool, error) {
	ctx := context.Background()
	once.Do(func() {
		dbURL, setupErr = startContainer(ctx)
	})
	if setupErr != nil {
		return nil, setupErr
	}
	return database.InitWithURL(ctx, dbURL)
}

func ClearResultTables(pool *pgxpool.Pool) {
	//nolint:errcheck // testsetup
	pool.Exec(context.Background(), "delete from race_result_entry")
	//nolint:errcheck // testsetup
	pool.Exec(context.Background(), "delete from race_result")
}
