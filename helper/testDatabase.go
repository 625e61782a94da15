package helper

import (
	"context"
	"log"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	testDbName = "knowledgestore_test"
	testDbUser = "postgres"
	testDbPass = "postgres"
)

// MustStartPostgresContainer starts a pgvector-enabled postgres container
// for integration tests. It returns the terminate function and the mapped
// host port.
func MustStartPostgresContainer() (func(context.Context, ...testcontainers.TerminateOption) error, string, error) {
	ctx := context.Background()

	container, err := postgres.Run(
		ctx,
		"pgvector/pgvector:pg17",
		postgres.WithDatabase(testDbName),
		postgres.WithUsername(testDbUser),
		postgres.WithPassword(testDbPass),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, "", err
	}

	mappedPort, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		return container.Terminate, "", err
	}

	return container.Terminate, mappedPort.Port(), nil
}

// SetTestDatabaseConfigEnvs points the configuration envs at the test container.
func SetTestDatabaseConfigEnvs(t *testing.T, port string) {
	t.Setenv("KS_DB_HOST", "localhost")
	t.Setenv("KS_DB_PORT", port)
	t.Setenv("KS_DB_USER", testDbUser)
	t.Setenv("KS_DB_PASSWORD", testDbPass)
	t.Setenv("KS_DB_DATABASE", testDbName)
}

// NewTestDatabase connects to the test container with a quiet logger.
func NewTestDatabase(config *DatabaseConfiguration) *Database {
	logger := slog.New(NewPrettyHandler(os.Stdout, PrettyHandlerOptions{
		SlogOpts: slog.HandlerOptions{Level: slog.LevelWarn},
	}))

	db := NewDatabase("knowledgestore_test", config, logger)
	if db == nil {
		log.Panic("failed to create test database")
	}

	return db
}
