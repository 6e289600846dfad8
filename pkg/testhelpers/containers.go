package testhelpers

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresImage is the image used for adapter integration tests.
const PostgresImage = "postgres:16-alpine"

// TestDB holds a shared test database container and connection pool.
type TestDB struct {
	Container *postgres.PostgresContainer
	Pool      *pgxpool.Pool
	ConnStr   string
	Host      string
	Port      int
	User      string
	Password  string
	Database  string
}

var (
	sharedTestDB     *TestDB
	sharedTestDBOnce sync.Once
	sharedTestDBErr  error
)

// GetTestDB returns a shared PostgreSQL container seeded with
// FixtureStatements. The container is created once and reused across all
// tests in the run.
func GetTestDB(t *testing.T) *TestDB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode (requires Docker)")
	}

	sharedTestDBOnce.Do(func() {
		sharedTestDB, sharedTestDBErr = setupTestDB()
	})

	if sharedTestDBErr != nil {
		t.Fatalf("Failed to setup test database: %v", sharedTestDBErr)
	}

	return sharedTestDB
}

func setupTestDB() (*TestDB, error) {
	ctx := context.Background()

	db := &TestDB{User: "ekaya", Password: "test_password", Database: "test_data"}

	container, err := postgres.Run(ctx, PostgresImage,
		postgres.WithDatabase(db.Database),
		postgres.WithUsername(db.User),
		postgres.WithPassword(db.Password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start test container: %w", err)
	}
	db.Container = container

	if db.Host, err = container.Host(ctx); err != nil {
		return nil, fmt.Errorf("failed to get container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return nil, fmt.Errorf("failed to get container port: %w", err)
	}
	db.Port = port.Int()

	if db.ConnStr, err = container.ConnectionString(ctx, "sslmode=disable"); err != nil {
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	if db.Pool, err = pgxpool.New(ctx, db.ConnStr); err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection with retry
	for i := 0; i < 10; i++ {
		if err = db.Pool.Ping(ctx); err == nil {
			break
		}
		time.Sleep(500 * time.Millisecond)
	}
	if err != nil {
		return nil, fmt.Errorf("test database not reachable: %w", err)
	}

	for _, stmt := range FixtureStatements() {
		if _, err := db.Pool.Exec(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to seed test database: %w", err)
		}
	}
	return db, nil
}
