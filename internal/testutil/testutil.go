// Package testutil provides shared helpers for integration tests that
// need a real Postgres or Redis instance. Tests using these helpers skip
// when the backing service is unavailable, unless TEST_REQUIRE_SERVICES
// is set, in which case they fail instead.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	// pgx driver for database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/parishtech/shepherd/internal/migrate"
)

// TestingTB covers both *testing.T and *testing.B.
type TestingTB interface {
	Helper()
	Cleanup(func())
	Skip(args ...interface{})
	Skipf(format string, args ...interface{})
	Fatal(args ...interface{})
	Fatalf(format string, args ...interface{})
	Logf(format string, args ...interface{})
}

// TestDBConfig holds connection details for the test database.
type TestDBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// DefaultTestDBConfig reads TEST_DB_* variables, defaulting to the local
// docker-compose test profile on port 55432.
func DefaultTestDBConfig() TestDBConfig {
	return TestDBConfig{
		Host:     getEnvOrDefault("TEST_DB_HOST", "localhost"),
		Port:     getEnvOrDefault("TEST_DB_PORT", "55432"),
		User:     getEnvOrDefault("TEST_DB_USER", "shepherd"),
		Password: getEnvOrDefault("TEST_DB_PASSWORD", "shepherd"),
		DBName:   getEnvOrDefault("TEST_DB_NAME", "shepherd"),
	}
}

func (c TestDBConfig) dsn() string {
	hostPort := net.JoinHostPort(c.Host, c.Port)
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable",
		c.User, c.Password, hostPort, c.DBName)
}

// SetupTestDB opens the test database, applies migrations, and clears
// auth tables. The connection is closed via t.Cleanup. Skips when the
// database is unreachable.
func SetupTestDB(t TestingTB) *sql.DB {
	t.Helper()

	cfg := DefaultTestDBConfig()
	db, err := sql.Open("pgx", cfg.dsn())
	if err != nil {
		skipOrFail(t, "test database not available:", err)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		skipOrFail(t, "test database not available:", err)
		return nil
	}

	if err := migrate.Run(ctx, db); err != nil {
		_ = db.Close()
		t.Fatal("failed to run migrations:", err)
	}

	CleanupTestDB(t, db)
	t.Cleanup(func() {
		CleanupTestDB(t, db)
		if err := db.Close(); err != nil {
			t.Logf("test db close failed: %v", err)
		}
	})
	return db
}

// CleanupTestDB removes all rows the auth tests may have written.
func CleanupTestDB(t TestingTB, db *sql.DB) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "DELETE FROM users"); err != nil {
		t.Fatalf("failed to clean up users table: %v", err)
	}
}

// SetupTestRedis opens a flushed Redis client on the test database index.
// The client is closed via t.Cleanup. Skips when Redis is unreachable.
func SetupTestRedis(t TestingTB) *redis.Client {
	t.Helper()

	addr := getEnvOrDefault("TEST_REDIS_ADDR", "localhost:6379")
	dbIndex := 9
	if raw := os.Getenv("TEST_REDIS_DB"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			dbIndex = parsed
		}
	}
	client := redis.NewClient(&redis.Options{Addr: addr, DB: dbIndex})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		skipOrFail(t, "redis not available for testing:", err)
		return nil
	}

	client.FlushDB(ctx)
	t.Cleanup(func() {
		client.FlushDB(context.Background())
		if err := client.Close(); err != nil {
			t.Logf("redis close failed: %v", err)
		}
	})
	return client
}

func skipOrFail(t TestingTB, msg string, err error) {
	t.Helper()
	if envBool("TEST_REQUIRE_SERVICES") {
		t.Fatal(msg, err)
	}
	t.Skip(msg, err)
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}
