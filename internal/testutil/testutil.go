// Package testutil provides test utilities for simplequery tests.
package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	_ "modernc.org/sqlite"
)

// usersSchema holds two related tables plus one the
// catalog listing must sort ahead of them.
const usersSchema = `
	CREATE TABLE users (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT UNIQUE NOT NULL,
		tags TEXT
	);

	CREATE TABLE posts (
		id INTEGER PRIMARY KEY,
		user_id INTEGER NOT NULL REFERENCES users(id),
		title TEXT NOT NULL,
		published INTEGER DEFAULT 0
	);

	CREATE TABLE audit (
		id INTEGER PRIMARY KEY,
		note TEXT
	);

	INSERT INTO users (id, name, email, tags) VALUES
		(1, 'Alice', 'alice@example.com', '{admin,dev}'),
		(2, 'Bob', 'bob@example.com', NULL),
		(3, 'Carol', 'carol@example.com', '{dev}');

	INSERT INTO posts (id, user_id, title, published) VALUES
		(1, 1, 'Hello', 1),
		(2, 1, 'Second post', 0),
		(3, 2, 'Bob writes', 1);
`

// UsersDB creates a temporary SQLite database seeded with the users
// fixture and returns its path. The file is removed with the test's temp
// directory.
func UsersDB(t *testing.T) string {
	t.Helper()
	return SeedDB(t, "users.db", usersSchema)
}

// EmptyDB creates a new empty database for testing.
func EmptyDB(t *testing.T) string {
	t.Helper()
	return SeedDB(t, "empty.db", "")
}

// SeedDB creates a temporary SQLite database and runs the given script
// against it.
func SeedDB(t *testing.T, name, script string) string {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), name)
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatalf("failed to create db: %v", err)
	}
	defer db.Close()

	// Force the file into existence even for an empty script.
	if err := db.Ping(); err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	MustExec(t, db, "PRAGMA user_version = 1")
	if script != "" {
		MustExec(t, db, script)
	}
	return dbPath
}

// MustExec executes SQL or fails the test.
func MustExec(t *testing.T, db *sql.DB, query string, args ...any) {
	t.Helper()
	if _, err := db.Exec(query, args...); err != nil {
		t.Fatalf("MustExec failed: %v\nQuery: %s", err, query)
	}
}

// PostgresTarget holds the coordinates of a throwaway PostgreSQL server.
type PostgresTarget struct {
	Host     string
	Port     string
	DBName   string
	User     string
	Password string
}

// Postgres starts a PostgreSQL container seeded with script and returns its
// coordinates. The test is skipped under -short or when no container
// runtime is available.
func Postgres(t *testing.T, script string) PostgresTarget {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	opts := []testcontainers.ContainerCustomizer{
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
		),
	}
	if script != "" {
		path := filepath.Join(t.TempDir(), "init.sql")
		if err := os.WriteFile(path, []byte(script), 0o644); err != nil {
			t.Fatalf("failed to write init script: %v", err)
		}
		opts = append(opts, postgres.WithInitScripts(path))
	}

	pgContainer, err := postgres.Run(ctx, "postgres:16-alpine", opts...)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to cleanup postgres container: %v", err)
		}
	})

	host, err := pgContainer.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		t.Fatalf("failed to get container port: %v", err)
	}

	return PostgresTarget{
		Host:     host,
		Port:     port.Port(),
		DBName:   "testdb",
		User:     "testuser",
		Password: "testpass",
	}
}

// OutputCapture is a helper for capturing CLI output.
type OutputCapture struct {
	Out bytes.Buffer
	Err bytes.Buffer
}

// Stdout returns captured stdout as string.
func (c *OutputCapture) Stdout() string {
	return c.Out.String()
}

// Stderr returns captured stderr as string.
func (c *OutputCapture) Stderr() string {
	return c.Err.String()
}

// Writers returns the capture buffers as writers.
func (c *OutputCapture) Writers() (io.Writer, io.Writer) {
	return &c.Out, &c.Err
}
