// Package database manages the single database session and runs
// statements and catalog queries against it.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	_ "github.com/lib/pq"              // registers "postgres"
	_ "modernc.org/sqlite"             // registers "sqlite"
)

// Session wraps an open database handle and the one connection pinned to
// it. The pinned connection plays the role of the cursor: every statement
// of a session runs on it.
type Session struct {
	ID       string
	Params   ConnectionParameters
	OpenedAt time.Time

	db   *sql.DB
	conn *sql.Conn
	mu   sync.Mutex
}

// Open opens a session with the given parameters.
func Open(ctx context.Context, params ConnectionParameters) (*Session, error) {
	dsn, err := params.DSN()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(params.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// One session, one connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}

	return &Session{
		ID:       uuid.NewString(),
		Params:   params,
		OpenedAt: time.Now(),
		db:       db,
		conn:     conn,
	}, nil
}

// Close releases the pinned connection and the handle. Safe to call more
// than once.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	if s.conn != nil {
		if err := s.conn.Close(); err != nil && err != sql.ErrConnDone {
			firstErr = err
		}
		s.conn = nil
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.db = nil
	}
	return firstErr
}

// Exec runs a statement that doesn't return rows.
func (s *Session) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil, sql.ErrConnDone
	}
	return s.conn.ExecContext(ctx, query, args...)
}

// Query runs a statement that returns rows. The caller must close the rows
// before issuing the next statement on the session.
func (s *Session) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil, sql.ErrConnDone
	}
	return s.conn.QueryContext(ctx, query, args...)
}

// Ping checks that the pinned connection is still usable.
func (s *Session) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return sql.ErrConnDone
	}
	return s.conn.PingContext(ctx)
}
