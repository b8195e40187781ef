package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"net"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ReconnectPolicy controls whether and how a session is reopened after the
// connection underneath it breaks. Statement errors never trigger it.
type ReconnectPolicy struct {
	Enabled         bool
	MaxTries        uint
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultReconnectPolicy returns the policy used when none is configured.
func DefaultReconnectPolicy() ReconnectPolicy {
	return ReconnectPolicy{
		Enabled:         true,
		MaxTries:        3,
		InitialInterval: 200 * time.Millisecond,
		MaxInterval:     2 * time.Second,
	}
}

// NoReconnect disables reopening.
func NoReconnect() ReconnectPolicy {
	return ReconnectPolicy{}
}

// reopen opens a fresh session from params with exponential backoff.
// Connection errors that are not transient stop the retries early.
func (p ReconnectPolicy) reopen(ctx context.Context, params ConnectionParameters, open openFunc) (*Session, error) {
	b := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		b.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		b.MaxInterval = p.MaxInterval
	}
	tries := p.MaxTries
	if tries == 0 {
		tries = 1
	}

	return backoff.Retry(ctx, func() (*Session, error) {
		sess, err := open(ctx, params)
		if err != nil {
			if !IsBrokenConnection(err) {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		return sess, nil
	}, backoff.WithBackOff(b), backoff.WithMaxTries(tries))
}

// IsBrokenConnection reports whether err means the connection itself is
// gone, as opposed to the database rejecting a statement.
func IsBrokenConnection(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.EOF) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// admin_shutdown, crash_shutdown, cannot_connect_now
		switch pgErr.Code {
		case "57P01", "57P02", "57P03":
			return true
		}
		return false
	}
	return pgconn.SafeToRetry(err)
}

// IsUnsent reports whether err proves the statement never reached the
// server, so running it again on a fresh session cannot apply it twice.
func IsUnsent(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return true
	}
	return pgconn.SafeToRetry(err)
}
