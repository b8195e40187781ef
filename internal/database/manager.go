package database

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"
)

type openFunc func(ctx context.Context, params ConnectionParameters) (*Session, error)

// Options configures a Manager.
type Options struct {
	Logger           *slog.Logger
	Reconnect        ReconnectPolicy
	StatementTimeout time.Duration // 0 disables the per-statement timeout
}

// Manager owns the single session of the application. It opens, replaces
// and closes it, and runs statements and catalog queries on it.
type Manager struct {
	session   *Session
	last      ConnectionParameters
	hasLast   bool
	reconnect ReconnectPolicy
	timeout   time.Duration
	open      openFunc
	log       *slog.Logger
	mu        sync.Mutex
}

// NewManager creates a manager with no open session.
func NewManager(opts Options) *Manager {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{
		reconnect: opts.Reconnect,
		timeout:   opts.StatementTimeout,
		open:      Open,
		log:       log,
	}
}

// Connect opens a session with params. On success any previous session is
// closed and replaced; on failure it is left untouched.
func (m *Manager) Connect(ctx context.Context, params ConnectionParameters) error {
	m.log.Debug("connecting", "target", params.String(), "driver", params.DriverName())

	sess, err := m.open(ctx, params)
	if err != nil {
		m.log.Warn("connection failed", "target", params.String(), "error", err)
		return &ConnectionError{Target: params.String(), Err: err}
	}

	m.mu.Lock()
	prev := m.session
	m.session = sess
	m.last = params
	m.hasLast = true
	m.mu.Unlock()

	if prev != nil {
		if err := prev.Close(); err != nil {
			m.log.Warn("failed to close previous session", "session", prev.ID, "error", err)
		}
	}

	m.log.Info("connected", "target", params.String(), "session", sess.ID)
	return nil
}

// IsConnected reports whether a session is open.
func (m *Manager) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil
}

// Params returns the parameters of the last successful connect.
func (m *Manager) Params() ConnectionParameters {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.last
}

// SessionID returns the id of the open session, or "".
func (m *Manager) SessionID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return ""
	}
	return m.session.ID
}

// Configure replaces the reconnect policy and the statement timeout. It
// takes effect for the next call.
func (m *Manager) Configure(policy ReconnectPolicy, timeout time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reconnect = policy
	m.timeout = timeout
}

// Close releases the session. Calling it without an open session is a
// no-op.
func (m *Manager) Close() error {
	m.mu.Lock()
	sess := m.session
	m.session = nil
	m.mu.Unlock()

	if sess == nil {
		return nil
	}
	m.log.Info("session closed", "session", sess.ID)
	return sess.Close()
}

// Execute runs a statement on the open session.
func (m *Manager) Execute(ctx context.Context, query string) (*QueryResult, error) {
	var result *QueryResult
	err := m.withSession(ctx, func(ctx context.Context, sess *Session) error {
		var err error
		result, err = Run(ctx, sess, query)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrNotConnected) {
			return nil, err
		}
		m.log.Debug("statement failed", "error", err)
		return nil, &ExecutionError{Query: query, Err: err}
	}

	m.log.Debug("statement executed",
		"select", result.IsSelect,
		"rows", result.RowsAffected,
		"duration", result.Duration)
	return result, nil
}

// Ping checks the open session and returns the round-trip time.
func (m *Manager) Ping(ctx context.Context) (time.Duration, error) {
	var rtt time.Duration
	err := m.withSession(ctx, func(ctx context.Context, sess *Session) error {
		start := time.Now()
		if err := sess.Ping(ctx); err != nil {
			return err
		}
		rtt = time.Since(start)
		return nil
	})
	if err != nil && !errors.Is(err, ErrNotConnected) {
		return 0, &ConnectionError{Target: m.Params().String(), Err: err}
	}
	return rtt, err
}

// ListTables returns the names of the user tables in ascending order.
func (m *Manager) ListTables(ctx context.Context) ([]string, error) {
	var tables []string
	err := m.withSession(ctx, func(ctx context.Context, sess *Session) error {
		var err error
		tables, err = NewSchema(sess).ListTables(ctx)
		return err
	})
	if err != nil && !errors.Is(err, ErrNotConnected) {
		return nil, &ExecutionError{Err: err}
	}
	return tables, err
}

// ListColumns returns the column names of tableName. A missing or blank
// table yields a *NameError.
func (m *Manager) ListColumns(ctx context.Context, tableName string) ([]string, error) {
	var columns []string
	err := m.withSession(ctx, func(ctx context.Context, sess *Session) error {
		var err error
		columns, err = NewSchema(sess).ListColumns(ctx, tableName)
		return err
	})
	if err == nil {
		return columns, nil
	}
	var nameErr *NameError
	if errors.As(err, &nameErr) || errors.Is(err, ErrNotConnected) {
		return nil, err
	}
	return nil, &ExecutionError{Err: err}
}

// withSession runs fn on the open session. When fn fails because the
// connection broke and the reconnect policy allows it, the session is
// reopened from the last-known parameters. fn is run again only when the
// error shows it never reached the server; otherwise it may already have
// been applied and the error is returned.
func (m *Manager) withSession(ctx context.Context, fn func(context.Context, *Session) error) error {
	m.mu.Lock()
	sess, policy, timeout := m.session, m.reconnect, m.timeout
	m.mu.Unlock()
	if sess == nil {
		return ErrNotConnected
	}

	err := run(ctx, timeout, sess, fn)
	if err == nil || !policy.Enabled || !IsBrokenConnection(err) {
		return err
	}

	m.log.Warn("connection lost, reconnecting", "session", sess.ID, "error", err)
	fresh, rerr := m.reopen(ctx, policy, sess)
	if rerr != nil {
		m.log.Error("reconnect failed", "error", rerr)
		return err
	}
	if !IsUnsent(err) {
		return err
	}
	return run(ctx, timeout, fresh, fn)
}

func run(ctx context.Context, timeout time.Duration, sess *Session, fn func(context.Context, *Session) error) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	return fn(ctx, sess)
}

// reopen replaces the broken session old with a fresh one.
func (m *Manager) reopen(ctx context.Context, policy ReconnectPolicy, old *Session) (*Session, error) {
	m.mu.Lock()
	params, ok := m.last, m.hasLast
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotConnected
	}

	fresh, err := policy.reopen(ctx, params, m.open)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	if m.session != old {
		// closed or replaced while reconnecting
		m.mu.Unlock()
		fresh.Close()
		return nil, ErrNotConnected
	}
	m.session = fresh
	m.mu.Unlock()

	old.Close()
	m.log.Info("reconnected", "target", params.String(), "session", fresh.ID)
	return fresh, nil
}
