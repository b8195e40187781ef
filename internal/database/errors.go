package database

import (
	"errors"
	"fmt"
)

// ErrNotConnected is returned by operations that need a live session.
var ErrNotConnected = errors.New("not connected to a database")

// ConnectionError reports a failure to open a session.
type ConnectionError struct {
	Target string
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection to %s failed: %v", e.Target, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ExecutionError reports a statement the database rejected.
type ExecutionError struct {
	Query string
	Err   error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("command failed: %v", e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// EmptyTableName is reported in place of a blank table name.
const EmptyTableName = "<Empty>"

// NameError reports a table that does not exist.
type NameError struct {
	Table string
	Err   error
}

func (e *NameError) Error() string {
	return fmt.Sprintf("Table %q does not exist.", e.Table)
}

func (e *NameError) Unwrap() error { return e.Err }
