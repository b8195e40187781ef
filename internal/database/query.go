package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// QueryResult holds the outcome of one statement: rows for row-returning
// statements, a status otherwise.
type QueryResult struct {
	Query        string
	Columns      []string
	Rows         [][]any
	RowsAffected int64
	Duration     time.Duration
	IsSelect     bool
	Status       string
}

// SuccessStatus is the status of a statement that returned no rows.
const SuccessStatus = "The command was executed successfully."

// Table returns the header row followed by the data rows, all as strings.
// Statements without rows yield nil.
func (r *QueryResult) Table() [][]string {
	if r == nil || !r.IsSelect {
		return nil
	}
	out := make([][]string, 0, len(r.Rows)+1)
	out = append(out, append([]string(nil), r.Columns...))
	for _, row := range r.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = FormatValue(v)
		}
		out = append(out, cells)
	}
	return out
}

// Run executes a statement on a session and returns structured results.
func Run(ctx context.Context, s *Session, query string, args ...any) (*QueryResult, error) {
	start := time.Now()
	if IsRowQuery(query) {
		return runSelect(ctx, s, query, args, start)
	}
	return runExec(ctx, s, query, args, start)
}

// runSelect runs a query that returns rows.
func runSelect(ctx context.Context, s *Session, query string, args []any, start time.Time) (*QueryResult, error) {
	rows, err := s.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	result := &QueryResult{
		Query:    query,
		Columns:  columns,
		Rows:     make([][]any, 0),
		IsSelect: true,
	}

	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		// []byte is reused by the driver on the next Scan
		row := make([]any, len(columns))
		for i, v := range values {
			switch val := v.(type) {
			case []byte:
				row[i] = string(val)
			default:
				row[i] = val
			}
		}
		result.Rows = append(result.Rows, row)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	result.Duration = time.Since(start)
	result.RowsAffected = int64(len(result.Rows))
	return result, nil
}

// runExec runs a statement that modifies data or schema.
func runExec(ctx context.Context, s *Session, query string, args []any, start time.Time) (*QueryResult, error) {
	sqlResult, err := s.Exec(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	result := &QueryResult{
		Query:    query,
		Duration: time.Since(start),
		Status:   SuccessStatus,
	}
	if n, err := sqlResult.RowsAffected(); err == nil {
		result.RowsAffected = n
	}
	return result, nil
}

// rowKeywords are the leading keywords of statements that return rows.
var rowKeywords = []string{"SELECT", "WITH", "SHOW", "EXPLAIN", "VALUES", "TABLE", "PRAGMA"}

// IsRowQuery reports whether a statement returns rows, judged by its first
// keyword. Leading whitespace, parentheses and SQL comments are skipped.
func IsRowQuery(query string) bool {
	word := strings.ToUpper(firstKeyword(query))
	for _, kw := range rowKeywords {
		if word == kw {
			return true
		}
	}
	return false
}

func firstKeyword(query string) string {
	s := query
	for {
		s = strings.TrimLeft(s, " \t\r\n(")
		switch {
		case strings.HasPrefix(s, "--"):
			i := strings.IndexByte(s, '\n')
			if i < 0 {
				return ""
			}
			s = s[i+1:]
		case strings.HasPrefix(s, "/*"):
			i := strings.Index(s, "*/")
			if i < 0 {
				return ""
			}
			s = s[i+2:]
		default:
			end := strings.IndexFunc(s, func(r rune) bool {
				return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z')
			})
			if end < 0 {
				return s
			}
			return s[:end]
		}
	}
}

// FormatValue formats a value for display.
func FormatValue(v any) string {
	if v == nil {
		return "NULL"
	}
	switch val := v.(type) {
	case []byte:
		return string(val)
	case string:
		return val
	case int64:
		return fmt.Sprintf("%d", val)
	case float64:
		return fmt.Sprintf("%g", val)
	case bool:
		if val {
			return "true"
		}
		return "false"
	case time.Time:
		if val.Location() != time.UTC {
			return val.Format("2006-01-02 15:04:05.999999Z07:00")
		}
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format("2006-01-02")
		}
		return val.Format("2006-01-02 15:04:05.999999")
	case sql.NullString:
		if val.Valid {
			return val.String
		}
		return "NULL"
	case sql.NullInt64:
		if val.Valid {
			return fmt.Sprintf("%d", val.Int64)
		}
		return "NULL"
	case sql.NullFloat64:
		if val.Valid {
			return fmt.Sprintf("%g", val.Float64)
		}
		return "NULL"
	default:
		return fmt.Sprintf("%v", val)
	}
}
