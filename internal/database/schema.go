package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const (
	postgresListTablesQuery = `SELECT table_name FROM information_schema.tables
		WHERE table_schema = 'public' ORDER BY table_name`

	sqliteListTablesQuery = `SELECT name FROM sqlite_master
		WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name`
)

// undefinedTableCode is the PostgreSQL SQLSTATE for a missing relation.
const undefinedTableCode = "42P01"

// Schema runs the fixed catalog queries on a session.
type Schema struct {
	sess *Session
}

// NewSchema creates a new Schema introspector.
func NewSchema(sess *Session) *Schema {
	return &Schema{sess: sess}
}

// ListTables returns the user tables, ordered by name.
func (s *Schema) ListTables(ctx context.Context) ([]string, error) {
	query := postgresListTablesQuery
	if s.sess.Params.IsSQLite() {
		query = sqliteListTablesQuery
	}

	rows, err := s.sess.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	tables := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// ListColumns returns the column names of a table by selecting it with a
// one-row projection.
func (s *Schema) ListColumns(ctx context.Context, tableName string) ([]string, error) {
	if strings.TrimSpace(tableName) == "" {
		return nil, &NameError{Table: EmptyTableName}
	}

	rows, err := s.sess.Query(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT 1", quoteQualified(tableName, !s.sess.Params.IsSQLite())))
	if err != nil {
		if IsUndefinedTable(err) {
			return nil, &NameError{Table: tableName, Err: err}
		}
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}
	return columns, rows.Err()
}

// IsUndefinedTable reports whether a driver error means the table does not
// exist.
func IsUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == undefinedTableCode
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code) == undefinedTableCode
	}
	return strings.Contains(err.Error(), "no such table")
}

// quoteIdentifier safely quotes a SQL identifier.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// quoteQualified quotes each dot-separated part of a possibly
// schema-qualified name. Parts the user already quoted are kept as written.
// With fold set, unquoted parts are lower-cased the way PostgreSQL folds
// bare identifiers.
func quoteQualified(name string, fold bool) string {
	parts := splitQualified(strings.TrimSpace(name))
	for i, p := range parts {
		switch {
		case isQuotedIdentifier(p):
		case fold:
			parts[i] = quoteIdentifier(strings.ToLower(p))
		default:
			parts[i] = quoteIdentifier(p)
		}
	}
	return strings.Join(parts, ".")
}

// splitQualified splits name on dots outside double-quoted parts. A quote
// only opens a quoted part at the start of that part.
func splitQualified(name string) []string {
	var (
		parts  []string
		cur    strings.Builder
		quoted bool
	)
	for i := 0; i < len(name); i++ {
		ch := name[i]
		switch {
		case quoted && ch == '"':
			if i+1 < len(name) && name[i+1] == '"' {
				cur.WriteString(`""`)
				i++
				continue
			}
			quoted = false
			cur.WriteByte(ch)
		case !quoted && ch == '"' && cur.Len() == 0:
			quoted = true
			cur.WriteByte(ch)
		case !quoted && ch == '.':
			parts = append(parts, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(ch)
		}
	}
	return append(parts, cur.String())
}

// isQuotedIdentifier reports whether p is one well-formed double-quoted
// identifier with every inner quote doubled.
func isQuotedIdentifier(p string) bool {
	if len(p) < 3 || p[0] != '"' || p[len(p)-1] != '"' {
		return false
	}
	return !strings.Contains(strings.ReplaceAll(p[1:len(p)-1], `""`, ""), `"`)
}
