// Package present renders query results as fixed-width text lines for the
// result list.
package present

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/dustin/go-humanize/english"
	"github.com/mattn/go-runewidth"

	"github.com/johan-st/simplequery/internal/database"
)

// DefaultColumnWidth is the display width of one column, in terminal cells.
const DefaultColumnWidth = 20

// Presenter turns rows into display lines.
type Presenter struct {
	width int
}

// New creates a presenter with the given column width. Widths below 1 fall
// back to DefaultColumnWidth.
func New(width int) *Presenter {
	if width < 1 {
		width = DefaultColumnWidth
	}
	return &Presenter{width: width}
}

// Width returns the column width.
func (p *Presenter) Width() int { return p.width }

// Cell strips array braces from a value and left-justifies it to exactly
// the column width, truncating when longer.
func (p *Presenter) Cell(value string) string {
	v := strings.Trim(value, "{}")
	v = strings.NewReplacer("\r\n", " ", "\n", " ", "\t", " ").Replace(v)
	v = runewidth.Truncate(v, p.width, "")
	return runewidth.FillRight(v, p.width)
}

// Line renders one row.
func (p *Presenter) Line(row []string) string {
	var b strings.Builder
	for _, v := range row {
		b.WriteString(p.Cell(v))
	}
	return b.String()
}

// Lines renders each row as one line.
func (p *Presenter) Lines(rows [][]string) []string {
	out := make([]string, len(rows))
	for i, row := range rows {
		out[i] = p.Line(row)
	}
	return out
}

// Result renders a query result: an upper-cased header line followed by
// the data rows, or the status of a statement without rows.
func (p *Presenter) Result(res *database.QueryResult) []string {
	if res == nil {
		return nil
	}
	if !res.IsSelect {
		return p.Message(res.Status)
	}
	table := res.Table()
	header := make([]string, len(table[0]))
	for i, c := range table[0] {
		header[i] = strings.ToUpper(c)
	}
	table[0] = header
	return p.Lines(table)
}

// Names renders a listing of table or column names, one per line.
func (p *Presenter) Names(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = p.Line([]string{n})
	}
	return out
}

// Message renders a plain status message as a single line.
func (p *Presenter) Message(msg string) []string {
	if msg == "" {
		return nil
	}
	return []string{msg}
}

// Summary describes a result for the status line, e.g. "3 rows in 1.2ms"
// or "12 rows affected in 840µs".
func Summary(res *database.QueryResult) string {
	if res == nil {
		return ""
	}
	d := res.Duration.Round(time.Microsecond)
	rows := humanize.Comma(res.RowsAffected) + " " + english.PluralWord(int(res.RowsAffected), "row", "")
	if res.IsSelect {
		return fmt.Sprintf("%s in %s", rows, d)
	}
	return fmt.Sprintf("%s affected in %s", rows, d)
}

// ErrorTitle names the kind of a database error for message boxes.
func ErrorTitle(err error) string {
	var (
		connErr *database.ConnectionError
		nameErr *database.NameError
		execErr *database.ExecutionError
	)
	switch {
	case errors.As(err, &connErr), errors.Is(err, database.ErrNotConnected):
		return "Connection error"
	case errors.As(err, &nameErr):
		return "Name error"
	case errors.As(err, &execErr):
		return "Execution error"
	default:
		return "Error"
	}
}
