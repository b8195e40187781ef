package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"

	"github.com/johan-st/simplequery/internal/database"
	"github.com/johan-st/simplequery/internal/present"
)

// Output formats.
const (
	formatList  = "list"
	formatTable = "table"
	formatCSV   = "csv"
	formatJSON  = "json"
)

// Formats lists the accepted --format values.
var Formats = []string{formatList, formatTable, formatCSV, formatJSON}

// Format returns the --format flag, defaulting to list. An unknown format
// exits with 1.
func (c *CommandContext) Format() (string, bool) {
	format := c.GetFlag("format")
	if format == "" {
		return formatList, true
	}
	for _, f := range Formats {
		if format == f {
			return format, true
		}
	}
	fmt.Fprintf(c.Err, "Unknown format: %s (want list, table, csv or json)\n", format)
	c.Exit(1)
	return "", false
}

// cmdVersion shows version information.
func (h *Handler) cmdVersion(ctx *CommandContext) {
	if ctx.GetFlag("format") == formatJSON {
		printJSON(ctx.Out, map[string]string{"version": h.version})
		return
	}
	fmt.Fprintf(ctx.Out, "simplequery %s\n", h.version)
}

// statusLine summarizes a result for stderr.
func statusLine(result *database.QueryResult) string {
	return "(" + present.Summary(result) + ")"
}

// printJSON writes JSON to a writer.
func printJSON(w io.Writer, v any) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}

// printCSV writes a header and rows as CSV.
func printCSV(w io.Writer, headers []string, rows [][]string) {
	cw := csv.NewWriter(w)
	cw.Write(headers)
	cw.WriteAll(rows)
}

// printTable writes a bordered text table.
func printTable(w io.Writer, headers []string, rows [][]string) {
	table := tablewriter.NewWriter(w)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(true)
	table.SetHeader(headers)
	table.AppendBulk(rows)
	table.Render()
}
