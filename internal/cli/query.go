package cli

import (
	"fmt"

	"github.com/johan-st/simplequery/internal/database"
	"github.com/johan-st/simplequery/internal/editor"
)

// cmdQuery executes one SQL statement.
func (h *Handler) cmdQuery(ctx *CommandContext) {
	args := ctx.GetPositionalArgs()
	if len(args) < 1 {
		fmt.Fprintln(ctx.Err, "Usage: query \"<sql>\" [--format=list|table|csv|json]")
		ctx.Exit(1)
		return
	}

	format, ok := ctx.Format()
	if !ok {
		return
	}

	ed := editor.New()
	ed.SetText(args[0])
	sql, err := ed.Submit()
	if err != nil {
		fmt.Fprintf(ctx.Err, "Query error: %v\n", err)
		ctx.Exit(1)
		return
	}

	if !h.RequireSession(ctx) {
		return
	}

	result, err := h.dbManager.Execute(ctx.Context, sql)
	if err != nil {
		ctx.Fail(err)
		return
	}
	h.log.Debug("query finished", "session", h.dbManager.SessionID(), "rows", result.RowsAffected)

	h.formatQueryResult(ctx, result, format)
}

// jsonResult is the JSON shape of a row-returning statement.
type jsonResult struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// formatQueryResult formats and outputs a query result.
func (h *Handler) formatQueryResult(ctx *CommandContext, result *database.QueryResult, format string) {
	if !result.IsSelect {
		switch format {
		case formatJSON:
			printJSON(ctx.Out, map[string]any{
				"status":        result.Status,
				"rows_affected": result.RowsAffected,
			})
		default:
			fmt.Fprintln(ctx.Out, result.Status)
			fmt.Fprintf(ctx.Err, "%s\n", statusLine(result))
		}
		return
	}

	table := result.Table()
	switch format {
	case formatJSON:
		// Columns and rows stay positional; names may repeat (?column?).
		rows := result.Rows
		if rows == nil {
			rows = [][]any{}
		}
		printJSON(ctx.Out, jsonResult{Columns: result.Columns, Rows: rows})

	case formatCSV:
		printCSV(ctx.Out, table[0], table[1:])

	case formatTable:
		printTable(ctx.Out, table[0], table[1:])
		fmt.Fprintf(ctx.Err, "%s\n", statusLine(result))

	default:
		for _, line := range h.presenter.Result(result) {
			fmt.Fprintln(ctx.Out, line)
		}
		fmt.Fprintf(ctx.Err, "%s\n", statusLine(result))
	}
}
