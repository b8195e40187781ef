package cli

import (
	"fmt"
)

// cmdTables lists the tables of the connected database.
func (h *Handler) cmdTables(ctx *CommandContext) {
	format, ok := ctx.Format()
	if !ok || !h.RequireSession(ctx) {
		return
	}

	tables, err := h.dbManager.ListTables(ctx.Context)
	if err != nil {
		ctx.Fail(err)
		return
	}

	if len(tables) == 0 && format != formatJSON && format != formatCSV {
		fmt.Fprintln(ctx.Err, "No tables found.")
		return
	}
	h.formatNames(ctx, "table", tables, format)
}

// cmdColumns lists the columns of a table.
func (h *Handler) cmdColumns(ctx *CommandContext) {
	tableName, ok := ctx.RequireArg(0, "table")
	if !ok {
		return
	}
	format, ok := ctx.Format()
	if !ok || !h.RequireSession(ctx) {
		return
	}

	columns, err := h.dbManager.ListColumns(ctx.Context, tableName)
	if err != nil {
		ctx.Fail(err)
		return
	}
	h.formatNames(ctx, "column", columns, format)
}

// formatNames prints a listing of names under header.
func (h *Handler) formatNames(ctx *CommandContext, header string, names []string, format string) {
	switch format {
	case formatJSON:
		printJSON(ctx.Out, names)
	case formatCSV, formatTable:
		rows := make([][]string, len(names))
		for i, n := range names {
			rows[i] = []string{n}
		}
		if format == formatCSV {
			printCSV(ctx.Out, []string{header}, rows)
		} else {
			printTable(ctx.Out, []string{header}, rows)
		}
	default:
		for _, line := range h.presenter.Names(names) {
			fmt.Fprintln(ctx.Out, line)
		}
	}
}
