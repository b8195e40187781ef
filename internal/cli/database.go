package cli

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
)

// cmdInfo shows information about the connection.
func (h *Handler) cmdInfo(ctx *CommandContext) {
	format, ok := ctx.Format()
	if !ok || !h.RequireSession(ctx) {
		return
	}

	rtt, err := h.dbManager.Ping(ctx.Context)
	if err != nil {
		ctx.Fail(err)
		return
	}

	params := h.dbManager.Params()
	info := map[string]any{
		"ping":    rtt.String(),
		"target":  params.String(),
		"driver":  params.DriverName(),
		"session": h.dbManager.SessionID(),
	}
	if params.IsSQLite() {
		if st, err := os.Stat(params.DBName); err == nil {
			info["size"] = st.Size()
		}
	}

	if format == formatJSON {
		printJSON(ctx.Out, info)
		return
	}

	fmt.Fprintf(ctx.Out, "Target:\t%s\n", info["target"])
	fmt.Fprintf(ctx.Out, "Driver:\t%s\n", info["driver"])
	fmt.Fprintf(ctx.Out, "Session:\t%s\n", info["session"])
	fmt.Fprintf(ctx.Out, "Ping:\t%s\n", info["ping"])
	if size, ok := info["size"].(int64); ok {
		fmt.Fprintf(ctx.Out, "Size:\t%s\n", humanize.Bytes(uint64(size)))
	}
}
