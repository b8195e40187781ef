// Package cli implements the one-shot commands that run a single statement
// or catalog listing and print the outcome.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/johan-st/simplequery/internal/database"
	"github.com/johan-st/simplequery/internal/present"
)

// Handler handles CLI commands against one database session.
type Handler struct {
	dbManager *database.Manager
	params    database.ConnectionParameters
	presenter *present.Presenter
	version   string
	log       *slog.Logger
}

// NewHandler creates a new CLI handler. Commands that need a session
// connect with params first.
func NewHandler(dbManager *database.Manager, params database.ConnectionParameters, presenter *present.Presenter, version string, log *slog.Logger) *Handler {
	if presenter == nil {
		presenter = present.New(present.DefaultColumnWidth)
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{
		dbManager: dbManager,
		params:    params,
		presenter: presenter,
		version:   version,
		log:       log,
	}
}

// Run executes the command named by args[0] with the remaining args and
// returns an error when it exited non-zero.
func (h *Handler) Run(ctx context.Context, args []string, out, errOut io.Writer) error {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "No command specified. Run 'help' for usage.")
		return fmt.Errorf("no command specified")
	}

	cctx := &CommandContext{
		Context: ctx,
		Args:    args[1:],
		Out:     out,
		Err:     errOut,
	}

	h.routeCommand(args[0], cctx)

	if cctx.exitCode != 0 {
		return fmt.Errorf("command failed with exit code %d", cctx.exitCode)
	}
	return nil
}

// routeCommand routes a command to its handler.
func (h *Handler) routeCommand(cmd string, ctx *CommandContext) {
	switch cmd {
	case "query":
		h.cmdQuery(ctx)
	case "tables":
		h.cmdTables(ctx)
	case "columns":
		h.cmdColumns(ctx)
	case "info":
		h.cmdInfo(ctx)
	case "version":
		h.cmdVersion(ctx)

	default:
		fmt.Fprintf(ctx.Err, "Unknown command: %s\n", cmd)
		fmt.Fprintln(ctx.Err, "Run 'help' for usage.")
		ctx.Exit(1)
	}
}

// CommandContext provides context for command execution.
type CommandContext struct {
	Context  context.Context
	Args     []string
	Out      io.Writer
	Err      io.Writer
	exitCode int
}

// Exit sets the exit code.
func (c *CommandContext) Exit(code int) {
	c.exitCode = code
}

// Fail prints err under its kind and exits with 1.
func (c *CommandContext) Fail(err error) {
	fmt.Fprintf(c.Err, "%s: %v\n", present.ErrorTitle(err), err)
	c.Exit(1)
}

// RequireArg ensures an argument is provided.
func (c *CommandContext) RequireArg(index int, name string) (string, bool) {
	args := c.GetPositionalArgs()
	if index >= len(args) {
		fmt.Fprintf(c.Err, "Missing required argument: %s\n", name)
		c.Exit(1)
		return "", false
	}
	return args[index], true
}

// argsEnd marks the end of flags; everything after it is positional.
const argsEnd = "--"

// GetFlag returns a flag value from args (e.g., --format=json). Flags after
// "--" are not considered.
func (c *CommandContext) GetFlag(name string) string {
	prefix := "--" + name + "="
	shortPrefix := "-" + name + "="
	for _, arg := range c.Args {
		if arg == argsEnd {
			break
		}
		if strings.HasPrefix(arg, prefix) {
			return strings.TrimPrefix(arg, prefix)
		}
		if strings.HasPrefix(arg, shortPrefix) {
			return strings.TrimPrefix(arg, shortPrefix)
		}
	}
	return ""
}

// GetPositionalArgs returns args that are not flags. Every arg after "--"
// is positional, even when it starts with a dash.
func (c *CommandContext) GetPositionalArgs() []string {
	var result []string
	for i, arg := range c.Args {
		if arg == argsEnd {
			return append(result, c.Args[i+1:]...)
		}
		if !strings.HasPrefix(arg, "-") {
			result = append(result, arg)
		}
	}
	return result
}

// RequireSession connects with the handler's parameters unless a session
// is already open.
func (h *Handler) RequireSession(ctx *CommandContext) bool {
	if h.dbManager.IsConnected() {
		return true
	}
	if err := h.dbManager.Connect(ctx.Context, h.params); err != nil {
		ctx.Fail(err)
		return false
	}
	return true
}
