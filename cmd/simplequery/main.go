// simplequery is an interactive SQL client for PostgreSQL and SQLite. Run
// without a command it opens the terminal UI; the query, tables and columns
// commands run once and print the result.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	"github.com/johan-st/simplequery/internal/cli"
	"github.com/johan-st/simplequery/internal/config"
	"github.com/johan-st/simplequery/internal/database"
	"github.com/johan-st/simplequery/internal/present"
	"github.com/johan-st/simplequery/internal/tui"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

// errExit reports a command that already printed its error.
var errExit = errors.New("command failed")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		if !errors.Is(err, errExit) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "simplequery",
		Short:         "Interactive SQL client for PostgreSQL and SQLite",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringP("config", "c", "", "path to config file (default: user config dir)")
	pf.String("env-file", ".env", "path to a .env file with SIMPLEQUERY_* variables")
	pf.String("driver", "", "database driver: pgx, postgres or sqlite")
	pf.StringP("dbname", "d", "", "database name (file path for sqlite)")
	pf.StringP("host", "H", "", "database host")
	pf.StringP("user", "U", "", "database user")
	pf.StringP("port", "p", "", "database port")
	pf.String("password", "", "database password (prefer SIMPLEQUERY_PASSWORD or -W)")
	pf.BoolP("password-prompt", "W", false, "prompt for the password")
	pf.String("sslmode", "", "postgres sslmode")
	pf.String("log-file", "", "write logs to this file (the terminal UI discards logs otherwise)")
	pf.BoolP("verbose", "v", false, "set debug logging level")
	pf.StringP("format", "f", "list", "output format: list, table, csv or json")

	root.AddCommand(
		&cobra.Command{
			Use:   "query <sql>",
			Short: "Execute one SQL statement and print the result",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runCLI(cmd, "query", args...)
			},
		},
		&cobra.Command{
			Use:   "tables",
			Short: "List the tables of the database",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runCLI(cmd, "tables")
			},
		},
		&cobra.Command{
			Use:   "columns <table>",
			Short: "List the columns of a table",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return runCLI(cmd, "columns", args...)
			},
		},
		&cobra.Command{
			Use:   "info",
			Short: "Show the connection target and session",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runCLI(cmd, "info")
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Show version information",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				format, _ := cmd.Flags().GetString("format")
				h := cli.NewHandler(nil, database.ConnectionParameters{}, nil, versionString(), nil)
				if err := h.Run(cmd.Context(), []string{"version", "--format=" + format}, cmd.OutOrStdout(), cmd.ErrOrStderr()); err != nil {
					return errExit
				}
				return nil
			},
		},
	)

	return root
}

func versionString() string {
	return fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate)
}

// loadConfig resolves the configuration: config file, then .env, then
// SIMPLEQUERY_* variables, then flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flags := cmd.Flags()

	envFile, _ := flags.GetString("env-file")
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, err
	}

	path, _ := flags.GetString("config")
	cfg, err := config.LoadOrDefault(path)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.LookupEnv)
	applyFlags(cfg, flags)

	if prompt, _ := flags.GetBool("password-prompt"); prompt {
		password, err := readPassword(cfg.Connection)
		if err != nil {
			return nil, err
		}
		cfg.Connection.Password = password
	}
	return cfg, nil
}

// applyFlags copies explicitly set flags over the configuration.
func applyFlags(cfg *config.Config, flags *pflag.FlagSet) {
	overrides := []struct {
		name string
		dst  *string
	}{
		{"driver", &cfg.Connection.Driver},
		{"dbname", &cfg.Connection.DBName},
		{"host", &cfg.Connection.Host},
		{"user", &cfg.Connection.User},
		{"port", &cfg.Connection.Port},
		{"password", &cfg.Connection.Password},
		{"sslmode", &cfg.Connection.SSLMode},
		{"log-file", &cfg.Log.File},
	}
	for _, o := range overrides {
		if flags.Changed(o.name) {
			*o.dst, _ = flags.GetString(o.name)
		}
	}
	if verbose, _ := flags.GetBool("verbose"); verbose {
		cfg.Log.Level = "debug"
	}
}

// readPassword prompts on the terminal without echo.
func readPassword(params database.ConnectionParameters) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("cannot prompt for password: stdin is not a terminal")
	}
	fmt.Fprintf(os.Stderr, "Password for %s: ", params.String())
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(b), nil
}

func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !term.IsTerminal(int(f.Fd()))
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      lvl,
		TimeFormat: time.Kitchen,
		NoColor:    noColor,
	}))
}

func newManager(cfg *config.Config, log *slog.Logger) *database.Manager {
	return database.NewManager(database.Options{
		Logger:           log,
		Reconnect:        cfg.ReconnectPolicy(),
		StatementTimeout: cfg.GetStatementTimeout(),
	})
}

// runCLI runs one command and exits.
func runCLI(cmd *cobra.Command, name string, args ...string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	log := newLogger(cmd.ErrOrStderr(), cfg.Log.Level)
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		log = newLogger(f, cfg.Log.Level)
	}

	manager := newManager(cfg, log)
	defer manager.Close()

	format, _ := cmd.Flags().GetString("format")
	h := cli.NewHandler(manager, cfg.ConnectionParams(), present.New(cfg.GetUI().ColumnWidth), versionString(), log)

	// cobra already split flags from positionals; keep them apart.
	argv := []string{name, "--format=" + format, "--"}
	argv = append(argv, args...)
	if err := h.Run(cmd.Context(), argv, cmd.OutOrStdout(), cmd.ErrOrStderr()); err != nil {
		return errExit
	}
	return nil
}

// runTUI runs the interactive terminal UI.
func runTUI(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		defer f.Close()
		log = newLogger(f, cfg.Log.Level)
	}

	manager := newManager(cfg, log)
	defer manager.Close()

	// Get terminal size
	width, height := 80, 24
	fd := int(os.Stdout.Fd())
	if term.IsTerminal(fd) {
		if w, h, err := term.GetSize(fd); err == nil {
			width, height = w, h
		}
	}

	app := tui.NewApp(manager, cfg, log, width, height).WithContext(cmd.Context())
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(cmd.Context()))

	// Start config watcher for hot-reloading
	if cfg.Path() != "" {
		watcher, err := config.NewWatcher(cfg, log)
		if err != nil {
			log.Warn("failed to create config watcher", "error", err)
		} else {
			watcher.OnReload(func(c *config.Config) {
				manager.Configure(c.ReconnectPolicy(), c.GetStatementTimeout())
				p.Send(tui.ConfigReloadedMsg{UI: c.GetUI()})
			})
			if err := watcher.Start(); err != nil {
				log.Warn("failed to start config watcher", "error", err)
			} else {
				defer watcher.Stop()
			}
		}
	}

	log.Info("starting terminal ui", "version", version)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}
