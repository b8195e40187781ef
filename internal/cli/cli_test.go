package cli

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/johan-st/simplequery/internal/database"
	"github.com/johan-st/simplequery/internal/present"
	"github.com/johan-st/simplequery/internal/testutil"
)

// testEnv sets up a handler against a seeded database.
type testEnv struct {
	t       *testing.T
	dbPath  string
	manager *database.Manager
	handler *Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dbPath := testutil.UsersDB(t)
	params := database.ConnectionParameters{Driver: database.DriverSQLite, DBName: dbPath}

	manager := database.NewManager(database.Options{Reconnect: database.NoReconnect()})
	t.Cleanup(func() { manager.Close() })

	return &testEnv{
		t:       t,
		dbPath:  dbPath,
		manager: manager,
		handler: NewHandler(manager, params, present.New(10), "test", nil),
	}
}

func (e *testEnv) run(args ...string) (stdout, stderr string, err error) {
	var capture testutil.OutputCapture
	out, errOut := capture.Writers()
	err = e.handler.Run(context.Background(), args, out, errOut)
	return capture.Stdout(), capture.Stderr(), err
}

func TestCLI_Query_SelectList(t *testing.T) {
	env := newTestEnv(t)

	stdout, stderr, err := env.run("query", "SELECT id, name FROM users ORDER BY id")
	if err != nil {
		t.Fatalf("query failed: %v (stderr=%q)", err, stderr)
	}

	lines := strings.Split(strings.TrimRight(stdout, "\n"), "\n")
	want := []string{
		"ID        NAME      ",
		"1         Alice     ",
		"2         Bob       ",
		"3         Carol     ",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d:\n%s", len(lines), len(want), stdout)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
	if !strings.Contains(stderr, "3 rows") {
		t.Errorf("expected row count on stderr, got %q", stderr)
	}
}

func TestCLI_Query_StripsArrayBraces(t *testing.T) {
	env := newTestEnv(t)

	stdout, _, err := env.run("query", "SELECT tags FROM users WHERE id = 1")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if !strings.Contains(stdout, "admin,dev ") {
		t.Errorf("expected braces stripped, got %q", stdout)
	}
}

func TestCLI_Query_Write(t *testing.T) {
	env := newTestEnv(t)

	stdout, stderr, err := env.run("query", "UPDATE posts SET published = 1 WHERE user_id = 1")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if strings.TrimSpace(stdout) != database.SuccessStatus {
		t.Errorf("stdout = %q, want success status", stdout)
	}
	if !strings.Contains(stderr, "2 rows affected") {
		t.Errorf("stderr = %q, want rows affected", stderr)
	}
}

func TestCLI_Query_JSONFormat(t *testing.T) {
	env := newTestEnv(t)

	stdout, _, err := env.run("query", "SELECT id, name, tags FROM users ORDER BY id", "--format=json")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}

	var res struct {
		Columns []string `json:"columns"`
		Rows    [][]any  `json:"rows"`
	}
	if err := json.Unmarshal([]byte(stdout), &res); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, stdout)
	}
	if strings.Join(res.Columns, ",") != "id,name,tags" {
		t.Errorf("columns = %v", res.Columns)
	}
	if len(res.Rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(res.Rows))
	}
	if res.Rows[0][1] != "Alice" {
		t.Errorf("rows[0].name = %v", res.Rows[0][1])
	}
	if res.Rows[1][2] != nil {
		t.Errorf("rows[1].tags = %v, want null", res.Rows[1][2])
	}
}

func TestCLI_Query_JSONDuplicateColumns(t *testing.T) {
	env := newTestEnv(t)

	stdout, _, err := env.run("query", "SELECT 1 AS a, 2 AS a", "--format=json")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}

	var res struct {
		Columns []string `json:"columns"`
		Rows    [][]any  `json:"rows"`
	}
	if err := json.Unmarshal([]byte(stdout), &res); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, stdout)
	}
	if len(res.Columns) != 2 || len(res.Rows) != 1 || len(res.Rows[0]) != 2 {
		t.Fatalf("both columns should survive: %s", stdout)
	}
	if res.Rows[0][0] != float64(1) || res.Rows[0][1] != float64(2) {
		t.Errorf("row = %v, want [1 2]", res.Rows[0])
	}
}

func TestCLI_Query_JSONEmpty(t *testing.T) {
	env := newTestEnv(t)

	stdout, _, err := env.run("query", "SELECT id FROM users WHERE id < 0", "--format=json")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if !strings.Contains(stdout, `"rows": []`) {
		t.Errorf("empty result should have an empty rows array: %s", stdout)
	}
}

func TestCLI_Query_CSVFormat(t *testing.T) {
	env := newTestEnv(t)

	stdout, _, err := env.run("query", "SELECT name, tags FROM users ORDER BY id", "--format=csv")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	want := "name,tags\nAlice,\"{admin,dev}\"\nBob,NULL\nCarol,{dev}\n"
	if stdout != want {
		t.Errorf("csv output = %q, want %q", stdout, want)
	}
}

func TestCLI_Query_TableFormat(t *testing.T) {
	env := newTestEnv(t)

	stdout, _, err := env.run("query", "SELECT name FROM users ORDER BY id", "--format=table")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	for _, want := range []string{"name", "Alice", "Carol", "+"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("table output missing %q:\n%s", want, stdout)
		}
	}
}

func TestCLI_Query_Errors(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"missing sql", []string{"query"}, "Usage: query"},
		{"blank sql", []string{"query", ";"}, "nothing to execute"},
		{"syntax error", []string{"query", "SELEC nonsense"}, "Execution error"},
		{"unknown format", []string{"query", "SELECT 1", "--format=xml"}, "Unknown format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			_, stderr, err := env.run(tt.args...)
			if err == nil {
				t.Fatal("expected command to fail")
			}
			if !strings.Contains(stderr, tt.wantErr) {
				t.Errorf("stderr = %q, want it to contain %q", stderr, tt.wantErr)
			}
		})
	}
}

func TestCLI_Query_ConnectionFailure(t *testing.T) {
	manager := database.NewManager(database.Options{})
	params := database.ConnectionParameters{Driver: database.DriverSQLite, DBName: t.TempDir() + "/missing/x.db"}
	h := NewHandler(manager, params, nil, "test", nil)

	var capture testutil.OutputCapture
	out, errOut := capture.Writers()
	if err := h.Run(context.Background(), []string{"query", "SELECT 1"}, out, errOut); err == nil {
		t.Fatal("expected connection failure")
	}
	if !strings.HasPrefix(capture.Stderr(), "Connection error:") {
		t.Errorf("stderr = %q", capture.Stderr())
	}
	if manager.IsConnected() {
		t.Error("manager should stay disconnected")
	}
}

func TestCLI_Tables(t *testing.T) {
	env := newTestEnv(t)

	stdout, _, err := env.run("tables", "--format=json")
	if err != nil {
		t.Fatalf("tables failed: %v", err)
	}
	var tables []string
	if err := json.Unmarshal([]byte(stdout), &tables); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if strings.Join(tables, ",") != "audit,posts,users" {
		t.Errorf("tables = %v", tables)
	}

	stdout, _, err = env.run("tables")
	if err != nil {
		t.Fatalf("tables failed: %v", err)
	}
	if !strings.HasPrefix(stdout, "audit     \nposts") {
		t.Errorf("list output = %q", stdout)
	}
}

func TestCLI_Columns(t *testing.T) {
	env := newTestEnv(t)

	stdout, _, err := env.run("columns", "posts", "--format=csv")
	if err != nil {
		t.Fatalf("columns failed: %v", err)
	}
	want := "column\nid\nuser_id\ntitle\npublished\n"
	if stdout != want {
		t.Errorf("columns = %q, want %q", stdout, want)
	}
}

func TestCLI_Columns_UnknownTable(t *testing.T) {
	env := newTestEnv(t)

	_, stderr, err := env.run("columns", "nonexistent_table")
	if err == nil {
		t.Fatal("expected failure")
	}
	want := `Name error: Table "nonexistent_table" does not exist.`
	if strings.TrimSpace(stderr) != want {
		t.Errorf("stderr = %q, want %q", stderr, want)
	}
}

func TestCLI_Columns_MissingArg(t *testing.T) {
	env := newTestEnv(t)

	_, stderr, err := env.run("columns")
	if err == nil || !strings.Contains(stderr, "Missing required argument: table") {
		t.Errorf("err = %v, stderr = %q", err, stderr)
	}
	if env.manager.IsConnected() {
		t.Error("argument errors should not open a session")
	}
}

func TestCLI_DashLedArguments(t *testing.T) {
	env := newTestEnv(t)

	stdout, stderr, err := env.run("query", "--format=csv", "--", "-- count users\nSELECT COUNT(*) AS n FROM users")
	if err != nil {
		t.Fatalf("comment-led statement failed: %v (stderr=%q)", err, stderr)
	}
	if stdout != "n\n3\n" {
		t.Errorf("stdout = %q", stdout)
	}

	_, stderr, err = env.run("columns", "--", "-x")
	if err == nil {
		t.Fatal("expected failure for unknown table")
	}
	if want := `Name error: Table "-x" does not exist.`; strings.TrimSpace(stderr) != want {
		t.Errorf("stderr = %q, want %q", stderr, want)
	}
}

func TestCommandContext_ArgsEnd(t *testing.T) {
	ctx := &CommandContext{Args: []string{"a", "--format=json", "--", "--format=csv", "-b"}}

	if got := ctx.GetFlag("format"); got != "json" {
		t.Errorf("GetFlag = %q, want json", got)
	}
	if got := strings.Join(ctx.GetPositionalArgs(), " "); got != "a --format=csv -b" {
		t.Errorf("GetPositionalArgs = %q", got)
	}
}

func TestCLI_Info(t *testing.T) {
	env := newTestEnv(t)

	stdout, _, err := env.run("info")
	if err != nil {
		t.Fatalf("info failed: %v", err)
	}
	for _, want := range []string{"sqlite:" + env.dbPath, "Driver:\tsqlite", "Session:\t" + env.manager.SessionID(), "Ping:\t", "Size:"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("info output missing %q:\n%s", want, stdout)
		}
	}
}

func TestCLI_UnknownCommand(t *testing.T) {
	env := newTestEnv(t)

	_, stderr, err := env.run("nonexistent-command")
	if err == nil {
		t.Error("expected error")
	}
	if !strings.Contains(stderr, "Unknown command") {
		t.Errorf("expected unknown command error, got: %s", stderr)
	}
}

func TestCLI_Version(t *testing.T) {
	env := newTestEnv(t)

	stdout, _, _ := env.run("version")
	if strings.TrimSpace(stdout) != "simplequery test" {
		t.Errorf("version = %q", stdout)
	}
	if env.manager.IsConnected() {
		t.Error("version should not connect")
	}
}
