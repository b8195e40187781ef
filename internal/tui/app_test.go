package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/johan-st/simplequery/internal/config"
	"github.com/johan-st/simplequery/internal/database"
	"github.com/johan-st/simplequery/internal/testutil"
)

func newTestApp(t *testing.T, dbPath string) *App {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Connection = database.ConnectionParameters{Driver: database.DriverSQLite, DBName: dbPath}

	manager := database.NewManager(database.Options{Reconnect: database.NoReconnect()})
	t.Cleanup(func() { manager.Close() })

	return NewApp(manager, cfg, nil, 120, 40)
}

func press(a *App, k tea.KeyType) tea.Cmd {
	_, cmd := a.Update(tea.KeyMsg{Type: k})
	return cmd
}

// deliver runs a database command and feeds its message back into the app.
func deliver(t *testing.T, a *App, cmd tea.Cmd) tea.Msg {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	msg := cmd()
	a.Update(msg)
	return msg
}

func lines(a *App) []string {
	items := a.results.Items()
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = strings.TrimRight(string(it.(lineItem)), " ")
	}
	return out
}

func connect(t *testing.T, a *App) {
	t.Helper()
	msg := deliver(t, a, press(a, tea.KeyEnter))
	if cm, ok := msg.(ConnectedMsg); !ok || cm.Error != nil {
		t.Fatalf("connect failed: %#v", msg)
	}
}

func TestApp_FormPrefilled(t *testing.T) {
	dbPath := testutil.UsersDB(t)
	a := newTestApp(t, dbPath)

	if got := a.inputs[FocusDBName].Value(); got != dbPath {
		t.Errorf("dbname input = %q, want %q", got, dbPath)
	}
	if a.inputs[FocusPassword].EchoCharacter != '*' {
		t.Error("password should be masked with *")
	}
	if a.focus != FocusDBName {
		t.Errorf("initial focus = %v, want FocusDBName", a.focus)
	}
}

func TestApp_ActionsIgnoredWhenDisconnected(t *testing.T) {
	a := newTestApp(t, testutil.UsersDB(t))

	for _, k := range []tea.KeyType{tea.KeyCtrlE, tea.KeyF5, tea.KeyCtrlT, tea.KeyCtrlO} {
		if cmd := press(a, k); cmd != nil {
			t.Errorf("key %v returned a command while disconnected", k)
		}
		if !a.statusErr || !strings.Contains(a.status, "Not connected") {
			t.Errorf("key %v: status = %q, want a not-connected hint", k, a.status)
		}
	}
	if a.busy {
		t.Error("app should not be busy")
	}
}

func TestApp_ConnectAndExecute(t *testing.T) {
	a := newTestApp(t, testutil.UsersDB(t))
	connect(t, a)

	if !a.connected {
		t.Fatal("expected connected indicator")
	}
	if a.focus != FocusEditor {
		t.Errorf("focus after connect = %v, want FocusEditor", a.focus)
	}

	a.query.SetValue("SELECT id, name FROM users ORDER BY id")
	msg := deliver(t, a, press(a, tea.KeyCtrlE))

	qm := msg.(QueryExecutedMsg)
	if qm.Query != "SELECT id, name FROM users ORDER BY id;" {
		t.Errorf("executed %q, want terminator appended", qm.Query)
	}
	if a.query.Value() != qm.Query {
		t.Errorf("editor text = %q, want normalized statement", a.query.Value())
	}

	got := lines(a)
	if len(got) != 4 {
		t.Fatalf("got %d lines, want 4: %q", len(got), got)
	}
	if !strings.HasPrefix(got[0], "ID") || !strings.Contains(got[0], "NAME") {
		t.Errorf("header line = %q", got[0])
	}
	if !strings.HasPrefix(got[1], "1") || !strings.HasSuffix(got[1], "Alice") {
		t.Errorf("first row = %q", got[1])
	}
	if a.busy || a.modal != nil {
		t.Errorf("busy=%v modal=%+v after select", a.busy, a.modal)
	}
}

func TestApp_WriteShowsSuccess(t *testing.T) {
	a := newTestApp(t, testutil.UsersDB(t))
	connect(t, a)

	a.query.SetValue("DELETE FROM posts WHERE id = 3")
	deliver(t, a, press(a, tea.KeyF5))

	if a.modal == nil || a.modal.title != "Success" || a.modal.isError {
		t.Fatalf("modal = %+v, want success notice", a.modal)
	}
	if got := lines(a); len(got) != 1 || got[0] != database.SuccessStatus {
		t.Errorf("lines = %q", got)
	}

	// the message box swallows keys until dismissed
	if cmd := press(a, tea.KeyCtrlT); cmd != nil {
		t.Error("keys should be ignored while the message box is open")
	}
	press(a, tea.KeyEsc)
	if a.modal != nil {
		t.Error("esc should dismiss the message box")
	}
}

func TestApp_ConnectFailure(t *testing.T) {
	a := newTestApp(t, t.TempDir()+"/missing/db.sqlite")

	msg := deliver(t, a, press(a, tea.KeyEnter))
	if msg.(ConnectedMsg).Error == nil {
		t.Fatal("expected connection error")
	}
	if a.connected {
		t.Error("indicator should stay disconnected")
	}
	if a.modal == nil || a.modal.title != "Connection error" {
		t.Errorf("modal = %+v", a.modal)
	}
}

func TestApp_ExecutionError(t *testing.T) {
	a := newTestApp(t, testutil.UsersDB(t))
	connect(t, a)

	a.query.SetValue("SELEC broken")
	deliver(t, a, press(a, tea.KeyCtrlE))

	if a.modal == nil || a.modal.title != "Execution error" || !a.modal.isError {
		t.Fatalf("modal = %+v", a.modal)
	}
	if !a.connected {
		t.Error("a statement error must not drop the session")
	}
}

func TestApp_ListTablesAndColumns(t *testing.T) {
	a := newTestApp(t, testutil.UsersDB(t))
	connect(t, a)

	deliver(t, a, press(a, tea.KeyCtrlT))
	if got := strings.Join(lines(a), ","); got != "audit,posts,users" {
		t.Errorf("tables = %q", got)
	}

	a.tableName.SetValue("users")
	deliver(t, a, press(a, tea.KeyCtrlO))
	if got := strings.Join(lines(a), ","); got != "id,name,email,tags" {
		t.Errorf("columns = %q", got)
	}
}

func TestApp_ColumnsNameError(t *testing.T) {
	tests := []struct {
		table string
		want  string
	}{
		{"nonexistent_table", `Table "nonexistent_table" does not exist.`},
		{"", `Table "<Empty>" does not exist.`},
	}
	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			a := newTestApp(t, testutil.UsersDB(t))
			connect(t, a)

			a.tableName.SetValue(tt.table)
			deliver(t, a, press(a, tea.KeyCtrlO))

			if a.modal == nil || a.modal.title != "Name error" {
				t.Fatalf("modal = %+v", a.modal)
			}
			if a.modal.body != tt.want {
				t.Errorf("body = %q, want %q", a.modal.body, tt.want)
			}
		})
	}
}

func TestApp_OneCommandAtATime(t *testing.T) {
	a := newTestApp(t, testutil.UsersDB(t))
	connect(t, a)

	a.query.SetValue("SELECT 1")
	pending := press(a, tea.KeyCtrlE)
	if pending == nil || !a.busy {
		t.Fatal("expected a pending statement")
	}
	if cmd := press(a, tea.KeyCtrlT); cmd != nil {
		t.Error("second command should be refused while busy")
	}
	if !strings.Contains(a.status, "Busy") {
		t.Errorf("status = %q", a.status)
	}

	a.Update(pending())
	if a.busy {
		t.Error("busy flag should clear when the result arrives")
	}
}

func TestApp_HistoryRecall(t *testing.T) {
	a := newTestApp(t, testutil.UsersDB(t))
	connect(t, a)

	for _, q := range []string{"SELECT 1", "SELECT 2"} {
		a.query.SetValue(q)
		deliver(t, a, press(a, tea.KeyCtrlE))
	}

	a.query.SetValue("draft")
	press(a, tea.KeyCtrlP)
	if a.query.Value() != "SELECT 2;" {
		t.Errorf("after ctrl+p: %q", a.query.Value())
	}
	press(a, tea.KeyCtrlP)
	if a.query.Value() != "SELECT 1;" {
		t.Errorf("after 2x ctrl+p: %q", a.query.Value())
	}
	press(a, tea.KeyCtrlN)
	press(a, tea.KeyCtrlN)
	if a.query.Value() != "draft" {
		t.Errorf("draft not restored: %q", a.query.Value())
	}
}

func TestApp_FocusCycle(t *testing.T) {
	a := newTestApp(t, testutil.UsersDB(t))

	for want := FocusHost; want < focusCount; want++ {
		press(a, tea.KeyTab)
		if a.focus != want {
			t.Fatalf("focus = %v, want %v", a.focus, want)
		}
	}
	press(a, tea.KeyTab)
	if a.focus != FocusDBName {
		t.Errorf("focus should wrap to the first field, got %v", a.focus)
	}
	press(a, tea.KeyShiftTab)
	if a.focus != FocusResults {
		t.Errorf("shift+tab should wrap backwards, got %v", a.focus)
	}
}

func TestApp_ConfigReload(t *testing.T) {
	a := newTestApp(t, testutil.UsersDB(t))
	connect(t, a)
	deliver(t, a, press(a, tea.KeyCtrlT))

	ui := config.DefaultConfig().UI
	ui.ColumnWidth = 3
	a.Update(ConfigReloadedMsg{UI: ui})

	if a.presenter.Width() != 3 {
		t.Errorf("presenter width = %d, want 3", a.presenter.Width())
	}
	if got := strings.Join(lines(a), ","); got != "aud,pos,use" {
		t.Errorf("re-rendered lines = %q", got)
	}
}

func TestApp_View(t *testing.T) {
	a := newTestApp(t, testutil.UsersDB(t))
	if !strings.Contains(a.View(), "Database") {
		t.Error("view should show the connection form")
	}

	a.Update(tea.WindowSizeMsg{Width: 20, Height: 5})
	if !strings.Contains(a.View(), "Terminal too small") {
		t.Error("expected size warning")
	}
}
