// Package tui implements the interactive terminal front end: a connection
// form, a statement editor, a command bar and a result list.
package tui

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/johan-st/simplequery/internal/config"
	"github.com/johan-st/simplequery/internal/database"
	"github.com/johan-st/simplequery/internal/editor"
	"github.com/johan-st/simplequery/internal/present"
)

// Focus represents which control has keyboard focus
type Focus int

const (
	FocusDBName Focus = iota
	FocusHost
	FocusUser
	FocusPort
	FocusPassword
	FocusEditor
	FocusTableName
	FocusResults

	focusCount
)

// connection form fields, in FocusDBName..FocusPassword order
var formLabels = [...]string{"Database", "Host", "User", "Port", "Password"}

const (
	formHeight   = len(formLabels) + 2 // rows plus border
	editorLines  = 5
	editorHeight = editorLines + 2
	minWidth     = 40
	minHeight    = 20
)

// lineItem is one presenter line in the result list.
type lineItem string

func (i lineItem) FilterValue() string { return string(i) }

// lineDelegate renders result lines without the default list decoration so
// that columns stay aligned.
type lineDelegate struct {
	styles *Styles
}

func (d lineDelegate) Height() int                             { return 1 }
func (d lineDelegate) Spacing() int                            { return 0 }
func (d lineDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d lineDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	line, ok := item.(lineItem)
	if !ok {
		return
	}
	style := d.styles.Item
	if index == m.Index() {
		style = d.styles.Selected
	}
	fmt.Fprint(w, style.Render(runewidth.Truncate(string(line), m.Width(), "")))
}

// modal is a message box that must be dismissed before anything else.
type modal struct {
	title   string
	body    string
	isError bool
}

// App is the main TUI application model.
type App struct {
	// Dependencies
	manager   *database.Manager
	editor    *editor.Editor
	presenter *present.Presenter
	cfg       *config.Config
	log       *slog.Logger
	ctx       context.Context

	// Window size
	width, height int

	// Controls
	focus     Focus
	inputs    [len(formLabels)]textinput.Model
	query     textarea.Model
	tableName textinput.Model
	results   list.Model

	// State
	connected bool
	target    string
	busy      bool
	render    func(*present.Presenter) []string // current result list content
	status    string
	statusErr bool
	modal     *modal
	showHelp  bool

	styles Styles
	keys   KeyMap
}

// NewApp creates a new TUI application. The connection form is pre-filled
// from cfg; nothing connects until the user submits it.
func NewApp(manager *database.Manager, cfg *config.Config, log *slog.Logger, width, height int) *App {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	ui := cfg.GetUI()

	app := &App{
		manager:   manager,
		editor:    editor.New(),
		presenter: present.New(ui.ColumnWidth),
		cfg:       cfg,
		log:       log,
		ctx:       context.Background(),
		width:     width,
		height:    height,
		styles:    NewStyles(ui.Theme),
		keys:      DefaultKeyMap(),
		status:    "Not connected. Fill in the form and press enter.",
	}

	params := cfg.ConnectionParams()
	values := [...]string{params.DBName, params.Host, params.User, params.Port, params.Password}
	for i := range app.inputs {
		ti := textinput.New()
		ti.Prompt = ""
		ti.Placeholder = strings.ToLower(formLabels[i])
		ti.SetValue(values[i])
		app.inputs[i] = ti
	}
	app.inputs[FocusPassword].EchoMode = textinput.EchoPassword
	app.inputs[FocusPassword].EchoCharacter = '*'

	app.query = textarea.New()
	app.query.Placeholder = "SELECT * FROM ..."
	app.query.ShowLineNumbers = false
	app.query.CharLimit = 0

	app.tableName = textinput.New()
	app.tableName.Prompt = ""
	app.tableName.Placeholder = "table name"

	app.results = list.New([]list.Item{}, lineDelegate{styles: &app.styles}, width, height)
	app.results.SetShowTitle(false)
	app.results.SetShowStatusBar(false)
	app.results.SetShowPagination(false)
	app.results.SetFilteringEnabled(false)
	app.results.SetShowHelp(false)
	app.results.DisableQuitKeybindings()

	app.setFocus(FocusDBName)
	app.updateSizes()
	return app
}

// WithContext sets the context database calls run under.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return textinput.Blink
}

// connectCmd opens a session with the form's parameters.
func (a *App) connectCmd(params database.ConnectionParameters) tea.Cmd {
	return func() tea.Msg {
		err := a.manager.Connect(a.ctx, params)
		return ConnectedMsg{Params: params, SessionID: a.manager.SessionID(), Error: err}
	}
}

// executeCmd runs one statement.
func (a *App) executeCmd(query string) tea.Cmd {
	return func() tea.Msg {
		result, err := a.manager.Execute(a.ctx, query)
		return QueryExecutedMsg{Query: query, Result: result, Error: err}
	}
}

// listTablesCmd loads the table listing.
func (a *App) listTablesCmd() tea.Msg {
	tables, err := a.manager.ListTables(a.ctx)
	return TablesListedMsg{Tables: tables, Error: err}
}

// listColumnsCmd loads the columns of table.
func (a *App) listColumnsCmd(table string) tea.Cmd {
	return func() tea.Msg {
		columns, err := a.manager.ListColumns(a.ctx, table)
		return ColumnsListedMsg{Table: table, Columns: columns, Error: err}
	}
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return a.handleKey(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.updateSizes()
		return a, nil

	case ConnectedMsg:
		a.busy = false
		if msg.Error != nil {
			a.showError(msg.Error)
			// a failed connect keeps any previous session
			a.connected = a.manager.IsConnected()
			return a, nil
		}
		a.connected = true
		a.target = msg.Params.String()
		a.setStatus("Connected to "+a.target, false)
		a.log.Info("session ready", "target", a.target, "session", msg.SessionID)
		return a, a.setFocus(FocusEditor)

	case QueryExecutedMsg:
		a.busy = false
		if msg.Error != nil {
			a.showError(msg.Error)
			return a, nil
		}
		result := msg.Result
		cmd := a.show(func(p *present.Presenter) []string { return p.Result(result) })
		a.setStatus(present.Summary(result), false)
		if !result.IsSelect {
			a.modal = &modal{title: "Success", body: result.Status}
		}
		return a, cmd

	case TablesListedMsg:
		a.busy = false
		if msg.Error != nil {
			a.showError(msg.Error)
			return a, nil
		}
		tables := msg.Tables
		a.setStatus(fmt.Sprintf("%d tables", len(tables)), false)
		return a, a.show(func(p *present.Presenter) []string { return p.Names(tables) })

	case ColumnsListedMsg:
		a.busy = false
		if msg.Error != nil {
			a.showError(msg.Error)
			return a, nil
		}
		columns := msg.Columns
		a.setStatus(fmt.Sprintf("%d columns in %s", len(columns), msg.Table), false)
		return a, a.show(func(p *present.Presenter) []string { return p.Names(columns) })

	case ConfigReloadedMsg:
		a.styles = NewStyles(msg.UI.Theme)
		a.presenter = present.New(msg.UI.ColumnWidth)
		a.log.Debug("ui settings reloaded", "column_width", a.presenter.Width())
		if a.render != nil {
			return a, a.show(a.render)
		}
		return a, nil
	}

	return a, a.updateFocused(msg)
}

// handleKey processes key presses.
func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, a.keys.Quit) {
		return a, tea.Quit
	}

	// Handle message box
	if a.modal != nil {
		if key.Matches(msg, a.keys.Back) || key.Matches(msg, a.keys.Submit) {
			a.modal = nil
		}
		return a, nil
	}

	// Handle help overlay
	if a.showHelp {
		if key.Matches(msg, a.keys.Back) || key.Matches(msg, a.keys.Help) {
			a.showHelp = false
		}
		return a, nil
	}

	switch {
	case key.Matches(msg, a.keys.Help):
		a.showHelp = true
		return a, nil

	case key.Matches(msg, a.keys.NextField):
		return a, a.setFocus((a.focus + 1) % focusCount)

	case key.Matches(msg, a.keys.PrevField):
		return a, a.setFocus((a.focus + focusCount - 1) % focusCount)

	case key.Matches(msg, a.keys.Execute):
		return a.handleExecute()

	case key.Matches(msg, a.keys.HistoryPrev):
		a.syncEditor()
		a.query.SetValue(a.editor.Prev())
		return a, nil

	case key.Matches(msg, a.keys.HistoryNext):
		a.syncEditor()
		a.query.SetValue(a.editor.Next())
		return a, nil

	case key.Matches(msg, a.keys.Tables):
		return a.handleListTables()

	case key.Matches(msg, a.keys.Columns):
		return a.handleListColumns()

	case key.Matches(msg, a.keys.Submit):
		switch {
		case a.focus <= FocusPassword:
			return a.handleConnect()
		case a.focus == FocusTableName:
			return a.handleListColumns()
		}
	}

	return a, a.updateFocused(msg)
}

// handleConnect starts a connect with the form's values.
func (a *App) handleConnect() (tea.Model, tea.Cmd) {
	if a.busy {
		a.setStatus("Busy, wait for the current command to finish.", true)
		return a, nil
	}
	params := a.formParams()
	a.busy = true
	a.setStatus("Connecting to "+params.String()+"...", false)
	return a, a.connectCmd(params)
}

// handleExecute submits the editor text.
func (a *App) handleExecute() (tea.Model, tea.Cmd) {
	if !a.ready() {
		return a, nil
	}
	a.syncEditor()
	stmt, err := a.editor.Submit()
	if err != nil {
		a.setStatus(err.Error(), true)
		return a, nil
	}
	a.query.SetValue(stmt)
	a.busy = true
	a.setStatus("Executing...", false)
	return a, a.executeCmd(stmt)
}

func (a *App) handleListTables() (tea.Model, tea.Cmd) {
	if !a.ready() {
		return a, nil
	}
	a.busy = true
	a.setStatus("Listing tables...", false)
	return a, a.listTablesCmd
}

func (a *App) handleListColumns() (tea.Model, tea.Cmd) {
	if !a.ready() {
		return a, nil
	}
	a.busy = true
	a.setStatus("Listing columns...", false)
	return a, a.listColumnsCmd(a.tableName.Value())
}

// ready reports whether a database action may start, and says why not in
// the status bar otherwise.
func (a *App) ready() bool {
	switch {
	case !a.connected:
		a.setStatus("Not connected. Fill in the form and press enter.", true)
		return false
	case a.busy:
		a.setStatus("Busy, wait for the current command to finish.", true)
		return false
	}
	return true
}

// syncEditor copies edits made in the textarea into the editor. Unchanged
// text keeps the editor's place in the recall list.
func (a *App) syncEditor() {
	if v := a.query.Value(); v != a.editor.Text() {
		a.editor.SetText(v)
	}
}

// formParams builds connection parameters from the form. Driver and SSL
// mode come from the configuration.
func (a *App) formParams() database.ConnectionParameters {
	params := a.cfg.ConnectionParams()
	params.DBName = a.inputs[FocusDBName].Value()
	params.Host = a.inputs[FocusHost].Value()
	params.User = a.inputs[FocusUser].Value()
	params.Port = a.inputs[FocusPort].Value()
	params.Password = a.inputs[FocusPassword].Value()
	return params
}

// show replaces the result list with the lines produced by render.
func (a *App) show(render func(*present.Presenter) []string) tea.Cmd {
	a.render = render
	lines := render(a.presenter)
	items := make([]list.Item, len(lines))
	for i, l := range lines {
		items[i] = lineItem(l)
	}
	cmd := a.results.SetItems(items)
	a.results.Select(0)
	return cmd
}

func (a *App) showError(err error) {
	a.log.Warn("command failed", "error", err)
	a.modal = &modal{title: present.ErrorTitle(err), body: err.Error(), isError: true}
	a.setStatus(present.ErrorTitle(err), true)
}

func (a *App) setStatus(s string, isErr bool) {
	a.status = s
	a.statusErr = isErr
}

// setFocus moves keyboard focus to f.
func (a *App) setFocus(f Focus) tea.Cmd {
	a.focus = f
	for i := range a.inputs {
		a.inputs[i].Blur()
	}
	a.query.Blur()
	a.tableName.Blur()

	switch {
	case f <= FocusPassword:
		return a.inputs[f].Focus()
	case f == FocusEditor:
		return a.query.Focus()
	case f == FocusTableName:
		return a.tableName.Focus()
	}
	return nil
}

// updateFocused forwards msg to the focused control.
func (a *App) updateFocused(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch {
	case a.focus <= FocusPassword:
		a.inputs[a.focus], cmd = a.inputs[a.focus].Update(msg)
	case a.focus == FocusEditor:
		a.query, cmd = a.query.Update(msg)
	case a.focus == FocusTableName:
		a.tableName, cmd = a.tableName.Update(msg)
	case a.focus == FocusResults:
		a.results, cmd = a.results.Update(msg)
	}
	return cmd
}

func (a *App) updateSizes() {
	inner := a.width - 4 // border and padding
	if inner < 1 {
		inner = 1
	}
	for i := range a.inputs {
		a.inputs[i].Width = inner - 12
	}
	a.tableName.Width = inner / 3
	a.query.SetWidth(inner)
	a.query.SetHeight(editorLines)

	resultsHeight := a.height - formHeight - editorHeight - 2 - 2 // bars and border
	if resultsHeight < 1 {
		resultsHeight = 1
	}
	a.results.SetSize(inner, resultsHeight)
}

// View implements tea.Model.
func (a *App) View() string {
	if a.width < minWidth || a.height < minHeight {
		return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center,
			a.styles.Error.Render(fmt.Sprintf("Terminal too small\nMin: %dx%d", minWidth, minHeight)))
	}

	if a.modal != nil {
		return a.renderModal()
	}
	if a.showHelp {
		return a.renderHelp()
	}

	var b strings.Builder
	b.WriteString(a.renderForm())
	b.WriteString("\n")
	b.WriteString(a.pane(FocusEditor).Render(a.query.View()))
	b.WriteString("\n")
	b.WriteString(a.renderCommandBar())
	b.WriteString("\n")
	b.WriteString(a.pane(FocusResults).Render(a.renderResults()))
	b.WriteString("\n")
	b.WriteString(a.renderStatusBar())
	return b.String()
}

func (a *App) pane(f Focus) lipgloss.Style {
	style := a.styles.Pane
	if a.focus == f || (f == FocusDBName && a.focus <= FocusPassword) {
		style = a.styles.FocusedPane
	}
	return style.Width(a.width - 2)
}

func (a *App) renderForm() string {
	rows := make([]string, len(a.inputs))
	for i := range a.inputs {
		rows[i] = a.styles.Label.Render(formLabels[i]) + " " + a.inputs[i].View()
	}
	return a.pane(FocusDBName).Render(strings.Join(rows, "\n"))
}

func (a *App) renderCommandBar() string {
	label := a.styles.StatusKey.Render("Table:")
	hint := a.styles.Dim.Render(fmt.Sprintf("  %s tables  %s columns  %s run",
		a.keys.Tables.Help().Key, a.keys.Columns.Help().Key, a.keys.Execute.Help().Key))
	return " " + label + " " + a.tableName.View() + hint
}

func (a *App) renderResults() string {
	if len(a.results.Items()) == 0 {
		return a.styles.Dim.Render("No results")
	}
	return a.results.View()
}

func (a *App) renderStatusBar() string {
	var indicator string
	if a.connected {
		indicator = a.styles.Connected.Render("●")
	} else {
		indicator = a.styles.Disconnected.Render("●")
	}

	left := []string{indicator, a.styles.Title.Render("simplequery")}
	if a.connected {
		left = append(left, a.styles.StatusValue.Render(a.target))
	}

	status := a.styles.StatusValue.Render(a.status)
	if a.statusErr {
		status = a.styles.Error.Render(a.status)
	}
	right := []string{status}
	if n := len(a.results.Items()); n > 0 {
		right = append(right, a.styles.Dim.Render(fmt.Sprintf("| line %d/%d", a.results.Index()+1, n)))
	}
	right = append(right, a.styles.Dim.Render("| f1:help ^c:quit"))

	leftContent := strings.Join(left, " ")
	rightContent := strings.Join(right, " ")
	padding := a.width - lipgloss.Width(leftContent) - lipgloss.Width(rightContent) - 2
	if padding < 1 {
		padding = 1
	}

	content := leftContent + strings.Repeat(" ", padding) + rightContent
	return a.styles.StatusBar.Width(a.width).Render(content)
}

func (a *App) renderModal() string {
	style := a.styles.Modal
	title := a.styles.Title.Render(a.modal.title)
	if a.modal.isError {
		style = a.styles.ModalError
		title = a.styles.Error.Render(a.modal.title)
	}

	body := lipgloss.NewStyle().Width(min(60, a.width-10)).Render(a.modal.body)
	content := title + "\n\n" + body + "\n\n" + a.styles.Dim.Render("Press Enter or Esc to close")
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, style.Render(content))
}

func (a *App) renderHelp() string {
	var b strings.Builder
	for _, group := range a.keys.FullHelp() {
		for _, binding := range group {
			h := binding.Help()
			b.WriteString(a.styles.HelpKey.Render(fmt.Sprintf("%-12s", h.Key)))
			b.WriteString(a.styles.HelpDesc.Render(h.Desc))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(a.styles.Dim.Render("Press f1 or Esc to close"))

	modal := a.styles.Modal.Render(a.styles.Title.Render("Help") + "\n\n" + b.String())
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, modal)
}
