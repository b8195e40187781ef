package tui

import (
	"github.com/johan-st/simplequery/internal/config"
	"github.com/johan-st/simplequery/internal/database"
)

// Messages for async operations

// ConnectedMsg is sent when a connect attempt finishes.
type ConnectedMsg struct {
	Params    database.ConnectionParameters
	SessionID string
	Error     error
}

// QueryExecutedMsg is sent when a statement is executed.
type QueryExecutedMsg struct {
	Query  string
	Result *database.QueryResult
	Error  error
}

// TablesListedMsg is sent when the table listing arrives.
type TablesListedMsg struct {
	Tables []string
	Error  error
}

// ColumnsListedMsg is sent when the column listing of a table arrives.
type ColumnsListedMsg struct {
	Table   string
	Columns []string
	Error   error
}

// ConfigReloadedMsg is sent when the config file changed on disk.
type ConfigReloadedMsg struct {
	UI config.UIConfig
}
