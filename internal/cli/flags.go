package cli

import "database/sql"

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable verbose output"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// StatusCommand — show database stats and config summary.
type StatusCommand struct {
	globals *GlobalFlags
	version string
}

// SearchCommand — ranked full-text search over the card deck.
// The query is taken from positional arguments.
type SearchCommand struct {
	Folder string `long:"folder" description:"Restrict search to one folder"`
	Sort   string `long:"sort" description:"Sort results by: relevance | created | word" default:"relevance"`
	Order  string `long:"order" description:"Sort direction: asc | desc" default:"desc"`
	From   string `long:"from" description:"Only cards created on or after this date (YYYY-MM-DD or RFC 3339)"`
	To     string `long:"to" description:"Only cards created on or before this date"`
	Limit  int    `long:"limit" description:"Maximum results" default:"20"`

	globals *GlobalFlags
	version string
}

// SuggestCommand — autocomplete suggestions for a partial query.
type SuggestCommand struct {
	Plain bool `long:"plain" description:"Print bare suggestion text without source labels"`

	globals *GlobalFlags
	version string
}

// HistoryCommand — inspect and manage the capped search history log.
// The first positional argument selects the action:
// list | frequent | stats | export | remove <id> | clear.
type HistoryCommand struct {
	Limit int `long:"limit" description:"Maximum entries to show" default:"0"`

	globals *GlobalFlags
	version string
}

// AddCommand — add a single flashcard to the deck.
type AddCommand struct {
	Word          string `long:"word" description:"Front of the card (required)"`
	Translation   string `long:"translation" description:"Back of the card (required)"`
	Pronunciation string `long:"pronunciation" description:"Optional reading or phonetics"`
	Memo          string `long:"memo" description:"Optional free-form note"`
	Folder        string `long:"folder" description:"Folder name (created if missing)"`

	globals *GlobalFlags
	version string
}

// ImportCommand — bulk-import cards from a tab-separated file.
// The file path is taken from the first positional argument.
type ImportCommand struct {
	Folder string `long:"folder" description:"Folder for imported cards (created if missing)"`
	DryRun bool   `long:"dry-run" description:"Parse and report without writing anything"`

	globals *GlobalFlags
	version string
}

// ServeCommand — start the wordbook HTTP API server.
type ServeCommand struct {
	Host     string `long:"host" description:"Override listen host"`
	Port     int    `long:"port" description:"Override listen port"`
	LogLevel string `long:"log-level" description:"Override log level"`

	globals *GlobalFlags
	version string
}

// PurgeCommand — delete ALL wordbook data with safety confirmation.
type PurgeCommand struct {
	All   bool `long:"all" description:"Required flag to confirm purge intent"`
	Force bool `long:"force" description:"Skip safety confirmation prompt"`

	globals *GlobalFlags
	version string
	db      *sql.DB // injectable for testing; nil means open the configured DB
}
