package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Status  *StatusCommand
	Search  *SearchCommand
	Suggest *SuggestCommand
	History *HistoryCommand
	Add     *AddCommand
	Import  *ImportCommand
	Serve   *ServeCommand
	Purge   *PurgeCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "wordbook"
	parser.LongDescription = "Fast flashcard search with history-aware suggestions for the wordbook app."

	cmds := &commands{
		Status:  &StatusCommand{globals: &globals, version: version},
		Search:  &SearchCommand{globals: &globals, version: version},
		Suggest: &SuggestCommand{globals: &globals, version: version},
		History: &HistoryCommand{globals: &globals, version: version},
		Add:     &AddCommand{globals: &globals, version: version},
		Import:  &ImportCommand{globals: &globals, version: version},
		Serve:   &ServeCommand{globals: &globals, version: version},
		Purge:   &PurgeCommand{globals: &globals, version: version},
	}

	parser.AddCommand("status", "Show database statistics", "Show database statistics and configuration summary.", cmds.Status)
	parser.AddCommand("search", "Search flashcards", "Ranked full-text search over words, translations, pronunciations, and memos.", cmds.Search)
	parser.AddCommand("suggest", "Autocomplete a partial query", "Show autocomplete suggestions drawn from card content and search history.", cmds.Suggest)
	parser.AddCommand("history", "Inspect search history", "List, analyze, export, or clear the capped search history log.", cmds.History)
	parser.AddCommand("add", "Add a single flashcard", "Add a single flashcard to the deck.", cmds.Add)
	parser.AddCommand("import", "Import cards from a TSV file", "Bulk-import flashcards from a tab-separated file.", cmds.Import)
	parser.AddCommand("serve", "Start the HTTP API server", "Start the wordbook HTTP API server.", cmds.Serve)
	parser.AddCommand("purge", "Delete ALL wordbook data", "Delete ALL wordbook data. Destructive operation with safety prompt.", cmds.Purge)

	return parser, &globals, cmds
}

// Run is the main entry point for the wordbook CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// Handle --version before parser (go-flags requires a subcommand, but
	// --version is valid without one).
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("wordbook %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
