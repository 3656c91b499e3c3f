package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/runnerr0/wordbook/internal/history"
	"github.com/runnerr0/wordbook/internal/storage"
)

// Execute implements the go-flags Commander interface for SearchCommand.
func (c *SearchCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}

	store, db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer store.Close()

	log, err := newLogger(c.globals != nil && c.globals.Verbose, cfg.Logging.Level)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	hist := history.New(db, log, history.Options{
		MaxEntries: cfg.History.MaxEntries,
		MinPrefix:  cfg.Search.SuggestMinChars,
	})

	return c.executeWithStore(store, hist, args)
}

// executeWithStore runs the search against a provided store (for testing).
func (c *SearchCommand) executeWithStore(store *storage.SQLiteStore, hist *history.Service, args []string) error {
	query := strings.TrimSpace(strings.Join(args, " "))

	filters, err := c.buildFilters()
	if err != nil {
		return err
	}

	// A blank query returns nothing and never touches the database.
	if query == "" {
		if c.globals != nil && c.globals.JSON {
			return c.printJSON(query, nil)
		}
		return c.printHuman(query, nil)
	}

	ctx := context.Background()
	results, err := store.SearchCards(ctx, storage.SearchQuery{
		Text:    query,
		Filters: filters,
		Folder:  c.Folder,
		Limit:   c.Limit,
	})
	if err != nil {
		return fmt.Errorf("search %q: %w", query, err)
	}

	// Record synchronously here: a detached write could be cut off when the
	// one-shot process exits.
	hist.Record(ctx, history.Entry{
		Query:       query,
		Filters:     filters,
		ResultCount: len(results),
	})

	if c.globals != nil && c.globals.JSON {
		return c.printJSON(query, results)
	}
	return c.printHuman(query, results)
}

// buildFilters validates the sort and date flags and assembles the filter set.
func (c *SearchCommand) buildFilters() (storage.SearchFilters, error) {
	f := storage.SearchFilters{}

	switch c.Sort {
	case "", "relevance":
		f.SortBy = storage.SortByRelevance
	case "created":
		f.SortBy = storage.SortByCreated
	case "word":
		f.SortBy = storage.SortByWord
	default:
		return f, fmt.Errorf("invalid --sort value %q (use relevance, created, or word)", c.Sort)
	}

	switch c.Order {
	case "", "desc":
		f.SortOrder = storage.SortDesc
	case "asc":
		f.SortOrder = storage.SortAsc
	default:
		return f, fmt.Errorf("invalid --order value %q (use asc or desc)", c.Order)
	}

	if c.From != "" || c.To != "" {
		var dr storage.DateRange
		if c.From != "" {
			start, err := storage.ParseDate(c.From, false)
			if err != nil {
				return f, fmt.Errorf("invalid --from value: %w", err)
			}
			dr.Start = start
		}
		if c.To != "" {
			end, err := storage.ParseDate(c.To, true)
			if err != nil {
				return f, fmt.Errorf("invalid --to value: %w", err)
			}
			dr.End = end
		}
		f.DateRange = &dr
	}

	return f.Normalized(), nil
}

func (c *SearchCommand) printHuman(query string, results []storage.SearchResult) error {
	if len(results) == 0 {
		if query != "" {
			fmt.Printf("No cards found for %q\n", query)
		} else {
			fmt.Println("No cards found")
		}
		return nil
	}

	resultWord := "cards"
	if len(results) == 1 {
		resultWord = "card"
	}
	fmt.Printf("Found %d %s for %q\n\n", len(results), resultWord, query)

	for i, r := range results {
		fmt.Printf("%d. %s — %s\n", i+1, r.Card.Word, r.Card.Translation)
		if r.Card.Pronunciation != "" {
			fmt.Printf("   [%s]\n", r.Card.Pronunciation)
		}
		if r.Snippet != "" {
			fmt.Printf("   %s\n", r.Snippet)
		}
		fmt.Printf("   added %s\n", r.Card.CreatedAt.Local().Format("2006-01-02 15:04"))

		if i < len(results)-1 {
			fmt.Println()
		}
	}

	return nil
}

type jsonCard struct {
	ID            int64   `json:"id"`
	Word          string  `json:"word"`
	Translation   string  `json:"translation"`
	Pronunciation string  `json:"pronunciation,omitempty"`
	Memo          string  `json:"memo,omitempty"`
	FolderID      int64   `json:"folder_id"`
	Rank          float64 `json:"rank"`
	Snippet       string  `json:"snippet,omitempty"`
	CreatedAt     string  `json:"created_at"`
}

type jsonSearchOutput struct {
	Count   int        `json:"count"`
	Query   string     `json:"query"`
	Results []jsonCard `json:"results"`
}

func (c *SearchCommand) printJSON(query string, results []storage.SearchResult) error {
	out := jsonSearchOutput{
		Count:   len(results),
		Query:   query,
		Results: make([]jsonCard, len(results)),
	}

	for i, r := range results {
		out.Results[i] = jsonCard{
			ID:            r.Card.ID,
			Word:          r.Card.Word,
			Translation:   r.Card.Translation,
			Pronunciation: r.Card.Pronunciation,
			Memo:          r.Card.Memo,
			FolderID:      r.Card.FolderID,
			Rank:          r.Rank,
			Snippet:       r.Snippet,
			CreatedAt:     r.Card.CreatedAt.UTC().Format(time.RFC3339),
		}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
