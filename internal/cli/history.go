package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/runnerr0/wordbook/internal/history"
)

// Execute implements the go-flags Commander interface for HistoryCommand.
func (c *HistoryCommand) Execute(args []string) error {
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

	return c.executeWithService(hist, args)
}

// executeWithService dispatches the history action from the positional
// arguments against a provided service (for testing).
func (c *HistoryCommand) executeWithService(hist *history.Service, args []string) error {
	action := "list"
	rest := args
	if len(args) > 0 {
		action = args[0]
		rest = args[1:]
	}

	ctx := context.Background()

	switch action {
	case "list":
		return c.runList(ctx, hist)
	case "frequent":
		return c.runFrequent(ctx, hist)
	case "stats":
		return c.runStats(ctx, hist)
	case "export":
		// Export is already JSON, by contract. Printed as-is in both modes.
		fmt.Println(hist.Export(ctx))
		return nil
	case "remove":
		if len(rest) == 0 {
			return fmt.Errorf("history remove requires an entry id")
		}
		return c.runRemove(ctx, hist, rest[0])
	case "clear":
		return c.runClear(ctx, hist)
	default:
		return fmt.Errorf("unknown history action %q (use list, frequent, stats, export, remove, or clear)", action)
	}
}

type jsonHistoryOutput struct {
	Count   int             `json:"count"`
	Entries []history.Entry `json:"entries"`
}

func (c *HistoryCommand) runList(ctx context.Context, hist *history.Service) error {
	entries := hist.Recent(ctx, c.Limit)

	if c.globals != nil && c.globals.JSON {
		out := jsonHistoryOutput{Count: len(entries), Entries: entries}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if len(entries) == 0 {
		fmt.Println("No search history")
		return nil
	}

	for i, e := range entries {
		fmt.Printf("%d. %q — %d results · %s\n",
			i+1, e.Query, e.ResultCount, e.Timestamp.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

type jsonFrequentOutput struct {
	Count   int                  `json:"count"`
	Queries []history.QueryCount `json:"queries"`
}

func (c *HistoryCommand) runFrequent(ctx context.Context, hist *history.Service) error {
	queries := hist.Frequent(ctx, c.Limit)

	if c.globals != nil && c.globals.JSON {
		out := jsonFrequentOutput{Count: len(queries), Queries: queries}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if len(queries) == 0 {
		fmt.Println("No search history")
		return nil
	}

	for i, q := range queries {
		fmt.Printf("%d. %q — used %d times, last %s\n",
			i+1, q.Query, q.Count, q.LastUsed.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

type jsonStatsOutput struct {
	Stats history.Stats `json:"stats"`
	Size  history.Size  `json:"size"`
}

func (c *HistoryCommand) runStats(ctx context.Context, hist *history.Service) error {
	stats, err := hist.Stats(ctx)
	if err != nil {
		return err
	}
	size, err := hist.SizeInfo(ctx)
	if err != nil {
		return err
	}

	if c.globals != nil && c.globals.JSON {
		out := jsonStatsOutput{Stats: stats, Size: size}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Printf("Total searches:  %s\n", formatNumber(stats.TotalSearches))
	fmt.Printf("Unique queries:  %s\n", formatNumber(stats.UniqueQueries))
	fmt.Printf("Average results: %.1f\n", stats.AvgResults)
	if stats.LastSearched != nil {
		fmt.Printf("Last searched:   %s\n", stats.LastSearched.Local().Format("2006-01-02 15:04"))
	}
	fmt.Printf("Capacity:        %d of %d\n", size.Count, size.Max)
	return nil
}

func (c *HistoryCommand) runRemove(ctx context.Context, hist *history.Service, id string) error {
	hist.Remove(ctx, id)

	if c.globals != nil && c.globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]string{"status": "removed", "id": id})
	}

	fmt.Printf("Removed history entry %s\n", id)
	return nil
}

func (c *HistoryCommand) runClear(ctx context.Context, hist *history.Service) error {
	hist.Clear(ctx)

	if c.globals != nil && c.globals.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]string{"status": "cleared"})
	}

	fmt.Println("Search history cleared")
	return nil
}
