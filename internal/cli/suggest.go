package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/runnerr0/wordbook/internal/search"
	"github.com/runnerr0/wordbook/internal/storage"
)

// Execute implements the go-flags Commander interface for SuggestCommand.
func (c *SuggestCommand) Execute(args []string) error {
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

	svc, _ := newServices(store, db, cfg, log)
	return c.executeWithService(svc, args)
}

// executeWithService runs the lookup against a provided service (for testing).
func (c *SuggestCommand) executeWithService(svc *search.Service, args []string) error {
	partial := strings.TrimSpace(strings.Join(args, " "))
	ctx := context.Background()

	if c.Plain {
		texts := svc.Complete(ctx, partial)
		if c.globals != nil && c.globals.JSON {
			return c.printPlainJSON(partial, texts)
		}
		for _, t := range texts {
			fmt.Println(t)
		}
		return nil
	}

	suggestions := svc.Suggestions(ctx, partial)
	if c.globals != nil && c.globals.JSON {
		return c.printJSON(partial, suggestions)
	}

	if len(suggestions) == 0 {
		fmt.Printf("No suggestions for %q\n", partial)
		return nil
	}
	for _, s := range suggestions {
		fmt.Printf("%s  (%s)\n", s.Text, s.Source)
	}
	return nil
}

type jsonSuggestOutput struct {
	Partial     string               `json:"partial"`
	Count       int                  `json:"count"`
	Suggestions []storage.Suggestion `json:"suggestions"`
}

func (c *SuggestCommand) printJSON(partial string, suggestions []storage.Suggestion) error {
	if suggestions == nil {
		suggestions = []storage.Suggestion{}
	}
	out := jsonSuggestOutput{
		Partial:     partial,
		Count:       len(suggestions),
		Suggestions: suggestions,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

type jsonPlainSuggestOutput struct {
	Partial     string   `json:"partial"`
	Count       int      `json:"count"`
	Suggestions []string `json:"suggestions"`
}

func (c *SuggestCommand) printPlainJSON(partial string, texts []string) error {
	if texts == nil {
		texts = []string{}
	}
	out := jsonPlainSuggestOutput{
		Partial:     partial,
		Count:       len(texts),
		Suggestions: texts,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
