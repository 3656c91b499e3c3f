package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/runnerr0/wordbook/internal/storage"
	"github.com/runnerr0/wordbook/internal/tsv"
)

// Execute implements the go-flags Commander interface for ImportCommand.
func (c *ImportCommand) Execute(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("import requires a file path")
	}

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

	return c.executeWithStore(store, args)
}

// executeWithStore runs the import against a provided store (used by tests).
func (c *ImportCommand) executeWithStore(store *storage.SQLiteStore, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("import requires a file path")
	}
	path := args[0]

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	cards, skips, err := tsv.Parse(f)
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	folderName := c.Folder
	if folderName == "" {
		folderName = storage.DefaultFolderName
	}

	if c.DryRun {
		return c.printResult(path, folderName, len(cards), skips, true)
	}

	ctx := context.Background()

	folder, err := store.EnsureFolder(ctx, folderName)
	if err != nil {
		return fmt.Errorf("resolve folder %q: %w", folderName, err)
	}

	for _, in := range cards {
		card := &storage.Card{
			FolderID:      folder.ID,
			Word:          in.Word,
			Translation:   in.Translation,
			Pronunciation: in.Pronunciation,
			Memo:          in.Memo,
		}
		if err := store.AddCard(ctx, card); err != nil {
			return fmt.Errorf("add card %q: %w", in.Word, err)
		}
	}

	return c.printResult(path, folderName, len(cards), skips, false)
}

type jsonImportOutput struct {
	File     string     `json:"file"`
	Folder   string     `json:"folder"`
	Imported int        `json:"imported"`
	DryRun   bool       `json:"dry_run"`
	Skipped  []tsv.Skip `json:"skipped"`
}

func (c *ImportCommand) printResult(path, folder string, imported int, skips []tsv.Skip, dryRun bool) error {
	if c.globals != nil && c.globals.JSON {
		if skips == nil {
			skips = []tsv.Skip{}
		}
		out := jsonImportOutput{
			File:     path,
			Folder:   folder,
			Imported: imported,
			DryRun:   dryRun,
			Skipped:  skips,
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	cardWord := "cards"
	if imported == 1 {
		cardWord = "card"
	}
	if dryRun {
		fmt.Printf("Would import %d %s from %s into %q\n", imported, cardWord, path, folder)
	} else {
		fmt.Printf("Imported %d %s from %s into %q\n", imported, cardWord, path, folder)
	}

	if len(skips) > 0 {
		lineWord := "lines"
		if len(skips) == 1 {
			lineWord = "line"
		}
		fmt.Printf("Skipped %d %s:\n", len(skips), lineWord)
		for _, s := range skips {
			fmt.Printf("  line %d: %s\n", s.Line, s.Reason)
		}
	}

	return nil
}
