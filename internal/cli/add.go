package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/runnerr0/wordbook/internal/storage"
)

// Execute implements the go-flags Commander interface for AddCommand.
func (c *AddCommand) Execute(args []string) error {
	if strings.TrimSpace(c.Word) == "" {
		return fmt.Errorf("--word is required for add command")
	}
	if strings.TrimSpace(c.Translation) == "" {
		return fmt.Errorf("--translation is required for add command")
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

	return c.executeWithStore(store)
}

// executeWithStore runs the add logic against a provided store (used by tests).
func (c *AddCommand) executeWithStore(store *storage.SQLiteStore) error {
	ctx := context.Background()

	card := &storage.Card{
		Word:          strings.TrimSpace(c.Word),
		Translation:   strings.TrimSpace(c.Translation),
		Pronunciation: strings.TrimSpace(c.Pronunciation),
		Memo:          strings.TrimSpace(c.Memo),
	}

	folderName := c.Folder
	if folderName == "" {
		folderName = storage.DefaultFolderName
	}
	folder, err := store.EnsureFolder(ctx, folderName)
	if err != nil {
		return fmt.Errorf("resolve folder %q: %w", folderName, err)
	}
	card.FolderID = folder.ID

	if err := store.AddCard(ctx, card); err != nil {
		return fmt.Errorf("add card: %w", err)
	}

	if c.globals != nil && c.globals.JSON {
		out := map[string]interface{}{
			"id":          card.ID,
			"word":        card.Word,
			"translation": card.Translation,
			"folder":      folder.Name,
			"created_at":  card.CreatedAt.UTC().Format(time.RFC3339),
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Printf("Added card %d to %q\n", card.ID, folder.Name)
	fmt.Printf("  Word: %s\n", card.Word)
	fmt.Printf("  Translation: %s\n", card.Translation)
	if card.Pronunciation != "" {
		fmt.Printf("  Pronunciation: %s\n", card.Pronunciation)
	}
	if card.Memo != "" {
		fmt.Printf("  Memo: %s\n", card.Memo)
	}

	return nil
}
