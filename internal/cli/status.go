package cli

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/runnerr0/wordbook/internal/config"
	"github.com/runnerr0/wordbook/internal/storage"
)

// statusJSON is the JSON output structure for the status command.
type statusJSON struct {
	Version           string            `json:"version"`
	DatabasePath      string            `json:"database_path"`
	DatabaseSizeBytes int64             `json:"database_size_bytes"`
	TotalCards        int64             `json:"total_cards"`
	TotalFolders      int64             `json:"total_folders"`
	TotalHistory      int64             `json:"total_history"`
	HistoryCapacity   int               `json:"history_capacity"`
	OldestCard        string            `json:"oldest_card,omitempty"`
	NewestCard        string            `json:"newest_card,omitempty"`
	TopFolders        []folderCountJSON `json:"top_folders"`
	ServerRunning     bool              `json:"server_running"`
}

type folderCountJSON struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

// Execute implements the go-flags Commander interface for StatusCommand.
func (c *StatusCommand) Execute(args []string) error {
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

	return c.executeWithStore(store, db, cfg)
}

// executeWithStore runs status against a provided store and db (for testing).
func (c *StatusCommand) executeWithStore(store *storage.SQLiteStore, db *sql.DB, cfg *config.Config) error {
	ctx := context.Background()

	stats, err := store.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	dbPath, err := cfg.DatabasePath()
	if err != nil {
		return fmt.Errorf("resolve database path: %w", err)
	}
	dbSize := getDatabaseSize(db, dbPath)

	serverRunning := checkServer(cfg.Server.Host, cfg.Server.Port)

	if c.globals != nil && c.globals.JSON {
		return c.printStatusJSON(stats, cfg, dbPath, dbSize, serverRunning)
	}
	return c.printStatusHuman(stats, cfg, dbPath, dbSize, serverRunning)
}

func (c *StatusCommand) printStatusHuman(stats *storage.Stats, cfg *config.Config, dbPath string, dbSize int64, serverRunning bool) error {
	fmt.Println("Wordbook Status")
	fmt.Println("===============")
	fmt.Printf("Version:       %s\n", c.version)
	fmt.Printf("Database:      %s (%s)\n", dbPath, formatBytes(dbSize))
	fmt.Printf("Cards:         %s\n", formatNumber(stats.TotalCards))
	fmt.Printf("Folders:       %s\n", formatNumber(stats.TotalFolders))
	fmt.Printf("History:       %s of %d\n", formatNumber(stats.TotalHistory), cfg.History.MaxEntries)

	if stats.TotalCards > 0 {
		fmt.Printf("Oldest card:   %s\n", stats.OldestCard.Local().Format("2006-01-02"))
		fmt.Printf("Newest card:   %s\n", stats.NewestCard.Local().Format("2006-01-02"))
	}

	if len(stats.TopFolders) > 0 {
		fmt.Println()
		fmt.Println("Top Folders:")
		for _, f := range stats.TopFolders {
			fmt.Printf("  %-20s %s\n", f.Name, formatNumber(f.Count))
		}
	}

	fmt.Println()
	if serverRunning {
		fmt.Println("Server:        running")
	} else {
		fmt.Println("Server:        not running")
	}

	return nil
}

func (c *StatusCommand) printStatusJSON(stats *storage.Stats, cfg *config.Config, dbPath string, dbSize int64, serverRunning bool) error {
	out := statusJSON{
		Version:           c.version,
		DatabasePath:      dbPath,
		DatabaseSizeBytes: dbSize,
		TotalCards:        stats.TotalCards,
		TotalFolders:      stats.TotalFolders,
		TotalHistory:      stats.TotalHistory,
		HistoryCapacity:   cfg.History.MaxEntries,
		TopFolders:        make([]folderCountJSON, len(stats.TopFolders)),
		ServerRunning:     serverRunning,
	}

	if stats.TotalCards > 0 {
		out.OldestCard = stats.OldestCard.UTC().Format(time.RFC3339)
		out.NewestCard = stats.NewestCard.UTC().Format(time.RFC3339)
	}

	for i, f := range stats.TopFolders {
		out.TopFolders[i] = folderCountJSON{Name: f.Name, Count: f.Count}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// getDatabaseSize returns the database file size in bytes.
// For on-disk databases, it uses os.Stat. For in-memory databases,
// it queries page_count * page_size.
func getDatabaseSize(db *sql.DB, dbPath string) int64 {
	// Try file stat first
	if info, err := os.Stat(dbPath); err == nil {
		return info.Size()
	}

	// Fallback: query SQLite for in-memory or unavailable file
	var pageCount, pageSize int64
	if err := db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0
	}
	if err := db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0
	}
	return pageCount * pageSize
}

// checkServer attempts an HTTP GET to the configured health endpoint.
// Returns true if the server responds within 1 second.
func checkServer(host string, port int) bool {
	client := &http.Client{Timeout: 1 * time.Second}
	resp, err := client.Get(fmt.Sprintf("http://%s:%d/health", host, port))
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
