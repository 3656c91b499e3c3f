package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/runnerr0/wordbook/internal/server"
)

// Execute implements the go-flags Commander interface for ServeCommand.
func (c *ServeCommand) Execute(args []string) error {
	// A local .env is optional; its absence is not an error.
	godotenv.Load() //nolint:errcheck

	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}

	// Environment beats the config file; flags beat both.
	if v := os.Getenv("WORDBOOK_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("WORDBOOK_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid WORDBOOK_PORT %q: %w", v, err)
		}
		cfg.Server.Port = p
	}
	if v := os.Getenv("WORDBOOK_AUTH_TOKEN"); v != "" {
		cfg.Server.AuthToken = v
	}
	if c.Host != "" {
		cfg.Server.Host = c.Host
	}
	if c.Port != 0 {
		cfg.Server.Port = c.Port
	}

	level := cfg.Logging.Level
	if c.LogLevel != "" {
		level = c.LogLevel
	}
	log, err := newLogger(c.globals != nil && c.globals.Verbose, level)
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	store, db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	defer store.Close()

	svc, hist := newServices(store, db, cfg, log)

	return server.New(cfg.Server, store, svc, hist, log).Run(context.Background())
}
