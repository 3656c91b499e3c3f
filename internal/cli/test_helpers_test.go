package cli

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"os"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/runnerr0/wordbook/internal/history"
	"github.com/runnerr0/wordbook/internal/storage"
)

// captureOutput captures stdout during fn execution and returns it as a string.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// newTestStore opens a migrated in-memory store for command tests.
func newTestStore(t *testing.T) (*storage.SQLiteStore, *sql.DB) {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on")
	require.NoError(t, err)
	// An in-memory DB vanishes when its connection closes; pin the pool to
	// one connection so every query sees the same database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, storage.NewMigrationRunner(db).Run())

	store, err := storage.NewSQLiteStore(db)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store, db
}

// newTestHistory builds a history service over the test database.
func newTestHistory(t *testing.T, db *sql.DB) *history.Service {
	t.Helper()
	return history.New(db, zap.NewNop().Sugar(), history.Options{})
}

// seedCard inserts a card into the default folder.
func seedCard(t *testing.T, store *storage.SQLiteStore, word, translation string) *storage.Card {
	t.Helper()
	card := &storage.Card{Word: word, Translation: translation}
	require.NoError(t, store.AddCard(context.Background(), card))
	return card
}
