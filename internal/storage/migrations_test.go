package storage

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestMigrationRunner_FreshDB(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)

	err := runner.Run()
	require.NoError(t, err)

	expectedTables := []string{
		"folders",
		"flashcards",
		"flashcards_fts",
		"search_history",
		"schema_migrations",
	}
	for _, table := range expectedTables {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?", table,
		).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
		assert.Equal(t, table, name)
	}
}

func TestMigrationRunner_FTSTriggersCreated(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)
	require.NoError(t, runner.Run())

	expectedTriggers := []string{
		"flashcards_ai",
		"flashcards_ad",
		"flashcards_au",
	}
	for _, trig := range expectedTriggers {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='trigger' AND name=?", trig,
		).Scan(&name)
		require.NoError(t, err, "trigger %s should exist", trig)
		assert.Equal(t, trig, name)
	}
}

func TestMigrationRunner_IndexesCreated(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)
	require.NoError(t, runner.Run())

	expectedIndexes := []string{
		"idx_flashcards_folder",
		"idx_flashcards_created",
		"idx_flashcards_word",
		"idx_history_timestamp",
		"idx_history_query",
	}
	for _, idx := range expectedIndexes {
		var name string
		err := db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='index' AND name=?", idx,
		).Scan(&name)
		require.NoError(t, err, "index %s should exist", idx)
		assert.Equal(t, idx, name)
	}
}

func TestMigrationRunner_SeedsDefaultFolder(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)
	require.NoError(t, runner.Run())

	var name string
	err := db.QueryRow("SELECT name FROM folders WHERE name = 'Default'").Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "Default", name)
}

func TestMigrationRunner_Idempotent(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)

	require.NoError(t, runner.Run())
	require.NoError(t, runner.Run())

	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM schema_migrations").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "should have exactly 1 migration recorded after double-run")

	err = db.QueryRow("SELECT COUNT(*) FROM folders").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "default folder should not be duplicated on re-run")
}

func TestMigrationRunner_SchemaMigrationsTracking(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)
	require.NoError(t, runner.Run())

	var version int
	var name string
	err := db.QueryRow("SELECT version, name FROM schema_migrations WHERE version = 1").Scan(&version, &name)
	require.NoError(t, err)
	assert.Equal(t, 1, version)
	assert.Equal(t, "initial_schema", name)
}

func TestMigrationRunner_WALMode(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)
	require.NoError(t, runner.Run())

	var journalMode string
	err := db.QueryRow("PRAGMA journal_mode").Scan(&journalMode)
	require.NoError(t, err)
	// In-memory databases report "memory"; WAL only takes effect on
	// file-backed DBs. Either value proves the pragma ran without error.
	assert.Contains(t, []string{"wal", "memory"}, journalMode)
}

func TestMigrationRunner_ForeignKeys(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)
	require.NoError(t, runner.Run())

	var fk int
	err := db.QueryRow("PRAGMA foreign_keys").Scan(&fk)
	require.NoError(t, err)
	assert.Equal(t, 1, fk, "foreign_keys should be enabled")
}

func TestMigrationRunner_ForeignKeyEnforcement(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)
	require.NoError(t, runner.Run())

	_, err := db.Exec(`
		INSERT INTO flashcards (folder_id, word, translation, created_at, updated_at)
		VALUES (99999, 'orphan', 'should fail', '2025-01-01T00:00:00Z', '2025-01-01T00:00:00Z')
	`)
	assert.Error(t, err, "foreign key constraint should prevent cards in missing folders")
}

func TestMigrationRunner_TriggersKeepFTSInSync(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)
	require.NoError(t, runner.Run())

	var folderID int64
	err := db.QueryRow("SELECT id FROM folders WHERE name = 'Default'").Scan(&folderID)
	require.NoError(t, err)

	res, err := db.Exec(`
		INSERT INTO flashcards (folder_id, word, translation, created_at, updated_at)
		VALUES (?, 'mariposa', 'butterfly', '2025-01-01T00:00:00Z', '2025-01-01T00:00:00Z')
	`, folderID)
	require.NoError(t, err)

	cardID, err := res.LastInsertId()
	require.NoError(t, err)

	// Insert trigger should have indexed the row.
	var matched int64
	err = db.QueryRow("SELECT rowid FROM flashcards_fts WHERE flashcards_fts MATCH 'mariposa'").Scan(&matched)
	require.NoError(t, err)
	assert.Equal(t, cardID, matched)

	// Update trigger should re-index.
	_, err = db.Exec("UPDATE flashcards SET word = 'libélula', translation = 'dragonfly' WHERE id = ?", cardID)
	require.NoError(t, err)

	var count int
	err = db.QueryRow("SELECT COUNT(*) FROM flashcards_fts WHERE flashcards_fts MATCH 'mariposa'").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 0, count, "old text should be gone after update")

	err = db.QueryRow("SELECT COUNT(*) FROM flashcards_fts WHERE flashcards_fts MATCH 'dragonfly'").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// Delete trigger should remove the entry.
	_, err = db.Exec("DELETE FROM flashcards WHERE id = ?", cardID)
	require.NoError(t, err)

	err = db.QueryRow("SELECT COUNT(*) FROM flashcards_fts WHERE flashcards_fts MATCH 'dragonfly'").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestMigrationRunner_HistoryTableColumns(t *testing.T) {
	db := openTestDB(t)
	runner := NewMigrationRunner(db)
	require.NoError(t, runner.Run())

	_, err := db.Exec(`
		INSERT INTO search_history (id, query, filters, timestamp, result_count)
		VALUES ('hist-1', 'perro', '{"sort_by":"relevance","sort_order":"desc"}', '2025-01-01T00:00:00Z', 3)
	`)
	require.NoError(t, err)

	var id, query, filters, ts string
	var resultCount int
	err = db.QueryRow("SELECT id, query, filters, timestamp, result_count FROM search_history WHERE id = 'hist-1'").
		Scan(&id, &query, &filters, &ts, &resultCount)
	require.NoError(t, err)
	assert.Equal(t, "perro", query)
	assert.Equal(t, 3, resultCount)
	assert.Contains(t, filters, "sort_by")
}
