package storage

import "database/sql"

// migrateV001 creates the initial wordbook schema: folders, flashcards, the
// FTS5 index with its sync triggers, and the search history log. Every
// statement uses IF NOT EXISTS for idempotency.
func migrateV001(tx *sql.Tx) error {
	stmts := []string{
		// ── Tables ──────────────────────────────────────────────

		`CREATE TABLE IF NOT EXISTS folders (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			name       TEXT NOT NULL UNIQUE,
			created_at TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS flashcards (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			folder_id     INTEGER NOT NULL REFERENCES folders(id) ON DELETE CASCADE,
			word          TEXT NOT NULL,
			translation   TEXT NOT NULL,
			pronunciation TEXT NOT NULL DEFAULT '',
			memo          TEXT NOT NULL DEFAULT '',
			created_at    TEXT NOT NULL,
			updated_at    TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS search_history (
			id           TEXT PRIMARY KEY,
			query        TEXT NOT NULL,
			filters      TEXT NOT NULL DEFAULT '',
			timestamp    TEXT NOT NULL,
			result_count INTEGER NOT NULL DEFAULT 0
		)`,

		// ── FTS index over card text, kept in sync by triggers ──

		`CREATE VIRTUAL TABLE IF NOT EXISTS flashcards_fts USING fts5(
			word,
			translation,
			pronunciation,
			memo,
			content='flashcards',
			content_rowid='id',
			tokenize='unicode61'
		)`,

		`CREATE TRIGGER IF NOT EXISTS flashcards_ai AFTER INSERT ON flashcards BEGIN
			INSERT INTO flashcards_fts(rowid, word, translation, pronunciation, memo)
			VALUES (new.id, new.word, new.translation, new.pronunciation, new.memo);
		END`,

		`CREATE TRIGGER IF NOT EXISTS flashcards_ad AFTER DELETE ON flashcards BEGIN
			INSERT INTO flashcards_fts(flashcards_fts, rowid, word, translation, pronunciation, memo)
			VALUES ('delete', old.id, old.word, old.translation, old.pronunciation, old.memo);
		END`,

		`CREATE TRIGGER IF NOT EXISTS flashcards_au AFTER UPDATE ON flashcards BEGIN
			INSERT INTO flashcards_fts(flashcards_fts, rowid, word, translation, pronunciation, memo)
			VALUES ('delete', old.id, old.word, old.translation, old.pronunciation, old.memo);
			INSERT INTO flashcards_fts(rowid, word, translation, pronunciation, memo)
			VALUES (new.id, new.word, new.translation, new.pronunciation, new.memo);
		END`,

		// ── Indexes ────────────────────────────────────────────

		`CREATE INDEX IF NOT EXISTS idx_flashcards_folder  ON flashcards(folder_id)`,
		`CREATE INDEX IF NOT EXISTS idx_flashcards_created ON flashcards(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_flashcards_word    ON flashcards(word)`,
		`CREATE INDEX IF NOT EXISTS idx_history_timestamp  ON search_history(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_history_query      ON search_history(query)`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt); err != nil {
			return err
		}
	}

	// Seed the default folder so add/import work on a fresh database.
	_, err := tx.Exec(
		`INSERT OR IGNORE INTO folders (name, created_at) VALUES ('Default', strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))`,
	)
	return err
}
