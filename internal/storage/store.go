package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// DefaultFolderName is the folder cards land in when none is chosen.
const DefaultFolderName = "Default"

// Store defines the interface for wordbook data operations.
type Store interface {
	AddCard(ctx context.Context, card *Card) error
	GetCard(ctx context.Context, id int64) (*Card, error)
	DeleteCard(ctx context.Context, id int64) error
	CreateFolder(ctx context.Context, name string) (*Folder, error)
	FolderByName(ctx context.Context, name string) (*Folder, error)
	EnsureFolder(ctx context.Context, name string) (*Folder, error)
	ListFolders(ctx context.Context) ([]Folder, error)
	SearchCards(ctx context.Context, query SearchQuery) ([]SearchResult, error)
	SuggestTerms(ctx context.Context, partial string, limit int) ([]string, error)
	GetStats(ctx context.Context) (*Stats, error)
	Optimize(ctx context.Context) error
	PurgeAll(ctx context.Context) error
	Close() error
}

// SQLiteStore implements Store backed by a SQLite database. The FTS index
// is maintained by schema triggers, so writes never touch it directly.
type SQLiteStore struct {
	db *sql.DB

	// Prepared statements
	insertCard *sql.Stmt
	getCard    *sql.Stmt
	deleteCard *sql.Stmt
	getFolder  *sql.Stmt
}

// NewSQLiteStore creates a new SQLiteStore from an already-opened and
// migrated database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}

	if err := s.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}

	return s, nil
}

// DB exposes the underlying connection for collaborators that run their own
// SQL against the same database file.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.insertCard, err = s.db.Prepare(`
		INSERT INTO flashcards (folder_id, word, translation, pronunciation, memo, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}

	s.getCard, err = s.db.Prepare(`
		SELECT id, folder_id, word, translation, pronunciation, memo, created_at, updated_at
		FROM flashcards WHERE id = ?
	`)
	if err != nil {
		return err
	}

	s.deleteCard, err = s.db.Prepare(`DELETE FROM flashcards WHERE id = ?`)
	if err != nil {
		return err
	}

	s.getFolder, err = s.db.Prepare(`SELECT id, name, created_at FROM folders WHERE name = ?`)
	if err != nil {
		return err
	}

	return nil
}

// ftsMatchQuery converts a user search string into a valid FTS5 query.
// Each word becomes a quoted prefix token; tokens are ANDed so every word
// must match somewhere in the card.
func ftsMatchQuery(input string) string {
	words := strings.Fields(input)
	var parts []string
	for _, w := range words {
		w = strings.ReplaceAll(w, `"`, "")
		if w == "" {
			continue
		}
		parts = append(parts, `"`+w+`"*`)
	}
	return strings.Join(parts, " ")
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// parseTimestamp tries several common SQLite timestamp formats.
func parseTimestamp(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05.999999999-07:00",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp: %s", s)
}

// ParseDate accepts an RFC 3339 timestamp or a plain YYYY-MM-DD date.
// Plain dates resolve to the start of the day in UTC, or the end of it
// when endOfDay is set, so an upper bound of "2026-03-01" covers that
// whole day.
func ParseDate(raw string, endOfDay bool) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts, nil
	}
	ts, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD or RFC 3339)", raw)
	}
	if endOfDay {
		ts = ts.Add(24*time.Hour - time.Second)
	}
	return ts, nil
}

// AddCard inserts a new flashcard. The card's ID and timestamps are
// populated on return. Word and translation must be non-empty.
func (s *SQLiteStore) AddCard(ctx context.Context, card *Card) error {
	if strings.TrimSpace(card.Word) == "" {
		return fmt.Errorf("card word is required")
	}
	if strings.TrimSpace(card.Translation) == "" {
		return fmt.Errorf("card translation is required")
	}

	if card.FolderID == 0 {
		folder, err := s.EnsureFolder(ctx, DefaultFolderName)
		if err != nil {
			return fmt.Errorf("default folder: %w", err)
		}
		card.FolderID = folder.ID
	}

	now := time.Now().UTC()
	if card.CreatedAt.IsZero() {
		card.CreatedAt = now
	}
	card.UpdatedAt = now

	res, err := s.insertCard.ExecContext(ctx,
		card.FolderID, card.Word, card.Translation, card.Pronunciation, card.Memo,
		card.CreatedAt.UTC().Format(time.RFC3339), card.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert card: %w", err)
	}

	card.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("card id: %w", err)
	}

	return nil
}

// GetCard retrieves a single flashcard by ID.
func (s *SQLiteStore) GetCard(ctx context.Context, id int64) (*Card, error) {
	var c Card
	var createdStr, updatedStr string

	err := s.getCard.QueryRowContext(ctx, id).Scan(
		&c.ID, &c.FolderID, &c.Word, &c.Translation, &c.Pronunciation, &c.Memo,
		&createdStr, &updatedStr,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("card %d: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("get card: %w", err)
	}

	c.CreatedAt, _ = parseTimestamp(createdStr)
	c.UpdatedAt, _ = parseTimestamp(updatedStr)

	return &c, nil
}

// DeleteCard removes a flashcard by ID. The FTS entry is cleaned up by the
// delete trigger.
func (s *SQLiteStore) DeleteCard(ctx context.Context, id int64) error {
	res, err := s.deleteCard.ExecContext(ctx, id)
	if err != nil {
		return fmt.Errorf("delete card: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("card %d: %w", id, ErrNotFound)
	}

	return nil
}

// CreateFolder inserts a new folder. Folder names are unique.
func (s *SQLiteStore) CreateFolder(ctx context.Context, name string) (*Folder, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("folder name is required")
	}

	createdAt := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO folders (name, created_at) VALUES (?, ?)",
		name, createdAt.Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("insert folder: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("folder id: %w", err)
	}

	return &Folder{ID: id, Name: name, CreatedAt: createdAt}, nil
}

// FolderByName looks up a folder by its unique name.
func (s *SQLiteStore) FolderByName(ctx context.Context, name string) (*Folder, error) {
	var f Folder
	var createdStr string

	err := s.getFolder.QueryRowContext(ctx, name).Scan(&f.ID, &f.Name, &createdStr)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("folder %q: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("get folder: %w", err)
	}

	f.CreatedAt, _ = parseTimestamp(createdStr)
	return &f, nil
}

// EnsureFolder returns the named folder, creating it first if missing.
func (s *SQLiteStore) EnsureFolder(ctx context.Context, name string) (*Folder, error) {
	f, err := s.FolderByName(ctx, name)
	if err == nil {
		return f, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return s.CreateFolder(ctx, name)
}

// ListFolders returns all folders with their card counts, alphabetically.
func (s *SQLiteStore) ListFolders(ctx context.Context) ([]Folder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.id, f.name, f.created_at, COUNT(c.id)
		FROM folders f
		LEFT JOIN flashcards c ON c.folder_id = f.id
		GROUP BY f.id
		ORDER BY f.name COLLATE NOCASE
	`)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	defer rows.Close()

	folders := []Folder{}
	for rows.Next() {
		var f Folder
		var createdStr string
		if err := rows.Scan(&f.ID, &f.Name, &createdStr, &f.CardCount); err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		f.CreatedAt, _ = parseTimestamp(createdStr)
		folders = append(folders, f)
	}

	return folders, rows.Err()
}

// SearchCards queries flashcards. A non-empty text query goes through the
// FTS index; otherwise cards are browsed with plain filters.
func (s *SQLiteStore) SearchCards(ctx context.Context, q SearchQuery) ([]SearchResult, error) {
	if q.Limit <= 0 {
		q.Limit = 50
	}

	if strings.TrimSpace(q.Text) != "" {
		return s.searchFTS(ctx, q)
	}

	return s.browseCards(ctx, q)
}

// searchFTS runs a ranked FTS5 match joined back to the flashcards table,
// with a snippet highlighting the matched terms.
func (s *SQLiteStore) searchFTS(ctx context.Context, q SearchQuery) ([]SearchResult, error) {
	var clauses []string
	var args []interface{}

	baseQuery := `
		SELECT c.id, c.folder_id, c.word, c.translation, c.pronunciation, c.memo,
		       c.created_at, c.updated_at, f.rank,
		       snippet(flashcards_fts, -1, '[', ']', '…', 12)
		FROM flashcards_fts f
		JOIN flashcards c ON c.id = f.rowid
	`

	clauses = append(clauses, "flashcards_fts MATCH ?")
	args = append(args, ftsMatchQuery(q.Text))

	if q.Folder != "" {
		clauses = append(clauses, "c.folder_id IN (SELECT id FROM folders WHERE name = ?)")
		args = append(args, q.Folder)
	}
	if dr := q.Filters.DateRange; dr != nil {
		if !dr.Start.IsZero() {
			clauses = append(clauses, "c.created_at >= ?")
			args = append(args, dr.Start.UTC().Format(time.RFC3339))
		}
		if !dr.End.IsZero() {
			clauses = append(clauses, "c.created_at <= ?")
			args = append(args, dr.End.UTC().Format(time.RFC3339))
		}
	}

	fullQuery := baseQuery +
		" WHERE " + strings.Join(clauses, " AND ") +
		" ORDER BY " + ftsOrderClause(q.Filters) +
		" LIMIT ? OFFSET ?"
	args = append(args, q.Limit, q.Offset)

	rows, err := s.db.QueryContext(ctx, fullQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("search cards: %w", err)
	}
	defer rows.Close()

	results := []SearchResult{}
	for rows.Next() {
		var r SearchResult
		var createdStr, updatedStr string
		if err := rows.Scan(
			&r.Card.ID, &r.Card.FolderID, &r.Card.Word, &r.Card.Translation,
			&r.Card.Pronunciation, &r.Card.Memo, &createdStr, &updatedStr,
			&r.Rank, &r.Snippet,
		); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.Card.CreatedAt, _ = parseTimestamp(createdStr)
		r.Card.UpdatedAt, _ = parseTimestamp(updatedStr)
		results = append(results, r)
	}

	return results, rows.Err()
}

// browseCards lists cards without a text query, using plain SQL filters.
func (s *SQLiteStore) browseCards(ctx context.Context, q SearchQuery) ([]SearchResult, error) {
	var clauses []string
	var args []interface{}

	baseQuery := `
		SELECT id, folder_id, word, translation, pronunciation, memo, created_at, updated_at
		FROM flashcards
	`

	if q.Folder != "" {
		clauses = append(clauses, "folder_id IN (SELECT id FROM folders WHERE name = ?)")
		args = append(args, q.Folder)
	}
	if dr := q.Filters.DateRange; dr != nil {
		if !dr.Start.IsZero() {
			clauses = append(clauses, "created_at >= ?")
			args = append(args, dr.Start.UTC().Format(time.RFC3339))
		}
		if !dr.End.IsZero() {
			clauses = append(clauses, "created_at <= ?")
			args = append(args, dr.End.UTC().Format(time.RFC3339))
		}
	}

	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	fullQuery := baseQuery + where +
		" ORDER BY " + browseOrderClause(q.Filters) +
		" LIMIT ? OFFSET ?"
	args = append(args, q.Limit, q.Offset)

	rows, err := s.db.QueryContext(ctx, fullQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("browse cards: %w", err)
	}
	defer rows.Close()

	results := []SearchResult{}
	for rows.Next() {
		var r SearchResult
		var createdStr, updatedStr string
		if err := rows.Scan(
			&r.Card.ID, &r.Card.FolderID, &r.Card.Word, &r.Card.Translation,
			&r.Card.Pronunciation, &r.Card.Memo, &createdStr, &updatedStr,
		); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		r.Card.CreatedAt, _ = parseTimestamp(createdStr)
		r.Card.UpdatedAt, _ = parseTimestamp(updatedStr)
		results = append(results, r)
	}

	return results, rows.Err()
}

// ftsOrderClause maps sort filters onto the FTS result set. FTS5 rank is
// bm25, where smaller means more relevant, so "most relevant first" is
// ascending rank.
func ftsOrderClause(f SearchFilters) string {
	f = f.Normalized()
	dir := "DESC"
	if f.SortOrder == SortAsc {
		dir = "ASC"
	}

	switch f.SortBy {
	case SortByCreated:
		return "c.created_at " + dir + ", c.id " + dir
	case SortByWord:
		return "c.word COLLATE NOCASE " + dir
	default:
		if f.SortOrder == SortAsc {
			return "f.rank DESC"
		}
		return "f.rank ASC"
	}
}

// browseOrderClause is the no-FTS variant; relevance degrades to recency.
func browseOrderClause(f SearchFilters) string {
	f = f.Normalized()
	dir := "DESC"
	if f.SortOrder == SortAsc {
		dir = "ASC"
	}

	switch f.SortBy {
	case SortByWord:
		return "word COLLATE NOCASE " + dir
	default:
		return "created_at " + dir + ", id " + dir
	}
}

// SuggestTerms returns distinct words and translations matching the partial
// text, prefix matches first, then alphabetically.
func (s *SQLiteStore) SuggestTerms(ctx context.Context, partial string, limit int) ([]string, error) {
	partial = strings.TrimSpace(partial)
	if partial == "" || limit <= 0 {
		return []string{}, nil
	}

	prefix := escapeLike(partial) + "%"
	contains := "%" + escapeLike(partial) + "%"

	rows, err := s.db.QueryContext(ctx, `
		SELECT term FROM (
			SELECT word AS term,
			       CASE WHEN word LIKE ? ESCAPE '\' THEN 0 ELSE 1 END AS pri
			FROM flashcards
			WHERE word LIKE ? ESCAPE '\'
			UNION
			SELECT translation,
			       CASE WHEN translation LIKE ? ESCAPE '\' THEN 0 ELSE 1 END
			FROM flashcards
			WHERE translation LIKE ? ESCAPE '\'
		)
		GROUP BY term
		ORDER BY MIN(pri), term COLLATE NOCASE
		LIMIT ?
	`, prefix, contains, prefix, contains, limit)
	if err != nil {
		return nil, fmt.Errorf("suggest terms: %w", err)
	}
	defer rows.Close()

	terms := []string{}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan term: %w", err)
		}
		terms = append(terms, t)
	}

	return terms, rows.Err()
}

// Optimize merges the FTS index b-trees. Safe to run at any time; used by
// the periodic maintenance job.
func (s *SQLiteStore) Optimize(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, "INSERT INTO flashcards_fts(flashcards_fts) VALUES('optimize')")
	if err != nil {
		return fmt.Errorf("optimize fts: %w", err)
	}
	return nil
}

// PurgeAll deletes all cards, folders, and search history, then re-seeds
// the default folder. FTS entries are removed by the delete triggers.
func (s *SQLiteStore) PurgeAll(ctx context.Context) error {
	stmts := []string{
		"DELETE FROM flashcards",
		"DELETE FROM folders",
		"DELETE FROM search_history",
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("purge (%s): %w", stmt, err)
		}
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO folders (name, created_at) VALUES (?, ?)",
		DefaultFolderName, time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// GetStats returns aggregate statistics about the database.
func (s *SQLiteStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM flashcards").Scan(&stats.TotalCards)
	if err != nil {
		return nil, fmt.Errorf("count cards: %w", err)
	}

	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM folders").Scan(&stats.TotalFolders)
	if err != nil {
		return nil, fmt.Errorf("count folders: %w", err)
	}

	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM search_history").Scan(&stats.TotalHistory)
	if err != nil {
		return nil, fmt.Errorf("count history: %w", err)
	}

	if stats.TotalCards > 0 {
		var oldestStr, newestStr string
		err = s.db.QueryRowContext(ctx, "SELECT MIN(created_at), MAX(created_at) FROM flashcards").Scan(&oldestStr, &newestStr)
		if err != nil {
			return nil, fmt.Errorf("card time range: %w", err)
		}
		stats.OldestCard, _ = parseTimestamp(oldestStr)
		stats.NewestCard, _ = parseTimestamp(newestStr)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT f.name, COUNT(c.id) AS cnt
		FROM folders f
		JOIN flashcards c ON c.folder_id = f.id
		GROUP BY f.id
		ORDER BY cnt DESC
		LIMIT 10
	`)
	if err != nil {
		return nil, fmt.Errorf("top folders: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var fc FolderCount
		if err := rows.Scan(&fc.Name, &fc.Count); err != nil {
			return nil, err
		}
		stats.TopFolders = append(stats.TopFolders, fc)
	}

	return stats, rows.Err()
}

// Close releases all prepared statements. The underlying *sql.DB is NOT
// closed; that is the caller's responsibility.
func (s *SQLiteStore) Close() error {
	stmts := []*sql.Stmt{
		s.insertCard, s.getCard, s.deleteCard, s.getFolder,
	}
	for _, stmt := range stmts {
		if stmt != nil {
			stmt.Close()
		}
	}
	return nil
}
