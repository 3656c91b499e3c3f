// Package history keeps a small, durable log of executed searches and
// answers frequency, suggestion, and stats queries over it.
//
// The log is capped: recording a search deduplicates against identical
// (query, filters) pairs and evicts the oldest rows beyond the cap. Reads
// never fail the caller; storage errors are logged and degrade to empty
// results. Only Stats and SizeInfo surface errors, since hiding a broken
// database behind "no searches yet" would be misleading.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/runnerr0/wordbook/internal/storage"
)

const (
	// DefaultMaxEntries is the history cap when none is configured.
	DefaultMaxEntries = 50
	// DefaultMinPrefix is the minimum suggestion input length in runes.
	DefaultMinPrefix = 2
)

// Entry is one recorded search.
type Entry struct {
	ID          string                `json:"id"`
	Query       string                `json:"query"`
	Filters     storage.SearchFilters `json:"filters"`
	ResultCount int                   `json:"result_count"`
	Timestamp   time.Time             `json:"timestamp"`
}

// QueryCount aggregates how often a query was searched.
type QueryCount struct {
	Query    string    `json:"query"`
	Count    int64     `json:"count"`
	LastUsed time.Time `json:"last_used"`
}

// Stats summarizes the whole history log.
type Stats struct {
	TotalSearches int64      `json:"total_searches"`
	UniqueQueries int64      `json:"unique_queries"`
	AvgResults    float64    `json:"avg_results"`
	LastSearched  *time.Time `json:"last_searched,omitempty"`
}

// Size reports how full the history log is.
type Size struct {
	Count int `json:"count"`
	Max   int `json:"max"`
	// CanAddMore reports raw headroom (Count < Max). New entries still
	// land at cap because eviction makes room; the flag only says
	// whether the log is full.
	CanAddMore bool `json:"can_add_more"`
}

// Options configures a history Service.
type Options struct {
	MaxEntries int
	MinPrefix  int
}

// Service owns the search_history table lifecycle and all reads and writes
// against it. It runs its own SQL on the shared database handle.
type Service struct {
	db         *sql.DB
	log        *zap.SugaredLogger
	maxEntries int
	minPrefix  int
}

// New creates a history Service. Zero option fields fall back to defaults.
func New(db *sql.DB, log *zap.SugaredLogger, opts Options) *Service {
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultMaxEntries
	}
	if opts.MinPrefix <= 0 {
		opts.MinPrefix = DefaultMinPrefix
	}
	return &Service{
		db:         db,
		log:        log,
		maxEntries: opts.MaxEntries,
		minPrefix:  opts.MinPrefix,
	}
}

// MaxEntries returns the configured history cap.
func (s *Service) MaxEntries() int {
	return s.maxEntries
}

// ensureTable creates the search_history table if it does not exist. The
// migration normally creates it, but the service keeps every write path
// safe against databases that predate it.
func (s *Service) ensureTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS search_history (
			id           TEXT PRIMARY KEY,
			query        TEXT NOT NULL,
			filters      TEXT NOT NULL DEFAULT '',
			timestamp    TEXT NOT NULL,
			result_count INTEGER NOT NULL DEFAULT 0
		)
	`)
	return err
}

// serializeFilters produces the canonical filters string used both for
// storage and as half of the dedup key.
func serializeFilters(f storage.SearchFilters) string {
	b, err := json.Marshal(f.Normalized())
	if err != nil {
		return ""
	}
	return string(b)
}

// Record writes one search to the log. Failures are logged and swallowed:
// a broken history write must never surface to the search flow that
// triggered it. Blank queries are dropped.
func (s *Service) Record(ctx context.Context, e Entry) {
	query := strings.TrimSpace(e.Query)
	if query == "" {
		return
	}

	if err := s.record(ctx, query, e); err != nil {
		s.log.Warnw("record search history", "query", query, "error", err)
	}
}

func (s *Service) record(ctx context.Context, query string, e Entry) error {
	if err := s.ensureTable(ctx); err != nil {
		return fmt.Errorf("ensure table: %w", err)
	}

	filters := serializeFilters(e.Filters)
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	// Dedup, insert, and evict as one unit so a crash can never lose the
	// old entry without writing the new one.
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM search_history WHERE query = ? AND filters = ?",
		query, filters,
	); err != nil {
		return fmt.Errorf("dedup: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO search_history (id, query, filters, timestamp, result_count) VALUES (?, ?, ?, ?, ?)",
		uuid.NewString(), query, filters, ts.UTC().Format(time.RFC3339), e.ResultCount,
	); err != nil {
		return fmt.Errorf("insert: %w", err)
	}

	// Oldest-first eviction down to the cap.
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM search_history WHERE id NOT IN (
			SELECT id FROM search_history ORDER BY timestamp DESC, rowid DESC LIMIT ?
		)
	`, s.maxEntries); err != nil {
		return fmt.Errorf("evict: %w", err)
	}

	return tx.Commit()
}

// Recent returns history entries, most recent first. Any storage or decode
// error degrades to an empty slice.
func (s *Service) Recent(ctx context.Context, limit int) []Entry {
	if limit <= 0 || limit > s.maxEntries {
		limit = s.maxEntries
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, query, filters, timestamp, result_count
		FROM search_history
		ORDER BY timestamp DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		s.log.Warnw("read search history", "error", err)
		return []Entry{}
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		var e Entry
		var filtersStr, tsStr string
		if err := rows.Scan(&e.ID, &e.Query, &filtersStr, &tsStr, &e.ResultCount); err != nil {
			s.log.Warnw("scan search history", "error", err)
			return []Entry{}
		}
		if filtersStr != "" {
			if err := json.Unmarshal([]byte(filtersStr), &e.Filters); err != nil {
				s.log.Warnw("decode history filters", "id", e.ID, "error", err)
				return []Entry{}
			}
		}
		if ts, err := time.Parse(time.RFC3339, tsStr); err == nil {
			e.Timestamp = ts
		}
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		s.log.Warnw("read search history", "error", err)
		return []Entry{}
	}

	return entries
}

// Remove deletes a single entry by ID. Errors are logged and swallowed.
func (s *Service) Remove(ctx context.Context, id string) {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM search_history WHERE id = ?", id); err != nil {
		s.log.Warnw("remove history entry", "id", id, "error", err)
	}
}

// Clear deletes the entire history log. Errors are logged and swallowed.
func (s *Service) Clear(ctx context.Context) {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM search_history"); err != nil {
		s.log.Warnw("clear search history", "error", err)
	}
}

// Prune re-applies the eviction rule outside the write path, so a lowered
// cap takes effect without waiting for the next recorded search. The
// server's maintenance job calls this periodically.
func (s *Service) Prune(ctx context.Context) error {
	if err := s.ensureTable(ctx); err != nil {
		return fmt.Errorf("ensure table: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM search_history WHERE id NOT IN (
			SELECT id FROM search_history ORDER BY timestamp DESC, rowid DESC LIMIT ?
		)
	`, s.maxEntries); err != nil {
		return fmt.Errorf("prune history: %w", err)
	}
	return nil
}

// Frequent returns the most-searched queries, count descending, most
// recently used first on ties. Errors degrade to an empty slice.
func (s *Service) Frequent(ctx context.Context, limit int) []QueryCount {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT query, COUNT(*) AS uses, MAX(timestamp) AS last_used
		FROM search_history
		GROUP BY query
		ORDER BY uses DESC, last_used DESC
		LIMIT ?
	`, limit)
	if err != nil {
		s.log.Warnw("read frequent searches", "error", err)
		return []QueryCount{}
	}
	defer rows.Close()

	counts := []QueryCount{}
	for rows.Next() {
		var qc QueryCount
		var lastStr string
		if err := rows.Scan(&qc.Query, &qc.Count, &lastStr); err != nil {
			s.log.Warnw("scan frequent searches", "error", err)
			return []QueryCount{}
		}
		if ts, err := time.Parse(time.RFC3339, lastStr); err == nil {
			qc.LastUsed = ts
		}
		counts = append(counts, qc)
	}

	if err := rows.Err(); err != nil {
		s.log.Warnw("read frequent searches", "error", err)
		return []QueryCount{}
	}

	return counts
}

// Suggestions returns distinct past queries containing the partial text
// (case-insensitive), most recent first. Inputs shorter than the minimum
// prefix return empty without touching storage.
func (s *Service) Suggestions(ctx context.Context, partial string, limit int) []string {
	partial = strings.TrimSpace(partial)
	if utf8.RuneCountInString(partial) < s.minPrefix {
		return []string{}
	}
	if limit <= 0 {
		limit = s.maxEntries
	}

	pattern := "%" + escapeLike(partial) + "%"
	rows, err := s.db.QueryContext(ctx, `
		SELECT query FROM search_history
		WHERE query LIKE ? ESCAPE '\'
		GROUP BY query
		ORDER BY MAX(timestamp) DESC
		LIMIT ?
	`, pattern, limit)
	if err != nil {
		s.log.Warnw("read history suggestions", "error", err)
		return []string{}
	}
	defer rows.Close()

	queries := []string{}
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			s.log.Warnw("scan history suggestions", "error", err)
			return []string{}
		}
		queries = append(queries, q)
	}

	if err := rows.Err(); err != nil {
		s.log.Warnw("read history suggestions", "error", err)
		return []string{}
	}

	return queries
}

// escapeLike escapes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// Stats aggregates the history log. Unlike the other reads, a storage
// error is returned so callers can tell a broken database apart from an
// empty one; an empty log returns zero values and a nil LastSearched.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	var lastStr sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT query), IFNULL(AVG(result_count), 0), MAX(timestamp)
		FROM search_history
	`).Scan(&st.TotalSearches, &st.UniqueQueries, &st.AvgResults, &lastStr)
	if err != nil {
		return Stats{}, fmt.Errorf("history stats: %w", err)
	}

	if lastStr.Valid {
		if ts, err := time.Parse(time.RFC3339, lastStr.String); err == nil {
			st.LastSearched = &ts
		}
	}

	return st, nil
}

// SizeInfo reports the current entry count against the cap.
func (s *Service) SizeInfo(ctx context.Context) (Size, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM search_history").Scan(&count)
	if err != nil {
		return Size{}, fmt.Errorf("history size: %w", err)
	}
	return Size{Count: count, Max: s.maxEntries, CanAddMore: count < s.maxEntries}, nil
}

// Export renders the whole history log as indented JSON. Any failure
// yields the empty array literal rather than an error.
func (s *Service) Export(ctx context.Context) string {
	entries := s.Recent(ctx, s.maxEntries)
	b, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		s.log.Warnw("export search history", "error", err)
		return "[]"
	}
	return string(b)
}
