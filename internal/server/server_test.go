package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/runnerr0/wordbook/internal/config"
	"github.com/runnerr0/wordbook/internal/history"
	"github.com/runnerr0/wordbook/internal/search"
	"github.com/runnerr0/wordbook/internal/storage"
)

type serverEnv struct {
	srv   *Server
	store storage.Store
	hist  *history.Service
	db    *sql.DB
}

func newServerEnv(t *testing.T, cfg config.ServerConfig, histOpts history.Options) *serverEnv {
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

	log := zap.NewNop().Sugar()
	hist := history.New(db, log, histOpts)
	searchSvc := search.New(store, hist, log, search.Options{})

	return &serverEnv{
		srv:   New(cfg, store, searchSvc, hist, log),
		store: store,
		hist:  hist,
		db:    db,
	}
}

func (e *serverEnv) request(t *testing.T, method, target string, body io.Reader) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.srv.Router().ServeHTTP(w, req)
	return w
}

func (e *serverEnv) seedCard(t *testing.T, word, translation string) {
	t.Helper()

	require.NoError(t, e.store.AddCard(context.Background(), &storage.Card{
		Word: word, Translation: translation,
	}))
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out), "body: %s", w.Body.String())
}

func TestHealth(t *testing.T) {
	env := newServerEnv(t, config.ServerConfig{}, history.Options{})

	w := env.request(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	decodeBody(t, w, &body)
	assert.Equal(t, "ok", body["status"])
}

func TestSearchEndpoint(t *testing.T) {
	env := newServerEnv(t, config.ServerConfig{}, history.Options{})
	env.seedCard(t, "perro", "dog")
	env.seedCard(t, "gato", "cat")

	w := env.request(t, http.MethodGet, "/api/v1/search?q=dog", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Query   string                 `json:"query"`
		Count   int                    `json:"count"`
		Results []storage.SearchResult `json:"results"`
	}
	decodeBody(t, w, &body)
	assert.Equal(t, "dog", body.Query)
	assert.Equal(t, 1, body.Count)
	require.Len(t, body.Results, 1)
	assert.Equal(t, "perro", body.Results[0].Card.Word)
}

func TestSearchEndpoint_BlankQuery(t *testing.T) {
	env := newServerEnv(t, config.ServerConfig{}, history.Options{})

	w := env.request(t, http.MethodGet, "/api/v1/search", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Count   int                    `json:"count"`
		Results []storage.SearchResult `json:"results"`
	}
	decodeBody(t, w, &body)
	assert.Zero(t, body.Count)
	assert.NotNil(t, body.Results)
	assert.Empty(t, body.Results)
}

func TestSearchEndpoint_SortParams(t *testing.T) {
	env := newServerEnv(t, config.ServerConfig{}, history.Options{})
	env.seedCard(t, "zorro", "fox animal")
	env.seedCard(t, "abeja", "bee animal")

	w := env.request(t, http.MethodGet, "/api/v1/search?q=animal&sort_by=word&sort_order=asc", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Results []storage.SearchResult `json:"results"`
	}
	decodeBody(t, w, &body)
	require.Len(t, body.Results, 2)
	assert.Equal(t, "abeja", body.Results[0].Card.Word)
	assert.Equal(t, "zorro", body.Results[1].Card.Word)
}

func TestSearchEndpoint_RejectsBadParams(t *testing.T) {
	env := newServerEnv(t, config.ServerConfig{}, history.Options{})

	cases := []struct {
		name   string
		target string
	}{
		{"bad sort_by", "/api/v1/search?q=x&sort_by=rank"},
		{"bad sort_order", "/api/v1/search?q=x&sort_order=up"},
		{"bad from date", "/api/v1/search?q=x&from=yesterday"},
		{"bad to date", "/api/v1/search?q=x&to=03-01-2026x"},
		{"bad limit", "/api/v1/search?q=x&limit=many"},
		{"negative limit", "/api/v1/search?q=x&limit=-5"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := env.request(t, http.MethodGet, tc.target, nil)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "error")
		})
	}
}

func TestSearchEndpoint_WritesHistory(t *testing.T) {
	env := newServerEnv(t, config.ServerConfig{}, history.Options{})
	env.seedCard(t, "perro", "dog")

	w := env.request(t, http.MethodGet, "/api/v1/search?q=dog", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var entries []history.Entry
	require.Eventually(t, func() bool {
		entries = env.hist.Recent(context.Background(), 0)
		return len(entries) == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, "dog", entries[0].Query)
	assert.Equal(t, 1, entries[0].ResultCount)
}

func TestSuggestEndpoint(t *testing.T) {
	env := newServerEnv(t, config.ServerConfig{}, history.Options{})
	env.seedCard(t, "carta", "letter")
	env.hist.Record(context.Background(), history.Entry{Query: "carta vieja", Timestamp: time.Now()})

	w := env.request(t, http.MethodGet, "/api/v1/suggest?q=carta", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Suggestions []storage.Suggestion `json:"suggestions"`
	}
	decodeBody(t, w, &body)
	require.Len(t, body.Suggestions, 2)
	assert.Equal(t, storage.Suggestion{Text: "carta", Source: "content"}, body.Suggestions[0])
	assert.Equal(t, storage.Suggestion{Text: "carta vieja", Source: "history"}, body.Suggestions[1])
}

func TestSuggestEndpoint_Plain(t *testing.T) {
	env := newServerEnv(t, config.ServerConfig{}, history.Options{})
	env.seedCard(t, "carta", "letter")

	w := env.request(t, http.MethodGet, "/api/v1/suggest?q=carta&plain=true", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Suggestions []string `json:"suggestions"`
	}
	decodeBody(t, w, &body)
	assert.Equal(t, []string{"carta"}, body.Suggestions)
}

func TestSuggestEndpoint_ShortInput(t *testing.T) {
	env := newServerEnv(t, config.ServerConfig{}, history.Options{})

	w := env.request(t, http.MethodGet, "/api/v1/suggest?q=a", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Suggestions []storage.Suggestion `json:"suggestions"`
	}
	decodeBody(t, w, &body)
	assert.NotNil(t, body.Suggestions)
	assert.Empty(t, body.Suggestions)
}

func TestHistoryListRemoveClear(t *testing.T) {
	env := newServerEnv(t, config.ServerConfig{}, history.Options{})
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	env.hist.Record(ctx, history.Entry{Query: "dog", Timestamp: base})
	env.hist.Record(ctx, history.Entry{Query: "cat", Timestamp: base.Add(time.Minute)})

	w := env.request(t, http.MethodGet, "/api/v1/history", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Entries []history.Entry `json:"entries"`
		Count   int             `json:"count"`
	}
	decodeBody(t, w, &body)
	assert.Equal(t, 2, body.Count)
	require.Len(t, body.Entries, 2)
	assert.Equal(t, "cat", body.Entries[0].Query)

	w = env.request(t, http.MethodDelete, "/api/v1/history/"+body.Entries[0].ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, env.hist.Recent(ctx, 0), 1)

	w = env.request(t, http.MethodDelete, "/api/v1/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, env.hist.Recent(ctx, 0))
}

func TestHistoryFrequentEndpoint(t *testing.T) {
	env := newServerEnv(t, config.ServerConfig{}, history.Options{})
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	asc := storage.SearchFilters{SortBy: storage.SortByWord, SortOrder: storage.SortAsc}
	env.hist.Record(ctx, history.Entry{Query: "dog", Timestamp: base})
	env.hist.Record(ctx, history.Entry{Query: "dog", Filters: asc, Timestamp: base.Add(time.Minute)})
	env.hist.Record(ctx, history.Entry{Query: "cat", Timestamp: base.Add(2 * time.Minute)})

	w := env.request(t, http.MethodGet, "/api/v1/history/frequent?limit=1", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Queries []history.QueryCount `json:"queries"`
	}
	decodeBody(t, w, &body)
	require.Len(t, body.Queries, 1)
	assert.Equal(t, "dog", body.Queries[0].Query)
	assert.EqualValues(t, 2, body.Queries[0].Count)
}

func TestHistoryStatsAndSizeEndpoints(t *testing.T) {
	env := newServerEnv(t, config.ServerConfig{}, history.Options{MaxEntries: 10})
	ctx := context.Background()

	env.hist.Record(ctx, history.Entry{Query: "dog", ResultCount: 4, Timestamp: time.Now()})

	w := env.request(t, http.MethodGet, "/api/v1/history/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats history.Stats
	decodeBody(t, w, &stats)
	assert.EqualValues(t, 1, stats.TotalSearches)
	assert.EqualValues(t, 1, stats.UniqueQueries)
	assert.InDelta(t, 4.0, stats.AvgResults, 0.001)

	w = env.request(t, http.MethodGet, "/api/v1/history/size", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var size history.Size
	decodeBody(t, w, &size)
	assert.Equal(t, history.Size{Count: 1, Max: 10, CanAddMore: true}, size)
}

func TestHistoryExportEndpoint(t *testing.T) {
	env := newServerEnv(t, config.ServerConfig{}, history.Options{})
	env.hist.Record(context.Background(), history.Entry{Query: "dog", Timestamp: time.Now()})

	w := env.request(t, http.MethodGet, "/api/v1/history/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "application/json")

	var entries []history.Entry
	decodeBody(t, w, &entries)
	require.Len(t, entries, 1)
	assert.Equal(t, "dog", entries[0].Query)
}

func TestCreateCardEndpoint(t *testing.T) {
	env, ctx := newServerEnv(t, config.ServerConfig{}, history.Options{}), context.Background()

	payload := `{"word":"perro","translation":"dog","pronunciation":"PEH-roh","folder":"Spanish"}`
	w := env.request(t, http.MethodPost, "/api/v1/cards", strings.NewReader(payload))
	require.Equal(t, http.StatusCreated, w.Code)

	var card storage.Card
	decodeBody(t, w, &card)
	assert.Greater(t, card.ID, int64(0))
	assert.Equal(t, "perro", card.Word)

	folder, err := env.store.FolderByName(ctx, "Spanish")
	require.NoError(t, err)
	assert.Equal(t, folder.ID, card.FolderID, "folder is created on demand")

	results, err := env.store.SearchCards(ctx, storage.SearchQuery{Text: "dog", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, results, 1, "new card is searchable")
}

func TestCreateCardEndpoint_Validation(t *testing.T) {
	env := newServerEnv(t, config.ServerConfig{}, history.Options{})

	for _, payload := range []string{
		`{"word":"perro"}`,
		`{"translation":"dog"}`,
		`not json`,
	} {
		w := env.request(t, http.MethodPost, "/api/v1/cards", strings.NewReader(payload))
		assert.Equal(t, http.StatusBadRequest, w.Code, "payload: %s", payload)
	}
}

func TestListFoldersEndpoint(t *testing.T) {
	env := newServerEnv(t, config.ServerConfig{}, history.Options{})
	ctx := context.Background()

	_, err := env.store.EnsureFolder(ctx, "Spanish")
	require.NoError(t, err)

	w := env.request(t, http.MethodGet, "/api/v1/folders", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Folders []storage.Folder `json:"folders"`
	}
	decodeBody(t, w, &body)
	require.Len(t, body.Folders, 2)

	names := []string{body.Folders[0].Name, body.Folders[1].Name}
	assert.Contains(t, names, "Default")
	assert.Contains(t, names, "Spanish")
}

func TestBearerAuth(t *testing.T) {
	env := newServerEnv(t, config.ServerConfig{AuthToken: "s3cret"}, history.Options{})

	// API routes require the token.
	w := env.request(t, http.MethodGet, "/api/v1/history", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	env.srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/history", nil)
	req.Header.Set("Authorization", "Bearer s3cret")
	rec = httptest.NewRecorder()
	env.srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Health stays open for probes.
	w = env.request(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	env := newServerEnv(t, config.ServerConfig{}, history.Options{})

	w := env.request(t, http.MethodOptions, "/api/v1/search", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "Authorization")
}

func TestRequestIDHeader(t *testing.T) {
	env := newServerEnv(t, config.ServerConfig{}, history.Options{})

	w := env.request(t, http.MethodGet, "/health", nil)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "mobile-retry-7")
	rec := httptest.NewRecorder()
	env.srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, "mobile-retry-7", rec.Header().Get("X-Request-ID"), "client IDs are preserved")
}

func TestRunMaintenance(t *testing.T) {
	env := newServerEnv(t, config.ServerConfig{}, history.Options{MaxEntries: 2})
	ctx := context.Background()

	// Slip extra rows in underneath the service to simulate a cap change.
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, q := range []string{"one", "two", "three", "four"} {
		_, err := env.db.Exec(
			"INSERT INTO search_history (id, query, filters, timestamp, result_count) VALUES (?, ?, '', ?, 0)",
			q+"-id", q, base.Add(time.Duration(i)*time.Minute).Format(time.RFC3339),
		)
		require.NoError(t, err)
	}

	env.srv.runMaintenance()

	entries := env.hist.Recent(ctx, 0)
	require.Len(t, entries, 2)
	assert.Equal(t, "four", entries[0].Query)
	assert.Equal(t, "three", entries[1].Query)
}
