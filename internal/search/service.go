// Package search is the query front door: it runs ranked full-text
// searches against the card store and blends store-derived and
// history-derived autocomplete suggestions.
package search

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/runnerr0/wordbook/internal/history"
	"github.com/runnerr0/wordbook/internal/storage"
)

// Suggestion sources.
const (
	SourceContent = "content"
	SourceHistory = "history"
)

const (
	// DefaultLimit caps search results when the caller does not.
	DefaultLimit = 50
	// DefaultSuggestMin is the minimum suggestion input length in runes.
	DefaultSuggestMin = 2
	// DefaultSuggestMax caps merged suggestion lists.
	DefaultSuggestMax = 8
)

// Filters narrows and orders a search.
type Filters struct {
	SortBy    storage.SortBy
	SortOrder storage.SortOrder
	DateRange *storage.DateRange
	Folder    string
	Limit     int
}

// storageFilters extracts the part of the filters that travels with the
// query into the store and into history records.
func (f Filters) storageFilters() storage.SearchFilters {
	return storage.SearchFilters{
		SortBy:    f.SortBy,
		SortOrder: f.SortOrder,
		DateRange: f.DateRange,
	}.Normalized()
}

// Options configures a search Service.
type Options struct {
	DefaultLimit int
	SuggestMin   int
	SuggestMax   int
}

// Service answers searches and suggestions. Searches fail loud; the
// history bookkeeping they trigger fails silent.
type Service struct {
	store        storage.Store
	history      *history.Service
	log          *zap.SugaredLogger
	defaultLimit int
	suggestMin   int
	suggestMax   int
}

// New creates a search Service. Zero option fields fall back to defaults.
func New(store storage.Store, hist *history.Service, log *zap.SugaredLogger, opts Options) *Service {
	if opts.DefaultLimit <= 0 {
		opts.DefaultLimit = DefaultLimit
	}
	if opts.SuggestMin <= 0 {
		opts.SuggestMin = DefaultSuggestMin
	}
	if opts.SuggestMax <= 0 {
		opts.SuggestMax = DefaultSuggestMax
	}
	return &Service{
		store:        store,
		history:      hist,
		log:          log,
		defaultLimit: opts.DefaultLimit,
		suggestMin:   opts.SuggestMin,
		suggestMax:   opts.SuggestMax,
	}
}

// Search runs a ranked full-text search. A blank query returns empty
// without touching the store. Store errors are returned to the caller;
// unlike the read-side history methods there is no silent degradation
// here, a broken index must be visible.
//
// Every successful search is recorded to history from a detached
// goroutine so the search path never waits on, or fails because of,
// history bookkeeping.
func (s *Service) Search(ctx context.Context, query string, f Filters) ([]storage.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []storage.SearchResult{}, nil
	}

	limit := f.Limit
	if limit <= 0 {
		limit = s.defaultLimit
	}

	filters := f.storageFilters()
	results, err := s.store.SearchCards(ctx, storage.SearchQuery{
		Text:    query,
		Filters: filters,
		Folder:  f.Folder,
		Limit:   limit,
	})
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	// Background context on purpose: the request context is often
	// cancelled the moment the response is written, which would abort
	// the recording. Record swallows its own errors.
	go s.history.Record(context.Background(), history.Entry{
		Query:       query,
		Filters:     filters,
		ResultCount: len(results),
	})

	return results, nil
}

// Suggestions merges store-derived completions (card words and
// translations, prefix matches first) with past queries from history,
// in that order. Duplicated texts keep their content-flavoured entry.
// Inputs shorter than the minimum return empty without any lookups.
// Lookup failures degrade to the other half; this method never fails.
func (s *Service) Suggestions(ctx context.Context, partial string) []storage.Suggestion {
	partial = strings.TrimSpace(partial)
	if utf8.RuneCountInString(partial) < s.suggestMin {
		return []storage.Suggestion{}
	}

	merged := make([]storage.Suggestion, 0, s.suggestMax)
	seen := make(map[string]bool, s.suggestMax)

	terms, err := s.store.SuggestTerms(ctx, partial, s.suggestMax)
	if err != nil {
		s.log.Warnw("content suggestions", "partial", partial, "error", err)
	}
	for _, term := range terms {
		if seen[term] {
			continue
		}
		seen[term] = true
		merged = append(merged, storage.Suggestion{Text: term, Source: SourceContent})
		if len(merged) == s.suggestMax {
			return merged
		}
	}

	for _, query := range s.history.Suggestions(ctx, partial, s.suggestMax) {
		if seen[query] {
			continue
		}
		seen[query] = true
		merged = append(merged, storage.Suggestion{Text: query, Source: SourceHistory})
		if len(merged) == s.suggestMax {
			break
		}
	}

	return merged
}

// Complete is Suggestions stripped to plain text, for callers that only
// want the strings.
func (s *Service) Complete(ctx context.Context, partial string) []string {
	suggestions := s.Suggestions(ctx, partial)
	texts := make([]string, 0, len(suggestions))
	for _, sg := range suggestions {
		texts = append(texts, sg.Text)
	}
	return texts
}
