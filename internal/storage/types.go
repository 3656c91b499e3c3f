package storage

import "time"

// Folder groups flashcards. Every card belongs to exactly one folder.
type Folder struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	CardCount int64     `json:"card_count"`
}

// Card is a single flashcard: the word being learned plus its translation
// and optional pronunciation and memo text.
type Card struct {
	ID            int64     `json:"id"`
	FolderID      int64     `json:"folder_id"`
	Word          string    `json:"word"`
	Translation   string    `json:"translation"`
	Pronunciation string    `json:"pronunciation,omitempty"`
	Memo          string    `json:"memo,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SortBy selects the ordering column for card search.
type SortBy string

const (
	SortByRelevance SortBy = "relevance"
	SortByCreated   SortBy = "created"
	SortByWord      SortBy = "word"
)

// SortOrder is the ordering direction.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// DateRange restricts results to cards created inside [Start, End].
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// SearchFilters is the user-facing filter set attached to a search. It is
// also what gets serialized into the history log, so the JSON field order
// and names are part of the dedup key and must stay stable.
type SearchFilters struct {
	SortBy    SortBy     `json:"sort_by"`
	SortOrder SortOrder  `json:"sort_order"`
	DateRange *DateRange `json:"date_range,omitempty"`
}

// Normalized returns a copy with empty fields replaced by the defaults
// (relevance, descending).
func (f SearchFilters) Normalized() SearchFilters {
	if f.SortBy == "" {
		f.SortBy = SortByRelevance
	}
	if f.SortOrder == "" {
		f.SortOrder = SortDesc
	}
	return f
}

// SearchQuery bundles the query text with filters and paging for the store.
type SearchQuery struct {
	Text    string
	Filters SearchFilters
	Folder  string
	Limit   int
	Offset  int
}

// SearchResult is a matched card with its FTS rank (bm25, smaller is more
// relevant) and a snippet with the matched terms marked up.
type SearchResult struct {
	Card    Card    `json:"card"`
	Rank    float64 `json:"rank"`
	Snippet string  `json:"snippet,omitempty"`
}

// Suggestion pairs a completion with where it came from.
type Suggestion struct {
	Text   string `json:"text"`
	Source string `json:"source"` // "content" or "history"
}

// Stats holds aggregate statistics about the wordbook database.
type Stats struct {
	TotalCards   int64         `json:"total_cards"`
	TotalFolders int64         `json:"total_folders"`
	TotalHistory int64         `json:"total_history"`
	OldestCard   time.Time     `json:"oldest_card"`
	NewestCard   time.Time     `json:"newest_card"`
	TopFolders   []FolderCount `json:"top_folders,omitempty"`
}

// FolderCount pairs a folder name with its card count.
type FolderCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}
