package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/runnerr0/wordbook/internal/history"
	"github.com/runnerr0/wordbook/internal/search"
	"github.com/runnerr0/wordbook/internal/storage"
)

// Handlers holds the services the HTTP routes call into.
type Handlers struct {
	store   storage.Store
	search  *search.Service
	history *history.Service
	log     *zap.SugaredLogger
}

// NewHandlers wires route handlers to their services.
func NewHandlers(store storage.Store, searchSvc *search.Service, histSvc *history.Service, log *zap.SugaredLogger) *Handlers {
	return &Handlers{store: store, search: searchSvc, history: histSvc, log: log}
}

// Health reports liveness.
func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// SearchCards runs a ranked search over the card collection.
func (h *Handlers) SearchCards(c *gin.Context) {
	filters, err := filtersFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	query := strings.TrimSpace(c.Query("q"))
	results, err := h.search.Search(c.Request.Context(), query, filters)
	if err != nil {
		h.log.Errorw("search failed",
			"request_id", c.GetString("request_id"), "query", query, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"query":   query,
		"count":   len(results),
		"results": results,
	})
}

// Suggest returns merged autocomplete suggestions. With plain=true the
// payload carries bare strings instead of {text, source} objects.
func (h *Handlers) Suggest(c *gin.Context) {
	partial := c.Query("q")

	if plain := c.Query("plain"); plain == "true" || plain == "1" {
		c.JSON(http.StatusOK, gin.H{"suggestions": h.search.Complete(c.Request.Context(), partial)})
		return
	}

	c.JSON(http.StatusOK, gin.H{"suggestions": h.search.Suggestions(c.Request.Context(), partial)})
}

// HistoryList returns recent searches, most recent first.
func (h *Handlers) HistoryList(c *gin.Context) {
	limit, err := intParam(c, "limit", 0)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entries := h.history.Recent(c.Request.Context(), limit)
	c.JSON(http.StatusOK, gin.H{"entries": entries, "count": len(entries)})
}

// HistoryClear empties the search history.
func (h *Handlers) HistoryClear(c *gin.Context) {
	h.history.Clear(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"status": "cleared"})
}

// HistoryRemove deletes one history entry by ID.
func (h *Handlers) HistoryRemove(c *gin.Context) {
	h.history.Remove(c.Request.Context(), c.Param("id"))
	c.JSON(http.StatusOK, gin.H{"status": "removed"})
}

// HistoryFrequent returns the most-searched queries.
func (h *Handlers) HistoryFrequent(c *gin.Context) {
	limit, err := intParam(c, "limit", 10)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"queries": h.history.Frequent(c.Request.Context(), limit)})
}

// HistoryStats returns aggregate history statistics.
func (h *Handlers) HistoryStats(c *gin.Context) {
	stats, err := h.history.Stats(c.Request.Context())
	if err != nil {
		h.log.Errorw("history stats failed",
			"request_id", c.GetString("request_id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read history stats"})
		return
	}
	c.JSON(http.StatusOK, stats)
}

// HistorySize reports how full the history log is.
func (h *Handlers) HistorySize(c *gin.Context) {
	size, err := h.history.SizeInfo(c.Request.Context())
	if err != nil {
		h.log.Errorw("history size failed",
			"request_id", c.GetString("request_id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read history size"})
		return
	}
	c.JSON(http.StatusOK, size)
}

// HistoryExport streams the history log as a JSON document.
func (h *Handlers) HistoryExport(c *gin.Context) {
	c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(h.history.Export(c.Request.Context())))
}

type createCardRequest struct {
	Word          string `json:"word" binding:"required"`
	Translation   string `json:"translation" binding:"required"`
	Pronunciation string `json:"pronunciation"`
	Memo          string `json:"memo"`
	Folder        string `json:"folder"`
}

// CreateCard adds a single flashcard, creating its folder on demand.
func (h *Handlers) CreateCard(c *gin.Context) {
	var req createCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	card := &storage.Card{
		Word:          req.Word,
		Translation:   req.Translation,
		Pronunciation: req.Pronunciation,
		Memo:          req.Memo,
	}

	if req.Folder != "" {
		folder, err := h.store.EnsureFolder(ctx, req.Folder)
		if err != nil {
			h.log.Errorw("resolve folder failed",
				"request_id", c.GetString("request_id"), "folder", req.Folder, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve folder"})
			return
		}
		card.FolderID = folder.ID
	}

	if err := h.store.AddCard(ctx, card); err != nil {
		h.log.Errorw("add card failed",
			"request_id", c.GetString("request_id"), "word", req.Word, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add card"})
		return
	}

	c.JSON(http.StatusCreated, card)
}

// ListFolders returns all folders with their card counts.
func (h *Handlers) ListFolders(c *gin.Context) {
	folders, err := h.store.ListFolders(c.Request.Context())
	if err != nil {
		h.log.Errorw("list folders failed",
			"request_id", c.GetString("request_id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list folders"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"folders": folders})
}

// filtersFromQuery translates search query parameters into service
// filters, rejecting values the store would silently misread.
func filtersFromQuery(c *gin.Context) (search.Filters, error) {
	var f search.Filters

	switch sb := c.Query("sort_by"); sb {
	case "", string(storage.SortByRelevance):
		f.SortBy = storage.SortByRelevance
	case string(storage.SortByCreated):
		f.SortBy = storage.SortByCreated
	case string(storage.SortByWord):
		f.SortBy = storage.SortByWord
	default:
		return f, fmt.Errorf("invalid sort_by %q", sb)
	}

	switch so := c.Query("sort_order"); so {
	case "":
	case string(storage.SortAsc):
		f.SortOrder = storage.SortAsc
	case string(storage.SortDesc):
		f.SortOrder = storage.SortDesc
	default:
		return f, fmt.Errorf("invalid sort_order %q", so)
	}

	from, to := c.Query("from"), c.Query("to")
	if from != "" || to != "" {
		var rng storage.DateRange
		var err error
		if from != "" {
			if rng.Start, err = storage.ParseDate(from, false); err != nil {
				return f, err
			}
		}
		if to != "" {
			if rng.End, err = storage.ParseDate(to, true); err != nil {
				return f, err
			}
		}
		f.DateRange = &rng
	}

	limit, err := intParam(c, "limit", 0)
	if err != nil {
		return f, err
	}
	f.Limit = limit
	f.Folder = c.Query("folder")

	return f, nil
}

// intParam reads a non-negative integer query parameter.
func intParam(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return n, nil
}
