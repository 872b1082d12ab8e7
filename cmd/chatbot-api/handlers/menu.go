package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/squareb/menu-chatbot/internal/domain"
	"github.com/squareb/menu-chatbot/internal/menu"
	"github.com/squareb/menu-chatbot/internal/observability"
)

// MenuSource serves and rebuilds the menu index.
type MenuSource interface {
	Current() (*menu.Index, error)
	Reload(ctx context.Context) (*menu.Index, error)
}

// MenuHandler exposes the menu.
type MenuHandler struct {
	logger    *observability.Logger
	menus     MenuSource
	threshold float64
	onReload  func(ctx context.Context)
}

// NewMenuHandler creates a menu handler. onReload, when set, runs after every
// successful reload requested through the API.
func NewMenuHandler(logger *observability.Logger, menus MenuSource, threshold float64, onReload func(ctx context.Context)) *MenuHandler {
	return &MenuHandler{
		logger:    logger,
		menus:     menus,
		threshold: threshold,
		onReload:  onReload,
	}
}

// MenuResponseDTO is the reply to GET /menu.
type MenuResponseDTO struct {
	Success    bool       `json:"success"`
	Items      []ItemDTO  `json:"items"`
	Categories []string   `json:"categories"`
	Stats      menu.Stats `json:"stats"`
}

// SearchResponseDTO is the reply to GET /menu/search.
type SearchResponseDTO struct {
	Query     string    `json:"query"`
	Threshold float64   `json:"threshold"`
	Results   []ItemDTO `json:"results"`
}

// ReloadResponseDTO is the reply to POST /menu/reload.
type ReloadResponseDTO struct {
	Success    bool                `json:"success"`
	Message    string              `json:"message"`
	ItemsCount int                 `json:"items_count"`
	Categories int                 `json:"categories_count"`
	Skipped    []menu.ParseWarning `json:"skipped,omitempty"`
}

func (h *MenuHandler) current(w http.ResponseWriter) (*menu.Index, bool) {
	idx, err := h.menus.Current()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "menu not loaded", err.Error())
		return nil, false
	}
	return idx, true
}

// List handles GET /menu. An optional ?category= narrows the listing.
func (h *MenuHandler) List(w http.ResponseWriter, r *http.Request) {
	idx, ok := h.current(w)
	if !ok {
		return
	}

	items := idx.Items()
	if c := strings.TrimSpace(r.URL.Query().Get("category")); c != "" {
		name, found := idx.FindCategory(c)
		if !found {
			writeError(w, http.StatusNotFound, "category not found", c)
			return
		}
		items = idx.ByCategory(name)
	}

	writeJSON(w, http.StatusOK, MenuResponseDTO{
		Success:    true,
		Items:      toItemDTOs(items),
		Categories: idx.Categories(),
		Stats:      idx.Stats(),
	})
}

// Search handles GET /menu/search?q=&threshold=&limit=.
func (h *MenuHandler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "q is required", "")
		return
	}

	threshold := h.threshold
	if v := q.Get("threshold"); v != "" {
		t, err := strconv.ParseFloat(v, 64)
		if err != nil || t < 0 || t > 100 {
			writeError(w, http.StatusBadRequest, "threshold must be a number between 0 and 100", v)
			return
		}
		threshold = t
	}

	limit := 0
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer", v)
			return
		}
		limit = n
	}

	idx, ok := h.current(w)
	if !ok {
		return
	}

	hits := idx.Search(query, threshold)
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	results := make([]ItemDTO, 0, len(hits))
	for _, hit := range hits {
		dto := toItemDTO(hit.Item)
		dto.Score = hit.Score
		results = append(results, dto)
	}

	writeJSON(w, http.StatusOK, SearchResponseDTO{
		Query:     query,
		Threshold: threshold,
		Results:   results,
	})
}

// Reload handles POST /menu/reload. A menu that fails to parse leaves the
// previous one in service and answers 422.
func (h *MenuHandler) Reload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := h.logger.WithContext(ctx)

	idx, err := h.menus.Reload(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Menu reload failed")
		status := http.StatusInternalServerError
		if domain.IsType(err, domain.ErrorTypeParse) {
			status = http.StatusUnprocessableEntity
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusServiceUnavailable
		}
		writeError(w, status, "فشل تحميل القائمة", err.Error())
		return
	}

	if h.onReload != nil {
		h.onReload(ctx)
	}

	stats := idx.Stats()
	writeJSON(w, http.StatusOK, ReloadResponseDTO{
		Success:    true,
		Message:    "تم تحميل القائمة بنجاح",
		ItemsCount: stats.Items,
		Categories: stats.Categories,
		Skipped:    idx.Warnings(),
	})
}
