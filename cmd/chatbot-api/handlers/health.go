package handlers

import (
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// HealthHandler serves the landing page and health probe.
type HealthHandler struct {
	service   string
	welcome   string
	staticDir string
	menuItems func() (int, bool)
}

// NewHealthHandler creates a health handler. menuItems reports the item
// count of the active menu and whether one is loaded.
func NewHealthHandler(service, restaurant, staticDir string, menuItems func() (int, bool)) *HealthHandler {
	return &HealthHandler{
		service:   service,
		welcome:   "مرحباً بك في " + restaurant + " Chatbot",
		staticDir: staticDir,
		menuItems: menuItems,
	}
}

// Root handles GET /. It serves the chat page when one is installed.
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	if h.staticDir != "" {
		page := filepath.Join(h.staticDir, "index.html")
		if _, err := os.Stat(page); err == nil {
			http.ServeFile(w, r, page)
			return
		}
	}

	items, _ := h.menuItems()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":    h.welcome,
		"status":     "active",
		"service":    h.service,
		"menu_items": items,
	})
}

// Health handles GET /health.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	_, loaded := h.menuItems()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":      "healthy",
		"service":     h.service,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"menu_loaded": loaded,
	})
}
