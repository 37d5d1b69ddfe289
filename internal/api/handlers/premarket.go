package handlers

import (
	"net/http"

	"github.com/wonny/aegis-watch/internal/premarket"
)

// PremarketHandler exposes the premarket cache bookkeeping
type PremarketHandler struct {
	service *premarket.Service
}

// NewPremarketHandler creates a new premarket handler; a nil service reports disabled
func NewPremarketHandler(service *premarket.Service) *PremarketHandler {
	return &PremarketHandler{service: service}
}

// Status returns the cache state without fetching
// GET /api/premarket/status
func (h *PremarketHandler) Status(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"status": premarket.StatusDisabled,
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"inWindow":    h.service.InWindow(),
		"cache":       h.service.Status(),
		"lastSymbols": h.service.LastSymbols(),
	})
}
