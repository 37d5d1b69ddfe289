package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/wonny/aegis-watch/internal/brain"
	"github.com/wonny/aegis-watch/internal/contracts"
	"github.com/wonny/aegis-watch/pkg/logger"
)

const (
	defaultLatestLimit = 10
	maxLatestLimit     = 100
)

// Selector runs one selection; *brain.Orchestrator satisfies it
type Selector interface {
	Run(ctx context.Context, req brain.Request) (*brain.Response, error)
}

// PicksHandler handles the selection and pick listing endpoints
// ⭐ SSOT: 종목 선정 API 핸들러는 이 구조체에서만
type PicksHandler struct {
	selector Selector
	repo     contracts.PickRepository
	validate *validator.Validate
	logger   *logger.Logger
}

// NewPicksHandler creates a new picks handler
func NewPicksHandler(selector Selector, repo contracts.PickRepository, log *logger.Logger) *PicksHandler {
	return &PicksHandler{
		selector: selector,
		repo:     repo,
		validate: validator.New(),
		logger:   log,
	}
}

// SelectRequest is the selection body; gainers and stocks are aliases
type SelectRequest struct {
	Gainers []map[string]interface{} `json:"gainers"`
	Stocks  []map[string]interface{} `json:"stocks"`
	TopN    *int                     `json:"topN" validate:"omitempty,min=1,max=2"`
}

func (r SelectRequest) rows() []map[string]interface{} {
	if len(r.Gainers) > 0 {
		return r.Gainers
	}
	return r.Stocks
}

// Select runs the watchlist selection pipeline
// POST /api/picks/select
func (h *PicksHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "topN must be 1 or 2")
		return
	}

	rows := req.rows()
	if len(rows) == 0 {
		respondError(w, http.StatusBadRequest, "body must contain a non-empty gainers or stocks array")
		return
	}

	topN := 0
	if req.TopN != nil {
		topN = *req.TopN
	}

	resp, err := h.selector.Run(r.Context(), brain.Request{Rows: rows, TopN: topN})
	if err != nil {
		var missing *contracts.ConfigMissingError
		switch {
		case errors.As(err, &missing):
			h.logger.WithField("setting", missing.Setting).Error("Selection refused: configuration missing")
			respondError(w, http.StatusInternalServerError, err.Error())
		case brain.IsClientError(err):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.WithError(err).Error("Selection failed")
			respondError(w, http.StatusInternalServerError, "selection failed")
		}
		return
	}

	respondJSON(w, http.StatusOK, resp)
}

// Latest returns the most recently persisted picks
// GET /api/picks/latest?limit=N
func (h *PicksHandler) Latest(w http.ResponseWriter, r *http.Request) {
	limit := defaultLatestLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxLatestLimit)
	}

	picks, err := h.repo.LatestPicks(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list picks")
		respondError(w, http.StatusInternalServerError, "failed to list picks")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"picks": picks,
		"count": len(picks),
	})
}
