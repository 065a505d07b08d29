package api

import (
	"context"
	"net/http"
	"strconv"
)

const defaultTopLimit = 10

// TopDependencies defines the interface for ranking operations.
type TopDependencies interface {
	TopN(ctx context.Context, n int) ([]Entry, error)
}

// TopHandler serves the highest scoring finished comparisons.
type TopHandler struct {
	deps     TopDependencies
	maxLimit int
}

// NewTopHandler creates a new ranking handler.
func NewTopHandler(deps TopDependencies, maxLimit int) *TopHandler {
	return &TopHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGetTop handles GET /comparisons/top?limit=N requests. Limit defaults to 10.
func (h *TopHandler) HandleGetTop(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_top"
	n := defaultTopLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		v, err := strconv.Atoi(limitStr)
		if err != nil || v < 1 {
			writeClassified(w, NewKind(op, ErrBadRequest))
			return
		}
		n = v
	}
	if n > h.maxLimit {
		writeClassified(w, NewKind(op, ErrLimitExceeded))
		return
	}
	entries, err := h.deps.TopN(r.Context(), n)
	if err != nil {
		writeClassified(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
