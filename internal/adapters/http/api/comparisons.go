package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/okian/doppel/internal/adapters/repository"
	"github.com/okian/doppel/internal/domain/model"
	"github.com/okian/doppel/internal/domain/scoring"
	"github.com/okian/doppel/internal/domain/types"
)

// topPath is the ranking route under /comparisons; it shadows a comparison
// with the same ID.
const topPath = "top"

// ComparisonDependencies defines the interface for comparison operations.
type ComparisonDependencies interface {
	Compare(ctx context.Context, req model.Comparison) (scoring.Result, error)
	Submit(ctx context.Context, req model.Comparison) (types.Submission, error)
	Result(ctx context.Context, id string) (repository.Record, error)
}

// ComparisonsHandler handles synchronous and asynchronous comparison requests.
type ComparisonsHandler struct {
	deps ComparisonDependencies
}

// NewComparisonsHandler creates a new comparisons handler.
func NewComparisonsHandler(deps ComparisonDependencies) *ComparisonsHandler {
	return &ComparisonsHandler{deps: deps}
}

// HandleCompare handles POST /compare requests.
func (h *ComparisonsHandler) HandleCompare(w http.ResponseWriter, r *http.Request) {
	const op = "api.compare"
	req, err := decodeComparison(w, r)
	if err != nil {
		writeClassified(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	res, err := h.deps.Compare(r.Context(), req.toModel())
	if err != nil {
		writeClassified(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleSubmit handles POST /comparisons requests.
func (h *ComparisonsHandler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	const op = "api.submit"
	req, err := decodeComparison(w, r)
	if err != nil {
		writeClassified(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	req.ID = strings.TrimSpace(req.ID)
	if err := validateID(req.ID); err != nil {
		writeClassified(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	sub, err := h.deps.Submit(r.Context(), req.toModel())
	if err != nil {
		writeClassified(w, Wrap(op, err))
		return
	}
	if sub.Duplicate {
		writeJSON(w, http.StatusOK, ackResponse{ID: sub.ID, Status: "duplicate", Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{ID: sub.ID, Status: string(repository.StatusPending)})
}

// HandleGetResult handles GET /comparisons/{id} requests.
func (h *ComparisonsHandler) HandleGetResult(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_result"
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		writeClassified(w, NewKind(op, ErrBadRequest))
		return
	}
	rec, err := h.deps.Result(r.Context(), id)
	if err != nil {
		writeClassified(w, Wrap(op, err))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// validateID rejects client IDs that GET /comparisons/{id} could not serve.
func validateID(id string) error {
	if id == topPath || strings.ContainsAny(id, "/?#") {
		return fmt.Errorf("%w: %q", ErrReservedID, id)
	}
	return nil
}
