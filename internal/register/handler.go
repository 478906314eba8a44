package register

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sitetrack-erp/sitetrack/internal/platform/httpx"
)

// Handler serves register queries for plan-vs-actual reporting. Division by
// a zero plan is the caller's concern; the API returns raw sums only.
type Handler struct {
	logger     *slog.Logger
	aggregator *Aggregator
}

// NewHandler builds the register query handler.
func NewHandler(logger *slog.Logger, aggregator *Aggregator) *Handler {
	return &Handler{logger: logger, aggregator: aggregator}
}

// Query handles GET /registers/{name}.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	req, err := ParseQueryRequest(chi.URLParam(r, "name"), r.URL.Query())
	if err != nil {
		RespondError(w, err)
		return
	}
	result, err := h.aggregator.Query(r.Context(), req)
	if err != nil {
		h.logger.Error("query register", slog.String("register", string(req.Register)), slog.Any("error", err))
		RespondError(w, err)
		return
	}
	httpx.Page(w, result.Rows, result.Totals, result.Pagination)
}

// Recorded handles GET /registers/{name}/recorders/{kind}/{id}.
func (h *Handler) Recorded(w http.ResponseWriter, r *http.Request) {
	name := Name(chi.URLParam(r, "name"))
	kind := chi.URLParam(r, "kind")
	if !ValidRecorderKind(kind) {
		RespondError(w, fmt.Errorf("%w: unknown document kind %q", ErrValidation, kind))
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		RespondError(w, fmt.Errorf("%w: invalid document id", ErrValidation))
		return
	}
	recorder := RecorderRef{Kind: kind, ID: id}
	movements, err := h.aggregator.Recorded(r.Context(), name, recorder)
	if err != nil {
		h.logger.Error("recorded movements", slog.String("recorder", recorder.String()), slog.Any("error", err))
		RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, movements)
}

// MountRoutes attaches register routes under /registers.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/{name}", h.Query)
	r.Get("/{name}/recorders/{kind}/{id}", h.Recorded)
}
