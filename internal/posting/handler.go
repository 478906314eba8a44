package posting

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sitetrack-erp/sitetrack/internal/documents"
	"github.com/sitetrack-erp/sitetrack/internal/platform/httpx"
	"github.com/sitetrack-erp/sitetrack/internal/register"
)

// Handler exposes post/unpost over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds the posting handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) Post(w http.ResponseWriter, r *http.Request) {
	kind, id, ok := h.target(w, r)
	if !ok {
		return
	}
	result, err := h.service.Post(r.Context(), kind, id)
	if err != nil {
		h.logger.Warn("post document", slog.String("kind", string(kind)), slog.String("id", id.String()), slog.Any("error", err))
		register.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, result)
}

func (h *Handler) Unpost(w http.ResponseWriter, r *http.Request) {
	kind, id, ok := h.target(w, r)
	if !ok {
		return
	}
	result, err := h.service.Unpost(r.Context(), kind, id)
	if err != nil {
		h.logger.Warn("unpost document", slog.String("kind", string(kind)), slog.String("id", id.String()), slog.Any("error", err))
		register.RespondError(w, err)
		return
	}
	httpx.OK(w, http.StatusOK, result)
}

func (h *Handler) target(w http.ResponseWriter, r *http.Request) (documents.Kind, uuid.UUID, bool) {
	kind, ok := documents.ParseKind(chi.URLParam(r, "kind"))
	if !ok {
		httpx.JSON(w, http.StatusBadRequest, httpx.Envelope{Success: false, Error: &httpx.ErrorBody{
			Kind: "validation", Message: "unsupported document kind",
		}})
		return "", uuid.Nil, false
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.JSON(w, http.StatusBadRequest, httpx.Envelope{Success: false, Error: &httpx.ErrorBody{
			Kind: "validation", Message: "invalid document id",
		}})
		return "", uuid.Nil, false
	}
	return kind, id, true
}
