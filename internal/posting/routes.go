package posting

import "github.com/go-chi/chi/v5"

// MountRoutes attaches posting routes under /documents.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/{kind}/{id}/post", h.Post)
	r.Post("/{kind}/{id}/unpost", h.Unpost)
}
