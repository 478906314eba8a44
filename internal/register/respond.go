package register

import (
	"errors"
	"net/http"

	"github.com/sitetrack-erp/sitetrack/internal/platform/httpx"
)

// RespondError maps posting/register errors to HTTP responses. Errors are
// surfaced verbatim; nothing is retried here.
func RespondError(w http.ResponseWriter, err error) {
	var dup *DuplicateError
	if errors.As(err, &dup) {
		httpx.JSON(w, http.StatusConflict, httpx.Envelope{Success: false, Error: &httpx.ErrorBody{
			Kind:     "duplicate_record",
			Message:  dup.Error(),
			Conflict: dup.Recorder.String(),
		}})
		return
	}

	kind, status := classify(err)
	body := &httpx.ErrorBody{Kind: kind, Message: err.Error()}
	if status == http.StatusInternalServerError {
		// Do not leak storage details to API consumers.
		body.Message = "internal error"
	}
	httpx.JSON(w, status, httpx.Envelope{Success: false, Error: body})
}

func classify(err error) (string, int) {
	switch {
	case errors.Is(err, ErrDocumentNotFound):
		return "not_found", http.StatusNotFound
	case errors.Is(err, ErrUnknownRegister):
		return "not_found", http.StatusNotFound
	case errors.Is(err, ErrAlreadyPosted):
		return "already_posted", http.StatusConflict
	case errors.Is(err, ErrNotPosted):
		return "not_posted", http.StatusConflict
	case errors.Is(err, ErrDuplicateRecord):
		return "duplicate_record", http.StatusConflict
	case errors.Is(err, ErrValidation):
		return "validation", http.StatusUnprocessableEntity
	case errors.Is(err, ErrConcurrency):
		return "concurrency", http.StatusServiceUnavailable
	default:
		return "internal", http.StatusInternalServerError
	}
}
