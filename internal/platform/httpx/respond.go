// Package httpx provides HTTP response utilities for the JSON API.
package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/sitetrack-erp/sitetrack/internal/shared"
)

// Envelope is the response shape shared by all API endpoints.
type Envelope struct {
	Success    bool               `json:"success"`
	Data       any                `json:"data,omitempty"`
	Totals     any                `json:"totals,omitempty"`
	Pagination *shared.Pagination `json:"pagination,omitempty"`
	Error      *ErrorBody         `json:"error,omitempty"`
}

// ErrorBody describes a failed request.
type ErrorBody struct {
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	Conflict string `json:"conflict,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// OK wraps data in a success envelope.
func OK(w http.ResponseWriter, status int, data any) {
	JSON(w, status, Envelope{Success: true, Data: data})
}

// Page wraps a paginated result set with grand totals.
func Page(w http.ResponseWriter, data, totals any, p shared.Pagination) {
	JSON(w, http.StatusOK, Envelope{Success: true, Data: data, Totals: totals, Pagination: &p})
}

// DecodeJSON decodes a JSON request body into the target struct.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}
