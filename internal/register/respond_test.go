package register

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/sitetrack-erp/sitetrack/internal/platform/httpx"
)

func respond(t *testing.T, err error) (int, httpx.Envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	RespondError(rec, err)
	var env httpx.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return rec.Code, env
}

func TestRespondErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{ErrDocumentNotFound, http.StatusNotFound, "not_found"},
		{ErrUnknownRegister, http.StatusNotFound, "not_found"},
		{ErrAlreadyPosted, http.StatusConflict, "already_posted"},
		{ErrNotPosted, http.StatusConflict, "not_posted"},
		{ErrDuplicateRecord, http.StatusConflict, "duplicate_record"},
		{ErrValidation, http.StatusUnprocessableEntity, "validation"},
		{ErrConcurrency, http.StatusServiceUnavailable, "concurrency"},
		{StorageError(errors.New("connection refused")), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		status, env := respond(t, tc.err)
		require.Equal(t, tc.status, status, tc.err.Error())
		require.False(t, env.Success)
		require.NotNil(t, env.Error)
		require.Equal(t, tc.kind, env.Error.Kind)
	}
}

func TestRespondErrorHidesStorageDetails(t *testing.T) {
	_, env := respond(t, StorageError(errors.New("dial tcp 10.0.0.5: password authentication failed")))
	require.Equal(t, "internal error", env.Error.Message)
}

func TestRespondErrorNamesDuplicateRecorder(t *testing.T) {
	holder := RecorderRef{Kind: "timesheet", ID: uuid.New()}
	err := &DuplicateError{
		Dimension: "employee:" + uuid.NewString(),
		Period:    time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		Recorder:  holder,
	}

	status, env := respond(t, err)
	require.Equal(t, http.StatusConflict, status)
	require.Equal(t, "duplicate_record", env.Error.Kind)
	require.Equal(t, holder.String(), env.Error.Conflict)
	require.Contains(t, env.Error.Message, "2026-08-01")
}
