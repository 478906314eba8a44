package register

import (
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestParseQueryRequest(t *testing.T) {
	object := uuid.New()
	values := url.Values{}
	values.Set("group_by", "object, work")
	values.Set("object_id", object.String())
	values.Set("period_from", "2026-08-01")
	values.Set("period_to", "2026-08-31")
	values.Set("page", "2")
	values.Set("page_size", "25")

	req, err := ParseQueryRequest("work_execution", values)
	require.NoError(t, err)
	require.Equal(t, RegisterWorkExecution, req.Register)
	require.Equal(t, []Dimension{DimObject, DimWork}, req.GroupBy)
	require.Equal(t, 2, req.Page)
	require.Equal(t, 25, req.PerPage)
	require.NotNil(t, req.Filter.ObjectID)
	require.Equal(t, object, *req.Filter.ObjectID)
	require.NotNil(t, req.Filter.PeriodFrom)
	require.True(t, req.Filter.PeriodFrom.Equal(time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)))
}

func TestParseQueryRequestRejectsBadInput(t *testing.T) {
	valid := url.Values{"group_by": {"object"}}

	_, err := ParseQueryRequest("ledger", valid)
	require.ErrorIs(t, err, ErrUnknownRegister)

	_, err = ParseQueryRequest("payroll", url.Values{})
	require.ErrorIs(t, err, ErrValidation)

	_, err = ParseQueryRequest("payroll", url.Values{"group_by": {"warehouse"}})
	require.ErrorIs(t, err, ErrValidation)

	_, err = ParseQueryRequest("payroll", url.Values{"group_by": {"object"}, "object_id": {"nope"}})
	require.ErrorIs(t, err, ErrValidation)

	_, err = ParseQueryRequest("payroll", url.Values{"group_by": {"object"}, "period_from": {"01.08.2026"}})
	require.ErrorIs(t, err, ErrValidation)

	_, err = ParseQueryRequest("payroll", url.Values{"group_by": {"object"}, "page_size": {"5000"}})
	require.ErrorIs(t, err, ErrValidation)
}
