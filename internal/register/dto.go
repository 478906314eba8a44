package register

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

// queryParams binds GET /registers/{name} query string values before they
// are parsed into an AggregateQuery.
type queryParams struct {
	GroupBy    string `validate:"required"`
	PeriodFrom string `validate:"omitempty,datetime=2006-01-02"`
	PeriodTo   string `validate:"omitempty,datetime=2006-01-02"`
	ObjectID   string `validate:"omitempty,uuid"`
	EstimateID string `validate:"omitempty,uuid"`
	WorkID     string `validate:"omitempty,uuid"`
	EmployeeID string `validate:"omitempty,uuid"`
	Page       int    `validate:"gte=0"`
	PageSize   int    `validate:"gte=0,lte=500"`
}

// ParseQueryRequest validates and converts query string values.
func ParseQueryRequest(name string, values url.Values) (QueryRequest, error) {
	register := Name(name)
	if !register.Valid() {
		return QueryRequest{}, ErrUnknownRegister
	}

	params := queryParams{
		GroupBy:    values.Get("group_by"),
		PeriodFrom: values.Get("period_from"),
		PeriodTo:   values.Get("period_to"),
		ObjectID:   values.Get("object_id"),
		EstimateID: values.Get("estimate_id"),
		WorkID:     values.Get("work_id"),
		EmployeeID: values.Get("employee_id"),
	}
	params.Page, _ = strconv.Atoi(values.Get("page"))
	params.PageSize, _ = strconv.Atoi(values.Get("page_size"))
	if err := validate.Struct(params); err != nil {
		return QueryRequest{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	var groupBy []Dimension
	for _, token := range strings.Split(params.GroupBy, ",") {
		dim, ok := ParseDimension(strings.TrimSpace(token))
		if !ok {
			return QueryRequest{}, fmt.Errorf("%w: unknown dimension %q", ErrValidation, token)
		}
		groupBy = append(groupBy, dim)
	}

	var filter Filter
	filter.ObjectID = parseUUIDPtr(params.ObjectID)
	filter.EstimateID = parseUUIDPtr(params.EstimateID)
	filter.WorkID = parseUUIDPtr(params.WorkID)
	filter.EmployeeID = parseUUIDPtr(params.EmployeeID)
	filter.PeriodFrom = parseDatePtr(params.PeriodFrom)
	filter.PeriodTo = parseDatePtr(params.PeriodTo)

	return QueryRequest{
		Register: register,
		GroupBy:  groupBy,
		Filter:   filter,
		Page:     params.Page,
		PerPage:  params.PageSize,
	}, nil
}

func parseUUIDPtr(s string) *uuid.UUID {
	if s == "" {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}

func parseDatePtr(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
