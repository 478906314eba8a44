package register

import (
	"time"

	"github.com/google/uuid"
)

// Name identifies an accumulation register.
type Name string

const (
	// RegisterWorkExecution accumulates planned (income) and performed
	// (expense) work quantities per object/estimate/work item.
	RegisterWorkExecution Name = "work_execution"
	// RegisterPayroll accumulates labor hours and amounts per object/employee.
	RegisterPayroll Name = "payroll"
)

// Valid reports whether the name maps to a known register table.
func (n Name) Valid() bool {
	return n == RegisterWorkExecution || n == RegisterPayroll
}

// Recorder kinds are the document kinds that write movements. The documents
// package derives its Kind constants from these tokens.
const (
	RecorderEstimate    = "estimate"
	RecorderDailyReport = "daily_report"
	RecorderTimesheet   = "timesheet"
)

// ValidRecorderKind reports whether s names a movement-writing document kind.
func ValidRecorderKind(s string) bool {
	switch s {
	case RecorderEstimate, RecorderDailyReport, RecorderTimesheet:
		return true
	}
	return false
}

// RecorderRef identifies the document that produced a group of movements.
type RecorderRef struct {
	Kind string    `json:"kind"`
	ID   uuid.UUID `json:"id"`
}

// String renders kind:id for logs and error messages.
func (r RecorderRef) String() string {
	return r.Kind + ":" + r.ID.String()
}

// Dimensions is the fixed set of grouping keys carried by every movement.
// Estimate, work and employee are optional depending on the register.
type Dimensions struct {
	ObjectID   uuid.UUID  `json:"object_id"`
	EstimateID *uuid.UUID `json:"estimate_id,omitempty"`
	WorkID     *uuid.UUID `json:"work_id,omitempty"`
	EmployeeID *uuid.UUID `json:"employee_id,omitempty"`
}

// Movement is one immutable ledger row. Exactly one side (income or expense)
// is populated; rows are only ever inserted or deleted as whole batches
// keyed by recorder.
type Movement struct {
	Register   Name        `json:"register"`
	Recorder   RecorderRef `json:"recorder"`
	LineNumber int         `json:"line_number"`
	Period     time.Time   `json:"period"`
	Dimensions Dimensions  `json:"dimensions"`

	QuantityIncome  float64 `json:"quantity_income"`
	QuantityExpense float64 `json:"quantity_expense"`
	SumIncome       float64 `json:"sum_income"`
	SumExpense      float64 `json:"sum_expense"`

	CreatedAt time.Time `json:"created_at"`
}

// IsIncome reports whether the income side is populated.
func (m Movement) IsIncome() bool {
	return m.QuantityIncome != 0 || m.SumIncome != 0
}

// IsExpense reports whether the expense side is populated.
func (m Movement) IsExpense() bool {
	return m.QuantityExpense != 0 || m.SumExpense != 0
}

// Dimension enumerates groupable dimension columns.
type Dimension string

const (
	DimObject   Dimension = "object"
	DimEstimate Dimension = "estimate"
	DimWork     Dimension = "work"
	DimEmployee Dimension = "employee"
	// DimPeriod groups by the movement date rather than a foreign key.
	DimPeriod Dimension = "period"
)

// ParseDimension validates a group_by token from the query string.
func ParseDimension(s string) (Dimension, bool) {
	switch Dimension(s) {
	case DimObject, DimEstimate, DimWork, DimEmployee, DimPeriod:
		return Dimension(s), true
	}
	return "", false
}

// Filter restricts movements considered by queries. Nil fields match all.
type Filter struct {
	ObjectID   *uuid.UUID
	EstimateID *uuid.UUID
	WorkID     *uuid.UUID
	EmployeeID *uuid.UUID
	// PeriodFrom/PeriodTo bound period inclusively; used by turnover queries.
	PeriodFrom *time.Time
	PeriodTo   *time.Time
}

// Matches reports whether a movement passes the filter.
func (f Filter) Matches(m Movement) bool {
	if f.ObjectID != nil && m.Dimensions.ObjectID != *f.ObjectID {
		return false
	}
	if f.EstimateID != nil && !uuidPtrEqual(m.Dimensions.EstimateID, f.EstimateID) {
		return false
	}
	if f.WorkID != nil && !uuidPtrEqual(m.Dimensions.WorkID, f.WorkID) {
		return false
	}
	if f.EmployeeID != nil && !uuidPtrEqual(m.Dimensions.EmployeeID, f.EmployeeID) {
		return false
	}
	if f.PeriodFrom != nil && m.Period.Before(*f.PeriodFrom) {
		return false
	}
	if f.PeriodTo != nil && m.Period.After(*f.PeriodTo) {
		return false
	}
	return true
}

func uuidPtrEqual(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// BalanceRow is one output row of a balance or turnover query.
type BalanceRow struct {
	ObjectID   *uuid.UUID `json:"object_id,omitempty"`
	EstimateID *uuid.UUID `json:"estimate_id,omitempty"`
	WorkID     *uuid.UUID `json:"work_id,omitempty"`
	EmployeeID *uuid.UUID `json:"employee_id,omitempty"`
	Period     *time.Time `json:"period,omitempty"`

	QuantityIncome  float64 `json:"quantity_income"`
	QuantityExpense float64 `json:"quantity_expense"`
	SumIncome       float64 `json:"sum_income"`
	SumExpense      float64 `json:"sum_expense"`

	BalanceQuantity float64 `json:"balance_quantity"`
	BalanceSum      float64 `json:"balance_sum"`
}
