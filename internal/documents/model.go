// Package documents models the business documents consumed by the posting
// core. Editing, numbering and reference CRUD live in the surrounding
// application; the core only reads documents and toggles their posted state.
package documents

import (
	"time"

	"github.com/google/uuid"

	"github.com/sitetrack-erp/sitetrack/internal/register"
)

// Kind enumerates document kinds feeding the registers. The tokens live in
// the register package, which validates recorder kinds without importing
// this one.
type Kind string

const (
	KindEstimate    Kind = register.RecorderEstimate
	KindDailyReport Kind = register.RecorderDailyReport
	KindTimesheet   Kind = register.RecorderTimesheet
)

// ParseKind validates a kind token from the URL.
func ParseKind(s string) (Kind, bool) {
	switch Kind(s) {
	case KindEstimate, KindDailyReport, KindTimesheet:
		return Kind(s), true
	}
	return "", false
}

// Line is one row of a document. Work and employee references depend on the
// kind: estimate and daily-report lines carry a work item, daily-report and
// timesheet lines carry the employee whose labor they record.
type Line struct {
	LineNumber int
	WorkID     *uuid.UUID
	EmployeeID *uuid.UUID
	// Quantity is work units for estimates/daily reports and hours for
	// timesheets; Price is the unit price or hourly rate.
	Quantity float64
	Price    float64
}

// Amount derives the line amount from current values.
func (l Line) Amount() float64 {
	return l.Quantity * l.Price
}

// Document is an identified business record with a posting state.
type Document struct {
	Kind       Kind
	ID         uuid.UUID
	ObjectID   uuid.UUID
	EstimateID *uuid.UUID
	Date       time.Time
	IsPosted   bool
	PostedAt   *time.Time
	Lines      []Line
}
