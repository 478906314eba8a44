package posting

import (
	"fmt"
	"time"

	"github.com/sitetrack-erp/sitetrack/internal/documents"
	"github.com/sitetrack-erp/sitetrack/internal/register"
)

// Strategy turns one document kind's lines into register movements. Each
// kind gets its own strategy rather than kind conditionals inside the
// service, so adding a document kind touches exactly one file.
type Strategy interface {
	Kind() documents.Kind
	// DuplicateSensitive reports whether posted lines claim an exclusive
	// (employee, period) slot that must be checked before writing.
	DuplicateSensitive() bool
	// BuildMovements derives movements from the document's current line
	// values. Zero-valued lines are skipped; a document yielding no
	// movements fails validation in the service.
	BuildMovements(doc documents.Document, now time.Time) ([]register.Movement, error)
}

// Strategies wires the supported document kinds.
func Strategies() map[documents.Kind]Strategy {
	return map[documents.Kind]Strategy{
		documents.KindEstimate:    estimateStrategy{},
		documents.KindDailyReport: dailyReportStrategy{},
		documents.KindTimesheet:   timesheetStrategy{},
	}
}

// estimateStrategy posts planned work as income into work_execution. The
// estimate document is itself the estimate dimension of its movements.
type estimateStrategy struct{}

func (estimateStrategy) Kind() documents.Kind     { return documents.KindEstimate }
func (estimateStrategy) DuplicateSensitive() bool { return false }

func (estimateStrategy) BuildMovements(doc documents.Document, now time.Time) ([]register.Movement, error) {
	estimateID := doc.ID
	var out []register.Movement
	for _, line := range doc.Lines {
		if line.Quantity == 0 && line.Amount() == 0 {
			continue
		}
		if line.WorkID == nil {
			return nil, fmt.Errorf("%w: estimate line %d has no work item", register.ErrValidation, line.LineNumber)
		}
		out = append(out, register.Movement{
			Register:   register.RegisterWorkExecution,
			Recorder:   register.RecorderRef{Kind: string(doc.Kind), ID: doc.ID},
			LineNumber: line.LineNumber,
			Period:     doc.Date,
			Dimensions: register.Dimensions{
				ObjectID:   doc.ObjectID,
				EstimateID: &estimateID,
				WorkID:     line.WorkID,
			},
			QuantityIncome: line.Quantity,
			SumIncome:      line.Amount(),
			CreatedAt:      now,
		})
	}
	return out, nil
}

// dailyReportStrategy posts performed work as expense into work_execution.
// Lines carry the employee who did the work, which makes reports
// duplicate-sensitive: one employee's day belongs to one posted document.
type dailyReportStrategy struct{}

func (dailyReportStrategy) Kind() documents.Kind     { return documents.KindDailyReport }
func (dailyReportStrategy) DuplicateSensitive() bool { return true }

func (dailyReportStrategy) BuildMovements(doc documents.Document, now time.Time) ([]register.Movement, error) {
	var out []register.Movement
	for _, line := range doc.Lines {
		if line.Quantity == 0 && line.Amount() == 0 {
			continue
		}
		if line.WorkID == nil {
			return nil, fmt.Errorf("%w: daily report line %d has no work item", register.ErrValidation, line.LineNumber)
		}
		out = append(out, register.Movement{
			Register:   register.RegisterWorkExecution,
			Recorder:   register.RecorderRef{Kind: string(doc.Kind), ID: doc.ID},
			LineNumber: line.LineNumber,
			Period:     doc.Date,
			Dimensions: register.Dimensions{
				ObjectID:   doc.ObjectID,
				EstimateID: doc.EstimateID,
				WorkID:     line.WorkID,
				EmployeeID: line.EmployeeID,
			},
			QuantityExpense: line.Quantity,
			SumExpense:      line.Amount(),
			CreatedAt:       now,
		})
	}
	return out, nil
}

// timesheetStrategy posts labor hours as expense into payroll.
type timesheetStrategy struct{}

func (timesheetStrategy) Kind() documents.Kind     { return documents.KindTimesheet }
func (timesheetStrategy) DuplicateSensitive() bool { return true }

func (timesheetStrategy) BuildMovements(doc documents.Document, now time.Time) ([]register.Movement, error) {
	var out []register.Movement
	for _, line := range doc.Lines {
		if line.Quantity == 0 && line.Amount() == 0 {
			continue
		}
		if line.EmployeeID == nil {
			return nil, fmt.Errorf("%w: timesheet line %d has no employee", register.ErrValidation, line.LineNumber)
		}
		out = append(out, register.Movement{
			Register:   register.RegisterPayroll,
			Recorder:   register.RecorderRef{Kind: string(doc.Kind), ID: doc.ID},
			LineNumber: line.LineNumber,
			Period:     doc.Date,
			Dimensions: register.Dimensions{
				ObjectID:   doc.ObjectID,
				EmployeeID: line.EmployeeID,
			},
			QuantityExpense: line.Quantity,
			SumExpense:      line.Amount(),
			CreatedAt:       now,
		})
	}
	return out, nil
}
