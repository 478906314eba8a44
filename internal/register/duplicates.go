package register

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ConflictFinder locates an existing movement occupying a dimension/period
// slot. The posting transaction repository implements it so the check runs
// inside the same transaction as the write phase.
type ConflictFinder interface {
	FindConflict(ctx context.Context, employeeID uuid.UUID, period time.Time, excluding RecorderRef) (*RecorderRef, error)
	// LockSlot serializes writers claiming the same slot before FindConflict
	// runs, so two concurrent posts cannot both see the slot as free.
	LockSlot(ctx context.Context, employeeID uuid.UUID, period time.Time) error
}

// DuplicateDetector enforces that one employee's labor on one date appears
// in at most one posted document system-wide. The slot concept spans recorder
// kinds, so the check runs against the shared register store rather than a
// per-table uniqueness constraint.
type DuplicateDetector struct {
	finder ConflictFinder
}

// NewDuplicateDetector wraps a conflict finder.
func NewDuplicateDetector(finder ConflictFinder) *DuplicateDetector {
	return &DuplicateDetector{finder: finder}
}

// Check returns a DuplicateError naming the conflicting recorder when the
// (employee, period) slot is already taken by another document.
func (d *DuplicateDetector) Check(ctx context.Context, employeeID uuid.UUID, period time.Time, excluding RecorderRef) error {
	if err := d.finder.LockSlot(ctx, employeeID, period); err != nil {
		return err
	}
	ref, err := d.finder.FindConflict(ctx, employeeID, period, excluding)
	if err != nil {
		return err
	}
	if ref == nil {
		return nil
	}
	return &DuplicateError{
		Dimension: "employee:" + employeeID.String(),
		Period:    period,
		Recorder:  *ref,
	}
}
