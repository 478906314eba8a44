package register

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrValidation indicates the document cannot produce movements.
	ErrValidation = errors.New("register: document failed posting validation")
	// ErrDocumentNotFound indicates the recorder does not exist.
	ErrDocumentNotFound = errors.New("register: document not found")
	// ErrAlreadyPosted indicates post was called on a posted document.
	ErrAlreadyPosted = errors.New("register: document already posted")
	// ErrNotPosted indicates unpost was called on a draft document.
	ErrNotPosted = errors.New("register: document not posted")
	// ErrDuplicateRecord indicates the dimension/period slot is taken.
	ErrDuplicateRecord = errors.New("register: duplicate record")
	// ErrConcurrency indicates the document lock was not acquired in time;
	// the caller may retry.
	ErrConcurrency = errors.New("register: concurrent posting in progress")
	// ErrStorage indicates the storage transaction failed to commit.
	ErrStorage = errors.New("register: storage failure")
	// ErrUnknownRegister indicates an unrecognised register name.
	ErrUnknownRegister = errors.New("register: unknown register")
)

// DuplicateError reports a conflicting movement occupying the same
// dimension/period slot and names the recorder holding it.
type DuplicateError struct {
	Dimension string
	Period    time.Time
	Recorder  RecorderRef
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("register: slot %s @ %s already recorded by %s",
		e.Dimension, e.Period.Format("2006-01-02"), e.Recorder)
}

// Is makes errors.Is(err, ErrDuplicateRecord) succeed.
func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicateRecord
}

// StorageError wraps a low-level storage failure so callers can match
// ErrStorage while the cause stays inspectable. The cause is wrapped, not
// flattened, so errors.As still reaches driver error types.
func StorageError(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}
