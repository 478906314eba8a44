package register

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStorageErrorKeepsCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := StorageError(cause)
	require.ErrorIs(t, err, ErrStorage)
	require.ErrorIs(t, err, cause)

	require.NoError(t, StorageError(nil))
}

func TestDuplicateErrorMatchesSentinel(t *testing.T) {
	err := &DuplicateError{Dimension: "employee:x", Recorder: RecorderRef{Kind: "timesheet"}}
	require.ErrorIs(t, err, ErrDuplicateRecord)
}
