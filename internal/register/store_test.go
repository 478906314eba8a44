package register

import (
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
)

// errRows is a pgx.Rows whose iteration fails after zero rows.
type errRows struct {
	err error
}

func (r errRows) Close()                                       {}
func (r errRows) Err() error                                   { return r.err }
func (r errRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r errRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r errRows) Next() bool                                   { return false }
func (r errRows) Scan(dest ...any) error                       { return nil }
func (r errRows) Values() ([]any, error)                       { return nil, nil }
func (r errRows) RawValues() [][]byte                          { return nil }
func (r errRows) Conn() *pgx.Conn                              { return nil }

func TestScanMovementsWrapsIterationError(t *testing.T) {
	cause := errors.New("broken stream")
	_, err := scanMovements(errRows{err: cause}, RegisterWorkExecution)
	require.ErrorIs(t, err, ErrStorage)
	require.ErrorIs(t, err, cause)
}

func TestTableFor(t *testing.T) {
	table, err := tableFor(RegisterPayroll)
	require.NoError(t, err)
	require.Equal(t, "reg_payroll", table)

	_, err = tableFor(Name("ledger"))
	require.ErrorIs(t, err, ErrUnknownRegister)
}
