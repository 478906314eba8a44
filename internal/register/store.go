package register

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the read side of the register store. Writes happen only inside
// posting transactions (see the posting package), which keeps the
// append/delete-only guarantee in one place.
type Store interface {
	// Find returns the batch recorded by one document, in line order.
	Find(ctx context.Context, name Name, recorder RecorderRef) ([]Movement, error)
	// Movements returns raw rows matching a filter; used by the integrity
	// scan to recompute balances independently of SQL aggregation.
	Movements(ctx context.Context, name Name, filter Filter) ([]Movement, error)
	// Aggregate returns grouped sums per the query.
	Aggregate(ctx context.Context, q AggregateQuery) ([]BalanceRow, error)
}

// AggregateQuery describes one balance/turnover aggregation.
type AggregateQuery struct {
	Register Name
	GroupBy  []Dimension
	Filter   Filter
}

type pgStore struct {
	db *pgxpool.Pool
}

// NewStore builds the pgx-backed register store.
func NewStore(db *pgxpool.Pool) Store {
	return &pgStore{db: db}
}

// tableFor maps register names onto their append/delete-only tables.
func tableFor(name Name) (string, error) {
	switch name {
	case RegisterWorkExecution:
		return "reg_work_execution", nil
	case RegisterPayroll:
		return "reg_payroll", nil
	}
	return "", ErrUnknownRegister
}

const movementColumns = `recorder_kind, recorder_id, line_number, period,
object_id, estimate_id, work_id, employee_id,
quantity_income, quantity_expense, sum_income, sum_expense, created_at`

func (s *pgStore) Find(ctx context.Context, name Name, recorder RecorderRef) ([]Movement, error) {
	table, err := tableFor(name)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, fmt.Sprintf(
		`SELECT %s FROM %s WHERE recorder_kind=$1 AND recorder_id=$2 ORDER BY line_number ASC`,
		movementColumns, table), recorder.Kind, recorder.ID)
	if err != nil {
		return nil, StorageError(err)
	}
	defer rows.Close()
	return scanMovements(rows, name)
}

func (s *pgStore) Movements(ctx context.Context, name Name, filter Filter) ([]Movement, error) {
	table, err := tableFor(name)
	if err != nil {
		return nil, err
	}
	where, args := filterClause(filter, nil)
	query := fmt.Sprintf(`SELECT %s FROM %s%s ORDER BY period, recorder_id, line_number`,
		movementColumns, table, where)
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, StorageError(err)
	}
	defer rows.Close()
	return scanMovements(rows, name)
}

func (s *pgStore) Aggregate(ctx context.Context, q AggregateQuery) ([]BalanceRow, error) {
	table, err := tableFor(q.Register)
	if err != nil {
		return nil, err
	}
	groupCols := make([]string, 0, len(q.GroupBy))
	for _, dim := range q.GroupBy {
		col, ok := dimensionColumn(dim)
		if !ok {
			return nil, fmt.Errorf("%w: group by %q", ErrValidation, dim)
		}
		groupCols = append(groupCols, col)
	}
	where, args := filterClause(q.Filter, nil)

	var b strings.Builder
	b.WriteString("SELECT ")
	for _, col := range groupCols {
		b.WriteString(col)
		b.WriteString(", ")
	}
	b.WriteString(`COALESCE(SUM(quantity_income),0), COALESCE(SUM(quantity_expense),0),
COALESCE(SUM(sum_income),0), COALESCE(SUM(sum_expense),0) FROM `)
	b.WriteString(table)
	b.WriteString(where)
	if len(groupCols) > 0 {
		b.WriteString(" GROUP BY ")
		b.WriteString(strings.Join(groupCols, ", "))
		b.WriteString(" ORDER BY ")
		b.WriteString(strings.Join(groupCols, ", "))
	}

	rows, err := s.db.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, StorageError(err)
	}
	defer rows.Close()

	var out []BalanceRow
	for rows.Next() {
		var row BalanceRow
		dests := make([]any, 0, len(q.GroupBy)+4)
		for _, dim := range q.GroupBy {
			switch dim {
			case DimObject:
				dests = append(dests, &row.ObjectID)
			case DimEstimate:
				dests = append(dests, &row.EstimateID)
			case DimWork:
				dests = append(dests, &row.WorkID)
			case DimEmployee:
				dests = append(dests, &row.EmployeeID)
			case DimPeriod:
				dests = append(dests, &row.Period)
			}
		}
		dests = append(dests, &row.QuantityIncome, &row.QuantityExpense, &row.SumIncome, &row.SumExpense)
		if err := rows.Scan(dests...); err != nil {
			return nil, StorageError(err)
		}
		row.BalanceQuantity = row.QuantityIncome - row.QuantityExpense
		row.BalanceSum = row.SumIncome - row.SumExpense
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, StorageError(err)
	}
	return out, nil
}

func dimensionColumn(dim Dimension) (string, bool) {
	switch dim {
	case DimObject:
		return "object_id", true
	case DimEstimate:
		return "estimate_id", true
	case DimWork:
		return "work_id", true
	case DimEmployee:
		return "employee_id", true
	case DimPeriod:
		return "period", true
	}
	return "", false
}

// filterClause renders a WHERE clause continuing the given arg list.
func filterClause(f Filter, args []any) (string, []any) {
	var conds []string
	add := func(cond string, val any) {
		args = append(args, val)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.ObjectID != nil {
		add("object_id=$%d", *f.ObjectID)
	}
	if f.EstimateID != nil {
		add("estimate_id=$%d", *f.EstimateID)
	}
	if f.WorkID != nil {
		add("work_id=$%d", *f.WorkID)
	}
	if f.EmployeeID != nil {
		add("employee_id=$%d", *f.EmployeeID)
	}
	if f.PeriodFrom != nil {
		add("period>=$%d", *f.PeriodFrom)
	}
	if f.PeriodTo != nil {
		add("period<=$%d", *f.PeriodTo)
	}
	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanMovements(rows pgx.Rows, name Name) ([]Movement, error) {
	var out []Movement
	for rows.Next() {
		var m Movement
		m.Register = name
		if err := rows.Scan(
			&m.Recorder.Kind, &m.Recorder.ID, &m.LineNumber, &m.Period,
			&m.Dimensions.ObjectID, &m.Dimensions.EstimateID, &m.Dimensions.WorkID, &m.Dimensions.EmployeeID,
			&m.QuantityIncome, &m.QuantityExpense, &m.SumIncome, &m.SumExpense, &m.CreatedAt,
		); err != nil {
			return nil, StorageError(err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, StorageError(err)
	}
	return out, nil
}

// AppendMovements inserts one recorder's batch into its register tables.
// Exposed for transaction repositories; all rows persist or none do because
// the caller supplies the enclosing transaction.
func AppendMovements(ctx context.Context, tx pgx.Tx, movements []Movement) error {
	for _, m := range movements {
		table, err := tableFor(m.Register)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, fmt.Sprintf(`INSERT INTO %s (%s)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`, table, movementColumns),
			m.Recorder.Kind, m.Recorder.ID, m.LineNumber, m.Period,
			m.Dimensions.ObjectID, m.Dimensions.EstimateID, m.Dimensions.WorkID, m.Dimensions.EmployeeID,
			m.QuantityIncome, m.QuantityExpense, m.SumIncome, m.SumExpense, m.CreatedAt,
		); err != nil {
			return StorageError(err)
		}
	}
	return nil
}

// DeleteMovements removes every row recorded by one document across all
// register tables and reports how many were deleted.
func DeleteMovements(ctx context.Context, tx pgx.Tx, recorder RecorderRef) (int64, error) {
	var total int64
	for _, name := range []Name{RegisterWorkExecution, RegisterPayroll} {
		table, _ := tableFor(name)
		cmd, err := tx.Exec(ctx, fmt.Sprintf(
			`DELETE FROM %s WHERE recorder_kind=$1 AND recorder_id=$2`, table),
			recorder.Kind, recorder.ID)
		if err != nil {
			return total, StorageError(err)
		}
		total += cmd.RowsAffected()
	}
	return total, nil
}

// LockSlot takes a transaction-scoped advisory lock on one (employee, period)
// slot. The slot spans both register tables, so competing posts must be
// serialized here before FindConflict; the lock releases at commit/rollback.
func LockSlot(ctx context.Context, tx pgx.Tx, employeeID uuid.UUID, period time.Time) error {
	key := employeeID.String() + ":" + period.UTC().Format("2006-01-02")
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key); err != nil {
		return StorageError(err)
	}
	return nil
}

// FindConflict looks for an existing movement occupying the same
// (employee, period) slot in any register, excluding one recorder. Returns
// nil when the slot is free.
func FindConflict(ctx context.Context, tx pgx.Tx, employeeID uuid.UUID, period time.Time, excluding RecorderRef) (*RecorderRef, error) {
	const query = `SELECT recorder_kind, recorder_id FROM (
SELECT recorder_kind, recorder_id, employee_id, period FROM reg_work_execution
UNION ALL
SELECT recorder_kind, recorder_id, employee_id, period FROM reg_payroll
) m WHERE employee_id=$1 AND period=$2 AND NOT (recorder_kind=$3 AND recorder_id=$4) LIMIT 1`
	var ref RecorderRef
	err := tx.QueryRow(ctx, query, employeeID, period, excluding.Kind, excluding.ID).
		Scan(&ref.Kind, &ref.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, StorageError(err)
	}
	return &ref, nil
}
