package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/sitetrack-erp/sitetrack/internal/register"
)

type fakeStore struct {
	movements map[register.Name][]register.Movement
	// drift is added to aggregated sums to simulate divergence.
	drift float64
}

func (s *fakeStore) Find(ctx context.Context, name register.Name, recorder register.RecorderRef) ([]register.Movement, error) {
	return nil, nil
}

func (s *fakeStore) Movements(ctx context.Context, name register.Name, filter register.Filter) ([]register.Movement, error) {
	return s.movements[name], nil
}

func (s *fakeStore) Aggregate(ctx context.Context, q register.AggregateQuery) ([]register.BalanceRow, error) {
	rows := register.Fold(s.movements[q.Register], q.GroupBy, q.Filter)
	for i := range rows {
		rows[i].SumIncome += s.drift
	}
	return rows, nil
}

func storeWithMovements() *fakeStore {
	object := uuid.New()
	work := uuid.New()
	employee := uuid.New()
	day := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	return &fakeStore{movements: map[register.Name][]register.Movement{
		register.RegisterWorkExecution: {
			{
				Register:       register.RegisterWorkExecution,
				Recorder:       register.RecorderRef{Kind: "estimate", ID: uuid.New()},
				LineNumber:     1,
				Period:         day,
				Dimensions:     register.Dimensions{ObjectID: object, WorkID: &work},
				QuantityIncome: 10,
				SumIncome:      1000,
			},
		},
		register.RegisterPayroll: {
			{
				Register:        register.RegisterPayroll,
				Recorder:        register.RecorderRef{Kind: "timesheet", ID: uuid.New()},
				LineNumber:      1,
				Period:          day,
				Dimensions:      register.Dimensions{ObjectID: object, EmployeeID: &employee},
				QuantityExpense: 8,
				SumExpense:      3600,
			},
		},
	}}
}

func integrityTask(t *testing.T, payload RegisterIntegrityPayload) *asynq.Task {
	t.Helper()
	task, err := NewRegisterIntegrityTask(payload)
	require.NoError(t, err)
	return task
}

func TestIntegrityPasses(t *testing.T) {
	job := NewIntegrityJob(storeWithMovements(), nil, nil)
	err := job.Handle(context.Background(), integrityTask(t, RegisterIntegrityPayload{}))
	require.NoError(t, err)
}

func TestIntegrityDetectsDrift(t *testing.T) {
	store := storeWithMovements()
	store.drift = 0.5
	job := NewIntegrityJob(store, nil, nil)

	err := job.Handle(context.Background(), integrityTask(t, RegisterIntegrityPayload{}))
	require.Error(t, err)
	require.Contains(t, err.Error(), "integrity")
}

func TestIntegritySelectsRegisters(t *testing.T) {
	job := NewIntegrityJob(storeWithMovements(), nil, nil)

	err := job.Handle(context.Background(), integrityTask(t, RegisterIntegrityPayload{Registers: []string{"payroll"}}))
	require.NoError(t, err)

	err = job.Handle(context.Background(), integrityTask(t, RegisterIntegrityPayload{Registers: []string{"ledger"}}))
	require.Error(t, err)
	require.ErrorIs(t, err, asynq.SkipRetry)
}
