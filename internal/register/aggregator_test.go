package register

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type countingStore struct {
	calls     int
	lastQuery AggregateQuery
	rows      []BalanceRow
}

func (s *countingStore) Find(ctx context.Context, name Name, recorder RecorderRef) ([]Movement, error) {
	return []Movement{{Register: name, Recorder: recorder}}, nil
}

func (s *countingStore) Movements(ctx context.Context, name Name, filter Filter) ([]Movement, error) {
	return nil, nil
}

func (s *countingStore) Aggregate(ctx context.Context, q AggregateQuery) ([]BalanceRow, error) {
	s.calls++
	s.lastQuery = q
	return s.rows, nil
}

func newCachedAggregator(t *testing.T, store Store) *Aggregator {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewAggregator(store, NewCache(client, time.Minute))
}

func sampleRows(n int) []BalanceRow {
	rows := make([]BalanceRow, 0, n)
	for i := 0; i < n; i++ {
		id := uuid.New()
		rows = append(rows, BalanceRow{
			ObjectID:       &id,
			QuantityIncome: float64(i + 1),
			SumIncome:      float64((i + 1) * 10),
		})
	}
	return rows
}

func TestBalanceCachedUntilInvalidated(t *testing.T) {
	store := &countingStore{rows: sampleRows(2)}
	agg := newCachedAggregator(t, store)
	ctx := context.Background()

	first, err := agg.Balance(ctx, RegisterWorkExecution, []Dimension{DimObject}, Filter{})
	require.NoError(t, err)
	require.Len(t, first, 2)
	require.Equal(t, 1, store.calls)

	second, err := agg.Balance(ctx, RegisterWorkExecution, []Dimension{DimObject}, Filter{})
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 1, store.calls, "second query must come from cache")

	require.NoError(t, agg.Invalidate(ctx))

	_, err = agg.Balance(ctx, RegisterWorkExecution, []Dimension{DimObject}, Filter{})
	require.NoError(t, err)
	require.Equal(t, 2, store.calls, "invalidation must force a recompute")
}

func TestBalanceCacheKeyVariesWithQuery(t *testing.T) {
	store := &countingStore{rows: sampleRows(1)}
	agg := newCachedAggregator(t, store)
	ctx := context.Background()

	_, err := agg.Balance(ctx, RegisterWorkExecution, []Dimension{DimObject}, Filter{})
	require.NoError(t, err)
	_, err = agg.Balance(ctx, RegisterPayroll, []Dimension{DimObject}, Filter{})
	require.NoError(t, err)
	_, err = agg.Balance(ctx, RegisterWorkExecution, []Dimension{DimObject, DimWork}, Filter{})
	require.NoError(t, err)
	require.Equal(t, 3, store.calls)
}

func TestBalanceUnknownRegister(t *testing.T) {
	agg := NewAggregator(&countingStore{}, NewCache(nil, 0))
	_, err := agg.Balance(context.Background(), Name("ledger"), nil, Filter{})
	require.ErrorIs(t, err, ErrUnknownRegister)
}

func TestTurnoverBoundsThePeriod(t *testing.T) {
	store := &countingStore{}
	agg := NewAggregator(store, NewCache(nil, 0))
	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)

	_, err := agg.Turnover(context.Background(), RegisterPayroll, from, to, []Dimension{DimEmployee}, Filter{})
	require.NoError(t, err)
	require.NotNil(t, store.lastQuery.Filter.PeriodFrom)
	require.NotNil(t, store.lastQuery.Filter.PeriodTo)
	require.True(t, store.lastQuery.Filter.PeriodFrom.Equal(from))
	require.True(t, store.lastQuery.Filter.PeriodTo.Equal(to))
}

func TestRecorded(t *testing.T) {
	agg := NewAggregator(&countingStore{}, NewCache(nil, 0))
	recorder := RecorderRef{Kind: "estimate", ID: uuid.New()}

	movements, err := agg.Recorded(context.Background(), RegisterWorkExecution, recorder)
	require.NoError(t, err)
	require.Len(t, movements, 1)
	require.Equal(t, recorder, movements[0].Recorder)

	_, err = agg.Recorded(context.Background(), Name("ledger"), recorder)
	require.ErrorIs(t, err, ErrUnknownRegister)
}

func TestQueryPaginatesAndTotals(t *testing.T) {
	store := &countingStore{rows: sampleRows(5)}
	agg := NewAggregator(store, NewCache(nil, 0))

	result, err := agg.Query(context.Background(), QueryRequest{
		Register: RegisterWorkExecution,
		GroupBy:  []Dimension{DimObject},
		Page:     2,
		PerPage:  2,
	})
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	require.Equal(t, 2, result.Pagination.Page)
	require.Equal(t, 5, result.Pagination.Total)

	// Totals cover all rows, not just the page: 1+2+3+4+5.
	require.InDelta(t, 15.0, result.Totals.QuantityIncome, 1e-9)
	require.InDelta(t, 150.0, result.Totals.SumIncome, 1e-9)
	require.InDelta(t, 15.0, result.Totals.BalanceQuantity, 1e-9)

	result, err = agg.Query(context.Background(), QueryRequest{
		Register: RegisterWorkExecution,
		GroupBy:  []Dimension{DimObject},
		Page:     9,
		PerPage:  2,
	})
	require.NoError(t, err)
	require.Empty(t, result.Rows)
}
