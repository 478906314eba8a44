package register

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func randomMovements(seed int64, n int) []Movement {
	rng := rand.New(rand.NewSource(seed))
	objects := []uuid.UUID{uuid.New(), uuid.New()}
	works := []*uuid.UUID{nil, ptr(uuid.New()), ptr(uuid.New())}
	employees := []*uuid.UUID{nil, ptr(uuid.New()), ptr(uuid.New())}
	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	out := make([]Movement, 0, n)
	for i := 0; i < n; i++ {
		m := Movement{
			Register:   RegisterWorkExecution,
			Recorder:   RecorderRef{Kind: "estimate", ID: uuid.New()},
			LineNumber: i + 1,
			Period:     base.AddDate(0, 0, rng.Intn(10)),
			Dimensions: Dimensions{
				ObjectID:   objects[rng.Intn(len(objects))],
				WorkID:     works[rng.Intn(len(works))],
				EmployeeID: employees[rng.Intn(len(employees))],
			},
		}
		qty := float64(rng.Intn(100) + 1)
		sum := qty * float64(rng.Intn(500)+1)
		if rng.Intn(2) == 0 {
			m.QuantityIncome, m.SumIncome = qty, sum
		} else {
			m.QuantityExpense, m.SumExpense = qty, sum
		}
		out = append(out, m)
	}
	return out
}

func ptr(id uuid.UUID) *uuid.UUID { return &id }

// naiveKey mirrors the grouping semantics independently of groupKey.
func naiveKey(m Movement, groupBy []Dimension) string {
	key := ""
	for _, dim := range groupBy {
		switch dim {
		case DimObject:
			key += m.Dimensions.ObjectID.String()
		case DimEstimate:
			if m.Dimensions.EstimateID != nil {
				key += m.Dimensions.EstimateID.String()
			}
		case DimWork:
			if m.Dimensions.WorkID != nil {
				key += m.Dimensions.WorkID.String()
			}
		case DimEmployee:
			if m.Dimensions.EmployeeID != nil {
				key += m.Dimensions.EmployeeID.String()
			}
		case DimPeriod:
			key += m.Period.UTC().Format("2006-01-02")
		}
		key += "/"
	}
	return key
}

func TestFoldMatchesNaiveRecomputation(t *testing.T) {
	movements := randomMovements(42, 500)
	groupings := [][]Dimension{
		{DimObject},
		{DimObject, DimWork},
		{DimObject, DimEmployee, DimPeriod},
		{DimObject, DimEstimate, DimWork, DimEmployee, DimPeriod},
	}

	for i, groupBy := range groupings {
		t.Run(fmt.Sprintf("grouping_%d", i), func(t *testing.T) {
			rows := Fold(movements, groupBy, Filter{})

			type sums struct{ qi, qe, si, se float64 }
			expected := make(map[string]*sums)
			for _, m := range movements {
				key := naiveKey(m, groupBy)
				s, ok := expected[key]
				if !ok {
					s = &sums{}
					expected[key] = s
				}
				s.qi += m.QuantityIncome
				s.qe += m.QuantityExpense
				s.si += m.SumIncome
				s.se += m.SumExpense
			}
			require.Len(t, rows, len(expected))

			for _, row := range rows {
				probe := Movement{Period: timeOrZero(row.Period), Dimensions: Dimensions{
					ObjectID:   uuidOrZero(row.ObjectID),
					EstimateID: row.EstimateID,
					WorkID:     row.WorkID,
					EmployeeID: row.EmployeeID,
				}}
				s, ok := expected[naiveKey(probe, groupBy)]
				require.True(t, ok, "unexpected group in fold output")
				require.InDelta(t, s.qi, row.QuantityIncome, 1e-9)
				require.InDelta(t, s.qe, row.QuantityExpense, 1e-9)
				require.InDelta(t, s.si, row.SumIncome, 1e-9)
				require.InDelta(t, s.se, row.SumExpense, 1e-9)
				require.InDelta(t, s.qi-s.qe, row.BalanceQuantity, 1e-9)
				require.InDelta(t, s.si-s.se, row.BalanceSum, 1e-9)
			}
		})
	}
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func uuidOrZero(id *uuid.UUID) uuid.UUID {
	if id == nil {
		return uuid.Nil
	}
	return *id
}

func TestFoldOrderIndependent(t *testing.T) {
	movements := randomMovements(7, 200)
	groupBy := []Dimension{DimObject, DimWork, DimPeriod}

	forward := Fold(movements, groupBy, Filter{})

	reversed := make([]Movement, len(movements))
	for i, m := range movements {
		reversed[len(movements)-1-i] = m
	}
	require.Equal(t, forward, Fold(reversed, groupBy, Filter{}))
}

func TestFoldPeriodRangeInclusive(t *testing.T) {
	object := uuid.New()
	day := func(d int) time.Time { return time.Date(2026, 8, d, 0, 0, 0, 0, time.UTC) }
	mov := func(d int, qty float64) Movement {
		return Movement{
			Register:       RegisterWorkExecution,
			Recorder:       RecorderRef{Kind: "estimate", ID: uuid.New()},
			Period:         day(d),
			Dimensions:     Dimensions{ObjectID: object},
			QuantityIncome: qty,
			SumIncome:      qty,
		}
	}
	movements := []Movement{mov(1, 1), mov(5, 10), mov(10, 100), mov(15, 1000)}

	from, to := day(5), day(10)
	rows := Fold(movements, []Dimension{DimObject}, Filter{PeriodFrom: &from, PeriodTo: &to})
	require.Len(t, rows, 1)
	require.InDelta(t, 110.0, rows[0].QuantityIncome, 1e-9)
}

func TestFoldFilterByDimension(t *testing.T) {
	movements := randomMovements(13, 300)
	target := movements[0].Dimensions.ObjectID
	rows := Fold(movements, []Dimension{DimObject}, Filter{ObjectID: &target})
	require.Len(t, rows, 1)
	require.Equal(t, target, *rows[0].ObjectID)

	var qty float64
	for _, m := range movements {
		if m.Dimensions.ObjectID == target {
			qty += m.QuantityIncome
		}
	}
	require.InDelta(t, qty, rows[0].QuantityIncome, 1e-9)
}
