package register

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Fold computes grouped sums over raw movements in Go. It is the reference
// computation for balances: the integrity scan compares its output against
// the SQL aggregation, and aggregation is commutative over movements so no
// ordering between recorders matters.
func Fold(movements []Movement, groupBy []Dimension, filter Filter) []BalanceRow {
	groups := make(map[string]*BalanceRow)
	for _, m := range movements {
		if !filter.Matches(m) {
			continue
		}
		key := groupKey(m, groupBy)
		row, ok := groups[key]
		if !ok {
			row = &BalanceRow{}
			for _, dim := range groupBy {
				switch dim {
				case DimObject:
					id := m.Dimensions.ObjectID
					row.ObjectID = &id
				case DimEstimate:
					row.EstimateID = m.Dimensions.EstimateID
				case DimWork:
					row.WorkID = m.Dimensions.WorkID
				case DimEmployee:
					row.EmployeeID = m.Dimensions.EmployeeID
				case DimPeriod:
					p := m.Period
					row.Period = &p
				}
			}
			groups[key] = row
		}
		row.QuantityIncome += m.QuantityIncome
		row.QuantityExpense += m.QuantityExpense
		row.SumIncome += m.SumIncome
		row.SumExpense += m.SumExpense
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]BalanceRow, 0, len(groups))
	for _, k := range keys {
		row := groups[k]
		row.BalanceQuantity = row.QuantityIncome - row.QuantityExpense
		row.BalanceSum = row.SumIncome - row.SumExpense
		out = append(out, *row)
	}
	return out
}

func groupKey(m Movement, groupBy []Dimension) string {
	parts := make([]string, 0, len(groupBy))
	for _, dim := range groupBy {
		switch dim {
		case DimObject:
			parts = append(parts, m.Dimensions.ObjectID.String())
		case DimEstimate:
			parts = append(parts, uuidToken(m.Dimensions.EstimateID))
		case DimWork:
			parts = append(parts, uuidToken(m.Dimensions.WorkID))
		case DimEmployee:
			parts = append(parts, uuidToken(m.Dimensions.EmployeeID))
		case DimPeriod:
			parts = append(parts, m.Period.UTC().Format(time.RFC3339))
		}
	}
	return strings.Join(parts, "|")
}

func uuidToken(id *uuid.UUID) string {
	if id == nil {
		return "-"
	}
	return id.String()
}
