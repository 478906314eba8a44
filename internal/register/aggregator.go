package register

import (
	"context"
	"strings"
	"time"

	"github.com/sitetrack-erp/sitetrack/internal/shared"
)

// Aggregator answers balance and turnover queries over the register store.
// It only reads; consistency comes from the storage engine. Results are
// cached in Redis and invalidated by version bump on every post/unpost.
type Aggregator struct {
	store Store
	cache *Cache
}

// NewAggregator builds the read-side query service.
func NewAggregator(store Store, cache *Cache) *Aggregator {
	return &Aggregator{store: store, cache: cache}
}

// Balance returns one row per distinct combination of the requested
// dimensions with summed quantities, sums and derived balances.
func (a *Aggregator) Balance(ctx context.Context, name Name, groupBy []Dimension, filter Filter) ([]BalanceRow, error) {
	if !name.Valid() {
		return nil, ErrUnknownRegister
	}
	key, err := a.cache.BuildKey(ctx, cacheKeyParts(name, "balance", groupBy, filter)...)
	if err != nil {
		return nil, err
	}
	var rows []BalanceRow
	err = a.cache.FetchJSON(ctx, key, &rows, func(ctx context.Context) (interface{}, error) {
		return a.store.Aggregate(ctx, AggregateQuery{Register: name, GroupBy: groupBy, Filter: filter})
	})
	return rows, err
}

// Turnover is Balance restricted to movements whose period falls inside the
// inclusive [from, to] range.
func (a *Aggregator) Turnover(ctx context.Context, name Name, from, to time.Time, groupBy []Dimension, filter Filter) ([]BalanceRow, error) {
	filter.PeriodFrom = &from
	filter.PeriodTo = &to
	return a.Balance(ctx, name, groupBy, filter)
}

// QueryRequest shapes one paginated register query from the HTTP layer.
type QueryRequest struct {
	Register Name
	GroupBy  []Dimension
	Filter   Filter
	Page     int
	PerPage  int
}

// QueryResult carries one page of rows plus grand totals over all rows.
type QueryResult struct {
	Rows       []BalanceRow
	Totals     BalanceRow
	Pagination shared.Pagination
}

// Query runs a balance aggregation and paginates it for API consumers.
// Totals are computed over the full result set, not just the page, so
// plan-vs-actual callers can divide without re-querying.
func (a *Aggregator) Query(ctx context.Context, req QueryRequest) (QueryResult, error) {
	rows, err := a.Balance(ctx, req.Register, req.GroupBy, req.Filter)
	if err != nil {
		return QueryResult{}, err
	}

	var totals BalanceRow
	for _, row := range rows {
		totals.QuantityIncome += row.QuantityIncome
		totals.QuantityExpense += row.QuantityExpense
		totals.SumIncome += row.SumIncome
		totals.SumExpense += row.SumExpense
	}
	totals.BalanceQuantity = totals.QuantityIncome - totals.QuantityExpense
	totals.BalanceSum = totals.SumIncome - totals.SumExpense

	p := shared.NewPagination(req.Page, req.PerPage, len(rows))
	start := (p.Page - 1) * p.PerPage
	if start > len(rows) {
		start = len(rows)
	}
	end := start + p.PerPage
	if end > len(rows) {
		end = len(rows)
	}
	return QueryResult{Rows: rows[start:end], Totals: totals, Pagination: p}, nil
}

// Recorded returns the movements written by one document, in line order.
// Served uncached; recorder lookups are diagnostic reads.
func (a *Aggregator) Recorded(ctx context.Context, name Name, recorder RecorderRef) ([]Movement, error) {
	if !name.Valid() {
		return nil, ErrUnknownRegister
	}
	return a.store.Find(ctx, name, recorder)
}

// Invalidate drops cached aggregations. Called by the posting service after
// every committed post/unpost.
func (a *Aggregator) Invalidate(ctx context.Context) error {
	return a.cache.Bump(ctx)
}

func cacheKeyParts(name Name, op string, groupBy []Dimension, filter Filter) []string {
	parts := []string{"register", string(name), op}
	dims := make([]string, 0, len(groupBy))
	for _, d := range groupBy {
		dims = append(dims, string(d))
	}
	parts = append(parts, strings.Join(dims, ","))
	parts = append(parts,
		uuidToken(filter.ObjectID),
		uuidToken(filter.EstimateID),
		uuidToken(filter.WorkID),
		uuidToken(filter.EmployeeID),
		timeToken(filter.PeriodFrom),
		timeToken(filter.PeriodTo),
	)
	return parts
}

func timeToken(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format("2006-01-02")
}
