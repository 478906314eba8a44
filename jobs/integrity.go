package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"golang.org/x/sync/errgroup"

	jobmetrics "github.com/sitetrack-erp/sitetrack/internal/jobs"
	"github.com/sitetrack-erp/sitetrack/internal/register"
)

// balanceTolerance absorbs float accumulation noise between SQL numeric
// sums and the Go-side fold.
const balanceTolerance = 1e-6

// IntegrityJob verifies that SQL aggregation over each register equals an
// independent recomputation from raw movement rows.
type IntegrityJob struct {
	store   register.Store
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewIntegrityJob builds the integrity scan job. metrics may be nil.
func NewIntegrityJob(store register.Store, logger *slog.Logger, metrics *jobmetrics.Metrics) *IntegrityJob {
	return &IntegrityJob{store: store, logger: logger, metrics: metrics}
}

// Handle processes TaskRegisterIntegrity tasks.
func (j *IntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track("register_integrity")

	var payload RegisterIntegrityPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return tracker.End(asynq.SkipRetry)
	}
	names := []register.Name{register.RegisterWorkExecution, register.RegisterPayroll}
	if len(payload.Registers) > 0 {
		names = names[:0]
		for _, s := range payload.Registers {
			name := register.Name(s)
			if !name.Valid() {
				return tracker.End(fmt.Errorf("jobs: unknown register %q: %w", s, asynq.SkipRetry))
			}
			names = append(names, name)
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, name := range names {
		name := name
		g.Go(func() error {
			return j.verify(ctx, name)
		})
	}
	return tracker.End(g.Wait())
}

// verify compares one register's SQL aggregation against register.Fold over
// its raw rows, grouped by every dimension.
func (j *IntegrityJob) verify(ctx context.Context, name register.Name) error {
	groupBy := []register.Dimension{
		register.DimObject, register.DimEstimate, register.DimWork, register.DimEmployee, register.DimPeriod,
	}
	movements, err := j.store.Movements(ctx, name, register.Filter{})
	if err != nil {
		return err
	}
	expected := register.Fold(movements, groupBy, register.Filter{})

	actual, err := j.store.Aggregate(ctx, register.AggregateQuery{Register: name, GroupBy: groupBy})
	if err != nil {
		return err
	}
	if len(actual) != len(expected) {
		return fmt.Errorf("jobs: register %s integrity: %d aggregated groups, %d recomputed", name, len(actual), len(expected))
	}
	// SQL and the fold sort groups differently; match rows by key.
	recomputed := make(map[string]register.BalanceRow, len(expected))
	for _, row := range expected {
		recomputed[rowKey(row)] = row
	}
	for _, row := range actual {
		want, ok := recomputed[rowKey(row)]
		if !ok || !rowsClose(want, row) {
			return fmt.Errorf("jobs: register %s integrity: group %s diverged", name, rowKey(row))
		}
	}
	if j.logger != nil {
		j.logger.Info("register integrity verified",
			slog.String("register", string(name)),
			slog.Int("groups", len(expected)),
			slog.Int("movements", len(movements)))
	}
	return nil
}

func rowKey(row register.BalanceRow) string {
	token := func(id *uuid.UUID) string {
		if id == nil {
			return "-"
		}
		return id.String()
	}
	period := "-"
	if row.Period != nil {
		period = row.Period.UTC().Format("2006-01-02")
	}
	return strings.Join([]string{
		token(row.ObjectID), token(row.EstimateID), token(row.WorkID), token(row.EmployeeID), period,
	}, "|")
}

func rowsClose(a, b register.BalanceRow) bool {
	return math.Abs(a.QuantityIncome-b.QuantityIncome) < balanceTolerance &&
		math.Abs(a.QuantityExpense-b.QuantityExpense) < balanceTolerance &&
		math.Abs(a.SumIncome-b.SumIncome) < balanceTolerance &&
		math.Abs(a.SumExpense-b.SumExpense) < balanceTolerance
}
