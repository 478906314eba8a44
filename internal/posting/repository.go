package posting

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sitetrack-erp/sitetrack/internal/documents"
	"github.com/sitetrack-erp/sitetrack/internal/register"
)

// Repository opens the transaction a post/unpost runs in.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes the document and register operations available inside
// one posting transaction. Writes to the register tables exist only here.
type TxRepository interface {
	GetDocumentForUpdate(ctx context.Context, kind documents.Kind, id uuid.UUID) (documents.Document, error)
	SetPosted(ctx context.Context, kind documents.Kind, id uuid.UUID, posted bool, postedAt *time.Time) error
	AppendMovements(ctx context.Context, movements []register.Movement) error
	DeleteMovements(ctx context.Context, recorder register.RecorderRef) (int64, error)
	FindConflict(ctx context.Context, employeeID uuid.UUID, period time.Time, excluding register.RecorderRef) (*register.RecorderRef, error)
	LockSlot(ctx context.Context, employeeID uuid.UUID, period time.Time) error
}

type repository struct {
	db          *pgxpool.Pool
	lockTimeout time.Duration
}

// NewRepository builds the pgx-backed posting repository. lockTimeout bounds
// the wait for the document row lock; exceeding it surfaces as
// register.ErrConcurrency rather than hanging.
func NewRepository(db *pgxpool.Pool, lockTimeout time.Duration) Repository {
	if lockTimeout <= 0 {
		lockTimeout = 3 * time.Second
	}
	return &repository{db: db, lockTimeout: lockTimeout}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	// ReadCommitted so the duplicate check sees rows committed after this
	// transaction started; serialization comes from the document row lock
	// and the per-slot advisory lock, not from snapshot isolation.
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return register.StorageError(err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	// SET does not accept bind parameters.
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = %d", r.lockTimeout.Milliseconds())); err != nil {
		return register.StorageError(err)
	}
	if err := fn(ctx, &txRepository{tx: tx}); err != nil {
		return translatePgError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return translatePgError(register.StorageError(err))
	}
	return nil
}

// translatePgError maps retryable engine failures onto the posting taxonomy.
func translatePgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "55P03": // lock_not_available
			return register.ErrConcurrency
		case "40001", "40P01": // serialization_failure, deadlock_detected
			return register.ErrConcurrency
		case "23505", "23P01": // unique_violation, exclusion_violation
			return register.ErrDuplicateRecord
		}
	}
	return err
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) GetDocumentForUpdate(ctx context.Context, kind documents.Kind, id uuid.UUID) (documents.Document, error) {
	return documents.GetForUpdate(ctx, r.tx, kind, id)
}

func (r *txRepository) SetPosted(ctx context.Context, kind documents.Kind, id uuid.UUID, posted bool, postedAt *time.Time) error {
	return documents.SetPosted(ctx, r.tx, kind, id, posted, postedAt)
}

func (r *txRepository) AppendMovements(ctx context.Context, movements []register.Movement) error {
	return register.AppendMovements(ctx, r.tx, movements)
}

func (r *txRepository) DeleteMovements(ctx context.Context, recorder register.RecorderRef) (int64, error) {
	return register.DeleteMovements(ctx, r.tx, recorder)
}

func (r *txRepository) FindConflict(ctx context.Context, employeeID uuid.UUID, period time.Time, excluding register.RecorderRef) (*register.RecorderRef, error) {
	return register.FindConflict(ctx, r.tx, employeeID, period, excluding)
}

func (r *txRepository) LockSlot(ctx context.Context, employeeID uuid.UUID, period time.Time) error {
	return register.LockSlot(ctx, r.tx, employeeID, period)
}
