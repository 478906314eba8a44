package posting

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/sitetrack-erp/sitetrack/internal/documents"
	"github.com/sitetrack-erp/sitetrack/internal/register"
	"github.com/sitetrack-erp/sitetrack/internal/shared"
)

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// InvalidatorPort drops cached aggregations after a committed post/unpost.
type InvalidatorPort interface {
	Invalidate(ctx context.Context) error
}

// MetricsPort counts posting outcomes.
type MetricsPort interface {
	ObservePosting(kind, op, result string)
}

// Service orchestrates the Draft <-> Posted transition of a document. Every
// operation is one synchronous unit of work bounded by one storage
// transaction; there is no background work and no mid-operation cancellation.
type Service struct {
	repo        Repository
	strategies  map[documents.Kind]Strategy
	audit       AuditPort
	invalidator InvalidatorPort
	metrics     MetricsPort
	now         func() time.Time
}

// NewService builds the posting service. audit, invalidator and metrics are
// optional.
func NewService(repo Repository, audit AuditPort, invalidator InvalidatorPort, metrics MetricsPort) *Service {
	return &Service{
		repo:        repo,
		strategies:  Strategies(),
		audit:       audit,
		invalidator: invalidator,
		metrics:     metrics,
		now:         time.Now,
	}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// PostResult reports a successful post.
type PostResult struct {
	Recorder  register.RecorderRef `json:"recorder"`
	Movements int                  `json:"movements"`
	PostedAt  time.Time            `json:"posted_at"`
}

// UnpostResult reports a successful unpost.
type UnpostResult struct {
	Recorder register.RecorderRef `json:"recorder"`
	Removed  int64                `json:"removed"`
}

// Post converts the document's lines into movements and marks it posted.
// All preconditions are checked before the write phase; any failure rolls
// the transaction back, so a partially posted document is not representable.
func (s *Service) Post(ctx context.Context, kind documents.Kind, id uuid.UUID) (PostResult, error) {
	strategy, ok := s.strategies[kind]
	if !ok {
		return PostResult{}, s.observe(kind, "post", register.ErrValidation)
	}
	recorder := register.RecorderRef{Kind: string(kind), ID: id}
	postedAt := s.now().UTC()

	var result PostResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		doc, err := tx.GetDocumentForUpdate(ctx, kind, id)
		if err != nil {
			return err
		}
		if doc.IsPosted {
			return register.ErrAlreadyPosted
		}
		// Amounts come from the current line values fetched under the
		// row lock, never from a cached copy.
		movements, err := strategy.BuildMovements(doc, postedAt)
		if err != nil {
			return err
		}
		if len(movements) == 0 {
			return register.ErrValidation
		}
		if strategy.DuplicateSensitive() {
			detector := register.NewDuplicateDetector(tx)
			for _, m := range movements {
				if m.Dimensions.EmployeeID == nil {
					continue
				}
				if err := detector.Check(ctx, *m.Dimensions.EmployeeID, m.Period, recorder); err != nil {
					return err
				}
			}
		}
		if err := tx.AppendMovements(ctx, movements); err != nil {
			return err
		}
		if err := tx.SetPosted(ctx, kind, id, true, &postedAt); err != nil {
			return err
		}
		result = PostResult{Recorder: recorder, Movements: len(movements), PostedAt: postedAt}
		return nil
	})
	if err != nil {
		return PostResult{}, s.observe(kind, "post", err)
	}

	s.afterCommit(ctx, "document.post", recorder, map[string]any{"movements": result.Movements})
	return result, s.observe(kind, "post", nil)
}

// Unpost deletes every movement for the recorder and clears the posted
// state, atomically.
func (s *Service) Unpost(ctx context.Context, kind documents.Kind, id uuid.UUID) (UnpostResult, error) {
	if _, ok := s.strategies[kind]; !ok {
		return UnpostResult{}, s.observe(kind, "unpost", register.ErrValidation)
	}
	recorder := register.RecorderRef{Kind: string(kind), ID: id}

	var result UnpostResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		doc, err := tx.GetDocumentForUpdate(ctx, kind, id)
		if err != nil {
			return err
		}
		if !doc.IsPosted {
			return register.ErrNotPosted
		}
		removed, err := tx.DeleteMovements(ctx, recorder)
		if err != nil {
			return err
		}
		if err := tx.SetPosted(ctx, kind, id, false, nil); err != nil {
			return err
		}
		result = UnpostResult{Recorder: recorder, Removed: removed}
		return nil
	})
	if err != nil {
		return UnpostResult{}, s.observe(kind, "unpost", err)
	}

	s.afterCommit(ctx, "document.unpost", recorder, map[string]any{"removed": result.Removed})
	return result, s.observe(kind, "unpost", nil)
}

// EnsureDeletable is the guard external CRUD calls before deleting a
// document: a posted document must be unposted first.
func (s *Service) EnsureDeletable(ctx context.Context, kind documents.Kind, id uuid.UUID) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		doc, err := tx.GetDocumentForUpdate(ctx, kind, id)
		if err != nil {
			return err
		}
		if doc.IsPosted {
			return register.ErrAlreadyPosted
		}
		return nil
	})
}

func (s *Service) afterCommit(ctx context.Context, action string, recorder register.RecorderRef, meta map[string]any) {
	if s.invalidator != nil {
		_ = s.invalidator.Invalidate(ctx)
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			Action:   action,
			Entity:   "document",
			EntityID: recorder.String(),
			Meta:     meta,
			At:       s.now().UTC(),
		})
	}
}

// observe counts the outcome and passes the error through unchanged.
func (s *Service) observe(kind documents.Kind, op string, err error) error {
	if s.metrics != nil {
		result := "ok"
		if err != nil {
			result = "error"
		}
		s.metrics.ObservePosting(string(kind), op, result)
	}
	return err
}
