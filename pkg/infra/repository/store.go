package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/NeuralTrust/CareGuard/pkg/domain/alert"
	domainErrors "github.com/NeuralTrust/CareGuard/pkg/domain/errors"
	"github.com/NeuralTrust/CareGuard/pkg/infra/resilience"
)

const (
	defaultPageSize = 100
	maxPageSize     = 1000

	uniqueViolation = "23505"
)

// Store is the gorm handle shared by the repositories. Every call goes
// through the guard so a slow or absent database surfaces as
// StoreUnavailableError instead of hanging the caller.
type Store struct {
	db    *gorm.DB
	guard *resilience.Guard
}

func NewStore(db *gorm.DB, guard *resilience.Guard) *Store {
	return &Store{db: db, guard: guard}
}

// Passthrough lists the errors repositories return as answers rather than
// outages.
func Passthrough(err error) bool {
	return resilience.IsOutcome(err) || errors.Is(err, alert.ErrStaleRevision)
}

func (s *Store) run(ctx context.Context, op string, fn func(db *gorm.DB) error) error {
	if s.guard == nil {
		return fn(s.db.WithContext(ctx))
	}
	return s.guard.Run(ctx, op, func(ctx context.Context) error {
		return fn(s.db.WithContext(ctx))
	})
}

func notFound(err error, entity string, id uuid.UUID) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domainErrors.NewNotFoundError(entity, id)
	}
	return err
}

// duplicate turns a unique-key violation into a PolicyConflictError so the
// caller sees the competing row as an answer, not an outage.
func duplicate(err error, subject, from, action string) error {
	if isDuplicateKey(err) {
		return domainErrors.NewPolicyConflictError(subject, from, action)
	}
	return err
}

func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func page(q *gorm.DB, limit, offset int) *gorm.DB {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return q.Limit(limit).Offset(offset)
}

func between(q *gorm.DB, column string, from, to time.Time) *gorm.DB {
	if !from.IsZero() {
		q = q.Where(column+" >= ?", from)
	}
	if !to.IsZero() {
		q = q.Where(column+" < ?", to)
	}
	return q
}
