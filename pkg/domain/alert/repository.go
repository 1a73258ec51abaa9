package alert

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/NeuralTrust/CareGuard/pkg/domain/pattern"
)

type Filter struct {
	SessionID string
	Status    Status
	Category  pattern.Category
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}

type Repository interface {
	Create(ctx context.Context, a *Alert) error
	// Update writes a and bumps its revision if the stored revision still
	// equals expectedRevision, otherwise it returns ErrStaleRevision.
	Update(ctx context.Context, a *Alert, expectedRevision int) error
	Get(ctx context.Context, id uuid.UUID) (*Alert, error)
	FindLatestBySession(ctx context.Context, sessionID string) (*Alert, error)
	List(ctx context.Context, filter Filter) ([]Alert, error)
	ListSLABreached(ctx context.Context, now time.Time) ([]Alert, error)
}
