package decision

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/NeuralTrust/CareGuard/pkg/domain/pattern"
)

type Filter struct {
	SessionID string
	Category  pattern.Category
	Action    Action
	Flagged   *bool
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}

type Repository interface {
	Save(ctx context.Context, d *Decision) error
	Get(ctx context.Context, id uuid.UUID) (*Decision, error)
	List(ctx context.Context, filter Filter) ([]Decision, error)
}
