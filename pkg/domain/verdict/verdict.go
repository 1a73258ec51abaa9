package verdict

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	domainErrors "github.com/NeuralTrust/CareGuard/pkg/domain/errors"
)

type Kind string

const (
	TruePositive  Kind = "true_positive"
	FalsePositive Kind = "false_positive"
)

func (k Kind) Valid() bool {
	return k == TruePositive || k == FalsePositive
}

// Verdict is a reviewer judgement on one decision. Verdicts are append-only
// and several may point at the same decision.
type Verdict struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	DecisionID uuid.UUID `json:"decision_id" gorm:"type:uuid;index;not null"`
	Verdict    Kind      `json:"verdict" gorm:"type:varchar(32);not null"`
	ReviewerID string    `json:"reviewer_id" gorm:"not null"`
	Note       string    `json:"note,omitempty"`
	CreatedAt  time.Time `json:"created_at" gorm:"index"`
}

func (Verdict) TableName() string {
	return "reviewer_verdicts"
}

func (v *Verdict) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	return v.Validate()
}

func (v *Verdict) Validate() error {
	if v.DecisionID == uuid.Nil {
		return domainErrors.NewValidationError("decision_id", "is required")
	}
	if !v.Verdict.Valid() {
		return domainErrors.NewValidationError("verdict", "must be true_positive or false_positive")
	}
	if v.ReviewerID == "" {
		return domainErrors.NewValidationError("reviewer_id", "is required")
	}
	return nil
}

type Repository interface {
	Save(ctx context.Context, v *Verdict) error
	Get(ctx context.Context, id uuid.UUID) (*Verdict, error)
	ListSince(ctx context.Context, since time.Time) ([]Verdict, error)
}
