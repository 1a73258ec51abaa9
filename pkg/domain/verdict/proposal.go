package verdict

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/NeuralTrust/CareGuard/pkg/domain/pattern"
)

type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "pending"
	ProposalApproved ProposalStatus = "approved"
	ProposalRejected ProposalStatus = "rejected"
)

// Proposal is a suggested weight change for one pattern version produced
// from reviewer feedback. It only takes effect through a new dictionary
// version.
type Proposal struct {
	ID                uuid.UUID        `json:"id" gorm:"type:uuid;primaryKey"`
	PatternID         uuid.UUID        `json:"pattern_id" gorm:"type:uuid;index;not null"`
	PatternKey        string           `json:"pattern_key" gorm:"not null"`
	Category          pattern.Category `json:"category" gorm:"type:varchar(32)"`
	CurrentWeight     int              `json:"current_weight"`
	ProposedWeight    int              `json:"proposed_weight"`
	FalsePositiveRate float64          `json:"false_positive_rate"`
	SampleSize        int              `json:"sample_size"`
	Status            ProposalStatus   `json:"status" gorm:"type:varchar(16);index;not null"`
	ReviewedBy        *string          `json:"reviewed_by,omitempty"`
	AppliedPatternID  *uuid.UUID       `json:"applied_pattern_id,omitempty" gorm:"type:uuid"`
	CreatedAt         time.Time        `json:"created_at"`
	ReviewedAt        *time.Time       `json:"reviewed_at,omitempty"`
}

func (Proposal) TableName() string {
	return "weight_proposals"
}

func (p *Proposal) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	if p.Status == "" {
		p.Status = ProposalPending
	}
	return nil
}

type ProposalRepository interface {
	Save(ctx context.Context, p *Proposal) error
	Get(ctx context.Context, id uuid.UUID) (*Proposal, error)
	List(ctx context.Context, status ProposalStatus) ([]Proposal, error)
	FindPending(ctx context.Context, patternID uuid.UUID) (*Proposal, error)
	// UpdateStatus moves a pending proposal to status. It returns a
	// PolicyConflictError when the proposal is no longer pending.
	UpdateStatus(ctx context.Context, p *Proposal) error
}
