package violation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/NeuralTrust/CareGuard/pkg/domain/pattern"
)

// TypeScopeViolation labels redactions whose pattern carries no subtype.
const TypeScopeViolation pattern.Subtype = "scope_violation"

// TypeFor is the violation type recorded for a pattern subtype.
func TypeFor(s pattern.Subtype) pattern.Subtype {
	if s == pattern.SubtypeNone {
		return TypeScopeViolation
	}
	return s
}

type Violation struct {
	ID            uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	SessionID     string          `json:"session_id" gorm:"index;not null"`
	DecisionID    uuid.UUID       `json:"decision_id" gorm:"type:uuid;index;not null"`
	PatternID     uuid.UUID       `json:"pattern_id" gorm:"type:uuid"`
	ViolationType pattern.Subtype `json:"violation_type" gorm:"type:varchar(32)"`
	OriginalText  string          `json:"original_text"`
	RedactedText  string          `json:"redacted_text"`
	CreatedAt     time.Time       `json:"created_at" gorm:"index"`
}

func (Violation) TableName() string {
	return "boundary_violations"
}

func (v *Violation) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now()
	}
	return nil
}

type Filter struct {
	SessionID  string
	DecisionID uuid.UUID
	Type       pattern.Subtype
	From       time.Time
	To         time.Time
	Limit      int
	Offset     int
}

type Repository interface {
	SaveAll(ctx context.Context, violations []Violation) error
	List(ctx context.Context, filter Filter) ([]Violation, error)
}
