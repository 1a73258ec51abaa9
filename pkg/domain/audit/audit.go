package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/NeuralTrust/CareGuard/pkg/domain"
)

type Priority string

const (
	PriorityNormal   Priority = "normal"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

type Component string

const (
	ComponentPreFilter  Component = "prefilter"
	ComponentClassifier Component = "classifier"
	ComponentBoundary   Component = "boundary"
	ComponentCrisis     Component = "crisis"
	ComponentFeedback   Component = "feedback"
	ComponentDictionary Component = "dictionary"
	ComponentPipeline   Component = "pipeline"
)

// Record is one immutable row of the compliance trail.
type Record struct {
	ID        uuid.UUID      `json:"id" gorm:"type:uuid;primaryKey"`
	SessionID string         `json:"session_id,omitempty" gorm:"index"`
	Component Component      `json:"component" gorm:"type:varchar(32);index;not null"`
	EventType string         `json:"event_type" gorm:"type:varchar(64);not null"`
	Category  string         `json:"category,omitempty" gorm:"type:varchar(32);index"`
	Priority  Priority       `json:"priority" gorm:"type:varchar(16);not null"`
	SubjectID string         `json:"subject_id,omitempty"`
	Payload   domain.JSONMap `json:"payload" gorm:"type:jsonb"`
	CreatedAt time.Time      `json:"created_at" gorm:"index"`
}

func (Record) TableName() string {
	return "audit_records"
}

type Filter struct {
	SessionID string
	Category  string
	Component Component
	Priority  Priority
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}

type Repository interface {
	// Append inserts records that are not stored yet; existing ids are
	// skipped so WAL replays are safe.
	Append(ctx context.Context, records []Record) error
	Query(ctx context.Context, filter Filter) ([]Record, error)
}
