package auditlogs

import (
	"time"

	"github.com/google/uuid"

	"github.com/NeuralTrust/CareGuard/pkg/domain"
	"github.com/NeuralTrust/CareGuard/pkg/domain/audit"
)

// Event is what components hand to the logger. Priority defaults to normal.
type Event struct {
	SessionID string
	Component audit.Component
	Type      string
	Category  string
	Priority  audit.Priority
	SubjectID string
	Payload   map[string]interface{}
}

func (e Event) toRecord(now time.Time) audit.Record {
	priority := e.Priority
	if priority == "" {
		priority = audit.PriorityNormal
	}
	payload := domain.JSONMap{}
	for k, v := range e.Payload {
		payload[k] = v
	}
	return audit.Record{
		ID:        uuid.New(),
		SessionID: e.SessionID,
		Component: e.Component,
		EventType: e.Type,
		Category:  e.Category,
		Priority:  priority,
		SubjectID: e.SubjectID,
		Payload:   payload,
		CreatedAt: now.UTC(),
	}
}
