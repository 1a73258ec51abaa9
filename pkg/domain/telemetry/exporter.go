package telemetry

import (
	"context"
	"time"
)

// Envelope is what gets shipped to an external sink. Key groups related
// envelopes (a session id, an alert id) so sinks can keep them ordered.
type Envelope struct {
	Key        string      `json:"key"`
	Kind       string      `json:"kind"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

const (
	KindCrisisAlert = "crisis_alert"
	KindAuditRecord = "audit_record"
)

type Exporter interface {
	Name() string
	ValidateConfig(settings map[string]interface{}) error
	WithSettings(settings map[string]interface{}) (Exporter, error)
	Export(ctx context.Context, env Envelope) error
	Close()
}
