package crisis

import (
	"context"
	"time"

	"github.com/NeuralTrust/CareGuard/pkg/domain/alert"
	"github.com/NeuralTrust/CareGuard/pkg/domain/telemetry"
)

const (
	ReasonCreated   = "created"
	ReasonEscalated = "escalated"
	ReasonSLABreach = "sla_breached"
	notifyJobKind   = "alert_notify"
	persistJobKind  = "alert_trigger"
	defaultAttempts = 3
)

// Notifier delivers alerts to human responders.
type Notifier interface {
	Deliver(ctx context.Context, a *alert.Alert, reason string) error
}

type Notification struct {
	Reason string       `json:"reason"`
	Alert  *alert.Alert `json:"alert"`
}

type exporterNotifier struct {
	exporter telemetry.Exporter
	now      func() time.Time
}

// NewExporterNotifier sends notifications through a telemetry exporter,
// keyed by session so a responder queue sees them in order.
func NewExporterNotifier(exporter telemetry.Exporter) Notifier {
	return &exporterNotifier{exporter: exporter, now: time.Now}
}

func (n *exporterNotifier) Deliver(ctx context.Context, a *alert.Alert, reason string) error {
	return n.exporter.Export(ctx, telemetry.Envelope{
		Key:        a.SessionID,
		Kind:       telemetry.KindCrisisAlert,
		OccurredAt: n.now().UTC(),
		Payload:    Notification{Reason: reason, Alert: a},
	})
}
