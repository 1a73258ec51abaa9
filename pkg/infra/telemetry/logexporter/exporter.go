package logexporter

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/CareGuard/pkg/domain/telemetry"
)

const ExporterName = "log"

// Exporter writes envelopes to the service log. It is the fallback sink
// when Kafka is disabled.
type Exporter struct {
	logger *logrus.Logger
}

func NewLogExporter(logger *logrus.Logger) *Exporter {
	return &Exporter{logger: logger}
}

func (e *Exporter) Name() string {
	return ExporterName
}

func (e *Exporter) ValidateConfig(map[string]interface{}) error {
	return nil
}

func (e *Exporter) WithSettings(map[string]interface{}) (telemetry.Exporter, error) {
	return e, nil
}

func (e *Exporter) Export(_ context.Context, env telemetry.Envelope) error {
	e.logger.WithFields(logrus.Fields{
		"kind":        env.Kind,
		"key":         env.Key,
		"occurred_at": env.OccurredAt,
		"payload":     env.Payload,
	}).Info("exported envelope")
	return nil
}

func (e *Exporter) Close() {}
