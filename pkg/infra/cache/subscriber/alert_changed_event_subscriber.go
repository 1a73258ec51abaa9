package subscriber

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/CareGuard/pkg/app/crisis"
	"github.com/NeuralTrust/CareGuard/pkg/infra/cache"
	"github.com/NeuralTrust/CareGuard/pkg/infra/cache/event"
)

// AlertChangedEventSubscriber relays alert changes made by other instances
// to the local dashboard feed.
type AlertChangedEventSubscriber struct {
	logger     *logrus.Logger
	feed       *crisis.Feed
	instanceID string
}

func NewAlertChangedEventSubscriber(
	logger *logrus.Logger,
	feed *crisis.Feed,
	instanceID string,
) cache.EventSubscriber[event.AlertChangedEvent] {
	return &AlertChangedEventSubscriber{
		logger:     logger,
		feed:       feed,
		instanceID: instanceID,
	}
}

func (s AlertChangedEventSubscriber) OnEvent(_ context.Context, evt event.AlertChangedEvent) error {
	if evt.Origin != "" && evt.Origin == s.instanceID {
		return nil
	}
	s.feed.Publish(evt)
	s.logger.WithFields(logrus.Fields{
		"alert_id": evt.AlertID,
		"change":   evt.Change,
		"origin":   evt.Origin,
	}).Debug("alert change relayed to feed")
	return nil
}
