package subscriber

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/NeuralTrust/CareGuard/pkg/app/dictionary"
	"github.com/NeuralTrust/CareGuard/pkg/infra/cache"
	"github.com/NeuralTrust/CareGuard/pkg/infra/cache/event"
)

type DictionaryUpdatedEventSubscriber struct {
	logger     *logrus.Logger
	dictionary dictionary.Service
	instanceID string
}

func NewDictionaryUpdatedEventSubscriber(
	logger *logrus.Logger,
	dictionary dictionary.Service,
	instanceID string,
) cache.EventSubscriber[event.DictionaryUpdatedEvent] {
	return &DictionaryUpdatedEventSubscriber{
		logger:     logger,
		dictionary: dictionary,
		instanceID: instanceID,
	}
}

func (s DictionaryUpdatedEventSubscriber) OnEvent(ctx context.Context, evt event.DictionaryUpdatedEvent) error {
	if evt.Origin != "" && evt.Origin == s.instanceID {
		return nil
	}
	snap, err := s.dictionary.Refresh(ctx)
	if err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{
		"pattern_key": evt.PatternKey,
		"version":     evt.Version,
		"generation":  snap.Generation,
	}).Debug("dictionary refreshed from invalidation event")
	return nil
}
