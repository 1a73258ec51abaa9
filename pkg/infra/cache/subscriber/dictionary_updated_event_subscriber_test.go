package subscriber_test

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NeuralTrust/CareGuard/pkg/app/dictionary"
	"github.com/NeuralTrust/CareGuard/pkg/domain/pattern"
	"github.com/NeuralTrust/CareGuard/pkg/infra/cache/event"
	"github.com/NeuralTrust/CareGuard/pkg/infra/cache/subscriber"
	"github.com/NeuralTrust/CareGuard/pkg/infra/repository/inmemory"
)

func TestDictionaryUpdatedEventSubscriber(t *testing.T) {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	store := inmemory.NewStore()
	store.Seed(pattern.Defaults()...)
	dict := dictionary.NewService(dictionary.Deps{Logger: logger, Repo: store.Patterns()})
	sub := subscriber.NewDictionaryUpdatedEventSubscriber(logger, dict, "admin-1")

	require.NoError(t, sub.OnEvent(context.Background(), event.DictionaryUpdatedEvent{Origin: "admin-1"}))
	assert.Equal(t, dictionary.SourceDefaults, dict.Current().Source, "own events are ignored")

	require.NoError(t, sub.OnEvent(context.Background(), event.DictionaryUpdatedEvent{Origin: "engine-2", PatternKey: "suicide.kill_myself"}))
	assert.Equal(t, dictionary.SourceStore, dict.Current().Source)
}
