package cache

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NeuralTrust/CareGuard/pkg/infra/cache/event"
)

type alertSub struct {
	got []event.AlertChangedEvent
	err error
}

func (s *alertSub) OnEvent(_ context.Context, ev event.AlertChangedEvent) error {
	s.got = append(s.got, ev)
	return s.err
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestHandleMessage_DispatchesToEverySubscriber(t *testing.T) {
	l := NewRedisEventListener(quietLogger(), nil, event.Registry).(*redisEventListener)
	first := &alertSub{}
	second := &alertSub{err: errors.New("boom")}
	RegisterEventSubscriber[event.AlertChangedEvent](l, first)
	RegisterEventSubscriber[event.AlertChangedEvent](l, second)

	ev := event.AlertChangedEvent{AlertID: "a1", Status: "new", Change: "created", RiskScore: 90}
	body, err := json.Marshal(ev)
	require.NoError(t, err)
	payload, err := json.Marshal(RedisMessage{Type: ev.Type(), Event: body})
	require.NoError(t, err)

	l.handleMessage(context.Background(), string(payload))

	require.Len(t, first.got, 1)
	assert.Equal(t, ev, first.got[0])
	assert.Len(t, second.got, 1)
}

func TestHandleMessage_IgnoresGarbage(t *testing.T) {
	l := NewRedisEventListener(quietLogger(), nil, event.Registry).(*redisEventListener)
	sub := &alertSub{}
	RegisterEventSubscriber[event.AlertChangedEvent](l, sub)

	l.handleMessage(context.Background(), "not json")
	l.handleMessage(context.Background(), `{"type":"Unknown","event":{}}`)
	l.handleMessage(context.Background(), `{"type":"AlertChangedEvent","event":"oops"}`)

	assert.Empty(t, sub.got)
}
