package websocket

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/NeuralTrust/CareGuard/pkg/infra/cache/event"
)

func TestSemaphore_CapsConnections(t *testing.T) {
	s := NewSemaphore(WithMaxConnections(2))
	assert.Equal(t, 2, s.Capacity())
	assert.True(t, s.Acquire())
	assert.True(t, s.Acquire())
	assert.False(t, s.Acquire())
	assert.Equal(t, 2, s.Current())

	s.Release()
	assert.True(t, s.Acquire())

	s.Release()
	s.Release()
	s.Release()
	assert.Equal(t, 0, s.Current())
}

func TestSemaphore_IgnoresNonPositiveLimit(t *testing.T) {
	s := NewSemaphore(WithMaxConnections(0))
	assert.Equal(t, defaultMaxConnections, s.Capacity())
}

func TestFeedFilter_Matches(t *testing.T) {
	ev := event.AlertChangedEvent{SessionID: "s1", Status: "new"}
	assert.True(t, FeedFilter{}.Matches(ev))
	assert.True(t, FeedFilter{SessionID: "s1", Status: "new"}.Matches(ev))
	assert.False(t, FeedFilter{SessionID: "s2"}.Matches(ev))
	assert.False(t, FeedFilter{Status: "resolved"}.Matches(ev))
}
