package websocket

import (
	"time"

	"github.com/NeuralTrust/CareGuard/pkg/infra/cache/event"
)

const (
	MessageTypeHello = "hello"
	MessageTypeAlert = "alert"
)

// FeedMessage is one frame on the live alert feed.
type FeedMessage struct {
	Type   string                   `json:"type"`
	Alert  *event.AlertChangedEvent `json:"alert,omitempty"`
	SentAt time.Time                `json:"sent_at"`
}

// FeedFilter narrows the feed to one session or status. Zero values match
// everything.
type FeedFilter struct {
	SessionID string
	Status    string
}

func (f FeedFilter) Matches(ev event.AlertChangedEvent) bool {
	if f.SessionID != "" && ev.SessionID != f.SessionID {
		return false
	}
	if f.Status != "" && ev.Status != f.Status {
		return false
	}
	return true
}
