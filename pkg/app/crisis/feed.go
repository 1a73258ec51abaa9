package crisis

import (
	"sync"

	"github.com/NeuralTrust/CareGuard/pkg/infra/cache/event"
	"github.com/NeuralTrust/CareGuard/pkg/infra/prometheus"
)

const defaultFeedBuffer = 32

// Feed fans alert changes out to live dashboard connections. A subscriber
// that cannot keep up loses events instead of slowing the publisher.
type Feed struct {
	mu   sync.RWMutex
	next int
	subs map[int]chan event.AlertChangedEvent
}

func NewFeed() *Feed {
	return &Feed{subs: make(map[int]chan event.AlertChangedEvent)}
}

func (f *Feed) Subscribe(buffer int) (<-chan event.AlertChangedEvent, func()) {
	if buffer <= 0 {
		buffer = defaultFeedBuffer
	}
	ch := make(chan event.AlertChangedEvent, buffer)
	f.mu.Lock()
	id := f.next
	f.next++
	f.subs[id] = ch
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
			close(ch)
		})
	}
}

func (f *Feed) Publish(ev event.AlertChangedEvent) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, ch := range f.subs {
		select {
		case ch <- ev:
		default:
			prometheus.FeedDropped.Inc()
		}
	}
}

func (f *Feed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}
