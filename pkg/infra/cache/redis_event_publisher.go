package cache

import (
	"context"
	"encoding/json"

	"github.com/NeuralTrust/CareGuard/pkg/infra/cache/channel"
	"github.com/NeuralTrust/CareGuard/pkg/infra/cache/event"
)

type redisEventPublisher struct {
	cache Client
}

func NewRedisEventPublisher(cache Client) EventPublisher {
	return &redisEventPublisher{cache: cache}
}

func (p *redisEventPublisher) Publish(ctx context.Context, ch channel.Channel, ev event.Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	data, err := json.Marshal(RedisMessage{
		Type:  ev.Type(),
		Event: b,
	})
	if err != nil {
		return err
	}
	return p.cache.RedisClient().Publish(ctx, string(ch), data).Err()
}
