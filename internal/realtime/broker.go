package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisBroker relays pushes through a redis pub/sub channel so every API
// instance delivers to its own connected clients.
type RedisBroker struct {
	rdb     *redis.Client
	channel string
	hub     *Hub
	log     *logrus.Entry
}

func NewRedisBroker(rdb *redis.Client, channel string, hub *Hub, log *logrus.Entry) *RedisBroker {
	return &RedisBroker{rdb: rdb, channel: channel, hub: hub, log: log}
}

func (b *RedisBroker) Publish(ctx context.Context, group, event string, payload json.RawMessage) error {
	msg, err := encode(group, event, payload)
	if err != nil {
		return err
	}
	if err := b.rdb.Publish(ctx, b.channel, msg).Err(); err != nil {
		return fmt.Errorf("publishing %s to redis: %w", event, err)
	}
	return nil
}

// Run forwards channel messages to the local hub until ctx is done.
func (b *RedisBroker) Run(ctx context.Context) error {
	sub := b.rdb.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribing to %s: %w", b.channel, err)
	}
	b.log.WithField("channel", b.channel).Info("realtime broker subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			b.forward(msg.Payload)
		}
	}
}

func (b *RedisBroker) forward(raw string) {
	var env Envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil || env.Group == "" || env.Event == "" {
		b.log.WithField("channel", b.channel).Warn("dropping malformed realtime message")
		return
	}
	b.hub.deliver(env.Group, env.Event, []byte(raw))
}

var _ Publisher = (*RedisBroker)(nil)
