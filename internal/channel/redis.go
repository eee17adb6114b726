package channel

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisBus carries the channel over Redis Pub/Sub so the mini window can land
// on any server instance.
type RedisBus struct {
	rdb  *redis.Client
	name string
	log  *logrus.Logger
}

// NewRedisBus scopes the shared channel name to one capture client (the
// main window passes its client id to the mini window when opening it).
func NewRedisBus(rdb *redis.Client, scope string, log *logrus.Logger) *RedisBus {
	return &RedisBus{rdb: rdb, name: ChannelName + ":" + scope, log: log}
}

func (b *RedisBus) Publish(ctx context.Context, msg Message) error {
	return b.rdb.Publish(ctx, b.name, msg.Encode()).Err()
}

func (b *RedisBus) Subscribe(ctx context.Context) (<-chan Message, func()) {
	ctx, cancel := context.WithCancel(ctx)
	pubsub := b.rdb.Subscribe(ctx, b.name)
	out := make(chan Message, 16)

	go func() {
		defer close(out)
		defer pubsub.Close()
		for {
			m, err := pubsub.ReceiveMessage(ctx)
			if err != nil {
				return
			}
			msg, derr := Decode([]byte(m.Payload))
			if derr != nil {
				if b.log != nil {
					b.log.WithError(derr).Warn("dropping malformed channel payload")
				}
				continue
			}
			select {
			case out <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, cancel
}

// Close is a no-op: subscriptions own their lifecycle via the cancel func
// returned by Subscribe, and the Redis client is shared.
func (b *RedisBus) Close() error { return nil }
