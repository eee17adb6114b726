package services

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
)

// Session event kinds pushed to watchers. Watchers get every create, update
// and delete for their owner without manual refresh.
const (
	EventSessionCreated = "session_created"
	EventSessionUpdated = "session_updated"
	EventSessionDeleted = "session_deleted"
)

type SessionEvent struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Status    string `json:"status,omitempty"`
}

// EventPublisher pushes session events to the owner's live channel.
type EventPublisher interface {
	Publish(ctx context.Context, ownerID string, ev SessionEvent) error
}

func OwnerEventChannel(ownerID string) string {
	return "sessions:" + ownerID + ":events"
}

// RedisEventPublisher fans events out over Redis Pub/Sub; the watch
// WebSocket forwards them to the browser.
type RedisEventPublisher struct {
	rdb *redis.Client
}

func NewRedisEventPublisher(rdb *redis.Client) *RedisEventPublisher {
	return &RedisEventPublisher{rdb: rdb}
}

func (p *RedisEventPublisher) Publish(ctx context.Context, ownerID string, ev SessionEvent) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.rdb.Publish(ctx, OwnerEventChannel(ownerID), b).Err()
}

// NopEventPublisher drops events; used in tests.
type NopEventPublisher struct{}

func (NopEventPublisher) Publish(context.Context, string, SessionEvent) error { return nil }
