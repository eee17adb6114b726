package cache

import (
	"context"
	"time"
)

type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// SessionListKey caches one owner's session list; invalidated on every
// session mutation.
func SessionListKey(ownerID string) string {
	return "sessions:list:" + ownerID
}
