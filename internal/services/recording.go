package services

import (
	"bytes"
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/UnifiedAI-ONeID/verbatim/internal/storage"
)

// BlobAdapter narrows storage.BlobStore to the recorder controller's
// audio-persistence port and pins the storage layout.
type BlobAdapter struct {
	Blobs storage.BlobStore
}

func (a BlobAdapter) StoreAudio(ctx context.Context, ownerID, sessionID, contentType string, audio []byte) (string, error) {
	return a.Blobs.Upload(ctx, storage.AudioObjectName(ownerID, sessionID), contentType, bytes.NewReader(audio))
}

// RedisOnlineProbe answers the controller's "are we online" question by
// pinging the backing infrastructure.
func RedisOnlineProbe(rdb *redis.Client) func(ctx context.Context) bool {
	return func(ctx context.Context) bool {
		return rdb.Ping(ctx).Err() == nil
	}
}
