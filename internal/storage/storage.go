package storage

import (
	"context"
	"io"
	"time"
)

// BlobStore is the audio blob facility: one object per (ownerID, sessionID).
// Delete must be called when the owning session is deleted.
type BlobStore interface {
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (storedPath string, err error)
	Download(ctx context.Context, objectName string) ([]byte, error)
	Delete(ctx context.Context, objectName string) error
	SignedGetURL(ctx context.Context, objectName string, ttl time.Duration) (string, error)
}

// AudioObjectName is the storage layout contract.
func AudioObjectName(ownerID, sessionID string) string {
	return "recordings/" + ownerID + "/" + sessionID + ".webm"
}
