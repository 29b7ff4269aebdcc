package core

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound is returned by SessionStore.Get for missing or expired keys.
var ErrKeyNotFound = errors.New("key not found")

// SessionStore holds short-lived server-side state: registration sessions,
// chat drafts, presence pings. Values expire after their TTL.
type SessionStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores val under key, replacing any previous value. ttl <= 0 means no expiry.
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// Keys returns all live keys matching prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}
