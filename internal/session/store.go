// Package session holds short-lived, per-browser-session state: the pending
// booking intent and the callback guard flags. Nothing stored here is a
// source of truth for bookings.
package session

import (
	"context"
	"time"
)

// Store is a TTL key/value area. SetNX must be atomic.
type Store interface {
	// Get returns (nil, false, nil) when the key is absent or expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// SetNX writes only when the key is absent and reports whether it wrote.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	// Delete is a no-op for absent keys.
	Delete(ctx context.Context, key string) error
}

// Key builds a session-scoped key.
func Key(sessionID, kind, id string) string {
	if id == "" {
		return "session:" + sessionID + ":" + kind
	}
	return "session:" + sessionID + ":" + kind + ":" + id
}
