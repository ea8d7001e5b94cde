package intent

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/imrishuroy/go-paidbooking-reconciler/internal/session"
)

const keyKind = "intent"

// Store keeps at most one PendingIntent per browser session.
type Store struct {
	sessions session.Store
	ttl      time.Duration
	nowFunc  func() time.Time
}

func NewStore(sessions session.Store, ttl time.Duration) *Store {
	return &Store{
		sessions: sessions,
		ttl:      ttl,
		nowFunc:  time.Now,
	}
}

// Save overwrites any pending intent for the session. Call it before
// redirecting to the gateway.
func (s *Store) Save(ctx context.Context, sessionID string, in PendingIntent) error {
	if in.CreatedAt.IsZero() {
		in.CreatedAt = s.nowFunc().UTC()
	}
	data, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal intent: %w", err)
	}
	if err := s.sessions.Set(ctx, session.Key(sessionID, keyKind, ""), data, s.ttl); err != nil {
		return fmt.Errorf("save intent: %w", err)
	}
	return nil
}

// Load returns (nil, nil) when no intent exists for the session; the caller
// must turn that into a session_expired outcome.
func (s *Store) Load(ctx context.Context, sessionID string) (*PendingIntent, error) {
	data, ok, err := s.sessions.Get(ctx, session.Key(sessionID, keyKind, ""))
	if err != nil {
		return nil, fmt.Errorf("load intent: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var in PendingIntent
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("unmarshal intent: %w", err)
	}
	return &in, nil
}

// Clear removes the pending intent. Safe to call more than once.
func (s *Store) Clear(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(ctx, session.Key(sessionID, keyKind, "")); err != nil {
		return fmt.Errorf("clear intent: %w", err)
	}
	return nil
}
