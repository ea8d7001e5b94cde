// Package guard is a best-effort, session-scoped de-duplication layer for
// payment callbacks. It only saves redundant gateway and store calls; the
// booking store's uniqueness on payment_id is what keeps bookings correct.
package guard

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/imrishuroy/go-paidbooking-reconciler/internal/session"
)

const keyKind = "guard"

// Store encapsulates guard transitions against the session store.
type Store struct {
	sessions  session.Store
	ttlWindow time.Duration
	nowFunc   func() time.Time
}

// NewStore returns a configured Store. ttlWindow should be at least the
// session lifetime so a completed flag outlives the intent it protects.
func NewStore(sessions session.Store, ttlWindow time.Duration) *Store {
	return &Store{
		sessions:  sessions,
		ttlWindow: ttlWindow,
		nowFunc:   time.Now,
	}
}

// Begin atomically moves unseen -> processing. Any other observed state
// yields Proceed=false with that state.
func (s *Store) Begin(ctx context.Context, sessionID, paymentID string) (Decision, error) {
	now := s.nowFunc().UTC()
	rec := Record{
		PaymentID: paymentID,
		State:     StateProcessing,
		CreatedAt: now,
		UpdatedAt: now,
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return Decision{}, fmt.Errorf("marshal guard record: %w", err)
	}

	created, err := s.sessions.SetNX(ctx, session.Key(sessionID, keyKind, paymentID), data, s.ttlWindow)
	if err != nil {
		return Decision{}, fmt.Errorf("begin guard: %w", err)
	}
	if created {
		return Decision{Proceed: true, State: StateProcessing}, nil
	}

	current, err := s.Get(ctx, sessionID, paymentID)
	if err != nil {
		return Decision{}, err
	}
	if current == nil {
		// expired between SetNX and Get; report processing rather than racing a second claim
		return Decision{State: StateProcessing}, nil
	}
	return Decision{State: current.State}, nil
}

// Complete marks the payment completed. Only call it once a booking row is
// known to exist.
func (s *Store) Complete(ctx context.Context, sessionID, paymentID string) error {
	now := s.nowFunc().UTC()
	rec := Record{
		PaymentID: paymentID,
		State:     StateCompleted,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if current, err := s.Get(ctx, sessionID, paymentID); err == nil && current != nil {
		rec.CreatedAt = current.CreatedAt
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal guard record: %w", err)
	}
	if err := s.sessions.Set(ctx, session.Key(sessionID, keyKind, paymentID), data, s.ttlWindow); err != nil {
		return fmt.Errorf("complete guard: %w", err)
	}
	return nil
}

// Get returns the guard record, or (nil, nil) when the payment is unseen.
func (s *Store) Get(ctx context.Context, sessionID, paymentID string) (*Record, error) {
	data, ok, err := s.sessions.Get(ctx, session.Key(sessionID, keyKind, paymentID))
	if err != nil {
		return nil, fmt.Errorf("get guard: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal guard record: %w", err)
	}
	return &rec, nil
}

// StateOf is Get reduced to the state, reporting unseen for absent records.
func (s *Store) StateOf(ctx context.Context, sessionID, paymentID string) (State, error) {
	rec, err := s.Get(ctx, sessionID, paymentID)
	if err != nil {
		return "", err
	}
	if rec == nil {
		return StateUnseen, nil
	}
	return rec.State, nil
}
