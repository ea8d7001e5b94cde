package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"

	"github.com/imrishuroy/go-paidbooking-reconciler/internal/gateway"
	"github.com/imrishuroy/go-paidbooking-reconciler/internal/session"
)

const verifiedKind = "verified"

// verifiedStash keeps a VerifiedTransaction in the session after a failed
// persist, so a retry never needs the gateway again.
type verifiedStash struct {
	sessions session.Store
	ttl      time.Duration
}

func (v verifiedStash) save(ctx context.Context, sessionID, paymentID string, txn gateway.VerifiedTransaction) error {
	data, err := json.Marshal(txn)
	if err != nil {
		return fmt.Errorf("marshal verified transaction: %w", err)
	}
	if err := v.sessions.Set(ctx, session.Key(sessionID, verifiedKind, paymentID), data, v.ttl); err != nil {
		return fmt.Errorf("stash verified transaction: %w", err)
	}
	return nil
}

func (v verifiedStash) load(ctx context.Context, sessionID, paymentID string) (*gateway.VerifiedTransaction, error) {
	data, ok, err := v.sessions.Get(ctx, session.Key(sessionID, verifiedKind, paymentID))
	if err != nil {
		return nil, fmt.Errorf("load verified transaction: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var txn gateway.VerifiedTransaction
	if err := json.Unmarshal(data, &txn); err != nil {
		return nil, fmt.Errorf("unmarshal verified transaction: %w", err)
	}
	return &txn, nil
}

func (v verifiedStash) drop(ctx context.Context, sessionID, paymentID string) error {
	return v.sessions.Delete(ctx, session.Key(sessionID, verifiedKind, paymentID))
}
