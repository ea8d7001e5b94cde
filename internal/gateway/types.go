package gateway

import (
	"context"
	"errors"
	"time"
)

// VerifiedTransaction proves the gateway captured funds. It is not proof that
// a booking exists.
type VerifiedTransaction struct {
	TransactionID string    `json:"transaction_id"`
	PaymentID     string    `json:"payment_id"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency,omitempty"`
	VerifiedAt    time.Time `json:"verified_at"`
}

// Verifier converts a single-use authorization token into a confirmed
// transaction. Implementations perform exactly one exchange per call and
// never retry with the same token.
//
// Errors are *exceptions.Error of kind gateway_rejected or network_failure.
type Verifier interface {
	Verify(ctx context.Context, authorizationToken string) (*VerifiedTransaction, error)
}

// ErrMalformedResponse is wrapped inside a network_failure when the gateway
// answered with something we could not interpret.
var ErrMalformedResponse = errors.New("malformed gateway response")

// ErrTimeout is wrapped inside a network_failure when the bounded
// verification deadline passed; the capture outcome is unknown.
var ErrTimeout = errors.New("gateway verification timed out")
