package reconcile

import (
	"context"

	"github.com/imrishuroy/go-paidbooking-reconciler/internal/bookings"
	"github.com/imrishuroy/go-paidbooking-reconciler/internal/exceptions"
	"github.com/imrishuroy/go-paidbooking-reconciler/internal/gateway"
	"github.com/imrishuroy/go-paidbooking-reconciler/internal/intent"
)

// CallbackStatus is the gateway's redirect status.
type CallbackStatus string

const (
	StatusSuccess CallbackStatus = "success"
	StatusFailure CallbackStatus = "failure"
	StatusCancel  CallbackStatus = "cancel"
)

// Result is one of the three terminal screens.
type Result string

const (
	ResultConfirmed  Result = "confirmed"
	ResultFailed     Result = "failed"
	ResultInProgress Result = "in_progress"
)

// Outcome carries a booking only when Result is confirmed. A confirmed
// outcome is always backed by a stored row.
type Outcome struct {
	Result  Result
	Booking *bookings.PaidBooking
	// Created is false when the booking already existed.
	Created bool
	Err     *exceptions.Error
}

func confirmed(b *bookings.PaidBooking, created bool) Outcome {
	return Outcome{Result: ResultConfirmed, Booking: b, Created: created}
}

func failed(err error) Outcome {
	return Outcome{Result: ResultFailed, Err: exceptions.As(err)}
}

func inProgress(paymentID string) Outcome {
	return Outcome{
		Result: ResultInProgress,
		Err:    exceptions.New(exceptions.KindAlreadyProcessed, "").WithPayment(paymentID),
	}
}

// Persister is satisfied by *bookings.Writer.
type Persister interface {
	Persist(ctx context.Context, sessionID, paymentID string, txn gateway.VerifiedTransaction, in intent.PendingIntent) (*bookings.PaidBooking, bool, error)
}

// BookingFinder is the read side of bookings.Store.
type BookingFinder interface {
	FindByPaymentID(ctx context.Context, paymentID string) (*bookings.PaidBooking, error)
}
