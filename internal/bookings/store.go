package bookings

import (
	"context"
	"fmt"
	"sort"
)

// Store is the durable booking collection. Implementations must guarantee
// that InsertIfAbsent never leaves two rows for one payment_id when their
// uniqueness mechanism is in place.
type Store interface {
	// FindByPaymentID returns (nil, nil) when no row exists. With drifted data
	// it returns the earliest row.
	FindByPaymentID(ctx context.Context, paymentID string) (*PaidBooking, error)
	// InsertIfAbsent writes b unless a row for b.PaymentID exists, and returns
	// the row that is stored afterwards. created reports whether b was written.
	InsertIfAbsent(ctx context.Context, b PaidBooking) (stored *PaidBooking, created bool, err error)
	// FindByReference returns (nil, nil) when no row exists.
	FindByReference(ctx context.Context, reference string) (*PaidBooking, error)
	ListByPaymentID(ctx context.Context, paymentID string) ([]PaidBooking, error)
	ListAll(ctx context.Context) ([]PaidBooking, error)
	Delete(ctx context.Context, reference string) error
}

// sortByCreation orders rows oldest first, breaking ties on reference.
func sortByCreation(rows []PaidBooking) {
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].CreatedAt.Equal(rows[j].CreatedAt) {
			return rows[i].BookingReference < rows[j].BookingReference
		}
		return rows[i].CreatedAt.Before(rows[j].CreatedAt)
	})
}

func errReferenceCollision(reference string) error {
	return fmt.Errorf("booking reference %s already used by another payment", reference)
}
