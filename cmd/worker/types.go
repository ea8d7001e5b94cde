package main

import (
	"context"

	"github.com/imrishuroy/go-paidbooking-reconciler/internal/bookings"
)

// BookingReader is the part of bookings.Store the worker reads.
type BookingReader interface {
	ListByPaymentID(ctx context.Context, paymentID string) ([]bookings.PaidBooking, error)
}

// ReceiptArchiver is satisfied by *receipt.Archiver.
type ReceiptArchiver interface {
	Archive(ctx context.Context, b bookings.PaidBooking) (string, error)
}
