package bookings

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/imrishuroy/go-paidbooking-reconciler/internal/aws"
	"github.com/imrishuroy/go-paidbooking-reconciler/internal/exceptions"
	"github.com/imrishuroy/go-paidbooking-reconciler/internal/gateway"
	"github.com/imrishuroy/go-paidbooking-reconciler/internal/intent"
	"github.com/imrishuroy/go-paidbooking-reconciler/internal/logging"
)

// IntentClearer is the part of the pending intent store the writer needs.
type IntentClearer interface {
	Clear(ctx context.Context, sessionID string) error
}

// EventPublisher is satisfied by aws.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, ev aws.Event) error
}

// Writer turns a verified transaction plus the pending intent into exactly
// one booking per payment identifier.
type Writer struct {
	store   Store
	intents IntentClearer
	events  EventPublisher
	logger  *zap.Logger
	nowFunc func() time.Time
}

// NewWriter wires a Writer. events may be nil.
func NewWriter(store Store, intents IntentClearer, events EventPublisher, logger *zap.Logger) *Writer {
	return &Writer{
		store:   store,
		intents: intents,
		events:  events,
		logger:  logger,
		nowFunc: time.Now,
	}
}

// Persist is idempotent per paymentID. It returns the stored booking and
// whether this call created it. Any failure is a network_failure carrying
// the transaction id, and leaves the pending intent in place.
func (w *Writer) Persist(ctx context.Context, sessionID, paymentID string, txn gateway.VerifiedTransaction, in intent.PendingIntent) (*PaidBooking, bool, error) {
	log := w.logger.With(
		logging.RequestID(ctx),
		zap.String(logging.PaymentIDKey, paymentID),
		zap.String(logging.TransactionIDKey, txn.TransactionID),
	)

	existing, err := w.store.FindByPaymentID(ctx, paymentID)
	if err != nil {
		log.Error("writer.Persist booking lookup failed", zap.Error(err))
		return nil, false, w.persistFailure(err, paymentID, txn.TransactionID)
	}
	if existing != nil {
		log.Info("writer.Persist booking already exists for payment", zap.String(logging.BookingReferenceKey, existing.BookingReference))
		w.clearIntent(ctx, log, sessionID)
		return existing, false, nil
	}

	now := w.nowFunc().UTC()
	candidate := newBooking(NewReference(now), paymentID, txn, in, now)

	stored, created, err := w.store.InsertIfAbsent(ctx, candidate)
	if err != nil {
		log.Error("writer.Persist booking insert failed", zap.Error(err))
		return nil, false, w.persistFailure(err, paymentID, txn.TransactionID)
	}

	log = log.With(zap.String(logging.BookingReferenceKey, stored.BookingReference))
	if created {
		log.Info("writer.Persist booking persisted")
	} else {
		log.Info("writer.Persist concurrent writer won; returning stored booking")
	}
	w.clearIntent(ctx, log, sessionID)

	if created && w.events != nil {
		w.publish(ctx, log, *stored)
	}
	return stored, created, nil
}

func (w *Writer) persistFailure(err error, paymentID, transactionID string) error {
	return exceptions.Wrap(err, exceptions.KindNetworkFailure, "booking could not be saved").
		WithPayment(paymentID).
		WithTransaction(transactionID)
}

func (w *Writer) clearIntent(ctx context.Context, log *zap.Logger, sessionID string) {
	if err := w.intents.Clear(ctx, sessionID); err != nil {
		log.Warn("writer.clearIntent pending intent not cleared", zap.Error(err))
	}
}

// publish is best-effort; the booking is already durable.
func (w *Writer) publish(ctx context.Context, log *zap.Logger, b PaidBooking) {
	if err := w.events.Publish(ctx, NewConfirmedEvent(b, w.nowFunc())); err != nil {
		log.Warn("writer.publish booking event not published", zap.Error(err))
	}
}

func newBooking(reference, paymentID string, txn gateway.VerifiedTransaction, in intent.PendingIntent, now time.Time) PaidBooking {
	return PaidBooking{
		BookingReference: reference,
		PaymentID:        paymentID,
		TransactionID:    txn.TransactionID,
		Amount:           txn.Amount,
		Currency:         txn.Currency,
		Status:           StatusConfirmed,
		Fee:              in.Fee,
		DoctorID:         in.DoctorID,
		DoctorName:       in.DoctorName,
		DoctorSpecialty:  in.DoctorSpecialty,
		DoctorChamber:    in.DoctorChamber,
		ScheduleDate:     in.ScheduleDate,
		ScheduleSlot:     in.ScheduleSlot,
		PatientName:      in.PatientName,
		PatientAge:       in.PatientAge,
		PatientGender:    in.PatientGender,
		PatientPhone:     in.PatientPhone,
		Division:         in.Division,
		District:         in.District,
		Address:          in.Address,
		Problem:          in.Problem,
		VerifiedAt:       txn.VerifiedAt,
		CreatedAt:        now,
	}
}
