package main

import (
	"context"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-paidbooking-reconciler/internal/aws"
	"github.com/imrishuroy/go-paidbooking-reconciler/internal/bookings"
	"github.com/imrishuroy/go-paidbooking-reconciler/internal/exceptions"
	"github.com/imrishuroy/go-paidbooking-reconciler/internal/logging"
	"github.com/imrishuroy/go-paidbooking-reconciler/internal/sentinel"
)

// Processor handles booking.confirmed events: it re-checks the payment for
// duplicate rows and archives the receipt.
type Processor struct {
	bookings BookingReader
	metrics  sentinel.Counter
	archiver ReceiptArchiver
	logger   *zap.Logger
}

// NewProcessor creates a worker processor. metrics and archiver may be nil.
func NewProcessor(store BookingReader, metrics sentinel.Counter, archiver ReceiptArchiver, logger *zap.Logger) *Processor {
	return &Processor{
		bookings: store,
		metrics:  metrics,
		archiver: archiver,
		logger:   logger,
	}
}

// Handle processes an SQS batch and reports failed messages individually so
// Lambda only redelivers those.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, rec := range ev.Records {
		if t := eventType(rec); t != "" && t != bookings.EventBookingConfirmed {
			p.logger.Info("worker.Handle ignoring event", zap.String("event_type", t), zap.String("message_id", rec.MessageId))
			continue
		}
		if err := p.processMessage(ctx, rec.Body); err != nil {
			p.logger.Error("worker.Handle message failed", zap.String("message_id", rec.MessageId), zap.Error(err))
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: rec.MessageId})
		}
	}
	return resp, nil
}

// eventType reads the routing attribute set by aws.Publisher, if present.
func eventType(rec events.SQSMessage) string {
	attr, ok := rec.MessageAttributes[aws.AttrEventType]
	if !ok || attr.StringValue == nil {
		return ""
	}
	return *attr.StringValue
}

func (p *Processor) processMessage(ctx context.Context, body string) error {
	ev, err := bookings.UnmarshalConfirmedEvent(body)
	if err != nil {
		return fmt.Errorf("invalid message body: %w", err)
	}
	if ev.EventType != bookings.EventBookingConfirmed {
		p.logger.Info("worker.processMessage ignoring event", zap.String("event_type", ev.EventType))
		return nil
	}

	log := p.logger.With(
		zap.String(logging.PaymentIDKey, ev.PaymentID),
		zap.String(logging.TransactionIDKey, ev.TransactionID),
		zap.String(logging.BookingReferenceKey, ev.BookingReference),
	)

	rows, err := p.bookings.ListByPaymentID(ctx, ev.PaymentID)
	if err != nil {
		return fmt.Errorf("list bookings for payment %s: %w", ev.PaymentID, err)
	}

	if len(rows) > 1 {
		refs := make([]string, len(rows))
		for i, r := range rows {
			refs[i] = r.BookingReference
		}
		log.Warn("worker.processMessage duplicate bookings for payment",
			zap.String(logging.FailureKey, string(exceptions.KindDuplicateDetected)),
			zap.Strings("booking_references", refs),
		)
		if p.metrics != nil {
			if err := p.metrics.Count(ctx, sentinel.MetricDuplicatePaymentIdentifiers, 1, map[string]string{"Source": "worker"}); err != nil {
				log.Warn("worker.processMessage metric not emitted", zap.Error(err))
			}
		}
	}

	var booking *bookings.PaidBooking
	for i := range rows {
		if rows[i].BookingReference == ev.BookingReference {
			booking = &rows[i]
			break
		}
	}
	if booking == nil {
		// removed by admin remediation after the event was sent
		log.Info("worker.processMessage booking no longer exists")
		return nil
	}

	if p.archiver == nil {
		return nil
	}
	name, err := p.archiver.Archive(ctx, *booking)
	if err != nil {
		return fmt.Errorf("archive receipt: %w", err)
	}
	log.Info("worker.processMessage receipt archived", zap.String("object", name))
	return nil
}
