package sentinel

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/imrishuroy/go-paidbooking-reconciler/internal/bookings"
	"github.com/imrishuroy/go-paidbooking-reconciler/internal/exceptions"
	"github.com/imrishuroy/go-paidbooking-reconciler/internal/logging"
)

// MetricDuplicatePaymentIdentifiers is the CloudWatch metric name.
const MetricDuplicatePaymentIdentifiers = "DuplicatePaymentIdentifiers"

// Counter is satisfied by aws.MetricsEmitter.
type Counter interface {
	Count(ctx context.Context, name string, value float64, dimensions map[string]string) error
}

type Service struct {
	store   bookings.Store
	metrics Counter
	logger  *zap.Logger
	nowFunc func() time.Time
}

// NewService wires the admin report. metrics may be nil.
func NewService(store bookings.Store, metrics Counter, logger *zap.Logger) *Service {
	return &Service{store: store, metrics: metrics, logger: logger, nowFunc: time.Now}
}

// Report scans the full booking collection.
func (s *Service) Report(ctx context.Context) (*Report, error) {
	rows, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, exceptions.Wrap(err, exceptions.KindNetworkFailure, "bookings could not be listed")
	}
	report := BuildReport(rows, s.nowFunc())

	if n := len(report.Duplicates); n > 0 {
		s.logger.Warn("sentinel.Report duplicates found",
			logging.RequestID(ctx),
			zap.String(logging.FailureKey, string(exceptions.KindDuplicateDetected)),
			zap.Strings("payment_ids", report.Duplicates),
		)
	}
	if s.metrics != nil {
		err := s.metrics.Count(ctx, MetricDuplicatePaymentIdentifiers, float64(len(report.Duplicates)),
			map[string]string{"Source": "admin_report"})
		if err != nil {
			s.logger.Warn("sentinel.Report metric not emitted", zap.Error(err))
		}
	}
	return &report, nil
}

// Remediate deletes one booking row. It refuses unless the row's payment
// identifier is currently duplicated, so the last row for a payment can
// never be removed here.
func (s *Service) Remediate(ctx context.Context, reference string) error {
	row, err := s.store.FindByReference(ctx, reference)
	if err != nil {
		return exceptions.Wrap(err, exceptions.KindNetworkFailure, "booking could not be read")
	}
	if row == nil {
		return exceptions.New(exceptions.KindNotFound, "")
	}

	siblings, err := s.store.ListByPaymentID(ctx, row.PaymentID)
	if err != nil {
		return exceptions.Wrap(err, exceptions.KindNetworkFailure, "bookings could not be listed").WithPayment(row.PaymentID)
	}
	others := 0
	for _, b := range siblings {
		if b.BookingReference != reference {
			others++
		}
	}
	if others == 0 {
		return exceptions.New(exceptions.KindInvalidRequest, "booking is the only row for its payment and cannot be deleted").
			WithPayment(row.PaymentID)
	}

	if err := s.store.Delete(ctx, reference); err != nil {
		if errors.Is(err, bookings.ErrNotFound) {
			return exceptions.New(exceptions.KindNotFound, "")
		}
		return exceptions.Wrap(err, exceptions.KindNetworkFailure, "booking could not be deleted").WithPayment(row.PaymentID)
	}

	s.logger.Info("sentinel.Remediate duplicate row deleted",
		logging.RequestID(ctx),
		zap.String(logging.PaymentIDKey, row.PaymentID),
		zap.String(logging.TransactionIDKey, row.TransactionID),
		zap.String(logging.BookingReferenceKey, reference),
		zap.Int("remaining", others),
	)
	return nil
}
