// Package reconcile drives a gateway callback to exactly one of three
// terminal outcomes: confirmed, failed or in progress.
package reconcile

import (
	"context"
	"errors"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/imrishuroy/go-paidbooking-reconciler/internal/exceptions"
	"github.com/imrishuroy/go-paidbooking-reconciler/internal/gateway"
	"github.com/imrishuroy/go-paidbooking-reconciler/internal/guard"
	"github.com/imrishuroy/go-paidbooking-reconciler/internal/intent"
	"github.com/imrishuroy/go-paidbooking-reconciler/internal/logging"
	"github.com/imrishuroy/go-paidbooking-reconciler/internal/session"
)

// amountTolerance is one minor currency unit.
const amountTolerance = 0.01

type Reconciler struct {
	intents  *intent.Store
	guard    *guard.Store
	verifier gateway.Verifier
	writer   Persister
	bookings BookingFinder
	verified verifiedStash
	logger   *zap.Logger
}

func New(
	sessions session.Store,
	ttl time.Duration,
	intents *intent.Store,
	guardStore *guard.Store,
	verifier gateway.Verifier,
	writer Persister,
	finder BookingFinder,
	logger *zap.Logger,
) *Reconciler {
	return &Reconciler{
		intents:  intents,
		guard:    guardStore,
		verifier: verifier,
		writer:   writer,
		bookings: finder,
		verified: verifiedStash{sessions: sessions, ttl: ttl},
		logger:   logger,
	}
}

// HandleCallback processes one gateway redirect. The payment identifier
// doubles as the single-use authorization token for verification.
func (r *Reconciler) HandleCallback(ctx context.Context, sessionID, paymentID string, status CallbackStatus) Outcome {
	log := r.logger.With(
		logging.RequestID(ctx),
		zap.String(logging.SessionIDKey, sessionID),
		zap.String(logging.PaymentIDKey, paymentID),
	)

	if status != StatusSuccess {
		log.Info("reconciler.HandleCallback payment not successful", zap.String("status", string(status)))
		msg := "payment failed"
		if status == StatusCancel {
			msg = "payment was cancelled"
		}
		return failed(exceptions.New(exceptions.KindGatewayRejected, msg).WithPayment(paymentID))
	}

	decision, err := r.guard.Begin(ctx, sessionID, paymentID)
	if err != nil {
		log.Error("reconciler.HandleCallback guard unavailable", zap.Error(err))
		return failed(exceptions.Wrap(err, exceptions.KindNetworkFailure, "").WithPayment(paymentID))
	}
	if !decision.Proceed {
		log.Info("reconciler.HandleCallback guard skip", zap.String(logging.GuardStateKey, string(decision.State)))
		return r.skipped(ctx, log, paymentID, decision.State)
	}

	in, err := r.intents.Load(ctx, sessionID)
	if err != nil {
		log.Error("reconciler.HandleCallback intent unavailable", zap.Error(err))
		return failed(exceptions.Wrap(err, exceptions.KindNetworkFailure, "").WithPayment(paymentID))
	}
	if in == nil {
		log.Warn("reconciler.HandleCallback no pending intent", zap.String(logging.FailureKey, string(exceptions.KindSessionExpired)))
		return failed(exceptions.New(exceptions.KindSessionExpired, "").WithPayment(paymentID))
	}

	// The guard is never reset; every failure below leaves it processing.
	txn, err := r.verifier.Verify(ctx, paymentID)
	if err != nil {
		r.logVerifyFailure(log, err)
		return failed(exceptions.As(err).WithPayment(paymentID))
	}
	log = log.With(zap.String(logging.TransactionIDKey, txn.TransactionID))

	if math.Abs(txn.Amount-in.Fee) >= amountTolerance {
		log.Error("reconciler.HandleCallback amount mismatch",
			zap.String(logging.FailureKey, string(exceptions.KindAmountMismatch)),
			zap.Float64("verified_amount", txn.Amount),
			zap.Float64("quoted_fee", in.Fee),
		)
		return failed(exceptions.New(exceptions.KindAmountMismatch, "").WithPayment(paymentID).WithTransaction(txn.TransactionID))
	}

	return r.persist(ctx, log, sessionID, paymentID, *txn, *in)
}

// Retry re-runs persistence for a payment whose verification already
// succeeded in this session. The gateway is never called.
func (r *Reconciler) Retry(ctx context.Context, sessionID, paymentID string) Outcome {
	log := r.logger.With(
		logging.RequestID(ctx),
		zap.String(logging.SessionIDKey, sessionID),
		zap.String(logging.PaymentIDKey, paymentID),
	)

	txn, err := r.verified.load(ctx, sessionID, paymentID)
	if err != nil {
		log.Error("reconciler.Retry verified transaction unavailable", zap.Error(err))
		return failed(exceptions.Wrap(err, exceptions.KindNetworkFailure, "").WithPayment(paymentID))
	}
	if txn == nil {
		existing, err := r.bookings.FindByPaymentID(ctx, paymentID)
		if err != nil {
			return failed(exceptions.Wrap(err, exceptions.KindNetworkFailure, "").WithPayment(paymentID))
		}
		if existing != nil {
			return confirmed(existing, false)
		}
		return failed(exceptions.New(exceptions.KindInvalidRequest, "there is no failed booking to retry for this payment").WithPayment(paymentID))
	}
	log = log.With(zap.String(logging.TransactionIDKey, txn.TransactionID))

	in, err := r.intents.Load(ctx, sessionID)
	if err != nil {
		return failed(exceptions.Wrap(err, exceptions.KindNetworkFailure, "").WithPayment(paymentID).WithTransaction(txn.TransactionID))
	}
	if in == nil {
		log.Warn("reconciler.Retry no pending intent", zap.String(logging.FailureKey, string(exceptions.KindSessionExpired)))
		return failed(exceptions.New(exceptions.KindSessionExpired, "").WithPayment(paymentID).WithTransaction(txn.TransactionID))
	}

	return r.persist(ctx, log, sessionID, paymentID, *txn, *in)
}

func (r *Reconciler) persist(ctx context.Context, log *zap.Logger, sessionID, paymentID string, txn gateway.VerifiedTransaction, in intent.PendingIntent) Outcome {
	b, created, err := r.writer.Persist(ctx, sessionID, paymentID, txn, in)
	if err != nil {
		log.Error("reconciler.persist booking not saved", zap.Error(err))
		if serr := r.verified.save(ctx, sessionID, paymentID, txn); serr != nil {
			log.Error("reconciler.persist verified transaction not stashed", zap.Error(serr))
		}
		return failed(exceptions.As(err).WithPayment(paymentID).WithTransaction(txn.TransactionID))
	}

	if err := r.guard.Complete(ctx, sessionID, paymentID); err != nil {
		log.Warn("reconciler.persist guard not completed", zap.Error(err))
	}
	if err := r.verified.drop(ctx, sessionID, paymentID); err != nil {
		log.Warn("reconciler.persist verified transaction not dropped", zap.Error(err))
	}
	log.Info("reconciler.persist booking confirmed",
		zap.String(logging.BookingReferenceKey, b.BookingReference),
		zap.Bool("created", created),
	)
	return confirmed(b, created)
}

// skipped never claims success or failure for a payment another runner
// owns, unless a stored booking already backs a confirmation.
func (r *Reconciler) skipped(ctx context.Context, log *zap.Logger, paymentID string, state guard.State) Outcome {
	if state != guard.StateCompleted {
		return inProgress(paymentID)
	}
	b, err := r.bookings.FindByPaymentID(ctx, paymentID)
	if err != nil {
		log.Warn("reconciler.skipped booking lookup failed", zap.Error(err))
		return inProgress(paymentID)
	}
	if b == nil {
		return inProgress(paymentID)
	}
	return confirmed(b, false)
}

func (r *Reconciler) logVerifyFailure(log *zap.Logger, err error) {
	switch {
	case errors.Is(err, gateway.ErrMalformedResponse):
		log.Error("reconciler.HandleCallback verification failed", zap.String(logging.FailureKey, "malformed_response"), zap.Error(err))
	case errors.Is(err, gateway.ErrTimeout):
		log.Error("reconciler.HandleCallback verification failed", zap.String(logging.FailureKey, "timeout"), zap.Error(err))
	case exceptions.KindOf(err) == exceptions.KindGatewayRejected:
		log.Info("reconciler.HandleCallback payment rejected", zap.String(logging.FailureKey, string(exceptions.KindGatewayRejected)), zap.Error(err))
	default:
		log.Warn("reconciler.HandleCallback verification failed", zap.String(logging.FailureKey, string(exceptions.KindNetworkFailure)), zap.Error(err))
	}
}
