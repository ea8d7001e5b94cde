package exceptions

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies every failure that can leave the reconciliation subsystem.
type Kind string

const (
	KindSessionExpired    Kind = "session_expired"
	KindAlreadyProcessed  Kind = "already_processed"
	KindGatewayRejected   Kind = "gateway_rejected"
	KindNetworkFailure    Kind = "network_failure"
	KindAmountMismatch    Kind = "amount_mismatch"
	KindDuplicateDetected Kind = "duplicate_detected"
	KindInvalidRequest    Kind = "invalid_request"
	KindNotFound          Kind = "not_found"
)

// Error is the only error type handed to the HTTP layer.
// TransactionID is set as soon as the gateway has confirmed a capture.
type Error struct {
	Kind          Kind
	PaymentID     string
	TransactionID string
	Message       string
	Err           error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.PaymentID != "" {
		fmt.Fprintf(&b, " payment_id=%s", e.PaymentID)
	}
	if e.TransactionID != "" {
		fmt.Fprintf(&b, " transaction_id=%s", e.TransactionID)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// ClientMessage is safe to render to an end user. It never contains the
// wrapped cause, but always contains the transaction id when one exists.
func (e *Error) ClientMessage() string {
	var msg string
	switch e.Kind {
	case KindSessionExpired:
		msg = "Your booking session has expired or was started on another device. Please start the booking again."
	case KindAlreadyProcessed:
		msg = "This payment is still being processed. Please wait a moment and check your booking again."
	case KindGatewayRejected:
		msg = "The payment was not completed."
		if e.Message != "" {
			msg = fmt.Sprintf("The payment was not completed: %s.", e.Message)
		}
	case KindNetworkFailure:
		msg = "We could not confirm the outcome of your payment."
		if e.TransactionID == "" && e.PaymentID != "" {
			msg += fmt.Sprintf(" Please contact support with payment reference %s.", e.PaymentID)
		}
	case KindAmountMismatch:
		msg = "The paid amount does not match the booking fee. Your payment has been flagged for manual review."
	case KindDuplicateDetected:
		msg = "More than one booking shares this payment."
	case KindInvalidRequest:
		msg = "The request is invalid."
		if e.Message != "" {
			msg = e.Message
		}
	case KindNotFound:
		msg = "The requested booking was not found."
	default:
		msg = "Something went wrong."
	}
	if e.TransactionID != "" {
		msg += fmt.Sprintf(" Transaction ID: %s. Please keep it and contact support if your booking does not appear.", e.TransactionID)
	}
	return msg
}

// HTTPStatus maps a kind to the status code used by the handlers.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindSessionExpired:
		return http.StatusGone
	case KindAlreadyProcessed:
		return http.StatusAccepted
	case KindGatewayRejected:
		return http.StatusPaymentRequired
	case KindNetworkFailure:
		return http.StatusBadGateway
	case KindAmountMismatch, KindDuplicateDetected:
		return http.StatusConflict
	case KindInvalidRequest:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the user may be offered a retry affordance.
// Only a failed save after a confirmed capture can be resumed.
func (e *Error) Retryable() bool {
	return e.Kind == KindNetworkFailure && e.TransactionID != ""
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Wrap(err error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// WithPayment returns a copy annotated with the payment identifier.
func (e *Error) WithPayment(paymentID string) *Error {
	cp := *e
	cp.PaymentID = paymentID
	return &cp
}

// WithTransaction returns a copy annotated with the gateway transaction id.
func (e *Error) WithTransaction(transactionID string) *Error {
	cp := *e
	cp.TransactionID = transactionID
	return &cp
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// TransactionIDOf returns the transaction id carried by err, if any.
func TransactionIDOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.TransactionID
	}
	return ""
}

// As converts any error into an *Error, classifying unknown errors as
// network failures so no raw transport error reaches the user.
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, KindNetworkFailure, "")
}
