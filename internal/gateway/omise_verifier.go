package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/omise/omise-go"
	"github.com/omise/omise-go/operations"

	"github.com/imrishuroy/go-paidbooking-reconciler/internal/exceptions"
)

// OmiseVerifier verifies a charge id returned by an Omise redirect. The
// charge is re-fetched from Omise rather than trusting the redirect.
type OmiseVerifier struct {
	client  *omise.Client
	timeout time.Duration
	nowFunc func() time.Time
}

func NewOmiseClient(publicKey, secretKey string) (*omise.Client, error) {
	c, err := omise.NewClient(publicKey, secretKey)
	if err != nil {
		return nil, fmt.Errorf("omise client: %w", err)
	}
	return c, nil
}

func NewOmiseVerifier(client *omise.Client, timeout time.Duration) *OmiseVerifier {
	return &OmiseVerifier{client: client, timeout: timeout, nowFunc: time.Now}
}

func (v *OmiseVerifier) Verify(ctx context.Context, chargeID string) (*VerifiedTransaction, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	type result struct {
		charge *omise.Charge
		err    error
	}
	done := make(chan result, 1)
	go func() {
		ch := &omise.Charge{}
		err := v.client.Do(ch, &operations.RetrieveCharge{ChargeID: chargeID})
		done <- result{charge: ch, err: err}
	}()

	var r result
	select {
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, exceptions.Wrap(ErrTimeout, exceptions.KindNetworkFailure, "verification outcome unknown").WithPayment(chargeID)
		}
		return nil, exceptions.Wrap(ctx.Err(), exceptions.KindNetworkFailure, "verification cancelled").WithPayment(chargeID)
	case r = <-done:
	}

	if r.err != nil {
		var oerr *omise.Error
		if errors.As(r.err, &oerr) && oerr.StatusCode == 404 {
			return nil, exceptions.New(exceptions.KindGatewayRejected, "charge not found").WithPayment(chargeID)
		}
		return nil, exceptions.Wrap(r.err, exceptions.KindNetworkFailure, "retrieve charge failed").WithPayment(chargeID)
	}
	return chargeToTransaction(chargeID, r.charge, v.nowFunc())
}

func chargeToTransaction(chargeID string, ch *omise.Charge, now time.Time) (*VerifiedTransaction, error) {
	if ch == nil || ch.ID == "" {
		return nil, exceptions.Wrap(fmt.Errorf("%w: empty charge", ErrMalformedResponse), exceptions.KindNetworkFailure, "decode charge").WithPayment(chargeID)
	}
	if string(ch.Status) != "successful" || !ch.Paid {
		msg := string(ch.Status)
		if ch.FailureMessage != nil && *ch.FailureMessage != "" {
			msg = *ch.FailureMessage
		}
		return nil, exceptions.New(exceptions.KindGatewayRejected, msg).WithPayment(chargeID)
	}

	txnID := ch.Transaction
	if txnID == "" {
		txnID = ch.ID
	}
	return &VerifiedTransaction{
		TransactionID: txnID,
		PaymentID:     chargeID,
		Amount:        fromMinorUnits(ch.Amount, ch.Currency),
		Currency:      ch.Currency,
		VerifiedAt:    now.UTC(),
	}, nil
}

// zeroDecimalCurrencies are charged by Omise in whole units.
var zeroDecimalCurrencies = map[string]bool{
	"JPY": true,
	"KRW": true,
	"VND": true,
}

// fromMinorUnits converts an Omise amount (smallest currency unit) to major units.
func fromMinorUnits(amount int64, currency string) float64 {
	if zeroDecimalCurrencies[strings.ToUpper(currency)] {
		return float64(amount)
	}
	return float64(amount) / 100
}
