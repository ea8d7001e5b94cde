package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/omise/omise-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-paidbooking-reconciler/internal/exceptions"
)

func newGateway(t *testing.T, handler http.HandlerFunc) (*HTTPVerifier, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return NewHTTPVerifier(srv.URL, "app-key", "token", 2*time.Second), &calls
}

func TestVerify_Success(t *testing.T) {
	v, calls := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, executePath, r.URL.Path)
		assert.Equal(t, "app-key", r.Header.Get("X-App-Key"))
		var req executeRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "P1", req.PaymentID)

		_ = json.NewEncoder(w).Encode(executeResponse{
			StatusCode:        "0000",
			StatusMessage:     "Successful",
			PaymentID:         "P1",
			TrxID:             "T1",
			TransactionStatus: "Completed",
			Amount:            "100.00",
			Currency:          "BDT",
		})
	})

	txn, err := v.Verify(context.Background(), "P1")
	require.NoError(t, err)
	assert.Equal(t, "T1", txn.TransactionID)
	assert.Equal(t, "P1", txn.PaymentID)
	assert.Equal(t, 100.0, txn.Amount)
	assert.Equal(t, int32(1), calls.Load(), "exactly one exchange per verify")
}

func TestVerify_Rejected(t *testing.T) {
	v, _ := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(executeResponse{ErrorCode: "2023", ErrorMessage: "Insufficient Balance"})
	})

	_, err := v.Verify(context.Background(), "P1")
	require.Error(t, err)
	assert.Equal(t, exceptions.KindGatewayRejected, exceptions.KindOf(err))
}

func TestVerify_NotCompletedIsRejected(t *testing.T) {
	v, _ := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(executeResponse{StatusCode: "0000", TransactionStatus: "Initiated", PaymentID: "P1"})
	})

	_, err := v.Verify(context.Background(), "P1")
	assert.Equal(t, exceptions.KindGatewayRejected, exceptions.KindOf(err))
}

func TestVerify_ServerErrorIsNetworkFailure(t *testing.T) {
	v, _ := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := v.Verify(context.Background(), "P1")
	assert.Equal(t, exceptions.KindNetworkFailure, exceptions.KindOf(err))
	assert.False(t, errors.Is(err, ErrMalformedResponse))
}

func TestVerify_MalformedIsNetworkFailure(t *testing.T) {
	v, _ := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>gateway maintenance</html>"))
	})

	_, err := v.Verify(context.Background(), "P1")
	assert.Equal(t, exceptions.KindNetworkFailure, exceptions.KindOf(err))
	assert.True(t, errors.Is(err, ErrMalformedResponse), "malformed responses stay distinguishable")
}

func TestVerify_TimeoutReportsUnknownOutcome(t *testing.T) {
	release := make(chan struct{})
	v, calls := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)
	v.timeout = 50 * time.Millisecond

	_, err := v.Verify(context.Background(), "P1")
	require.Error(t, err)
	assert.Equal(t, exceptions.KindNetworkFailure, exceptions.KindOf(err))
	assert.True(t, errors.Is(err, ErrTimeout))

	var appErr *exceptions.Error
	require.ErrorAs(t, err, &appErr)
	assert.Contains(t, appErr.ClientMessage(), "P1")
	assert.Equal(t, int32(1), calls.Load(), "timeouts are never retried with the same token")
}

func TestChargeToTransaction(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

	ch := &omise.Charge{Status: "successful", Paid: true, Amount: 10000, Currency: "thb", Transaction: "trxn_1"}
	ch.ID = "chrg_1"
	txn, err := chargeToTransaction("chrg_1", ch, now)
	require.NoError(t, err)
	assert.Equal(t, "trxn_1", txn.TransactionID)
	assert.Equal(t, 100.0, txn.Amount)

	failed := &omise.Charge{Status: "failed"}
	failed.ID = "chrg_2"
	_, err = chargeToTransaction("chrg_2", failed, now)
	assert.Equal(t, exceptions.KindGatewayRejected, exceptions.KindOf(err))

	_, err = chargeToTransaction("chrg_3", &omise.Charge{}, now)
	assert.True(t, errors.Is(err, ErrMalformedResponse))

	yen := &omise.Charge{Status: "successful", Paid: true, Amount: 5000, Currency: "jpy", Transaction: "trxn_4"}
	yen.ID = "chrg_4"
	txn, err = chargeToTransaction("chrg_4", yen, now)
	require.NoError(t, err)
	assert.Equal(t, 5000.0, txn.Amount, "zero-decimal currencies are not divided")
}
