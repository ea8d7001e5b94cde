package gateway

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/imrishuroy/go-paidbooking-reconciler/internal/exceptions"
)

const (
	executePath       = "/checkout/execute"
	statusCodeSuccess = "0000"
	txnCompleted      = "Completed"
	maxResponseBytes  = 1 << 20
)

type executeRequest struct {
	PaymentID string `json:"paymentID"`
}

type executeResponse struct {
	StatusCode        string `json:"statusCode"`
	StatusMessage     string `json:"statusMessage"`
	PaymentID         string `json:"paymentID"`
	TrxID             string `json:"trxID"`
	TransactionStatus string `json:"transactionStatus"`
	Amount            string `json:"amount"`
	Currency          string `json:"currency"`
	ErrorCode         string `json:"errorCode"`
	ErrorMessage      string `json:"errorMessage"`
}

// HTTPVerifier talks to a tokenized-checkout gateway whose "execute" call
// captures the payment identified by the callback's paymentID.
type HTTPVerifier struct {
	baseURL  string
	appKey   string
	apiToken string
	timeout  time.Duration
	client   *http.Client
	nowFunc  func() time.Time
}

// NewHTTPVerifier returns a verifier bounded by timeout per call.
func NewHTTPVerifier(baseURL, appKey, apiToken string, timeout time.Duration) *HTTPVerifier {
	return &HTTPVerifier{
		baseURL:  strings.TrimRight(baseURL, "/"),
		appKey:   appKey,
		apiToken: apiToken,
		timeout:  timeout,
		client:   &http.Client{},
		nowFunc:  time.Now,
	}
}

func (v *HTTPVerifier) Verify(ctx context.Context, authorizationToken string) (*VerifiedTransaction, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	body, err := json.Marshal(executeRequest{PaymentID: authorizationToken})
	if err != nil {
		return nil, exceptions.Wrap(err, exceptions.KindNetworkFailure, "encode execute request").WithPayment(authorizationToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.baseURL+executePath, bytes.NewReader(body))
	if err != nil {
		return nil, exceptions.Wrap(err, exceptions.KindNetworkFailure, "build execute request").WithPayment(authorizationToken)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", v.apiToken)
	req.Header.Set("X-App-Key", v.appKey)

	res, err := v.client.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, exceptions.Wrap(ErrTimeout, exceptions.KindNetworkFailure, "verification outcome unknown").WithPayment(authorizationToken)
		}
		return nil, exceptions.Wrap(err, exceptions.KindNetworkFailure, "execute request failed").WithPayment(authorizationToken)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		return nil, exceptions.Wrap(err, exceptions.KindNetworkFailure, "read execute response").WithPayment(authorizationToken)
	}

	if res.StatusCode >= http.StatusInternalServerError || res.StatusCode == http.StatusRequestTimeout || res.StatusCode == http.StatusTooManyRequests {
		return nil, exceptions.Wrap(fmt.Errorf("gateway status %d", res.StatusCode), exceptions.KindNetworkFailure, "gateway unavailable").WithPayment(authorizationToken)
	}

	var out executeResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, exceptions.Wrap(fmt.Errorf("%w: %v", ErrMalformedResponse, err), exceptions.KindNetworkFailure, "decode execute response").WithPayment(authorizationToken)
	}

	if out.ErrorCode != "" {
		return nil, exceptions.New(exceptions.KindGatewayRejected, out.ErrorMessage).WithPayment(authorizationToken)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return nil, exceptions.Wrap(fmt.Errorf("%w: status %d without error code", ErrMalformedResponse, res.StatusCode), exceptions.KindNetworkFailure, "unexpected gateway status").WithPayment(authorizationToken)
	}
	if out.StatusCode != statusCodeSuccess || out.TransactionStatus != txnCompleted {
		msg := out.StatusMessage
		if msg == "" {
			msg = out.TransactionStatus
		}
		return nil, exceptions.New(exceptions.KindGatewayRejected, msg).WithPayment(authorizationToken).WithTransaction(out.TrxID)
	}
	if out.TrxID == "" {
		return nil, exceptions.Wrap(fmt.Errorf("%w: missing trxID", ErrMalformedResponse), exceptions.KindNetworkFailure, "decode execute response").WithPayment(authorizationToken)
	}

	amount, err := strconv.ParseFloat(out.Amount, 64)
	if err != nil {
		return nil, exceptions.Wrap(fmt.Errorf("%w: amount %q", ErrMalformedResponse, out.Amount), exceptions.KindNetworkFailure, "decode execute response").
			WithPayment(authorizationToken).
			WithTransaction(out.TrxID)
	}

	paymentID := out.PaymentID
	if paymentID == "" {
		paymentID = authorizationToken
	}
	return &VerifiedTransaction{
		TransactionID: out.TrxID,
		PaymentID:     paymentID,
		Amount:        amount,
		Currency:      out.Currency,
		VerifiedAt:    v.nowFunc().UTC(),
	}, nil
}
