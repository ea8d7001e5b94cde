package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-paidbooking-reconciler/internal/exceptions"
	"github.com/imrishuroy/go-paidbooking-reconciler/internal/reconcile"
)

func errorBody(e *exceptions.Error) gin.H {
	body := gin.H{
		"error":     string(e.Kind),
		"message":   e.ClientMessage(),
		"retryable": e.Retryable(),
	}
	if e.PaymentID != "" {
		body["payment_id"] = e.PaymentID
	}
	if e.TransactionID != "" {
		body["transaction_id"] = e.TransactionID
	}
	return body
}

func writeError(c *gin.Context, err error) {
	e := exceptions.As(err)
	c.JSON(e.HTTPStatus(), errorBody(e))
}

// writeOutcome renders one of the three terminal screens.
func writeOutcome(c *gin.Context, out reconcile.Outcome) {
	switch out.Result {
	case reconcile.ResultConfirmed:
		status := http.StatusOK
		if out.Created {
			status = http.StatusCreated
		}
		c.JSON(status, gin.H{"result": string(out.Result), "booking": out.Booking})
	case reconcile.ResultInProgress:
		c.JSON(http.StatusAccepted, gin.H{
			"result":     string(out.Result),
			"payment_id": out.Err.PaymentID,
			"message":    out.Err.ClientMessage(),
		})
	default:
		body := errorBody(out.Err)
		body["result"] = string(reconcile.ResultFailed)
		c.JSON(out.Err.HTTPStatus(), body)
	}
}
