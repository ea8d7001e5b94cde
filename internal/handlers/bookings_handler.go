package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/imrishuroy/go-paidbooking-reconciler/internal/bookings"
	"github.com/imrishuroy/go-paidbooking-reconciler/internal/exceptions"
	"github.com/imrishuroy/go-paidbooking-reconciler/internal/intent"
	"github.com/imrishuroy/go-paidbooking-reconciler/internal/logging"
	"github.com/imrishuroy/go-paidbooking-reconciler/internal/receipt"
	"github.com/imrishuroy/go-paidbooking-reconciler/internal/reconcile"
	"github.com/imrishuroy/go-paidbooking-reconciler/internal/sentinel"
	"github.com/imrishuroy/go-paidbooking-reconciler/internal/validation"
)

const sessionCookie = "booking_session"

// HandlerConfig groups dependencies for the booking routes.
type HandlerConfig struct {
	Reconciler     *reconcile.Reconciler
	Intents        *intent.Store
	Bookings       bookings.Store
	Sentinel       *sentinel.Service
	Logger         *zap.Logger
	AdminJWTSecret string
	SessionTTL     time.Duration
	SecureCookies  bool
}

// RegisterBookingRoutes registers the patient-facing and admin routes.
func RegisterBookingRoutes(r *gin.Engine, cfg HandlerConfig) {
	v := validation.New()

	r.POST("/bookings/intents", func(c *gin.Context) {
		var req validation.PendingIntentRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			// BindAndValidate already wrote a 400
			return
		}

		sessionID := sessionFrom(c)
		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		if err := cfg.Intents.Save(c.Request.Context(), sessionID, req.ToIntent()); err != nil {
			cfg.Logger.Error("handlers.SaveIntent intent not saved", logging.RequestID(c.Request.Context()), zap.Error(err))
			writeError(c, exceptions.Wrap(err, exceptions.KindNetworkFailure, ""))
			return
		}

		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(sessionCookie, sessionID, int(cfg.SessionTTL.Seconds()), "/", "", cfg.SecureCookies, true)
		c.JSON(http.StatusCreated, gin.H{
			"session_id": sessionID,
			"expires_in": int(cfg.SessionTTL.Seconds()),
		})
	})

	r.GET("/payments/callback", func(c *gin.Context) {
		var q validation.CallbackQuery
		if err := validation.BindQueryAndValidate(c, &q, v); err != nil {
			return
		}
		status := reconcile.CallbackStatus(q.Status)

		sessionID := sessionFrom(c)
		if sessionID == "" && status == reconcile.StatusSuccess {
			// no cookie means no intent could ever be found for this browser
			writeError(c, exceptions.New(exceptions.KindSessionExpired, "").WithPayment(q.PaymentID))
			return
		}
		writeOutcome(c, cfg.Reconciler.HandleCallback(c.Request.Context(), sessionID, q.PaymentID, status))
	})

	r.POST("/payments/:paymentID/retry", func(c *gin.Context) {
		paymentID := c.Param("paymentID")
		sessionID := sessionFrom(c)
		if sessionID == "" {
			writeError(c, exceptions.New(exceptions.KindSessionExpired, "").WithPayment(paymentID))
			return
		}
		writeOutcome(c, cfg.Reconciler.Retry(c.Request.Context(), sessionID, paymentID))
	})

	r.GET("/bookings/:reference", func(c *gin.Context) {
		b, err := cfg.Bookings.FindByReference(c.Request.Context(), c.Param("reference"))
		if err != nil {
			cfg.Logger.Error("handlers.GetBooking lookup failed", logging.RequestID(c.Request.Context()), zap.Error(err))
			writeError(c, exceptions.Wrap(err, exceptions.KindNetworkFailure, ""))
			return
		}
		if b == nil {
			writeError(c, exceptions.New(exceptions.KindNotFound, ""))
			return
		}
		if c.NegotiateFormat(gin.MIMEJSON, gin.MIMEPlain) == gin.MIMEPlain {
			c.String(http.StatusOK, receipt.Render(*b))
			return
		}
		c.JSON(http.StatusOK, b)
	})

	admin := r.Group("/admin", RequireAdmin(cfg.AdminJWTSecret))

	admin.GET("/bookings/duplicates", func(c *gin.Context) {
		report, err := cfg.Sentinel.Report(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, report)
	})

	admin.DELETE("/bookings/:reference", func(c *gin.Context) {
		if err := cfg.Sentinel.Remediate(c.Request.Context(), c.Param("reference")); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}

// sessionFrom returns the booking session cookie, or "" when absent or not
// one we issued.
func sessionFrom(c *gin.Context) string {
	id, err := c.Cookie(sessionCookie)
	if err != nil {
		return ""
	}
	if _, err := uuid.Parse(id); err != nil {
		return ""
	}
	return id
}
