package handler

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/dukerupert/emberbean/internal/billing"
	"github.com/dukerupert/emberbean/internal/telemetry"
	"github.com/labstack/echo/v4"
)

// maxWebhookBody bounds the webhook payload we are willing to buffer.
const maxWebhookBody = 1 << 16

// StripeWebhook receives provider events. The contract with the provider:
// 2xx only after the event's effects are durably committed (or were already
// committed by an earlier delivery); any processing failure answers 5xx so
// the event is redelivered. Unverifiable payloads are 400 and never retried.
func (h *Handler) StripeWebhook(c echo.Context) error {
	start := time.Now()

	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable payload")
	}

	event, err := h.Billing.VerifyWebhookEvent(payload, c.Request().Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, billing.ErrInvalidSignature) {
			h.Logger.Warn().Msg("webhook signature verification failed")
			return echo.NewHTTPError(http.StatusBadRequest, "invalid signature")
		}
		return err
	}

	if telemetry.Business != nil {
		telemetry.Business.WebhookReceived.WithLabelValues(event.Type).Inc()
		defer func() {
			telemetry.Business.WebhookLatency.WithLabelValues(event.Type).Observe(time.Since(start).Seconds())
		}()
	}

	if err := h.Reconciler.HandleEvent(c.Request().Context(), event); err != nil {
		h.Logger.Error().Err(err).
			Str("event_id", event.ID).
			Str("event_type", event.Type).
			Msg("webhook processing failed")
		if telemetry.Business != nil {
			telemetry.Business.WebhookFailed.WithLabelValues(event.Type, "processing").Inc()
		}
		// 5xx asks the provider to redeliver.
		return echo.NewHTTPError(http.StatusInternalServerError, "event processing failed")
	}

	if telemetry.Business != nil {
		telemetry.Business.WebhookProcessed.WithLabelValues(event.Type).Inc()
	}

	return c.JSON(http.StatusOK, echo.Map{"received": true})
}
