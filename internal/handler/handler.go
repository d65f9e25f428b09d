// Package handler exposes the checkout core over echo.
package handler

import (
	"errors"
	"net/http"

	"github.com/dukerupert/emberbean/internal/billing"
	"github.com/dukerupert/emberbean/internal/domain"
	"github.com/dukerupert/emberbean/internal/service"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Handler bundles the services behind the HTTP surface.
type Handler struct {
	Cart        *service.CartService
	Checkout    *service.CheckoutService
	Reconciler  *service.Reconciler
	Fulfillment *service.FulfillmentService
	Returns     *service.ReturnService

	Store   domain.Store
	Billing billing.Provider

	Logger zerolog.Logger
}

// ErrorHandler is the single echo HTTPErrorHandler. Domain error codes map
// to status codes; everything else is a 500 with a generic body, the cause
// kept in the log.
func (h *Handler) ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	code := domain.EINTERNAL

	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		code = codeForStatus(status)
	} else {
		code = domain.ErrorCode(err)
		status = statusForCode(code)
	}

	if status >= http.StatusInternalServerError {
		h.Logger.Error().Err(err).
			Str("request_id", domain.RequestIDFromContext(c.Request().Context())).
			Str("path", c.Path()).
			Str("method", c.Request().Method).
			Msg("request failed")
	}

	_ = c.JSON(status, errorBody{Error: errorDetail{
		Code:    code,
		Message: domain.ErrorMessage(err),
	}})
}

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func statusForCode(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest
	case domain.EUNAUTHORIZED:
		return http.StatusUnauthorized
	case domain.EPAYMENT:
		return http.StatusPaymentRequired
	case domain.EFORBIDDEN:
		return http.StatusForbidden
	case domain.ENOTFOUND:
		return http.StatusNotFound
	case domain.ECONFLICT:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func codeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return domain.EINVALID
	case http.StatusUnauthorized:
		return domain.EUNAUTHORIZED
	case http.StatusForbidden:
		return domain.EFORBIDDEN
	case http.StatusNotFound:
		return domain.ENOTFOUND
	case http.StatusConflict:
		return domain.ECONFLICT
	default:
		return domain.EINTERNAL
	}
}
