package handler

import (
	"net/http"

	"github.com/dukerupert/emberbean/internal/domain"
	"github.com/dukerupert/emberbean/internal/service"
	"github.com/labstack/echo/v4"
)

type quoteRequest struct {
	DiscountCents int64 `json:"discountCents" validate:"min=0"`
}

// QuoteCheckout prices the caller's cart without opening a payment intent.
func (h *Handler) QuoteCheckout(c echo.Context) error {
	ctx := c.Request().Context()

	var req quoteRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	cart, err := h.Cart.CartForRequest(ctx, guestCartID(c))
	if err != nil {
		return err
	}

	quote, err := h.Checkout.Quote(ctx, cart.ID, req.DiscountCents)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, quote)
}

type createIntentRequest struct {
	GuestEmail    string `json:"guestEmail" validate:"omitempty,email"`
	DiscountCents int64  `json:"discountCents" validate:"min=0"`
}

// CreateCheckoutIntent opens a payment intent for the caller's cart and
// returns the client secret the storefront confirms with.
func (h *Handler) CreateCheckoutIntent(c echo.Context) error {
	ctx := c.Request().Context()

	var req createIntentRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	cart, err := h.Cart.CartForRequest(ctx, guestCartID(c))
	if err != nil {
		return err
	}

	intent, err := h.Checkout.CreateIntent(ctx, service.CreateIntentParams{
		CartID:        cart.ID,
		GuestEmail:    req.GuestEmail,
		DiscountCents: req.DiscountCents,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, intent)
}

// GetOrderByPaymentIntent is the post-payment poll: the storefront confirms
// the charge, then asks for the order the webhook materialized. 404 until
// reconciliation lands.
func (h *Handler) GetOrderByPaymentIntent(c echo.Context) error {
	ctx := c.Request().Context()

	order, err := h.Store.GetOrderByPaymentIntent(ctx, c.Param("id"))
	if err != nil {
		return err
	}

	// Orders bound to an account are only visible to that account. Guest
	// orders are addressed by the intent id the payer already holds.
	if order.UserID != nil {
		user := domain.UserFromContext(ctx)
		if user == nil || user.ID != *order.UserID {
			return domain.NotFound("order.get", "order", c.Param("id"))
		}
	}

	return c.JSON(http.StatusOK, newOrderResponse(order))
}
