package handler

import (
	"net/http"

	"github.com/dukerupert/emberbean/internal/domain"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// CartCookieName carries the guest cart id between requests. Authenticated
// requests ignore it; their cart is keyed by user.
const CartCookieName = "eb_cart"

// GetCart returns the caller's cart, creating one for first-time guests.
func (h *Handler) GetCart(c echo.Context) error {
	ctx := c.Request().Context()

	cart, err := h.Cart.CartForRequest(ctx, guestCartID(c))
	if err != nil {
		return err
	}
	setCartCookie(c, cart)

	return c.JSON(http.StatusOK, newCartResponse(cart))
}

type addCartItemRequest struct {
	ProductID uuid.UUID `json:"productId" validate:"required"`
	Quantity  int32     `json:"quantity" validate:"required,min=1"`
}

// AddCartItem adds a product to the cart.
func (h *Handler) AddCartItem(c echo.Context) error {
	ctx := c.Request().Context()

	var req addCartItemRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	cart, err := h.Cart.CartForRequest(ctx, guestCartID(c))
	if err != nil {
		return err
	}
	setCartCookie(c, cart)

	cart, err = h.Cart.AddItem(ctx, cart.ID, req.ProductID, req.Quantity)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, newCartResponse(cart))
}

type updateCartItemRequest struct {
	Quantity int32 `json:"quantity" validate:"required"`
}

// UpdateCartItem replaces a line's quantity.
func (h *Handler) UpdateCartItem(c echo.Context) error {
	ctx := c.Request().Context()

	productID, err := uuid.Parse(c.Param("productID"))
	if err != nil {
		return domain.Invalid("cart.update_item", "malformed product id")
	}

	var req updateCartItemRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	cart, err := h.Cart.CartForRequest(ctx, guestCartID(c))
	if err != nil {
		return err
	}

	cart, err = h.Cart.UpdateItemQuantity(ctx, cart.ID, productID, req.Quantity)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, newCartResponse(cart))
}

// RemoveCartItem deletes a line from the cart.
func (h *Handler) RemoveCartItem(c echo.Context) error {
	ctx := c.Request().Context()

	productID, err := uuid.Parse(c.Param("productID"))
	if err != nil {
		return domain.Invalid("cart.remove_item", "malformed product id")
	}

	cart, err := h.Cart.CartForRequest(ctx, guestCartID(c))
	if err != nil {
		return err
	}

	cart, err = h.Cart.RemoveItem(ctx, cart.ID, productID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, newCartResponse(cart))
}

// guestCartID reads the guest cart cookie, if any. A garbage cookie is
// ignored rather than rejected; the caller just gets a fresh cart.
func guestCartID(c echo.Context) *uuid.UUID {
	cookie, err := c.Cookie(CartCookieName)
	if err != nil {
		return nil
	}
	id, err := uuid.Parse(cookie.Value)
	if err != nil {
		return nil
	}
	return &id
}

// setCartCookie pins guests to their cart across requests.
func setCartCookie(c echo.Context, cart *domain.Cart) {
	if cart.UserID != nil {
		return
	}
	c.SetCookie(&http.Cookie{
		Name:     CartCookieName,
		Value:    cart.ID.String(),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// bind decodes and validates a request body.
func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return domain.Invalid("request.bind", "malformed request body")
	}
	return c.Validate(req)
}
