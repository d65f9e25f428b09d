package handler

import (
	"net/http"

	"github.com/dukerupert/emberbean/internal/domain"
	"github.com/labstack/echo/v4"
)

// ListOrders lists the authenticated customer's orders.
func (h *Handler) ListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	user := domain.UserFromContext(ctx)

	orders, err := h.Store.ListOrdersByUser(ctx, user.ID)
	if err != nil {
		return err
	}

	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, newOrderResponse(&orders[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

// GetOrder returns one of the authenticated customer's orders.
func (h *Handler) GetOrder(c echo.Context) error {
	ctx := c.Request().Context()
	user := domain.UserFromContext(ctx)
	orderNumber := c.Param("orderNumber")

	order, err := h.Store.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		return err
	}
	if order.UserID == nil || *order.UserID != user.ID {
		// Hide existence from non-owners.
		return domain.NotFound("order.get", "order", orderNumber)
	}

	return c.JSON(http.StatusOK, newOrderResponse(order))
}
