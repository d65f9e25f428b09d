package handler

import (
	"net/http"
	"strconv"

	"github.com/dukerupert/emberbean/internal/domain"
	"github.com/dukerupert/emberbean/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// AdminListOrders pages through all orders, newest first.
func (h *Handler) AdminListOrders(c echo.Context) error {
	ctx := c.Request().Context()
	limit, offset := pagination(c)

	orders, err := h.Store.ListOrders(ctx, limit, offset)
	if err != nil {
		return err
	}

	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		resp = append(resp, newOrderResponse(&orders[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

// AdminGetOrder returns any order with its tracking ledger.
func (h *Handler) AdminGetOrder(c echo.Context) error {
	ctx := c.Request().Context()

	order, err := h.Store.GetOrderByNumber(ctx, c.Param("orderNumber"))
	if err != nil {
		return err
	}
	updates, err := h.Store.ListTrackingUpdates(ctx, order.ID)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, echo.Map{
		"order":           newOrderResponse(order),
		"trackingUpdates": newTrackingUpdateResponses(updates),
	})
}

type updateStatusRequest struct {
	Status   string `json:"status" validate:"required"`
	Message  string `json:"message"`
	Location string `json:"location"`
}

// AdminUpdateOrderStatus transitions an order and appends a ledger entry.
func (h *Handler) AdminUpdateOrderStatus(c echo.Context) error {
	ctx := c.Request().Context()

	var req updateStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	order, err := h.Fulfillment.UpdateStatus(ctx, service.UpdateStatusParams{
		OrderNumber: c.Param("orderNumber"),
		Status:      domain.OrderStatus(req.Status),
		Message:     req.Message,
		Location:    req.Location,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, newOrderResponse(order))
}

type setTrackingRequest struct {
	Carrier string `json:"carrier" validate:"required"`
	Number  string `json:"number" validate:"required"`
	URL     string `json:"url" validate:"omitempty,url"`
}

// AdminSetOrderTracking records carrier details on an order.
func (h *Handler) AdminSetOrderTracking(c echo.Context) error {
	ctx := c.Request().Context()

	var req setTrackingRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	order, err := h.Fulfillment.SetTracking(ctx, service.SetTrackingParams{
		OrderNumber: c.Param("orderNumber"),
		Carrier:     req.Carrier,
		Number:      req.Number,
		URL:         req.URL,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, newOrderResponse(order))
}

// AdminListReturns pages through all return requests, newest first.
func (h *Handler) AdminListReturns(c echo.Context) error {
	ctx := c.Request().Context()
	limit, offset := pagination(c)

	returns, err := h.Store.ListReturns(ctx, limit, offset)
	if err != nil {
		return err
	}

	resp := make([]returnResponse, 0, len(returns))
	for i := range returns {
		resp = append(resp, newReturnResponse(&returns[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

type resolveReturnRequest struct {
	Status              string `json:"status" validate:"required"`
	AdminNotes          string `json:"adminNotes"`
	RefundOverrideCents *int64 `json:"refundOverrideCents"`
}

// AdminResolveReturn approves, rejects, or completes a return request.
func (h *Handler) AdminResolveReturn(c echo.Context) error {
	ctx := c.Request().Context()

	returnID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return domain.Invalid("returns.resolve", "malformed return id")
	}

	var req resolveReturnRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ret, err := h.Returns.Resolve(ctx, service.ResolveReturnParams{
		ReturnID:            returnID,
		Status:              domain.ReturnStatus(req.Status),
		AdminNotes:          req.AdminNotes,
		RefundOverrideCents: req.RefundOverrideCents,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, newReturnResponse(ret))
}

func pagination(c echo.Context) (limit, offset int32) {
	limit, offset = 50, 0
	if v, err := strconv.ParseInt(c.QueryParam("limit"), 10, 32); err == nil && v > 0 && v <= 200 {
		limit = int32(v)
	}
	if v, err := strconv.ParseInt(c.QueryParam("offset"), 10, 32); err == nil && v >= 0 {
		offset = int32(v)
	}
	return limit, offset
}
