package handler

import (
	"net/http"

	"github.com/dukerupert/emberbean/internal/domain"
	"github.com/dukerupert/emberbean/internal/service"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

type createReturnRequest struct {
	OrderNumber string      `json:"orderNumber" validate:"required"`
	Reason      string      `json:"reason" validate:"required"`
	ItemIDs     []uuid.UUID `json:"itemIds"`
}

// CreateReturn opens a return request for one of the caller's orders.
func (h *Handler) CreateReturn(c echo.Context) error {
	ctx := c.Request().Context()

	var req createReturnRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	ret, err := h.Returns.Create(ctx, service.CreateReturnParams{
		OrderNumber: req.OrderNumber,
		Reason:      req.Reason,
		ItemIDs:     req.ItemIDs,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, newReturnResponse(ret))
}

// ListReturns lists the authenticated customer's return requests.
func (h *Handler) ListReturns(c echo.Context) error {
	ctx := c.Request().Context()
	user := domain.UserFromContext(ctx)

	returns, err := h.Store.ListReturnsByUser(ctx, user.ID)
	if err != nil {
		return err
	}

	resp := make([]returnResponse, 0, len(returns))
	for i := range returns {
		resp = append(resp, newReturnResponse(&returns[i]))
	}
	return c.JSON(http.StatusOK, resp)
}
