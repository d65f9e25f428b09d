package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// trackResponse is the public tracking read model. It deliberately exposes
// no identities, emails, or addresses: an order number is a weak capability
// and the payload must stay safe to show anyone holding one.
type trackResponse struct {
	OrderNumber     string                   `json:"orderNumber"`
	Status          string                   `json:"status"`
	TotalCents      int64                    `json:"totalCents"`
	CreatedAt       time.Time                `json:"createdAt"`
	TrackingCarrier string                   `json:"trackingCarrier,omitempty"`
	TrackingNumber  string                   `json:"trackingNumber,omitempty"`
	TrackingURL     string                   `json:"trackingUrl,omitempty"`
	Items           []orderItemResponse      `json:"items"`
	TrackingUpdates []trackingUpdateResponse `json:"trackingUpdates"`
}

// TrackOrder serves the unauthenticated order tracking view.
func (h *Handler) TrackOrder(c echo.Context) error {
	ctx := c.Request().Context()

	order, err := h.Store.GetOrderByNumber(ctx, c.Param("orderNumber"))
	if err != nil {
		return err
	}

	updates, err := h.Store.ListTrackingUpdates(ctx, order.ID)
	if err != nil {
		return err
	}

	resp := trackResponse{
		OrderNumber:     order.OrderNumber,
		Status:          string(order.Status),
		TotalCents:      order.TotalCents,
		CreatedAt:       order.CreatedAt,
		TrackingCarrier: order.TrackingCarrier,
		TrackingNumber:  order.TrackingNumber,
		TrackingURL:     order.TrackingURL,
		Items:           []orderItemResponse{},
		TrackingUpdates: newTrackingUpdateResponses(updates),
	}
	for _, item := range order.Items {
		resp.Items = append(resp.Items, newOrderItemResponse(item))
	}

	return c.JSON(http.StatusOK, resp)
}
