package handler

import (
	"time"

	"github.com/dukerupert/emberbean/internal/domain"
	"github.com/google/uuid"
)

type cartResponse struct {
	ID            uuid.UUID          `json:"id"`
	Items         []cartItemResponse `json:"items"`
	SubtotalCents int64              `json:"subtotalCents"`
}

type cartItemResponse struct {
	ProductID      uuid.UUID `json:"productId"`
	Name           string    `json:"name"`
	Quantity       int32     `json:"quantity"`
	UnitPriceCents int64     `json:"unitPriceCents"`
}

func newCartResponse(cart *domain.Cart) cartResponse {
	resp := cartResponse{
		ID:            cart.ID,
		Items:         []cartItemResponse{},
		SubtotalCents: cart.SubtotalCents(),
	}
	for _, item := range cart.Items {
		resp.Items = append(resp.Items, cartItemResponse{
			ProductID:      item.ProductID,
			Name:           item.ProductName,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
		})
	}
	return resp
}

type orderResponse struct {
	OrderNumber     string              `json:"orderNumber"`
	PaymentIntentID string              `json:"paymentIntentId"`
	Status          string              `json:"status"`
	SubtotalCents   int64               `json:"subtotalCents"`
	DiscountCents   int64               `json:"discountCents"`
	TaxCents        int64               `json:"taxCents"`
	ShippingCents   int64               `json:"shippingCents"`
	TotalCents      int64               `json:"totalCents"`
	Currency        string              `json:"currency"`
	TrackingCarrier string              `json:"trackingCarrier,omitempty"`
	TrackingNumber  string              `json:"trackingNumber,omitempty"`
	TrackingURL     string              `json:"trackingUrl,omitempty"`
	Items           []orderItemResponse `json:"items"`
	CreatedAt       time.Time           `json:"createdAt"`
}

type orderItemResponse struct {
	ID             uuid.UUID `json:"id"`
	ProductID      uuid.UUID `json:"productId"`
	Name           string    `json:"name"`
	Quantity       int32     `json:"quantity"`
	UnitPriceCents int64     `json:"unitPriceCents"`
	LineTotalCents int64     `json:"lineTotalCents"`
}

func newOrderResponse(order *domain.Order) orderResponse {
	resp := orderResponse{
		OrderNumber:     order.OrderNumber,
		PaymentIntentID: order.PaymentIntentID,
		Status:          string(order.Status),
		SubtotalCents:   order.SubtotalCents,
		DiscountCents:   order.DiscountCents,
		TaxCents:        order.TaxCents,
		ShippingCents:   order.ShippingCents,
		TotalCents:      order.TotalCents,
		Currency:        order.Currency,
		TrackingCarrier: order.TrackingCarrier,
		TrackingNumber:  order.TrackingNumber,
		TrackingURL:     order.TrackingURL,
		Items:           []orderItemResponse{},
		CreatedAt:       order.CreatedAt,
	}
	for _, item := range order.Items {
		resp.Items = append(resp.Items, newOrderItemResponse(item))
	}
	return resp
}

func newOrderItemResponse(item domain.OrderItem) orderItemResponse {
	return orderItemResponse{
		ID:             item.ID,
		ProductID:      item.ProductID,
		Name:           item.Name,
		Quantity:       item.Quantity,
		UnitPriceCents: item.UnitPriceCents,
		LineTotalCents: item.LineTotalCents(),
	}
}

type trackingUpdateResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Location  string    `json:"location,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func newTrackingUpdateResponses(updates []domain.TrackingUpdate) []trackingUpdateResponse {
	resp := make([]trackingUpdateResponse, 0, len(updates))
	for _, u := range updates {
		resp = append(resp, trackingUpdateResponse{
			Status:    string(u.Status),
			Message:   u.Message,
			Location:  u.Location,
			CreatedAt: u.CreatedAt,
		})
	}
	return resp
}

type returnResponse struct {
	ID                uuid.UUID   `json:"id"`
	OrderNumber       string      `json:"orderNumber"`
	Reason            string      `json:"reason"`
	ItemIDs           []uuid.UUID `json:"itemIds"`
	RefundAmountCents int64       `json:"refundAmountCents"`
	Status            string      `json:"status"`
	AdminNotes        string      `json:"adminNotes,omitempty"`
	CreatedAt         time.Time   `json:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt"`
}

func newReturnResponse(ret *domain.Return) returnResponse {
	return returnResponse{
		ID:                ret.ID,
		OrderNumber:       ret.OrderNumber,
		Reason:            ret.Reason,
		ItemIDs:           ret.ItemIDs,
		RefundAmountCents: ret.RefundAmountCents,
		Status:            string(ret.Status),
		AdminNotes:        ret.AdminNotes,
		CreatedAt:         ret.CreatedAt,
		UpdatedAt:         ret.UpdatedAt,
	}
}
