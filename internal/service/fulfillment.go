package service

import (
	"context"

	"github.com/dukerupert/emberbean/internal/domain"
	"github.com/dukerupert/emberbean/internal/email"
	"github.com/dukerupert/emberbean/internal/jobs"
	"github.com/dukerupert/emberbean/internal/telemetry"
	"github.com/rs/zerolog"
)

// FulfillmentService drives an order's terse status and its append-only
// tracking ledger. Transitions are operationally permissive: any enumerated
// status may follow any other, because warehouse reality does not respect
// state diagrams.
type FulfillmentService struct {
	store     domain.Store
	publisher jobs.Publisher
	logger    zerolog.Logger
}

// NewFulfillmentService creates a fulfillment service.
func NewFulfillmentService(store domain.Store, publisher jobs.Publisher, logger zerolog.Logger) *FulfillmentService {
	return &FulfillmentService{
		store:     store,
		publisher: publisher,
		logger:    logger.With().Str("service", "fulfillment").Logger(),
	}
}

// UpdateStatusParams is the input to UpdateStatus.
type UpdateStatusParams struct {
	OrderNumber string
	Status      domain.OrderStatus

	// Message and Location annotate the ledger entry.
	Message  string
	Location string
}

// UpdateStatus overwrites the order's status, appends a ledger entry, and
// notifies the customer. A shipped transition with a tracking number on file
// sends the shipment template; everything else sends the generic status
// update.
func (s *FulfillmentService) UpdateStatus(ctx context.Context, params UpdateStatusParams) (*domain.Order, error) {
	const op = "fulfillment.update_status"

	if !domain.ValidOrderStatus(params.Status) {
		return nil, domain.Errorf(domain.EINVALID, op, "unknown order status: %s", params.Status)
	}

	order, err := s.store.GetOrderByNumber(ctx, params.OrderNumber)
	if err != nil {
		return nil, err
	}

	err = s.store.WithTx(ctx, func(tx domain.Store) error {
		if err := tx.UpdateOrderStatus(ctx, order.ID, params.Status); err != nil {
			return err
		}
		return tx.AppendTrackingUpdate(ctx, &domain.TrackingUpdate{
			OrderID:  order.ID,
			Status:   params.Status,
			Message:  params.Message,
			Location: params.Location,
		})
	})
	if err != nil {
		return nil, err
	}
	order.Status = params.Status

	s.logger.Info().
		Str("order_number", order.OrderNumber).
		Str("status", string(params.Status)).
		Msg("order status updated")

	s.notifyStatus(ctx, order, params.Message)

	return order, nil
}

// AppendTracking adds a ledger entry without touching the terse status.
func (s *FulfillmentService) AppendTracking(ctx context.Context, orderNumber string, status domain.OrderStatus, message, location string) (*domain.TrackingUpdate, error) {
	const op = "fulfillment.append_tracking"

	if !domain.ValidOrderStatus(status) {
		return nil, domain.Errorf(domain.EINVALID, op, "unknown order status: %s", status)
	}

	order, err := s.store.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	update := &domain.TrackingUpdate{
		OrderID:  order.ID,
		Status:   status,
		Message:  message,
		Location: location,
	}
	if err := s.store.AppendTrackingUpdate(ctx, update); err != nil {
		return nil, err
	}
	return update, nil
}

// SetTrackingParams is the input to SetTracking.
type SetTrackingParams struct {
	OrderNumber string
	Carrier     string
	Number      string
	URL         string
}

// SetTracking records carrier details on the order and appends a ledger
// entry noting the change.
func (s *FulfillmentService) SetTracking(ctx context.Context, params SetTrackingParams) (*domain.Order, error) {
	const op = "fulfillment.set_tracking"

	if params.Carrier == "" || params.Number == "" {
		return nil, domain.Invalid(op, "carrier and tracking number are required")
	}

	order, err := s.store.GetOrderByNumber(ctx, params.OrderNumber)
	if err != nil {
		return nil, err
	}

	err = s.store.WithTx(ctx, func(tx domain.Store) error {
		if err := tx.UpdateOrderTracking(ctx, order.ID, params.Carrier, params.Number, params.URL); err != nil {
			return err
		}
		return tx.AppendTrackingUpdate(ctx, &domain.TrackingUpdate{
			OrderID: order.ID,
			Status:  order.Status,
			Message: "Tracking information added: " + params.Carrier + " " + params.Number,
		})
	})
	if err != nil {
		return nil, err
	}

	order.TrackingCarrier = params.Carrier
	order.TrackingNumber = params.Number
	order.TrackingURL = params.URL

	return order, nil
}

// notifyStatus picks the template that matches the transition semantics and
// publishes it best-effort.
func (s *FulfillmentService) notifyStatus(ctx context.Context, order *domain.Order, message string) {
	if s.publisher == nil {
		return
	}

	kind := email.KindStatusUpdate
	data := email.TemplateData{
		OrderNumber: order.OrderNumber,
		Status:      string(order.Status),
		Message:     message,
	}
	if order.Status == domain.OrderStatusShipped && order.TrackingNumber != "" {
		kind = email.KindShipment
		data.TrackingCarrier = order.TrackingCarrier
		data.TrackingNumber = order.TrackingNumber
		data.TrackingURL = order.TrackingURL
	}

	err := s.publisher.PublishNotification(ctx, jobs.Notification{
		Kind:      kind,
		Recipient: order.CustomerEmail(),
		Data:      data,
	})
	if err != nil {
		s.logger.Warn().Err(err).
			Str("order_number", order.OrderNumber).
			Msg("failed to publish status notification")
		if telemetry.Business != nil {
			telemetry.Business.NotificationPublishErrs.Inc()
		}
	}
}
