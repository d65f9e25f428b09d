package service

import (
	"context"

	"github.com/dukerupert/emberbean/internal/billing"
	"github.com/dukerupert/emberbean/internal/domain"
	"github.com/dukerupert/emberbean/internal/email"
	"github.com/dukerupert/emberbean/internal/jobs"
	"github.com/dukerupert/emberbean/internal/telemetry"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ReturnService handles customer return requests and their admin resolution.
// Refund amounts come from the order-item price snapshots, never from the
// live catalog.
type ReturnService struct {
	store     domain.Store
	billing   billing.Provider
	publisher jobs.Publisher
	logger    zerolog.Logger
}

// NewReturnService creates a return service.
func NewReturnService(store domain.Store, provider billing.Provider, publisher jobs.Publisher, logger zerolog.Logger) *ReturnService {
	return &ReturnService{
		store:     store,
		billing:   provider,
		publisher: publisher,
		logger:    logger.With().Str("service", "returns").Logger(),
	}
}

// CreateReturnParams is the input to Create.
type CreateReturnParams struct {
	OrderNumber string
	Reason      string

	// ItemIDs selects which order items are being returned. Every id must
	// belong to the order. Empty selects the whole order.
	ItemIDs []uuid.UUID
}

// Create opens a return request for the caller's order. At most one return
// in {pending, approved} may exist per order; the check here races safely
// against concurrent requests because the database enforces the same rule
// with a partial unique index.
func (s *ReturnService) Create(ctx context.Context, params CreateReturnParams) (*domain.Return, error) {
	const op = "returns.create"

	user := domain.UserFromContext(ctx)
	if user == nil {
		return nil, domain.Unauthorized(op, "authentication required")
	}
	if params.Reason == "" {
		return nil, domain.Invalid(op, "a reason is required")
	}

	order, err := s.store.GetOrderByNumber(ctx, params.OrderNumber)
	if err != nil {
		return nil, err
	}
	if order.UserID == nil || *order.UserID != user.ID {
		return nil, domain.Forbidden(op, "order belongs to another customer")
	}
	if order.Status == domain.OrderStatusCancelled {
		return nil, domain.Invalid(op, "cancelled orders cannot be returned")
	}

	active, err := s.store.HasActiveReturn(ctx, order.OrderNumber)
	if err != nil {
		return nil, err
	}
	if active {
		return nil, domain.ErrDuplicateActiveReturn
	}

	itemIDs := params.ItemIDs
	if len(itemIDs) == 0 {
		for _, item := range order.Items {
			itemIDs = append(itemIDs, item.ID)
		}
	}

	refund, err := refundForItems(op, order, itemIDs)
	if err != nil {
		return nil, err
	}

	ret := &domain.Return{
		OrderNumber:       order.OrderNumber,
		UserID:            user.ID,
		Reason:            params.Reason,
		ItemIDs:           itemIDs,
		RefundAmountCents: refund,
		Status:            domain.ReturnStatusPending,
	}
	if err := s.store.CreateReturn(ctx, ret); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("order_number", order.OrderNumber).
		Str("return_id", ret.ID.String()).
		Int64("refund_cents", refund).
		Msg("return request created")

	s.notify(ctx, order, email.KindReturnReceived, email.TemplateData{
		OrderNumber:   order.OrderNumber,
		RefundDisplay: email.FormatCents(refund),
	})

	return ret, nil
}

// ResolveReturnParams is the input to Resolve.
type ResolveReturnParams struct {
	ReturnID uuid.UUID
	Status   domain.ReturnStatus

	AdminNotes string

	// RefundOverrideCents, when set, replaces the computed refund amount.
	RefundOverrideCents *int64
}

// Resolve moves a return into an admin-chosen state. Approval issues the
// refund at the payment provider before the status is persisted; a provider
// failure leaves the return pending for a retry.
func (s *ReturnService) Resolve(ctx context.Context, params ResolveReturnParams) (*domain.Return, error) {
	const op = "returns.resolve"

	user := domain.UserFromContext(ctx)
	if user == nil || !user.Can(domain.RoleAdmin) {
		return nil, domain.Forbidden(op, "administrator access required")
	}
	if !domain.ValidReturnResolution(params.Status) {
		return nil, domain.Errorf(domain.EINVALID, op, "invalid return resolution: %s", params.Status)
	}

	ret, err := s.store.GetReturn(ctx, params.ReturnID)
	if err != nil {
		return nil, err
	}

	refund := ret.RefundAmountCents
	if params.RefundOverrideCents != nil {
		if *params.RefundOverrideCents < 0 {
			return nil, domain.Invalid(op, "refund override must not be negative")
		}
		refund = *params.RefundOverrideCents
	}

	if params.Status == domain.ReturnStatusApproved && ret.Status != domain.ReturnStatusApproved {
		order, err := s.store.GetOrderByNumber(ctx, ret.OrderNumber)
		if err != nil {
			return nil, err
		}
		_, err = s.billing.RefundPayment(ctx, billing.RefundParams{
			PaymentIntentID: order.PaymentIntentID,
			AmountCents:     refund,
			Reason:          "requested_by_customer",
			Metadata:        map[string]string{"return_id": ret.ID.String()},
		})
		if err != nil {
			return nil, domain.WrapError(err, domain.EPAYMENT, op, "payment provider rejected the refund")
		}
	}

	ret.Status = params.Status
	ret.AdminNotes = params.AdminNotes
	ret.RefundAmountCents = refund
	if err := s.store.UpdateReturn(ctx, ret); err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("return_id", ret.ID.String()).
		Str("status", string(ret.Status)).
		Int64("refund_cents", refund).
		Msg("return resolved")

	if order, err := s.store.GetOrderByNumber(ctx, ret.OrderNumber); err == nil {
		s.notify(ctx, order, email.KindReturnResolved, email.TemplateData{
			OrderNumber:   ret.OrderNumber,
			Status:        string(ret.Status),
			Message:       params.AdminNotes,
			RefundDisplay: email.FormatCents(refund),
		})
	}

	return ret, nil
}

// refundForItems sums the snapshot line totals of the selected items.
// Unknown item ids fail the request.
func refundForItems(op string, order *domain.Order, itemIDs []uuid.UUID) (int64, error) {
	byID := make(map[uuid.UUID]domain.OrderItem, len(order.Items))
	for _, item := range order.Items {
		byID[item.ID] = item
	}

	var refund int64
	seen := make(map[uuid.UUID]bool, len(itemIDs))
	for _, id := range itemIDs {
		item, ok := byID[id]
		if !ok {
			return 0, domain.Errorf(domain.EINVALID, op, "item %s does not belong to order %s", id, order.OrderNumber)
		}
		if seen[id] {
			return 0, domain.Errorf(domain.EINVALID, op, "item %s selected more than once", id)
		}
		seen[id] = true
		refund += item.LineTotalCents()
	}
	return refund, nil
}

func (s *ReturnService) notify(ctx context.Context, order *domain.Order, kind email.Kind, data email.TemplateData) {
	if s.publisher == nil {
		return
	}

	err := s.publisher.PublishNotification(ctx, jobs.Notification{
		Kind:      kind,
		Recipient: order.CustomerEmail(),
		Data:      data,
	})
	if err != nil {
		s.logger.Warn().Err(err).
			Str("order_number", order.OrderNumber).
			Msg("failed to publish return notification")
		if telemetry.Business != nil {
			telemetry.Business.NotificationPublishErrs.Inc()
		}
	}
}
