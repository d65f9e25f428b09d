package service

import (
	"context"
	"errors"
	"time"

	"github.com/dukerupert/emberbean/internal/billing"
	"github.com/dukerupert/emberbean/internal/domain"
	"github.com/dukerupert/emberbean/internal/email"
	"github.com/dukerupert/emberbean/internal/jobs"
	"github.com/dukerupert/emberbean/internal/telemetry"
	"github.com/rs/zerolog"
)

// orderNumberRetries bounds re-allocation after an order_number unique
// violation before the conflict surfaces to the caller.
const orderNumberRetries = 3

// Reconciler materializes orders from verified payment events. It is the only
// writer of the orders table on the payment path, and it writes exactly once
// per payment intent regardless of how many times the provider delivers the
// event.
type Reconciler struct {
	store     domain.Store
	publisher jobs.Publisher
	prefix    string
	logger    zerolog.Logger

	now func() time.Time
}

// NewReconciler creates a reconciler. publisher may be nil in setups without
// a notification queue.
func NewReconciler(store domain.Store, publisher jobs.Publisher, prefix string, logger zerolog.Logger) *Reconciler {
	return &Reconciler{
		store:     store,
		publisher: publisher,
		prefix:    prefix,
		logger:    logger.With().Str("service", "reconciler").Logger(),
		now:       time.Now,
	}
}

// HandleEvent dispatches a verified webhook event. Succeeded payments
// materialize orders; failures and cancellations are logged and acknowledged.
func (r *Reconciler) HandleEvent(ctx context.Context, event *billing.Event) error {
	switch event.Type {
	case billing.EventPaymentSucceeded:
		if event.PaymentIntent == nil {
			return domain.Invalid("reconcile.event", "succeeded event without payment intent")
		}
		_, err := r.CreateOrderFromPaymentIntent(ctx, event.PaymentIntent)
		return err

	case billing.EventPaymentFailed, billing.EventPaymentCanceled:
		id := ""
		if event.PaymentIntent != nil {
			id = event.PaymentIntent.ID
		}
		r.logger.Info().
			Str("event_type", event.Type).
			Str("payment_intent_id", id).
			Msg("payment did not complete; no order created")
		return nil

	default:
		r.logger.Debug().Str("event_type", event.Type).Msg("ignoring webhook event")
		return nil
	}
}

// CreateOrderFromPaymentIntent turns a succeeded payment intent into an
// order, exactly once. Redeliveries and concurrent deliveries of the same
// intent return the already-created order with no error.
//
// The order, its items, and the cart-item deletion commit in one
// transaction. Any failure rolls the whole thing back so the provider's
// redelivery retries a clean slate.
func (r *Reconciler) CreateOrderFromPaymentIntent(ctx context.Context, intent *billing.PaymentIntent) (*domain.Order, error) {
	const op = "reconcile.create_order"

	m, err := decodeManifest(intent.Metadata)
	if err != nil {
		return nil, err
	}

	// Fast path for redeliveries.
	if existing, err := r.store.GetOrderByPaymentIntent(ctx, intent.ID); err == nil {
		r.logger.Info().
			Str("payment_intent_id", intent.ID).
			Str("order_number", existing.OrderNumber).
			Msg("payment already reconciled")
		return existing, nil
	} else if !domain.IsCode(err, domain.ENOTFOUND) {
		return nil, err
	}

	// The charged amount is informational at this point; the manifest is
	// canonical. A mismatch is recorded loudly but does not block the order.
	if intent.AmountCents != m.TotalCents {
		r.logger.Error().
			Str("payment_intent_id", intent.ID).
			Int64("charged_cents", intent.AmountCents).
			Int64("manifest_total_cents", m.TotalCents).
			Msg("reconciliation anomaly: charged amount differs from manifest total")
		if telemetry.Business != nil {
			telemetry.Business.ReconciliationAnomalies.Inc()
		}
	}

	order := r.orderFromManifest(intent, m)

	var txErr error
	for attempt := 0; attempt < orderNumberRetries; attempt++ {
		txErr = r.store.WithTx(ctx, func(tx domain.Store) error {
			year := r.now().UTC().Year()
			seq, err := tx.AllocateOrderNumber(ctx, year)
			if err != nil {
				return err
			}
			order.OrderNumber = domain.FormatOrderNumber(r.prefix, year, seq)

			if err := tx.CreateOrder(ctx, order); err != nil {
				return err
			}
			return tx.ClearCart(ctx, m.CartID)
		})
		if !errors.Is(txErr, domain.ErrOrderNumberTaken) {
			break
		}
		r.logger.Warn().
			Str("order_number", order.OrderNumber).
			Int("attempt", attempt+1).
			Msg("order number collision, re-allocating")
	}

	if errors.Is(txErr, domain.ErrPaymentAlreadyProcessed) {
		// Lost a concurrent-delivery race. The other delivery's order is
		// the real one.
		existing, err := r.store.GetOrderByPaymentIntent(ctx, intent.ID)
		if err != nil {
			return nil, err
		}
		r.logger.Info().
			Str("payment_intent_id", intent.ID).
			Str("order_number", existing.OrderNumber).
			Msg("concurrent delivery already reconciled this payment")
		return existing, nil
	}
	if txErr != nil {
		return nil, domain.WrapError(txErr, domain.ErrorCode(txErr), op, "failed to materialize order")
	}

	r.logger.Info().
		Str("order_number", order.OrderNumber).
		Str("payment_intent_id", intent.ID).
		Int64("total_cents", order.TotalCents).
		Msg("order created")
	if telemetry.Business != nil {
		telemetry.Business.OrdersCreated.Inc()
		telemetry.Business.OrderValue.Observe(float64(order.TotalCents))
	}

	r.publishConfirmation(ctx, order)

	return order, nil
}

func (r *Reconciler) orderFromManifest(intent *billing.PaymentIntent, m *manifest) *domain.Order {
	order := &domain.Order{
		PaymentIntentID: intent.ID,
		UserID:          m.UserID,
		Email:           m.UserEmail,
		GuestEmail:      m.GuestEmail,
		Status:          domain.OrderStatusPending,
		SubtotalCents:   m.SubtotalCents,
		DiscountCents:   m.DiscountCents,
		TaxCents:        m.TaxCents,
		ShippingCents:   m.ShippingCents,
		TotalCents:      m.TotalCents,
		Currency:        intent.Currency,
	}
	for _, item := range m.Items {
		order.Items = append(order.Items, domain.OrderItem{
			ProductID:      item.ProductID,
			Name:           item.Name,
			Quantity:       item.Quantity,
			UnitPriceCents: item.UnitPriceCents,
		})
	}
	return order
}

// publishConfirmation enqueues the order-confirmation email. Best effort:
// the order is already committed, so failures are logged and counted but
// never undo anything.
func (r *Reconciler) publishConfirmation(ctx context.Context, order *domain.Order) {
	if r.publisher == nil {
		return
	}

	err := r.publisher.PublishNotification(ctx, jobs.Notification{
		Kind:      email.KindOrderConfirmation,
		Recipient: order.CustomerEmail(),
		Data: email.TemplateData{
			OrderNumber:  order.OrderNumber,
			TotalDisplay: email.FormatCents(order.TotalCents),
		},
	})
	if err != nil {
		r.logger.Warn().Err(err).
			Str("order_number", order.OrderNumber).
			Msg("failed to publish order confirmation")
		if telemetry.Business != nil {
			telemetry.Business.NotificationPublishErrs.Inc()
		}
	}
}
