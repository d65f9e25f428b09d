package service

import (
	"context"
	"fmt"

	"github.com/dukerupert/emberbean/internal/billing"
	"github.com/dukerupert/emberbean/internal/domain"
	"github.com/dukerupert/emberbean/internal/shipping"
	"github.com/dukerupert/emberbean/internal/tax"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CheckoutService prices carts and opens payment intents. Every amount is
// computed server-side from the catalog; client-submitted prices do not
// exist in this API.
type CheckoutService struct {
	store    domain.Store
	catalog  domain.CatalogGateway
	billing  billing.Provider
	tax      tax.Policy
	shipping shipping.Quoter
	currency string
	logger   zerolog.Logger
}

// NewCheckoutService creates a checkout service.
func NewCheckoutService(
	store domain.Store,
	catalog domain.CatalogGateway,
	provider billing.Provider,
	taxPolicy tax.Policy,
	quoter shipping.Quoter,
	currency string,
	logger zerolog.Logger,
) *CheckoutService {
	return &CheckoutService{
		store:    store,
		catalog:  catalog,
		billing:  provider,
		tax:      taxPolicy,
		shipping: quoter,
		currency: currency,
		logger:   logger.With().Str("service", "checkout").Logger(),
	}
}

// QuoteLine is one priced cart line in a quote.
type QuoteLine struct {
	ProductID      uuid.UUID `json:"productId"`
	Name           string    `json:"name"`
	Quantity       int32     `json:"quantity"`
	UnitPriceCents int64     `json:"unitPriceCents"`
	LineTotalCents int64     `json:"lineTotalCents"`
}

// Quote is the totals breakdown for a cart at current catalog prices.
type Quote struct {
	Lines []QuoteLine `json:"lines"`

	SubtotalCents int64  `json:"subtotalCents"`
	DiscountCents int64  `json:"discountCents"`
	TaxCents      int64  `json:"taxCents"`
	ShippingCents int64  `json:"shippingCents"`
	TotalCents    int64  `json:"totalCents"`
	Currency      string `json:"currency"`
}

// Quote prices the cart. Tax applies to subtotal minus discount plus
// shipping, per the injected policy.
func (s *CheckoutService) Quote(ctx context.Context, cartID uuid.UUID, discountCents int64) (*Quote, error) {
	const op = "checkout.quote"

	cart, err := s.store.GetCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	return s.priceCart(ctx, op, cart, discountCents)
}

// CreateIntentParams is the input to CreateIntent.
type CreateIntentParams struct {
	CartID uuid.UUID

	// GuestEmail identifies a guest checkout. Must be empty when the
	// request is authenticated; exactly one identity channel applies.
	GuestEmail string

	// DiscountCents is an opaque, already-resolved discount amount.
	// Coupon arithmetic happens upstream of this service.
	DiscountCents int64
}

// CheckoutIntent is what the storefront needs to confirm payment.
type CheckoutIntent struct {
	PaymentIntentID string `json:"paymentIntentId"`
	ClientSecret    string `json:"clientSecret"`

	Quote *Quote `json:"quote"`
}

// CreateIntent prices the cart and opens a payment intent carrying the
// reconciliation manifest. The intent's metadata is the only input the
// webhook-time reconciler will trust.
func (s *CheckoutService) CreateIntent(ctx context.Context, params CreateIntentParams) (*CheckoutIntent, error) {
	const op = "checkout.intent"

	user := domain.UserFromContext(ctx)
	if user == nil && params.GuestEmail == "" {
		return nil, domain.Invalid(op, "guest_email is required for guest checkout")
	}
	if user != nil && params.GuestEmail != "" {
		return nil, domain.Invalid(op, "authenticated checkout must not supply guest_email")
	}

	cart, err := s.store.GetCart(ctx, params.CartID)
	if err != nil {
		return nil, err
	}
	if cart.UserID != nil && (user == nil || user.ID != *cart.UserID) {
		return nil, domain.Forbidden(op, "cart belongs to another customer")
	}

	quote, err := s.priceCart(ctx, op, cart, params.DiscountCents)
	if err != nil {
		return nil, err
	}

	m := manifest{
		CartID:        cart.ID,
		GuestEmail:    params.GuestEmail,
		SubtotalCents: quote.SubtotalCents,
		DiscountCents: quote.DiscountCents,
		TaxCents:      quote.TaxCents,
		ShippingCents: quote.ShippingCents,
		TotalCents:    quote.TotalCents,
	}
	if user != nil {
		m.UserID = &user.ID
		m.UserEmail = user.Email
	}
	for _, line := range quote.Lines {
		m.Items = append(m.Items, manifestItem{
			ProductID:      line.ProductID,
			Name:           line.Name,
			Quantity:       line.Quantity,
			UnitPriceCents: line.UnitPriceCents,
		})
	}

	metadata, err := encodeManifest(m)
	if err != nil {
		return nil, err
	}

	receipt := params.GuestEmail
	if user != nil {
		receipt = user.Email
	}

	intent, err := s.billing.CreatePaymentIntent(ctx, billing.CreatePaymentIntentParams{
		AmountCents:  quote.TotalCents,
		Currency:     quote.Currency,
		ReceiptEmail: receipt,
		Description:  "EmberBean order",
		Metadata:     metadata,
		// One intent per cart-and-total; retrying the same checkout
		// reuses the intent instead of opening a second charge.
		IdempotencyKey: fmt.Sprintf("checkout-%s-%d", cart.ID, quote.TotalCents),
	})
	if err != nil {
		return nil, domain.WrapError(err, domain.EPAYMENT, op, "payment provider rejected the intent")
	}

	s.logger.Info().
		Str("payment_intent_id", intent.ID).
		Str("cart_id", cart.ID.String()).
		Int64("total_cents", quote.TotalCents).
		Msg("payment intent created")

	return &CheckoutIntent{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		Quote:           quote,
	}, nil
}

// priceCart revalidates every line against the catalog and computes the
// totals breakdown. A missing, inactive, or out-of-stock product fails the
// whole quote, naming the offending product.
func (s *CheckoutService) priceCart(ctx context.Context, op string, cart *domain.Cart, discountCents int64) (*Quote, error) {
	if len(cart.Items) == 0 {
		return nil, domain.Invalid(op, "cart is empty")
	}
	if discountCents < 0 {
		return nil, domain.Invalid(op, "discount must not be negative")
	}

	ids := make([]uuid.UUID, len(cart.Items))
	for i, item := range cart.Items {
		ids[i] = item.ProductID
	}

	products, err := s.catalog.FindMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	quote := &Quote{Currency: s.currency}
	for i, item := range cart.Items {
		product := products[i]
		if err := checkPurchasable(op, &product); err != nil {
			return nil, err
		}

		line := QuoteLine{
			ProductID:      product.ID,
			Name:           product.Name,
			Quantity:       item.Quantity,
			UnitPriceCents: product.PriceCents,
			LineTotalCents: product.PriceCents * int64(item.Quantity),
		}
		quote.Lines = append(quote.Lines, line)
		quote.SubtotalCents += line.LineTotalCents
	}

	if discountCents > quote.SubtotalCents {
		return nil, domain.Invalid(op, "discount exceeds the cart subtotal")
	}
	quote.DiscountCents = discountCents
	quote.ShippingCents = s.shipping.ShippingCents(quote.SubtotalCents)
	quote.TaxCents = s.tax.TaxCents(quote.SubtotalCents - quote.DiscountCents + quote.ShippingCents)
	quote.TotalCents = quote.SubtotalCents - quote.DiscountCents + quote.ShippingCents + quote.TaxCents

	return quote, nil
}
