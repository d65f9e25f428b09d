package service

import (
	"encoding/json"
	"strconv"

	"github.com/dukerupert/emberbean/internal/domain"
	"github.com/google/uuid"
)

// Metadata keys carried on the payment intent. Together they form the
// reconciliation manifest: the canonical snapshot of what was sold and for
// how much. Webhook-time order creation reads only this, never the live cart.
const (
	metaCartID        = "cart_id"
	metaUserID        = "user_id"
	metaGuestEmail    = "guest_email"
	metaUserEmail     = "user_email"
	metaItems         = "items"
	metaSubtotalCents = "subtotal_cents"
	metaDiscountCents = "discount_cents"
	metaTaxCents      = "tax_cents"
	metaShippingCents = "shipping_cents"
	metaTotalCents    = "total_cents"
)

// manifestItem is one sold line in the intent metadata.
type manifestItem struct {
	ProductID      uuid.UUID `json:"product_id"`
	Name           string    `json:"name"`
	Quantity       int32     `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
}

// manifest is the decoded reconciliation snapshot.
type manifest struct {
	CartID     uuid.UUID
	UserID     *uuid.UUID
	UserEmail  string
	GuestEmail string

	Items []manifestItem

	SubtotalCents int64
	DiscountCents int64
	TaxCents      int64
	ShippingCents int64
	TotalCents    int64
}

// encodeManifest renders the manifest as flat intent metadata.
func encodeManifest(m manifest) (map[string]string, error) {
	items, err := json.Marshal(m.Items)
	if err != nil {
		return nil, domain.Internal(err, "checkout.manifest", "failed to encode item manifest")
	}

	meta := map[string]string{
		metaCartID:        m.CartID.String(),
		metaItems:         string(items),
		metaSubtotalCents: strconv.FormatInt(m.SubtotalCents, 10),
		metaDiscountCents: strconv.FormatInt(m.DiscountCents, 10),
		metaTaxCents:      strconv.FormatInt(m.TaxCents, 10),
		metaShippingCents: strconv.FormatInt(m.ShippingCents, 10),
		metaTotalCents:    strconv.FormatInt(m.TotalCents, 10),
	}
	if m.UserID != nil {
		meta[metaUserID] = m.UserID.String()
		meta[metaUserEmail] = m.UserEmail
	} else {
		meta[metaGuestEmail] = m.GuestEmail
	}
	return meta, nil
}

// decodeManifest parses intent metadata back into a manifest. A payment
// event whose metadata does not decode is unprocessable and surfaces
// EINVALID; the webhook handler answers 5xx so the provider redelivers and
// the failure stays visible.
func decodeManifest(meta map[string]string) (*manifest, error) {
	const op = "reconcile.manifest"

	cartID, err := uuid.Parse(meta[metaCartID])
	if err != nil {
		return nil, domain.Errorf(domain.EINVALID, op, "missing or malformed cart_id in intent metadata")
	}

	m := &manifest{
		CartID:     cartID,
		UserEmail:  meta[metaUserEmail],
		GuestEmail: meta[metaGuestEmail],
	}

	if raw, ok := meta[metaUserID]; ok && raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, domain.Errorf(domain.EINVALID, op, "malformed user_id in intent metadata")
		}
		m.UserID = &id
	}
	if m.UserID == nil && m.GuestEmail == "" {
		return nil, domain.Errorf(domain.EINVALID, op, "intent metadata carries no identity channel")
	}
	if m.UserID != nil && m.GuestEmail != "" {
		return nil, domain.Errorf(domain.EINVALID, op, "intent metadata carries both identity channels")
	}

	if err := json.Unmarshal([]byte(meta[metaItems]), &m.Items); err != nil {
		return nil, domain.Errorf(domain.EINVALID, op, "malformed item manifest in intent metadata")
	}
	if len(m.Items) == 0 {
		return nil, domain.Errorf(domain.EINVALID, op, "empty item manifest in intent metadata")
	}

	for key, dst := range map[string]*int64{
		metaSubtotalCents: &m.SubtotalCents,
		metaDiscountCents: &m.DiscountCents,
		metaTaxCents:      &m.TaxCents,
		metaShippingCents: &m.ShippingCents,
		metaTotalCents:    &m.TotalCents,
	} {
		v, err := strconv.ParseInt(meta[key], 10, 64)
		if err != nil {
			return nil, domain.Errorf(domain.EINVALID, op, "missing or malformed %s in intent metadata", key)
		}
		*dst = v
	}

	return m, nil
}
