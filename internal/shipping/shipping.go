// Package shipping provides the injectable shipping quote used by checkout.
package shipping

// Quoter computes the shipping charge for an order.
type Quoter interface {
	// ShippingCents returns the shipping charge given the order subtotal.
	ShippingCents(subtotalCents int64) int64
}

// FlatRateQuoter charges a flat rate per order, free at or above an optional
// subtotal threshold.
type FlatRateQuoter struct {
	rateCents           int64
	freeAboveCents      int64
	freeAboveConfigured bool
}

// NewFlatRateQuoter creates a flat-rate quoter.
func NewFlatRateQuoter(rateCents int64) *FlatRateQuoter {
	return &FlatRateQuoter{rateCents: rateCents}
}

// WithFreeAbove enables free shipping at or above the given subtotal.
func (q *FlatRateQuoter) WithFreeAbove(thresholdCents int64) *FlatRateQuoter {
	q.freeAboveCents = thresholdCents
	q.freeAboveConfigured = true
	return q
}

// ShippingCents returns the flat rate, or 0 above the free threshold.
func (q *FlatRateQuoter) ShippingCents(subtotalCents int64) int64 {
	if q.freeAboveConfigured && subtotalCents >= q.freeAboveCents {
		return 0
	}
	return q.rateCents
}
