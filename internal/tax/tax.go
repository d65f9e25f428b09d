// Package tax provides the injectable tax policy used by checkout.
// The rate is configuration, not a literal constant in checkout code, and the
// same policy instance serves guest and authenticated checkouts.
package tax

import (
	"fmt"
	"math"
)

// Policy computes the tax charge for an order.
type Policy interface {
	// TaxCents returns the tax on the taxable base (subtotal minus
	// discount, plus shipping).
	TaxCents(taxableCents int64) int64
}

// PercentagePolicy applies a single flat rate with half-up rounding.
type PercentagePolicy struct {
	rate float64
}

// NewPercentagePolicy creates a flat-rate policy. Rate is a fraction, e.g.
// 0.08 for 8%.
func NewPercentagePolicy(rate float64) (*PercentagePolicy, error) {
	if rate < 0 || rate > 1 {
		return nil, fmt.Errorf("tax rate must be between 0 and 1, got %v", rate)
	}
	return &PercentagePolicy{rate: rate}, nil
}

// TaxCents returns taxable * rate, rounded half-up.
func (p *PercentagePolicy) TaxCents(taxableCents int64) int64 {
	if taxableCents <= 0 {
		return 0
	}
	return int64(math.Round(float64(taxableCents) * p.rate))
}

// ZeroPolicy charges no tax.
type ZeroPolicy struct{}

// NewZeroPolicy creates a policy that always returns zero.
func NewZeroPolicy() *ZeroPolicy {
	return &ZeroPolicy{}
}

// TaxCents always returns 0.
func (*ZeroPolicy) TaxCents(int64) int64 {
	return 0
}

// FromRate returns the zero policy for a zero rate and a percentage policy
// otherwise. Convenience for wiring from config.
func FromRate(rate float64) (Policy, error) {
	if rate == 0 {
		return NewZeroPolicy(), nil
	}
	return NewPercentagePolicy(rate)
}
