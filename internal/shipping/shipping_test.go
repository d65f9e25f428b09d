package shipping

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlatRateQuoter(t *testing.T) {
	q := NewFlatRateQuoter(795)
	assert.Equal(t, int64(795), q.ShippingCents(100))
	assert.Equal(t, int64(795), q.ShippingCents(1000000))
}

func TestFlatRateQuoterFreeAbove(t *testing.T) {
	q := NewFlatRateQuoter(795).WithFreeAbove(5000)

	assert.Equal(t, int64(795), q.ShippingCents(4999))
	assert.Equal(t, int64(0), q.ShippingCents(5000))
	assert.Equal(t, int64(0), q.ShippingCents(12000))
}
