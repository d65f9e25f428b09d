package service

import (
	"testing"

	"github.com/dukerupert/emberbean/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManifestRoundTrip(t *testing.T) {
	userID := uuid.New()
	in := manifest{
		CartID:    uuid.New(),
		UserID:    &userID,
		UserEmail: "casey@example.com",
		Items: []manifestItem{
			{ProductID: uuid.New(), Name: "Ethiopia Yirgacheffe", Quantity: 2, UnitPriceCents: 1500},
		},
		SubtotalCents: 3000,
		DiscountCents: 100,
		TaxCents:      240,
		ShippingCents: 500,
		TotalCents:    3640,
	}

	meta, err := encodeManifest(in)
	require.NoError(t, err)

	out, err := decodeManifest(meta)
	require.NoError(t, err)
	assert.Equal(t, in.CartID, out.CartID)
	require.NotNil(t, out.UserID)
	assert.Equal(t, userID, *out.UserID)
	assert.Equal(t, in.Items, out.Items)
	assert.Equal(t, in.TotalCents, out.TotalCents)

	// Guest manifests never carry user keys.
	guestMeta, err := encodeManifest(manifest{
		CartID:     uuid.New(),
		GuestEmail: "guest@example.com",
		Items:      in.Items,
		TotalCents: 3640,
	})
	require.NoError(t, err)
	assert.NotContains(t, guestMeta, metaUserID)
}

func TestDecodeManifestRejections(t *testing.T) {
	valid, err := encodeManifest(manifest{
		CartID:     uuid.New(),
		GuestEmail: "guest@example.com",
		Items:      []manifestItem{{ProductID: uuid.New(), Name: "x", Quantity: 1, UnitPriceCents: 100}},
		TotalCents: 100,
	})
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(meta map[string]string)
	}{
		{"missing cart id", func(m map[string]string) { delete(m, metaCartID) }},
		{"no identity channel", func(m map[string]string) { delete(m, metaGuestEmail) }},
		{"both identity channels", func(m map[string]string) { m[metaUserID] = uuid.NewString() }},
		{"malformed user id", func(m map[string]string) {
			delete(m, metaGuestEmail)
			m[metaUserID] = "pi_not_a_uuid"
		}},
		{"malformed items", func(m map[string]string) { m[metaItems] = "{" }},
		{"empty items", func(m map[string]string) { m[metaItems] = "[]" }},
		{"missing total", func(m map[string]string) { delete(m, metaTotalCents) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			meta := make(map[string]string, len(valid))
			for k, v := range valid {
				meta[k] = v
			}
			tt.mutate(meta)

			_, err := decodeManifest(meta)
			assert.True(t, domain.IsCode(err, domain.EINVALID))
		})
	}
}
