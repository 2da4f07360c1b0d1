//go:build unit

package shipment_test

import (
	"testing"
	"time"

	"orderflow/internal/domain/shipment"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cmpOpts = []cmp.Option{
	cmpopts.EquateEmpty(),
}

func testAddress() shipment.Address {
	return shipment.Address{
		Line1:      "1 Market St",
		City:       "San Francisco",
		State:      "CA",
		PostalCode: "94105",
		Country:    "US",
	}
}

func testLabel() shipment.Label {
	eta := time.Date(2026, 2, 15, 0, 0, 0, 0, time.UTC)
	return shipment.Label{
		Carrier:           "MOCK_CARRIER",
		TrackingNumber:    "TRK-123",
		LabelURL:          "https://labels.example.com/TRK-123",
		EstimatedDelivery: &eta,
	}
}

func newCreated(t *testing.T, now time.Time) *shipment.Shipment {
	t.Helper()
	s, err := shipment.NewShipment("order-1", "user-1", []shipment.Item{
		{SKUID: "SKU-1", Quantity: 2, WeightGrams: 250},
	}, testAddress(), now, nil)
	require.NoError(t, err)
	return s
}

func TestNormalizeItems(t *testing.T) {
	t.Run("empty list falls back to a placeholder line", func(t *testing.T) {
		got := shipment.NormalizeItems(nil)

		want := []shipment.Item{
			{SKUID: shipment.PlaceholderSKU, Quantity: 1, WeightGrams: shipment.DefaultItemWeightGrams},
		}
		if diff := cmp.Diff(want, got, cmpOpts...); diff != "" {
			t.Errorf("items mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("zero weight gets the default", func(t *testing.T) {
		got := shipment.NormalizeItems([]shipment.Item{
			{SKUID: "SKU-1", Quantity: 3},
			{SKUID: "SKU-2", Quantity: 1, WeightGrams: 100},
		})

		assert.Equal(t, shipment.DefaultItemWeightGrams, got[0].WeightGrams)
		assert.Equal(t, int64(100), got[1].WeightGrams)
	})
}

func TestNewShipment(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

	t.Run("creates in created status", func(t *testing.T) {
		s := newCreated(t, now)

		assert.Equal(t, shipment.StatusCreated, s.Status())
		assert.Equal(t, "order-1", s.OrderID())
		assert.Equal(t, now, s.CreatedAt())
		assert.Nil(t, s.Carrier())
		assert.Nil(t, s.TrackingNumber())
	})

	t.Run("rejects missing order id", func(t *testing.T) {
		_, err := shipment.NewShipment("", "user-1", nil, testAddress(), now, nil)
		assert.ErrorIs(t, err, shipment.ErrMissingOrderID)
	})

	t.Run("missing items are replaced with a placeholder", func(t *testing.T) {
		s, err := shipment.NewShipment("order-1", "user-1", nil, testAddress(), now, nil)
		require.NoError(t, err)

		require.Len(t, s.Items(), 1)
		assert.Equal(t, shipment.PlaceholderSKU, s.Items()[0].SKUID)
	})
}

func TestEstimatedWeightGrams(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	s, err := shipment.NewShipment("order-1", "user-1", []shipment.Item{
		{SKUID: "SKU-1", Quantity: 2, WeightGrams: 250},
		{SKUID: "SKU-2", Quantity: 3},
	}, testAddress(), now, nil)
	require.NoError(t, err)

	// 2*250 + 3*default
	assert.Equal(t, int64(500+3*shipment.DefaultItemWeightGrams), s.EstimatedWeightGrams())
}

func TestPurchaseLabel(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

	t.Run("from created", func(t *testing.T) {
		s := newCreated(t, now)
		require.NoError(t, s.PurchaseLabel(testLabel(), now))

		assert.Equal(t, shipment.StatusLabelPurchased, s.Status())
		require.NotNil(t, s.Carrier())
		assert.Equal(t, "MOCK_CARRIER", *s.Carrier())
		require.NotNil(t, s.TrackingNumber())
		assert.Equal(t, "TRK-123", *s.TrackingNumber())
		require.NotNil(t, s.LabelCreatedAt())
	})

	t.Run("rejected when already labeled", func(t *testing.T) {
		s := newCreated(t, now)
		require.NoError(t, s.PurchaseLabel(testLabel(), now))

		assert.ErrorIs(t, s.PurchaseLabel(testLabel(), now), shipment.ErrLabelNotPending)
	})

	t.Run("rejected without carrier or tracking number", func(t *testing.T) {
		s := newCreated(t, now)
		assert.ErrorIs(t, s.PurchaseLabel(shipment.Label{Carrier: "MOCK_CARRIER"}, now), shipment.ErrLabelIncomplete)
		assert.Equal(t, shipment.StatusCreated, s.Status())
	})
}

func TestCancel(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

	t.Run("before label purchase no shipping refund is due", func(t *testing.T) {
		s := newCreated(t, now)

		refund, err := s.Cancel("order_canceled", now)
		require.NoError(t, err)
		assert.False(t, refund)
		assert.Equal(t, shipment.StatusCanceled, s.Status())
		require.NotNil(t, s.CancellationReason())
		assert.Equal(t, "order_canceled", *s.CancellationReason())
	})

	t.Run("after label purchase the shipping refund is due", func(t *testing.T) {
		s := newCreated(t, now)
		require.NoError(t, s.PurchaseLabel(testLabel(), now))

		refund, err := s.Cancel("order_canceled", now)
		require.NoError(t, err)
		assert.True(t, refund)
	})

	t.Run("cancel twice", func(t *testing.T) {
		s := newCreated(t, now)
		_, err := s.Cancel("first", now)
		require.NoError(t, err)

		_, err = s.Cancel("second", now)
		assert.ErrorIs(t, err, shipment.ErrAlreadyCanceled)
		assert.Equal(t, "first", *s.CancellationReason())
	})

	t.Run("in transit cannot be canceled", func(t *testing.T) {
		s := newCreated(t, now)
		require.NoError(t, s.PurchaseLabel(testLabel(), now))
		require.NoError(t, s.MarkInTransit(now))

		_, err := s.Cancel("too late", now)
		assert.ErrorIs(t, err, shipment.ErrNotCancelable)
	})
}

func TestTransitAndDelivery(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	s := newCreated(t, now)

	assert.ErrorIs(t, s.MarkInTransit(now), shipment.ErrNotInTransitable)
	assert.ErrorIs(t, s.MarkDelivered(now), shipment.ErrNotInTransitable)

	require.NoError(t, s.PurchaseLabel(testLabel(), now))
	require.NoError(t, s.MarkInTransit(now))
	assert.Equal(t, shipment.StatusInTransit, s.Status())
	require.NotNil(t, s.ShippedAt())

	require.NoError(t, s.MarkDelivered(now))
	assert.Equal(t, shipment.StatusDelivered, s.Status())
	require.NotNil(t, s.DeliveredAt())
}
