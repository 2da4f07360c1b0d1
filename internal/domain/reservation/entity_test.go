//go:build unit

package reservation_test

import (
	"testing"
	"time"

	"orderflow/internal/domain/reservation"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var cmpOpts = []cmp.Option{
	cmpopts.EquateEmpty(),
}

func testItems() []reservation.Item {
	price := int64(1999)
	return []reservation.Item{
		{SKUID: "SKU-1", Quantity: 2, UnitPriceCents: &price},
		{SKUID: "SKU-2", Quantity: 1},
	}
}

func TestNewReservation(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	ttl := 30 * time.Minute

	t.Run("creates an active reservation with expiry", func(t *testing.T) {
		r, err := reservation.NewReservation("order-1", "user-1", testItems(), now, ttl, map[string]string{"channel": "web"})
		require.NoError(t, err)
		require.NotNil(t, r)

		assert.NotEqual(t, uuid.Nil, r.ID())
		assert.Equal(t, "order-1", r.OrderID())
		assert.Equal(t, "user-1", r.UserID())
		assert.Equal(t, reservation.StatusActive, r.Status())
		assert.True(t, r.IsActive())
		assert.Equal(t, now.Add(ttl), r.ExpiresAt())
		assert.Equal(t, now, r.CreatedAt())
		assert.Nil(t, r.CommittedAt())
		assert.Nil(t, r.ReleasedAt())

		if diff := cmp.Diff(testItems(), r.Items(), cmpOpts...); diff != "" {
			t.Errorf("items mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("rejects missing order id", func(t *testing.T) {
		_, err := reservation.NewReservation("", "user-1", testItems(), now, ttl, nil)
		assert.ErrorIs(t, err, reservation.ErrMissingOrderID)
	})

	t.Run("rejects empty item list", func(t *testing.T) {
		_, err := reservation.NewReservation("order-1", "user-1", nil, now, ttl, nil)
		assert.ErrorIs(t, err, reservation.ErrNoItems)
	})
}

func TestReservationTransitions(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	later := now.Add(5 * time.Minute)

	newActive := func(t *testing.T) *reservation.Reservation {
		t.Helper()
		r, err := reservation.NewReservation("order-1", "user-1", testItems(), now, 30*time.Minute, nil)
		require.NoError(t, err)
		return r
	}

	t.Run("commit from active", func(t *testing.T) {
		r := newActive(t)
		require.NoError(t, r.Commit(later))

		assert.Equal(t, reservation.StatusCommitted, r.Status())
		require.NotNil(t, r.CommittedAt())
		assert.Equal(t, later, *r.CommittedAt())
	})

	t.Run("release from active", func(t *testing.T) {
		r := newActive(t)
		require.NoError(t, r.Release(later))

		assert.Equal(t, reservation.StatusReleased, r.Status())
		require.NotNil(t, r.ReleasedAt())
		assert.Equal(t, later, *r.ReleasedAt())
	})

	t.Run("commit is rejected once terminal", func(t *testing.T) {
		r := newActive(t)
		require.NoError(t, r.Commit(later))

		assert.ErrorIs(t, r.Commit(later), reservation.ErrNotActive)
		assert.ErrorIs(t, r.Release(later), reservation.ErrNotActive)
		assert.Equal(t, reservation.StatusCommitted, r.Status())
	})

	t.Run("release is rejected once released", func(t *testing.T) {
		r := newActive(t)
		require.NoError(t, r.Release(later))

		assert.ErrorIs(t, r.Release(later), reservation.ErrNotActive)
		assert.ErrorIs(t, r.Commit(later), reservation.ErrNotActive)
	})
}

func TestReservationHasExpired(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	r, err := reservation.NewReservation("order-1", "user-1", testItems(), now, 30*time.Minute, nil)
	require.NoError(t, err)

	assert.False(t, r.HasExpired(now))
	assert.False(t, r.HasExpired(now.Add(30*time.Minute)))
	assert.True(t, r.HasExpired(now.Add(30*time.Minute+time.Second)))

	// Committed reservations never count as expired.
	require.NoError(t, r.Commit(now))
	assert.False(t, r.HasExpired(now.Add(time.Hour)))
}

func TestStatusIsTerminal(t *testing.T) {
	assert.False(t, reservation.StatusActive.IsTerminal())
	assert.True(t, reservation.StatusCommitted.IsTerminal())
	assert.True(t, reservation.StatusReleased.IsTerminal())
}
