//go:build unit

package fulfillment_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"orderflow/internal/domain/shipment"
	"orderflow/internal/event"
	"orderflow/internal/eventbus"
	"orderflow/internal/infra"
	"orderflow/internal/pkg/clock"
	"orderflow/internal/pkg/errs"
	"orderflow/internal/saga/fulfillment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var baseTime = time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

type recordingBus struct {
	mu     sync.Mutex
	events []event.Event
}

func (b *recordingBus) Publish(_ context.Context, e event.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
	return nil
}

func (b *recordingBus) byType(eventType string) []event.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []event.Event
	for _, e := range b.events {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

// fakeStore mirrors the conditional-update contract of the Postgres
// repository.
type fakeStore struct {
	mu   sync.Mutex
	rows []*shipment.Shipment

	failWith error
	missOnce bool
}

func (s *fakeStore) find(orderID string) *shipment.Shipment {
	for i := len(s.rows) - 1; i >= 0; i-- {
		if s.rows[i].OrderID() == orderID {
			return s.rows[i]
		}
	}
	return nil
}

func (s *fakeStore) Create(_ context.Context, sh *shipment.Shipment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	if existing := s.find(sh.OrderID()); existing != nil && !existing.IsCanceled() {
		return infra.WrapRepoErr("shipment already open", nil, infra.KindDuplicateKey)
	}
	s.rows = append(s.rows, sh)
	return nil
}

func (s *fakeStore) FindByOrderID(_ context.Context, orderID string) (*shipment.Shipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	if s.missOnce {
		s.missOnce = false
		return nil, infra.WrapRepoErr("shipment not found", nil, infra.KindNotFound)
	}
	if sh := s.find(orderID); sh != nil {
		return sh, nil
	}
	return nil, infra.WrapRepoErr("shipment not found", nil, infra.KindNotFound)
}

func (s *fakeStore) AttachLabel(_ context.Context, orderID string, label shipment.Label, now time.Time) (*shipment.Shipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	sh := s.find(orderID)
	if sh == nil || sh.Status() != shipment.StatusCreated {
		return nil, infra.WrapRepoErr("no shipment awaiting a label", nil, infra.KindNotFound)
	}
	if err := sh.PurchaseLabel(label, now); err != nil {
		return nil, infra.WrapRepoErr("attach label failed", err)
	}
	return sh, nil
}

func (s *fakeStore) CancelFrom(_ context.Context, orderID string, from shipment.Status, reason string, now time.Time) (*shipment.Shipment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return nil, s.failWith
	}
	sh := s.find(orderID)
	if sh == nil || sh.Status() != from {
		return nil, infra.WrapRepoErr("shipment status changed", nil, infra.KindConflict)
	}
	if _, err := sh.Cancel(reason, now); err != nil {
		return nil, infra.WrapRepoErr("cancel failed", err)
	}
	return sh, nil
}

// failingProvider rejects every purchase.
type failingProvider struct{}

func (failingProvider) PurchaseLabel(context.Context, *shipment.Shipment) (shipment.Label, error) {
	return shipment.Label{}, errs.New("carrier API unreachable")
}

type fixture struct {
	participant *fulfillment.Participant
	store       *fakeStore
	bus         *recordingBus
	clock       *clock.MockClock
}

func newFixture(t *testing.T, provider fulfillment.Provider) *fixture {
	t.Helper()
	store := &fakeStore{}
	bus := &recordingBus{}
	clk := clock.NewMockClock(baseTime)
	logger := slog.New(slog.DiscardHandler)
	if provider == nil {
		provider = fulfillment.NewStaticProvider("MOCK_CARRIER", clk)
	}
	publisher := fulfillment.NewPublisher(bus, logger)
	return &fixture{
		participant: fulfillment.NewParticipant(store, provider, publisher, clk, logger),
		store:       store,
		bus:         bus,
		clock:       clk,
	}
}

func addr() shipment.Address {
	return shipment.Address{Line1: "1 Market St", City: "San Francisco", PostalCode: "94105", Country: "US"}
}

func items() []shipment.Item {
	return []shipment.Item{{SKUID: "SKU-1", Quantity: 2, WeightGrams: 250}}
}

func TestPrepare(t *testing.T) {
	ctx := context.Background()

	t.Run("creates the shipment and announces it", func(t *testing.T) {
		f := newFixture(t, nil)

		s, err := f.participant.Prepare(ctx, "o-1", "u-1", items(), addr(), "tax_service.tax.calculated")
		require.NoError(t, err)
		assert.Equal(t, shipment.StatusCreated, s.Status())

		prepared := f.bus.byType(event.TypeShipmentPrepared)
		require.Len(t, prepared, 1)

		var payload fulfillment.PreparedPayload
		require.NoError(t, json.Unmarshal(prepared[0].Data, &payload))
		assert.Equal(t, "o-1", payload.OrderID)
		assert.Equal(t, int64(500), payload.EstimatedWeightGrams)
		assert.Equal(t, "tax_service.tax.calculated", payload.Metadata.SourceEvent)
	})

	t.Run("redelivery returns the existing shipment without a second event", func(t *testing.T) {
		f := newFixture(t, nil)

		first, err := f.participant.Prepare(ctx, "o-1", "u-1", items(), addr(), "")
		require.NoError(t, err)
		second, err := f.participant.Prepare(ctx, "o-1", "u-1", items(), addr(), "")
		require.NoError(t, err)

		assert.Equal(t, first.ID(), second.ID())
		assert.Len(t, f.bus.byType(event.TypeShipmentPrepared), 1)
	})

	t.Run("no items still yields a placeholder shipment", func(t *testing.T) {
		f := newFixture(t, nil)

		s, err := f.participant.Prepare(ctx, "o-1", "u-1", nil, addr(), "")
		require.NoError(t, err)
		require.Len(t, s.Items(), 1)
		assert.Equal(t, shipment.PlaceholderSKU, s.Items()[0].SKUID)
	})

	t.Run("losing a concurrent create returns the winner's row", func(t *testing.T) {
		f := newFixture(t, nil)
		winner, err := f.participant.Prepare(ctx, "o-1", "u-1", items(), addr(), "")
		require.NoError(t, err)

		f.store.missOnce = true
		s, err := f.participant.Prepare(ctx, "o-1", "u-1", items(), addr(), "")
		require.NoError(t, err)
		assert.Equal(t, winner.ID(), s.ID())
		assert.Len(t, f.bus.byType(event.TypeShipmentPrepared), 1)
	})
}

func TestPurchaseLabel(t *testing.T) {
	ctx := context.Background()

	t.Run("labels a created shipment and announces it", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.participant.Prepare(ctx, "o-1", "u-1", items(), addr(), "")
		require.NoError(t, err)

		s, err := f.participant.PurchaseLabel(ctx, "o-1", "payment_service.payment.completed")
		require.NoError(t, err)
		assert.Equal(t, shipment.StatusLabelPurchased, s.Status())
		require.NotNil(t, s.TrackingNumber())

		created := f.bus.byType(event.TypeLabelCreated)
		require.Len(t, created, 1)

		var payload fulfillment.LabelCreatedPayload
		require.NoError(t, json.Unmarshal(created[0].Data, &payload))
		assert.Equal(t, "MOCK_CARRIER", payload.Carrier)
		assert.NotEmpty(t, payload.TrackingNumber)
	})

	t.Run("missing shipment is a logged no-op", func(t *testing.T) {
		f := newFixture(t, nil)

		_, err := f.participant.PurchaseLabel(ctx, "o-unknown", "")
		assert.ErrorIs(t, err, fulfillment.ErrShipmentNotFound)
		assert.Empty(t, f.bus.byType(event.TypeLabelCreated))
	})

	t.Run("redelivery after purchase is a no-op", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.participant.Prepare(ctx, "o-1", "u-1", items(), addr(), "")
		require.NoError(t, err)
		_, err = f.participant.PurchaseLabel(ctx, "o-1", "")
		require.NoError(t, err)

		s, err := f.participant.PurchaseLabel(ctx, "o-1", "")
		require.NoError(t, err)
		assert.Equal(t, shipment.StatusLabelPurchased, s.Status())
		assert.Len(t, f.bus.byType(event.TypeLabelCreated), 1)
	})

	t.Run("provider failure reports and leaves the row retryable", func(t *testing.T) {
		f := newFixture(t, failingProvider{})
		_, err := f.participant.Prepare(ctx, "o-1", "u-1", items(), addr(), "")
		require.NoError(t, err)

		_, err = f.participant.PurchaseLabel(ctx, "o-1", "payment_service.payment.completed")
		assert.ErrorIs(t, err, fulfillment.ErrProvider)

		failed := f.bus.byType(event.TypeShipmentFailed)
		require.Len(t, failed, 1)
		var payload fulfillment.FailedPayload
		require.NoError(t, json.Unmarshal(failed[0].Data, &payload))
		assert.Equal(t, fulfillment.ErrCodeLabelCreationError, payload.ErrorCode)

		s, err := f.participant.Get(ctx, "o-1")
		require.NoError(t, err)
		assert.Equal(t, shipment.StatusCreated, s.Status())
	})
}

func TestCancelShipment(t *testing.T) {
	ctx := context.Background()

	t.Run("before label purchase no shipping refund is due", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.participant.Prepare(ctx, "o-1", "u-1", items(), addr(), "")
		require.NoError(t, err)

		s, err := f.participant.Cancel(ctx, "o-1", "order_canceled", "order_service.order.canceled")
		require.NoError(t, err)
		assert.Equal(t, shipment.StatusCanceled, s.Status())

		canceled := f.bus.byType(event.TypeShipmentCanceled)
		require.Len(t, canceled, 1)
		var payload fulfillment.CanceledPayload
		require.NoError(t, json.Unmarshal(canceled[0].Data, &payload))
		assert.False(t, payload.RefundShipping)
	})

	t.Run("after label purchase the shipping refund is due", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.participant.Prepare(ctx, "o-1", "u-1", items(), addr(), "")
		require.NoError(t, err)
		_, err = f.participant.PurchaseLabel(ctx, "o-1", "")
		require.NoError(t, err)

		_, err = f.participant.Cancel(ctx, "o-1", "order_canceled", "")
		require.NoError(t, err)

		canceled := f.bus.byType(event.TypeShipmentCanceled)
		require.Len(t, canceled, 1)
		var payload fulfillment.CanceledPayload
		require.NoError(t, json.Unmarshal(canceled[0].Data, &payload))
		assert.True(t, payload.RefundShipping)
	})

	t.Run("cancel twice only fires one event", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.participant.Prepare(ctx, "o-1", "u-1", items(), addr(), "")
		require.NoError(t, err)
		_, err = f.participant.Cancel(ctx, "o-1", "first", "")
		require.NoError(t, err)

		s, err := f.participant.Cancel(ctx, "o-1", "second", "")
		assert.ErrorIs(t, err, fulfillment.ErrAlreadyCanceled)
		require.NotNil(t, s)
		assert.Equal(t, "first", *s.CancellationReason())
		assert.Len(t, f.bus.byType(event.TypeShipmentCanceled), 1)
	})

	t.Run("missing shipment is a no-op", func(t *testing.T) {
		f := newFixture(t, nil)

		_, err := f.participant.Cancel(ctx, "o-unknown", "order_canceled", "")
		assert.ErrorIs(t, err, fulfillment.ErrShipmentNotFound)
	})
}

func TestFulfillmentHandlers(t *testing.T) {
	ctx := context.Background()

	mkEvent := func(t *testing.T, source, eventType, data string) event.Event {
		t.Helper()
		e, err := event.New(source, eventType, json.RawMessage(data))
		require.NoError(t, err)
		return e
	}

	t.Run("tax.calculated prepares the shipment", func(t *testing.T) {
		f := newFixture(t, nil)
		e := mkEvent(t, event.SourceTaxService, event.TypeTaxCalculated,
			`{"order_id":"o-1","user_id":"u-1",
			  "shipping_address":{"line1":"1 Market St","city":"SF","postal_code":"94105","country":"US"},
			  "metadata":{"items":[{"sku_id":"s-1","quantity":2}]}}`)

		require.NoError(t, f.participant.HandleTaxCalculated(ctx, e))

		s, err := f.participant.Get(ctx, "o-1")
		require.NoError(t, err)
		assert.Equal(t, "1 Market St", s.ShippingAddress().Line1)
		require.Len(t, s.Items(), 1)
		assert.Equal(t, "s-1", s.Items()[0].SKUID)
	})

	t.Run("tax.calculated without items prepares a placeholder shipment", func(t *testing.T) {
		f := newFixture(t, nil)
		e := mkEvent(t, event.SourceTaxService, event.TypeTaxCalculated, `{"order_id":"o-1"}`)

		require.NoError(t, f.participant.HandleTaxCalculated(ctx, e))

		s, err := f.participant.Get(ctx, "o-1")
		require.NoError(t, err)
		require.Len(t, s.Items(), 1)
		assert.Equal(t, shipment.PlaceholderSKU, s.Items()[0].SKUID)
	})

	t.Run("payment before tax.calculated acks without side effects", func(t *testing.T) {
		f := newFixture(t, nil)
		e := mkEvent(t, event.SourcePaymentService, event.TypePaymentCompleted, `{"order_id":"o-1"}`)

		require.NoError(t, f.participant.HandlePaymentCompleted(ctx, e))
		assert.Empty(t, f.bus.byType(event.TypeLabelCreated))
	})

	t.Run("provider failure acks so redelivery of the trigger retries", func(t *testing.T) {
		f := newFixture(t, failingProvider{})
		_, err := f.participant.Prepare(ctx, "o-1", "u-1", items(), addr(), "")
		require.NoError(t, err)

		e := mkEvent(t, event.SourcePaymentService, event.TypePaymentCompleted, `{"order_id":"o-1"}`)
		assert.NoError(t, f.participant.HandlePaymentCompleted(ctx, e))
	})

	t.Run("store failure asks for redelivery", func(t *testing.T) {
		f := newFixture(t, nil)
		f.store.failWith = infra.WrapRepoErr("connection refused", errs.New("dial tcp"))

		e := mkEvent(t, event.SourceOrderService, event.TypeOrderCanceled, `{"order_id":"o-1"}`)
		err := f.participant.HandleOrderCanceled(ctx, e)
		assert.ErrorIs(t, err, eventbus.ErrRetryable)
	})

	t.Run("order.canceled cancels the shipment", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.participant.Prepare(ctx, "o-1", "u-1", items(), addr(), "")
		require.NoError(t, err)

		e := mkEvent(t, event.SourceOrderService, event.TypeOrderCanceled, `{"order_id":"o-1","reason":"customer_request"}`)
		require.NoError(t, f.participant.HandleOrderCanceled(ctx, e))

		s, err := f.participant.Get(ctx, "o-1")
		require.NoError(t, err)
		assert.Equal(t, shipment.StatusCanceled, s.Status())
		require.NotNil(t, s.CancellationReason())
		assert.Equal(t, "customer_request", *s.CancellationReason())
	})
}
