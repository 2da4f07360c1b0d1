package fulfillment

import (
	"context"
	"log/slog"
	"time"

	"orderflow/internal/domain/shipment"
	"orderflow/internal/infra"
	"orderflow/internal/pkg/clock"
	"orderflow/internal/pkg/errs"
)

var (
	ErrShipmentNotFound = errs.New("shipment not found for order")
	ErrAlreadyCanceled  = errs.New("shipment already canceled")
	ErrNotCancelable    = errs.New("shipment is past the point of cancellation")
	ErrStoreFailure     = errs.New("shipment store failure")
)

// Stable error codes carried by fulfillment.shipment.failed events.
const (
	ErrCodePreparationError   = "PREPARATION_ERROR"
	ErrCodeLabelCreationError = "LABEL_CREATION_ERROR"
)

// ShipmentStore is the participant-owned persistence port.
type ShipmentStore interface {
	Create(ctx context.Context, s *shipment.Shipment) error
	FindByOrderID(ctx context.Context, orderID string) (*shipment.Shipment, error)
	AttachLabel(ctx context.Context, orderID string, label shipment.Label, now time.Time) (*shipment.Shipment, error)
	CancelFrom(ctx context.Context, orderID string, from shipment.Status, reason string, now time.Time) (*shipment.Shipment, error)
}

// Participant owns the Shipment lifecycle within the order fulfillment
// saga, tracked independently of the Inventory reservation. Events and
// the administrative HTTP endpoints share these operations.
type Participant struct {
	store     ShipmentStore
	provider  Provider
	publisher *Publisher
	clock     clock.Clock
	logger    *slog.Logger
}

func NewParticipant(store ShipmentStore, provider Provider, publisher *Publisher, clk clock.Clock, logger *slog.Logger) *Participant {
	return &Participant{
		store:     store,
		provider:  provider,
		publisher: publisher,
		clock:     clk,
		logger:    logger,
	}
}

// Prepare creates the shipment for an order once tax has been
// calculated. An existing shipment makes redelivery a no-op. Orders
// without item details still get a shipment, with a single placeholder
// line.
func (p *Participant) Prepare(ctx context.Context, orderID, userID string, items []shipment.Item, addr shipment.Address, sourceEvent string) (*shipment.Shipment, error) {
	existing, err := p.store.FindByOrderID(ctx, orderID)
	switch {
	case err == nil:
		p.logger.Info("shipment already exists, skipping",
			"order_id", orderID, "status", existing.Status().String())
		return existing, nil
	case infra.IsKind(err, infra.KindNotFound):
		// First delivery for this order.
	default:
		return nil, errs.Mark(err, ErrStoreFailure)
	}

	s, err := shipment.NewShipment(orderID, userID, items, addr, p.clock.Now(), map[string]string{"source_event": sourceEvent})
	if err != nil {
		p.publisher.ShipmentFailed(ctx, orderID, userID, ErrCodePreparationError, err.Error(), sourceEvent)
		return nil, errs.Wrap(err, "failed to build shipment")
	}

	if err := p.store.Create(ctx, s); err != nil {
		if infra.IsKind(err, infra.KindDuplicateKey) {
			if winner, findErr := p.store.FindByOrderID(ctx, orderID); findErr == nil {
				return winner, nil
			}
		}
		return nil, errs.Mark(err, ErrStoreFailure)
	}

	p.logger.Info("shipment prepared",
		"order_id", orderID, "shipment_id", s.ID().String(),
		"estimated_weight_grams", s.EstimatedWeightGrams())
	p.publisher.ShipmentPrepared(ctx, s, sourceEvent)
	return s, nil
}

// PurchaseLabel allocates a carrier label once payment completes.
// Payment confirmation can outrun tax calculation, so a missing
// shipment is a logged no-op. A provider failure leaves the row in
// created, keeping the purchase retryable on redelivery.
func (p *Participant) PurchaseLabel(ctx context.Context, orderID, sourceEvent string) (*shipment.Shipment, error) {
	s, err := p.store.FindByOrderID(ctx, orderID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			p.logger.Info("no shipment for order yet, skipping label purchase", "order_id", orderID)
			return nil, ErrShipmentNotFound
		}
		return nil, errs.Mark(err, ErrStoreFailure)
	}

	switch s.Status() {
	case shipment.StatusLabelPurchased:
		p.logger.Info("label already purchased, skipping", "order_id", orderID)
		return s, nil
	case shipment.StatusCreated:
		// Proceed.
	default:
		p.logger.Info("shipment not awaiting a label, skipping",
			"order_id", orderID, "status", s.Status().String())
		return s, nil
	}

	label, err := p.provider.PurchaseLabel(ctx, s)
	if err != nil {
		p.logger.Error("label purchase failed",
			"order_id", orderID, "shipment_id", s.ID().String(), "error", err.Error())
		p.publisher.ShipmentFailed(ctx, orderID, s.UserID(), ErrCodeLabelCreationError, err.Error(), sourceEvent)
		return nil, errs.Mark(err, ErrProvider)
	}

	labeled, err := p.store.AttachLabel(ctx, orderID, label, p.clock.Now())
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			// A concurrent event moved the shipment out of created;
			// the duplicate purchase result is discarded.
			p.logger.Info("shipment changed concurrently, discarding label", "order_id", orderID)
			return s, nil
		}
		return nil, errs.Mark(err, ErrStoreFailure)
	}

	p.logger.Info("label created",
		"order_id", orderID, "shipment_id", labeled.ID().String(),
		"carrier", label.Carrier, "tracking_number", label.TrackingNumber)
	p.publisher.LabelCreated(ctx, labeled, label.EstimatedDelivery, sourceEvent)
	return labeled, nil
}

// Cancel terminates the shipment as compensation for a canceled order.
// refund_shipping is true iff a label had already been purchased.
func (p *Participant) Cancel(ctx context.Context, orderID, reason, sourceEvent string) (*shipment.Shipment, error) {
	s, err := p.store.FindByOrderID(ctx, orderID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			p.logger.Info("no shipment for order, nothing to cancel", "order_id", orderID)
			return nil, ErrShipmentNotFound
		}
		return nil, errs.Mark(err, ErrStoreFailure)
	}

	var refundShipping bool
	switch s.Status() {
	case shipment.StatusCanceled:
		p.logger.Info("shipment already canceled, skipping", "order_id", orderID)
		return s, ErrAlreadyCanceled
	case shipment.StatusCreated:
		refundShipping = false
	case shipment.StatusLabelPurchased:
		refundShipping = true
	default:
		return s, ErrNotCancelable
	}

	canceled, err := p.store.CancelFrom(ctx, orderID, s.Status(), reason, p.clock.Now())
	if err != nil {
		if infra.IsKind(err, infra.KindConflict) {
			// Lost the race against another transition; redelivery
			// will observe the new status.
			p.logger.Info("shipment status changed concurrently, skipping cancel", "order_id", orderID)
			return s, nil
		}
		return nil, errs.Mark(err, ErrStoreFailure)
	}

	p.logger.Info("shipment canceled",
		"order_id", orderID, "shipment_id", canceled.ID().String(),
		"refund_shipping", refundShipping)
	p.publisher.ShipmentCanceled(ctx, canceled, refundShipping, sourceEvent)
	return canceled, nil
}

// Get returns the latest shipment for the order, for the
// administrative API.
func (p *Participant) Get(ctx context.Context, orderID string) (*shipment.Shipment, error) {
	s, err := p.store.FindByOrderID(ctx, orderID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrShipmentNotFound
		}
		return nil, errs.Mark(err, ErrStoreFailure)
	}
	return s, nil
}
