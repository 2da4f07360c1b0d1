package inventory

import (
	"context"
	"errors"

	"orderflow/internal/domain/reservation"
	"orderflow/internal/event"
	"orderflow/internal/eventbus"
	"orderflow/internal/pkg/errs"
)

// HandleOrderCreated reacts to order_service.order.created by placing a
// stock hold for the order.
func (p *Participant) HandleOrderCreated(ctx context.Context, e event.Event) error {
	payload, err := event.DecodeOrderCreated(e)
	if err != nil {
		return err
	}

	items := resolveItems(payload.Items)
	_, err = p.Reserve(ctx, payload.OrderID, payload.UserID, items, e.Subject())
	return p.classify(err)
}

// HandlePaymentCompleted reacts to payment_service.payment.completed by
// committing the hold.
func (p *Participant) HandlePaymentCompleted(ctx context.Context, e event.Event) error {
	payload, err := event.DecodePaymentCompleted(e)
	if err != nil {
		return err
	}

	_, err = p.Commit(ctx, payload.OrderID, e.Subject())
	return p.classify(err)
}

// HandleOrderCanceled reacts to order_service.order.canceled by
// releasing the hold, compensating the earlier reserve step.
func (p *Participant) HandleOrderCanceled(ctx context.Context, e event.Event) error {
	payload, err := event.DecodeOrderCanceled(e)
	if err != nil {
		return err
	}

	reason := payload.Reason
	if reason == "" {
		reason = "order_canceled"
	}
	_, err = p.Release(ctx, payload.OrderID, reason, e.Subject())
	return p.classify(err)
}

// classify maps operation outcomes to the dispatcher contract: benign
// no-ops and already-reported failures ack; store failures requeue.
func (p *Participant) classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNoActiveReservation),
		errors.Is(err, ErrNoValidItems):
		return nil
	case errors.Is(err, ErrStoreFailure):
		return errs.Mark(err, eventbus.ErrRetryable)
	default:
		return err
	}
}

// resolveItems turns raw order lines into reservation items, dropping
// lines with no resolvable identifier or a non-positive quantity.
func resolveItems(in []event.OrderItem) []reservation.Item {
	out := make([]reservation.Item, 0, len(in))
	for _, it := range in {
		sku := it.ResolveSKU()
		if sku == "" || it.Quantity <= 0 {
			continue
		}
		out = append(out, reservation.Item{
			SKUID:          sku,
			Quantity:       it.Quantity,
			UnitPriceCents: it.UnitPriceCents,
		})
	}
	return out
}
