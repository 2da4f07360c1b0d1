package fulfillment

import (
	"context"
	"errors"

	"orderflow/internal/domain/shipment"
	"orderflow/internal/event"
	"orderflow/internal/eventbus"
	"orderflow/internal/pkg/errs"
)

// HandleTaxCalculated reacts to tax_service.tax.calculated by preparing
// the shipment for the order.
func (p *Participant) HandleTaxCalculated(ctx context.Context, e event.Event) error {
	payload, err := event.DecodeTaxCalculated(e)
	if err != nil {
		return err
	}

	items := toShipmentItems(payload.Metadata.Items)
	addr := shipment.Address{
		Line1:      payload.ShippingAddress.Line1,
		Line2:      payload.ShippingAddress.Line2,
		City:       payload.ShippingAddress.City,
		State:      payload.ShippingAddress.State,
		PostalCode: payload.ShippingAddress.PostalCode,
		Country:    payload.ShippingAddress.Country,
	}
	_, err = p.Prepare(ctx, payload.OrderID, payload.UserID, items, addr, e.Subject())
	return p.classify(err)
}

// HandlePaymentCompleted reacts to payment_service.payment.completed by
// purchasing the carrier label.
func (p *Participant) HandlePaymentCompleted(ctx context.Context, e event.Event) error {
	payload, err := event.DecodePaymentCompleted(e)
	if err != nil {
		return err
	}

	_, err = p.PurchaseLabel(ctx, payload.OrderID, e.Subject())
	return p.classify(err)
}

// HandleOrderCanceled reacts to order_service.order.canceled by
// canceling the shipment, compensating prepare and label purchase.
func (p *Participant) HandleOrderCanceled(ctx context.Context, e event.Event) error {
	payload, err := event.DecodeOrderCanceled(e)
	if err != nil {
		return err
	}

	reason := payload.Reason
	if reason == "" {
		reason = "order_canceled"
	}
	_, err = p.Cancel(ctx, payload.OrderID, reason, e.Subject())
	return p.classify(err)
}

// classify maps operation outcomes to the dispatcher contract. A
// provider failure acks: the *.failed event has been emitted and the
// row is unchanged, so the purchase retries on the next redelivery of
// the trigger event rather than on a tight requeue loop.
func (p *Participant) classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrShipmentNotFound),
		errors.Is(err, ErrAlreadyCanceled),
		errors.Is(err, ErrNotCancelable),
		errors.Is(err, ErrProvider):
		return nil
	case errors.Is(err, ErrStoreFailure):
		return errs.Mark(err, eventbus.ErrRetryable)
	default:
		return err
	}
}

func toShipmentItems(in []event.OrderItem) []shipment.Item {
	out := make([]shipment.Item, 0, len(in))
	for _, it := range in {
		sku := it.ResolveSKU()
		if sku == "" {
			continue
		}
		out = append(out, shipment.Item{
			SKUID:    sku,
			Quantity: it.Quantity,
		})
	}
	return out
}
