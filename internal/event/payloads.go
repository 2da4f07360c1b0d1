package event

import (
	"encoding/json"
	"time"

	"orderflow/internal/pkg/errs"
)

// ErrValidation marks payloads that are structurally decodable but miss
// required fields. The dispatcher drops such events without retry.
var ErrValidation = errs.New("event payload validation failed")

// OrderItem tolerates the three item-identifier spellings used by
// upstream order payloads. ResolveSKU picks the first non-empty one.
type OrderItem struct {
	SKUID          string `json:"sku_id,omitempty"`
	ProductID      string `json:"product_id,omitempty"`
	ID             string `json:"id,omitempty"`
	Quantity       int32  `json:"quantity"`
	UnitPriceCents *int64 `json:"unit_price_cents,omitempty"`
}

func (i OrderItem) ResolveSKU() string {
	switch {
	case i.SKUID != "":
		return i.SKUID
	case i.ProductID != "":
		return i.ProductID
	default:
		return i.ID
	}
}

type OrderCreatedPayload struct {
	OrderID string      `json:"order_id"`
	UserID  string      `json:"user_id"`
	Items   []OrderItem `json:"items"`
}

type PaymentCompletedPayload struct {
	OrderID     string `json:"order_id"`
	UserID      string `json:"user_id"`
	AmountCents int64  `json:"amount_cents,omitempty"`
	PaymentID   string `json:"payment_id,omitempty"`
}

type OrderCanceledPayload struct {
	OrderID string `json:"order_id"`
	UserID  string `json:"user_id,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

type ShippingAddress struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type TaxCalculatedPayload struct {
	OrderID         string          `json:"order_id"`
	UserID          string          `json:"user_id"`
	TaxCents        int64           `json:"tax_cents,omitempty"`
	ShippingAddress ShippingAddress `json:"shipping_address"`
	// Metadata carries the optional item list forwarded by the tax
	// service; an empty list is tolerated downstream.
	Metadata TaxMetadata `json:"metadata"`
}

type TaxMetadata struct {
	Items []OrderItem `json:"items,omitempty"`
}

func DecodeOrderCreated(e Event) (OrderCreatedPayload, error) {
	var p OrderCreatedPayload
	if err := decode(e, &p); err != nil {
		return p, err
	}
	if p.OrderID == "" {
		return p, errs.Mark(errs.New("order.created payload missing order_id"), ErrValidation)
	}
	if len(p.Items) == 0 {
		return p, errs.Mark(errs.New("order.created payload missing items"), ErrValidation)
	}
	return p, nil
}

func DecodePaymentCompleted(e Event) (PaymentCompletedPayload, error) {
	var p PaymentCompletedPayload
	if err := decode(e, &p); err != nil {
		return p, err
	}
	if p.OrderID == "" {
		return p, errs.Mark(errs.New("payment.completed payload missing order_id"), ErrValidation)
	}
	return p, nil
}

func DecodeOrderCanceled(e Event) (OrderCanceledPayload, error) {
	var p OrderCanceledPayload
	if err := decode(e, &p); err != nil {
		return p, err
	}
	if p.OrderID == "" {
		return p, errs.Mark(errs.New("order.canceled payload missing order_id"), ErrValidation)
	}
	return p, nil
}

func DecodeTaxCalculated(e Event) (TaxCalculatedPayload, error) {
	var p TaxCalculatedPayload
	if err := decode(e, &p); err != nil {
		return p, err
	}
	if p.OrderID == "" {
		return p, errs.Mark(errs.New("tax.calculated payload missing order_id"), ErrValidation)
	}
	return p, nil
}

func decode(e Event, out any) error {
	if len(e.Data) == 0 {
		return errs.Mark(errs.Newf("%s payload is empty", e.Type), ErrValidation)
	}
	if err := json.Unmarshal(e.Data, out); err != nil {
		return errs.Mark(errs.Wrapf(err, "failed to decode %s payload", e.Type), ErrValidation)
	}
	return nil
}

// Meta is attached to every outbound payload for tracing which inbound
// event produced it.
type Meta struct {
	SourceEvent string     `json:"source_event"`
	EmittedAt   *time.Time `json:"emitted_at,omitempty"`
}
