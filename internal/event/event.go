package event

import (
	"encoding/json"
	"time"

	"orderflow/internal/pkg/errs"

	"github.com/google/uuid"
)

// Known publishing services.
const (
	SourceOrderService       = "order_service"
	SourcePaymentService     = "payment_service"
	SourceTaxService         = "tax_service"
	SourceInventoryService   = "inventory_service"
	SourceFulfillmentService = "fulfillment_service"
)

// Inbound event types.
const (
	TypeOrderCreated     = "order.created"
	TypeOrderCanceled    = "order.canceled"
	TypePaymentCompleted = "payment.completed"
	TypeTaxCalculated    = "tax.calculated"
)

// Outbound event types.
const (
	TypeInventoryReserved  = "inventory.reserved"
	TypeInventoryCommitted = "inventory.committed"
	TypeInventoryReleased  = "inventory.released"
	TypeInventoryFailed    = "inventory.failed"

	TypeShipmentPrepared = "fulfillment.shipment.prepared"
	TypeLabelCreated     = "fulfillment.label.created"
	TypeShipmentCanceled = "fulfillment.shipment.canceled"
	TypeShipmentFailed   = "fulfillment.shipment.failed"
)

const envelopeVersion = "1.0"

var ErrMalformedEvent = errs.New("malformed event envelope")

// Event is the immutable wire envelope shared with every collaborating
// service. Data holds the event-specific payload, decoded into a typed
// struct at the dispatch boundary.
type Event struct {
	ID        string          `json:"event_id"`
	Type      string          `json:"event_type"`
	Source    string          `json:"source"`
	Version   string          `json:"event_version"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Subject is the routing key the broker dispatches on:
// "<source_service>.<event_type>".
func (e Event) Subject() string {
	return e.Source + "." + e.Type
}

func New(source, eventType string, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, errs.Wrap(err, "failed to marshal event payload")
	}
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    source,
		Version:   envelopeVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}, nil
}

func Unmarshal(body []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(body, &e); err != nil {
		return Event{}, errs.Mark(errs.Wrap(err, "failed to unmarshal event envelope"), ErrMalformedEvent)
	}
	if e.Type == "" || e.Source == "" {
		return Event{}, errs.Mark(errs.New("event envelope missing type or source"), ErrMalformedEvent)
	}
	return e, nil
}

func (e Event) Marshal() ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, errs.Wrap(err, "failed to marshal event envelope")
	}
	return body, nil
}
