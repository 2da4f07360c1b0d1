package fulfillment

import (
	"context"
	"log/slog"
	"time"

	"orderflow/internal/domain/shipment"
	"orderflow/internal/event"
	"orderflow/internal/eventbus"
)

type PreparedPayload struct {
	OrderID              string           `json:"order_id"`
	UserID               string           `json:"user_id"`
	ShipmentID           string           `json:"shipment_id"`
	Items                []shipment.Item  `json:"items"`
	ShippingAddress      shipment.Address `json:"shipping_address"`
	EstimatedWeightGrams int64            `json:"estimated_weight_grams"`
	Metadata             event.Meta       `json:"metadata"`
}

type LabelCreatedPayload struct {
	OrderID           string     `json:"order_id"`
	UserID            string     `json:"user_id"`
	ShipmentID        string     `json:"shipment_id"`
	Carrier           string     `json:"carrier"`
	TrackingNumber    string     `json:"tracking_number"`
	LabelURL          string     `json:"label_url,omitempty"`
	EstimatedDelivery *time.Time `json:"estimated_delivery,omitempty"`
	Metadata          event.Meta `json:"metadata"`
}

type CanceledPayload struct {
	OrderID        string     `json:"order_id"`
	UserID         string     `json:"user_id"`
	ShipmentID     string     `json:"shipment_id"`
	Reason         string     `json:"reason,omitempty"`
	RefundShipping bool       `json:"refund_shipping"`
	Metadata       event.Meta `json:"metadata"`
}

type FailedPayload struct {
	OrderID   string     `json:"order_id"`
	UserID    string     `json:"user_id"`
	ErrorCode string     `json:"error_code"`
	Message   string     `json:"message,omitempty"`
	Metadata  event.Meta `json:"metadata"`
}

// Publisher emits the Fulfillment participant's outbound events.
// Publish failures are logged and swallowed: the shipment row is the
// system of record, downstream notification is best effort.
type Publisher struct {
	bus    eventbus.Publisher
	logger *slog.Logger
}

func NewPublisher(bus eventbus.Publisher, logger *slog.Logger) *Publisher {
	return &Publisher{bus: bus, logger: logger}
}

func (p *Publisher) ShipmentPrepared(ctx context.Context, s *shipment.Shipment, sourceEvent string) {
	p.emit(ctx, event.TypeShipmentPrepared, PreparedPayload{
		OrderID:              s.OrderID(),
		UserID:               s.UserID(),
		ShipmentID:           s.ID().String(),
		Items:                s.Items(),
		ShippingAddress:      s.ShippingAddress(),
		EstimatedWeightGrams: s.EstimatedWeightGrams(),
		Metadata:             event.Meta{SourceEvent: sourceEvent},
	})
}

func (p *Publisher) LabelCreated(ctx context.Context, s *shipment.Shipment, estimatedDelivery *time.Time, sourceEvent string) {
	payload := LabelCreatedPayload{
		OrderID:           s.OrderID(),
		UserID:            s.UserID(),
		ShipmentID:        s.ID().String(),
		EstimatedDelivery: estimatedDelivery,
		Metadata:          event.Meta{SourceEvent: sourceEvent},
	}
	if c := s.Carrier(); c != nil {
		payload.Carrier = *c
	}
	if t := s.TrackingNumber(); t != nil {
		payload.TrackingNumber = *t
	}
	if u := s.LabelURL(); u != nil {
		payload.LabelURL = *u
	}
	p.emit(ctx, event.TypeLabelCreated, payload)
}

func (p *Publisher) ShipmentCanceled(ctx context.Context, s *shipment.Shipment, refundShipping bool, sourceEvent string) {
	payload := CanceledPayload{
		OrderID:        s.OrderID(),
		UserID:         s.UserID(),
		ShipmentID:     s.ID().String(),
		RefundShipping: refundShipping,
		Metadata:       event.Meta{SourceEvent: sourceEvent},
	}
	if r := s.CancellationReason(); r != nil {
		payload.Reason = *r
	}
	p.emit(ctx, event.TypeShipmentCanceled, payload)
}

func (p *Publisher) ShipmentFailed(ctx context.Context, orderID, userID, errorCode, message, sourceEvent string) {
	p.emit(ctx, event.TypeShipmentFailed, FailedPayload{
		OrderID:   orderID,
		UserID:    userID,
		ErrorCode: errorCode,
		Message:   message,
		Metadata:  event.Meta{SourceEvent: sourceEvent},
	})
}

func (p *Publisher) emit(ctx context.Context, eventType string, payload any) {
	e, err := event.New(event.SourceFulfillmentService, eventType, payload)
	if err != nil {
		p.logger.Warn("failed to build outbound event", "event_type", eventType, "error", err.Error())
		return
	}
	if err := p.bus.Publish(ctx, e); err != nil {
		p.logger.Warn("failed to publish outbound event",
			"event_type", eventType, "event_id", e.ID, "error", err.Error())
	}
}
