package inventory

import (
	"context"
	"log/slog"
	"time"

	"orderflow/internal/domain/reservation"
	"orderflow/internal/event"
	"orderflow/internal/eventbus"
)

// ReservedPayload announces a newly created stock hold.
type ReservedPayload struct {
	OrderID       string             `json:"order_id"`
	UserID        string             `json:"user_id"`
	ReservationID string             `json:"reservation_id"`
	Items         []reservation.Item `json:"items"`
	ExpiresAt     time.Time          `json:"expires_at"`
	Metadata      event.Meta         `json:"metadata"`
}

type CommittedPayload struct {
	OrderID       string             `json:"order_id"`
	UserID        string             `json:"user_id"`
	ReservationID string             `json:"reservation_id"`
	Items         []reservation.Item `json:"items"`
	CommittedAt   *time.Time         `json:"committed_at,omitempty"`
	Metadata      event.Meta         `json:"metadata"`
}

type ReleasedPayload struct {
	OrderID       string             `json:"order_id"`
	UserID        string             `json:"user_id"`
	ReservationID string             `json:"reservation_id"`
	Items         []reservation.Item `json:"items"`
	Reason        string             `json:"reason"`
	Metadata      event.Meta         `json:"metadata"`
}

type FailedPayload struct {
	OrderID   string     `json:"order_id"`
	UserID    string     `json:"user_id"`
	ErrorCode string     `json:"error_code"`
	Message   string     `json:"message,omitempty"`
	Metadata  event.Meta `json:"metadata"`
}

// Publisher emits the Inventory participant's outbound events. Local
// state is the system of record; downstream notification is best
// effort, so publish failures are logged and swallowed, never returned.
type Publisher struct {
	bus    eventbus.Publisher
	logger *slog.Logger
}

func NewPublisher(bus eventbus.Publisher, logger *slog.Logger) *Publisher {
	return &Publisher{bus: bus, logger: logger}
}

func (p *Publisher) ReservationReserved(ctx context.Context, res *reservation.Reservation, sourceEvent string) {
	p.emit(ctx, event.TypeInventoryReserved, ReservedPayload{
		OrderID:       res.OrderID(),
		UserID:        res.UserID(),
		ReservationID: res.ID().String(),
		Items:         res.Items(),
		ExpiresAt:     res.ExpiresAt(),
		Metadata:      event.Meta{SourceEvent: sourceEvent},
	})
}

func (p *Publisher) ReservationCommitted(ctx context.Context, res *reservation.Reservation, sourceEvent string) {
	p.emit(ctx, event.TypeInventoryCommitted, CommittedPayload{
		OrderID:       res.OrderID(),
		UserID:        res.UserID(),
		ReservationID: res.ID().String(),
		Items:         res.Items(),
		CommittedAt:   res.CommittedAt(),
		Metadata:      event.Meta{SourceEvent: sourceEvent},
	})
}

func (p *Publisher) ReservationReleased(ctx context.Context, res *reservation.Reservation, reason, sourceEvent string) {
	p.emit(ctx, event.TypeInventoryReleased, ReleasedPayload{
		OrderID:       res.OrderID(),
		UserID:        res.UserID(),
		ReservationID: res.ID().String(),
		Items:         res.Items(),
		Reason:        reason,
		Metadata:      event.Meta{SourceEvent: sourceEvent},
	})
}

func (p *Publisher) ReservationFailed(ctx context.Context, orderID, userID, errorCode, message, sourceEvent string) {
	p.emit(ctx, event.TypeInventoryFailed, FailedPayload{
		OrderID:   orderID,
		UserID:    userID,
		ErrorCode: errorCode,
		Message:   message,
		Metadata:  event.Meta{SourceEvent: sourceEvent},
	})
}

func (p *Publisher) emit(ctx context.Context, eventType string, payload any) {
	e, err := event.New(event.SourceInventoryService, eventType, payload)
	if err != nil {
		p.logger.Warn("failed to build outbound event", "event_type", eventType, "error", err.Error())
		return
	}
	if err := p.bus.Publish(ctx, e); err != nil {
		p.logger.Warn("failed to publish outbound event",
			"event_type", eventType, "event_id", e.ID, "error", err.Error())
	}
}
