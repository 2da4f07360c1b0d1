package inventory

import (
	"context"
	"log/slog"
	"time"

	"orderflow/internal/domain/reservation"
	"orderflow/internal/infra"
	"orderflow/internal/pkg/clock"
	"orderflow/internal/pkg/errs"
)

var (
	ErrNoValidItems        = errs.New("no valid items to reserve")
	ErrNoActiveReservation = errs.New("no active reservation for order")
	ErrReservationNotFound = errs.New("reservation not found")
	ErrStoreFailure        = errs.New("reservation store failure")
)

// Stable error codes carried by inventory.failed events.
const (
	ErrCodeNoValidItems     = "NO_VALID_ITEMS"
	ErrCodeReservationError = "RESERVATION_ERROR"
)

// ReservationStore is the participant-owned persistence port. All
// transitions are conditional on the current status; zero-row matches
// surface as KindNotFound, never as errors.
type ReservationStore interface {
	Create(ctx context.Context, res *reservation.Reservation) error
	FindByOrderID(ctx context.Context, orderID string) (*reservation.Reservation, error)
	FindActiveByOrderID(ctx context.Context, orderID string) (*reservation.Reservation, error)
	CommitActive(ctx context.Context, orderID string, now time.Time) (*reservation.Reservation, error)
	ReleaseActive(ctx context.Context, orderID, reason string, now time.Time) (*reservation.Reservation, error)
	ReleaseExpired(ctx context.Context, now time.Time) ([]*reservation.Reservation, error)
}

// Participant owns the Reservation lifecycle within the order
// fulfillment saga. The same operations back both the event handlers
// and the administrative HTTP endpoints, so an order behaves
// identically no matter which side triggered it.
type Participant struct {
	store     ReservationStore
	publisher *Publisher
	clock     clock.Clock
	ttl       time.Duration
	logger    *slog.Logger
}

func NewParticipant(store ReservationStore, publisher *Publisher, clk clock.Clock, ttl time.Duration, logger *slog.Logger) *Participant {
	return &Participant{
		store:     store,
		publisher: publisher,
		clock:     clk,
		ttl:       ttl,
		logger:    logger,
	}
}

// Reserve creates an active reservation for the order. Redelivery is
// tolerated: an existing active or committed reservation short-circuits
// to a no-op returning the existing row.
func (p *Participant) Reserve(ctx context.Context, orderID, userID string, items []reservation.Item, sourceEvent string) (*reservation.Reservation, error) {
	existing, err := p.store.FindByOrderID(ctx, orderID)
	switch {
	case err == nil:
		if existing.Status() == reservation.StatusActive || existing.Status() == reservation.StatusCommitted {
			p.logger.Info("reservation already exists, skipping",
				"order_id", orderID, "status", existing.Status().String())
			return existing, nil
		}
	case infra.IsKind(err, infra.KindNotFound):
		// First delivery for this order.
	default:
		return nil, errs.Mark(err, ErrStoreFailure)
	}

	if len(items) == 0 {
		p.publisher.ReservationFailed(ctx, orderID, userID, ErrCodeNoValidItems, "order contained no resolvable items", sourceEvent)
		return nil, ErrNoValidItems
	}

	res, err := reservation.NewReservation(orderID, userID, items, p.clock.Now(), p.ttl, map[string]string{"source_event": sourceEvent})
	if err != nil {
		p.publisher.ReservationFailed(ctx, orderID, userID, ErrCodeReservationError, err.Error(), sourceEvent)
		return nil, errs.Wrap(err, "failed to build reservation")
	}

	if err := p.store.Create(ctx, res); err != nil {
		if infra.IsKind(err, infra.KindDuplicateKey) {
			// Lost a concurrent-create race; the winner's row is the
			// reservation for this order.
			if winner, findErr := p.store.FindActiveByOrderID(ctx, orderID); findErr == nil {
				return winner, nil
			}
		}
		return nil, errs.Mark(err, ErrStoreFailure)
	}

	p.logger.Info("reservation created",
		"order_id", orderID, "reservation_id", res.ID().String(), "expires_at", res.ExpiresAt())
	p.publisher.ReservationReserved(ctx, res, sourceEvent)
	return res, nil
}

// Commit transitions the order's active reservation to committed.
// A missing active reservation is a benign no-op: either payment was
// already processed, or it raced ahead of order.created.
func (p *Participant) Commit(ctx context.Context, orderID, sourceEvent string) (*reservation.Reservation, error) {
	res, err := p.store.CommitActive(ctx, orderID, p.clock.Now())
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			p.logger.Info("no active reservation to commit, skipping", "order_id", orderID)
			return nil, ErrNoActiveReservation
		}
		return nil, errs.Mark(err, ErrStoreFailure)
	}

	p.logger.Info("reservation committed",
		"order_id", orderID, "reservation_id", res.ID().String())
	p.publisher.ReservationCommitted(ctx, res, sourceEvent)
	return res, nil
}

// Release transitions the order's active reservation to released.
// Cancellation after commit must not revert committed stock, so a
// missing active reservation is a no-op here too.
func (p *Participant) Release(ctx context.Context, orderID, reason, sourceEvent string) (*reservation.Reservation, error) {
	res, err := p.store.ReleaseActive(ctx, orderID, reason, p.clock.Now())
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			p.logger.Info("no active reservation to release, skipping", "order_id", orderID)
			return nil, ErrNoActiveReservation
		}
		return nil, errs.Mark(err, ErrStoreFailure)
	}

	p.logger.Info("reservation released",
		"order_id", orderID, "reservation_id", res.ID().String(), "reason", reason)
	p.publisher.ReservationReleased(ctx, res, reason, sourceEvent)
	return res, nil
}

// Get returns the latest reservation for the order, for the
// administrative API.
func (p *Participant) Get(ctx context.Context, orderID string) (*reservation.Reservation, error) {
	res, err := p.store.FindByOrderID(ctx, orderID)
	if err != nil {
		if infra.IsKind(err, infra.KindNotFound) {
			return nil, ErrReservationNotFound
		}
		return nil, errs.Mark(err, ErrStoreFailure)
	}
	return res, nil
}

// ReleaseExpired sweeps reservations still active past expires_at.
// Invoked on a schedule; each released reservation is announced the
// same way an explicit cancellation would be.
func (p *Participant) ReleaseExpired(ctx context.Context) (int, error) {
	released, err := p.store.ReleaseExpired(ctx, p.clock.Now())
	if err != nil {
		return 0, errs.Mark(err, ErrStoreFailure)
	}
	for _, res := range released {
		p.logger.Info("expired reservation released",
			"order_id", res.OrderID(), "reservation_id", res.ID().String())
		p.publisher.ReservationReleased(ctx, res, "expired", "")
	}
	return len(released), nil
}
