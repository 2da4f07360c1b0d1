package reservation

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNoItems        = errors.New("reservation requires at least one item")
	ErrMissingOrderID = errors.New("reservation requires an order id")
	ErrNotActive      = errors.New("reservation is not active")
)

// Reservation is one stock-hold attempt for an order. Exactly one
// reservation per order id may be active; committed and released are
// terminal for the row.
type Reservation struct {
	id          uuid.UUID
	orderID     string
	userID      string
	items       []Item
	status      Status
	expiresAt   time.Time
	createdAt   time.Time
	committedAt *time.Time
	releasedAt  *time.Time
	metadata    map[string]string
}

func NewReservation(orderID, userID string, items []Item, now time.Time, ttl time.Duration, metadata map[string]string) (*Reservation, error) {
	if orderID == "" {
		return nil, ErrMissingOrderID
	}
	if len(items) == 0 {
		return nil, ErrNoItems
	}
	if metadata == nil {
		metadata = map[string]string{}
	}
	return &Reservation{
		id:        uuid.New(),
		orderID:   orderID,
		userID:    userID,
		items:     items,
		status:    StatusActive,
		expiresAt: now.Add(ttl),
		createdAt: now,
		metadata:  metadata,
	}, nil
}

func Reconstruct(
	id uuid.UUID,
	orderID, userID string,
	items []Item,
	status Status,
	expiresAt, createdAt time.Time,
	committedAt, releasedAt *time.Time,
	metadata map[string]string,
) *Reservation {
	return &Reservation{
		id:          id,
		orderID:     orderID,
		userID:      userID,
		items:       items,
		status:      status,
		expiresAt:   expiresAt,
		createdAt:   createdAt,
		committedAt: committedAt,
		releasedAt:  releasedAt,
		metadata:    metadata,
	}
}

// Commit moves an active reservation to committed. The persistence layer
// enforces the same guard with a conditional update; this is the in-memory
// mirror of that rule.
func (r *Reservation) Commit(now time.Time) error {
	if r.status != StatusActive {
		return ErrNotActive
	}
	r.status = StatusCommitted
	t := now
	r.committedAt = &t
	return nil
}

// Release moves an active reservation to released. Committed stock is
// never reverted.
func (r *Reservation) Release(now time.Time) error {
	if r.status != StatusActive {
		return ErrNotActive
	}
	r.status = StatusReleased
	t := now
	r.releasedAt = &t
	return nil
}

func (r *Reservation) HasExpired(now time.Time) bool {
	return r.status == StatusActive && now.After(r.expiresAt)
}

func (r *Reservation) IsActive() bool {
	return r.status == StatusActive
}

func (r *Reservation) ID() uuid.UUID               { return r.id }
func (r *Reservation) OrderID() string             { return r.orderID }
func (r *Reservation) UserID() string              { return r.userID }
func (r *Reservation) Items() []Item               { return r.items }
func (r *Reservation) Status() Status              { return r.status }
func (r *Reservation) ExpiresAt() time.Time        { return r.expiresAt }
func (r *Reservation) CreatedAt() time.Time        { return r.createdAt }
func (r *Reservation) CommittedAt() *time.Time     { return r.committedAt }
func (r *Reservation) ReleasedAt() *time.Time      { return r.releasedAt }
func (r *Reservation) Metadata() map[string]string { return r.metadata }
