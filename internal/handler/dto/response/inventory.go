package response

import (
	"time"

	"orderflow/internal/domain/reservation"
)

type ReservationItemResponse struct {
	SKUID          string `json:"sku_id"`
	Quantity       int32  `json:"quantity"`
	UnitPriceCents *int64 `json:"unit_price_cents,omitempty"`
}

type ReservationResponse struct {
	ID          string                    `json:"id"`
	OrderID     string                    `json:"order_id"`
	UserID      string                    `json:"user_id,omitempty"`
	Items       []ReservationItemResponse `json:"items"`
	Status      string                    `json:"status"`
	ExpiresAt   time.Time                 `json:"expires_at"`
	CreatedAt   time.Time                 `json:"created_at"`
	CommittedAt *time.Time                `json:"committed_at,omitempty"`
	ReleasedAt  *time.Time                `json:"released_at,omitempty"`
	Metadata    map[string]string         `json:"metadata,omitempty"`
}

func FromReservation(r *reservation.Reservation) *ReservationResponse {
	items := make([]ReservationItemResponse, 0, len(r.Items()))
	for _, it := range r.Items() {
		items = append(items, ReservationItemResponse{
			SKUID:          it.SKUID,
			Quantity:       it.Quantity,
			UnitPriceCents: it.UnitPriceCents,
		})
	}
	return &ReservationResponse{
		ID:          r.ID().String(),
		OrderID:     r.OrderID(),
		UserID:      r.UserID(),
		Items:       items,
		Status:      string(r.Status()),
		ExpiresAt:   r.ExpiresAt(),
		CreatedAt:   r.CreatedAt(),
		CommittedAt: r.CommittedAt(),
		ReleasedAt:  r.ReleasedAt(),
		Metadata:    r.Metadata(),
	}
}

type SweepResponse struct {
	Released int `json:"released"`
}
