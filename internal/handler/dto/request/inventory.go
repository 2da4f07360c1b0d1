package request

import (
	"orderflow/internal/domain/reservation"
)

type ReservationItemRequest struct {
	SKUID          string `json:"sku_id" binding:"required"`
	Quantity       int32  `json:"quantity" binding:"required,gt=0"`
	UnitPriceCents *int64 `json:"unit_price_cents,omitempty"`
}

type ReserveRequest struct {
	OrderID  string                   `json:"order_id" binding:"required"`
	UserID   string                   `json:"user_id"`
	Items    []ReservationItemRequest `json:"items" binding:"required,min=1,dive"`
	Metadata map[string]string        `json:"metadata,omitempty"`
}

func (r ReserveRequest) ToItems() []reservation.Item {
	items := make([]reservation.Item, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, reservation.Item{
			SKUID:          it.SKUID,
			Quantity:       it.Quantity,
			UnitPriceCents: it.UnitPriceCents,
		})
	}
	return items
}

type ReleaseRequest struct {
	Reason string `json:"reason"`
}
