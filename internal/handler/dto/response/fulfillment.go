package response

import (
	"time"

	"orderflow/internal/domain/shipment"
)

type ShipmentItemResponse struct {
	SKUID       string `json:"sku_id"`
	Quantity    int32  `json:"quantity"`
	WeightGrams int64  `json:"weight_grams"`
}

type AddressResponse struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type ShipmentResponse struct {
	ID                 string                 `json:"id"`
	OrderID            string                 `json:"order_id"`
	UserID             string                 `json:"user_id,omitempty"`
	Items              []ShipmentItemResponse `json:"items"`
	ShippingAddress    AddressResponse        `json:"shipping_address"`
	Status             string                 `json:"status"`
	Carrier            *string                `json:"carrier,omitempty"`
	TrackingNumber     *string                `json:"tracking_number,omitempty"`
	LabelURL           *string                `json:"label_url,omitempty"`
	CreatedAt          time.Time              `json:"created_at"`
	LabelCreatedAt     *time.Time             `json:"label_created_at,omitempty"`
	ShippedAt          *time.Time             `json:"shipped_at,omitempty"`
	DeliveredAt        *time.Time             `json:"delivered_at,omitempty"`
	CanceledAt         *time.Time             `json:"canceled_at,omitempty"`
	CancellationReason *string                `json:"cancellation_reason,omitempty"`
	Metadata           map[string]string      `json:"metadata,omitempty"`
}

func FromShipment(s *shipment.Shipment) *ShipmentResponse {
	items := make([]ShipmentItemResponse, 0, len(s.Items()))
	for _, it := range s.Items() {
		items = append(items, ShipmentItemResponse{
			SKUID:       it.SKUID,
			Quantity:    it.Quantity,
			WeightGrams: it.WeightGrams,
		})
	}
	addr := s.ShippingAddress()
	return &ShipmentResponse{
		ID:      s.ID().String(),
		OrderID: s.OrderID(),
		UserID:  s.UserID(),
		Items:   items,
		ShippingAddress: AddressResponse{
			Line1:      addr.Line1,
			Line2:      addr.Line2,
			City:       addr.City,
			State:      addr.State,
			PostalCode: addr.PostalCode,
			Country:    addr.Country,
		},
		Status:             string(s.Status()),
		Carrier:            s.Carrier(),
		TrackingNumber:     s.TrackingNumber(),
		LabelURL:           s.LabelURL(),
		CreatedAt:          s.CreatedAt(),
		LabelCreatedAt:     s.LabelCreatedAt(),
		ShippedAt:          s.ShippedAt(),
		DeliveredAt:        s.DeliveredAt(),
		CanceledAt:         s.CanceledAt(),
		CancellationReason: s.CancellationReason(),
		Metadata:           s.Metadata(),
	}
}
