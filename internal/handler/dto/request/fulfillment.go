package request

import (
	"orderflow/internal/domain/shipment"
)

type ShipmentItemRequest struct {
	SKUID       string `json:"sku_id" binding:"required"`
	Quantity    int32  `json:"quantity" binding:"required,gt=0"`
	WeightGrams int64  `json:"weight_grams"`
}

type AddressRequest struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

type PrepareShipmentRequest struct {
	OrderID         string                `json:"order_id" binding:"required"`
	UserID          string                `json:"user_id"`
	Items           []ShipmentItemRequest `json:"items"`
	ShippingAddress AddressRequest        `json:"shipping_address"`
}

func (r PrepareShipmentRequest) ToItems() []shipment.Item {
	items := make([]shipment.Item, 0, len(r.Items))
	for _, it := range r.Items {
		items = append(items, shipment.Item{
			SKUID:       it.SKUID,
			Quantity:    it.Quantity,
			WeightGrams: it.WeightGrams,
		})
	}
	return items
}

func (r PrepareShipmentRequest) ToAddress() shipment.Address {
	return shipment.Address{
		Line1:      r.ShippingAddress.Line1,
		Line2:      r.ShippingAddress.Line2,
		City:       r.ShippingAddress.City,
		State:      r.ShippingAddress.State,
		PostalCode: r.ShippingAddress.PostalCode,
		Country:    r.ShippingAddress.Country,
	}
}

type CancelShipmentRequest struct {
	Reason string `json:"reason"`
}
