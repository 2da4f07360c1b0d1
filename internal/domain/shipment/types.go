package shipment

type Status string

const (
	StatusCreated        Status = "created"
	StatusLabelPurchased Status = "label_purchased"
	StatusInTransit      Status = "in_transit"
	StatusDelivered      Status = "delivered"
	StatusCanceled       Status = "canceled"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusCreated, StatusLabelPurchased, StatusInTransit, StatusDelivered, StatusCanceled:
		return true
	default:
		return false
	}
}

func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCanceled
}

// Item is one line to be shipped. WeightGrams falls back to a default
// per-unit weight when the upstream event does not carry one.
type Item struct {
	SKUID       string `json:"sku_id"`
	Quantity    int32  `json:"quantity"`
	WeightGrams int64  `json:"weight_grams,omitempty"`
}

// Address is the destination captured from the tax-calculation event.
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}
