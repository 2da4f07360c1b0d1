package reservation

type Status string

const (
	StatusActive    Status = "active"
	StatusCommitted Status = "committed"
	StatusReleased  Status = "released"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusCommitted, StatusReleased:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return s == StatusCommitted || s == StatusReleased
}

// Item is a snapshot of one reserved line at reservation time.
type Item struct {
	SKUID          string `json:"sku_id"`
	Quantity       int32  `json:"quantity"`
	UnitPriceCents *int64 `json:"unit_price_cents,omitempty"`
}
