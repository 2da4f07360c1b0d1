package shipment

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// DefaultItemWeightGrams is assumed per unit when the upstream event
// does not carry a weight.
const DefaultItemWeightGrams int64 = 500

// PlaceholderSKU is used when tax calculation arrives without line items.
const PlaceholderSKU = "placeholder"

var (
	ErrMissingOrderID   = errors.New("shipment requires an order id")
	ErrAlreadyCanceled  = errors.New("shipment is already canceled")
	ErrNotCancelable    = errors.New("shipment cannot be canceled in its current status")
	ErrLabelNotPending  = errors.New("label can only be purchased for a created shipment")
	ErrLabelIncomplete  = errors.New("label requires carrier and tracking number")
	ErrNotInTransitable = errors.New("shipment cannot move to in_transit")
)

// Label holds the carrier allocation for a shipment.
type Label struct {
	Carrier           string
	TrackingNumber    string
	LabelURL          string
	EstimatedDelivery *time.Time
}

type Shipment struct {
	id                 uuid.UUID
	orderID            string
	userID             string
	items              []Item
	shippingAddress    Address
	carrier            *string
	trackingNumber     *string
	labelURL           *string
	status             Status
	createdAt          time.Time
	labelCreatedAt     *time.Time
	shippedAt          *time.Time
	deliveredAt        *time.Time
	canceledAt         *time.Time
	cancellationReason *string
	metadata           map[string]string
}

// NormalizeItems applies the default per-unit weight and substitutes a
// single placeholder line when no items were supplied, so that a shipment
// can always be prepared.
func NormalizeItems(items []Item) []Item {
	if len(items) == 0 {
		return []Item{{SKUID: PlaceholderSKU, Quantity: 1, WeightGrams: DefaultItemWeightGrams}}
	}
	out := make([]Item, len(items))
	for i, it := range items {
		if it.WeightGrams <= 0 {
			it.WeightGrams = DefaultItemWeightGrams
		}
		if it.Quantity <= 0 {
			it.Quantity = 1
		}
		out[i] = it
	}
	return out
}

func NewShipment(orderID, userID string, items []Item, addr Address, now time.Time, metadata map[string]string) (*Shipment, error) {
	if orderID == "" {
		return nil, ErrMissingOrderID
	}
	if metadata == nil {
		metadata = map[string]string{}
	}
	return &Shipment{
		id:              uuid.New(),
		orderID:         orderID,
		userID:          userID,
		items:           NormalizeItems(items),
		shippingAddress: addr,
		status:          StatusCreated,
		createdAt:       now,
		metadata:        metadata,
	}, nil
}

func Reconstruct(
	id uuid.UUID,
	orderID, userID string,
	items []Item,
	addr Address,
	carrier, trackingNumber, labelURL *string,
	status Status,
	createdAt time.Time,
	labelCreatedAt, shippedAt, deliveredAt, canceledAt *time.Time,
	cancellationReason *string,
	metadata map[string]string,
) *Shipment {
	return &Shipment{
		id:                 id,
		orderID:            orderID,
		userID:             userID,
		items:              items,
		shippingAddress:    addr,
		carrier:            carrier,
		trackingNumber:     trackingNumber,
		labelURL:           labelURL,
		status:             status,
		createdAt:          createdAt,
		labelCreatedAt:     labelCreatedAt,
		shippedAt:          shippedAt,
		deliveredAt:        deliveredAt,
		canceledAt:         canceledAt,
		cancellationReason: cancellationReason,
		metadata:           metadata,
	}
}

// EstimatedWeightGrams sums quantity-weighted item weights.
func (s *Shipment) EstimatedWeightGrams() int64 {
	var total int64
	for _, it := range s.items {
		w := it.WeightGrams
		if w <= 0 {
			w = DefaultItemWeightGrams
		}
		total += w * int64(it.Quantity)
	}
	return total
}

// PurchaseLabel records the carrier allocation. Reachable only from
// created; the persistence layer enforces the same guard conditionally.
func (s *Shipment) PurchaseLabel(label Label, now time.Time) error {
	if s.status != StatusCreated {
		return ErrLabelNotPending
	}
	if label.Carrier == "" || label.TrackingNumber == "" {
		return ErrLabelIncomplete
	}
	s.status = StatusLabelPurchased
	s.carrier = &label.Carrier
	s.trackingNumber = &label.TrackingNumber
	if label.LabelURL != "" {
		s.labelURL = &label.LabelURL
	}
	t := now
	s.labelCreatedAt = &t
	return nil
}

// Cancel terminates the shipment. The returned refundShipping flag is
// true iff a label had already been purchased.
func (s *Shipment) Cancel(reason string, now time.Time) (refundShipping bool, err error) {
	switch s.status {
	case StatusCanceled:
		return false, ErrAlreadyCanceled
	case StatusCreated:
		refundShipping = false
	case StatusLabelPurchased:
		refundShipping = true
	default:
		return false, ErrNotCancelable
	}
	s.status = StatusCanceled
	s.cancellationReason = &reason
	t := now
	s.canceledAt = &t
	return refundShipping, nil
}

func (s *Shipment) MarkInTransit(now time.Time) error {
	if s.status != StatusLabelPurchased {
		return ErrNotInTransitable
	}
	s.status = StatusInTransit
	t := now
	s.shippedAt = &t
	return nil
}

func (s *Shipment) MarkDelivered(now time.Time) error {
	if s.status != StatusInTransit {
		return ErrNotInTransitable
	}
	s.status = StatusDelivered
	t := now
	s.deliveredAt = &t
	return nil
}

func (s *Shipment) IsCanceled() bool {
	return s.status == StatusCanceled
}

func (s *Shipment) ID() uuid.UUID               { return s.id }
func (s *Shipment) OrderID() string             { return s.orderID }
func (s *Shipment) UserID() string              { return s.userID }
func (s *Shipment) Items() []Item               { return s.items }
func (s *Shipment) ShippingAddress() Address    { return s.shippingAddress }
func (s *Shipment) Carrier() *string            { return s.carrier }
func (s *Shipment) TrackingNumber() *string     { return s.trackingNumber }
func (s *Shipment) LabelURL() *string           { return s.labelURL }
func (s *Shipment) Status() Status              { return s.status }
func (s *Shipment) CreatedAt() time.Time        { return s.createdAt }
func (s *Shipment) LabelCreatedAt() *time.Time  { return s.labelCreatedAt }
func (s *Shipment) ShippedAt() *time.Time       { return s.shippedAt }
func (s *Shipment) DeliveredAt() *time.Time     { return s.deliveredAt }
func (s *Shipment) CanceledAt() *time.Time      { return s.canceledAt }
func (s *Shipment) CancellationReason() *string { return s.cancellationReason }
func (s *Shipment) Metadata() map[string]string { return s.metadata }
