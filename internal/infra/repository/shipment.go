package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"orderflow/internal/domain/shipment"
	"orderflow/internal/infra"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const shipmentColumns = `shipment_id, order_id, user_id, items, shipping_address,
	carrier, tracking_number, label_url, status, created_at, label_created_at,
	shipped_at, delivered_at, canceled_at, cancellation_reason, metadata`

// ShipmentRepository is the Fulfillment participant's store. Transitions
// carry a WHERE status = <expected> guard; the caller passes the status
// it observed, and a zero-row result means a concurrent event won the
// race.
type ShipmentRepository struct {
	pool *pgxpool.Pool
}

func NewShipmentRepository(pool *pgxpool.Pool) *ShipmentRepository {
	return &ShipmentRepository{pool: pool}
}

func (r *ShipmentRepository) Create(ctx context.Context, s *shipment.Shipment) error {
	items, err := json.Marshal(s.Items())
	if err != nil {
		return infra.WrapRepoErr("failed to marshal shipment items", err)
	}
	addr, err := json.Marshal(s.ShippingAddress())
	if err != nil {
		return infra.WrapRepoErr("failed to marshal shipping address", err)
	}
	metadata, err := json.Marshal(s.Metadata())
	if err != nil {
		return infra.WrapRepoErr("failed to marshal shipment metadata", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO shipments (shipment_id, order_id, user_id, items, shipping_address, status, created_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		s.ID(), s.OrderID(), s.UserID(), items, addr, s.Status().String(), s.CreatedAt(), metadata,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return infra.WrapRepoErr("open shipment already exists for order", err, infra.KindDuplicateKey)
		}
		return infra.WrapRepoErr("failed to create shipment", err)
	}
	return nil
}

// FindByOrderID returns the most recent shipment row for the order.
func (r *ShipmentRepository) FindByOrderID(ctx context.Context, orderID string) (*shipment.Shipment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+shipmentColumns+`
		FROM shipments
		WHERE order_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, orderID)

	s, err := scanShipment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.WrapRepoErr("shipment not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find shipment by order id", err)
	}
	return s, nil
}

// AttachLabel transitions created -> label_purchased, recording the
// carrier allocation. A shipment that is no longer in created matches
// zero rows, so duplicate payment.completed deliveries are no-ops.
func (r *ShipmentRepository) AttachLabel(ctx context.Context, orderID string, label shipment.Label, now time.Time) (*shipment.Shipment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE shipments
		SET status = 'label_purchased',
		    carrier = $2,
		    tracking_number = $3,
		    label_url = NULLIF($4, ''),
		    label_created_at = $5
		WHERE order_id = $1 AND status = 'created'
		RETURNING `+shipmentColumns, orderID, label.Carrier, label.TrackingNumber, label.LabelURL, now)

	s, err := scanShipment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.WrapRepoErr("no created shipment to label", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to attach label", err)
	}
	return s, nil
}

// CancelFrom transitions the shipment to canceled, but only if it is
// still in the status the caller observed. The caller derives
// refund_shipping from that observed status.
func (r *ShipmentRepository) CancelFrom(ctx context.Context, orderID string, from shipment.Status, reason string, now time.Time) (*shipment.Shipment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE shipments
		SET status = 'canceled',
		    canceled_at = $3,
		    cancellation_reason = $4
		WHERE order_id = $1 AND status = $2
		RETURNING `+shipmentColumns, orderID, from.String(), now, reason)

	s, err := scanShipment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.WrapRepoErr("shipment status changed concurrently", err, infra.KindConflict)
		}
		return nil, infra.WrapRepoErr("failed to cancel shipment", err)
	}
	return s, nil
}

func scanShipment(row rowScanner) (*shipment.Shipment, error) {
	var (
		id                 uuid.UUID
		orderID            string
		userID             string
		itemsRaw           []byte
		addrRaw            []byte
		carrier            *string
		trackingNumber     *string
		labelURL           *string
		status             string
		createdAt          time.Time
		labelCreatedAt     *time.Time
		shippedAt          *time.Time
		deliveredAt        *time.Time
		canceledAt         *time.Time
		cancellationReason *string
		metadataRaw        []byte
	)
	if err := row.Scan(
		&id, &orderID, &userID, &itemsRaw, &addrRaw,
		&carrier, &trackingNumber, &labelURL, &status, &createdAt, &labelCreatedAt,
		&shippedAt, &deliveredAt, &canceledAt, &cancellationReason, &metadataRaw,
	); err != nil {
		return nil, err
	}

	var items []shipment.Item
	if err := json.Unmarshal(itemsRaw, &items); err != nil {
		return nil, err
	}
	var addr shipment.Address
	if len(addrRaw) > 0 {
		if err := json.Unmarshal(addrRaw, &addr); err != nil {
			return nil, err
		}
	}
	metadata := map[string]string{}
	if len(metadataRaw) > 0 {
		if err := json.Unmarshal(metadataRaw, &metadata); err != nil {
			return nil, err
		}
	}

	return shipment.Reconstruct(
		id, orderID, userID, items, addr,
		carrier, trackingNumber, labelURL,
		shipment.Status(status),
		createdAt, labelCreatedAt, shippedAt, deliveredAt, canceledAt,
		cancellationReason, metadata,
	), nil
}
