package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"orderflow/internal/domain/reservation"
	"orderflow/internal/infra"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgErrCodeUniqueViolation = "23505"

const reservationColumns = `reservation_id, order_id, user_id, items, status,
	expires_at, created_at, committed_at, released_at, metadata`

// ReservationRepository is the Inventory participant's store. Every
// state transition is a conditional update on status so a concurrent or
// duplicate event affects zero rows instead of clobbering a terminal
// state.
type ReservationRepository struct {
	pool *pgxpool.Pool
}

func NewReservationRepository(pool *pgxpool.Pool) *ReservationRepository {
	return &ReservationRepository{pool: pool}
}

func (r *ReservationRepository) Create(ctx context.Context, res *reservation.Reservation) error {
	items, err := json.Marshal(res.Items())
	if err != nil {
		return infra.WrapRepoErr("failed to marshal reservation items", err)
	}
	metadata, err := json.Marshal(res.Metadata())
	if err != nil {
		return infra.WrapRepoErr("failed to marshal reservation metadata", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO reservations (reservation_id, order_id, user_id, items, status, expires_at, created_at, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		res.ID(), res.OrderID(), res.UserID(), items, res.Status().String(), res.ExpiresAt(), res.CreatedAt(), metadata,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return infra.WrapRepoErr("active reservation already exists for order", err, infra.KindDuplicateKey)
		}
		return infra.WrapRepoErr("failed to create reservation", err)
	}
	return nil
}

// FindByOrderID returns the most recent reservation row for the order,
// regardless of status.
func (r *ReservationRepository) FindByOrderID(ctx context.Context, orderID string) (*reservation.Reservation, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE order_id = $1
		ORDER BY created_at DESC
		LIMIT 1`, orderID)

	res, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.WrapRepoErr("reservation not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find reservation by order id", err)
	}
	return res, nil
}

func (r *ReservationRepository) FindActiveByOrderID(ctx context.Context, orderID string) (*reservation.Reservation, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+reservationColumns+`
		FROM reservations
		WHERE order_id = $1 AND status = 'active'`, orderID)

	res, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.WrapRepoErr("active reservation not found", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to find active reservation", err)
	}
	return res, nil
}

// CommitActive transitions active -> committed. The WHERE status =
// 'active' guard makes a duplicate payment.completed delivery a no-op;
// the loser of a commit/release race matches zero rows and gets
// KindNotFound, never an error.
func (r *ReservationRepository) CommitActive(ctx context.Context, orderID string, now time.Time) (*reservation.Reservation, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE reservations
		SET status = 'committed', committed_at = $2
		WHERE order_id = $1 AND status = 'active'
		RETURNING `+reservationColumns, orderID, now)

	res, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.WrapRepoErr("no active reservation to commit", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to commit reservation", err)
	}
	return res, nil
}

// ReleaseActive transitions active -> released, recording the reason in
// metadata. Committed reservations never match.
func (r *ReservationRepository) ReleaseActive(ctx context.Context, orderID, reason string, now time.Time) (*reservation.Reservation, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE reservations
		SET status = 'released',
		    released_at = $2,
		    metadata = metadata || jsonb_build_object('release_reason', $3::text)
		WHERE order_id = $1 AND status = 'active'
		RETURNING `+reservationColumns, orderID, now, reason)

	res, err := scanReservation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, infra.WrapRepoErr("no active reservation to release", err, infra.KindNotFound)
		}
		return nil, infra.WrapRepoErr("failed to release reservation", err)
	}
	return res, nil
}

// ReleaseExpired releases every reservation still active past its
// expiry. Each row is its own conditional update under the same
// status guard, so a concurrent commit wins over the sweep.
func (r *ReservationRepository) ReleaseExpired(ctx context.Context, now time.Time) ([]*reservation.Reservation, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE reservations
		SET status = 'released',
		    released_at = $1,
		    metadata = metadata || jsonb_build_object('release_reason', 'expired'::text)
		WHERE status = 'active' AND expires_at < $1
		RETURNING `+reservationColumns, now)
	if err != nil {
		return nil, infra.WrapRepoErr("failed to release expired reservations", err)
	}
	defer rows.Close()

	var released []*reservation.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, infra.WrapRepoErr("failed to scan released reservation", err)
		}
		released = append(released, res)
	}
	if err := rows.Err(); err != nil {
		return nil, infra.WrapRepoErr("failed to iterate released reservations", err)
	}
	return released, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (*reservation.Reservation, error) {
	var (
		id          uuid.UUID
		orderID     string
		userID      string
		itemsRaw    []byte
		status      string
		expiresAt   time.Time
		createdAt   time.Time
		committedAt *time.Time
		releasedAt  *time.Time
		metadataRaw []byte
	)
	if err := row.Scan(&id, &orderID, &userID, &itemsRaw, &status, &expiresAt, &createdAt, &committedAt, &releasedAt, &metadataRaw); err != nil {
		return nil, err
	}

	var items []reservation.Item
	if err := json.Unmarshal(itemsRaw, &items); err != nil {
		return nil, err
	}
	metadata := map[string]string{}
	if len(metadataRaw) > 0 {
		if err := json.Unmarshal(metadataRaw, &metadata); err != nil {
			return nil, err
		}
	}

	return reservation.Reconstruct(
		id, orderID, userID, items, reservation.Status(status),
		expiresAt, createdAt, committedAt, releasedAt, metadata,
	), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgErrCodeUniqueViolation
	}
	return false
}
