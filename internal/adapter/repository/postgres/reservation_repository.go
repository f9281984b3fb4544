package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/justloccit/booking-backend/internal/core/domain"
)

const uniqueViolation = "23505"

type ReservationRepository struct {
	db *sql.DB
}

func NewReservationRepository(db *sql.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

func (r *ReservationRepository) Create(ctx context.Context, reservation *domain.Reservation) error {
	lines, err := json.Marshal(reservation.SubServices)
	if err != nil {
		return fmt.Errorf("marshal sub-services: %w", err)
	}

	query := `
	INSERT INTO reservations
		(id, date, partition_key, start_time, end_time, duration, status, lock_expires_at,
		 sub_service_id, service_name, sub_services, notes, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err = r.db.ExecContext(ctx, query,
		reservation.ID,
		reservation.Date,
		reservation.PartitionKey,
		reservation.StartTime,
		reservation.EndTime,
		reservation.Duration,
		reservation.Status,
		reservation.LockExpiresAt,
		reservation.SubServiceID,
		reservation.ServiceName,
		lines,
		reservation.Notes,
		reservation.CreatedAt,
		reservation.UpdatedAt,
	)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("reservation %s already exists: %w", reservation.ID, domain.ErrConflict)
	}
	return err
}

func (r *ReservationRepository) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	return r.get(ctx, `WHERE id = $1`, id)
}

func (r *ReservationRepository) GetByIDAndDate(ctx context.Context, id, date string) (*domain.Reservation, error) {
	return r.get(ctx, `WHERE id = $1 AND date = $2`, id, date)
}

func (r *ReservationRepository) get(ctx context.Context, where string, args ...any) (*domain.Reservation, error) {
	query := `
	SELECT id, date, partition_key, start_time, end_time, duration, status, lock_expires_at,
	       sub_service_id, service_name, sub_services, notes, created_at, updated_at
	FROM reservations
	` + where

	var reservation domain.Reservation
	var lines []byte

	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&reservation.ID,
		&reservation.Date,
		&reservation.PartitionKey,
		&reservation.StartTime,
		&reservation.EndTime,
		&reservation.Duration,
		&reservation.Status,
		&reservation.LockExpiresAt,
		&reservation.SubServiceID,
		&reservation.ServiceName,
		&lines,
		&reservation.Notes,
		&reservation.CreatedAt,
		&reservation.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	if len(lines) > 0 {
		if err := json.Unmarshal(lines, &reservation.SubServices); err != nil {
			return nil, fmt.Errorf("unmarshal sub-services: %w", err)
		}
	}
	return &reservation, nil
}

func (r *ReservationRepository) UpdateStatusIf(ctx context.Context, id string, from, to domain.ReservationStatus) (bool, error) {
	query := `
	UPDATE reservations
	SET status = $1, updated_at = $2, change_published = FALSE
	WHERE id = $3 AND status = $4
	`

	result, err := r.db.ExecContext(ctx, query, to, time.Now().UTC(), id, from)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rowsAffected > 0, nil
}

func (r *ReservationRepository) ListExpiredLocked(ctx context.Context, now time.Time, limit int) ([]domain.Reservation, error) {
	return r.list(ctx, `WHERE status = 'Locked' AND lock_expires_at < $1 ORDER BY lock_expires_at LIMIT $2`, now, limit)
}

func (r *ReservationRepository) ListUnpublished(ctx context.Context, limit int) ([]domain.Reservation, error) {
	return r.list(ctx, `WHERE change_published = FALSE ORDER BY updated_at LIMIT $1`, limit)
}

// MarkChangePublished is a no-op when the reservation already moved to
// another status; the new state carries its own unpublished flag.
func (r *ReservationRepository) MarkChangePublished(ctx context.Context, id string, status domain.ReservationStatus) error {
	query := `
	UPDATE reservations
	SET change_published = TRUE
	WHERE id = $1 AND status = $2
	`

	_, err := r.db.ExecContext(ctx, query, id, status)
	return err
}

func (r *ReservationRepository) list(ctx context.Context, where string, args ...any) ([]domain.Reservation, error) {
	query := `
	SELECT id, date, partition_key, start_time, end_time, duration, status, lock_expires_at,
	       sub_service_id, service_name, sub_services, notes, created_at, updated_at
	FROM reservations
	` + where

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var reservations []domain.Reservation
	for rows.Next() {
		var reservation domain.Reservation
		var lines []byte
		if err := rows.Scan(
			&reservation.ID,
			&reservation.Date,
			&reservation.PartitionKey,
			&reservation.StartTime,
			&reservation.EndTime,
			&reservation.Duration,
			&reservation.Status,
			&reservation.LockExpiresAt,
			&reservation.SubServiceID,
			&reservation.ServiceName,
			&lines,
			&reservation.Notes,
			&reservation.CreatedAt,
			&reservation.UpdatedAt,
		); err != nil {
			return nil, err
		}
		if len(lines) > 0 {
			if err := json.Unmarshal(lines, &reservation.SubServices); err != nil {
				return nil, fmt.Errorf("unmarshal sub-services: %w", err)
			}
		}
		reservations = append(reservations, reservation)
	}
	return reservations, rows.Err()
}
