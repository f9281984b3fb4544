package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/justloccit/booking-backend/internal/core/domain"
)

// TimeslotRepository stores one calendar document per date: the bucket list
// lives in a JSONB column so the whole day updates atomically, guarded by a
// version column for optimistic concurrency.
type TimeslotRepository struct {
	db *sql.DB
}

func NewTimeslotRepository(db *sql.DB) *TimeslotRepository {
	return &TimeslotRepository{db: db}
}

func (r *TimeslotRepository) Create(ctx context.Context, doc *domain.TimeslotDocument) error {
	slots, err := json.Marshal(doc.TimeSlots)
	if err != nil {
		return fmt.Errorf("marshal time slots: %w", err)
	}

	query := `
	INSERT INTO timeslot_days (date, partition_key, time_slots, is_available, special_notes, version)
	VALUES ($1, $2, $3, $4, $5, 1)
	`

	_, err = r.db.ExecContext(ctx, query, doc.Date, doc.PartitionKey, slots, doc.IsAvailable, doc.SpecialNotes)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("timeslot document for %s already exists: %w", doc.Date, domain.ErrConflict)
	}
	if err == nil {
		doc.Version = 1
	}
	return err
}

func (r *TimeslotRepository) Get(ctx context.Context, date string) (*domain.TimeslotDocument, error) {
	query := `
	SELECT date, partition_key, time_slots, is_available, special_notes, version
	FROM timeslot_days
	WHERE date = $1
	`

	var doc domain.TimeslotDocument
	var slots []byte

	err := r.db.QueryRowContext(ctx, query, date).Scan(
		&doc.Date,
		&doc.PartitionKey,
		&slots,
		&doc.IsAvailable,
		&doc.SpecialNotes,
		&doc.Version,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(slots, &doc.TimeSlots); err != nil {
		return nil, fmt.Errorf("unmarshal time slots: %w", err)
	}
	return &doc, nil
}

// Update writes the document back only when the stored version still matches
// the one it was read at; a racing writer surfaces as domain.ErrConflict.
func (r *TimeslotRepository) Update(ctx context.Context, doc *domain.TimeslotDocument) error {
	slots, err := json.Marshal(doc.TimeSlots)
	if err != nil {
		return fmt.Errorf("marshal time slots: %w", err)
	}

	query := `
	UPDATE timeslot_days
	SET time_slots = $1,
		is_available = $2,
		special_notes = $3,
		version = version + 1
	WHERE date = $4 AND version = $5
	`

	result, err := r.db.ExecContext(ctx, query, slots, doc.IsAvailable, doc.SpecialNotes, doc.Date, doc.Version)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("timeslot document for %s was modified concurrently: %w", doc.Date, domain.ErrConflict)
	}

	doc.Version++
	return nil
}

func (r *TimeslotRepository) Delete(ctx context.Context, date string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM timeslot_days WHERE date = $1`, date)
	return err
}

func (r *TimeslotRepository) ListDatesBefore(ctx context.Context, date string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT date FROM timeslot_days WHERE date < $1 ORDER BY date`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}
