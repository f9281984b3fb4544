package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/justloccit/booking-backend/internal/core/domain"
)

// SubServiceRepository is the read-only catalog projection this service
// consumes; catalog CRUD is owned elsewhere.
type SubServiceRepository struct {
	db *sql.DB
}

func NewSubServiceRepository(db *sql.DB) *SubServiceRepository {
	return &SubServiceRepository{db: db}
}

func (r *SubServiceRepository) GetSubService(ctx context.Context, id string) (*domain.SubService, error) {
	query := `
	SELECT id, name, duration, service_id, service_name
	FROM sub_services
	WHERE id = $1
	`

	var sub domain.SubService
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&sub.ID,
		&sub.Name,
		&sub.Duration,
		&sub.ServiceID,
		&sub.ServiceName,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &sub, nil
}
