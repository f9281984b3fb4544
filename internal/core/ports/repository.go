package ports

import (
	"context"
	"time"

	"github.com/justloccit/booking-backend/internal/core/domain"
)

type ReservationRepository interface {
	Create(ctx context.Context, reservation *domain.Reservation) error
	GetByID(ctx context.Context, id string) (*domain.Reservation, error)
	GetByIDAndDate(ctx context.Context, id, date string) (*domain.Reservation, error)
	// UpdateStatusIf transitions status from -> to only when the current
	// status still matches from. Returns false when another transition won.
	// Every transition resets the published flag for the new state.
	UpdateStatusIf(ctx context.Context, id string, from, to domain.ReservationStatus) (bool, error)
	ListExpiredLocked(ctx context.Context, now time.Time, limit int) ([]domain.Reservation, error)
	// ListUnpublished returns reservations whose latest state change has not
	// reached the change feed yet.
	ListUnpublished(ctx context.Context, limit int) ([]domain.Reservation, error)
	// MarkChangePublished records that the feed carries the reservation's
	// state. Guarded on status so a concurrent transition is not marked away.
	MarkChangePublished(ctx context.Context, id string, status domain.ReservationStatus) error
}

type TimeslotRepository interface {
	Create(ctx context.Context, doc *domain.TimeslotDocument) error
	Get(ctx context.Context, date string) (*domain.TimeslotDocument, error)
	// Update writes the document back under its version token and fails with
	// domain.ErrConflict when a concurrent writer bumped the version first.
	Update(ctx context.Context, doc *domain.TimeslotDocument) error
	Delete(ctx context.Context, date string) error
	ListDatesBefore(ctx context.Context, date string) ([]string, error)
}

type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	UpdateStatus(ctx context.Context, id string, status domain.BookingStatus) error
}

type CustomerRepository interface {
	Get(ctx context.Context, id string) (*domain.Customer, error)
	Put(ctx context.Context, customer *domain.Customer) error
}

// SubServiceReader is the catalog lookup consumed when sizing a reservation.
type SubServiceReader interface {
	GetSubService(ctx context.Context, id string) (*domain.SubService, error)
}

// ChangePublisher appends a reservation snapshot to the ordered change feed
// that drives the calendar reconciler. At-least-once delivery.
type ChangePublisher interface {
	PublishChange(ctx context.Context, reservation *domain.Reservation) error
}

// EventPublisher fans booking lifecycle events out to downstream consumers
// (email, audit). Fire-and-forget; failures are non-fatal to the caller.
type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, payload any) error
}
