package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/justloccit/booking-backend/internal/core/domain"
	"github.com/justloccit/booking-backend/internal/core/ports"
)

// EventBookingReserved is the routing key for the confirmation lifecycle
// event consumed by email and audit downstream.
const EventBookingReserved = "booking.reserved"

type CustomerInput struct {
	ID    string `json:"id,omitempty"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type ConfirmRequest struct {
	BookingID string        `json:"bookingId"`
	Customer  CustomerInput `json:"customer"`
}

type ConfirmResponse struct {
	Success    bool   `json:"success"`
	BookingID  string `json:"bookingId"`
	CustomerID string `json:"customerId"`
	Date       string `json:"date"`
	StartTime  string `json:"startTime"`
	EndTime    string `json:"endTime"`
}

// ConfirmationService promotes a locked reservation into a durable booking.
// The booking write is the authoritative outcome; downstream notification is
// best-effort on top of it.
type ConfirmationService struct {
	reservations ports.ReservationRepository
	bookings     ports.BookingRepository
	customers    ports.CustomerRepository
	changes      ports.ChangePublisher
	events       ports.EventPublisher
}

func NewConfirmationService(
	reservations ports.ReservationRepository,
	bookings ports.BookingRepository,
	customers ports.CustomerRepository,
	changes ports.ChangePublisher,
	events ports.EventPublisher,
) *ConfirmationService {
	return &ConfirmationService{
		reservations: reservations,
		bookings:     bookings,
		customers:    customers,
		changes:      changes,
		events:       events,
	}
}

// Confirm converts the reservation identified by req.BookingID plus the
// supplied customer identity into a Booking. Only the first terminal
// transition of the reservation wins; a lost race surfaces as a conflict.
func (s *ConfirmationService) Confirm(ctx context.Context, req ConfirmRequest) (*ConfirmResponse, error) {
	if req.BookingID == "" {
		return nil, fmt.Errorf("%w: bookingId is required", domain.ErrInvalidInput)
	}

	reservation, err := s.reservations.GetByID(ctx, req.BookingID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("reservation %s: %w", req.BookingID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("load reservation %s: %w", req.BookingID, err)
	}

	now := time.Now().UTC()
	if reservation.Status != domain.ReservationLocked {
		return nil, fmt.Errorf("reservation %s is %s, not Locked: %w", reservation.ID, reservation.Status, domain.ErrConflict)
	}
	if reservation.IsExpired(now) {
		return nil, fmt.Errorf("reservation %s lock expired: %w", reservation.ID, domain.ErrConflict)
	}

	customer, err := s.upsertCustomer(ctx, req.Customer, now)
	if err != nil {
		return nil, err
	}

	booking := &domain.Booking{
		ID:           uuid.New().String(),
		CustomerID:   customer.ID,
		SubServiceID: reservation.SubServiceID,
		Date:         reservation.Date,
		StartTime:    reservation.StartTime,
		EndTime:      reservation.EndTime,
		Status:       domain.BookingPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.bookings.Create(ctx, booking); err != nil {
		return nil, fmt.Errorf("create booking: %w", err)
	}

	swapped, err := s.reservations.UpdateStatusIf(ctx, reservation.ID, domain.ReservationLocked, domain.ReservationConfirmed)
	if err != nil {
		return nil, fmt.Errorf("confirm reservation %s: %w", reservation.ID, err)
	}
	if !swapped {
		// A concurrent release or expiry sweep won; withdraw the booking.
		if undoErr := s.bookings.UpdateStatus(ctx, booking.ID, domain.BookingCancelled); undoErr != nil {
			log.Printf("Failed to cancel booking %s after lost confirmation race: %v", booking.ID, undoErr)
		}
		return nil, fmt.Errorf("reservation %s was released before confirmation: %w", reservation.ID, domain.ErrConflict)
	}

	reservation.Status = domain.ReservationConfirmed
	reservation.UpdatedAt = now
	if err := s.changes.PublishChange(ctx, reservation); err != nil {
		log.Printf("Failed to publish change for reservation %s: %v", reservation.ID, err)
	} else if err := s.reservations.MarkChangePublished(ctx, reservation.ID, reservation.Status); err != nil {
		log.Printf("Failed to mark change published for reservation %s: %v", reservation.ID, err)
	}

	s.publishReservedEvent(ctx, booking, customer, reservation)

	return &ConfirmResponse{
		Success:    true,
		BookingID:  booking.ID,
		CustomerID: customer.ID,
		Date:       booking.Date,
		StartTime:  booking.StartTime,
		EndTime:    booking.EndTime,
	}, nil
}

// upsertCustomer resolves the caller's customer: an existing record is merged
// field by field (only supplied fields overwrite), a missing one is created
// with the supplied or a generated id.
func (s *ConfirmationService) upsertCustomer(ctx context.Context, input CustomerInput, now time.Time) (*domain.Customer, error) {
	if input.ID != "" {
		existing, err := s.customers.Get(ctx, input.ID)
		if err == nil {
			if input.Name != "" {
				existing.Name = input.Name
			}
			if input.Email != "" {
				existing.Email = input.Email
			}
			if input.Phone != "" {
				existing.Phone = input.Phone
			}
			existing.UpdatedAt = now
			if err := s.customers.Put(ctx, existing); err != nil {
				return nil, fmt.Errorf("update customer %s: %w", existing.ID, err)
			}
			return existing, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("load customer %s: %w", input.ID, err)
		}
	}

	customer := &domain.Customer{
		ID:        input.ID,
		Name:      input.Name,
		Email:     input.Email,
		Phone:     input.Phone,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if customer.ID == "" {
		customer.ID = uuid.New().String()
	}
	if err := s.customers.Put(ctx, customer); err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return customer, nil
}

func (s *ConfirmationService) publishReservedEvent(ctx context.Context, booking *domain.Booking, customer *domain.Customer, reservation *domain.Reservation) {
	payload := map[string]any{
		"bookingId":     booking.ID,
		"customerId":    customer.ID,
		"customerName":  customer.Name,
		"customerEmail": customer.Email,
		"customerPhone": customer.Phone,
		"subServiceId":  booking.SubServiceID,
		"serviceName":   reservation.ServiceLabel(),
		"date":          booking.Date,
		"startTime":     booking.StartTime,
		"endTime":       booking.EndTime,
		"status":        booking.Status,
	}
	if err := s.events.PublishJSON(ctx, EventBookingReserved, payload); err != nil {
		log.Printf("Failed to publish %s event for booking %s: %v", EventBookingReserved, booking.ID, err)
	}
}
