package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/justloccit/booking-backend/internal/core/domain"
	"github.com/justloccit/booking-backend/internal/core/ports"
)

// DefaultLockTTL is how long a soft lock is binding before any reader may
// treat it as stale.
const DefaultLockTTL = 8 * time.Minute

type LockSingleRequest struct {
	SubServiceID string `json:"subServiceId"`
	Date         string `json:"date"`
	StartTime    string `json:"startTime"`
}

type SubServiceRequest struct {
	SubServiceID string `json:"subServiceId"`
	Duration     int    `json:"duration"`
}

type LockMultipleRequest struct {
	Date        string              `json:"date"`
	StartTime   string              `json:"startTime"`
	SubServices []SubServiceRequest `json:"subServices"`
}

type SubServiceView struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Duration int    `json:"duration"`
}

type LockResponse struct {
	Success       bool             `json:"success"`
	BookingID     string           `json:"bookingId"`
	LockExpiresAt time.Time        `json:"lockExpiresAt"`
	StartTime     string           `json:"startTime"`
	EndTime       string           `json:"endTime"`
	Duration      int              `json:"duration"`
	ServiceName   string           `json:"serviceName,omitempty"`
	SubServices   []SubServiceView `json:"subServices,omitempty"`
}

// ReservationService owns the soft-lock lifecycle: lock acquisition and
// release. It never checks bucket availability itself; the reconciler is the
// single serialization point that resolves overlapping locks, so the lock
// path stays a single-document write.
type ReservationService struct {
	reservations ports.ReservationRepository
	catalog      ports.SubServiceReader
	changes      ports.ChangePublisher
	cache        *redis.Client
	lockTTL      time.Duration
}

func NewReservationService(
	reservations ports.ReservationRepository,
	catalog ports.SubServiceReader,
	changes ports.ChangePublisher,
	cache *redis.Client,
) *ReservationService {
	return &ReservationService{
		reservations: reservations,
		catalog:      catalog,
		changes:      changes,
		cache:        cache,
		lockTTL:      DefaultLockTTL,
	}
}

// LockSingle resolves one sub-service from the catalog and writes a Locked
// reservation spanning its duration.
func (s *ReservationService) LockSingle(ctx context.Context, req LockSingleRequest) (*LockResponse, error) {
	if req.SubServiceID == "" || req.Date == "" || req.StartTime == "" {
		return nil, fmt.Errorf("%w: subServiceId, date and startTime are required", domain.ErrInvalidInput)
	}
	if !domain.ValidDate(req.Date) {
		return nil, fmt.Errorf("%w: date must be in format YYYY-MM-DD", domain.ErrInvalidInput)
	}

	startMinutes, err := domain.ParseMinutes(req.StartTime)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	sub, err := s.catalog.GetSubService(ctx, req.SubServiceID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("sub-service %s: %w", req.SubServiceID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("resolve sub-service %s: %w", req.SubServiceID, err)
	}

	if startMinutes+sub.Duration >= 24*60 {
		return nil, fmt.Errorf("%w: reservation cannot extend past midnight", domain.ErrInvalidInput)
	}

	now := time.Now().UTC()
	reservation := &domain.Reservation{
		ID:            uuid.New().String(),
		Date:          req.Date,
		PartitionKey:  req.Date,
		StartTime:     req.StartTime,
		EndTime:       domain.FormatMinutes(startMinutes + sub.Duration),
		Duration:      sub.Duration,
		Status:        domain.ReservationLocked,
		LockExpiresAt: now.Add(s.lockTTL),
		SubServiceID:  sub.ID,
		ServiceName:   sub.Name,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.reservations.Create(ctx, reservation); err != nil {
		return nil, fmt.Errorf("create reservation: %w", err)
	}

	s.publishChange(ctx, reservation)
	s.invalidateCalendar(ctx, reservation.Date)

	return &LockResponse{
		Success:       true,
		BookingID:     reservation.ID,
		LockExpiresAt: reservation.LockExpiresAt,
		StartTime:     reservation.StartTime,
		EndTime:       reservation.EndTime,
		Duration:      reservation.Duration,
		ServiceName:   reservation.ServiceName,
	}, nil
}

// LockMultiple writes one reservation covering the whole span of the supplied
// sub-services. Sub-services that fail to resolve are skipped with a warning;
// the request fails only when nothing resolves.
func (s *ReservationService) LockMultiple(ctx context.Context, req LockMultipleRequest) (*LockResponse, error) {
	if req.Date == "" || req.StartTime == "" || len(req.SubServices) == 0 {
		return nil, fmt.Errorf("%w: date, startTime and subServices are required", domain.ErrInvalidInput)
	}
	if !domain.ValidDate(req.Date) {
		return nil, fmt.Errorf("%w: date must be in format YYYY-MM-DD", domain.ErrInvalidInput)
	}

	startMinutes, err := domain.ParseMinutes(req.StartTime)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}

	var lines []domain.SubServiceLine
	for _, item := range req.SubServices {
		if item.SubServiceID == "" {
			log.Println("Skipping sub-service entry with empty id")
			continue
		}

		sub, err := s.catalog.GetSubService(ctx, item.SubServiceID)
		if err != nil {
			log.Printf("Skipping unresolvable sub-service %s: %v", item.SubServiceID, err)
			continue
		}

		// The caller's duration sizes the line; the catalog only names it.
		lines = append(lines, domain.SubServiceLine{
			SubServiceID: sub.ID,
			Name:         sub.Name,
			Duration:     item.Duration,
		})
	}

	if len(lines) == 0 {
		return nil, fmt.Errorf("no valid sub-services: %w", domain.ErrNotFound)
	}

	totalDuration := 0
	for _, line := range lines {
		totalDuration += line.Duration
	}
	if startMinutes+totalDuration >= 24*60 {
		return nil, fmt.Errorf("%w: reservation cannot extend past midnight", domain.ErrInvalidInput)
	}

	now := time.Now().UTC()
	reservation := &domain.Reservation{
		ID:            uuid.New().String(),
		Date:          req.Date,
		PartitionKey:  req.Date,
		StartTime:     req.StartTime,
		EndTime:       domain.FormatMinutes(startMinutes + totalDuration),
		Duration:      totalDuration,
		Status:        domain.ReservationLocked,
		LockExpiresAt: now.Add(s.lockTTL),
		SubServices:   lines,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.reservations.Create(ctx, reservation); err != nil {
		return nil, fmt.Errorf("create reservation: %w", err)
	}

	s.publishChange(ctx, reservation)
	s.invalidateCalendar(ctx, reservation.Date)

	views := make([]SubServiceView, 0, len(lines))
	for _, line := range lines {
		views = append(views, SubServiceView{ID: line.SubServiceID, Name: line.Name, Duration: line.Duration})
	}

	return &LockResponse{
		Success:       true,
		BookingID:     reservation.ID,
		LockExpiresAt: reservation.LockExpiresAt,
		StartTime:     reservation.StartTime,
		EndTime:       reservation.EndTime,
		Duration:      reservation.Duration,
		SubServices:   views,
	}, nil
}

// Release cancels a lock. Returns false without error when no matching
// reservation exists or the lock already reached a terminal state, so double
// release stays safe.
func (s *ReservationService) Release(ctx context.Context, bookingID, date string) (bool, error) {
	if bookingID == "" || date == "" {
		return false, fmt.Errorf("%w: bookingId and date are required", domain.ErrInvalidInput)
	}

	reservation, err := s.reservations.GetByIDAndDate(ctx, bookingID, date)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("load reservation %s: %w", bookingID, err)
	}

	swapped, err := s.reservations.UpdateStatusIf(ctx, reservation.ID, domain.ReservationLocked, domain.ReservationCancelled)
	if err != nil {
		return false, fmt.Errorf("cancel reservation %s: %w", bookingID, err)
	}
	if !swapped {
		log.Printf("Reservation %s already left Locked state, nothing to release", bookingID)
		return false, nil
	}

	reservation.Status = domain.ReservationCancelled
	reservation.UpdatedAt = time.Now().UTC()
	s.publishChange(ctx, reservation)
	s.invalidateCalendar(ctx, reservation.Date)

	return true, nil
}

// The change feed is at-least-once. A failed append is logged and the
// reservation keeps its unpublished flag, so the sweeper's republish pass
// re-emits it; only a successful append clears the flag.
func (s *ReservationService) publishChange(ctx context.Context, reservation *domain.Reservation) {
	if err := s.changes.PublishChange(ctx, reservation); err != nil {
		log.Printf("Failed to publish change for reservation %s: %v", reservation.ID, err)
		return
	}
	if err := s.reservations.MarkChangePublished(ctx, reservation.ID, reservation.Status); err != nil {
		log.Printf("Failed to mark change published for reservation %s: %v", reservation.ID, err)
	}
}

func (s *ReservationService) invalidateCalendar(ctx context.Context, date string) {
	cacheKey := fmt.Sprintf("timeslots:%s", date)
	if err := s.cache.Del(ctx, cacheKey).Err(); err != nil {
		log.Printf("Failed to invalidate calendar cache for %s: %v", date, err)
	}
}
