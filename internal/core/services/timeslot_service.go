package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/justloccit/booking-backend/internal/core/domain"
	"github.com/justloccit/booking-backend/internal/core/ports"
)

const calendarCacheTTL = 5 * time.Minute

// TimeslotEdits carries the administrative partial update for a calendar
// document. Occupancy changes never come through here; that is the
// reconciler's job.
type TimeslotEdits struct {
	TimeSlots    []domain.TimeSlot `json:"timeSlots"`
	SpecialNotes string            `json:"specialNotes"`
}

// TimeslotService owns calendar document creation and administrative edits.
type TimeslotService struct {
	timeslots ports.TimeslotRepository
	cache     *redis.Client
}

func NewTimeslotService(timeslots ports.TimeslotRepository, cache *redis.Client) *TimeslotService {
	return &TimeslotService{timeslots: timeslots, cache: cache}
}

// CreateForDate creates the calendar document for a date, seeded with the
// supplied buckets or the default business-hours grid.
func (s *TimeslotService) CreateForDate(ctx context.Context, date string, seed []domain.TimeSlot, notes string) (*domain.TimeslotDocument, error) {
	if !domain.ValidDate(date) {
		return nil, fmt.Errorf("%w: date must be in format YYYY-MM-DD", domain.ErrInvalidInput)
	}

	if _, err := s.timeslots.Get(ctx, date); err == nil {
		return nil, fmt.Errorf("timeslot document for date %s already exists: %w", date, domain.ErrConflict)
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("check existing timeslots for %s: %w", date, err)
	}

	slots := seed
	if len(slots) == 0 {
		slots = domain.NewDefaultSlots()
	}

	doc := &domain.TimeslotDocument{
		Date:         date,
		PartitionKey: domain.PartitionKeyForDate(date),
		TimeSlots:    slots,
		SpecialNotes: notes,
	}
	doc.RecomputeAvailability()

	if err := s.timeslots.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create timeslots for %s: %w", date, err)
	}

	s.invalidate(ctx, date)
	return doc, nil
}

// Get reads the calendar document through the cache.
func (s *TimeslotService) Get(ctx context.Context, date string) (*domain.TimeslotDocument, error) {
	if !domain.ValidDate(date) {
		return nil, fmt.Errorf("%w: date must be in format YYYY-MM-DD", domain.ErrInvalidInput)
	}

	cacheKey := fmt.Sprintf("timeslots:%s", date)
	if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
		var doc domain.TimeslotDocument
		if err := json.Unmarshal([]byte(cached), &doc); err == nil {
			return &doc, nil
		}
		log.Printf("Dropping unreadable calendar cache entry for %s", date)
	}

	doc, err := s.timeslots.Get(ctx, date)
	if err != nil {
		return nil, err
	}

	if body, err := json.Marshal(doc); err == nil {
		if err := s.cache.Set(ctx, cacheKey, body, calendarCacheTTL).Err(); err != nil {
			log.Printf("Failed to cache timeslots for %s: %v", date, err)
		}
	}
	return doc, nil
}

// Update merges administrative edits over the existing document: the bucket
// list only when one is supplied, the notes only when non-empty.
func (s *TimeslotService) Update(ctx context.Context, date string, edits TimeslotEdits) (*domain.TimeslotDocument, error) {
	if !domain.ValidDate(date) {
		return nil, fmt.Errorf("%w: date must be in format YYYY-MM-DD", domain.ErrInvalidInput)
	}

	doc, err := s.timeslots.Get(ctx, date)
	if err != nil {
		return nil, err
	}

	if len(edits.TimeSlots) > 0 {
		doc.TimeSlots = edits.TimeSlots
	}
	if edits.SpecialNotes != "" {
		doc.SpecialNotes = edits.SpecialNotes
	}
	doc.RecomputeAvailability()

	if err := s.timeslots.Update(ctx, doc); err != nil {
		return nil, fmt.Errorf("update timeslots for %s: %w", date, err)
	}

	s.invalidate(ctx, date)
	return doc, nil
}

// Delete removes the calendar document. Deleting an absent date is not an
// error.
func (s *TimeslotService) Delete(ctx context.Context, date string) error {
	if !domain.ValidDate(date) {
		return fmt.Errorf("%w: date must be in format YYYY-MM-DD", domain.ErrInvalidInput)
	}

	if err := s.timeslots.Delete(ctx, date); err != nil {
		return fmt.Errorf("delete timeslots for %s: %w", date, err)
	}

	s.invalidate(ctx, date)
	return nil
}

func (s *TimeslotService) invalidate(ctx context.Context, date string) {
	cacheKey := fmt.Sprintf("timeslots:%s", date)
	if err := s.cache.Del(ctx, cacheKey).Err(); err != nil {
		log.Printf("Failed to invalidate calendar cache for %s: %v", date, err)
	}
}
