package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/justloccit/booking-backend/internal/core/domain"
	"github.com/justloccit/booking-backend/internal/core/ports"
)

const (
	reconcileMaxRetries   = 5
	reconcileRetryBackoff = 50 * time.Millisecond
)

// Reconciler is the sole writer of calendar occupancy. It consumes the
// ordered reservation change feed and merges each observed state into the
// per-date timeslot document under the ownership-token rule: a bucket's
// owner, once set by a Locked/Confirmed reservation, can only be cleared by
// that same reservation's transition to a terminal non-owning state.
type Reconciler struct {
	timeslots ports.TimeslotRepository
	cache     *redis.Client
}

func NewReconciler(timeslots ports.TimeslotRepository, cache *redis.Client) *Reconciler {
	return &Reconciler{timeslots: timeslots, cache: cache}
}

// Apply merges a single reservation change into the calendar. Malformed or
// unresolvable changes are logged and dropped; only store failures propagate
// so the feed can redeliver them.
func (rc *Reconciler) Apply(ctx context.Context, reservation domain.Reservation) error {
	startMinutes, err := domain.ParseMinutes(reservation.StartTime)
	if err != nil {
		log.Printf("Invalid start time in reservation %s: %v", reservation.ID, err)
		return nil
	}
	endMinutes, err := domain.ParseMinutes(reservation.EndTime)
	if err != nil {
		log.Printf("Invalid end time in reservation %s: %v", reservation.ID, err)
		return nil
	}

	for attempt := 1; ; attempt++ {
		doc, err := rc.timeslots.Get(ctx, reservation.Date)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				// Calendar creation may lag reservation creation.
				log.Printf("No timeslot document for date %s, skipping reservation %s", reservation.Date, reservation.ID)
				return nil
			}
			return fmt.Errorf("load timeslots for %s: %w", reservation.Date, err)
		}

		if !rc.applyToDocument(doc, &reservation, startMinutes, endMinutes) {
			return nil
		}

		doc.RecomputeAvailability()

		err = rc.timeslots.Update(ctx, doc)
		if err == nil {
			rc.invalidateCalendar(ctx, reservation.Date)
			return nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return fmt.Errorf("update timeslots for %s: %w", reservation.Date, err)
		}
		if attempt >= reconcileMaxRetries {
			return fmt.Errorf("update timeslots for %s: version conflict after %d attempts: %w", reservation.Date, attempt, err)
		}

		log.Printf("Version conflict on timeslots %s, retrying (attempt %d)", reservation.Date, attempt)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * reconcileRetryBackoff):
		}
	}
}

// applyToDocument mutates buckets in [startMinutes, endMinutes) and reports
// whether anything changed.
func (rc *Reconciler) applyToDocument(doc *domain.TimeslotDocument, reservation *domain.Reservation, startMinutes, endMinutes int) bool {
	freeing := reservation.Status == domain.ReservationCancelled || reservation.Status == domain.ReservationExpired
	claiming := reservation.Status == domain.ReservationLocked || reservation.Status == domain.ReservationConfirmed

	changed := false
	for i := range doc.TimeSlots {
		slot := &doc.TimeSlots[i]
		if slot.TotalMinutes < startMinutes || slot.TotalMinutes >= endMinutes {
			continue
		}

		switch {
		case freeing:
			// Never free a bucket owned by a different, newer reservation.
			if slot.BookingID == reservation.ID {
				slot.IsAvailable = true
				slot.BookingID = ""
				slot.BookedBy = ""
				slot.SubServiceID = ""
				changed = true
			}
		case claiming:
			if slot.IsAvailable || slot.BookingID == reservation.ID {
				slot.IsAvailable = false
				slot.BookingID = reservation.ID
				slot.BookedBy = reservation.ServiceLabel()
				slot.SubServiceID = reservation.SubServiceID
				changed = true
			} else {
				log.Printf("Timeslot %s on %s is already booked by another reservation", slot.DisplayTime, doc.Date)
			}
		}
	}
	return changed
}

func (rc *Reconciler) invalidateCalendar(ctx context.Context, date string) {
	cacheKey := fmt.Sprintf("timeslots:%s", date)
	if err := rc.cache.Del(ctx, cacheKey).Err(); err != nil {
		log.Printf("Failed to invalidate calendar cache for %s: %v", date, err)
	}
}
