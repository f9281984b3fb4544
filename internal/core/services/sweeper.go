package services

import (
	"context"
	"log"
	"time"

	"github.com/justloccit/booking-backend/internal/core/domain"
	"github.com/justloccit/booking-backend/internal/core/ports"
)

const (
	DefaultSweepInterval = 1 * time.Minute
	DefaultPurgeInterval = 24 * time.Hour

	expiredBatchSize = 100
)

// Sweeper runs the two background maintenance passes: flipping stale Locked
// reservations to Expired so the reconciler frees their buckets, and purging
// calendar documents whose date has passed.
type Sweeper struct {
	reservations  ports.ReservationRepository
	timeslots     ports.TimeslotRepository
	changes       ports.ChangePublisher
	sweepInterval time.Duration
	purgeInterval time.Duration
}

func NewSweeper(reservations ports.ReservationRepository, timeslots ports.TimeslotRepository, changes ports.ChangePublisher) *Sweeper {
	return &Sweeper{
		reservations:  reservations,
		timeslots:     timeslots,
		changes:       changes,
		sweepInterval: DefaultSweepInterval,
		purgeInterval: DefaultPurgeInterval,
	}
}

func (s *Sweeper) Run(ctx context.Context) {
	sweepTicker := time.NewTicker(s.sweepInterval)
	defer sweepTicker.Stop()
	purgeTicker := time.NewTicker(s.purgeInterval)
	defer purgeTicker.Stop()

	log.Println("Sweeper started: expiring stale locks and purging outdated calendars...")

	for {
		select {
		case <-ctx.Done():
			log.Println("Sweeper stopped.")
			return
		case <-sweepTicker.C:
			s.SweepExpired(ctx)
			s.RepublishPending(ctx)
		case <-purgeTicker.C:
			s.PurgeOutdated(ctx)
		}
	}
}

// SweepExpired persists the Expired state for Locked reservations past their
// deadline and re-emits them on the change feed. The conditional transition
// keeps it safe against a concurrent Confirm or Release.
func (s *Sweeper) SweepExpired(ctx context.Context) {
	now := time.Now().UTC()

	stale, err := s.reservations.ListExpiredLocked(ctx, now, expiredBatchSize)
	if err != nil {
		log.Printf("Error fetching expired reservations: %v", err)
		return
	}
	if len(stale) == 0 {
		return
	}

	log.Printf("Found %d expired reservations. Cleaning up...", len(stale))

	for _, reservation := range stale {
		swapped, err := s.reservations.UpdateStatusIf(ctx, reservation.ID, domain.ReservationLocked, domain.ReservationExpired)
		if err != nil {
			log.Printf("Failed to expire reservation %s: %v", reservation.ID, err)
			continue
		}
		if !swapped {
			// Confirm or Release got there first.
			continue
		}

		reservation.Status = domain.ReservationExpired
		reservation.UpdatedAt = now
		if err := s.changes.PublishChange(ctx, &reservation); err != nil {
			log.Printf("Failed to publish change for expired reservation %s: %v", reservation.ID, err)
			continue
		}
		if err := s.reservations.MarkChangePublished(ctx, reservation.ID, reservation.Status); err != nil {
			log.Printf("Failed to mark change published for reservation %s: %v", reservation.ID, err)
		}
		log.Printf("Reservation %s expired and released for rebooking.", reservation.ID)
	}
}

// RepublishPending re-emits reservations whose latest state change never made
// it onto the feed, whatever state they are in. Without this a failed publish
// after, say, a cancellation would leave the calendar buckets occupied until
// the daily purge.
func (s *Sweeper) RepublishPending(ctx context.Context) {
	pending, err := s.reservations.ListUnpublished(ctx, expiredBatchSize)
	if err != nil {
		log.Printf("Error fetching unpublished reservation changes: %v", err)
		return
	}

	for _, reservation := range pending {
		if err := s.changes.PublishChange(ctx, &reservation); err != nil {
			log.Printf("Failed to republish change for reservation %s: %v", reservation.ID, err)
			continue
		}
		if err := s.reservations.MarkChangePublished(ctx, reservation.ID, reservation.Status); err != nil {
			log.Printf("Failed to mark change published for reservation %s: %v", reservation.ID, err)
		}
	}
}

// PurgeOutdated deletes calendar documents dated before the current UTC date.
func (s *Sweeper) PurgeOutdated(ctx context.Context) {
	today := time.Now().UTC().Format("2006-01-02")

	dates, err := s.timeslots.ListDatesBefore(ctx, today)
	if err != nil {
		log.Printf("Error listing outdated timeslot documents: %v", err)
		return
	}

	count := 0
	for _, date := range dates {
		if err := s.timeslots.Delete(ctx, date); err != nil {
			log.Printf("Error deleting timeslots for date %s: %v", date, err)
			continue
		}
		count++
	}

	if count > 0 {
		log.Printf("Deleted %d outdated timeslot documents", count)
	}
}
