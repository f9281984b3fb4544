package domain

import (
	"strings"
	"time"
)

type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "Pending"
	ReservationLocked    ReservationStatus = "Locked"
	ReservationConfirmed ReservationStatus = "Confirmed"
	ReservationCancelled ReservationStatus = "Cancelled"
	ReservationExpired   ReservationStatus = "Expired"
)

// Reservation is a soft lock on a window of calendar buckets. It reserves
// intent, not a durable booking; past LockExpiresAt a Locked reservation is
// non-binding and must be treated as such by every reader.
type Reservation struct {
	ID            string            `json:"id"`
	Date          string            `json:"date"`
	PartitionKey  string            `json:"partitionKey"`
	StartTime     string            `json:"startTime"`
	EndTime       string            `json:"endTime"`
	Duration      int               `json:"duration"`
	Status        ReservationStatus `json:"status"`
	LockExpiresAt time.Time         `json:"lockExpiresAt"`
	SubServiceID  string            `json:"subServiceId,omitempty"`
	ServiceName   string            `json:"serviceName,omitempty"`
	SubServices   []SubServiceLine  `json:"subServices,omitempty"`
	Notes         string            `json:"notes,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// SubServiceLine is one constituent sub-service of a multi-service reservation.
type SubServiceLine struct {
	SubServiceID string `json:"subServiceId"`
	Name         string `json:"name"`
	Duration     int    `json:"duration"`
}

// IsExpired reports whether a still-Locked reservation has outlived its lock.
// Terminal states are never expired; they already resolved the lock.
func (r *Reservation) IsExpired(now time.Time) bool {
	return r.Status == ReservationLocked && now.After(r.LockExpiresAt)
}

func (r *Reservation) IsTerminal() bool {
	return r.Status == ReservationConfirmed || r.Status == ReservationCancelled
}

// ServiceLabel is the human-readable description written into calendar
// buckets this reservation occupies.
func (r *Reservation) ServiceLabel() string {
	if r.ServiceName != "" {
		return r.ServiceName
	}
	names := make([]string, 0, len(r.SubServices))
	for _, s := range r.SubServices {
		names = append(names, s.Name)
	}
	return strings.Join(names, ", ")
}
