package domain

import "regexp"

const (
	// Default business-hours grid: 30-minute buckets from 09:00 to 17:00.
	DefaultOpenHour   = 9
	DefaultCloseHour  = 17
	DefaultSlotMinute = 30
)

var dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// ValidDate reports whether date is in YYYY-MM-DD form.
func ValidDate(date string) bool {
	return dateRe.MatchString(date)
}

// PartitionKeyForDate derives the YYYY-MM partition key from a YYYY-MM-DD date.
// Coarser than the document key so writes spread across a month while all
// buckets for one date stay in a single document.
func PartitionKeyForDate(date string) string {
	if len(date) < 7 {
		return date
	}
	return date[:7]
}

// TimeSlot is one fixed-width bucket within a day. BookingID is the ownership
// token: IsAvailable == false exactly when BookingID is set, and only the
// reservation holding the token may clear it.
type TimeSlot struct {
	TotalMinutes int    `json:"totalMinutes"`
	DisplayTime  string `json:"displayTime"`
	IsAvailable  bool   `json:"isAvailable"`
	BookingID    string `json:"bookingId"`
	BookedBy     string `json:"bookedBy"`
	SubServiceID string `json:"subServiceId"`
}

// TimeslotDocument is the per-date calendar document. The bucket set is fixed
// at creation; only occupancy fields change afterwards.
type TimeslotDocument struct {
	Date         string     `json:"date"`
	PartitionKey string     `json:"partitionKey"`
	TimeSlots    []TimeSlot `json:"timeSlots"`
	IsAvailable  bool       `json:"isAvailable"`
	SpecialNotes string     `json:"specialNotes,omitempty"`
	Version      int        `json:"version"`
}

// NewDefaultSlots generates the default free grid.
func NewDefaultSlots() []TimeSlot {
	var slots []TimeSlot
	for hour := DefaultOpenHour; hour < DefaultCloseHour; hour++ {
		for minute := 0; minute < 60; minute += DefaultSlotMinute {
			total := hour*60 + minute
			slots = append(slots, TimeSlot{
				TotalMinutes: total,
				DisplayTime:  FormatMinutes(total),
				IsAvailable:  true,
			})
		}
	}
	return slots
}

// RecomputeAvailability refreshes the derived top-level flag: the day is
// available iff any bucket is free. Must run after every bucket mutation.
func (d *TimeslotDocument) RecomputeAvailability() {
	d.IsAvailable = false
	for _, slot := range d.TimeSlots {
		if slot.IsAvailable {
			d.IsAvailable = true
			return
		}
	}
}
