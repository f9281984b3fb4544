package domain

import "time"

type BookingStatus string

const (
	BookingPending   BookingStatus = "Pending"
	BookingConfirmed BookingStatus = "Confirmed"
	BookingCancelled BookingStatus = "Cancelled"
)

// Booking is the durable artifact of a confirmed reservation. Created exactly
// once per confirmation; the source reservation stays behind as the audit
// trail and as the ownership token in the calendar.
type Booking struct {
	ID           string        `json:"id"`
	CustomerID   string        `json:"customerId"`
	SubServiceID string        `json:"subServiceId,omitempty"`
	Date         string        `json:"date"`
	StartTime    string        `json:"startTime"`
	EndTime      string        `json:"endTime"`
	Status       BookingStatus `json:"status"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}
