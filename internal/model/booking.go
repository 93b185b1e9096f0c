package model

import "time"

// BookingStatus is the lifecycle state of a booking.  A booking is
// created ACTIVE and may move to CANCELLED exactly once; CANCELLED is
// terminal.
type BookingStatus string

const (
	BookingActive    BookingStatus = "ACTIVE"
	BookingCancelled BookingStatus = "CANCELLED"
)

// Valid reports whether s is one of the known statuses.
func (s BookingStatus) Valid() bool {
	return s == BookingActive || s == BookingCancelled
}

// Booking records a reservation of a named service for a local user
// at an absolute instant.  CancelledAt is nil while the booking is
// ACTIVE and set once, at cancellation time.
//
// Fields:
//  ID          – store generated identifier (UUID).
//  UserID      – owning local user (booking_users.id).
//  Date        – reserved instant, stored in UTC.
//  ServiceName – free text label of the reserved service.
//  Status      – ACTIVE or CANCELLED.
//  CancelledAt – cancellation instant, nil while ACTIVE.
//  CreatedAt   – creation timestamp.
//  UpdatedAt   – last update timestamp.
type Booking struct {
	ID          string        `json:"id"`           // bookings.id
	UserID      string        `json:"user_id"`      // bookings.user_id
	Date        time.Time     `json:"date"`         // bookings.booked_for
	ServiceName string        `json:"service_name"` // bookings.service_name
	Status      BookingStatus `json:"status"`       // bookings.status
	CancelledAt *time.Time    `json:"cancelled_at"` // bookings.cancelled_at (nullable)
	CreatedAt   time.Time     `json:"created_at"`   // bookings.created_at
	UpdatedAt   time.Time     `json:"updated_at"`   // bookings.updated_at
}

// IsCancelled reports whether the booking reached its terminal state.
func (b Booking) IsCancelled() bool { return b.Status == BookingCancelled }

// BookingView is a Booking with its date rendered in the civil
// timezone.  FormattedDate is computed when the booking is read and
// never persisted.
type BookingView struct {
	Booking
	FormattedDate string `json:"formatted_date"`
}
