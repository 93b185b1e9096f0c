package model

// BookingEvent carries what a notification channel needs to address
// and render a booking-created or booking-cancelled message.  Date is
// already formatted in the civil timezone.
type BookingEvent struct {
	BookingID   string `json:"booking_id"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	ServiceName string `json:"service_name"`
	Date        string `json:"date"`
	OccurredAt  string `json:"occurred_at"`
}
