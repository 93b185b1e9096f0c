// Package queue carries booking events over RabbitMQ: the publisher used
// by the booking service and the consumer run by the notifier.
package queue

// Routing keys on the bookings topic exchange.
const (
	RoutingBookingCreated   = "booking.created"
	RoutingBookingCancelled = "booking.cancelled"
)
