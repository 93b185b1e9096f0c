package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the prometheus collectors of the booking service.
type Metrics struct {
	BookingsCreated      prometheus.Counter
	BookingsCancelled    prometheus.Counter
	BookingsDeleted      prometheus.Counter
	BookingsEvicted      prometheus.Counter
	NotificationsSent    *prometheus.CounterVec
	NotificationsFailed  *prometheus.CounterVec
	NotificationsDropped *prometheus.CounterVec
	OperationDuration    *prometheus.HistogramVec
	ErrorsCount          *prometheus.CounterVec
}

// New registers the collectors on reg under the given namespace.  Pass
// prometheus.DefaultRegisterer in production and a fresh registry in
// tests.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		BookingsCreated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_created_total",
			Help:      "The total number of bookings created",
		}),
		BookingsCancelled: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_cancelled_total",
			Help:      "The total number of bookings cancelled",
		}),
		BookingsDeleted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_deleted_total",
			Help:      "The total number of bookings deleted on request",
		}),
		BookingsEvicted: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_evicted_total",
			Help:      "Cancelled bookings removed by the retention policy",
		}),
		NotificationsSent: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_sent_total",
			Help:      "Notification tasks that completed",
		}, []string{"task"}),
		NotificationsFailed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_failed_total",
			Help:      "Notification tasks that returned an error or timed out",
		}, []string{"task"}),
		NotificationsDropped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_dropped_total",
			Help:      "Notification tasks rejected because the queue was full or closed",
		}, []string{"task"}),
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Latency of booking operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		ErrorsCount: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "The total number of failed operations by error kind",
		}, []string{"operation", "kind"}),
	}
}
