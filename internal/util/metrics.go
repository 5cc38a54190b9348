package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SlotBookingsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slot_bookings_total",
		Help: "Total number of successful slot capacity reservations",
	})

	SlotBookingsDeniedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "slot_bookings_denied_total",
		Help: "Total number of denied slot capacity reservations",
	}, []string{"reason"})

	SlotReleasesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "slot_releases_total",
		Help: "Total number of slot capacity releases",
	})

	BookingsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookings_created_total",
		Help: "Total number of bookings created",
	})

	BookingsCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookings_completed_total",
		Help: "Total number of bookings completed",
	})

	BookingsCancelledTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookings_cancelled_total",
		Help: "Total number of bookings cancelled",
	}, []string{"reason"})

	BookingsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookings_failed_total",
		Help: "Total number of rejected booking requests",
	}, []string{"reason"})

	PaymentsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_created_total",
		Help: "Total number of payment records created",
	})

	PaymentsCapturedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_captured_total",
		Help: "Total number of payments captured",
	})

	PaymentsFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_failed_total",
		Help: "Total number of failed payments",
	})

	PaymentsRefundedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payments_refunded_total",
		Help: "Total number of refunded payments",
	})

	PaymentIdempotentHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payment_idempotent_hits_total",
		Help: "Total number of payment creates answered from a prior record",
	})

	CommissionsCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "commissions_created_total",
		Help: "Total number of commissions created",
	})

	CommissionsSettledTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "commissions_settled_total",
		Help: "Total number of commissions settled",
	})

	StaleBookingsExpiredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stale_bookings_expired_total",
		Help: "Total number of pending bookings cancelled by the TTL sweep",
	})

	RecurringSlotsExpandedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "recurring_slots_expanded_total",
		Help: "Total number of slot instances created by recurrence expansion",
	})

	SlotBookLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "slot_book_latency_seconds",
		Help:    "Latency of slot capacity reservation operations",
		Buckets: prometheus.DefBuckets,
	})

	PaymentCaptureLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "payment_capture_latency_seconds",
		Help:    "Latency of payment capture operations",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
