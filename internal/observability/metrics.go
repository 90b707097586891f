package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rail_requests_total",
			Help: "Total number of requests",
		},
		[]string{"route", "code", "method"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "rail_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method"},
	)

	DBTxDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rail_db_tx_seconds",
			Help:    "Duration of DB transactions",
			Buckets: prometheus.DefBuckets,
		},
	)

	OutboxLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "rail_outbox_lag_seconds",
			Help: "Age of the oldest outbox record picked up for publishing",
		},
	)

	OutboxPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rail_outbox_published_total",
			Help: "Outbox records forwarded to the broker",
		},
		[]string{"event_type"},
	)

	RabbitPublishRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rail_rabbit_publish_retries_total",
			Help: "Total rabbit publish retries",
		},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rail_rate_limit_exceeded_total",
			Help: "Total rate limit exceeded",
		},
	)

	SessionsOpened = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rail_sessions_opened_total",
			Help: "Seat selection sessions opened",
		},
	)

	SeatToggles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rail_seat_toggles_total",
			Help: "Seat toggle requests by outcome",
		},
		[]string{"result"},
	)

	QuoteTotal = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rail_checkout_total_amount",
			Help:    "Booking totals at checkout, in major currency units",
			Buckets: prometheus.ExponentialBuckets(10, 4, 10),
		},
	)

	BookingTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rail_booking_transitions_total",
			Help: "Booking status changes by resulting status",
		},
		[]string{"status"},
	)

	CancellationsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "rail_cancellations_rejected_total",
			Help: "Cancel requests refused by the cancellation window or state",
		},
	)

	NotificationsStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rail_notifications_stored_total",
			Help: "Notifications appended to user feeds",
		},
		[]string{"type"},
	)
)
