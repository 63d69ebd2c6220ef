package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Calendar metrics
	DaysUpdated       *prometheus.CounterVec
	DayWriteFailures  prometheus.Counter
	BulkWriteDuration prometheus.Histogram
	FeedSubscribers   prometheus.Gauge

	// Ledger metrics
	ExpensesCreated     *prometheus.CounterVec
	PaymentsCreated     prometheus.Counter
	BalanceComputations prometheus.Counter
	BalanceCache        *prometheus.CounterVec

	// Booking metrics
	BookingsCreated     prometheus.Counter
	TouristTaxCollected prometheus.Counter

	// Provisioning metrics
	UsersProvisioned   prometheus.Counter
	UsersDeprovisioned prometheus.Counter

	// API metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
	HTTPInFlight prometheus.Gauge

	// Storage metrics
	StorageErrors  *prometheus.CounterVec
	StorageRetries prometheus.Counter

	// Authentication metrics
	AuthFailures *prometheus.CounterVec

	// Rate limiting metrics
	RateLimitHits prometheus.Counter

	// Domain event metrics
	EventsPublished *prometheus.CounterVec
}

// New creates all metrics and registers them with reg.
// A nil reg registers with the default Prometheus registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		// Calendar metrics
		DaysUpdated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aptledger_calendar_days_updated_total",
				Help: "Total calendar days written by status",
			},
			[]string{"status"},
		),
		DayWriteFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "aptledger_calendar_day_write_failures_total",
			Help: "Total calendar day writes that failed to persist",
		}),
		BulkWriteDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "aptledger_calendar_bulk_write_duration_seconds",
			Help:    "Duration of bulk calendar writes",
			Buckets: prometheus.DefBuckets,
		}),
		FeedSubscribers: factory.NewGauge(prometheus.GaugeOpts{
			Name: "aptledger_calendar_feed_subscribers",
			Help: "Current number of live calendar subscriptions",
		}),

		// Ledger metrics
		ExpensesCreated: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aptledger_expenses_created_total",
				Help: "Total expenses recorded by type",
			},
			[]string{"type"},
		),
		PaymentsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "aptledger_payments_created_total",
			Help: "Total payments recorded",
		}),
		BalanceComputations: factory.NewCounter(prometheus.CounterOpts{
			Name: "aptledger_balance_computations_total",
			Help: "Total balance aggregations computed from storage",
		}),
		BalanceCache: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aptledger_balance_cache_total",
				Help: "Balance cache lookups by result",
			},
			[]string{"result"},
		),

		// Booking metrics
		BookingsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "aptledger_bookings_created_total",
			Help: "Total bookings created",
		}),
		TouristTaxCollected: factory.NewCounter(prometheus.CounterOpts{
			Name: "aptledger_tourist_tax_collected_total",
			Help: "Sum of tourist tax charged on bookings",
		}),

		// Provisioning metrics
		UsersProvisioned: factory.NewCounter(prometheus.CounterOpts{
			Name: "aptledger_users_provisioned_total",
			Help: "Total users provisioned into apartments",
		}),
		UsersDeprovisioned: factory.NewCounter(prometheus.CounterOpts{
			Name: "aptledger_users_deprovisioned_total",
			Help: "Total users removed from apartments",
		}),

		// API metrics
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aptledger_http_requests_total",
				Help: "Total HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "aptledger_http_duration_seconds",
				Help:    "HTTP request duration",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		HTTPInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "aptledger_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		}),

		// Storage metrics
		StorageErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aptledger_storage_errors_total",
				Help: "Total storage errors by operation",
			},
			[]string{"operation"},
		),
		StorageRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "aptledger_storage_retries_total",
			Help: "Total retried storage operations",
		}),

		// Authentication metrics
		AuthFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aptledger_auth_failures_total",
				Help: "Total authentication failures",
			},
			[]string{"reason"},
		),

		// Rate limiting metrics
		RateLimitHits: factory.NewCounter(prometheus.CounterOpts{
			Name: "aptledger_rate_limit_hits_total",
			Help: "Total requests rejected by the rate limiter",
		}),

		// Domain event metrics
		EventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "aptledger_events_published_total",
				Help: "Domain events handed to the broker by result",
			},
			[]string{"result"},
		),
	}
}
