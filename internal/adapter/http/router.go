package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/iho/aptledger/internal/adapter/http/handler"
	"github.com/iho/aptledger/internal/adapter/http/middleware"
	"github.com/iho/aptledger/internal/domain"
	"github.com/iho/aptledger/internal/infrastructure/metrics"
	"github.com/iho/aptledger/internal/usecase"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	HealthHandler    *handler.HealthHandler
	ApartmentHandler *handler.ApartmentHandler
	LedgerHandler    *handler.LedgerHandler
	ExpenseHandler   *handler.ExpenseHandler
	GuestHandler     *handler.GuestHandler
	CalendarHandler  *handler.CalendarHandler
	UserHandler      *handler.UserHandler

	// TokenVerifier authenticates /api/v1. When nil every request runs as DevUser.
	TokenVerifier middleware.TokenVerifier
	DevUser       *domain.User

	IdempotencyStore usecase.IdempotencyStore
	IdempotencyTTL   time.Duration
	RateLimiter      *middleware.RateLimiter
	Metrics          *metrics.Metrics
	// MetricsHandler serves /metrics; defaults to the global Prometheus registry.
	MetricsHandler http.Handler
	Logger         zerolog.Logger
}

// NewRouter creates a new HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.NewLoggingMiddleware(cfg.Logger).Wrap)
	r.Use(middleware.Metrics(cfg.Metrics))
	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Limit)
	}

	// Health endpoints
	r.Get("/health", cfg.HealthHandler.Liveness)
	r.Get("/ready", cfg.HealthHandler.Readiness)

	metricsHandler := cfg.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	// API v1
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.TokenVerifier != nil {
			r.Use(middleware.AuthMiddleware(cfg.TokenVerifier, cfg.Metrics))
		} else {
			r.Use(middleware.StaticUser(cfg.DevUser))
		}

		// Idempotency middleware for mutating requests
		if cfg.IdempotencyStore != nil {
			idempotencyMiddleware := middleware.NewIdempotencyMiddleware(cfg.IdempotencyStore, cfg.IdempotencyTTL, cfg.Logger)
			r.Use(idempotencyMiddleware.Wrap)
		}

		r.Get("/me", cfg.UserHandler.Me)
		r.Get("/tourist-tax", cfg.LedgerHandler.TouristTax)

		// Apartments
		r.Route("/apartments", func(r chi.Router) {
			r.Post("/", cfg.ApartmentHandler.Create)
			r.Get("/", cfg.ApartmentHandler.List)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", cfg.ApartmentHandler.Get)
				r.Put("/shares", cfg.ApartmentHandler.UpdateShares)
				r.Get("/balances", cfg.LedgerHandler.Balances)

				r.Get("/expenses", cfg.ExpenseHandler.ListExpenses)
				r.Post("/expenses", cfg.ExpenseHandler.CreateExpense)
				r.Delete("/expenses/{expenseID}", cfg.ExpenseHandler.DeleteExpense)

				r.Get("/payments", cfg.ExpenseHandler.ListPayments)
				r.Post("/payments", cfg.ExpenseHandler.CreatePayment)

				r.Get("/guests", cfg.GuestHandler.List)
				r.Post("/guests", cfg.GuestHandler.Create)
				r.Delete("/guests/{guestID}", cfg.GuestHandler.Delete)
				r.Post("/bookings", cfg.GuestHandler.CreateBooking)

				// Calendar
				r.Route("/calendar", func(r chi.Router) {
					r.Get("/stream", cfg.CalendarHandler.Stream)
					r.Get("/{year}/{month}", cfg.CalendarHandler.GetMonth)
					r.Put("/{year}/{month}", cfg.CalendarHandler.BulkSetDays)
					r.Get("/{year}/{month}/export", cfg.CalendarHandler.Export)
					r.Put("/{year}/{month}/{day}", cfg.CalendarHandler.SetDay)
				})
			})
		})

		// Provisioning
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(domain.RoleManager))
			r.Post("/users", cfg.UserHandler.Provision)
			r.Delete("/apartments/{id}/users/{userID}", cfg.UserHandler.Remove)
		})
	})

	return r
}
