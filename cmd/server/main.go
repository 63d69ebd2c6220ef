package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	httpAdapter "github.com/iho/aptledger/internal/adapter/http"
	"github.com/iho/aptledger/internal/adapter/http/handler"
	"github.com/iho/aptledger/internal/adapter/http/middleware"
	pgrepo "github.com/iho/aptledger/internal/adapter/repository/postgres"
	redisrepo "github.com/iho/aptledger/internal/adapter/repository/redis"
	sqliterepo "github.com/iho/aptledger/internal/adapter/repository/sqlite"
	"github.com/iho/aptledger/internal/domain"
	"github.com/iho/aptledger/internal/infrastructure/auth"
	"github.com/iho/aptledger/internal/infrastructure/config"
	"github.com/iho/aptledger/internal/infrastructure/eventpublisher"
	"github.com/iho/aptledger/internal/infrastructure/idgen"
	"github.com/iho/aptledger/internal/infrastructure/logger"
	"github.com/iho/aptledger/internal/infrastructure/metrics"
	"github.com/iho/aptledger/internal/infrastructure/postgres"
	redisinfra "github.com/iho/aptledger/internal/infrastructure/redis"
	"github.com/iho/aptledger/internal/infrastructure/retry"
	"github.com/iho/aptledger/internal/infrastructure/sqlite"
	"github.com/iho/aptledger/internal/usecase"
)

// devUser acts on every request when authentication is disabled.
var devUser = &domain.User{
	ID:    "dev",
	Email: "dev@localhost",
	Role:  domain.RoleSuperAdmin,
}

func main() {
	// A missing .env file is fine; the environment still applies.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "aptledger",
	})

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
}

func run(cfg *config.Config, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)

	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.close()

	log.Info().Str("driver", cfg.StorageDriver).Msg("storage ready")

	checks := []handler.HealthCheck{{Name: "storage", Check: store.ping}}

	live := liveServices{}
	if cfg.RedisURL != "" {
		client, err := redisinfra.NewClient(ctx, cfg.RedisURL, log)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, running without cache, live feed and idempotency")
		} else {
			defer client.Close()
			live = newLiveServices(client, log)
			checks = append(checks, handler.HealthCheck{
				Name:  "redis",
				Check: func(ctx context.Context) error { return client.Ping(ctx).Err() },
			})
		}
	}

	publisher, closePublisher := newEventPublisher(cfg, log)
	defer closePublisher()

	dispatcher := eventpublisher.NewDispatcher(eventpublisher.Config{
		Publisher: publisher,
		Logger:    log,
		Metrics:   m,
	})
	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		_ = dispatcher.Start(ctx)
	}()

	retrier := newRetrier(store.retryable, m, log)
	ids := idgen.NewULIDGenerator()

	apartmentUC := usecase.NewApartmentUseCase(store.apartments, ids, live.cache, dispatcher, log)
	ledgerUC := usecase.NewLedgerUseCase(store.apartments, store.users, store.expenses, store.payments, live.cache, m, log)
	expenseUC := usecase.NewExpenseUseCase(store.apartments, store.expenses, ids, live.cache, dispatcher, m, log)
	paymentUC := usecase.NewPaymentUseCase(store.apartments, store.payments, ids, live.cache, dispatcher, m, log)
	calendarUC := usecase.NewCalendarUseCase(store.calendar, live.feed, dispatcher, ids, retrier, m, log)
	guestUC := usecase.NewGuestUseCase(store.apartments, store.guests, ids, calendarUC, ledgerUC, expenseUC, dispatcher, m, log)
	userUC := usecase.NewUserUseCase(store.users, store.apartments, store.tx, ids, live.cache, dispatcher, m, log)

	ledgerUC.SetTouristTaxRate(cfg.TouristTaxRate)
	ledgerUC.SetBalanceCacheTTL(cfg.BalanceCacheTTL)
	calendarUC.SetBulkConcurrency(cfg.BulkWriteConcurrency)
	for _, uc := range []interface{ SetStorageTimeout(time.Duration) }{
		apartmentUC, ledgerUC, expenseUC, paymentUC, calendarUC, guestUC, userUC,
	} {
		uc.SetStorageTimeout(cfg.StorageTimeout)
	}

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, m)
	go rateLimiter.Run(ctx, time.Minute)

	routerCfg := httpAdapter.RouterConfig{
		HealthHandler:    handler.NewHealthHandler(checks...),
		ApartmentHandler: handler.NewApartmentHandler(apartmentUC),
		LedgerHandler:    handler.NewLedgerHandler(ledgerUC, apartmentUC),
		ExpenseHandler:   handler.NewExpenseHandler(expenseUC, paymentUC, apartmentUC),
		GuestHandler:     handler.NewGuestHandler(guestUC, apartmentUC),
		CalendarHandler:  handler.NewCalendarHandler(calendarUC, apartmentUC),
		UserHandler:      handler.NewUserHandler(userUC),
		IdempotencyStore: live.idempotency,
		IdempotencyTTL:   cfg.IdempotencyTTL,
		RateLimiter:      rateLimiter,
		Metrics:          m,
		Logger:           log,
	}

	if cfg.AuthEnabled {
		routerCfg.TokenVerifier = auth.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration)
		log.Info().Msg("JWT authentication enabled")
	} else {
		routerCfg.DevUser = devUser
		log.Warn().Str("user_id", devUser.ID).Msg("authentication disabled, all requests act as the development user")
	}

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      httpAdapter.NewRouter(routerCfg),
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	stop()
	<-dispatchDone

	log.Info().Msg("server exited")
	return nil
}

// storage bundles the repositories of one driver behind the use case interfaces.
type storage struct {
	apartments usecase.ApartmentRepository
	users      usecase.UserRepository
	expenses   usecase.ExpenseRepository
	payments   usecase.PaymentRepository
	guests     usecase.GuestRepository
	calendar   usecase.CalendarRepository
	tx         usecase.TransactionManager
	retryable  func(error) bool
	ping       func(ctx context.Context) error
	close      func()
}

func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*storage, error) {
	switch cfg.StorageDriver {
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath, log)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return sqliteStorage(db), nil
	case config.DriverPostgres:
		if err := postgres.RunMigrations(cfg.DatabaseURL, log); err != nil {
			return nil, fmt.Errorf("run migrations: %w", err)
		}
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, cfg.DatabaseMaxConns, cfg.DatabaseMinConns)
		if err != nil {
			return nil, fmt.Errorf("connect to database: %w", err)
		}
		return postgresStorage(pool), nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

func sqliteStorage(db *sql.DB) *storage {
	return &storage{
		apartments: sqliterepo.NewApartmentRepository(db),
		users:      sqliterepo.NewUserRepository(db),
		expenses:   sqliterepo.NewExpenseRepository(db),
		payments:   sqliterepo.NewPaymentRepository(db),
		guests:     sqliterepo.NewGuestRepository(db),
		calendar:   sqliterepo.NewCalendarRepository(db),
		tx:         sqliterepo.NewTxManager(db),
		retryable:  sqliterepo.IsBusyError,
		ping:       db.PingContext,
		close:      func() { _ = db.Close() },
	}
}

func postgresStorage(pool *pgxpool.Pool) *storage {
	return &storage{
		apartments: pgrepo.NewApartmentRepository(pool),
		users:      pgrepo.NewUserRepository(pool),
		expenses:   pgrepo.NewExpenseRepository(pool),
		payments:   pgrepo.NewPaymentRepository(pool),
		guests:     pgrepo.NewGuestRepository(pool),
		calendar:   pgrepo.NewCalendarRepository(pool),
		tx:         pgrepo.NewTxManager(pool),
		retryable:  pgrepo.IsRetryableError,
		ping:       pool.Ping,
		close:      pool.Close,
	}
}

// liveServices are the Redis-backed collaborators. Every field stays a nil
// interface when Redis is not configured so the use cases skip them.
type liveServices struct {
	cache       usecase.Cache
	feed        usecase.DayFeed
	idempotency usecase.IdempotencyStore
}

func newLiveServices(client goredis.UniversalClient, log zerolog.Logger) liveServices {
	return liveServices{
		cache:       redisrepo.NewCache(client),
		feed:        redisrepo.NewDayFeed(client, log),
		idempotency: redisrepo.NewIdempotencyStore(client),
	}
}

// newEventPublisher picks the broker publisher, falling back to logging events
// when no broker is configured or reachable.
func newEventPublisher(cfg *config.Config, log zerolog.Logger) (eventpublisher.Publisher, func()) {
	if cfg.AMQPURL == "" {
		return eventpublisher.NewLogPublisher(log), func() {}
	}

	publisher, err := eventpublisher.NewAMQPPublisher(cfg.AMQPURL, cfg.AMQPExchange, log)
	if err != nil {
		log.Warn().Err(err).Msg("AMQP broker unavailable, logging domain events instead")
		return eventpublisher.NewLogPublisher(log), func() {}
	}

	return publisher, func() { _ = publisher.Close() }
}

func newRetrier(retryable func(error) bool, m *metrics.Metrics, log zerolog.Logger) *retry.Retrier {
	opts := []retry.Option{retry.WithLogger(log)}
	if m != nil {
		opts = append(opts, retry.WithOnRetry(m.StorageRetries.Inc))
	}
	return retry.New(retryable, opts...)
}
