package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// Retrier implements usecase.Retrier with exponential backoff.
// Only errors accepted by the classifier are retried; everything else is permanent.
type Retrier struct {
	maxRetries      int
	initialInterval time.Duration
	maxInterval     time.Duration
	maxElapsedTime  time.Duration
	retryable       func(error) bool
	onRetry         func()
	logger          zerolog.Logger
}

// Option configures a Retrier.
type Option func(*Retrier)

// WithMaxRetries caps the number of retries after the first attempt.
func WithMaxRetries(n int) Option {
	return func(r *Retrier) { r.maxRetries = n }
}

// WithIntervals overrides the backoff intervals.
func WithIntervals(initial, maxInterval, maxElapsed time.Duration) Option {
	return func(r *Retrier) {
		r.initialInterval = initial
		r.maxInterval = maxInterval
		r.maxElapsedTime = maxElapsed
	}
}

// WithLogger sets the logger used for retry warnings.
func WithLogger(logger zerolog.Logger) Option {
	return func(r *Retrier) { r.logger = logger }
}

// WithOnRetry registers a hook invoked before every retry, e.g. a metrics counter.
func WithOnRetry(fn func()) Option {
	return func(r *Retrier) { r.onRetry = fn }
}

// New creates a retrier with default settings. retryable decides which errors
// are transient for the storage driver in use.
func New(retryable func(error) bool, opts ...Option) *Retrier {
	r := &Retrier{
		maxRetries:      3,
		initialInterval: 50 * time.Millisecond,
		maxInterval:     1 * time.Second,
		maxElapsedTime:  10 * time.Second,
		retryable:       retryable,
		logger:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.retryable == nil {
		r.retryable = func(error) bool { return false }
	}
	return r
}

// Retry executes an operation with exponential backoff on retryable errors.
func (r *Retrier) Retry(ctx context.Context, operation func() error) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.initialInterval
	b.MaxInterval = r.maxInterval
	b.MaxElapsedTime = r.maxElapsedTime

	retryCount := 0

	return backoff.Retry(func() error {
		err := operation()
		if err == nil {
			return nil
		}

		if !r.retryable(err) {
			return backoff.Permanent(err)
		}

		retryCount++
		if retryCount > r.maxRetries {
			return backoff.Permanent(err)
		}

		r.logger.Warn().
			Err(err).
			Int("retry", retryCount).
			Msg("retryable storage error, retrying")

		if r.onRetry != nil {
			r.onRetry()
		}

		return err
	}, backoff.WithContext(b, ctx))
}
