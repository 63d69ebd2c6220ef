package usecase

import (
	"context"
	"time"
)

const (
	// DefaultStorageTimeout bounds a single storage call when none is configured.
	DefaultStorageTimeout = 5 * time.Second

	// DefaultBulkConcurrency is the number of day upserts a bulk edit runs in parallel.
	DefaultBulkConcurrency = 8

	// DefaultBalanceCacheTTL is how long computed balances are cached.
	DefaultBalanceCacheTTL = 5 * time.Minute

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour
)

// storageTimeout is embedded by use cases that talk to storage.
type storageTimeout struct {
	timeout time.Duration
}

// SetStorageTimeout overrides the per-call storage timeout. Non-positive values are ignored.
func (s *storageTimeout) SetStorageTimeout(d time.Duration) {
	if d > 0 {
		s.timeout = d
	}
}

func (s *storageTimeout) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	d := s.timeout
	if d <= 0 {
		d = DefaultStorageTimeout
	}
	return context.WithTimeout(ctx, d)
}

func balancesCacheKey(apartmentID string) string {
	return "balances:" + apartmentID
}
