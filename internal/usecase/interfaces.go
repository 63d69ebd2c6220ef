package usecase

import (
	"context"
	"time"

	"github.com/iho/aptledger/internal/domain"
)

// ApartmentRepository defines data access for apartments and their owners.
type ApartmentRepository interface {
	Create(ctx context.Context, apartment *domain.Apartment) error
	GetByID(ctx context.Context, id string) (*domain.Apartment, error)
	ListByOwner(ctx context.Context, userID string) ([]*domain.Apartment, error)
	UpdateShares(ctx context.Context, id string, shares domain.SharePlan) error
	AddOwner(ctx context.Context, id, userID string) error
	RemoveOwner(ctx context.Context, id, userID string) error
}

// ExpenseRepository defines data access for expenses.
type ExpenseRepository interface {
	Create(ctx context.Context, expense *domain.Expense) error
	GetByID(ctx context.Context, id string) (*domain.Expense, error)
	// ListByApartment returns expenses ordered by date, newest first.
	ListByApartment(ctx context.Context, apartmentID string, dates domain.DateRange) ([]*domain.Expense, error)
	Delete(ctx context.Context, id string) error
}

// PaymentRepository defines data access for payments.
type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	ListByApartment(ctx context.Context, apartmentID string) ([]*domain.Payment, error)
}

// GuestRepository defines data access for guests.
type GuestRepository interface {
	Create(ctx context.Context, guest *domain.Guest) error
	GetByID(ctx context.Context, id string) (*domain.Guest, error)
	ListByApartment(ctx context.Context, apartmentID string) ([]*domain.Guest, error)
	Delete(ctx context.Context, id string) error
}

// CalendarRepository defines data access for day records.
// Upsert is last-write-wins per (apartment, year, month, day).
type CalendarRepository interface {
	Upsert(ctx context.Context, record *domain.DayRecord) error
	ListMonth(ctx context.Context, apartmentID string, year, month int) ([]*domain.DayRecord, error)
}

// UserRepository defines data access for users.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	ListByIDs(ctx context.Context, ids []string) ([]*domain.User, error)
	Delete(ctx context.Context, id string) error
}

// TransactionManager runs fn inside a storage transaction. Repositories called
// with the ctx passed to fn take part in the transaction.
type TransactionManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// DayFeed carries live day record updates between service instances.
type DayFeed interface {
	Publish(ctx context.Context, record *domain.DayRecord) error
	Subscribe(ctx context.Context, apartmentID string) (DaySubscription, error)
}

// DaySubscription is a lazy, non-restartable stream of updates for one apartment.
// Updates is closed once Close returns; no value is delivered after that.
type DaySubscription interface {
	Updates() <-chan *domain.DayRecord
	Close() error
}

// EventPublisher publishes domain events to external systems.
type EventPublisher interface {
	Publish(ctx context.Context, event *domain.Event) error
}

// IDGenerator generates unique IDs.
type IDGenerator interface {
	Generate() string
}

// Retrier retries transient storage failures.
type Retrier interface {
	Retry(ctx context.Context, operation func() error) error
}

// Cache defines caching operations.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// IdempotencyStore handles idempotency key storage.
type IdempotencyStore interface {
	// CheckAndSet atomically checks if key exists, sets if not.
	// Returns (exists, existingValue, error).
	CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	// Update updates an existing key with the final response.
	Update(ctx context.Context, key string, response []byte, ttl time.Duration) error
	// Release drops a claim so the key can be retried.
	Release(ctx context.Context, key string) error
}
