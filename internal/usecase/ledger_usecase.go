package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/aptledger/internal/domain"
	"github.com/iho/aptledger/internal/infrastructure/metrics"
)

// LedgerUseCase handles balance aggregation and tourist tax quotes.
type LedgerUseCase struct {
	storageTimeout

	apartmentRepo ApartmentRepository
	userRepo      UserRepository
	expenseRepo   ExpenseRepository
	paymentRepo   PaymentRepository
	cache         Cache
	cacheTTL      time.Duration
	taxRate       decimal.Decimal
	metrics       *metrics.Metrics
	logger        zerolog.Logger
}

// NewLedgerUseCase creates a new LedgerUseCase. cache and m may be nil.
func NewLedgerUseCase(
	apartmentRepo ApartmentRepository,
	userRepo UserRepository,
	expenseRepo ExpenseRepository,
	paymentRepo PaymentRepository,
	cache Cache,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *LedgerUseCase {
	return &LedgerUseCase{
		apartmentRepo: apartmentRepo,
		userRepo:      userRepo,
		expenseRepo:   expenseRepo,
		paymentRepo:   paymentRepo,
		cache:         cache,
		cacheTTL:      DefaultBalanceCacheTTL,
		taxRate:       domain.DefaultTouristTaxRate,
		metrics:       m,
		logger:        logger,
	}
}

// SetBalanceCacheTTL overrides how long balances stay cached.
func (uc *LedgerUseCase) SetBalanceCacheTTL(ttl time.Duration) {
	if ttl > 0 {
		uc.cacheTTL = ttl
	}
}

// SetTouristTaxRate overrides the per guest per night rate.
func (uc *LedgerUseCase) SetTouristTaxRate(rate decimal.Decimal) {
	if !rate.IsNegative() {
		uc.taxRate = rate
	}
}

// TouristTaxRate returns the configured rate.
func (uc *LedgerUseCase) TouristTaxRate() decimal.Decimal {
	return uc.taxRate
}

// GetBalances returns the net balance of every apartment participant.
func (uc *LedgerUseCase) GetBalances(ctx context.Context, apartmentID string) ([]domain.Balance, error) {
	if apartmentID == "" {
		return nil, fmt.Errorf("%w: apartment id is required", domain.ErrInvalidArgument)
	}

	if cached, ok := uc.cachedBalances(ctx, apartmentID); ok {
		return cached, nil
	}

	sctx, cancel := uc.bound(ctx)
	defer cancel()

	apartment, err := uc.apartmentRepo.GetByID(sctx, apartmentID)
	if err != nil {
		return nil, err
	}

	participants, err := uc.participants(sctx, apartment)
	if err != nil {
		return nil, err
	}

	expenses, err := uc.expenseRepo.ListByApartment(sctx, apartmentID, domain.DateRange{})
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}

	payments, err := uc.paymentRepo.ListByApartment(sctx, apartmentID)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}

	balances := domain.ComputeBalances(expenses, payments, apartment.Shares, participants)

	if uc.metrics != nil {
		uc.metrics.BalanceComputations.Inc()
	}

	uc.storeBalances(ctx, apartmentID, balances)

	return balances, nil
}

// participants returns the apartment owners in owner order.
func (uc *LedgerUseCase) participants(ctx context.Context, apartment *domain.Apartment) ([]domain.Participant, error) {
	if len(apartment.Owners) == 0 {
		return nil, nil
	}

	users, err := uc.userRepo.ListByIDs(ctx, apartment.Owners)
	if err != nil {
		return nil, fmt.Errorf("list owners: %w", err)
	}

	byID := make(map[string]*domain.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	participants := make([]domain.Participant, 0, len(apartment.Owners))
	for _, id := range apartment.Owners {
		if u, ok := byID[id]; ok {
			participants = append(participants, u.Participant())
			continue
		}
		participants = append(participants, domain.Participant{ID: id, DisplayName: id})
	}

	return participants, nil
}

func (uc *LedgerUseCase) cachedBalances(ctx context.Context, apartmentID string) ([]domain.Balance, bool) {
	if uc.cache == nil {
		return nil, false
	}

	data, err := uc.cache.Get(ctx, balancesCacheKey(apartmentID))
	if err != nil || data == nil {
		uc.recordCache("miss")
		return nil, false
	}

	var balances []domain.Balance
	if err := json.Unmarshal(data, &balances); err != nil {
		uc.logger.Warn().Err(err).Str("apartment_id", apartmentID).Msg("discarding corrupt balance cache entry")
		uc.recordCache("miss")
		return nil, false
	}

	uc.recordCache("hit")
	return balances, true
}

func (uc *LedgerUseCase) storeBalances(ctx context.Context, apartmentID string, balances []domain.Balance) {
	if uc.cache == nil {
		return
	}

	data, err := json.Marshal(balances)
	if err != nil {
		return
	}

	if err := uc.cache.Set(ctx, balancesCacheKey(apartmentID), data, uc.cacheTTL); err != nil {
		uc.logger.Warn().Err(err).Str("apartment_id", apartmentID).Msg("failed to cache balances")
	}
}

func (uc *LedgerUseCase) recordCache(result string) {
	if uc.metrics != nil {
		uc.metrics.BalanceCache.WithLabelValues(result).Inc()
	}
}

// TouristTaxInput represents input for a tourist tax quote.
type TouristTaxInput struct {
	Guests   int
	CheckIn  time.Time
	CheckOut time.Time
}

// TouristTaxQuote is the tax owed for one stay.
type TouristTaxQuote struct {
	Guests         int
	Nights         int
	BillableNights int
	Rate           decimal.Decimal
	Amount         decimal.Decimal
}

// QuoteTouristTax computes the tax for a stay at the configured rate.
// Stays of zero or negative length owe nothing.
func (uc *LedgerUseCase) QuoteTouristTax(input TouristTaxInput) (*TouristTaxQuote, error) {
	if input.Guests < 0 {
		return nil, fmt.Errorf("%w: guest count must not be negative", domain.ErrInvalidArgument)
	}

	nights := domain.NightsBetween(input.CheckIn, input.CheckOut)

	return &TouristTaxQuote{
		Guests:         input.Guests,
		Nights:         nights,
		BillableNights: max(0, min(nights, domain.MaxBillableNights)),
		Rate:           uc.taxRate,
		Amount:         domain.CalculateTouristTax(input.Guests, nights, uc.taxRate),
	}, nil
}

// invalidateBalances drops the cached balances of an apartment after a ledger write.
func invalidateBalances(ctx context.Context, cache Cache, logger zerolog.Logger, apartmentID string) {
	if cache == nil {
		return
	}
	if err := cache.Delete(ctx, balancesCacheKey(apartmentID)); err != nil {
		logger.Warn().Err(err).Str("apartment_id", apartmentID).Msg("failed to invalidate balance cache")
	}
}
