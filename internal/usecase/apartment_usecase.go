package usecase

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/aptledger/internal/domain"
)

// ApartmentUseCase handles apartment business logic.
type ApartmentUseCase struct {
	storageTimeout
	emitter

	apartmentRepo ApartmentRepository
	idGen         IDGenerator
	cache         Cache
	logger        zerolog.Logger
}

// NewApartmentUseCase creates a new ApartmentUseCase.
func NewApartmentUseCase(
	apartmentRepo ApartmentRepository,
	idGen IDGenerator,
	cache Cache,
	publisher EventPublisher,
	logger zerolog.Logger,
) *ApartmentUseCase {
	return &ApartmentUseCase{
		emitter:       emitter{publisher: publisher, idGen: idGen, logger: logger},
		apartmentRepo: apartmentRepo,
		idGen:         idGen,
		cache:         cache,
		logger:        logger,
	}
}

// CreateApartmentInput represents input for creating an apartment.
type CreateApartmentInput struct {
	Name     string
	Address  string
	Currency string
	OwnerIDs []string
	Shares   domain.SharePlan
}

// CreateApartment creates a new apartment.
func (uc *ApartmentUseCase) CreateApartment(ctx context.Context, input CreateApartmentInput) (*domain.Apartment, error) {
	if err := domain.ValidateName(input.Name); err != nil {
		return nil, err
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if err := domain.ValidateCurrency(currency); err != nil {
		return nil, err
	}

	owners := dedupe(input.OwnerIDs)
	if len(owners) == 0 {
		return nil, fmt.Errorf("%w: at least one owner is required", domain.ErrInvalidArgument)
	}

	if err := validateShares(input.Shares, owners); err != nil {
		return nil, err
	}

	apartment := &domain.Apartment{
		ID:        uc.idGen.Generate(),
		Name:      strings.TrimSpace(input.Name),
		Address:   strings.TrimSpace(input.Address),
		Currency:  currency,
		Owners:    owners,
		Shares:    input.Shares,
		CreatedAt: time.Now().UTC(),
	}

	sctx, cancel := uc.bound(ctx)
	defer cancel()

	if err := uc.apartmentRepo.Create(sctx, apartment); err != nil {
		return nil, err
	}

	return apartment, nil
}

// GetApartment retrieves an apartment by ID.
func (uc *ApartmentUseCase) GetApartment(ctx context.Context, id string) (*domain.Apartment, error) {
	sctx, cancel := uc.bound(ctx)
	defer cancel()

	return uc.apartmentRepo.GetByID(sctx, id)
}

// ListForUser lists the apartments a user owns.
func (uc *ApartmentUseCase) ListForUser(ctx context.Context, userID string) ([]*domain.Apartment, error) {
	sctx, cancel := uc.bound(ctx)
	defer cancel()

	return uc.apartmentRepo.ListByOwner(sctx, userID)
}

// UpdateShares replaces the apartment's share plan. An empty plan restores equal split.
func (uc *ApartmentUseCase) UpdateShares(ctx context.Context, apartmentID string, shares domain.SharePlan) (*domain.Apartment, error) {
	sctx, cancel := uc.bound(ctx)
	defer cancel()

	apartment, err := uc.apartmentRepo.GetByID(sctx, apartmentID)
	if err != nil {
		return nil, err
	}

	if err := validateShares(shares, apartment.Owners); err != nil {
		return nil, err
	}

	if err := uc.apartmentRepo.UpdateShares(sctx, apartmentID, shares); err != nil {
		return nil, err
	}
	apartment.Shares = shares

	invalidateBalances(ctx, uc.cache, uc.logger, apartmentID)

	payload := make(map[string]any, len(shares))
	for id, share := range shares {
		payload[id] = share.String()
	}
	uc.emit(ctx, domain.AggregateTypeApartment, apartmentID, domain.EventTypeSharesUpdated, payload)

	return apartment, nil
}

// Authorize returns the apartment when user may access it. Super admins see
// every apartment; others must own it, and writes need an editing role.
func (uc *ApartmentUseCase) Authorize(ctx context.Context, user *domain.User, apartmentID string, write bool) (*domain.Apartment, error) {
	if user == nil {
		return nil, domain.ErrUnauthenticated
	}

	apartment, err := uc.GetApartment(ctx, apartmentID)
	if err != nil {
		return nil, err
	}

	if user.Role == domain.RoleSuperAdmin {
		return apartment, nil
	}

	if !apartment.HasOwner(user.ID) {
		// Hide the apartment from non-owners.
		return nil, domain.ErrApartmentNotFound
	}

	if write && !user.Role.CanEdit() {
		return nil, domain.ErrInsufficientRole
	}

	return apartment, nil
}

func validateShares(shares domain.SharePlan, owners []string) error {
	if err := shares.Validate(); err != nil {
		return err
	}
	for id := range shares {
		if !slices.Contains(owners, id) {
			return fmt.Errorf("%w: %s is not an owner", domain.ErrInvalidShare, id)
		}
	}
	return nil
}

func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id != "" && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}
