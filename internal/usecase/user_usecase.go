package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/iho/aptledger/internal/domain"
	"github.com/iho/aptledger/internal/infrastructure/metrics"
)

// UserUseCase handles user provisioning into apartments.
type UserUseCase struct {
	storageTimeout
	emitter

	userRepo      UserRepository
	apartmentRepo ApartmentRepository
	txManager     TransactionManager
	idGen         IDGenerator
	cache         Cache
	metrics       *metrics.Metrics
	logger        zerolog.Logger
}

// NewUserUseCase creates a new user use case
func NewUserUseCase(
	userRepo UserRepository,
	apartmentRepo ApartmentRepository,
	txManager TransactionManager,
	idGen IDGenerator,
	cache Cache,
	publisher EventPublisher,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *UserUseCase {
	return &UserUseCase{
		emitter:       emitter{publisher: publisher, idGen: idGen, logger: logger},
		userRepo:      userRepo,
		apartmentRepo: apartmentRepo,
		txManager:     txManager,
		idGen:         idGen,
		cache:         cache,
		metrics:       m,
		logger:        logger,
	}
}

// ProvisionUserInput represents input for creating a user inside an apartment
type ProvisionUserInput struct {
	Email        string
	Role         domain.Role
	ApartmentID  string
	TempPassword string
}

// CreateUserForApartment creates a user with a temporary password and adds
// them to the apartment's owners. The user must change the password on first login.
func (uc *UserUseCase) CreateUserForApartment(ctx context.Context, caller *domain.User, input ProvisionUserInput) (*domain.User, error) {
	if caller == nil {
		return nil, domain.ErrUnauthenticated
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if err := validateProvisioning(email, input); err != nil {
		return nil, err
	}

	sctx, cancel := uc.bound(ctx)
	defer cancel()

	if err := uc.authorizeProvisioning(sctx, caller, input.ApartmentID); err != nil {
		return nil, err
	}

	existing, err := uc.userRepo.GetByEmail(sctx, email)
	switch {
	case err == nil && existing != nil:
		return nil, fmt.Errorf("%w: user with email %s", domain.ErrAlreadyExists, email)
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("%w: look up user: %w", domain.ErrInternal, err)
	}

	hashedPassword, err := hashPassword(input.TempPassword)
	if err != nil {
		return nil, fmt.Errorf("%w: hash password: %w", domain.ErrInternal, err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:                  uc.idGen.Generate(),
		Email:               email,
		DisplayName:         domain.DisplayNameFromEmail(email),
		HashedPassword:      hashedPassword,
		Role:                input.Role,
		ForcePasswordChange: true,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	err = uc.txManager.WithinTx(sctx, func(txCtx context.Context) error {
		if err := uc.userRepo.Create(txCtx, user); err != nil {
			return err
		}
		return uc.apartmentRepo.AddOwner(txCtx, input.ApartmentID, user.ID)
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: create user: %w", domain.ErrInternal, err)
	}

	// Balances list one row per owner.
	invalidateBalances(ctx, uc.cache, uc.logger, input.ApartmentID)

	if uc.metrics != nil {
		uc.metrics.UsersProvisioned.Inc()
	}

	uc.logger.Info().
		Str("user_id", user.ID).
		Str("apartment_id", input.ApartmentID).
		Str("role", string(user.Role)).
		Str("caller_id", caller.ID).
		Msg("user provisioned")

	uc.emit(ctx, domain.AggregateTypeUser, user.ID, domain.EventTypeUserProvisioned, map[string]any{
		"apartment_id": input.ApartmentID,
		"role":         string(user.Role),
	})

	// Don't return hashed password
	user.HashedPassword = ""
	return user, nil
}

// DeleteUserFromApartment removes the user from the apartment and deletes the account.
func (uc *UserUseCase) DeleteUserFromApartment(ctx context.Context, caller *domain.User, userID, apartmentID string) error {
	if caller == nil {
		return domain.ErrUnauthenticated
	}
	if userID == "" || apartmentID == "" {
		return fmt.Errorf("%w: user id and apartment id are required", domain.ErrInvalidArgument)
	}
	if userID == caller.ID {
		return fmt.Errorf("%w: cannot remove yourself", domain.ErrInvalidArgument)
	}

	sctx, cancel := uc.bound(ctx)
	defer cancel()

	if err := uc.authorizeProvisioning(sctx, caller, apartmentID); err != nil {
		return err
	}

	if _, err := uc.userRepo.GetByID(sctx, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrUserNotFound
		}
		return fmt.Errorf("%w: look up user: %w", domain.ErrInternal, err)
	}

	err := uc.txManager.WithinTx(sctx, func(txCtx context.Context) error {
		if err := uc.apartmentRepo.RemoveOwner(txCtx, apartmentID, userID); err != nil {
			return err
		}
		return uc.userRepo.Delete(txCtx, userID)
	})
	if err != nil {
		return fmt.Errorf("%w: delete user: %w", domain.ErrInternal, err)
	}

	invalidateBalances(ctx, uc.cache, uc.logger, apartmentID)

	if uc.metrics != nil {
		uc.metrics.UsersDeprovisioned.Inc()
	}

	uc.emit(ctx, domain.AggregateTypeUser, userID, domain.EventTypeUserDeprovisioned, map[string]any{
		"apartment_id": apartmentID,
	})

	return nil
}

// GetUser retrieves a user by ID
func (uc *UserUseCase) GetUser(ctx context.Context, id string) (*domain.User, error) {
	sctx, cancel := uc.bound(ctx)
	defer cancel()

	user, err := uc.userRepo.GetByID(sctx, id)
	if err != nil {
		return nil, err
	}

	user.HashedPassword = ""
	return user, nil
}

// authorizeProvisioning checks the caller may manage users of the apartment.
func (uc *UserUseCase) authorizeProvisioning(ctx context.Context, caller *domain.User, apartmentID string) error {
	if !caller.Role.CanProvision() {
		return domain.ErrInsufficientRole
	}

	apartment, err := uc.apartmentRepo.GetByID(ctx, apartmentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: look up apartment: %w", domain.ErrInternal, err)
	}

	if caller.Role != domain.RoleSuperAdmin && !apartment.HasOwner(caller.ID) {
		return domain.ErrInsufficientRole
	}

	return nil
}

func validateProvisioning(email string, input ProvisionUserInput) error {
	if err := domain.ValidateEmail(email); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidArgument, err)
	}
	if !input.Role.IsValid() {
		return fmt.Errorf("%w: invalid role %q", domain.ErrInvalidArgument, input.Role)
	}
	if input.ApartmentID == "" {
		return fmt.Errorf("%w: apartment id is required", domain.ErrInvalidArgument)
	}
	if err := domain.ValidatePassword(input.TempPassword); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidArgument, err)
	}
	return nil
}

// hashPassword hashes a password using bcrypt
func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword verifies a password against a bcrypt hash
func VerifyPassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}
