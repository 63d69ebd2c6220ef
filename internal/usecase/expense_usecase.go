package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/aptledger/internal/domain"
	"github.com/iho/aptledger/internal/infrastructure/metrics"
)

// ExpenseUseCase handles expense business logic.
type ExpenseUseCase struct {
	storageTimeout
	emitter

	apartmentRepo ApartmentRepository
	expenseRepo   ExpenseRepository
	idGen         IDGenerator
	cache         Cache
	metrics       *metrics.Metrics
	logger        zerolog.Logger
}

// NewExpenseUseCase creates a new ExpenseUseCase.
func NewExpenseUseCase(
	apartmentRepo ApartmentRepository,
	expenseRepo ExpenseRepository,
	idGen IDGenerator,
	cache Cache,
	publisher EventPublisher,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *ExpenseUseCase {
	return &ExpenseUseCase{
		emitter:       emitter{publisher: publisher, idGen: idGen, logger: logger},
		apartmentRepo: apartmentRepo,
		expenseRepo:   expenseRepo,
		idGen:         idGen,
		cache:         cache,
		metrics:       m,
		logger:        logger,
	}
}

// CreateExpenseInput represents input for recording an expense.
type CreateExpenseInput struct {
	Date        *time.Time
	PhotoURLs   []string
	ApartmentID string
	PayerID     string
	Description string
	Currency    string
	Notes       string
	Amount      decimal.Decimal
	Type        domain.ExpenseType
}

// CreateExpense records an expense paid by one of the apartment owners.
// Currency defaults to the apartment's currency, date to today.
func (uc *ExpenseUseCase) CreateExpense(ctx context.Context, input CreateExpenseInput) (*domain.Expense, error) {
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}
	if err := domain.ValidateNotes(input.Notes); err != nil {
		return nil, err
	}

	sctx, cancel := uc.bound(ctx)
	defer cancel()

	apartment, err := uc.apartmentRepo.GetByID(sctx, input.ApartmentID)
	if err != nil {
		return nil, err
	}

	if !apartment.HasOwner(input.PayerID) {
		return nil, fmt.Errorf("%w: payer %s is not an owner", domain.ErrInvalidArgument, input.PayerID)
	}

	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = apartment.Currency
	}

	now := time.Now().UTC()
	date := now
	if input.Date != nil {
		date = input.Date.UTC()
	}

	expense := &domain.Expense{
		ID:          uc.idGen.Generate(),
		ApartmentID: apartment.ID,
		PayerID:     input.PayerID,
		Type:        input.Type,
		Description: strings.TrimSpace(input.Description),
		Amount:      input.Amount,
		Currency:    currency,
		Date:        date,
		Notes:       input.Notes,
		PhotoURLs:   input.PhotoURLs,
		CreatedAt:   now,
	}

	if err := expense.Validate(); err != nil {
		return nil, err
	}

	if err := uc.expenseRepo.Create(sctx, expense); err != nil {
		return nil, err
	}

	uc.afterCreate(ctx, expense)

	return expense, nil
}

// record stores an expense derived by the service itself, such as tourist tax.
func (uc *ExpenseUseCase) record(ctx context.Context, expense *domain.Expense) error {
	if err := expense.Validate(); err != nil {
		return err
	}

	sctx, cancel := uc.bound(ctx)
	defer cancel()

	if err := uc.expenseRepo.Create(sctx, expense); err != nil {
		return err
	}

	uc.afterCreate(ctx, expense)
	return nil
}

func (uc *ExpenseUseCase) afterCreate(ctx context.Context, expense *domain.Expense) {
	invalidateBalances(ctx, uc.cache, uc.logger, expense.ApartmentID)

	if uc.metrics != nil {
		uc.metrics.ExpensesCreated.WithLabelValues(expense.Type.String()).Inc()
	}

	uc.emit(ctx, domain.AggregateTypeApartment, expense.ApartmentID, domain.EventTypeExpenseCreated, domain.ExpenseCreatedEvent{
		ExpenseID: expense.ID,
		PayerID:   expense.PayerID,
		Type:      expense.Type.String(),
		Amount:    expense.Amount.String(),
		Currency:  expense.Currency,
	})
}

// ListExpenses lists an apartment's expenses, newest first, optionally within a date range.
func (uc *ExpenseUseCase) ListExpenses(ctx context.Context, apartmentID string, dates domain.DateRange) ([]*domain.Expense, error) {
	if dates.From != nil && dates.To != nil && dates.From.After(*dates.To) {
		return nil, fmt.Errorf("%w: from is after to", domain.ErrInvalidRange)
	}

	sctx, cancel := uc.bound(ctx)
	defer cancel()

	return uc.expenseRepo.ListByApartment(sctx, apartmentID, dates)
}

// DeleteExpense deletes an expense of an apartment.
func (uc *ExpenseUseCase) DeleteExpense(ctx context.Context, apartmentID, expenseID string) error {
	sctx, cancel := uc.bound(ctx)
	defer cancel()

	expense, err := uc.expenseRepo.GetByID(sctx, expenseID)
	if err != nil {
		return err
	}
	if expense.ApartmentID != apartmentID {
		return domain.ErrExpenseNotFound
	}

	if err := uc.expenseRepo.Delete(sctx, expenseID); err != nil {
		return err
	}

	invalidateBalances(ctx, uc.cache, uc.logger, apartmentID)
	uc.emit(ctx, domain.AggregateTypeApartment, apartmentID, domain.EventTypeExpenseDeleted, map[string]any{
		"expense_id": expenseID,
	})

	return nil
}
