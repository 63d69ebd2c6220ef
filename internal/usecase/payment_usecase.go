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

// PaymentUseCase handles settlements between apartment participants.
type PaymentUseCase struct {
	storageTimeout
	emitter

	apartmentRepo ApartmentRepository
	paymentRepo   PaymentRepository
	idGen         IDGenerator
	cache         Cache
	metrics       *metrics.Metrics
	logger        zerolog.Logger
}

// NewPaymentUseCase creates a new PaymentUseCase.
func NewPaymentUseCase(
	apartmentRepo ApartmentRepository,
	paymentRepo PaymentRepository,
	idGen IDGenerator,
	cache Cache,
	publisher EventPublisher,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *PaymentUseCase {
	return &PaymentUseCase{
		emitter:       emitter{publisher: publisher, idGen: idGen, logger: logger},
		apartmentRepo: apartmentRepo,
		paymentRepo:   paymentRepo,
		idGen:         idGen,
		cache:         cache,
		metrics:       m,
		logger:        logger,
	}
}

// CreatePaymentInput represents input for recording a payment.
type CreatePaymentInput struct {
	Date              *time.Time
	RelatedExpenseIDs []string
	ApartmentID       string
	FromParticipantID string
	ToParticipantID   string
	Currency          string
	Reason            string
	Amount            decimal.Decimal
}

// CreatePayment records a payment between two owners.
func (uc *PaymentUseCase) CreatePayment(ctx context.Context, input CreatePaymentInput) (*domain.Payment, error) {
	sctx, cancel := uc.bound(ctx)
	defer cancel()

	apartment, err := uc.apartmentRepo.GetByID(sctx, input.ApartmentID)
	if err != nil {
		return nil, err
	}

	for _, id := range []string{input.FromParticipantID, input.ToParticipantID} {
		if !apartment.HasOwner(id) {
			return nil, fmt.Errorf("%w: %s is not an owner", domain.ErrInvalidArgument, id)
		}
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

	payment := &domain.Payment{
		ID:                uc.idGen.Generate(),
		ApartmentID:       apartment.ID,
		FromParticipantID: input.FromParticipantID,
		ToParticipantID:   input.ToParticipantID,
		Amount:            input.Amount,
		Currency:          currency,
		Date:              date,
		Reason:            strings.TrimSpace(input.Reason),
		RelatedExpenseIDs: input.RelatedExpenseIDs,
		CreatedAt:         now,
	}

	if err := payment.Validate(); err != nil {
		return nil, err
	}
	if err := domain.ValidateAmount(payment.Amount); err != nil {
		return nil, err
	}

	if err := uc.paymentRepo.Create(sctx, payment); err != nil {
		return nil, err
	}

	invalidateBalances(ctx, uc.cache, uc.logger, apartment.ID)

	if uc.metrics != nil {
		uc.metrics.PaymentsCreated.Inc()
	}

	uc.emit(ctx, domain.AggregateTypeApartment, apartment.ID, domain.EventTypePaymentCreated, map[string]any{
		"payment_id": payment.ID,
		"from":       payment.FromParticipantID,
		"to":         payment.ToParticipantID,
		"amount":     payment.Amount.String(),
		"currency":   payment.Currency,
	})

	return payment, nil
}

// ListPayments lists an apartment's payments.
func (uc *PaymentUseCase) ListPayments(ctx context.Context, apartmentID string) ([]*domain.Payment, error) {
	sctx, cancel := uc.bound(ctx)
	defer cancel()

	return uc.paymentRepo.ListByApartment(sctx, apartmentID)
}
