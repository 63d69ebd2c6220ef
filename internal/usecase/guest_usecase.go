package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/aptledger/internal/domain"
	"github.com/iho/aptledger/internal/infrastructure/metrics"
)

// GuestUseCase handles guests and their bookings.
type GuestUseCase struct {
	storageTimeout
	emitter

	apartmentRepo ApartmentRepository
	guestRepo     GuestRepository
	idGen         IDGenerator
	calendar      *CalendarUseCase
	ledger        *LedgerUseCase
	expenses      *ExpenseUseCase
	metrics       *metrics.Metrics
	logger        zerolog.Logger
}

// NewGuestUseCase creates a new GuestUseCase. Bookings occupy days through
// calendar and charge tourist tax through ledger and expenses.
func NewGuestUseCase(
	apartmentRepo ApartmentRepository,
	guestRepo GuestRepository,
	idGen IDGenerator,
	calendar *CalendarUseCase,
	ledger *LedgerUseCase,
	expenses *ExpenseUseCase,
	publisher EventPublisher,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *GuestUseCase {
	return &GuestUseCase{
		emitter:       emitter{publisher: publisher, idGen: idGen, logger: logger},
		apartmentRepo: apartmentRepo,
		guestRepo:     guestRepo,
		idGen:         idGen,
		calendar:      calendar,
		ledger:        ledger,
		expenses:      expenses,
		metrics:       m,
		logger:        logger,
	}
}

// CreateGuestInput represents input for registering a guest.
type CreateGuestInput struct {
	ApartmentID string
	FirstName   string
	LastName    string
	IDNumber    string
	IDImageURL  string
}

// CreateGuest registers a guest against an apartment.
func (uc *GuestUseCase) CreateGuest(ctx context.Context, input CreateGuestInput) (*domain.Guest, error) {
	guest := &domain.Guest{
		ApartmentID: input.ApartmentID,
		FirstName:   strings.TrimSpace(input.FirstName),
		LastName:    strings.TrimSpace(input.LastName),
		IDNumber:    strings.TrimSpace(input.IDNumber),
		IDImageURL:  strings.TrimSpace(input.IDImageURL),
	}

	if err := domain.ValidateName(guest.FullName()); err != nil {
		return nil, err
	}

	sctx, cancel := uc.bound(ctx)
	defer cancel()

	if _, err := uc.apartmentRepo.GetByID(sctx, input.ApartmentID); err != nil {
		return nil, err
	}

	guest.ID = uc.idGen.Generate()
	guest.CreatedAt = time.Now().UTC()

	if err := uc.guestRepo.Create(sctx, guest); err != nil {
		return nil, err
	}

	return guest, nil
}

// ListGuests lists an apartment's guests.
func (uc *GuestUseCase) ListGuests(ctx context.Context, apartmentID string) ([]*domain.Guest, error) {
	sctx, cancel := uc.bound(ctx)
	defer cancel()

	return uc.guestRepo.ListByApartment(sctx, apartmentID)
}

// DeleteGuest removes a guest of an apartment.
func (uc *GuestUseCase) DeleteGuest(ctx context.Context, apartmentID, guestID string) error {
	sctx, cancel := uc.bound(ctx)
	defer cancel()

	guest, err := uc.guestRepo.GetByID(sctx, guestID)
	if err != nil {
		return err
	}
	if guest.ApartmentID != apartmentID {
		return domain.ErrGuestNotFound
	}

	return uc.guestRepo.Delete(sctx, guestID)
}

// CreateBookingInput represents input for booking a stay.
type CreateBookingInput struct {
	ApartmentID string
	GuestIDs    []string
	CheckIn     time.Time
	CheckOut    time.Time
}

// BookingResult is the outcome of a booking.
type BookingResult struct {
	Booking    *domain.Booking
	Days       []*domain.DayRecord
	Nights     int
	TaxAmount  decimal.Decimal
	TaxExpense *domain.Expense
}

// CreateBooking occupies every date of the stay and charges tourist tax as an
// expense paid by the system participant. Days already written stay written if
// a later step fails.
func (uc *GuestUseCase) CreateBooking(ctx context.Context, input CreateBookingInput) (*BookingResult, error) {
	booking := &domain.Booking{
		ApartmentID: input.ApartmentID,
		GuestIDs:    dedupe(input.GuestIDs),
		CheckIn:     input.CheckIn.UTC(),
		CheckOut:    input.CheckOut.UTC(),
	}

	if err := booking.Validate(); err != nil {
		if errors.Is(err, domain.ErrInvalidArgument) {
			return nil, fmt.Errorf("%w: at least one guest is required", err)
		}
		return nil, fmt.Errorf("%w: check-out must be after check-in", err)
	}

	apartment, guests, err := uc.loadBookingParties(ctx, booking)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(guests))
	for _, g := range guests {
		names = append(names, g.FullName())
	}

	days, err := uc.calendar.OccupyDates(ctx, apartment.ID, booking.Dates(), strings.Join(names, ", "))
	if err != nil {
		return nil, err
	}

	quote, err := uc.ledger.QuoteTouristTax(TouristTaxInput{
		Guests:   len(guests),
		CheckIn:  booking.CheckIn,
		CheckOut: booking.CheckOut,
	})
	if err != nil {
		return nil, err
	}

	result := &BookingResult{
		Booking:   booking,
		Days:      days,
		Nights:    quote.Nights,
		TaxAmount: quote.Amount,
	}

	if quote.Amount.IsPositive() {
		expense := &domain.Expense{
			ID:          uc.idGen.Generate(),
			ApartmentID: apartment.ID,
			PayerID:     domain.SystemUserID,
			Type:        domain.ExpenseTax,
			Description: "Tourist tax - " + strings.Join(names, ", "),
			Amount:      quote.Amount,
			Currency:    apartment.Currency,
			Date:        booking.CheckOut,
			Notes:       touristTaxNotes(quote),
			CreatedAt:   time.Now().UTC(),
		}

		if err := uc.expenses.record(ctx, expense); err != nil {
			uc.logger.Error().
				Err(err).
				Str("apartment_id", apartment.ID).
				Msg("booking days saved but tourist tax expense failed")
			return result, fmt.Errorf("record tourist tax: %w", err)
		}
		result.TaxExpense = expense
	}

	if uc.metrics != nil {
		uc.metrics.BookingsCreated.Inc()
		uc.metrics.TouristTaxCollected.Add(quote.Amount.InexactFloat64())
	}

	event := domain.BookingCreatedEvent{
		GuestIDs:  booking.GuestIDs,
		CheckIn:   booking.CheckIn.Format(time.RFC3339),
		CheckOut:  booking.CheckOut.Format(time.RFC3339),
		Nights:    quote.Nights,
		TaxAmount: quote.Amount.String(),
	}
	if result.TaxExpense != nil {
		event.TaxExpense = result.TaxExpense.ID
	}
	uc.emit(ctx, domain.AggregateTypeApartment, apartment.ID, domain.EventTypeBookingCreated, event)

	return result, nil
}

func (uc *GuestUseCase) loadBookingParties(ctx context.Context, booking *domain.Booking) (*domain.Apartment, []*domain.Guest, error) {
	sctx, cancel := uc.bound(ctx)
	defer cancel()

	apartment, err := uc.apartmentRepo.GetByID(sctx, booking.ApartmentID)
	if err != nil {
		return nil, nil, err
	}

	guests := make([]*domain.Guest, 0, len(booking.GuestIDs))
	for _, id := range booking.GuestIDs {
		guest, err := uc.guestRepo.GetByID(sctx, id)
		if err != nil {
			return nil, nil, err
		}
		if guest.ApartmentID != apartment.ID {
			return nil, nil, domain.ErrGuestNotFound
		}
		guests = append(guests, guest)
	}

	return apartment, guests, nil
}

func touristTaxNotes(q *TouristTaxQuote) string {
	return fmt.Sprintf("%d nights, %d guest(s), %s/night (max %d nights)",
		q.Nights, q.Guests, q.Rate.String(), domain.MaxBillableNights)
}
