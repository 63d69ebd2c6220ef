package usecase_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/iho/aptledger/internal/domain"
	"github.com/iho/aptledger/internal/infrastructure/metrics"
	"github.com/iho/aptledger/internal/usecase"
	"github.com/iho/aptledger/internal/usecase/mocks"
)

type bookingFixture struct {
	apartments *mocks.MockApartmentRepository
	guests     *mocks.MockGuestRepository
	days       *mocks.MockCalendarRepository
	expenses   *mocks.MockExpenseRepository
	idGen      *mocks.MockIDGenerator
	metrics    *metrics.Metrics
	uc         *usecase.GuestUseCase
}

func newBookingFixture(t *testing.T) *bookingFixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &bookingFixture{
		apartments: mocks.NewMockApartmentRepository(ctrl),
		guests:     mocks.NewMockGuestRepository(ctrl),
		days:       mocks.NewMockCalendarRepository(ctrl),
		expenses:   mocks.NewMockExpenseRepository(ctrl),
		idGen:      mocks.NewMockIDGenerator(ctrl),
		metrics:    metrics.New(prometheus.NewRegistry()),
	}

	logger := zerolog.Nop()
	calendar := usecase.NewCalendarUseCase(f.days, nil, nil, nil, nil, nil, logger)
	ledger := usecase.NewLedgerUseCase(f.apartments, nil, f.expenses, nil, nil, nil, logger)
	expenseUC := usecase.NewExpenseUseCase(f.apartments, f.expenses, f.idGen, nil, nil, nil, logger)

	f.uc = usecase.NewGuestUseCase(f.apartments, f.guests, f.idGen, calendar, ledger, expenseUC, nil, f.metrics, logger)
	return f
}

func (f *bookingFixture) expectParties() {
	f.apartments.EXPECT().GetByID(gomock.Any(), "apt-1").Return(loft, nil)
	f.guests.EXPECT().GetByID(gomock.Any(), "g1").Return(&domain.Guest{ID: "g1", ApartmentID: "apt-1", FirstName: "Ada", LastName: "Lovelace"}, nil)
	f.guests.EXPECT().GetByID(gomock.Any(), "g2").Return(&domain.Guest{ID: "g2", ApartmentID: "apt-1", FirstName: "Alan", LastName: "Turing"}, nil)
}

func TestGuestUseCase_CreateBooking(t *testing.T) {
	f := newBookingFixture(t)
	f.expectParties()

	var mu sync.Mutex
	occupied := map[domain.DayKey]string{}
	f.days.EXPECT().Upsert(gomock.Any(), gomock.Any()).Times(10).
		DoAndReturn(func(_ context.Context, rec *domain.DayRecord) error {
			mu.Lock()
			defer mu.Unlock()
			assert.Equal(t, domain.DayOccupied, rec.Status)
			occupied[rec.Key()] = rec.Notes
			return nil
		})

	f.idGen.EXPECT().Generate().Return("exp-tax")

	var taxExpense *domain.Expense
	f.expenses.EXPECT().Create(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, e *domain.Expense) error {
			taxExpense = e
			return nil
		})

	checkIn := time.Date(2025, 7, 30, 15, 0, 0, 0, time.UTC)
	checkOut := time.Date(2025, 8, 9, 10, 0, 0, 0, time.UTC)

	result, err := f.uc.CreateBooking(context.Background(), usecase.CreateBookingInput{
		ApartmentID: "apt-1",
		GuestIDs:    []string{"g1", "g2", "g1"},
		CheckIn:     checkIn,
		CheckOut:    checkOut,
	})

	require.NoError(t, err)
	assert.Equal(t, 10, result.Nights)
	assert.Len(t, result.Days, 10)
	assert.True(t, result.TaxAmount.Equal(decimal.NewFromInt(24)), "got %s", result.TaxAmount)

	assert.Equal(t, "Ada Lovelace, Alan Turing", occupied[domain.DayKey{Year: 2025, Month: 6, Day: 31}])
	_, lastNight := occupied[domain.DayKey{Year: 2025, Month: 7, Day: 8}]
	_, checkOutDay := occupied[domain.DayKey{Year: 2025, Month: 7, Day: 9}]
	assert.True(t, lastNight)
	assert.False(t, checkOutDay, "check-out day stays free")

	require.NotNil(t, taxExpense)
	assert.Same(t, taxExpense, result.TaxExpense)
	assert.Equal(t, domain.SystemUserID, taxExpense.PayerID)
	assert.Equal(t, domain.ExpenseTax, taxExpense.Type)
	assert.Equal(t, "Tourist tax - Ada Lovelace, Alan Turing", taxExpense.Description)
	assert.Equal(t, "10 nights, 2 guest(s), 3/night (max 4 nights)", taxExpense.Notes)
	assert.Equal(t, "EUR", taxExpense.Currency)
	assert.Equal(t, checkOut, taxExpense.Date)

	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.BookingsCreated))
	assert.Equal(t, float64(24), testutil.ToFloat64(f.metrics.TouristTaxCollected))
}

func TestGuestUseCase_CreateBooking_Validation(t *testing.T) {
	checkIn := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	t.Run("no guests", func(t *testing.T) {
		f := newBookingFixture(t)

		_, err := f.uc.CreateBooking(context.Background(), usecase.CreateBookingInput{
			ApartmentID: "apt-1", CheckIn: checkIn, CheckOut: checkIn.AddDate(0, 0, 1),
		})
		require.ErrorIs(t, err, domain.ErrInvalidArgument)
	})

	t.Run("check-out not after check-in", func(t *testing.T) {
		f := newBookingFixture(t)

		_, err := f.uc.CreateBooking(context.Background(), usecase.CreateBookingInput{
			ApartmentID: "apt-1", GuestIDs: []string{"g1"}, CheckIn: checkIn, CheckOut: checkIn,
		})
		require.ErrorIs(t, err, domain.ErrInvalidRange)
	})

	t.Run("guest of another apartment", func(t *testing.T) {
		f := newBookingFixture(t)
		f.apartments.EXPECT().GetByID(gomock.Any(), "apt-1").Return(loft, nil)
		f.guests.EXPECT().GetByID(gomock.Any(), "g9").Return(&domain.Guest{ID: "g9", ApartmentID: "apt-2", FirstName: "Eve"}, nil)

		_, err := f.uc.CreateBooking(context.Background(), usecase.CreateBookingInput{
			ApartmentID: "apt-1", GuestIDs: []string{"g9"}, CheckIn: checkIn, CheckOut: checkIn.AddDate(0, 0, 2),
		})
		require.ErrorIs(t, err, domain.ErrGuestNotFound)
	})
}

func TestGuestUseCase_CreateBooking_CalendarFailure(t *testing.T) {
	f := newBookingFixture(t)
	f.expectParties()

	f.days.EXPECT().Upsert(gomock.Any(), gomock.Any()).Times(2).Return(errStorageDown)

	checkIn := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	_, err := f.uc.CreateBooking(context.Background(), usecase.CreateBookingInput{
		ApartmentID: "apt-1", GuestIDs: []string{"g1", "g2"}, CheckIn: checkIn, CheckOut: checkIn.AddDate(0, 0, 2),
	})

	require.ErrorIs(t, err, domain.ErrPersistenceFailed)
	assert.Equal(t, float64(0), testutil.ToFloat64(f.metrics.BookingsCreated))
}

func TestGuestUseCase_CreateBooking_TaxExpenseFailureKeepsDays(t *testing.T) {
	f := newBookingFixture(t)
	f.expectParties()

	f.days.EXPECT().Upsert(gomock.Any(), gomock.Any()).Times(3).Return(nil)
	f.idGen.EXPECT().Generate().Return("exp-tax")
	f.expenses.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errStorageDown)

	checkIn := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	result, err := f.uc.CreateBooking(context.Background(), usecase.CreateBookingInput{
		ApartmentID: "apt-1", GuestIDs: []string{"g1", "g2"}, CheckIn: checkIn, CheckOut: checkIn.AddDate(0, 0, 3),
	})

	require.ErrorIs(t, err, errStorageDown)
	require.NotNil(t, result)
	assert.Len(t, result.Days, 3)
	assert.Nil(t, result.TaxExpense)
}

func TestGuestUseCase_CreateGuest(t *testing.T) {
	f := newBookingFixture(t)
	f.apartments.EXPECT().GetByID(gomock.Any(), "apt-1").Return(loft, nil)
	f.idGen.EXPECT().Generate().Return("g1")
	f.guests.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)

	guest, err := f.uc.CreateGuest(context.Background(), usecase.CreateGuestInput{
		ApartmentID: "apt-1",
		FirstName:   " Ada ",
		LastName:    "Lovelace",
		IDNumber:    "AX123",
	})

	require.NoError(t, err)
	assert.Equal(t, "g1", guest.ID)
	assert.Equal(t, "Ada Lovelace", guest.FullName())

	_, err = f.uc.CreateGuest(context.Background(), usecase.CreateGuestInput{ApartmentID: "apt-1"})
	require.ErrorIs(t, err, domain.ErrInvalidName)
}

func TestGuestUseCase_DeleteGuest_OtherApartment(t *testing.T) {
	f := newBookingFixture(t)
	f.guests.EXPECT().GetByID(gomock.Any(), "g1").Return(&domain.Guest{ID: "g1", ApartmentID: "apt-2"}, nil)

	err := f.uc.DeleteGuest(context.Background(), "apt-1", "g1")
	require.ErrorIs(t, err, domain.ErrGuestNotFound)
}
