package handler

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/iho/aptledger/internal/adapter/http/middleware"
	"github.com/iho/aptledger/internal/domain"
	"github.com/iho/aptledger/internal/usecase"
)

var (
	managerUser = &domain.User{ID: "anna", Email: "anna@example.com", Role: domain.RoleManager}
	viewerUser  = &domain.User{ID: "vera", Email: "vera@example.com", Role: domain.RoleViewer}
)

// newRequest builds a request carrying user and chi URL params; params are
// name, value pairs.
func newRequest(method, target, body string, user *domain.User, params ...string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	return withRoute(httptest.NewRequest(method, target, reader), user, params...)
}

// withRoute attaches user and chi URL params to req.
func withRoute(req *http.Request, user *domain.User, params ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(params); i += 2 {
		rctx.URLParams.Add(params[i], params[i+1])
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if user != nil {
		ctx = middleware.WithUser(ctx, user)
	}
	return req.WithContext(ctx)
}

// stubAccess grants read to owners and write to owners who can edit.
type stubAccess struct {
	apartment *domain.Apartment
}

func (s *stubAccess) Authorize(ctx context.Context, user *domain.User, apartmentID string, write bool) (*domain.Apartment, error) {
	if user == nil {
		return nil, domain.ErrUnauthenticated
	}
	if s.apartment == nil || s.apartment.ID != apartmentID || !s.apartment.HasOwner(user.ID) {
		return nil, domain.ErrApartmentNotFound
	}
	if write && !user.Role.CanEdit() {
		return nil, domain.ErrInsufficientRole
	}
	return s.apartment, nil
}

func newAccess() *stubAccess {
	return &stubAccess{apartment: &domain.Apartment{
		ID:       "apt-1",
		Name:     "Seaside Loft",
		Currency: "EUR",
		Owners:   []string{"anna", "vera"},
	}}
}

type stubApartmentService struct {
	*stubAccess
	createFn       func(ctx context.Context, input usecase.CreateApartmentInput) (*domain.Apartment, error)
	listFn         func(ctx context.Context, userID string) ([]*domain.Apartment, error)
	updateSharesFn func(ctx context.Context, apartmentID string, shares domain.SharePlan) (*domain.Apartment, error)
}

func (s *stubApartmentService) CreateApartment(ctx context.Context, input usecase.CreateApartmentInput) (*domain.Apartment, error) {
	return s.createFn(ctx, input)
}

func (s *stubApartmentService) ListForUser(ctx context.Context, userID string) ([]*domain.Apartment, error) {
	return s.listFn(ctx, userID)
}

func (s *stubApartmentService) UpdateShares(ctx context.Context, apartmentID string, shares domain.SharePlan) (*domain.Apartment, error) {
	return s.updateSharesFn(ctx, apartmentID, shares)
}

type stubLedgerService struct {
	balancesFn func(ctx context.Context, apartmentID string) ([]domain.Balance, error)
	quoteFn    func(input usecase.TouristTaxInput) (*usecase.TouristTaxQuote, error)
}

func (s *stubLedgerService) GetBalances(ctx context.Context, apartmentID string) ([]domain.Balance, error) {
	return s.balancesFn(ctx, apartmentID)
}

func (s *stubLedgerService) QuoteTouristTax(input usecase.TouristTaxInput) (*usecase.TouristTaxQuote, error) {
	return s.quoteFn(input)
}

type stubExpenseService struct {
	createFn func(ctx context.Context, input usecase.CreateExpenseInput) (*domain.Expense, error)
	listFn   func(ctx context.Context, apartmentID string, dates domain.DateRange) ([]*domain.Expense, error)
	deleteFn func(ctx context.Context, apartmentID, expenseID string) error
}

func (s *stubExpenseService) CreateExpense(ctx context.Context, input usecase.CreateExpenseInput) (*domain.Expense, error) {
	return s.createFn(ctx, input)
}

func (s *stubExpenseService) ListExpenses(ctx context.Context, apartmentID string, dates domain.DateRange) ([]*domain.Expense, error) {
	return s.listFn(ctx, apartmentID, dates)
}

func (s *stubExpenseService) DeleteExpense(ctx context.Context, apartmentID, expenseID string) error {
	return s.deleteFn(ctx, apartmentID, expenseID)
}

type stubPaymentService struct {
	createFn func(ctx context.Context, input usecase.CreatePaymentInput) (*domain.Payment, error)
	listFn   func(ctx context.Context, apartmentID string) ([]*domain.Payment, error)
}

func (s *stubPaymentService) CreatePayment(ctx context.Context, input usecase.CreatePaymentInput) (*domain.Payment, error) {
	return s.createFn(ctx, input)
}

func (s *stubPaymentService) ListPayments(ctx context.Context, apartmentID string) ([]*domain.Payment, error) {
	return s.listFn(ctx, apartmentID)
}

type stubGuestService struct {
	createFn  func(ctx context.Context, input usecase.CreateGuestInput) (*domain.Guest, error)
	listFn    func(ctx context.Context, apartmentID string) ([]*domain.Guest, error)
	deleteFn  func(ctx context.Context, apartmentID, guestID string) error
	bookingFn func(ctx context.Context, input usecase.CreateBookingInput) (*usecase.BookingResult, error)
}

func (s *stubGuestService) CreateGuest(ctx context.Context, input usecase.CreateGuestInput) (*domain.Guest, error) {
	return s.createFn(ctx, input)
}

func (s *stubGuestService) ListGuests(ctx context.Context, apartmentID string) ([]*domain.Guest, error) {
	return s.listFn(ctx, apartmentID)
}

func (s *stubGuestService) DeleteGuest(ctx context.Context, apartmentID, guestID string) error {
	return s.deleteFn(ctx, apartmentID, guestID)
}

func (s *stubGuestService) CreateBooking(ctx context.Context, input usecase.CreateBookingInput) (*usecase.BookingResult, error) {
	return s.bookingFn(ctx, input)
}

type stubCalendarService struct {
	setDayFn   func(ctx context.Context, input usecase.SetDayInput) (*domain.DayRecord, error)
	bulkFn     func(ctx context.Context, input usecase.BulkSetDaysInput) (*usecase.BulkResult, error)
	getMonthFn func(ctx context.Context, apartmentID string, year, month int) (*usecase.MonthOverview, error)
	exportFn   func(ctx context.Context, apartmentID string, year, month int, format domain.ExportFormat) ([]byte, error)
	watchFn    func(ctx context.Context, apartmentID string) (usecase.DaySubscription, error)
}

func (s *stubCalendarService) SetDay(ctx context.Context, input usecase.SetDayInput) (*domain.DayRecord, error) {
	return s.setDayFn(ctx, input)
}

func (s *stubCalendarService) BulkSetDays(ctx context.Context, input usecase.BulkSetDaysInput) (*usecase.BulkResult, error) {
	return s.bulkFn(ctx, input)
}

func (s *stubCalendarService) GetMonth(ctx context.Context, apartmentID string, year, month int) (*usecase.MonthOverview, error) {
	return s.getMonthFn(ctx, apartmentID, year, month)
}

func (s *stubCalendarService) ExportMonth(ctx context.Context, apartmentID string, year, month int, format domain.ExportFormat) ([]byte, error) {
	return s.exportFn(ctx, apartmentID, year, month, format)
}

func (s *stubCalendarService) Watch(ctx context.Context, apartmentID string) (usecase.DaySubscription, error) {
	return s.watchFn(ctx, apartmentID)
}

type stubUserService struct {
	createFn func(ctx context.Context, caller *domain.User, input usecase.ProvisionUserInput) (*domain.User, error)
	deleteFn func(ctx context.Context, caller *domain.User, userID, apartmentID string) error
	getFn    func(ctx context.Context, id string) (*domain.User, error)
}

func (s *stubUserService) CreateUserForApartment(ctx context.Context, caller *domain.User, input usecase.ProvisionUserInput) (*domain.User, error) {
	return s.createFn(ctx, caller, input)
}

func (s *stubUserService) DeleteUserFromApartment(ctx context.Context, caller *domain.User, userID, apartmentID string) error {
	return s.deleteFn(ctx, caller, userID, apartmentID)
}

func (s *stubUserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.getFn(ctx, id)
}

// stubSubscription is a DaySubscription fed by the test.
type stubSubscription struct {
	updates chan *domain.DayRecord
	closed  chan struct{}
}

func newStubSubscription() *stubSubscription {
	return &stubSubscription{updates: make(chan *domain.DayRecord, 4), closed: make(chan struct{})}
}

func (s *stubSubscription) Updates() <-chan *domain.DayRecord { return s.updates }

func (s *stubSubscription) Close() error {
	select {
	case <-s.closed:
	default:
		close(s.closed)
	}
	return nil
}
