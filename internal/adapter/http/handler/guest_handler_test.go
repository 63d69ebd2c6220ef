package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/aptledger/internal/adapter/http/dto"
	"github.com/iho/aptledger/internal/domain"
	"github.com/iho/aptledger/internal/usecase"
)

func TestGuestHandler_CreateListDelete(t *testing.T) {
	svc := &stubGuestService{
		createFn: func(ctx context.Context, input usecase.CreateGuestInput) (*domain.Guest, error) {
			if input.FirstName == "" {
				return nil, domain.ErrInvalidName
			}
			return &domain.Guest{ID: "g-1", ApartmentID: input.ApartmentID, FirstName: input.FirstName, LastName: input.LastName}, nil
		},
		listFn: func(ctx context.Context, apartmentID string) ([]*domain.Guest, error) {
			return []*domain.Guest{{ID: "g-1", FirstName: "Lucia", LastName: "Rossi"}}, nil
		},
		deleteFn: func(ctx context.Context, apartmentID, guestID string) error {
			if guestID != "g-1" {
				return domain.ErrGuestNotFound
			}
			return nil
		},
	}
	h := NewGuestHandler(svc, newAccess())

	rr := httptest.NewRecorder()
	h.Create(rr, newRequest(http.MethodPost, "/", `{"firstName":"Lucia","lastName":"Rossi","idNumber":"X1"}`, managerUser, "id", "apt-1"))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	h.Create(rr, newRequest(http.MethodPost, "/", `{"lastName":"Rossi"}`, managerUser, "id", "apt-1"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing name, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.List(rr, newRequest(http.MethodGet, "/", "", viewerUser, "id", "apt-1"))
	var list []dto.GuestResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil || len(list) != 1 {
		t.Fatalf("expected one guest, got %s (%v)", rr.Body.String(), err)
	}

	rr = httptest.NewRecorder()
	h.Delete(rr, newRequest(http.MethodDelete, "/", "", managerUser, "id", "apt-1", "guestID", "g-2"))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.Delete(rr, newRequest(http.MethodDelete, "/", "", viewerUser, "id", "apt-1", "guestID", "g-1"))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for viewer, got %d", rr.Code)
	}
}

func TestGuestHandler_CreateBooking(t *testing.T) {
	checkIn := time.Date(2025, 6, 10, 15, 0, 0, 0, time.UTC)
	checkOut := checkIn.AddDate(0, 0, 3)

	var captured usecase.CreateBookingInput
	svc := &stubGuestService{
		bookingFn: func(ctx context.Context, input usecase.CreateBookingInput) (*usecase.BookingResult, error) {
			captured = input
			return &usecase.BookingResult{
				Booking:   &domain.Booking{ApartmentID: input.ApartmentID, GuestIDs: input.GuestIDs, CheckIn: input.CheckIn, CheckOut: input.CheckOut},
				Days:      []*domain.DayRecord{{Day: 10, Status: domain.DayOccupied}, {Day: 11, Status: domain.DayOccupied}, {Day: 12, Status: domain.DayOccupied}},
				Nights:    3,
				TaxAmount: decimal.NewFromInt(18),
				TaxExpense: &domain.Expense{
					ID: "exp-tax", PayerID: domain.SystemUserID, Type: domain.ExpenseTax, Amount: decimal.NewFromInt(18),
				},
			}, nil
		},
	}
	h := NewGuestHandler(svc, newAccess())

	body := `{"guestIds":["g-1","g-2"],"checkIn":"2025-06-10T15:00:00Z","checkOut":"2025-06-13T15:00:00Z"}`
	rr := httptest.NewRecorder()
	h.CreateBooking(rr, newRequest(http.MethodPost, "/", body, managerUser, "id", "apt-1"))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if len(captured.GuestIDs) != 2 || !captured.CheckIn.Equal(checkIn) || !captured.CheckOut.Equal(checkOut) {
		t.Fatalf("unexpected input %+v", captured)
	}

	var resp dto.BookingResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Nights != 3 || len(resp.Days) != 3 || resp.TaxExpense == nil || !resp.TaxAmount.Equal(decimal.NewFromInt(18)) {
		t.Fatalf("unexpected booking %+v", resp)
	}
}
