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

func TestExpenseHandler_CreateExpense(t *testing.T) {
	var captured usecase.CreateExpenseInput
	expenses := &stubExpenseService{
		createFn: func(ctx context.Context, input usecase.CreateExpenseInput) (*domain.Expense, error) {
			captured = input
			return &domain.Expense{ID: "exp-1", ApartmentID: input.ApartmentID, PayerID: input.PayerID, Type: input.Type, Amount: input.Amount, Currency: "EUR"}, nil
		},
	}
	h := NewExpenseHandler(expenses, &stubPaymentService{}, newAccess())

	rr := httptest.NewRecorder()
	h.CreateExpense(rr, newRequest(http.MethodPost, "/", `{"payerId":"anna","type":"cleaning","description":"deep clean","amount":"80.50"}`,
		managerUser, "id", "apt-1"))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.ApartmentID != "apt-1" || captured.Type != domain.ExpenseCleaning || !captured.Amount.Equal(decimal.RequireFromString("80.50")) {
		t.Fatalf("unexpected input %+v", captured)
	}

	var resp dto.ExpenseResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.ID != "exp-1" {
		t.Fatalf("unexpected response %+v", resp)
	}

	rr = httptest.NewRecorder()
	h.CreateExpense(rr, newRequest(http.MethodPost, "/", `{"payerId":"anna","type":"party","amount":"1"}`, managerUser, "id", "apt-1"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown type, got %d", rr.Code)
	}
}

func TestExpenseHandler_ListExpensesParsesRange(t *testing.T) {
	var captured domain.DateRange
	expenses := &stubExpenseService{
		listFn: func(ctx context.Context, apartmentID string, dates domain.DateRange) ([]*domain.Expense, error) {
			captured = dates
			return []*domain.Expense{}, nil
		},
	}
	h := NewExpenseHandler(expenses, &stubPaymentService{}, newAccess())

	rr := httptest.NewRecorder()
	h.ListExpenses(rr, newRequest(http.MethodGet, "/?from=2025-06-01&to=2025-06-30T23:59:59Z", "", viewerUser, "id", "apt-1"))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if captured.From == nil || !captured.From.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected from %v", captured.From)
	}
	if captured.To == nil || captured.To.Day() != 30 {
		t.Fatalf("unexpected to %v", captured.To)
	}

	rr = httptest.NewRecorder()
	h.ListExpenses(rr, newRequest(http.MethodGet, "/?from=yesterday", "", viewerUser, "id", "apt-1"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad date, got %d", rr.Code)
	}
}

func TestExpenseHandler_DeleteExpense(t *testing.T) {
	expenses := &stubExpenseService{
		deleteFn: func(ctx context.Context, apartmentID, expenseID string) error {
			if expenseID == "missing" {
				return domain.ErrExpenseNotFound
			}
			return nil
		},
	}
	h := NewExpenseHandler(expenses, &stubPaymentService{}, newAccess())

	rr := httptest.NewRecorder()
	h.DeleteExpense(rr, newRequest(http.MethodDelete, "/", "", managerUser, "id", "apt-1", "expenseID", "exp-1"))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.DeleteExpense(rr, newRequest(http.MethodDelete, "/", "", managerUser, "id", "apt-1", "expenseID", "missing"))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestExpenseHandler_Payments(t *testing.T) {
	payments := &stubPaymentService{
		createFn: func(ctx context.Context, input usecase.CreatePaymentInput) (*domain.Payment, error) {
			if input.FromParticipantID == input.ToParticipantID {
				return nil, domain.ErrSamePayer
			}
			return &domain.Payment{ID: "pay-1", FromParticipantID: input.FromParticipantID, ToParticipantID: input.ToParticipantID, Amount: input.Amount}, nil
		},
		listFn: func(ctx context.Context, apartmentID string) ([]*domain.Payment, error) {
			return []*domain.Payment{{ID: "pay-1"}}, nil
		},
	}
	h := NewExpenseHandler(&stubExpenseService{}, payments, newAccess())

	rr := httptest.NewRecorder()
	h.CreatePayment(rr, newRequest(http.MethodPost, "/", `{"from":"vera","to":"anna","amount":"25"}`, managerUser, "id", "apt-1"))
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	h.CreatePayment(rr, newRequest(http.MethodPost, "/", `{"from":"anna","to":"anna","amount":"25"}`, managerUser, "id", "apt-1"))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for same payer, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ListPayments(rr, newRequest(http.MethodGet, "/", "", viewerUser, "id", "apt-1"))
	var list []dto.PaymentResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil || len(list) != 1 {
		t.Fatalf("expected one payment, got %s (%v)", rr.Body.String(), err)
	}
}
