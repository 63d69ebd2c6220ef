package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/aptledger/internal/adapter/http/dto"
	"github.com/iho/aptledger/internal/domain"
	"github.com/iho/aptledger/internal/usecase"
)

// ExpenseService defines the behavior needed for expenses.
type ExpenseService interface {
	CreateExpense(ctx context.Context, input usecase.CreateExpenseInput) (*domain.Expense, error)
	ListExpenses(ctx context.Context, apartmentID string, dates domain.DateRange) ([]*domain.Expense, error)
	DeleteExpense(ctx context.Context, apartmentID, expenseID string) error
}

// PaymentService defines the behavior needed for payments.
type PaymentService interface {
	CreatePayment(ctx context.Context, input usecase.CreatePaymentInput) (*domain.Payment, error)
	ListPayments(ctx context.Context, apartmentID string) ([]*domain.Payment, error)
}

// ExpenseHandler handles expense and payment HTTP requests.
type ExpenseHandler struct {
	expenseUC ExpenseService
	paymentUC PaymentService
	access    Authorizer
}

// NewExpenseHandler creates a new ExpenseHandler.
func NewExpenseHandler(expenseUC ExpenseService, paymentUC PaymentService, access Authorizer) *ExpenseHandler {
	return &ExpenseHandler{expenseUC: expenseUC, paymentUC: paymentUC, access: access}
}

// CreateExpense records an expense.
func (h *ExpenseHandler) CreateExpense(w http.ResponseWriter, r *http.Request) {
	apartment, ok := authorize(w, r, h.access, true)
	if !ok {
		return
	}

	var req dto.CreateExpenseRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input, err := req.ToUseCaseInput(apartment.ID)
	if err != nil {
		writeDomainError(w, err, "invalid expense")
		return
	}

	expense, err := h.expenseUC.CreateExpense(r.Context(), input)
	if err != nil {
		writeDomainError(w, err, "failed to create expense")
		return
	}

	writeJSON(w, http.StatusCreated, dto.ExpenseFromDomain(expense))
}

// ListExpenses lists expenses, optionally bounded by ?from= and ?to=.
func (h *ExpenseHandler) ListExpenses(w http.ResponseWriter, r *http.Request) {
	apartment, ok := authorize(w, r, h.access, false)
	if !ok {
		return
	}

	var dates domain.DateRange
	q := r.URL.Query()
	if v := q.Get("from"); v != "" {
		from, err := dto.ParseDate(v)
		if err != nil {
			writeDomainError(w, err, "invalid from date")
			return
		}
		dates.From = &from
	}
	if v := q.Get("to"); v != "" {
		to, err := dto.ParseDate(v)
		if err != nil {
			writeDomainError(w, err, "invalid to date")
			return
		}
		dates.To = &to
	}

	expenses, err := h.expenseUC.ListExpenses(r.Context(), apartment.ID, dates)
	if err != nil {
		writeDomainError(w, err, "failed to list expenses")
		return
	}

	writeJSON(w, http.StatusOK, dto.ExpensesFromDomain(expenses))
}

// DeleteExpense removes an expense.
func (h *ExpenseHandler) DeleteExpense(w http.ResponseWriter, r *http.Request) {
	apartment, ok := authorize(w, r, h.access, true)
	if !ok {
		return
	}

	if err := h.expenseUC.DeleteExpense(r.Context(), apartment.ID, chi.URLParam(r, "expenseID")); err != nil {
		writeDomainError(w, err, "failed to delete expense")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CreatePayment records a payment between participants.
func (h *ExpenseHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	apartment, ok := authorize(w, r, h.access, true)
	if !ok {
		return
	}

	var req dto.CreatePaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	payment, err := h.paymentUC.CreatePayment(r.Context(), req.ToUseCaseInput(apartment.ID))
	if err != nil {
		writeDomainError(w, err, "failed to create payment")
		return
	}

	writeJSON(w, http.StatusCreated, dto.PaymentFromDomain(payment))
}

// ListPayments lists payments.
func (h *ExpenseHandler) ListPayments(w http.ResponseWriter, r *http.Request) {
	apartment, ok := authorize(w, r, h.access, false)
	if !ok {
		return
	}

	payments, err := h.paymentUC.ListPayments(r.Context(), apartment.ID)
	if err != nil {
		writeDomainError(w, err, "failed to list payments")
		return
	}

	writeJSON(w, http.StatusOK, dto.PaymentsFromDomain(payments))
}
