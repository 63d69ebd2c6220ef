package handler

import (
	"context"
	"net/http"

	"github.com/iho/aptledger/internal/adapter/http/dto"
	"github.com/iho/aptledger/internal/domain"
	"github.com/iho/aptledger/internal/usecase"
)

// LedgerService defines the behavior needed by LedgerHandler.
type LedgerService interface {
	GetBalances(ctx context.Context, apartmentID string) ([]domain.Balance, error)
	QuoteTouristTax(input usecase.TouristTaxInput) (*usecase.TouristTaxQuote, error)
}

// LedgerHandler handles balances and tourist tax quotes.
type LedgerHandler struct {
	ledgerUC LedgerService
	access   Authorizer
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerUC LedgerService, access Authorizer) *LedgerHandler {
	return &LedgerHandler{ledgerUC: ledgerUC, access: access}
}

// Balances returns the net position of every participant.
func (h *LedgerHandler) Balances(w http.ResponseWriter, r *http.Request) {
	apartment, ok := authorize(w, r, h.access, false)
	if !ok {
		return
	}

	balances, err := h.ledgerUC.GetBalances(r.Context(), apartment.ID)
	if err != nil {
		writeDomainError(w, err, "failed to compute balances")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"apartmentId": apartment.ID,
		"currency":    apartment.Currency,
		"balances":    dto.BalancesFromDomain(balances),
	})
}

// TouristTax quotes the tax for ?guests=&check_in=&check_out=.
func (h *LedgerHandler) TouristTax(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	input, err := dto.ParseStayQuery(q.Get("guests"), q.Get("check_in"), q.Get("check_out"))
	if err != nil {
		writeDomainError(w, err, "invalid stay")
		return
	}

	quote, err := h.ledgerUC.QuoteTouristTax(input)
	if err != nil {
		writeDomainError(w, err, "failed to quote tourist tax")
		return
	}

	writeJSON(w, http.StatusOK, dto.TouristTaxFromQuote(quote))
}
