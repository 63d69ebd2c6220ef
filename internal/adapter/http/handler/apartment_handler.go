package handler

import (
	"context"
	"net/http"

	"github.com/iho/aptledger/internal/adapter/http/dto"
	"github.com/iho/aptledger/internal/domain"
	"github.com/iho/aptledger/internal/usecase"
)

// ApartmentService defines the behavior needed by ApartmentHandler.
type ApartmentService interface {
	Authorizer
	CreateApartment(ctx context.Context, input usecase.CreateApartmentInput) (*domain.Apartment, error)
	ListForUser(ctx context.Context, userID string) ([]*domain.Apartment, error)
	UpdateShares(ctx context.Context, apartmentID string, shares domain.SharePlan) (*domain.Apartment, error)
}

// ApartmentHandler handles apartment HTTP requests.
type ApartmentHandler struct {
	apartmentUC ApartmentService
}

// NewApartmentHandler creates a new ApartmentHandler.
func NewApartmentHandler(apartmentUC ApartmentService) *ApartmentHandler {
	return &ApartmentHandler{apartmentUC: apartmentUC}
}

// Create creates an apartment. Without explicit owners the caller owns it.
func (h *ApartmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := caller(r)
	if user == nil {
		writeDomainError(w, domain.ErrUnauthenticated, "failed to create apartment")
		return
	}
	if !user.Role.CanEdit() {
		writeDomainError(w, domain.ErrInsufficientRole, "failed to create apartment")
		return
	}

	var req dto.CreateApartmentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	input := req.ToUseCaseInput()
	if len(input.OwnerIDs) == 0 {
		input.OwnerIDs = []string{user.ID}
	}

	apartment, err := h.apartmentUC.CreateApartment(r.Context(), input)
	if err != nil {
		writeDomainError(w, err, "failed to create apartment")
		return
	}

	writeJSON(w, http.StatusCreated, dto.ApartmentFromDomain(apartment))
}

// List lists the caller's apartments.
func (h *ApartmentHandler) List(w http.ResponseWriter, r *http.Request) {
	user := caller(r)
	if user == nil {
		writeDomainError(w, domain.ErrUnauthenticated, "failed to list apartments")
		return
	}

	apartments, err := h.apartmentUC.ListForUser(r.Context(), user.ID)
	if err != nil {
		writeDomainError(w, err, "failed to list apartments")
		return
	}

	writeJSON(w, http.StatusOK, dto.ApartmentsFromDomain(apartments))
}

// Get returns one apartment.
func (h *ApartmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	apartment, ok := authorize(w, r, h.apartmentUC, false)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, dto.ApartmentFromDomain(apartment))
}

// UpdateShares replaces the share plan.
func (h *ApartmentHandler) UpdateShares(w http.ResponseWriter, r *http.Request) {
	apartment, ok := authorize(w, r, h.apartmentUC, true)
	if !ok {
		return
	}

	var req dto.UpdateSharesRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	updated, err := h.apartmentUC.UpdateShares(r.Context(), apartment.ID, domain.SharePlan(req.Shares))
	if err != nil {
		writeDomainError(w, err, "failed to update shares")
		return
	}

	writeJSON(w, http.StatusOK, dto.ApartmentFromDomain(updated))
}
